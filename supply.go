/*
Copyright © 2017 the Rootzone authors.
This file is part of Rootzone.

Rootzone is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

Rootzone is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with Rootzone.  If not, see <http://www.gnu.org/licenses/>.
*/

package rootzone

import "math"

// WaterSupply returns the simulation phase that computes the water the
// root system could extract today.
func WaterSupply() SimulationManipulator {
	return func(s *Simulation) error {
		_, err := s.Root.ComputeWaterSupply()
		return err
	}
}

// NitrogenSupply returns the simulation phase that computes the
// mineral nitrogen the root system could extract today.
func NitrogenSupply() SimulationManipulator {
	return func(s *Simulation) error {
		_, _, err := s.Root.ComputeNitrogenSupply()
		return err
	}
}

// ComputeWaterSupply fills each layer's WaterSupply with the water the
// root system could extract from it today [mm], and returns the
// per-layer vector. For each layer at or above the root front, the
// supply is the crop extraction rate KL scaled by the KL modifier at
// the layer's root length density, applied to the water held above the
// crop lower limit, and weighted by the proportion of the layer the
// roots occupy. Layers below the front supply nothing.
func (r *Root) ComputeWaterSupply() ([]float64, error) {
	supply := make([]float64, len(r.Layers))
	front, ok, err := r.frontLayer()
	if err != nil {
		return nil, err
	}
	if !r.Alive() || !ok {
		for _, l := range r.Layers {
			l.WaterSupply = 0
		}
		return supply, nil
	}
	p := r.Zone.Profile
	for i, l := range r.Layers {
		if i > front {
			l.WaterSupply = 0
			continue
		}
		klMod := valueOrDefault(r.Params.KLModifier, r.LengthDensity(i), 1)
		avail := r.Zone.Soil.Layers[i].Water - r.Crop.LL[i]*p.Thickness[i]
		s := r.Crop.KL[i] * klMod * avail * p.RootProportion(i, r.Depth)
		if s < 0 {
			s = 0
		}
		l.WaterSupply = s
		supply[i] = s
	}
	return supply, nil
}

// ComputeNitrogenSupply fills each layer's NO3Supply and NH4Supply
// with the mineral nitrogen the root system could extract today
// [kg ha-1], and returns the two per-layer vectors. Each form is
// computed independently: the mineral nitrogen present in the layer,
// scaled by that form's extraction coefficient at the layer's root
// length density, by the concentration in parts per million, and by
// the soil water availability factor at the layer's relative water
// content. A running cap limits each form's whole-profile supply to
// the configured maximum daily uptake. Layers below the root front, or
// holding no live root biomass, supply nothing.
func (r *Root) ComputeNitrogenSupply() (no3, nh4 []float64, err error) {
	no3 = make([]float64, len(r.Layers))
	nh4 = make([]float64, len(r.Layers))
	front, ok, err := r.frontLayer()
	if err != nil {
		return nil, nil, err
	}
	if !r.Alive() || !ok {
		for _, l := range r.Layers {
			l.NO3Supply, l.NH4Supply = 0, 0
		}
		return no3, nh4, nil
	}
	maxUptake := r.Params.MaxDailyNUptake
	if maxUptake <= 0 {
		maxUptake = math.Inf(1)
	}
	soil := r.Zone.Soil
	var no3Sum, nh4Sum float64
	for i, l := range r.Layers {
		if i > front || l.Live.Wt() <= 0 {
			l.NO3Supply, l.NH4Supply = 0, 0
			continue
		}
		rld := r.LengthDensity(i)
		swaf := valueOrDefault(r.Params.SWAF, soil.RelativeWaterContent(i), 1)

		sNO3 := soil.Layers[i].NO3 * valueOrDefault(r.Params.NO3Extraction, rld, 1) *
			soil.NO3ppm(i) * swaf
		if room := maxUptake - no3Sum; sNO3 > room {
			sNO3 = room
		}
		if sNO3 < 0 {
			sNO3 = 0
		}

		sNH4 := soil.Layers[i].NH4 * valueOrDefault(r.Params.NH4Extraction, rld, 1) *
			soil.NH4ppm(i) * swaf
		if room := maxUptake - nh4Sum; sNH4 > room {
			sNH4 = room
		}
		if sNH4 < 0 {
			sNH4 = 0
		}

		l.NO3Supply, l.NH4Supply = sNO3, sNH4
		no3[i], nh4[i] = sNO3, sNH4
		no3Sum += sNO3
		nh4Sum += sNH4
	}
	r.stage = SupplyReported
	return no3, nh4, nil
}
