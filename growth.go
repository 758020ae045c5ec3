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

// GrowRoots returns a simulation phase that advances the root front by
// one day's growth.
func GrowRoots() SimulationManipulator {
	return func(s *Simulation) error {
		return s.Root.Grow(s.Weather.TMean(s.Day))
	}
}

// SenesceRoots returns a simulation phase that kills the day's share
// of live root biomass and reports it to the soil.
func SenesceRoots() SimulationManipulator {
	return func(s *Simulation) error {
		return s.Root.Senesce(s.Weather.TMean(s.Day))
	}
}

// Grow advances the root front by one day's growth at the given mean
// air temperature [°C]. The front moves at the species front velocity,
// scaled by the temperature effect and by the penetrability (XF) of
// the layer currently holding the front. It is capped by the deepest
// penetrable layer and, when configured, by the species maximum depth;
// it never retreats.
func (r *Root) Grow(tmean float64) error {
	if !r.Alive() {
		return nil
	}
	front, ok, err := r.frontLayer()
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	advance := r.Params.FrontVelocity * r.Crop.XF[front] *
		valueOrDefault(r.Params.TemperatureEffect, tmean, 1)
	if advance < 0 {
		advance = 0
	}
	depth := r.Depth + advance
	if max := r.Zone.Profile.MaxPenetrableDepth(r.Crop); depth > max {
		depth = max
	}
	if r.Params.MaxRootDepth > 0 && depth > r.Params.MaxRootDepth {
		depth = r.Params.MaxRootDepth
	}
	if depth > r.Depth {
		r.Depth = depth
	}
	return nil
}

// Senesce applies one day's senescence at the given mean air
// temperature [°C]: every layer's live pool is scaled down by the
// senescence rate and the dead material is reported to the soil
// organic matter pool. The report is sent even on days when nothing
// dies, so downstream bookkeeping sees one record per layer per day of
// emerged growth.
func (r *Root) Senesce(tmean float64) error {
	if !r.Alive() {
		return nil
	}
	rate := valueOrDefault(r.Params.SenescenceRate, tmean, 0)
	if rate < 0 || rate > 1 {
		return configErrorf("senescence rate %g at %g °C is outside [0, 1]", rate, tmean)
	}
	fom := make([]FOMRecord, len(r.Layers))
	for i, l := range r.Layers {
		dead := l.Live.Scaled(rate)
		l.Live.Scale(1 - rate)
		fom[i] = NewFOMRecord(dead.Wt(), dead.N())
	}
	return r.fom.AddFOM(fom)
}
