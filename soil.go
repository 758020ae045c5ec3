/*
Copyright © 2018 the Rootzone authors.
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

import (
	"fmt"

	"github.com/ctessum/unit"
)

// CarbonFraction is the fraction of root dry matter assumed to be
// carbon when dead material is passed to the soil organic matter pool.
const CarbonFraction = 0.4

// KgPerHaToGramsPerM2 converts soil bookkeeping [kg ha-1] to organ
// bookkeeping [g m-2].
const KgPerHaToGramsPerM2 = 0.1

// massPerArea is the dimension set of a mass flux density, used to
// check unit conversions between organ and soil bookkeeping.
var massPerArea = unit.Dimensions{unit.MassDim: 1, unit.LengthDim: -2}

// GramsPerM2 returns a mass-per-area quantity of v grams per square
// meter.
func GramsPerM2(v float64) *unit.Unit {
	return unit.New(v*1.e-3, massPerArea)
}

// KgPerHa returns the value of the mass-per-area quantity q in
// kilograms per hectare. It panics if q has different dimensions.
func KgPerHa(q *unit.Unit) float64 {
	if err := q.Check(massPerArea); err != nil {
		panic(fmt.Errorf("rootzone: converting to kg/ha: %w", err))
	}
	return q.Value() * 1.e4
}

// FOMRecord carries dead root material to the soil fresh organic
// matter pool for a single layer. All masses are in kg ha-1.
type FOMRecord struct {
	DryMatter     float64
	Nitrogen      float64
	Carbon        float64
	Phosphorus    float64
	AshAlkalinity float64
}

// NewFOMRecord packages dead root material for the soil organic matter
// pool, converting from organ units [g m-2] to soil units [kg ha-1].
// Carbon is estimated as CarbonFraction of the dry matter; phosphorus
// and ash alkalinity are not tracked by the organ and are reported as
// zero.
func NewFOMRecord(dryMatter, nitrogen float64) FOMRecord {
	dm := KgPerHa(GramsPerM2(dryMatter))
	return FOMRecord{
		DryMatter: dm,
		Nitrogen:  KgPerHa(GramsPerM2(nitrogen)),
		Carbon:    CarbonFraction * dm,
	}
}

// An OrganicMatterSink receives dead plant material, one record per
// soil layer.
type OrganicMatterSink interface {
	AddFOM(fom []FOMRecord) error
}

// SoilLayer is the mutable water and nitrogen state of one soil layer.
type SoilLayer struct {
	Water float64 `desc:"Soil water content" units:"mm"`
	NO3   float64 `desc:"Nitrate nitrogen" units:"kg ha-1"`
	NH4   float64 `desc:"Ammonium nitrogen" units:"kg ha-1"`
	FOMWt float64 `desc:"Fresh organic matter dry weight" units:"kg ha-1"`
	FOMN  float64 `desc:"Nitrogen in fresh organic matter" units:"kg ha-1"`
	FOMC  float64 `desc:"Carbon in fresh organic matter" units:"kg ha-1"`
}

// SoilState holds the mutable state of the soil column. The organ
// never writes to it directly: all changes arrive as explicit daily
// uptake deltas or organic matter records.
type SoilState struct {
	profile *SoilProfile

	// Layers holds the water and nitrogen pools, surface first.
	Layers []*SoilLayer
}

// NewSoilState creates the soil column state for a profile. water
// [mm], no3 and nh4 [kg ha-1] give the initial pool in each layer and
// must match the profile layer count.
func NewSoilState(p *SoilProfile, water, no3, nh4 []float64) (*SoilState, error) {
	n := p.NLayers()
	for name, arr := range map[string][]float64{
		"initial water": water,
		"initial NO3":   no3,
		"initial NH4":   nh4,
	} {
		if len(arr) != n {
			return nil, configErrorf("soil state: %s has %d values but the profile has %d layers", name, len(arr), n)
		}
	}
	s := &SoilState{
		profile: p,
		Layers:  make([]*SoilLayer, n),
	}
	for i := 0; i < n; i++ {
		s.Layers[i] = &SoilLayer{Water: water[i], NO3: no3[i], NH4: nh4[i]}
	}
	return s, nil
}

// NLayers returns the number of layers in the column.
func (s *SoilState) NLayers() int { return len(s.Layers) }

// Profile returns the geometry the state was built on.
func (s *SoilState) Profile() *SoilProfile { return s.profile }

// RelativeWaterContent returns the water content of layer i relative
// to the range between the 15-bar lower limit and the drained upper
// limit, clamped to [0, 1].
func (s *SoilState) RelativeWaterContent(i int) float64 {
	ll := s.profile.LL15[i] * s.profile.Thickness[i]
	dul := s.profile.DUL[i] * s.profile.Thickness[i]
	if dul <= ll {
		return 0
	}
	rwc := (s.Layers[i].Water - ll) / (dul - ll)
	if rwc < 0 {
		return 0
	}
	if rwc > 1 {
		return 1
	}
	return rwc
}

// NO3ppm returns the nitrate concentration of layer i in mg per kg of
// soil.
func (s *SoilState) NO3ppm(i int) float64 {
	return s.Layers[i].NO3 * 100. / (s.profile.BD[i] * s.profile.Thickness[i])
}

// NH4ppm returns the ammonium concentration of layer i in mg per kg of
// soil.
func (s *SoilState) NH4ppm(i int) float64 {
	return s.Layers[i].NH4 * 100. / (s.profile.BD[i] * s.profile.Thickness[i])
}

// applyDelta adds delta[i] to the pool selected by get in each layer.
// Pools are floored at zero to absorb floating point noise; an
// extraction measurably beyond what the pool holds is an invariant
// violation.
func (s *SoilState) applyDelta(what string, delta []float64, get func(l *SoilLayer) *float64) error {
	if len(delta) != len(s.Layers) {
		return invariantErrorf("%s delta has %d values but the soil has %d layers", what, len(delta), len(s.Layers))
	}
	for i, d := range delta {
		p := get(s.Layers[i])
		v := *p + d
		if v < -deltaTolerance {
			return invariantErrorf("%s extraction of %g from layer %d exceeds the %g available", what, -d, i, *p)
		}
		if v < 0 {
			v = 0
		}
		*p = v
	}
	return nil
}

// deltaTolerance absorbs floating point noise when uptake empties a
// pool.
const deltaTolerance = 1e-9

// ApplyWaterDelta adds the per-layer water changes [mm] to the column.
// Extractions are negative values.
func (s *SoilState) ApplyWaterDelta(delta []float64) error {
	return s.applyDelta("water", delta, func(l *SoilLayer) *float64 { return &l.Water })
}

// ApplyNO3Delta adds the per-layer nitrate changes [kg ha-1] to the
// column. Extractions are negative values.
func (s *SoilState) ApplyNO3Delta(delta []float64) error {
	return s.applyDelta("NO3", delta, func(l *SoilLayer) *float64 { return &l.NO3 })
}

// ApplyNH4Delta adds the per-layer ammonium changes [kg ha-1] to the
// column. Extractions are negative values.
func (s *SoilState) ApplyNH4Delta(delta []float64) error {
	return s.applyDelta("NH4", delta, func(l *SoilLayer) *float64 { return &l.NH4 })
}

// AddFOM adds dead plant material to the fresh organic matter pool,
// one record per layer.
func (s *SoilState) AddFOM(fom []FOMRecord) error {
	if len(fom) != len(s.Layers) {
		return invariantErrorf("organic matter input has %d records but the soil has %d layers", len(fom), len(s.Layers))
	}
	for i, f := range fom {
		l := s.Layers[i]
		l.FOMWt += f.DryMatter
		l.FOMN += f.Nitrogen
		l.FOMC += f.Carbon
	}
	return nil
}

// Infiltrate adds rain [mm] to the column from the surface downward,
// filling each layer to its drained upper limit and cascading the
// excess deeper. Water beyond the bottom layer drains away.
func (s *SoilState) Infiltrate(rain float64) {
	for i, l := range s.Layers {
		if rain <= 0 {
			return
		}
		room := s.profile.DUL[i]*s.profile.Thickness[i] - l.Water
		if room <= 0 {
			continue
		}
		if rain < room {
			l.Water += rain
			return
		}
		l.Water += room
		rain -= room
	}
}

// Mineralize converts the fraction rate of each layer's fresh organic
// matter nitrogen into nitrate, decaying the organic pools by the same
// fraction.
func (s *SoilState) Mineralize(rate float64) {
	if rate <= 0 {
		return
	}
	for _, l := range s.Layers {
		l.NO3 += l.FOMN * rate
		l.FOMN *= 1 - rate
		l.FOMWt *= 1 - rate
		l.FOMC *= 1 - rate
	}
}
