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

import (
	"math"
	"testing"
)

func TestComputeWaterSupply(t *testing.T) {
	r, _ := testRoot()
	if err := r.Sow(testSowing); err != nil {
		t.Fatal(err)
	}
	if err := r.Grow(15); err != nil { // front at 105 mm
		t.Fatal(err)
	}
	supply, err := r.ComputeWaterSupply()
	if err != nil {
		t.Fatal(err)
	}
	// KL × (water − LL×thickness) × proportion occupied:
	// 0.08 × (30 − 0.07×150) × 105/150.
	want := 0.08 * (30 - 0.07*150) * (105. / 150.)
	if different(supply[0], want, testTolerance) {
		t.Errorf("surface layer supply should be %g mm, not %g", want, supply[0])
	}
	if r.Layers[0].WaterSupply != supply[0] {
		t.Error("the returned supply and the recorded supply disagree")
	}
	for i := 1; i < 3; i++ {
		if supply[i] != 0 {
			t.Errorf("layer %d is below the front and should supply nothing, not %g mm", i, supply[i])
		}
	}
}

func TestComputeWaterSupplyDryLayer(t *testing.T) {
	r, soil := testRoot()
	if err := r.Sow(testSowing); err != nil {
		t.Fatal(err)
	}
	if err := r.Grow(15); err != nil {
		t.Fatal(err)
	}
	soil.Layers[0].Water = 5 // below the crop lower limit of 10.5 mm
	supply, err := r.ComputeWaterSupply()
	if err != nil {
		t.Fatal(err)
	}
	if supply[0] != 0 {
		t.Errorf("a layer drier than the crop lower limit should supply nothing, not %g mm", supply[0])
	}
}

func TestComputeWaterSupplyUnsown(t *testing.T) {
	r, _ := testRoot()
	supply, err := r.ComputeWaterSupply()
	if err != nil {
		t.Fatal(err)
	}
	for i, s := range supply {
		if s != 0 {
			t.Errorf("layer %d: an unsown root should supply nothing, not %g mm", i, s)
		}
	}
}

func TestComputeWaterSupplyKLModifier(t *testing.T) {
	profile, params, soil := RootTestData()
	params.KLModifier = Constant(0.5)
	r, err := NewRoot([]*Zone{{Profile: profile, Soil: soil}}, "wheat", params, soil)
	if err != nil {
		t.Fatal(err)
	}
	if err := r.Sow(testSowing); err != nil {
		t.Fatal(err)
	}
	if err := r.Grow(15); err != nil {
		t.Fatal(err)
	}
	supply, err := r.ComputeWaterSupply()
	if err != nil {
		t.Fatal(err)
	}
	want := 0.08 * 0.5 * (30 - 0.07*150) * (105. / 150.)
	if different(supply[0], want, testTolerance) {
		t.Errorf("with the extraction rate halved the supply should be %g mm, not %g", want, supply[0])
	}
}

func TestComputeNitrogenSupply(t *testing.T) {
	profile, params, soil := RootTestData()
	params.NO3Extraction = Constant(0.01)
	params.NH4Extraction = Constant(0.01)
	r, err := NewRoot([]*Zone{{Profile: profile, Soil: soil}}, "wheat", params, soil)
	if err != nil {
		t.Fatal(err)
	}
	if err := r.Sow(testSowing); err != nil {
		t.Fatal(err)
	}
	if err := r.Grow(15); err != nil {
		t.Fatal(err)
	}
	no3, nh4, err := r.ComputeNitrogenSupply()
	if err != nil {
		t.Fatal(err)
	}
	// mineral N × extraction × concentration [ppm], with the water
	// availability factor defaulting to 1.
	wantNO3 := 12. * 0.01 * (12. * 100. / (1.36 * 150))
	wantNH4 := 2. * 0.01 * (2. * 100. / (1.36 * 150))
	if different(no3[0], wantNO3, testTolerance) {
		t.Errorf("surface layer NO3 supply should be %g kg/ha, not %g", wantNO3, no3[0])
	}
	if different(nh4[0], wantNH4, testTolerance) {
		t.Errorf("surface layer NH4 supply should be %g kg/ha, not %g", wantNH4, nh4[0])
	}
	if r.Layers[0].NO3Supply != no3[0] || r.Layers[0].NH4Supply != nh4[0] {
		t.Error("the returned supplies and the recorded supplies disagree")
	}
	for i := 1; i < 3; i++ {
		if no3[i] != 0 || nh4[i] != 0 {
			t.Errorf("layer %d is below the front and should supply nothing, not (%g, %g)",
				i, no3[i], nh4[i])
		}
	}
	if r.Stage() != SupplyReported {
		t.Errorf("stage after reporting supply should be SupplyReported, not %s", r.Stage())
	}
}

// TestComputeNitrogenSupplyCap checks the running cap: with the
// extraction factor left at its default of 1, the surface layer alone
// wants far more than the daily maximum, so it takes the whole budget
// and the deeper layers get nothing.
func TestComputeNitrogenSupplyCap(t *testing.T) {
	r, _ := testRoot()
	if err := r.Sow(Sowing{Depth: 400, Population: 150}); err != nil {
		t.Fatal(err)
	}
	no3, _, err := r.ComputeNitrogenSupply()
	if err != nil {
		t.Fatal(err)
	}
	if no3[0] != 6 {
		t.Errorf("the surface layer should exhaust the 6 kg/ha daily cap, not supply %g", no3[0])
	}
	if no3[1] != 0 || no3[2] != 0 {
		t.Errorf("the cap is used up, but deeper layers supply (%g, %g)", no3[1], no3[2])
	}
}

func TestComputeNitrogenSupplyUncapped(t *testing.T) {
	profile, params, soil := RootTestData()
	params.MaxDailyNUptake = 0 // uncapped
	r, err := NewRoot([]*Zone{{Profile: profile, Soil: soil}}, "wheat", params, soil)
	if err != nil {
		t.Fatal(err)
	}
	if err := r.Sow(testSowing); err != nil {
		t.Fatal(err)
	}
	if err := r.Grow(15); err != nil {
		t.Fatal(err)
	}
	no3, _, err := r.ComputeNitrogenSupply()
	if err != nil {
		t.Fatal(err)
	}
	want := 12. * (12. * 100. / (1.36 * 150))
	if different(no3[0], want, testTolerance) {
		t.Errorf("uncapped NO3 supply should be %g kg/ha, not %g", want, no3[0])
	}
}

// TestComputeNitrogenSupplyEmptyLayer puts the root front in a layer
// holding no live biomass: the layer still supplies water but no
// nitrogen.
func TestComputeNitrogenSupplyEmptyLayer(t *testing.T) {
	r, _ := testRoot()
	if err := r.Sow(testSowing); err != nil {
		t.Fatal(err)
	}
	r.Depth = 200 // into the second layer, which holds no biomass

	no3, nh4, err := r.ComputeNitrogenSupply()
	if err != nil {
		t.Fatal(err)
	}
	if no3[1] != 0 || nh4[1] != 0 {
		t.Errorf("a layer without live biomass should supply no nitrogen, not (%g, %g)",
			no3[1], nh4[1])
	}
	water, err := r.ComputeWaterSupply()
	if err != nil {
		t.Fatal(err)
	}
	want := 0.08 * (30 - 0.09*150) * (50. / 150.)
	if different(water[1], want, testTolerance) {
		t.Errorf("the same layer should still supply %g mm of water, not %g", want, water[1])
	}
}

func TestComputeNitrogenSupplySWAF(t *testing.T) {
	profile, params, soil := RootTestData()
	swaf, err := NewPiecewiseLinear([]float64{0, 1}, []float64{0, 1})
	if err != nil {
		t.Fatal(err)
	}
	params.SWAF = swaf
	params.MaxDailyNUptake = 0
	r, err := NewRoot([]*Zone{{Profile: profile, Soil: soil}}, "wheat", params, soil)
	if err != nil {
		t.Fatal(err)
	}
	if err := r.Sow(testSowing); err != nil {
		t.Fatal(err)
	}
	if err := r.Grow(15); err != nil {
		t.Fatal(err)
	}
	// Water 24 mm sits halfway between LL15 (9 mm) and DUL (39 mm), so
	// the identity availability factor halves the supply.
	soil.Layers[0].Water = 24
	no3, _, err := r.ComputeNitrogenSupply()
	if err != nil {
		t.Fatal(err)
	}
	want := 12. * (12. * 100. / (1.36 * 150)) * 0.5
	if different(no3[0], want, testTolerance) {
		t.Errorf("at half relative water content the NO3 supply should be %g kg/ha, not %g", want, no3[0])
	}

	// Saturated beyond the drained upper limit: the factor clamps to 1
	// rather than extrapolating.
	soil.Layers[0].Water = 60
	no3, _, err = r.ComputeNitrogenSupply()
	if err != nil {
		t.Fatal(err)
	}
	want = 12. * (12. * 100. / (1.36 * 150))
	if different(no3[0], want, testTolerance) {
		t.Errorf("above the drained upper limit the NO3 supply should be %g kg/ha, not %g", want, no3[0])
	}
	if math.IsNaN(no3[0]) {
		t.Error("the supply must never be NaN")
	}
}
