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
	"errors"
	"testing"
)

func TestDMDemand(t *testing.T) {
	r, _ := testRoot()
	if d := r.DMDemand(10); d.Total() != 0 {
		t.Errorf("an unsown root should demand nothing, not %g g/m2", d.Total())
	}
	if err := r.Sow(testSowing); err != nil {
		t.Fatal(err)
	}
	if d := r.DMDemand(10); d.Total() != 0 {
		t.Errorf("a root still at the sowing depth should demand nothing, not %g g/m2", d.Total())
	}
	if err := r.Grow(15); err != nil {
		t.Fatal(err)
	}
	d := r.DMDemand(10)
	if different(d.Structural, 3, testTolerance) {
		t.Errorf("demand should be the partition fraction 0.3 of the supply 10, not %g g/m2", d.Structural)
	}
	if d.Storage != 0 {
		t.Errorf("dry matter demand has no storage component, but got %g g/m2", d.Storage)
	}
	if r.Stage() != DemandComputed {
		t.Errorf("stage after demanding should be DemandComputed, not %s", r.Stage())
	}
}

func TestDMDemandDefaultPartition(t *testing.T) {
	profile, params, soil := RootTestData()
	params.PartitionFraction = 0 // unset, defaults to 1
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
	if d := r.DMDemand(10); different(d.Structural, 10, testTolerance) {
		t.Errorf("with the partition fraction unset the root should demand the whole supply, not %g g/m2", d.Structural)
	}
}

func TestNitrogenDemand(t *testing.T) {
	r, _ := testRoot()
	if err := r.Sow(testSowing); err != nil {
		t.Fatal(err)
	}
	r.Layers[0].PotentialDM = 0.6

	structural, storage := r.NitrogenDemand(1)
	// New growth held at the minimum concentration.
	if different(structural[0], 0.6*0.01, testTolerance) {
		t.Errorf("structural demand should be %g g/m2, not %g", 0.6*0.01, structural[0])
	}
	// The live pool sits at the maximum concentration already, so the
	// storage demand covers only the new growth's top-up.
	wantStorage := 0.02*(7.5+0.6) - (0.15 + 0.6*0.01)
	if different(storage[0], wantStorage, testTolerance) {
		t.Errorf("storage demand should be %g g/m2, not %g", wantStorage, storage[0])
	}
	for i := 1; i < 3; i++ {
		if structural[i] != 0 || storage[i] != 0 {
			t.Errorf("layer %d holds no roots and should demand nothing, not (%g, %g)",
				i, structural[i], storage[i])
		}
	}
	if r.Layers[0].StructuralNDemand != structural[0] || r.Layers[0].StorageNDemand != storage[0] {
		t.Error("the returned demands and the recorded demands disagree")
	}

	// Asking again without a state change returns the same values.
	structural2, storage2 := r.NitrogenDemand(1)
	for i := range structural {
		if structural2[i] != structural[i] || storage2[i] != storage[i] {
			t.Errorf("layer %d: repeating the demand query changed the answer", i)
		}
	}
}

func TestSetPotentialDMAllocationWithoutDemand(t *testing.T) {
	r, _ := testRoot()
	if err := r.Sow(testSowing); err != nil {
		t.Fatal(err)
	}
	err := r.SetPotentialDMAllocation(BiomassAllocation{Structural: 1})
	var ie *InvariantError
	if !errors.As(err, &ie) {
		t.Errorf("allocating without a demand should break an invariant; got %v", err)
	}
}

func TestAllocationConservation(t *testing.T) {
	r, _ := testRoot()
	if err := r.Sow(Sowing{Depth: 400, Population: 150}); err != nil {
		t.Fatal(err)
	}
	if err := r.Grow(15); err != nil {
		t.Fatal(err)
	}
	if err := r.SetWaterUptake([]float64{1.0, 0.5, 0.2}); err != nil {
		t.Fatal(err)
	}
	if d := r.DMDemand(5); different(d.Total(), 1.5, testTolerance) {
		t.Fatalf("demand should be 1.5 g/m2, not %g", d.Total())
	}

	if err := r.SetPotentialDMAllocation(BiomassAllocation{Structural: 1.5}); err != nil {
		t.Fatal(err)
	}
	var potential float64
	for _, l := range r.Layers {
		if l.PotentialDM < 0 {
			t.Errorf("potential allocation must not be negative, but is %g g/m2", l.PotentialDM)
		}
		potential += l.PotentialDM
	}
	if absDifferent(potential, 1.5, allocTolerance) {
		t.Errorf("the layer shares should sum to the allocated 1.5 g/m2, not %g", potential)
	}
	if r.Stage() != PotentialAllocated {
		t.Errorf("stage should be PotentialAllocated, not %s", r.Stage())
	}

	if err := r.SetDMAllocation(BiomassAllocation{Structural: 1.2, Storage: 0.3}); err != nil {
		t.Fatal(err)
	}
	if absDifferent(r.TotalWt(), 7.5+1.5, allocTolerance) {
		t.Errorf("total weight after allocation should be %g g/m2, not %g", 7.5+1.5, r.TotalWt())
	}
}

func TestSetNAllocationSurplus(t *testing.T) {
	r, _ := testRoot()
	if err := r.Sow(testSowing); err != nil {
		t.Fatal(err)
	}
	r.Layers[0].PotentialDM = 1.0
	r.NitrogenDemand(1) // demand is 0.01 structural + 0.01 storage

	err := r.SetNAllocation(BiomassAllocation{Structural: 0.02 + 1e-7})
	var ie *InvariantError
	if !errors.As(err, &ie) {
		t.Errorf("allocating more nitrogen than demanded should break an invariant; got %v", err)
	}

	if err := r.SetNAllocation(BiomassAllocation{Structural: 0.01, Storage: 0.01}); err != nil {
		t.Fatal(err)
	}
	if absDifferent(r.TotalN(), 0.15+0.02, allocTolerance) {
		t.Errorf("total nitrogen after allocation should be %g g/m2, not %g", 0.15+0.02, r.TotalN())
	}
	if r.Stage() != FinalAllocated {
		t.Errorf("stage should be FinalAllocated, not %s", r.Stage())
	}
}

func TestSetNAllocationWithoutDemand(t *testing.T) {
	r, _ := testRoot()
	if err := r.Sow(testSowing); err != nil {
		t.Fatal(err)
	}
	err := r.SetNAllocation(BiomassAllocation{Structural: 0.01})
	var ie *InvariantError
	if !errors.As(err, &ie) {
		t.Errorf("allocating without a demand should break an invariant; got %v", err)
	}
}

func TestComputeActivity(t *testing.T) {
	r, _ := testRoot()
	if err := r.Sow(testSowing); err != nil {
		t.Fatal(err)
	}
	if err := r.SetWaterUptake([]float64{2.1, 0, 0}); err != nil {
		t.Fatal(err)
	}
	r.Depth = 200 // front in the second layer, which holds no biomass

	raw, ran, err := r.computeActivity()
	if err != nil {
		t.Fatal(err)
	}
	// Uptake per unit weight, scaled by thickness and occupancy:
	// 2.1/7.5 × 150 × 1.
	if different(raw[0], 42, testTolerance) {
		t.Errorf("surface water activity should be 42, not %g", raw[0])
	}
	// No nitrogen was taken up, so the nitrogen weight falls back to
	// the water weight.
	if ran[0] != raw[0] {
		t.Errorf("nitrogen activity should track water activity, not be %g", ran[0])
	}
	// An occupied layer without live weight inherits from above.
	if raw[1] != raw[0] || ran[1] != ran[0] {
		t.Errorf("the empty layer should inherit the weights above it, not (%g, %g)", raw[1], ran[1])
	}
	if raw[2] != 0 || ran[2] != 0 {
		t.Errorf("layers below the front should have zero activity, not (%g, %g)", raw[2], ran[2])
	}
	if r.Layers[0].RAw != raw[0] || r.Layers[0].RAn != ran[0] {
		t.Error("the returned weights and the recorded weights disagree")
	}
}

func TestComputeActivityFloors(t *testing.T) {
	r, _ := testRoot()
	if err := r.Sow(testSowing); err != nil {
		t.Fatal(err)
	}
	raw, ran, err := r.computeActivity()
	if err != nil {
		t.Fatal(err)
	}
	if raw[0] != waterActivityFloor {
		t.Errorf("with no uptake the water activity should sit at the floor %g, not %g",
			waterActivityFloor, raw[0])
	}
	if ran[0] != nitrogenActivityFloor {
		t.Errorf("with no uptake the nitrogen activity should sit at the floor %g, not %g",
			nitrogenActivityFloor, ran[0])
	}
}

func TestDistribute(t *testing.T) {
	shares, err := distribute(10, []float64{1, 3})
	if err != nil {
		t.Fatal(err)
	}
	if shares[0] != 2.5 || shares[1] != 7.5 {
		t.Errorf("10 split 1:3 should be [2.5 7.5], not %v", shares)
	}

	if _, err := distribute(1, []float64{0, 0}); err == nil {
		t.Error("allocating against zero activity should fail")
	}

	shares, err = distribute(0, []float64{0, 0})
	if err != nil {
		t.Fatal(err)
	}
	if shares[0] != 0 || shares[1] != 0 {
		t.Errorf("allocating nothing should yield zero shares, not %v", shares)
	}

	// A total below the reconciliation tolerance is treated as nothing.
	if _, err := distribute(1e-10, []float64{0, 0}); err != nil {
		t.Errorf("a negligible total should not fail: %v", err)
	}
}
