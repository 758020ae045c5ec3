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
	"errors"
	"math"
	"strings"
	"testing"
)

// testArbitrator is a minimal whole-plant stand-in for exercising the
// daily cycle: a fixed daily dry matter supply and a fixed
// transpiration demand, with the root as the only competing organ.
type testArbitrator struct {
	dmSupply      float64
	transpiration float64
}

func (a *testArbitrator) WaterUptake() SimulationManipulator {
	return func(s *Simulation) error {
		if !s.Root.Alive() {
			return nil
		}
		uptake := make([]float64, len(s.Root.Layers))
		var total float64
		for i, l := range s.Root.Layers {
			uptake[i] = l.WaterSupply
			total += l.WaterSupply
		}
		if total > a.transpiration && total > 0 {
			for i := range uptake {
				uptake[i] *= a.transpiration / total
			}
		}
		return s.Root.SetWaterUptake(uptake)
	}
}

func (a *testArbitrator) PotentialDMAllocation() SimulationManipulator {
	return func(s *Simulation) error {
		if !s.Root.Alive() {
			return nil
		}
		d := s.Root.DMDemand(a.dmSupply)
		return s.Root.SetPotentialDMAllocation(BiomassAllocation{
			Structural: d.Structural,
			Storage:    d.Storage,
		})
	}
}

func (a *testArbitrator) NitrogenUptake() SimulationManipulator {
	return func(s *Simulation) error {
		if !s.Root.Alive() {
			return nil
		}
		structural, storage := s.Root.NitrogenDemand(s.Day)
		var demand float64
		for i := range structural {
			demand += structural[i] + storage[i]
		}
		demand /= KgPerHaToGramsPerM2
		no3 := make([]float64, len(s.Root.Layers))
		nh4 := make([]float64, len(s.Root.Layers))
		var total float64
		for i, l := range s.Root.Layers {
			no3[i], nh4[i] = l.NO3Supply, l.NH4Supply
			total += l.NO3Supply + l.NH4Supply
		}
		if total > demand && total > 0 {
			f := demand / total
			for i := range no3 {
				no3[i] *= f
				nh4[i] *= f
			}
		}
		return s.Root.SetNitrogenUptake(no3, nh4)
	}
}

func (a *testArbitrator) DMAllocation() SimulationManipulator {
	return func(s *Simulation) error {
		if !s.Root.Alive() {
			return nil
		}
		d, _ := s.Root.Demands()
		return s.Root.SetDMAllocation(BiomassAllocation{
			Structural: d.Structural,
			Storage:    d.Storage,
		})
	}
}

func (a *testArbitrator) NitrogenAllocation() SimulationManipulator {
	return func(s *Simulation) error {
		if !s.Root.Alive() {
			return nil
		}
		structural, storage := s.Root.NitrogenDemand(s.Day)
		taken := s.Root.TotalNitrogenUptake() * KgPerHaToGramsPerM2
		var sSum, stSum float64
		for i := range structural {
			sSum += structural[i]
			stSum += storage[i]
		}
		alloc := BiomassAllocation{Structural: math.Min(sSum, taken)}
		alloc.Storage = math.Min(stSum, taken-alloc.Structural)
		return s.Root.SetNAllocation(alloc)
	}
}

// testSimulation assembles a simulation on the RootTestData soil with a
// crop sown on day 1, no rain, and a constant 15 °C.
func testSimulation(days int, arb Arbitrator, mineralization float64) *Simulation {
	profile, params, soil := RootTestData()
	r, err := NewRoot([]*Zone{{Profile: profile, Soil: soil}}, "wheat", params, soil)
	if err != nil {
		panic(err)
	}
	sim := &Simulation{
		Profile: profile,
		Soil:    soil,
		Root:    r,
		Weather: NewSinusoidWeather(days, 15, 0, 100, 0, 1, 0, 0),
	}
	sim.RunFuncs = append(sim.RunFuncs, SowOn(1, testSowing))
	sim.RunFuncs = append(sim.RunFuncs, DailyCycle(arb, mineralization)...)
	sim.RunFuncs = append(sim.RunFuncs, EndAfter(days))
	return sim
}

func TestDailyCycle(t *testing.T) {
	sim := testSimulation(10, &testArbitrator{dmSupply: 2, transpiration: 1}, 0)
	if err := sim.Run(); err != nil {
		t.Fatal(err)
	}
	if sim.Day != 10 {
		t.Errorf("the run should span 10 days, not %d", sim.Day)
	}
	r := sim.Root
	if r.Depth != 150 {
		t.Errorf("after 10 days at 5 mm/day from 100 mm the front should be at 150 mm, not %g", r.Depth)
	}
	// 0.3 of the 2 g/m2 daily supply, every day.
	if absDifferent(r.TotalWt(), 7.5+10*0.6, 1e-7) {
		t.Errorf("live weight should be %g g/m2, not %g", 7.5+10*0.6, r.TotalWt())
	}
	// Demand keeps the root at the maximum nitrogen concentration, and
	// the soil holds far more than it asks for.
	if absDifferent(r.TotalN(), 0.02*(7.5+10*0.6), 1e-7) {
		t.Errorf("live nitrogen should be %g g/m2, not %g", 0.02*(7.5+10*0.6), r.TotalN())
	}
	// The front never crosses the 150 mm layer boundary, so everything
	// stays in the surface layer.
	if wt := r.Layers[1].Live.Wt(); wt != 0 {
		t.Errorf("no growth should be allocated below the front, but layer 1 holds %g g/m2", wt)
	}
	if r.Stage() != Grown {
		t.Errorf("a closed day should leave the organ Grown, not %s", r.Stage())
	}
	if w := sim.Soil.Layers[0].Water; w >= 30 {
		t.Errorf("ten days of uptake should have dried the surface layer below 30 mm, not %g", w)
	}
}

func TestDailyCycleStages(t *testing.T) {
	profile, params, soil := RootTestData()
	r, err := NewRoot([]*Zone{{Profile: profile, Soil: soil}}, "wheat", params, soil)
	if err != nil {
		t.Fatal(err)
	}
	sim := &Simulation{
		Profile: profile,
		Soil:    soil,
		Root:    r,
		Weather: NewSinusoidWeather(3, 15, 0, 100, 0, 1, 0, 0),
	}
	names := []string{
		"NewDay", "SoilWaterBalance", "Mineralization", "GrowRoots",
		"SenesceRoots", "WaterSupply", "WaterUptake",
		"PotentialDMAllocation", "NitrogenSupply", "NitrogenUptake",
		"DMAllocation", "NitrogenAllocation", "EndDay",
	}
	cycle := DailyCycle(&testArbitrator{dmSupply: 2, transpiration: 1}, 0)
	if len(cycle) != len(names) {
		t.Fatalf("the daily cycle has %d phases, expected %d", len(cycle), len(names))
	}
	stages := make(map[string]Stage)
	sim.RunFuncs = append(sim.RunFuncs, SowOn(1, testSowing))
	for i, f := range cycle {
		f, name := f, names[i]
		sim.RunFuncs = append(sim.RunFuncs, func(s *Simulation) error {
			if err := f(s); err != nil {
				return err
			}
			if s.Day == 2 {
				stages[name] = s.Root.Stage()
			}
			return nil
		})
	}
	sim.RunFuncs = append(sim.RunFuncs, EndAfter(3))
	if err := sim.Run(); err != nil {
		t.Fatal(err)
	}
	want := map[string]Stage{
		"WaterUptake":           Grown,
		"PotentialDMAllocation": PotentialAllocated,
		"NitrogenSupply":        SupplyReported,
		"NitrogenUptake":        SupplyReported,
		"DMAllocation":          SupplyReported,
		"NitrogenAllocation":    FinalAllocated,
		"EndDay":                Grown,
	}
	for name, w := range want {
		if stages[name] != w {
			t.Errorf("after %s the organ should be %s, not %s", name, w, stages[name])
		}
	}
}

func TestWaterConservation(t *testing.T) {
	sim := testSimulation(12, &testArbitrator{dmSupply: 2, transpiration: 1}, 0)
	var taken float64
	sim.RunFuncs = append(sim.RunFuncs[:len(sim.RunFuncs)-1],
		func(s *Simulation) error {
			taken += s.Root.TotalWaterUptake()
			return nil
		},
		EndAfter(12),
	)
	var initial float64
	for _, l := range sim.Soil.Layers {
		initial += l.Water
	}
	if err := sim.Run(); err != nil {
		t.Fatal(err)
	}
	if taken <= 0 {
		t.Fatal("the crop should have taken up water")
	}
	var final float64
	for _, l := range sim.Soil.Layers {
		final += l.Water
	}
	// No rain and no drainage: whatever left the soil went through the
	// root.
	if absDifferent(initial-taken, final, 1e-8) {
		t.Errorf("water books do not balance: started with %g mm, took %g, but %g remains",
			initial, taken, final)
	}
}

func TestNitrogenConservation(t *testing.T) {
	profile, params, soil := RootTestData()
	params.SenescenceRate = Constant(0.01)
	r, err := NewRoot([]*Zone{{Profile: profile, Soil: soil}}, "wheat", params, soil)
	if err != nil {
		t.Fatal(err)
	}
	sim := &Simulation{
		Profile: profile,
		Soil:    soil,
		Root:    r,
		Weather: NewSinusoidWeather(15, 15, 0, 100, 0, 1, 0, 0),
	}
	sim.RunFuncs = append(sim.RunFuncs, SowOn(1, testSowing))
	sim.RunFuncs = append(sim.RunFuncs, DailyCycle(&testArbitrator{dmSupply: 2, transpiration: 1}, 0.02)...)
	sim.RunFuncs = append(sim.RunFuncs, EndCropOn(12), EndAfter(15))
	if err := sim.Run(); err != nil {
		t.Fatal(err)
	}

	// Sowing introduced 1.5 kg/ha of seed nitrogen on top of the 30.5
	// initially in the soil; everything else only moved between pools.
	soilN := func() float64 {
		var sum float64
		for _, l := range sim.Soil.Layers {
			sum += l.NO3 + l.NH4 + l.FOMN
		}
		return sum
	}
	want := 30.5 + 1.5
	got := soilN() + sim.Root.TotalN()/KgPerHaToGramsPerM2
	if absDifferent(got, want, 1e-7) {
		t.Errorf("nitrogen books do not balance: %g kg/ha accounted for, expected %g", got, want)
	}
	if sim.Root.Stage() != Cleared {
		t.Errorf("the crop should have ended, but the organ is %s", sim.Root.Stage())
	}
	if sim.Root.TotalN() != 0 {
		t.Errorf("a cleared organ should hold no nitrogen, not %g g/m2", sim.Root.TotalN())
	}
}

func TestDryMatterConservation(t *testing.T) {
	profile, params, soil := RootTestData()
	params.SenescenceRate = Constant(0.1)
	r, err := NewRoot([]*Zone{{Profile: profile, Soil: soil}}, "wheat", params, soil)
	if err != nil {
		t.Fatal(err)
	}
	sim := &Simulation{
		Profile: profile,
		Soil:    soil,
		Root:    r,
		Weather: NewSinusoidWeather(10, 15, 0, 100, 0, 1, 0, 0),
	}
	var allocated float64
	sim.RunFuncs = append(sim.RunFuncs, SowOn(1, testSowing))
	sim.RunFuncs = append(sim.RunFuncs, DailyCycle(&testArbitrator{dmSupply: 2, transpiration: 1}, 0)...)
	sim.RunFuncs = append(sim.RunFuncs,
		func(s *Simulation) error {
			dm, _ := s.Root.Allocations()
			allocated += dm.Total()
			return nil
		},
		EndAfter(10),
	)
	if err := sim.Run(); err != nil {
		t.Fatal(err)
	}

	// Without mineralization the organic pool only accumulates, so live
	// weight plus dead weight must equal the seed plus everything
	// allocated.
	var fom float64
	for _, l := range sim.Soil.Layers {
		fom += l.FOMWt
	}
	got := sim.Root.TotalWt()/KgPerHaToGramsPerM2 + fom
	want := (7.5 + allocated) / KgPerHaToGramsPerM2
	if absDifferent(got, want, 1e-6) {
		t.Errorf("dry matter books do not balance: %g kg/ha accounted for, expected %g", got, want)
	}
}

func TestRunEvents(t *testing.T) {
	sim := testSimulation(10, &testArbitrator{dmSupply: 2, transpiration: 1}, 0)
	// Re-plan the season: sow later, cut once, then harvest.
	sim.RunFuncs[0] = SowOn(2, testSowing)
	sim.RunFuncs = append(sim.RunFuncs[:len(sim.RunFuncs)-1],
		CutOn(5, BiomassRemoval{FractionToResidue: 0.3, FractionRemoved: 0.2}),
		HarvestOn(8, BiomassRemoval{FractionToResidue: 0.7, FractionRemoved: 0.1}),
		EndAfter(10),
	)
	if err := sim.Run(); err != nil {
		t.Fatal(err)
	}
	r := sim.Root
	if r.Stage() != Cleared {
		t.Errorf("the harvested organ should be Cleared, not %s", r.Stage())
	}
	if r.TotalWt() != 0 || r.Depth != 0 {
		t.Errorf("the harvested organ should be empty, but holds %g g/m2 at %g mm",
			r.TotalWt(), r.Depth)
	}
	var fom float64
	for _, l := range sim.Soil.Layers {
		fom += l.FOMWt
	}
	if fom <= 0 {
		t.Error("the cut and the harvest should have returned residue to the soil")
	}
}

func TestEndDayWithoutUptake(t *testing.T) {
	profile, params, soil := RootTestData()
	r, err := NewRoot([]*Zone{{Profile: profile, Soil: soil}}, "wheat", params, soil)
	if err != nil {
		t.Fatal(err)
	}
	sim := &Simulation{
		Profile:  profile,
		Soil:     soil,
		Root:     r,
		RunFuncs: []SimulationManipulator{SowOn(1, testSowing), EndDay(), EndAfter(3)},
	}
	err = sim.Run()
	if !errors.Is(err, ErrUptakeNotSet) {
		t.Errorf("closing a day without recorded uptake should fail with ErrUptakeNotSet, not %v", err)
	}
	if err == nil || !strings.Contains(err.Error(), "day 1") {
		t.Errorf("the error should name the failing day; got %v", err)
	}
}
