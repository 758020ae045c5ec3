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

// NewDay returns the phase that resets every layer's transient values
// at the start of the day, before any phase writes new ones.
func NewDay() SimulationManipulator {
	return Calculations(func(l *RootLayer, i int) {
		l.clearTransients()
	})
}

// SoilWaterBalance returns the phase that infiltrates the day's
// rainfall into the soil column.
func SoilWaterBalance() SimulationManipulator {
	return func(s *Simulation) error {
		s.Soil.Infiltrate(s.Weather.Rain(s.Day))
		return nil
	}
}

// Mineralization returns the phase that mineralizes the given daily
// fraction of fresh organic matter nitrogen into nitrate.
func Mineralization(rate float64) SimulationManipulator {
	return func(s *Simulation) error {
		s.Soil.Mineralize(rate)
		return nil
	}
}

// EndDay returns the phase that closes the organ's day: the uptake the
// arbitrator recorded is sent to the soil as negative deltas, once,
// and the organ returns to the Grown stage. Closing a day on which the
// arbitrator never recorded uptake fails with ErrUptakeNotSet.
func EndDay() SimulationManipulator {
	return func(s *Simulation) error {
		if !s.Root.Alive() {
			return nil
		}
		water, err := s.Root.WaterUptake()
		if err != nil {
			return err
		}
		no3, nh4, err := s.Root.NitrogenUptake()
		if err != nil {
			return err
		}
		delta := make([]float64, len(water))
		for i, w := range water {
			delta[i] = -w
		}
		if err := s.Soil.ApplyWaterDelta(delta); err != nil {
			return err
		}
		for i, v := range no3 {
			delta[i] = -v
		}
		if err := s.Soil.ApplyNO3Delta(delta); err != nil {
			return err
		}
		for i, v := range nh4 {
			delta[i] = -v
		}
		if err := s.Soil.ApplyNH4Delta(delta); err != nil {
			return err
		}
		s.Root.stage = Grown
		return nil
	}
}

// DailyCycle assembles the canonical daily phase order: the soil
// environment updates, the root grows and senesces, water supply is
// reported and its uptake arbitrated, dry matter demand is arbitrated
// into a potential allocation, nitrogen supply is reported and its
// uptake arbitrated, the final dry matter and nitrogen allocations are
// applied, and the day is closed by sending the uptake to the soil.
// Event phases (sowing, harvest) are prepended or appended by the
// caller.
func DailyCycle(a Arbitrator, mineralization float64) []SimulationManipulator {
	return []SimulationManipulator{
		NewDay(),
		SoilWaterBalance(),
		Mineralization(mineralization),
		GrowRoots(),
		SenesceRoots(),
		WaterSupply(),
		a.WaterUptake(),
		a.PotentialDMAllocation(),
		NitrogenSupply(),
		a.NitrogenUptake(),
		a.DMAllocation(),
		a.NitrogenAllocation(),
		EndDay(),
	}
}

// SowOn returns a phase that sows the crop when the given simulation
// day arrives.
func SowOn(day int, sow Sowing) SimulationManipulator {
	return func(s *Simulation) error {
		if s.Day != day {
			return nil
		}
		return s.Root.Sow(sow)
	}
}

// CutOn returns a phase that cuts or grazes the crop on the given day,
// removing the given biomass fractions and leaving the rest growing.
func CutOn(day int, rm BiomassRemoval) SimulationManipulator {
	return func(s *Simulation) error {
		if s.Day != day {
			return nil
		}
		return s.Root.RemoveBiomass(rm)
	}
}

// HarvestOn returns a phase that harvests the crop on the given day:
// the removal fractions are applied and the crop ends.
func HarvestOn(day int, rm BiomassRemoval) SimulationManipulator {
	return func(s *Simulation) error {
		if s.Day != day {
			return nil
		}
		return s.Root.Harvest(rm)
	}
}

// EndCropOn returns a phase that ends the crop on the given day,
// flushing all remaining biomass to the soil organic matter pool.
func EndCropOn(day int) SimulationManipulator {
	return func(s *Simulation) error {
		if s.Day != day {
			return nil
		}
		return s.Root.EndCrop()
	}
}
