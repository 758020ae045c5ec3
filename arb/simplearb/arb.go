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

// Package simplearb contains a simplified whole-plant resource
// arbitrator: the rest of the plant is reduced to a fixed daily dry
// matter supply and a fixed transpiration demand, and the root is the
// only organ competing for resources.
package simplearb

import (
	"math"

	"github.com/cropsim/rootzone"
	"gonum.org/v1/gonum/floats"
)

// Arbitrator fulfils the github.com/cropsim/rootzone.Arbitrator
// interface.
type Arbitrator struct {
	// DMSupplyPerDay is the whole-plant dry matter supply available
	// each day [g m-2 d-1].
	DMSupplyPerDay float64

	// TranspirationDemand is the whole-plant water demand each day
	// [mm d-1].
	TranspirationDemand float64
}

// WaterUptake takes water from each layer in proportion to its
// reported supply, scaled back so the total does not exceed the
// transpiration demand.
func (a Arbitrator) WaterUptake() rootzone.SimulationManipulator {
	return func(s *rootzone.Simulation) error {
		if !s.Root.Alive() {
			return nil
		}
		supply := make([]float64, len(s.Root.Layers))
		for i, l := range s.Root.Layers {
			supply[i] = l.WaterSupply
		}
		frac := 1.
		if total := floats.Sum(supply); total > a.TranspirationDemand && total > 0 {
			frac = a.TranspirationDemand / total
		}
		floats.Scale(frac, supply)
		return s.Root.SetWaterUptake(supply)
	}
}

// PotentialDMAllocation queries the root's dry matter demand against
// the whole-plant supply and offers all of it back as the potential
// allocation.
func (a Arbitrator) PotentialDMAllocation() rootzone.SimulationManipulator {
	return func(s *rootzone.Simulation) error {
		if !s.Root.Alive() {
			return nil
		}
		demand := s.Root.DMDemand(a.DMSupplyPerDay)
		return s.Root.SetPotentialDMAllocation(rootzone.BiomassAllocation{
			Structural: demand.Structural,
			Storage:    demand.Storage,
		})
	}
}

// NitrogenUptake takes mineral nitrogen from each layer in proportion
// to its reported supply, scaled back so the total does not exceed the
// root's own nitrogen demand.
func (a Arbitrator) NitrogenUptake() rootzone.SimulationManipulator {
	return func(s *rootzone.Simulation) error {
		if !s.Root.Alive() {
			return nil
		}
		structural, storage := s.Root.NitrogenDemand(s.Day)
		demand := (floats.Sum(structural) + floats.Sum(storage)) /
			rootzone.KgPerHaToGramsPerM2
		no3 := make([]float64, len(s.Root.Layers))
		nh4 := make([]float64, len(s.Root.Layers))
		for i, l := range s.Root.Layers {
			no3[i] = l.NO3Supply
			nh4[i] = l.NH4Supply
		}
		frac := 1.
		if total := floats.Sum(no3) + floats.Sum(nh4); total > demand && total > 0 {
			frac = demand / total
		}
		floats.Scale(frac, no3)
		floats.Scale(frac, nh4)
		return s.Root.SetNitrogenUptake(no3, nh4)
	}
}

// DMAllocation allocates the demanded dry matter in full: in this
// simplified plant the supply always covers the root's demand.
func (a Arbitrator) DMAllocation() rootzone.SimulationManipulator {
	return func(s *rootzone.Simulation) error {
		if !s.Root.Alive() {
			return nil
		}
		demand, _ := s.Root.Demands()
		return s.Root.SetDMAllocation(rootzone.BiomassAllocation{
			Structural: demand.Structural,
			Storage:    demand.Storage,
		})
	}
}

// NitrogenAllocation allocates the nitrogen actually taken up, capped
// at the demand, filling the structural demand before the storage
// demand.
func (a Arbitrator) NitrogenAllocation() rootzone.SimulationManipulator {
	return func(s *rootzone.Simulation) error {
		if !s.Root.Alive() {
			return nil
		}
		structural, storage := s.Root.NitrogenDemand(s.Day)
		taken := s.Root.TotalNitrogenUptake() * rootzone.KgPerHaToGramsPerM2
		alloc := rootzone.BiomassAllocation{
			Structural: math.Min(floats.Sum(structural), taken),
		}
		alloc.Storage = math.Min(floats.Sum(storage), taken-alloc.Structural)
		return s.Root.SetNAllocation(alloc)
	}
}
