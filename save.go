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
	"encoding/gob"
	"fmt"
	"io"
)

// snapshot is the on-disk form of a simulation's mutable state. The
// configuration (soil profile, species parameters, weather) is not
// included: Load expects the caller to have rebuilt it. Neither is the
// Done flag: a restored run continues until its own run functions end
// it.
type snapshot struct {
	Day         int
	Depth       float64
	SowingDepth float64
	Population  float64
	Stage       Stage
	Layers      []RootLayer
	Soil        []SoilLayer

	WaterUptakeSet bool
	NUptakeSet     bool
	DMDemand       BiomassDemand
	NDemand        BiomassDemand
	DMAllocated    BiomassAllocation
	NAllocated     BiomassAllocation
}

// Save returns a function that saves the simulation's mutable state to
// a gob stream (format description at
// https://golang.org/pkg/encoding/gob/).
func Save(w io.Writer) SimulationManipulator {
	return func(s *Simulation) error {
		snap := snapshot{
			Day:            s.Day,
			Depth:          s.Root.Depth,
			SowingDepth:    s.Root.SowingDepth,
			Population:     s.Root.Population,
			Stage:          s.Root.stage,
			Layers:         make([]RootLayer, len(s.Root.Layers)),
			Soil:           make([]SoilLayer, len(s.Soil.Layers)),
			WaterUptakeSet: s.Root.waterUptakeSet,
			NUptakeSet:     s.Root.nUptakeSet,
			DMDemand:       s.Root.dmDemand,
			NDemand:        s.Root.nDemand,
			DMAllocated:    s.Root.dmAllocated,
			NAllocated:     s.Root.nAllocated,
		}
		for i, l := range s.Root.Layers {
			snap.Layers[i] = *l
		}
		for i, l := range s.Soil.Layers {
			snap.Soil[i] = *l
		}
		if err := gob.NewEncoder(w).Encode(snap); err != nil {
			return fmt.Errorf("rootzone.Simulation.Save: %v", err)
		}
		return nil
	}
}

// Load returns a function that restores state previously written by
// Save into a simulation configured with the same soil profile. The day
// counter resumes where the saved run stopped.
func Load(r io.Reader) SimulationManipulator {
	return func(s *Simulation) error {
		var snap snapshot
		if err := gob.NewDecoder(r).Decode(&snap); err != nil {
			return fmt.Errorf("rootzone.Simulation.Load: %v", err)
		}
		if len(snap.Layers) != len(s.Root.Layers) || len(snap.Soil) != len(s.Soil.Layers) {
			return configErrorf("loading saved state: the saved run has %d layers but this simulation has %d",
				len(snap.Layers), len(s.Root.Layers))
		}
		s.Day = snap.Day
		s.Root.Depth = snap.Depth
		s.Root.SowingDepth = snap.SowingDepth
		s.Root.Population = snap.Population
		s.Root.stage = snap.Stage
		s.Root.waterUptakeSet = snap.WaterUptakeSet
		s.Root.nUptakeSet = snap.NUptakeSet
		s.Root.dmDemand = snap.DMDemand
		s.Root.nDemand = snap.NDemand
		s.Root.dmAllocated = snap.DMAllocated
		s.Root.nAllocated = snap.NAllocated
		for i := range snap.Layers {
			*s.Root.Layers[i] = snap.Layers[i]
		}
		for i := range snap.Soil {
			*s.Soil.Layers[i] = snap.Soil[i]
		}
		return nil
	}
}
