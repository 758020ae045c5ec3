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

// Package rootzone implements a daily-timestep simulation of crop root
// growth and resource uptake in a layered soil column: root front
// advance, biomass and nitrogen partitioning across layers, per-layer
// water and nitrogen supply, and a demand/allocation arbitration
// protocol with a whole-plant arbitrator.
package rootzone

import (
	"fmt"
	"time"
)

// A SimulationManipulator is a function that operates on the whole
// simulation: one ordered phase of a simulated day, an initialization
// step, or a cleanup step.
type SimulationManipulator func(s *Simulation) error

// A LayerManipulator is a function that operates on the root state of
// a single soil layer, where i is the layer index counted from the
// surface.
type LayerManipulator func(l *RootLayer, i int)

// Simulation holds the state of a root zone simulation and the ordered
// functions that drive it. The relative order of the run functions is
// a correctness requirement: growth must precede senescence, supply
// must precede uptake, and all demands must be computed before the
// matching allocations are applied.
type Simulation struct {
	// InitFuncs are run (in order) before the first day.
	InitFuncs []SimulationManipulator

	// RunFuncs are run (in order) once every simulated day.
	RunFuncs []SimulationManipulator

	// CleanupFuncs are run (in order) after the last day.
	CleanupFuncs []SimulationManipulator

	// Day is the current simulated day, starting from 1.
	Day int

	// Done signals the end of the run after the current day.
	Done bool

	// Profile is the soil layer geometry, fixed for the whole run.
	Profile *SoilProfile

	// Soil is the mutable water and nitrogen state of the column.
	Soil *SoilState

	// Root is the simulated organ.
	Root *Root

	// Weather supplies the daily weather drivers.
	Weather *WeatherSeries
}

// Init initializes the simulation by running the initialization
// functions in order.
func (s *Simulation) Init() error {
	for _, f := range s.InitFuncs {
		if err := f(s); err != nil {
			return err
		}
	}
	return nil
}

// Run steps the simulation forward one day at a time, applying every
// run function in order each day, until one of them sets Done. An
// error from any phase aborts the day and stops the run.
func (s *Simulation) Run() error {
	for !s.Done {
		s.Day++
		for _, f := range s.RunFuncs {
			if err := f(s); err != nil {
				return fmt.Errorf("rootzone: day %d: %w", s.Day, err)
			}
		}
	}
	return nil
}

// Cleanup finalizes the simulation by running the cleanup functions in
// order.
func (s *Simulation) Cleanup() error {
	for _, f := range s.CleanupFuncs {
		if err := f(s); err != nil {
			return err
		}
	}
	return nil
}

// Calculations groups per-layer science steps into a single simulation
// phase. Within the phase, every step is applied to each layer in
// order, surface layer first; layers are processed one at a time, so a
// step may depend on the values its predecessors computed for
// shallower layers.
func Calculations(steps ...LayerManipulator) SimulationManipulator {
	return func(s *Simulation) error {
		for i, l := range s.Root.Layers {
			for _, f := range steps {
				f(l, i)
			}
		}
		return nil
	}
}

// EndAfter returns a simulation phase that ends the run after the
// given number of simulated days.
func EndAfter(days int) SimulationManipulator {
	return func(s *Simulation) error {
		if s.Day >= days {
			s.Done = true
		}
		return nil
	}
}

// RunPeriodically returns a simulation phase that applies f every
// interval days, counting from the start of the run.
func RunPeriodically(interval int, f SimulationManipulator) SimulationManipulator {
	return func(s *Simulation) error {
		if interval > 0 && s.Day%interval == 0 {
			return f(s)
		}
		return nil
	}
}

// SimulationStatus describes the progress of a running simulation.
type SimulationStatus struct {
	// Day is the current simulated day.
	Day int

	// Stage is the organ's position in its lifecycle.
	Stage Stage

	// Depth is the root front depth [mm].
	Depth float64

	// Walltime is the elapsed wall-clock time since the run started.
	Walltime time.Duration
}

func (s *SimulationStatus) String() string {
	return fmt.Sprintf("Day %-4d  stage=%-18s  depth=%6.1f mm  walltime=%s",
		s.Day, s.Stage, s.Depth, s.Walltime.Round(time.Millisecond))
}

// Log returns a simulation phase that sends daily progress reports to
// c. The receiver must drain the channel for the simulation to
// proceed.
func Log(c chan *SimulationStatus) SimulationManipulator {
	startTime := time.Now()
	return func(s *Simulation) error {
		c <- &SimulationStatus{
			Day:      s.Day,
			Stage:    s.Root.Stage(),
			Depth:    s.Root.Depth,
			Walltime: time.Since(startTime),
		}
		return nil
	}
}
