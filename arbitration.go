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
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

const (
	// allocTolerance is the numerical tolerance for reconciling a
	// per-layer allocation sum against its reported total, and for
	// deciding whether an allocation is negligible.
	allocTolerance = 1.e-9

	// nSurplusTolerance is how far allocated nitrogen may exceed the
	// reported demand before the day is aborted.
	nSurplusTolerance = 1.e-8

	// waterActivityFloor and nitrogenActivityFloor keep the activity
	// weights of occupied layers away from zero, so every layer with
	// live roots receives a share of the allocation.
	waterActivityFloor    = 1.e-20
	nitrogenActivityFloor = 1.e-10
)

// An InvariantError reports a broken model invariant. It is fatal: the
// day it occurs on cannot be completed and must not be retried.
type InvariantError struct {
	msg string
}

func (e *InvariantError) Error() string { return e.msg }

func invariantErrorf(format string, args ...interface{}) error {
	return &InvariantError{msg: "rootzone: " + fmt.Sprintf(format, args...)}
}

// An Arbitrator shares the day's whole-plant resources among organs.
// Each method returns one phase of the daily demand/allocation cycle;
// a Simulation runs them in the order they are declared here, with the
// supply calculators and growth phases interleaved as assembled by the
// run configuration.
type Arbitrator interface {
	// WaterUptake returns the phase that decides the day's per-layer
	// water uptake from the reported supply and records it on the
	// root.
	WaterUptake() SimulationManipulator

	// PotentialDMAllocation returns the phase that queries dry matter
	// demand and sets the potential allocation.
	PotentialDMAllocation() SimulationManipulator

	// NitrogenUptake returns the phase that decides the day's
	// per-layer nitrogen uptake from the reported supply and records
	// it on the root.
	NitrogenUptake() SimulationManipulator

	// DMAllocation returns the phase that sets the final dry matter
	// allocation.
	DMAllocation() SimulationManipulator

	// NitrogenAllocation returns the phase that queries nitrogen
	// demand and sets the final nitrogen allocation.
	NitrogenAllocation() SimulationManipulator
}

// DMDemand reports the root's dry matter demand to the arbitrator
// [g m-2], given the whole plant's dry matter supply for the day. The
// root demands its partition fraction of the whole-plant supply. A
// root system that does not exist, or whose front has not yet grown
// past the seed placement, demands nothing.
func (r *Root) DMDemand(wholePlantSupply float64) BiomassDemand {
	if !r.Alive() || r.Depth <= 0 || r.Depth <= r.SowingDepth {
		r.dmDemand = BiomassDemand{}
		return r.dmDemand
	}
	r.dmDemand = BiomassDemand{Structural: wholePlantSupply * r.Params.partitionFraction()}
	r.stage = DemandComputed
	return r.dmDemand
}

// NitrogenDemand reports the root's per-layer nitrogen demand to the
// arbitrator [g m-2]. The structural demand keeps each layer's
// potential new growth at the minimum nitrogen concentration; the
// storage demand is the further top-up that would bring the layer to
// the maximum concentration. Both are scaled by the demand switch for
// the given simulation day. The query is idempotent: asking again
// without an intervening state change returns the same values.
func (r *Root) NitrogenDemand(day int) (structural, storage []float64) {
	structural = make([]float64, len(r.Layers))
	storage = make([]float64, len(r.Layers))
	if !r.Alive() {
		r.nDemand = BiomassDemand{}
		return structural, storage
	}
	sw := valueOrDefault(r.Params.NDemandSwitch, float64(day), 1)
	var total BiomassDemand
	for i, l := range r.Layers {
		structural[i] = l.PotentialDM * r.Params.MinNConc * sw
		deficit := r.Params.MaxNConc*(l.Live.Wt()+l.PotentialDM) -
			(l.Live.N() + structural[i])
		if deficit < 0 {
			deficit = 0
		}
		storage[i] = deficit * sw
		l.StructuralNDemand = structural[i]
		l.StorageNDemand = storage[i]
		total.Structural += structural[i]
		total.Storage += storage[i]
	}
	r.nDemand = total
	return structural, storage
}

// SetPotentialDMAllocation distributes the arbitrator's potential dry
// matter allocation [g m-2] across the layers in proportion to water
// activity, recording each layer's share in its PotentialDM field.
func (r *Root) SetPotentialDMAllocation(alloc BiomassAllocation) error {
	if r.dmDemand.Total() == 0 && alloc.Total() > allocTolerance {
		return invariantErrorf("potential dry matter allocation of %g g/m2 but no dry matter was demanded", alloc.Total())
	}
	raw, _, err := r.computeActivity()
	if err != nil {
		return err
	}
	shares, err := distribute(alloc.Total(), raw)
	if err != nil {
		return err
	}
	for i, l := range r.Layers {
		l.PotentialDM = shares[i]
	}
	r.stage = PotentialAllocated
	return nil
}

// SetDMAllocation applies the arbitrator's final dry matter allocation
// [g m-2]: the structural and storage parts are each spread across the
// layers in proportion to water activity and added to the live pools.
// The activity weights are recomputed here rather than reused from the
// potential phase, because uptake may have changed in between.
func (r *Root) SetDMAllocation(alloc BiomassAllocation) error {
	if r.dmDemand.Total() == 0 && alloc.Total() > allocTolerance {
		return invariantErrorf("dry matter allocation of %g g/m2 but no dry matter was demanded", alloc.Total())
	}
	raw, _, err := r.computeActivity()
	if err != nil {
		return err
	}
	structural, err := distribute(alloc.Structural, raw)
	if err != nil {
		return err
	}
	storage, err := distribute(alloc.Storage, raw)
	if err != nil {
		return err
	}
	for i, l := range r.Layers {
		l.Live.StructuralWt += structural[i]
		l.Live.StorageWt += storage[i]
	}
	r.dmAllocated = alloc
	return nil
}

// SetNAllocation applies the arbitrator's final nitrogen allocation
// [g m-2]: the structural and storage parts are each spread across the
// layers in proportion to nitrogen activity and added to the live
// pools. Allocating more nitrogen than was demanded is a fatal
// inconsistency.
func (r *Root) SetNAllocation(alloc BiomassAllocation) error {
	if r.nDemand.Total() == 0 && alloc.Total() > allocTolerance {
		return invariantErrorf("nitrogen allocation of %g g/m2 but no nitrogen was demanded", alloc.Total())
	}
	if surplus := alloc.Total() - r.nDemand.Total(); surplus > nSurplusTolerance {
		return invariantErrorf("allocated nitrogen (%g g/m2) exceeds demand (%g g/m2) by %g",
			alloc.Total(), r.nDemand.Total(), surplus)
	}
	_, ran, err := r.computeActivity()
	if err != nil {
		return err
	}
	structural, err := distribute(alloc.Structural, ran)
	if err != nil {
		return err
	}
	storage, err := distribute(alloc.Storage, ran)
	if err != nil {
		return err
	}
	for i, l := range r.Layers {
		l.Live.StructuralN += structural[i]
		l.Live.StorageN += storage[i]
	}
	r.nAllocated = alloc
	r.stage = FinalAllocated
	return nil
}

// computeActivity recomputes the per-layer activity weights that
// spread allocations across the profile, filling the RAw and RAn
// fields of every layer and returning the two vectors. A layer's water
// activity is its water uptake per unit live weight, scaled by the
// layer thickness and by the proportion of the layer the roots occupy,
// floored at a tiny epsilon. Layers holding no live weight inherit the
// weights of the layer above (zero for the surface layer), and layers
// below the root front get zero.
func (r *Root) computeActivity() (raw, ran []float64, err error) {
	raw = make([]float64, len(r.Layers))
	ran = make([]float64, len(r.Layers))
	front, ok, err := r.frontLayer()
	if err != nil {
		return nil, nil, err
	}
	p := r.Zone.Profile
	for i, l := range r.Layers {
		if !ok || i > front {
			l.RAw, l.RAn = 0, 0
			continue
		}
		if wt := l.Live.Wt(); wt > 0 {
			prop := p.RootProportion(i, r.Depth)
			raw[i] = l.WaterUptake / wt * p.Thickness[i] * prop
			if raw[i] < waterActivityFloor {
				raw[i] = waterActivityFloor
			}
			ran[i] = (l.NO3Uptake + l.NH4Uptake) * KgPerHaToGramsPerM2 / wt * p.Thickness[i] * prop
			// TODO: this floor keeps the water activity value instead
			// of the nitrogen value computed above; confirm the
			// intended behavior against reference outputs before
			// changing it.
			ran[i] = math.Max(raw[i], nitrogenActivityFloor)
		} else if i > 0 {
			raw[i] = raw[i-1]
			ran[i] = ran[i-1]
		}
		l.RAw, l.RAn = raw[i], ran[i]
	}
	return raw, ran, nil
}

// distribute splits total across layers in proportion to the activity
// weights ra. Asking for a non-negligible total when all weights are
// zero is a fatal inconsistency, as is a per-layer sum that fails to
// reconcile with the total.
func distribute(total float64, ra []float64) ([]float64, error) {
	shares := make([]float64, len(ra))
	sum := floats.Sum(ra)
	if sum <= 0 {
		if total > allocTolerance {
			return nil, invariantErrorf("cannot allocate %g g/m2: total root activity is zero", total)
		}
		return shares, nil
	}
	for i, a := range ra {
		shares[i] = total * a / sum
	}
	if got := floats.Sum(shares); math.Abs(got-total) > allocTolerance {
		return nil, invariantErrorf("layer allocations sum to %g g/m2 but %g g/m2 was allocated", got, total)
	}
	return shares, nil
}
