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

// Pool holds the biomass of one soil layer, split into a structural
// part (the minimum required to hold the tissue together) and a
// storage part (surplus above the structural requirement).
type Pool struct {
	StructuralWt float64 `desc:"Structural dry weight" units:"g m-2"`
	StorageWt    float64 `desc:"Storage (non-structural) dry weight" units:"g m-2"`
	StructuralN  float64 `desc:"Nitrogen in the structural pool" units:"g m-2"`
	StorageN     float64 `desc:"Nitrogen in the storage pool" units:"g m-2"`
}

// Wt returns the total dry weight of the pool [g m-2].
func (p *Pool) Wt() float64 { return p.StructuralWt + p.StorageWt }

// N returns the total nitrogen content of the pool [g m-2].
func (p *Pool) N() float64 { return p.StructuralN + p.StorageN }

// Add accumulates the contents of q into the pool.
func (p *Pool) Add(q Pool) {
	p.StructuralWt += q.StructuralWt
	p.StorageWt += q.StorageWt
	p.StructuralN += q.StructuralN
	p.StorageN += q.StorageN
}

// Scale multiplies every component of the pool by f.
func (p *Pool) Scale(f float64) {
	p.StructuralWt *= f
	p.StorageWt *= f
	p.StructuralN *= f
	p.StorageN *= f
}

// Scaled returns a copy of the pool with every component multiplied
// by f, leaving the receiver unchanged.
func (p *Pool) Scaled(f float64) Pool {
	q := *p
	q.Scale(f)
	return q
}

// Clear zeroes the pool.
func (p *Pool) Clear() { *p = Pool{} }

// BiomassDemand is a dry-matter or nitrogen demand split into its
// structural and storage parts [g m-2].
type BiomassDemand struct {
	Structural float64
	Storage    float64
}

// Total returns the summed demand.
func (d BiomassDemand) Total() float64 { return d.Structural + d.Storage }

// BiomassAllocation is a dry-matter or nitrogen allocation decided by
// the arbitrator, split into structural and storage parts [g m-2].
type BiomassAllocation struct {
	Structural float64
	Storage    float64
}

// Total returns the summed allocation.
func (a BiomassAllocation) Total() float64 { return a.Structural + a.Storage }
