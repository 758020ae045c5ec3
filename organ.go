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

import "errors"

// ErrUptakeNotSet is returned when water or nitrogen uptake is
// requested before the arbitrator has recorded any uptake.
var ErrUptakeNotSet = errors.New("rootzone: no uptake has been recorded by the arbitrator")

// Stage is the root organ's position in its lifecycle and in the daily
// demand/allocation cycle.
type Stage int

const (
	// Dormant means no live root system exists: before sowing, or
	// after the crop has ended.
	Dormant Stage = iota

	// DemandComputed through FinalAllocated track the organ through
	// the daily arbitration cycle.
	DemandComputed
	PotentialAllocated
	SupplyReported
	FinalAllocated

	// Grown is the resting stage of a live root system between daily
	// cycles.
	Grown

	// Cleared is the terminal stage of a season: all state has been
	// zeroed and the remaining biomass flushed to the soil organic
	// matter pool.
	Cleared
)

var stageNames = []string{
	Dormant:            "Dormant",
	DemandComputed:     "DemandComputed",
	PotentialAllocated: "PotentialAllocated",
	SupplyReported:     "SupplyReported",
	FinalAllocated:     "FinalAllocated",
	Grown:              "Grown",
	Cleared:            "Cleared",
}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return "Unknown"
	}
	return stageNames[s]
}

// Zone couples a soil profile with its live state: the handle through
// which the organ sees the soil it grows in. It is resolved once, when
// the organ is created.
type Zone struct {
	Profile *SoilProfile
	Soil    *SoilState
}

// RootParams holds the species parameters of the root organ. The
// Function fields are optional modifiers; leaving one nil selects the
// documented default behavior.
type RootParams struct {
	// InitialDM is the dry matter of the root system at sowing, per
	// plant [g plant-1].
	InitialDM float64

	// FrontVelocity is the potential downward speed of the root front
	// [mm d-1].
	FrontVelocity float64

	// MaxRootDepth caps the root front depth [mm]. Zero means the
	// species itself imposes no cap.
	MaxRootDepth float64

	// SpecificRootLength converts root mass to root length [m g-1].
	SpecificRootLength float64

	// PartitionFraction is the share of the whole-plant dry matter
	// supply demanded by the root [0-1]. Zero selects the default of
	// 1 (the root demands the whole supply).
	PartitionFraction float64

	// MinNConc and MaxNConc are the structural (minimum) and maximum
	// nitrogen concentrations of root tissue [g g-1].
	MinNConc float64
	MaxNConc float64

	// MaxDailyNUptake caps the nitrogen supply the root reports in one
	// day, applied to each mineral form separately [kg ha-1 d-1].
	// Zero means uncapped.
	MaxDailyNUptake float64

	// TemperatureEffect scales the front velocity as a function of
	// mean air temperature [°C]. Default: 1.
	TemperatureEffect Function

	// SenescenceRate is the daily fraction of live biomass that dies,
	// as a function of mean air temperature [°C]. Default: 0.
	SenescenceRate Function

	// KLModifier scales the water extraction rate as a function of
	// root length density [mm mm-3]. Default: 1.
	KLModifier Function

	// NO3Extraction and NH4Extraction give the fraction of each
	// mineral nitrogen form reachable by the root as a function of
	// root length density [mm mm-3]. Default: 1.
	NO3Extraction Function
	NH4Extraction Function

	// SWAF is the soil water availability factor limiting nitrogen
	// uptake, as a function of relative water content in [0, 1].
	// Default: 1.
	SWAF Function

	// NDemandSwitch scales nitrogen demand as a function of the
	// simulation day; a value of zero turns demand off. Default: 1.
	NDemandSwitch Function
}

func (p *RootParams) validate() error {
	if p.InitialDM <= 0 {
		return configErrorf("root parameters: InitialDM must be positive but is %g", p.InitialDM)
	}
	if p.FrontVelocity < 0 {
		return configErrorf("root parameters: FrontVelocity must not be negative but is %g", p.FrontVelocity)
	}
	if p.MaxNConc <= 0 {
		return configErrorf("root parameters: MaxNConc must be positive but is %g", p.MaxNConc)
	}
	if p.MinNConc < 0 || p.MinNConc > p.MaxNConc {
		return configErrorf("root parameters: MinNConc (%g) must be between 0 and MaxNConc (%g)", p.MinNConc, p.MaxNConc)
	}
	if p.SpecificRootLength < 0 {
		return configErrorf("root parameters: SpecificRootLength must not be negative but is %g", p.SpecificRootLength)
	}
	if p.PartitionFraction < 0 || p.PartitionFraction > 1 {
		return configErrorf("root parameters: PartitionFraction must be between 0 and 1 but is %g", p.PartitionFraction)
	}
	return nil
}

// partitionFraction resolves the configured partition fraction,
// substituting the default of 1 when it is unset.
func (p *RootParams) partitionFraction() float64 {
	if p.PartitionFraction == 0 {
		return 1
	}
	return p.PartitionFraction
}

// RootLayer is the root system's state within one soil layer. The
// biomass pool is in organ units [g m-2]; supplies and uptakes follow
// the soil bookkeeping: [mm] for water and [kg ha-1] for nitrogen.
// Everything except Live is transient: recomputed or rewritten every
// simulated day, never carried across days.
type RootLayer struct {
	// Live is the living root biomass in the layer.
	Live Pool

	WaterSupply float64 `desc:"Water extractable today" units:"mm"`
	NO3Supply   float64 `desc:"Nitrate extractable today" units:"kg ha-1"`
	NH4Supply   float64 `desc:"Ammonium extractable today" units:"kg ha-1"`

	WaterUptake float64 `desc:"Water uptake decided by the arbitrator" units:"mm"`
	NO3Uptake   float64 `desc:"Nitrate uptake decided by the arbitrator" units:"kg ha-1"`
	NH4Uptake   float64 `desc:"Ammonium uptake decided by the arbitrator" units:"kg ha-1"`

	PotentialDM float64 `desc:"Potential dry matter allocation" units:"g m-2"`

	StructuralNDemand float64 `desc:"Structural nitrogen demand" units:"g m-2"`
	StorageNDemand    float64 `desc:"Storage nitrogen demand" units:"g m-2"`

	RAw float64 `desc:"Root water activity weight" units:"dimensionless"`
	RAn float64 `desc:"Root nitrogen activity weight" units:"dimensionless"`
}

// clearTransients zeroes everything the daily cycle rewrites.
func (l *RootLayer) clearTransients() {
	live := l.Live
	*l = RootLayer{Live: live}
}

// Root is the root organ: the layered root system of a single plant
// stand growing in a single zone. All per-layer arrays are sized to
// the zone's layer count when the organ is created and never resized.
type Root struct {
	// Zone is the soil the roots grow in.
	Zone *Zone

	// Crop is the soil parameterization for the crop being grown.
	Crop *SoilCrop

	// Params holds the species constants.
	Params *RootParams

	// Layers is the per-layer root state, surface first. Its length
	// equals the profile layer count for the life of the organ.
	Layers []*RootLayer

	// Depth is the root front depth [mm]. It never decreases while
	// the plant is alive.
	Depth float64

	// SowingDepth is the seed placement depth of the current crop
	// [mm].
	SowingDepth float64

	// Population is the established plant density [plants m-2].
	Population float64

	stage Stage
	fom   OrganicMatterSink

	// Demand and allocation bookkeeping for the current day. These
	// are convenience aggregates: each is recomputable from the
	// per-layer vectors and is refreshed by the phase that computes
	// it.
	dmDemand    BiomassDemand
	nDemand     BiomassDemand
	dmAllocated BiomassAllocation
	nAllocated  BiomassAllocation

	waterUptakeSet, nUptakeSet bool
}

// NewRoot creates the root organ for the named crop. zones lists the
// zones the root system may occupy; the model handles exactly one root
// zone, so passing more than one is a configuration error. Dead root
// material is reported to fom.
func NewRoot(zones []*Zone, crop string, params *RootParams, fom OrganicMatterSink) (*Root, error) {
	if len(zones) != 1 {
		return nil, configErrorf("the root model can only handle one root zone at present, but %d were configured", len(zones))
	}
	z := zones[0]
	if err := z.Profile.Validate(); err != nil {
		return nil, err
	}
	c, err := z.Profile.Crop(crop)
	if err != nil {
		return nil, err
	}
	if err := params.validate(); err != nil {
		return nil, err
	}
	r := &Root{
		Zone:   z,
		Crop:   c,
		Params: params,
		Layers: make([]*RootLayer, z.Profile.NLayers()),
		fom:    fom,
	}
	for i := range r.Layers {
		r.Layers[i] = new(RootLayer)
	}
	return r, nil
}

// NLayers returns the number of soil layers the organ is sized for.
func (r *Root) NLayers() int { return len(r.Layers) }

// Stage returns the organ's position in its lifecycle.
func (r *Root) Stage() Stage { return r.stage }

// Alive reports whether a live root system exists.
func (r *Root) Alive() bool { return r.stage != Dormant && r.stage != Cleared }

// Sowing is the sowing event consumed by the root organ.
type Sowing struct {
	// Depth is the seed placement depth [mm].
	Depth float64

	// Population is the established plant density [plants m-2].
	Population float64
}

// Sow initializes the root system for a newly sown crop: the root
// front starts at the sowing depth and the initial dry matter is
// spread evenly across the layers above it, seeded at the maximum
// nitrogen concentration.
func (r *Root) Sow(sow Sowing) error {
	if r.Alive() {
		return configErrorf("sowing into a live crop; the previous crop must end first")
	}
	if sow.Depth <= 0 {
		return configErrorf("sowing depth must be positive but is %g mm", sow.Depth)
	}
	if sow.Depth > r.Zone.Profile.TotalDepth() {
		return configErrorf("sowing depth %g mm is beyond the bottom of the soil profile (%g mm)",
			sow.Depth, r.Zone.Profile.TotalDepth())
	}
	if sow.Population <= 0 {
		return configErrorf("plant population must be positive but is %g", sow.Population)
	}

	r.reset()
	r.Depth = sow.Depth
	r.SowingDepth = sow.Depth
	r.Population = sow.Population

	// Seed the initial dry matter into every layer whose top is above
	// the seed.
	seeded := 0
	for i := range r.Layers {
		if r.Zone.Profile.DepthToTop(i) < sow.Depth {
			seeded++
		}
	}
	wt := r.Params.InitialDM * sow.Population / float64(seeded)
	for i := 0; i < seeded; i++ {
		r.Layers[i].Live.StructuralWt = wt
		r.Layers[i].Live.StructuralN = wt * r.Params.MaxNConc
	}
	r.stage = Grown
	return nil
}

// reset returns the organ to its pre-sowing state without reporting
// anything to the soil.
func (r *Root) reset() {
	for _, l := range r.Layers {
		*l = RootLayer{}
	}
	r.Depth = 0
	r.SowingDepth = 0
	r.Population = 0
	r.dmDemand = BiomassDemand{}
	r.nDemand = BiomassDemand{}
	r.dmAllocated = BiomassAllocation{}
	r.nAllocated = BiomassAllocation{}
	r.waterUptakeSet = false
	r.nUptakeSet = false
}

// BiomassRemoval describes a harvest, cut, or graze event. The
// fractions apply to the whole root system; whatever is neither
// removed nor returned as residue stays alive.
type BiomassRemoval struct {
	// FractionToResidue is returned to the soil organic matter pool.
	FractionToResidue float64

	// FractionRemoved leaves the system entirely.
	FractionRemoved float64
}

func (b BiomassRemoval) validate() error {
	if b.FractionToResidue < 0 || b.FractionToResidue > 1 {
		return configErrorf("removal: FractionToResidue must be between 0 and 1 but is %g", b.FractionToResidue)
	}
	if b.FractionRemoved < 0 || b.FractionRemoved > 1 {
		return configErrorf("removal: FractionRemoved must be between 0 and 1 but is %g", b.FractionRemoved)
	}
	if sum := b.FractionToResidue + b.FractionRemoved; sum > 1 {
		return configErrorf("removal: FractionToResidue (%g) and FractionRemoved (%g) sum to %g, which is more than 1",
			b.FractionToResidue, b.FractionRemoved, sum)
	}
	return nil
}

// RemoveBiomass processes a cut or graze event: the residue fraction
// of every layer's live biomass is reported to the soil organic matter
// pool, the removed fraction leaves the system, and the remainder
// stays alive.
func (r *Root) RemoveBiomass(rm BiomassRemoval) error {
	if err := rm.validate(); err != nil {
		return err
	}
	if !r.Alive() {
		return nil
	}
	fom := make([]FOMRecord, len(r.Layers))
	keep := 1 - rm.FractionToResidue - rm.FractionRemoved
	for i, l := range r.Layers {
		residue := l.Live.Scaled(rm.FractionToResidue)
		fom[i] = NewFOMRecord(residue.Wt(), residue.N())
		l.Live.Scale(keep)
	}
	return r.fom.AddFOM(fom)
}

// Harvest processes a harvest event: the removal fractions are applied
// and then the crop ends.
func (r *Root) Harvest(rm BiomassRemoval) error {
	if err := r.RemoveBiomass(rm); err != nil {
		return err
	}
	return r.EndCrop()
}

// EndCrop ends the season: all remaining biomass is flushed to the
// soil organic matter pool and the organ state is cleared.
func (r *Root) EndCrop() error {
	if !r.Alive() {
		return nil
	}
	fom := make([]FOMRecord, len(r.Layers))
	for i, l := range r.Layers {
		fom[i] = NewFOMRecord(l.Live.Wt(), l.Live.N())
	}
	if err := r.fom.AddFOM(fom); err != nil {
		return err
	}
	r.reset()
	r.stage = Cleared
	return nil
}

// SetWaterUptake records the arbitrator's per-layer water uptake for
// the day [mm].
func (r *Root) SetWaterUptake(uptake []float64) error {
	if len(uptake) != len(r.Layers) {
		return invariantErrorf("water uptake has %d values but the root is sized for %d layers", len(uptake), len(r.Layers))
	}
	for i, l := range r.Layers {
		l.WaterUptake = uptake[i]
	}
	r.waterUptakeSet = true
	return nil
}

// WaterUptake returns the per-layer water uptake most recently
// recorded by the arbitrator [mm]. It fails with ErrUptakeNotSet if no
// uptake has been recorded since the organ was (re)started.
func (r *Root) WaterUptake() ([]float64, error) {
	if !r.waterUptakeSet {
		return nil, ErrUptakeNotSet
	}
	u := make([]float64, len(r.Layers))
	for i, l := range r.Layers {
		u[i] = l.WaterUptake
	}
	return u, nil
}

// SetNitrogenUptake records the arbitrator's per-layer nitrate and
// ammonium uptake for the day [kg ha-1].
func (r *Root) SetNitrogenUptake(no3, nh4 []float64) error {
	if len(no3) != len(r.Layers) || len(nh4) != len(r.Layers) {
		return invariantErrorf("nitrogen uptake has %d NO3 and %d NH4 values but the root is sized for %d layers",
			len(no3), len(nh4), len(r.Layers))
	}
	for i, l := range r.Layers {
		l.NO3Uptake = no3[i]
		l.NH4Uptake = nh4[i]
	}
	r.nUptakeSet = true
	return nil
}

// NitrogenUptake returns the per-layer nitrate and ammonium uptake
// most recently recorded by the arbitrator [kg ha-1]. It fails with
// ErrUptakeNotSet if no uptake has been recorded since the organ was
// (re)started.
func (r *Root) NitrogenUptake() (no3, nh4 []float64, err error) {
	if !r.nUptakeSet {
		return nil, nil, ErrUptakeNotSet
	}
	no3 = make([]float64, len(r.Layers))
	nh4 = make([]float64, len(r.Layers))
	for i, l := range r.Layers {
		no3[i] = l.NO3Uptake
		nh4[i] = l.NH4Uptake
	}
	return no3, nh4, nil
}

// TotalWt returns the live dry weight of the whole root system
// [g m-2].
func (r *Root) TotalWt() float64 {
	var sum float64
	for _, l := range r.Layers {
		sum += l.Live.Wt()
	}
	return sum
}

// TotalN returns the live nitrogen content of the whole root system
// [g m-2].
func (r *Root) TotalN() float64 {
	var sum float64
	for _, l := range r.Layers {
		sum += l.Live.N()
	}
	return sum
}

// TotalLength returns the length of the live root system [m m-2].
func (r *Root) TotalLength() float64 {
	return r.TotalWt() * r.Params.SpecificRootLength
}

// LengthDensity returns the live root length density of layer i
// [mm mm-3].
func (r *Root) LengthDensity(i int) float64 {
	return r.Layers[i].Live.Wt() * r.Params.SpecificRootLength * 1.e-3 / r.Zone.Profile.Thickness[i]
}

// TotalWaterUptake returns today's whole-profile water uptake [mm].
func (r *Root) TotalWaterUptake() float64 {
	var sum float64
	for _, l := range r.Layers {
		sum += l.WaterUptake
	}
	return sum
}

// TotalNitrogenUptake returns today's whole-profile nitrogen uptake,
// both mineral forms combined [kg ha-1].
func (r *Root) TotalNitrogenUptake() float64 {
	var sum float64
	for _, l := range r.Layers {
		sum += l.NO3Uptake + l.NH4Uptake
	}
	return sum
}

// Demands returns the most recently computed dry matter and nitrogen
// demands [g m-2].
func (r *Root) Demands() (dm, n BiomassDemand) {
	return r.dmDemand, r.nDemand
}

// Allocations returns the most recently applied dry matter and
// nitrogen allocations [g m-2].
func (r *Root) Allocations() (dm, n BiomassAllocation) {
	return r.dmAllocated, r.nAllocated
}

// frontLayer returns the index of the layer containing the root front,
// and whether any layer is occupied at all.
func (r *Root) frontLayer() (int, bool, error) {
	if r.Depth <= 0 {
		return 0, false, nil
	}
	i, err := r.Zone.Profile.LayerIndexOf(r.Depth)
	if err != nil {
		return 0, false, err
	}
	return i, true, nil
}
