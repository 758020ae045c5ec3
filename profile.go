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
	"fmt"
	"strings"
)

// ConfigurationError reports a problem with the simulation setup, such
// as a missing soil-crop parameterization or removal fractions that
// sum to more than one. It is fatal: the simulation cannot be started
// (or the event cannot be processed) until the configuration is fixed.
type ConfigurationError struct {
	msg string
}

func (e *ConfigurationError) Error() string { return e.msg }

// configErrorf creates a ConfigurationError from a format string,
// prefixing the message with the package name.
func configErrorf(format string, args ...interface{}) *ConfigurationError {
	return &ConfigurationError{msg: "rootzone: " + fmt.Sprintf(format, args...)}
}

// SoilProfile describes the layered soil column a root system grows
// into. The layer count is fixed for the life of the profile: every
// per-layer array here and in the structs derived from it must have
// exactly NLayers elements.
type SoilProfile struct {
	// Thickness is the depth spanned by each layer [mm], surface first.
	Thickness []float64

	// BD is the bulk density of each layer [g cm-3].
	BD []float64

	// LL15 is the 15-bar lower limit of plant-available water for each
	// layer [mm mm-1].
	LL15 []float64

	// DUL is the drained upper limit of each layer [mm mm-1].
	DUL []float64

	// Crops holds the crop-specific parameterizations available for
	// this soil.
	Crops []SoilCrop
}

// SoilCrop holds the parameters describing how a particular crop can
// extract resources from a particular soil.
type SoilCrop struct {
	// Name identifies the crop this parameterization applies to.
	Name string

	// LL is the lower limit of water extraction for each layer [mm mm-1].
	LL []float64

	// KL is the fraction of available water extractable per day for
	// each layer [d-1].
	KL []float64

	// XF is the root exploration factor for each layer [0-1]: a
	// multiplier on the root front velocity expressing mechanical
	// resistance. Layers with XF = 0 cannot be penetrated.
	XF []float64
}

// NLayers returns the number of layers in the profile.
func (p *SoilProfile) NLayers() int { return len(p.Thickness) }

// Validate checks the internal consistency of the profile.
func (p *SoilProfile) Validate() error {
	n := p.NLayers()
	if n == 0 {
		return configErrorf("soil profile has no layers")
	}
	for name, arr := range map[string][]float64{
		"BD":   p.BD,
		"LL15": p.LL15,
		"DUL":  p.DUL,
	} {
		if len(arr) != n {
			return configErrorf("soil profile: %s has %d values but the profile has %d layers", name, len(arr), n)
		}
	}
	for i, dz := range p.Thickness {
		if dz <= 0 {
			return configErrorf("soil profile: layer %d thickness must be positive but is %g", i, dz)
		}
	}
	for i := range p.Thickness {
		if p.DUL[i] < p.LL15[i] {
			return configErrorf("soil profile: layer %d drained upper limit (%g) is below the lower limit (%g)", i, p.DUL[i], p.LL15[i])
		}
	}
	for _, c := range p.Crops {
		for name, arr := range map[string][]float64{
			"LL": c.LL,
			"KL": c.KL,
			"XF": c.XF,
		} {
			if len(arr) != n {
				return configErrorf("soil crop %s: %s has %d values but the profile has %d layers", c.Name, name, len(arr), n)
			}
		}
	}
	return nil
}

// Crop returns the parameterization for the named crop. The comparison
// is case-insensitive. A missing crop is a ConfigurationError.
func (p *SoilProfile) Crop(name string) (*SoilCrop, error) {
	for i := range p.Crops {
		if strings.EqualFold(p.Crops[i].Name, name) {
			return &p.Crops[i], nil
		}
	}
	return nil, configErrorf("no soil parameterization found for crop %q", name)
}

// TotalDepth returns the depth of the bottom of the deepest layer [mm].
func (p *SoilProfile) TotalDepth() float64 {
	var d float64
	for _, dz := range p.Thickness {
		d += dz
	}
	return d
}

// DepthToTop returns the depth of the top of layer i [mm].
func (p *SoilProfile) DepthToTop(i int) float64 {
	var d float64
	for j := 0; j < i; j++ {
		d += p.Thickness[j]
	}
	return d
}

// DepthToBottom returns the depth of the bottom of layer i [mm].
func (p *SoilProfile) DepthToBottom(i int) float64 {
	return p.DepthToTop(i) + p.Thickness[i]
}

// LayerIndexOf returns the index of the layer containing depth [mm].
// A depth at a layer boundary belongs to the layer above it, except
// that depth 0 belongs to the surface layer. Depths beyond the bottom
// of the profile cannot be resolved and report an invariant violation.
func (p *SoilProfile) LayerIndexOf(depth float64) (int, error) {
	if depth <= 0 {
		return 0, nil
	}
	var bottom float64
	for i, dz := range p.Thickness {
		bottom += dz
		if depth <= bottom {
			return i, nil
		}
	}
	return 0, invariantErrorf("depth %g mm is beyond the bottom of the soil profile (%g mm)", depth, bottom)
}

// ProportionThroughLayer returns the fraction of layer i's thickness
// that lies above depth, between 0 (depth at or above the top of the
// layer) and 1 (depth at or below the bottom).
func (p *SoilProfile) ProportionThroughLayer(i int, depth float64) float64 {
	top := p.DepthToTop(i)
	frac := (depth - top) / p.Thickness[i]
	if frac < 0 {
		return 0
	}
	if frac > 1 {
		return 1
	}
	return frac
}

// RootProportion returns the fraction of layer i occupied by roots
// when the root front is at rootDepth [mm]: 1 for layers entirely
// above the front, 0 for layers entirely below it, and the fractional
// occupancy for the layer containing it.
func (p *SoilProfile) RootProportion(i int, rootDepth float64) float64 {
	return p.ProportionThroughLayer(i, rootDepth)
}

// MaxPenetrableDepth returns the deepest root front the crop can reach
// in this soil: the cumulative thickness of the layers it can
// penetrate (XF > 0) [mm].
func (p *SoilProfile) MaxPenetrableDepth(c *SoilCrop) float64 {
	var d float64
	for i, dz := range p.Thickness {
		if c.XF[i] > 0 {
			d += dz
		}
	}
	return d
}

// WaterCapacity returns the plant-available water a layer can hold
// between the crop lower limit and the drained upper limit [mm].
func (p *SoilProfile) WaterCapacity(c *SoilCrop, i int) float64 {
	return (p.DUL[i] - c.LL[i]) * p.Thickness[i]
}
