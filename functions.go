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

import "sort"

// A Function maps a scalar driver (for example mean temperature, root
// length density, or relative water content) to a dependent value such
// as a dimensionless multiplier or a daily rate. Implementations must
// be stateless: the same input always gives the same output.
type Function interface {
	ValueAt(x float64) float64
}

// Constant is a Function that ignores its driver.
type Constant float64

// ValueAt returns the constant value.
func (c Constant) ValueAt(_ float64) float64 { return float64(c) }

// PiecewiseLinear is a Function that interpolates linearly between
// sorted breakpoints and holds the end values constant outside the
// covered range.
type PiecewiseLinear struct {
	x, y []float64
}

// NewPiecewiseLinear creates a piecewise linear Function from paired
// breakpoint coordinates. x must be strictly increasing and the same
// length as y.
func NewPiecewiseLinear(x, y []float64) (*PiecewiseLinear, error) {
	if len(x) != len(y) {
		return nil, configErrorf("piecewise function: %d x values but %d y values", len(x), len(y))
	}
	if len(x) == 0 {
		return nil, configErrorf("piecewise function: no breakpoints")
	}
	for i := 1; i < len(x); i++ {
		if x[i] <= x[i-1] {
			return nil, configErrorf("piecewise function: x values must be strictly increasing, but x[%d]=%g and x[%d]=%g",
				i-1, x[i-1], i, x[i])
		}
	}
	f := &PiecewiseLinear{
		x: make([]float64, len(x)),
		y: make([]float64, len(y)),
	}
	copy(f.x, x)
	copy(f.y, y)
	return f, nil
}

// ValueAt returns the interpolated value at x.
func (f *PiecewiseLinear) ValueAt(x float64) float64 {
	n := len(f.x)
	if x <= f.x[0] {
		return f.y[0]
	}
	if x >= f.x[n-1] {
		return f.y[n-1]
	}
	// Smallest i with f.x[i] >= x; the bounds checks above
	// guarantee 1 <= i <= n-1.
	i := sort.SearchFloat64s(f.x, x)
	frac := (x - f.x[i-1]) / (f.x[i] - f.x[i-1])
	return f.y[i-1] + frac*(f.y[i]-f.y[i-1])
}

// FunctionSpec is the serialized form of an empirical response
// function: paired breakpoint arrays. Empty arrays mean the function
// is not configured and the documented default applies.
type FunctionSpec struct {
	X []float64
	Y []float64
}

// Function builds the configured Function. It returns nil (function
// not configured) when both arrays are empty.
func (s FunctionSpec) Function() (Function, error) {
	if len(s.X) == 0 && len(s.Y) == 0 {
		return nil, nil
	}
	return NewPiecewiseLinear(s.X, s.Y)
}

// valueOrDefault evaluates an optional Function at x, substituting def
// when none is configured.
func valueOrDefault(f Function, x, def float64) float64 {
	if f == nil {
		return def
	}
	return f.ValueAt(x)
}
