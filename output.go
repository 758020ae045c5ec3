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
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strconv"

	"github.com/Knetic/govaluate"
	"github.com/ctessum/cdf"
	"github.com/ctessum/sparse"
)

// derivedOutputs lists the output variables that are computed from
// model state rather than read directly from a layer field.
var derivedOutputs = []struct{ name, desc, units string }{
	{"Day", "Simulation day", "d"},
	{"Stage", "Root organ stage index", "dimensionless"},
	{"Depth", "Root front depth", "mm"},
	{"Thickness", "Soil layer thickness", "mm"},
	{"LiveWt", "Live root dry weight", "g m-2"},
	{"LiveN", "Live root nitrogen", "g m-2"},
	{"StructuralWt", "Live structural dry weight", "g m-2"},
	{"StorageWt", "Live storage dry weight", "g m-2"},
	{"StructuralN", "Live structural nitrogen", "g m-2"},
	{"StorageN", "Live storage nitrogen", "g m-2"},
	{"RootLengthDensity", "Live root length density", "mm mm-3"},
	{"RootProportion", "Proportion of the layer occupied by roots", "dimensionless"},
}

// OutputOptions returns the names of the model variables that output
// expressions may refer to, along with their descriptions and units.
// The list combines the derived variables above with every tagged
// field of the root and soil layer types.
func (s *Simulation) OutputOptions() (names, descriptions, units []string) {
	for _, v := range derivedOutputs {
		names = append(names, v.name)
		descriptions = append(descriptions, v.desc)
		units = append(units, v.units)
	}
	for _, t := range []reflect.Type{
		reflect.TypeOf(RootLayer{}),
		reflect.TypeOf(SoilLayer{}),
	} {
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if desc := f.Tag.Get("desc"); desc != "" {
				names = append(names, f.Name)
				descriptions = append(descriptions, desc)
				units = append(units, f.Tag.Get("units"))
			}
		}
	}
	return names, descriptions, units
}

// modelValue resolves the model variable name for layer i, reporting
// whether the name is known.
func modelValue(s *Simulation, name string, i int) (float64, bool) {
	switch name {
	case "Day":
		return float64(s.Day), true
	case "Stage":
		return float64(s.Root.Stage()), true
	case "Depth":
		return s.Root.Depth, true
	case "Thickness":
		return s.Profile.Thickness[i], true
	case "LiveWt":
		return s.Root.Layers[i].Live.Wt(), true
	case "LiveN":
		return s.Root.Layers[i].Live.N(), true
	case "StructuralWt":
		return s.Root.Layers[i].Live.StructuralWt, true
	case "StorageWt":
		return s.Root.Layers[i].Live.StorageWt, true
	case "StructuralN":
		return s.Root.Layers[i].Live.StructuralN, true
	case "StorageN":
		return s.Root.Layers[i].Live.StorageN, true
	case "RootLengthDensity":
		return s.Root.LengthDensity(i), true
	case "RootProportion":
		return s.Profile.RootProportion(i, s.Root.Depth), true
	}
	for _, v := range []reflect.Value{
		reflect.ValueOf(*s.Root.Layers[i]),
		reflect.ValueOf(*s.Soil.Layers[i]),
	} {
		f, ok := v.Type().FieldByName(name)
		if ok && f.Tag.Get("desc") != "" && f.Type.Kind() == reflect.Float64 {
			return v.FieldByName(name).Float(), true
		}
	}
	return 0, false
}

// A Recorder samples the simulated state once per day and writes the
// result out at the end of a run.
//
// variables maps the names of the variables to be written to
// expressions that define how they are calculated. The expressions can
// use the model variables reported by OutputOptions, user-defined
// functions, and the default functions.
type Recorder struct {
	variables   map[string]string
	names       []string
	expressions map[string]*govaluate.EvaluableExpression
	data        map[string]*sparse.DenseArray

	days     int
	recorded int
	nlayers  int
}

// NewRecorder creates a Recorder sized for a run of the given number
// of days, and adds a set of default expression functions:
//
// 'exp(x)' and 'log(x)', the exponential function and the natural
// logarithm.
//
// 'min(x, y)' and 'max(x, y)', the smaller and larger of two values.
func NewRecorder(days int, variables map[string]string, functions map[string]govaluate.ExpressionFunction) (*Recorder, error) {
	if days <= 0 {
		return nil, configErrorf("output: the recorder must be sized for at least 1 day, not %d", days)
	}
	one := func(name string, f func(x float64) float64) govaluate.ExpressionFunction {
		return func(arg ...interface{}) (interface{}, error) {
			if len(arg) != 1 {
				return nil, fmt.Errorf("rootzone: got %d arguments for function %q, but needs 1", len(arg), name)
			}
			return f(arg[0].(float64)), nil
		}
	}
	two := func(name string, f func(x, y float64) float64) govaluate.ExpressionFunction {
		return func(arg ...interface{}) (interface{}, error) {
			if len(arg) != 2 {
				return nil, fmt.Errorf("rootzone: got %d arguments for function %q, but needs 2", len(arg), name)
			}
			return f(arg[0].(float64), arg[1].(float64)), nil
		}
	}
	funcs := map[string]govaluate.ExpressionFunction{
		"exp": one("exp", math.Exp),
		"log": one("log", math.Log),
		"min": two("min", math.Min),
		"max": two("max", math.Max),
	}
	for name, f := range functions {
		funcs[name] = f
	}

	r := &Recorder{
		variables:   variables,
		expressions: make(map[string]*govaluate.EvaluableExpression),
		days:        days,
	}
	for name, val := range variables {
		expression, err := govaluate.NewEvaluableExpressionWithFunctions(val, funcs)
		if err != nil {
			return nil, configErrorf("output variable %s: %v", name, err)
		}
		r.expressions[name] = expression
		r.names = append(r.names, name)
	}
	sort.Strings(r.names)
	return r, nil
}

// CheckOutputVars returns an initialization phase that verifies every
// output expression refers only to known model variables, and sizes
// the recording arrays.
func (r *Recorder) CheckOutputVars() SimulationManipulator {
	return func(s *Simulation) error {
		for _, name := range r.names {
			for _, v := range r.expressions[name].Vars() {
				if _, ok := modelValue(s, v, 0); !ok {
					return configErrorf("output variable %s: unknown model variable %q", name, v)
				}
			}
		}
		r.nlayers = s.Profile.NLayers()
		r.data = make(map[string]*sparse.DenseArray)
		for _, name := range r.names {
			r.data[name] = sparse.ZerosDense(r.days, r.nlayers)
		}
		return nil
	}
}

// Record returns the phase that evaluates every output expression for
// every layer and stores the day's results.
func (r *Recorder) Record() SimulationManipulator {
	return func(s *Simulation) error {
		if s.Day > r.days {
			return configErrorf("output: day %d is beyond the %d days the recorder was sized for", s.Day, r.days)
		}
		for _, name := range r.names {
			expression := r.expressions[name]
			vars := expression.Vars()
			for i := 0; i < r.nlayers; i++ {
				params := make(map[string]interface{}, len(vars))
				for _, v := range vars {
					val, _ := modelValue(s, v, i)
					params[v] = val
				}
				result, err := expression.Evaluate(params)
				if err != nil {
					return fmt.Errorf("rootzone: output variable %s on day %d: %v", name, s.Day, err)
				}
				val, ok := result.(float64)
				if !ok {
					return configErrorf("output variable %s: expression yields %T, not a number", name, result)
				}
				r.data[name].Set(val, s.Day-1, i)
			}
		}
		if s.Day > r.recorded {
			r.recorded = s.Day
		}
		return nil
	}
}

// WriteCSV writes the recorded days to w in long form: one row per day
// and layer, one column per output variable.
func (r *Recorder) WriteCSV(w io.Writer) error {
	if r.recorded == 0 {
		return configErrorf("output: no days have been recorded")
	}
	cw := csv.NewWriter(w)
	cw.Write(append([]string{"day", "layer"}, r.names...))
	row := make([]string, 2+len(r.names))
	for d := 0; d < r.recorded; d++ {
		for i := 0; i < r.nlayers; i++ {
			row[0] = strconv.Itoa(d + 1)
			row[1] = strconv.Itoa(i)
			for j, name := range r.names {
				row[2+j] = strconv.FormatFloat(r.data[name].Get(d, i), 'g', -1, 64)
			}
			cw.Write(row)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteNetCDF writes the recorded days to rw as a NetCDF file holding
// one day × layer variable per output variable, annotated with the
// expression that produced it.
func (r *Recorder) WriteNetCDF(rw cdf.ReaderWriterAt) error {
	if r.recorded == 0 {
		return configErrorf("output: no days have been recorded")
	}
	h := cdf.NewHeader([]string{"day", "layer"}, []int{r.recorded, r.nlayers})
	for _, name := range r.names {
		h.AddVariable(name, []string{"day", "layer"}, []float64{0.})
		h.AddAttribute(name, "expression", r.variables[name])
	}
	h.Define()
	for _, err := range h.Check() {
		return fmt.Errorf("rootzone: creating output file: %v", err)
	}
	f, err := cdf.Create(rw, h)
	if err != nil {
		return fmt.Errorf("rootzone: creating output file: %v", err)
	}
	for _, name := range r.names {
		w := f.Writer(name, []int{0, 0}, []int{r.recorded, r.nlayers})
		if _, err := w.Write(r.data[name].Elements[:r.recorded*r.nlayers]); err != nil {
			return fmt.Errorf("rootzone: writing output variable %s: %v", name, err)
		}
	}
	return nil
}

// Output returns a cleanup phase that writes everything recorded to
// fileName. The format is chosen by the file extension: .csv or .nc.
func (r *Recorder) Output(fileName string) SimulationManipulator {
	return func(s *Simulation) error {
		f, err := os.Create(fileName)
		if err != nil {
			return fmt.Errorf("rootzone: creating output file: %v", err)
		}
		defer f.Close()
		switch ext := filepath.Ext(fileName); ext {
		case ".csv":
			return r.WriteCSV(f)
		case ".nc":
			return r.WriteNetCDF(f)
		default:
			return configErrorf("output file %s: unsupported extension %q; .csv and .nc are supported", fileName, ext)
		}
	}
}
