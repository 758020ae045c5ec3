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

package rootzoneutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/lnashier/viper"
	"github.com/spf13/cast"

	"github.com/cropsim/rootzone"
)

// checkOutputVars removes end lines and expands environment
// variables in the output variables.
func checkOutputVars(vars map[string]string) (map[string]string, error) {
	if len(vars) == 0 {
		return nil, fmt.Errorf("there are no variables specified for output. Please fill in " +
			"the OutputVariables configuration and try again.")
	}
	for k, v := range vars {
		v = strings.Replace(v, "\r\n", " ", -1)
		v = strings.Replace(v, "\n", " ", -1)
		vars[os.ExpandEnv(k)] = os.ExpandEnv(v)
	}
	return vars, nil
}

// checkOutputFile makes sure that the output file is specified and its
// directory exists, and expands any environment variables.
func checkOutputFile(f string) (string, error) {
	if f == "" {
		return "", fmt.Errorf(`you need to specify an output file configuration variable (for example: OutputFile="output.csv"`)
	}
	f = os.ExpandEnv(f)
	outdir := filepath.Dir(f)
	if _, err := os.Stat(outdir); err != nil {
		return f, fmt.Errorf("rootzone: the output file directory doesn't exist: %v", err)
	}
	return f, nil
}

// checkLogFile fills in a default value for the log file path if one isn't
// specified.
func checkLogFile(logFile, outputFile string) string {
	if logFile == "" {
		logFile = strings.TrimSuffix(outputFile, filepath.Ext(outputFile)) + ".log"
	}
	return logFile
}

// soilProfile unmarshals a viper configuration for the soil column,
// holding a single crop parameterization for the configured crop.
func soilProfile(cfg *viper.Viper) (*rootzone.SoilProfile, error) {
	thickness, err := floatSlice("Soil.Thickness", cfg)
	if err != nil {
		return nil, err
	}
	bd, err := floatSlice("Soil.BD", cfg)
	if err != nil {
		return nil, err
	}
	ll15, err := floatSlice("Soil.LL15", cfg)
	if err != nil {
		return nil, err
	}
	dul, err := floatSlice("Soil.DUL", cfg)
	if err != nil {
		return nil, err
	}
	ll, err := floatSlice("Soil.Crop.LL", cfg)
	if err != nil {
		return nil, err
	}
	kl, err := floatSlice("Soil.Crop.KL", cfg)
	if err != nil {
		return nil, err
	}
	xf, err := floatSlice("Soil.Crop.XF", cfg)
	if err != nil {
		return nil, err
	}
	p := &rootzone.SoilProfile{
		Thickness: thickness,
		BD:        bd,
		LL15:      ll15,
		DUL:       dul,
		Crops: []rootzone.SoilCrop{{
			Name: cfg.GetString("Crop"),
			LL:   ll,
			KL:   kl,
			XF:   xf,
		}},
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// initialWater computes the starting water content of each layer [mm]
// by filling the plant-available range to Soil.InitialRelativeWater.
func initialWater(cfg *viper.Viper, p *rootzone.SoilProfile) ([]float64, error) {
	f := cfg.GetFloat64("Soil.InitialRelativeWater")
	if f < 0 || f > 1 {
		return nil, fmt.Errorf("rootzone: Soil.InitialRelativeWater must be between 0 and 1 but is %g", f)
	}
	w := make([]float64, p.NLayers())
	for i := range w {
		w[i] = (p.LL15[i] + f*(p.DUL[i]-p.LL15[i])) * p.Thickness[i]
	}
	return w, nil
}

// soilState unmarshals a viper configuration for the initial water and
// nitrogen pools of the column.
func soilState(cfg *viper.Viper, p *rootzone.SoilProfile) (*rootzone.SoilState, error) {
	water, err := initialWater(cfg, p)
	if err != nil {
		return nil, err
	}
	no3, err := floatSlice("Soil.NO3", cfg)
	if err != nil {
		return nil, err
	}
	nh4, err := floatSlice("Soil.NH4", cfg)
	if err != nil {
		return nil, err
	}
	return rootzone.NewSoilState(p, water, no3, nh4)
}

// rootParams unmarshals a viper configuration for the root organ.
func rootParams(cfg *viper.Viper) (*rootzone.RootParams, error) {
	p := &rootzone.RootParams{
		InitialDM:          cfg.GetFloat64("Root.InitialDM"),
		FrontVelocity:      cfg.GetFloat64("Root.FrontVelocity"),
		MaxRootDepth:       cfg.GetFloat64("Root.MaxRootDepth"),
		SpecificRootLength: cfg.GetFloat64("Root.SpecificRootLength"),
		PartitionFraction:  cfg.GetFloat64("Root.PartitionFraction"),
		MinNConc:           cfg.GetFloat64("Root.MinNConc"),
		MaxNConc:           cfg.GetFloat64("Root.MaxNConc"),
		MaxDailyNUptake:    cfg.GetFloat64("Root.MaxDailyNUptake"),
	}
	var err error
	if p.TemperatureEffect, err = functionSpec("Root.TemperatureEffect", cfg); err != nil {
		return nil, err
	}
	if p.SenescenceRate, err = functionSpec("Root.SenescenceRate", cfg); err != nil {
		return nil, err
	}
	if p.KLModifier, err = functionSpec("Root.KLModifier", cfg); err != nil {
		return nil, err
	}
	if p.NO3Extraction, err = functionSpec("Root.NO3Extraction", cfg); err != nil {
		return nil, err
	}
	if p.NH4Extraction, err = functionSpec("Root.NH4Extraction", cfg); err != nil {
		return nil, err
	}
	if p.SWAF, err = functionSpec("Root.SWAF", cfg); err != nil {
		return nil, err
	}
	if p.NDemandSwitch, err = functionSpec("Root.NDemandSwitch", cfg); err != nil {
		return nil, err
	}
	return p, nil
}

// functionSpec unmarshals the response table stored under name.X and
// name.Y, returning nil when the table is not configured.
func functionSpec(name string, cfg *viper.Viper) (rootzone.Function, error) {
	x, err := floatSlice(name+".X", cfg)
	if err != nil {
		return nil, err
	}
	y, err := floatSlice(name+".Y", cfg)
	if err != nil {
		return nil, err
	}
	f, err := rootzone.FunctionSpec{X: x, Y: y}.Function()
	if err != nil {
		return nil, fmt.Errorf("rootzone: parsing configuration variable %s: %v", name, err)
	}
	return f, nil
}

// weather builds the daily weather drivers from a viper configuration.
func weather(cfg *viper.Viper, days int) *rootzone.WeatherSeries {
	return rootzone.NewSinusoidWeather(
		days,
		cfg.GetFloat64("Weather.MeanTemperature"),
		cfg.GetFloat64("Weather.Amplitude"),
		cfg.GetFloat64("Weather.Phase"),
		cfg.GetFloat64("Weather.Jitter"),
		int64(cfg.GetInt("Weather.Seed")),
		cfg.GetInt("Weather.RainInterval"),
		cfg.GetFloat64("Weather.RainAmount"))
}

// runEvents unmarshals the management calendar for a single run.
func runEvents(cfg *viper.Viper) (Events, error) {
	e := Events{
		SowDay: cfg.GetInt("SowDay"),
		Sowing: rootzone.Sowing{
			Depth:      cfg.GetFloat64("Sowing.Depth"),
			Population: cfg.GetFloat64("Sowing.Population"),
		},
		CutDay:     cfg.GetInt("CutDay"),
		HarvestDay: cfg.GetInt("HarvestDay"),
		Removal: rootzone.BiomassRemoval{
			FractionToResidue: cfg.GetFloat64("Removal.FractionToResidue"),
			FractionRemoved:   cfg.GetFloat64("Removal.FractionRemoved"),
		},
	}
	if e.SowDay < 1 {
		return e, fmt.Errorf("rootzone: SowDay must be at least 1 but is %d", e.SowDay)
	}
	if e.CutDay != 0 && e.CutDay == e.HarvestDay {
		return e, fmt.Errorf("rootzone: CutDay and HarvestDay are both set to day %d", e.CutDay)
	}
	return e, nil
}

// floatSlice reads the named configuration variable as a []float64.
func floatSlice(name string, cfg *viper.Viper) ([]float64, error) {
	v, err := toFloat64SliceE(cfg.Get(name))
	if err != nil {
		return nil, fmt.Errorf("rootzone: parsing configuration variable %s: %v", name, err)
	}
	return v, nil
}

func toFloat64SliceE(s interface{}) ([]float64, error) {
	switch v := s.(type) {
	case nil:
		return nil, nil
	case []float64:
		return v, nil
	case []interface{}:
		o := make([]float64, len(v))
		for i, val := range v {
			f, err := cast.ToFloat64E(val)
			if err != nil {
				return nil, err
			}
			o[i] = f
		}
		return o, nil
	case string:
		if v == "" {
			return nil, nil
		}
		var o []float64
		if err := json.Unmarshal([]byte(v), &o); err != nil {
			return nil, err
		}
		return o, nil
	default:
		return nil, fmt.Errorf("cannot convert %#v to []float64", s)
	}
}

// GetStringMapString returns a map[string]string from a viper configuration,
// accounting for the fact that it might be a json object if it was set
// from a command line argument.
func GetStringMapString(varName string, cfg *viper.Viper) map[string]string {
	i := cfg.Get(varName)
	switch i.(type) {
	case map[string]string:
		return i.(map[string]string)
	case map[string]interface{}:
		return cast.ToStringMapString(i)
	case string:
		b := bytes.NewBuffer(([]byte)(i.(string)))
		d := json.NewDecoder(b)
		o := make(map[string]string)
		if err := d.Decode(&o); err != nil {
			panic(err)
		}
		return o
	default:
		panic(fmt.Errorf("invalid type for getStringMapString variable %s: %#v", varName, i))
	}
}
