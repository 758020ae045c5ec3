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

// Package rootzoneutil translates configuration into assembled root
// zone simulations and provides the command-line interface.
package rootzoneutil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/lnashier/viper"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/cropsim/rootzone"
	"github.com/cropsim/rootzone/arb/simplearb"
	"github.com/cropsim/rootzone/batch"
)

// Cfg holds configuration information.
var Cfg *viper.Viper

var options []struct {
	name, usage, shorthand string
	defaultVal             interface{}
	flagsets               []*pflag.FlagSet
}

func init() {
	// Options are the configuration options available to Rootzone.
	options = []struct {
		name, usage, shorthand string
		defaultVal             interface{}
		flagsets               []*pflag.FlagSet
	}{
		{
			name: "config",
			usage: `
              config specifies the configuration file location.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "OutputFile",
			usage: `
              OutputFile specifies the path to the simulation output file.
              The file type is determined by the extension: .csv for a flat
              day-by-layer table or .nc for NetCDF.`,
			defaultVal: "rootzone_output.csv",
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "LogFile",
			usage: `
              LogFile specifies the path to the simulation log file. If
              LogFile is left blank, the log file will be saved in the same
              location as the output file.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "OutputVariables",
			usage: `
              OutputVariables specifies which model variables should be
              included in the output file. Each output is an expression
              over the variables listed by the 'vars' command, for example
              "LiveWt * 10" or "min(NO3Supply, NH4Supply)".`,
			defaultVal: map[string]string{"Depth": "Depth", "LiveWt": "LiveWt", "LiveN": "LiveN"},
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "SnapshotFile",
			usage: `
              SnapshotFile specifies a path where the complete simulation
              state is saved when the run finishes. A later run can resume
              from it with RestartFile. If blank, no snapshot is saved.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "RestartFile",
			usage: `
              RestartFile specifies the path to a snapshot saved by an
              earlier run. The simulation resumes from the saved state
              instead of starting from bare soil. If blank, the simulation
              starts fresh.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "Days",
			usage: `
              Days is the number of days to simulate.`,
			shorthand:  "d",
			defaultVal: 150,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "Crop",
			usage: `
              Crop selects which crop parameterization of the soil profile
              the root system grows with.`,
			defaultVal: "wheat",
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), batchCmd.Flags()},
		},
		{
			name: "SowDay",
			usage: `
              SowDay is the simulation day the crop is sown on.`,
			defaultVal: 1,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "Sowing.Depth",
			usage: `
              Sowing.Depth is the sowing depth [mm]. Roots start in the
              layers this depth spans.`,
			defaultVal: 50.0,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "Sowing.Population",
			usage: `
              Sowing.Population is the plant population [plants m-2].`,
			defaultVal: 150.0,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "CutDay",
			usage: `
              CutDay is the simulation day the crop is cut on, removing
              biomass according to the Removal settings while the crop
              keeps growing. Zero means the crop is never cut.`,
			defaultVal: 0,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "HarvestDay",
			usage: `
              HarvestDay is the simulation day the crop is harvested on,
              removing biomass according to the Removal settings and ending
              the crop; whatever remains becomes soil organic matter. Zero
              means the crop is never harvested.`,
			defaultVal: 0,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "Removal.FractionToResidue",
			usage: `
              Removal.FractionToResidue is the fraction of root biomass
              sent to the soil surface residue pool when the crop is cut
              or harvested.`,
			defaultVal: 0.7,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "Removal.FractionRemoved",
			usage: `
              Removal.FractionRemoved is the fraction of root biomass
              carried off the field when the crop is cut or harvested.`,
			defaultVal: 0.0,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "Root.InitialDM",
			usage: `
              Root.InitialDM is the root dry matter present at sowing, per
              plant [g plant-1].`,
			defaultVal: 0.05,
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), batchCmd.Flags()},
		},
		{
			name: "Root.FrontVelocity",
			usage: `
              Root.FrontVelocity is the potential downward speed of the
              root front [mm d-1], before the temperature and soil
              exploration modifiers are applied.`,
			defaultVal: 5.0,
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), batchCmd.Flags()},
		},
		{
			name: "Root.MaxRootDepth",
			usage: `
              Root.MaxRootDepth caps the root front depth [mm]. Zero means
              the species itself imposes no cap and only the soil profile
              limits rooting depth.`,
			defaultVal: 0.0,
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), batchCmd.Flags()},
		},
		{
			name: "Root.SpecificRootLength",
			usage: `
              Root.SpecificRootLength converts root mass to root length
              [m g-1].`,
			defaultVal: 105.0,
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), batchCmd.Flags()},
		},
		{
			name: "Root.PartitionFraction",
			usage: `
              Root.PartitionFraction is the share of the whole-plant dry
              matter supply the root demands each day [0-1].`,
			defaultVal: 0.3,
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), batchCmd.Flags()},
		},
		{
			name: "Root.MinNConc",
			usage: `
              Root.MinNConc is the structural (minimum) nitrogen
              concentration of root tissue [g g-1].`,
			defaultVal: 0.01,
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), batchCmd.Flags()},
		},
		{
			name: "Root.MaxNConc",
			usage: `
              Root.MaxNConc is the maximum nitrogen concentration of root
              tissue [g g-1].`,
			defaultVal: 0.02,
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), batchCmd.Flags()},
		},
		{
			name: "Root.MaxDailyNUptake",
			usage: `
              Root.MaxDailyNUptake caps the nitrogen supply the root
              reports in one day, applied to nitrate and ammonium
              separately [kg ha-1 d-1]. Zero means uncapped.`,
			defaultVal: 6.0,
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), batchCmd.Flags()},
		},
		{
			name: "Root.TemperatureEffect.X",
			usage: `
              Root.TemperatureEffect.X lists the mean air temperature
              breakpoints [°C] of the front velocity modifier. The other
              root response tables (KLModifier, NO3Extraction,
              NH4Extraction, NDemandSwitch) are configured the same way,
              as <Name>.X and <Name>.Y arrays in the configuration file;
              an empty table selects the documented default.`,
			defaultVal: []float64{0, 26, 35},
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), batchCmd.Flags()},
		},
		{
			name: "Root.TemperatureEffect.Y",
			usage: `
              Root.TemperatureEffect.Y lists the front velocity multipliers
              matching the Root.TemperatureEffect.X breakpoints.`,
			defaultVal: []float64{0, 1, 1},
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), batchCmd.Flags()},
		},
		{
			name: "Root.SenescenceRate.X",
			usage: `
              Root.SenescenceRate.X lists the mean air temperature
              breakpoints [°C] of the daily senescence fraction.`,
			defaultVal: []float64{0},
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), batchCmd.Flags()},
		},
		{
			name: "Root.SenescenceRate.Y",
			usage: `
              Root.SenescenceRate.Y lists the daily fractions of live root
              biomass that die, matching the Root.SenescenceRate.X
              breakpoints.`,
			defaultVal: []float64{0.005},
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), batchCmd.Flags()},
		},
		{
			name: "Root.SWAF.X",
			usage: `
              Root.SWAF.X lists the relative soil water content breakpoints
              [0-1] of the soil water availability factor limiting nitrogen
              uptake.`,
			defaultVal: []float64{0, 1},
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), batchCmd.Flags()},
		},
		{
			name: "Root.SWAF.Y",
			usage: `
              Root.SWAF.Y lists the nitrogen availability multipliers
              matching the Root.SWAF.X breakpoints.`,
			defaultVal: []float64{0, 1},
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), batchCmd.Flags()},
		},
		{
			name: "Arbitrator.DMSupplyPerDay",
			usage: `
              Arbitrator.DMSupplyPerDay is the whole-plant dry matter
              supply available for allocation each day [g m-2 d-1].`,
			defaultVal: 2.0,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "Arbitrator.TranspirationDemand",
			usage: `
              Arbitrator.TranspirationDemand is the whole-plant water
              demand each day [mm d-1]. Water uptake never exceeds it.`,
			defaultVal: 4.0,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "Weather.MeanTemperature",
			usage: `
              Weather.MeanTemperature is the annual mean air temperature
              [°C] of the generated weather series.`,
			defaultVal: 15.0,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "Weather.Amplitude",
			usage: `
              Weather.Amplitude is the seasonal temperature amplitude [°C]
              of the generated weather series.`,
			defaultVal: 8.0,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "Weather.Phase",
			usage: `
              Weather.Phase shifts the seasonal temperature cycle [days].`,
			defaultVal: 100.0,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "Weather.Jitter",
			usage: `
              Weather.Jitter is the standard deviation of random day-to-day
              temperature variation [°C]. Zero generates a smooth series.`,
			defaultVal: 0.0,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "Weather.Seed",
			usage: `
              Weather.Seed seeds the weather generator's random number
              stream, making runs repeatable.`,
			defaultVal: 42,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "Weather.RainInterval",
			usage: `
              Weather.RainInterval is the number of days between rain
              events. Zero means it never rains.`,
			defaultVal: 5,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "Weather.RainAmount",
			usage: `
              Weather.RainAmount is the rainfall per rain event [mm].`,
			defaultVal: 12.0,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "Soil.Thickness",
			usage: `
              Soil.Thickness lists the thickness of each soil layer [mm],
              surface layer first. All other per-layer arrays must have the
              same number of values.`,
			defaultVal: []float64{150, 150, 300, 300, 300, 300, 300},
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), batchCmd.Flags()},
		},
		{
			name: "Soil.BD",
			usage: `
              Soil.BD lists the bulk density of each layer [g cm-3].`,
			defaultVal: []float64{1.36, 1.39, 1.42, 1.44, 1.46, 1.48, 1.5},
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), batchCmd.Flags()},
		},
		{
			name: "Soil.LL15",
			usage: `
              Soil.LL15 lists the 15-bar lower limit of plant-available
              water for each layer [mm mm-1].`,
			defaultVal: []float64{0.06, 0.08, 0.1, 0.11, 0.12, 0.13, 0.14},
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), batchCmd.Flags()},
		},
		{
			name: "Soil.DUL",
			usage: `
              Soil.DUL lists the drained upper limit of each layer
              [mm mm-1].`,
			defaultVal: []float64{0.26, 0.27, 0.29, 0.3, 0.3, 0.31, 0.31},
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), batchCmd.Flags()},
		},
		{
			name: "Soil.InitialRelativeWater",
			usage: `
              Soil.InitialRelativeWater fills the plant-available water
              range of every layer to the given fraction [0-1] at the start
              of the run.`,
			defaultVal: 0.75,
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), batchCmd.Flags()},
		},
		{
			name: "Soil.NO3",
			usage: `
              Soil.NO3 lists the initial nitrate content of each layer
              [kg ha-1].`,
			defaultVal: []float64{12, 8, 6, 4, 3, 2, 1.5},
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), batchCmd.Flags()},
		},
		{
			name: "Soil.NH4",
			usage: `
              Soil.NH4 lists the initial ammonium content of each layer
              [kg ha-1].`,
			defaultVal: []float64{2, 1.5, 1, 0.8, 0.5, 0.4, 0.3},
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), batchCmd.Flags()},
		},
		{
			name: "Soil.Crop.LL",
			usage: `
              Soil.Crop.LL lists the crop lower limit of water extraction
              for each layer [mm mm-1].`,
			defaultVal: []float64{0.07, 0.09, 0.11, 0.12, 0.13, 0.14, 0.15},
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), batchCmd.Flags()},
		},
		{
			name: "Soil.Crop.KL",
			usage: `
              Soil.Crop.KL lists the fraction of available water the crop
              can extract from each layer per day [d-1].`,
			defaultVal: []float64{0.08, 0.08, 0.07, 0.06, 0.05, 0.04, 0.03},
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), batchCmd.Flags()},
		},
		{
			name: "Soil.Crop.XF",
			usage: `
              Soil.Crop.XF lists the root exploration factor of each layer
              [0-1]: a multiplier on the root front velocity expressing
              mechanical resistance. Layers with XF = 0 cannot be
              penetrated.`,
			defaultVal: []float64{1, 1, 1, 1, 1, 0.8, 0.6},
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), batchCmd.Flags()},
		},
		{
			name: "Soil.MineralizationRate",
			usage: `
              Soil.MineralizationRate is the fraction of each layer's fresh
              organic matter nitrogen converted to nitrate per day.`,
			defaultVal: 0.02,
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), batchCmd.Flags()},
		},
		{
			name: "Batch.ScenarioFile",
			usage: `
              Batch.ScenarioFile specifies the TOML file listing the
              scenarios to run, one [[scenario]] table per ensemble
              member.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{batchCmd.Flags()},
		},
		{
			name: "Batch.OutputFile",
			usage: `
              Batch.OutputFile specifies the path to the CSV file the
              per-scenario results are written to.`,
			defaultVal: "rootzone_batch.csv",
			flagsets:   []*pflag.FlagSet{batchCmd.Flags()},
		},
		{
			name: "Batch.Workers",
			usage: `
              Batch.Workers is the number of scenarios to run concurrently.
              Zero means one per available CPU.`,
			defaultVal: 0,
			flagsets:   []*pflag.FlagSet{batchCmd.Flags()},
		},
		{
			name: "Batch.CacheEntries",
			usage: `
              Batch.CacheEntries is the number of scenario results held in
              the in-memory cache. Repeated scenarios are served from the
              cache instead of being simulated again.`,
			defaultVal: 100,
			flagsets:   []*pflag.FlagSet{batchCmd.Flags()},
		},
		{
			name: "Batch.Progress",
			usage: `
              Batch.Progress draws a progress bar while the ensemble runs.`,
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{batchCmd.Flags()},
		},
	}

	Cfg = viper.New()

	// Set the prefix for configuration environment variables.
	Cfg.SetEnvPrefix("ROOTZONE")

	for _, option := range options {
		for i, set := range option.flagsets {
			if i != 0 { // We don't want to create the same flag twice.
				set.AddFlag(option.flagsets[0].Lookup(option.name))
				continue
			}
			switch option.defaultVal.(type) {
			case string:
				if option.shorthand == "" {
					set.String(option.name, option.defaultVal.(string), option.usage)
				} else {
					set.StringP(option.name, option.shorthand, option.defaultVal.(string), option.usage)
				}
			case []string:
				if option.shorthand == "" {
					set.StringSlice(option.name, option.defaultVal.([]string), option.usage)
				} else {
					set.StringSliceP(option.name, option.shorthand, option.defaultVal.([]string), option.usage)
				}
			case bool:
				if option.shorthand == "" {
					set.Bool(option.name, option.defaultVal.(bool), option.usage)
				} else {
					set.BoolP(option.name, option.shorthand, option.defaultVal.(bool), option.usage)
				}
			case int:
				if option.shorthand == "" {
					set.Int(option.name, option.defaultVal.(int), option.usage)
				} else {
					set.IntP(option.name, option.shorthand, option.defaultVal.(int), option.usage)
				}
			case float64:
				if option.shorthand == "" {
					set.Float64(option.name, option.defaultVal.(float64), option.usage)
				} else {
					set.Float64P(option.name, option.shorthand, option.defaultVal.(float64), option.usage)
				}
			case []float64, map[string]string:
				// Encoded as JSON so the value survives a trip through a
				// string-typed flag or environment variable.
				b := bytes.NewBuffer(nil)
				e := json.NewEncoder(b)
				e.Encode(option.defaultVal)
				s := string(b.Bytes())
				if option.shorthand == "" {
					set.String(option.name, s, option.usage)
				} else {
					set.StringP(option.name, option.shorthand, s, option.usage)
				}
			default:
				panic("invalid argument type")
			}
			Cfg.BindPFlag(option.name, set.Lookup(option.name))
		}
	}
}

func init() {
	// Link the commands together.
	Root.AddCommand(versionCmd)
	Root.AddCommand(runCmd)
	Root.AddCommand(varsCmd)
	Root.AddCommand(batchCmd)
}

// setConfig finds and reads in the configuration file, if there is one.
func setConfig() error {
	if cfgpath := Cfg.GetString("config"); cfgpath != "" {
		Cfg.SetConfigFile(cfgpath)
		if err := Cfg.ReadInConfig(); err != nil {
			return fmt.Errorf("rootzone: problem reading configuration file: %v", err)
		}
	}
	return nil
}

// Root is the main command.
var Root = &cobra.Command{
	Use:   "rootzone",
	Short: "A root growth and resource uptake model.",
	Long: `Rootzone simulates the daily growth of a crop root system through a layered
soil column and the water and nitrogen it extracts along the way.
Use the subcommands specified below to access the model functionality.

Refer to the subcommand documentation for configuration options and default
settings. Configuration can be changed by using a configuration file (and
providing the path to the file using the --config flag), by using command-line
arguments, or by setting environment variables in the format 'ROOTZONE_var'
where 'var' is the name of the variable to be set. Refer to
https://github.com/spf13/viper for additional configuration information.`,
	DisableAutoGenTag: true,
	PersistentPreRunE: func(*cobra.Command, []string) error { return setConfig() },
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  "version prints the version number of this version of Rootzone.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("Rootzone v%s\n", rootzone.Version)
	},
	DisableAutoGenTag: true,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a simulation.",
	Long: `run simulates a growing season day by day: the crop is sown, the root
front advances through the soil profile, biomass and nitrogen are allocated
to layers, and water and mineral nitrogen are taken up, until the configured
number of days have passed. Daily values of the configured output expressions
are recorded and written to OutputFile when the run finishes.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		profile, err := soilProfile(Cfg)
		if err != nil {
			return err
		}
		soil, err := soilState(Cfg, profile)
		if err != nil {
			return err
		}
		params, err := rootParams(Cfg)
		if err != nil {
			return err
		}
		events, err := runEvents(Cfg)
		if err != nil {
			return err
		}
		outputFile, err := checkOutputFile(Cfg.GetString("OutputFile"))
		if err != nil {
			return err
		}
		outputVars, err := checkOutputVars(GetStringMapString("OutputVariables", Cfg))
		if err != nil {
			return err
		}
		days := Cfg.GetInt("Days")
		return Run(
			cmd,
			checkLogFile(Cfg.GetString("LogFile"), outputFile),
			outputFile,
			outputVars,
			days,
			events,
			profile,
			soil,
			Cfg.GetString("Crop"),
			params,
			simplearb.Arbitrator{
				DMSupplyPerDay:      Cfg.GetFloat64("Arbitrator.DMSupplyPerDay"),
				TranspirationDemand: Cfg.GetFloat64("Arbitrator.TranspirationDemand"),
			},
			weather(Cfg, days),
			Cfg.GetFloat64("Soil.MineralizationRate"),
			os.ExpandEnv(Cfg.GetString("SnapshotFile")),
			os.ExpandEnv(Cfg.GetString("RestartFile")))
	},
	DisableAutoGenTag: true,
}

// varsCmd lists the model variables usable in output expressions.
var varsCmd = &cobra.Command{
	Use:   "vars",
	Short: "List the available output variables",
	Long: `vars prints the name, description, and units of every model variable
that OutputVariables expressions can refer to.`,
	Run: func(cmd *cobra.Command, args []string) {
		names, descriptions, units := (&rootzone.Simulation{}).OutputOptions()
		for i, n := range names {
			cmd.Printf("%-22s %s [%s]\n", n, descriptions[i], units[i])
		}
	},
	DisableAutoGenTag: true,
}

// batchCmd runs an ensemble of simulations.
var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Run an ensemble of simulations.",
	Long: `batch runs every scenario in Batch.ScenarioFile, several at a time,
against a shared soil profile and root parameterization. Scenario results
are cached, so repeated scenarios are only simulated once. Per-scenario
results are written to Batch.OutputFile and summary statistics are printed
when the ensemble finishes.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		profile, err := soilProfile(Cfg)
		if err != nil {
			return err
		}
		params, err := rootParams(Cfg)
		if err != nil {
			return err
		}
		water, err := initialWater(Cfg, profile)
		if err != nil {
			return err
		}
		no3, err := floatSlice("Soil.NO3", Cfg)
		if err != nil {
			return err
		}
		nh4, err := floatSlice("Soil.NH4", Cfg)
		if err != nil {
			return err
		}
		scenarios, err := batch.LoadScenarios(os.ExpandEnv(Cfg.GetString("Batch.ScenarioFile")))
		if err != nil {
			return err
		}
		outputFile, err := checkOutputFile(Cfg.GetString("Batch.OutputFile"))
		if err != nil {
			return err
		}
		c := &batch.Config{
			Scenarios:          scenarios,
			Profile:            profile,
			Crop:               Cfg.GetString("Crop"),
			Params:             params,
			InitialWater:       water,
			InitialNO3:         no3,
			InitialNH4:         nh4,
			MineralizationRate: Cfg.GetFloat64("Soil.MineralizationRate"),
			Workers:            Cfg.GetInt("Batch.Workers"),
			CacheEntries:       Cfg.GetInt("Batch.CacheEntries"),
			ShowProgress:       Cfg.GetBool("Batch.Progress"),
		}
		results, err := c.Run(context.Background())
		if err != nil {
			return err
		}
		f, err := os.Create(outputFile)
		if err != nil {
			return fmt.Errorf("rootzone: problem creating batch output file: %v", err)
		}
		defer f.Close()
		if err := batch.WriteResults(f, results); err != nil {
			return err
		}
		summary := batch.Summarize(results)
		cmd.Printf("Scenarios: %d\n", summary.Scenarios)
		cmd.Printf("Final live biomass: mean %.2f g m-2 (stdev %.2f)\n",
			summary.MeanFinalLiveWt, summary.StdevFinalLiveWt)
		cmd.Printf("Final root depth: mean %.1f mm, max %.1f mm\n",
			summary.MeanFinalDepth, summary.MaxFinalDepth)
		if summary.Scenarios > 1 {
			cmd.Printf("Biomass response to dry matter supply: slope=%.3f intercept=%.3f r2=%.3f\n",
				summary.Slope, summary.Intercept, summary.RSquared)
		}
		return nil
	},
	DisableAutoGenTag: true,
}
