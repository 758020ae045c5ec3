/*
Copyright © 2019 the Rootzone authors.
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

// Package batch runs ensembles of root zone simulations against a
// shared soil column and root parameterization, caching results so
// repeated scenarios are only simulated once, and summarizes how root
// growth responds across the ensemble.
package batch

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"runtime"
	"strconv"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/GaryBoone/GoStats/stats"
	"github.com/ctessum/requestcache"
	"github.com/gosuri/uiprogress"
	"github.com/sirupsen/logrus"

	"github.com/cropsim/rootzone"
	"github.com/cropsim/rootzone/arb/simplearb"
	"github.com/cropsim/rootzone/internal/hash"
)

// Scenario describes one member of an ensemble: the management,
// whole-plant resource context, and weather of a single run.
type Scenario struct {
	// Name identifies the scenario in logs and results. Scenarios
	// without a name are numbered in file order.
	Name string

	// Days is the number of days to simulate.
	Days int

	// SowDay is the day the crop is sown on.
	SowDay int

	// SowingDepth is the sowing depth [mm].
	SowingDepth float64

	// Population is the plant population [plants m-2].
	Population float64

	// DMSupply is the whole-plant dry matter supply available for
	// allocation each day [g m-2 d-1].
	DMSupply float64

	// Transpiration is the whole-plant water demand each day [mm d-1].
	Transpiration float64

	// MeanTemperature [°C], Amplitude [°C], Phase [days], and Jitter
	// [°C] shape the generated temperature series, and Seed makes it
	// repeatable.
	MeanTemperature float64
	Amplitude       float64
	Phase           float64
	Jitter          float64
	Seed            int64

	// RainInterval [days] and RainAmount [mm] give the rainfall
	// pattern.
	RainInterval int
	RainAmount   float64
}

// scenarioFile is the on-disk layout: a list of [[scenario]] tables.
type scenarioFile struct {
	Scenario []Scenario
}

// LoadScenarios reads an ensemble definition from the TOML file at
// path.
func LoadScenarios(path string) ([]Scenario, error) {
	var f scenarioFile
	if _, err := toml.DecodeFile(path, &f); err != nil {
		return nil, fmt.Errorf("batch: reading scenario file %s: %v", path, err)
	}
	if len(f.Scenario) == 0 {
		return nil, fmt.Errorf("batch: scenario file %s defines no scenarios", path)
	}
	for i := range f.Scenario {
		if f.Scenario[i].Name == "" {
			f.Scenario[i].Name = fmt.Sprintf("scenario%d", i+1)
		}
	}
	return f.Scenario, nil
}

// Config holds the fixed environment shared by every scenario in an
// ensemble and the machinery to run them.
type Config struct {
	// Scenarios are the ensemble members to run.
	Scenarios []Scenario

	// Profile is the soil column shared by all scenarios.
	Profile *rootzone.SoilProfile

	// Crop selects the soil crop parameterization.
	Crop string

	// Params are the root organ parameters shared by all scenarios.
	Params *rootzone.RootParams

	// InitialWater [mm], InitialNO3 and InitialNH4 [kg ha-1] give the
	// starting soil pools, one value per layer.
	InitialWater, InitialNO3, InitialNH4 []float64

	// MineralizationRate is the daily fraction of fresh organic matter
	// nitrogen converted to nitrate.
	MineralizationRate float64

	// Workers is the number of scenarios to simulate concurrently.
	// Zero means one per available CPU.
	Workers int

	// CacheEntries is the number of scenario results held in memory.
	// Zero means 100.
	CacheEntries int

	// ShowProgress draws a progress bar on standard output while the
	// ensemble runs.
	ShowProgress bool

	// Log receives progress information. The default is the standard
	// logger.
	Log logrus.FieldLogger

	cache     *requestcache.Cache
	cacheOnce sync.Once
}

// Result summarizes one finished scenario.
type Result struct {
	// Name identifies the scenario.
	Name string

	// Days and DMSupply echo the scenario inputs.
	Days     int
	DMSupply float64

	// FinalDepth is the root front depth when the run ended [mm].
	FinalDepth float64

	// FinalLiveWt and FinalLiveN are the live root biomass [g m-2] and
	// its nitrogen content [g m-2] when the run ended.
	FinalLiveWt float64
	FinalLiveN  float64

	// TotalWaterUptake is the water extracted over the whole run [mm].
	TotalWaterUptake float64

	// TotalNUptake is the mineral nitrogen extracted over the whole
	// run [kg ha-1].
	TotalNUptake float64
}

func (c *Config) workers() int {
	if c.Workers > 0 {
		return c.Workers
	}
	return runtime.GOMAXPROCS(-1)
}

func (c *Config) logger() logrus.FieldLogger {
	if c.Log != nil {
		return c.Log
	}
	return logrus.StandardLogger()
}

// Run simulates every scenario, at most Workers at a time, and returns
// one result per scenario, in scenario order. Identical scenarios are
// simulated once and served from the cache afterwards.
func (c *Config) Run(ctx context.Context) ([]Result, error) {
	c.cacheOnce.Do(func() {
		entries := c.CacheEntries
		if entries <= 0 {
			entries = 100
		}
		c.cache = requestcache.NewCache(c.process, c.workers(),
			requestcache.Deduplicate(), requestcache.Memory(entries))
	})

	var bar *uiprogress.Bar
	if c.ShowProgress {
		uiprogress.Start()
		bar = uiprogress.AddBar(len(c.Scenarios)).AppendCompleted().PrependElapsed()
		bar.PrependFunc(func(b *uiprogress.Bar) string { return "scenarios" })
	}

	results := make([]Result, len(c.Scenarios))
	errs := make([]error, len(c.Scenarios))
	var wg sync.WaitGroup
	for i := range c.Scenarios {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sc := c.Scenarios[i]
			req := c.cache.NewRequest(ctx, sc, hash.Hash(sc))
			result, err := req.Result()
			if err != nil {
				errs[i] = err
			} else {
				results[i] = result.(Result)
				c.logger().WithFields(logrus.Fields{
					"scenario": results[i].Name,
					"depth":    results[i].FinalDepth,
					"live_wt":  results[i].FinalLiveWt,
				}).Info("batch scenario finished")
			}
			if bar != nil {
				bar.Incr()
			}
		}(i)
	}
	wg.Wait()
	if c.ShowProgress {
		uiprogress.Stop()
	}
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return results, nil
}

// process fulfils the requestcache.ProcessFunc interface.
func (c *Config) process(ctx context.Context, request interface{}) (interface{}, error) {
	return c.runScenario(request.(Scenario))
}

// runScenario assembles and runs the simulation for one ensemble
// member.
func (c *Config) runScenario(sc Scenario) (Result, error) {
	soil, err := rootzone.NewSoilState(c.Profile, c.InitialWater, c.InitialNO3, c.InitialNH4)
	if err != nil {
		return Result{}, err
	}
	root, err := rootzone.NewRoot([]*rootzone.Zone{{Profile: c.Profile, Soil: soil}},
		c.Crop, c.Params, soil)
	if err != nil {
		return Result{}, err
	}

	res := Result{Name: sc.Name, Days: sc.Days, DMSupply: sc.DMSupply}
	tally := func(s *rootzone.Simulation) error {
		res.TotalWaterUptake += s.Root.TotalWaterUptake()
		res.TotalNUptake += s.Root.TotalNitrogenUptake()
		return nil
	}

	runFuncs := []rootzone.SimulationManipulator{
		rootzone.SowOn(sc.SowDay, rootzone.Sowing{Depth: sc.SowingDepth, Population: sc.Population}),
	}
	runFuncs = append(runFuncs, rootzone.DailyCycle(simplearb.Arbitrator{
		DMSupplyPerDay:      sc.DMSupply,
		TranspirationDemand: sc.Transpiration,
	}, c.MineralizationRate)...)
	runFuncs = append(runFuncs, tally, rootzone.EndAfter(sc.Days))

	s := &rootzone.Simulation{
		RunFuncs: runFuncs,
		Profile:  c.Profile,
		Soil:     soil,
		Root:     root,
		Weather: rootzone.NewSinusoidWeather(sc.Days, sc.MeanTemperature, sc.Amplitude,
			sc.Phase, sc.Jitter, sc.Seed, sc.RainInterval, sc.RainAmount),
	}
	if err := s.Run(); err != nil {
		return Result{}, fmt.Errorf("batch: scenario %s: %v", sc.Name, err)
	}

	res.FinalDepth = root.Depth
	res.FinalLiveWt = root.TotalWt()
	res.FinalLiveN = root.TotalN()
	return res, nil
}

// Summary aggregates the results of an ensemble.
type Summary struct {
	// Scenarios is the number of results summarized.
	Scenarios int

	// MeanFinalLiveWt and StdevFinalLiveWt describe the spread of
	// final live root biomass [g m-2] across the ensemble.
	MeanFinalLiveWt  float64
	StdevFinalLiveWt float64

	// MeanFinalDepth and MaxFinalDepth describe the final root front
	// depths [mm] across the ensemble.
	MeanFinalDepth float64
	MaxFinalDepth  float64

	// Slope, Intercept, and RSquared describe the linear response of
	// final live biomass to the whole-plant dry matter supply.
	Slope     float64
	Intercept float64
	RSquared  float64
}

// Summarize computes ensemble statistics over a batch's results.
func Summarize(results []Result) Summary {
	s := Summary{Scenarios: len(results)}
	if len(results) == 0 {
		return s
	}
	wts := make([]float64, len(results))
	depths := make([]float64, len(results))
	supplies := make([]float64, len(results))
	for i, r := range results {
		wts[i] = r.FinalLiveWt
		depths[i] = r.FinalDepth
		supplies[i] = r.DMSupply
	}
	s.MeanFinalLiveWt = stats.StatsMean(wts)
	s.MeanFinalDepth = stats.StatsMean(depths)
	s.MaxFinalDepth = stats.StatsMax(depths)
	if len(results) > 1 {
		s.StdevFinalLiveWt = stats.StatsSampleStandardDeviation(wts)
		s.Slope, s.Intercept, s.RSquared, _, _, _ = stats.LinearRegression(supplies, wts)
	}
	return s
}

// WriteResults writes one CSV row per scenario result to w.
func WriteResults(w io.Writer, results []Result) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"name", "days", "dm_supply", "final_depth",
		"final_live_wt", "final_live_n", "total_water_uptake", "total_n_uptake"}); err != nil {
		return fmt.Errorf("batch: writing results: %v", err)
	}
	for _, r := range results {
		row := []string{
			r.Name,
			strconv.Itoa(r.Days),
			strconv.FormatFloat(r.DMSupply, 'g', -1, 64),
			strconv.FormatFloat(r.FinalDepth, 'g', -1, 64),
			strconv.FormatFloat(r.FinalLiveWt, 'g', -1, 64),
			strconv.FormatFloat(r.FinalLiveN, 'g', -1, 64),
			strconv.FormatFloat(r.TotalWaterUptake, 'g', -1, 64),
			strconv.FormatFloat(r.TotalNUptake, 'g', -1, 64),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("batch: writing results: %v", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
