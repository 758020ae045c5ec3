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
	"fmt"
	"io"
	"log"
	"os"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/cropsim/rootzone"
)

// Events gives the calendar of management operations for a run. A day
// of zero means the operation never happens.
type Events struct {
	// SowDay is the day the crop is sown on.
	SowDay int

	// Sowing gives the sowing depth and plant population.
	Sowing rootzone.Sowing

	// CutDay is the day root biomass is removed while the crop keeps
	// growing.
	CutDay int

	// HarvestDay is the day the crop is harvested and ended.
	HarvestDay int

	// Removal applies to both cutting and harvesting.
	Removal rootzone.BiomassRemoval
}

// Run assembles and runs a root zone simulation.
//
// CobraCommand is the cobra.Command instance where Run is called from.
// It is needed to direct log output to the caller's terminal.
//
// LogFile is the path to the desired logfile location. It can include
// environment variables.
//
// OutputFile is the path to the desired output file location; the
// extension selects the format (.csv or .nc).
//
// OutputVariables specifies which model variables should be included in
// the output file. Each value is an expression over the variables
// listed by OutputOptions.
//
// Days is the number of days to simulate.
//
// events gives the management calendar: when to sow, and optionally
// when to cut or harvest.
//
// profile and soil give the soil column geometry and its initial water
// and nitrogen state.
//
// crop selects the soil crop parameterization, and params the root
// organ parameters.
//
// arb decides uptake and allocation from the whole plant's
// perspective.
//
// weather supplies the daily weather drivers.
//
// mineralizationRate is the daily fraction of fresh organic matter
// nitrogen converted to nitrate.
//
// SnapshotFile, if non-empty, is where the finished simulation state is
// saved. RestartFile, if non-empty, is a snapshot from an earlier run
// to resume from.
func Run(CobraCommand *cobra.Command, LogFile, OutputFile string, OutputVariables map[string]string,
	Days int, events Events, profile *rootzone.SoilProfile, soil *rootzone.SoilState,
	crop string, params *rootzone.RootParams, arb rootzone.Arbitrator,
	weather *rootzone.WeatherSeries, mineralizationRate float64,
	SnapshotFile, RestartFile string) error {

	startTime := time.Now()

	// Start a function to receive and print log messages.
	logfile, err := os.Create(os.ExpandEnv(LogFile))
	if err != nil {
		return fmt.Errorf("rootzone: problem creating log file: %v", err)
	}
	mw := io.MultiWriter(CobraCommand.OutOrStdout(), logfile)
	log.SetOutput(mw)
	cLog := make(chan *rootzone.SimulationStatus)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		for msg := range cLog {
			log.Println(msg.String())
		}
		wg.Done()
	}()

	defer func() { // Wait for the logging to finish.
		close(cLog)
		wg.Wait()
		logfile.Close()
	}()

	o, err := rootzone.NewRecorder(Days, OutputVariables, nil)
	if err != nil {
		return err
	}
	log.Println("Parsing output variable expressions...")

	root, err := rootzone.NewRoot([]*rootzone.Zone{{Profile: profile, Soil: soil}}, crop, params, soil)
	if err != nil {
		return err
	}

	initFuncs := []rootzone.SimulationManipulator{
		o.CheckOutputVars(),
	}
	if RestartFile != "" {
		log.Println("Reading snapshot...")
		var r io.ReadCloser
		r, err = os.Open(RestartFile)
		if err != nil {
			return fmt.Errorf("rootzone: problem opening file to load RestartFile: %v", err)
		}
		defer r.Close()
		initFuncs = append([]rootzone.SimulationManipulator{rootzone.Load(r)}, initFuncs...)
	}

	runFuncs := []rootzone.SimulationManipulator{
		rootzone.Log(cLog),
		rootzone.SowOn(events.SowDay, events.Sowing),
	}
	runFuncs = append(runFuncs, rootzone.DailyCycle(arb, mineralizationRate)...)
	if events.CutDay > 0 {
		runFuncs = append(runFuncs, rootzone.CutOn(events.CutDay, events.Removal))
	}
	if events.HarvestDay > 0 {
		runFuncs = append(runFuncs, rootzone.HarvestOn(events.HarvestDay, events.Removal))
	}
	runFuncs = append(runFuncs, o.Record(), rootzone.EndAfter(Days))

	cleanupFuncs := []rootzone.SimulationManipulator{
		o.Output(OutputFile),
	}
	if SnapshotFile != "" {
		var w io.WriteCloser
		w, err = os.Create(SnapshotFile)
		if err != nil {
			return fmt.Errorf("rootzone: problem creating snapshot file: %v", err)
		}
		defer w.Close()
		cleanupFuncs = append(cleanupFuncs, rootzone.Save(w))
	}

	s := &rootzone.Simulation{
		InitFuncs:    initFuncs,
		RunFuncs:     runFuncs,
		CleanupFuncs: cleanupFuncs,
		Profile:      profile,
		Soil:         soil,
		Root:         root,
		Weather:      weather,
	}

	log.Println("Initializing simulation...")
	if err = s.Init(); err != nil {
		return fmt.Errorf("rootzone: problem initializing simulation: %v", err)
	}

	if err = s.Run(); err != nil {
		return fmt.Errorf("rootzone: problem running simulation: %v", err)
	}

	if err = s.Cleanup(); err != nil {
		return fmt.Errorf("rootzone: problem shutting down simulation: %v", err)
	}

	log.Printf("Final root front depth: %.1f mm", s.Root.Depth)
	log.Printf("Final live root biomass: %.2f g m-2 holding %.3f g m-2 nitrogen",
		s.Root.TotalWt(), s.Root.TotalN())

	elapsedTime := time.Since(startTime)
	log.Printf("Elapsed time: %f seconds", elapsedTime.Seconds())

	return nil
}
