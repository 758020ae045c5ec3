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

package rootzone

import (
	"math"
	"math/rand"
)

// WeatherSeries supplies the daily weather drivers of the simulation.
// Days are 1-based; a simulation longer than the series wraps around
// to the start of the series.
type WeatherSeries struct {
	tmean []float64 // [°C]
	rain  []float64 // [mm]
}

// NewWeatherSeries creates a weather series from explicit daily mean
// temperature [°C] and rainfall [mm] records of equal length.
func NewWeatherSeries(tmean, rain []float64) (*WeatherSeries, error) {
	if len(tmean) == 0 {
		return nil, configErrorf("weather series is empty")
	}
	if len(tmean) != len(rain) {
		return nil, configErrorf("weather series has %d temperature records but %d rain records", len(tmean), len(rain))
	}
	w := &WeatherSeries{
		tmean: make([]float64, len(tmean)),
		rain:  make([]float64, len(rain)),
	}
	copy(w.tmean, tmean)
	copy(w.rain, rain)
	return w, nil
}

// NewSinusoidWeather synthesizes a weather series of the given length:
// daily mean temperature follows an annual sinusoid
//
//	mean + amplitude × sin(2π (day − phase) / 365.25)
//
// with optional normally distributed day-to-day jitter (standard
// deviation jitter, drawn from a generator seeded with seed), and rain
// falls as rainAmount mm every rainInterval days.
func NewSinusoidWeather(days int, mean, amplitude, phase, jitter float64, seed int64, rainInterval int, rainAmount float64) *WeatherSeries {
	rng := rand.New(rand.NewSource(seed))
	w := &WeatherSeries{
		tmean: make([]float64, days),
		rain:  make([]float64, days),
	}
	for d := 0; d < days; d++ {
		t := mean + amplitude*math.Sin(2.*math.Pi*(float64(d+1)-phase)/365.25)
		if jitter > 0 {
			t += jitter * rng.NormFloat64()
		}
		w.tmean[d] = t
		if rainInterval > 0 && (d+1)%rainInterval == 0 {
			w.rain[d] = rainAmount
		}
	}
	return w
}

// Days returns the length of the series.
func (w *WeatherSeries) Days() int { return len(w.tmean) }

func (w *WeatherSeries) index(day int) int {
	i := (day - 1) % len(w.tmean)
	if i < 0 {
		i = 0
	}
	return i
}

// TMean returns the mean air temperature of the given simulation day
// [°C].
func (w *WeatherSeries) TMean(day int) float64 { return w.tmean[w.index(day)] }

// Rain returns the rainfall of the given simulation day [mm].
func (w *WeatherSeries) Rain(day int) float64 { return w.rain[w.index(day)] }
