// Copyright (C) 2025 Lantern ML (maintainers@lanternml.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package profiler

import (
	"fmt"
	"math"

	"github.com/dustin/go-humanize"

	"github.com/lanternml/graphprof/pkg/device"
)

// unknownMark is rendered for bandwidth metrics that are undefined for an
// item (zero cycles, or a cost-model entry that could not determine a byte
// count).
const unknownMark = "<unknown>"

// noneMark is rendered for the FLOP-rate field when the item has no known
// floating-point work.
const noneMark = "<none>"

// Clock converts cycle counts to wall time at a device's nominal clock
// rate. The zero value is not usable; construct through NewClock so an
// invalid rate is rejected up front.
type Clock struct {
	rateGHz float64
}

// NewClock derives a Clock from a validated device description.
//
// The description is re-checked here so a Clock can never exist with a
// rate below device.MinClockRateGHz, even if the caller hand-built the
// Description.
func NewClock(d device.Description) (Clock, error) {
	if d.ClockRateGHz < device.MinClockRateGHz {
		return Clock{}, fmt.Errorf("%w: got %g cycles/ns, need >= %g",
			device.ErrInvalidClockRate, d.ClockRateGHz, device.MinClockRateGHz)
	}
	return Clock{rateGHz: d.ClockRateGHz}, nil
}

// RateGHz returns the clock rate in cycles per nanosecond.
func (c Clock) RateGHz() float64 { return c.rateGHz }

// CyclesToNanoseconds converts a cycle count to elapsed nanoseconds.
func (c Clock) CyclesToNanoseconds(cycles uint64) float64 {
	return float64(cycles) / c.rateGHz
}

// CyclesToMicroseconds converts a cycle count to elapsed microseconds.
func (c Clock) CyclesToMicroseconds(cycles uint64) float64 {
	return float64(cycles) / c.rateGHz / 1000.0
}

// CyclesToSeconds converts a cycle count to elapsed seconds.
func (c Clock) CyclesToSeconds(cycles uint64) float64 {
	return float64(cycles) / c.rateGHz / 1e9
}

// PercentOf returns cycles as a percentage of total. A zero total yields
// 0 rather than NaN or Inf.
func PercentOf(cycles, total uint64) float64 {
	if total == 0 {
		return 0
	}
	return float64(cycles) / float64(total) * 100
}

// FlopRate returns the floating-point throughput in FLOP/s. The rate is
// defined only for positive flop counts over a positive elapsed time; ok is
// false otherwise and the caller must render the none marker instead.
func FlopRate(flops int64, nanoseconds float64) (rate float64, ok bool) {
	if flops <= 0 || nanoseconds <= 0 {
		return 0, false
	}
	return float64(flops) / (nanoseconds * 1e-9), true
}

// BytesPerSecond returns memory bandwidth in bytes per second. Defined only
// when cycles > 0 and the byte count is known (non-negative).
func BytesPerSecond(bytesAccessed int64, cycles uint64, nanoseconds float64) (rate float64, ok bool) {
	if cycles == 0 || bytesAccessed < 0 {
		return 0, false
	}
	return float64(bytesAccessed) / (nanoseconds * 1e-9), true
}

// BytesPerCycle returns memory traffic per clock tick. Defined only when
// cycles > 0 and the byte count is known (non-negative).
func BytesPerCycle(bytesAccessed int64, cycles uint64) (rate float64, ok bool) {
	if cycles == 0 || bytesAccessed < 0 {
		return 0, false
	}
	return float64(bytesAccessed) / float64(cycles), true
}

// FormatFlopRate renders a FLOP rate as a human-readable SI figure
// ("4 GFLOP/s"), or the none marker when the rate is undefined.
func FormatFlopRate(flops int64, nanoseconds float64) string {
	rate, ok := FlopRate(flops, nanoseconds)
	if !ok {
		return noneMark
	}
	return humanize.SIWithDigits(rate, 2, "FLOP/s")
}

// FormatBytesPerSecond renders bandwidth as a human-readable byte figure
// without the "/s" suffix (the report layout appends it), or the unknown
// marker when the rate is undefined.
func FormatBytesPerSecond(bytesAccessed int64, cycles uint64, nanoseconds float64) string {
	rate, ok := BytesPerSecond(bytesAccessed, cycles, nanoseconds)
	if !ok {
		return unknownMark
	}
	return formatBytes(rate)
}

// FormatBytesPerCycle renders per-cycle traffic as a human-readable byte
// figure without the "/cycle" suffix, or the unknown marker when the rate
// is undefined.
func FormatBytesPerCycle(bytesAccessed int64, cycles uint64) string {
	rate, ok := BytesPerCycle(bytesAccessed, cycles)
	if !ok {
		return unknownMark
	}
	return formatBytes(rate)
}

// formatBytes renders a possibly fractional byte quantity. Sub-byte values
// (common for bytes/cycle) keep one decimal; anything else goes through
// humanize.
func formatBytes(v float64) string {
	if v < 1 {
		return fmt.Sprintf("%.1f B", v)
	}
	return humanize.Bytes(uint64(math.Round(v)))
}
