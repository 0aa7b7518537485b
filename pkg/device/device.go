// Copyright (C) 2025 Lantern ML (maintainers@lanternml.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package device describes the target device a graph executed on.
//
// The profiler only needs the nominal clock rate, but the description is
// loaded from the same YAML config the execution engine ships, so the full
// struct is validated here. Construction is the validation boundary: a
// Description obtained from New or Load is safe to use, and downstream code
// treats an invalid clock rate as a configuration defect rather than a
// recoverable runtime condition.
package device

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// MinClockRateGHz is the lowest clock rate accepted, in cycles per
// nanosecond. Anything below it would make cycle-to-time conversion
// meaningless.
const MinClockRateGHz = 1e-9

// Sentinel errors for device description validation.
var (
	// ErrInvalidClockRate is returned when the clock rate is below
	// MinClockRateGHz.
	ErrInvalidClockRate = errors.New("clock rate below minimum")

	// ErrInvalidDescription is returned when the description fails
	// structural validation.
	ErrInvalidDescription = errors.New("invalid device description")
)

// Description is a read-only description of the execution device.
type Description struct {
	// Name identifies the device (e.g. "gpu0", "tpu-v4").
	Name string `yaml:"name" validate:"required"`

	// ClockRateGHz is the nominal clock rate in cycles per nanosecond.
	ClockRateGHz float64 `yaml:"clock_rate_ghz" validate:"required"`
}

var validate = validator.New()

// New constructs a validated device description.
//
// Inputs:
//
//	name         - Device identifier. Must be non-empty.
//	clockRateGHz - Nominal clock rate in cycles/ns. Must be >= MinClockRateGHz.
//
// Outputs:
//
//	Description - The validated description.
//	error       - ErrInvalidDescription or ErrInvalidClockRate (wrapped).
func New(name string, clockRateGHz float64) (Description, error) {
	d := Description{Name: name, ClockRateGHz: clockRateGHz}
	if err := d.Validate(); err != nil {
		return Description{}, err
	}
	return d, nil
}

// Load reads and validates a device description from a YAML file.
func Load(path string) (Description, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Description{}, fmt.Errorf("read device config: %w", err)
	}
	var d Description
	if err := yaml.Unmarshal(raw, &d); err != nil {
		return Description{}, fmt.Errorf("parse device config %s: %w", path, err)
	}
	if err := d.Validate(); err != nil {
		return Description{}, fmt.Errorf("device config %s: %w", path, err)
	}
	return d, nil
}

// Validate checks the description against its struct tags and the clock
// rate floor.
func (d Description) Validate() error {
	if err := validate.Struct(d); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDescription, err)
	}
	if d.ClockRateGHz < MinClockRateGHz {
		return fmt.Errorf("%w: got %g cycles/ns, need >= %g", ErrInvalidClockRate, d.ClockRateGHz, MinClockRateGHz)
	}
	return nil
}
