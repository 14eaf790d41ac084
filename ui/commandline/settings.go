// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package commandline holds utilities for command-line programs: parsing of "param=value;..." settings
// into typed parameters, and a progress bar with a table of live statistics.
package commandline

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/pkg/errors"

	"github.com/gomlx/celebamask/support/fsutil"
)

// Params is an ordered collection of named parameters with default values. The type of the
// default value defines how a setting for the parameter is parsed, see ParseSettings.
type Params struct {
	names  []string
	values map[string]any
}

// NewParams returns an empty Params.
func NewParams() *Params {
	return &Params{values: make(map[string]any)}
}

// Set the value of the parameter name. New parameters are appended to the list of parameters.
//
// It returns the Params, so calls can be cascaded.
func (p *Params) Set(name string, value any) *Params {
	if _, found := p.values[name]; !found {
		p.names = append(p.names, name)
	}
	p.values[name] = value
	return p
}

// Get returns the value of the parameter, and whether it was found.
func (p *Params) Get(name string) (value any, found bool) {
	value, found = p.values[name]
	return
}

// Names of the parameters, in the order they were first set.
func (p *Params) Names() []string {
	return slices.Clone(p.names)
}

// GetParamOr returns the value of the parameter name converted to T, or defaultValue if the
// parameter is not set or has a different type.
func GetParamOr[T any](p *Params, name string, defaultValue T) T {
	value, found := p.Get(name)
	if !found {
		return defaultValue
	}
	typed, ok := value.(T)
	if !ok {
		return defaultValue
	}
	return typed
}

// ParseSettings from settings -- typically the contents of a flag set by the user.
// The settings are a list separated by ";": e.g.: "param1=value1;param2=value2;...".
//
// All the parameters "param1", "param2", etc. must be already set with default values
// in `params`. The default values are also used to set the type to which the
// string values will be parsed to.
//
// A setting "file:<path>" reads the settings from the file, one or more per line, skipping
// empty lines and lines starting with "#".
//
// For integer types, "_" is removed: it allows one to enter large numbers using it as a separator, like
// in Go. E.g.: 1_000_000 = 1000000. Lists ([]int, []float64, []string) are separated by ",".
//
// It returns the names of the parameters set, or an error if a parameter is unknown or the parsing failed.
func ParseSettings(params *Params, settings string) (paramsSet []string, err error) {
	for _, setting := range strings.Split(settings, ";") {
		paramsSet, err = parseSetting(params, strings.TrimSpace(setting), paramsSet)
		if err != nil {
			return
		}
	}
	return
}

func parseSetting(params *Params, setting string, paramsSet []string) (newParamsSet []string, err error) {
	newParamsSet = paramsSet
	if setting == "" {
		return
	}
	if filePath, isFile := strings.CutPrefix(setting, "file:"); isFile {
		filePath, err = fsutil.ExpandHome(filePath)
		if err != nil {
			return
		}
		var contents []byte
		contents, err = os.ReadFile(filePath)
		if err != nil {
			err = errors.Wrapf(err, "failed to read settings from file %q", filePath)
			return
		}
		for _, line := range strings.Split(string(contents), "\n") {
			line = strings.TrimSpace(line)
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			for _, lineSetting := range strings.Split(line, ";") {
				newParamsSet, err = parseSetting(params, strings.TrimSpace(lineSetting), newParamsSet)
				if err != nil {
					return
				}
			}
		}
		return
	}

	name, valueStr, found := strings.Cut(setting, "=")
	if !found || name == "" {
		err = errors.Errorf("can't parse setting %q: each setting requires the format \"<param>=<value>\"", setting)
		return
	}
	defaultValue, known := params.Get(name)
	if !known {
		err = errors.Errorf("can't set parameter %q because it is not known, known parameters are %v", name, params.names)
		return
	}
	value, err := parseValue(defaultValue, valueStr)
	if err != nil {
		err = errors.WithMessagef(err, "failed to parse value %q for parameter %q (default value is %#v)", valueStr, name, defaultValue)
		return
	}
	params.Set(name, value)
	newParamsSet = append(newParamsSet, name)
	return
}

// parseValue parses valueStr to the type of defaultValue.
func parseValue(defaultValue any, valueStr string) (value any, err error) {
	switch defaultValue.(type) {
	case int:
		return parseJSON[int](removeSeparators(valueStr))
	case int32:
		return parseJSON[int32](removeSeparators(valueStr))
	case int64:
		return parseJSON[int64](removeSeparators(valueStr))
	case uint64:
		return parseJSON[uint64](removeSeparators(valueStr))
	case float64:
		return parseJSON[float64](valueStr)
	case float32:
		return parseJSON[float32](valueStr)
	case bool:
		return parseJSON[bool](valueStr)
	case string:
		return valueStr, nil
	case []string:
		return strings.Split(valueStr, ","), nil
	case []int:
		return parseList[int](valueStr, true)
	case []float64:
		return parseList[float64](valueStr, false)
	}
	return nil, errors.Errorf("don't know how to parse type %T", defaultValue)
}

func removeSeparators(valueStr string) string {
	return strings.ReplaceAll(valueStr, "_", "")
}

func parseJSON[T any](valueStr string) (value T, err error) {
	err = json.Unmarshal([]byte(strings.TrimSpace(valueStr)), &value)
	if err != nil {
		err = errors.Wrapf(err, "invalid %T value %q", value, valueStr)
	}
	return
}

func parseList[T any](valueStr string, isInt bool) ([]T, error) {
	parts := strings.Split(valueStr, ",")
	values := make([]T, 0, len(parts))
	for _, part := range parts {
		if isInt {
			part = removeSeparators(part)
		}
		v, err := parseJSON[T](part)
		if err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, nil
}

// CreateSettingsFlag creates a string flag with the given flagName (if empty it will be named
// "set") and with a description of the parameters defined in `params`.
//
// The flag should be created before the call to `flag.Parse()`.
//
// Example usage:
//
//	func main() {
//		params := createDefaultParams()
//		settings := commandline.CreateSettingsFlag(params, "")
//		flag.Parse()
//		paramsSet, err := commandline.ParseSettings(params, *settings)
//		if err != nil { klog.Fatalf("%+v", err) }
//		fmt.Println(commandline.SprintModifiedSettings(params, paramsSet))
//		...
//	}
func CreateSettingsFlag(params *Params, flagName string) *string {
	if flagName == "" {
		flagName = "set"
	}
	parts := []string{
		`Set parameters. It should be a list of elements "param=value" separated by ";". ` +
			`It can also be given an entry like: "file:settings_file.txt", in ` +
			`which case the file will be read and the settings will be parsed, ` +
			`with new-lines working as ";" to separate settings and lines starting with "#" are considered comments. ` +
			`Current available parameters that can be set:`,
	}
	for _, name := range params.names {
		parts = append(parts, fmt.Sprintf("%q: default value is %v", name, formatValue(params.values[name])))
	}
	var settings string
	flag.StringVar(&settings, flagName, "", strings.Join(parts, "\n"))
	return &settings
}

func formatValue(value any) string {
	switch v := value.(type) {
	case []int:
		return strings.Trim(strings.Join(strings.Fields(fmt.Sprint(v)), ","), "[]")
	case []float64:
		return strings.Trim(strings.Join(strings.Fields(fmt.Sprint(v)), ","), "[]")
	case []string:
		return strings.Join(v, ",")
	}
	return fmt.Sprintf("%v", value)
}

// SprintSettings pretty-prints all the parameters into a string, one per line.
func SprintSettings(params *Params) string {
	parts := make([]string, 0, len(params.names))
	for _, name := range params.names {
		value := params.values[name]
		parts = append(parts, fmt.Sprintf("\t%q: (%T) %s", name, value, formatValue(value)))
	}
	return strings.Join(parts, "\n")
}

// SprintModifiedSettings pretty-prints the parameters listed in paramsSet, sorted and without duplicates.
func SprintModifiedSettings(params *Params, paramsSet []string) string {
	paramsSet = slices.Clone(paramsSet)
	slices.Sort(paramsSet)
	paramsSet = slices.Compact(paramsSet)
	parts := make([]string, 0, len(paramsSet))
	for _, name := range paramsSet {
		value, found := params.Get(name)
		if !found {
			continue
		}
		parts = append(parts, fmt.Sprintf("\t%q: (%T) %s", name, value, formatValue(value)))
	}
	return strings.Join(parts, "\n")
}
