// Copyright 2026 The Wassail Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"fmt"
	"reflect"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
)

// FlagsFromParams creates a [pflag.FlagSet] with flags bound to the
// tagged fields of params. params must be a pointer to a struct. Panics
// on invalid input (programming error, not runtime data).
//
//	var params dumpParams
//	command := &cli.Command{
//	    Flags: func() *pflag.FlagSet {
//	        return cli.FlagsFromParams("dump", &params)
//	    },
//	    Run: func(ctx context.Context, args []string) error {
//	        // params fields are populated after flag parsing
//	    },
//	}
func FlagsFromParams(name string, params any) *pflag.FlagSet {
	flagSet := pflag.NewFlagSet(name, pflag.ContinueOnError)
	if err := BindFlags(params, flagSet); err != nil {
		panic(fmt.Sprintf("cli.FlagsFromParams(%q): %v", name, err))
	}
	return flagSet
}

// BindFlags registers pflag entries for each tagged field in params.
// params must be a pointer to a struct.
//
// # Struct tags
//
//   - flag:"name" or flag:"name,n" -- the long flag name and optional
//     single-character shorthand. Fields without a flag tag are skipped.
//   - desc:"help text" -- the flag's help description.
//   - default:"value" -- the default value, parsed according to the
//     field's Go type. If omitted, the type's zero value is used.
//   - choices:"a,b,c" -- string fields only: the accepted values. The
//     help text lists them and parsing rejects anything else.
//
// # Supported field types
//
// string, bool, int, [time.Duration], []string.
//
// Embedded struct fields (such as [JSONOutput]) are bound recursively.
func BindFlags(params any, flagSet *pflag.FlagSet) error {
	value := reflect.ValueOf(params)
	if value.Kind() != reflect.Pointer || value.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("params must be a pointer to a struct, got %T", params)
	}
	return bindStructFields(value.Elem(), flagSet)
}

func bindStructFields(structValue reflect.Value, flagSet *pflag.FlagSet) error {
	structType := structValue.Type()

	for i := range structType.NumField() {
		field := structType.Field(i)
		fieldValue := structValue.Field(i)

		if field.Anonymous && field.Type.Kind() == reflect.Struct {
			if err := bindStructFields(fieldValue, flagSet); err != nil {
				return fmt.Errorf("embedded %s: %w", field.Name, err)
			}
			continue
		}

		flagTag := field.Tag.Get("flag")
		if flagTag == "" {
			continue
		}
		if !fieldValue.CanAddr() {
			return fmt.Errorf("field %s: not addressable", field.Name)
		}

		spec := flagSpec{
			description:   field.Tag.Get("desc"),
			defaultString: field.Tag.Get("default"),
		}
		spec.name, spec.shorthand, _ = strings.Cut(flagTag, ",")
		if choices := field.Tag.Get("choices"); choices != "" {
			spec.choices = strings.Split(choices, ",")
		}
		if err := bindField(fieldValue, flagSet, spec); err != nil {
			return fmt.Errorf("field %s: %w", field.Name, err)
		}
	}

	return nil
}

type flagSpec struct {
	name          string
	shorthand     string
	description   string
	defaultString string
	choices       []string
}

func bindField(fieldValue reflect.Value, flagSet *pflag.FlagSet, spec flagSpec) error {
	pointer := fieldValue.Addr().Interface()
	if spec.choices != nil {
		if _, ok := pointer.(*string); !ok {
			return fmt.Errorf("choices on non-string flag --%s", spec.name)
		}
	}

	switch target := pointer.(type) {
	case *string:
		if spec.choices == nil {
			flagSet.StringVarP(target, spec.name, spec.shorthand, spec.defaultString, spec.description)
			break
		}
		*target = ""
		choice := &choiceValue{target: target, choices: spec.choices}
		if spec.defaultString != "" {
			if err := choice.Set(spec.defaultString); err != nil {
				return fmt.Errorf("default for --%s: %w", spec.name, err)
			}
		}
		description := fmt.Sprintf("%s (%s)", spec.description, strings.Join(spec.choices, "|"))
		flagSet.VarP(choice, spec.name, spec.shorthand, description)

	case *bool:
		defaultValue, err := parseDefault(spec.defaultString, strconv.ParseBool)
		if err != nil {
			return fmt.Errorf("default for --%s: %w", spec.name, err)
		}
		flagSet.BoolVarP(target, spec.name, spec.shorthand, defaultValue, spec.description)

	case *int:
		defaultValue, err := parseDefault(spec.defaultString, strconv.Atoi)
		if err != nil {
			return fmt.Errorf("default for --%s: %w", spec.name, err)
		}
		flagSet.IntVarP(target, spec.name, spec.shorthand, defaultValue, spec.description)

	case *time.Duration:
		defaultValue, err := parseDefault(spec.defaultString, time.ParseDuration)
		if err != nil {
			return fmt.Errorf("default for --%s: %w", spec.name, err)
		}
		flagSet.DurationVarP(target, spec.name, spec.shorthand, defaultValue, spec.description)

	case *[]string:
		var defaultValue []string
		if spec.defaultString != "" {
			defaultValue = strings.Split(spec.defaultString, ",")
		}
		flagSet.StringSliceVarP(target, spec.name, spec.shorthand, defaultValue, spec.description)

	default:
		return fmt.Errorf("unsupported type %s for flag --%s", fieldValue.Type(), spec.name)
	}

	return nil
}

// parseDefault returns the zero value for an empty default.
func parseDefault[T any](s string, parse func(string) (T, error)) (T, error) {
	if s == "" {
		var zero T
		return zero, nil
	}
	return parse(s)
}

// choiceValue is a string flag restricted to a fixed set of values.
type choiceValue struct {
	target  *string
	choices []string
}

func (c *choiceValue) String() string {
	if c.target == nil {
		return ""
	}
	return *c.target
}

func (c *choiceValue) Set(value string) error {
	if !slices.Contains(c.choices, value) {
		return fmt.Errorf("invalid value %q, must be one of %s", value, strings.Join(c.choices, ", "))
	}
	*c.target = value
	return nil
}

func (c *choiceValue) Type() string { return "string" }
