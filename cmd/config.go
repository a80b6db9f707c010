package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/alecthomas/kong"
)

// TOML is a kong.ConfigurationLoader for flat TOML files. Keys are flag
// names, with either dashes or underscores:
//
//	tag-prefix = "v"
//	minimum_major_minor = "1.0"
//	ignore-height = true
//
// Values must be strings, booleans or integers. A flag whose environment
// variable is set is not read from the file.
func TOML(r io.Reader) (kong.Resolver, error) {
	values := map[string]any{}
	if _, err := toml.NewDecoder(r).Decode(&values); err != nil {
		return nil, fmt.Errorf("parsing configuration file: %w", err)
	}

	var f kong.ResolverFunc = func(_ *kong.Context, _ *kong.Path, flag *kong.Flag) (any, error) {
		for _, env := range flag.Envs {
			if _, ok := os.LookupEnv(env); ok {
				return nil, nil
			}
		}

		for _, key := range []string{flag.Name, strings.ReplaceAll(flag.Name, "-", "_")} {
			raw, ok := values[key]
			if !ok {
				continue
			}
			switch v := raw.(type) {
			case string, bool:
				return v, nil
			case int64:
				return strconv.FormatInt(v, 10), nil
			default:
				return nil, fmt.Errorf("configuration key %q has unsupported %T value %v, use a quoted string", key, raw, raw)
			}
		}
		return nil, nil
	}

	return f, nil
}
