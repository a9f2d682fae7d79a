/*
Copyright 2024 The Holpaca Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package config

import (
	"flag"
	"fmt"
	"strings"
)

// overrides collects repeated "-set key=value" command-line flags.
type overrides struct {
	pairs []string
}

func (o *overrides) String() string {
	return strings.Join(o.pairs, ",")
}

func (o *overrides) Set(kv string) error {
	if !strings.Contains(kv, "=") {
		return fmt.Errorf("config: -set value %q is not key=value", kv)
	}
	o.pairs = append(o.pairs, kv)
	return nil
}

// RegisterFlags adds a repeatable "-set key=value" flag and a "-config
// path" flag to fs. Call ParseFlags after fs.Parse to build the resulting
// Config: file values loaded first, then each -set applied on top.
func RegisterFlags(fs *flag.FlagSet) (configPath *string, sets *overrides) {
	sets = &overrides{}
	fs.Var(sets, "set", "override a config key, as key=value (repeatable)")
	configPath = fs.String("config", "", "path to a YAML config file")
	return configPath, sets
}

// ParseFlags builds a Config from the flags registered by RegisterFlags.
func ParseFlags(configPath *string, sets *overrides) (*Config, error) {
	var c *Config
	if *configPath != "" {
		loaded, err := Load(*configPath)
		if err != nil {
			return nil, err
		}
		c = loaded
	} else {
		c = New()
	}

	for _, kv := range sets.pairs {
		parts := strings.SplitN(kv, "=", 2)
		c.Set(parts[0], parts[1])
	}
	return c, nil
}
