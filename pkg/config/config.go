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

// Package config is a flat dotted-key configuration store: every key may
// be overridden for a specific worker thread via "<key>.<threadId>",
// falling back to the bare key when no per-thread override is present.
// Values are loaded from a YAML file (sigs.k8s.io/yaml) and may be
// overlaid from the command line.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"sigs.k8s.io/yaml"
)

// Config is a flat, string-valued key/value store safe for concurrent use.
type Config struct {
	mu     sync.RWMutex
	values map[string]string
}

// New creates an empty Config.
func New() *Config {
	return &Config{values: make(map[string]string)}
}

// Load reads a YAML document from path into a new Config. The document is
// expected to be a flat mapping of dotted keys to scalar values.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	var doc map[string]interface{}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	c := New()
	for k, v := range doc {
		c.values[k] = fmt.Sprintf("%v", v)
	}
	return c, nil
}

// Set stores a raw key (with or without a ".<threadId>" suffix already
// applied by the caller).
func (c *Config) Set(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key] = value
}

// lookup resolves key for threadId, preferring a per-thread override.
func (c *Config) lookup(key string, threadID int) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if threadID >= 0 {
		if v, ok := c.values[fmt.Sprintf("%s.%d", key, threadID)]; ok {
			return v, true
		}
	}
	v, ok := c.values[key]
	return v, ok
}

// GetString returns key's value for threadId, or def if unset. Pass
// threadId < 0 to look up only the bare key.
func (c *Config) GetString(key string, threadID int, def string) string {
	if v, ok := c.lookup(key, threadID); ok {
		return v
	}
	return def
}

// GetUint64 parses key's value as an unsigned integer.
func (c *Config) GetUint64(key string, threadID int, def uint64) uint64 {
	v, ok := c.lookup(key, threadID)
	if !ok {
		return def
	}
	n, err := strconv.ParseUint(strings.TrimSpace(v), 10, 64)
	if err != nil {
		return def
	}
	return n
}

// GetFloat64 parses key's value as a float.
func (c *Config) GetFloat64(key string, threadID int, def float64) float64 {
	v, ok := c.lookup(key, threadID)
	if !ok {
		return def
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return def
	}
	return f
}

// GetBool parses key's value as a boolean ("on"/"off" as well as the usual
// strconv.ParseBool forms), matching the original's on/off toggle keys.
func (c *Config) GetBool(key string, threadID int, def bool) bool {
	v, ok := c.lookup(key, threadID)
	if !ok {
		return def
	}
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "on":
		return true
	case "off":
		return false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// Has reports whether key (for threadId, or the bare key if threadId < 0)
// has any value set.
func (c *Config) Has(key string, threadID int) bool {
	_, ok := c.lookup(key, threadID)
	return ok
}
