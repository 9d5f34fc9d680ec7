package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/sarchlab/mctopo/fu"
)

// EnvPrefix prefixes every environment key the config reads.
const EnvPrefix = "MCTOPO_"

// ReadEnv collects MCTOPO_* variables from the given .env files and the
// process environment. Process variables win over file entries. Missing
// files are skipped.
func ReadEnv(files ...string) (map[string]string, error) {
	env := make(map[string]string)

	for _, f := range files {
		vars, err := godotenv.Read(f)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}

		if err != nil {
			return nil, invalid("reading %s: %v", f, err)
		}

		for k, v := range vars {
			if strings.HasPrefix(k, EnvPrefix) {
				env[k] = v
			}
		}
	}

	for _, kv := range os.Environ() {
		k, v, _ := strings.Cut(kv, "=")
		if strings.HasPrefix(k, EnvPrefix) {
			env[k] = v
		}
	}

	return env, nil
}

// WithEnv returns a copy of c with the recognized keys of env applied.
// Unknown MCTOPO_* keys are rejected so typos do not go unnoticed.
func (c *Config) WithEnv(env map[string]string) (*Config, error) {
	out := c.Clone()

	for key, val := range env {
		name := strings.TrimPrefix(key, EnvPrefix)
		if err := out.setEnv(name, val); err != nil {
			return nil, err
		}
	}

	return out, nil
}

func (c *Config) setEnv(name, val string) error {
	var err error

	switch name {
	case "NAME":
		c.Name = val
	case "NUM_CORES":
		c.NumCores, err = strconv.Atoi(val)
	case "CLOCK":
		c.Clock = val
	case "MEM_SIZE":
		c.MemSize = val
		c.MemRanges = nil
	case "DRAM":
		c.DRAM = val
	case "POLICY":
		c.Policy = val
	case "FLOAT_SIMD_UNITS":
		c.FloatSimdUnits, err = strconv.Atoi(val)
	case "MISC_UNIT":
		c.MiscUnit, err = strconv.ParseBool(val)
	case "MAX_TICKS":
		c.MaxTicks, err = strconv.ParseUint(val, 10, 64)
	case "CACHES":
		err = c.setCaches(val)
	case "OP_LAT":
		err = c.setFloatSimdLatency(val, true)
	case "ISSUE_LAT":
		err = c.setFloatSimdLatency(val, false)
	default:
		return invalid("unknown environment key %s%s", EnvPrefix, name)
	}

	if err != nil {
		return invalid("%s%s=%q: %v", EnvPrefix, name, val, err)
	}

	return nil
}

func (c *Config) setCaches(val string) error {
	on, err := strconv.ParseBool(val)
	if err != nil {
		return err
	}

	switch {
	case on && c.Caches == nil:
		c.Caches = DefaultCacheHierarchy()
	case !on:
		c.Caches = nil
	}

	return nil
}

func (c *Config) setFloatSimdLatency(val string, op bool) error {
	n, err := strconv.ParseUint(val, 10, 64)
	if err != nil {
		return err
	}

	if c.FULatencies == nil {
		c.FULatencies = make(map[string]LatencyConfig)
	}

	lat, ok := c.FULatencies["float_simd"]
	if !ok {
		def := fu.DefaultLatency(fu.KindFloatSimd)
		lat = LatencyConfig{OpLat: def.Op, IssueLat: def.Issue}
	}

	if op {
		lat.OpLat = n
	} else {
		lat.IssueLat = n
	}

	c.FULatencies["float_simd"] = lat

	return nil
}
