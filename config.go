package ape

import (
	"fmt"
	"time"
)

// Config is a typed settings bag, keyed by dotted path — the teacher's
// own config.go shape (`map[string]*cfgVal` with typed get/set and a
// panic on type mismatch, since a mismatched config lookup is always a
// programmer error, never host input).
type Config map[string]*cfgVal

// NewConfig returns a Config primed with this repo's defaults: the GC
// sweep threshold, REPL mode, and the constant-folding flag (which the
// compiler does not read; it always folds). Execution timeout starts
// unset (0 == disabled).
func NewConfig() *Config {
	c := make(Config)
	c.SetInt("gc.threshold", gcAllocThreshold)
	c.SetBool("repl_mode", false)
	c.SetBool("optimizer.constant_folding", true)
	c.SetDuration("execution.max_time", 0)
	return &c
}

type cfgValType int

const (
	cfgValTypeUndefined cfgValType = iota
	cfgValTypeBool
	cfgValTypeInt
	cfgValTypeString
	cfgValTypeDuration
)

func (vt cfgValType) String() string {
	return map[cfgValType]string{
		cfgValTypeUndefined: "undefined",
		cfgValTypeBool:      "bool",
		cfgValTypeInt:       "int",
		cfgValTypeString:    "string",
		cfgValTypeDuration:  "duration",
	}[vt]
}

type cfgVal struct {
	typ        cfgValType
	asBool     bool
	asInt      int
	asString   string
	asDuration time.Duration
}

func (v *cfgVal) assignType(vt cfgValType) {
	if v.typ != vt && v.typ != cfgValTypeUndefined {
		panic(fmt.Sprintf("Can't assign %q to type %q", vt, v.typ))
	}
	v.typ = vt
}

func (v *cfgVal) checkType(vt cfgValType) {
	if v.typ != vt {
		panic(fmt.Sprintf("Can't retrieve %q from %q setting", vt, v.typ))
	}
}

func (c *Config) SetBool(path string, v bool) {
	(*c)[path] = &cfgVal{}
	(*c)[path].assignType(cfgValTypeBool)
	(*c)[path].asBool = v
}

func (c *Config) SetInt(path string, v int) {
	(*c)[path] = &cfgVal{}
	(*c)[path].assignType(cfgValTypeInt)
	(*c)[path].asInt = v
}

func (c *Config) SetString(path string, v string) {
	(*c)[path] = &cfgVal{}
	(*c)[path].assignType(cfgValTypeString)
	(*c)[path].asString = v
}

func (c *Config) SetDuration(path string, v time.Duration) {
	(*c)[path] = &cfgVal{}
	(*c)[path].assignType(cfgValTypeDuration)
	(*c)[path].asDuration = v
}

func (c *Config) GetBool(path string) bool {
	if val, ok := (*c)[path]; ok {
		val.checkType(cfgValTypeBool)
		return val.asBool
	}
	panic(fmt.Sprintf("bool setting %q does not exist", path))
}

func (c *Config) GetInt(path string) int {
	if val, ok := (*c)[path]; ok {
		val.checkType(cfgValTypeInt)
		return val.asInt
	}
	panic(fmt.Sprintf("int setting %q does not exist", path))
}

func (c *Config) GetString(path string) string {
	if val, ok := (*c)[path]; ok {
		val.checkType(cfgValTypeString)
		return val.asString
	}
	panic(fmt.Sprintf("string setting %q does not exist", path))
}

func (c *Config) GetDuration(path string) time.Duration {
	if val, ok := (*c)[path]; ok {
		val.checkType(cfgValTypeDuration)
		return val.asDuration
	}
	panic(fmt.Sprintf("duration setting %q does not exist", path))
}
