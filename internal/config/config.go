// Package config defines the application configuration of the sandpaper CLI
// and the Options bag handed to table readers and writers.
//
// Configuration is layered with koanf (see Load): built-in defaults, then a
// sandpaper.yaml file, then SANDPAPER_* environment variables, then flags
// that were explicitly set on the command line.
//
// Example sandpaper.yaml:
//
//	log_level: info
//	log_format: text
//	line_terminator: os
//	jobs: 4
//	reader:
//	  auto_detect_datetime: true
//	metrics:
//	  backend: pushgateway
//	  pushgateway_url: http://localhost:9091
//	  job: sandpaper
//	  # or: backend: datadog, datadog_addr: 127.0.0.1:8125
package config

import (
	"encoding/json"
	"fmt"
	"runtime"
	"strconv"
)

// Config is the top-level application configuration.
type Config struct {
	LogLevel  string `koanf:"log_level"`
	LogFormat string `koanf:"log_format"`

	// LineTerminator selects the line ending of text destinations:
	// "os" (platform default), "lf" or "crlf".
	LineTerminator string `koanf:"line_terminator"`

	// Jobs bounds how many files the batch apply processes concurrently.
	Jobs int `koanf:"jobs"`

	// Reader carries reader options such as auto_detect_int; see
	// parser.InferFrom and the individual backends.
	Reader Options `koanf:"reader"`

	Metrics Metrics `koanf:"metrics"`
}

// Metrics configures the metrics backend.
type Metrics struct {
	// Backend is "none", "pushgateway" or "datadog".
	Backend        string `koanf:"backend"`
	PushgatewayURL string `koanf:"pushgateway_url"`
	DatadogAddr    string `koanf:"datadog_addr"`
	Job            string `koanf:"job"`
}

// Terminator resolves LineTerminator to the literal line ending.
func (c Config) Terminator() (string, error) {
	switch c.LineTerminator {
	case "", "os":
		if runtime.GOOS == "windows" {
			return "\r\n", nil
		}
		return "\n", nil
	case "lf":
		return "\n", nil
	case "crlf":
		return "\r\n", nil
	default:
		return "", fmt.Errorf("unknown line_terminator %q (want os, lf or crlf)", c.LineTerminator)
	}
}

// Options is a small helper to fetch typed values from loosely typed maps
// (decoded JSON/YAML, or key=value pairs from the command line). It performs
// only minimal type coercion and returns provided defaults when a key is
// absent or of an unexpected type.
type Options map[string]any

// String returns the string value for key or def if key is missing or not a string.
func (o Options) String(key, def string) string {
	if v, ok := o[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}

// Bool returns the bool value for key or def. String values such as "true"
// or "0" are parsed with strconv.ParseBool.
func (o Options) Bool(key string, def bool) bool {
	if v, ok := o[key]; ok {
		switch b := v.(type) {
		case bool:
			return b
		case string:
			if p, err := strconv.ParseBool(b); err == nil {
				return p
			}
		}
	}
	return def
}

// Int returns the int value for key or def. JSON numbers are decoded as
// float64 by encoding/json and YAML integers as int, so both are accepted,
// as are int64 and numeric strings.
func (o Options) Int(key string, def int) int {
	if v, ok := o[key]; ok {
		switch n := v.(type) {
		case float64:
			return int(n)
		case int:
			return n
		case int64:
			return int(n)
		case string:
			if i, err := strconv.Atoi(n); err == nil {
				return i
			}
		}
	}
	return def
}

// Rune returns the first rune of a string value for key, or def if key is
// missing or empty. This is useful for single-character parser settings such as
// a CSV delimiter.
func (o Options) Rune(key string, def rune) rune {
	if v, ok := o[key]; ok {
		if s, ok := v.(string); ok && len(s) > 0 {
			return []rune(s)[0]
		}
	}
	return def
}

// StringMap returns a map[string]string for key when the value is an object
// whose values are strings. Non-string values are ignored. Returns an empty map
// when the key is missing or the value is not an object.
func (o Options) StringMap(key string) map[string]string {
	res := map[string]string{}
	if v, ok := o[key]; ok {
		if m, ok := v.(map[string]any); ok {
			for k, vv := range m {
				if s, ok := vv.(string); ok {
					res[k] = s
				}
			}
		}
	}
	return res
}

// StringSlice returns a []string for key when the value is an array of strings
// (or an array of interface values containing strings). Returns nil when the
// key is missing or the value is not an array.
func (o Options) StringSlice(key string) []string {
	if v, ok := o[key]; ok {
		switch vv := v.(type) {
		case []any:
			out := make([]string, 0, len(vv))
			for _, x := range vv {
				if s, ok := x.(string); ok {
					out = append(out, s)
				}
			}
			return out
		case []string:
			return vv
		}
	}
	return nil
}

// Any returns the raw value for key, or nil.
func (o Options) Any(key string) any {
	if v, ok := o[key]; ok {
		return v
	}
	return nil
}

// Merge returns a new Options holding o overlaid with over.
func (o Options) Merge(over Options) Options {
	out := make(Options, len(o)+len(over))
	for k, v := range o {
		out[k] = v
	}
	for k, v := range over {
		out[k] = v
	}
	return out
}

// UnmarshalJSON implements json.Unmarshaler so that an explicit null decodes
// to a non-nil, empty Options map.
func (o *Options) UnmarshalJSON(b []byte) error {
	var tmp map[string]any
	if len(b) == 0 || string(b) == "null" {
		*o = Options{}
		return nil
	}
	if err := json.Unmarshal(b, &tmp); err != nil {
		return err
	}
	*o = Options(tmp)
	return nil
}
