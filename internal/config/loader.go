package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/dshills/buildmarkers/internal/matcher"
)

// Format is a configuration file format.
type Format int

const (
	// FormatJSON is JSON.
	FormatJSON Format = iota
	// FormatYAML is YAML.
	FormatYAML
	// FormatTOML is TOML.
	FormatTOML
)

// String returns the format name.
func (f Format) String() string {
	switch f {
	case FormatJSON:
		return "json"
	case FormatYAML:
		return "yaml"
	case FormatTOML:
		return "toml"
	default:
		return "unknown"
	}
}

// FormatForPath picks the format from the file extension.
func FormatForPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	default:
		return 0, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
}

// Decode parses data into a generic map. source names the data in errors.
func Decode(format Format, source string, data []byte) (map[string]any, error) {
	var raw map[string]any
	var err error
	switch format {
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		err = dec.Decode(&raw)
	case FormatYAML:
		err = yaml.Unmarshal(data, &raw)
	case FormatTOML:
		err = toml.Unmarshal(data, &raw)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return nil, &ParseError{Path: source, Message: err.Error(), Err: err}
	}
	if raw == nil {
		raw = make(map[string]any)
	}
	return normalize(raw).(map[string]any), nil
}

// normalize converts YAML's map[any]any values into map[string]any so the
// result can be encoded as JSON.
func normalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, item := range t {
			t[k] = normalize(item)
		}
		return t
	case map[any]any:
		m := make(map[string]any, len(t))
		for k, item := range t {
			m[fmt.Sprint(k)] = normalize(item)
		}
		return m
	case []any:
		for i, item := range t {
			t[i] = normalize(item)
		}
		return t
	default:
		return v
	}
}

// ParseContribution decodes a contribution in the given format.
func ParseContribution(format Format, source string, data []byte) (matcher.Contribution, error) {
	var c matcher.Contribution
	raw, err := Decode(format, source, data)
	if err != nil {
		return c, err
	}
	encoded, err := json.Marshal(raw)
	if err != nil {
		return c, fmt.Errorf("normalizing %s: %w", source, err)
	}
	if err := json.Unmarshal(encoded, &c); err != nil {
		return c, &ParseError{Path: source, Message: err.Error(), Err: err}
	}
	return c, nil
}

// LoadContribution reads a contribution file.
func LoadContribution(path string) (matcher.Contribution, error) {
	format, err := FormatForPath(path)
	if err != nil {
		return matcher.Contribution{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return matcher.Contribution{}, fmt.Errorf("reading config file %s: %w", path, err)
	}
	return ParseContribution(format, path, data)
}

// LoadInto registers the contributions in paths, in order, into reg.
// Invalid patterns and matchers are reported to rep and skipped; unreadable
// files stop the load.
func LoadInto(reg *matcher.Registry, rep matcher.Reporter, paths ...string) (matcher.LoadResult, error) {
	var total matcher.LoadResult
	for _, path := range paths {
		c, err := LoadContribution(path)
		if err != nil {
			return total, err
		}
		result := reg.Load(c, rep)
		total.Patterns = append(total.Patterns, result.Patterns...)
		total.Matchers = append(total.Matchers, result.Matchers...)
	}
	return total, nil
}
