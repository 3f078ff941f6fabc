package data

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/binscope/binscope/datatype"
	"github.com/binscope/binscope/errs"
)

// Format identifies a datum input encoding.
type Format uint8

const (
	// FormatCSV is key,value lines.
	FormatCSV Format = iota
	// FormatJSON is a JSON mapping.
	FormatJSON
	// FormatYAML is a YAML mapping.
	FormatYAML
	// FormatTOML is a TOML mapping.
	FormatTOML
)

// String returns the format's conventional file extension.
func (f Format) String() string {
	switch f {
	case FormatJSON:
		return "json"
	case FormatYAML:
		return "yaml"
	case FormatTOML:
		return "toml"
	default:
		return "csv"
	}
}

// parseValue parses a numeric literal in decimal or prefixed
// hex/octal/binary form, accepting negatives as their two's-complement
// bit pattern.
func parseValue(s string) (uint64, error) {
	s = strings.TrimSpace(s)

	if u, err := strconv.ParseUint(s, 0, 64); err == nil {
		return u, nil
	}

	i, err := strconv.ParseInt(s, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("value %q: %v: %w", s, err, errs.ErrDecodeFailure)
	}

	return uint64(i), nil
}

// coerceValue converts a decoded JSON/YAML/TOML scalar to uint64.
func coerceValue(v any) (uint64, error) {
	switch n := v.(type) {
	case float64:
		return uint64(int64(n)), nil
	case int:
		return uint64(n), nil
	case int64:
		return uint64(n), nil
	case uint64:
		return n, nil
	case string:
		return parseValue(n)
	default:
		return 0, fmt.Errorf("value %v (%T) is not numeric: %w", v, v, errs.ErrDecodeFailure)
	}
}

// unmarshalMapping decodes a JSON/YAML/TOML document into a flat
// name→scalar mapping.
func unmarshalMapping(format Format, input []byte) (map[string]any, error) {
	raw := make(map[string]any)

	var err error
	switch format {
	case FormatJSON:
		err = json.Unmarshal(input, &raw)
	case FormatYAML:
		err = yaml.Unmarshal(input, &raw)
	case FormatTOML:
		err = toml.Unmarshal(input, &raw)
	default:
		return nil, fmt.Errorf("format %s does not carry mappings: %w", format, errs.ErrDecodeFailure)
	}

	if err != nil {
		return nil, fmt.Errorf("%s: %v: %w", format, err, errs.ErrDecodeFailure)
	}

	return raw, nil
}

// csvRecords parses the input as comma-separated lines, skipping
// blanks.
func csvRecords(input []byte) ([][]string, error) {
	reader := csv.NewReader(strings.NewReader(string(input)))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("csv: %v: %w", err, errs.ErrDecodeFailure)
	}

	return records, nil
}

// ParseConstants parses a constants table: CSV "name,value" lines, or
// a JSON/YAML/TOML mapping of name to value. Repeated names are legal
// in CSV and preserve many-to-many semantics.
func ParseConstants(format Format, input []byte) ([]ConstantPair, error) {
	if format == FormatCSV {
		records, err := csvRecords(input)
		if err != nil {
			return nil, err
		}

		pairs := make([]ConstantPair, 0, len(records))
		for i, record := range records {
			if len(record) != 2 {
				return nil, fmt.Errorf("csv line %d: want name,value, got %d fields: %w", i+1, len(record), errs.ErrDecodeFailure)
			}
			value, err := parseValue(record[1])
			if err != nil {
				return nil, fmt.Errorf("csv line %d: %w", i+1, err)
			}
			pairs = append(pairs, ConstantPair{Name: record[0], Value: value})
		}

		return pairs, nil
	}

	raw, err := unmarshalMapping(format, input)
	if err != nil {
		return nil, err
	}

	pairs := make([]ConstantPair, 0, len(raw))
	for name, v := range raw {
		value, err := coerceValue(v)
		if err != nil {
			return nil, fmt.Errorf("constant %q: %w", name, err)
		}
		pairs = append(pairs, ConstantPair{Name: name, Value: value})
	}

	return pairs, nil
}

// ParseEnum parses an enum table. CSV lines are either bare names
// (values auto-assigned in order, starting at zero) or "name,value"
// pairs. JSON/YAML/TOML carry a mapping of numeric value to name.
func ParseEnum(format Format, input []byte) (map[uint64]string, error) {
	if format == FormatCSV {
		records, err := csvRecords(input)
		if err != nil {
			return nil, err
		}

		values := make(map[uint64]string, len(records))
		next := uint64(0)
		for i, record := range records {
			switch len(record) {
			case 1:
				values[next] = record[0]
				next++
			case 2:
				value, err := parseValue(record[1])
				if err != nil {
					return nil, fmt.Errorf("csv line %d: %w", i+1, err)
				}
				values[value] = record[0]
				next = value + 1
			default:
				return nil, fmt.Errorf("csv line %d: want name or name,value: %w", i+1, errs.ErrDecodeFailure)
			}
		}

		return values, nil
	}

	raw, err := unmarshalMapping(format, input)
	if err != nil {
		return nil, err
	}

	values := make(map[uint64]string, len(raw))
	for key, v := range raw {
		value, err := parseValue(key)
		if err != nil {
			return nil, fmt.Errorf("enum key %q: %w", key, err)
		}
		name, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("enum value for %q is not a name: %w", key, errs.ErrDecodeFailure)
		}
		values[value] = name
	}

	return values, nil
}

// ParseBitmask parses a bitmask table: CSV "name,bit" lines or a
// JSON/YAML/TOML mapping of name to bit index.
func ParseBitmask(format Format, input []byte) (map[uint8]string, error) {
	if format == FormatCSV {
		records, err := csvRecords(input)
		if err != nil {
			return nil, err
		}

		bits := make(map[uint8]string, len(records))
		for i, record := range records {
			if len(record) != 2 {
				return nil, fmt.Errorf("csv line %d: want name,bit: %w", i+1, errs.ErrDecodeFailure)
			}
			bit, err := parseValue(record[1])
			if err != nil || bit > 63 {
				return nil, fmt.Errorf("csv line %d: bit index %q: %w", i+1, record[1], errs.ErrDecodeFailure)
			}
			bits[uint8(bit)] = record[0]
		}

		return bits, nil
	}

	raw, err := unmarshalMapping(format, input)
	if err != nil {
		return nil, err
	}

	bits := make(map[uint8]string, len(raw))
	for name, v := range raw {
		bit, err := coerceValue(v)
		if err != nil || bit > 63 {
			return nil, fmt.Errorf("bitmask %q: bad bit index: %w", name, errs.ErrDecodeFailure)
		}
		bits[uint8(bit)] = name
	}

	return bits, nil
}

// ParseType parses a named type tree from a JSON/YAML/TOML envelope
// of the form {kind: ..., body: ...}. CSV cannot describe a type tree
// and is rejected.
func ParseType(format Format, input []byte) (datatype.Type, error) {
	switch format {
	case FormatCSV:
		return nil, fmt.Errorf("csv cannot describe a type tree: %w", errs.ErrDecodeFailure)

	case FormatJSON:
		var ref datatype.TypeRef
		if err := json.Unmarshal(input, &ref); err != nil {
			return nil, fmt.Errorf("type: %v: %w", err, errs.ErrDecodeFailure)
		}
		if ref.IsNil() {
			return nil, fmt.Errorf("type document is empty: %w", errs.ErrDecodeFailure)
		}
		return ref.T, nil

	default:
		// YAML and TOML route through the JSON envelope decoder after
		// a structural re-encode.
		var raw any
		var err error
		if format == FormatYAML {
			err = yaml.Unmarshal(input, &raw)
		} else {
			m := make(map[string]any)
			err = toml.Unmarshal(input, &m)
			raw = m
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %v: %w", format, err, errs.ErrDecodeFailure)
		}

		encoded, err := json.Marshal(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %v: %w", format, err, errs.ErrDecodeFailure)
		}

		return ParseType(FormatJSON, encoded)
	}
}
