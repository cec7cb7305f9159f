package ics

import (
	"errors"
	"fmt"
	"strings"

	"icstable/internal/model"
)

var (
	errMissingColon   = errors.New("missing ':' after property name")
	errEmptyName      = errors.New("empty property name")
	errUnterminated   = errors.New("unterminated quoted parameter value")
	errMissingEquals  = errors.New("parameter without '='")
	errEmptyParamName = errors.New("empty parameter name")
)

// parseContentLine splits `NAME;P1=a,b;P2="x:y":value` into a property.
//
// Names are upper-cased. Parameter values keep their text verbatim apart
// from surrounding quotes. A parameter that appears more than once has its
// values appended to the first occurrence.
func parseContentLine(line string) (model.Property, error) {
	var prop model.Property

	i := strings.IndexAny(line, ";:")
	if i < 0 {
		return prop, errMissingColon
	}
	name := line[:i]
	if err := checkName(name); err != nil {
		return prop, err
	}
	prop.Name = strings.ToUpper(name)

	pos := i
	if line[pos] == ';' {
		params, next, err := parseParams(line, pos+1)
		if err != nil {
			return prop, fmt.Errorf("property %s: %w", prop.Name, err)
		}
		prop.Params = params
		pos = next
	}

	// line[pos] is ':' here.
	if v := line[pos+1:]; v != "" {
		prop.Value = &v
	}
	return prop, nil
}

// parseParams reads parameters starting at pos and returns the index of the
// ':' that ends them.
func parseParams(line string, pos int) ([]model.Param, int, error) {
	params := make([]model.Param, 0, 2)
	for {
		eq := strings.IndexAny(line[pos:], "=;:")
		if eq < 0 || line[pos+eq] != '=' {
			if eq < 0 {
				return nil, 0, errMissingColon
			}
			return nil, 0, errMissingEquals
		}
		name := line[pos : pos+eq]
		if name == "" {
			return nil, 0, errEmptyParamName
		}
		if err := checkName(name); err != nil {
			return nil, 0, err
		}
		name = strings.ToUpper(name)
		pos += eq + 1

		var values []string
		for {
			var v string
			if pos < len(line) && line[pos] == '"' {
				end := strings.IndexByte(line[pos+1:], '"')
				if end < 0 {
					return nil, 0, errUnterminated
				}
				v = line[pos+1 : pos+1+end]
				pos += end + 2
			} else {
				end := strings.IndexAny(line[pos:], ",;:")
				if end < 0 {
					return nil, 0, errMissingColon
				}
				v = line[pos : pos+end]
				pos += end
			}
			values = append(values, v)

			if pos >= len(line) {
				return nil, 0, errMissingColon
			}
			if line[pos] != ',' {
				break
			}
			pos++
		}
		params = appendParam(params, name, values)

		switch line[pos] {
		case ';':
			pos++
		case ':':
			return params, pos, nil
		default:
			return nil, 0, fmt.Errorf("unexpected %q after parameter %s", line[pos], name)
		}
	}
}

func appendParam(params []model.Param, name string, values []string) []model.Param {
	for i := range params {
		if params[i].Name == name {
			params[i].Values = append(params[i].Values, values...)
			return params
		}
	}
	return append(params, model.Param{Name: name, Values: values})
}

// checkName accepts the iana-token / x-name alphabet: letters, digits, '-'.
func checkName(name string) error {
	if name == "" {
		return errEmptyName
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-':
		default:
			return fmt.Errorf("invalid character %q in name %q", r, name)
		}
	}
	return nil
}
