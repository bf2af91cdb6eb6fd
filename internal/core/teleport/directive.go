// Package teleport extracts teleport directives from console trigger strings
// and resolves them into absolute world positions.
//
// A trigger has the form
//
//	teleport:X,Y,Z
//
// where each field is an optional signed integer, optionally preceded by "~"
// to make it relative to the requester's current coordinate on that axis.
// Empty fields are 0. The prefix is matched case-insensitively and whitespace
// around the separators and at the end is ignored. Anything that does not
// match is not a directive; it is never an error.
package teleport

import (
	"strconv"
	"strings"
	"unicode"
)

// Prefix starts every trigger string.
const Prefix = "teleport:"

const (
	relativeMarker = "~"
	separator      = ","
	axisCount      = 3
)

// Axis is a single parsed coordinate field.
type Axis struct {
	Value    float64
	Relative bool
}

// Resolve returns the absolute coordinate for this axis given the
// requester's current coordinate.
func (a Axis) Resolve(current float64) float64 {
	if a.Relative {
		return a.Value + current
	}
	return a.Value
}

// Directive is a parsed trigger: one Axis per x, y, z.
type Directive [axisCount]Axis

// Resolve turns the directive into an absolute target.
func (d Directive) Resolve(current Position) Position {
	var out Position
	for i, a := range d {
		out[i] = a.Resolve(current[i])
	}
	return out
}

// Parse extracts a Directive from message. The boolean is false when message
// is not a trigger string.
func Parse(message string) (Directive, bool) {
	if len(message) < len(Prefix) || !strings.EqualFold(message[:len(Prefix)], Prefix) {
		return Directive{}, false
	}

	fields := strings.Split(message[len(Prefix):], separator)
	if len(fields) != axisCount {
		return Directive{}, false
	}

	var d Directive
	for i, field := range fields {
		a, ok := parseAxis(strings.TrimFunc(field, unicode.IsSpace))
		if !ok {
			return Directive{}, false
		}
		d[i] = a
	}
	return d, true
}

// parseAxis accepts "", "~", "[~]-?digits".
func parseAxis(field string) (Axis, bool) {
	var a Axis
	if strings.HasPrefix(field, relativeMarker) {
		a.Relative = true
		field = field[len(relativeMarker):]
	}
	if field == "" {
		return a, true
	}

	digits := strings.TrimPrefix(field, "-")
	if digits == "" || strings.IndexFunc(digits, isNotASCIIDigit) >= 0 {
		return Axis{}, false
	}

	v, err := strconv.ParseFloat(field, 64)
	if err != nil {
		// only reachable on overflow
		return Axis{}, false
	}
	a.Value = v
	return a, true
}

func isNotASCIIDigit(r rune) bool {
	return r < '0' || r > '9'
}
