package domain

import (
	"fmt"
	"strings"
)

// ValueType is the search value type of a parameter.
type ValueType string

const (
	ValueString    ValueType = "string"
	ValueToken     ValueType = "token"
	ValueDate      ValueType = "date"
	ValueNumber    ValueType = "number"
	ValueReference ValueType = "reference"
	ValueURI       ValueType = "uri"
)

// Sortable reports whether values of this type can carry range roles.
func (t ValueType) Sortable() bool {
	switch t {
	case ValueString, ValueDate, ValueNumber:
		return true
	default:
		return false
	}
}

// ParseValueType validates a value type name.
func ParseValueType(s string) (ValueType, error) {
	switch t := ValueType(strings.ToLower(s)); t {
	case ValueString, ValueToken, ValueDate, ValueNumber, ValueReference, ValueURI:
		return t, nil
	default:
		return "", fmt.Errorf("%w: search value type %q", ErrUnsupportedType, s)
	}
}

// RangeRole states which bound of a parameter's value range an indexed
// value represents.
type RangeRole int

const (
	// RangeNone marks a value that takes no part in range queries.
	RangeNone RangeRole = iota
	// RangeMin marks the lowest value of the parameter.
	RangeMin
	// RangeMax marks the highest value of the parameter.
	RangeMax
	// RangeBoth marks a value that is both the lowest and the highest.
	RangeBoth
)

// IsMin reports whether the role covers the lower bound.
func (r RangeRole) IsMin() bool { return r == RangeMin || r == RangeBoth }

// IsMax reports whether the role covers the upper bound.
func (r RangeRole) IsMax() bool { return r == RangeMax || r == RangeBoth }

// String returns the role name.
func (r RangeRole) String() string {
	switch r {
	case RangeMin:
		return "min"
	case RangeMax:
		return "max"
	case RangeBoth:
		return "both"
	default:
		return "none"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (r RangeRole) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *RangeRole) UnmarshalText(text []byte) error {
	switch string(text) {
	case "", "none":
		*r = RangeNone
	case "min":
		*r = RangeMin
	case "max":
		*r = RangeMax
	case "both":
		*r = RangeBoth
	default:
		return fmt.Errorf("%w: range role %q", ErrInvalidArgument, text)
	}
	return nil
}

// SearchParameterInfo identifies a search parameter.
type SearchParameterInfo struct {
	// Code is the short name used in queries (e.g., "birthdate").
	Code string `json:"code" bson:"code"`

	// URL is the full canonical identifier of the parameter.
	URL string `json:"url" bson:"url"`

	// Type is the value type.
	Type ValueType `json:"type" bson:"type"`
}

// SearchValue is one indexed value in its canonical, lexically sortable form.
type SearchValue struct {
	Type  ValueType `json:"type" bson:"type"`
	Value string    `json:"value" bson:"value"`
	Role  RangeRole `json:"role,omitempty" bson:"role,omitempty"`
}

// SearchIndexEntry pairs a parameter with one of its values.
type SearchIndexEntry struct {
	Param SearchParameterInfo `json:"param" bson:"param"`
	Value SearchValue         `json:"value" bson:"value"`
}

// Claim is one claim of the principal that produced a revision.
type Claim struct {
	Name  string `json:"name" bson:"name"`
	Value string `json:"value" bson:"value"`
}

// CompartmentIndices maps a compartment type (e.g., "Patient") to the ids of
// the compartments the resource belongs to.
type CompartmentIndices map[string][]string
