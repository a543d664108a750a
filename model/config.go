package model

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
)

// Kind is the declared type of a configuration entry.
type Kind int

const (
	String Kind = iota
	Bool
	Number
	Bytes
)

func (k Kind) String() string {
	switch k {
	case String:
		return "string"
	case Bool:
		return "bool"
	case Number:
		return "number"
	case Bytes:
		return "bytes"
	default:
		return "unknown"
	}
}

// Value is a configuration entry parsed once into its declared kind.
type Value struct {
	kind  Kind
	raw   string
	b     bool
	num   float64
	bytes uint64
}

// Parse converts a raw remote value into a Value of the given kind.
func Parse(kind Kind, raw string) (Value, error) {
	v := Value{kind: kind, raw: raw}
	switch kind {
	case String:
	case Bool:
		b, err := strconv.ParseBool(strings.TrimSpace(raw))
		if err != nil {
			return Value{}, fmt.Errorf("parsing %q as bool: %w", raw, err)
		}
		v.b = b
		v.raw = strconv.FormatBool(b)
	case Number:
		n, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return Value{}, fmt.Errorf("parsing %q as number: %w", raw, err)
		}
		v.num = n
	case Bytes:
		n, err := humanize.ParseBytes(strings.TrimSpace(raw))
		if err != nil {
			return Value{}, fmt.Errorf("parsing %q as byte size: %w", raw, err)
		}
		v.bytes = n
	default:
		return Value{}, fmt.Errorf("unknown kind %d", kind)
	}
	return v, nil
}

// MustParse is Parse for static defaults. It panics on error.
func MustParse(kind Kind, raw string) Value {
	v, err := Parse(kind, raw)
	if err != nil {
		panic(err)
	}
	return v
}

func (v Value) Kind() Kind { return v.kind }

// Raw returns the value as it would be written in a remote config document.
func (v Value) Raw() string { return v.raw }

func (v Value) String() string { return v.raw }

func (v Value) Bool() bool { return v.b }

func (v Value) Number() float64 { return v.num }

func (v Value) Bytes() uint64 { return v.bytes }

// IsEmpty reports whether the value carries no text.
func (v Value) IsEmpty() bool { return v.raw == "" }
