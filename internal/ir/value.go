package ir

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Value is a sealed interface representing the cell value types the engine
// understands. Only Null, String, Int, Float, and Bool implement it.
//
// The marker method pattern prevents external implementations and enables
// exhaustive type switches in the compiler and the interpreter.
type Value interface {
	value() // Sealed - only types in this package implement it
}

// Null represents an absent value.
// Using an explicit type ensures all Values satisfy the sealed interface.
type Null struct{}

func (Null) value() {}

// String represents a text value.
type String string

func (String) value() {}

// Int represents an integer value. Always int64.
type Int int64

func (Int) value() {}

// Float represents a floating-point value, e.g. a model score used as a
// window ordering key.
type Float float64

func (Float) value() {}

// Bool represents a boolean value.
type Bool bool

func (Bool) value() {}

// Kind identifies the variant of a Value.
type Kind int

const (
	KindNull Kind = iota
	KindString
	KindInt
	KindFloat
	KindBool
)

// String returns the lowercase kind name used in error messages.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	default:
		return "unknown"
	}
}

// KindOf returns the Kind of a Value. A nil Value is reported as null.
func KindOf(v Value) Kind {
	switch v.(type) {
	case nil, Null:
		return KindNull
	case String:
		return KindString
	case Int:
		return KindInt
	case Float:
		return KindFloat
	case Bool:
		return KindBool
	default:
		return KindNull
	}
}

// IsNull reports whether v is the null value (or a nil interface).
func IsNull(v Value) bool {
	return KindOf(v) == KindNull
}

// AsFloat coerces numeric values to float64 for arithmetic and ordering.
// The second return is false for non-numeric values.
func AsFloat(v Value) (float64, bool) {
	switch val := v.(type) {
	case Int:
		return float64(val), true
	case Float:
		return float64(val), true
	default:
		return 0, false
	}
}

// AsBool returns the boolean content of v.
// The second return is false for non-boolean values.
func AsBool(v Value) (bool, bool) {
	if b, ok := v.(Bool); ok {
		return bool(b), true
	}
	return false, false
}

// Compare defines the engine's total ordering over values:
// nulls sort after everything, numbers compare across Int/Float, strings
// compare lexically, booleans order false before true.
// Returns -1, 0, or 1. Values of incomparable kinds fall back to kind order
// so sorts stay total.
func Compare(a, b Value) int {
	aNull, bNull := IsNull(a), IsNull(b)
	if aNull && bNull {
		return 0
	}
	if aNull {
		return 1
	}
	if bNull {
		return -1
	}

	if af, aok := AsFloat(a); aok {
		if bf, bok := AsFloat(b); bok {
			switch {
			case af < bf:
				return -1
			case af > bf:
				return 1
			default:
				return 0
			}
		}
	}

	if as, aok := a.(String); aok {
		if bs, bok := b.(String); bok {
			return strings.Compare(string(as), string(bs))
		}
	}

	if ab, aok := a.(Bool); aok {
		if bb, bok := b.(Bool); bok {
			switch {
			case !bool(ab) && bool(bb):
				return -1
			case bool(ab) && !bool(bb):
				return 1
			default:
				return 0
			}
		}
	}

	ak, bk := KindOf(a), KindOf(b)
	switch {
	case ak < bk:
		return -1
	case ak > bk:
		return 1
	default:
		return 0
	}
}

// Equal reports whether two values compare as equal under Compare.
// Int(2) and Float(2.0) are equal; values of unrelated kinds are not.
func Equal(a, b Value) bool {
	if KindOf(a) != KindOf(b) {
		if _, aok := AsFloat(a); aok {
			if _, bok := AsFloat(b); bok {
				return Compare(a, b) == 0
			}
		}
		return false
	}
	return Compare(a, b) == 0
}

// Canonical returns the deterministic textual form of a value used in
// canonical plan text.
//
// Strings are NFC normalized at this boundary so that two plans built from
// differently-composed but equivalent Unicode input render identically.
func Canonical(v Value) string {
	switch val := v.(type) {
	case nil, Null:
		return "null"
	case String:
		return strconv.Quote(norm.NFC.String(string(val)))
	case Int:
		return strconv.FormatInt(int64(val), 10)
	case Float:
		return strconv.FormatFloat(float64(val), 'g', -1, 64)
	case Bool:
		if val {
			return "true"
		}
		return "false"
	default:
		return fmt.Sprintf("<%T>", v)
	}
}

// SQLLiteral returns the SQL source form of a value for the reference
// dialect. Strings are single-quoted with embedded quotes doubled.
func SQLLiteral(v Value) string {
	switch val := v.(type) {
	case nil, Null:
		return "NULL"
	case String:
		return "'" + strings.ReplaceAll(norm.NFC.String(string(val)), "'", "''") + "'"
	case Int:
		return strconv.FormatInt(int64(val), 10)
	case Float:
		return strconv.FormatFloat(float64(val), 'g', -1, 64)
	case Bool:
		if val {
			return "1"
		}
		return "0"
	default:
		return "NULL"
	}
}

// FromAny converts a loosely-typed Go value (as produced by the yaml, json
// and avro decoders) into a Value. Unsupported types become an error.
func FromAny(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return Null{}, nil
	case string:
		return String(val), nil
	case bool:
		return Bool(val), nil
	case int:
		return Int(val), nil
	case int32:
		return Int(val), nil
	case int64:
		return Int(val), nil
	case float32:
		return Float(val), nil
	case float64:
		// JSON decodes every number as float64; keep whole values integral.
		if val == float64(int64(val)) {
			return Int(int64(val)), nil
		}
		return Float(val), nil
	default:
		return nil, fmt.Errorf("unsupported value type %T", v)
	}
}

// ToAny converts a Value back to a loosely-typed Go value for JSON output
// and SQL parameters.
func ToAny(v Value) any {
	switch val := v.(type) {
	case nil, Null:
		return nil
	case String:
		return string(val)
	case Int:
		return int64(val)
	case Float:
		return float64(val)
	case Bool:
		return bool(val)
	default:
		return nil
	}
}
