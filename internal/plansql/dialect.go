package plansql

import "fmt"

// Dialect names a textual SQL variant a compiled statement targets.
// Dialect selection affects only text emission, never plan semantics.
type Dialect string

const (
	// DialectReference is the single reference dialect (SQLite-flavored).
	// It guarantees dense tie-aware ranking only.
	DialectReference Dialect = "reference"

	// DialectExtendedWindowTies additionally expresses gap-ties ranking
	// (RANK with skipped ranks after ties).
	DialectExtendedWindowTies Dialect = "extended-window-ties"
)

// Config holds the enumerated options the compiler recognizes.
type Config struct {
	Dialect Dialect

	// QuoteIdentifiers wraps every table and column identifier in double
	// quotes when set.
	QuoteIdentifiers bool
}

// Validate rejects unknown dialect names before compilation starts.
func (c Config) Validate() error {
	switch c.Dialect {
	case DialectReference, DialectExtendedWindowTies:
		return nil
	default:
		return fmt.Errorf("unknown dialect %q", c.Dialect)
	}
}

func (c Config) ident(name string) string {
	if c.QuoteIdentifiers {
		return `"` + name + `"`
	}
	return name
}
