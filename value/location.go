// Package value implements the SAPL Value model: an immutable, JSON-like
// tagged variant extended with Undefined (absence) and Error (an in-band,
// first-class evaluation failure).
package value

import "fmt"

// SourceLocation identifies the span of source text an AST node or Error
// originated from. It is carried by every AST node and every Error value,
// and used for diagnostics and coverage reporting by external tooling.
type SourceLocation struct {
	DocumentName string
	Line         int
	StartOffset  int
	EndOffset    int
}

// String renders a SourceLocation as "document:line[start-end]" for logs and
// error messages.
func (l SourceLocation) String() string {
	return fmt.Sprintf("%s:%d[%d-%d]", l.DocumentName, l.Line, l.StartOffset, l.EndOffset)
}
