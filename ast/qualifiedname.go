package ast

import "strings"

// QualifiedName is a dot-separated function/attribute identifier split into
// parts, e.g. "company.department.findings" -> ["company","department","findings"].
type QualifiedName []string

// Join dot-joins the parts back into the canonical fully-qualified form.
func (q QualifiedName) Join() string { return strings.Join(q, ".") }

// SimpleName returns the last part, or "" for an empty name.
func (q QualifiedName) SimpleName() string {
	if len(q) == 0 {
		return ""
	}
	return q[len(q)-1]
}

// Library returns every part but the last, dot-joined — the "<library>" in
// "<library.name>".
func (q QualifiedName) Library() string {
	if len(q) <= 1 {
		return ""
	}
	return strings.Join(q[:len(q)-1], ".")
}
