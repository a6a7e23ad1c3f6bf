package compiler

import (
	"fmt"

	"github.com/sapl-run/sapl-core/ast"
	"github.com/sapl-run/sapl-core/attribute"
	"github.com/sapl-run/sapl-core/function"
)

// BuildImportTable resolves a document's Import list into a simple-name ->
// fully-qualified-name table, rejecting the two ways imports collide: two
// explicit imports claiming the same simple name, and an explicit import
// colliding with a wildcard import that already brought a function or
// attribute of that name into scope. Wildcard imports themselves are not
// added to the table — compileFunctionCall and compileAttributeReference
// fall back to the joined qualified name when no explicit alias exists —
// but their library prefixes are kept around just long enough to check
// every explicit import against them before returning.
func BuildImportTable(imports []ast.Import, funcs function.Broker, attrs attribute.Broker) (map[string]string, error) {
	table := make(map[string]string)
	var wildcardLibraries []string
	for _, imp := range imports {
		if imp.Alias == "*" {
			wildcardLibraries = append(wildcardLibraries, ast.QualifiedName(imp.Parts).Join())
			continue
		}
		name := imp.Parts[len(imp.Parts)-1]
		if imp.Alias != "" {
			name = imp.Alias
		}
		fq := ast.QualifiedName(imp.Parts).Join()
		if existing, ok := table[name]; ok && existing != fq {
			return nil, fmt.Errorf("compiler: %s: import %q collides with an earlier import of %q under the same name", imp.Loc, fq, existing)
		}
		table[name] = fq
	}

	for _, imp := range imports {
		if imp.Alias == "*" {
			continue
		}
		name := imp.Parts[len(imp.Parts)-1]
		if imp.Alias != "" {
			name = imp.Alias
		}
		for _, lib := range wildcardLibraries {
			candidate := lib + "." + name
			providesFunction := funcs != nil && funcs.IsProvidedFunction(candidate)
			providesAttribute := attrs != nil && attrs.IsProvidedFunction(candidate)
			if providesFunction || providesAttribute {
				return nil, fmt.Errorf("compiler: %s: import %q collides with wildcard import %q, which already provides %q", imp.Loc, table[name], lib+".*", candidate)
			}
		}
	}
	return table, nil
}
