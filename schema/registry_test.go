package schema

import (
	"testing"

	"github.com/sapl-run/sapl-core/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func objectLiteral(pairs ...value.Pair) value.Value {
	return value.FromObject(value.NewObject(pairs...))
}

func TestCompileRejectsNonObjectLiteral(t *testing.T) {
	reg := NewRegistry()
	_, err := reg.Compile(value.SourceLocation{DocumentName: "p.sapl", Line: 3}, value.Text("not a schema"))
	require.Error(t, err)
}

func TestCompileRejectsRef(t *testing.T) {
	reg := NewRegistry()
	loc := value.SourceLocation{DocumentName: "p.sapl", Line: 5}
	schemaWithRef := objectLiteral(value.P("$ref", value.Text("#/definitions/foo")))
	_, err := reg.Compile(loc, schemaWithRef)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "$ref")
}

func TestCompileCachesByLocation(t *testing.T) {
	reg := NewRegistry()
	loc := value.SourceLocation{DocumentName: "p.sapl", Line: 7}
	schemaLit := objectLiteral(value.P("type", value.Text("object")))

	v1, err := reg.Compile(loc, schemaLit)
	require.NoError(t, err)
	v2, err := reg.Compile(loc, schemaLit)
	require.NoError(t, err)
	assert.Same(t, v1, v2)
}

func TestValidateEnforcesType(t *testing.T) {
	reg := NewRegistry()
	loc := value.SourceLocation{DocumentName: "p.sapl", Line: 9}
	schemaLit := objectLiteral(
		value.P("type", value.Text("object")),
		value.P("required", value.Array(value.Text("id"))),
	)
	v, err := reg.Compile(loc, schemaLit)
	require.NoError(t, err)

	require.NoError(t, v.Validate(objectLiteral(value.P("id", value.Text("42")))))
	assert.Error(t, v.Validate(value.Text("not-an-object")))
	assert.Error(t, v.Validate(objectLiteral()))
}
