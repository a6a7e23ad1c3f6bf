package ast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAlgorithmRecognizesEveryCanonicalName(t *testing.T) {
	cases := map[string]Algorithm{
		"denyOverrides":     DenyOverrides,
		"permitOverrides":   PermitOverrides,
		"firstApplicable":   FirstApplicable,
		"onlyOneApplicable": OnlyOneApplicable,
		"denyUnlessPermit":  DenyUnlessPermit,
		"permitUnlessDeny":  PermitUnlessDeny,
	}
	for name, want := range cases {
		got, err := ParseAlgorithm(name)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestParseAlgorithmDefaultsEmptyStringToDenyOverrides(t *testing.T) {
	got, err := ParseAlgorithm("")
	require.NoError(t, err)
	assert.Equal(t, DenyOverrides, got)
}

func TestParseAlgorithmRejectsUnknownName(t *testing.T) {
	_, err := ParseAlgorithm("bogus")
	require.Error(t, err)
}
