package task

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltin_ContainsLiteralScenarioTasks(t *testing.T) {
	c := Builtin()
	_, ok := c.CodeTasks["py/is_palindrome"]
	assert.True(t, ok, "S1 scenario task must exist")
	_, ok = c.ToolTasks["file_operations_easy"]
	assert.True(t, ok, "S3 scenario task must exist")
}

func TestValidateCatalog_BuiltinCatalogIsValid(t *testing.T) {
	err := ValidateCatalog(Builtin())
	assert.NoError(t, err)
}

func TestMergeOverlay_OverlayWins(t *testing.T) {
	base := Builtin()
	overlay, err := LoadOverlay([]byte(`
codeTasks:
  - slug: py/is_palindrome
    expectedSymbol: is_palindrome
    difficulty: medium
    tests:
      - inputExpression: "('x',)"
        expectedExpression: "True"
`))
	require.NoError(t, err)

	merged := MergeOverlay(base, overlay)
	assert.Equal(t, DifficultyMedium, merged.CodeTasks["py/is_palindrome"].Difficulty)
}

func TestValidateCatalog_RejectsMissingTestCases(t *testing.T) {
	c := &Catalog{CodeTasks: map[string]CodeTask{
		"bad": {Slug: "bad", ExpectedSymbol: "f", Difficulty: DifficultyEasy},
	}}
	assert.Error(t, ValidateCatalog(c))
}
