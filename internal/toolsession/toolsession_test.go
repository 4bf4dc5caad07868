package toolsession

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsSafePath_RejectsDenyListedPrefixesAndTraversal(t *testing.T) {
	assert.False(t, isSafePath("/etc/passwd"))
	assert.False(t, isSafePath("/proc/1/mem"))
	assert.False(t, isSafePath("../../etc/shadow"))
	assert.False(t, isSafePath("configs/../../../etc/passwd"))
	assert.True(t, isSafePath("hello.txt"))
	assert.True(t, isSafePath("subdir/output.txt"))
}

func TestIsSafePath_RejectsSensitiveBasenameEvenRelative(t *testing.T) {
	assert.False(t, isSafePath("backup/passwd"))
}

func TestIsSafePath_RejectsAnyAbsolutePathRegardlessOfDenyList(t *testing.T) {
	assert.False(t, isSafePath("/root/.bashrc"))
	assert.False(t, isSafePath("/home/app/id_rsa_backup"))
	assert.False(t, isSafePath("/tmp/anything.txt"))
}

func TestParseArguments_DecodesStringAndNonStringValues(t *testing.T) {
	args, err := parseArguments(`{"path":"a.txt","count":3}`)
	require.NoError(t, err)
	assert.Equal(t, "a.txt", args["path"])
	assert.Equal(t, "3", args["count"])
}

func TestParseArguments_EmptyStringYieldsEmptyMap(t *testing.T) {
	args, err := parseArguments("")
	require.NoError(t, err)
	assert.Empty(t, args)
}

func TestComputeRubric_ToolSelectionMatchesExpectedTools(t *testing.T) {
	calls := []CallRecord{
		{ToolName: "write_to_file", Success: true},
		{ToolName: "read_file", Success: true},
	}
	r := ComputeRubric(calls, []string{"write_to_file", "read_file"}, 4, 2, 6, 3, true)
	assert.Equal(t, 1.0, r.ToolSelection)
	assert.Equal(t, 1.0, r.TaskCompletion)
}

func TestComputeRubric_ErrorHandlingCountsLaterSuccessOfSameTool(t *testing.T) {
	calls := []CallRecord{
		{ToolName: "read_file", Success: false},
		{ToolName: "read_file", Success: true},
	}
	r := ComputeRubric(calls, nil, 4, 2, 6, 3, false)
	assert.Equal(t, 1.0, r.ErrorHandling)
}

func TestComputeRubric_SafetyComplianceAccountsForDangerousCalls(t *testing.T) {
	calls := []CallRecord{
		{ToolName: "read_file", Success: false, Dangerous: true},
		{ToolName: "write_to_file", Success: true},
	}
	r := ComputeRubric(calls, nil, 4, 2, 6, 3, false)
	assert.InDelta(t, 0.5, r.SafetyCompliance, 1e-9)
}

func TestComputeRubric_EfficiencyPenalizesManyCalls(t *testing.T) {
	many := make([]CallRecord, 20)
	for i := range many {
		many[i] = CallRecord{ToolName: "run_command", Success: true}
	}
	r := ComputeRubric(many, nil, 4, 6, 6, 3, true)
	assert.Equal(t, 0.0, r.Efficiency)
}
