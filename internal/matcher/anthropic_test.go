package matcher

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseResult(t *testing.T) {
	result, err := ParseResult(`{
		"matches": [
			{"candidate_id": "w1", "confidence": 0.85, "rationale": "thread reports progress",
			 "state_change": {"to_state_name": "Done", "to_state_type": "completed"}}
		],
		"new_work": {"confidence": 0.1, "rationale": "nothing new"}
	}`)
	require.NoError(t, err)
	require.Len(t, result.Matches, 1)
	require.Equal(t, "w1", result.Matches[0].CandidateID)
	require.InDelta(t, 0.85, result.Matches[0].Confidence, 1e-9)
	require.NotNil(t, result.Matches[0].StateChange)
	require.Equal(t, "completed", result.Matches[0].StateChange.ToStateType)
	require.InDelta(t, 0.1, result.NewWork.Confidence, 1e-9)
}

func TestParseResultCodeFence(t *testing.T) {
	result, err := ParseResult("```json\n{\"matches\": [], \"new_work\": {\"confidence\": 0}}\n```")
	require.NoError(t, err)
	require.Empty(t, result.Matches)
}

func TestParseResultRejectsGarbage(t *testing.T) {
	_, err := ParseResult("I could not determine any matches, sorry!")
	require.Error(t, err)
}

func TestParseResultRejectsOutOfRangeConfidence(t *testing.T) {
	_, err := ParseResult(`{"matches": [{"candidate_id": "w1", "confidence": 1.7, "rationale": "x"}]}`)
	require.Error(t, err)
}
