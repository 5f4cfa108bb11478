package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusForOutcome(t *testing.T) {
	assert.Equal(t, RunStatusComplete, StatusForOutcome(OutcomeComplete))
	assert.Equal(t, RunStatusPartial, StatusForOutcome(OutcomePartial))
	assert.Equal(t, RunStatusFailed, StatusForOutcome(OutcomeFailed))
	assert.Equal(t, RunStatusFailed, StatusForOutcome(Outcome("bogus")))
}

func TestHarvestResultRoundTrip(t *testing.T) {
	result := HarvestResult{
		Keyword: "illustrator",
		Outcome: OutcomePartial,
		Records: []Record{{ID: 1, Username: "anna"}},
		Failures: []Failure{{
			Ref:      ProfileRef{Username: "bruno", Page: 2, Ordinal: 3},
			Stage:    StageExtract,
			Kind:     FailureKindHTTPStatus,
			Message:  "status 503",
			Attempts: 4,
		}},
		Discovered:   2,
		PagesFetched: 2,
		DurationMS:   1500,
	}

	data, err := json.Marshal(result)
	require.NoError(t, err)

	var got HarvestResult
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, result, got)
}

func TestFailureOmitsZeroAttempts(t *testing.T) {
	f := Failure{Stage: StageDiscovery, Kind: FailureKindNetwork}
	data, err := json.Marshal(f)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "attempts")
}
