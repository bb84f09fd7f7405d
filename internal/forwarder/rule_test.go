package forwarder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRuleEvaluator(t *testing.T) {
	e, err := newRuleEvaluator()
	require.NoError(t, err)

	vars := map[string]any{
		"status": "approved", "payout": int64(12), "points": int64(12),
		"offer_id": "ML-100", "user_id": "alice", "placement_id": "P1", "fraud_status": "clean",
	}

	ok, err := e.Eval(`offer_id.startsWith("ML-") && payout > 5`, vars)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = e.Eval(`user_id == "bob"`, vars)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = e.Eval(`points + 1`, vars)
	assert.Error(t, err, "non-boolean rules are rejected")

	_, err = e.Eval(`nope == 1`, vars)
	assert.Error(t, err)
}
