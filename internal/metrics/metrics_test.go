package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterIsIdempotent(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, Register(reg))
	require.NoError(t, Register(reg))
}

func TestObserveRequestNormalisesOutcome(t *testing.T) {
	before := testutil.ToFloat64(requestsTotal.WithLabelValues("GET", OutcomeSuccess))
	ObserveRequest("GET", -time.Second, "whatever")
	after := testutil.ToFloat64(requestsTotal.WithLabelValues("GET", OutcomeSuccess))
	assert.Equal(t, before+1, after)
}

func TestObserveRefreshCountsErrors(t *testing.T) {
	before := testutil.ToFloat64(tokenRefreshTotal.WithLabelValues(OutcomeError))
	ObserveRefresh(OutcomeError)
	assert.Equal(t, before+1, testutil.ToFloat64(tokenRefreshTotal.WithLabelValues(OutcomeError)))
}
