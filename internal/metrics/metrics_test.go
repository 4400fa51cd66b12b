package metrics

import (
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveRelay(t *testing.T) {
	before := testutil.ToFloat64(RelayOutcomes.WithLabelValues("chat", "429"))
	ObserveRelay("chat", http.StatusTooManyRequests, time.Now())
	assert.Equal(t, before+1, testutil.ToFloat64(RelayOutcomes.WithLabelValues("chat", "429")))
}

func TestRegister(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NotPanics(t, func() { Register(reg) })

	HTTPRequests.WithLabelValues("/chat", "200").Inc()
	families, err := reg.Gather()
	require.NoError(t, err)

	var names []string
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "iacolhe_http_requests_total")
}
