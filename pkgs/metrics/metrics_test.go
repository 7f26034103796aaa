package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	r, err := NewRecorder(reg)
	require.NoError(t, err)

	r.Tag("UNKNOWN_SENDER")
	r.Tag("UNKNOWN_SENDER")
	r.Tag("STAGE_TIMED_OUT")
	r.Outcome("signing", true)
	r.Outcome("keygen", false)
	r.Active("keygen", 3)
	r.Message("out", errors.New("unreachable"))

	require.Equal(t, 2.0, testutil.ToFloat64(r.tags.WithLabelValues("UNKNOWN_SENDER")))
	require.Equal(t, 1.0, testutil.ToFloat64(r.outcomes.WithLabelValues("keygen", "failure")))
	require.Equal(t, 3.0, testutil.ToFloat64(r.active.WithLabelValues("keygen")))
	require.Equal(t, 1.0, testutil.ToFloat64(r.messages.WithLabelValues("out", "error")))

	// registering twice fails
	_, err = NewRecorder(reg)
	require.Error(t, err)
}

func TestNilRecorder(t *testing.T) {
	var r *Recorder
	require.NotPanics(t, func() {
		r.Tag("x")
		r.Outcome("keygen", true)
			r.Active("signing", 1)
		r.Message("in", nil)
	})
}
