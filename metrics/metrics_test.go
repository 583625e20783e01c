package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstancesAreIndependent(t *testing.T) {
	a := New()
	b := New()

	a.IncrementCapacityLeak()
	a.ObserveBook(time.Now(), "ok")

	assert.Equal(t, 1.0, testutil.ToFloat64(a.CapacityLeaksTotal))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.CapacityLeaksTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(a.BookingsTotal.WithLabelValues("ok")))
}

func TestHandlerExposesRegistry(t *testing.T) {
	m := New()
	m.IncrementSlotRejection("full")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `govbook_slot_rejections_total{reason="full"} 1`)
}
