package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"subtrack/internal/core"
)

func TestObserveOperation(t *testing.T) {
	before := testutil.ToFloat64(operationsTotal.WithLabelValues("test_op", OutcomeOK))
	ObserveOperation("test_op", time.Now(), nil)
	assert.Equal(t, before+1, testutil.ToFloat64(operationsTotal.WithLabelValues("test_op", OutcomeOK)))

	ObserveOperation("test_op", time.Now(), core.NotFound("x"))
	assert.Equal(t, 1.0, testutil.ToFloat64(operationsTotal.WithLabelValues("test_op", string(core.ErrorCodeNotFound))))

	ObserveOperation("test_op", time.Now(), errors.New("boom"))
	assert.Equal(t, 1.0, testutil.ToFloat64(operationsTotal.WithLabelValues("test_op", OutcomeError)))
}

func TestRecordIngest(t *testing.T) {
	RecordIngest("", 3, 1)
	assert.Equal(t, 3.0, testutil.ToFloat64(recordsIngested.WithLabelValues("api")))
	assert.Equal(t, 1.0, testutil.ToFloat64(recordsSkipped.WithLabelValues("api")))
}

func TestHTTPStarted(t *testing.T) {
	done := HTTPStarted("GET")
	assert.Equal(t, 1.0, testutil.ToFloat64(httpRequestsInFlight))
	done(200)
	assert.Equal(t, 0.0, testutil.ToFloat64(httpRequestsInFlight))
	assert.Equal(t, 1.0, testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "200")))
}
