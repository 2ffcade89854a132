package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestStatusClass(t *testing.T) {
	assert.Equal(t, "2xx", StatusClass(200))
	assert.Equal(t, "5xx", StatusClass(503))
	assert.Equal(t, "transport_error", StatusClass(0))
}

func TestResult(t *testing.T) {
	assert.Equal(t, ResultSuccess, Result(nil))
	assert.Equal(t, ResultError, Result(errors.New("x")))
}

func TestObserveAfterInit(t *testing.T) {
	Init()
	Init()

	ObservePage("Acme", 200)
	ObservePage("Acme", 200)
	ObservePage("Acme", 500)
	ObserveCollectedRecords("Acme", 42)
	ObserveOpen("Acme", 1234.5, 3)
	ObserveCollection("Acme", "", time.Second)

	assert.Equal(t, 2.0, testutil.ToFloat64(pagesTotal.WithLabelValues("Acme", "2xx")))
	assert.Equal(t, 1.0, testutil.ToFloat64(pagesTotal.WithLabelValues("Acme", "5xx")))
	assert.Equal(t, 42.0, testutil.ToFloat64(recordsCollected.WithLabelValues("Acme")))
	assert.Equal(t, 1234.5, testutil.ToFloat64(openTotal.WithLabelValues("Acme")))
	assert.Equal(t, 1.0, testutil.ToFloat64(collectionTotal.WithLabelValues("Acme", ResultSuccess)))
}
