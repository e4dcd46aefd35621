package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveAdapterCall(t *testing.T) {
	before := testutil.ToFloat64(AdapterOperations.WithLabelValues("bin", "open", "error"))

	ObserveAdapterCall("bin", "open", time.Now(), errors.New("boom"))
	ObserveAdapterCall("bin", "open", time.Now(), nil)

	if got := testutil.ToFloat64(AdapterOperations.WithLabelValues("bin", "open", "error")); got != before+1 {
		t.Fatalf("error counter = %v, want %v", got, before+1)
	}
	if got := testutil.ToFloat64(AdapterOperations.WithLabelValues("bin", "open", "ok")); got < 1 {
		t.Fatalf("ok counter = %v", got)
	}
}
