package metric

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/yndnr/gridsession-go/pkg/sessionstore"
)

func TestNewRegistry(t *testing.T) {
	r := NewRegistry()
	if r.registry == nil {
		t.Fatal("registry field is nil")
	}
	if r.StoreOps == nil || r.StoreOpDuration == nil || r.GridRequests == nil || r.HTTPRequests == nil {
		t.Error("metric fields are nil")
	}
}

func TestGlobal(t *testing.T) {
	if Global() != Global() {
		t.Error("Global() should return the same instance")
	}
}

func TestStoreObserver(t *testing.T) {
	r := NewRegistry()
	obs := r.StoreObserver()

	_, done := obs.StartOp(context.Background(), sessionstore.OpSet)
	done(nil)
	_, done = obs.StartOp(context.Background(), sessionstore.OpSet)
	done(errors.New("boom"))
	_, done = obs.StartOp(context.Background(), sessionstore.OpGet)
	done(nil)

	if got := testutil.ToFloat64(r.StoreOps.WithLabelValues("set", "ok")); got != 1 {
		t.Errorf("set/ok = %v, want 1", got)
	}
	if got := testutil.ToFloat64(r.StoreOps.WithLabelValues("set", "error")); got != 1 {
		t.Errorf("set/error = %v, want 1", got)
	}
	if got := testutil.CollectAndCount(r.StoreOpDuration); got != 2 {
		t.Errorf("duration series = %d, want 2", got)
	}
}

func TestHandler(t *testing.T) {
	r := NewRegistry()
	r.GridMembers.Set(3)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	if rec.Code != 200 {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(string(body), "gridsession_grid_members 3") {
		t.Errorf("metrics output missing gauge:\n%s", body)
	}
	if !strings.Contains(string(body), "go_goroutines") {
		t.Error("Go collector not registered")
	}
}
