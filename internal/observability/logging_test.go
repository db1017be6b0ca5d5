package observability

import (
	"context"
	"testing"
)

func TestLogContextRoundTrip(t *testing.T) {
	ctx := context.Background()
	ctx = WithBuildID(ctx, "build-1")
	ctx = WithRepo(ctx, "acme/models")
	ctx = WithStage(ctx, "fetch")

	lc := GetContext(ctx)
	if lc.BuildID != "build-1" {
		t.Errorf("expected build-1, got %s", lc.BuildID)
	}
	if lc.Repo != "acme/models" {
		t.Errorf("expected acme/models, got %s", lc.Repo)
	}
	if lc.Stage != "fetch" {
		t.Errorf("expected fetch, got %s", lc.Stage)
	}
}

func TestLogContextEmpty(t *testing.T) {
	lc := GetContext(context.Background())
	if lc != (LogContext{}) {
		t.Errorf("expected zero context, got %+v", lc)
	}
}

func TestLogContextOverwrite(t *testing.T) {
	ctx := WithStage(context.Background(), "resolve")
	ctx = WithStage(ctx, "fetch")
	if got := GetContext(ctx).Stage; got != "fetch" {
		t.Errorf("expected fetch, got %s", got)
	}
}

func TestMetricsCounters(t *testing.T) {
	m := NewMetrics()
	m.RefsResolved.Add(3)
	m.StubsFetched.Inc()
	m.StubsSkipped.Add(2)

	values, err := m.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if values["stubdocs_refs_resolved_total"] != 3 {
		t.Errorf("refs resolved: got %v", values["stubdocs_refs_resolved_total"])
	}
	if values["stubdocs_stubs_skipped_total"] != 2 {
		t.Errorf("stubs skipped: got %v", values["stubdocs_stubs_skipped_total"])
	}
}
