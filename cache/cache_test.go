package cache

import (
	"testing"

	"github.com/athellier/larecherche/agent"
)

func TestCacheRoundTrip(t *testing.T) {
	c, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	out := agent.Output{
		Result:     "a cached research summary",
		Confidence: 0.81,
		Metadata:   map[string]string{"source": "orchestrator"},
	}
	if err := c.Set("AI advancements", out); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got, ok := c.Get("AI advancements")
	if !ok {
		t.Fatal("expected cache hit")
	}
	if got.Result != out.Result || got.Confidence != out.Confidence {
		t.Errorf("cached output mismatch: %+v", got)
	}
	if got.Metadata["source"] != "orchestrator" {
		t.Errorf("metadata not preserved: %v", got.Metadata)
	}
}

func TestCacheKeyCaseInsensitive(t *testing.T) {
	c, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if err := c.Set("Quantum Computing", agent.Output{Result: "r", Confidence: 0.5}); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if _, ok := c.Get("quantum computing"); !ok {
		t.Error("case variants of the same query should share one entry")
	}
}

func TestCacheMiss(t *testing.T) {
	c, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if _, ok := c.Get("never stored"); ok {
		t.Error("expected cache miss")
	}
}

func TestCacheOverwrite(t *testing.T) {
	c, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if err := c.Set("q", agent.Output{Result: "old", Confidence: 0.4}); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := c.Set("q", agent.Output{Result: "new", Confidence: 0.9}); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got, ok := c.Get("q")
	if !ok || got.Result != "new" {
		t.Errorf("expected latest entry, got %+v ok=%v", got, ok)
	}
}
