package store

import (
	"os"
	"testing"
	"time"
)

func TestTraceWriterReader(t *testing.T) {
	dir := t.TempDir()

	tw, err := NewTraceWriter(dir, "run-1")
	if err != nil {
		t.Fatalf("NewTraceWriter failed: %v", err)
	}

	entries := []TraceEntry{
		{Generation: 1, BestCost: 0.41, Grade: 0.62, Timestamp: time.Now().UTC()},
		{Generation: 2, BestCost: 0.30, Grade: 0.48, Timestamp: time.Now().UTC()},
		{
			Generation: 3,
			BestCost:   0.12,
			Grade:      0.33,
			Timestamp:  time.Now().UTC(),
			BestParams: map[string]any{"nb_layers": 2.0, "activation": "relu"},
		},
	}
	for _, entry := range entries {
		if err := tw.Write(entry); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
	}

	if err := tw.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	tr, err := NewTraceReader(dir, "run-1")
	if err != nil {
		t.Fatalf("NewTraceReader failed: %v", err)
	}
	defer tr.Close()

	got, err := tr.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}

	if len(got) != len(entries) {
		t.Fatalf("read %d entries, want %d", len(got), len(entries))
	}
	for i, entry := range got {
		if entry.Generation != entries[i].Generation {
			t.Errorf("entry %d Generation = %d, want %d", i, entry.Generation, entries[i].Generation)
		}
		if entry.BestCost != entries[i].BestCost {
			t.Errorf("entry %d BestCost = %v, want %v", i, entry.BestCost, entries[i].BestCost)
		}
	}

	if got[2].BestParams["activation"] != "relu" {
		t.Errorf("entry 2 BestParams not round-tripped: %v", got[2].BestParams)
	}
}

func TestTraceWriterFlush(t *testing.T) {
	dir := t.TempDir()

	tw, err := NewTraceWriter(dir, "run-1")
	if err != nil {
		t.Fatalf("NewTraceWriter failed: %v", err)
	}
	defer tw.Close()

	if err := tw.Write(TraceEntry{Generation: 1, BestCost: 0.5, Grade: 0.7, Timestamp: time.Now()}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := tw.Flush(); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}

	data, err := os.ReadFile(tw.Path())
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if len(data) == 0 {
		t.Error("trace file empty after flush")
	}
}

func TestTraceReaderMissing(t *testing.T) {
	_, err := NewTraceReader(t.TempDir(), "nope")
	if err == nil {
		t.Fatal("expected error for missing trace")
	}
}
