package events

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFileRecorder_RecordAssignsSeqAndTimestamp(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	rec, err := NewFileRecorder(path, os.Stderr)
	if err != nil {
		t.Fatalf("NewFileRecorder: %v", err)
	}
	defer rec.Close() //nolint:errcheck // test cleanup

	rec.Record(Event{Type: ServerStarted, Actor: "session-manager"})
	rec.Record(Event{Type: SessionCreated, Actor: "session-manager", Subject: "alice"})

	all, err := ReadAll(path)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("ReadAll returned %d events, want 2", len(all))
	}
	if all[0].Seq != 1 || all[1].Seq != 2 {
		t.Errorf("seqs = %d, %d; want 1, 2", all[0].Seq, all[1].Seq)
	}
	for _, e := range all {
		if e.Ts.IsZero() {
			t.Error("Record should fill in Ts when zero")
		}
	}
}

func TestFileRecorder_ResumesSeqAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	rec, err := NewFileRecorder(path, os.Stderr)
	if err != nil {
		t.Fatalf("NewFileRecorder: %v", err)
	}
	rec.Record(Event{Type: ServerStarted})
	rec.Record(Event{Type: SessionCreated})
	if err := rec.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	rec2, err := NewFileRecorder(path, os.Stderr)
	if err != nil {
		t.Fatalf("reopening NewFileRecorder: %v", err)
	}
	defer rec2.Close() //nolint:errcheck // test cleanup

	rec2.Record(Event{Type: ServerStopped})
	seq, err := ReadLatestSeq(path)
	if err != nil {
		t.Fatalf("ReadLatestSeq: %v", err)
	}
	if seq != 3 {
		t.Errorf("LatestSeq after reopen = %d, want 3 (seq should continue monotonically)", seq)
	}
}

func TestFileRecorder_List(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	rec, err := NewFileRecorder(path, os.Stderr)
	if err != nil {
		t.Fatalf("NewFileRecorder: %v", err)
	}
	defer rec.Close() //nolint:errcheck // test cleanup

	rec.Record(Event{Type: AuthenticationFailed, Actor: "alice"})
	rec.Record(Event{Type: SessionCreated, Actor: "alice"})
	rec.Record(Event{Type: SessionCreated, Actor: "bob"})

	got, err := rec.List(Filter{Type: SessionCreated})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("List(Type=SessionCreated) returned %d events, want 2", len(got))
	}

	got, err = rec.List(Filter{Actor: "bob"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 1 || got[0].Actor != "bob" {
		t.Errorf("List(Actor=bob) = %v, want a single event from bob", got)
	}
}

func TestReadAll_MissingFile(t *testing.T) {
	events, err := ReadAll(filepath.Join(t.TempDir(), "missing.jsonl"))
	if err != nil {
		t.Fatalf("ReadAll of a missing file should not error: %v", err)
	}
	if events != nil {
		t.Errorf("ReadAll of a missing file = %v, want nil", events)
	}
}

func TestReadFiltered_AfterSeq(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	rec, err := NewFileRecorder(path, os.Stderr)
	if err != nil {
		t.Fatalf("NewFileRecorder: %v", err)
	}
	defer rec.Close() //nolint:errcheck // test cleanup

	rec.Record(Event{Type: ServerStarted})
	rec.Record(Event{Type: SessionCreated})
	rec.Record(Event{Type: SessionTerminated})

	got, err := ReadFiltered(path, Filter{AfterSeq: 1})
	if err != nil {
		t.Fatalf("ReadFiltered: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("ReadFiltered(AfterSeq=1) returned %d events, want 2", len(got))
	}
	if got[0].Seq != 2 || got[1].Seq != 3 {
		t.Errorf("ReadFiltered(AfterSeq=1) seqs = %d, %d; want 2, 3", got[0].Seq, got[1].Seq)
	}
}

func TestReadFrom_Incremental(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	rec, err := NewFileRecorder(path, os.Stderr)
	if err != nil {
		t.Fatalf("NewFileRecorder: %v", err)
	}
	defer rec.Close() //nolint:errcheck // test cleanup

	rec.Record(Event{Type: ServerStarted})

	first, offset, err := ReadFrom(path, 0)
	if err != nil {
		t.Fatalf("ReadFrom: %v", err)
	}
	if len(first) != 1 {
		t.Fatalf("first ReadFrom returned %d events, want 1", len(first))
	}

	rec.Record(Event{Type: SessionCreated})
	second, _, err := ReadFrom(path, offset)
	if err != nil {
		t.Fatalf("ReadFrom at offset: %v", err)
	}
	if len(second) != 1 || second[0].Type != SessionCreated {
		t.Fatalf("ReadFrom at offset returned %v, want just the SessionCreated event", second)
	}
}

func TestDiscard_DropsEverything(t *testing.T) {
	// Discard must satisfy Recorder and never panic regardless of what's
	// passed to it.
	Discard.Record(Event{Type: ServerStarted})
}

func TestFake_RecordsInOrder(t *testing.T) {
	f := NewFake()
	f.Record(Event{Type: ServerStarted})
	f.Record(Event{Type: SessionCreated, Subject: "alice"})

	if len(f.Events) != 2 {
		t.Fatalf("Fake recorded %d events, want 2", len(f.Events))
	}
	if f.Events[0].Type != ServerStarted || f.Events[1].Subject != "alice" {
		t.Errorf("Fake.Events = %+v", f.Events)
	}
}
