package recording

import (
	"testing"

	"github.com/google/uuid"
)

func TestApplyRecorded_MergesURLAndDuration(t *testing.T) {
	r := New(uuid.New(), "RE123")

	changed := r.ApplyRecorded("https://recordings.example/RE123", 42, "")
	if !changed {
		t.Fatalf("first recorded event must report a change")
	}
	if r.URL != "https://recordings.example/RE123" || r.DurationSeconds != 42 {
		t.Fatalf("recorded fields not stored: url=%q duration=%d", r.URL, r.DurationSeconds)
	}

	// An identical duplicate event changes nothing.
	if r.ApplyRecorded("https://recordings.example/RE123", 42, "") {
		t.Fatalf("duplicate recorded event must not report a change")
	}
}

func TestApplyTranscript_EmptyTextNeverErases(t *testing.T) {
	r := New(uuid.New(), "RE123")

	r.ApplyTranscript("Hallo, meine Bestellung fehlt.", TranscriptCompleted)
	if !r.HasTranscript() {
		t.Fatalf("transcript should be stored")
	}

	if r.ApplyTranscript("", TranscriptCompleted) {
		t.Fatalf("empty text must not count as a change")
	}
	if r.TranscriptText != "Hallo, meine Bestellung fehlt." {
		t.Fatalf("empty text erased the stored transcript: %q", r.TranscriptText)
	}
}

func TestApplyTranscript_ChangedContentReArmsNotification(t *testing.T) {
	r := New(uuid.New(), "RE123")

	r.ApplyTranscript("erste Fassung", TranscriptCompleted)
	r.MarkNotified()

	// The same text again is not a change and keeps the notified flag.
	if r.ApplyTranscript("erste Fassung", TranscriptCompleted) {
		t.Fatalf("identical text must not count as a change")
	}
	if !r.Notified {
		t.Fatalf("identical text must keep the notified flag")
	}

	// Different text is a change and clears it.
	if !r.ApplyTranscript("zweite, bessere Fassung", TranscriptCompleted) {
		t.Fatalf("new text must count as a change")
	}
	if r.Notified {
		t.Fatalf("changed content must clear the notified flag")
	}
}

func TestApplyTranscript_FailedNeverDowngradesCompleted(t *testing.T) {
	r := New(uuid.New(), "RE123")

	r.ApplyTranscript("fertig", TranscriptCompleted)
	r.ApplyTranscript("", TranscriptFailed)

	if r.TranscriptStatus != TranscriptCompleted {
		t.Fatalf("a late failure event must not downgrade status, got %s", r.TranscriptStatus)
	}
}

func TestApplyRecorded_InlineTranscriptFollowsMergeRules(t *testing.T) {
	r := New(uuid.New(), "RE123")

	r.ApplyTranscript("aus dem Callback", TranscriptCompleted)
	r.MarkNotified()

	// A recorded event with an empty inline transcript must not erase or
	// re-arm anything.
	r.ApplyRecorded("https://recordings.example/RE123", 10, "")
	if r.TranscriptText != "aus dem Callback" {
		t.Fatalf("inline empty transcript erased stored text")
	}
	if !r.Notified {
		t.Fatalf("unrelated recorded fields must not clear the notified flag")
	}
}
