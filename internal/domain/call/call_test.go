package call

import (
	"testing"
)

func TestNew_RequiresExternalID(t *testing.T) {
	if _, err := New("  ", "+491701234567", nil); err != ErrEmptyExternalID {
		t.Fatalf("expected ErrEmptyExternalID, got %v", err)
	}
}

func TestNew_StartsAtConsent(t *testing.T) {
	c, err := New("CA123", "+491701234567", []string{"+1", "+44"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.CurrentStep != StepAwaitingConsent {
		t.Fatalf("expected new call at %s, got %s", StepAwaitingConsent, c.CurrentStep)
	}
	if c.Status != StatusInProgress {
		t.Fatalf("expected status %s, got %s", StatusInProgress, c.Status)
	}
}

func TestDetectLanguage(t *testing.T) {
	prefixes := []string{"+1", "+44"}

	cases := []struct {
		number string
		want   Language
	}{
		{"+15551234567", LanguageEnglish},
		{"+447911123456", LanguageEnglish},
		{"+491701234567", LanguageGerman},
		{"+390612345678", LanguageGerman},
		{"", LanguageGerman},
	}

	for _, tc := range cases {
		if got := DetectLanguage(tc.number, prefixes); got != tc.want {
			t.Errorf("DetectLanguage(%q) = %s, want %s", tc.number, got, tc.want)
		}
	}
}

func TestAdvance_LegalPath(t *testing.T) {
	c, _ := New("CA123", "+491701234567", nil)

	path := []Step{
		StepAwaitingOrderAvailability,
		StepAwaitingOrderNumber,
		StepAwaitingOrderConfirmation,
		StepOrderLookup,
		StepDeliveryStatusReported,
		StepAwaitingVoiceMessage,
		StepRecording,
		StepRecorded,
		StepAwaitingTranscription,
		StepCompleted,
	}

	for _, next := range path {
		if err := c.Advance(next); err != nil {
			t.Fatalf("Advance(%s) from %s: %v", next, c.CurrentStep, err)
		}
	}

	if !c.Terminal() {
		t.Fatalf("expected %s to be terminal", c.CurrentStep)
	}
}

func TestAdvance_RejectsIllegalTransition(t *testing.T) {
	c, _ := New("CA123", "+491701234567", nil)

	if err := c.Advance(StepRecording); err != ErrIllegalTransition {
		t.Fatalf("expected ErrIllegalTransition for %s -> %s, got %v",
			StepAwaitingConsent, StepRecording, err)
	}
	if c.CurrentStep != StepAwaitingConsent {
		t.Fatalf("step must not move on a rejected transition, got %s", c.CurrentStep)
	}
}

func TestAdvance_TerminalStepsHaveNoExit(t *testing.T) {
	terminals := []Step{
		StepCompleted,
		StepTransferToManager,
		StepEndedDeclined,
		StepEndedNoMessage,
		StepEndedTimeout,
	}

	all := []Step{
		StepIncoming, StepAwaitingConsent, StepAwaitingOrderAvailability,
		StepAwaitingOrderNumber, StepAwaitingOrderConfirmation, StepOrderLookup,
		StepDeliveryStatusReported, StepAwaitingVoiceMessage, StepRecording,
		StepRecorded, StepAwaitingTranscription, StepCompleted,
		StepTransferToManager, StepEndedDeclined, StepEndedNoMessage, StepEndedTimeout,
	}

	for _, from := range terminals {
		for _, to := range all {
			if CanAdvance(from, to) {
				t.Errorf("terminal step %s must not advance to %s", from, to)
			}
		}
	}
}

func TestAdvance_ResetsRetryCountOnForwardMove(t *testing.T) {
	c, _ := New("CA123", "+491701234567", nil)
	c.Retry(5)
	c.Retry(5)

	// A self-transition (re-prompt) keeps the counter.
	if err := c.Advance(StepAwaitingConsent); err != nil {
		t.Fatalf("self-transition failed: %v", err)
	}
	if c.RetryCount != 2 {
		t.Fatalf("self-transition must keep retry count, got %d", c.RetryCount)
	}

	// A forward move clears it.
	if err := c.Advance(StepAwaitingOrderAvailability); err != nil {
		t.Fatalf("forward transition failed: %v", err)
	}
	if c.RetryCount != 0 {
		t.Fatalf("forward transition must reset retry count, got %d", c.RetryCount)
	}
}

func TestRetry_ReportsExceeded(t *testing.T) {
	c, _ := New("CA123", "+491701234567", nil)

	if c.Retry(2) {
		t.Fatalf("first retry must not exceed a budget of 2")
	}
	if c.Retry(2) {
		t.Fatalf("second retry must not exceed a budget of 2")
	}
	if !c.Retry(2) {
		t.Fatalf("third retry must exceed a budget of 2")
	}
}

func TestValidStatus(t *testing.T) {
	for _, s := range Statuses() {
		if !ValidStatus(s) {
			t.Errorf("%s must be a valid status", s)
		}
	}
	if ValidStatus("HANDLED") {
		t.Errorf("unknown status must be invalid")
	}
}
