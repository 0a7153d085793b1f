package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/voicedesk/callflow/internal/domain/call"
	"github.com/voicedesk/callflow/internal/service"
)

// stubFlow answers every call flow method with one canned reply.
type stubFlow struct {
	reply *service.Reply
	err   error

	lastExternalID string
	lastDigits     string
	lastEvent      service.RecordingEvent
}

func (s *stubFlow) StartCall(_ context.Context, externalID, _ string) (*service.Reply, error) {
	s.lastExternalID = externalID
	return s.reply, s.err
}

func (s *stubFlow) digit(externalID, digits string) (*service.Reply, error) {
	s.lastExternalID = externalID
	s.lastDigits = digits
	return s.reply, s.err
}

func (s *stubFlow) Consent(_ context.Context, externalID, digits string) (*service.Reply, error) {
	return s.digit(externalID, digits)
}

func (s *stubFlow) OrderAvailability(_ context.Context, externalID, digits string) (*service.Reply, error) {
	return s.digit(externalID, digits)
}

func (s *stubFlow) OrderNumber(_ context.Context, externalID, digits string) (*service.Reply, error) {
	return s.digit(externalID, digits)
}

func (s *stubFlow) OrderConfirm(_ context.Context, externalID, digits string) (*service.Reply, error) {
	return s.digit(externalID, digits)
}

func (s *stubFlow) VoiceMessageChoice(_ context.Context, externalID, digits string) (*service.Reply, error) {
	return s.digit(externalID, digits)
}

func (s *stubFlow) Recorded(_ context.Context, externalID string, ev service.RecordingEvent) (*service.Reply, error) {
	s.lastExternalID = externalID
	s.lastEvent = ev
	return s.reply, s.err
}

func (s *stubFlow) RecordingStatus(_ context.Context, externalID, _, _ string) error {
	s.lastExternalID = externalID
	return s.err
}

func (s *stubFlow) Transcription(_ context.Context, externalID, _, _, _ string) error {
	s.lastExternalID = externalID
	return s.err
}

func postForm(t *testing.T, h http.HandlerFunc, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhook/test", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	h(rr, req)
	return rr
}

func sampleReply() *service.Reply {
	r := &service.Reply{Language: call.LanguageGerman}
	r.Actions = []service.Action{
		{Say: "Hallo"},
		{PauseSeconds: 2},
		{Gather: &service.Gather{
			Prompt:         "Drücken Sie 1",
			CallbackPath:   service.PathConsent,
			TimeoutSeconds: 15,
			NumDigits:      1,
		}},
		{Hangup: true},
	}
	return r
}

func TestConsent_RendersReplyAsTwiML(t *testing.T) {
	flow := &stubFlow{reply: sampleReply()}
	h := NewWebhookHandler(flow, "Polly.Vicki", nil)

	rr := postForm(t, h.Consent, url.Values{"CallSid": {"CA1"}, "Digits": {"1"}})

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/xml") {
		t.Fatalf("content type = %q", ct)
	}
	if flow.lastExternalID != "CA1" || flow.lastDigits != "1" {
		t.Fatalf("flow got externalID=%q digits=%q", flow.lastExternalID, flow.lastDigits)
	}

	body := rr.Body.String()
	for _, want := range []string{
		"<Response>",
		"Hallo",
		`language="de-DE"`,
		`voice="Polly.Vicki"`,
		"<Pause",
		`action="/webhook/consent"`,
		"Drücken Sie 1",
		"<Hangup",
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("TwiML missing %q:\n%s", want, body)
		}
	}
}

func TestVoice_MissingCallSidIsRejected(t *testing.T) {
	flow := &stubFlow{reply: sampleReply()}
	h := NewWebhookHandler(flow, "Polly.Vicki", nil)

	rr := postForm(t, h.Voice, url.Values{"From": {"+491701234567"}})

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rr.Code)
	}
	if flow.lastExternalID != "" {
		t.Fatalf("flow must not be invoked without a CallSid")
	}
	if !strings.Contains(rr.Body.String(), "<Hangup") {
		t.Fatalf("rejection must still answer with valid TwiML:\n%s", rr.Body.String())
	}
}

func TestConsent_UnknownCallAnswersPolitely(t *testing.T) {
	flow := &stubFlow{err: call.ErrCallNotFound}
	h := NewWebhookHandler(flow, "Polly.Vicki", []string{"+1"})

	rr := postForm(t, h.Consent, url.Values{"CallSid": {"CA-unknown"}, "Digits": {"1"}, "From": {"+15551234567"}})

	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, `language="en-US"`) {
		t.Fatalf("fallback must speak the caller's language:\n%s", body)
	}
	if !strings.Contains(body, "<Hangup") {
		t.Fatalf("fallback must hang up:\n%s", body)
	}
}

func TestConsent_FlowErrorIsServerError(t *testing.T) {
	flow := &stubFlow{err: errors.New("database down")}
	h := NewWebhookHandler(flow, "Polly.Vicki", nil)

	rr := postForm(t, h.Consent, url.Values{"CallSid": {"CA1"}, "Digits": {"1"}})

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "<Hangup") {
		t.Fatalf("error response must still be valid TwiML")
	}
}

func TestRecorded_ParsesRecordingEvent(t *testing.T) {
	reply := &service.Reply{Language: call.LanguageGerman}
	reply.Actions = []service.Action{{Say: "Danke"}, {Hangup: true}}
	flow := &stubFlow{reply: reply}
	h := NewWebhookHandler(flow, "Polly.Vicki", nil)

	rr := postForm(t, h.Recorded, url.Values{
		"CallSid":           {"CA1"},
		"RecordingSid":      {"RE1"},
		"RecordingUrl":      {"https://recordings.example/RE1"},
		"RecordingDuration": {"42"},
		"TranscriptionText": {"Bitte zurückrufen."},
	})

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	want := service.RecordingEvent{
		RecordingSID:     "RE1",
		URL:              "https://recordings.example/RE1",
		DurationSeconds:  42,
		InlineTranscript: "Bitte zurückrufen.",
	}
	if flow.lastEvent != want {
		t.Fatalf("event = %+v, want %+v", flow.lastEvent, want)
	}
}

func TestRecord_TranscriptionToggleControlsTwiML(t *testing.T) {
	build := func(transcribe bool) string {
		r := &service.Reply{Language: call.LanguageGerman}
		r.Actions = []service.Action{{Record: &service.Record{
			CallbackPath:       service.PathRecorded,
			StatusCallbackPath: service.PathRecordingStatus,
			TranscribeCallback: service.PathTranscription,
			Transcribe:         transcribe,
			MaxLengthSeconds:   60,
		}}}

		h := NewWebhookHandler(&stubFlow{reply: r}, "Polly.Vicki", nil)
		rr := postForm(t, h.VoiceMessage, url.Values{"CallSid": {"CA1"}, "Digits": {"1"}})
		if rr.Code != http.StatusOK {
			t.Fatalf("status = %d", rr.Code)
		}
		return rr.Body.String()
	}

	on := build(true)
	for _, want := range []string{`transcribe="true"`, `transcribeCallback="/webhook/transcription"`, `maxLength="60"`} {
		if !strings.Contains(on, want) {
			t.Fatalf("record TwiML missing %q:\n%s", want, on)
		}
	}

	off := build(false)
	if strings.Contains(off, "transcribe=") {
		t.Fatalf("disabled transcription must not be requested:\n%s", off)
	}
}

func TestTranscription_StatusOnlyResponses(t *testing.T) {
	flow := &stubFlow{}
	h := NewWebhookHandler(flow, "Polly.Vicki", nil)

	rr := postForm(t, h.Transcription, url.Values{
		"CallSid":             {"CA1"},
		"RecordingSid":        {"RE1"},
		"TranscriptionText":   {"Hallo"},
		"TranscriptionStatus": {"completed"},
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if rr.Body.Len() != 0 {
		t.Fatalf("status callback must not carry a body, got %q", rr.Body.String())
	}

	flow.err = call.ErrCallNotFound
	rr = postForm(t, h.Transcription, url.Values{"CallSid": {"CA-unknown"}, "RecordingSid": {"RE1"}})
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rr.Code)
	}
}
