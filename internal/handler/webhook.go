package handler

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/twilio/twilio-go/twiml"

	"github.com/voicedesk/callflow/internal/domain/call"
	"github.com/voicedesk/callflow/internal/prompts"
	"github.com/voicedesk/callflow/internal/service"
)

// WebhookHandler receives the telephony provider callbacks and renders the
// call flow's replies as TwiML.
type WebhookHandler struct {
	flow            service.CallFlow
	voiceName       string
	englishPrefixes []string
}

// NewWebhookHandler constructs a WebhookHandler.
func NewWebhookHandler(flow service.CallFlow, voiceName string, englishPrefixes []string) *WebhookHandler {
	return &WebhookHandler{flow: flow, voiceName: voiceName, englishPrefixes: englishPrefixes}
}

// Voice handles the initial incoming-call webhook.
func (h *WebhookHandler) Voice(w http.ResponseWriter, r *http.Request) {
	externalID, ok := h.requireCallSid(w, r)
	if !ok {
		return
	}

	reply, err := h.flow.StartCall(r.Context(), externalID, r.PostFormValue("From"))
	h.respond(w, r, reply, err)
}

// Consent handles the consent digit.
func (h *WebhookHandler) Consent(w http.ResponseWriter, r *http.Request) {
	h.digitStep(w, r, h.flow.Consent)
}

// Availability handles the order-availability digit.
func (h *WebhookHandler) Availability(w http.ResponseWriter, r *http.Request) {
	h.digitStep(w, r, h.flow.OrderAvailability)
}

// Order handles the typed order number.
func (h *WebhookHandler) Order(w http.ResponseWriter, r *http.Request) {
	h.digitStep(w, r, h.flow.OrderNumber)
}

// OrderConfirm handles the order confirmation digit.
func (h *WebhookHandler) OrderConfirm(w http.ResponseWriter, r *http.Request) {
	h.digitStep(w, r, h.flow.OrderConfirm)
}

// VoiceMessage handles the voicemail choice digit.
func (h *WebhookHandler) VoiceMessage(w http.ResponseWriter, r *http.Request) {
	h.digitStep(w, r, h.flow.VoiceMessageChoice)
}

// Recorded handles the recording-completed webhook.
func (h *WebhookHandler) Recorded(w http.ResponseWriter, r *http.Request) {
	externalID, ok := h.requireCallSid(w, r)
	if !ok {
		return
	}

	duration, _ := strconv.Atoi(r.PostFormValue("RecordingDuration"))
	ev := service.RecordingEvent{
		RecordingSID:     r.PostFormValue("RecordingSid"),
		URL:              r.PostFormValue("RecordingUrl"),
		DurationSeconds:  duration,
		InlineTranscript: r.PostFormValue("TranscriptionText"),
	}

	reply, err := h.flow.Recorded(r.Context(), externalID, ev)
	h.respond(w, r, reply, err)
}

// RecordingStatus handles the recording status callback. The provider
// ignores the response body, so only the status code matters.
func (h *WebhookHandler) RecordingStatus(w http.ResponseWriter, r *http.Request) {
	externalID, ok := h.requireCallSid(w, r)
	if !ok {
		return
	}

	err := h.flow.RecordingStatus(r.Context(), externalID,
		r.PostFormValue("RecordingSid"), r.PostFormValue("RecordingStatus"))
	h.respondStatusOnly(w, err)
}

// Transcription handles the transcription callback.
func (h *WebhookHandler) Transcription(w http.ResponseWriter, r *http.Request) {
	externalID, ok := h.requireCallSid(w, r)
	if !ok {
		return
	}

	err := h.flow.Transcription(r.Context(), externalID,
		r.PostFormValue("RecordingSid"),
		r.PostFormValue("TranscriptionText"),
		r.PostFormValue("TranscriptionStatus"))
	h.respondStatusOnly(w, err)
}

func (h *WebhookHandler) digitStep(w http.ResponseWriter, r *http.Request,
	step func(ctx context.Context, externalID, digits string) (*service.Reply, error)) {

	externalID, ok := h.requireCallSid(w, r)
	if !ok {
		return
	}

	reply, err := step(r.Context(), externalID, r.PostFormValue("Digits"))
	h.respond(w, r, reply, err)
}

func (h *WebhookHandler) requireCallSid(w http.ResponseWriter, r *http.Request) (string, bool) {
	externalID := r.PostFormValue("CallSid")
	if externalID == "" {
		h.writeTwiML(w, http.StatusBadRequest, h.fallbackTwiML(r))
		return "", false
	}
	return externalID, true
}

func (h *WebhookHandler) respond(w http.ResponseWriter, r *http.Request, reply *service.Reply, err error) {
	switch {
	case err == nil:
		body, rErr := h.renderReply(reply)
		if rErr != nil {
			log.Printf("[Webhook] Failed to render reply: %v", rErr)
			h.writeTwiML(w, http.StatusInternalServerError, h.fallbackTwiML(r))
			return
		}
		h.writeTwiML(w, http.StatusOK, body)

	case errors.Is(err, call.ErrCallNotFound):
		// The provider referenced a call this system never saw; end the
		// call politely and flag the anomaly in the status code.
		log.Printf("[Webhook] Unknown call on %s", r.URL.Path)
		h.writeTwiML(w, http.StatusNotFound, h.fallbackTwiML(r))

	default:
		log.Printf("[Webhook] %s failed: %v", r.URL.Path, err)
		h.writeTwiML(w, http.StatusInternalServerError, h.fallbackTwiML(r))
	}
}

func (h *WebhookHandler) respondStatusOnly(w http.ResponseWriter, err error) {
	switch {
	case err == nil:
		w.WriteHeader(http.StatusOK)
	case errors.Is(err, call.ErrCallNotFound):
		w.WriteHeader(http.StatusNotFound)
	default:
		log.Printf("[Webhook] Callback failed: %v", err)
		w.WriteHeader(http.StatusInternalServerError)
	}
}

// renderReply translates the flow's reply into TwiML markup.
func (h *WebhookHandler) renderReply(reply *service.Reply) (string, error) {
	lang := string(reply.Language)
	elements := make([]twiml.Element, 0, len(reply.Actions))

	for _, a := range reply.Actions {
		switch {
		case a.Say != "":
			elements = append(elements, h.say(a.Say, lang))

		case a.PauseSeconds > 0:
			elements = append(elements, &twiml.VoicePause{
				Length: strconv.Itoa(a.PauseSeconds),
			})

		case a.Gather != nil:
			g := &twiml.VoiceGather{
				Input:   "dtmf",
				Action:  a.Gather.CallbackPath,
				Method:  "POST",
				Timeout: strconv.Itoa(a.Gather.TimeoutSeconds),
			}
			if a.Gather.NumDigits > 0 {
				g.NumDigits = strconv.Itoa(a.Gather.NumDigits)
			}
			if a.Gather.FinishOnKey != "" {
				g.FinishOnKey = a.Gather.FinishOnKey
			}
			if a.Gather.Prompt != "" {
				g.InnerElements = []twiml.Element{h.say(a.Gather.Prompt, lang)}
			}
			elements = append(elements, g)

		case a.Record != nil:
			rec := &twiml.VoiceRecord{
				Action:                  a.Record.CallbackPath,
				Method:                  "POST",
				MaxLength:               strconv.Itoa(a.Record.MaxLengthSeconds),
				RecordingStatusCallback: a.Record.StatusCallbackPath,
			}
			if a.Record.Transcribe {
				rec.Transcribe = "true"
				rec.TranscribeCallback = a.Record.TranscribeCallback
			}
			elements = append(elements, rec)

		case a.DialNumber != "":
			elements = append(elements, &twiml.VoiceDial{
				CallerId: a.DialCallerID,
				InnerElements: []twiml.Element{
					&twiml.VoiceNumber{PhoneNumber: a.DialNumber},
				},
			})

		case a.Hangup:
			elements = append(elements, &twiml.VoiceHangup{})
		}
	}

	return twiml.Voice(elements)
}

func (h *WebhookHandler) say(message, lang string) *twiml.VoiceSay {
	return &twiml.VoiceSay{
		Message:  message,
		Voice:    h.voiceName,
		Language: speechLanguage(lang),
	}
}

// speechLanguage maps the call's language to the locale tag the speech
// engine expects.
func speechLanguage(lang string) string {
	switch call.Language(lang) {
	case call.LanguageEnglish:
		return "en-US"
	default:
		return "de-DE"
	}
}

// fallbackTwiML builds the error/unknown-call response, in the language the
// caller number suggests.
func (h *WebhookHandler) fallbackTwiML(r *http.Request) string {
	lang := call.DetectLanguage(r.PostFormValue("From"), h.englishPrefixes)
	body, err := twiml.Voice([]twiml.Element{
		h.say(prompts.SystemError(lang), string(lang)),
		&twiml.VoiceHangup{},
	})
	if err != nil {
		return ""
	}
	return body
}

func (h *WebhookHandler) writeTwiML(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/xml; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}
