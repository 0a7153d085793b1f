package service

import "github.com/voicedesk/callflow/internal/domain/call"

// Webhook paths. The router mounts the handlers here and the call flow
// points gather/record callbacks at them.
const (
	PathVoice           = "/webhook/voice"
	PathConsent         = "/webhook/consent"
	PathAvailability    = "/webhook/availability"
	PathOrder           = "/webhook/order"
	PathOrderConfirm    = "/webhook/order_confirm"
	PathVoiceMessage    = "/webhook/voice_message"
	PathRecorded        = "/webhook/recorded"
	PathRecordingStatus = "/webhook/recording_status"
	PathTranscription   = "/webhook/transcription"
)

// Gather asks the telephony provider to collect keypad input and post it to
// the callback path.
type Gather struct {
	Prompt         string
	CallbackPath   string
	TimeoutSeconds int
	NumDigits      int
	FinishOnKey    string
}

// Record asks the provider to record the caller.
type Record struct {
	CallbackPath       string
	StatusCallbackPath string
	TranscribeCallback string
	Transcribe         bool
	MaxLengthSeconds   int
}

// Action is one response verb. Exactly one field is set per action; the
// webhook layer renders the sequence into provider markup.
type Action struct {
	Say          string
	PauseSeconds int
	Gather       *Gather
	Record       *Record
	DialNumber   string
	DialCallerID string
	Hangup       bool
}

// Reply is the ordered response a webhook sends back to the provider.
type Reply struct {
	Language call.Language
	Actions  []Action
}

func (r *Reply) say(text string) *Reply {
	r.Actions = append(r.Actions, Action{Say: text})
	return r
}

func (r *Reply) pause(seconds int) *Reply {
	r.Actions = append(r.Actions, Action{PauseSeconds: seconds})
	return r
}

func (r *Reply) gather(g Gather) *Reply {
	r.Actions = append(r.Actions, Action{Gather: &g})
	return r
}

func (r *Reply) record(rec Record) *Reply {
	r.Actions = append(r.Actions, Action{Record: &rec})
	return r
}

func (r *Reply) dial(number, callerID string) *Reply {
	r.Actions = append(r.Actions, Action{DialNumber: number, DialCallerID: callerID})
	return r
}

func (r *Reply) hangup() *Reply {
	r.Actions = append(r.Actions, Action{Hangup: true})
	return r
}
