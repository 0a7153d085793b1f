// Package call holds the domain model and dialogue state machine for calls.
package call

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusInProgress Status = "IN_PROGRESS"
	StatusProcessed  Status = "PROCESSED"
	StatusCompleted  Status = "COMPLETED"
	StatusProblem    Status = "PROBLEM"
)

// Statuses lists every valid call status, used for admin validation.
func Statuses() []Status {
	return []Status{StatusInProgress, StatusProcessed, StatusCompleted, StatusProblem}
}

// ValidStatus reports whether s is a known call status.
func ValidStatus(s Status) bool {
	for _, v := range Statuses() {
		if v == s {
			return true
		}
	}
	return false
}

type Language string

const (
	LanguageGerman  Language = "de"
	LanguageEnglish Language = "en"
)

// Step is a state of the dialogue state machine. A call's current step is
// persisted between webhooks; there is no in-memory session.
type Step string

const (
	StepIncoming                  Step = "INCOMING"
	StepAwaitingConsent           Step = "AWAITING_CONSENT"
	StepAwaitingOrderAvailability Step = "AWAITING_ORDER_AVAILABILITY"
	StepAwaitingOrderNumber       Step = "AWAITING_ORDER_NUMBER"
	StepAwaitingOrderConfirmation Step = "AWAITING_ORDER_CONFIRMATION"
	StepOrderLookup               Step = "ORDER_LOOKUP"
	StepDeliveryStatusReported    Step = "DELIVERY_STATUS_REPORTED"
	StepAwaitingVoiceMessage      Step = "AWAITING_VOICE_MESSAGE_CHOICE"
	StepRecording                 Step = "RECORDING"
	StepRecorded                  Step = "RECORDED"
	StepAwaitingTranscription     Step = "AWAITING_TRANSCRIPTION"
	StepCompleted                 Step = "COMPLETED"
	StepTransferToManager         Step = "TRANSFER_TO_MANAGER"
	StepEndedDeclined             Step = "ENDED_DECLINED"
	StepEndedNoMessage            Step = "ENDED_NO_MESSAGE"
	StepEndedTimeout              Step = "ENDED_TIMEOUT"
)

// transitions is the closed set of legal edges. A step not present as a key is
// terminal. Self-edges (re-prompts) are legal for every input-collecting step.
var transitions = map[Step][]Step{
	StepIncoming:                  {StepAwaitingConsent},
	StepAwaitingConsent:           {StepEndedDeclined, StepAwaitingOrderAvailability, StepAwaitingConsent, StepEndedTimeout},
	StepAwaitingOrderAvailability: {StepAwaitingOrderNumber, StepAwaitingVoiceMessage, StepAwaitingOrderAvailability, StepEndedTimeout},
	StepAwaitingOrderNumber:       {StepAwaitingOrderConfirmation, StepAwaitingOrderNumber, StepAwaitingVoiceMessage},
	StepAwaitingOrderConfirmation: {StepOrderLookup, StepAwaitingOrderNumber, StepAwaitingOrderConfirmation, StepEndedTimeout},
	StepOrderLookup:               {StepTransferToManager, StepDeliveryStatusReported, StepAwaitingVoiceMessage},
	StepDeliveryStatusReported:    {StepAwaitingVoiceMessage},
	StepAwaitingVoiceMessage:      {StepRecording, StepEndedNoMessage, StepAwaitingVoiceMessage, StepEndedTimeout},
	StepRecording:                 {StepRecorded},
	StepRecorded:                  {StepCompleted, StepAwaitingTranscription},
	StepAwaitingTranscription:     {StepCompleted},
}

var (
	// ErrEmptyExternalID is returned when the telephony provider call id is missing.
	ErrEmptyExternalID = errors.New("external call id is required")
	// ErrIllegalTransition is returned when a step change is not in the transition table.
	ErrIllegalTransition = errors.New("illegal step transition")
)

// Call is the durable per-call record. All dialogue continuity is
// reconstructed from it; webhooks carry only the external call id.
type Call struct {
	ID           uuid.UUID
	ExternalID   string
	CallerNumber string
	Language     Language
	Status       Status
	CurrentStep  Step
	RetryCount   int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// New constructs a Call for a never-seen external call id, positioned at the
// consent question.
func New(externalID, callerNumber string, englishPrefixes []string) (*Call, error) {
	externalID = strings.TrimSpace(externalID)
	if externalID == "" {
		return nil, ErrEmptyExternalID
	}

	return &Call{
		ID:           uuid.New(),
		ExternalID:   externalID,
		CallerNumber: strings.TrimSpace(callerNumber),
		Language:     DetectLanguage(callerNumber, englishPrefixes),
		Status:       StatusInProgress,
		CurrentStep:  StepAwaitingConsent,
		CreatedAt:    time.Now(),
	}, nil
}

// DetectLanguage picks the dialogue language from the caller number prefix.
// Anything outside the configured prefixes defaults to German.
func DetectLanguage(callerNumber string, englishPrefixes []string) Language {
	n := strings.TrimSpace(callerNumber)
	for _, p := range englishPrefixes {
		if p != "" && strings.HasPrefix(n, p) {
			return LanguageEnglish
		}
	}
	return LanguageGerman
}

// CanAdvance reports whether from → to is an edge of the transition table.
func CanAdvance(from, to Step) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Advance moves the call to the given step, enforcing the transition table.
// A forward transition resets the retry counter of the step being left;
// a self-transition (re-prompt) keeps it.
func (c *Call) Advance(to Step) error {
	if !CanAdvance(c.CurrentStep, to) {
		return ErrIllegalTransition
	}
	if to != c.CurrentStep {
		c.RetryCount = 0
	}
	c.CurrentStep = to
	return nil
}

// Retry counts one more invalid/empty attempt for the current step and
// reports whether the configured maximum has now been exceeded.
func (c *Call) Retry(maxRetries int) (exceeded bool) {
	c.RetryCount++
	return c.RetryCount > maxRetries
}

// Terminal reports whether the call can take no further transition.
func (c *Call) Terminal() bool {
	return len(transitions[c.CurrentStep]) == 0
}

// MarkProblem flags the call for manager hand-off.
func (c *Call) MarkProblem() { c.Status = StatusProblem }

// MarkProcessed records that the caller's request was answered.
func (c *Call) MarkProcessed() { c.Status = StatusProcessed }

// MarkCompleted records a clean end of the interaction.
func (c *Call) MarkCompleted() { c.Status = StatusCompleted }
