package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/voicedesk/callflow/internal/domain/call"
	"github.com/voicedesk/callflow/internal/domain/conversation"
	"github.com/voicedesk/callflow/internal/domain/order"
	"github.com/voicedesk/callflow/internal/domain/recording"
	"github.com/voicedesk/callflow/internal/lock"
	"github.com/voicedesk/callflow/internal/prompts"
)

// Conversation log step labels.
const (
	stepGreeting        = "greeting"
	stepConsent         = "consent"
	stepAvailability    = "order_availability"
	stepOrderInput      = "order_input"
	stepOrderConfirm    = "order_confirmation"
	stepStatusReport    = "status_report"
	stepEscalation      = "escalation"
	stepVoiceChoice     = "voice_message_choice"
	stepMessageRecorded = "voice_message_recorded"
	stepTranscription   = "transcription"
)

// Gather timeouts in seconds, matching the dialogue pacing: single digits
// are quick, a full order number takes longer to type.
const (
	consentTimeout     = 15
	digitTimeout       = 10
	orderNumberTimeout = 30
)

// RecordingEvent carries a recording-completed webhook.
type RecordingEvent struct {
	RecordingSID     string
	URL              string
	DurationSeconds  int
	InlineTranscript string
}

// CallFlow is the webhook-facing dialogue controller. Every method loads the
// persisted call for the external id, applies one state machine transition
// and returns the spoken reply. Methods for the same call are serialized
// through the per-call lock, so concurrent or duplicated webhooks cannot
// interleave their read-modify-write cycles.
type CallFlow interface {
	StartCall(ctx context.Context, externalID, callerNumber string) (*Reply, error)
	Consent(ctx context.Context, externalID, digits string) (*Reply, error)
	OrderAvailability(ctx context.Context, externalID, digits string) (*Reply, error)
	OrderNumber(ctx context.Context, externalID, digits string) (*Reply, error)
	OrderConfirm(ctx context.Context, externalID, digits string) (*Reply, error)
	VoiceMessageChoice(ctx context.Context, externalID, digits string) (*Reply, error)
	Recorded(ctx context.Context, externalID string, ev RecordingEvent) (*Reply, error)
	RecordingStatus(ctx context.Context, externalID, recordingSID, status string) error
	Transcription(ctx context.Context, externalID, recordingSID, text, status string) error
}

// FlowSettings are the dialogue knobs, passed explicitly from config.
type FlowSettings struct {
	EnglishPrefixes  []string
	ManagerNumber    string
	MaxInputRetries  int
	Transcribe       bool
	MaxRecordSeconds int
	LockTTL          time.Duration
}

type callFlow struct {
	calls      call.Repository
	convs      conversation.Repository
	orders     order.Repository
	recordings recording.Repository
	resolver   OrderResolver
	notifier   NotificationService
	locker     lock.Locker
	settings   FlowSettings
}

// NewCallFlow wires the dialogue controller.
func NewCallFlow(
	calls call.Repository,
	convs conversation.Repository,
	orders order.Repository,
	recordings recording.Repository,
	resolver OrderResolver,
	notifier NotificationService,
	locker lock.Locker,
	settings FlowSettings,
) CallFlow {
	if settings.MaxInputRetries <= 0 {
		settings.MaxInputRetries = 2
	}
	if settings.MaxRecordSeconds <= 0 {
		settings.MaxRecordSeconds = 60
	}
	if settings.LockTTL <= 0 {
		settings.LockTTL = 15 * time.Second
	}

	return &callFlow{
		calls:      calls,
		convs:      convs,
		orders:     orders,
		recordings: recordings,
		resolver:   resolver,
		notifier:   notifier,
		locker:     locker,
		settings:   settings,
	}
}

var _ CallFlow = (*callFlow)(nil)

// callLockKey is the lock key shared by the webhook flow and the
// notification retry loop, so both serialize on the same call.
func callLockKey(externalID string) string {
	return "call:" + externalID
}

// lockCall serializes webhook processing per external call id.
func (s *callFlow) lockCall(ctx context.Context, externalID string) (func(), error) {
	release, err := s.locker.Acquire(ctx, callLockKey(externalID), s.settings.LockTTL)
	if err != nil {
		return nil, fmt.Errorf("lock call %s: %w", externalID, err)
	}
	return release, nil
}

// logConversation appends an audit entry; failures are logged, never fatal.
func (s *callFlow) logConversation(ctx context.Context, c *call.Call, step, input, response string) {
	e := conversation.New(c.ID, step, input, response)
	if err := s.convs.Append(ctx, e); err != nil {
		log.Printf("[CallFlow] Failed to log conversation for %s: %v", c.ExternalID, err)
	}
}

// StartCall implements CallFlow. A repeated voice webhook for a known call
// re-issues the greeting without creating a second record.
func (s *callFlow) StartCall(ctx context.Context, externalID, callerNumber string) (*Reply, error) {
	release, err := s.lockCall(ctx, externalID)
	if err != nil {
		return nil, err
	}
	defer release()

	c, err := s.calls.GetByExternalID(ctx, externalID)
	if err == nil {
		log.Printf("[CallFlow] Duplicate voice webhook for %s, replaying greeting", externalID)
		return s.greetingReply(c), nil
	}
	if err != call.ErrCallNotFound {
		return nil, fmt.Errorf("load call %s: %w", externalID, err)
	}

	c, err = call.New(externalID, callerNumber, s.settings.EnglishPrefixes)
	if err != nil {
		return nil, err
	}
	if err := s.calls.Save(ctx, c); err != nil {
		return nil, fmt.Errorf("save call %s: %w", externalID, err)
	}

	log.Printf("[CallFlow] New call %s from %s (language=%s)", externalID, callerNumber, c.Language)
	s.logConversation(ctx, c, stepGreeting, "", prompts.Greeting(c.Language))

	return s.greetingReply(c), nil
}

func (s *callFlow) greetingReply(c *call.Call) *Reply {
	r := &Reply{Language: c.Language}
	r.say(prompts.Greeting(c.Language))
	r.gather(Gather{
		Prompt:         prompts.ConsentChoices(c.Language),
		CallbackPath:   PathConsent,
		TimeoutSeconds: consentTimeout,
		NumDigits:      1,
	})
	r.say(prompts.Goodbye(c.Language))
	r.hangup()
	return r
}

// Consent implements CallFlow.
func (s *callFlow) Consent(ctx context.Context, externalID, digits string) (*Reply, error) {
	release, err := s.lockCall(ctx, externalID)
	if err != nil {
		return nil, err
	}
	defer release()

	c, err := s.calls.GetByExternalID(ctx, externalID)
	if err != nil {
		return nil, err
	}
	if c.CurrentStep != call.StepAwaitingConsent {
		return s.replay(ctx, c), nil
	}

	digits = strings.TrimSpace(digits)
	s.logConversation(ctx, c, stepConsent, digits, "")

	switch digits {
	case "1":
		if err := s.advance(ctx, c, call.StepAwaitingOrderAvailability); err != nil {
			return nil, err
		}
		log.Printf("[CallFlow] Call %s consented", externalID)

		r := &Reply{Language: c.Language}
		r.say(prompts.ConsentAccepted(c.Language))
		r.gather(Gather{
			Prompt:         prompts.AvailabilityQuestion(c.Language),
			CallbackPath:   PathAvailability,
			TimeoutSeconds: consentTimeout,
			NumDigits:      1,
		})
		r.say(prompts.Goodbye(c.Language))
		r.hangup()
		return r, nil

	case "2":
		c.MarkCompleted()
		if err := s.advance(ctx, c, call.StepEndedDeclined); err != nil {
			return nil, err
		}
		log.Printf("[CallFlow] Call %s declined consent, ending", externalID)

		r := &Reply{Language: c.Language}
		r.say(prompts.ConsentDeclined(c.Language))
		r.say(prompts.Goodbye(c.Language))
		r.hangup()
		return r, nil

	default:
		return s.retryOrTimeout(ctx, c, prompts.ConsentInvalid(c.Language), Gather{
			Prompt:         prompts.ConsentChoices(c.Language),
			CallbackPath:   PathConsent,
			TimeoutSeconds: consentTimeout,
			NumDigits:      1,
		})
	}
}

// OrderAvailability implements CallFlow.
func (s *callFlow) OrderAvailability(ctx context.Context, externalID, digits string) (*Reply, error) {
	release, err := s.lockCall(ctx, externalID)
	if err != nil {
		return nil, err
	}
	defer release()

	c, err := s.calls.GetByExternalID(ctx, externalID)
	if err != nil {
		return nil, err
	}
	if c.CurrentStep != call.StepAwaitingOrderAvailability {
		return s.replay(ctx, c), nil
	}

	digits = strings.TrimSpace(digits)
	s.logConversation(ctx, c, stepAvailability, digits, "")

	switch digits {
	case "1":
		if err := s.advance(ctx, c, call.StepAwaitingOrderNumber); err != nil {
			return nil, err
		}

		r := &Reply{Language: c.Language}
		r.say(prompts.OrderNumberPrompt(c.Language))
		r.gather(Gather{
			CallbackPath:   PathOrder,
			TimeoutSeconds: orderNumberTimeout,
			FinishOnKey:    "#",
		})
		r.say(prompts.Goodbye(c.Language))
		r.hangup()
		return r, nil

	case "2":
		if err := s.advance(ctx, c, call.StepAwaitingVoiceMessage); err != nil {
			return nil, err
		}
		return s.voiceChoiceReply(c), nil

	default:
		return s.retryOrTimeout(ctx, c, prompts.AvailabilityInvalid(c.Language), Gather{
			CallbackPath:   PathAvailability,
			TimeoutSeconds: consentTimeout,
			NumDigits:      1,
		})
	}
}

// OrderNumber implements CallFlow.
func (s *callFlow) OrderNumber(ctx context.Context, externalID, digits string) (*Reply, error) {
	release, err := s.lockCall(ctx, externalID)
	if err != nil {
		return nil, err
	}
	defer release()

	c, err := s.calls.GetByExternalID(ctx, externalID)
	if err != nil {
		return nil, err
	}
	if c.CurrentStep != call.StepAwaitingOrderNumber {
		return s.replay(ctx, c), nil
	}

	digits = strings.TrimSpace(digits)
	s.logConversation(ctx, c, stepOrderInput, digits, "")

	if !prompts.ValidateOrderNumber(digits) {
		log.Printf("[CallFlow] Invalid order number %q on call %s", digits, externalID)

		// After repeated failures the caller is offered the voicemail
		// path instead of being asked again.
		if c.Retry(s.settings.MaxInputRetries) {
			if err := s.advance(ctx, c, call.StepAwaitingVoiceMessage); err != nil {
				return nil, err
			}
			return s.voiceChoiceReply(c), nil
		}
		if err := s.calls.Update(ctx, c); err != nil {
			return nil, fmt.Errorf("update call %s: %w", externalID, err)
		}

		r := &Reply{Language: c.Language}
		if digits == "" {
			r.say(prompts.OrderNumberRetry(c.Language))
		} else {
			r.say(prompts.OrderNumberInvalid(c.Language, digits))
		}
		r.gather(Gather{
			CallbackPath:   PathOrder,
			TimeoutSeconds: orderNumberTimeout,
			FinishOnKey:    "#",
		})
		r.say(prompts.Goodbye(c.Language))
		r.hangup()
		return r, nil
	}

	if err := s.advance(ctx, c, call.StepAwaitingOrderConfirmation); err != nil {
		return nil, err
	}

	r := &Reply{Language: c.Language}
	r.say(prompts.ConfirmPrompt(c.Language, digits))
	r.gather(Gather{
		CallbackPath:   PathOrderConfirm,
		TimeoutSeconds: digitTimeout,
		NumDigits:      1,
	})
	r.say(prompts.Goodbye(c.Language))
	r.hangup()
	return r, nil
}

// OrderConfirm implements CallFlow. Confirmation triggers the synchronous
// order lookup, which decides between status narration, not-found fallback
// and the overdue manager hand-off.
func (s *callFlow) OrderConfirm(ctx context.Context, externalID, digits string) (*Reply, error) {
	release, err := s.lockCall(ctx, externalID)
	if err != nil {
		return nil, err
	}
	defer release()

	c, err := s.calls.GetByExternalID(ctx, externalID)
	if err != nil {
		return nil, err
	}
	if c.CurrentStep != call.StepAwaitingOrderConfirmation {
		return s.replay(ctx, c), nil
	}

	orderNumber, err := s.pendingOrderNumber(ctx, c)
	if err != nil {
		return nil, err
	}

	digits = strings.TrimSpace(digits)
	s.logConversation(ctx, c, stepOrderConfirm, digits, "")

	switch digits {
	case "1":
		if err := s.advance(ctx, c, call.StepOrderLookup); err != nil {
			return nil, err
		}
		return s.lookupAndReport(ctx, c, orderNumber)

	case "2":
		if err := s.advance(ctx, c, call.StepAwaitingOrderNumber); err != nil {
			return nil, err
		}

		r := &Reply{Language: c.Language}
		r.say(prompts.OrderNumberRetry(c.Language))
		r.gather(Gather{
			CallbackPath:   PathOrder,
			TimeoutSeconds: orderNumberTimeout,
			FinishOnKey:    "#",
		})
		r.say(prompts.Goodbye(c.Language))
		r.hangup()
		return r, nil

	default:
		return s.retryOrTimeout(ctx, c, prompts.ConfirmInvalid(c.Language, orderNumber), Gather{
			CallbackPath:   PathOrderConfirm,
			TimeoutSeconds: digitTimeout,
			NumDigits:      1,
		})
	}
}

// pendingOrderNumber recovers the number typed at the order input step from
// the conversation log; webhooks carry no session state of their own.
func (s *callFlow) pendingOrderNumber(ctx context.Context, c *call.Call) (string, error) {
	entries, err := s.convs.ListByCall(ctx, c.ID)
	if err != nil {
		return "", fmt.Errorf("list conversations for %s: %w", c.ExternalID, err)
	}
	for i := len(entries) - 1; i >= 0; i-- {
		if entries[i].Step == stepOrderInput && prompts.ValidateOrderNumber(entries[i].RawInput) {
			return entries[i].RawInput, nil
		}
	}
	return "", fmt.Errorf("no order input on record for call %s", c.ExternalID)
}

// lookupAndReport runs the order resolution and routes the dialogue on the
// outcome. The call is already at the lookup step.
func (s *callFlow) lookupAndReport(ctx context.Context, c *call.Call, orderNumber string) (*Reply, error) {
	res, err := s.resolver.Resolve(ctx, c.Language, orderNumber, time.Now())
	if err != nil {
		// An unreachable or broken order system must not kill the call;
		// the caller takes the not-found branch while the log keeps the
		// real cause.
		log.Printf("[CallFlow] Order lookup failed for %s on call %s: %v", orderNumber, c.ExternalID, err)
		res = &Resolution{
			Found:     false,
			Narration: prompts.OrderNotFound(c.Language, orderNumber),
			Notes:     fmt.Sprintf("Order lookup failed: %v", err),
		}
	}

	o := order.New(c.ID, orderNumber, order.StatusNotFound, res.Notes)
	o.PromisedDeliveryDate = res.Promised
	if res.Found {
		o.Status = order.StatusFound
	}

	r := &Reply{Language: c.Language}
	r.say(prompts.CheckingStatus(c.Language, orderNumber))
	r.pause(2)

	switch {
	case !res.Found:
		if err := s.orders.Upsert(ctx, o); err != nil {
			return nil, fmt.Errorf("upsert order %s: %w", orderNumber, err)
		}
		if err := s.advance(ctx, c, call.StepAwaitingVoiceMessage); err != nil {
			return nil, err
		}
		s.logConversation(ctx, c, stepStatusReport, "", res.Narration)

		r.say(res.Narration)
		appendVoiceChoice(r, c)
		return r, nil

	case res.Overdue:
		o.MarkOverdue()
		if err := s.orders.Upsert(ctx, o); err != nil {
			return nil, fmt.Errorf("upsert order %s: %w", orderNumber, err)
		}

		c.MarkProblem()
		if err := s.advance(ctx, c, call.StepTransferToManager); err != nil {
			return nil, err
		}
		reason := fmt.Sprintf("Overdue delivery for order %s (promised %s), transferring to manager",
			orderNumber, res.Promised.Format("02.01.2006"))
		s.logConversation(ctx, c, stepEscalation, "", reason)
		log.Printf("[CallFlow] %s", reason)

		r.say(prompts.OverdueTransfer(c.Language))
		r.dial(s.settings.ManagerNumber, c.CallerNumber)
		return r, nil

	default:
		if err := s.orders.Upsert(ctx, o); err != nil {
			return nil, fmt.Errorf("upsert order %s: %w", orderNumber, err)
		}

		c.MarkProcessed()
		if err := s.advance(ctx, c, call.StepDeliveryStatusReported); err != nil {
			return nil, err
		}
		if err := s.advance(ctx, c, call.StepAwaitingVoiceMessage); err != nil {
			return nil, err
		}
		s.logConversation(ctx, c, stepStatusReport, "", res.Narration)

		r.say(res.Narration)
		appendVoiceChoice(r, c)
		return r, nil
	}
}

// VoiceMessageChoice implements CallFlow.
func (s *callFlow) VoiceMessageChoice(ctx context.Context, externalID, digits string) (*Reply, error) {
	release, err := s.lockCall(ctx, externalID)
	if err != nil {
		return nil, err
	}
	defer release()

	c, err := s.calls.GetByExternalID(ctx, externalID)
	if err != nil {
		return nil, err
	}
	if c.CurrentStep != call.StepAwaitingVoiceMessage {
		return s.replay(ctx, c), nil
	}

	digits = strings.TrimSpace(digits)
	s.logConversation(ctx, c, stepVoiceChoice, digits, "")

	switch digits {
	case "1":
		if err := s.advance(ctx, c, call.StepRecording); err != nil {
			return nil, err
		}

		r := &Reply{Language: c.Language}
		r.say(prompts.RecordPrompt(c.Language))
		r.record(Record{
			CallbackPath:       PathRecorded,
			StatusCallbackPath: PathRecordingStatus,
			TranscribeCallback: PathTranscription,
			Transcribe:         s.settings.Transcribe,
			MaxLengthSeconds:   s.settings.MaxRecordSeconds,
		})
		r.say(prompts.Goodbye(c.Language))
		r.hangup()
		return r, nil

	case "2":
		if c.Status == call.StatusInProgress {
			c.MarkCompleted()
		}
		if err := s.advance(ctx, c, call.StepEndedNoMessage); err != nil {
			return nil, err
		}

		r := &Reply{Language: c.Language}
		r.say(prompts.Goodbye(c.Language))
		r.hangup()
		return r, nil

	default:
		return s.retryOrTimeout(ctx, c, prompts.VoiceMessageInvalid(c.Language), Gather{
			CallbackPath:   PathVoiceMessage,
			TimeoutSeconds: digitTimeout,
			NumDigits:      1,
		})
	}
}

// Recorded implements CallFlow. Recording events are merged by
// (call, recording sid): duplicates update the stored row, and events for
// calls already past the recording step still merge without touching the
// dialogue state.
func (s *callFlow) Recorded(ctx context.Context, externalID string, ev RecordingEvent) (*Reply, error) {
	release, err := s.lockCall(ctx, externalID)
	if err != nil {
		return nil, err
	}
	defer release()

	c, err := s.calls.GetByExternalID(ctx, externalID)
	if err != nil {
		return nil, err
	}

	rec, err := s.upsertRecordingMerge(ctx, c, ev.RecordingSID, func(rec *recording.Recording) bool {
		return rec.ApplyRecorded(ev.URL, ev.DurationSeconds, ev.InlineTranscript)
	})
	if err != nil {
		return nil, err
	}

	if c.CurrentStep == call.StepRecording {
		if err := s.advance(ctx, c, call.StepRecorded); err != nil {
			return nil, err
		}
		if rec.HasTranscript() || !s.settings.Transcribe {
			c.MarkCompleted()
			if err := s.advance(ctx, c, call.StepCompleted); err != nil {
				return nil, err
			}
		} else {
			if err := s.advance(ctx, c, call.StepAwaitingTranscription); err != nil {
				return nil, err
			}
		}
	}

	s.logConversation(ctx, c, stepMessageRecorded, ev.InlineTranscript, prompts.RecordedThanks(c.Language))

	// With the transcript already in hand (or transcription disabled) the
	// operator can be told now; otherwise the transcription callback or
	// the batch loop will.
	if rec.HasTranscript() || !s.settings.Transcribe {
		if err := s.notifier.Notify(ctx, rec); err != nil {
			log.Printf("[CallFlow] Immediate notification for %s failed, left for retry: %v",
				ev.RecordingSID, err)
		}
	}

	r := &Reply{Language: c.Language}
	r.say(prompts.RecordedThanks(c.Language))
	r.hangup()
	return r, nil
}

// RecordingStatus implements CallFlow. The status callback only guarantees a
// row exists for the sid; it carries no content to merge.
func (s *callFlow) RecordingStatus(ctx context.Context, externalID, recordingSID, status string) error {
	release, err := s.lockCall(ctx, externalID)
	if err != nil {
		return err
	}
	defer release()

	c, err := s.calls.GetByExternalID(ctx, externalID)
	if err != nil {
		return err
	}

	log.Printf("[CallFlow] Recording status %q for %s on call %s", status, recordingSID, externalID)

	rec, err := s.recordings.GetByCallAndSID(ctx, c.ID, recordingSID)
	if err != nil {
		return fmt.Errorf("load recording %s: %w", recordingSID, err)
	}
	if rec == nil && strings.EqualFold(status, "completed") {
		rec = recording.New(c.ID, recordingSID)
		if err := s.recordings.Save(ctx, rec); err != nil {
			return fmt.Errorf("save recording %s: %w", recordingSID, err)
		}
	}
	return nil
}

// Transcription implements CallFlow. Arrives before or after the recorded
// event, possibly repeated; text is merged, never blindly overwritten, and a
// content change re-arms the notification.
func (s *callFlow) Transcription(ctx context.Context, externalID, recordingSID, text, status string) error {
	release, err := s.lockCall(ctx, externalID)
	if err != nil {
		return err
	}
	defer release()

	c, err := s.calls.GetByExternalID(ctx, externalID)
	if err != nil {
		return err
	}

	tStatus := recording.TranscriptCompleted
	if strings.EqualFold(status, "failed") {
		tStatus = recording.TranscriptFailed
	}

	rec, err := s.upsertRecordingMerge(ctx, c, recordingSID, func(rec *recording.Recording) bool {
		return rec.ApplyTranscript(text, tStatus)
	})
	if err != nil {
		return err
	}

	s.logConversation(ctx, c, stepTranscription, text, "")

	// The recorded event may still be in flight; only the steps that wait
	// for a transcript advance here.
	if c.CurrentStep == call.StepAwaitingTranscription || c.CurrentStep == call.StepRecorded {
		c.MarkCompleted()
		if err := s.advance(ctx, c, call.StepCompleted); err != nil {
			return err
		}
	}

	if !rec.Notified {
		if err := s.notifier.Notify(ctx, rec); err != nil {
			log.Printf("[CallFlow] Notification after transcription for %s failed, left for retry: %v",
				recordingSID, err)
		}
	}
	return nil
}

// upsertRecordingMerge loads or creates the recording row for the sid,
// applies the merge and persists the result.
func (s *callFlow) upsertRecordingMerge(ctx context.Context, c *call.Call, recordingSID string,
	merge func(*recording.Recording) bool) (*recording.Recording, error) {

	rec, err := s.recordings.GetByCallAndSID(ctx, c.ID, recordingSID)
	if err != nil {
		return nil, fmt.Errorf("load recording %s: %w", recordingSID, err)
	}

	if rec == nil {
		rec = recording.New(c.ID, recordingSID)
		merge(rec)
		if err := s.recordings.Save(ctx, rec); err != nil {
			return nil, fmt.Errorf("save recording %s: %w", recordingSID, err)
		}
		return rec, nil
	}

	if merge(rec) {
		if err := s.recordings.Update(ctx, rec); err != nil {
			return nil, fmt.Errorf("update recording %s: %w", recordingSID, err)
		}
	}
	return rec, nil
}

// advance applies a state machine transition and persists the call.
func (s *callFlow) advance(ctx context.Context, c *call.Call, to call.Step) error {
	if err := c.Advance(to); err != nil {
		return fmt.Errorf("call %s: %s -> %s: %w", c.ExternalID, c.CurrentStep, to, err)
	}
	if err := s.calls.Update(ctx, c); err != nil {
		return fmt.Errorf("update call %s: %w", c.ExternalID, err)
	}
	return nil
}

// retryOrTimeout handles an invalid or missing digit on an input step:
// either one more re-prompt, or the timeout ending once the retry budget is
// spent.
func (s *callFlow) retryOrTimeout(ctx context.Context, c *call.Call, invalidText string, again Gather) (*Reply, error) {
	if c.Retry(s.settings.MaxInputRetries) {
		if err := s.advance(ctx, c, call.StepEndedTimeout); err != nil {
			return nil, err
		}
		log.Printf("[CallFlow] Call %s exceeded input retries at %s, ending", c.ExternalID, c.CurrentStep)

		r := &Reply{Language: c.Language}
		r.say(prompts.Goodbye(c.Language))
		r.hangup()
		return r, nil
	}
	if err := s.calls.Update(ctx, c); err != nil {
		return nil, fmt.Errorf("update call %s: %w", c.ExternalID, err)
	}

	r := &Reply{Language: c.Language}
	r.say(invalidText)
	r.gather(again)
	r.say(prompts.Goodbye(c.Language))
	r.hangup()
	return r, nil
}

func (s *callFlow) voiceChoiceReply(c *call.Call) *Reply {
	r := &Reply{Language: c.Language}
	appendVoiceChoice(r, c)
	return r
}

func appendVoiceChoice(r *Reply, c *call.Call) {
	r.say(prompts.VoiceMessageChoice(c.Language))
	r.gather(Gather{
		CallbackPath:   PathVoiceMessage,
		TimeoutSeconds: digitTimeout,
		NumDigits:      1,
	})
	r.say(prompts.Goodbye(c.Language))
	r.hangup()
}

// replay answers an out-of-order digit webhook by re-issuing the prompt of
// the step the call is actually at. Terminal calls just get the goodbye.
func (s *callFlow) replay(ctx context.Context, c *call.Call) *Reply {
	log.Printf("[CallFlow] Out-of-order webhook for %s at step %s, replaying prompt",
		c.ExternalID, c.CurrentStep)

	r := &Reply{Language: c.Language}

	switch c.CurrentStep {
	case call.StepAwaitingConsent:
		return s.greetingReply(c)

	case call.StepAwaitingOrderAvailability:
		r.gather(Gather{
			Prompt:         prompts.AvailabilityQuestion(c.Language),
			CallbackPath:   PathAvailability,
			TimeoutSeconds: consentTimeout,
			NumDigits:      1,
		})

	case call.StepAwaitingOrderNumber:
		r.say(prompts.OrderNumberPrompt(c.Language))
		r.gather(Gather{
			CallbackPath:   PathOrder,
			TimeoutSeconds: orderNumberTimeout,
			FinishOnKey:    "#",
		})

	case call.StepAwaitingOrderConfirmation:
		orderNumber, err := s.pendingOrderNumber(ctx, c)
		if err != nil {
			log.Printf("[CallFlow] No confirmable order number for %s: %v", c.ExternalID, err)
			r.say(prompts.Goodbye(c.Language))
			r.hangup()
			return r
		}
		r.say(prompts.ConfirmPrompt(c.Language, orderNumber))
		r.gather(Gather{
			CallbackPath:   PathOrderConfirm,
			TimeoutSeconds: digitTimeout,
			NumDigits:      1,
		})

	case call.StepAwaitingVoiceMessage:
		appendVoiceChoice(r, c)
		return r

	default:
		r.say(prompts.Goodbye(c.Language))
		r.hangup()
		return r
	}

	r.say(prompts.Goodbye(c.Language))
	r.hangup()
	return r
}
