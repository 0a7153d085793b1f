package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/voicedesk/callflow/internal/domain/call"
	"github.com/voicedesk/callflow/internal/domain/order"
	"github.com/voicedesk/callflow/internal/domain/recording"
	"github.com/voicedesk/callflow/internal/lock"
	"github.com/voicedesk/callflow/internal/mailer"
)

type fakeMailer struct {
	sent []mailer.Message
	fail bool
}

func (f *fakeMailer) Send(_ context.Context, msg mailer.Message) error {
	if f.fail {
		return errors.New("smtp down")
	}
	f.sent = append(f.sent, msg)
	return nil
}

type notifierFixture struct {
	svc        NotificationService
	mail       *fakeMailer
	calls      *fakeCallRepo
	orders     *fakeOrderRepo
	recordings *fakeRecordingRepo
}

func newNotifierFixture(t *testing.T) *notifierFixture {
	t.Helper()
	calls := newFakeCallRepo()
	orders := newFakeOrderRepo()
	recordings := newFakeRecordingRepo()
	mail := &fakeMailer{}

	svc := NewNotificationService(recordings, calls, orders, mail, lock.NewKeyMutex(), "service@voicedesk.example", 10, 1, time.Second)
	return &notifierFixture{svc: svc, mail: mail, calls: calls, orders: orders, recordings: recordings}
}

func (f *notifierFixture) seedCall(t *testing.T, externalID string) *call.Call {
	t.Helper()
	c, err := call.New(externalID, "+491701234567", nil)
	if err != nil {
		t.Fatalf("call.New: %v", err)
	}
	if err := f.calls.Save(context.Background(), c); err != nil {
		t.Fatalf("save call: %v", err)
	}
	return c
}

func TestNotify_SendsOnceAndMarks(t *testing.T) {
	f := newNotifierFixture(t)
	ctx := context.Background()
	c := f.seedCall(t, "CA1")

	rec := recording.New(c.ID, "RE1")
	rec.ApplyRecorded("https://recordings.example/RE1", 12, "")
	rec.ApplyTranscript("Bitte zurückrufen.", recording.TranscriptCompleted)
	if err := f.recordings.Save(ctx, rec); err != nil {
		t.Fatalf("save recording: %v", err)
	}

	if err := f.svc.Notify(ctx, rec); err != nil {
		t.Fatalf("Notify failed: %v", err)
	}
	if len(f.mail.sent) != 1 {
		t.Fatalf("expected one mail, got %d", len(f.mail.sent))
	}
	if !rec.Notified {
		t.Fatalf("recording must be marked notified after a successful send")
	}

	// A second call for the same content state is a no-op.
	if err := f.svc.Notify(ctx, rec); err != nil {
		t.Fatalf("repeat Notify failed: %v", err)
	}
	if len(f.mail.sent) != 1 {
		t.Fatalf("repeat Notify sent another mail")
	}
}

func TestNotify_BodyCarriesCallOrderAndTranscript(t *testing.T) {
	f := newNotifierFixture(t)
	ctx := context.Background()
	c := f.seedCall(t, "CA1")

	o := order.New(c.ID, "12345678", order.StatusFound, "Order found: RE-1")
	if err := f.orders.Upsert(ctx, o); err != nil {
		t.Fatalf("upsert order: %v", err)
	}

	rec := recording.New(c.ID, "RE1")
	rec.ApplyRecorded("https://recordings.example/RE1", 45, "Meine Lieferung fehlt.")
	if err := f.recordings.Save(ctx, rec); err != nil {
		t.Fatalf("save recording: %v", err)
	}

	if err := f.svc.Notify(ctx, rec); err != nil {
		t.Fatalf("Notify failed: %v", err)
	}

	msg := f.mail.sent[0]
	if msg.To != "service@voicedesk.example" {
		t.Fatalf("mail went to %q", msg.To)
	}
	if !strings.Contains(msg.Subject, "+491701234567") {
		t.Fatalf("subject must name the caller: %q", msg.Subject)
	}
	for _, want := range []string{"CA1", "12345678", "https://recordings.example/RE1", "45 Sekunden", "Meine Lieferung fehlt."} {
		if !strings.Contains(msg.Body, want) {
			t.Fatalf("body missing %q:\n%s", want, msg.Body)
		}
	}
}

func TestNotify_MissingTranscriptIsSpelledOut(t *testing.T) {
	f := newNotifierFixture(t)
	ctx := context.Background()
	c := f.seedCall(t, "CA1")

	rec := recording.New(c.ID, "RE1")
	rec.ApplyRecorded("https://recordings.example/RE1", 5, "")
	if err := f.recordings.Save(ctx, rec); err != nil {
		t.Fatalf("save recording: %v", err)
	}

	if err := f.svc.Notify(ctx, rec); err != nil {
		t.Fatalf("Notify failed: %v", err)
	}
	if !strings.Contains(f.mail.sent[0].Body, "noch nicht verfügbar") {
		t.Fatalf("body must say the transcript is pending:\n%s", f.mail.sent[0].Body)
	}
}

func TestNotify_FailedSendLeavesUnnotified(t *testing.T) {
	f := newNotifierFixture(t)
	f.mail.fail = true
	ctx := context.Background()
	c := f.seedCall(t, "CA1")

	rec := recording.New(c.ID, "RE1")
	if err := f.recordings.Save(ctx, rec); err != nil {
		t.Fatalf("save recording: %v", err)
	}

	if err := f.svc.Notify(ctx, rec); err == nil {
		t.Fatalf("expected the send failure to surface")
	}
	if rec.Notified {
		t.Fatalf("a failed send must leave the recording unnotified")
	}
}

func TestProcessBatch_NotifiesIdleRecordingsOnly(t *testing.T) {
	f := newNotifierFixture(t)
	ctx := context.Background()
	c := f.seedCall(t, "CA1")

	// Idle long enough for the batch to pick it up.
	stale := recording.New(c.ID, "RE-stale")
	stale.ApplyTranscript("alt", recording.TranscriptCompleted)
	if err := f.recordings.Save(ctx, stale); err != nil {
		t.Fatalf("save recording: %v", err)
	}
	stale.UpdatedAt = time.Now().Add(-10 * time.Minute)

	// Freshly updated, still inside the transcript grace window.
	fresh := recording.New(c.ID, "RE-fresh")
	if err := f.recordings.Save(ctx, fresh); err != nil {
		t.Fatalf("save recording: %v", err)
	}

	// Already reported.
	done := recording.New(c.ID, "RE-done")
	done.MarkNotified()
	if err := f.recordings.Save(ctx, done); err != nil {
		t.Fatalf("save recording: %v", err)
	}
	done.UpdatedAt = time.Now().Add(-10 * time.Minute)

	if err := f.svc.ProcessBatch(ctx); err != nil {
		t.Fatalf("ProcessBatch failed: %v", err)
	}

	if len(f.mail.sent) != 1 {
		t.Fatalf("expected one mail for the stale recording, got %d", len(f.mail.sent))
	}
	if !stale.Notified {
		t.Fatalf("the stale recording must now be notified")
	}
	if fresh.Notified || done.Notified != true {
		t.Fatalf("fresh stayed %v, done stayed %v", fresh.Notified, done.Notified)
	}
}

// sharedRecordingRepo hands out a fresh copy per load, the way a SQL-backed
// repository does, so concurrent callers hold independent snapshots of the
// same row.
type sharedRecordingRepo struct {
	mu   sync.Mutex
	rows map[string]*recording.Recording
}

func newSharedRecordingRepo() *sharedRecordingRepo {
	return &sharedRecordingRepo{rows: make(map[string]*recording.Recording)}
}

func (f *sharedRecordingRepo) store(r *recording.Recording) {
	clone := *r
	f.rows[recKey(r.CallID, r.RecordingSID)] = &clone
}

func (f *sharedRecordingRepo) Save(_ context.Context, r *recording.Recording) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.store(r)
	return nil
}

func (f *sharedRecordingRepo) GetByCallAndSID(_ context.Context, callID uuid.UUID, sid string) (*recording.Recording, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rows[recKey(callID, sid)]
	if !ok {
		return nil, nil
	}
	clone := *r
	return &clone, nil
}

func (f *sharedRecordingRepo) ListByCall(_ context.Context, callID uuid.UUID) ([]*recording.Recording, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*recording.Recording
	for _, r := range f.rows {
		if r.CallID == callID {
			clone := *r
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (f *sharedRecordingRepo) Update(_ context.Context, r *recording.Recording) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.store(r)
	return nil
}

func (f *sharedRecordingRepo) GetUnnotified(_ context.Context, updatedBefore time.Time, limit int) ([]*recording.Recording, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*recording.Recording
	for _, r := range f.rows {
		if !r.Notified && r.UpdatedAt.Before(updatedBefore) && len(out) < limit {
			clone := *r
			out = append(out, &clone)
		}
	}
	return out, nil
}

// gateMailer blocks the first send until released, holding the sender
// mid-flight so a second sender can race it.
type gateMailer struct {
	started chan struct{}
	proceed chan struct{}
	once    sync.Once

	mu   sync.Mutex
	sent []mailer.Message
}

func newGateMailer() *gateMailer {
	return &gateMailer{started: make(chan struct{}), proceed: make(chan struct{})}
}

func (m *gateMailer) Send(_ context.Context, msg mailer.Message) error {
	m.once.Do(func() {
		close(m.started)
		<-m.proceed
	})
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return nil
}

func (m *gateMailer) sentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

func TestProcessBatch_RacingCallbackSendsOnce(t *testing.T) {
	ctx := context.Background()
	calls := newFakeCallRepo()
	orders := newFakeOrderRepo()
	recordings := newSharedRecordingRepo()
	mail := newGateMailer()
	locker := lock.NewKeyMutex()

	svc := NewNotificationService(recordings, calls, orders, mail, locker, "service@voicedesk.example", 10, 1, time.Minute)

	c, err := call.New("CA1", "+491701234567", nil)
	if err != nil {
		t.Fatalf("call.New: %v", err)
	}
	if err := calls.Save(ctx, c); err != nil {
		t.Fatalf("save call: %v", err)
	}

	rec := recording.New(c.ID, "RE1")
	rec.ApplyRecorded("https://recordings.example/RE1", 12, "")
	rec.ApplyTranscript("Bitte zurückrufen.", recording.TranscriptCompleted)
	rec.UpdatedAt = time.Now().Add(-10 * time.Minute)
	if err := recordings.Save(ctx, rec); err != nil {
		t.Fatalf("save recording: %v", err)
	}

	// The batch worker picks up the row and stalls inside the send.
	batchDone := make(chan error, 1)
	go func() { batchDone <- svc.ProcessBatch(ctx) }()
	<-mail.started

	// A transcription callback arrives for the same recording while the
	// batch send is still in flight. It takes the call's lock, so it must
	// wait and then see the notified flag instead of mailing again.
	callbackDone := make(chan struct{})
	go func() {
		defer close(callbackDone)
		release, err := locker.Acquire(ctx, callLockKey(c.ExternalID), time.Minute)
		if err != nil {
			t.Errorf("lock call: %v", err)
			return
		}
		defer release()
		fresh, err := recordings.GetByCallAndSID(ctx, c.ID, "RE1")
		if err != nil || fresh == nil {
			t.Errorf("reload recording: %v", err)
			return
		}
		if !fresh.Notified {
			if err := svc.Notify(ctx, fresh); err != nil {
				t.Errorf("Notify failed: %v", err)
			}
		}
	}()

	select {
	case <-callbackDone:
		t.Fatalf("callback ran while the batch send was still in flight")
	case <-time.After(50 * time.Millisecond):
	}

	close(mail.proceed)
	if err := <-batchDone; err != nil {
		t.Fatalf("ProcessBatch failed: %v", err)
	}
	<-callbackDone

	if got := mail.sentCount(); got != 1 {
		t.Fatalf("same transcript content mailed %d times", got)
	}
	stored, err := recordings.GetByCallAndSID(ctx, c.ID, "RE1")
	if err != nil || stored == nil || !stored.Notified {
		t.Fatalf("recording must be marked notified once the batch send lands")
	}
}

func TestProcessBatch_EmptyQueueIsQuiet(t *testing.T) {
	f := newNotifierFixture(t)
	if err := f.svc.ProcessBatch(context.Background()); err != nil {
		t.Fatalf("ProcessBatch on empty queue failed: %v", err)
	}
	if len(f.mail.sent) != 0 {
		t.Fatalf("empty queue must not send mail")
	}
}
