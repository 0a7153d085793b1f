package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/voicedesk/callflow/internal/domain/call"
	"github.com/voicedesk/callflow/internal/domain/order"
	"github.com/voicedesk/callflow/internal/domain/recording"
	"github.com/voicedesk/callflow/internal/lock"
	"github.com/voicedesk/callflow/internal/mailer"
)

// transcriptGrace is how long a recording without a transcript may idle
// before the batch loop notifies it anyway. It keeps the retry loop from
// racing a transcription callback that is still in flight.
const transcriptGrace = 2 * time.Minute

// retryLockTTL bounds how long a batch worker may hold a call's lock.
const retryLockTTL = 15 * time.Second

// NotificationService emails the operator about voice messages, exactly once
// per content state of a recording.
type NotificationService interface {
	// Notify reports one recording to the operator and marks it notified.
	// A no-op when the current content state was already reported.
	// The caller must hold the call's lock; the webhook flow and the
	// batch loop both acquire it before calling in.
	Notify(ctx context.Context, rec *recording.Recording) error

	// ProcessBatch picks up unnotified recordings and notifies them using
	// a small worker pool. Called periodically by the scheduler.
	ProcessBatch(ctx context.Context) error
}

type notificationService struct {
	recordings recording.Repository
	calls      call.Repository
	orders     order.Repository
	mail       mailer.Mailer
	locker     lock.Locker
	operator   string

	batchSize        int
	maxWorkers       int
	perNotifyTimeout time.Duration
}

// NewNotificationService creates the dispatcher with the given dependencies
// and batch settings. The config values are passed explicitly from the
// caller (e.g. main) so this package does not depend on env.
func NewNotificationService(
	recordings recording.Repository,
	calls call.Repository,
	orders order.Repository,
	mail mailer.Mailer,
	locker lock.Locker,
	operator string,
	batchSize int,
	maxWorkers int,
	perNotifyTimeout time.Duration,
) NotificationService {
	if batchSize <= 0 {
		batchSize = 50
	}
	if maxWorkers <= 0 {
		maxWorkers = 4
	}
	if perNotifyTimeout <= 0 {
		perNotifyTimeout = 10 * time.Second
	}

	return &notificationService{
		recordings:       recordings,
		calls:            calls,
		orders:           orders,
		mail:             mail,
		locker:           locker,
		operator:         operator,
		batchSize:        batchSize,
		maxWorkers:       maxWorkers,
		perNotifyTimeout: perNotifyTimeout,
	}
}

var _ NotificationService = (*notificationService)(nil)

// Notify implements NotificationService.
func (s *notificationService) Notify(ctx context.Context, rec *recording.Recording) error {
	if rec.Notified {
		return nil
	}

	c, err := s.calls.GetByID(ctx, rec.CallID)
	if err != nil {
		return fmt.Errorf("load call for recording %s: %w", rec.RecordingSID, err)
	}

	// The latest order of the call, if the caller got that far.
	o, err := s.orders.GetLatestByCall(ctx, rec.CallID)
	if err != nil {
		log.Printf("[Notifier] Failed to load order for call %s: %v", c.ExternalID, err)
	}

	msg := mailer.Message{
		To:      s.operator,
		Subject: fmt.Sprintf("Neue Sprachnachricht von %s", c.CallerNumber),
		Body:    buildNotificationBody(c, o, rec),
	}
	if err := s.mail.Send(ctx, msg); err != nil {
		return fmt.Errorf("notify operator for recording %s: %w", rec.RecordingSID, err)
	}

	rec.MarkNotified()
	if err := s.recordings.Update(ctx, rec); err != nil {
		// The email went out; a failed flag update means one possible
		// duplicate on the next batch, never a lost notification.
		return fmt.Errorf("mark recording %s notified: %w", rec.RecordingSID, err)
	}

	log.Printf("[Notifier] Notified operator about recording %s (call %s)",
		rec.RecordingSID, c.ExternalID)
	return nil
}

func buildNotificationBody(c *call.Call, o *order.Order, rec *recording.Recording) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Anrufer: %s\n", c.CallerNumber)
	fmt.Fprintf(&b, "Anruf-ID: %s\n", c.ExternalID)
	if o != nil {
		fmt.Fprintf(&b, "Bestellnummer: %s (%s)\n", o.OrderNumber, o.Status)
	}
	fmt.Fprintf(&b, "Aufnahme: %s\n", rec.URL)
	if rec.DurationSeconds > 0 {
		fmt.Fprintf(&b, "Dauer: %d Sekunden\n", rec.DurationSeconds)
	}
	b.WriteString("\n")
	if rec.HasTranscript() {
		fmt.Fprintf(&b, "Transkript:\n%s\n", rec.TranscriptText)
	} else {
		b.WriteString("Transkript: noch nicht verfügbar.\n")
	}
	return b.String()
}

// ProcessBatch implements NotificationService.
func (s *notificationService) ProcessBatch(ctx context.Context) error {
	cutoff := time.Now().Add(-transcriptGrace)

	pending, err := s.recordings.GetUnnotified(ctx, cutoff, s.batchSize)
	if err != nil {
		return fmt.Errorf("failed to fetch unnotified recordings: %w", err)
	}

	if len(pending) == 0 {
		log.Println("[Notifier] No unnotified recordings to process.")
		return nil
	}

	log.Printf("[Notifier] Processing %d recordings with worker pool (batchSize=%d, maxWorkers=%d)...",
		len(pending), s.batchSize, s.maxWorkers)

	workerCount := len(pending)
	if workerCount > s.maxWorkers {
		workerCount = s.maxWorkers
	}

	var wg sync.WaitGroup

	// Each worker takes a stride of the batch.
	for w := 0; w < workerCount; w++ {
		wg.Add(1)

		go func(workerID, start int) {
			defer wg.Done()

			for i := start; i < len(pending); i += workerCount {
				if ctx.Err() != nil {
					log.Printf("[Worker %d] Context cancelled, stopping worker", workerID)
					return
				}

				rec := pending[i]

				notifyCtx, cancel := context.WithTimeout(ctx, s.perNotifyTimeout)
				if err := s.retryOne(notifyCtx, rec); err != nil {
					// Left unnotified; the next batch retries it.
					log.Printf("[Worker %d] Failed to notify for %s: %v",
						workerID, rec.RecordingSID, err)
				}
				cancel()
			}
		}(w+1, w)
	}

	wg.Wait()

	log.Println("[Notifier] Batch worker pool completed.")
	return nil
}

// retryOne notifies a single pending recording. The batch snapshot may be
// stale by the time a worker gets to it, so the row is re-loaded under the
// call's lock before sending; a webhook callback racing this worker either
// sends first (and this becomes a no-op) or waits and sees the notified flag.
func (s *notificationService) retryOne(ctx context.Context, stale *recording.Recording) error {
	c, err := s.calls.GetByID(ctx, stale.CallID)
	if err != nil {
		return fmt.Errorf("load call for recording %s: %w", stale.RecordingSID, err)
	}

	release, err := s.locker.Acquire(ctx, callLockKey(c.ExternalID), retryLockTTL)
	if err != nil {
		return fmt.Errorf("lock call %s: %w", c.ExternalID, err)
	}
	defer release()

	rec, err := s.recordings.GetByCallAndSID(ctx, stale.CallID, stale.RecordingSID)
	if err != nil {
		return fmt.Errorf("reload recording %s: %w", stale.RecordingSID, err)
	}
	if rec == nil || rec.Notified {
		return nil
	}

	return s.Notify(ctx, rec)
}
