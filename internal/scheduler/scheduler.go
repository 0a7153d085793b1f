// Package scheduler drives the periodic notification retry loop. Recordings
// whose operator email failed, or whose transcription never arrived, are
// picked up batch by batch on a fixed interval.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"
)

// BatchProcessor is the dependency that actually does the work.
// The scheduler calls ProcessBatch on a fixed interval.
type BatchProcessor interface {
	ProcessBatch(ctx context.Context) error
}

// SchedulerService exposes a small control surface for the scheduler.
// Start/Stop are synchronous controls, and IsRunning reports whether the
// scheduler is currently accepting ticks.
type SchedulerService interface {
	Start() error
	Stop() error
	IsRunning() bool
}

// DefaultInterval is used when no custom interval is provided.
const DefaultInterval = time.Minute

// DefaultBatchTimeout is how long a single batch may run before its context
// is cancelled.
const DefaultBatchTimeout = 30 * time.Second

// controlTimeout is how long Start/Stop wait for the control loop to accept
// and acknowledge a command. This protects callers from hanging forever if
// the loop is not running.
const controlTimeout = 2 * time.Second

// controlOp represents the kind of command sent into the internal control loop.
type controlOp int

const (
	opStart controlOp = iota
	opStop
	opStatus
)

// controlMsg is sent over the ctrl channel to drive the scheduler's state.
type controlMsg struct {
	op   controlOp
	resp chan bool // used by callers to get a synchronous answer
}

// schedulerService owns the internal state and runs the control loop.
// All mutable state lives in the loop goroutine, so no locks are needed.
type schedulerService struct {
	notifier     BatchProcessor
	interval     time.Duration
	batchTimeout time.Duration
	ctrl         chan controlMsg
}

// NewSchedulerService creates a scheduler with the given interval and batch
// timeout. Non-positive values fall back to the defaults.
func NewSchedulerService(
	notifier BatchProcessor,
	interval time.Duration,
	batchTimeout time.Duration,
) SchedulerService {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if batchTimeout <= 0 {
		batchTimeout = DefaultBatchTimeout
	}

	s := &schedulerService{
		notifier:     notifier,
		interval:     interval,
		batchTimeout: batchTimeout,
		ctrl:         make(chan controlMsg),
	}

	// The control loop runs in its own goroutine for the lifetime of the
	// process.
	go s.loop()

	return s
}

// Start tells the scheduler to begin processing ticks. It blocks until the
// internal loop has acknowledged the state change, or returns an error if
// the control loop does not respond in time.
func (s *schedulerService) Start() error {
	resp := make(chan bool)
	msg := controlMsg{op: opStart, resp: resp}

	select {
	case s.ctrl <- msg:
	case <-time.After(controlTimeout):
		return fmt.Errorf("[Scheduler] Start: control loop not responding")
	}

	select {
	case <-resp:
		return nil
	case <-time.After(controlTimeout):
		return fmt.Errorf("[Scheduler] Start: acknowledgement timeout")
	}
}

// Stop tells the scheduler to stop accepting new ticks. If a batch is
// currently running, Stop waits until that batch finishes (or times out)
// before returning. If the control loop does not respond, Stop returns an
// error instead of blocking forever.
func (s *schedulerService) Stop() error {
	resp := make(chan bool)
	msg := controlMsg{op: opStop, resp: resp}

	select {
	case s.ctrl <- msg:
	case <-time.After(controlTimeout):
		return fmt.Errorf("[Scheduler] Stop: control loop not responding")
	}

	select {
	case <-resp:
		return nil
	case <-time.After(controlTimeout):
		return fmt.Errorf("[Scheduler] Stop: acknowledgement timeout")
	}
}

// IsRunning reports whether the scheduler is currently in "running" mode.
// It does not mean a batch is actively executing, only that new ticks will
// be processed when the timer fires.
func (s *schedulerService) IsRunning() bool {
	resp := make(chan bool)
	s.ctrl <- controlMsg{op: opStatus, resp: resp}
	return <-resp
}

// loop is the heart of the scheduler. It owns all mutable state and reacts
// to either control messages or timer ticks.
func (s *schedulerService) loop() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	running := false
	inBatch := false

	// pendingStop is a response channel to be completed once the current
	// batch finishes, if Stop was called mid-batch.
	var pendingStop chan bool

	for {
		select {
		case msg := <-s.ctrl:
			switch msg.op {
			case opStart:
				if !running {
					log.Printf("[Scheduler] Started (interval=%s, batchTimeout=%s)\n",
						s.interval, s.batchTimeout)
				}
				running = true
				msg.resp <- true

			case opStop:
				if !running && !inBatch {
					log.Println("[Scheduler] Stop requested, but already idle.")
					msg.resp <- true
					continue
				}

				log.Println("[Scheduler] Stop requested. Waiting for current batch (if any)...")

				// Future ticks are ignored from here on.
				running = false

				if inBatch {
					pendingStop = msg.resp
				} else {
					msg.resp <- true
				}

			case opStatus:
				msg.resp <- running
			}

		case <-ticker.C:
			if !running || inBatch {
				continue
			}

			inBatch = true
			log.Println("[Scheduler] Triggering notification batch...")

			// Time-bound the batch so Stop doesn't hang forever if
			// ProcessBatch never returns.
			ctx, cancel := context.WithTimeout(context.Background(), s.batchTimeout)

			err := s.notifier.ProcessBatch(ctx)
			cancel()

			if err != nil {
				log.Printf("[Scheduler] Batch failed: %v\n", err)
			} else {
				log.Println("[Scheduler] Batch completed.")
			}

			inBatch = false

			if pendingStop != nil {
				pendingStop <- true
				pendingStop = nil
				log.Println("[Scheduler] Stopped (no active batch).")
			}
		}
	}
}
