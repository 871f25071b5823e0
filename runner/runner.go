package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kashbor/bankmail-to-sheets/config"
	"github.com/kashbor/bankmail-to-sheets/extract"
	"github.com/kashbor/bankmail-to-sheets/identity"
	"github.com/kashbor/bankmail-to-sheets/model"
	"github.com/kashbor/bankmail-to-sheets/state"
	"github.com/kashbor/bankmail-to-sheets/stats"
)

type StageFunc func(context.Context) error

// Runner coordinates one sync cycle: a mail source feeds raw message
// envelopes, the bridge stage runs the extraction engine and dedupe gate,
// and the sink stage consumes the resulting records.
type Runner struct {
	cfg     config.Config
	logger  *slog.Logger
	cycleID string

	ctx    context.Context
	cancel context.CancelFunc

	messages chan model.Envelope
	records  chan model.Record
	events   chan stats.Event

	tracker   state.Tracker
	extractor *extract.Extractor

	workWG  sync.WaitGroup
	statsWG sync.WaitGroup

	errMu sync.Mutex
	err   error

	closeMailboxOnce sync.Once
	closeRecordsOnce sync.Once
	closeEventsOnce  sync.Once
	since            time.Time
}

func New(cfg config.Config, logger *slog.Logger) (*Runner, error) {
	ctx, cancel := context.WithCancel(context.Background())

	tracker, err := state.NewFileTracker(cfg.StateDir, !cfg.DryRun)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("state tracker: %w", err)
	}

	extractor, err := extract.NewExtractor(extract.DefaultVocabulary())
	if err != nil {
		cancel()
		return nil, fmt.Errorf("extractor: %w", err)
	}

	cycleID := uuid.NewString()

	r := &Runner{
		cfg:       cfg,
		logger:    logger.With("cycle", cycleID),
		cycleID:   cycleID,
		ctx:       ctx,
		cancel:    cancel,
		messages:  make(chan model.Envelope, 32),
		records:   make(chan model.Record, 32),
		events:    make(chan stats.Event, 128),
		tracker:   tracker,
		extractor: extractor,
	}

	r.AddStage("bridge", r.bridge)
	return r, nil
}

func (r *Runner) Config() config.Config {
	return r.cfg
}

func (r *Runner) Logger() *slog.Logger {
	return r.logger
}

func (r *Runner) Context() context.Context {
	return r.ctx
}

func (r *Runner) CycleID() string {
	return r.cycleID
}

func (r *Runner) Tracker() state.Tracker {
	return r.tracker
}

// SeedIdentities merges stable ids owned by the sink into the dedupe set.
func (r *Runner) SeedIdentities(ids []string) {
	r.tracker.Seed(ids)
}

func (r *Runner) MailboxWriter() chan<- model.Envelope {
	return r.messages
}

func (r *Runner) CloseMailbox() {
	r.closeMailboxOnce.Do(func() {
		close(r.messages)
	})
}

func (r *Runner) Records() <-chan model.Record {
	return r.records
}

func (r *Runner) EmitEvent(evt stats.Event) {
	select {
	case <-r.ctx.Done():
	case r.events <- evt:
	}
}

func (r *Runner) SubscribeStats(name string, fn func(context.Context, <-chan stats.Event) error) {
	r.statsWG.Add(1)
	go func() {
		defer r.statsWG.Done()
		if err := fn(r.ctx, r.events); err != nil && !errors.Is(err, context.Canceled) {
			r.fail(fmt.Errorf("%s stats: %w", name, err))
		}
	}()
}

func (r *Runner) AddStage(name string, fn StageFunc) {
	r.workWG.Add(1)
	go func() {
		defer r.workWG.Done()
		if err := fn(r.ctx); err != nil && !errors.Is(err, context.Canceled) {
			r.fail(fmt.Errorf("%s stage: %w", name, err))
		}
	}()
}

func (r *Runner) Start() error {
	r.since = time.Now()

	r.workWG.Wait()
	r.closeEvents()
	r.statsWG.Wait()

	r.cancel()

	err := r.err
	duration := time.Since(r.since)
	if err != nil {
		r.logger.Error("cycle failed", "duration", duration, "err", err)
		return err
	}

	r.logger.Info("cycle completed", "duration", duration)
	return nil
}

// Close releases the cycle's resources, flushing the processed-id cache to
// disk. Must be called once per cycle or marked ids stay in the write buffer
// and the next cycle re-processes them.
func (r *Runner) Close() error {
	r.cancel()
	return r.tracker.Close()
}

// bridge runs the extraction engine over each incoming message and drops
// already-recorded ids before they reach the sink stage.
func (r *Runner) bridge(ctx context.Context) error {
	defer r.closeRecords()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case envelope, ok := <-r.messages:
			if !ok {
				return nil
			}

			if envelope.Err != nil {
				r.EmitEvent(stats.Event{Stage: stats.StageMailbox, Type: stats.EventTypeError, Err: envelope.Err})
				r.fail(fmt.Errorf("mailbox envelope: %w", envelope.Err))
				continue
			}

			msg := envelope.Message
			stableID := identity.StableID(msg)
			r.EmitEvent(stats.Event{Stage: stats.StageMailbox, Type: stats.EventTypeScanned, StableID: stableID})

			if r.tracker.AlreadyProcessed(stableID) {
				r.EmitEvent(stats.Event{Stage: stats.StageExtract, Type: stats.EventTypeDuplicate, StableID: stableID})
				continue
			}

			result := r.extractor.Extract(msg.Text())
			if !result.HasAmount {
				r.EmitEvent(stats.Event{Stage: stats.StageExtract, Type: stats.EventTypeNoAmount, StableID: stableID})
			}

			record := model.Record{
				ProcessedAt: time.Now(),
				From:        msg.From,
				Subject:     msg.Subject,
				Amount:      result.Amount,
				Movement:    result.Movement,
				Currency:    result.Currency,
				StableID:    stableID,
			}

			select {
			case <-ctx.Done():
				return ctx.Err()
			case r.records <- record:
				r.EmitEvent(stats.Event{Stage: stats.StageExtract, Type: stats.EventTypeExtracted, StableID: stableID})
			}
		}
	}
}

func (r *Runner) closeRecords() {
	r.closeRecordsOnce.Do(func() {
		close(r.records)
	})
}

func (r *Runner) closeEvents() {
	r.closeEventsOnce.Do(func() {
		close(r.events)
	})
}

func (r *Runner) fail(err error) {
	if err == nil {
		return
	}
	r.errMu.Lock()
	if r.err == nil {
		r.err = err
		r.cancel()
	}
	r.errMu.Unlock()
}
