package sheets

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kashbor/bankmail-to-sheets/model"
	"github.com/kashbor/bankmail-to-sheets/runner"
	"github.com/kashbor/bankmail-to-sheets/state"
	"github.com/kashbor/bankmail-to-sheets/stats"
)

// flushSize bounds how many records accumulate before an append call.
const flushSize = 50

// Appender is the append-only sink contract.
type Appender interface {
	Append(ctx context.Context, records []model.Record) error
}

// Uploader consumes extracted records and appends them to the sink, marking
// each id as processed only after a successful write. In dry-run mode
// nothing is written and ids are only marked in memory.
type Uploader struct {
	sink    Appender
	runner  *runner.Runner
	tracker state.Tracker
	records <-chan model.Record
	dryRun  bool
	logger  *slog.Logger
}

func NewUploader(sink Appender, r *runner.Runner, dryRun bool, logger *slog.Logger) (*Uploader, error) {
	if !dryRun && sink == nil {
		return nil, fmt.Errorf("sink must not be nil")
	}
	tracker := r.Tracker()
	if tracker == nil {
		return nil, fmt.Errorf("tracker must not be nil")
	}
	uploader := &Uploader{
		sink:    sink,
		runner:  r,
		tracker: tracker,
		records: r.Records(),
		dryRun:  dryRun,
		logger:  logger,
	}
	r.AddStage("sheets", uploader.run)
	return uploader, nil
}

func (u *Uploader) run(ctx context.Context) error {
	var batch []model.Record

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case rec, ok := <-u.records:
			if !ok {
				return u.flush(ctx, batch)
			}
			if rec.StableID == "" {
				err := fmt.Errorf("record from %q missing stable id", rec.From)
				u.runner.EmitEvent(stats.Event{Stage: stats.StageSheets, Type: stats.EventTypeError, Err: err})
				return err
			}

			if u.dryRun {
				if err := u.tracker.MarkProcessed(rec.StableID, rec.From); err != nil {
					u.runner.EmitEvent(stats.Event{Stage: stats.StageSheets, Type: stats.EventTypeError, StableID: rec.StableID, Err: err})
					return err
				}
				u.runner.EmitEvent(stats.Event{Stage: stats.StageSheets, Type: stats.EventTypeDryRunAppended, StableID: rec.StableID})
				if u.logger != nil {
					u.logger.Debug("dry-run append", "stableID", rec.StableID, "amount", rec.Amount, "movement", rec.Movement, "currency", rec.Currency)
				}
				continue
			}

			batch = append(batch, rec)
			if len(batch) >= flushSize {
				if err := u.flush(ctx, batch); err != nil {
					return err
				}
				batch = nil
			}
		}
	}
}

func (u *Uploader) flush(ctx context.Context, batch []model.Record) error {
	if len(batch) == 0 {
		return nil
	}

	if err := u.sink.Append(ctx, batch); err != nil {
		u.runner.EmitEvent(stats.Event{Stage: stats.StageSheets, Type: stats.EventTypeError, Err: err})
		return err
	}

	for _, rec := range batch {
		if err := u.tracker.MarkProcessed(rec.StableID, rec.From); err != nil {
			u.runner.EmitEvent(stats.Event{Stage: stats.StageSheets, Type: stats.EventTypeError, StableID: rec.StableID, Err: err})
			return err
		}
		u.runner.EmitEvent(stats.Event{Stage: stats.StageSheets, Type: stats.EventTypeAppended, StableID: rec.StableID})
		if u.logger != nil {
			u.logger.Debug("appended row", "stableID", rec.StableID, "amount", rec.Amount, "movement", rec.Movement, "currency", rec.Currency)
		}
	}

	return nil
}
