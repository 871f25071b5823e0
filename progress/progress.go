package progress

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/pterm/pterm"

	"github.com/kashbor/bankmail-to-sheets/stats"
)

// Bar manages a progress bar for backfill runs, where the total message
// count is known before streaming starts.
type Bar struct {
	pb          *pterm.ProgressbarPrinter
	total       int
	alreadyDone int
	mu          sync.Mutex
	enabled     bool
}

// New creates a new progress bar if logLevel is "info".
func New(total int, alreadyDone int, logLevel string) *Bar {
	enabled := logLevel == "info"

	bar := &Bar{
		total:       total,
		alreadyDone: alreadyDone,
		enabled:     enabled,
	}

	if enabled {
		pb, _ := pterm.DefaultProgressbar.
			WithTotal(total).
			WithTitle("Processing messages").
			Start()

		bar.pb = pb

		pterm.Info.Printf("Total messages in archive: %d\n", total)
		pterm.Info.Printf("Already recorded: %d\n", alreadyDone)
		pterm.Println()
	}

	return bar
}

// Update advances the progress bar based on the event type.
func (b *Bar) Update(evt stats.Event) {
	if !b.enabled || b.pb == nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	switch evt.Type {
	case stats.EventTypeScanned:
		b.pb.Increment()

		if evt.StableID != "" {
			displayID := evt.StableID
			if len(displayID) > 40 {
				displayID = displayID[:37] + "..."
			}
			b.pb.UpdateTitle("Processing: " + displayID)
		}
	case stats.EventTypeError:
		if evt.Err != nil {
			pterm.Error.Printf("Error: %v\n", evt.Err)
		}
	}
}

// Stop finalizes the progress bar.
func (b *Bar) Stop() {
	if !b.enabled || b.pb == nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.pb.Current < b.total {
		b.pb.Current = b.total
	}

	b.pb.Stop()
	pterm.Success.Println("Backfill complete!")
}

// Subscriber creates a stats subscriber function that updates the bar.
func (b *Bar) Subscriber(ctx context.Context, events <-chan stats.Event) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case evt, ok := <-events:
			if !ok {
				return nil
			}
			b.Update(evt)
		}
	}
}

// Reporter pairs the progress bar with a stats collector that prints the
// closing summary once the stream ends.
type Reporter struct {
	bar       *Bar
	collector *stats.Collector
	logger    *slog.Logger
	started   time.Time
}

func NewReporter(stream stats.EventStream, bar *Bar, logger *slog.Logger) *Reporter {
	reporter := &Reporter{
		bar:       bar,
		collector: stats.NewCollector(),
		logger:    logger,
		started:   time.Now(),
	}

	if bar != nil && bar.enabled {
		stream.SubscribeStats("progress-bar", bar.Subscriber)
		stream.SubscribeStats("progress-stats", reporter.collectStats)
	}

	return reporter
}

func (r *Reporter) collectStats(ctx context.Context, events <-chan stats.Event) error {
	r.collector.Run(ctx, events)

	summary := r.collector.Snapshot()
	duration := time.Since(r.started)

	if r.logger != nil {
		pterm.Println()
		pterm.DefaultSection.Println("Summary Statistics")
		pterm.Info.Printf("Duration: %v\n", duration)
		pterm.Info.Printf("Scanned: %d\n", summary.Scanned)
		pterm.Info.Printf("Extracted: %d\n", summary.Extracted)
		pterm.Info.Printf("Without amount: %d\n", summary.NoAmount)
		pterm.Info.Printf("Appended: %d\n", summary.Appended)
		pterm.Info.Printf("Dry-run appended: %d\n", summary.DryRunAppended)
		pterm.Info.Printf("Duplicates (skipped): %d\n", summary.Duplicates)
		pterm.Info.Printf("Errors: %d\n", summary.Errors)
		if summary.LastError != nil {
			pterm.Error.Printf("Last error: %v\n", summary.LastError)
		}
	}

	return nil
}
