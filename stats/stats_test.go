package stats

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCollector(t *testing.T) {
	events := make(chan Event, 16)
	events <- Event{Stage: StageMailbox, Type: EventTypeScanned, StableID: "a"}
	events <- Event{Stage: StageMailbox, Type: EventTypeScanned, StableID: "b"}
	events <- Event{Stage: StageExtract, Type: EventTypeDuplicate, StableID: "a"}
	events <- Event{Stage: StageExtract, Type: EventTypeExtracted, StableID: "b"}
	events <- Event{Stage: StageExtract, Type: EventTypeNoAmount, StableID: "b"}
	events <- Event{Stage: StageSheets, Type: EventTypeAppended, StableID: "b"}
	events <- Event{Stage: StageSheets, Type: EventTypeDryRunAppended, StableID: "b"}
	events <- Event{Stage: StageSheets, Type: EventTypeError, Err: errors.New("boom")}
	close(events)

	collector := NewCollector()
	collector.Run(context.Background(), events)

	summary := collector.Snapshot()
	assert.Equal(t, 2, summary.Scanned)
	assert.Equal(t, 1, summary.Duplicates)
	assert.Equal(t, 1, summary.Extracted)
	assert.Equal(t, 1, summary.NoAmount)
	assert.Equal(t, 1, summary.Appended)
	assert.Equal(t, 1, summary.DryRunAppended)
	assert.Equal(t, 1, summary.Errors)
	assert.EqualError(t, summary.LastError, "boom")
}

func TestCollectorStopsOnContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	collector := NewCollector()
	collector.Run(ctx, make(chan Event))

	assert.Equal(t, Summary{}, collector.Snapshot())
}

func TestSummaryLogAttrs(t *testing.T) {
	summary := Summary{Scanned: 3, Errors: 1, LastError: errors.New("boom")}

	attrs := summary.LogAttrs()
	assert.Contains(t, attrs, "scanned")
	assert.Contains(t, attrs, "lastError")
	assert.Contains(t, attrs, "boom")
}
