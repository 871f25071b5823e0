// Package mailbox provides the mail sources feeding the pipeline: a live
// IMAP mailbox and a local mbox archive for backfills. Both emit decoded
// RawMessage envelopes; all MIME and charset handling stays here.
package mailbox

import (
	"context"
	"fmt"

	"github.com/kashbor/bankmail-to-sheets/model"
	"github.com/kashbor/bankmail-to-sheets/runner"
)

// Source streams decoded messages into the pipeline.
type Source interface {
	Stream(ctx context.Context, out chan<- model.Envelope) error
}

// Producer binds a Source to the runner's mailbox stage.
type Producer struct {
	source Source
	runner *runner.Runner
}

func NewProducer(src Source, r *runner.Runner) (*Producer, error) {
	if src == nil {
		return nil, fmt.Errorf("source must not be nil")
	}
	producer := &Producer{source: src, runner: r}
	r.AddStage("mailbox", producer.run)
	return producer, nil
}

func (p *Producer) run(ctx context.Context) error {
	defer p.runner.CloseMailbox()
	return p.source.Stream(ctx, p.runner.MailboxWriter())
}
