package mailbox

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	mboxlib "github.com/emersion/go-mbox"

	"github.com/kashbor/bankmail-to-sheets/filter"
	"github.com/kashbor/bankmail-to-sheets/model"
)

// MboxSource streams a local mbox archive through the pipeline. Used for
// backfills from exported mailboxes where no live IMAP session exists; the
// sender allow-list is applied client-side since there is no server search.
type MboxSource struct {
	path   string
	filter *filter.Filter
	logger *slog.Logger
}

func NewMboxSource(path string, f *filter.Filter, logger *slog.Logger) (*MboxSource, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("mbox path is empty")
	}
	if f == nil {
		return nil, fmt.Errorf("filter must not be nil")
	}
	return &MboxSource{path: path, filter: f, logger: logger}, nil
}

func (s *MboxSource) Stream(ctx context.Context, out chan<- model.Envelope) error {
	file, err := os.Open(s.path)
	if err != nil {
		return fmt.Errorf("open mbox: %w", err)
	}
	defer file.Close()

	reader := mboxlib.NewReader(file)

	for idx := 0; ; idx++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		msgReader, err := reader.NextMessage()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return s.emitError(ctx, out, fmt.Errorf("message %d: %w", idx, err))
		}

		raw, err := io.ReadAll(msgReader)
		if err != nil {
			return s.emitError(ctx, out, fmt.Errorf("message %d read: %w", idx, err))
		}

		msg := decodeMessage(raw)
		if !s.filter.Allows(msg) {
			continue
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case out <- model.Envelope{Message: msg}:
		}
	}
}

func (s *MboxSource) emitError(ctx context.Context, out chan<- model.Envelope, err error) error {
	if s.logger != nil {
		s.logger.Error("mbox stream error", "path", s.path, "err", err)
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case out <- model.Envelope{Err: err}:
		return nil
	}
}

// ReadArchive iterates a local mbox archive, calling fn for each decoded
// message. Used by the analyze command.
func ReadArchive(path string, fn func(model.RawMessage) error) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open mbox: %w", err)
	}
	defer file.Close()

	reader := mboxlib.NewReader(file)

	for {
		msgReader, err := reader.NextMessage()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		raw, err := io.ReadAll(msgReader)
		if err != nil {
			// skip unreadable messages, keep going
			continue
		}

		if err := fn(decodeMessage(raw)); err != nil {
			return err
		}
	}
}

// CountMessages counts the messages in an mbox archive without parsing them.
func CountMessages(path string) (int, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open mbox: %w", err)
	}
	defer file.Close()

	reader := mboxlib.NewReader(file)

	count := 0
	for {
		msgReader, err := reader.NextMessage()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return count, nil
			}
			return 0, err
		}

		if _, err := io.Copy(io.Discard, msgReader); err != nil {
			count++
			continue
		}
		count++
	}
}
