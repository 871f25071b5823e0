package mailbox

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"time"

	imapv2 "github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"

	"github.com/kashbor/bankmail-to-sheets/filter"
	"github.com/kashbor/bankmail-to-sheets/model"
)

// IMAPOptions configures the live mailbox source.
type IMAPOptions struct {
	Host               string
	Port               int
	Username           string
	Password           string
	UseTLS             bool
	InsecureSkipVerify bool
	Mailbox            string
	Senders            []string
	LimitPerSender     int
}

// IMAPSource fetches the most recent messages per configured bank sender
// from an IMAP mailbox. Messages are fetched with peek so they stay unread.
type IMAPSource struct {
	opts   IMAPOptions
	filter *filter.Filter
	logger *slog.Logger
}

func NewIMAPSource(opts IMAPOptions, f *filter.Filter, logger *slog.Logger) (*IMAPSource, error) {
	if opts.Host == "" {
		return nil, fmt.Errorf("imap host is empty")
	}
	if opts.Port <= 0 {
		return nil, fmt.Errorf("imap port must be positive")
	}
	if len(opts.Senders) == 0 {
		return nil, fmt.Errorf("at least one sender is required")
	}
	if opts.LimitPerSender <= 0 {
		return nil, fmt.Errorf("limit per sender must be positive")
	}
	if f == nil {
		return nil, fmt.Errorf("filter must not be nil")
	}
	return &IMAPSource{opts: opts, filter: f, logger: logger}, nil
}

func (s *IMAPSource) Stream(ctx context.Context, out chan<- model.Envelope) error {
	client, cleanup, err := s.dial(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	if _, err := client.Select(s.mailboxName(), &imapv2.SelectOptions{ReadOnly: true}).Wait(); err != nil {
		return fmt.Errorf("select %s: %w", s.mailboxName(), err)
	}

	for _, sender := range s.opts.Senders {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.streamSender(ctx, client, sender, out); err != nil {
			return err
		}
	}

	return nil
}

func (s *IMAPSource) streamSender(ctx context.Context, client *imapclient.Client, sender string, out chan<- model.Envelope) error {
	criteria := &imapv2.SearchCriteria{
		Header: []imapv2.SearchCriteriaHeaderField{{Key: "From", Value: sender}},
	}

	data, err := client.Search(criteria, nil).Wait()
	if err != nil {
		return fmt.Errorf("search sender %s: %w", sender, err)
	}

	nums := data.AllSeqNums()
	if len(nums) == 0 {
		if s.logger != nil {
			s.logger.Debug("no messages for sender", "sender", sender)
		}
		return nil
	}
	if len(nums) > s.opts.LimitPerSender {
		nums = nums[len(nums)-s.opts.LimitPerSender:]
	}

	section := &imapv2.FetchItemBodySection{Peek: true}
	fetchOptions := &imapv2.FetchOptions{
		UID:         true,
		Envelope:    true,
		BodySection: []*imapv2.FetchItemBodySection{section},
	}

	msgs, err := client.Fetch(imapv2.SeqSetNum(nums...), fetchOptions).Collect()
	if err != nil {
		return fmt.Errorf("fetch sender %s: %w", sender, err)
	}

	for _, buf := range msgs {
		raw := buf.FindBodySection(section)

		msg := model.RawMessage{
			UID:  strconv.FormatUint(uint64(buf.UID), 10),
			Body: decodeMessage(raw).Body,
		}
		if env := buf.Envelope; env != nil {
			msg.Subject = env.Subject
			msg.From = formatAddresses(env.From)
			msg.MessageID = strings.Trim(env.MessageID, " <>")
			if !env.Date.IsZero() {
				msg.Date = env.Date.Format(time.RFC1123Z)
			}
		}

		if !s.filter.Allows(msg) {
			continue
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case out <- model.Envelope{Message: msg}:
		}
	}

	if s.logger != nil {
		s.logger.Debug("fetched sender", "sender", sender, "messages", len(msgs))
	}

	return nil
}

func (s *IMAPSource) dial(ctx context.Context) (*imapclient.Client, func(), error) {
	address := net.JoinHostPort(s.opts.Host, strconv.Itoa(s.opts.Port))
	options := &imapclient.Options{}

	if s.opts.UseTLS {
		options.TLSConfig = &tls.Config{
			ServerName:         s.opts.Host,
			InsecureSkipVerify: s.opts.InsecureSkipVerify,
		}
	}

	var (
		client *imapclient.Client
		err    error
	)

	if s.opts.UseTLS {
		client, err = imapclient.DialTLS(address, options)
	} else {
		client, err = imapclient.DialInsecure(address, options)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("dial imap %s: %w", address, err)
	}

	if err := client.Login(s.opts.Username, s.opts.Password).Wait(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("imap login failed: %w", err)
	}

	if s.logger != nil {
		s.logger.Debug("imap connection established", "address", address, "user", s.opts.Username, "mailbox", s.mailboxName(), "tls", s.opts.UseTLS)
	}

	stopClose := context.AfterFunc(ctx, func() {
		_ = client.Close()
	})

	cleanup := func() {
		stopClose()
		if ctx.Err() == nil {
			if err := client.Logout().Wait(); err != nil {
				if s.logger != nil {
					s.logger.Warn("imap logout failed", "err", err)
				}
			}
		}
		if err := client.Close(); err != nil && s.logger != nil {
			s.logger.Debug("imap connection closed", "err", err)
		}
	}

	return client, cleanup, nil
}

func (s *IMAPSource) mailboxName() string {
	if s.opts.Mailbox == "" {
		return "INBOX"
	}
	return s.opts.Mailbox
}

func formatAddresses(addrs []imapv2.Address) string {
	parts := make([]string, 0, len(addrs))
	for _, a := range addrs {
		addr := a.Addr()
		if a.Name != "" {
			parts = append(parts, fmt.Sprintf("%s <%s>", a.Name, addr))
		} else {
			parts = append(parts, addr)
		}
	}
	return strings.Join(parts, ", ")
}
