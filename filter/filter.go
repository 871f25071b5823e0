// Package filter decides which decoded messages enter the extraction
// pipeline: a sender allow-list plus optional regex include/exclude lists
// over subject and body.
package filter

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/kashbor/bankmail-to-sheets/model"
)

// Options captures the filtering configuration. Senders are matched as
// case-insensitive substrings of the From header; the regex lists follow
// include/exclude semantics and are mutually exclusive.
type Options struct {
	Senders        []string
	IncludeSubject []string
	IncludeBody    []string
	ExcludeSubject []string
	ExcludeBody    []string
}

// Filter holds the compiled match configuration.
type Filter struct {
	senders        []string
	includeMode    bool
	excludeMode    bool
	includeSubject []*regexp.Regexp
	includeBody    []*regexp.Regexp
	excludeSubject []*regexp.Regexp
	excludeBody    []*regexp.Regexp
}

// New creates a new Filter from the provided options.
func New(opts Options) (*Filter, error) {
	includeSubject, err := compilePatterns(opts.IncludeSubject)
	if err != nil {
		return nil, fmt.Errorf("compile include-subject pattern: %w", err)
	}
	includeBody, err := compilePatterns(opts.IncludeBody)
	if err != nil {
		return nil, fmt.Errorf("compile include-body pattern: %w", err)
	}
	excludeSubject, err := compilePatterns(opts.ExcludeSubject)
	if err != nil {
		return nil, fmt.Errorf("compile exclude-subject pattern: %w", err)
	}
	excludeBody, err := compilePatterns(opts.ExcludeBody)
	if err != nil {
		return nil, fmt.Errorf("compile exclude-body pattern: %w", err)
	}

	includeActive := len(includeSubject) > 0 || len(includeBody) > 0
	excludeActive := len(excludeSubject) > 0 || len(excludeBody) > 0
	if includeActive && excludeActive {
		return nil, fmt.Errorf("include and exclude filters are mutually exclusive")
	}

	senders := make([]string, 0, len(opts.Senders))
	for _, s := range opts.Senders {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			senders = append(senders, s)
		}
	}

	return &Filter{
		senders:        senders,
		includeMode:    includeActive,
		excludeMode:    excludeActive,
		includeSubject: includeSubject,
		includeBody:    includeBody,
		excludeSubject: excludeSubject,
		excludeBody:    excludeBody,
	}, nil
}

// Allows returns true if the message passes the sender allow-list and the
// regex criteria. An empty sender list lets every sender through.
func (f *Filter) Allows(msg model.RawMessage) bool {
	if !f.fromAllowed(msg.From) {
		return false
	}

	if f.includeMode {
		return matchAny(f.includeSubject, msg.Subject) || matchAny(f.includeBody, msg.Body)
	}

	if f.excludeMode {
		if matchAny(f.excludeSubject, msg.Subject) || matchAny(f.excludeBody, msg.Body) {
			return false
		}
	}

	return true
}

func (f *Filter) fromAllowed(from string) bool {
	if len(f.senders) == 0 {
		return true
	}
	lower := strings.ToLower(from)
	for _, s := range f.senders {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}

func compilePatterns(patterns []string) ([]*regexp.Regexp, error) {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, pattern := range patterns {
		pattern = strings.TrimSpace(pattern)
		if pattern == "" {
			continue
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("compile %q: %w", pattern, err)
		}
		compiled = append(compiled, re)
	}
	return compiled, nil
}

func matchAny(patterns []*regexp.Regexp, text string) bool {
	if len(patterns) == 0 {
		return false
	}
	for _, re := range patterns {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}
