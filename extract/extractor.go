// Package extract turns unstructured bank-notification text into a
// normalized amount, currency and movement direction. All exported
// operations are pure functions over their inputs; an Extractor can be
// shared across goroutines.
package extract

import (
	"fmt"
	"regexp"
	"strings"
)

// Movement classifications.
const (
	MovementDebit   = "debit"
	MovementCredit  = "credit"
	MovementUnknown = "unknown"
)

// CurrencyUSD is returned when a dollar marker is present.
const CurrencyUSD = "USD"

// Result is the outcome of running the engine over one message text.
// HasAmount distinguishes "no amount found" from a genuine zero; Amount is
// 0 whenever HasAmount is false.
type Result struct {
	Amount    int64
	HasAmount bool
	Currency  string
	Movement  string
}

// Extractor applies a Vocabulary to free text.
type Extractor struct {
	vocab        Vocabulary
	prefixRe     *regexp.Regexp
	suffixRe     *regexp.Regexp
	fallbackRe   *regexp.Regexp
	accountWords []string
	debitWords   []string
	creditWords  []string
}

// NewExtractor compiles the scan patterns for the given vocabulary.
func NewExtractor(vocab Vocabulary) (*Extractor, error) {
	if len(vocab.CurrencyMarkers) == 0 {
		return nil, fmt.Errorf("vocabulary has no currency markers")
	}
	if vocab.LocalCurrency == "" {
		return nil, fmt.Errorf("vocabulary has no local currency")
	}

	markers := markerAlternation(vocab.CurrencyMarkers)

	// Up to 8 non-digit characters may sit between a prefix marker and its
	// numeral; bank templates pad with asterisks or spaces there.
	prefixRe, err := regexp.Compile(`(?i)` + markers + `\s*[^0-9]{0,8}\s*` + numeralPattern)
	if err != nil {
		return nil, fmt.Errorf("compile prefix pattern: %w", err)
	}
	suffixRe, err := regexp.Compile(`(?i)` + numeralPattern + `\s*` + markers)
	if err != nil {
		return nil, fmt.Errorf("compile suffix pattern: %w", err)
	}
	fallbackRe, err := regexp.Compile(fallbackPattern)
	if err != nil {
		return nil, fmt.Errorf("compile fallback pattern: %w", err)
	}

	return &Extractor{
		vocab:        vocab,
		prefixRe:     prefixRe,
		suffixRe:     suffixRe,
		fallbackRe:   fallbackRe,
		accountWords: lowerAll(vocab.AccountWords),
		debitWords:   lowerAll(vocab.DebitWords),
		creditWords:  lowerAll(vocab.CreditWords),
	}, nil
}

// Extract runs the amount, currency and movement heuristics independently
// over the same text.
func (e *Extractor) Extract(text string) Result {
	amount, ok := e.ExtractAmount(text)
	return Result{
		Amount:    amount,
		HasAmount: ok,
		Currency:  e.DetectCurrency(text),
		Movement:  e.ClassifyMovement(text),
	}
}

// DetectCurrency returns USD when any dollar marker appears, otherwise the
// vocabulary's local currency. A deliberate binary classifier.
func (e *Extractor) DetectCurrency(text string) string {
	upper := strings.ToUpper(text)
	for _, m := range e.vocab.DollarMarkers {
		if strings.Contains(upper, strings.ToUpper(m)) {
			return CurrencyUSD
		}
	}
	return e.vocab.LocalCurrency
}

// ClassifyMovement returns debit, credit or unknown by keyword membership.
// The debit vocabulary is checked first: when a notification matches both
// sets, debit wins.
func (e *Extractor) ClassifyMovement(text string) string {
	lower := strings.ToLower(text)
	if containsAny(lower, e.debitWords) {
		return MovementDebit
	}
	if containsAny(lower, e.creditWords) {
		return MovementCredit
	}
	return MovementUnknown
}

func lowerAll(words []string) []string {
	out := make([]string, 0, len(words))
	for _, w := range words {
		out = append(out, strings.ToLower(w))
	}
	return out
}
