package extract

import (
	"regexp"
	"strings"
)

// numeralPattern matches grouped numerals with optional two-digit decimals
// ("1.234.567,89", "10,000.00") or a bare digit run.
const numeralPattern = `([0-9]{1,3}(?:[.,][0-9]{3})*(?:[.,][0-9]{2})?|[0-9]+)`

// fallbackPattern matches numerals that look like amounts even without a
// currency marker: thousands-grouped, or at least four digits long.
const fallbackPattern = `\b([0-9]{1,3}(?:[.,][0-9]{3})+|[0-9]{4,})\b`

// accountLookbehind is how many characters before a fallback numeral are
// checked for an account word.
const accountLookbehind = 20

// candidate is a parsed numeral together with its character offset.
type candidate struct {
	value int64
	pos   int
}

func markerAlternation(markers []string) string {
	quoted := make([]string, 0, len(markers))
	for _, m := range markers {
		quoted = append(quoted, regexp.QuoteMeta(m))
	}
	// Longest first so "US$" wins over "$" and "Gs." over "Gs".
	for i := 1; i < len(quoted); i++ {
		for j := i; j > 0 && len(quoted[j]) > len(quoted[j-1]); j-- {
			quoted[j], quoted[j-1] = quoted[j-1], quoted[j]
		}
	}
	return "(?:" + strings.Join(quoted, "|") + ")"
}

// scanMarked collects numerals adjacent to a currency marker: prefix matches
// first, then suffix matches, each in text order. Marked numerals are the
// strongest amount signals, so they are collected before any fallback.
func (e *Extractor) scanMarked(lower string) []candidate {
	var cands []candidate
	for _, m := range e.prefixRe.FindAllStringSubmatchIndex(lower, -1) {
		if v, ok := ParseMixedNumeral(lower[m[2]:m[3]]); ok {
			cands = append(cands, candidate{value: v, pos: m[0]})
		}
	}
	for _, m := range e.suffixRe.FindAllStringSubmatchIndex(lower, -1) {
		if v, ok := ParseMixedNumeral(lower[m[2]:m[3]]); ok {
			cands = append(cands, candidate{value: v, pos: m[0]})
		}
	}
	return cands
}

// scanFallback collects unmarked amount-like numerals, skipping any preceded
// by an account word within accountLookbehind bytes.
func (e *Extractor) scanFallback(lower string) []candidate {
	var cands []candidate
	for _, m := range e.fallbackRe.FindAllStringSubmatchIndex(lower, -1) {
		start := m[0] - accountLookbehind
		if start < 0 {
			start = 0
		}
		if containsAny(lower[start:m[0]], e.accountWords) {
			continue
		}
		if v, ok := ParseMixedNumeral(lower[m[2]:m[3]]); ok {
			cands = append(cands, candidate{value: v, pos: m[0]})
		}
	}
	return cands
}

// anchorPositions returns the offset of every context-word occurrence in the
// lower-cased text.
func anchorPositions(lower string, words []string) []int {
	var anchors []int
	for _, w := range words {
		for pos := 0; ; {
			i := strings.Index(lower[pos:], w)
			if i < 0 {
				break
			}
			anchors = append(anchors, pos+i)
			pos += i + len(w)
		}
	}
	return anchors
}

// rankByAnchor picks the candidate with the minimum distance to its nearest
// anchor. Ties keep the earlier candidate in collection order.
func rankByAnchor(cands []candidate, anchors []int) candidate {
	best := cands[0]
	bestDist := nearestAnchor(best.pos, anchors)
	for _, c := range cands[1:] {
		if d := nearestAnchor(c.pos, anchors); d < bestDist {
			best, bestDist = c, d
		}
	}
	return best
}

func nearestAnchor(pos int, anchors []int) int {
	min := -1
	for _, a := range anchors {
		d := pos - a
		if d < 0 {
			d = -d
		}
		if min < 0 || d < min {
			min = d
		}
	}
	return min
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

// ExtractAmount scans text for one monetary amount. Currency-marked numerals
// are preferred; without any, amount-like unmarked numerals are considered.
// When context words are present the candidate nearest one wins, otherwise
// the first candidate in scan order. Returns false when nothing amount-like
// is found.
func (e *Extractor) ExtractAmount(text string) (int64, bool) {
	if text == "" {
		return 0, false
	}

	// Lowering can change byte lengths for some characters; scanning one
	// lowered copy keeps candidate offsets, the veto window and the anchor
	// positions in the same byte space.
	lower := strings.ToLower(text)

	cands := e.scanMarked(lower)
	if len(cands) == 0 {
		cands = e.scanFallback(lower)
	}
	if len(cands) == 0 {
		return 0, false
	}

	anchors := anchorPositions(lower, e.vocab.ContextWords)
	if len(anchors) > 0 {
		return rankByAnchor(cands, anchors).value, true
	}
	return cands[0].value, true
}
