// Package moderation masks forbidden words in outgoing message text
// before it is persisted or delivered.
package moderation

import (
	"unicode"

	"wander-core/errors"

	goahocorasick "github.com/anknown/ahocorasick"
)

// Moderator matches a censored-word automaton against normalized text
// and masks the matched spans in the original string.
type Moderator struct {
	machine *goahocorasick.Machine
	mask    rune
}

// mapping links each normalized rune back to its index in the original text
// so masking preserves spacing and untouched characters.
type mapping struct {
	normalized []rune
	origIdx    []int
}

func NewModerator(censoredWords []string, mask rune) (*Moderator, error) {
	if len(censoredWords) == 0 {
		return nil, errors.ErrEmptyWords
	}
	patterns := make([][]rune, 0, len(censoredWords))
	for _, word := range censoredWords {
		normalized := normalize(word)
		if len(normalized) == 0 {
			continue
		}
		patterns = append(patterns, normalized)
	}

	machine := new(goahocorasick.Machine)
	if err := machine.Build(patterns); err != nil {
		return nil, err
	}
	return &Moderator{machine: machine, mask: mask}, nil
}

// Censor replaces every censored span with the mask rune and returns the
// masked text together with the normalized words that matched.
func (m *Moderator) Censor(original string) (string, []string) {
	mapped := normalizeWithIndexes(original)
	if len(mapped.normalized) == 0 {
		return original, nil
	}

	spans := m.machine.MultiPatternSearch(mapped.normalized, false)
	if len(spans) == 0 {
		return original, nil
	}

	origRunes := []rune(original)
	var found []string
	for _, span := range spans {
		start := span.Pos
		end := start + len(span.Word)
		if start < 0 || end > len(mapped.origIdx) {
			continue
		}
		found = append(found, string(span.Word))
		for i := mapped.origIdx[start]; i <= mapped.origIdx[end-1]; i++ {
			origRunes[i] = m.mask
		}
	}
	return string(origRunes), found
}

func normalize(input string) []rune {
	out := make([]rune, 0, len(input))
	for _, r := range input {
		if skippable(r) {
			continue
		}
		out = append(out, unicode.ToLower(r))
	}
	return out
}

func normalizeWithIndexes(input string) mapping {
	origRunes := []rune(input)
	m := mapping{
		normalized: make([]rune, 0, len(origRunes)),
		origIdx:    make([]int, 0, len(origRunes)),
	}
	for i, r := range origRunes {
		if skippable(r) {
			continue
		}
		m.normalized = append(m.normalized, unicode.ToLower(r))
		m.origIdx = append(m.origIdx, i)
	}
	return m
}

// skippable removes separators so spaced-out words still match.
func skippable(r rune) bool {
	return unicode.IsSpace(r) || unicode.IsPunct(r)
}
