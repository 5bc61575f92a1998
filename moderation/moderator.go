// Package moderation masks censored words in rendered message content.
// Masking is display-side only: the wire payload and the cache keep the
// original text.
package moderation

import (
	"unicode"

	"github.com/abadojack/whatlanggo"
	goahocorasick "github.com/anknown/ahocorasick"

	"pulsechat/errors"
)

// Moderator holds one Aho-Corasick automaton per dictionary language and a
// merged automaton for content whose language cannot be detected.
type Moderator struct {
	machines map[string]*goahocorasick.Machine
	fallback *goahocorasick.Machine
	maskChar rune
}

type textMapping struct {
	normalized []rune
	origIdx    []int
}

// NewModerator builds the automatons from per-language word lists keyed by
// ISO 639-1 code. At least one non-empty dictionary is required.
func NewModerator(dictionaries map[string][]string, maskChar rune) (Moderator, error) {
	machines := make(map[string]*goahocorasick.Machine, len(dictionaries))
	var merged [][]rune

	for lang, words := range dictionaries {
		patterns := make([][]rune, 0, len(words))
		for _, word := range words {
			normalized := normalizeRunes([]rune(word))
			if len(normalized) == 0 {
				continue
			}
			patterns = append(patterns, normalized)
			merged = append(merged, normalized)
		}
		if len(patterns) == 0 {
			continue
		}

		m := new(goahocorasick.Machine)
		if err := m.Build(patterns); err != nil {
			return Moderator{}, err
		}
		machines[lang] = m
	}

	if len(merged) == 0 {
		return Moderator{}, errors.ErrEmptyWords
	}

	fallback := new(goahocorasick.Machine)
	if err := fallback.Build(merged); err != nil {
		return Moderator{}, err
	}

	return Moderator{machines: machines, fallback: fallback, maskChar: maskChar}, nil
}

// Mask replaces censored spans with the mask character, preserving spacing
// and untouched characters. The message language picks the dictionary; text
// whose language has no dedicated dictionary goes through the merged one.
func (m *Moderator) Mask(content string) string {
	mapping := normalize(content)
	if len(mapping.normalized) == 0 {
		return content
	}

	matcher := m.matcherFor(content)
	spans := matcher.MultiPatternSearch(mapping.normalized, false)
	if len(spans) == 0 {
		return content
	}

	origRunes := []rune(content)
	for _, span := range spans {
		normStart := span.Pos
		normEnd := normStart + len(span.Word)
		if normStart < 0 || normEnd > len(mapping.origIdx) {
			continue
		}

		origStart := mapping.origIdx[normStart]
		origEnd := mapping.origIdx[normEnd-1] + 1
		for i := origStart; i < origEnd; i++ {
			origRunes[i] = m.maskChar
		}
	}

	return string(origRunes)
}

func (m *Moderator) matcherFor(content string) *goahocorasick.Machine {
	info := whatlanggo.Detect(content)
	if machine, ok := m.machines[info.Lang.Iso6391()]; ok {
		return machine
	}
	return m.fallback
}

// normalize lowers and folds the input while tracking each kept rune's
// original position, so matches on folded text can be mapped back.
func normalize(input string) textMapping {
	origRunes := []rune(input)
	norm := make([]rune, 0, len(origRunes))
	origIdx := make([]int, 0, len(origRunes))

	for i, r := range origRunes {
		folded := foldRune(r)
		if isNoise(folded) {
			continue
		}
		norm = append(norm, unicode.ToLower(folded))
		origIdx = append(origIdx, i)
	}
	return textMapping{normalized: norm, origIdx: origIdx}
}

func normalizeRunes(runes []rune) []rune {
	out := make([]rune, 0, len(runes))
	for _, r := range runes {
		folded := foldRune(r)
		if isNoise(folded) {
			continue
		}
		out = append(out, unicode.ToLower(folded))
	}
	return out
}

// foldRune collapses the accented variants seen in the dictionaries onto
// their base letter.
func foldRune(r rune) rune {
	switch r {
	case 'à', 'á', 'â', 'ä', 'À', 'Á', 'Â', 'Ä':
		return 'a'
	case 'è', 'é', 'ê', 'ë', 'È', 'É', 'Ê', 'Ë':
		return 'e'
	case 'ì', 'í', 'î', 'ï', 'Ì', 'Í', 'Î', 'Ï':
		return 'i'
	case 'ò', 'ó', 'ô', 'ö', 'Ò', 'Ó', 'Ô', 'Ö':
		return 'o'
	case 'ù', 'ú', 'û', 'ü', 'Ù', 'Ú', 'Û', 'Ü':
		return 'u'
	case 'ç', 'Ç':
		return 'c'
	default:
		return r
	}
}

// isNoise drops separators and punctuation so "m-e-r-d-e" still matches.
func isNoise(r rune) bool {
	return unicode.IsSpace(r) || unicode.IsPunct(r) || unicode.IsSymbol(r)
}
