// Package moderation masks abusive words in chat bodies before they
// reach persistence, so history fetches and live delivery agree on
// the stored text.
package moderation

import (
	"bufio"
	"bytes"
	"embed"
	"strings"
	"unicode"

	goahocorasick "github.com/anknown/ahocorasick"
)

//go:embed words/*.txt
var wordFiles embed.FS

type Moderator struct {
	matcher  *goahocorasick.Machine
	maskChar rune
}

// NewModerator builds the Aho-Corasick automaton over a normalized
// version of the word list. Matching ignores case, punctuation and the
// usual digit-for-letter substitutions.
func NewModerator(words []string, maskChar rune) (Moderator, error) {
	patterns := make([][]rune, len(words))
	for i, word := range words {
		patterns[i] = normalize([]rune(word), nil)
	}

	m := new(goahocorasick.Machine)
	if err := m.Build(patterns); err != nil {
		return Moderator{}, err
	}
	return Moderator{matcher: m, maskChar: maskChar}, nil
}

// NewDefaultModerator loads the embedded word lists.
func NewDefaultModerator(maskChar rune) (Moderator, error) {
	words, err := loadEmbeddedWords()
	if err != nil {
		return Moderator{}, err
	}
	return NewModerator(words, maskChar)
}

// Mask replaces every matched span of the original text with the mask
// character while preserving length and spacing.
func (m *Moderator) Mask(original string) string {
	origRunes := []rune(original)
	origIdx := make([]int, 0, len(origRunes))
	normalized := normalize(origRunes, func(i int) { origIdx = append(origIdx, i) })
	if len(normalized) == 0 {
		return original
	}

	spans := m.matcher.MultiPatternSearch(normalized, false)
	for _, span := range spans {
		start := span.Pos
		end := start + len(span.Word)
		if start < 0 || end > len(origIdx) {
			continue
		}
		// Mask the original span including any noise characters
		// sitting between the first and last matched rune.
		for i := origIdx[start]; i <= origIdx[end-1]; i++ {
			origRunes[i] = m.maskChar
		}
	}
	return string(origRunes)
}

// normalize lowercases, folds leet substitutions and drops noise. The
// visit callback, when set, records the original index of every rune
// kept, which lets Mask map match positions back onto the input.
func normalize(input []rune, visit func(origIdx int)) []rune {
	out := make([]rune, 0, len(input))
	for i, r := range input {
		folded := foldRune(r)
		if unicode.IsPunct(folded) || unicode.IsSpace(folded) || unicode.IsSymbol(folded) {
			continue
		}
		out = append(out, unicode.ToLower(folded))
		if visit != nil {
			visit(i)
		}
	}
	return out
}

func foldRune(r rune) rune {
	switch r {
	case '4', '@':
		return 'a'
	case '3':
		return 'e'
	case '1', '!', '|':
		return 'i'
	case '0':
		return 'o'
	case '5', '$':
		return 's'
	}
	return r
}

func loadEmbeddedWords() ([]string, error) {
	entries, err := wordFiles.ReadDir("words")
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	var words []string
	for _, entry := range entries {
		data, err := wordFiles.ReadFile("words/" + entry.Name())
		if err != nil {
			return nil, err
		}
		scanner := bufio.NewScanner(bytes.NewReader(data))
		for scanner.Scan() {
			word := strings.TrimSpace(scanner.Text())
			if word == "" || strings.HasPrefix(word, "#") {
				continue
			}
			if _, ok := seen[word]; ok {
				continue
			}
			seen[word] = struct{}{}
			words = append(words, word)
		}
		if err := scanner.Err(); err != nil {
			return nil, err
		}
	}
	return words, nil
}
