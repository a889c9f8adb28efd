// Package chunking splits extracted text into overlapping chunks for
// embedding. Splitting is a pure function over a separator priority list so
// chunks respect document structure where the text allows it.
package chunking

import (
	"fmt"
	"strings"
)

// Params configures the splitter. Size and Overlap are measured in runes.
type Params struct {
	Size    int
	Overlap int
}

// DefaultParams returns sensible defaults for prose documents.
func DefaultParams() Params {
	return Params{
		Size:    1000,
		Overlap: 200,
	}
}

// separators is the fallback order: paragraph, line, sentence, word, rune.
// The empty string is the last resort and splits on rune boundaries.
var separators = []string{"\n\n", "\n", ". ", " ", ""}

// Split cuts text into chunks of at most Size runes (plus carried overlap)
// using the highest-priority separator present at each level. Adjacent
// chunks share up to Overlap trailing runes of context.
func Split(text string, params Params) ([]string, error) {
	if params.Size <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", params.Size)
	}
	if params.Overlap >= params.Size {
		return nil, fmt.Errorf("overlap (%d) must be less than size (%d)", params.Overlap, params.Size)
	}
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	return split(text, params, separators), nil
}

func split(text string, params Params, seps []string) []string {
	if runeLen(text) <= params.Size {
		return []string{text}
	}

	sep, rest := chooseSeparator(text, seps)
	if sep == "" {
		return windows(text, params)
	}

	// Expand parts that still exceed Size through the remaining separators,
	// then greedily merge small parts back up to Size.
	var pieces []string
	for _, part := range splitKeep(text, sep) {
		if runeLen(part) > params.Size {
			pieces = append(pieces, split(part, params, rest)...)
		} else {
			pieces = append(pieces, part)
		}
	}
	return merge(pieces, params)
}

// chooseSeparator returns the first separator present in text, along with
// the lower-priority separators after it. The empty-string separator always
// matches.
func chooseSeparator(text string, seps []string) (string, []string) {
	for i, sep := range seps {
		if sep == "" {
			return "", nil
		}
		if strings.Contains(text, sep) {
			return sep, seps[i+1:]
		}
	}
	return "", nil
}

// splitKeep splits text on sep, keeping the separator attached to the
// preceding part so that joining the parts reconstructs the input exactly.
func splitKeep(text, sep string) []string {
	var parts []string
	for {
		idx := strings.Index(text, sep)
		if idx < 0 {
			if text != "" {
				parts = append(parts, text)
			}
			return parts
		}
		parts = append(parts, text[:idx+len(sep)])
		text = text[idx+len(sep):]
	}
}

// merge greedily accumulates parts into chunks of at most Size runes,
// carrying up to Overlap trailing runes of each emitted chunk into the
// next. A chunk that begins with carried overlap may exceed Size by at
// most Overlap.
func merge(parts []string, params Params) []string {
	var chunks []string
	var acc []string
	accRunes := 0
	carried := 0

	for _, part := range parts {
		r := runeLen(part)

		if accRunes+r > params.Size && accRunes > carried {
			chunks = append(chunks, strings.Join(acc, ""))
			acc, carried = carryOverlap(acc, params.Overlap)
			accRunes = carried
		}

		acc = append(acc, part)
		accRunes += r
	}

	if accRunes > carried {
		chunks = append(chunks, strings.Join(acc, ""))
	}
	return chunks
}

// carryOverlap walks backward through the emitted parts and returns the
// trailing parts whose total rune count fits within the overlap budget.
func carryOverlap(parts []string, overlap int) ([]string, int) {
	if overlap == 0 {
		return nil, 0
	}

	total := 0
	start := len(parts)
	for i := len(parts) - 1; i >= 0; i-- {
		r := runeLen(parts[i])
		if total+r > overlap {
			break
		}
		total += r
		start = i
	}
	if start == len(parts) {
		return nil, 0
	}

	carried := make([]string, len(parts)-start)
	copy(carried, parts[start:])
	return carried, total
}

// windows is the rune-boundary last resort: fixed windows of Size runes
// advancing by Size-Overlap.
func windows(text string, params Params) []string {
	runes := []rune(text)
	step := params.Size - params.Overlap

	var chunks []string
	for i := 0; i < len(runes); i += step {
		end := min(i+params.Size, len(runes))
		if i > 0 && end-i <= params.Overlap {
			break
		}
		chunks = append(chunks, string(runes[i:end]))
	}
	return chunks
}

func runeLen(s string) int {
	return len([]rune(s))
}
