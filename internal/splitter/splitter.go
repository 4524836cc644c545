// Package splitter parses the assistant's raw response into its three
// sections: prose summary, fenced code, prose discussion. The
// summary/code/discussion convention is fragile by nature, so the
// parser fails loudly on violations instead of guessing — an artifact
// is only ever written from an explicitly recognized code region.
package splitter

import (
	"errors"
	"strings"
)

// ErrMalformed indicates the raw response held no complete fenced code
// region. The unit is skipped; nothing is written.
var ErrMalformed = errors.New("malformed response: no fenced code region")

// Result is the parsed output of one conversion. Code is always
// non-empty; Summary and Discussion may be empty.
type Result struct {
	Unit       string
	Summary    string
	Code       string
	Discussion string
}

// Split parses a raw response. The first fenced region (``` with an
// optional language tag) is the code artifact: everything strictly
// before it is the summary, everything strictly after its closing fence
// is the discussion. Later fenced regions are folded into the
// discussion verbatim rather than discarded. Split is pure: no I/O,
// deterministic output for identical input.
func Split(unit, raw string) (Result, error) {
	lines := strings.Split(raw, "\n")

	open := -1
	for i, line := range lines {
		if isFence(line) {
			open = i
			break
		}
	}
	if open < 0 {
		return Result{}, ErrMalformed
	}

	closing := -1
	for i := open + 1; i < len(lines); i++ {
		if isFence(lines[i]) {
			closing = i
			break
		}
	}
	if closing < 0 {
		return Result{}, ErrMalformed
	}

	code := joinTrimmed(lines[open+1 : closing])
	if code == "" {
		return Result{}, ErrMalformed
	}

	return Result{
		Unit:       unit,
		Summary:    joinTrimmed(lines[:open]),
		Code:       code,
		Discussion: joinTrimmed(lines[closing+1:]),
	}, nil
}

// isFence reports whether a line opens or closes a fenced region.
// Opening fences may carry a language tag; closing fences may carry
// trailing whitespace.
func isFence(line string) bool {
	return strings.HasPrefix(strings.TrimSpace(line), "```")
}

// joinTrimmed joins lines after dropping leading and trailing blank
// lines. Interior whitespace is preserved byte-for-byte.
func joinTrimmed(lines []string) string {
	start := 0
	for start < len(lines) && strings.TrimSpace(lines[start]) == "" {
		start++
	}
	end := len(lines)
	for end > start && strings.TrimSpace(lines[end-1]) == "" {
		end--
	}
	return strings.Join(lines[start:end], "\n")
}
