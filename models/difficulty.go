package models

import (
	"fmt"
	"strings"
)

// DifficultyRange is the coarse answer space players guess from.
type DifficultyRange string

const (
	RangeEasy   DifficultyRange = "3-5"
	RangeMedium DifficultyRange = "6-8"
	RangeHard   DifficultyRange = "9+"
)

// AllRanges lists the ranges in ascending order.
var AllRanges = []DifficultyRange{RangeEasy, RangeMedium, RangeHard}

const answerSuffix = " differences"

// RangeFor picks the range label stored on a round. Counts below three are
// labelled "3-5" but are not scored as such, see Contains.
func RangeFor(count int) DifficultyRange {
	switch {
	case count <= 5:
		return RangeEasy
	case count <= 8:
		return RangeMedium
	default:
		return RangeHard
	}
}

// Contains reports whether count lies inside the range's inclusive bounds:
// 3..5, 6..8 and 9 or more.
func (r DifficultyRange) Contains(count int) bool {
	switch r {
	case RangeEasy:
		return count >= 3 && count <= 5
	case RangeMedium:
		return count >= 6 && count <= 8
	case RangeHard:
		return count >= 9
	}
	return false
}

// Label is the text shown on the answer button, e.g. "6-8 differences".
func (r DifficultyRange) Label() string {
	return string(r) + answerSuffix
}

func (r DifficultyRange) Valid() bool {
	switch r {
	case RangeEasy, RangeMedium, RangeHard:
		return true
	}
	return false
}

// ParseAnswer accepts either a full label ("3-5 differences") or a bare
// range ("3-5").
func ParseAnswer(answer string) (DifficultyRange, error) {
	r := DifficultyRange(strings.TrimSuffix(strings.TrimSpace(answer), answerSuffix))
	if !r.Valid() {
		return "", fmt.Errorf("unknown answer %q", answer)
	}
	return r, nil
}
