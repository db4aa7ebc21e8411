package nodes

import (
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// Field normalizers. Optional fields never reject input: anything unparseable becomes nil.

// RequiredText trims s and reports whether anything is left
func RequiredText(s string) (string, bool) {
	s = strings.TrimSpace(s)
	return s, s != ""
}

// OptionalText trims s; empty becomes nil
func OptionalText(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// OptionalInt accepts digits only. Values past the INTEGER column range become nil.
func OptionalInt(s string) *int {
	s = strings.TrimSpace(s)
	if !isDigits(s) {
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return nil
	}
	v := int(n)
	return &v
}

// OptionalDecimal accepts a comma or a dot as the decimal separator
func OptionalDecimal(s string) *float64 {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

// WholeNumber parses a decimal and truncates it toward zero
func WholeNumber(s string) *int {
	f := OptionalDecimal(s)
	if f == nil || math.Abs(*f) > math.MaxInt32 {
		return nil
	}
	n := int(*f)
	return &n
}

// TimeOfDay keeps the first five characters of input containing a colon
func TimeOfDay(s string) *string {
	s = strings.TrimSpace(s)
	if !strings.Contains(s, ":") {
		return nil
	}
	if utf8.RuneCountInString(s) > 5 {
		s = string([]rune(s)[:5])
	}
	return &s
}

// LocalClock formats now shifted by the owner's offset as HH:MM
func LocalClock(now time.Time, offsetMin int) string {
	return now.UTC().Add(time.Duration(offsetMin) * time.Minute).Format("15:04")
}

// Rating clamps digits to [0,10]; anything else is 0
func Rating(s string) int {
	s = strings.TrimSpace(s)
	if !isDigits(s) {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		// only overflow is possible here
		return 10
	}
	return clampRating(n)
}

func clampRating(n int) int {
	if n < 0 {
		return 0
	}
	if n > 10 {
		return 10
	}
	return n
}

// Toggle adds item to the selection or removes it when present
func Toggle(sel []string, item string) []string {
	out := make([]string, 0, len(sel)+1)
	found := false
	for _, s := range sel {
		if s == item {
			found = true
			continue
		}
		out = append(out, s)
	}
	if !found {
		out = append(out, item)
	}
	return out
}

// JoinSelection flattens a selection; an empty one is nil
func JoinSelection(sel []string, sep string) *string {
	if len(sel) == 0 {
		return nil
	}
	s := strings.Join(sel, sep)
	return &s
}

// ParseTZ reads offsets like "+3", "-5.5" or "5:30" into minutes east of UTC
func ParseTZ(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	sign := 1
	switch s[0] {
	case '+':
		s = s[1:]
	case '-':
		sign = -1
		s = s[1:]
	}

	var minutes int
	if h, m, ok := strings.Cut(s, ":"); ok {
		hh, err1 := strconv.Atoi(h)
		mm, err2 := strconv.Atoi(m)
		if err1 != nil || err2 != nil || hh < 0 || mm < 0 || mm >= 60 {
			return 0, false
		}
		minutes = hh*60 + mm
	} else {
		f := OptionalDecimal(s)
		if f == nil || *f < 0 {
			return 0, false
		}
		minutes = int(math.Round(*f * 60))
	}
	if minutes > 14*60 {
		return 0, false
	}
	return sign * minutes, true
}
