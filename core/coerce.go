package core

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// CoerceCount converts a raw counter value to a non-negative integer.
// Missing, unparseable and negative values become 0.
func CoerceCount(v any) int64 {
	var n float64
	switch x := v.(type) {
	case nil:
		return 0
	case int:
		n = float64(x)
	case int8:
		n = float64(x)
	case int16:
		n = float64(x)
	case int32:
		n = float64(x)
	case int64:
		if x < 0 {
			return 0
		}
		return x
	case uint:
		n = float64(x)
	case uint8:
		n = float64(x)
	case uint16:
		n = float64(x)
	case uint32:
		n = float64(x)
	case uint64:
		if x > math.MaxInt64 {
			return math.MaxInt64
		}
		return int64(x)
	case float32:
		n = float64(x)
	case float64:
		n = x
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return 0
		}
		n = f
	case string:
		f, ok := parseCountString(x)
		if !ok {
			return 0
		}
		n = f
	case []byte:
		f, ok := parseCountString(string(x))
		if !ok {
			return 0
		}
		n = f
	default:
		return 0
	}
	if math.IsNaN(n) || n <= 0 {
		return 0
	}
	if n >= math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(n)
}

// parseCountString accepts "1234", "1,234", "1.2K", "3M" and "2B".
func parseCountString(s string) (float64, bool) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	if s == "" {
		return 0, false
	}
	mult := 1.0
	switch s[len(s)-1] {
	case 'k', 'K':
		mult = 1e3
	case 'm', 'M':
		mult = 1e6
	case 'b', 'B':
		mult = 1e9
	}
	if mult != 1 {
		s = s[:len(s)-1]
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f * mult, true
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	time.DateTime,
	time.DateOnly,
}

// CoerceTime converts a raw timestamp to UTC.
// It returns nil for missing or unrecognized values.
func CoerceTime(v any) *time.Time {
	var t time.Time
	switch x := v.(type) {
	case nil:
		return nil
	case time.Time:
		if x.IsZero() {
			return nil
		}
		t = x
	case *time.Time:
		if x == nil || x.IsZero() {
			return nil
		}
		t = *x
	case string:
		parsed, ok := parseTimeString(strings.TrimSpace(x))
		if !ok {
			return nil
		}
		t = parsed
	case int, int32, int64, float64, json.Number:
		n := CoerceCount(x)
		if n == 0 {
			return nil
		}
		t = fromUnix(n)
	default:
		return nil
	}
	t = t.UTC()
	return &t
}

func parseTimeString(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil && n > 0 {
		return fromUnix(n), true
	}
	return time.Time{}, false
}

// fromUnix treats values past year 2286 in seconds as milliseconds.
func fromUnix(n int64) time.Time {
	if n > 9_999_999_999 {
		return time.UnixMilli(n)
	}
	return time.Unix(n, 0)
}

// CoerceString formats a raw scalar as a string.
// Floats with no fractional part print without an exponent so numeric ids stay stable.
func CoerceString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	case float64:
		if x == math.Trunc(x) && math.Abs(x) < 1e18 {
			return strconv.FormatInt(int64(x), 10)
		}
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return CoerceString(float64(x))
	case json.Number:
		return x.String()
	case time.Time:
		return x.UTC().Format(time.RFC3339)
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}

// CoerceStrings converts a list or a comma/space separated string to a string slice.
// Blank entries are dropped.
func CoerceStrings(v any) []string {
	var parts []string
	switch x := v.(type) {
	case nil:
		return nil
	case []string:
		parts = x
	case []any:
		parts = make([]string, 0, len(x))
		for _, item := range x {
			parts = append(parts, CoerceString(item))
		}
	case string:
		parts = strings.FieldsFunc(x, func(r rune) bool {
			return r == ',' || r == ' ' || r == '\n' || r == '\t'
		})
	default:
		return nil
	}
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

var hashtagPattern = regexp.MustCompile(`#([\p{L}\p{N}_]+)`)

// ExtractHashtags returns the distinct hashtags in text, lower-cased, without '#'.
func ExtractHashtags(text string) []string {
	matches := hashtagPattern.FindAllStringSubmatch(text, -1)
	tags := make([]string, 0, len(matches))
	for _, m := range matches {
		tags = append(tags, m[1])
	}
	return NormalizeHashtags(tags)
}

// NormalizeHashtags lower-cases, strips '#' and de-duplicates tags, keeping first-seen order.
func NormalizeHashtags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(tag), "#"))
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}
