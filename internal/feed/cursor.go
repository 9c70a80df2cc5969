package feed

import (
	"fmt"
	"strings"
	"time"
)

const cursorSep = "~"

// Cursor marks the position after the last row of a page. A cursor without
// ID means strictly older than Time.
type Cursor struct {
	Time time.Time
	ID   string
}

var cursorLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02",
}

// ParseCursor accepts a plain ISO-8601 timestamp or the composite
// "<timestamp>~<id>" form emitted by pages. A positive offset whose "+" was
// decoded to a space by an unescaped query string is restored.
func ParseCursor(raw string) (*Cursor, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	ts, id, _ := strings.Cut(raw, cursorSep)
	ts = restoreOffsetSign(ts)
	for _, layout := range cursorLayouts {
		if t, err := time.Parse(layout, ts); err == nil {
			return &Cursor{Time: t.UTC(), ID: id}, nil
		}
	}
	return nil, fmt.Errorf("invalid cursor %q", raw)
}

// restoreOffsetSign turns "...15:04:05 02:00" back into "...15:04:05+02:00".
// The space between date and time at index 10 is left alone.
func restoreOffsetSign(ts string) string {
	i := strings.LastIndexByte(ts, ' ')
	if i <= len("2006-01-02") || !isClockOffset(ts[i+1:]) {
		return ts
	}
	return ts[:i] + "+" + ts[i+1:]
}

func isClockOffset(s string) bool {
	if len(s) != len("07:00") || s[2] != ':' {
		return false
	}
	for _, i := range []int{0, 1, 3, 4} {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// String encodes the cursor in its composite form
func (c Cursor) String() string {
	ts := c.Time.UTC().Format(time.RFC3339Nano)
	if c.ID == "" {
		return ts
	}
	return ts + cursorSep + c.ID
}
