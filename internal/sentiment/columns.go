package sentiment

import (
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/ycsa-dashboard/backend/internal/table"
)

// Columns locates the fields the pipeline reads. Absent columns are -1.
type Columns struct {
	Text   int
	Date   int
	Likes  int
	Author int
}

// HasText reports whether a comment text column was found.
func (c Columns) HasText() bool { return c.Text >= 0 }

var (
	textNames   = []string{"comment", "comments", "text", "textdisplay", "textoriginal", "content", "body", "message", "review"}
	dateNames   = []string{"publishedat", "published", "date", "timestamp", "time", "createdat", "updatedat"}
	likesNames  = []string{"likes", "likecount", "like", "votes"}
	authorNames = []string{"author", "authordisplayname", "user", "username"}
)

// normalizeName lowercases a header and drops separators.
func normalizeName(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// DetectColumns maps well-known comment export headers to columns.
func DetectColumns(t *table.Table) Columns {
	norm := make([]string, len(t.Header))
	for i, h := range t.Header {
		norm[i] = normalizeName(h)
	}
	find := func(names []string) int {
		for _, n := range names {
			for i, h := range norm {
				if h == n {
					return i
				}
			}
		}
		return -1
	}

	c := Columns{
		Text:   find(textNames),
		Date:   find(dateNames),
		Likes:  find(likesNames),
		Author: find(authorNames),
	}
	if c.Text < 0 {
		c.Text = longestTextColumn(t, c.Date, c.Likes, c.Author)
	}
	return c
}

// longestTextColumn picks the mostly non-numeric column with the longest
// average cell, ignoring the excluded columns.
func longestTextColumn(t *table.Table, exclude ...int) int {
	best, bestAvg := -1, 0.0
	for i := range t.Header {
		excluded := false
		for _, e := range exclude {
			if e == i {
				excluded = true
			}
		}
		if excluded {
			continue
		}
		total, filled, numeric := 0, 0, 0
		for _, row := range t.Rows {
			cell := strings.TrimSpace(row[i])
			if cell == "" {
				continue
			}
			filled++
			total += len([]rune(cell))
			if _, ok := parseCount(cell); ok {
				numeric++
			}
		}
		if filled == 0 || numeric*2 >= filled {
			continue
		}
		if avg := float64(total) / float64(filled); avg > bestAvg {
			best, bestAvg = i, avg
		}
	}
	return best
}

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006/01/02",
	"01/02/2006 15:04",
	"01/02/2006",
	"02-01-2006",
	time.RFC1123Z,
	time.RFC1123,
}

// parseDay returns the calendar day (UTC) of a timestamp cell.
func parseDay(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	for _, layout := range dateLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.UTC().Format("2006-01-02"), true
		}
	}
	if secs, err := strconv.ParseInt(s, 10, 64); err == nil && secs > 1e8 {
		if secs > 1e11 {
			return time.UnixMilli(secs).UTC().Format("2006-01-02"), true
		}
		return time.Unix(secs, 0).UTC().Format("2006-01-02"), true
	}
	return "", false
}

// parseCount parses like counts such as "12", "1,204" or "3.4K".
func parseCount(s string) (float64, bool) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return 0, false
	}
	mult := 1.0
	switch s[len(s)-1] {
	case 'k', 'K':
		mult, s = 1e3, s[:len(s)-1]
	case 'm', 'M':
		mult, s = 1e6, s[:len(s)-1]
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v * mult, true
}
