package testutil

import (
	"bytes"
	"encoding/csv"
)

// CommentsHeader is the header of SampleComments.
var CommentsHeader = []string{"author", "comment", "published_at", "like_count"}

// SampleComments is a small comment export covering every optional column.
var SampleComments = [][]string{
	{"alice", "I love this video, amazing work!", "2024-03-01T10:00:00Z", "12"},
	{"bob", "This is terrible and boring.", "2024-03-01T12:30:00Z", "0"},
	{"carol", "Not bad at all", "2024-03-02T09:15:00Z", "3"},
	{"alice", "Great explanation, very helpful", "2024-03-02T18:45:00Z", "25"},
	{"dave", "I watched it yesterday", "2024-03-03T08:00:00Z", "1"},
	{"erin", "Worst tutorial ever, I hate it", "2024-03-03T20:10:00Z", "2"},
}

// CSV encodes a header and rows.
func CSV(header []string, rows ...[]string) []byte {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write(header)
	for _, r := range rows {
		_ = w.Write(r)
	}
	w.Flush()
	return buf.Bytes()
}

// CommentsCSV returns SampleComments encoded as CSV.
func CommentsCSV() []byte {
	return CSV(CommentsHeader, SampleComments...)
}
