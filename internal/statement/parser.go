// Package statement parses bank statement exports into staging-ready
// transaction records. Each supported bank format implements
// RecordParser; the import service drives the CSV reader and feeds one
// record at a time to the configured parser.
package statement

import (
	"strings"
	"time"

	apperrors "moneta/internal/errors"
)

// ParsedRecord is one transaction parsed from a statement line.
type ParsedRecord struct {
	Date         time.Time
	Amount       float64
	CounterParty string
	// RawCounterParty is the counterparty exactly as it appeared in the
	// source file, before any cleanup.
	RawCounterParty string
	Additional      string
	CategoryName    string
}

// RecordParser turns one raw CSV record into a ParsedRecord.
type RecordParser interface {
	ParseRecord(record []string) (*ParsedRecord, error)
	// Delimiter is the field separator the format uses.
	Delimiter() rune
}

// ParserFor returns the parser for a format name supplied by the client.
func ParserFor(format string) (RecordParser, error) {
	switch strings.ToLower(format) {
	case "generic":
		return GenericParser{}, nil
	case "op":
		return OPParser{}, nil
	default:
		return nil, apperrors.WithMessage(apperrors.ErrUnknownStatementFormat, "unknown statement format: "+format)
	}
}

// normalizeAmount converts locale-formatted amounts ("1 234,56") into a
// form strconv.ParseFloat accepts.
func normalizeAmount(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, ",", ".")
	return strings.TrimPrefix(s, "+")
}

// parseDate accepts the timestamp and date-only layouts seen across
// statement exports.
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)

	layouts := []string{time.RFC3339, "2006-01-02", "02.01.2006"}
	var err error
	for _, layout := range layouts {
		var t time.Time
		if t, err = time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, err
}

func field(record []string, i int) string {
	if i < 0 || i >= len(record) {
		return ""
	}
	return record[i]
}
