package statement

import (
	"fmt"
	"strconv"
	"strings"
)

// OPParser handles statement exports from OP bank. The export is
// semicolon-delimited with a fixed column order; most columns carry
// supplementary detail that is folded into the Additional field with the
// bank's own Finnish labels preserved.
type OPParser struct{}

// Delimiter implements RecordParser.
func (OPParser) Delimiter() rune { return ';' }

// ParseRecord implements RecordParser.
func (OPParser) ParseRecord(record []string) (*ParsedRecord, error) {
	date, err := parseDate(field(record, 0))
	if err != nil {
		return nil, fmt.Errorf("parsing transaction date: %w", err)
	}

	amount, err := strconv.ParseFloat(normalizeAmount(field(record, 2)), 64)
	if err != nil {
		return nil, fmt.Errorf("parsing transaction amount: %w", err)
	}

	// Exports pad counterparty names with runs of internal whitespace.
	raw := field(record, 5)
	cleaned := strings.Join(strings.Fields(raw), " ")

	return &ParsedRecord{
		Date:            date,
		Amount:          amount,
		CounterParty:    cleaned,
		RawCounterParty: raw,
		Additional:      buildAdditional(record),
	}, nil
}

// buildAdditional folds the remaining statement columns into one
// labeled, comma-separated detail string, skipping empty columns.
func buildAdditional(record []string) string {
	var b strings.Builder

	appendField := func(label, value string) {
		value = strings.TrimSpace(value)
		if value == "" {
			return
		}
		if b.Len() > 0 {
			b.WriteString(", ")
		}
		b.WriteString(label)
		b.WriteString(": ")
		b.WriteString(value)
	}

	appendField("Selitys", field(record, 4))
	appendField("Saajan tilinumero", field(record, 6))

	// The message column sometimes repeats its own label.
	appendField("Viesti", strings.TrimPrefix(field(record, 9), "Viesti:"))

	// Reference numbers come prefixed with "ref=" in newer exports.
	appendField("Viite", strings.TrimPrefix(field(record, 8), "ref="))

	appendField("Laji", field(record, 3))
	appendField("Saajan pankin BIC", field(record, 7))
	appendField("Arkistointitunnus", field(record, 10))
	appendField("Arvopäivä", field(record, 1))

	return b.String()
}
