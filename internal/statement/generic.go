package statement

import (
	"fmt"
	"strconv"
)

// GenericParser handles the semicolon-delimited interchange format:
// date;amount;counterparty;additional;category
type GenericParser struct{}

// Delimiter implements RecordParser.
func (GenericParser) Delimiter() rune { return ';' }

// ParseRecord implements RecordParser.
func (GenericParser) ParseRecord(record []string) (*ParsedRecord, error) {
	date, err := parseDate(field(record, 0))
	if err != nil {
		return nil, fmt.Errorf("parsing transaction date: %w", err)
	}

	amount, err := strconv.ParseFloat(normalizeAmount(field(record, 1)), 64)
	if err != nil {
		return nil, fmt.Errorf("parsing transaction amount: %w", err)
	}

	counterParty := field(record, 2)

	return &ParsedRecord{
		Date:            date,
		Amount:          amount,
		CounterParty:    counterParty,
		RawCounterParty: counterParty,
		Additional:      field(record, 3),
		CategoryName:    field(record, 4),
	}, nil
}
