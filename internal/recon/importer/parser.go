// Package importer handles idempotent batch ingestion of financial documents
// from external tabular feeds.
package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/charterops-recon/internal/domain/shared"
)

// Canonical column names. Upstream exports rename columns across versions, so
// each canonical column accepts a list of known aliases; matching is
// case-insensitive on the trimmed header.
var headerAliases = map[string][]string{
	"date":                     {"date", "doc_date", "txn_date", "transaction_date", "posted"},
	"counterparty":             {"counterparty", "vendor", "payee", "customer", "name"},
	"amount":                   {"amount", "amount_cents", "total", "value"},
	"description":              {"description", "memo", "notes", "details"},
	"gl_code":                  {"gl_code", "gl", "account_code", "account"},
	"linked_booking_reference": {"linked_booking_reference", "booking_ref", "booking_reference", "charter_ref"},
}

var requiredColumns = []string{"date", "counterparty", "amount", "description"}

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"01/02/2006",
	"2006/01/02",
	"02-Jan-2006",
}

// MissingColumnError reports a required column absent from the header row
type MissingColumnError struct {
	Column string
}

func (e MissingColumnError) Error() string {
	return fmt.Sprintf("required column missing from header: %s", e.Column)
}

var ErrEmptyInput = errors.New("input has no header row")

// Parser converts tabular CSV exports into raw import records. It is
// schema-tolerant: required columns are resolved through aliases, unknown
// columns are preserved as record metadata, and a bad row yields a record
// error instead of failing the batch.
type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

// Parse reads an entire CSV stream. The returned errors are per-row; a
// non-nil error return means the stream itself was unusable.
func (p *Parser) Parse(r io.Reader) ([]shared.RawRecord, []shared.RecordError, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil, ErrEmptyInput
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read header: %w", err)
	}

	columns, extras, err := resolveHeader(header)
	if err != nil {
		return nil, nil, err
	}

	var records []shared.RawRecord
	var rowErrors []shared.RecordError

	for index := 0; ; index++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			rowErrors = append(rowErrors, shared.RecordError{Index: index, Message: err.Error()})
			continue
		}

		record, err := buildRecord(row, columns, extras)
		if err != nil {
			rowErrors = append(rowErrors, shared.RecordError{Index: index, Message: err.Error()})
			continue
		}
		records = append(records, record)
	}

	return records, rowErrors, nil
}

// resolveHeader maps canonical column names to positions and collects the
// positions of columns with no canonical meaning.
func resolveHeader(header []string) (map[string]int, map[string]int, error) {
	columns := make(map[string]int)
	extras := make(map[string]int)

	for i, raw := range header {
		name := strings.ToLower(strings.TrimSpace(raw))
		canonical := ""
		for col, aliases := range headerAliases {
			for _, alias := range aliases {
				if name == alias {
					canonical = col
					break
				}
			}
			if canonical != "" {
				break
			}
		}

		if canonical == "" {
			if name != "" {
				extras[name] = i
			}
			continue
		}
		if _, seen := columns[canonical]; !seen {
			columns[canonical] = i
		}
	}

	for _, col := range requiredColumns {
		if _, ok := columns[col]; !ok {
			return nil, nil, MissingColumnError{Column: col}
		}
	}

	return columns, extras, nil
}

func buildRecord(row []string, columns, extras map[string]int) (shared.RawRecord, error) {
	field := func(col string) string {
		i, ok := columns[col]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	date, err := parseDate(field("date"))
	if err != nil {
		return shared.RawRecord{}, err
	}

	cents, err := ParseCents(field("amount"))
	if err != nil {
		return shared.RawRecord{}, err
	}

	counterparty := field("counterparty")
	if counterparty == "" {
		return shared.RawRecord{}, errors.New("counterparty is empty")
	}

	record := shared.RawRecord{
		Date:         date,
		Counterparty: counterparty,
		AmountCents:  cents,
		Description:  field("description"),
		GLCode:       field("gl_code"),
		BookingRef:   field("linked_booking_reference"),
	}

	for name, i := range extras {
		if i >= len(row) {
			continue
		}
		value := strings.TrimSpace(row[i])
		if value == "" {
			continue
		}
		if record.Metadata == nil {
			record.Metadata = make(map[string]string)
		}
		record.Metadata[name] = value
	}

	return record, nil
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, errors.New("date is empty")
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date format: %q", s)
}

// ParseCents parses a decimal money string into integer cents without any
// float arithmetic. Accepts an optional sign, currency symbol, thousands
// separators, and up to two decimal places.
func ParseCents(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("amount is empty")
	}

	neg := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		neg = true
		s = s[1 : len(s)-1]
	}
	switch {
	case strings.HasPrefix(s, "-"):
		neg = !neg
		s = s[1:]
	case strings.HasPrefix(s, "+"):
		s = s[1:]
	}
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, ",", "")

	whole, frac := s, ""
	if dot := strings.IndexByte(s, '.'); dot >= 0 {
		whole, frac = s[:dot], s[dot+1:]
	}
	if whole == "" && frac == "" {
		return 0, fmt.Errorf("malformed amount: %q", s)
	}
	if len(frac) > 2 {
		return 0, fmt.Errorf("amount has more than two decimal places: %q", s)
	}
	for len(frac) < 2 {
		frac += "0"
	}

	var cents int64
	for _, r := range whole + frac {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("malformed amount: %q", s)
		}
		digit := int64(r - '0')
		if cents > (math.MaxInt64-digit)/10 {
			return 0, fmt.Errorf("amount out of range: %q", s)
		}
		cents = cents*10 + digit
	}

	if neg {
		cents = -cents
	}
	return cents, nil
}
