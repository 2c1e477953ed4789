package store

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/khimraj/budget-planner/internal/domain"
)

// ParseTable decodes canonical CSV content into a table. The header must be
// exactly the four canonical columns; any column mismatch or unparseable row
// is a load failure, never silently dropped.
func ParseTable(data []byte) (domain.Table, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = len(domain.Columns)

	header, err := r.Read()
	if err == io.EOF {
		return domain.Table{}, fmt.Errorf("empty source: missing header row")
	}
	if err != nil {
		return domain.Table{}, fmt.Errorf("read header: %w", err)
	}
	if err := checkHeader(header); err != nil {
		return domain.Table{}, err
	}

	var rows []domain.Transaction
	for line := 2; ; line++ {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return domain.Table{}, fmt.Errorf("line %d: %w", line, err)
		}

		tx, err := parseRecord(record)
		if err != nil {
			return domain.Table{}, fmt.Errorf("line %d: %w", line, err)
		}
		rows = append(rows, tx)
	}

	return domain.Table{Rows: rows}, nil
}

// EncodeTable renders a table as canonical CSV, header included. Amounts are
// written with two decimal places.
func EncodeTable(t domain.Table) []byte {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	_ = w.Write(domain.Columns)
	for _, tx := range t.Rows {
		_ = w.Write([]string{
			tx.Date.String(),
			tx.Description,
			tx.Amount.StringFixed(2),
			tx.Category,
		})
	}
	w.Flush()
	return buf.Bytes()
}

func checkHeader(header []string) error {
	if len(header) != len(domain.Columns) {
		return fmt.Errorf("header has %d columns, want %d (%s)",
			len(header), len(domain.Columns), strings.Join(domain.Columns, ","))
	}
	for i, want := range domain.Columns {
		if strings.TrimSpace(header[i]) != want {
			return fmt.Errorf("header column %d is %q, want %q", i+1, header[i], want)
		}
	}
	return nil
}

func parseRecord(record []string) (domain.Transaction, error) {
	date, err := civil.ParseDate(strings.TrimSpace(record[0]))
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("invalid date %q: %w", record[0], err)
	}

	amount, err := decimal.NewFromString(strings.TrimSpace(record[2]))
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("invalid amount %q: %w", record[2], err)
	}

	return domain.Transaction{
		Date:        date,
		Description: record[1],
		Amount:      amount,
		Category:    domain.CoerceCategory(record[3]),
	}, nil
}
