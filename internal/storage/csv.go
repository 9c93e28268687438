package storage

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/Veraticus/smart-finance/internal/common"
	"github.com/Veraticus/smart-finance/internal/model"
	"github.com/shopspring/decimal"
)

// Column names of the delimited record file.
const (
	colID          = "ID"
	colType        = "Type"
	colAmount      = "Amount"
	colCategory    = "Category"
	colDate        = "Date"
	colNote        = "Note"
	colPaidVia     = "PaidVia"
	colUnits       = "Units"
	colSinglePrice = "SinglePrice"
	colExtraNote   = "ExtraNote"
)

// CSVHeader is the column order written by CSVStore.
var CSVHeader = []string{
	colID, colType, colAmount, colCategory, colDate,
	colNote, colPaidVia, colUnits, colSinglePrice, colExtraNote,
}

// CSVStore keeps records in a delimited text file with a header row.
type CSVStore struct {
	logger  *slog.Logger
	path    string
	corrupt bool
}

// NewCSVStore creates a store backed by the file at path. The file does not
// need to exist yet.
func NewCSVStore(path string) (*CSVStore, error) {
	if err := validateString(path, "path"); err != nil {
		return nil, err
	}
	return &CSVStore{
		path:   path,
		logger: slog.Default().With("component", "csv_store"),
	}, nil
}

// Path returns the file backing the store.
func (s *CSVStore) Path() string {
	return s.path
}

// Load reads every record from the file in file order.
func (s *CSVStore) Load(ctx context.Context) ([]model.Record, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return []model.Record{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read record file: %w", err)
	}

	s.corrupt = false
	if bytes.IndexByte(data, 0) >= 0 {
		s.corrupt = true
		return nil, fmt.Errorf("%w: %s contains binary data", common.ErrStoreCorrupted, s.path)
	}

	records, err := readRecords(bytes.NewReader(data), s.logger)
	if err != nil {
		s.corrupt = errors.Is(err, common.ErrStoreCorrupted)
		return nil, err
	}

	s.logger.Debug("Loaded records", "path", s.path, "count", len(records))
	return records, nil
}

// SaveAll atomically replaces the file with records. A file that the last
// Load could not read is first moved aside to <path>.corrupt.
func (s *CSVStore) SaveAll(ctx context.Context, records []model.Record) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	if s.corrupt {
		backup := s.path + ".corrupt"
		if err := os.Rename(s.path, backup); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to move unreadable record file aside: %w", err)
		}
		s.logger.Warn("Moved unreadable record file aside", "backup", backup)
		s.corrupt = false
	}

	err := WriteFileAtomic(s.path, 0600, func(w io.Writer) error {
		return writeRecords(w, records)
	})
	if err != nil {
		return fmt.Errorf("failed to save records: %w", err)
	}

	s.logger.Debug("Saved records", "path", s.path, "count", len(records))
	return nil
}

// Close is a no-op; the file is opened per operation.
func (s *CSVStore) Close() error {
	return nil
}

func readRecords(r io.Reader, logger *slog.Logger) ([]model.Record, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return []model.Record{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrStoreCorrupted, err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.TrimPrefix(strings.TrimSpace(name), "\uFEFF")] = i
	}
	if _, ok := index[colType]; !ok {
		logger.Debug("Header has no type column, records load untyped", "header", header)
	}

	records := []model.Record{}
	for line := 2; ; line++ {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", common.ErrStoreCorrupted, err)
		}
		if isBlankRow(row) {
			continue
		}
		records = append(records, parseRow(row, index, line, logger))
	}

	assignMissingIDs(records)
	return records, nil
}

func parseRow(row []string, index map[string]int, line int, logger *slog.Logger) model.Record {
	field := func(name string) string {
		i, ok := index[name]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}
	cell := func(name string) string {
		return strings.TrimSpace(field(name))
	}

	var rec model.Record

	if raw := cell(colID); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			logger.Debug("Ignoring malformed id", "line", line, "value", raw)
		} else {
			rec.ID = id
		}
	}

	if t, err := model.ParseRecordType(cell(colType)); err == nil {
		rec.Type = t
	} else {
		rec.Type = model.RecordType(cell(colType))
		logger.Debug("Unknown record type", "line", line, "value", cell(colType))
	}

	if raw := cell(colAmount); raw != "" {
		amount, err := decimal.NewFromString(raw)
		if err != nil {
			logger.Debug("Malformed amount, using zero", "line", line, "value", raw)
		} else {
			rec.Amount = amount
		}
	}

	if raw := cell(colDate); raw != "" {
		date, err := model.ParseDate(raw)
		if err != nil {
			logger.Debug("Malformed date", "line", line, "value", raw)
		} else {
			rec.Date = date
		}
	}

	rec.Category = cell(colCategory)
	// free text is kept verbatim
	rec.Note = field(colNote)
	rec.PaidVia = field(colPaidVia)
	rec.ExtraNote = field(colExtraNote)
	rec.Units = parseNullDecimal(cell(colUnits))
	rec.SinglePrice = parseNullDecimal(cell(colSinglePrice))

	return rec
}

func parseNullDecimal(raw string) decimal.NullDecimal {
	if raw == "" {
		return decimal.NullDecimal{}
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(d)
}

func formatNullDecimal(d decimal.NullDecimal) string {
	if !d.Valid {
		return ""
	}
	return d.Decimal.String()
}

func isBlankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// assignMissingIDs gives rows without an ID the next free identifier, in file
// order. Files written before IDs existed end up numbered by position.
func assignMissingIDs(records []model.Record) {
	var maxID int64
	seen := make(map[int64]bool, len(records))
	for i := range records {
		id := records[i].ID
		if id == 0 {
			continue
		}
		if seen[id] {
			records[i].ID = 0
			continue
		}
		seen[id] = true
		if id > maxID {
			maxID = id
		}
	}
	for i := range records {
		if records[i].ID == 0 {
			maxID++
			records[i].ID = maxID
		}
	}
}

func writeRecords(w io.Writer, records []model.Record) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(CSVHeader); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, r := range records {
		row := []string{
			strconv.FormatInt(r.ID, 10),
			string(r.Type),
			r.Amount.String(),
			r.Category,
			model.FormatDate(r.Date),
			r.Note,
			r.PaidVia,
			formatNullDecimal(r.Units),
			formatNullDecimal(r.SinglePrice),
			r.ExtraNote,
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write record %d: %w", r.ID, err)
		}
	}

	writer.Flush()
	return writer.Error()
}
