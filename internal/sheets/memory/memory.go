// Package memory is an in-process spreadsheet. It speaks the same row format
// as the Google adapter and can mirror each sheet to a CSV file so backups
// survive a restart.
package memory

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"struk/internal/core"
	ports "struk/internal/sheets"
)

type sheet struct {
	title string
	rows  [][]any
}

type Store struct {
	mu     sync.Mutex
	dir    string
	sheets map[string]*sheet
	fail   error
}

var _ ports.Remote = (*Store)(nil)

func New() *Store {
	return &Store{sheets: map[string]*sheet{}}
}

// NewFileBacked loads every <id>.csv in dir and writes each change back.
func NewFileBacked(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create sheet directory: %w", err)
	}
	s := New()
	s.dir = dir
	paths, err := filepath.Glob(filepath.Join(dir, "*.csv"))
	if err != nil {
		return nil, err
	}
	for _, p := range paths {
		rows, err := readCSV(p)
		if err != nil {
			return nil, err
		}
		id := strings.TrimSuffix(filepath.Base(p), ".csv")
		s.sheets[id] = &sheet{title: id, rows: rows}
	}
	return s, nil
}

// FailWith makes every later call return err. Pass nil to recover.
func (s *Store) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail = err
}

// AddRawRow appends row as is, bypassing the codec.
func (s *Store) AddRawRow(sheetID string, row []any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sh, err := s.lookup(sheetID)
	if err != nil {
		return err
	}
	sh.rows = append(sh.rows, row)
	return s.persist(sheetID, sh)
}

// Rows returns a copy of the sheet's rows including the header.
func (s *Store) Rows(sheetID string) [][]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	sh, ok := s.sheets[sheetID]
	if !ok {
		return nil
	}
	return append([][]any(nil), sh.rows...)
}

func (s *Store) lookup(sheetID string) (*sheet, error) {
	if s.fail != nil {
		return nil, s.fail
	}
	sh, ok := s.sheets[sheetID]
	if !ok {
		return nil, fmt.Errorf("%w: spreadsheet %q not found", core.ErrRemoteTransient, sheetID)
	}
	return sh, nil
}

func (s *Store) Create(_ context.Context, title string) (ports.SheetRef, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return ports.SheetRef{}, s.fail
	}
	id := core.NewID()
	sh := &sheet{title: title, rows: [][]any{append([]any(nil), ports.Header...)}}
	s.sheets[id] = sh
	if err := s.persist(id, sh); err != nil {
		delete(s.sheets, id)
		return ports.SheetRef{}, err
	}
	ref := ports.SheetRef{ID: id, Title: title, URL: "mem://" + id}
	if s.dir != "" {
		ref.URL = "file://" + s.path(id)
	}
	return ref, nil
}

func (s *Store) Append(ctx context.Context, sheetID string, tx core.Transaction) error {
	return s.BulkAppend(ctx, sheetID, []core.Transaction{tx})
}

func (s *Store) BulkAppend(_ context.Context, sheetID string, txs []core.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sh, err := s.lookup(sheetID)
	if err != nil {
		return err
	}
	prev := len(sh.rows)
	sh.rows = append(sh.rows, ports.EncodeRows(txs)...)
	if err := s.persist(sheetID, sh); err != nil {
		sh.rows = sh.rows[:prev]
		return err
	}
	return nil
}

func (s *Store) Fetch(_ context.Context, sheetID string) (ports.FetchResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sh, err := s.lookup(sheetID)
	if err != nil {
		return ports.FetchResult{}, err
	}
	return ports.DecodeRows(sh.rows), nil
}

func (s *Store) path(id string) string {
	return filepath.Join(s.dir, id+".csv")
}

func (s *Store) persist(id string, sh *sheet) error {
	if s.dir == "" {
		return nil
	}
	if err := writeCSV(s.path(id), sh.rows); err != nil {
		return fmt.Errorf("%w: %w", core.ErrRemoteTransient, err)
	}
	return nil
}

func readCSV(path string) ([][]any, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open sheet %s: %w", path, err)
	}
	defer f.Close()
	cr := csv.NewReader(f)
	cr.FieldsPerRecord = -1
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", path, err)
	}
	rows := make([][]any, 0, len(records))
	for _, rec := range records {
		row := make([]any, len(rec))
		for i, v := range rec {
			row[i] = v
		}
		// Totals were written by FormatNumber, so "12.345" is a decimal and
		// must not reach the grouped-thousands guess in the codec.
		if len(rec) > ports.TotalColumn {
			if d, err := decimal.NewFromString(rec[ports.TotalColumn]); err == nil {
				row[ports.TotalColumn] = d.InexactFloat64()
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func writeCSV(path string, rows [][]any) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create %s: %w", tmp, err)
	}
	cw := csv.NewWriter(f)
	for _, row := range rows {
		rec := make([]string, len(row))
		for i, v := range row {
			rec[i] = cell(v)
		}
		if err := cw.Write(rec); err != nil {
			f.Close()
			return err
		}
	}
	cw.Flush()
	if err := errors.Join(cw.Error(), f.Close()); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func cell(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return core.FormatNumber(t)
	default:
		return fmt.Sprint(t)
	}
}
