// Package parquetstore keeps daily bars on disk as Parquet files, one file per
// code and year.
package parquetstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/parquet-go/parquet-go"

	"aShareBacktest/internal/domain"
	"aShareBacktest/internal/market"
	"aShareBacktest/internal/ports"
)

// Compile-time interface check.
var _ ports.BarRepository = (*Store)(nil)

const marketDir = "cn"

// Store implements ports.BarRepository using Parquet files.
type Store struct {
	DataDir string

	mu sync.Mutex // serializes read-merge-write cycles
}

// NewStore creates a Store rooted at dataDir.
func NewStore(dataDir string) *Store {
	return &Store{DataDir: dataDir}
}

// BarRecord is the Parquet schema for daily bar data.
type BarRecord struct {
	Code      string  `parquet:"code"`
	Timestamp int64   `parquet:"timestamp,timestamp(millisecond)"` // Unix ms, UTC midnight
	Open      float64 `parquet:"open"`
	High      float64 `parquet:"high"`
	Low       float64 `parquet:"low"`
	Close     float64 `parquet:"close"`
	Volume    float64 `parquet:"volume"`
}

// WriteBars merges bars into the per-year files of code. Rows with the same
// calendar day as an existing row replace it.
func (s *Store) WriteBars(ctx context.Context, code string, bars []domain.Bar) error {
	if len(bars) == 0 {
		return nil
	}
	if err := market.ValidateCode(code); err != nil {
		return err
	}
	code = market.StripSuffix(code)

	groups := make(map[int][]BarRecord)
	for _, b := range bars {
		day := domain.CalendarDay(b.Date)
		groups[day.Year()] = append(groups[day.Year()], BarRecord{
			Code:      code,
			Timestamp: day.UnixMilli(),
			Open:      b.Open,
			High:      b.High,
			Low:       b.Low,
			Close:     b.Close,
			Volume:    b.Volume,
		})
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for year, records := range groups {
		if err := ctx.Err(); err != nil {
			return err
		}
		path := s.barPath(code, year)

		var existing []BarRecord
		if _, err := os.Stat(path); err == nil {
			if existing, err = readParquetFile[BarRecord](path); err != nil {
				return fmt.Errorf("%w: reading %s: %v", ports.ErrStorageRead, path, err)
			}
		} else if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %v", ports.ErrStorageRead, err)
		}
		merged := mergeBarRecords(existing, records)

		if err := writeParquetFile(path, merged); err != nil {
			return fmt.Errorf("%w: writing bars for %s/%d: %v", ports.ErrStorageWrite, code, year, err)
		}
	}
	return nil
}

// ReadBars reads bars for code with start <= date <= end, ascending. A zero
// bound is open. A code with no files yields an empty slice.
func (s *Store) ReadBars(ctx context.Context, code string, start, end time.Time) ([]domain.Bar, error) {
	code = market.StripSuffix(code)
	years, err := s.years(code)
	if err != nil {
		return nil, err
	}
	if !start.IsZero() {
		start = domain.CalendarDay(start)
	}
	if !end.IsZero() {
		end = domain.CalendarDay(end)
	}

	var bars []domain.Bar
	for _, year := range years {
		if (!start.IsZero() && year < start.Year()) || (!end.IsZero() && year > end.Year()) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		path := s.barPath(code, year)
		records, err := readParquetFile[BarRecord](path)
		if err != nil {
			return nil, fmt.Errorf("%w: reading %s: %v", ports.ErrStorageRead, path, err)
		}
		for _, r := range records {
			ts := time.UnixMilli(r.Timestamp).UTC()
			if (!start.IsZero() && ts.Before(start)) || (!end.IsZero() && ts.After(end)) {
				continue
			}
			bars = append(bars, domain.Bar{
				Date:   ts,
				Open:   r.Open,
				High:   r.High,
				Low:    r.Low,
				Close:  r.Close,
				Volume: r.Volume,
			})
		}
	}
	return bars, nil
}

// ListCodes lists all codes that have bar files.
func (s *Store) ListCodes(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dailyDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", ports.ErrStorageRead, err)
	}

	var codes []string
	for _, e := range entries {
		if e.IsDir() {
			codes = append(codes, e.Name())
		}
	}
	sort.Strings(codes)
	return codes, nil
}

// years returns the years that have a file for code, ascending.
func (s *Store) years(code string) ([]int, error) {
	entries, err := os.ReadDir(filepath.Join(s.dailyDir(), code))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", ports.ErrStorageRead, err)
	}
	var years []int
	for _, e := range entries {
		name, ok := strings.CutSuffix(e.Name(), ".parquet")
		if !ok || e.IsDir() {
			continue
		}
		if y, err := strconv.Atoi(name); err == nil {
			years = append(years, y)
		}
	}
	sort.Ints(years)
	return years, nil
}

func (s *Store) dailyDir() string {
	return filepath.Join(s.DataDir, marketDir, "daily")
}

// barPath returns the filesystem path for a bar Parquet file.
// Layout: <dataDir>/cn/daily/<CODE>/<YYYY>.parquet
func (s *Store) barPath(code string, year int) string {
	return filepath.Join(s.dailyDir(), code, strconv.Itoa(year)+".parquet")
}

func writeParquetFile[T any](path string, records []T) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return parquet.WriteFile(path, records)
}

func readParquetFile[T any](path string) ([]T, error) {
	return parquet.ReadFile[T](path)
}

// mergeBarRecords deduplicates records by timestamp, preferring incoming
// records over existing ones. The result is sorted by timestamp.
func mergeBarRecords(existing, incoming []BarRecord) []BarRecord {
	seen := make(map[int64]BarRecord, len(existing)+len(incoming))
	for _, r := range existing {
		seen[r.Timestamp] = r
	}
	for _, r := range incoming {
		seen[r.Timestamp] = r
	}

	merged := make([]BarRecord, 0, len(seen))
	for _, r := range seen {
		merged = append(merged, r)
	}
	sort.Slice(merged, func(i, j int) bool {
		return merged[i].Timestamp < merged[j].Timestamp
	})
	return merged
}
