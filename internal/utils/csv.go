package utils

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"aShareBacktest/internal/analytics"
	"aShareBacktest/internal/domain"
	"aShareBacktest/internal/ports"
)

// columnAliases maps accepted header names, including the Chinese column
// names used by common A-share data vendors, to canonical ones.
var columnAliases = map[string]string{
	"date":       "date",
	"trade_date": "date",
	"日期":         "date",
	"open":       "open",
	"开盘":         "open",
	"high":       "high",
	"最高":         "high",
	"low":        "low",
	"最低":         "low",
	"close":      "close",
	"收盘":         "close",
	"volume":     "volume",
	"vol":        "volume",
	"成交量":        "volume",
}

var dateLayouts = []string{"2006-01-02", "2006/01/02", "20060102", time.RFC3339}

// ReadBarsFromCSV reads a daily bar table from filename.
func ReadBarsFromCSV(filename string) ([]domain.Bar, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ports.ErrStorageRead, err)
	}
	defer file.Close()

	bars, err := ParseBarsCSV(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return bars, nil
}

// ParseBarsCSV parses a bar table with a header row. date and close columns
// are required; missing open/high/low fall back to close and a missing volume
// is zero. Rows are returned in file order.
func ParseBarsCSV(r io.Reader) ([]domain.Bar, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: %w: empty file", ports.ErrConfigurationError, ports.ErrInvalidBars)
		}
		return nil, fmt.Errorf("%w: reading header: %v", ports.ErrStorageRead, err)
	}

	idx := make(map[string]int)
	for i, name := range header {
		name = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		if canonical, ok := columnAliases[name]; ok {
			if _, dup := idx[canonical]; !dup {
				idx[canonical] = i
			}
		}
	}
	for _, required := range []string{"date", "close"} {
		if _, ok := idx[required]; !ok {
			return nil, fmt.Errorf("%w: %w: missing %q column", ports.ErrConfigurationError, ports.ErrInvalidBars, required)
		}
	}

	var bars []domain.Bar
	line := 1
	for {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ports.ErrStorageRead, line, err)
		}
		bar, err := parseBarRecord(rec, idx)
		if err != nil {
			return nil, fmt.Errorf("%w: %w: line %d: %v", ports.ErrConfigurationError, ports.ErrInvalidBars, line, err)
		}
		bars = append(bars, bar)
	}
	return bars, nil
}

func parseBarRecord(rec []string, idx map[string]int) (domain.Bar, error) {
	field := func(name string) (string, bool) {
		i, ok := idx[name]
		if !ok || i >= len(rec) {
			return "", false
		}
		v := strings.TrimSpace(rec[i])
		return v, v != ""
	}

	var bar domain.Bar
	dateStr, ok := field("date")
	if !ok {
		return bar, fmt.Errorf("missing date")
	}
	date, err := parseDate(dateStr)
	if err != nil {
		return bar, err
	}
	bar.Date = date

	closeStr, ok := field("close")
	if !ok {
		return bar, fmt.Errorf("missing close")
	}
	if bar.Close, err = parseNumber(closeStr); err != nil {
		return bar, fmt.Errorf("invalid close %q", closeStr)
	}

	for _, col := range []struct {
		name string
		dst  *float64
		def  float64
	}{
		{"open", &bar.Open, bar.Close},
		{"high", &bar.High, bar.Close},
		{"low", &bar.Low, bar.Close},
		{"volume", &bar.Volume, 0},
	} {
		s, ok := field(col.name)
		if !ok {
			*col.dst = col.def
			continue
		}
		if *col.dst, err = parseNumber(s); err != nil {
			return bar, fmt.Errorf("invalid %s %q", col.name, s)
		}
	}
	return bar, nil
}

// parseNumber rejects NaN and infinities, which ParseFloat accepts.
func parseNumber(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("non-finite value %q", s)
	}
	return v, nil
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return domain.CalendarDay(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", s)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// writeCSVFile creates filename (and its directory) and hands a writer to fn.
func writeCSVFile(filename string, fn func(w io.Writer) error) error {
	if dir := filepath.Dir(filename); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("%w: %v", ports.ErrStorageWrite, err)
		}
	}
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("%w: %v", ports.ErrStorageWrite, err)
	}
	if err := fn(file); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// WriteBars writes bars with an English header.
func WriteBars(w io.Writer, bars []domain.Bar) error {
	writer := csv.NewWriter(w)
	writer.Write([]string{"date", "open", "high", "low", "close", "volume"})
	for _, b := range bars {
		writer.Write([]string{
			domain.DateKey(b.Date),
			formatFloat(b.Open),
			formatFloat(b.High),
			formatFloat(b.Low),
			formatFloat(b.Close),
			formatFloat(b.Volume),
		})
	}
	writer.Flush()
	return writer.Error()
}

// WriteBarsToCSV writes bars to filename.
func WriteBarsToCSV(bars []domain.Bar, filename string) error {
	return writeCSVFile(filename, func(w io.Writer) error { return WriteBars(w, bars) })
}

// WriteTrades writes the closed-trade log.
func WriteTrades(w io.Writer, trades []domain.Trade) error {
	writer := csv.NewWriter(w)
	writer.Write([]string{"code", "entry_date", "entry_price", "exit_date", "exit_price", "shares",
		"holding_days", "commission", "pnl", "close_reason"})
	for _, t := range trades {
		writer.Write([]string{
			t.Code,
			domain.DateKey(t.EntryDate),
			formatFloat(t.EntryPrice),
			domain.DateKey(t.ExitDate),
			formatFloat(t.ExitPrice),
			strconv.FormatInt(t.Shares, 10),
			strconv.Itoa(t.HoldingDays()),
			strconv.FormatFloat(t.Commission, 'f', 2, 64),
			strconv.FormatFloat(t.PNL, 'f', 2, 64),
			string(t.CloseReason),
		})
	}
	writer.Flush()
	return writer.Error()
}

// WriteTradesToCSV writes the closed-trade log to filename.
func WriteTradesToCSV(trades []domain.Trade, filename string) error {
	return writeCSVFile(filename, func(w io.Writer) error { return WriteTrades(w, trades) })
}

// WriteEquity writes equity curve rows.
func WriteEquity(w io.Writer, rows []analytics.EquityRow) error {
	writer := csv.NewWriter(w)
	writer.Write([]string{"date", "value", "return", "cumulative_return"})
	for _, r := range rows {
		writer.Write([]string{
			domain.DateKey(r.Date),
			strconv.FormatFloat(r.Value, 'f', 2, 64),
			strconv.FormatFloat(r.Return, 'f', 6, 64),
			strconv.FormatFloat(r.CumulativeReturn, 'f', 6, 64),
		})
	}
	writer.Flush()
	return writer.Error()
}

// WriteEquityToCSV writes equity curve rows to filename.
func WriteEquityToCSV(rows []analytics.EquityRow, filename string) error {
	return writeCSVFile(filename, func(w io.Writer) error { return WriteEquity(w, rows) })
}
