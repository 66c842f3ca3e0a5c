package utils

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aShareBacktest/internal/analytics"
	"aShareBacktest/internal/domain"
	"aShareBacktest/internal/ports"
)

func TestParseBarsCSV(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []domain.Bar
		wantErr error
	}{
		{
			name:  "english header",
			input: "date,open,high,low,close,volume\n2024-01-02,10,10.5,9.9,10.2,1000\n2024-01-03,10.2,10.8,10.1,10.7,2000\n",
			want: []domain.Bar{
				{Date: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), Open: 10, High: 10.5, Low: 9.9, Close: 10.2, Volume: 1000},
				{Date: time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC), Open: 10.2, High: 10.8, Low: 10.1, Close: 10.7, Volume: 2000},
			},
		},
		{
			name:  "chinese header with BOM and other columns",
			input: "\ufeff日期,股票代码,开盘,收盘,最高,最低,成交量\n2024/01/02,600519,1700,1710.5,1720,1690,30000\n",
			want: []domain.Bar{
				{Date: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), Open: 1700, High: 1720, Low: 1690, Close: 1710.5, Volume: 30000},
			},
		},
		{
			name:  "close only",
			input: "Date,Close\n20240105,8.5\n",
			want: []domain.Bar{
				{Date: time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), Open: 8.5, High: 8.5, Low: 8.5, Close: 8.5},
			},
		},
		{name: "empty file", input: "", wantErr: ports.ErrInvalidBars},
		{name: "missing close column", input: "date,open\n2024-01-02,1\n", wantErr: ports.ErrInvalidBars},
		{name: "bad date", input: "date,close\n02.01.2024,1\n", wantErr: ports.ErrInvalidBars},
		{name: "bad number", input: "date,close\n2024-01-02,abc\n", wantErr: ports.ErrInvalidBars},
		{name: "NaN close", input: "date,close\n2024-01-02,10\n2024-01-03,NaN\n", wantErr: ports.ErrInvalidBars},
		{name: "infinite volume", input: "date,close,volume\n2024-01-02,10,+Inf\n", wantErr: ports.ErrInvalidBars},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseBarsCSV(strings.NewReader(tt.input))
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.wantErr))
				assert.True(t, errors.Is(err, ports.ErrConfigurationError))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBarsCSVRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "bars.csv")
	bars := []domain.Bar{
		{Date: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), Open: 10, High: 11, Low: 9.5, Close: 10.25, Volume: 123456},
	}
	require.NoError(t, WriteBarsToCSV(bars, path))

	got, err := ReadBarsFromCSV(path)
	require.NoError(t, err)
	assert.Equal(t, bars, got)

	_, err = ReadBarsFromCSV(filepath.Join(t.TempDir(), "missing.csv"))
	assert.True(t, errors.Is(err, ports.ErrStorageRead))
}

func TestWriteTrades(t *testing.T) {
	var buf bytes.Buffer
	trades := []domain.Trade{{
		Code:        "600000",
		EntryDate:   time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		EntryPrice:  10,
		ExitDate:    time.Date(2024, 1, 9, 0, 0, 0, 0, time.UTC),
		ExitPrice:   11,
		Shares:      900,
		Commission:  14.9,
		PNL:         885.1,
		CloseReason: domain.CloseReasonSignal,
	}}
	require.NoError(t, WriteTrades(&buf, trades))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "code,entry_date,entry_price,exit_date,exit_price,shares,holding_days,commission,pnl,close_reason", lines[0])
	assert.Equal(t, "600000,2024-01-02,10,2024-01-09,11,900,7,14.90,885.10,SIGNAL", lines[1])
}

func TestWriteEquity(t *testing.T) {
	var buf bytes.Buffer
	rows := []analytics.EquityRow{
		{Date: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), Value: 100000, Return: 0, CumulativeReturn: 0},
		{Date: time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC), Value: 101000, Return: 0.01, CumulativeReturn: 0.01},
	}
	require.NoError(t, WriteEquity(&buf, rows))
	assert.Equal(t,
		"date,value,return,cumulative_return\n2024-01-02,100000.00,0.000000,0.000000\n2024-01-03,101000.00,0.010000,0.010000\n",
		buf.String())
}
