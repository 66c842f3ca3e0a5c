package backtesting

import (
	"errors"
	"math"
	"testing"
	"time"

	"aShareBacktest/internal/domain"
	"aShareBacktest/internal/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFeed_Replay(t *testing.T) {
	feed, err := NewFeed(barsFromCloses(10, 11, 12), time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 3, feed.Len())

	require.True(t, feed.Next())
	_, ok := feed.PrevClose()
	assert.False(t, ok, "first bar has no previous close")
	assert.Equal(t, 10.0, feed.Bar().Close)

	require.True(t, feed.Next())
	prev, ok := feed.PrevClose()
	assert.True(t, ok)
	assert.Equal(t, 10.0, prev)

	require.True(t, feed.Next())
	assert.False(t, feed.Next())
	assert.False(t, feed.Next(), "exhausted feed stays exhausted")
}

func TestNewFeed_DateFilterSeedsPrevClose(t *testing.T) {
	bars := barsFromCloses(10, 11, 12, 13, 14)
	feed, err := NewFeed(bars, day0.AddDate(0, 0, 2), day0.AddDate(0, 0, 3))
	require.NoError(t, err)
	assert.Equal(t, 2, feed.Len())

	require.True(t, feed.Next())
	assert.Equal(t, 12.0, feed.Bar().Close)
	prev, ok := feed.PrevClose()
	require.True(t, ok)
	assert.Equal(t, 11.0, prev)

	require.True(t, feed.Next())
	assert.Equal(t, 13.0, feed.Bar().Close)
	assert.False(t, feed.Next())
}

func TestNewFeed_Errors(t *testing.T) {
	unsorted := barsFromCloses(10, 11)
	unsorted[0], unsorted[1] = unsorted[1], unsorted[0]
	duplicate := barsFromCloses(10, 11)
	duplicate[1].Date = duplicate[0].Date.Add(3 * time.Hour)
	badClose := barsFromCloses(10, 0)
	nanClose := barsFromCloses(10, math.NaN(), 10)
	infClose := barsFromCloses(10, math.Inf(1), 10)

	tests := []struct {
		name    string
		bars    []domain.Bar
		start   time.Time
		end     time.Time
		wantErr error
	}{
		{"empty table", nil, time.Time{}, time.Time{}, ports.ErrInvalidBars},
		{"unsorted", unsorted, time.Time{}, time.Time{}, ports.ErrInvalidBars},
		{"duplicate day", duplicate, time.Time{}, time.Time{}, ports.ErrInvalidBars},
		{"non-positive close", badClose, time.Time{}, time.Time{}, ports.ErrInvalidBars},
		{"NaN close", nanClose, time.Time{}, time.Time{}, ports.ErrInvalidBars},
		{"infinite close", infClose, time.Time{}, time.Time{}, ports.ErrInvalidBars},
		{"range after data", barsFromCloses(10, 11), day0.AddDate(1, 0, 0), time.Time{}, ports.ErrEmptyRange},
		{"range before data", barsFromCloses(10, 11), time.Time{}, day0.AddDate(0, 0, -1), ports.ErrEmptyRange},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewFeed(tt.bars, tt.start, tt.end)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ports.ErrConfigurationError))
			assert.True(t, errors.Is(err, tt.wantErr))
		})
	}
}

func TestFeed_BarsIsCopy(t *testing.T) {
	feed, err := NewFeed(barsFromCloses(10, 11), time.Time{}, time.Time{})
	require.NoError(t, err)
	bars := feed.Bars()
	bars[0].Close = 999
	require.True(t, feed.Next())
	assert.Equal(t, 10.0, feed.Bar().Close)
}
