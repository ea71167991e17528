package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alias1177/TickPredictor/internal/database"
)

var testDay = time.Date(2024, 1, 17, 14, 0, 0, 0, time.UTC)

func newTestRepository(t *testing.T) (*TickRepository, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := New(database.Wrap(db))
	repo.now = func() time.Time { return testDay }
	return repo, mock
}

func tickRows(n int, newestFirst bool) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{"bid", "ask", "time"})
	for i := 0; i < n; i++ {
		k := i
		if newestFirst {
			k = n - 1 - i
		}
		bid := 1.0800 + float64(k)*0.0001
		rows.AddRow(bid, bid+0.0002, testDay.Add(time.Duration(k)*time.Second))
	}
	return rows
}

func TestDailyTableName(t *testing.T) {
	tests := []struct {
		symbol string
		want   string
	}{
		{"EURUSD", "ticks_eurusd_20240117"},
		{"eurusd", "ticks_eurusd_20240117"},
		{"GBP/USD", "ticks_gbpusd_20240117"},
		{"US500.cash; DROP TABLE", "ticks_us500cashdroptable_20240117"},
	}

	for _, tt := range tests {
		if got := DailyTableName(tt.symbol, testDay); got != tt.want {
			t.Errorf("DailyTableName(%q) = %q, want %q", tt.symbol, got, tt.want)
		}
	}
}

func TestLoadInferenceWindowUsesDailyTable(t *testing.T) {
	repo, mock := newTestRepository(t)

	mock.ExpectQuery(`FROM ticks_eurusd_20240117`).
		WithArgs(50).
		WillReturnRows(tickRows(50, true))

	window, err := repo.LoadInferenceWindow(context.Background(), "EURUSD", 50)
	require.NoError(t, err)

	assert.Equal(t, 50, window.Len())
	assert.Equal(t, "ticks_eurusd_20240117", window.Source)
	for i := 1; i < window.Len(); i++ {
		assert.True(t, window.Ticks[i].Time.After(window.Ticks[i-1].Time),
			"ticks must be ascending after the reverse")
	}

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadInferenceWindowFallsBackToMonolithic(t *testing.T) {
	repo, mock := newTestRepository(t)

	mock.ExpectQuery(`FROM ticks_eurusd_20240117`).
		WithArgs(50).
		WillReturnError(fmt.Errorf(`relation "ticks_eurusd_20240117" does not exist`))
	mock.ExpectQuery(`FROM ticks\s+WHERE symbol = \$1`).
		WithArgs("EURUSD", 50).
		WillReturnRows(tickRows(50, true))

	window, err := repo.LoadInferenceWindow(context.Background(), "eurusd", 50)
	require.NoError(t, err)

	assert.Equal(t, 50, window.Len())
	assert.Equal(t, "ticks", window.Source)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadTrainingWindowAccumulatesPartitions(t *testing.T) {
	repo, mock := newTestRepository(t)

	// Three days requested: today has data, yesterday is missing, the
	// day before has data. The missing partition is silently skipped.
	mock.ExpectQuery(`FROM ticks_eurusd_20240117`).
		WillReturnRows(tickRows(30, false))
	mock.ExpectQuery(`FROM ticks_eurusd_20240116`).
		WillReturnError(fmt.Errorf(`relation "ticks_eurusd_20240116" does not exist`))
	mock.ExpectQuery(`FROM ticks_eurusd_20240115`).
		WillReturnRows(tickRows(20, false))

	window, err := repo.LoadTrainingWindow(context.Background(), "EURUSD", 3)
	require.NoError(t, err)

	assert.Equal(t, 50, window.Len())
	assert.Equal(t, "ticks_eurusd_20240117,ticks_eurusd_20240115", window.Source)
	for i := 1; i < window.Len(); i++ {
		assert.False(t, window.Ticks[i].Time.Before(window.Ticks[i-1].Time),
			"accumulated ticks must be re-sorted ascending")
	}

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadTrainingWindowFallsBackToMonolithic(t *testing.T) {
	repo, mock := newTestRepository(t)

	mock.ExpectQuery(`FROM ticks_eurusd_20240117`).
		WillReturnError(fmt.Errorf("missing"))
	mock.ExpectQuery(`FROM ticks_eurusd_20240116`).
		WillReturnError(fmt.Errorf("missing"))
	mock.ExpectQuery(`FROM ticks\s+WHERE symbol = \$1`).
		WithArgs("EURUSD").
		WillReturnRows(tickRows(200, false))

	window, err := repo.LoadTrainingWindow(context.Background(), "EURUSD", 2)
	require.NoError(t, err)

	assert.Equal(t, 200, window.Len())
	assert.Equal(t, "ticks", window.Source)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadTrainingWindowEmptyStore(t *testing.T) {
	repo, mock := newTestRepository(t)

	mock.ExpectQuery(`FROM ticks_eurusd_20240117`).
		WillReturnError(fmt.Errorf("missing"))
	mock.ExpectQuery(`FROM ticks\s+WHERE symbol = \$1`).
		WithArgs("EURUSD").
		WillReturnRows(sqlmock.NewRows([]string{"bid", "ask", "time"}))

	window, err := repo.LoadTrainingWindow(context.Background(), "EURUSD", 1)
	require.NoError(t, err)

	assert.Equal(t, 0, window.Len())
	assert.Empty(t, window.Source)

	assert.NoError(t, mock.ExpectationsWereMet())
}
