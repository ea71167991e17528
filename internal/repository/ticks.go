package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/TickPredictor/internal/database"
	"github.com/Alias1177/TickPredictor/models"
)

// MonolithicTable is the fallback table holding ticks for all symbols.
const MonolithicTable = "ticks"

// TickRepository reads tick windows from the Postgres store. The store
// keeps one table per symbol and calendar day plus a monolithic fallback;
// missing per-day tables are expected and skipped.
type TickRepository struct {
	db     *database.DB
	logger zerolog.Logger
	now    func() time.Time
}

// New creates a repository over an established database connection.
func New(db *database.DB) *TickRepository {
	return &TickRepository{
		db:     db,
		logger: log.With().Str("component", "tick_repository").Logger(),
		now:    time.Now,
	}
}

// DailyTableName builds the per-day partition table name for a symbol,
// e.g. "ticks_eurusd_20240117". Dates are derived in UTC.
func DailyTableName(symbol string, day time.Time) string {
	return fmt.Sprintf("ticks_%s_%s", sanitizeSymbol(symbol), day.UTC().Format("20060102"))
}

// sanitizeSymbol lowercases the symbol and strips everything that is not
// a letter or digit, so it is safe to interpolate into a table name.
func sanitizeSymbol(symbol string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(symbol) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// LoadTrainingWindow collects ticks for the last daysBack calendar days
// from the per-day tables. If none of them yields data it falls back to
// the monolithic ticks table. The result is sorted ascending by time and
// labelled with the comma-joined list of contributing tables.
func (r *TickRepository) LoadTrainingWindow(ctx context.Context, symbol string, daysBack int) (models.TickWindow, error) {
	if daysBack < 1 {
		daysBack = 1
	}

	window := models.TickWindow{Symbol: symbol}
	var sources []string

	today := r.now().UTC()
	for i := 0; i < daysBack; i++ {
		table := DailyTableName(symbol, today.AddDate(0, 0, -i))

		ticks, err := r.queryDailyTable(ctx, table)
		if err != nil {
			// Missing partitions are expected; keep going.
			r.logger.Debug().Str("table", table).Err(err).Msg("daily table not available")
			continue
		}
		if len(ticks) > 0 {
			window.Ticks = append(window.Ticks, ticks...)
			sources = append(sources, table)
		}
	}

	if len(window.Ticks) == 0 {
		ticks, err := r.queryMonolithicAsc(ctx, symbol)
		if err != nil {
			return window, fmt.Errorf("querying %s table: %w", MonolithicTable, err)
		}
		window.Ticks = ticks
		if len(ticks) > 0 {
			sources = []string{MonolithicTable}
		}
	}

	sort.SliceStable(window.Ticks, func(i, j int) bool {
		return window.Ticks[i].Time.Before(window.Ticks[j].Time)
	})
	window.Source = strings.Join(sources, ",")

	r.logger.Debug().
		Str("symbol", symbol).
		Int("ticks", window.Len()).
		Str("source", window.Source).
		Msg("training window loaded")

	return window, nil
}

// LoadInferenceWindow returns the n most recent ticks in ascending order.
// It tries today's per-day table first and falls back to the monolithic
// table on any access failure.
func (r *TickRepository) LoadInferenceWindow(ctx context.Context, symbol string, n int) (models.TickWindow, error) {
	window := models.TickWindow{Symbol: symbol}

	table := DailyTableName(symbol, r.now().UTC())
	ticks, err := r.queryRecent(ctx, table, "", n)
	source := table
	if err != nil {
		r.logger.Debug().Str("table", table).Err(err).Msg("daily table not available, falling back")
		ticks, err = r.queryRecent(ctx, MonolithicTable, symbol, n)
		if err != nil {
			return window, fmt.Errorf("querying %s table: %w", MonolithicTable, err)
		}
		source = MonolithicTable
	}

	// Rows arrive newest-first; reverse into chronological order.
	for i, j := 0, len(ticks)-1; i < j; i, j = i+1, j-1 {
		ticks[i], ticks[j] = ticks[j], ticks[i]
	}

	window.Ticks = ticks
	if len(ticks) > 0 {
		window.Source = source
	}

	r.logger.Debug().
		Str("symbol", symbol).
		Int("ticks", window.Len()).
		Str("source", window.Source).
		Msg("inference window loaded")

	return window, nil
}

func (r *TickRepository) queryDailyTable(ctx context.Context, table string) ([]models.Tick, error) {
	query := fmt.Sprintf(`
		SELECT bid, ask, time
		FROM %s
		WHERE bid IS NOT NULL AND ask IS NOT NULL
		ORDER BY time ASC
	`, table)

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanTicks(rows)
}

func (r *TickRepository) queryMonolithicAsc(ctx context.Context, symbol string) ([]models.Tick, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT bid, ask, time
		FROM ticks
		WHERE symbol = $1 AND bid IS NOT NULL AND ask IS NOT NULL
		ORDER BY time ASC
	`, strings.ToUpper(symbol))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanTicks(rows)
}

// queryRecent fetches the n newest rows. symbol is empty for per-day
// tables, which carry the symbol implicitly.
func (r *TickRepository) queryRecent(ctx context.Context, table, symbol string, n int) ([]models.Tick, error) {
	var (
		rows rowScanner
		err  error
	)
	if symbol == "" {
		query := fmt.Sprintf(`
			SELECT bid, ask, time
			FROM %s
			WHERE bid IS NOT NULL AND ask IS NOT NULL
			ORDER BY time DESC
			LIMIT $1
		`, table)
		rows, err = r.db.QueryContext(ctx, query, n)
	} else {
		query := fmt.Sprintf(`
			SELECT bid, ask, time
			FROM %s
			WHERE symbol = $1 AND bid IS NOT NULL AND ask IS NOT NULL
			ORDER BY time DESC
			LIMIT $2
		`, table)
		rows, err = r.db.QueryContext(ctx, query, strings.ToUpper(symbol), n)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanTicks(rows)
}

type rowScanner interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close() error
}

func scanTicks(rows rowScanner) ([]models.Tick, error) {
	var ticks []models.Tick
	for rows.Next() {
		var t models.Tick
		if err := rows.Scan(&t.Bid, &t.Ask, &t.Time); err != nil {
			return nil, fmt.Errorf("scanning tick row: %w", err)
		}
		t.Time = t.Time.UTC()
		ticks = append(ticks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating tick rows: %w", err)
	}
	return ticks, nil
}
