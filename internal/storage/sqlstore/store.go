// Package sqlstore implements the storage interfaces on a SQL database via
// sqlx. It supports the sqlite and postgres drivers; queries are written with
// ? placeholders and rebound to the driver's bindvar style.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/lotterylab/lotterylab/internal/domain/draw"
	"github.com/lotterylab/lotterylab/internal/storage"
)

// Store implements the storage interfaces backed by a SQL database.
type Store struct {
	db   *sqlx.DB
	bind int
}

var _ storage.DrawStore = (*Store)(nil)
var _ storage.ImportRunStore = (*Store)(nil)

// New creates a Store using the provided database handle.
func New(db *sqlx.DB) *Store {
	bind := sqlx.BindType(db.DriverName())
	if bind == sqlx.UNKNOWN {
		bind = sqlx.QUESTION
	}
	return &Store{db: db, bind: bind}
}

func (s *Store) rebind(query string) string {
	return sqlx.Rebind(s.bind, query)
}

type drawRow struct {
	ID           int64           `db:"id"`
	DrawNumber   int             `db:"draw_number"`
	DrawDate     draw.Date       `db:"draw_date"`
	GameType     string          `db:"game_type"`
	GameProvider sql.NullString  `db:"game_provider"`
	Numbers      string          `db:"numbers"`
	Jackpot      sql.NullFloat64 `db:"jackpot"`
	CreatedAt    timestamp       `db:"created_at"`
	UpdatedAt    timestamp       `db:"updated_at"`
}

func (r drawRow) toDomain() (draw.Draw, error) {
	numbers, err := draw.ParseNumbers(r.Numbers)
	if err != nil {
		return draw.Draw{}, fmt.Errorf("draw %d: %w", r.DrawNumber, err)
	}
	d := draw.Draw{
		ID:           r.ID,
		DrawNumber:   r.DrawNumber,
		DrawDate:     r.DrawDate,
		GameType:     r.GameType,
		GameProvider: r.GameProvider.String,
		Numbers:      numbers,
		CreatedAt:    r.CreatedAt.Time,
		UpdatedAt:    r.UpdatedAt.Time,
	}
	if r.Jackpot.Valid {
		jackpot := r.Jackpot.Float64
		d.Jackpot = &jackpot
	}
	return d, nil
}

const drawColumns = "id, draw_number, draw_date, game_type, game_provider, numbers, jackpot, created_at, updated_at"

// --- DrawStore --------------------------------------------------------------

func (s *Store) InsertDraw(ctx context.Context, d draw.Draw) (draw.Draw, error) {
	now := time.Now().UTC()
	d.CreatedAt = now
	d.UpdatedAt = now

	res, err := s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO draws (draw_number, draw_date, game_type, game_provider, numbers, jackpot, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`), d.DrawNumber, d.DrawDate, d.GameType, toNullString(d.GameProvider),
		draw.FormatNumbers(d.Numbers), toNullFloat(d.Jackpot), timestamp{now}, timestamp{now})
	if err != nil {
		return draw.Draw{}, err
	}
	if id, err := res.LastInsertId(); err == nil {
		d.ID = id
	}
	return d, nil
}

func (s *Store) BulkInsertDraws(ctx context.Context, ds []draw.Draw) (int, error) {
	if len(ds) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.PreparexContext(ctx, s.rebind(`
		INSERT INTO draws (draw_number, draw_date, game_type, game_provider, numbers, jackpot, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`))
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	now := time.Now().UTC()
	inserted := 0
	for _, d := range ds {
		if _, err := stmt.ExecContext(ctx, d.DrawNumber, d.DrawDate, d.GameType,
			toNullString(d.GameProvider), draw.FormatNumbers(d.Numbers),
			toNullFloat(d.Jackpot), timestamp{now}, timestamp{now}); err != nil {
			return inserted, fmt.Errorf("insert draw %d: %w", d.DrawNumber, err)
		}
		inserted++
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return inserted, nil
}

func (s *Store) GetDrawByNumber(ctx context.Context, drawNumber int) (draw.Draw, error) {
	var row drawRow
	err := s.db.GetContext(ctx, &row, s.rebind(`
		SELECT `+drawColumns+` FROM draws WHERE draw_number = ?
	`), drawNumber)
	if err != nil {
		return draw.Draw{}, err
	}
	return row.toDomain()
}

func (s *Store) ListDraws(ctx context.Context, f draw.Filter) ([]draw.Draw, error) {
	where, args := buildFilter(f)
	query := `SELECT ` + drawColumns + ` FROM draws` + where +
		` ORDER BY draw_date DESC, draw_number DESC`
	if f.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, f.Limit, f.Offset)
	}

	var rows []drawRow
	if err := s.db.SelectContext(ctx, &rows, s.rebind(query), args...); err != nil {
		return nil, err
	}
	return rowsToDomain(rows)
}

func (s *Store) CountDraws(ctx context.Context, f draw.Filter) (int, error) {
	where, args := buildFilter(f)
	var count int
	err := s.db.GetContext(ctx, &count, s.rebind(`SELECT COUNT(*) FROM draws`+where), args...)
	return count, err
}

func (s *Store) LatestDraws(ctx context.Context, limit int) ([]draw.Draw, error) {
	if limit <= 0 {
		limit = 20
	}
	var rows []drawRow
	err := s.db.SelectContext(ctx, &rows, s.rebind(`
		SELECT `+drawColumns+` FROM draws ORDER BY draw_number DESC LIMIT ?
	`), limit)
	if err != nil {
		return nil, err
	}
	return rowsToDomain(rows)
}

func (s *Store) MaxDrawNumber(ctx context.Context) (int, error) {
	var max int
	err := s.db.GetContext(ctx, &max, `SELECT COALESCE(MAX(draw_number), 0) FROM draws`)
	return max, err
}

func buildFilter(f draw.Filter) (string, []interface{}) {
	var (
		conditions []string
		args       []interface{}
	)
	if f.GameType != "" {
		conditions = append(conditions, "game_type = ?")
		args = append(args, f.GameType)
	}
	if f.GameProvider != "" {
		conditions = append(conditions, "game_provider = ?")
		args = append(args, f.GameProvider)
	}
	if f.DateFrom != nil {
		conditions = append(conditions, "draw_date >= ?")
		args = append(args, *f.DateFrom)
	}
	if f.DateTo != nil {
		conditions = append(conditions, "draw_date <= ?")
		args = append(args, *f.DateTo)
	}
	if len(conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

func rowsToDomain(rows []drawRow) ([]draw.Draw, error) {
	result := make([]draw.Draw, 0, len(rows))
	for _, row := range rows {
		d, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		result = append(result, d)
	}
	return result, nil
}

// --- ImportRunStore ---------------------------------------------------------

func (s *Store) RecordImportRun(ctx context.Context, run draw.ImportRun) (draw.ImportRun, error) {
	run.CreatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO import_runs (source_url, sha256, archive_file, inserted, skipped, max_before, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`), run.SourceURL, run.SHA256, run.ArchiveFile, run.Inserted, run.Skipped,
		run.MaxBefore, timestamp{run.CreatedAt})
	if err != nil {
		return draw.ImportRun{}, err
	}
	if id, err := res.LastInsertId(); err == nil {
		run.ID = id
	}
	return run, nil
}

func (s *Store) ListImportRuns(ctx context.Context, limit int) ([]draw.ImportRun, error) {
	if limit <= 0 {
		limit = 50
	}

	type runRow struct {
		ID          int64     `db:"id"`
		SourceURL   string    `db:"source_url"`
		SHA256      string    `db:"sha256"`
		ArchiveFile string    `db:"archive_file"`
		Inserted    int       `db:"inserted"`
		Skipped     int       `db:"skipped"`
		MaxBefore   int       `db:"max_before"`
		CreatedAt   timestamp `db:"created_at"`
	}

	var rows []runRow
	err := s.db.SelectContext(ctx, &rows, s.rebind(`
		SELECT id, source_url, sha256, archive_file, inserted, skipped, max_before, created_at
		FROM import_runs ORDER BY id DESC LIMIT ?
	`), limit)
	if err != nil {
		return nil, err
	}

	runs := make([]draw.ImportRun, 0, len(rows))
	for _, row := range rows {
		runs = append(runs, draw.ImportRun{
			ID:          row.ID,
			SourceURL:   row.SourceURL,
			SHA256:      row.SHA256,
			ArchiveFile: row.ArchiveFile,
			Inserted:    row.Inserted,
			Skipped:     row.Skipped,
			MaxBefore:   row.MaxBefore,
			CreatedAt:   row.CreatedAt.Time,
		})
	}
	return runs, nil
}

func toNullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func toNullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}
