package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrRecentNotFound = errors.New("recent source not found")

const defaultRecentLimit = 20

// Fixed width so last_loaded_at sorts correctly as text.
const recentTimestampLayout = "2006-01-02T15:04:05.000000000Z"

type RecentSource struct {
	ID           int64    `json:"id"`
	Kind         string   `json:"kind"`
	Location     string   `json:"location"`
	Label        string   `json:"label"`
	Options      []string `json:"options"`
	LoadCount    int      `json:"loadCount"`
	LastLoadedAt string   `json:"lastLoadedAt"`
}

type HistoryRepository struct {
	db *sql.DB
}

func NewHistoryRepository(database *sql.DB) *HistoryRepository {
	return &HistoryRepository{db: database}
}

// Record upserts a source by kind and location, bumping its load count.
func (r *HistoryRepository) Record(ctx context.Context, entry RecentSource) (RecentSource, error) {
	if strings.TrimSpace(entry.Kind) == "" || strings.TrimSpace(entry.Location) == "" {
		return RecentSource{}, errors.New("kind and location are required")
	}

	options := entry.Options
	if options == nil {
		options = []string{}
	}
	optionsJSON, err := json.Marshal(options)
	if err != nil {
		return RecentSource{}, fmt.Errorf("encode recent source options: %w", err)
	}

	_, err = r.db.ExecContext(
		ctx,
		`INSERT INTO recent_sources(kind, location, label, options_json, load_count, last_loaded_at)
		VALUES (?, ?, ?, ?, 1, ?)
		ON CONFLICT(kind, location) DO UPDATE SET
			label = excluded.label,
			options_json = excluded.options_json,
			load_count = recent_sources.load_count + 1,
			last_loaded_at = excluded.last_loaded_at`,
		entry.Kind,
		entry.Location,
		entry.Label,
		string(optionsJSON),
		time.Now().UTC().Format(recentTimestampLayout),
	)
	if err != nil {
		return RecentSource{}, fmt.Errorf("record recent source: %w", err)
	}

	return r.getByKey(ctx, entry.Kind, entry.Location)
}

func (r *HistoryRepository) List(ctx context.Context, limit int) ([]RecentSource, error) {
	if limit <= 0 {
		limit = defaultRecentLimit
	}

	rows, err := r.db.QueryContext(
		ctx,
		`SELECT id, kind, location, label, options_json, load_count, last_loaded_at
		FROM recent_sources ORDER BY last_loaded_at DESC, id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list recent sources: %w", err)
	}
	defer rows.Close()

	recents := make([]RecentSource, 0)
	for rows.Next() {
		recent, err := scanRecent(rows)
		if err != nil {
			return nil, err
		}
		recents = append(recents, recent)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate recent source rows: %w", err)
	}

	return recents, nil
}

func (r *HistoryRepository) GetByID(ctx context.Context, id int64) (RecentSource, error) {
	row := r.db.QueryRowContext(
		ctx,
		`SELECT id, kind, location, label, options_json, load_count, last_loaded_at
		FROM recent_sources WHERE id = ?`,
		id,
	)

	recent, err := scanRecent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return RecentSource{}, ErrRecentNotFound
	}
	return recent, err
}

func (r *HistoryRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM recent_sources WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete recent source %d: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("read deleted recent source count: %w", err)
	}
	if rowsAffected == 0 {
		return ErrRecentNotFound
	}

	return nil
}

func (r *HistoryRepository) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM recent_sources"); err != nil {
		return fmt.Errorf("clear recent sources: %w", err)
	}

	return nil
}

func (r *HistoryRepository) getByKey(ctx context.Context, kind string, location string) (RecentSource, error) {
	row := r.db.QueryRowContext(
		ctx,
		`SELECT id, kind, location, label, options_json, load_count, last_loaded_at
		FROM recent_sources WHERE kind = ? AND location = ?`,
		kind,
		location,
	)

	recent, err := scanRecent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return RecentSource{}, ErrRecentNotFound
	}
	return recent, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecent(row rowScanner) (RecentSource, error) {
	var recent RecentSource
	var optionsJSON string

	if err := row.Scan(
		&recent.ID,
		&recent.Kind,
		&recent.Location,
		&recent.Label,
		&optionsJSON,
		&recent.LoadCount,
		&recent.LastLoadedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return RecentSource{}, err
		}
		return RecentSource{}, fmt.Errorf("scan recent source row: %w", err)
	}

	recent.Options = []string{}
	if optionsJSON != "" {
		if err := json.Unmarshal([]byte(optionsJSON), &recent.Options); err != nil {
			return RecentSource{}, fmt.Errorf("decode recent source options: %w", err)
		}
	}

	return recent, nil
}
