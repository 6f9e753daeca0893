package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/playscript/internal/catalog"
	"github.com/roach88/playscript/internal/ir"
	"github.com/roach88/playscript/internal/queryir"
	"github.com/roach88/playscript/internal/querysql"
)

// LoadTracks returns every cached track ordered by id.
func (s *Store) LoadTracks(ctx context.Context) ([]catalog.TrackInfo, error) {
	return s.QueryTracks(ctx, nil)
}

// QueryTracks returns the cached tracks matching p, ordered by id.
// A nil predicate matches every track.
func (s *Store) QueryTracks(ctx context.Context, p queryir.Predicate) ([]catalog.TrackInfo, error) {
	query, params, err := querysql.NewSQLCompiler().Compile(p)
	if err != nil {
		return nil, fmt.Errorf("query tracks: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("query tracks: %w", err)
	}
	defer rows.Close()

	tracks := []catalog.TrackInfo{}
	for rows.Next() {
		var t catalog.TrackInfo
		if err := rows.Scan(&t.ID, &t.Name, &t.Artist, &t.Year, &t.Duration, &t.Position, &t.Popularity); err != nil {
			return nil, fmt.Errorf("scan track: %w", err)
		}
		tracks = append(tracks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tracks: %w", err)
	}
	return tracks, nil
}

// SaveTracks upserts tracks in one transaction. Rows whose digest is
// unchanged are left alone. Returns the number of rows written.
func (s *Store) SaveTracks(ctx context.Context, tracks []catalog.TrackInfo) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("save tracks: %w", err)
	}
	defer tx.Rollback()

	written := 0
	for _, t := range tracks {
		n, err := upsertTrack(ctx, tx, t)
		if err != nil {
			return 0, err
		}
		written += n
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("save tracks: commit: %w", err)
	}
	return written, nil
}

func upsertTrack(ctx context.Context, tx *sql.Tx, t catalog.TrackInfo) (int, error) {
	digest, err := ir.Digest(ir.DomainTrack, t.Attrs())
	if err != nil {
		return 0, fmt.Errorf("save track %s: %w", t.ID, err)
	}
	res, err := tx.ExecContext(ctx, `
		INSERT INTO tracks (id, name, artist, year, duration, position, popularity, digest)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			artist = excluded.artist,
			year = excluded.year,
			duration = excluded.duration,
			position = excluded.position,
			popularity = excluded.popularity,
			digest = excluded.digest
		WHERE tracks.digest != excluded.digest
	`, t.ID, t.Name, t.Artist, t.Year, t.Duration, t.Position, t.Popularity, digest)
	if err != nil {
		return 0, fmt.Errorf("save track %s: %w", t.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("save track %s: %w", t.ID, err)
	}
	return int(n), nil
}

// CountTracks returns the number of cached tracks.
func (s *Store) CountTracks(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM tracks").Scan(&n); err != nil {
		return 0, fmt.Errorf("count tracks: %w", err)
	}
	return n, nil
}
