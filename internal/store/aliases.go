package store

import (
	"context"
	"fmt"

	"golang.org/x/text/cases"
)

// Alias maps a playlist name to a playlist id.
type Alias struct {
	Name       string `json:"name"`
	PlaylistID string `json:"playlist_id"`
}

func foldName(name string) string {
	return cases.Fold().String(name)
}

// SetAlias creates or replaces an alias. Names are stored case-folded.
func (s *Store) SetAlias(ctx context.Context, name, playlistID string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO playlist_aliases (name, playlist_id) VALUES (?, ?)
		ON CONFLICT(name) DO UPDATE SET playlist_id = excluded.playlist_id
	`, foldName(name), playlistID)
	if err != nil {
		return fmt.Errorf("set alias: %w", err)
	}
	return nil
}

// DeleteAlias removes an alias. Reports whether it existed.
func (s *Store) DeleteAlias(ctx context.Context, name string) (bool, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM playlist_aliases WHERE name = ?", foldName(name))
	if err != nil {
		return false, fmt.Errorf("delete alias: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete alias: %w", err)
	}
	return n > 0, nil
}

// Aliases returns every alias ordered by name.
func (s *Store) Aliases(ctx context.Context) ([]Alias, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, playlist_id FROM playlist_aliases
		ORDER BY name COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query aliases: %w", err)
	}
	defer rows.Close()

	aliases := []Alias{}
	for rows.Next() {
		var a Alias
		if err := rows.Scan(&a.Name, &a.PlaylistID); err != nil {
			return nil, fmt.Errorf("scan alias: %w", err)
		}
		aliases = append(aliases, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate aliases: %w", err)
	}
	return aliases, nil
}
