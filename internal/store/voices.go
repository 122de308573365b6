package store

import (
	"fmt"
	"strings"
	"time"
)

// Voice is a catalog entry fetched from the synthesis provider's voice
// list. FetchedAt drives the staleness check.
type Voice struct {
	ID                 int64
	Name               string
	Gender             string
	PrimaryLanguage    string
	SupportedLanguages []string
	FetchedAt          time.Time
}

// FreshVoices returns entries fetched at or after the cutoff, in name
// order. Older rows are treated as stale and ignored.
func (s *Store) FreshVoices(cutoff time.Time) ([]Voice, error) {
	rows, err := s.db.Query(`
		SELECT id, name, gender, primary_language, supported_languages, fetched_at
		FROM voices
		WHERE fetched_at >= ?
		ORDER BY name
	`, cutoff.Unix())
	if err != nil {
		return nil, fmt.Errorf("failed to query voices: %w", err)
	}
	defer rows.Close()

	var out []Voice
	for rows.Next() {
		var v Voice
		var langs string
		var fetchedAt int64
		if err := rows.Scan(&v.ID, &v.Name, &v.Gender, &v.PrimaryLanguage, &langs, &fetchedAt); err != nil {
			return nil, err
		}
		if langs != "" {
			v.SupportedLanguages = strings.Split(langs, ",")
		}
		v.FetchedAt = time.Unix(fetchedAt, 0)
		out = append(out, v)
	}
	return out, rows.Err()
}

// ReplaceVoices clears the catalog and inserts the given entries with a
// single fetch timestamp, in one transaction.
func (s *Store) ReplaceVoices(voices []Voice) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`DELETE FROM voices`); err != nil {
		return fmt.Errorf("failed to clear voices: %w", err)
	}

	now := time.Now().Unix()
	for _, v := range voices {
		if _, err := tx.Exec(`
			INSERT INTO voices (name, gender, primary_language, supported_languages, fetched_at)
			VALUES (?, ?, ?, ?, ?)
		`, v.Name, v.Gender, v.PrimaryLanguage, strings.Join(v.SupportedLanguages, ","), now); err != nil {
			return fmt.Errorf("failed to insert voice %q: %w", v.Name, err)
		}
	}
	return tx.Commit()
}
