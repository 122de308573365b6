package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Utterance is one cached synthesis result. AudioPath stays nil between
// CreatePendingUtterance and AttachArtifact; a non-nil path always refers to
// a complete artifact on disk.
type Utterance struct {
	ID        int64
	Text      string
	Voice     string
	Pitch     float64
	Rate      float64
	Language  string
	AudioPath *string
	CreatedAt time.Time
}

const uttCols = `id, text, voice, pitch, rate, language, audio_path, created_at`

// FindUtterance returns the latest record matching the exact
// (text, voice, pitch, rate, language) tuple, or nil when there is none.
// Duplicate rows are tolerated; the newest one wins.
func (s *Store) FindUtterance(text, voice string, pitch, rate float64, language string) (*Utterance, error) {
	row := s.db.QueryRow(`
		SELECT `+uttCols+` FROM utterances
		WHERE text = ? AND voice = ? AND pitch = ? AND rate = ? AND language = ?
		ORDER BY id DESC
		LIMIT 1
	`, text, voice, pitch, rate, language)

	u, err := scanUtterance(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query utterance: %w", err)
	}
	return u, nil
}

// CreatePendingUtterance inserts a record with no audio path yet and returns
// its id, which the caller uses to name the artifact file before synthesis
// begins.
func (s *Store) CreatePendingUtterance(text, voice string, pitch, rate float64, language string) (int64, error) {
	res, err := s.db.Exec(`
		INSERT INTO utterances (text, voice, pitch, rate, language, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, text, voice, pitch, rate, language, time.Now().Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to insert utterance: %w", err)
	}
	return res.LastInsertId()
}

// AttachArtifact sets the audio path on an existing record. It returns
// ErrNotFound when the record has been deleted in the meantime.
func (s *Store) AttachArtifact(id int64, path string) error {
	res, err := s.db.Exec(`UPDATE utterances SET audio_path = ? WHERE id = ?`, path, id)
	if err != nil {
		return fmt.Errorf("failed to attach artifact: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteUtterance removes a record. Cleanup on synthesis failure and
// self-healing eviction both land here.
func (s *Store) DeleteUtterance(id int64) error {
	res, err := s.db.Exec(`DELETE FROM utterances WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete utterance: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListUtterances returns records created at or after min, newest first. The
// zero time lists everything.
func (s *Store) ListUtterances(min time.Time) ([]Utterance, error) {
	var cutoff int64
	if !min.IsZero() {
		cutoff = min.Unix()
	}
	rows, err := s.db.Query(`
		SELECT `+uttCols+` FROM utterances
		WHERE created_at >= ?
		ORDER BY id DESC
	`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to list utterances: %w", err)
	}
	defer rows.Close()

	var out []Utterance
	for rows.Next() {
		u, err := scanUtterance(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *u)
	}
	return out, rows.Err()
}

// DeleteAllUtterances clears the cache table and reports how many rows were
// removed. Artifact files are the caller's to clean up.
func (s *Store) DeleteAllUtterances() (int64, error) {
	res, err := s.db.Exec(`DELETE FROM utterances`)
	if err != nil {
		return 0, fmt.Errorf("failed to clear utterances: %w", err)
	}
	return res.RowsAffected()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUtterance(row scanner) (*Utterance, error) {
	var u Utterance
	var createdAt int64
	if err := row.Scan(&u.ID, &u.Text, &u.Voice, &u.Pitch, &u.Rate, &u.Language, &u.AudioPath, &createdAt); err != nil {
		return nil, err
	}
	u.CreatedAt = time.Unix(createdAt, 0)
	return &u, nil
}
