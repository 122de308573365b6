package store

import (
	"fmt"
	"time"
)

// Item is a node in the snippet tree. Folders and leaves share the table; a
// nil ParentID marks a root item.
type Item struct {
	ID        int64
	Name      string
	Text      string
	IsFolder  bool
	ParentID  *int64
	CreatedAt time.Time
}

const itemCols = `id, name, text, is_folder, parent_id, created_at`

// InsertItem inserts the item and returns its generated id.
func (s *Store) InsertItem(it Item) (int64, error) {
	res, err := s.db.Exec(`
		INSERT INTO items (name, text, is_folder, parent_id, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, it.Name, it.Text, it.IsFolder, it.ParentID, time.Now().Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to insert item: %w", err)
	}
	return res.LastInsertId()
}

// RootItems returns all items without a parent, in insertion order.
func (s *Store) RootItems() ([]Item, error) {
	return s.queryItems(`SELECT ` + itemCols + ` FROM items WHERE parent_id IS NULL ORDER BY id`)
}

// ChildrenOf returns the direct children of a folder, in insertion order.
func (s *Store) ChildrenOf(folderID int64) ([]Item, error) {
	return s.queryItems(`SELECT `+itemCols+` FROM items WHERE parent_id = ? ORDER BY id`, folderID)
}

// AllItems returns every item, in insertion order.
func (s *Store) AllItems() ([]Item, error) {
	return s.queryItems(`SELECT ` + itemCols + ` FROM items ORDER BY id`)
}

// ItemByID returns a single item, or ErrNotFound.
func (s *Store) ItemByID(id int64) (*Item, error) {
	items, err := s.queryItems(`SELECT `+itemCols+` FROM items WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ErrNotFound
	}
	return &items[0], nil
}

// DeleteItems removes the given items. The parent_id foreign key cascades,
// so every descendant of each id goes with it.
func (s *Store) DeleteItems(ids ...int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	deleted := int64(0)
	for _, id := range ids {
		res, err := tx.Exec(`DELETE FROM items WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("failed to delete item %d: %w", id, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		deleted += n
	}
	if deleted == 0 && len(ids) > 0 {
		return ErrNotFound
	}
	return tx.Commit()
}

func (s *Store) queryItems(query string, args ...any) ([]Item, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query items: %w", err)
	}
	defer rows.Close()

	var out []Item
	for rows.Next() {
		var it Item
		var createdAt int64
		if err := rows.Scan(&it.ID, &it.Name, &it.Text, &it.IsFolder, &it.ParentID, &createdAt); err != nil {
			return nil, err
		}
		it.CreatedAt = time.Unix(createdAt, 0)
		out = append(out, it)
	}
	return out, rows.Err()
}
