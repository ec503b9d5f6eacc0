package timeline

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using SQLite as the storage backend.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite-backed item store.
// The dbPath can be a file path or ":memory:" for an in-memory database.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &SQLiteStore{db: db}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return s, nil
}

// migrate creates the necessary tables if they don't exist.
func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS items (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		url TEXT NOT NULL UNIQUE,
		content TEXT,
		author TEXT,
		created_at DATETIME NOT NULL,
		embedding BLOB,
		raw_json TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_items_created_at ON items(created_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Save stores an item keyed by its URL. A row whose URL already holds an
// embedding is left untouched and Save returns false; otherwise the row is
// replaced wholesale.
func (s *SQLiteStore) Save(ctx context.Context, item *Item) (bool, error) {
	if item == nil {
		return false, ErrNilItem
	}
	if item.URL == "" {
		return false, ErrNoURL
	}

	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM items WHERE url = ? AND embedding IS NOT NULL`,
		item.URL,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check existing item: %w", err)
	}
	if count > 0 {
		return false, nil
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM items WHERE url = ?`, item.URL); err != nil {
		return false, fmt.Errorf("failed to clear stale row: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO items (url, content, author, created_at, embedding, raw_json)
		VALUES (?, ?, ?, ?, ?, ?)`,
		item.URL, item.Content, item.Author, item.CreatedAt.UTC(),
		encodeEmbedding(item.Embedding), item.RawJSON,
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert item: %w", err)
	}

	if id, err := res.LastInsertId(); err == nil {
		item.ID = id
	}

	return true, nil
}

// ItemsSince returns all items created at or after the given time.
func (s *SQLiteStore) ItemsSince(ctx context.Context, since time.Time) ([]*Item, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, url, content, author, created_at, embedding, raw_json
		FROM items WHERE created_at >= ?`,
		since.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query items: %w", err)
	}
	defer rows.Close()

	var items []*Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	return items, rows.Err()
}

// GetByID retrieves an item by its storage-assigned id.
func (s *SQLiteStore) GetByID(ctx context.Context, id int64) (*Item, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, url, content, author, created_at, embedding, raw_json
		FROM items WHERE id = ?`,
		id,
	)

	item, err := scanItem(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return item, err
}

// LatestCreatedAt returns the creation time of the newest stored item.
func (s *SQLiteStore) LatestCreatedAt(ctx context.Context) (time.Time, bool, error) {
	var latest sql.NullTime
	err := s.db.QueryRowContext(ctx, `SELECT MAX(created_at) FROM items`).Scan(&latest)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to query latest item: %w", err)
	}
	if !latest.Valid {
		return time.Time{}, false, nil
	}
	return latest.Time, true, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(r rowScanner) (*Item, error) {
	var item Item
	var embedding []byte
	var content, author, rawJSON sql.NullString

	if err := r.Scan(&item.ID, &item.URL, &content, &author, &item.CreatedAt, &embedding, &rawJSON); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan item: %w", err)
	}

	item.Content = content.String
	item.Author = author.String
	item.RawJSON = rawJSON.String
	item.Embedding = decodeEmbedding(embedding)

	return &item, nil
}

// encodeEmbedding converts a float32 slice to a little-endian byte slice
// for BLOB storage. Nil and empty slices encode as NULL.
func encodeEmbedding(vec []float32) []byte {
	if len(vec) == 0 {
		return nil
	}
	buf := make([]byte, len(vec)*4)
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

func decodeEmbedding(buf []byte) []float32 {
	if len(buf) < 4 {
		return nil
	}
	vec := make([]float32, len(buf)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return vec
}

// Ensure SQLiteStore implements Store
var _ Store = (*SQLiteStore)(nil)
