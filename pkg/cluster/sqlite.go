package cluster

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

// SQLiteAssignmentStore implements AssignmentStore using SQLite.
type SQLiteAssignmentStore struct {
	db *sql.DB
}

// NewSQLiteAssignmentStore creates a new SQLite-backed assignment store.
// The dbPath can be a file path or ":memory:" for an in-memory database.
func NewSQLiteAssignmentStore(dbPath string) (*SQLiteAssignmentStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &SQLiteAssignmentStore{db: db}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return s, nil
}

// migrate creates the necessary tables if they don't exist.
func (s *SQLiteAssignmentStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS cluster_assignments (
		item_id INTEGER NOT NULL,
		model_version TEXT NOT NULL,
		partition_id INTEGER NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (item_id, model_version)
	);

	CREATE INDEX IF NOT EXISTS idx_cluster_assignments_version ON cluster_assignments(model_version);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Assignments returns the cached partition for every requested item id
// holding an entry under the given model version.
func (s *SQLiteAssignmentStore) Assignments(ctx context.Context, modelVersion string, itemIDs []int64) (map[int64]int, error) {
	result := make(map[int64]int)
	if len(itemIDs) == 0 {
		return result, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(itemIDs)), ",")
	args := make([]any, 0, len(itemIDs)+1)
	args = append(args, modelVersion)
	for _, id := range itemIDs {
		args = append(args, id)
	}

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT item_id, partition_id FROM cluster_assignments
		WHERE model_version = ? AND item_id IN (%s)`, placeholders),
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query assignments: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var itemID int64
		var partition int
		if err := rows.Scan(&itemID, &partition); err != nil {
			return nil, fmt.Errorf("failed to scan assignment: %w", err)
		}
		result[itemID] = partition
	}

	return result, rows.Err()
}

// SaveAssignment upserts the partition for (itemID, modelVersion).
func (s *SQLiteAssignmentStore) SaveAssignment(ctx context.Context, itemID int64, modelVersion string, partition int) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cluster_assignments (item_id, model_version, partition_id)
		VALUES (?, ?, ?)
		ON CONFLICT(item_id, model_version) DO UPDATE
			SET partition_id = excluded.partition_id
			  , updated_at = CURRENT_TIMESTAMP`,
		itemID, modelVersion, partition,
	)
	if err != nil {
		return fmt.Errorf("failed to save assignment: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *SQLiteAssignmentStore) Close() error {
	return s.db.Close()
}

// Ensure SQLiteAssignmentStore implements AssignmentStore
var _ AssignmentStore = (*SQLiteAssignmentStore)(nil)
