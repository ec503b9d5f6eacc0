package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/driftline/driftline/pkg/algorithm"
)

// SQLiteStore implements Store using SQLite as the storage backend.
type SQLiteStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSQLiteStore creates a new SQLite-backed session store.
// The dbPath can be a file path or ":memory:" for an in-memory database.
func NewSQLiteStore(dbPath string, logger *zap.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &SQLiteStore{db: db, logger: logger}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		name TEXT,
		algorithm_spec TEXT,
		model BLOB,
		ui_settings TEXT,
		provider_settings TEXT
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (*Session, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, algorithm_spec, model, ui_settings, provider_settings
		 FROM sessions WHERE id = ?`,
		id,
	)

	sess, err := s.scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	return sess, nil
}

func (s *SQLiteStore) GetOrCreate(ctx context.Context, id string) (*Session, error) {
	sess, err := s.Get(ctx, id)
	if err == nil {
		return sess, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	sess = &Session{ID: id}
	if err := s.Put(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// Put upserts the session row, replacing every column.
func (s *SQLiteStore) Put(ctx context.Context, sess *Session) error {
	if sess == nil || sess.ID == "" {
		return ErrNoID
	}

	spec, err := encodeSpec(sess.Spec)
	if err != nil {
		return err
	}
	settings, err := encodeSettings(sess.UISettings)
	if err != nil {
		return err
	}
	providers, err := encodeProviderSettings(sess.Settings)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, name, algorithm_spec, model, ui_settings, provider_settings)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			algorithm_spec = excluded.algorithm_spec,
			model = excluded.model,
			ui_settings = excluded.ui_settings,
			provider_settings = excluded.provider_settings`,
		sess.ID, sess.Name, spec, sess.Model, settings, providers,
	)
	if err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// scanSession reads one row. Corrupt stored JSON degrades to an empty
// field with a warning instead of failing the load: the session must stay
// usable so the user can retrain over the bad state.
func (s *SQLiteStore) scanSession(row *sql.Row) (*Session, error) {
	var (
		sess      Session
		spec      sql.NullString
		settings  sql.NullString
		providers sql.NullString
	)
	if err := row.Scan(&sess.ID, &sess.Name, &spec, &sess.Model, &settings, &providers); err != nil {
		return nil, err
	}

	if spec.Valid && spec.String != "" {
		decoded, err := algorithm.DecodeSpec([]byte(spec.String))
		if err != nil {
			s.logger.Warn("discarding corrupt algorithm spec",
				zap.String("session_id", sess.ID),
				zap.Error(err),
			)
			// Spec and model travel together; a model without its
			// spec can never be deserialized.
			sess.Model = nil
		} else {
			sess.Spec = decoded
		}
	}

	if settings.Valid && settings.String != "" {
		decoded, err := decodeSettings(settings.String)
		if err != nil {
			s.logger.Warn("discarding corrupt ui settings",
				zap.String("session_id", sess.ID),
				zap.Error(err),
			)
		} else {
			sess.UISettings = decoded
		}
	}

	if providers.Valid && providers.String != "" {
		decoded, err := decodeProviderSettings(providers.String)
		if err != nil {
			s.logger.Warn("discarding corrupt provider settings",
				zap.String("session_id", sess.ID),
				zap.Error(err),
			)
		} else {
			sess.Settings = decoded
		}
	}

	return &sess, nil
}

func encodeSpec(spec *algorithm.Spec) (string, error) {
	if spec == nil {
		return "", nil
	}
	data, err := spec.Encode()
	if err != nil {
		return "", fmt.Errorf("failed to encode algorithm spec: %w", err)
	}
	return string(data), nil
}

var _ Store = (*SQLiteStore)(nil)
