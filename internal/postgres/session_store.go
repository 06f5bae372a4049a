// Package postgres persists sessions and their chat history in PostgreSQL.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"go.uber.org/fx"

	"datatalk-backend/config"
	"datatalk-backend/internal/model"
	"datatalk-backend/internal/store"
)

const (
	sessionsTableName = "datatalk_sessions"
	messagesTableName = "datatalk_messages"
	colSessionID      = "session_id"
	colRole           = "role"
	colContent        = "content"
	colCreatedAt      = "created_at"
)

type sessionStore struct {
	pool *pgxpool.Pool
}

// NewSessionStore connects to PostgreSQL, ensures the schema and registers the
// pool for shutdown.
func NewSessionStore(lc fx.Lifecycle, cfg *config.Config) (store.SessionStore, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.Postgres.DSN)
	if err != nil {
		log.Error().Err(err).Msg("Failed to parse Postgres DSN")
		return nil, fmt.Errorf("invalid Postgres DSN: %w", err)
	}
	if cfg.Postgres.MaxConns > 0 {
		poolConfig.MaxConns = cfg.Postgres.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		log.Error().Err(err).Msg("Unable to create connection pool to Postgres")
		return nil, fmt.Errorf("failed to connect to Postgres: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		log.Error().Err(err).Msg("Failed to ping Postgres")
		return nil, fmt.Errorf("failed to ping Postgres: %w", err)
	}
	log.Info().Msg("Postgres connection pool created and verified.")

	s := &sessionStore{pool: pool}

	setupCtx, cancelSetup := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelSetup()
	if err := s.ensureSchema(setupCtx); err != nil {
		pool.Close()
		log.Error().Err(err).Msg("Failed to ensure session tables exist")
		return nil, fmt.Errorf("failed ensuring session schema: %w", err)
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			log.Info().Msg("Closing Postgres connection pool...")
			pool.Close()
			return nil
		},
	})
	return s, nil
}

func (s *sessionStore) ensureSchema(ctx context.Context) error {
	schemaSQL := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %[1]s (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			dataset JSONB NOT NULL,
			summary JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		);
		CREATE TABLE IF NOT EXISTS %[2]s (
			id BIGSERIAL PRIMARY KEY,
			session_id TEXT NOT NULL REFERENCES %[1]s (id) ON DELETE CASCADE,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_%[1]s_updated_at ON %[1]s (updated_at);
		CREATE INDEX IF NOT EXISTS idx_%[2]s_session ON %[2]s (session_id, id);`,
		sessionsTableName, messagesTableName)

	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to create session tables: %w", err)
	}
	log.Info().Str("table", sessionsTableName).Msg("Ensured session tables exist.")
	return nil
}

func (s *sessionStore) CreateSession(ctx context.Context, name string, table model.Table, summary model.DataSummary) (*model.Session, error) {
	datasetJSON, err := json.Marshal(table)
	if err != nil {
		return nil, fmt.Errorf("failed to encode dataset: %w", err)
	}
	summaryJSON, err := json.Marshal(summary)
	if err != nil {
		return nil, fmt.Errorf("failed to encode summary: %w", err)
	}

	now := time.Now().UTC()
	session := &model.Session{
		ID:        uuid.NewString(),
		Name:      name,
		Table:     table,
		Summary:   summary,
		History:   make([]model.ChatMessage, 0),
		CreatedAt: now,
		UpdatedAt: now,
	}
	insertSQL := fmt.Sprintf(`INSERT INTO %s (id, name, dataset, summary, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $5)`, sessionsTableName)
	if _, err := s.pool.Exec(ctx, insertSQL, session.ID, name, datasetJSON, summaryJSON, now); err != nil {
		log.Error().Err(err).Msg("Failed to insert session")
		return nil, fmt.Errorf("insert session: %w", err)
	}
	return session, nil
}

func (s *sessionStore) GetSession(ctx context.Context, sessionID string) (*model.Session, error) {
	var (
		session     model.Session
		datasetJSON []byte
		summaryJSON []byte
	)
	selectSQL := fmt.Sprintf(`SELECT id, name, dataset, summary, created_at, updated_at FROM %s WHERE id = $1`, sessionsTableName)
	err := s.pool.QueryRow(ctx, selectSQL, sessionID).Scan(&session.ID, &session.Name, &datasetJSON, &summaryJSON, &session.CreatedAt, &session.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select session: %w", err)
	}
	if err := json.Unmarshal(datasetJSON, &session.Table); err != nil {
		return nil, fmt.Errorf("decode dataset: %w", err)
	}
	if err := json.Unmarshal(summaryJSON, &session.Summary); err != nil {
		return nil, fmt.Errorf("decode summary: %w", err)
	}

	historySQL := fmt.Sprintf(`SELECT %s, %s, %s FROM %s WHERE %s = $1 ORDER BY id`,
		colRole, colContent, colCreatedAt, messagesTableName, colSessionID)
	rows, err := s.pool.Query(ctx, historySQL, sessionID)
	if err != nil {
		return nil, fmt.Errorf("select history: %w", err)
	}
	history, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.ChatMessage, error) {
		var m model.ChatMessage
		err := row.Scan(&m.Role, &m.Content, &m.CreatedAt)
		return m, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan history: %w", err)
	}
	session.History = history
	return &session, nil
}

// AppendMessages copies the messages in and bumps updated_at in one transaction.
func (s *sessionStore) AppendMessages(ctx context.Context, sessionID string, messages ...model.ChatMessage) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	touchSQL := fmt.Sprintf(`UPDATE %s SET updated_at = $2 WHERE id = $1`, sessionsTableName)
	tag, err := tx.Exec(ctx, touchSQL, sessionID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("touch session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrSessionNotFound
	}

	if len(messages) > 0 {
		columns := []string{colSessionID, colRole, colContent, colCreatedAt}
		source := pgx.CopyFromSlice(len(messages), func(i int) ([]interface{}, error) {
			m := messages[i]
			return []interface{}{sessionID, m.Role, m.Content, m.CreatedAt}, nil
		})
		copyCount, err := tx.CopyFrom(ctx, pgx.Identifier{messagesTableName}, columns, source)
		if err != nil {
			log.Error().Err(err).Msg("Failed to bulk insert chat messages")
			return fmt.Errorf("copy messages: %w", err)
		}
		if int(copyCount) != len(messages) {
			log.Warn().Int64("inserted", copyCount).Int("expected", len(messages)).Msg("Chat message count mismatch")
		}
	}
	return tx.Commit(ctx)
}

func (s *sessionStore) DeleteIdleSessions(ctx context.Context, idleSince time.Time) (int, error) {
	deleteSQL := fmt.Sprintf(`DELETE FROM %s WHERE updated_at < $1`, sessionsTableName)
	tag, err := s.pool.Exec(ctx, deleteSQL, idleSince)
	if err != nil {
		return 0, fmt.Errorf("delete idle sessions: %w", err)
	}
	return int(tag.RowsAffected()), nil
}
