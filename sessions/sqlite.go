package sessions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/casualjim/faceoff/pkg/uuidx"
	"github.com/casualjim/faceoff/provider"
	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore provides SQLite-backed persistence for comparison sessions.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens the SQLite database at dbPath and creates tables if
// they don't exist.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := createTables(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func createTables(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS comparison_sessions (
		id TEXT PRIMARY KEY,
		prompt TEXT NOT NULL,
		owner_id TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS model_responses (
		session_id TEXT NOT NULL,
		model TEXT NOT NULL,
		provider TEXT NOT NULL,
		position INTEGER NOT NULL,
		content TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		error TEXT,
		duration_ms INTEGER,
		tokens_used INTEGER,
		estimated_cost REAL,
		PRIMARY KEY (session_id, model),
		FOREIGN KEY (session_id) REFERENCES comparison_sessions(id)
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_owner
		ON comparison_sessions(owner_id, created_at);
	`
	_, err := db.Exec(schema)
	return err
}

func (s *SQLiteStore) Create(ctx context.Context, prompt string, selections []Selection, ownerID string) (*Session, error) {
	id := uuidx.NewString()
	now := time.Now()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin create session: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO comparison_sessions (id, prompt, owner_id, created_at)
		 VALUES (?, ?, ?, ?)`,
		id, prompt, ownerID, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert session: %w", err)
	}

	for i, sel := range selections {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO model_responses (session_id, model, provider, position, status)
			 VALUES (?, ?, ?, ?, ?)`,
			id, sel.Model, sel.Provider, i, StatusStreaming,
		)
		if err != nil {
			return nil, fmt.Errorf("insert response for %s: %w", sel.Model, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit create session: %w", err)
	}

	return &Session{
		ID:         id,
		Prompt:     prompt,
		Selections: append([]Selection(nil), selections...),
		Responses:  newResponses(selections),
		OwnerID:    ownerID,
		CreatedAt:  now,
	}, nil
}

func (s *SQLiteStore) AppendContent(ctx context.Context, sessionID, model, delta string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE model_responses SET content = content || ?
		 WHERE session_id = ? AND model = ? AND status = ?`,
		delta, sessionID, model, StatusStreaming,
	)
	if err != nil {
		return fmt.Errorf("append content: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected > 0 {
		return nil
	}

	// zero rows: missing session, missing model, or already settled. A late
	// append to a settled response is a no-op, its terminal write already
	// carried the full content.
	var status string
	err = s.db.QueryRowContext(ctx,
		`SELECT status FROM model_responses WHERE session_id = ? AND model = ?`,
		sessionID, model,
	).Scan(&status)
	if err == nil {
		return nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("check response exists: %w", err)
	}
	return s.missingTarget(ctx, sessionID, model)
}

func (s *SQLiteStore) UpdateTerminalState(ctx context.Context, sessionID, model string, terminal TerminalState) error {
	var durationMs, tokensUsed sql.NullInt64
	var estimatedCost sql.NullFloat64
	if terminal.Metrics != nil {
		durationMs = sql.NullInt64{Int64: terminal.Metrics.DurationMs, Valid: true}
		tokensUsed = sql.NullInt64{Int64: int64(terminal.Metrics.TokensUsed), Valid: true}
		estimatedCost = sql.NullFloat64{Float64: terminal.Metrics.EstimatedCost, Valid: true}
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE model_responses
		 SET status = ?, content = ?, error = ?, duration_ms = ?, tokens_used = ?, estimated_cost = ?
		 WHERE session_id = ? AND model = ?`,
		terminal.Status, terminal.Content, nullString(terminal.Error),
		durationMs, tokensUsed, estimatedCost,
		sessionID, model,
	)
	if err != nil {
		return fmt.Errorf("update terminal state: %w", err)
	}
	return s.checkResponseExisted(ctx, res, sessionID, model)
}

// checkResponseExisted turns a zero-row UPDATE into the contract errors,
// distinguishing a missing session from a missing model key.
func (s *SQLiteStore) checkResponseExisted(ctx context.Context, res sql.Result, sessionID, model string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected > 0 {
		return nil
	}
	return s.missingTarget(ctx, sessionID, model)
}

// missingTarget reports which part of a zero-row update target is absent.
func (s *SQLiteStore) missingTarget(ctx context.Context, sessionID, model string) error {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM comparison_sessions WHERE id = ?`, sessionID,
	).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("session %s: %w", sessionID, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("check session exists: %w", err)
	}
	return fmt.Errorf("model %s: %w", model, ErrModelNotFound)
}

func (s *SQLiteStore) Get(ctx context.Context, sessionID string) (*Session, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, prompt, owner_id, created_at
		 FROM comparison_sessions WHERE id = ?`,
		sessionID,
	)

	var session Session
	err := row.Scan(&session.ID, &session.Prompt, &session.OwnerID, &session.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get session %s: %w", sessionID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("scan session: %w", err)
	}

	if err := s.loadResponses(ctx, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (s *SQLiteStore) ListByOwner(ctx context.Context, ownerID string) ([]*Session, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, prompt, owner_id, created_at
		 FROM comparison_sessions
		 WHERE owner_id = ?
		 ORDER BY created_at DESC
		 LIMIT ?`,
		ownerID, DefaultOwnerListLimit,
	)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var result []*Session
	for rows.Next() {
		var session Session
		if err := rows.Scan(&session.ID, &session.Prompt, &session.OwnerID, &session.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		result = append(result, &session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}

	for _, session := range result {
		if err := s.loadResponses(ctx, session); err != nil {
			return nil, err
		}
	}
	return result, nil
}

func (s *SQLiteStore) loadResponses(ctx context.Context, session *Session) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT model, provider, content, status, error, duration_ms, tokens_used, estimated_cost
		 FROM model_responses
		 WHERE session_id = ?
		 ORDER BY position`,
		session.ID,
	)
	if err != nil {
		return fmt.Errorf("load responses: %w", err)
	}
	defer func() { _ = rows.Close() }()

	session.Responses = newResponses(nil)
	for rows.Next() {
		var (
			model, providerName string
			resp                ModelResponse
			errMsg              sql.NullString
			durationMs          sql.NullInt64
			tokensUsed          sql.NullInt64
			estimatedCost       sql.NullFloat64
		)
		err := rows.Scan(&model, &providerName, &resp.Content, &resp.Status,
			&errMsg, &durationMs, &tokensUsed, &estimatedCost)
		if err != nil {
			return fmt.Errorf("scan response: %w", err)
		}

		resp.Error = errMsg.String
		if durationMs.Valid {
			resp.Metrics = &provider.CompletionMetrics{
				DurationMs:    durationMs.Int64,
				TokensUsed:    int(tokensUsed.Int64),
				EstimatedCost: estimatedCost.Float64,
			}
		}

		session.Selections = append(session.Selections, Selection{Provider: providerName, Model: model})
		session.Responses.Set(model, &resp)
	}
	return rows.Err()
}

func nullString(value string) sql.NullString {
	return sql.NullString{String: value, Valid: value != ""}
}
