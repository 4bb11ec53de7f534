package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"deskrag/internal/config"
	"deskrag/internal/domain/errs"
	"deskrag/internal/domain/sessionmodel"

	"github.com/google/uuid"
)

// Session memory: turns are appended and read back creation-time ascending;
// each session carries at most one rolling summary.

func (s *Store) CreateSession(ctx context.Context, title string) (sessionmodel.Session, error) {
	session := sessionmodel.Session{
		Id:        uuid.New().String(),
		Title:     title,
		CreatedAt: time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, title, created_at) VALUES (?, ?, ?)`,
		session.Id, session.Title, formatTime(session.CreatedAt))
	if err != nil {
		return sessionmodel.Session{}, err
	}
	return session, nil
}

func (s *Store) GetSession(ctx context.Context, id string) (sessionmodel.Session, error) {
	var session sessionmodel.Session
	var createdAt string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, title, created_at FROM sessions WHERE id = ?`, id).
		Scan(&session.Id, &session.Title, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return sessionmodel.Session{}, fmt.Errorf("%w: %s", errs.ErrSessionNotFound, id)
	}
	if err != nil {
		return sessionmodel.Session{}, err
	}
	session.CreatedAt = parseTime(createdAt)
	return session, nil
}

func (s *Store) AddMessage(ctx context.Context, sessionID string, role sessionmodel.Role, content string) (sessionmodel.Message, error) {
	if _, err := s.GetSession(ctx, sessionID); err != nil {
		return sessionmodel.Message{}, err
	}

	msg := sessionmodel.Message{
		Id:        uuid.New().String(),
		SessionId: sessionID,
		Role:      role,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO session_messages (id, session_id, role, content, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		msg.Id, msg.SessionId, string(msg.Role), msg.Content, formatTime(msg.CreatedAt))
	if err != nil {
		return sessionmodel.Message{}, err
	}
	return msg, nil
}

// ListMessages returns up to limit messages, creation-time ascending.
func (s *Store) ListMessages(ctx context.Context, sessionID string, limit int) ([]sessionmodel.Message, error) {
	if _, err := s.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}
	if limit < 1 {
		limit = 1
	}
	if limit > config.MaxMessageLimit {
		limit = config.MaxMessageLimit
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, role, content, created_at
		 FROM session_messages WHERE session_id = ?
		 ORDER BY created_at ASC LIMIT ?`, sessionID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []sessionmodel.Message
	for rows.Next() {
		var m sessionmodel.Message
		var role, createdAt string
		if err := rows.Scan(&m.Id, &m.SessionId, &role, &m.Content, &createdAt); err != nil {
			return nil, err
		}
		m.Role = sessionmodel.Role(role)
		m.CreatedAt = parseTime(createdAt)
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

func (s *Store) GetSummary(ctx context.Context, sessionID string) (sessionmodel.Summary, bool, error) {
	var summary sessionmodel.Summary
	var updatedAt string
	err := s.db.QueryRowContext(ctx,
		`SELECT session_id, summary, updated_at FROM session_summaries WHERE session_id = ?`, sessionID).
		Scan(&summary.SessionId, &summary.Text, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return sessionmodel.Summary{}, false, nil
	}
	if err != nil {
		return sessionmodel.Summary{}, false, err
	}
	summary.UpdatedAt = parseTime(updatedAt)
	return summary, true, nil
}

// UpsertSummary replaces the session's summary, keyed by session id.
func (s *Store) UpsertSummary(ctx context.Context, sessionID, summary string) error {
	if _, err := s.GetSession(ctx, sessionID); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO session_summaries (session_id, summary, updated_at)
		 VALUES (?, ?, ?)
		 ON CONFLICT(session_id) DO UPDATE SET
		   summary = excluded.summary,
		   updated_at = excluded.updated_at`,
		sessionID, summary, formatTime(time.Now()))
	return err
}
