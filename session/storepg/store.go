// Package storepg is a Postgres-backed session.Store, for deployments
// that need sessions to survive a process restart or to be shared
// across multiple corsair instances sitting behind a load balancer.
package storepg

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/corsair-io/corsair/session"
)

// Store persists sessions in a `sessions` table:
//
//	CREATE TABLE sessions (
//	    id         TEXT PRIMARY KEY,
//	    data       JSONB NOT NULL,
//	    created_at TIMESTAMPTZ NOT NULL,
//	    expires_at TIMESTAMPTZ NOT NULL
//	);
type Store struct {
	db *sqlx.DB
}

// New builds a Store backed by db.
func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// row is the wire shape of a sessions table record; Data round-trips
// through JSON since session.Session.Data is a freeform string map.
type row struct {
	ID        string    `db:"id"`
	Data      []byte    `db:"data"`
	CreatedAt time.Time `db:"created_at"`
	ExpiresAt time.Time `db:"expires_at"`
}

func (s *Store) Create(ctx context.Context, sess *session.Session) error {
	data, err := json.Marshal(sess.Data)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO sessions (id, data, created_at, expires_at)
		VALUES (:id, :data, :created_at, :expires_at)
	`
	r := row{ID: sess.ID, Data: data, CreatedAt: sess.CreatedAt, ExpiresAt: sess.ExpiresAt}
	if _, err := s.db.NamedExecContext(ctx, query, r); err != nil {
		return fmt.Errorf("storepg: create session: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, id string) (*session.Session, error) {
	var r row
	query := `SELECT * FROM sessions WHERE id = $1`
	if err := s.db.GetContext(ctx, &r, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, session.ErrNotFound
		}
		return nil, err
	}
	return r.toSession()
}

func (s *Store) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	return err
}

func (s *Store) Touch(ctx context.Context, id string, newExpiry time.Time) error {
	res, err := s.db.ExecContext(ctx, `UPDATE sessions SET expires_at = $1 WHERE id = $2`, newExpiry, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return session.ErrNotFound
	}
	return nil
}

func (r *row) toSession() (*session.Session, error) {
	var data map[string]string
	if err := json.Unmarshal(r.Data, &data); err != nil {
		return nil, err
	}
	return &session.Session{
		ID:        r.ID,
		Data:      data,
		CreatedAt: r.CreatedAt,
		ExpiresAt: r.ExpiresAt,
	}, nil
}
