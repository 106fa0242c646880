package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"git.sr.ht/~jakintosh/authform/internal/session"
)

func (s *SQLiteStore) SessionStore() session.Store {
	return s
}

func (s *SQLiteStore) PutSession(
	ctx context.Context,
	sess *session.Session,
) error {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO session (id, owner, created, expiration)
		SELECT ?1, p.id, ?2, ?3
		FROM profile p
		WHERE p.uid=?4;`,
		sess.ID,
		sess.CreatedAt.Unix(),
		sess.ExpiresAt.Unix(),
		sess.UID,
	)
	if err != nil {
		return fmt.Errorf("couldn't insert into session: %v", err)
	}
	if resultsEmpty(result) {
		return session.ErrProfileNotFound
	}
	return nil
}

func (s *SQLiteStore) GetSession(
	ctx context.Context,
	id string,
) (
	*session.Session,
	error,
) {
	row := s.db.QueryRowContext(ctx, `
		SELECT s.id, p.uid, p.name, p.email, s.created, s.expiration
		FROM session s
		JOIN profile p ON s.owner=p.id
		WHERE s.id=?1;`,
		id,
	)

	sess := &session.Session{}
	var created, expiration int64
	err := row.Scan(&sess.ID, &sess.UID, &sess.Name, &sess.Email, &created, &expiration)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, session.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("couldn't scan session: %v", err)
	}
	sess.CreatedAt = time.Unix(created, 0)
	sess.ExpiresAt = time.Unix(expiration, 0)
	return sess, nil
}

func (s *SQLiteStore) DeleteSession(
	ctx context.Context,
	id string,
) (
	bool,
	error,
) {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM session
		WHERE id=?1;`,
		id,
	)
	if err != nil {
		return false, fmt.Errorf("couldn't delete from session: %v", err)
	}

	deleted := !resultsEmpty(result)
	return deleted, nil
}

// DeleteExpiredSessions removes every session that expired before now and
// reports how many were removed.
func (s *SQLiteStore) DeleteExpiredSessions(
	ctx context.Context,
	now time.Time,
) (
	int64,
	error,
) {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM session
		WHERE expiration<=?1;`,
		now.Unix(),
	)
	if err != nil {
		return 0, fmt.Errorf("couldn't delete expired sessions: %v", err)
	}
	return result.RowsAffected()
}
