package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"git.sr.ht/~jakintosh/authform/internal/session"
)

func (s *SQLiteStore) ProfileStore() session.ProfileStore {
	return s
}

func (s *SQLiteStore) InsertProfile(
	ctx context.Context,
	profile *session.Profile,
) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO profile (uid, name, email, created)
		VALUES (?1, ?2, ?3, ?4);`,
		profile.UID,
		profile.Name,
		profile.Email,
		profile.CreatedAt.Unix(),
	)
	if isUniqueViolation(err) {
		return session.ErrProfileExists
	}
	if err != nil {
		return fmt.Errorf("couldn't insert into profile: %v", err)
	}
	return nil
}

func (s *SQLiteStore) GetProfile(
	ctx context.Context,
	uid string,
) (
	*session.Profile,
	error,
) {
	row := s.db.QueryRowContext(ctx, `
		SELECT uid, name, email, created
		FROM profile
		WHERE uid=?1;`,
		uid,
	)
	return scanProfile(row)
}

func (s *SQLiteStore) GetProfileByEmail(
	ctx context.Context,
	email string,
) (
	*session.Profile,
	error,
) {
	row := s.db.QueryRowContext(ctx, `
		SELECT uid, name, email, created
		FROM profile
		WHERE email=?1;`,
		email,
	)
	return scanProfile(row)
}

func scanProfile(row *sql.Row) (*session.Profile, error) {
	profile := &session.Profile{}
	var created int64
	err := row.Scan(&profile.UID, &profile.Name, &profile.Email, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, session.ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("couldn't scan profile: %v", err)
	}
	profile.CreatedAt = time.Unix(created, 0)
	return profile, nil
}
