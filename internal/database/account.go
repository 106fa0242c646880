package database

import (
	"context"
	"fmt"
	"time"

	"git.sr.ht/~jakintosh/authform/internal/identity"
)

func (s *SQLiteStore) AccountStore() identity.AccountStore {
	return s
}

func (s *SQLiteStore) InsertAccount(
	ctx context.Context,
	account *identity.Account,
) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO account (uid, email, secret, created)
		VALUES (?1, ?2, ?3, ?4);`,
		account.UID,
		account.Email,
		account.Secret,
		account.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("couldn't insert into account: %w", err)
	}
	return nil
}

// GetAccountByEmail returns sql.ErrNoRows (wrapped) for an unknown email.
func (s *SQLiteStore) GetAccountByEmail(
	ctx context.Context,
	email string,
) (
	*identity.Account,
	error,
) {
	row := s.db.QueryRowContext(ctx, `
		SELECT uid, email, secret, created
		FROM account
		WHERE email=?1;`,
		email,
	)

	account := &identity.Account{}
	var created int64
	err := row.Scan(&account.UID, &account.Email, &account.Secret, &created)
	if err != nil {
		return nil, fmt.Errorf("couldn't scan account: %w", err)
	}
	account.CreatedAt = time.Unix(created, 0)
	return account, nil
}

func (s *SQLiteStore) DeleteAccount(
	ctx context.Context,
	uid string,
) (
	bool,
	error,
) {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM account
		WHERE uid=?1;`,
		uid,
	)
	if err != nil {
		return false, fmt.Errorf("couldn't delete from account: %v", err)
	}

	deleted := !resultsEmpty(result)
	return deleted, nil
}
