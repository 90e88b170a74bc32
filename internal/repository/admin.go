package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mr1hm/pulsemap/internal/models"
)

func (s *SQLDB) CountAdmins(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM admin_users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("error counting admin users: %w", err)
	}
	return n, nil
}

func (s *SQLDB) CreateAdmin(ctx context.Context, u *models.AdminUser) error {
	taken, err := s.usernameTaken(ctx, u.Username, 0)
	if err != nil {
		return err
	}
	if taken {
		return ErrUsernameTaken
	}

	now := time.Now()
	err = s.db.QueryRowContext(ctx, s.q(`
		INSERT INTO admin_users (username, password_hash, created_at)
		VALUES (?, ?, ?)
		RETURNING id`), u.Username, u.PasswordHash, now.UnixMilli()).Scan(&u.ID)
	if err != nil {
		return fmt.Errorf("error creating admin user: %w", err)
	}
	u.CreatedAt = now
	return nil
}

func (s *SQLDB) GetAdminByID(ctx context.Context, id int64) (*models.AdminUser, error) {
	return s.getAdmin(ctx, `WHERE id = ?`, id)
}

func (s *SQLDB) GetAdminByUsername(ctx context.Context, username string) (*models.AdminUser, error) {
	return s.getAdmin(ctx, `WHERE username = ?`, username)
}

func (s *SQLDB) UpdateAdminUsername(ctx context.Context, id int64, username string) error {
	taken, err := s.usernameTaken(ctx, username, id)
	if err != nil {
		return err
	}
	if taken {
		return ErrUsernameTaken
	}

	res, err := s.db.ExecContext(ctx, s.q(`UPDATE admin_users SET username = ? WHERE id = ?`), username, id)
	if err != nil {
		return fmt.Errorf("error updating admin username: %w", err)
	}
	return requireRow(res)
}

func (s *SQLDB) UpdateAdminPassword(ctx context.Context, id int64, passwordHash string) error {
	res, err := s.db.ExecContext(ctx, s.q(`UPDATE admin_users SET password_hash = ? WHERE id = ?`), passwordHash, id)
	if err != nil {
		return fmt.Errorf("error updating admin password: %w", err)
	}
	return requireRow(res)
}

func (s *SQLDB) getAdmin(ctx context.Context, where string, arg any) (*models.AdminUser, error) {
	var (
		u       models.AdminUser
		created int64
	)
	err := s.db.QueryRowContext(ctx, s.q(`SELECT id, username, password_hash, created_at FROM admin_users `+where), arg).
		Scan(&u.ID, &u.Username, &u.PasswordHash, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error loading admin user: %w", err)
	}
	u.CreatedAt = time.UnixMilli(created)
	return &u, nil
}

func (s *SQLDB) usernameTaken(ctx context.Context, username string, exceptID int64) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, s.q(`SELECT COUNT(*) FROM admin_users WHERE username = ? AND id <> ?`), username, exceptID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("error checking username: %w", err)
	}
	return n > 0, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
