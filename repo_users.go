package auth

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// UsersRepository is the bun backed CredentialStore
type UsersRepository struct {
	db bun.IDB
}

var _ CredentialStore = (*UsersRepository)(nil)

// NewUsersRepository creates a repository over db. db can be a *bun.DB or a
// transaction.
func NewUsersRepository(db bun.IDB) *UsersRepository {
	return &UsersRepository{db: db}
}

// CreateSchema creates the users table if needed
func (r *UsersRepository) CreateSchema(ctx context.Context) error {
	_, err := r.db.NewCreateTable().
		Model((*User)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "create users table")
	}
	return nil
}

func (r *UsersRepository) FindByIdentifier(ctx context.Context, usernameOrEmail string) (*User, error) {
	identifier := strings.TrimSpace(usernameOrEmail)
	if identifier == "" {
		return nil, ErrIdentityNotFound
	}

	record := &User{}
	err := r.db.NewSelect().
		Model(record).
		WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.
				Where("?TableAlias.username = ?", identifier).
				WhereOr("?TableAlias.email = ?", identifier)
		}).
		Limit(1).
		Scan(ctx)

	return r.scanResult(record, err)
}

func (r *UsersRepository) FindByUsername(ctx context.Context, username string) (*User, error) {
	if username == "" {
		return nil, ErrIdentityNotFound
	}

	record := &User{}
	err := r.db.NewSelect().
		Model(record).
		Where("?TableAlias.username = ?", username).
		Limit(1).
		Scan(ctx)

	return r.scanResult(record, err)
}

func (r *UsersRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	return r.db.NewSelect().
		Model((*User)(nil)).
		Where("?TableAlias.username = ?", username).
		Exists(ctx)
}

func (r *UsersRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return r.db.NewSelect().
		Model((*User)(nil)).
		Where("?TableAlias.email = ?", email).
		Exists(ctx)
}

func (r *UsersRepository) Create(ctx context.Context, user *User) (*User, error) {
	if user == nil {
		return nil, errors.New("user record is required", errors.CategoryBadInput).
			WithCode(errors.CodeBadRequest)
	}

	prepareUserDefaults(user)

	if _, err := r.db.NewInsert().Model(user).Exec(ctx); err != nil {
		return nil, mapUniqueViolation(err)
	}

	return user, nil
}

// SetEnabled toggles the enabled flag of the account
func (r *UsersRepository) SetEnabled(ctx context.Context, id uuid.UUID, enabled bool) error {
	record := &User{ID: id, Enabled: enabled}
	res, err := r.db.NewUpdate().
		Model(record).
		Column("is_enabled", "updated_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return err
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrIdentityNotFound
	}

	return nil
}

func (r *UsersRepository) scanResult(record *User, err error) (*User, error) {
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrIdentityNotFound
		}
		return nil, err
	}
	return record, nil
}

func prepareUserDefaults(record *User) {
	if record.Role == "" {
		record.Role = RoleUser
	}

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}

	now := time.Now()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	if record.UpdatedAt.IsZero() {
		record.UpdatedAt = now
	}
}

// mapUniqueViolation turns driver unique constraint errors into the
// registration conflict sentinels.
func mapUniqueViolation(err error) error {
	msg := strings.ToLower(err.Error())
	if !strings.Contains(msg, "unique") && !strings.Contains(msg, "duplicate") {
		return err
	}

	switch {
	case strings.Contains(msg, "username"):
		return ErrUsernameTaken
	case strings.Contains(msg, "email"):
		return ErrEmailTaken
	default:
		return err
	}
}
