package sqlxrepos

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/wisonline/woec/core/user"
	"github.com/wisonline/woec/storage/database"
)

var userColumns = []string{"id", "username", "password_hash", "role", "email", "first_name", "last_name", "created_at"}

type userRow struct {
	ID           int       `db:"id"`
	Username     string    `db:"username"`
	PasswordHash []byte    `db:"password_hash"`
	Role         string    `db:"role"`
	Email        string    `db:"email"`
	FirstName    string    `db:"first_name"`
	LastName     string    `db:"last_name"`
	CreatedAt    time.Time `db:"created_at"`
}

func (r userRow) unboil() user.User {
	return user.User{
		ID:           r.ID,
		Username:     r.Username,
		PasswordHash: r.PasswordHash,
		Role:         r.Role,
		Email:        r.Email,
		FirstName:    r.FirstName,
		LastName:     r.LastName,
		CreatedAt:    r.CreatedAt.UTC(),
	}
}

type userRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*userRepository)(nil)

func NewUserRepository(db *sqlx.DB) user.Repository {
	return &userRepository{db: db}
}

// CreateUser skips the insert on a username conflict, so an open transaction stays usable.
func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	query, args, err := psql.Insert("users").
		Columns("username", "password_hash", "role", "email", "first_name", "last_name", "created_at").
		Values(usr.Username, usr.PasswordHash, usr.Role, usr.Email, usr.FirstName, usr.LastName, usr.CreatedAt).
		Suffix("ON CONFLICT (username) DO NOTHING RETURNING id").
		ToSql()
	if err != nil {
		return user.User{}, errors.Wrap(err, "building query")
	}

	if err = database.Conn(ctx, repo.db).GetContext(ctx, &usr.ID, query, args...); err != nil {
		if isNoRows(err) {
			return user.User{}, user.ErrUsernameExists
		}
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return usr, nil
}

func (repo *userRepository) GetUser(ctx context.Context, filter user.GetFilter) (user.User, error) {
	var where sq.Sqlizer
	switch {
	case filter.ID != 0:
		where = sq.Eq{"id": filter.ID}
	case filter.Username != "":
		where = sq.Eq{"username": filter.Username}
	case filter.UsernameOrEmail != "":
		where = sq.Or{sq.Eq{"username": filter.UsernameOrEmail}, sq.Eq{"email": filter.UsernameOrEmail}}
	default:
		return user.User{}, user.ErrNotFound
	}

	query, args, err := psql.Select(userColumns...).From("users").Where(where).OrderBy("id").Limit(1).ToSql()
	if err != nil {
		return user.User{}, errors.Wrap(err, "building query")
	}

	var row userRow
	if err = database.Conn(ctx, repo.db).GetContext(ctx, &row, query, args...); err != nil {
		if isNoRows(err) {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, errors.Wrap(err, "selecting user")
	}
	return row.unboil(), nil
}

func (repo *userRepository) UpdateUserPassword(ctx context.Context, id int, hash []byte) error {
	query, args, err := psql.Update("users").Set("password_hash", hash).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	res, err := database.Conn(ctx, repo.db).ExecContext(ctx, query, args...)
	if err != nil {
		return errors.Wrap(err, "updating user password")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return user.ErrNotFound
	}
	return nil
}
