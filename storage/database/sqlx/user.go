// Package sqlxrepos implements the core repositories on PostgreSQL via sqlx.
// Row structs carry the snake_case column mapping; core models never see it.
package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/talimhq/talim/core"
	"github.com/talimhq/talim/core/user"
)

type userRow struct {
	ID           string      `db:"id"`
	Email        string      `db:"email"`
	Role         string      `db:"role"`
	FirstName    null.String `db:"first_name"`
	MiddleName   null.String `db:"middle_name"`
	LastName     null.String `db:"last_name"`
	Name         null.String `db:"name"`
	Age          null.Int    `db:"age"`
	Avatar       null.String `db:"avatar"`
	Bio          null.String `db:"bio"`
	PasswordHash []byte      `db:"password_hash"`
	IsActive     bool        `db:"is_active"`
	CreatedAt    time.Time   `db:"created_at"`
	UpdatedAt    time.Time   `db:"updated_at"`
	LastLogin    null.Time   `db:"last_login"`
}

func packUser(usr user.User) userRow {
	return userRow{
		ID:           usr.ID,
		Email:        usr.Email,
		Role:         usr.Role,
		FirstName:    null.NewString(usr.FirstName, usr.FirstName != ""),
		MiddleName:   null.NewString(usr.MiddleName, usr.MiddleName != ""),
		LastName:     null.NewString(usr.LastName, usr.LastName != ""),
		Name:         null.NewString(usr.Name, usr.Name != ""),
		Age:          null.NewInt(usr.Age, usr.Age != 0),
		Avatar:       null.NewString(usr.Avatar, usr.Avatar != ""),
		Bio:          null.NewString(usr.Bio, usr.Bio != ""),
		PasswordHash: usr.PasswordHash,
		IsActive:     usr.IsActive,
		CreatedAt:    usr.CreatedAt.UTC(),
		UpdatedAt:    usr.UpdatedAt.UTC(),
		LastLogin:    null.NewTime(usr.LastLogin.UTC(), !usr.LastLogin.IsZero()),
	}
}

func (row userRow) unpack() user.User {
	return user.User{
		ID:           row.ID,
		Email:        row.Email,
		Role:         row.Role,
		FirstName:    row.FirstName.String,
		MiddleName:   row.MiddleName.String,
		LastName:     row.LastName.String,
		Name:         row.Name.String,
		Age:          row.Age.Int,
		Avatar:       row.Avatar.String,
		Bio:          row.Bio.String,
		PasswordHash: row.PasswordHash,
		IsActive:     row.IsActive,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
		LastLogin:    row.LastLogin.Time,
	}
}

type userRepository struct {
	db core.DBExecutor
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db core.DBExecutor) *userRepository {
	return &userRepository{db: db}
}

// trapNoRowsErr maps psql "no rows" err to user.ErrNotFound
func (repo userRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return user.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo userRepository) CheckEmailUniqueness(ctx context.Context, email string, excludedUsers ...user.User) error {
	q := `SELECT EXISTS (SELECT 1 FROM profiles WHERE email = $1 AND id != ALL($2))`
	ids := make([]string, 0, len(excludedUsers))
	for _, u := range excludedUsers {
		ids = append(ids, u.ID)
	}

	var exists bool
	if err := repo.db.GetContext(ctx, &exists, q, email, pq.Array(ids)); err != nil {
		return errors.Wrap(err, "checking email uniqueness")
	}
	if exists {
		return user.ErrEmailExists
	}
	return nil
}

func (repo userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	usr.ID = uuid.NewString()
	row := packUser(usr)
	q := `
		INSERT INTO profiles (id, email, role, first_name, middle_name, last_name, name, age,
		                      avatar, bio, password_hash, is_active, created_at, updated_at)
		VALUES (:id, :email, :role, :first_name, :middle_name, :last_name, :name, :age,
		        :avatar, :bio, :password_hash, :is_active, :created_at, :updated_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, row); err != nil {
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return row.unpack(), nil
}

func (repo userRepository) QueryAllUsers(ctx context.Context) ([]user.User, error) {
	var rows []userRow
	q := `SELECT * FROM profiles ORDER BY created_at`
	if err := repo.db.SelectContext(ctx, &rows, q); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}

	users := make([]user.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, row.unpack())
	}
	return users, nil
}

func (repo userRepository) GetUserByID(ctx context.Context, id string) (user.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return user.User{}, user.ErrNotFound
	}

	var row userRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM profiles WHERE id = $1`, id); err != nil {
		return user.User{}, repo.trapNoRowsErr(err, "finding user by ID")
	}
	return row.unpack(), nil
}

func (repo userRepository) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	var row userRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM profiles WHERE email = $1`, email); err != nil {
		return user.User{}, repo.trapNoRowsErr(err, "finding user by email")
	}
	return row.unpack(), nil
}

func (repo userRepository) UpdateUser(ctx context.Context, usr user.User, isActive *bool) (user.User, error) {
	if isActive != nil {
		usr.IsActive = *isActive
	}
	usr.UpdatedAt = time.Now().UTC()
	row := packUser(usr)
	q := `
		UPDATE profiles
		SET first_name = :first_name, middle_name = :middle_name, last_name = :last_name,
		    name = :name, age = :age, avatar = :avatar, bio = :bio,
		    password_hash = :password_hash, is_active = :is_active, updated_at = :updated_at
		WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, q, row)
	if err != nil {
		return user.User{}, errors.Wrap(err, "updating user")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return user.User{}, user.ErrNotFound
	}
	return row.unpack(), nil
}

func (repo userRepository) SetLastLogin(ctx context.Context, usr user.User) (user.User, error) {
	usr.LastLogin = time.Now().UTC()
	q := `UPDATE profiles SET last_login = $1 WHERE id = $2`
	if _, err := repo.db.ExecContext(ctx, q, usr.LastLogin, usr.ID); err != nil {
		return user.User{}, errors.Wrap(err, "setting last login")
	}
	return usr, nil
}

func (repo userRepository) DeleteUser(ctx context.Context, id string) error {
	if _, err := repo.db.ExecContext(ctx, `DELETE FROM profiles WHERE id = $1`, id); err != nil {
		return errors.Wrap(err, "deleting user")
	}
	return nil
}
