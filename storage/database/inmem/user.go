package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/talimhq/talim/core/user"
)

type userRepository struct {
	db *DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *DB) *userRepository {
	return &userRepository{db: db}
}

func (repo *userRepository) query() []user.User {
	users := make([]user.User, 0, len(repo.db.users))
	for _, u := range repo.db.users {
		users = append(users, *u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].CreatedAt.Before(users[j].CreatedAt) })
	return users
}

func (repo *userRepository) CheckEmailUniqueness(ctx context.Context, email string, excludedUsers ...user.User) error {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	excluded := make(map[string]struct{}, len(excludedUsers))
	for _, u := range excludedUsers {
		excluded[u.ID] = struct{}{}
	}

	for _, usr := range repo.db.users {
		if _, skip := excluded[usr.ID]; skip {
			continue
		}
		if usr.Email == email {
			return user.ErrEmailExists
		}
	}
	return nil
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	usr.ID = uuid.NewString()
	repo.db.users[usr.ID] = &usr
	return usr, nil
}

func (repo *userRepository) QueryAllUsers(ctx context.Context) ([]user.User, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	return repo.query(), nil
}

func (repo *userRepository) GetUserByID(ctx context.Context, id string) (user.User, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if usr, ok := repo.db.users[id]; ok {
		return *usr, nil
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, usr := range repo.db.users {
		if usr.Email == email {
			return *usr, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User, isActive *bool) (user.User, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	origUsr, ok := repo.db.users[usr.ID]
	if !ok {
		return user.User{}, user.ErrNotFound
	}

	// only save set fields
	if usr.PasswordHash != nil {
		origUsr.PasswordHash = usr.PasswordHash
	}
	if isActive != nil {
		origUsr.IsActive = *isActive
	}
	origUsr.FirstName = usr.FirstName
	origUsr.MiddleName = usr.MiddleName
	origUsr.LastName = usr.LastName
	origUsr.Name = usr.Name
	origUsr.Age = usr.Age
	origUsr.Avatar = usr.Avatar
	origUsr.Bio = usr.Bio
	origUsr.UpdatedAt = time.Now().UTC()

	return *origUsr, nil
}

func (repo *userRepository) SetLastLogin(ctx context.Context, usr user.User) (user.User, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	origUsr, ok := repo.db.users[usr.ID]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	origUsr.LastLogin = time.Now().UTC()
	return *origUsr, nil
}

func (repo *userRepository) DeleteUser(ctx context.Context, id string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	delete(repo.db.users, id)
	return nil
}
