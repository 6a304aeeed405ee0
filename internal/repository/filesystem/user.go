package filesystem

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/dtroode/flashcards-server/internal/model"
)

var _ model.UserStore = (*UserRepository)(nil)

type userRecord struct {
	Name         string `json:"name"`
	Affiliation  string `json:"affiliation"`
	PasswordHash string `json:"password_hash"`
	CreatedAt    string `json:"created_at"`
}

// UserRepository keeps every account in a single users.json file.
type UserRepository struct {
	path string
	mu   sync.Mutex
}

func NewUserRepository(root string) *UserRepository {
	return &UserRepository{
		path: filepath.Join(root, usersDir, usersFile),
	}
}

func (r *UserRepository) read() (map[string]userRecord, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return map[string]userRecord{}, nil
		}
		return nil, fmt.Errorf("failed to read users file: %w", err)
	}

	users := map[string]userRecord{}
	if err := json.Unmarshal(data, &users); err != nil {
		return nil, fmt.Errorf("failed to decode users file %s: %w", r.path, err)
	}
	return users, nil
}

func (r *UserRepository) write(users map[string]userRecord) error {
	data, err := marshalIndent(users)
	if err != nil {
		return fmt.Errorf("failed to encode users: %w", err)
	}
	return writeFileAtomic(r.path, data)
}

func toUser(username string, rec userRecord) model.User {
	createdAt, _ := time.ParseInLocation(model.CreatedAtLayout, rec.CreatedAt, time.Local)
	return model.User{
		Username:     username,
		Name:         rec.Name,
		Affiliation:  rec.Affiliation,
		PasswordHash: rec.PasswordHash,
		CreatedAt:    createdAt,
	}
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	users, err := r.read()
	if err != nil {
		return model.User{}, err
	}

	rec, ok := users[username]
	if !ok {
		return model.User{}, model.ErrNotFound
	}
	return toUser(username, rec), nil
}

func (r *UserRepository) GetByName(ctx context.Context, name string) ([]model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	users, err := r.read()
	if err != nil {
		return nil, err
	}

	var found []model.User
	for username, rec := range users {
		if rec.Name == name {
			found = append(found, toUser(username, rec))
		}
	}
	slices.SortFunc(found, func(a, b model.User) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return found, nil
}

func (r *UserRepository) Create(ctx context.Context, user model.User) (model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	users, err := r.read()
	if err != nil {
		return model.User{}, err
	}

	if _, ok := users[user.Username]; ok {
		return model.User{}, model.ErrAlreadyExists
	}

	rec := userRecord{
		Name:         user.Name,
		Affiliation:  user.Affiliation,
		PasswordHash: user.PasswordHash,
		CreatedAt:    user.CreatedAt.Format(model.CreatedAtLayout),
	}
	users[user.Username] = rec

	if err := r.write(users); err != nil {
		return model.User{}, fmt.Errorf("failed to create user: %w", err)
	}
	return toUser(user.Username, rec), nil
}

func (r *UserRepository) UpdatePassword(ctx context.Context, username string, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	users, err := r.read()
	if err != nil {
		return err
	}

	rec, ok := users[username]
	if !ok {
		return model.ErrNotFound
	}
	rec.PasswordHash = passwordHash
	users[username] = rec

	if err := r.write(users); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return nil
}

func (r *UserRepository) Delete(ctx context.Context, username string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	users, err := r.read()
	if err != nil {
		return err
	}

	if _, ok := users[username]; !ok {
		return model.ErrNotFound
	}
	delete(users, username)

	if err := r.write(users); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return nil
}
