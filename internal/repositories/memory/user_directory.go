package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/SAP-F-2025/quiz-attempt-service/internal/models"
	"github.com/SAP-F-2025/quiz-attempt-service/internal/repositories"
)

// UserDirectory is a static UserRepository for deployments without an identity
// provider and for tests.
type UserDirectory struct {
	mu    sync.RWMutex
	users map[string]models.User
}

func NewUserDirectory(users ...models.User) *UserDirectory {
	d := &UserDirectory{users: make(map[string]models.User, len(users))}
	for _, u := range users {
		d.users[u.ID] = u
	}
	return d
}

func (d *UserDirectory) Put(user models.User) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.users[user.ID] = user
}

func (d *UserDirectory) GetByID(_ context.Context, id string) (*models.User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	user, ok := d.users[id]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", id, repositories.ErrNotFound)
	}
	return &user, nil
}
