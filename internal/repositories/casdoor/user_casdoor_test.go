package casdoor

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/casdoor/casdoor-go-sdk/casdoorsdk"
	"github.com/redis/go-redis/v9"

	"github.com/SAP-F-2025/quiz-attempt-service/internal/models"
	"github.com/SAP-F-2025/quiz-attempt-service/internal/repositories"
)

type fakeLookup struct {
	users map[string]*casdoorsdk.User
	calls int
}

func (f *fakeLookup) GetUserByUserId(userId string) (*casdoorsdk.User, error) {
	f.calls++
	return f.users[userId], nil
}

func TestResolveRole(t *testing.T) {
	tests := []struct {
		name string
		user *casdoorsdk.User
		want models.UserRole
	}{
		{"no roles", &casdoorsdk.User{}, models.RoleStudent},
		{"instructor", &casdoorsdk.User{Roles: []*casdoorsdk.Role{{Name: "Instructor"}}}, models.RoleTeacher},
		{"teacher beats student", &casdoorsdk.User{Roles: []*casdoorsdk.Role{{Name: "student"}, {Name: "teacher"}}}, models.RoleTeacher},
		{"admin flag", &casdoorsdk.User{IsAdmin: true, Roles: []*casdoorsdk.Role{{Name: "student"}}}, models.RoleAdmin},
		{"admin role", &casdoorsdk.User{Roles: []*casdoorsdk.Role{{Name: "teacher"}, {Name: "administrator"}}}, models.RoleAdmin},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolveRole(tt.user); got != tt.want {
				t.Errorf("ResolveRole() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGetByID_CachesResult(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	lookup := &fakeLookup{users: map[string]*casdoorsdk.User{
		"t-1": {Id: "t-1", DisplayName: "Ada", Roles: []*casdoorsdk.Role{{Name: "teacher"}}},
	}}
	repo := newUserCasdoor(lookup, client)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		user, err := repo.GetByID(ctx, "t-1")
		if err != nil {
			t.Fatalf("GetByID() error = %v", err)
		}
		if user.Role != models.RoleTeacher {
			t.Errorf("Role = %v, want teacher", user.Role)
		}
	}
	if lookup.calls != 1 {
		t.Errorf("identity provider called %d times, want 1", lookup.calls)
	}
}

func TestGetByID_NotFound(t *testing.T) {
	repo := newUserCasdoor(&fakeLookup{}, nil)

	_, err := repo.GetByID(context.Background(), "ghost")
	if !repositories.IsNotFoundError(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}
