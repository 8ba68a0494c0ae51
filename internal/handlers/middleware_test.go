package handlers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/casdoor/casdoor-go-sdk/casdoorsdk"
	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/quiz-attempt-service/internal/models"
	"github.com/SAP-F-2025/quiz-attempt-service/internal/repositories/memory"
)

type fakeParser struct {
	claims map[string]*casdoorsdk.Claims
}

func (f fakeParser) ParseJwtToken(token string) (*casdoorsdk.Claims, error) {
	claims, ok := f.claims[token]
	if !ok {
		return nil, errors.New("signature is invalid")
	}
	return claims, nil
}

func TestAuthMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	parser := fakeParser{claims: map[string]*casdoorsdk.Claims{
		"known":   {User: casdoorsdk.User{Id: "teacher-1"}},
		"claims":  {User: casdoorsdk.User{Id: "ta-7", Roles: []*casdoorsdk.Role{{Name: "Instructor"}}}},
		"no-role": {User: casdoorsdk.User{Id: "student-9"}},
		"no-id":   {User: casdoorsdk.User{}},
	}}
	directory := memory.NewUserDirectory(models.User{ID: "teacher-1", Role: models.RoleTeacher})
	auth := newCasdoorAuthMiddleware(parser, directory, nil)

	router := gin.New()
	router.GET("/me", auth.AuthMiddleware(), func(c *gin.Context) {
		p, err := GetPrincipalFromContext(c)
		if err != nil {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.String(http.StatusOK, p.UserID+"/"+string(p.Role))
	})

	tests := []struct {
		name     string
		header   string
		wantCode int
		wantBody string
	}{
		{name: "missing header", wantCode: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Basic known", wantCode: http.StatusUnauthorized},
		{name: "invalid token", header: "Bearer forged", wantCode: http.StatusUnauthorized},
		{name: "token without subject", header: "Bearer no-id", wantCode: http.StatusUnauthorized},
		{name: "directory user", header: "Bearer known", wantCode: http.StatusOK, wantBody: "teacher-1/teacher"},
		{name: "role from claims", header: "Bearer claims", wantCode: http.StatusOK, wantBody: "ta-7/teacher"},
		{name: "no roles means student", header: "Bearer no-role", wantCode: http.StatusOK, wantBody: "student-9/student"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d (%s)", w.Code, tt.wantCode, w.Body.String())
			}
			if tt.wantBody != "" && w.Body.String() != tt.wantBody {
				t.Errorf("body = %q, want %q", w.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestRequireRole(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		role     models.UserRole
		wantCode int
	}{
		{models.RoleTeacher, http.StatusOK},
		{models.RoleAdmin, http.StatusOK},
		{models.RoleStudent, http.StatusForbidden},
		{models.RoleProctor, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			router := gin.New()
			router.GET("/grading",
				func(c *gin.Context) { SetUserInContext(c, &models.User{ID: "u", Role: tt.role}) },
				RequireRole(models.RoleTeacher),
				func(c *gin.Context) { c.Status(http.StatusOK) },
			)

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/grading", nil))
			if w.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", w.Code, tt.wantCode)
			}
		})
	}
}

func TestRateLimiter(t *testing.T) {
	t.Run("buckets are per key", func(t *testing.T) {
		rl := NewRateLimiter(1, 2)
		now := time.Now()

		if !rl.allow("a", now) || !rl.allow("a", now) {
			t.Fatal("burst should be allowed")
		}
		if rl.allow("a", now) {
			t.Error("third request in the same instant should be limited")
		}
		if !rl.allow("b", now) {
			t.Error("another caller should have its own bucket")
		}
		if !rl.allow("a", now.Add(time.Second)) {
			t.Error("bucket should refill after a second")
		}
	})

	t.Run("cleanup drops idle buckets", func(t *testing.T) {
		rl := NewRateLimiter(1, 1)
		now := time.Now()
		rl.allow("idle", now)
		rl.allow("busy", now.Add(9*time.Minute))

		rl.Cleanup(now.Add(11 * time.Minute))

		if _, ok := rl.visitors["idle"]; ok {
			t.Error("idle bucket should be removed")
		}
		if _, ok := rl.visitors["busy"]; !ok {
			t.Error("recent bucket should be kept")
		}
	})

	t.Run("middleware answers 429", func(t *testing.T) {
		api := newAPIClient(t, NewRateLimiter(0.001, 1))
		quiz := api.seedQuiz()
		w := api.do(http.MethodPost, "/api/v1/quizzes/"+itoa(quiz.ID)+"/attempts", student, nil)
		attempt := decode[struct {
			ID uint `json:"id"`
		}](t, w)
		path := "/api/v1/attempts/" + itoa(attempt.ID) + "/answers/" + itoa(quiz.Questions[1].ID)

		if w := api.do(http.MethodPut, path, student, map[string]string{"text": "first"}); w.Code != http.StatusOK {
			t.Fatalf("first answer: %d %s", w.Code, w.Body.String())
		}
		w = api.do(http.MethodPut, path, student, map[string]string{"text": "second"})
		if w.Code != http.StatusTooManyRequests {
			t.Fatalf("status = %d, want 429", w.Code)
		}
		if got := decode[ErrorResponse](t, w).Code; got != "rate_limited" {
			t.Errorf("code = %q", got)
		}
	})
}
