package services

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/SAP-F-2025/quiz-attempt-service/internal/events"
	"github.com/SAP-F-2025/quiz-attempt-service/internal/repositories/memory"
	"github.com/SAP-F-2025/quiz-attempt-service/internal/validator"
)

func TestServiceManagerLifecycle(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx := context.Background()
	sm := NewServiceManager(memory.New(nil), logger, validator.New(), events.NewMockEventPublisher(nil), DefaultServiceManagerConfig())

	if err := sm.HealthCheck(ctx); err == nil {
		t.Error("expected health check to fail before Initialize")
	}

	func() {
		defer func() {
			if recover() == nil {
				t.Error("expected getter to panic before Initialize")
			}
		}()
		sm.Attempt()
	}()

	if err := sm.Initialize(ctx); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if err := sm.Initialize(ctx); err != nil {
		t.Fatalf("second Initialize: %v", err)
	}
	if err := sm.HealthCheck(ctx); err != nil {
		t.Fatalf("HealthCheck: %v", err)
	}
	if sm.Quiz() == nil || sm.Answer() == nil || sm.Correction() == nil || sm.Export() == nil || sm.Score() == nil {
		t.Fatal("expected every service to be wired")
	}

	if err := sm.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if err := sm.HealthCheck(ctx); err == nil {
		t.Error("expected health check to fail after Shutdown")
	}
}
