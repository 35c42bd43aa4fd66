package state_test

import (
	"context"
	"testing"

	"critcss/state"
)

func TestContextRoundTrip(t *testing.T) {
	ctx := state.ContextWithEnv(context.Background())

	env := state.EnvFromContext(ctx)
	if env == nil {
		t.Fatal("expected env in context")
	}
	if env.Uptime() < 0 {
		t.Error("expected non-negative uptime")
	}

	// Same env on repeated lookups.
	if state.EnvFromContext(ctx) != env {
		t.Error("expected the same env instance")
	}
}

func TestEnvFromContext_Missing(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for context without env")
		}
	}()
	state.EnvFromContext(context.Background())
}
