//go:build integration

package integration

import (
	"context"
	"os/exec"
	"testing"
)

func restartCardContainer(t *testing.T, ctx context.Context) {
	t.Helper()

	cmd := exec.CommandContext(ctx, "docker", "compose", "restart", "card")
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("docker compose restart card failed: %v\n%s", err, string(out))
	}
}
