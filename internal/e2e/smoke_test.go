package e2e

import (
	"bytes"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSmokeFlow(t *testing.T) {
	home := t.TempDir()
	binaryPath := buildBinary(t)
	seedPath, err := writeSeedFixture(home)
	require.NoError(t, err)

	stdout, stderr, err := runDP(t, binaryPath, home, "seed", "--file", seedPath)
	require.NoError(t, err, "stderr: %s", stderr)
	assert.Contains(t, stdout, "imported 2 records")

	stdout, stderr, err = runDP(t, binaryPath, home, "move", "c-1", "hot")
	require.NoError(t, err, "stderr: %s", stderr)
	assert.Contains(t, stdout, "c-1: lead -> hot (version 2)")

	stdout, stderr, err = runDP(t, binaryPath, home, "board")
	require.NoError(t, err, "stderr: %s", stderr)
	assert.Contains(t, stdout, "Ada Park")
	assert.Contains(t, stdout, "Hot (1)")

	_, _, err = runDP(t, binaryPath, home, "move", "c-2", "hot")
	require.Error(t, err, "moving a sold record must fail")
}

func buildBinary(t *testing.T) string {
	t.Helper()

	binaryPath := filepath.Join(t.TempDir(), "dp-e2e")
	cmd := exec.Command("go", "build", "-o", binaryPath, "./cmd/dp")
	cmd.Dir = repoRoot(t)

	output, err := cmd.CombinedOutput()
	require.NoError(t, err, "build dp binary: %s", string(output))
	return binaryPath
}

func runDP(t *testing.T, binaryPath, home string, args ...string) (string, string, error) {
	t.Helper()

	cmd := exec.Command(binaryPath, args...)
	cmd.Env = append(os.Environ(), "HOME="+home, "DP_ACTOR_ID=manager-1", "DP_ACTOR_ROLE=manager")

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}

func repoRoot(t *testing.T) string {
	t.Helper()

	wd, err := os.Getwd()
	require.NoError(t, err)
	return filepath.Clean(filepath.Join(wd, "..", ".."))
}

func writeSeedFixture(home string) (string, error) {
	seed := `records:
  - id: c-1
    name: Ada Park
    stage: lead
    budget: 25000
    interest: high
    assigned_to: ada
  - id: c-2
    name: Bo Lind
    stage: sold
    budget: 15000
`

	path := filepath.Join(home, "seed.yaml")
	return path, os.WriteFile(path, []byte(seed), 0o644)
}
