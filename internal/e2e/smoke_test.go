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

// TestSmokeFlow drives the built binary through the account and history
// commands that work without provider credentials.
func TestSmokeFlow(t *testing.T) {
	configDir := t.TempDir()
	binaryPath := buildBinary(t)
	require.NoError(t, writeAccountsFixture(configDir))

	stdout, stderr, err := runLW(t, binaryPath, configDir, "version")
	require.NoError(t, err, "stderr: %s", stderr)
	assert.NotEmpty(t, stdout)

	stdout, stderr, err = runLW(t, binaryPath, configDir, "account", "list")
	require.NoError(t, err, "stderr: %s", stderr)
	assert.Contains(t, stdout, "alice@example.com")

	_, stderr, err = runLW(t, binaryPath, configDir, "account", "alias", "alice@example.com", "work")
	require.NoError(t, err, "stderr: %s", stderr)

	stdout, stderr, err = runLW(t, binaryPath, configDir, "account", "list")
	require.NoError(t, err, "stderr: %s", stderr)
	assert.Contains(t, stdout, "work")

	stdout, stderr, err = runLW(t, binaryPath, configDir, "history", "--info")
	require.NoError(t, err, "stderr: %s", stderr)
	assert.Contains(t, stdout, "records: 0")
}

func buildBinary(t *testing.T) string {
	t.Helper()

	binaryPath := filepath.Join(t.TempDir(), "lw-e2e")
	cmd := exec.Command("go", "build", "-o", binaryPath, "./cmd/lw")
	cmd.Dir = repoRoot(t)

	output, err := cmd.CombinedOutput()
	require.NoError(t, err, "build lw binary: %s", string(output))
	return binaryPath
}

func runLW(t *testing.T, binaryPath, configDir string, args ...string) (string, string, error) {
	t.Helper()

	cmd := exec.Command(binaryPath, args...)
	cmd.Env = append(os.Environ(), "LIMITWATCH_CONFIG_DIR="+configDir)

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

func writeAccountsFixture(configDir string) error {
	accounts := `version = 1

[[accounts]]
provider = "openai"
id = "alice@example.com"
secret_ref = "openai/alice@example.com"
`

	return os.WriteFile(filepath.Join(configDir, "accounts.toml"), []byte(accounts), 0o644)
}
