package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pratik-mahalle/pullrunner/internal/testutil"
)

type cliResult struct {
	stdout string
	stderr string
	err    error
}

func runCLI(t *testing.T, backend *testutil.Backend, input string, args ...string) cliResult {
	t.Helper()

	var out, errOut bytes.Buffer
	stdin, stdout, stderr = strings.NewReader(input), &out, &errOut
	t.Cleanup(func() {
		stdin, stdout, stderr = os.Stdin, os.Stdout, os.Stderr
	})

	full := []string{"--server", backend.URL()}
	if !hasFlag(args, "--config") {
		full = append(full, "--config", filepath.Join(t.TempDir(), "config.yaml"))
	}
	err := execute(append(full, args...)...)
	return cliResult{stdout: out.String(), stderr: errOut.String(), err: err}
}

func hasFlag(args []string, flag string) bool {
	for _, a := range args {
		if a == flag {
			return true
		}
	}
	return false
}

func newCLIBackend(t *testing.T) *testutil.Backend {
	t.Helper()
	backend := testutil.NewBackend(t)
	backend.Token = "tok"
	t.Setenv("PULLRUNNER_AUTH_TOKEN", "tok")
	return backend
}

func TestCLI_RequiresToken(t *testing.T) {
	backend := testutil.NewBackend(t)
	t.Setenv("PULLRUNNER_AUTH_TOKEN", "")

	res := runCLI(t, backend, "", "repos", "list")
	require.Error(t, res.err)
	assert.False(t, Reported(res.err))
	assert.Contains(t, res.err.Error(), "not authenticated")
	assert.Empty(t, backend.Requests())
}

func TestCLI_ReposAddAndList(t *testing.T) {
	backend := newCLIBackend(t)

	res := runCLI(t, backend, "", "repos", "add", "https://github.com/acme/api", "--token", "ghp")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "Repositories (1)")
	assert.Contains(t, res.stdout, "acme/api")
	assert.Contains(t, res.stdout, "[+] active")

	repos := backend.Repos()
	require.Len(t, repos, 1)
	assert.Equal(t, "ghp", repos[0]["token"])

	res = runCLI(t, backend, "", "-o", "json", "repos", "list")
	require.NoError(t, res.err)

	var rows []map[string]string
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "acme/api", rows[0]["name"])
	assert.Equal(t, "active", rows[0]["active"])
}

func TestCLI_DeleteUnknownIsReported(t *testing.T) {
	backend := newCLIBackend(t)

	res := runCLI(t, backend, "", "commands", "delete", "nope")
	require.Error(t, res.err)
	assert.True(t, Reported(res.err))
	assert.Contains(t, res.stderr, "! not found")
	assert.Empty(t, res.stdout)
}

func TestCLI_ServersCheck(t *testing.T) {
	backend := newCLIBackend(t)
	backend.AddServer(map[string]interface{}{"host": "web-1", "user": "deploy", "active": "retry"})

	res := runCLI(t, backend, "", "servers", "check")
	require.NoError(t, res.err)
	assert.Equal(t, 1, backend.Checks("servers"))
	assert.Contains(t, res.stderr, "Checking...")
	assert.Contains(t, res.stderr, "Triggered servers check")
	assert.Contains(t, res.stdout, "[~] retry")
	assert.Contains(t, res.stdout, "Next repository check: 2026-10-17T00:00:00+00:00")
}

func TestCLI_ServersAddPromptsForKey(t *testing.T) {
	backend := newCLIBackend(t)

	res := runCLI(t, backend, "ssh-key-material\n", "servers", "add", "10.0.0.5", "--user", "deploy")
	require.NoError(t, res.err)

	servers := backend.Servers()
	require.Len(t, servers, 1)
	assert.Equal(t, "ssh-key-material", servers[0]["key"])
	assert.Equal(t, "deploy", servers[0]["user"])
}

func TestCLI_CommandsLifecycle(t *testing.T) {
	backend := newCLIBackend(t)
	backend.AddRepo(map[string]interface{}{"name": "acme/api", "branch": "main", "active": true})
	backend.AddServer(map[string]interface{}{"host": "web-1", "user": "deploy", "active": true})
	backend.AddServer(map[string]interface{}{"host": "web-2", "user": "deploy", "active": false})

	res := runCLI(t, backend, "", "commands", "options")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "Active repos: acme/api")
	assert.Contains(t, res.stdout, "Active servers: web-1")
	assert.NotContains(t, res.stdout, "web-2")

	res = runCLI(t, backend, "", "commands", "add", "--repo", "acme/api", "--host", "web-1", "--", "make", "deploy")
	require.NoError(t, res.err)

	cmds := backend.Commands()
	require.Len(t, cmds, 1)
	id := cmds[0]["id"].(string)
	assert.Equal(t, "make deploy", cmds[0]["command"])

	res = runCLI(t, backend, "", "commands", "run", id)
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "abc1234")
	assert.Contains(t, res.stdout, "Already up to date.")

	res = runCLI(t, backend, "add\nAPI_KEY\nhunter2\ndone\n", "commands", "secrets", id)
	require.NoError(t, res.err)
	secrets := backend.Secrets(id)
	require.Len(t, secrets, 1)
	assert.Equal(t, "hunter2", secrets[0]["value"])
	assert.Contains(t, res.stdout, testutil.MaskSecret("hunter2"))
	assert.NotContains(t, res.stdout, "hunter2\n")
}

func TestCLI_LogsAndSettings(t *testing.T) {
	backend := newCLIBackend(t)
	backend.ActivityLog = "pulled acme/api"

	res := runCLI(t, backend, "", "logs")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "== activity log ==\npulled acme/api")
	assert.Contains(t, res.stdout, "== connectivity log ==")

	res = runCLI(t, backend, "", "settings", "set", "--repo-interval", "6", "--server-interval", "2")
	require.NoError(t, res.err)
	assert.Equal(t, map[string]int{"repo_interval": 6, "server_interval": 2}, backend.Settings())

	res = runCLI(t, backend, "", "settings", "set", "--repo-interval", "1000")
	require.Error(t, res.err)
	assert.Contains(t, res.stderr, "repo_interval: must be less than or equal to 720")
}

func TestCLI_Watch(t *testing.T) {
	backend := newCLIBackend(t)
	backend.AddRepo(map[string]interface{}{"name": "acme/api", "branch": "main", "active": true})

	res := runCLI(t, backend, "", "watch", "repos", "--count", "1")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "acme/api")

	res = runCLI(t, backend, "", "watch", "nowhere", "--count", "1")
	require.Error(t, res.err)

	res = runCLI(t, backend, "", "watch", "repos", "--every", "not a schedule")
	require.Error(t, res.err)
	assert.Contains(t, res.err.Error(), "invalid schedule")
}

func TestCLI_AuthAndConfig(t *testing.T) {
	backend := testutil.NewBackend(t)
	t.Setenv("PULLRUNNER_AUTH_TOKEN", "")
	cfg := filepath.Join(t.TempDir(), "config.yaml")

	res := runCLI(t, backend, "", "--config", cfg, "auth", "login", "--token", "abcdef123")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "Logged in to "+backend.URL())

	raw, err := os.ReadFile(cfg)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "abcdef123")

	res = runCLI(t, backend, "", "--config", cfg, "auth", "whoami")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "****f123")

	res = runCLI(t, backend, "", "--config", cfg, "config", "set", "output", "yaml")
	require.NoError(t, res.err)

	res = runCLI(t, backend, "", "--config", cfg, "config", "get", "output")
	require.NoError(t, res.err)
	assert.Equal(t, "output: yaml\n", res.stdout)

	res = runCLI(t, backend, "", "--config", cfg, "config", "list")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "auth: (credentials stored)")
}

func TestMaskToken(t *testing.T) {
	tests := map[string]string{
		"":          "****",
		"abc":       "****",
		"abcdef123": "****f123",
	}
	for in, want := range tests {
		if got := maskToken(in); got != want {
			t.Errorf("maskToken(%q) = %q, want %q", in, got, want)
		}
	}
}
