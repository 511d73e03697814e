package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

const remoteTodos = `[
  {"userId": 1, "id": 1, "title": "A", "completed": false},
  {"userId": 1, "id": 2, "title": "B", "completed": true}
]`

type cliEnv struct {
	Dir        string
	ConfigPath string
	DBPath     string
	RemotePath string
}

// newCLIEnv isolates HOME and writes a config that reads the remote list from
// a local file and stores tasks in a temporary sqlite database.
func newCLIEnv(t *testing.T, extraConfig string) cliEnv {
	t.Helper()

	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("TASKMAN_CONFIG", "")

	env := cliEnv{
		Dir:        dir,
		ConfigPath: filepath.Join(dir, "taskman.toml"),
		DBPath:     filepath.Join(dir, "data", "tasks.db"),
		RemotePath: filepath.Join(dir, "remote.json"),
	}
	if err := os.WriteFile(env.RemotePath, []byte(remoteTodos), 0o600); err != nil {
		t.Fatalf("write remote fixture: %v", err)
	}

	config := fmt.Sprintf("[store]\npath = %q\n\n[remote]\nfile = %q\n\n[log]\nlevel = \"error\"\n%s",
		env.DBPath, env.RemotePath, extraConfig)
	if err := os.WriteFile(env.ConfigPath, []byte(config), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return env
}

func (e cliEnv) run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	full := append([]string{"--config", e.ConfigPath}, args...)
	err := run(context.Background(), full, strings.NewReader(stdin), &stdout, &stderr)
	return strings.TrimSpace(stdout.String()), err
}

func (e cliEnv) mustRun(t *testing.T, args ...string) string {
	t.Helper()

	out, err := e.run(t, "", args...)
	if err != nil {
		t.Fatalf("taskman %v failed: %v (output=%q)", args, err, out)
	}
	return out
}

func TestRunSyncLoadsRemoteTasks(t *testing.T) {
	env := newCLIEnv(t, "")

	out := env.mustRun(t, "sync")
	values := parseKVLine(t, out)
	if values["status"] != "loaded" || values["message"] != "Tasks Loaded" {
		t.Fatalf("unexpected sync output %q", out)
	}
	if values["all"] != "2" || values["completed"] != "1" || values["incomplete"] != "1" {
		t.Fatalf("unexpected counts in %q", out)
	}
}

func TestRunSyncNetworkErrorExitsNonZero(t *testing.T) {
	env := newCLIEnv(t, "")
	if err := os.Remove(env.RemotePath); err != nil {
		t.Fatalf("remove remote fixture: %v", err)
	}

	out, err := env.run(t, "", "sync")
	var statusErr *statusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected statusError, got %v", err)
	}
	values := parseKVLine(t, out)
	if values["status"] != "error" || values["message"] != "Network Error" {
		t.Fatalf("unexpected sync output %q", out)
	}
	if values["detail"] == "" {
		t.Fatalf("expected fault detail in %q", out)
	}
}

func TestRunAddThenListFiltered(t *testing.T) {
	env := newCLIEnv(t, "")
	env.mustRun(t, "sync")

	out := env.mustRun(t, "add", "Buy", "milk")
	values := parseKVLine(t, out)
	if values["message"] != "Task added" || values["id"] != "3" {
		t.Fatalf("unexpected add output %q", out)
	}

	list := env.mustRun(t, "list", "--filter", "incomplete", "--reverse")
	lines := strings.Split(list, "\n")
	want := []string{"[ ] #3 Buy milk", "[ ] #1 A", "filter=incomplete all=3 completed=1 incomplete=2"}
	if len(lines) != len(want) {
		t.Fatalf("unexpected list output %q", list)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Fatalf("line %d = %q, want %q", i, lines[i], want[i])
		}
	}
}

func TestRunAddRejectsEmptyTitle(t *testing.T) {
	env := newCLIEnv(t, "")

	if _, err := env.run(t, "", "add", "   "); err == nil {
		t.Fatalf("expected empty title to fail")
	}
}

func TestRunToggleThenListJSON(t *testing.T) {
	env := newCLIEnv(t, "")
	env.mustRun(t, "sync")

	out := env.mustRun(t, "toggle", "1")
	if values := parseKVLine(t, out); values["message"] != "Task updated" {
		t.Fatalf("unexpected toggle output %q", out)
	}

	raw := env.mustRun(t, "list", "--json")
	var listed listOutput
	if err := json.Unmarshal([]byte(raw), &listed); err != nil {
		t.Fatalf("decode list json: %v (output=%q)", err, raw)
	}
	if listed.Counts.Completed != 2 || listed.Counts.Incomplete != 0 {
		t.Fatalf("unexpected counts %+v", listed.Counts)
	}
	if len(listed.Tasks) != 2 || !listed.Tasks[0].Completed {
		t.Fatalf("unexpected tasks %+v", listed.Tasks)
	}
}

func TestRunEditTitleAndNoChanges(t *testing.T) {
	env := newCLIEnv(t, "")
	env.mustRun(t, "sync")

	out := env.mustRun(t, "edit", "2", "--title", "B renamed")
	if values := parseKVLine(t, out); values["message"] != "Task updated" {
		t.Fatalf("unexpected edit output %q", out)
	}

	out = env.mustRun(t, "edit", "2", "--completed=true")
	if values := parseKVLine(t, out); values["message"] != "No changes detected" {
		t.Fatalf("expected no-op edit, got %q", out)
	}

	list := env.mustRun(t, "list", "--filter", "completed")
	if !strings.Contains(list, "[x] #2 B renamed") {
		t.Fatalf("expected renamed task in %q", list)
	}
}

func TestRunEditMissingTaskFails(t *testing.T) {
	env := newCLIEnv(t, "")

	out, err := env.run(t, "", "edit", "99", "--title", "ghost")
	if err == nil {
		t.Fatalf("expected edit of missing task to fail")
	}
	if values := parseKVLine(t, out); values["message"] != "Task not found" {
		t.Fatalf("unexpected edit output %q", out)
	}
}

func TestRunEditRequiresAChange(t *testing.T) {
	env := newCLIEnv(t, "")

	if _, err := env.run(t, "", "edit", "1"); err == nil {
		t.Fatalf("expected edit without flags to fail")
	}
}

func TestRunRemovePersists(t *testing.T) {
	env := newCLIEnv(t, "")
	env.mustRun(t, "sync")

	out := env.mustRun(t, "remove", "1")
	if values := parseKVLine(t, out); values["message"] != "Task removed" {
		t.Fatalf("unexpected remove output %q", out)
	}

	list := env.mustRun(t, "list")
	if strings.Contains(list, "#1 ") {
		t.Fatalf("expected task 1 to stay removed: %q", list)
	}

	out = env.mustRun(t, "remove", "1")
	if values := parseKVLine(t, out); values["status"] != "loaded" {
		t.Fatalf("expected removing an absent task to succeed, got %q", out)
	}
}

func TestRunRejectsInvalidID(t *testing.T) {
	env := newCLIEnv(t, "")

	if _, err := env.run(t, "", "toggle", "abc"); err == nil {
		t.Fatalf("expected invalid id to fail")
	}
}

func TestRunExportWritesChecklist(t *testing.T) {
	env := newCLIEnv(t, "")
	env.mustRun(t, "sync")

	path := filepath.Join(env.Dir, "exports", "tasks.md")
	out := env.mustRun(t, "export", path, "--filter", "completed")
	values := parseKVLine(t, out)
	if values["status"] != "created" || values["tasks"] != "1" {
		t.Fatalf("unexpected export output %q", out)
	}

	// #nosec G304 -- path is generated in test setup via t.TempDir.
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile(%q): %v", path, err)
	}
	if !strings.Contains(string(content), "# Completed tasks") || !strings.Contains(string(content), "- [x] B") {
		t.Fatalf("unexpected export content %q", string(content))
	}

	out = env.mustRun(t, "export", path, "--keep")
	if values := parseKVLine(t, out); values["status"] != "existing" {
		t.Fatalf("expected existing export, got %q", out)
	}
}

func TestRunUIAddsTask(t *testing.T) {
	env := newCLIEnv(t, "")

	out, err := env.run(t, "a Walk dog\n2\nq\n", "ui", "--sync")
	if err != nil {
		t.Fatalf("ui run failed: %v", err)
	}
	for _, want := range []string{"[ok] Tasks Loaded", "[ ] #3 Walk dog", "[ Completed (1) ]"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in ui output: %q", want, out)
		}
	}

	list := env.mustRun(t, "list")
	if !strings.Contains(list, "#3 Walk dog") {
		t.Fatalf("expected ui addition to persist: %q", list)
	}
}

func TestRunMemoryDriverWritesMetricsTextfile(t *testing.T) {
	metricsPath := filepath.Join(t.TempDir(), "taskman.prom")
	env := newCLIEnv(t, fmt.Sprintf("\n[metrics]\ntextfile = %q\n", metricsPath))
	t.Setenv("TASKMAN_STORE_DRIVER", "memory")

	env.mustRun(t, "sync")

	if _, err := os.Stat(env.DBPath); !os.IsNotExist(err) {
		t.Fatalf("expected memory driver to leave no database, stat err=%v", err)
	}
	// #nosec G304 -- metricsPath is generated in test setup via t.TempDir.
	content, err := os.ReadFile(metricsPath)
	if err != nil {
		t.Fatalf("ReadFile(%q): %v", metricsPath, err)
	}
	if !strings.Contains(string(content), `taskman_operations_total{operation="initialize",outcome="loaded"} 1`) {
		t.Fatalf("unexpected metrics textfile: %q", string(content))
	}
}

func TestRunDBFlagOverridesConfig(t *testing.T) {
	env := newCLIEnv(t, "")
	dbPath := filepath.Join(env.Dir, "other", "override.db")

	env.mustRun(t, "--db", dbPath, "add", "Elsewhere")

	if _, err := os.Stat(dbPath); err != nil {
		t.Fatalf("expected database at %s: %v", dbPath, err)
	}
	if list := env.mustRun(t, "list"); strings.Contains(list, "Elsewhere") {
		t.Fatalf("expected default database untouched: %q", list)
	}
}

func TestRunRejectsBadLogLevel(t *testing.T) {
	env := newCLIEnv(t, "")

	if _, err := env.run(t, "", "--log-level", "loud", "list"); err == nil {
		t.Fatalf("expected invalid --log-level to fail")
	}

	t.Setenv("TASKMAN_LOG_LEVEL", "loud")
	if _, err := env.run(t, "", "list"); err == nil {
		t.Fatalf("expected invalid log.level to fail")
	}
}

// parseKVLine parses the last line of out as space separated key=value pairs.
// Values may be Go-quoted.
func parseKVLine(t *testing.T, out string) map[string]string {
	t.Helper()

	lines := strings.Split(strings.TrimSpace(out), "\n")
	line := lines[len(lines)-1]

	values := map[string]string{}
	rest := line
	for rest != "" {
		rest = strings.TrimLeft(rest, " ")
		key, after, ok := strings.Cut(rest, "=")
		if !ok {
			break
		}
		if strings.HasPrefix(after, `"`) {
			quoted, err := strconv.QuotedPrefix(after)
			if err != nil {
				t.Fatalf("bad quoted value in %q: %v", line, err)
			}
			value, _ := strconv.Unquote(quoted)
			values[key] = value
			rest = after[len(quoted):]
			continue
		}
		value, remaining, _ := strings.Cut(after, " ")
		values[key] = value
		rest = remaining
	}

	if values["status"] == "" {
		t.Fatalf("missing status in output: %q", line)
	}
	return values
}
