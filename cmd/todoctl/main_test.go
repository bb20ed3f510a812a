package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/99designs/keyring"

	"github.com/JamesPrial/todo-engine/internal/credential"
	"github.com/JamesPrial/todo-engine/internal/todo"
)

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func writeConfig(t *testing.T) string {
	t.Helper()
	body := "storage:\n" +
		"  backend: json\n" +
		"  dir: " + t.TempDir() + "\n" +
		"engine:\n" +
		"  debounce: 10ms\n" +
		"log_level: error\n"
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

type result struct {
	code   int
	stdout string
	stderr string
}

func runCLI(t *testing.T, cfg, stdin string, args ...string) result {
	t.Helper()
	var stdout, stderr bytes.Buffer
	full := append([]string{"--config", cfg}, args...)
	code := run(full, strings.NewReader(stdin), &stdout, &stderr)
	return result{code: code, stdout: stdout.String(), stderr: stderr.String()}
}

func mustRun(t *testing.T, cfg, stdin string, args ...string) string {
	t.Helper()
	r := runCLI(t, cfg, stdin, args...)
	if r.code != 0 {
		t.Fatalf("todoctl %v exit %d, stderr: %s", args, r.code, r.stderr)
	}
	return r.stdout
}

func decode[T any](t *testing.T, s string) T {
	t.Helper()
	var v T
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		t.Fatalf("decoding output %q: %v", s, err)
	}
	return v
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func Test_Run_AddAndList(t *testing.T) {
	t.Parallel()
	cfg := writeConfig(t)

	added := decode[todo.Todo](t, mustRun(t, cfg, "", "add", "Buy milk",
		"--priority", "high", "--category", "Shopping", "--tag", "errand", "--due", "2026-05-01"))
	if added.ID == "" || added.Title != "Buy milk" {
		t.Fatalf("add output = %+v", added)
	}
	if added.Priority != todo.PriorityHigh || added.Category != "Shopping" {
		t.Errorf("add output = %+v", added)
	}
	if added.DueDate == nil || added.DueDate.Format("2006-01-02") != "2026-05-01" {
		t.Errorf("DueDate = %v, want 2026-05-01", added.DueDate)
	}

	mustRun(t, cfg, "", "add", "Write report")

	all := decode[[]todo.Todo](t, mustRun(t, cfg, "", "list"))
	if len(all) != 2 {
		t.Fatalf("list = %d todos, want 2", len(all))
	}

	high := decode[[]todo.Todo](t, mustRun(t, cfg, "", "list", "--priority", "high"))
	if len(high) != 1 || high[0].ID != added.ID {
		t.Errorf("list --priority high = %+v", high)
	}

	found := decode[[]todo.Todo](t, mustRun(t, cfg, "", "list", "--search", "REPORT"))
	if len(found) != 1 || found[0].Title != "Write report" {
		t.Errorf("list --search REPORT = %+v", found)
	}
}

func Test_Run_AddFromStdin(t *testing.T) {
	t.Parallel()
	cfg := writeConfig(t)

	form := `{"title":"Plan trip","content":"<p>ok</p><script>x</script>","tags":["travel"," travel "],"isPinned":true}`
	added := decode[todo.Todo](t, mustRun(t, cfg, form, "add", "--stdin"))

	if added.Title != "Plan trip" || !added.IsPinned {
		t.Errorf("add --stdin = %+v", added)
	}
	if strings.Contains(added.Content, "<script>") {
		t.Errorf("Content not sanitized: %q", added.Content)
	}
	if len(added.Tags) != 1 || added.Tags[0] != "travel" {
		t.Errorf("Tags = %v, want [travel]", added.Tags)
	}
}

func Test_Run_CompleteAndStats(t *testing.T) {
	t.Parallel()
	cfg := writeConfig(t)

	a := decode[todo.Todo](t, mustRun(t, cfg, "", "add", "One"))
	mustRun(t, cfg, "", "add", "Two")

	done := decode[todo.Todo](t, mustRun(t, cfg, "", "done", a.ID))
	if !done.Completed {
		t.Errorf("done output Completed = false")
	}

	stats := decode[todo.Stats](t, mustRun(t, cfg, "", "stats"))
	if stats.Total != 2 || stats.Completed != 1 || stats.Active != 1 {
		t.Errorf("stats = %+v", stats)
	}

	active := decode[[]todo.Todo](t, mustRun(t, cfg, "", "list", "--status", "active"))
	if len(active) != 1 || active[0].Title != "Two" {
		t.Errorf("list --status active = %+v", active)
	}

	undone := decode[todo.Todo](t, mustRun(t, cfg, "", "done", "--undo", a.ID))
	if undone.Completed {
		t.Errorf("done --undo output Completed = true")
	}
}

func Test_Run_EditPinDelete(t *testing.T) {
	t.Parallel()
	cfg := writeConfig(t)

	a := decode[todo.Todo](t, mustRun(t, cfg, "", "add", "Draft", "--due", "2026-01-01"))

	edited := decode[todo.Todo](t, mustRun(t, cfg, `{"title":"Final","dueDate":null}`, "edit", a.ID))
	if edited.Title != "Final" || edited.DueDate != nil {
		t.Errorf("edit output = %+v", edited)
	}

	pinned := decode[todo.Todo](t, mustRun(t, cfg, "", "pin", a.ID))
	if !pinned.IsPinned {
		t.Error("pin output IsPinned = false")
	}

	mustRun(t, cfg, "", "delete", a.ID)
	if list := decode[[]todo.Todo](t, mustRun(t, cfg, "", "list")); len(list) != 0 {
		t.Errorf("list after delete = %+v", list)
	}
}

func Test_Run_BulkOperations(t *testing.T) {
	t.Parallel()
	cfg := writeConfig(t)

	mustRun(t, cfg, "", "add", "One")
	mustRun(t, cfg, "", "add", "Two")

	changed := decode[map[string]int](t, mustRun(t, cfg, "", "complete-all"))
	if changed["changed"] != 2 {
		t.Errorf("complete-all changed = %d, want 2", changed["changed"])
	}

	removed := decode[map[string]int](t, mustRun(t, cfg, "", "clear-completed"))
	if removed["removed"] != 2 {
		t.Errorf("clear-completed removed = %d, want 2", removed["removed"])
	}
}

func Test_Run_Tags(t *testing.T) {
	t.Parallel()
	cfg := writeConfig(t)

	a := decode[todo.Todo](t, mustRun(t, cfg, "", "add", "Tagged", "--tag", "home"))

	tags := decode[[]string](t, mustRun(t, cfg, "", "tags", "add", "Work"))
	if len(tags) != 2 {
		t.Errorf("tags add output = %v, want 2 tags", tags)
	}

	mustRun(t, cfg, "", "tags", "rm", "home")
	list := decode[map[string][]string](t, mustRun(t, cfg, "", "tags"))
	if len(list["tags"]) != 1 || list["tags"][0] != "Work" {
		t.Errorf("tags = %v, want [Work]", list["tags"])
	}

	got := decode[[]todo.Todo](t, mustRun(t, cfg, "", "list"))
	if len(got) != 1 || got[0].ID != a.ID || len(got[0].Tags) != 0 {
		t.Errorf("todo still tagged after rm: %+v", got)
	}
}

func Test_Run_Errors(t *testing.T) {
	t.Parallel()
	cfg := writeConfig(t)

	tests := []struct {
		name    string
		stdin   string
		args    []string
		wantErr string
	}{
		{name: "add without title", args: []string{"add"}, wantErr: "title"},
		{name: "add blank title", args: []string{"add", "   "}, wantErr: "title"},
		{name: "add bad priority", args: []string{"add", "x", "--priority", "urgent"}, wantErr: "priority"},
		{name: "add bad due date", args: []string{"add", "x", "--due", "tomorrow"}, wantErr: "due"},
		{name: "done unknown id", args: []string{"done", "nope"}, wantErr: "not found"},
		{name: "pin unknown id", args: []string{"pin", "nope"}, wantErr: "not found"},
		{name: "delete unknown id", args: []string{"delete", "nope"}, wantErr: "not found"},
		{name: "edit empty patch", stdin: `{}`, args: []string{"edit", "nope"}, wantErr: "no fields"},
		{name: "edit unknown id", stdin: `{"title":"x"}`, args: []string{"edit", "nope"}, wantErr: "not found"},
		{name: "list bad status", args: []string{"list", "--status", "done"}, wantErr: "status"},
		{name: "list bad sort", args: []string{"list", "--sort", "title"}, wantErr: "sort"},
		{name: "tags rm unknown", args: []string{"tags", "rm", "ghost"}, wantErr: "does not exist"},
		{name: "unknown command", args: []string{"frobnicate"}, wantErr: "unknown command"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := runCLI(t, cfg, tt.stdin, tt.args...)
			if r.code != 1 {
				t.Errorf("exit code = %d, want 1", r.code)
			}
			if !strings.Contains(strings.ToLower(r.stderr), tt.wantErr) {
				t.Errorf("stderr = %q, want it to contain %q", r.stderr, tt.wantErr)
			}
		})
	}
}

func Test_Run_SecretSet(t *testing.T) {
	t.Parallel()

	ring := credential.NewKeyring(keyring.NewArrayKeyring(nil))
	secretCmd := func(stdin string, args ...string) result {
		var stdout, stderr bytes.Buffer
		opts := &rootOptions{openKeyring: func() (*credential.Keyring, error) { return ring, nil }}
		// No --config: the secret commands must not open a session.
		code := execute(opts, args, strings.NewReader(stdin), &stdout, &stderr)
		return result{code: code, stdout: stdout.String(), stderr: stderr.String()}
	}

	r := secretCmd("s3cret\n", "secret", "set", "todo-pg")
	if r.code != 0 {
		t.Fatalf("secret set exit %d, stderr: %s", r.code, r.stderr)
	}
	if out := decode[map[string]string](t, r.stdout); out["stored"] != "todo-pg" {
		t.Errorf("secret set output = %v", out)
	}

	got, err := ring.Get("todo-pg")
	if err != nil {
		t.Fatalf("Get() unexpected error: %v", err)
	}
	if got != "s3cret" {
		t.Errorf("stored value = %q, want %q", got, "s3cret")
	}

	r = secretCmd("\n", "secret", "set", "todo-pg")
	if r.code != 1 || !strings.Contains(r.stderr, "empty") {
		t.Errorf("empty secret: exit %d, stderr %q", r.code, r.stderr)
	}
}
