package upload

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/claude/weightlog/internal/ingest"
)

const sampleCSV = "title,start_time,end_time,exercise_title,set_index,weight_kg,reps\n" +
	"Push,2024-01-01T10:00:00,2024-01-01T11:00:00,Bench,0,80,8\n" +
	"Push,2024-01-01T10:00:00,2024-01-01T11:00:00,Bench,1,80,6\n" +
	"Pull,2024-01-02T10:00:00,2024-01-02T11:00:00,Row,0,60,10\n"

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

// TestStateDB verifies a file is only reported as uploaded for the exact
// path, size and hash it was recorded with.
func TestStateDB(t *testing.T) {
	state, err := OpenStateDB(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer state.Close()

	if ok, err := state.IsUploaded("/a.csv", 10, "h1"); err != nil || ok {
		t.Fatalf("IsUploaded before mark = %v, %v", ok, err)
	}
	if err := state.MarkUploaded("/a.csv", 10, "h1", 2, 1, 0); err != nil {
		t.Fatal(err)
	}
	if ok, _ := state.IsUploaded("/a.csv", 10, "h1"); !ok {
		t.Error("expected uploaded after mark")
	}
	if ok, _ := state.IsUploaded("/a.csv", 10, "h2"); ok {
		t.Error("changed hash should not count as uploaded")
	}

	history, err := state.History()
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 1 || history[0].Imported != 2 || history[0].Skipped != 1 {
		t.Errorf("history = %+v", history)
	}
}

// TestCollectFiles verifies directories are walked for .csv files in sorted
// order and duplicates are dropped.
func TestCollectFiles(t *testing.T) {
	dir := t.TempDir()
	b := writeFile(t, dir, "b.csv", "x")
	a := writeFile(t, dir, "sub/a.CSV", "x")
	writeFile(t, dir, "notes.txt", "x")

	files, err := CollectFiles([]string{dir, b})
	if err != nil {
		t.Fatal(err)
	}
	want := []string{b, a}
	if len(files) != len(want) {
		t.Fatalf("files = %v, want %v", files, want)
	}
	for i := range want {
		if files[i] != want[i] {
			t.Errorf("files[%d] = %s, want %s", i, files[i], want[i])
		}
	}
}

// TestUploaderSkipsUploadedFiles verifies a second run does not resend a file
// the server already accepted.
func TestUploaderSkipsUploadedFiles(t *testing.T) {
	calls := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		json.NewEncoder(w).Encode(ingest.Result{WorkoutsFound: 2, WorkoutsImported: 2})
	}))
	defer ts.Close()

	dir := t.TempDir()
	writeFile(t, dir, "workouts.csv", sampleCSV)

	state, err := OpenStateDB(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer state.Close()

	stats, err := New(NewClient(ts.URL, "key"), state, false, testLogger()).Run(context.Background(), []string{dir})
	if err != nil {
		t.Fatal(err)
	}
	if stats.FilesUploaded != 1 || stats.WorkoutsImported != 2 {
		t.Errorf("first run = %+v", stats)
	}

	stats, err = New(NewClient(ts.URL, "key"), state, false, testLogger()).Run(context.Background(), []string{dir})
	if err != nil {
		t.Fatal(err)
	}
	if stats.FilesSkipped != 1 || stats.FilesUploaded != 0 {
		t.Errorf("second run = %+v", stats)
	}
	if calls != 1 {
		t.Errorf("server calls = %d, want 1", calls)
	}
}

// TestUploaderDryRun verifies dry runs parse locally, never contact the
// server and do not record state.
func TestUploaderDryRun(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "workouts.csv", sampleCSV)
	writeFile(t, dir, "empty.csv", "title\n")

	state, err := OpenStateDB(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer state.Close()

	client := NewClient("http://127.0.0.1:0", "key")
	stats, err := New(client, state, true, testLogger()).Run(context.Background(), []string{dir})
	if err != nil {
		t.Fatal(err)
	}
	if stats.WorkoutsFound != 2 {
		t.Errorf("WorkoutsFound = %d, want 2", stats.WorkoutsFound)
	}
	if stats.FilesErrored != 1 {
		t.Errorf("FilesErrored = %d, want 1 (empty.csv)", stats.FilesErrored)
	}
	history, _ := state.History()
	if len(history) != 0 {
		t.Errorf("dry run recorded %d files", len(history))
	}
}
