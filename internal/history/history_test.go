package history

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/qodeinvest/qode-engine/internal/service"
)

func TestSaveWritesFolderWithQueryAndResults(t *testing.T) {
	store := NewStore(t.TempDir())
	result := &service.QueryResult{
		Status:   service.JobStatusSuccess,
		Columns:  []service.QueryColumn{{Name: "symbol", Type: "VARCHAR"}, {Name: "c", Type: "DOUBLE"}},
		Rows:     [][]any{{"NIFTY", 22150.5}, {"BANKNIFTY", 47230.0}},
		RowCount: 2,
	}

	folder, err := store.Save("asha", "closing prices", "SELECT symbol, c FROM bars", "Daily Check", result)
	if err != nil {
		t.Fatalf("expected save to succeed, got %v", err)
	}
	if !strings.HasSuffix(folder, "_Daily_Check") {
		t.Fatalf("expected sanitized name suffix, got %q", folder)
	}

	dir := filepath.Join(store.baseDir, "asha", folder)
	for _, file := range []string{"input.txt", "query.sql", "metadata.json", "results.csv", "results.json"} {
		if _, err := os.Stat(filepath.Join(dir, file)); err != nil {
			t.Fatalf("expected %s to exist: %v", file, err)
		}
	}

	csvBytes, err := os.ReadFile(filepath.Join(dir, "results.csv"))
	if err != nil {
		t.Fatalf("failed to read results csv: %v", err)
	}
	csvText := string(csvBytes)
	if !strings.HasPrefix(csvText, "symbol,c\n") {
		t.Fatalf("expected csv header, got %q", csvText)
	}
	if !strings.Contains(csvText, "NIFTY,22150.5") {
		t.Fatalf("expected formatted row in csv, got %q", csvText)
	}

	sql, err := store.ReadSQL("asha", folder)
	if err != nil {
		t.Fatalf("expected ReadSQL to succeed, got %v", err)
	}
	if sql != "SELECT symbol, c FROM bars" {
		t.Fatalf("expected stored SQL, got %q", sql)
	}
}

func TestSaveWithoutRowsSkipsResultFiles(t *testing.T) {
	store := NewStore(t.TempDir())

	folder, err := store.Save("asha", "cleanup", "DELETE FROM scratch", "", nil)
	if err != nil {
		t.Fatalf("expected save to succeed, got %v", err)
	}

	dir := filepath.Join(store.baseDir, "asha", folder)
	if _, err := os.Stat(filepath.Join(dir, "results.csv")); !os.IsNotExist(err) {
		t.Fatalf("expected no results.csv, got %v", err)
	}

	entries, err := store.List("asha", 10)
	if err != nil {
		t.Fatalf("expected list to succeed, got %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].HasResults {
		t.Fatalf("expected HasResults to be false without result files")
	}
	if entries[0].Name != "Query" {
		t.Fatalf("expected default name, got %q", entries[0].Name)
	}
}

func TestListOrdersNewestFirstAndSkipsCorruptFolders(t *testing.T) {
	base := t.TempDir()
	store := NewStore(base)
	userDir := filepath.Join(base, "asha")

	makeEntry := func(folder, input string) {
		dir := filepath.Join(userDir, folder)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("failed to create folder: %v", err)
		}
		if err := os.WriteFile(filepath.Join(dir, "input.txt"), []byte(input), 0o644); err != nil {
			t.Fatalf("failed to write input: %v", err)
		}
	}
	makeEntry("aaaa1111_20240105_090000_Old_Query", "old")
	makeEntry("bbbb2222_20250316_143000_New_Query", "new")

	// A folder without input.txt is unreadable and must be skipped.
	if err := os.MkdirAll(filepath.Join(userDir, "cccc3333_20250401_000000_Broken"), 0o755); err != nil {
		t.Fatalf("failed to create broken folder: %v", err)
	}

	entries, err := store.List("asha", 10)
	if err != nil {
		t.Fatalf("expected list to succeed, got %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Folder != "bbbb2222_20250316_143000_New_Query" {
		t.Fatalf("expected newest first, got %q", entries[0].Folder)
	}
	if entries[0].Name != "New Query" {
		t.Fatalf("expected name parsed from folder, got %q", entries[0].Name)
	}
	if entries[0].ID != "bbbb2222" {
		t.Fatalf("expected ID parsed from folder, got %q", entries[0].ID)
	}

	limited, err := store.List("asha", 1)
	if err != nil {
		t.Fatalf("expected list to succeed, got %v", err)
	}
	if len(limited) != 1 || limited[0].Folder != "bbbb2222_20250316_143000_New_Query" {
		t.Fatalf("expected the newest entry only, got %+v", limited)
	}
}

func TestListUnknownUserIsEmpty(t *testing.T) {
	store := NewStore(t.TempDir())
	entries, err := store.List("nobody", 10)
	if err != nil {
		t.Fatalf("expected no error for missing user dir, got %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected no entries, got %d", len(entries))
	}
}

func TestReadSQLRejectsTraversal(t *testing.T) {
	store := NewStore(t.TempDir())

	for _, folder := range []string{"../other", `..\other`, ".hidden", ""} {
		if _, err := store.ReadSQL("asha", folder); err == nil {
			t.Errorf("expected %q to be rejected", folder)
		}
	}
}
