// Package history persists executed queries per user, one folder per
// query, so past work can be listed and reopened.
package history

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/qodeinvest/qode-engine/internal/service"
)

// Store writes query folders under baseDir/<user>/.
type Store struct {
	baseDir string
}

func NewStore(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

// SavedQuery is one history entry as returned by List.
type SavedQuery struct {
	ID         string `json:"id"`
	Folder     string `json:"folder"`
	Name       string `json:"name"`
	Input      string `json:"input"`
	HasResults bool   `json:"hasResults"`
	CreatedAt  string `json:"createdAt"`
}

type metadata struct {
	Name      string `json:"name"`
	CreatedAt string `json:"created_at"`
	QueryID   string `json:"query_id"`
}

const folderTimestampLayout = "20060102_150405"

// Save persists one executed query and returns the created folder name.
// The input is whatever the user typed (natural language or raw SQL);
// sqlQuery is what actually ran. Results are written as CSV and JSON when
// the query produced rows.
func (s *Store) Save(user, input, sqlQuery, name string, result *service.QueryResult) (string, error) {
	if s == nil || s.baseDir == "" {
		return "", fmt.Errorf("history store not configured")
	}
	if name == "" {
		name = "Query"
	}
	if user == "" {
		user = "anonymous"
	}

	queryID := uuid.New().String()[:8]
	createdAt := time.Now().Format(folderTimestampLayout)
	folder := fmt.Sprintf("%s_%s_%s", queryID, createdAt, sanitizeName(name))
	queryDir := filepath.Join(s.baseDir, user, folder)

	if err := os.MkdirAll(queryDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create query dir: %w", err)
	}

	if err := os.WriteFile(filepath.Join(queryDir, "input.txt"), []byte(input), 0o644); err != nil {
		return "", fmt.Errorf("failed to write input: %w", err)
	}
	if err := os.WriteFile(filepath.Join(queryDir, "query.sql"), []byte(sqlQuery), 0o644); err != nil {
		return "", fmt.Errorf("failed to write query: %w", err)
	}

	meta := metadata{Name: name, CreatedAt: createdAt, QueryID: queryID}
	metaBytes, err := json.Marshal(meta)
	if err != nil {
		return "", fmt.Errorf("failed to encode metadata: %w", err)
	}
	if err := os.WriteFile(filepath.Join(queryDir, "metadata.json"), metaBytes, 0o644); err != nil {
		return "", fmt.Errorf("failed to write metadata: %w", err)
	}

	if result != nil && !result.HasError() && len(result.Rows) > 0 {
		if err := writeResultCSV(filepath.Join(queryDir, "results.csv"), result); err != nil {
			return "", err
		}
		if err := writeResultJSON(filepath.Join(queryDir, "results.json"), result); err != nil {
			return "", err
		}
	}

	return folder, nil
}

// List returns a user's saved queries, newest first. Folders that cannot
// be read are skipped.
func (s *Store) List(user string, limit int) ([]SavedQuery, error) {
	if s == nil || s.baseDir == "" {
		return nil, nil
	}
	if user == "" {
		user = "anonymous"
	}
	if limit <= 0 {
		limit = 10
	}

	userDir := filepath.Join(s.baseDir, user)
	entries, err := os.ReadDir(userDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read history dir: %w", err)
	}

	var saved []SavedQuery
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		folder := entry.Name()
		folderPath := filepath.Join(userDir, folder)

		input, err := os.ReadFile(filepath.Join(folderPath, "input.txt"))
		if err != nil {
			continue
		}

		item := SavedQuery{
			Folder: folder,
			Input:  string(input),
		}
		item.ID, item.CreatedAt, item.Name = parseFolderName(folder)

		if metaBytes, err := os.ReadFile(filepath.Join(folderPath, "metadata.json")); err == nil {
			var meta metadata
			if err := json.Unmarshal(metaBytes, &meta); err == nil && meta.Name != "" {
				item.Name = meta.Name
			}
		}

		item.HasResults = fileExists(filepath.Join(folderPath, "results.csv")) &&
			fileExists(filepath.Join(folderPath, "results.json"))

		saved = append(saved, item)
	}

	sort.Slice(saved, func(i, j int) bool {
		return saved[i].CreatedAt > saved[j].CreatedAt
	})
	if len(saved) > limit {
		saved = saved[:limit]
	}
	return saved, nil
}

// ReadSQL returns the SQL stored in one history folder.
func (s *Store) ReadSQL(user, folder string) (string, error) {
	if user == "" {
		user = "anonymous"
	}
	if strings.ContainsAny(folder, `/\`) || folder == "" || strings.HasPrefix(folder, ".") {
		return "", fmt.Errorf("invalid history folder name")
	}
	data, err := os.ReadFile(filepath.Join(s.baseDir, user, folder, "query.sql"))
	if err != nil {
		return "", fmt.Errorf("failed to read saved query: %w", err)
	}
	return string(data), nil
}

// sanitizeName keeps letters and digits and replaces everything else
// with underscores, so the name can be embedded in a folder name.
func sanitizeName(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		if ('a' <= r && r <= 'z') || ('A' <= r && r <= 'Z') || ('0' <= r && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}

// parseFolderName splits <id>_<YYYYMMDD_HHMMSS>_<name>.
func parseFolderName(folder string) (id, createdAt, name string) {
	name = folder
	parts := strings.SplitN(folder, "_", 2)
	if len(parts) < 2 {
		return "", "", name
	}
	id = parts[0]
	rest := parts[1]
	if len(rest) >= len(folderTimestampLayout) {
		createdAt = rest[:len(folderTimestampLayout)]
		name = strings.TrimPrefix(rest[len(folderTimestampLayout):], "_")
		name = strings.ReplaceAll(name, "_", " ")
	} else {
		name = rest
	}
	return id, createdAt, name
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func writeResultCSV(path string, result *service.QueryResult) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create results csv: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	w := csv.NewWriter(f)
	header := make([]string, len(result.Columns))
	for i, col := range result.Columns {
		header[i] = col.Name
	}
	if err := w.Write(header); err != nil {
		return fmt.Errorf("failed to write results csv: %w", err)
	}
	for _, row := range result.Rows {
		record := make([]string, len(row))
		for i, cell := range row {
			record[i] = service.FormatValue(cell)
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("failed to write results csv: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}

func writeResultJSON(path string, result *service.QueryResult) error {
	view := struct {
		Columns []service.QueryColumn `json:"columns"`
		Rows    [][]any               `json:"rows"`
	}{Columns: result.Columns, Rows: result.Rows}

	data, err := json.Marshal(view)
	if err != nil {
		return fmt.Errorf("failed to encode results json: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write results json: %w", err)
	}
	return nil
}
