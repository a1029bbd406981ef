package sqlutil

import "testing"

func TestIsSQLSelectQuery(t *testing.T) {
	cases := []struct {
		query string
		want  bool
	}{
		{"SELECT 1", true},
		{"  \n\tselect * from bars", true},
		{"SeLeCt name FROM authors", true},
		{"INSERT INTO bars VALUES (1)", false},
		{"", false},
		{"   ", false},
		{"sel", false},
	}
	for _, tc := range cases {
		if got := IsSQLSelectQuery(tc.query); got != tc.want {
			t.Errorf("IsSQLSelectQuery(%q) = %v, want %v", tc.query, got, tc.want)
		}
	}
}

func TestIsReadOnlyQueryAllowsSelects(t *testing.T) {
	allowed := []string{
		"SELECT * FROM NSE_Index_NIFTY",
		"WITH ranked AS (SELECT * FROM bars) SELECT * FROM ranked",
		"EXPLAIN SELECT 1",
		"SHOW TABLES",
		"DESCRIBE NSE_Index_NIFTY",
		// Identifiers that merely contain a keyword must pass.
		"SELECT * FROM insert_log WHERE update_count > 0",
		"SELECT created_at FROM bars",
	}
	for _, query := range allowed {
		if !IsReadOnlyQuery(query) {
			t.Errorf("expected %q to be read-only", query)
		}
	}
}

func TestIsReadOnlyQueryBlocksMutations(t *testing.T) {
	blocked := []string{
		"INSERT INTO bars VALUES (1)",
		"update bars set c = 0",
		"DELETE FROM bars",
		"DROP TABLE bars",
		"CREATE TABLE t (n INTEGER)",
		"ALTER TABLE bars ADD COLUMN x INTEGER",
		"TRUNCATE bars",
		"COPY bars TO 'out.csv'",
		"SELECT 1; DROP TABLE bars",
	}
	for _, query := range blocked {
		if IsReadOnlyQuery(query) {
			t.Errorf("expected %q to be blocked", query)
		}
	}
}

func TestIsReadOnlyQueryIgnoresComments(t *testing.T) {
	if !IsReadOnlyQuery("-- DROP TABLE bars\nSELECT 1") {
		t.Fatalf("expected keyword inside a line comment to be ignored")
	}
	if !IsReadOnlyQuery("/* DELETE FROM bars */ SELECT 1") {
		t.Fatalf("expected keyword inside a block comment to be ignored")
	}
	if IsReadOnlyQuery("/* harmless */ DROP TABLE bars") {
		t.Fatalf("expected statement after a comment to be inspected")
	}
}

func TestStripComments(t *testing.T) {
	got := StripComments("SELECT 1 -- trailing\n+ 2")
	if got != "SELECT 1 \n+ 2" {
		t.Fatalf("unexpected line comment strip: %q", got)
	}
	got = StripComments("SELECT /* inline */ 1")
	if got != "SELECT  1" {
		t.Fatalf("unexpected block comment strip: %q", got)
	}
	// An unterminated block comment is left as-is.
	got = StripComments("SELECT 1 /* open")
	if got != "SELECT 1 /* open" {
		t.Fatalf("unexpected unterminated handling: %q", got)
	}
}
