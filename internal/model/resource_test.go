package model

import (
	"path/filepath"
	"testing"
)

func TestDefaultSchemaOrFallback(t *testing.T) {
	cases := []struct {
		resource Resource
		want     string
	}{
		{Resource{Engine: EngineDuckDB}, DefaultSchema},
		{Resource{Engine: EngineSQLite}, "main"},
		{Resource{Engine: EngineDuckDB, Schema: "analytics"}, "analytics"},
		{Resource{Engine: EngineSQLite, Schema: "attached"}, "attached"},
	}
	for _, tc := range cases {
		if got := tc.resource.DefaultSchemaOrFallback(); got != tc.want {
			t.Errorf("schema for %+v = %q, want %q", tc.resource, got, tc.want)
		}
	}
}

func TestResolvePath(t *testing.T) {
	base := filepath.Join("/", "srv", "qode")

	if got := ResolvePath("warehouse.db", base); got != filepath.Join(base, "warehouse.db") {
		t.Fatalf("expected relative path under base, got %q", got)
	}
	abs := filepath.Join("/", "var", "data", "warehouse.db")
	if got := ResolvePath(abs, base); got != abs {
		t.Fatalf("expected absolute path unchanged, got %q", got)
	}
	if got := ResolvePath(MemoryPath, base); got != MemoryPath {
		t.Fatalf("expected memory marker unchanged, got %q", got)
	}
	if got := ResolvePath("warehouse.db", ""); got != "warehouse.db" {
		t.Fatalf("expected path unchanged without base, got %q", got)
	}
}

func TestCloneDetachesMemoryLimit(t *testing.T) {
	limit := "4GB"
	original := Resource{Name: "warehouse", MemoryLimit: &limit}

	clone := original.Clone()
	*clone.MemoryLimit = "8GB"

	if *original.MemoryLimit != "4GB" {
		t.Fatalf("expected original memory limit untouched, got %q", *original.MemoryLimit)
	}
}

func TestInferInterval(t *testing.T) {
	cases := []struct {
		gap  float64
		want string
	}{
		{60, "1min"},
		{58, "1min"},
		{300, "5min"},
		{900, "15min"},
		{3600, "1hour"},
		{86400, "1day"},
		{120, "unknown"},
		{42, "unknown"},
		{0, "unknown"},
	}
	for _, tc := range cases {
		if got := InferInterval(tc.gap); got != tc.want {
			t.Errorf("InferInterval(%v) = %q, want %q", tc.gap, got, tc.want)
		}
	}
}
