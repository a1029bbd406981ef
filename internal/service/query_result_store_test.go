package service

import (
	"fmt"
	"testing"
	"time"
)

func TestResultStoreEvictsOldestWhenOverBudget(t *testing.T) {
	store := &ResultStore{
		results:           make(map[string]*QueryResult),
		maxCumulativeRows: 100,
		minAge:            0,
	}

	for i := 0; i < 3; i++ {
		store.Add(&QueryResult{
			JobID:      fmt.Sprintf("job-%d", i),
			RowCount:   40,
			FinishedAt: time.Now().Add(time.Duration(i-10) * time.Minute),
		})
	}

	if _, ok := store.Get("job-0"); ok {
		t.Fatalf("expected the oldest result to be evicted")
	}
	if _, ok := store.Get("job-1"); !ok {
		t.Fatalf("expected job-1 to survive")
	}
	if _, ok := store.Get("job-2"); !ok {
		t.Fatalf("expected job-2 to survive")
	}
}

func TestResultStoreKeepsYoungResults(t *testing.T) {
	store := &ResultStore{
		results:           make(map[string]*QueryResult),
		maxCumulativeRows: 10,
		minAge:            10 * time.Minute,
	}

	store.Add(&QueryResult{JobID: "job-a", RowCount: 50, FinishedAt: time.Now()})
	store.Add(&QueryResult{JobID: "job-b", RowCount: 50, FinishedAt: time.Now()})

	// Both are over budget but too young to evict.
	if _, ok := store.Get("job-a"); !ok {
		t.Fatalf("expected young result job-a to survive")
	}
	if _, ok := store.Get("job-b"); !ok {
		t.Fatalf("expected young result job-b to survive")
	}
}

func TestResultStoreGetUnknown(t *testing.T) {
	store := NewResultStore()
	if _, ok := store.Get("absent"); ok {
		t.Fatalf("expected miss for unknown job")
	}
}
