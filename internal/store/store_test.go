package store

import (
	"context"
	"math"
	"path/filepath"
	"testing"
	"time"
)

func openMemory(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRecordAndList(t *testing.T) {
	s := openMemory(t)
	ctx := context.Background()

	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	entries := []Entry{
		{Expression: "3 4 +", Result: 7, User: "ana", CreatedAt: at},
		{Expression: "3 x +", ErrorKind: "invalid_operand", User: "ana", CreatedAt: at.Add(time.Second)},
		{Expression: "1 0 /", Result: math.Inf(1), User: "ana", CreatedAt: at.Add(2 * time.Second)},
		{Expression: "1 1 +", Result: 2, User: "bob"},
	}
	for _, e := range entries {
		if _, err := s.Record(ctx, e); err != nil {
			t.Fatal(err)
		}
	}

	got, err := s.List(ctx, "ana", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d entries for ana, want 3", len(got))
	}
	if got[0].Expression != "1 0 /" || !math.IsInf(got[0].Result, 1) {
		t.Errorf("newest entry = %+v", got[0])
	}
	if got[1].ErrorKind != "invalid_operand" || got[1].Result != 0 {
		t.Errorf("failed entry = %+v", got[1])
	}
	if got[2].Result != 7 || !got[2].CreatedAt.Equal(at) {
		t.Errorf("oldest entry = %+v", got[2])
	}

	got, err = s.List(ctx, "ana", 1)
	if err != nil || len(got) != 1 {
		t.Fatalf("List limit 1 = %d entries, %v", len(got), err)
	}

	got, err = s.List(ctx, "nobody", 10)
	if err != nil || len(got) != 0 {
		t.Fatalf("List for unknown user = %+v, %v", got, err)
	}
}

func TestReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	s, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Record(context.Background(), Entry{Expression: "2 2 *", Result: 4}); err != nil {
		t.Fatal(err)
	}
	s.Close()

	s, err = Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	got, err := s.List(context.Background(), "", 0)
	if err != nil || len(got) != 1 || got[0].Result != 4 {
		t.Fatalf("after reopen List = %+v, %v", got, err)
	}
}
