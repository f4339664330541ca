package runstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestOpen_CreatesRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "runs")

	s, err := Open(root)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(filepath.Join(root, "runs.db")); err != nil {
		t.Errorf("run index was not created: %v", err)
	}
}

func TestOpen_Idempotent(t *testing.T) {
	root := filepath.Join(t.TempDir(), "runs")

	for i := 0; i < 3; i++ {
		s, err := Open(root)
		if err != nil {
			t.Fatalf("Open() iteration %d failed: %v", i, err)
		}
		s.Close()
	}

	s, err := Open(root)
	if err != nil {
		t.Fatalf("final Open() failed: %v", err)
	}
	defer s.Close()

	var name string
	err = s.db.QueryRow(
		"SELECT name FROM sqlite_master WHERE type='table' AND name='runs'",
	).Scan(&name)
	if err != nil {
		t.Errorf("runs table not found after idempotent opens: %v", err)
	}
}

func TestIndexRun_ListOrder(t *testing.T) {
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	recs := []Record{
		{RunID: "run-b", Verdict: VerdictOK, ChainHash: "bbbb", CreatedAt: "2026-08-31T10:00:00Z"},
		{RunID: "run-a", Verdict: VerdictError, ChainHash: "aaaa", CreatedAt: "2026-08-31T09:00:00Z"},
	}
	for _, rec := range recs {
		if err := s.IndexRun(ctx, rec); err != nil {
			t.Fatalf("IndexRun(%s) failed: %v", rec.RunID, err)
		}
	}

	got, err := s.ListRuns(ctx)
	if err != nil {
		t.Fatalf("ListRuns() failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d runs, want 2", len(got))
	}
	if got[0].RunID != "run-a" || got[1].RunID != "run-b" {
		t.Errorf("runs out of order: %q then %q", got[0].RunID, got[1].RunID)
	}
	if got[0].Verdict != VerdictError {
		t.Errorf("verdict = %q, want %q", got[0].Verdict, VerdictError)
	}
}

func TestIndexRun_Upsert(t *testing.T) {
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	rec := Record{RunID: "run-1", Verdict: VerdictOK, ChainHash: "cafe", CreatedAt: "2026-08-31T09:00:00Z"}
	if err := s.IndexRun(ctx, rec); err != nil {
		t.Fatalf("first IndexRun() failed: %v", err)
	}
	rec.Verdict = VerdictError
	if err := s.IndexRun(ctx, rec); err != nil {
		t.Fatalf("second IndexRun() failed: %v", err)
	}

	got, err := s.ListRuns(ctx)
	if err != nil {
		t.Fatalf("ListRuns() failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d runs after upsert, want 1", len(got))
	}
	if got[0].Verdict != VerdictError {
		t.Errorf("verdict = %q, want %q after upsert", got[0].Verdict, VerdictError)
	}
}

func TestIndexRun_NormalizesVerdict(t *testing.T) {
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	recs := []Record{
		{RunID: "run-lower", Verdict: "ok", ChainHash: "aa", CreatedAt: "2026-08-31T09:00:00Z"},
		{RunID: "run-bogus", Verdict: "maybe", ChainHash: "bb", CreatedAt: "2026-08-31T10:00:00Z"},
	}
	for _, rec := range recs {
		if err := s.IndexRun(ctx, rec); err != nil {
			t.Fatalf("IndexRun(%s) failed: %v", rec.RunID, err)
		}
	}

	got, err := s.ListRuns(ctx)
	if err != nil {
		t.Fatalf("ListRuns() failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d runs, want 2", len(got))
	}
	if got[0].Verdict != VerdictOK {
		t.Errorf("verdict = %q, want %q", got[0].Verdict, VerdictOK)
	}
	if got[1].Verdict != VerdictError {
		t.Errorf("unrecognized verdict stored as %q, want %q", got[1].Verdict, VerdictError)
	}
}

func TestNormalizeVerdict(t *testing.T) {
	cases := map[string]string{
		"ok":       VerdictOK,
		"VALID":    VerdictValid,
		"mismatch": VerdictMismatch,
		"bogus":    VerdictError,
		"":         VerdictError,
	}
	for in, want := range cases {
		if got := NormalizeVerdict(in); got != want {
			t.Errorf("NormalizeVerdict(%q) = %q, want %q", in, got, want)
		}
	}
}
