package dict

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/keylex/keylex/pkg/unihan"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "dict.db"), true)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenMissingStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.db")
	if _, err := Open(path, false); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("Open(createIfMissing=false): got %v, want wrapped os.ErrNotExist", err)
	}
}

func TestPutGetDelete(t *testing.T) {
	s := openTestStore(t)

	if err := s.Put("hello", "a greeting"); err != nil {
		t.Fatalf("Put: %v", err)
	}

	def, ok, err := s.Get("hello")
	if err != nil || !ok || def != "a greeting" {
		t.Fatalf("Get after Put: got (%q, %v, %v)", def, ok, err)
	}

	// Upsert overwrites.
	if err := s.Put("hello", "updated"); err != nil {
		t.Fatalf("Put overwrite: %v", err)
	}
	if def, _, _ := s.Get("hello"); def != "updated" {
		t.Errorf("Get after overwrite: got %q, want %q", def, "updated")
	}

	if err := s.Delete("hello"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok, err := s.Get("hello"); ok || err != nil {
		t.Errorf("Get after Delete: got (ok=%v, err=%v), want miss", ok, err)
	}
}

func TestGetMissIsNotAnError(t *testing.T) {
	s := openTestStore(t)

	def, ok, err := s.Get("nonesuch")
	if err != nil {
		t.Fatalf("Get miss returned error: %v", err)
	}
	if ok || def != "" {
		t.Errorf("Get miss: got (%q, %v), want empty miss", def, ok)
	}
}

func TestDeleteAbsentIsNoOp(t *testing.T) {
	s := openTestStore(t)
	if err := s.Delete("nonesuch"); err != nil {
		t.Errorf("Delete absent: %v", err)
	}
}

func TestPutEmptyWord(t *testing.T) {
	s := openTestStore(t)
	if err := s.Put("", "x"); !errors.Is(err, ErrEmptyWord) {
		t.Errorf("Put empty word: got %v, want ErrEmptyWord", err)
	}
}

func TestUnihanEntryRoundTrip(t *testing.T) {
	s := openTestStore(t)

	want := unihan.Entry{Radical: 85, RadicalStroke: 5, TotalStroke: 8, Simplified: true}
	rec, err := unihan.Encode(want)
	if err != nil {
		t.Fatal(err)
	}
	const cp = uint32(0x6CB3)
	if err := s.db.Put(unihan.Key(cp), rec, nil); err != nil {
		t.Fatal(err)
	}

	got, ok, err := s.UnihanEntry(cp)
	if err != nil || !ok {
		t.Fatalf("UnihanEntry: got (ok=%v, err=%v)", ok, err)
	}
	if got != want {
		t.Errorf("UnihanEntry: got %+v, want %+v", got, want)
	}
}

func TestUnihanEntryMiss(t *testing.T) {
	s := openTestStore(t)

	_, ok, err := s.UnihanEntry(0x4E00)
	if err != nil {
		t.Fatalf("UnihanEntry miss returned error: %v", err)
	}
	if ok {
		t.Error("UnihanEntry miss: got ok=true")
	}
}

func TestUnihanEntryCorruptedRecord(t *testing.T) {
	s := openTestStore(t)

	const cp = uint32(0x4E8C)
	if err := s.db.Put(unihan.Key(cp), []byte{1, 2}, nil); err != nil {
		t.Fatal(err)
	}

	if _, _, err := s.UnihanEntry(cp); !errors.Is(err, unihan.ErrBadRecord) {
		t.Errorf("UnihanEntry on 2-byte record: got %v, want ErrBadRecord", err)
	}
}

func TestVisitPrefix(t *testing.T) {
	s := openTestStore(t)

	for word, def := range map[string]string{
		"car":    "vehicle",
		"care":   "attention",
		"carrot": "root vegetable",
		"dog":    "animal",
	} {
		if err := s.Put(word, def); err != nil {
			t.Fatal(err)
		}
	}

	var got []string
	err := s.VisitPrefix("car", func(word, _ string) error {
		got = append(got, word)
		return nil
	})
	if err != nil {
		t.Fatalf("VisitPrefix: %v", err)
	}

	want := []string{"car", "care", "carrot"}
	if len(got) != len(want) {
		t.Fatalf("VisitPrefix: got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("VisitPrefix order: got %v, want %v", got, want)
			break
		}
	}
}

func TestVisitStopsOnError(t *testing.T) {
	s := openTestStore(t)
	for _, w := range []string{"a", "b", "c"} {
		if err := s.Put(w, ""); err != nil {
			t.Fatal(err)
		}
	}

	stop := errors.New("stop")
	seen := 0
	err := s.Visit(func(string, string) error {
		seen++
		return stop
	})
	if !errors.Is(err, stop) {
		t.Fatalf("Visit: got %v, want the visitor error", err)
	}
	if seen != 1 {
		t.Errorf("Visit continued after error: visited %d entries", seen)
	}
}

func TestClosedStore(t *testing.T) {
	s := openTestStore(t)
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	// Close is idempotent.
	if err := s.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}

	if _, _, err := s.Get("x"); !errors.Is(err, ErrClosed) {
		t.Errorf("Get on closed store: got %v, want ErrClosed", err)
	}
	if err := s.Put("x", "y"); !errors.Is(err, ErrClosed) {
		t.Errorf("Put on closed store: got %v, want ErrClosed", err)
	}
	if err := s.Delete("x"); !errors.Is(err, ErrClosed) {
		t.Errorf("Delete on closed store: got %v, want ErrClosed", err)
	}
	if _, _, err := s.UnihanEntry(0x4E00); !errors.Is(err, ErrClosed) {
		t.Errorf("UnihanEntry on closed store: got %v, want ErrClosed", err)
	}
}
