package blob

import (
	"errors"
	"io"
	"os"
	"strings"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func TestPutOpenRoundTrip(t *testing.T) {
	s := newTestStore(t)

	if err := s.Put("7/abc.pdf", strings.NewReader("report body")); err != nil {
		t.Fatalf("Put: %v", err)
	}

	rc, err := s.Open("7/abc.pdf")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(data) != "report body" {
		t.Errorf("content = %q", data)
	}
}

func TestPutReplaces(t *testing.T) {
	s := newTestStore(t)

	if err := s.Put("7/abc.pdf", strings.NewReader("first")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := s.Put("7/abc.pdf", strings.NewReader("second")); err != nil {
		t.Fatalf("Put again: %v", err)
	}

	rc, err := s.Open("7/abc.pdf")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	if string(data) != "second" {
		t.Errorf("content = %q, want 'second'", data)
	}
}

func TestOpenMissing(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.Open("nope/missing.pdf"); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("got %v, want ErrNotExist", err)
	}
}

func TestDeleteIdempotent(t *testing.T) {
	s := newTestStore(t)

	if err := s.Put("7/abc.pdf", strings.NewReader("x")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := s.Delete("7/abc.pdf"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := s.Delete("7/abc.pdf"); err != nil {
		t.Errorf("second Delete: %v", err)
	}
	if _, err := s.Open("7/abc.pdf"); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Open after delete: %v", err)
	}
}

func TestRejectsEscapingKeys(t *testing.T) {
	s := newTestStore(t)

	for _, key := range []string{"", "../outside.txt", "a/../../outside.txt", "/etc/passwd"} {
		if err := s.Put(key, strings.NewReader("x")); err == nil {
			t.Errorf("Put(%q) accepted an escaping key", key)
		}
		if _, err := s.Open(key); err == nil {
			t.Errorf("Open(%q) accepted an escaping key", key)
		}
	}
}
