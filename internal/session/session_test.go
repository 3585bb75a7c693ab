package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"eventease/internal/models"

	"golang.org/x/oauth2"
)

type stubTokens struct {
	calls int
	err   error
}

func (s *stubTokens) Token(_ context.Context, id models.Identity) (*oauth2.Token, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &oauth2.Token{AccessToken: "tok-" + id.ID}, nil
}

func TestSession_Anonymous(t *testing.T) {
	var s *Session
	if s.Authenticated() {
		t.Fatal("nil session must be anonymous")
	}
	if s.UserID() != "" {
		t.Fatalf("expected empty user id, got %q", s.UserID())
	}
	if _, err := s.AccessToken(context.Background()); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}
}

func TestSession_AccessTokenExchangesEachTime(t *testing.T) {
	tokens := &stubTokens{}
	s := New(models.Identity{ID: "u1", Email: "a@b.c"}, tokens)
	if s.Identity.Role != models.DefaultRole {
		t.Fatalf("expected default role, got %q", s.Identity.Role)
	}
	for i := 0; i < 2; i++ {
		tok, err := s.AccessToken(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		if tok != "tok-u1" {
			t.Fatalf("unexpected token %q", tok)
		}
	}
	if tokens.calls != 2 {
		t.Fatalf("expected 2 exchanges, got %d", tokens.calls)
	}

	ts, err := s.TokenSource(context.Background()).Token()
	if err != nil || ts.AccessToken != "tok-u1" {
		t.Fatalf("unexpected token source result %v (%v)", ts, err)
	}
}

func TestSession_AccessTokenError(t *testing.T) {
	s := New(models.Identity{ID: "u1"}, &stubTokens{err: errors.New("backend down")})
	if _, err := s.AccessToken(context.Background()); err == nil {
		t.Fatal("expected exchange error")
	}
}

func testStore(t *testing.T, store Store) {
	t.Helper()
	rec, err := store.Load()
	if err != nil {
		t.Fatal(err)
	}
	if rec != nil {
		t.Fatalf("expected no session, got %+v", rec)
	}

	at := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	want := Record{Identity: models.Identity{ID: "u1", Email: "a@b.c", Name: "Ada", Role: "USER"}, SignedInAt: at}
	if err := store.Save(want); err != nil {
		t.Fatal(err)
	}
	got, err := store.Load()
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || got.Identity != want.Identity || !got.SignedInAt.Equal(at) {
		t.Fatalf("expected %+v, got %+v", want, got)
	}

	want.Identity.Name = "Ada L."
	if err := store.Save(want); err != nil {
		t.Fatal(err)
	}
	if got, _ := store.Load(); got.Identity.Name != "Ada L." {
		t.Fatalf("expected overwrite, got %+v", got)
	}

	if err := store.Clear(); err != nil {
		t.Fatal(err)
	}
	if err := store.Clear(); err != nil {
		t.Fatalf("clearing twice should succeed, got %v", err)
	}
	if rec, _ := store.Load(); rec != nil {
		t.Fatalf("expected session cleared, got %+v", rec)
	}
}

func TestFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.json")
	testStore(t, NewFileStore(path))
}

func TestFileStore_Permissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	if err := NewFileStore(path).Save(Record{Identity: models.Identity{ID: "u1"}}); err != nil {
		t.Fatal(err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("expected 0600, got %v", info.Mode().Perm())
	}
}

func TestSQLiteStore(t *testing.T) {
	store, err := OpenSQLite(filepath.Join(t.TempDir(), "session.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	testStore(t, store)
}
