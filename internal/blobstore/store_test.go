package blobstore

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
)

func setupTestRedis(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	s := miniredis.RunT(t)
	store, err := NewRedisStore(context.Background(), "redis://"+s.Addr(), 0)
	if err != nil {
		t.Fatalf("failed to create redis store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store, s
}

// fakePathstore is an in-memory stand-in for the pathstore KV API.
func fakePathstore(t *testing.T) *PathStore {
	t.Helper()
	var mu sync.Mutex
	nodes := map[string]json.RawMessage{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		key := strings.TrimPrefix(r.URL.Path, "/kv/")
		mu.Lock()
		defer mu.Unlock()
		switch {
		case r.Method == http.MethodPut:
			var req struct {
				Value json.RawMessage `json:"value"`
			}
			body, _ := io.ReadAll(r.Body)
			if err := json.Unmarshal(body, &req); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			nodes[key] = req.Value
			w.WriteHeader(http.StatusCreated)
		case strings.HasSuffix(key, "/*"):
			prefix := strings.TrimSuffix(key, "*")
			var out []map[string]any
			for k, v := range nodes {
				if strings.HasPrefix(k, prefix) {
					out = append(out, map[string]any{"key_path": k, "value": v})
				}
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"nodes": out})
		default:
			v, ok := nodes[key]
			if !ok {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"key_path": key, "value": v})
		}
	}))
	t.Cleanup(srv.Close)
	return NewPathStore(srv.URL, "secret")
}

func backends(t *testing.T) map[string]Store {
	redisStore, _ := setupTestRedis(t)
	return map[string]Store{
		"memory":    NewMemoryStore(),
		"redis":     redisStore,
		"pathstore": fakePathstore(t),
	}
}

func TestStore_PutGet(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			k := Key{User: "alice", Task: "alice_42", Path: DraftPath}

			if _, err := s.Get(ctx, k); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}
			if err := s.Put(ctx, k, []byte("Dear Alex,\n\nSee you Friday.")); err != nil {
				t.Fatalf("Put: %v", err)
			}
			got, err := s.Get(ctx, k)
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if string(got) != "Dear Alex,\n\nSee you Friday." {
				t.Errorf("got %q", got)
			}
			if err := s.Put(ctx, k, []byte("v2")); err != nil {
				t.Fatalf("Put overwrite: %v", err)
			}
			if got, _ := s.Get(ctx, k); string(got) != "v2" {
				t.Errorf("overwrite: got %q", got)
			}
		})
	}
}

func TestStore_List(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			for _, p := range []string{"drafts/02_draft.md", "drafts/01_draft.md", DraftPath, IntentsPath} {
				if err := s.Put(ctx, Key{User: "bob", Task: "bob_1", Path: p}, []byte("x")); err != nil {
					t.Fatalf("Put %s: %v", p, err)
				}
			}
			if err := s.Put(ctx, Key{User: "bob", Task: "bob_2", Path: "drafts/01_draft.md"}, []byte("x")); err != nil {
				t.Fatalf("Put other task: %v", err)
			}
			got, err := s.List(ctx, "bob", "bob_1", DraftsDir)
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			want := []string{"drafts/01_draft.md", "drafts/02_draft.md", "drafts/latest.md"}
			if !slices.Equal(got, want) {
				t.Errorf("List = %v, want %v", got, want)
			}
		})
	}
}

func TestKey_Validate(t *testing.T) {
	tests := []struct {
		key Key
		ok  bool
	}{
		{Key{"alice", "alice_42", DraftPath}, true},
		{Key{"alice", "alice_42", "drafts/01_draft.md"}, true},
		{Key{"", "alice_42", DraftPath}, false},
		{Key{"alice", "../etc", DraftPath}, false},
		{Key{"alice", "alice_42", "../secrets"}, false},
		{Key{"alice", "alice_42", "drafts/../../x"}, false},
		{Key{"alice", "alice_42", "/abs"}, false},
		{Key{"al ice", "alice_42", DraftPath}, false},
	}
	for _, tc := range tests {
		err := tc.key.Validate()
		if (err == nil) != tc.ok {
			t.Errorf("Validate(%+v) = %v, want ok=%v", tc.key, err, tc.ok)
		}
	}
}

func TestNewRedisStore_BadURL(t *testing.T) {
	if _, err := NewRedisStore(context.Background(), "not-a-url", 0); err == nil {
		t.Error("expected error for bad url")
	}
}

func TestOpen(t *testing.T) {
	s, err := Open(context.Background(), Options{Backend: "memory"})
	if err != nil {
		t.Fatalf("Open memory: %v", err)
	}
	if _, ok := s.(*MemoryStore); !ok {
		t.Errorf("expected MemoryStore, got %T", s)
	}
	if _, err := Open(context.Background(), Options{Backend: "s3"}); err == nil {
		t.Error("expected error for unknown backend")
	}
}
