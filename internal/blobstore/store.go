// Package blobstore persists per-task session files (the latest draft, the
// intent list, anchor data) behind a small key-value interface.
package blobstore

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// ErrNotFound is returned by Get for a missing blob.
var ErrNotFound = errors.New("blob not found")

// ErrInvalidKey is returned for keys that could escape their task
// directory.
var ErrInvalidKey = errors.New("invalid blob key")

// Well-known blob paths inside a task.
const (
	DraftPath   = "drafts/latest.md"
	DraftsDir   = "drafts"
	IntentsPath = "intents/current.json"
	AnchorsPath = "anchors/latest.json"
)

// Key addresses one blob.
type Key struct {
	User string
	Task string
	Path string
}

func (k Key) String() string {
	return "sessiondata/" + k.User + "/" + k.Task + "/" + k.Path
}

var (
	segmentRe = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
	pathRe    = regexp.MustCompile(`^[A-Za-z0-9_-][A-Za-z0-9_.-]*(/[A-Za-z0-9_-][A-Za-z0-9_.-]*)*$`)
)

// Validate rejects keys that could escape their task directory.
func (k Key) Validate() error {
	if !segmentRe.MatchString(k.User) {
		return fmt.Errorf("%w: user %q", ErrInvalidKey, k.User)
	}
	if !segmentRe.MatchString(k.Task) {
		return fmt.Errorf("%w: task %q", ErrInvalidKey, k.Task)
	}
	if !pathRe.MatchString(k.Path) || strings.Contains(k.Path, "..") {
		return fmt.Errorf("%w: path %q", ErrInvalidKey, k.Path)
	}
	return nil
}

// Store is a blob backend.
type Store interface {
	Get(ctx context.Context, k Key) ([]byte, error)
	Put(ctx context.Context, k Key, data []byte) error
	// List returns the paths stored directly under dir, sorted.
	List(ctx context.Context, user, task, dir string) ([]string, error)
	Close() error
}

// Options selects and configures a backend.
type Options struct {
	Backend      string // pathstore, redis or memory
	PathstoreURL string
	PathstoreKey string
	RedisURL     string
	RedisTTL     time.Duration
}

// Open builds the configured backend.
func Open(ctx context.Context, o Options) (Store, error) {
	switch o.Backend {
	case "pathstore":
		return NewPathStore(o.PathstoreURL, o.PathstoreKey), nil
	case "redis":
		return NewRedisStore(ctx, o.RedisURL, o.RedisTTL)
	case "memory", "":
		return NewMemoryStore(), nil
	}
	return nil, fmt.Errorf("unknown blob backend %q", o.Backend)
}

// childOf reports whether path sits directly under dir and returns it.
func childOf(path, dir string) bool {
	rest, ok := strings.CutPrefix(path, strings.TrimSuffix(dir, "/")+"/")
	return ok && rest != "" && !strings.Contains(rest, "/")
}
