// Package snapshot captures committed host trees as HTML and persists them
// in a Store: a directory, a bbolt database or an S3 bucket.
package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/vango-dev/reconciler/pkg/host"
	"github.com/vango-dev/reconciler/pkg/render"
)

// Errors returned by stores.
var (
	ErrNotFound   = errors.New("snapshot: not found")
	ErrInvalidKey = errors.New("snapshot: invalid key")
)

// Snapshot is the rendered state of a mounted tree at one commit.
type Snapshot struct {
	Key   string    `json:"key"`
	Epoch uint64    `json:"epoch"`
	Taken time.Time `json:"taken"`
	Nodes int       `json:"nodes"`
	HTML  string    `json:"html"`
}

// Store persists snapshots by key.
type Store interface {
	Put(ctx context.Context, s *Snapshot) error
	Get(ctx context.Context, key string) (*Snapshot, error)
	// List returns stored keys in lexical order.
	List(ctx context.Context) ([]string, error)
	Close() error
}

// Capture renders the children of container. epoch is the engine epoch
// the tree was committed at.
func Capture(key string, epoch uint64, container *host.Node) (*Snapshot, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}
	var b strings.Builder
	r := render.NewRenderer(render.RendererConfig{})
	if err := r.RenderChildren(&b, container); err != nil {
		return nil, fmt.Errorf("snapshot: render: %w", err)
	}

	nodes := 0
	container.Find(func(*host.Node) bool {
		nodes++
		return false
	})
	return &Snapshot{
		Key:   key,
		Epoch: epoch,
		Taken: time.Now().UTC(),
		Nodes: nodes - 1, // container itself
		HTML:  b.String(),
	}, nil
}

// ValidateKey checks that key can be used as a file name and object key.
func ValidateKey(key string) error {
	if key == "" || key == "." || key == ".." || strings.ContainsAny(key, `/\`) {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}

func encode(s *Snapshot) ([]byte, error) {
	return json.Marshal(s)
}

func decode(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("snapshot: decode: %w", err)
	}
	return &s, nil
}

// Config selects and configures a store.
type Config struct {
	Store    string // "file", "bolt" or "s3"
	Path     string // Directory (file) or database file (bolt)
	Bucket   string
	Region   string
	Prefix   string
	Endpoint string // Optional S3-compatible endpoint
}

// Open creates the store named by cfg.Store.
func Open(cfg Config) (Store, error) {
	switch cfg.Store {
	case "", "file":
		return NewFileStore(cfg.Path)
	case "bolt":
		return OpenBolt(cfg.Path)
	case "s3":
		return NewS3StoreFromConfig(cfg)
	default:
		return nil, fmt.Errorf("snapshot: unknown store %q", cfg.Store)
	}
}
