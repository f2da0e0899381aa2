// Package shuttledb reads the SQLite snapshot produced by the offline
// schedule ETL. The serving path opens the snapshot read-only and immutable;
// writable access exists only for test fixtures and the importer.
package shuttledb

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"
	_ "github.com/mattn/go-sqlite3" // CGo-based SQLite driver
	"github.com/shuttlego/shuttlecore/internal/appconf"
)

// Config controls how the snapshot is opened.
type Config struct {
	Path    string
	Env     appconf.Environment
	Verbose bool
}

// NewConfig creates a snapshot configuration.
func NewConfig(path string, env appconf.Environment, verbose bool) Config {
	return Config{Path: path, Env: env, Verbose: verbose}
}

// Client is the entry point for snapshot access.
type Client struct {
	config  Config
	DB      *sql.DB
	Queries *Queries

	// tempPath is a decompressed copy of a .zst snapshot, removed on Close.
	tempPath string
	// updatedAt is the snapshot file's modification time.
	updatedAt time.Time
}

// NewClient opens the snapshot described by the config. Test environments
// get a writable in-memory database with the schema applied; everything else
// is opened read-only.
func NewClient(config Config) (*Client, error) {
	client := &Client{config: config}

	if config.Env == appconf.Test {
		if config.Path != ":memory:" {
			return nil, fmt.Errorf("test database must use in-memory storage, got path: %s", config.Path)
		}
		db, err := sql.Open("sqlite3", ":memory:")
		if err != nil {
			return nil, fmt.Errorf("unable to open in-memory database: %w", err)
		}
		// A second pool connection would see a different empty memory DB.
		db.SetMaxOpenConns(1)
		if err := applySchema(context.Background(), db); err != nil {
			_ = db.Close()
			return nil, err
		}
		client.DB = db
		client.Queries = New(db)
		return client, nil
	}

	path := config.Path
	if strings.HasSuffix(path, ".zst") {
		decompressed, err := decompressSnapshot(path)
		if err != nil {
			return nil, err
		}
		client.tempPath = decompressed
		path = decompressed
	}

	if info, err := os.Stat(path); err == nil {
		client.updatedAt = info.ModTime()
	}

	dsn := fmt.Sprintf("file:%s?mode=ro&immutable=1", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		client.removeTemp()
		return nil, fmt.Errorf("unable to open snapshot %s: %w", config.Path, err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		client.removeTemp()
		return nil, fmt.Errorf("unable to read snapshot %s: %w", config.Path, err)
	}

	client.DB = db
	client.Queries = New(db)
	return client, nil
}

// Close releases the database handle and any decompressed temp file.
func (c *Client) Close() error {
	err := c.DB.Close()
	c.removeTemp()
	return err
}

// Path returns the configured snapshot path.
func (c *Client) Path() string {
	return c.config.Path
}

// UpdatedAt returns the modification time of the snapshot file, or the zero
// time for in-memory databases.
func (c *Client) UpdatedAt() time.Time {
	return c.updatedAt
}

func (c *Client) removeTemp() {
	if c.tempPath != "" {
		_ = os.Remove(c.tempPath)
		c.tempPath = ""
	}
}

// decompressSnapshot unpacks a zstd-compressed snapshot to a temporary file
// so SQLite can open it directly.
func decompressSnapshot(path string) (string, error) {
	in, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("unable to open compressed snapshot %s: %w", path, err)
	}
	defer func() { _ = in.Close() }()

	decoder, err := zstd.NewReader(in)
	if err != nil {
		return "", fmt.Errorf("unable to create zstd reader: %w", err)
	}
	defer decoder.Close()

	out, err := os.CreateTemp("", filepath.Base(strings.TrimSuffix(path, ".zst"))+"-*.db")
	if err != nil {
		return "", fmt.Errorf("unable to create temp snapshot: %w", err)
	}

	if _, err := io.Copy(out, decoder); err != nil {
		_ = out.Close()
		_ = os.Remove(out.Name())
		return "", fmt.Errorf("unable to decompress snapshot %s: %w", path, err)
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(out.Name())
		return "", fmt.Errorf("unable to finalize temp snapshot: %w", err)
	}
	return out.Name(), nil
}
