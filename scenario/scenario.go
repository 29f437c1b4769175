package scenario

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"scenariochat/config"
	"scenariochat/models"

	_ "github.com/microsoft/go-mssqldb"
	_ "modernc.org/sqlite"
)

// ErrNotFound marks an unknown scenario id. The workflow maps it to a fatal
// scenario-resolution error, the only error that aborts a turn early.
var ErrNotFound = fmt.Errorf("scenario not found")

const metaFileName = "meta.json"

const (
	BackendSQLite    = "sqlite"
	BackendSQLServer = "sqlserver"
)

// Info describes one registered scenario.
type Info struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Parent string `json:"parent,omitempty"` // base scenarios have no parent
}

// Context is a resolved scenario: its isolated database handle and working
// file directory. Resolved per request so a mid-conversation scenario switch
// can never leak a stale binding.
type Context struct {
	Info
	Backend  string
	DBPath   string // sqlite file path; empty for the SQL Server backend
	DSN      string
	FilesDir string
	DB       *sql.DB
	Schema   models.Schema
}

// Store is the scenario registry. Each scenario lives in
// <root>/<id>/ with meta.json, scenario.db (sqlite backend) and files/.
type Store struct {
	root      string
	sqlServer config.SQLServerConfig

	mu      sync.Mutex
	handles map[string]*sql.DB
	locks   map[string]*sync.Mutex
}

func NewStore(root string, sqlServer config.SQLServerConfig) (*Store, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create scenarios directory: %w", err)
	}
	return &Store{
		root:      root,
		sqlServer: sqlServer,
		handles:   make(map[string]*sql.DB),
		locks:     make(map[string]*sync.Mutex),
	}, nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var firstErr error
	for id, db := range s.handles {
		if err := db.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(s.handles, id)
	}
	return firstErr
}

// List returns all registered scenarios, sorted by id.
func (s *Store) List() ([]Info, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenarios directory: %w", err)
	}

	var infos []Info
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		info, err := s.readMeta(entry.Name())
		if err != nil {
			continue // skip malformed entries, they are not scenarios
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// Resolve looks up a scenario and returns its context with a fresh schema
// snapshot. Callers must not cache the result across turns.
func (s *Store) Resolve(id string) (*Context, error) {
	info, err := s.readMeta(id)
	if err != nil {
		return nil, err
	}

	dir := filepath.Join(s.root, id)
	filesDir := filepath.Join(dir, "files")
	if err := os.MkdirAll(filesDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create scenario files directory: %w", err)
	}

	ctx := &Context{Info: info, FilesDir: filesDir}
	if s.sqlServer.Server != "" {
		ctx.Backend = BackendSQLServer
		ctx.DSN = buildConnectionString(s.sqlServer, id)
	} else {
		ctx.Backend = BackendSQLite
		ctx.DBPath = filepath.Join(dir, "scenario.db")
		ctx.DSN = ctx.DBPath
	}

	db, err := s.handle(id, ctx)
	if err != nil {
		return nil, err
	}
	ctx.DB = db

	schema, err := snapshotSchema(db, s.sqlServer.Server != "")
	if err != nil {
		return nil, fmt.Errorf("failed to snapshot schema for scenario %s: %w", id, err)
	}
	ctx.Schema = schema

	return ctx, nil
}

// WriteLock returns the per-scenario mutex that serializes database writes
// against script runs on the same scenario. Locks live for the process
// lifetime, one per scenario ever touched.
func (s *Store) WriteLock(id string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.locks[id]; !ok {
		s.locks[id] = &sync.Mutex{}
	}
	return s.locks[id]
}

// Create registers a new scenario with an empty database.
func (s *Store) Create(info Info) error {
	if strings.TrimSpace(info.ID) == "" || strings.TrimSpace(info.Name) == "" {
		return fmt.Errorf("scenario id and name are required")
	}
	dir := filepath.Join(s.root, info.ID)
	if _, err := os.Stat(filepath.Join(dir, metaFileName)); err == nil {
		return fmt.Errorf("scenario %s already exists", info.ID)
	}
	if err := os.MkdirAll(filepath.Join(dir, "files"), 0755); err != nil {
		return fmt.Errorf("failed to create scenario directory: %w", err)
	}
	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, metaFileName), data, 0644); err != nil {
		return fmt.Errorf("failed to write scenario metadata: %w", err)
	}
	return nil
}

func (s *Store) readMeta(id string) (Info, error) {
	if strings.TrimSpace(id) == "" || strings.ContainsAny(id, "/\\") {
		return Info{}, ErrNotFound
	}
	data, err := os.ReadFile(filepath.Join(s.root, id, metaFileName))
	if err != nil {
		return Info{}, ErrNotFound
	}
	var info Info
	if err := json.Unmarshal(data, &info); err != nil {
		return Info{}, fmt.Errorf("invalid metadata for scenario %s: %w", id, err)
	}
	if info.ID == "" {
		info.ID = id
	}
	return info, nil
}

func (s *Store) handle(id string, ctx *Context) (*sql.DB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if db, ok := s.handles[id]; ok {
		return db, nil
	}

	var db *sql.DB
	var err error
	if s.sqlServer.Server != "" {
		db, err = sql.Open("sqlserver", ctx.DSN)
		if err == nil {
			db.SetMaxOpenConns(25)
			db.SetMaxIdleConns(5)
			db.SetConnMaxLifetime(5 * time.Minute)
		}
	} else {
		// busy_timeout lets a writer outwait transient locks held by a
		// script or a concurrent connection instead of failing immediately
		db, err = sql.Open("sqlite", "file:"+ctx.DBPath+"?_pragma=busy_timeout(5000)")
		if err == nil {
			// Serialized access per scenario; scripts open their own handles.
			db.SetMaxOpenConns(1)
			db.SetMaxIdleConns(1)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open scenario database: %w", err)
	}

	s.handles[id] = db
	return db, nil
}

func buildConnectionString(cfg config.SQLServerConfig, scenarioID string) string {
	database := fmt.Sprintf("%s_%s", cfg.DBPrefix, scenarioID)
	connStr := fmt.Sprintf("server=%s;port=%s;database=%s", cfg.Server, cfg.Port, database)

	if cfg.UserID != "" {
		connStr += fmt.Sprintf(";user id=%s;password=%s", cfg.UserID, cfg.Password)
	} else {
		connStr += ";trusted_connection=true"
	}

	if cfg.Encrypt {
		connStr += ";encrypt=true;TrustServerCertificate=true"
	} else {
		connStr += ";encrypt=false"
	}

	return connStr
}
