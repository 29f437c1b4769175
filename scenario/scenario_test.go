package scenario

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scenariochat/config"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(t.TempDir(), config.SQLServerConfig{})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestCreateAndList(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Create(Info{ID: "base", Name: "Base"}))
	require.NoError(t, s.Create(Info{ID: "high", Name: "HighDemand", Parent: "base"}))

	infos, err := s.List()
	require.NoError(t, err)
	require.Len(t, infos, 2)
	assert.Equal(t, "base", infos[0].ID)
	assert.Equal(t, "HighDemand", infos[1].Name)
	assert.Equal(t, "base", infos[1].Parent)
}

func TestCreateRejectsDuplicates(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Create(Info{ID: "base", Name: "Base"}))
	assert.Error(t, s.Create(Info{ID: "base", Name: "Base again"}))
}

func TestCreateRequiresIDAndName(t *testing.T) {
	s := newTestStore(t)
	assert.Error(t, s.Create(Info{Name: "no id"}))
	assert.Error(t, s.Create(Info{ID: "no-name"}))
}

func TestResolveUnknownScenario(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Resolve("ghost")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResolveRejectsPathTraversal(t *testing.T) {
	s := newTestStore(t)
	for _, id := range []string{"", "../etc", "a/b", `a\b`} {
		_, err := s.Resolve(id)
		assert.ErrorIs(t, err, ErrNotFound, "id %q", id)
	}
}

func TestResolveSnapshotsSchema(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Create(Info{ID: "base", Name: "Base"}))

	sc, err := s.Resolve("base")
	require.NoError(t, err)
	assert.Equal(t, BackendSQLite, sc.Backend)
	assert.Empty(t, sc.Schema)

	_, err = sc.DB.Exec(`CREATE TABLE parameters (name TEXT, shipping_cost REAL)`)
	require.NoError(t, err)

	// a fresh resolve sees the new table
	sc2, err := s.Resolve("base")
	require.NoError(t, err)
	cols, ok := sc2.Schema["parameters"]
	require.True(t, ok)
	require.Len(t, cols, 2)
	assert.Equal(t, "name", cols[0].Name)
	assert.Equal(t, "TEXT", cols[0].Type)
	assert.Equal(t, "shipping_cost", cols[1].Name)
	assert.Equal(t, "REAL", cols[1].Type)
}

func TestResolveCreatesFilesDir(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Create(Info{ID: "base", Name: "Base"}))
	sc, err := s.Resolve("base")
	require.NoError(t, err)

	info, err := os.Stat(sc.FilesDir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.Equal(t, "files", filepath.Base(sc.FilesDir))
}

func TestResolveReusesDatabaseHandle(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Create(Info{ID: "base", Name: "Base"}))

	sc1, err := s.Resolve("base")
	require.NoError(t, err)
	sc2, err := s.Resolve("base")
	require.NoError(t, err)
	assert.Same(t, sc1.DB, sc2.DB)
}

func TestWriteLockIsPerScenario(t *testing.T) {
	s := newTestStore(t)
	a := s.WriteLock("base")
	b := s.WriteLock("base")
	c := s.WriteLock("other")
	assert.Same(t, a, b)
	assert.NotSame(t, a, c)
}

func TestListSkipsMalformedEntries(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Create(Info{ID: "base", Name: "Base"}))
	// a stray directory without metadata is not a scenario
	require.NoError(t, os.MkdirAll(filepath.Join(s.root, "junk"), 0755))

	infos, err := s.List()
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, "base", infos[0].ID)
}

func TestSQLServerConnectionString(t *testing.T) {
	cfg := config.SQLServerConfig{
		Server: "db.example.com", Port: "1433", DBPrefix: "scen",
		UserID: "sa", Password: "secret", Encrypt: true,
	}
	connStr := buildConnectionString(cfg, "base")
	assert.Contains(t, connStr, "server=db.example.com")
	assert.Contains(t, connStr, "database=scen_base")
	assert.Contains(t, connStr, "user id=sa")
	assert.Contains(t, connStr, "encrypt=true")

	trusted := buildConnectionString(config.SQLServerConfig{Server: "local", Port: "1433", DBPrefix: "scen"}, "x")
	assert.Contains(t, trusted, "trusted_connection=true")
	assert.Contains(t, trusted, "encrypt=false")
}
