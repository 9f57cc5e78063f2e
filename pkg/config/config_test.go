package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/restq/restq/pkg/entity"
	"github.com/restq/restq/pkg/query"
)

const fullConfig = `
server:
  listenAddr: ":8081"
  baseURL: https://api.example.com
  cors: true
  basicAuth:
    admin: secret
  tls:
    enabled: true
    certFile: /etc/restq/tls.crt
    keyFile: /etc/restq/tls.key
metrics:
  enabled: true
  listenAddr: ":9091"
postgres:
  - name: primary
    connString: postgres://localhost:5432/app
    active: true
  - name: analytics
    connString: postgres://localhost:5433/analytics
entities:
  - table: public.sessions
    primaryKey: session_id
    primaryKeyGuid: true
    createdAtField: created_at
    fields:
      session_id:
        type: string
        format: uuid
      ip: string
      session_data: string
      created_at: string
  - name: people
    table: public.users
    primaryKey: id
    primaryKeyAuto: true
    pool: analytics
    defaultPagination:
      page: 1
      perPage: 50
    upsert:
      conflictColumns: [email]
      updateColumns: [username]
    fields:
      id: integer
      email:
        type: string
        required: true
        format: email
        lowercase: true
        trim: true
      username:
        type: string
        minLen: 3
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "restq.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, fullConfig))
	require.NoError(t, err)

	assert.Equal(t, ":8081", cfg.Server.ListenAddr)
	assert.Equal(t, "https://api.example.com", cfg.Server.BaseURL)
	assert.True(t, cfg.Server.CORS)
	assert.Equal(t, map[string]string{"admin": "secret"}, cfg.Server.BasicAuth)
	assert.True(t, cfg.Server.TLS.Enabled)
	assert.Equal(t, "/etc/restq/tls.crt", cfg.Server.TLS.CertFile)

	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, ":9091", cfg.Metrics.ListenAddr)

	require.Len(t, cfg.Postgres, 2)
	assert.Equal(t, "primary", cfg.Postgres[0].Name)
	assert.True(t, cfg.Postgres[0].Active)
	assert.False(t, cfg.Postgres[1].Active)

	require.Len(t, cfg.Entities, 2)

	sessions := cfg.Entities[0]
	assert.Equal(t, "public.sessions", sessions.Table)
	assert.Equal(t, "session_id", sessions.PrimaryKey)
	assert.True(t, sessions.PrimaryKeyGUID)
	assert.Equal(t, "created_at", sessions.CreatedAtField)
	assert.Equal(t, entity.FieldRule{Type: entity.TypeString, Format: "uuid"}, sessions.Fields["session_id"])

	people := cfg.Entities[1]
	assert.Equal(t, "people", people.Name)
	assert.True(t, people.PrimaryKeyAuto)
	assert.Equal(t, "analytics", people.Pool)
	require.NotNil(t, people.DefaultPage)
	assert.Equal(t, query.Page{Page: 1, PerPage: 50}, *people.DefaultPage)
	require.NotNil(t, people.Upsert)
	assert.Equal(t, []string{"email"}, people.Upsert.ConflictColumns)
	assert.Equal(t, []string{"username"}, people.Upsert.UpdateColumns)

	email := people.Fields["email"]
	assert.True(t, email.Required)
	assert.Equal(t, "email", email.Format)
	assert.True(t, email.Lowercase)
	assert.True(t, email.Trim)
	require.NotNil(t, people.Fields["username"].MinLen)
	assert.Equal(t, 3, *people.Fields["username"].MinLen)
}

func TestLoadFieldShorthand(t *testing.T) {
	cfg, err := Load(writeConfig(t, fullConfig))
	require.NoError(t, err)

	// "ip: string" expands to a bare type rule
	assert.Equal(t, entity.FieldRule{Type: entity.TypeString}, cfg.Entities[0].Fields["ip"])
	assert.Equal(t, entity.FieldRule{Type: entity.TypeInteger}, cfg.Entities[1].Fields["id"])
}

func TestLoadedEntitiesBuildARegistry(t *testing.T) {
	cfg, err := Load(writeConfig(t, fullConfig))
	require.NoError(t, err)

	registry, err := entity.NewRegistry(cfg.Entities...)
	require.NoError(t, err)

	_, ok := registry.Get("sessions")
	assert.True(t, ok, "unnamed entity is served under its table name")
	_, ok = registry.Get("people")
	assert.True(t, ok)
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.ListenAddr)
	assert.Equal(t, ":9100", cfg.Metrics.ListenAddr)
	assert.False(t, cfg.Metrics.Enabled)
	assert.Empty(t, cfg.Entities)
	assert.Empty(t, cfg.Postgres)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("RESTQ_SERVER_LISTENADDR", ":7070")

	cfg, err := Load(writeConfig(t, fullConfig))
	require.NoError(t, err)
	assert.Equal(t, ":7070", cfg.Server.ListenAddr)
}

func TestLoadMalformedYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "server: ["))
	require.Error(t, err)
}
