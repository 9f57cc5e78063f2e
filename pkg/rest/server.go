package rest

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/restq/restq/pkg/entity"
	"github.com/restq/restq/pkg/httputil"
	"github.com/restq/restq/pkg/pgx"
)

// Server turns a registry of entity bindings into HTTP handlers.
type Server struct {
	registry *entity.Registry
	logger   *zap.Logger
	conn     func(pool string) (pgx.Conn, error)
}

// Option configures a Server.
type Option func(*Server)

// WithLogger replaces the default production logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// WithConnSource replaces how a binding's pool name resolves to a
// connection. Tests use it to run handlers against a fake.
func WithConnSource(fn func(pool string) (pgx.Conn, error)) Option {
	return func(s *Server) { s.conn = fn }
}

// NewServer builds a Server executing on pools. The empty pool name resolves
// to the manager's active pool.
func NewServer(registry *entity.Registry, pools *pgx.PoolManager, opts ...Option) *Server {
	s := &Server{
		registry: registry,
		logger:   zap.Must(zap.NewProduction()),
	}
	if pools != nil {
		s.conn = func(name string) (pgx.Conn, error) {
			if name == "" {
				return pools.Active()
			}
			return pools.Get(name)
		}
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Mount registers the index, the health probe, and every entity's routes on
// router. The literal /schema segment outranks the {id} wildcard in the mux,
// so schema introspection shadows a record whose key is "schema".
func (s *Server) Mount(router *httputil.Router) {
	router.Handle("GET /{$}", http.HandlerFunc(s.handleIndex))
	router.Handle("GET /healthz", http.HandlerFunc(s.handleHealthz))
	for _, b := range s.registry.List() {
		s.mountEntity(router, b)
	}
}

func (s *Server) mountEntity(router *httputil.Router, b *entity.Binding) {
	base := "/" + b.Name

	router.Handle("GET "+base+"/schema", instrument(b.Name, "schema", s.handleSchema(b)))
	router.Handle("GET "+base, instrument(b.Name, "list", s.handleList(b)))
	router.Handle("GET "+base+"/{id}", instrument(b.Name, "read", s.handleRead(b)))
	router.Handle("POST "+base, instrument(b.Name, "create", s.handleCreate(b)))
	router.Handle("PATCH "+base+"/{id}", instrument(b.Name, "update", s.handleUpdateOne(b)))
	router.Handle("PATCH "+base, instrument(b.Name, "update_many", s.handleUpdateMany(b)))
	router.Handle("PUT "+base+"/{id}", instrument(b.Name, "replace", s.handleReplace(b)))
	router.Handle("DELETE "+base+"/{id}", instrument(b.Name, "delete", s.handleDeleteOne(b)))
	router.Handle("DELETE "+base, instrument(b.Name, "delete_many", s.handleDeleteMany(b)))
}

type entityInfo struct {
	Name       string `json:"name"`
	Table      string `json:"table"`
	PrimaryKey string `json:"primaryKey"`
	Path       string `json:"path"`
	Schema     string `json:"schema"`
}

// handleIndex lists the mounted entities and where to find them.
func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	bindings := s.registry.List()
	infos := make([]entityInfo, len(bindings))
	for i, b := range bindings {
		infos[i] = entityInfo{
			Name:       b.Name,
			Table:      b.Table,
			PrimaryKey: b.PrimaryKey,
			Path:       "/" + b.Name,
			Schema:     "/" + b.Name + "/schema",
		}
	}
	respondData(w, http.StatusOK, infos)
}

// handleHealthz pings the active pool.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	conn, err := s.conn("")
	if err != nil {
		s.respondError(w, r, Unavailable("no active pool"))
		return
	}
	var one int
	if err := conn.QueryRow(r.Context(), "SELECT 1").Scan(&one); err != nil {
		s.respondError(w, r, Unavailable("database unreachable"))
		return
	}
	respondData(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleSchema serves the entity's introspection document.
func (s *Server) handleSchema(b *entity.Binding) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		respondData(w, http.StatusOK, b.Schema())
	})
}
