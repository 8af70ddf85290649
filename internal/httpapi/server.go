package httpapi

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/BrandonDHaskell/Custos/server/internal/custos/service"
)

type Dependencies struct {
	Logger *log.Logger
	Addr   string
	Ledger *service.Ledger
}

type Server struct {
	httpServer *http.Server
	logger     *log.Logger
	router     chi.Router
	ledger     *service.Ledger
}

func NewServer(d Dependencies) *Server {
	s := &Server{
		logger: d.Logger,
		ledger: d.Ledger,
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(middleware.RealIP)
	r.Use(loggingMiddleware(d.Logger))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Route("/records", func(r chi.Router) {
			r.Post("/", s.handleStoreRecord)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetRecord)
				r.Put("/hash", s.handleUpdateRecordHash)
				r.Post("/lock", s.handleLockRecord)
				r.Post("/archive", s.handleArchiveRecord)
				r.Post("/access-log", s.handleLogAccess)
				r.Get("/access-log/{accessor}", s.handleGetAccessIndicator)
				r.Get("/revisions/latest", s.handleLatestRevision)
				r.Get("/revisions/{rev}", s.handleGetRevision)

				r.Post("/owner", s.handleSetRecordOwner)
				r.Get("/owner", s.handleGetRecordOwner)
				r.Post("/grants", s.handleGrantAccess)
				r.Get("/grants", s.handleListGrants)
				r.Get("/grants/{grantee}", s.handleGetGrant)
				r.Delete("/grants/{grantee}", s.handleRevokeAccess)
				r.Post("/group-grants", s.handleGrantGroupAccess)
				r.Get("/access/{user}", s.handleHasAccess)
			})
		})
		r.Get("/owners/{principal}/records", s.handleListOwnerRecords)
		r.Get("/custodians/{principal}/records", s.handleListCustodianRecords)

		r.Route("/groups", func(r chi.Router) {
			r.Post("/", s.handleCreateGroup)
			r.Get("/{id}", s.handleGetGroup)
			r.Get("/{id}/members/{member}", s.handleIsGroupMember)
			r.Put("/{id}/members/{member}", s.handleAddGroupMember)
			r.Delete("/{id}/members/{member}", s.handleRemoveGroupMember)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Post("/claim", s.handleClaimAdmin)
			r.Get("/settings", s.handleGetSettings)
			r.Put("/max-grants", s.handleSetMaxGrants)
			r.Put("/audit", s.handleToggleAudit)
		})

		r.Route("/audit", func(r chi.Router) {
			r.Get("/", s.handleListAudit)
			r.Post("/", s.handleAppendAudit)
			r.Get("/{id}", s.handleGetAudit)
		})
	})

	s.router = r
	s.httpServer = &http.Server{
		Addr:              d.Addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return s
}

func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
