package httpapi

import (
	"net/http"
	"time"

	"github.com/yuqie6/MiNomina/internal/bootstrap"
	"github.com/yuqie6/MiNomina/internal/pkg/buildinfo"
)

type apiServer struct {
	core      *bootstrap.Core
	startTime time.Time
}

func newAPI(core *bootstrap.Core) *apiServer {
	return &apiServer{
		core:      core,
		startTime: time.Now(),
	}
}

func (a *apiServer) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", a.handleHealth)
	mux.HandleFunc("GET /api/migrations", a.handleMigrations)
}

func (a *apiServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	dbOK := a.core.DB.TestConnection(r.Context())
	status := http.StatusOK
	if !dbOK {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]any{
		"success":    dbOK,
		"name":       a.core.Cfg.App.Name,
		"version":    a.core.Cfg.App.Version,
		"build":      buildinfo.Version,
		"commit":     buildinfo.Commit,
		"started_at": a.startTime.Format(time.RFC3339),
		"database":   dbOK,
	})
}

type appliedMigrationDTO struct {
	Name      string `json:"name"`
	AppliedAt string `json:"applied_at"`
}

type migrationStatusDTO struct {
	Applied  []appliedMigrationDTO `json:"applied"`
	Pending  []string              `json:"pending"`
	Orphaned []string              `json:"orphaned"`
}

func (a *apiServer) handleMigrations(w http.ResponseWriter, r *http.Request) {
	st, err := a.core.Runner.Status(r.Context(), a.core.Migrations)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	dto := migrationStatusDTO{
		Applied:  make([]appliedMigrationDTO, 0, len(st.Applied)),
		Pending:  append([]string{}, st.Pending...),
		Orphaned: append([]string{}, st.Orphaned...),
	}
	for _, e := range st.Applied {
		dto.Applied = append(dto.Applied, appliedMigrationDTO{
			Name:      e.Name,
			AppliedAt: e.AppliedAt.Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data":    dto,
	})
}
