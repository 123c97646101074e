package server

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/dynexia/portal/internal/auth"
	"github.com/dynexia/portal/internal/config"
	"github.com/dynexia/portal/internal/handlers"
	"github.com/dynexia/portal/internal/httpx"
	"github.com/dynexia/portal/internal/middleware"
	"github.com/dynexia/portal/internal/policy"
	"github.com/dynexia/portal/internal/services"
	"github.com/dynexia/portal/internal/storage"
)

// Deps carries everything the router wires together.
type Deps struct {
	Cfg        config.Config
	DB         *gorm.DB
	Log        *zap.Logger
	Blobs      storage.BlobStore
	Invalidate func(uid uint)
}

// NewRouter builds the full route table. Authenticated routes sit behind
// auth.Middleware (identity resolution) and auth.RequireAuth (401 on none).
func NewRouter(d Deps) http.Handler {
	g := policy.NewGate()

	invoiceSvc := services.NewInvoiceService(d.DB, d.Log)
	docSvc := services.NewDocumentService(d.DB, d.Blobs, d.Log,
		time.Duration(d.Cfg.UploadTimeoutSec)*time.Second)

	authH := handlers.NewAuthHandler(d.DB)
	authH.Invalidate = d.Invalidate
	projectH := handlers.NewProjectHandler(d.DB, g, d.Blobs, d.Log)
	milestoneH := handlers.NewMilestoneHandler(d.DB, g)
	documentH := handlers.NewDocumentHandler(d.DB, g, docSvc, d.Cfg.MaxUploadBytes)
	messageH := handlers.NewMessageHandler(d.DB, g)
	invoiceH := handlers.NewInvoiceHandler(d.DB, g, invoiceSvc)
	onboardingH := handlers.NewOnboardingHandler(d.DB, g)

	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", health)
	mux.HandleFunc("GET /healthz", health)
	mux.Handle("GET /metrics", promhttp.Handler())

	// Local file storage serves uploads directly; minio URLs are presigned.
	if fs, ok := d.Blobs.(*storage.FileStore); ok {
		mux.Handle("GET /uploads/", http.StripPrefix("/uploads/", http.FileServer(http.Dir(fs.BasePath()))))
	}

	mux.HandleFunc("POST /api/auth/register", authH.Register)
	mux.HandleFunc("POST /api/auth/login", authH.Login)
	mux.HandleFunc("POST /api/auth/logout", authH.Logout)

	private := func(h http.HandlerFunc) http.Handler {
		return auth.RequireAuth(h)
	}

	mux.Handle("GET /api/auth/me", private(authH.Me))
	mux.Handle("PUT /api/auth/password", private(authH.ChangePassword))

	mux.Handle("GET /api/projects", private(projectH.List))
	mux.Handle("POST /api/projects", private(projectH.Create))
	mux.Handle("GET /api/projects/{id}", private(projectH.Get))
	mux.Handle("PUT /api/projects/{id}", private(projectH.Update))
	mux.Handle("DELETE /api/projects/{id}", private(projectH.Delete))
	mux.Handle("POST /api/projects/{id}/team", private(projectH.AddTeamMember))
	mux.Handle("DELETE /api/projects/{id}/team/{userId}", private(projectH.RemoveTeamMember))

	mux.Handle("GET /api/projects/{id}/milestones", private(milestoneH.ListForProject))
	mux.Handle("POST /api/projects/{id}/milestones", private(milestoneH.Create))
	mux.Handle("GET /api/milestones/{id}", private(milestoneH.Get))
	mux.Handle("PUT /api/milestones/{id}", private(milestoneH.Update))
	mux.Handle("DELETE /api/milestones/{id}", private(milestoneH.Delete))

	mux.Handle("GET /api/documents", private(documentH.List))
	mux.Handle("POST /api/documents", private(documentH.Upload))
	mux.Handle("GET /api/documents/{id}", private(documentH.Get))
	mux.Handle("DELETE /api/documents/{id}", private(documentH.Delete))

	mux.Handle("GET /api/messages", private(messageH.List))
	mux.Handle("POST /api/messages", private(messageH.Create))
	mux.Handle("GET /api/messages/{id}", private(messageH.Get))
	mux.Handle("POST /api/messages/{id}/read", private(messageH.MarkRead))

	mux.Handle("GET /api/invoices", private(invoiceH.List))
	mux.Handle("POST /api/invoices", private(invoiceH.Create))
	mux.Handle("GET /api/invoices/{id}", private(invoiceH.Get))
	mux.Handle("PUT /api/invoices/{id}", private(invoiceH.Update))
	mux.Handle("DELETE /api/invoices/{id}", private(invoiceH.Delete))

	mux.Handle("GET /api/onboarding", private(onboardingH.Get))
	mux.Handle("PUT /api/onboarding", private(onboardingH.Upsert))

	var h http.Handler = mux
	h = auth.Middleware(h)
	h = middleware.Logging(d.Log)(h)
	return h
}

func health(w http.ResponseWriter, _ *http.Request) {
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
