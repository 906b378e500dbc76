package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/luisvera/facturacion-pe/internal/application/billing"
)

// Roles del sistema.
const (
	RoleAdmin      = "admin"
	RoleFacturador = "facturador"
	RoleConsulta   = "consulta"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	IssueUC   *billing.IssueInvoiceUseCase
	Submitter *billing.GatewaySubmitter
	PDFUC     *billing.PDFUseCase
	SeriesUC  *billing.SeriesUseCase
	JWTSecret string
}

// Router registra las rutas de la API. Todas las rutas son protegidas: el
// tenant del token delimita lo que cada petición puede ver y emitir.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api", AuthMiddleware(deps.JWTSecret))

	emite := RequireRole(RoleAdmin, RoleFacturador)
	lee := RequireRole(RoleAdmin, RoleFacturador, RoleConsulta)

	// Series de numeración
	series := api.Group("/series")
	seriesHandler := NewSeriesHandler(deps.SeriesUC)
	series.Post("/", RequireRole(RoleAdmin), seriesHandler.Create)
	series.Get("/", lee, seriesHandler.List)
	series.Get("/:serie", lee, seriesHandler.Get)
	series.Post("/:serie/activate", RequireRole(RoleAdmin), seriesHandler.Activate)
	series.Post("/:serie/deactivate", RequireRole(RoleAdmin), seriesHandler.Deactivate)

	// Comprobantes
	invoices := api.Group("/invoices")
	invoiceHandler := NewInvoiceHandler(deps.IssueUC, deps.Submitter, deps.PDFUC)
	invoices.Post("/", emite, invoiceHandler.Issue)
	invoices.Post("/reconcile", emite, invoiceHandler.Reconcile)
	invoices.Get("/", lee, invoiceHandler.List)
	invoices.Get("/:id", lee, invoiceHandler.GetByID)
	invoices.Get("/:id/pdf", lee, invoiceHandler.DownloadPDF)
	invoices.Post("/:id/notes", emite, invoiceHandler.IssueNote)
	invoices.Post("/:id/submit", emite, invoiceHandler.Resubmit)
	invoices.Post("/:id/refresh", emite, invoiceHandler.Refresh)
}
