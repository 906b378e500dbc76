package main

import (
	"context"
	"crypto/tls"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/luisvera/facturacion-pe/internal/application/billing"
	infrapdf "github.com/luisvera/facturacion-pe/internal/infrastructure/pdf"
	"github.com/luisvera/facturacion-pe/internal/infrastructure/postgres"
	infrasunat "github.com/luisvera/facturacion-pe/internal/infrastructure/sunat"
	httpRouter "github.com/luisvera/facturacion-pe/internal/interfaces/http"
	"github.com/luisvera/facturacion-pe/pkg/config"
	"github.com/luisvera/facturacion-pe/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: "info",
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("sunat_env", cfg.SUNAT.Env).
		Msg("iniciando aplicación")

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	// Repositorios sobre el pool; la emisión usa repos atados a tx vía TxRunner.
	tenantRepo := postgres.NewTenantRepository(pool)
	seriesRepo := postgres.NewSeriesRepository(pool)
	invoiceRepo := postgres.NewInvoiceRepository(pool)
	txRunner := postgres.NewTxRunner(pool)

	// Pasarela SUNAT: simulada en dev, REST real en beta/prod.
	var gateway infrasunat.DocumentGateway
	if cfg.SUNAT.Env == infrasunat.AppEnvDev || cfg.SUNAT.Env == "" {
		gateway = infrasunat.NewMockGateway()
		log.Warn().Msg("pasarela SUNAT simulada (SUNAT_ENV=dev): no se envía a SUNAT")
	} else {
		gateway = infrasunat.NewRESTClient(infrasunat.Config{
			Env:          cfg.SUNAT.Env,
			ClientID:     cfg.SUNAT.ClientID,
			ClientSecret: cfg.SUNAT.ClientSecret,
			BaseURL:      cfg.SUNAT.BaseURL,
			Timeout:      time.Duration(cfg.SUNAT.TimeoutSeconds) * time.Second,
		})
	}

	var cert tls.Certificate
	cert, err = infrasunat.LoadCertificate(cfg.SUNAT.CertPath, cfg.SUNAT.CertKeyPath, cfg.SUNAT.CertPassword)
	if err != nil {
		log.Fatal().Err(err).Msg("cargar certificado de firma")
	}
	if len(cert.Certificate) == 0 {
		log.Warn().Msg("sin certificado de firma: los XML salen sin ds:Signature (solo dev)")
	}

	submitter := billing.NewGatewaySubmitter(
		invoiceRepo, tenantRepo,
		infrasunat.NewUBLBuilder(),
		infrasunat.NewDigitalSignatureService(),
		gateway, cert, log,
	)

	issueUC := billing.NewIssueInvoiceUseCase(
		txRunner, tenantRepo, invoiceRepo, submitter, cfg.Billing.IGVRate,
	)
	seriesUC := billing.NewSeriesUseCase(seriesRepo)
	pdfUC := billing.NewPDFUseCase(invoiceRepo, tenantRepo, infrapdf.NewMarotoPDFGenerator())

	// Reconciliador: recoge pending/error y consulta processing en segundo plano.
	reconcileCtx, stopReconcile := context.WithCancel(ctx)
	defer stopReconcile()
	if cfg.Billing.ReconcileInterval > 0 {
		go runReconciler(reconcileCtx, submitter, log.WithComponent("conciliador"), time.Duration(cfg.Billing.ReconcileInterval)*time.Second)
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    cfg.App.Name,
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		IssueUC:   issueUC,
		Submitter: submitter,
		PDFUC:     pdfUC,
		SeriesUC:  seriesUC,
		JWTSecret: cfg.JWT.Secret,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")
	stopReconcile()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}

// runReconciler corre pasadas periódicas de conciliación sobre todos los
// emisores hasta que el contexto se cancele.
func runReconciler(ctx context.Context, submitter *billing.GatewaySubmitter, log *logger.Logger, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	log.Info().Dur("interval", interval).Msg("reconciliador de pasarela iniciado")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("reconciliador detenido")
			return
		case <-ticker.C:
			runCtx, cancel := context.WithTimeout(ctx, interval)
			if _, err := submitter.ReconcilePending(runCtx, "", 100); err != nil {
				log.Error().Err(err).Msg("pasada de reconciliación falló")
			}
			cancel()
		}
	}
}
