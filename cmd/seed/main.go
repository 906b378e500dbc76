// seed prepara una base de datos de desarrollo: crea el esquema de
// facturación si no existe y registra un emisor de prueba con sus series
// de numeración (F001, B001, FC01, FD01).
//
// Uso: go run ./cmd/seed
// Lee la conexión de DATABASE_URL / DB_* igual que cmd/api. Es idempotente:
// correrlo de nuevo no duplica datos ni toca correlativos ya consumidos.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/luisvera/facturacion-pe/internal/infrastructure/postgres"
	"github.com/luisvera/facturacion-pe/pkg/config"
)

// IDs fijos para que el seed sea re-ejecutable.
const (
	demoTenantID = "11111111-1111-4111-8111-111111111111"
	demoRUC      = "20131312955"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS tenants (
		id              TEXT PRIMARY KEY,
		ruc             TEXT NOT NULL UNIQUE,
		legal_name      TEXT NOT NULL,
		commercial_name TEXT,
		address         TEXT,
		ubigeo          TEXT,
		district        TEXT,
		province        TEXT,
		department      TEXT,
		email           TEXT,
		is_active       BOOLEAN NOT NULL DEFAULT TRUE,
		created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at      TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS invoice_series (
		id               TEXT PRIMARY KEY,
		tenant_id        TEXT NOT NULL REFERENCES tenants(id),
		doc_type         TEXT NOT NULL,
		serie            TEXT NOT NULL,
		last_correlative BIGINT NOT NULL DEFAULT 0,
		is_active        BOOLEAN NOT NULL DEFAULT TRUE,
		created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (tenant_id, serie)
	)`,
	`CREATE TABLE IF NOT EXISTS invoices (
		id                    TEXT PRIMARY KEY,
		tenant_id             TEXT NOT NULL REFERENCES tenants(id),
		order_id              TEXT,
		doc_type              TEXT NOT NULL,
		serie                 TEXT NOT NULL,
		correlative           BIGINT NOT NULL,
		issuer_ruc            TEXT NOT NULL,
		issuer_name           TEXT NOT NULL,
		customer_doc_type     TEXT NOT NULL,
		customer_doc_num      TEXT NOT NULL,
		customer_name         TEXT NOT NULL,
		customer_email        TEXT,
		currency              TEXT NOT NULL,
		subtotal              NUMERIC(14,2) NOT NULL,
		igv                   NUMERIC(14,2) NOT NULL,
		total                 NUMERIC(14,2) NOT NULL,
		reference_id          TEXT,
		reference_doc_type    TEXT,
		reference_serie       TEXT,
		reference_correlative BIGINT,
		reference_reason      TEXT,
		gateway_ticket        TEXT,
		gateway_status        TEXT NOT NULL DEFAULT 'pending',
		gateway_response      TEXT,
		gateway_error         TEXT,
		sent_at               TIMESTAMPTZ,
		processed_at          TIMESTAMPTZ,
		issued_at             TIMESTAMPTZ NOT NULL,
		created_at            TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at            TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (tenant_id, serie, correlative)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_invoices_gateway_status
		ON invoices (gateway_status, created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_invoices_tenant_created
		ON invoices (tenant_id, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS invoice_items (
		id         TEXT PRIMARY KEY,
		invoice_id TEXT NOT NULL REFERENCES invoices(id),
		sku        TEXT,
		description TEXT NOT NULL,
		unit_price NUMERIC(14,2) NOT NULL,
		quantity   NUMERIC(14,3) NOT NULL,
		subtotal   NUMERIC(14,2) NOT NULL
	)`,
}

// Series del emisor de prueba: factura, boleta y las notas asociadas.
var demoSeries = []struct {
	id      string
	docType string
	serie   string
}{
	{"22222222-2222-4222-8222-222222222201", "01", "F001"},
	{"22222222-2222-4222-8222-222222222202", "03", "B001"},
	{"22222222-2222-4222-8222-222222222203", "07", "FC01"},
	{"22222222-2222-4222-8222-222222222204", "08", "FD01"},
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Cargar configuración: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Conectar a Postgres: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	for _, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			fmt.Fprintf(os.Stderr, "Crear esquema: %v\n", err)
			os.Exit(1)
		}
	}

	const insertTenant = `
		INSERT INTO tenants (id, ruc, legal_name, commercial_name, address, ubigeo, district, province, department, email)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (ruc) DO UPDATE SET legal_name = EXCLUDED.legal_name, updated_at = now()`
	_, err = pool.Exec(ctx, insertTenant,
		demoTenantID, demoRUC,
		"COMERCIAL DEL SUR S.A.C.", "Comercial del Sur",
		"Av. Arequipa 1234, Lince", "150116", "Lince", "Lima", "Lima",
		"facturacion@comercialdelsur.pe",
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Registrar emisor de prueba: %v\n", err)
		os.Exit(1)
	}

	// ON CONFLICT DO NOTHING: nunca pisar last_correlative de una serie viva.
	const insertSeries = `
		INSERT INTO invoice_series (id, tenant_id, doc_type, serie)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (tenant_id, serie) DO NOTHING`
	for _, s := range demoSeries {
		if _, err := pool.Exec(ctx, insertSeries, s.id, demoTenantID, s.docType, s.serie); err != nil {
			fmt.Fprintf(os.Stderr, "Registrar serie %s: %v\n", s.serie, err)
			os.Exit(1)
		}
	}

	fmt.Printf("Esquema listo. Emisor %s (%s) con %d series.\n", demoRUC, demoTenantID, len(demoSeries))
}
