package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/luisvera/facturacion-pe/internal/application/billing"
	"github.com/luisvera/facturacion-pe/internal/domain/repository"
)

var _ billing.BillingTxRunner = (*TxRunner)(nil)

// lockTimeout acota la espera por el candado de fila de la serie. Si otro
// emisor retiene el candado más de esto, la asignación falla con 55P03 y el
// caso de uso lo traduce a domain.ErrAllocationConflict (reintentable).
const lockTimeout = "5s"

// TxRunner ejecuta callbacks dentro de una transacción PostgreSQL.
type TxRunner struct {
	pool *pgxpool.Pool
}

// NewTxRunner construye el runner con el pool.
func NewTxRunner(pool *pgxpool.Pool) *TxRunner {
	return &TxRunner{pool: pool}
}

// RunBilling inicia la transacción de emisión y ejecuta fn con los repos de
// series y comprobantes atados a la misma tx. La asignación del correlativo y
// el INSERT del comprobante comparten la transacción: si fn falla, el Rollback
// revierte también el incremento del contador y la numeración queda sin hueco.
func (r *TxRunner) RunBilling(ctx context.Context, fn func(
	seriesRepo repository.SeriesRepository,
	invoiceRepo repository.InvoiceRepository,
) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// SET LOCAL aplica solo a esta transacción
	if _, err := tx.Exec(ctx, "SET LOCAL lock_timeout = '"+lockTimeout+"'"); err != nil {
		return fmt.Errorf("set lock_timeout: %w", err)
	}

	seriesRepo := NewSeriesRepository(tx)
	invoiceRepo := NewInvoiceRepository(tx)

	if err := fn(seriesRepo, invoiceRepo); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
