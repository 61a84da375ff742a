// Package memory driver de almacenamiento en proceso. Implementa los mismos puertos
// que el driver postgres; las transacciones se serializan con un mutex y se
// revierten con un registro de deshacer.
package memory

import (
	"context"
	"sync"

	"github.com/jhoicas/Ventas-api/internal/application/sales"
	"github.com/jhoicas/Ventas-api/internal/domain/entity"
	"github.com/jhoicas/Ventas-api/internal/domain/repository"
)

var _ sales.TxRunner = (*Store)(nil)

// Store estado compartido por todos los repositorios del driver.
type Store struct {
	txMu sync.Mutex // una transacción a la vez

	mu       sync.RWMutex
	sales    map[string]*entity.Sale
	stock    map[string]*entity.Stock
	audit    []*entity.AuditEntry
	webhooks map[string]*entity.WebhookRecord
}

// NewStore crea un almacén vacío.
func NewStore() *Store {
	return &Store{
		sales:    make(map[string]*entity.Sale),
		stock:    make(map[string]*entity.Stock),
		webhooks: make(map[string]*entity.WebhookRecord),
	}
}

// Sales repositorio de ventas fuera de transacción.
func (s *Store) Sales() repository.SaleRepository { return &saleRepo{s: s} }

// Stock repositorio de stock fuera de transacción.
func (s *Store) Stock() repository.StockRepository { return &stockRepo{s: s} }

// Audit repositorio de auditoría fuera de transacción.
func (s *Store) Audit() repository.AuditRepository { return &auditRepo{s: s} }

// Webhooks repositorio de registros de notificaciones.
func (s *Store) Webhooks() repository.WebhookRecordRepository { return &webhookRepo{s: s} }

// Run ejecuta fn con repositorios que registran cómo deshacer cada escritura.
// Si fn falla, las escrituras se revierten en orden inverso.
func (s *Store) Run(ctx context.Context, fn func(
	saleRepo repository.SaleRepository,
	stockRepo repository.StockRepository,
	auditRepo repository.AuditRepository,
) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.txMu.Lock()
	defer s.txMu.Unlock()

	undo := &undoLog{}
	if err := fn(&saleRepo{s: s, undo: undo}, &stockRepo{s: s, undo: undo}, &auditRepo{s: s, undo: undo}); err != nil {
		undo.rollback(s)
		return err
	}
	return nil
}

// PutSale inserta o reemplaza una venta (semillas y pruebas).
func (s *Store) PutSale(sale *entity.Sale) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sales[sale.ID] = cloneSale(sale)
}

// SetStock fija la cantidad disponible de un producto.
func (s *Store) SetStock(productID string, qty int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stock[productID] = &entity.Stock{ProductID: productID, Quantity: qty}
}

// StockOf cantidad actual de un producto (0 si no existe).
func (s *Store) StockOf(productID string) int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if st, ok := s.stock[productID]; ok {
		return st.Quantity
	}
	return 0
}

// AuditEntries copia de la bitácora completa en orden de inserción.
func (s *Store) AuditEntries() []*entity.AuditEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*entity.AuditEntry, 0, len(s.audit))
	for _, e := range s.audit {
		c := *e
		out = append(out, &c)
	}
	return out
}

type undoLog struct {
	steps []func(s *Store)
}

func (u *undoLog) add(step func(s *Store)) {
	if u != nil {
		u.steps = append(u.steps, step)
	}
}

func (u *undoLog) rollback(s *Store) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(u.steps) - 1; i >= 0; i-- {
		u.steps[i](s)
	}
	u.steps = nil
}

func cloneSale(in *entity.Sale) *entity.Sale {
	out := *in
	out.Items = append([]entity.SaleDetail(nil), in.Items...)
	return &out
}
