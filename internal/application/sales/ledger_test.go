package sales_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Ventas-api/internal/application/sales"
	"github.com/jhoicas/Ventas-api/internal/domain"
	"github.com/jhoicas/Ventas-api/internal/domain/entity"
	"github.com/jhoicas/Ventas-api/internal/infrastructure/memory"
)

var now = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func newLedger(st *memory.Store) *sales.Ledger {
	return sales.NewLedger(st, st.Sales(), nil, sales.WithClock(func() time.Time { return now }))
}

func pendingSale(id string, createdAt time.Time, items ...entity.SaleDetail) *entity.Sale {
	return &entity.Sale{
		ID:        id,
		Status:    entity.SaleStatusPendiente,
		Total:     decimal.NewFromInt(1000),
		Items:     items,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}

func line(productID string, qty int64) entity.SaleDetail {
	return entity.SaleDetail{ProductID: productID, Quantity: qty, UnitPrice: decimal.NewFromInt(100)}
}

func TestConfirm_DescuentaStockYAudita(t *testing.T) {
	st := memory.NewStore()
	st.PutSale(pendingSale("100", now.Add(-time.Hour), line("p1", 2), line("p2", 1), line("p1", 1)))
	st.SetStock("p1", 10)
	st.SetStock("p2", 1)

	res, err := newLedger(st).Confirm(context.Background(), "100", sales.By{Actor: "gw", Initiator: entity.InitiatorWebhook, Note: "pago 55"})
	require.NoError(t, err)
	assert.False(t, res.AlreadyApproved)
	assert.Equal(t, entity.SaleStatusAprobado, res.Sale.Status)
	assert.EqualValues(t, 7, st.StockOf("p1"))
	assert.EqualValues(t, 0, st.StockOf("p2"))

	entries := st.AuditEntries()
	require.Len(t, entries, 1)
	assert.Equal(t, entity.AuditActionConfirm, entries[0].Action)
	assert.Equal(t, entity.InitiatorWebhook, entries[0].Initiator)
	assert.Equal(t, "pago 55", entries[0].Note)
	assert.JSONEq(t, `{"status":"pendiente"}`, string(entries[0].Before))
	assert.JSONEq(t, `{"status":"aprobado"}`, string(entries[0].After))
}

func TestConfirm_Idempotente(t *testing.T) {
	st := memory.NewStore()
	st.PutSale(pendingSale("100", now, line("p1", 2)))
	st.SetStock("p1", 5)
	l := newLedger(st)

	_, err := l.Confirm(context.Background(), "100", sales.By{})
	require.NoError(t, err)
	res, err := l.Confirm(context.Background(), "100", sales.By{})
	require.NoError(t, err)

	assert.True(t, res.AlreadyApproved)
	assert.EqualValues(t, 3, st.StockOf("p1"), "la segunda confirmación no descuenta")
	assert.Len(t, st.AuditEntries(), 1)
}

func TestConfirm_EstadosTerminalesSonTransicionInvalida(t *testing.T) {
	for _, status := range []entity.SaleStatus{entity.SaleStatusCancelado, entity.SaleStatusVencido} {
		t.Run(string(status), func(t *testing.T) {
			st := memory.NewStore()
			s := pendingSale("100", now, line("p1", 1))
			s.Status = status
			st.PutSale(s)
			st.SetStock("p1", 5)

			_, err := newLedger(st).Confirm(context.Background(), "100", sales.By{})
			assert.ErrorIs(t, err, domain.ErrInvalidTransition)
			assert.EqualValues(t, 5, st.StockOf("p1"))
			assert.Empty(t, st.AuditEntries())
		})
	}
}

func TestConfirm_VentaInexistente(t *testing.T) {
	_, err := newLedger(memory.NewStore()).Confirm(context.Background(), "nope", sales.By{})
	assert.ErrorIs(t, err, domain.ErrSaleNotFound)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestConfirm_StockInsuficienteNoDescuentaNada(t *testing.T) {
	st := memory.NewStore()
	st.PutSale(pendingSale("100", now, line("p1", 2), line("p2", 4)))
	st.SetStock("p1", 10)
	st.SetStock("p2", 3)

	_, err := newLedger(st).Confirm(context.Background(), "100", sales.By{})

	var stockErr *domain.InsufficientStockError
	require.True(t, errors.As(err, &stockErr))
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	assert.Equal(t, []domain.StockShortage{{ProductID: "p2", Requested: 4, Available: 3}}, stockErr.Items)
	assert.EqualValues(t, 10, st.StockOf("p1"))
	assert.EqualValues(t, 3, st.StockOf("p2"))

	sale, _ := st.Sales().GetByID(context.Background(), "100")
	assert.Equal(t, entity.SaleStatusPendiente, sale.Status)
}

func TestConfirm_ConcurrenciaSobreStockCompartido(t *testing.T) {
	st := memory.NewStore()
	st.PutSale(pendingSale("a", now, line("p1", 3)))
	st.PutSale(pendingSale("b", now, line("p1", 3)))
	st.SetStock("p1", 5)
	l := newLedger(st)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, id := range []string{"a", "b"} {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			_, errs[i] = l.Confirm(context.Background(), id, sales.By{})
		}(i, id)
	}
	wg.Wait()

	ok, short := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, domain.ErrInsufficientStock):
			short++
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, short)
	assert.EqualValues(t, 2, st.StockOf("p1"))
}

func TestConfirm_DuplicadoConcurrenteDescuentaUnaVez(t *testing.T) {
	st := memory.NewStore()
	st.PutSale(pendingSale("100", now, line("p1", 2)))
	st.SetStock("p1", 10)
	l := newLedger(st)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := l.Confirm(context.Background(), "100", sales.By{})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 8, st.StockOf("p1"))
	assert.Len(t, st.AuditEntries(), 1)
}

func TestExpire_RespetaUmbral(t *testing.T) {
	st := memory.NewStore()
	threshold := 72 * time.Hour
	st.PutSale(pendingSale("viejo", now.Add(-threshold), line("p1", 1)))
	st.PutSale(pendingSale("nuevo", now.Add(-threshold+time.Minute), line("p1", 1)))
	l := newLedger(st)

	ok, err := l.Expire(context.Background(), "viejo", threshold, sales.By{Initiator: entity.InitiatorScheduler})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = l.Expire(context.Background(), "nuevo", threshold, sales.By{Initiator: entity.InitiatorScheduler})
	require.NoError(t, err)
	assert.False(t, ok)

	entries := st.AuditEntries()
	require.Len(t, entries, 1)
	assert.Equal(t, entity.AuditActionExpire, entries[0].Action)
	assert.Equal(t, "viejo", entries[0].EntityID)
}

func TestExpireAll_SoloPendientesViejas(t *testing.T) {
	st := memory.NewStore()
	threshold := 72 * time.Hour
	st.PutSale(pendingSale("1", now.Add(-100*time.Hour), line("p1", 1)))
	st.PutSale(pendingSale("2", now.Add(-80*time.Hour), line("p1", 1)))
	st.PutSale(pendingSale("3", now.Add(-time.Hour), line("p1", 1)))
	approved := pendingSale("4", now.Add(-100*time.Hour), line("p1", 1))
	approved.Status = entity.SaleStatusAprobado
	st.PutSale(approved)

	ids, err := newLedger(st).ExpireAll(context.Background(), threshold, sales.By{Initiator: entity.InitiatorScheduler})
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2"}, ids)

	again, err := newLedger(st).ExpireAll(context.Background(), threshold, sales.By{Initiator: entity.InitiatorScheduler})
	require.NoError(t, err)
	assert.Empty(t, again, "una segunda corrida no encuentra nada")
	assert.Len(t, st.AuditEntries(), 2)
}

func TestApproveFromExpired_DescuentaStock(t *testing.T) {
	st := memory.NewStore()
	s := pendingSale("100", now.Add(-100*time.Hour), line("p1", 2))
	s.Status = entity.SaleStatusVencido
	st.PutSale(s)
	st.SetStock("p1", 2)

	out, err := newLedger(st).ApproveFromExpired(context.Background(), "100", sales.By{Actor: "admin-1", Initiator: entity.InitiatorAdmin, Note: "pago tardío"})
	require.NoError(t, err)
	assert.Equal(t, entity.SaleStatusAprobado, out.Status)
	assert.EqualValues(t, 0, st.StockOf("p1"))
	entries := st.AuditEntries()
	require.Len(t, entries, 1)
	assert.Equal(t, entity.AuditActionApproveFromExpired, entries[0].Action)
	assert.Equal(t, "admin-1", entries[0].Actor)
}

func TestApproveFromExpired_SoloDesdeVencido(t *testing.T) {
	st := memory.NewStore()
	st.PutSale(pendingSale("100", now, line("p1", 1)))
	st.SetStock("p1", 5)

	_, err := newLedger(st).ApproveFromExpired(context.Background(), "100", sales.By{})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestCancel(t *testing.T) {
	st := memory.NewStore()
	st.PutSale(pendingSale("100", now, line("p1", 1)))
	st.SetStock("p1", 5)
	l := newLedger(st)

	out, err := l.Cancel(context.Background(), "100", sales.By{Initiator: entity.InitiatorAdmin})
	require.NoError(t, err)
	assert.Equal(t, entity.SaleStatusCancelado, out.Status)
	assert.EqualValues(t, 5, st.StockOf("p1"))

	_, err = l.Cancel(context.Background(), "100", sales.By{Initiator: entity.InitiatorAdmin})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}
