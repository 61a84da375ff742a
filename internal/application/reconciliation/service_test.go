package reconciliation_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Ventas-api/internal/application/events"
	"github.com/jhoicas/Ventas-api/internal/application/reconciliation"
	"github.com/jhoicas/Ventas-api/internal/application/sales"
	"github.com/jhoicas/Ventas-api/internal/domain"
	"github.com/jhoicas/Ventas-api/internal/domain/entity"
	"github.com/jhoicas/Ventas-api/internal/infrastructure/memory"
)

type recordedEffects struct {
	mu  sync.Mutex
	ids []string
}

func (r *recordedEffects) Dispatch(saleID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids = append(r.ids, saleID)
}

type fixture struct {
	store   *memory.Store
	svc     *reconciliation.Service
	effects *recordedEffects
	events  *[]entity.SaleConfirmed
}

func newFixture(t *testing.T, threshold time.Duration) fixture {
	t.Helper()
	st := memory.NewStore()
	bus := events.NewLocalBus(nil)
	got := &[]entity.SaleConfirmed{}
	bus.Subscribe(entity.TopicSaleConfirmed, func(_ context.Context, p json.RawMessage) error {
		var ev entity.SaleConfirmed
		if err := json.Unmarshal(p, &ev); err != nil {
			return err
		}
		*got = append(*got, ev)
		return nil
	})
	effects := &recordedEffects{}
	ledger := sales.NewLedger(st, st.Sales(), nil)
	svc := reconciliation.NewService(ledger, bus, effects, st.Audit(), threshold, nil)
	return fixture{store: st, svc: svc, effects: effects, events: got}
}

func sale(id string, createdAt time.Time, productID string, qty int64) *entity.Sale {
	price := decimal.NewFromInt(50)
	return &entity.Sale{
		ID:        id,
		Status:    entity.SaleStatusPendiente,
		Total:     price.Mul(decimal.NewFromInt(qty)),
		Items:     []entity.SaleDetail{{ProductID: productID, Quantity: qty, UnitPrice: price}},
		CreatedAt: createdAt,
	}
}

func TestConfirmPayment_DescuentaAprobandoYEmiteEvento(t *testing.T) {
	f := newFixture(t, 7*24*time.Hour)
	f.store.PutSale(sale("100", time.Now(), "7", 2))
	f.store.SetStock("7", 10)

	out, err := f.svc.ConfirmPayment(context.Background(), "100", reconciliation.ConfirmOptions{Initiator: entity.InitiatorWebhook})
	require.NoError(t, err)

	assert.False(t, out.AlreadyApproved)
	assert.EqualValues(t, 8, f.store.StockOf("7"))
	s, _ := f.store.Sales().GetByID(context.Background(), "100")
	assert.Equal(t, entity.SaleStatusAprobado, s.Status)
	require.Len(t, *f.events, 1)
	assert.Equal(t, "100", (*f.events)[0].SaleID)
	assert.Equal(t, entity.SaleStatusAprobado, (*f.events)[0].Status)
	assert.Equal(t, []string{"100"}, f.effects.ids)
}

func TestConfirmPayment_StockInsuficienteNoCambiaNada(t *testing.T) {
	f := newFixture(t, 7*24*time.Hour)
	f.store.PutSale(sale("101", time.Now(), "8", 3))
	f.store.SetStock("8", 2)

	_, err := f.svc.ConfirmPayment(context.Background(), "101", reconciliation.ConfirmOptions{})

	var stockErr *domain.InsufficientStockError
	require.True(t, errors.As(err, &stockErr))
	assert.EqualValues(t, 2, f.store.StockOf("8"))
	s, _ := f.store.Sales().GetByID(context.Background(), "101")
	assert.Equal(t, entity.SaleStatusPendiente, s.Status)
	assert.Empty(t, *f.events)
	assert.Empty(t, f.effects.ids)
}

func TestConfirmPayment_SegundaLlamadaEsIdempotente(t *testing.T) {
	f := newFixture(t, time.Hour)
	f.store.PutSale(sale("100", time.Now(), "7", 2))
	f.store.SetStock("7", 10)

	_, err := f.svc.ConfirmPayment(context.Background(), "100", reconciliation.ConfirmOptions{})
	require.NoError(t, err)
	out, err := f.svc.ConfirmPayment(context.Background(), "100", reconciliation.ConfirmOptions{})
	require.NoError(t, err)

	assert.True(t, out.AlreadyApproved)
	assert.EqualValues(t, 8, f.store.StockOf("7"))
	assert.Len(t, *f.events, 1, "no se re-emite el evento")
	assert.Len(t, f.effects.ids, 1, "no se re-disparan efectos")
}

func TestConfirmPayment_Cancelada(t *testing.T) {
	f := newFixture(t, time.Hour)
	s := sale("100", time.Now(), "7", 1)
	s.Status = entity.SaleStatusCancelado
	f.store.PutSale(s)

	_, err := f.svc.ConfirmPayment(context.Background(), "100", reconciliation.ConfirmOptions{})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestExpireStale_VenceYAuditaLaCorrida(t *testing.T) {
	f := newFixture(t, 7*24*time.Hour)
	f.store.PutSale(sale("102", time.Now().Add(-10*24*time.Hour), "7", 1))
	f.store.PutSale(sale("103", time.Now(), "7", 1))

	report, err := f.svc.ExpireStale(context.Background(), "", entity.InitiatorScheduler)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Count)
	assert.Equal(t, []string{"102"}, report.IDs)

	s, _ := f.store.Sales().GetByID(context.Background(), "102")
	assert.Equal(t, entity.SaleStatusVencido, s.Status)

	var batch *entity.AuditEntry
	for _, e := range f.store.AuditEntries() {
		if e.Action == entity.AuditActionExpireBatch {
			batch = e
		}
	}
	require.NotNil(t, batch)
	assert.Equal(t, entity.InitiatorScheduler, batch.Initiator)
	var summary reconciliation.ExpirationReport
	require.NoError(t, json.Unmarshal(batch.After, &summary))
	assert.Equal(t, []string{"102"}, summary.IDs)
}

func TestExpireStale_SinCandidatasDevuelveListaVacia(t *testing.T) {
	f := newFixture(t, time.Hour)
	report, err := f.svc.ExpireStale(context.Background(), "admin-1", entity.InitiatorAdmin)
	require.NoError(t, err)
	assert.Zero(t, report.Count)
	assert.NotNil(t, report.IDs)
}

func TestExpireYConfirmConcurrentesSonExcluyentes(t *testing.T) {
	f := newFixture(t, time.Hour)
	f.store.PutSale(sale("100", time.Now().Add(-2*time.Hour), "7", 1))
	f.store.SetStock("7", 10)

	var wg sync.WaitGroup
	var confirmErr error
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, confirmErr = f.svc.ConfirmPayment(context.Background(), "100", reconciliation.ConfirmOptions{})
	}()
	go func() {
		defer wg.Done()
		_, _ = f.svc.ExpireStale(context.Background(), "", entity.InitiatorScheduler)
	}()
	wg.Wait()

	s, _ := f.store.Sales().GetByID(context.Background(), "100")
	switch s.Status {
	case entity.SaleStatusAprobado:
		assert.NoError(t, confirmErr)
		assert.EqualValues(t, 9, f.store.StockOf("7"))
	case entity.SaleStatusVencido:
		assert.ErrorIs(t, confirmErr, domain.ErrInvalidTransition)
		assert.EqualValues(t, 10, f.store.StockOf("7"))
	default:
		t.Fatalf("estado inesperado %s", s.Status)
	}
}

func TestApproveFromExpired_EmiteEventoYEfectos(t *testing.T) {
	f := newFixture(t, time.Hour)
	s := sale("100", time.Now().Add(-48*time.Hour), "7", 1)
	s.Status = entity.SaleStatusVencido
	f.store.PutSale(s)
	f.store.SetStock("7", 1)

	out, err := f.svc.ApproveFromExpired(context.Background(), "100", reconciliation.ConfirmOptions{Actor: "admin-1", Initiator: entity.InitiatorAdmin})
	require.NoError(t, err)
	assert.Equal(t, entity.SaleStatusAprobado, out.Status)
	assert.Len(t, *f.events, 1)
	assert.Equal(t, []string{"100"}, f.effects.ids)
}
