package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jhoicas/Ventas-api/internal/domain"
	"github.com/jhoicas/Ventas-api/internal/domain/entity"
	"github.com/jhoicas/Ventas-api/internal/domain/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seed(t *testing.T) *Store {
	t.Helper()
	st := NewStore()
	st.PutSale(&entity.Sale{
		ID:     "100",
		Status: entity.SaleStatusPendiente,
		Items:  []entity.SaleDetail{{ProductID: "p1", Quantity: 2}},
	})
	st.SetStock("p1", 10)
	return st
}

func TestRun_ErrorRevierteTodasLasEscrituras(t *testing.T) {
	st := seed(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := st.Run(ctx, func(s repository.SaleRepository, k repository.StockRepository, a repository.AuditRepository) error {
		n, err := s.UpdateStatus(ctx, "100", entity.SaleStatusPendiente, entity.SaleStatusAprobado, entity.SaleStatusPatch{})
		require.NoError(t, err)
		require.EqualValues(t, 1, n)
		require.NoError(t, k.Decrement(ctx, "p1", 2))
		require.NoError(t, a.Append(ctx, &entity.AuditEntry{EntityType: entity.AuditEntitySale, EntityID: "100"}))
		return boom
	})

	require.ErrorIs(t, err, boom)
	sale, _ := st.Sales().GetByID(ctx, "100")
	assert.Equal(t, entity.SaleStatusPendiente, sale.Status)
	assert.EqualValues(t, 10, st.StockOf("p1"))
	assert.Empty(t, st.AuditEntries())
}

func TestRun_CommitConservaEscrituras(t *testing.T) {
	st := seed(t)
	ctx := context.Background()

	err := st.Run(ctx, func(s repository.SaleRepository, k repository.StockRepository, _ repository.AuditRepository) error {
		if _, err := s.UpdateStatus(ctx, "100", entity.SaleStatusPendiente, entity.SaleStatusAprobado, entity.SaleStatusPatch{}); err != nil {
			return err
		}
		return k.Decrement(ctx, "p1", 2)
	})

	require.NoError(t, err)
	sale, _ := st.Sales().GetByID(ctx, "100")
	assert.Equal(t, entity.SaleStatusAprobado, sale.Status)
	assert.EqualValues(t, 8, st.StockOf("p1"))
}

func TestUpdateStatus_EstadoEsperadoDistintoNoAfectaFilas(t *testing.T) {
	st := seed(t)
	n, err := st.Sales().UpdateStatus(context.Background(), "100", entity.SaleStatusVencido, entity.SaleStatusAprobado, entity.SaleStatusPatch{})
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestDecrement_FallaCerradoSiQuedaNegativo(t *testing.T) {
	st := seed(t)
	err := st.Stock().Decrement(context.Background(), "p1", 11)
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	assert.EqualValues(t, 10, st.StockOf("p1"))

	err = st.Stock().Decrement(context.Background(), "desconocido", 1)
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
}

func TestListPendingCreatedBefore_IncluyeElLimite(t *testing.T) {
	st := NewStore()
	cutoff := time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC)
	st.PutSale(&entity.Sale{ID: "a", Status: entity.SaleStatusPendiente, CreatedAt: cutoff})
	st.PutSale(&entity.Sale{ID: "b", Status: entity.SaleStatusPendiente, CreatedAt: cutoff.Add(-time.Hour)})
	st.PutSale(&entity.Sale{ID: "c", Status: entity.SaleStatusPendiente, CreatedAt: cutoff.Add(time.Second)})
	st.PutSale(&entity.Sale{ID: "d", Status: entity.SaleStatusAprobado, CreatedAt: cutoff.Add(-time.Hour)})

	ids, err := st.Sales().ListPendingCreatedBefore(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, ids)
}

func TestWebhooks_ListFailedYDuplicados(t *testing.T) {
	st := NewStore()
	ctx := context.Background()
	repo := st.Webhooks()
	base := time.Now()

	require.NoError(t, repo.Create(ctx, &entity.WebhookRecord{ID: "w1", GatewayEventID: "e1", ProcessingStatus: entity.WebhookStatusProcessed, ReceivedAt: base}))
	require.NoError(t, repo.Create(ctx, &entity.WebhookRecord{ID: "w2", ProcessingStatus: entity.WebhookStatusFailed, ReceivedAt: base.Add(time.Second)}))
	require.NoError(t, repo.Create(ctx, &entity.WebhookRecord{ID: "w3", ProcessingStatus: entity.WebhookStatusFailed, ReceivedAt: base.Add(2 * time.Second)}))

	failed, err := repo.ListFailed(ctx, 10)
	require.NoError(t, err)
	require.Len(t, failed, 2)
	assert.Equal(t, "w3", failed[0].ID)

	dup, err := repo.FindProcessedByEventID(ctx, "e1")
	require.NoError(t, err)
	require.NotNil(t, dup)
	assert.Equal(t, "w1", dup.ID)

	none, err := repo.FindProcessedByEventID(ctx, "")
	require.NoError(t, err)
	assert.Nil(t, none)

	err = repo.Update(ctx, &entity.WebhookRecord{ID: "nope"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
