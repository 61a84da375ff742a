package sideeffects_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Ventas-api/internal/application/sideeffects"
	"github.com/jhoicas/Ventas-api/internal/domain"
	"github.com/jhoicas/Ventas-api/internal/domain/entity"
	"github.com/jhoicas/Ventas-api/internal/infrastructure/memory"
)

type carrierMock struct{ mock.Mock }

func (m *carrierMock) CreatePreShipment(ctx context.Context, sale *entity.Sale) (sideeffects.Shipment, error) {
	args := m.Called(ctx, sale)
	return args.Get(0).(sideeffects.Shipment), args.Error(1)
}

type notifierMock struct{ mock.Mock }

func (m *notifierMock) SendOrderConfirmation(ctx context.Context, n sideeffects.OrderConfirmation) error {
	return m.Called(ctx, n).Error(0)
}

type receiptsMock struct{ mock.Mock }

func (m *receiptsMock) Render(sale *entity.Sale, trackingCode string) ([]byte, error) {
	args := m.Called(sale, trackingCode)
	b, _ := args.Get(0).([]byte)
	return b, args.Error(1)
}

func approvedStore(fulfillment string) *memory.Store {
	st := memory.NewStore()
	st.PutSale(&entity.Sale{ID: "100", Status: entity.SaleStatusAprobado, FulfillmentType: fulfillment, CustomerEmail: "c@x.co"})
	return st
}

func TestRun_PreEnvioYNotificacionConSeguimiento(t *testing.T) {
	st := approvedStore(entity.FulfillmentEnvio)
	carrier := &carrierMock{}
	notifier := &notifierMock{}
	receipts := &receiptsMock{}
	carrier.On("CreatePreShipment", mock.Anything, mock.Anything).Return(sideeffects.Shipment{Ref: "S-1", TrackingCode: "TRK-1"}, nil)
	receipts.On("Render", mock.Anything, "TRK-1").Return([]byte("%PDF"), nil)
	notifier.On("SendOrderConfirmation", mock.Anything, mock.MatchedBy(func(n sideeffects.OrderConfirmation) bool {
		return n.TrackingCode == "TRK-1" && string(n.Receipt) == "%PDF" && n.Sale.ID == "100"
	})).Return(nil)

	o := sideeffects.NewOrchestrator(st.Sales(), carrier, notifier, receipts, time.Second, nil)
	o.Run(context.Background(), "100")

	carrier.AssertExpectations(t)
	notifier.AssertExpectations(t)
	sale, _ := st.Sales().GetByID(context.Background(), "100")
	assert.Equal(t, "S-1", sale.ShipmentRef)
	assert.Equal(t, "TRK-1", sale.TrackingCode)
}

func TestRun_RetiroOmitePreEnvio(t *testing.T) {
	st := approvedStore(entity.FulfillmentRetiro)
	carrier := &carrierMock{}
	notifier := &notifierMock{}
	notifier.On("SendOrderConfirmation", mock.Anything, mock.Anything).Return(nil)

	sideeffects.NewOrchestrator(st.Sales(), carrier, notifier, nil, time.Second, nil).Run(context.Background(), "100")

	carrier.AssertNotCalled(t, "CreatePreShipment", mock.Anything, mock.Anything)
	notifier.AssertExpectations(t)
}

func TestRun_FalloDelTransportistaNoImpideNotificar(t *testing.T) {
	st := approvedStore(entity.FulfillmentEnvio)
	carrier := &carrierMock{}
	notifier := &notifierMock{}
	carrier.On("CreatePreShipment", mock.Anything, mock.Anything).Return(sideeffects.Shipment{}, errors.New("503"))
	notifier.On("SendOrderConfirmation", mock.Anything, mock.MatchedBy(func(n sideeffects.OrderConfirmation) bool {
		return n.TrackingCode == ""
	})).Return(nil)

	sideeffects.NewOrchestrator(st.Sales(), carrier, notifier, nil, time.Second, nil).Run(context.Background(), "100")

	notifier.AssertExpectations(t)
}

type panicCarrier struct{}

func (panicCarrier) CreatePreShipment(context.Context, *entity.Sale) (sideeffects.Shipment, error) {
	panic("nil map")
}

func TestRun_PanicoEnUnEfectoQuedaAislado(t *testing.T) {
	st := approvedStore(entity.FulfillmentEnvio)
	notifier := &notifierMock{}
	notifier.On("SendOrderConfirmation", mock.Anything, mock.Anything).Return(errors.New("smtp caído"))

	o := sideeffects.NewOrchestrator(st.Sales(), panicCarrier{}, notifier, nil, time.Second, nil)
	assert.NotPanics(t, func() { o.Run(context.Background(), "100") })
	notifier.AssertExpectations(t)
}

func TestRun_VentaNoAprobadaNoDisparaEfectos(t *testing.T) {
	st := memory.NewStore()
	st.PutSale(&entity.Sale{ID: "100", Status: entity.SaleStatusCancelado})
	carrier := &carrierMock{}
	notifier := &notifierMock{}

	sideeffects.NewOrchestrator(st.Sales(), carrier, notifier, nil, time.Second, nil).Run(context.Background(), "100")

	carrier.AssertNotCalled(t, "CreatePreShipment", mock.Anything, mock.Anything)
	notifier.AssertNotCalled(t, "SendOrderConfirmation", mock.Anything, mock.Anything)
}

func TestDispatch_EsAsincrono(t *testing.T) {
	st := approvedStore(entity.FulfillmentRetiro)
	sent := make(chan struct{})
	notifier := &notifierMock{}
	notifier.On("SendOrderConfirmation", mock.Anything, mock.Anything).Run(func(mock.Arguments) { close(sent) }).Return(nil)

	sideeffects.NewOrchestrator(st.Sales(), nil, notifier, nil, time.Second, nil).Dispatch("100")

	select {
	case <-sent:
	case <-time.After(2 * time.Second):
		t.Fatal("la notificación no se envió")
	}
}

func TestRetryShipment(t *testing.T) {
	t.Run("crea y persiste el envío", func(t *testing.T) {
		st := approvedStore(entity.FulfillmentEnvio)
		carrier := &carrierMock{}
		carrier.On("CreatePreShipment", mock.Anything, mock.Anything).Return(sideeffects.Shipment{Ref: "S-9", TrackingCode: "T-9"}, nil)

		sh, err := sideeffects.NewOrchestrator(st.Sales(), carrier, nil, nil, time.Second, nil).RetryShipment(context.Background(), "100")
		require.NoError(t, err)
		assert.Equal(t, "S-9", sh.Ref)
	})
	t.Run("ya tiene envío", func(t *testing.T) {
		st := memory.NewStore()
		st.PutSale(&entity.Sale{ID: "100", Status: entity.SaleStatusAprobado, ShipmentRef: "S-1"})
		_, err := sideeffects.NewOrchestrator(st.Sales(), &carrierMock{}, nil, nil, time.Second, nil).RetryShipment(context.Background(), "100")
		assert.ErrorIs(t, err, domain.ErrConflict)
	})
	t.Run("venta pendiente", func(t *testing.T) {
		st := memory.NewStore()
		st.PutSale(&entity.Sale{ID: "100", Status: entity.SaleStatusPendiente})
		_, err := sideeffects.NewOrchestrator(st.Sales(), &carrierMock{}, nil, nil, time.Second, nil).RetryShipment(context.Background(), "100")
		assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	})
	t.Run("transportista caído", func(t *testing.T) {
		st := approvedStore(entity.FulfillmentEnvio)
		carrier := &carrierMock{}
		carrier.On("CreatePreShipment", mock.Anything, mock.Anything).Return(sideeffects.Shipment{}, errors.New("timeout"))
		_, err := sideeffects.NewOrchestrator(st.Sales(), carrier, nil, nil, time.Second, nil).RetryShipment(context.Background(), "100")
		assert.ErrorIs(t, err, domain.ErrTransientInfra)
	})
	t.Run("inexistente", func(t *testing.T) {
		_, err := sideeffects.NewOrchestrator(memory.NewStore().Sales(), nil, nil, nil, time.Second, nil).RetryShipment(context.Background(), "x")
		assert.ErrorIs(t, err, domain.ErrSaleNotFound)
	})
}
