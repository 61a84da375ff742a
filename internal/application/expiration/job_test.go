package expiration

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Ventas-api/internal/application/reconciliation"
	"github.com/jhoicas/Ventas-api/internal/domain/entity"
)

type expirerMock struct{ mock.Mock }

func (m *expirerMock) ExpireStale(ctx context.Context, actor, initiator string) (reconciliation.ExpirationReport, error) {
	args := m.Called(ctx, actor, initiator)
	return args.Get(0).(reconciliation.ExpirationReport), args.Error(1)
}

func TestNewJob_ValidaZonaYExpresion(t *testing.T) {
	_, err := NewJob(&expirerMock{}, Config{Spec: "0 * * * *", Timezone: "Marte/Olympus"}, nil)
	assert.Error(t, err)

	_, err = NewJob(&expirerMock{}, Config{Spec: "cada hora", Timezone: "UTC"}, nil)
	assert.Error(t, err)

	j, err := NewJob(&expirerMock{}, Config{Spec: "0 * * * *", Timezone: "America/Bogota"}, nil)
	require.NoError(t, err)
	next := j.Next()
	assert.True(t, next.IsZero(), "sin arrancar no hay próximo disparo calculado")
}

func TestTick_UsaIniciadorScheduler(t *testing.T) {
	m := &expirerMock{}
	m.On("ExpireStale", mock.Anything, "", entity.InitiatorScheduler).
		Return(reconciliation.ExpirationReport{Count: 1, IDs: []string{"102"}}, nil).Once()
	j, err := NewJob(m, Config{Spec: "@every 1h", Timezone: "UTC", Timeout: time.Second}, nil)
	require.NoError(t, err)

	j.tick()
	m.AssertExpectations(t)
}

func TestTick_ErrorNoPropaga(t *testing.T) {
	m := &expirerMock{}
	m.On("ExpireStale", mock.Anything, mock.Anything, mock.Anything).
		Return(reconciliation.ExpirationReport{}, errors.New("db caída"))
	j, err := NewJob(m, Config{Spec: "@every 1h", Timezone: "UTC"}, nil)
	require.NoError(t, err)

	assert.NotPanics(t, j.tick)
}

func TestRunOnce_PropagaIniciador(t *testing.T) {
	m := &expirerMock{}
	m.On("ExpireStale", mock.Anything, "admin-1", entity.InitiatorAdmin).
		Return(reconciliation.ExpirationReport{IDs: []string{}}, nil)
	j, err := NewJob(m, Config{Spec: "@every 1h", Timezone: "UTC"}, nil)
	require.NoError(t, err)

	report, err := j.RunOnce(context.Background(), "admin-1", entity.InitiatorAdmin)
	require.NoError(t, err)
	assert.Zero(t, report.Count)
}

func TestStartStop(t *testing.T) {
	j, err := NewJob(&expirerMock{}, Config{Spec: "@every 1h", Timezone: "UTC"}, nil)
	require.NoError(t, err)
	j.Start()
	assert.False(t, j.Next().IsZero())
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	j.Stop(ctx)
}
