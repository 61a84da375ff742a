// Package expiration programa la corrida periódica que vence las ventas pendientes
// demasiado antiguas.
package expiration

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/jhoicas/Ventas-api/internal/application/reconciliation"
	"github.com/jhoicas/Ventas-api/internal/domain/entity"
	"github.com/jhoicas/Ventas-api/pkg/logger"
)

// Expirer lo que el job necesita de la reconciliación.
type Expirer interface {
	ExpireStale(ctx context.Context, actor, initiator string) (reconciliation.ExpirationReport, error)
}

// Config horario del job.
type Config struct {
	Spec     string        // expresión cron de 5 campos
	Timezone string        // zona IANA en la que se interpreta Spec
	Timeout  time.Duration // límite de cada corrida
}

// Job corrida programada. Una corrida que se solapa con la anterior se omite.
type Job struct {
	expirer Expirer
	cron    *cron.Cron
	timeout time.Duration
	log     *logger.Logger
}

// NewJob valida la zona horaria y la expresión y registra la corrida.
func NewJob(expirer Expirer, cfg Config, log *logger.Logger) (*Job, error) {
	if log == nil {
		log = logger.Nop()
	}
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("zona horaria %q: %w", cfg.Timezone, err)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	j := &Job{expirer: expirer, timeout: timeout, log: log.Component("expiration")}
	cl := cronLogger{log: j.log}
	j.cron = cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	if _, err := j.cron.AddFunc(cfg.Spec, j.tick); err != nil {
		return nil, fmt.Errorf("expresión cron %q: %w", cfg.Spec, err)
	}
	return j, nil
}

// Start arranca el programador en segundo plano.
func (j *Job) Start() {
	j.cron.Start()
	j.log.Info().Msg("job de vencimiento iniciado")
}

// Stop detiene el programador y espera la corrida en curso, hasta que ctx expire.
func (j *Job) Stop(ctx context.Context) {
	done := j.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		j.log.Warn().Msg("corrida de vencimiento aún en curso al apagar")
	}
}

// Next próximo disparo programado (cero si no hay).
func (j *Job) Next() time.Time {
	entries := j.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

// RunOnce ejecuta una corrida con el iniciador indicado.
func (j *Job) RunOnce(ctx context.Context, actor, initiator string) (reconciliation.ExpirationReport, error) {
	return j.expirer.ExpireStale(ctx, actor, initiator)
}

func (j *Job) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			j.log.Error().Interface("panic", r).Msg("corrida de vencimiento en pánico")
		}
	}()
	if _, err := j.RunOnce(ctx, "", entity.InitiatorScheduler); err != nil {
		j.log.Error().Err(err).Msg("corrida de vencimiento fallida")
	}
}

// cronLogger adapta el logger de la app a la interfaz de robfig/cron.
type cronLogger struct {
	log *logger.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
