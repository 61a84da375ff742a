// Package sale contiene las reglas del ciclo de vida de la venta: transiciones válidas,
// vencimiento por antigüedad e invariantes de líneas y total.
package sale

import (
	"time"

	"github.com/jhoicas/Ventas-api/internal/domain"
	"github.com/jhoicas/Ventas-api/internal/domain/entity"
)

// transitions tabla de aristas permitidas. vencido → aprobado es la única
// arista que sale de un estado terminal y sólo la usa un administrador.
var transitions = map[entity.SaleStatus][]entity.SaleStatus{
	entity.SaleStatusPendiente: {entity.SaleStatusAprobado, entity.SaleStatusCancelado, entity.SaleStatusVencido},
	entity.SaleStatusVencido:   {entity.SaleStatusAprobado},
}

// CanTransition indica si from → to es una arista del grafo de estados.
func CanTransition(from, to entity.SaleStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ConfirmDecision resultado de evaluar una confirmación de pago.
type ConfirmDecision int

const (
	ConfirmApply        ConfirmDecision = iota // pendiente: descontar stock y aprobar
	ConfirmAlreadyDone                         // aprobado: no-op idempotente
)

// DecideConfirm evalúa la confirmación desde el estado actual.
// aprobado es éxito idempotente; cancelado y vencido son transiciones inválidas
// (vencido sólo se recupera con ApproveFromExpired).
func DecideConfirm(current entity.SaleStatus) (ConfirmDecision, error) {
	switch current {
	case entity.SaleStatusPendiente:
		return ConfirmApply, nil
	case entity.SaleStatusAprobado:
		return ConfirmAlreadyDone, nil
	default:
		return 0, domain.ErrInvalidTransition
	}
}

// CheckApproveFromExpired valida la arista de recuperación administrativa.
func CheckApproveFromExpired(current entity.SaleStatus) error {
	if current != entity.SaleStatusVencido {
		return domain.ErrInvalidTransition
	}
	return nil
}

// CheckCancel valida la cancelación manual (sólo desde pendiente).
func CheckCancel(current entity.SaleStatus) error {
	if !CanTransition(current, entity.SaleStatusCancelado) {
		return domain.ErrInvalidTransition
	}
	return nil
}

// IsExpirable indica si la venta está pendiente y su antigüedad alcanzó el umbral.
func IsExpirable(s *entity.Sale, threshold time.Duration, now time.Time) bool {
	if s == nil || s.Status != entity.SaleStatusPendiente {
		return false
	}
	return !s.CreatedAt.After(ExpirationCutoff(threshold, now))
}

// ExpirationCutoff instante límite: ventas creadas en o antes de él pueden vencer.
func ExpirationCutoff(threshold time.Duration, now time.Time) time.Time {
	return now.Add(-threshold)
}
