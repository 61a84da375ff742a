package inventory

import (
	"sort"

	"github.com/jhoicas/Ventas-api/internal/domain"
	"github.com/jhoicas/Ventas-api/internal/domain/entity"
)

// Requirement cantidad total a descontar de un producto.
type Requirement struct {
	ProductID string
	Quantity  int64
}

// Requirements agrupa las líneas por producto y las ordena por ProductID.
// El orden fijo evita interbloqueos cuando dos confirmaciones bloquean filas de stock.
func Requirements(items []entity.SaleDetail) []Requirement {
	byProduct := make(map[string]int64, len(items))
	for _, it := range items {
		byProduct[it.ProductID] += it.Quantity
	}
	out := make([]Requirement, 0, len(byProduct))
	for id, qty := range byProduct {
		out = append(out, Requirement{ProductID: id, Quantity: qty})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out
}

// Shortages compara requerimientos contra el stock disponible y devuelve
// un *domain.InsufficientStockError con todos los faltantes, o nil.
func Shortages(reqs []Requirement, available map[string]int64) error {
	var short []domain.StockShortage
	for _, r := range reqs {
		if have := available[r.ProductID]; have < r.Quantity {
			short = append(short, domain.StockShortage{ProductID: r.ProductID, Requested: r.Quantity, Available: have})
		}
	}
	if len(short) > 0 {
		return &domain.InsufficientStockError{Items: short}
	}
	return nil
}
