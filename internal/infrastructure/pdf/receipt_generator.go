// Package pdf genera el comprobante de pago que acompaña la notificación de
// confirmación de una venta.
//
// Layout de la página A4:
//
//	┌─────────────────────────────────────────────────────────────┐
//	│  HEADER: Tienda              │  COMPROBANTE N° + Fecha       │
//	│  CLIENTE: Nombre + Email + Entrega                           │
//	│  TABLA: Cant | Producto | P.Unit | Desc. | Subtotal          │
//	│  TOTAL PAGADO                                                │
//	│  SEGUIMIENTO: código + QR (sólo envíos con pre-envío)        │
//	└─────────────────────────────────────────────────────────────┘
package pdf

import (
	"fmt"
	"strconv"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/code"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"

	"github.com/jhoicas/Ventas-api/internal/application/sideeffects"
	"github.com/jhoicas/Ventas-api/internal/domain/entity"
	"github.com/jhoicas/Ventas-api/pkg/money"
)

var _ sideeffects.ReceiptRenderer = (*ReceiptGenerator)(nil)

var (
	colorPrimary = &props.Color{Red: 0, Green: 70, Blue: 127}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
)

// ReceiptGenerator comprobante de pago con Maroto v2.
type ReceiptGenerator struct {
	storeName string
}

// NewReceiptGenerator construye el generador; storeName encabeza el documento.
func NewReceiptGenerator(storeName string) *ReceiptGenerator {
	return &ReceiptGenerator{storeName: storeName}
}

// Render genera el PDF y devuelve sus bytes.
func (g *ReceiptGenerator) Render(sale *entity.Sale, trackingCode string) ([]byte, error) {
	if sale == nil {
		return nil, fmt.Errorf("pdf: venta nula")
	}
	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 9}).
		WithTitle("Comprobante de pago "+sale.ID, true).
		WithAuthor(g.storeName, true).
		Build()

	m := maroto.New(cfg)

	m.AddRows(g.headerRow(sale))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))
	m.AddRows(customerRow(sale))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))

	m.AddRows(tableHeaderRow())
	m.AddRows(tableDetailRows(sale.Items)...)

	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))
	m.AddRows(totalRow(sale))

	if trackingCode != "" {
		m.AddRows(line.NewRow(3))
		m.AddRows(trackingRow(trackingCode))
	}

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: generar comprobante: %w", err)
	}
	return doc.GetBytes(), nil
}

func (g *ReceiptGenerator) headerRow(sale *entity.Sale) core.Row {
	fecha := sale.UpdatedAt
	if fecha.IsZero() {
		fecha = sale.CreatedAt
	}
	return row.New(18).Add(
		col.New(7).Add(
			text.New(g.storeName, props.Text{Style: fontstyle.Bold, Size: 13, Color: colorPrimary, Top: 1}),
		),
		col.New(5).Add(
			text.New("COMPROBANTE DE PAGO", props.Text{Style: fontstyle.Bold, Size: 8, Align: align.Right, Color: colorPrimary, Top: 1}),
			text.New("Venta N° "+sale.ID, props.Text{Style: fontstyle.Bold, Size: 12, Align: align.Right, Top: 7}),
			text.New("Fecha: "+fecha.Format("02/01/2006"), props.Text{Size: 8, Align: align.Right, Top: 14, Color: colorGray}),
		),
	)
}

func customerRow(sale *entity.Sale) core.Row {
	entrega := "Envío a domicilio"
	if sale.FulfillmentType == entity.FulfillmentRetiro {
		entrega = "Retiro en tienda"
	}
	return row.New(14).Add(
		col.New(12).Add(
			text.New("CLIENTE", props.Text{Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1}),
			text.New(nonEmpty(sale.CustomerName, "—"), props.Text{Style: fontstyle.Bold, Size: 10, Top: 6}),
			text.New(fmt.Sprintf("Email: %s   |   Entrega: %s", nonEmpty(sale.CustomerEmail, "—"), entrega),
				props.Text{Size: 8, Top: 12, Color: colorGray}),
		),
	)
}

func tableHeaderRow() core.Row {
	h := func(label string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(label, props.Text{
			Style: fontstyle.Bold, Size: 8, Align: a, Color: colorPrimary, Top: 2, Left: 1, Right: 1,
		}))
	}
	return row.New(8).Add(
		h("Cant.", 1, align.Center),
		h("Producto", 5, align.Left),
		h("Precio Unit.", 2, align.Right),
		h("Desc.", 1, align.Right),
		h("Subtotal", 3, align.Right),
	)
}

func tableDetailRows(items []entity.SaleDetail) []core.Row {
	rows := make([]core.Row, 0, len(items))
	for _, d := range items {
		rows = append(rows, row.New(7).Add(
			col.New(1).Add(text.New(strconv.FormatInt(d.Quantity, 10), props.Text{Size: 8, Align: align.Center, Top: 1})),
			col.New(5).Add(text.New(nonEmpty(d.ProductName, d.ProductID), props.Text{Size: 8, Align: align.Left, Top: 1, Left: 1})),
			col.New(2).Add(text.New(money.Format(d.UnitPrice), props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1})),
			col.New(1).Add(text.New(money.Format(d.Discount), props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1})),
			col.New(3).Add(text.New(money.Format(d.Subtotal()), props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1})),
		))
	}
	return rows
}

func totalRow(sale *entity.Sale) core.Row {
	return row.New(10).Add(
		col.New(6),
		col.New(3).Add(text.New("TOTAL PAGADO:", props.Text{
			Style: fontstyle.Bold, Size: 10, Align: align.Right, Color: colorPrimary, Right: 2, Top: 2,
		})),
		col.New(3).Add(text.New(money.Format(sale.Total), props.Text{
			Style: fontstyle.Bold, Size: 10, Align: align.Right, Color: colorPrimary, Right: 1, Top: 2,
		})),
	)
}

func trackingRow(trackingCode string) core.Row {
	return row.New(40).Add(
		col.New(4).Add(code.NewQr(trackingCode, props.Rect{Percent: 95, Center: true})),
		col.New(8).Add(
			text.New("SEGUIMIENTO DEL ENVÍO", props.Text{Style: fontstyle.Bold, Size: 9, Top: 4, Left: 3, Color: colorPrimary}),
			text.New(trackingCode, props.Text{Style: fontstyle.Bold, Size: 12, Top: 12, Left: 3}),
			text.New("Escanea el código para consultar el estado del envío.", props.Text{Size: 8, Top: 22, Left: 3, Color: colorGray}),
		),
	)
}

func nonEmpty(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}
