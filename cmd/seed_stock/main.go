// seed_stock genera el script SQL que carga el stock inicial de product_stock a partir
// del export de inventario del punto de venta (CSV separado por ';', codificado en ISO-8859-1).
//
// Columnas esperadas: codigo;nombre;cantidad. La primera fila es el encabezado.
//
// Uso: go run ./cmd/seed_stock [ruta/inventario.csv] [salida.sql]
// Por defecto lee inventario.csv y escribe seed_stock.sql en el directorio actual.
package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

type stockRow struct {
	productID string
	name      string
	quantity  int64
}

func main() {
	csvPath, outPath := "inventario.csv", "seed_stock.sql"
	if len(os.Args) > 1 {
		csvPath = os.Args[1]
	}
	if len(os.Args) > 2 {
		outPath = os.Args[2]
	}
	f, err := os.Open(csvPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Abrir CSV: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	rows, err := readInventory(f)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Leer inventario: %v\n", err)
		os.Exit(1)
	}

	out, err := os.Create(outPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Crear archivo: %v\n", err)
		os.Exit(1)
	}
	defer out.Close()

	if err := writeSQL(out, rows); err != nil {
		fmt.Fprintf(os.Stderr, "Escribir SQL: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Generado %s: %d productos\n", outPath, len(rows))
}

// readInventory decodifica el CSV latin-1. Un código repetido suma sus cantidades.
func readInventory(r io.Reader) ([]stockRow, error) {
	cr := csv.NewReader(transform.NewReader(r, charmap.ISO8859_1.NewDecoder()))
	cr.Comma = ';'
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	byID := make(map[string]*stockRow)
	line := 0
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		line++
		if line == 1 {
			continue
		}
		if len(rec) < 3 || strings.TrimSpace(rec[0]) == "" {
			continue
		}
		qty, err := strconv.ParseInt(strings.TrimSpace(rec[2]), 10, 64)
		if err != nil || qty < 0 {
			return nil, fmt.Errorf("línea %d: cantidad inválida %q", line, rec[2])
		}
		id := strings.TrimSpace(rec[0])
		if row, ok := byID[id]; ok {
			row.quantity += qty
			continue
		}
		byID[id] = &stockRow{productID: id, name: strings.TrimSpace(rec[1]), quantity: qty}
	}

	rows := make([]stockRow, 0, len(byID))
	for _, row := range byID {
		rows = append(rows, *row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].productID < rows[j].productID })
	return rows, nil
}

func writeSQL(w io.Writer, rows []stockRow) error {
	var b strings.Builder
	b.WriteString("-- Stock inicial por producto\n")
	b.WriteString("-- Generado desde el export de inventario del punto de venta\n\n")
	if len(rows) == 0 {
		b.WriteString("-- (sin productos)\n")
		_, err := io.WriteString(w, b.String())
		return err
	}
	b.WriteString("INSERT INTO product_stock (product_id, quantity) VALUES\n")
	for i, row := range rows {
		sep := ","
		if i == len(rows)-1 {
			sep = ""
		}
		fmt.Fprintf(&b, "  ('%s', %d)%s -- %s\n", escapeSQL(row.productID), row.quantity, sep, oneLine(row.name))
	}
	b.WriteString("ON CONFLICT (product_id) DO UPDATE SET quantity = EXCLUDED.quantity, updated_at = now();\n")
	_, err := io.WriteString(w, b.String())
	return err
}

func escapeSQL(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

func oneLine(s string) string {
	return strings.NewReplacer("\n", " ", "\r", " ").Replace(s)
}
