package postgres

import (
	"context"
	_ "embed"
	"fmt"
)

//go:embed schema.sql
var schemaSQL string

// Schema devuelve el DDL embebido (idempotente: CREATE ... IF NOT EXISTS).
func Schema() string {
	return schemaSQL
}

// EnsureSchema aplica el DDL sobre la base.
func EnsureSchema(ctx context.Context, q Querier) error {
	if _, err := q.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("aplicar schema: %w", err)
	}
	return nil
}
