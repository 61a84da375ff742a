// Package docs registra la especificación OpenAPI de la API (generada con swag init).
package docs

import (
	_ "embed"

	"github.com/swaggo/swag"
)

// La plantilla es el mismo swagger.json que sirve la UI en /docs.
//
//go:embed swagger.json
var docTemplate string

// SwaggerInfo metadatos de la especificación.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Ventas API",
	Description:      "Conciliación de pagos de ventas: webhooks de la pasarela, confirmación, vencimiento y efectos posteriores.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
