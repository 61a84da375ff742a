package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var Version = "dev"

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	opts := &apiOptions{}
	root := &cobra.Command{
		Use:           "ventas-cli",
		Short:         "Operaciones de soporte sobre la conciliación de pagos",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.BaseURL, "api", envOr("VENTAS_API_URL", "http://localhost:8080"), "URL base de la API")
	root.PersistentFlags().StringVar(&opts.Token, "token", os.Getenv("VENTAS_TOKEN"), "Bearer token (o VENTAS_TOKEN)")
	root.PersistentFlags().BoolVar(&opts.JSON, "json", false, "Imprimir la respuesta JSON cruda")

	root.AddCommand(expireCmd(opts))
	root.AddCommand(salesCmd(opts))
	root.AddCommand(webhooksCmd(opts))
	root.AddCommand(tokenCmd())
	return root
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
