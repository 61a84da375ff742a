package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jhoicas/Ventas-api/pkg/jwt"
)

func expireCmd(opts *apiOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "expirar",
		Short: "Vencer ahora las ventas pendientes que superan el umbral",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := newAPIClient(opts)
			if err != nil {
				return err
			}
			raw, err := c.do(cmd.Context(), http.MethodPost, "/api/sales/expire", nil)
			if err != nil {
				return err
			}
			if opts.JSON {
				return printRaw(cmd, raw)
			}
			var r expirationReport
			if err := json.Unmarshal(raw, &r); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Ventas vencidas: %d (%d ms)\n", r.Count, r.DurationMs)
			if len(r.IDs) > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", strings.Join(r.IDs, ", "))
			}
			return nil
		},
	}
}

func salesCmd(opts *apiOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ventas",
		Short: "Operaciones manuales sobre ventas",
	}

	var note string
	confirm := &cobra.Command{
		Use:   "confirmar <id>",
		Short: "Confirmar el pago de una venta (idempotente)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return saleAction(cmd, opts, args[0], "confirm-payment", note)
		},
	}
	confirm.Flags().StringVar(&note, "nota", "", "Nota para la auditoría")

	var approveNote string
	approve := &cobra.Command{
		Use:   "aprobar-vencida <id>",
		Short: "Aprobar una venta vencida",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return saleAction(cmd, opts, args[0], "approve-from-expired", approveNote)
		},
	}
	approve.Flags().StringVar(&approveNote, "nota", "", "Nota para la auditoría")

	var cancelNote string
	cancel := &cobra.Command{
		Use:   "cancelar <id>",
		Short: "Cancelar una venta pendiente",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return saleAction(cmd, opts, args[0], "cancel", cancelNote)
		},
	}
	cancel.Flags().StringVar(&cancelNote, "nota", "", "Motivo")

	shipment := &cobra.Command{
		Use:   "reintentar-envio <id>",
		Short: "Reintentar el pre-envío de una venta aprobada",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newAPIClient(opts)
			if err != nil {
				return err
			}
			raw, err := c.do(cmd.Context(), http.MethodPost, "/api/sales/"+args[0]+"/retry-shipment", nil)
			if err != nil {
				return err
			}
			return printRaw(cmd, raw)
		},
	}

	cmd.AddCommand(confirm, approve, cancel, shipment)
	return cmd
}

func saleAction(cmd *cobra.Command, opts *apiOptions, id, action, note string) error {
	c, err := newAPIClient(opts)
	if err != nil {
		return err
	}
	raw, err := c.do(cmd.Context(), http.MethodPost, "/api/sales/"+id+"/"+action, map[string]string{"note": note})
	if err != nil {
		return err
	}
	if opts.JSON || action != "confirm-payment" {
		return printRaw(cmd, raw)
	}
	var r confirmResult
	if err := json.Unmarshal(raw, &r); err != nil {
		return err
	}
	if r.AlreadyApproved {
		fmt.Fprintf(cmd.OutOrStdout(), "Venta %s ya estaba aprobada\n", r.Sale.ID)
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Venta %s: %s\n", r.Sale.ID, r.Sale.Status)
	return nil
}

func webhooksCmd(opts *apiOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "webhooks",
		Short: "Soporte de notificaciones de la pasarela",
	}

	var limit int
	failed := &cobra.Command{
		Use:   "fallidos",
		Short: "Listar notificaciones fallidas",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := newAPIClient(opts)
			if err != nil {
				return err
			}
			raw, err := c.do(cmd.Context(), http.MethodGet, fmt.Sprintf("/api/webhooks/failed?limit=%d", limit), nil)
			if err != nil {
				return err
			}
			if opts.JSON {
				return printRaw(cmd, raw)
			}
			var recs []webhookRecord
			if err := json.Unmarshal(raw, &recs); err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTÓPICO\tRECURSO\tRECIBIDO\tREINTENTOS\tERROR")
			for _, r := range recs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n", r.ID, r.Topic, r.ResourceID,
					r.ReceivedAt.Format("2006-01-02 15:04"), r.RetryCount, r.LastError)
			}
			return w.Flush()
		},
	}
	failed.Flags().IntVarP(&limit, "limit", "n", 50, "Máximo de registros")

	retry := &cobra.Command{
		Use:   "reintentar <id>",
		Short: "Reprocesar una notificación guardada",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newAPIClient(opts)
			if err != nil {
				return err
			}
			raw, err := c.do(cmd.Context(), http.MethodPost, "/api/webhooks/retry/"+args[0], nil)
			if err != nil {
				return err
			}
			if opts.JSON {
				return printRaw(cmd, raw)
			}
			var a webhookAck
			if err := json.Unmarshal(raw, &a); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Registro %s: %s\n", a.RecordID, a.Status)
			return nil
		},
	}

	reset := &cobra.Command{
		Use:   "reiniciar <id>",
		Short: "Devolver una notificación a pending",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newAPIClient(opts)
			if err != nil {
				return err
			}
			raw, err := c.do(cmd.Context(), http.MethodPost, "/api/webhooks/reset/"+args[0], nil)
			if err != nil {
				return err
			}
			return printRaw(cmd, raw)
		},
	}

	cmd.AddCommand(failed, retry, reset)
	return cmd
}

// tokenCmd emite un token para operadores o para la cuenta del programador externo.
func tokenCmd() *cobra.Command {
	var (
		secret, subject, role, issuer string
		minutes                       int
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Generar un Bearer token firmado con JWT_SECRET",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if role != jwt.RoleAdmin && role != jwt.RoleCron {
				return fmt.Errorf("rol %q no soportado (admin|cron)", role)
			}
			tok, err := jwt.Generate(secret, subject, role, issuer, minutes)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cmd.Flags().StringVar(&secret, "secret", envOr("JWT_SECRET", ""), "Secreto HMAC (o JWT_SECRET)")
	cmd.Flags().StringVar(&subject, "sujeto", "operador", "Identificador del actor")
	cmd.Flags().StringVar(&role, "rol", jwt.RoleAdmin, "admin | cron")
	cmd.Flags().StringVar(&issuer, "issuer", envOr("JWT_ISSUER", "ventas-api"), "Emisor")
	cmd.Flags().IntVar(&minutes, "minutos", 60, "Vigencia en minutos")
	return cmd
}

func printRaw(cmd *cobra.Command, raw json.RawMessage) error {
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		_, err = cmd.OutOrStdout().Write(raw)
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
