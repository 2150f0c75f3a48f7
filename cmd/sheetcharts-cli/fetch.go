package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	gsheet "sheetcharts/internal/sheets/google"
	"sheetcharts/internal/tabular"
)

func newFetchCmd() *cobra.Command {
	var (
		credentials string
		out         string
	)
	cmd := &cobra.Command{
		Use:   "fetch SPREADSHEET",
		Short: "Download the first sheet of a Google spreadsheet as .xlsx",
		Long: `fetch reads the first sheet of a Google spreadsheet (URL or ID) with a
service account and saves it as a workbook the other commands can read.
Credentials default to GOOGLE_SERVICE_ACCOUNT_JSON, then the --credentials
file, then GOOGLE_APPLICATION_CREDENTIALS.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if credentials == "" {
				credentials = os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")
			}
			client, err := gsheet.New(cmd.Context(), gsheet.Credentials{
				JSON: os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"),
				File: credentials,
			})
			if err != nil {
				return err
			}

			t, title, err := client.ReadTable(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			data, err := tabular.EncodeXLSX(t)
			if err != nil {
				return err
			}
			if out == "" {
				if title == "" {
					title = "sheet"
				}
				out = title + ".xlsx"
			}
			if err := os.WriteFile(out, data, 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "saved %q (%d rows) to %s\n", title, len(t.Rows), out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&credentials, "credentials", "c", "", "Service account JSON file")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file (default: <spreadsheet title>.xlsx)")
	return cmd
}
