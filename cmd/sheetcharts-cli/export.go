package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"sheetcharts/internal/chart"
	"sheetcharts/internal/export"
)

func newExportCmd() *cobra.Command {
	var (
		flags chartFlags
		out   string
	)
	cmd := &cobra.Command{
		Use:   "export FILE",
		Short: "Render a chart to PNG or PDF",
		Long: `export projects two columns of FILE and writes the chart to --out.
The output format follows the extension of --out (.png or .pdf).`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := chart.ParseKind(flags.kind)
			if err != nil {
				return err
			}
			t, err := loadTable(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			points, err := chart.Project(t, flags.x, flags.y)
			if err != nil {
				return err
			}
			ds := chart.BuildDataset(points, kind, flags.y)
			if err := writeChart(cmd.Context(), out, ds, kind, flags.title); err != nil {
				return err
			}
			if verbose {
				fmt.Fprintf(cmd.ErrOrStderr(), "wrote %d points to %s\n", len(points), out)
			}
			return nil
		},
	}
	flags.register(cmd.Flags())
	requireColumns(cmd)
	cmd.Flags().StringVarP(&out, "out", "o", "chart.png", "Output file (.png or .pdf)")
	return cmd
}

// writeChart renders ds to path in the format named by its extension.
func writeChart(ctx context.Context, path string, ds chart.Dataset, kind chart.Kind, title string) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		if err := export.PNG(f, ds, kind, title); err != nil {
			f.Close()
			return fmt.Errorf("render png: %w", err)
		}
		return f.Close()
	case ".pdf":
		if err := export.PDF(ctx, path, ds, kind, title); err != nil {
			return fmt.Errorf("render pdf: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unsupported output %q: use .png or .pdf", path)
	}
}
