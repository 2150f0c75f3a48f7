// Command sheetcharts-cli inspects spreadsheets and builds charts from them
// without running the server.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"sheetcharts/internal/core"
	"sheetcharts/internal/tabular"
)

var verbose bool

func main() {
	rootCmd := &cobra.Command{
		Use:   "sheetcharts-cli",
		Short: "Turn spreadsheet columns into charts",
		Long: `sheetcharts-cli reads Excel workbooks (.xlsx, .xls), projects two
columns into chart points and renders them as text, JSON, PNG or PDF.`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log progress to stderr")

	rootCmd.AddCommand(
		newInspectCmd(),
		newProjectCmd(),
		newExportCmd(),
		newBuildCmd(),
		newFetchCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadTable opens and parses a workbook from disk.
func loadTable(ctx context.Context, path string) (*tabular.Table, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("file not found: %s", path)
	}
	if err := core.ValidateUpload(path, info.Size(), 0); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	t, err := tabular.Parse(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}
