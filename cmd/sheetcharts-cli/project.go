package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"sheetcharts/internal/chart"
	"sheetcharts/internal/core"
)

// chartFlags are the column and kind selectors shared by project and export.
type chartFlags struct {
	x, y  string
	kind  string
	title string
}

func (f *chartFlags) register(fs *pflag.FlagSet) {
	fs.StringVarP(&f.x, "x", "x", "", "Category column (X axis)")
	fs.StringVarP(&f.y, "y", "y", "", "Measure column (Y axis)")
	fs.StringVarP(&f.kind, "kind", "k", string(chart.Bar), "Chart kind: bar, line, pie or scatter")
	fs.StringVarP(&f.title, "title", "t", core.DefaultTitle, "Chart title")
}

func requireColumns(cmd *cobra.Command) {
	_ = cmd.MarkFlagRequired("x")
	_ = cmd.MarkFlagRequired("y")
}

func newProjectCmd() *cobra.Command {
	var (
		flags  chartFlags
		asJSON bool
		pretty bool
		width  int
	)
	cmd := &cobra.Command{
		Use:   "project FILE",
		Short: "Project two columns into chart points",
		Args:  cobra.ExactArgs(1),
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

			out := cmd.OutOrStdout()
			if !asJSON {
				fmt.Fprintln(out, headerStyle.Render(fmt.Sprintf("%s by %s", flags.y, flags.x)))
				fmt.Fprintln(out, renderTextChart(points, kind, width))
				return nil
			}

			ds := chart.BuildDataset(points, kind, flags.y)
			payload := struct {
				Points []chart.Point `json:"points"`
				Config chart.Config  `json:"config"`
			}{Points: points, Config: chart.NewConfig(kind, flags.title, ds)}
			if payload.Points == nil {
				payload.Points = []chart.Point{}
			}

			enc := json.NewEncoder(out)
			if pretty {
				enc.SetIndent("", "  ")
			}
			return enc.Encode(payload)
		},
	}
	flags.register(cmd.Flags())
	requireColumns(cmd)
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print points and chart config as JSON")
	cmd.Flags().BoolVar(&pretty, "pretty", false, "Pretty-print JSON output")
	cmd.Flags().IntVarP(&width, "width", "w", 80, "Width of the text chart")
	return cmd
}
