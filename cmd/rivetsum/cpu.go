package main

import (
	"fmt"
	"runtime"
	"text/tabwriter"

	"github.com/rivetq/rivetsum/internal/cpufeat"
	"github.com/rivetq/rivetsum/pkg/checksum"
	"github.com/spf13/cobra"
)

func newCPUCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "cpu",
		Short: "Show probed capabilities and the implementation each checksum uses",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintf(w, "arch\t%s\n", runtime.GOARCH)
			for _, f := range cpufeat.Report(a.prober()) {
				fmt.Fprintf(w, "%s\t%t\n", f.Name, f.Present)
			}
			for _, k := range checksum.Kinds() {
				fmt.Fprintf(w, "%s\t%s\n", k, checksum.Implementation(k))
			}
			return w.Flush()
		},
	}
}
