package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dgallion1/profilesite/internal/session"
)

var routesCmd = &cobra.Command{
	Use:   "routes",
	Short: "List navigation keys and their sources",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := setup()
		if err != nil {
			return err
		}
		routes, err := session.NewRoutes(cfg.Sources)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "KEY\tFORMAT\tSOURCE\tHEADING")
		for _, rt := range routes.All() {
			if rt.Welcome {
				fmt.Fprintf(tw, "%s\t-\t(welcome)\t-\n", rt.Key)
				continue
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", rt.Key, rt.Format, rt.Path, rt.Heading)
		}
		return tw.Flush()
	},
}

func init() {
	rootCmd.AddCommand(routesCmd)
}
