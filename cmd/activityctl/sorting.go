package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/FrithiofJensen/openproject/client"
)

func newSortCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{Use: "sort", Short: "Feed sort preference"}

	cmd.AddCommand(&cobra.Command{
		Use:   "get",
		Short: "Print the stored sort direction",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := g.client().GetSorting(cmd.Context())
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), dir)
			return err
		},
	})

	var subjectID, filter string
	setCmd := &cobra.Command{
		Use:       "set asc|desc",
		Short:     "Store the sort direction",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"asc", "desc"},
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := g.client().SetSorting(cmd.Context(), client.SortDirection(args[0]), subjectID, client.Filter(filter))
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
	setCmd.Flags().StringVar(&subjectID, "subject", "", "Also re-render this subject's feed")
	setCmd.Flags().StringVarP(&filter, "filter", "f", "", "Filter for the re-rendered feed")
	cmd.AddCommand(setCmd)
	return cmd
}
