package main

import (
	"github.com/spf13/cobra"
)

func newSubjectCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{Use: "subject", Short: "Subject operations"}

	// create
	var id, title string
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a subject",
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := g.client().CreateSubject(cmd.Context(), id, title)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
	createCmd.Flags().StringVar(&id, "id", "", "Subject ID (generated when empty)")
	createCmd.Flags().StringVarP(&title, "title", "t", "", "Title (required)")
	_ = createCmd.MarkFlagRequired("title")
	cmd.AddCommand(createCmd)

	// get
	getCmd := &cobra.Command{
		Use:   "get SUBJECT_ID",
		Short: "Get subject by ID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := g.client().GetSubject(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
	cmd.AddCommand(getCmd)
	return cmd
}
