package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-openapi/strfmt"
	"github.com/spf13/cobra"

	"github.com/FrithiofJensen/openproject/client"
)

func parseSince(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	dt, err := strfmt.ParseDateTime(raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("--since: %w", err)
	}
	return time.Time(dt), nil
}

func newIndexCmd(g *globals) *cobra.Command {
	var filter string
	cmd := &cobra.Command{
		Use:   "index SUBJECT_ID",
		Short: "Render the full activity feed of a subject",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := g.client().Index(cmd.Context(), args[0], client.Filter(filter))
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().StringVarP(&filter, "filter", "f", "", "all | only_comments | only_changes")
	return cmd
}

func newSyncCmd(g *globals) *cobra.Command {
	var since, filter, sorting string
	cmd := &cobra.Command{
		Use:   "sync SUBJECT_ID",
		Short: "Print the operations since a timestamp",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ts, err := parseSince(since)
			if err != nil {
				return err
			}
			out, err := g.client().Sync(cmd.Context(), args[0], client.Cursor{
				LastUpdate:    ts,
				Filter:        client.Filter(filter),
				SortDirection: client.SortDirection(sorting),
			})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().StringVarP(&since, "since", "s", "", "RFC 3339 timestamp of the last render (epoch when empty)")
	cmd.Flags().StringVarP(&filter, "filter", "f", "", "all | only_comments | only_changes")
	cmd.Flags().StringVar(&sorting, "sort", "", "asc | desc (stored preference when empty)")
	return cmd
}

func newPostCmd(g *globals) *cobra.Command {
	var notes, since string
	var noNotify bool
	cmd := &cobra.Command{
		Use:   "post SUBJECT_ID",
		Short: "Add a note to a subject",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ts, err := parseSince(since)
			if err != nil {
				return err
			}
			opts := client.CreateEntryOptions{Cursor: client.Cursor{LastUpdate: ts}}
			if noNotify {
				f := false
				opts.Notify = &f
			}
			out, err := g.client().CreateEntry(cmd.Context(), args[0], notes, opts)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().StringVarP(&notes, "notes", "n", "", "Note text (required)")
	cmd.Flags().StringVarP(&since, "since", "s", "", "Cursor timestamp for the returned operations")
	cmd.Flags().BoolVar(&noNotify, "no-notify", false, "Do not send a notification")
	_ = cmd.MarkFlagRequired("notes")
	return cmd
}

func newUpdateCmd(g *globals) *cobra.Command {
	var notes string
	cmd := &cobra.Command{
		Use:   "update SUBJECT_ID ENTRY_ID",
		Short: "Replace the notes of an entry",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := g.client().UpdateEntry(cmd.Context(), args[0], args[1], notes)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().StringVarP(&notes, "notes", "n", "", "New note text (required)")
	_ = cmd.MarkFlagRequired("notes")
	return cmd
}

func newEditCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "edit SUBJECT_ID ENTRY_ID",
		Short: "Open an edit session on an entry",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := g.client().BeginEdit(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
}

func newCancelCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel SUBJECT_ID ENTRY_ID",
		Short: "Close an edit session without saving",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := g.client().CancelEdit(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
}

func newFollowCmd(g *globals) *cobra.Command {
	var since, filter string
	cmd := &cobra.Command{
		Use:   "follow SUBJECT_ID",
		Short: "Stream operation batches until interrupted",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ts, err := parseSince(since)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			err = g.client().Subscribe(ctx, args[0], client.Cursor{LastUpdate: ts, Filter: client.Filter(filter)},
				func(msg client.StreamMessage) error {
					return printJSON(cmd.OutOrStdout(), msg)
				})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
	cmd.Flags().StringVarP(&since, "since", "s", "", "RFC 3339 timestamp to stream from (epoch when empty)")
	cmd.Flags().StringVarP(&filter, "filter", "f", "", "all | only_comments | only_changes")
	return cmd
}
