package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/FrithiofJensen/openproject/client"
)

type globals struct {
	api     string
	key     string
	timeout time.Duration
}

func envOr(name, def string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return def
}

func (g *globals) client() *client.Client {
	return client.New(g.api, g.key, client.WithHTTPTimeout(g.timeout))
}

func printJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newRootCmd() *cobra.Command {
	g := &globals{}
	root := &cobra.Command{
		Use:           "activityctl",
		Short:         "CLI client for the activity feed service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&g.api, "api", "a", envOr("ACTIVITY_API_URL", "http://localhost:8080"), "Activity service base URL")
	root.PersistentFlags().StringVarP(&g.key, "key", "k", envOr("ACTIVITY_API_KEY", client.DevAPIKey), "API key")
	root.PersistentFlags().DurationVar(&g.timeout, "timeout", 30*time.Second, "HTTP timeout per request")

	root.AddCommand(
		newSubjectCmd(g),
		newIndexCmd(g),
		newSyncCmd(g),
		newPostCmd(g),
		newUpdateCmd(g),
		newEditCmd(g),
		newCancelCmd(g),
		newSortCmd(g),
		newFollowCmd(g),
	)
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
