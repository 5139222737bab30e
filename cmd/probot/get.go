package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/aussiebroadwan/probot/pkg/envx"
	"github.com/aussiebroadwan/probot/pkg/octokit"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newGetCmd(env envx.Env, flags *rootFlags) *cobra.Command {
	var (
		output  string
		cached  bool
		headers bool
	)

	cmd := &cobra.Command{
		Use:   "get <path>",
		Short: "GET a REST API path and print the response",
		Example: `  probot get /app
  probot get repos/octocat/hello-world -o yaml
  probot get /rate_limit --include`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := flags.setup(cmd, env)
			if err != nil {
				return err
			}
			defer app.Close()

			ctx, cancel := flags.context(cmd.Context())
			defer cancel()

			client := app.Octokit().New(octokit.Options{ConditionalCache: cached})

			var body any
			resp, err := client.Get(ctx, args[0], &body)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if headers {
				fmt.Fprintf(out, "%s %s\n", resp.Proto, resp.Status)
				for _, key := range []string{"X-GitHub-Request-Id", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "ETag"} {
					if v := resp.Header.Get(key); v != "" {
						fmt.Fprintf(out, "%s: %s\n", key, v)
					}
				}
				fmt.Fprintln(out)
			}
			return writeOutput(out, output, body)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "json", "Output format (json, yaml)")
	cmd.Flags().BoolVar(&cached, "conditional-cache", false, "Revalidate responses cached in --cache-dir with ETags")
	cmd.Flags().BoolVarP(&headers, "include", "i", false, "Print the status line and rate limit headers")
	return cmd
}

// writeOutput renders data as indented JSON or YAML.
func writeOutput(w io.Writer, format string, data any) error {
	switch format {
	case "json", "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	case "yaml":
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		enc.SetIndent(2)
		return enc.Encode(data)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}
