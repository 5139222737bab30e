package main

import (
	"io"
	"sort"
	"strconv"
	"time"

	"github.com/aussiebroadwan/probot/internal/probot"
	"github.com/aussiebroadwan/probot/pkg/envx"
	"github.com/aussiebroadwan/probot/pkg/octokit"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

func newRateLimitCmd(env envx.Env, flags *rootFlags) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "rate-limit",
		Short: "Show the remaining API quotas",
		Example: `  # Quotas of the app itself
  APP_ID=123 PRIVATE_KEY_PATH=app.pem probot rate-limit

  # Quotas of a token, as YAML
  GITHUB_TOKEN=ghp_xxx probot rate-limit -o yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := flags.setup(cmd, env)
			if err != nil {
				return err
			}
			defer app.Close()

			return runRateLimit(cmd, app, flags, output)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "table", "Output format (table, json, yaml)")
	return cmd
}

func runRateLimit(cmd *cobra.Command, app *probot.Probot, flags *rootFlags, output string) error {
	ctx, cancel := flags.context(cmd.Context())
	defer cancel()

	limits, err := app.Auth().RateLimit(ctx)
	if err != nil {
		return err
	}

	if output != "table" {
		return writeOutput(cmd.OutOrStdout(), output, limits)
	}
	writeRateLimitTable(cmd.OutOrStdout(), limits, time.Now())
	return nil
}

func writeRateLimitTable(w io.Writer, limits *octokit.RateLimits, now time.Time) {
	names := make([]string, 0, len(limits.Resources))
	for name := range limits.Resources {
		names = append(names, name)
	}
	sort.Strings(names)

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Resource", "Limit", "Used", "Remaining", "Resets in"})
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")
	table.SetNoWhiteSpace(true)

	for _, name := range names {
		rate := limits.Resources[name]
		table.Append([]string{
			name,
			strconv.Itoa(rate.Limit),
			strconv.Itoa(rate.Used),
			strconv.Itoa(rate.Remaining),
			max(rate.ResetAt().Sub(now), 0).Round(time.Second).String(),
		})
	}
	table.Render()
}
