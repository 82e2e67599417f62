package main

import (
	"github.com/spf13/cobra"

	"github.com/koustreak/blindsight/internal/oracle/httporacle"
)

func newScanCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan [url]",
		Short: "Extract a database through a cookie-injectable page",
		Long: `Sends each probe in the tracking cookie of the target page and treats the
success marker in the response as true. Detects the engine, lists tables and
columns, and extracts rows.`,
		Example: `  blindsight scan https://lab.example/filter?category=Gifts \
      --tracking-id xyz --cookie session=abc --max-rows 5`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target := a.cfg.Target
			if len(args) == 1 {
				target.URL = args[0]
			}
			transport, err := httporacle.New(&target, a.log)
			if err != nil {
				return err
			}
			noProgress, _ := cmd.Flags().GetBool("no-progress")
			_, err = a.runEngine(cmd.Context(), cmd.OutOrStdout(), transport, target.URL, !noProgress)
			return err
		},
	}

	f := cmd.Flags()
	f.String("url", "", "target page")
	f.String("cookie-name", "TrackingId", "cookie carrying the payload")
	f.String("tracking-id", "", "original value of the tracking cookie")
	f.StringToString("cookie", nil, "extra cookie sent verbatim (repeatable), e.g. session=abc")
	f.StringToString("header", nil, "extra request header (repeatable), e.g. X-Forwarded-For=1.2.3.4")
	f.String("marker", "Welcome back!", "text whose presence means true")
	f.Bool("match-text", false, "match the marker against rendered page text")
	f.Bool("invert", false, "marker present means false")
	f.Bool("encode", false, "percent-encode the payload")
	f.Duration("timeout", 0, "per-request timeout")
	f.String("proxy", "", "HTTP proxy URL")
	f.BoolP("insecure", "k", false, "skip TLS verification")
	addScanFlags(f)
	return cmd
}
