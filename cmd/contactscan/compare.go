package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nao1215/contactscan/internal/model"
	"github.com/nao1215/contactscan/internal/report"
)

// NewCompareCmd creates the compare command.
func NewCompareCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare <host>",
		Short: "Compare the two latest crawls of a host",
		Long: `Compare shows which email addresses and phone numbers appeared or
disappeared between the two most recent stored crawls of a host.

The host is matched as stored: lowercased, with the port if the start URL
had one. A full URL is accepted and reduced to its host.

Examples:
  # Compare the latest two crawls
  contactscan compare example.com

  # Output the comparison as JSON
  contactscan compare -f json https://example.com/contact`,
		Args: cobra.ExactArgs(1),
		RunE: runCompareCmd,
	}

	cmd.Flags().StringP("format", "f", report.FormatText,
		"Output format: text, json or markdown")

	return cmd
}

// runCompareCmd executes the compare command.
func runCompareCmd(cmd *cobra.Command, args []string) error {
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return err
	}
	host, err := compareHost(args[0])
	if err != nil {
		return err
	}

	w, err := report.NewWriter(format, cmd.OutOrStdout(), getVersion())
	if err != nil {
		return err
	}

	db, err := openHistory(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	reports, err := db.LatestReports(cmd.Context(), host, 2)
	if err != nil {
		return fmt.Errorf("failed to get crawl history: %w", err)
	}
	switch len(reports) {
	case 0:
		return fmt.Errorf("%w for %s", errNoHistory, host)
	case 1:
		return fmt.Errorf("at least 2 crawls are required for comparison (found 1 for %s)", host)
	}

	// LatestReports returns the newest first.
	diff := report.NewDiff(reports[1], reports[0])
	_, err = w.WriteDiff(diff)
	return err
}

// compareHost accepts a host or a URL and returns the stored host key.
func compareHost(arg string) (string, error) {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return "", model.ErrMissingURL
	}
	req, err := model.NewCrawlRequest(arg, "")
	if err != nil {
		return "", fmt.Errorf("invalid host %q: %w", arg, err)
	}
	return req.Host(), nil
}
