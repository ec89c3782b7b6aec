package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nao1215/contactscan/internal/database"
	"github.com/nao1215/contactscan/internal/model"
	"github.com/nao1215/contactscan/internal/report"
)

// defaultHistoryLimit is the number of crawls listed by default.
const defaultHistoryLimit = 20

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [report-id]",
		Short: "Show stored crawls",
		Long: `History lists the crawls stored in the local database, newest first.

With a report ID it prints that crawl as a full report. With --contact it
shows every crawl in which an email address or phone number was found.

Examples:
  # List the 20 most recent crawls
  contactscan history

  # Print one crawl as Markdown
  contactscan history -f markdown 2b6f3c1e-7d1a-4e59-9a57-3f0c5d8e9a10

  # Where was this address seen?
  contactscan history --contact info@example.com`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().IntP("limit", "n", defaultHistoryLimit,
		"Maximum number of crawls to list (0 lists all)")
	cmd.Flags().String("contact", "",
		"Find the crawls that found this email address or phone number")
	cmd.Flags().StringP("format", "f", report.FormatText,
		"Report format for a single crawl: text, json or markdown")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, args []string) error {
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}
	contact, err := cmd.Flags().GetString("contact")
	if err != nil {
		return err
	}
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return err
	}

	db, err := openHistory(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	switch {
	case len(args) == 1:
		r, err := db.GetReport(ctx, args[0])
		if err != nil {
			return fmt.Errorf("failed to get crawl %s: %w", args[0], err)
		}
		w, err := report.NewWriter(format, out, getVersion())
		if err != nil {
			return err
		}
		_, err = w.Write(r)
		return err

	case contact != "":
		sightings, err := db.FindContact(ctx, contact)
		if err != nil {
			return fmt.Errorf("failed to search history: %w", err)
		}
		return printSightings(out, contact, sightings)

	default:
		reports, err := db.ListReports(ctx, limit)
		if err != nil {
			return fmt.Errorf("failed to list crawls: %w", err)
		}
		return printHistory(out, reports)
	}
}

// printHistory lists crawl summaries, one per line.
func printHistory(out io.Writer, reports []*model.CrawlReport) error {
	if len(reports) == 0 {
		fmt.Fprintln(out, "No crawls found in the database.")
		fmt.Fprintln(out, "\nUse 'contactscan crawl <url>' to crawl a site.")
		return nil
	}

	fmt.Fprintf(out, "Crawl history (%d crawls):\n\n", len(reports))
	fmt.Fprintf(out, "  %-36s  %-19s  %-30s  %5s  %6s  %6s\n", "ID", "Date", "Host", "Pages", "Emails", "Phones")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 113))
	for _, r := range reports {
		fmt.Fprintf(out, "  %-36s  %-19s  %-30s  %5d  %6d  %6d\n",
			r.ID,
			r.FinishedAt.Local().Format("2006-01-02 15:04:05"),
			truncate(r.Host, 30),
			r.PagesVisited,
			len(r.Emails),
			len(r.Phones),
		)
	}
	fmt.Fprintln(out, "\nUse 'contactscan history <id>' to print a crawl.")
	fmt.Fprintln(out, "Use 'contactscan compare <host>' to compare the latest two crawls of a host.")
	return nil
}

// printSightings lists the crawls that found contact.
func printSightings(out io.Writer, contact string, sightings []database.Sighting) error {
	if len(sightings) == 0 {
		fmt.Fprintf(out, "%s has not been found in any stored crawl.\n", contact)
		return nil
	}

	fmt.Fprintf(out, "%s found in %d crawls:\n\n", contact, len(sightings))
	fmt.Fprintf(out, "  %-36s  %-19s  %-6s  %s\n", "Report", "Date", "Kind", "Host")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 80))
	for _, s := range sightings {
		fmt.Fprintf(out, "  %-36s  %-19s  %-6s  %s\n",
			s.ReportID,
			s.FinishedAt.Local().Format("2006-01-02 15:04:05"),
			s.Kind,
			s.Host,
		)
	}
	return nil
}

// truncate shortens s to n runes, marking the cut with "...".
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}
