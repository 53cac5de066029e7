package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/angsh-d/clinops-intel-sub000/internal/history"
	"github.com/angsh-d/clinops-intel-sub000/internal/models"
	"github.com/angsh-d/clinops-intel-sub000/internal/utils"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Browse past investigations",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent investigations",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		store, err := history.Open(a.cfg.History.Path)
		if err != nil {
			return err
		}
		defer store.Close()

		limit, _ := cmd.Flags().GetInt("limit")
		records, err := store.Recent(limit)
		if err != nil {
			return err
		}
		renderHistoryList(os.Stdout, records)
		return nil
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show <query-id>",
	Short: "Show one stored investigation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		store, err := history.Open(a.cfg.History.Path)
		if err != nil {
			return err
		}
		defer store.Close()

		rec, err := store.Get(args[0])
		if err != nil {
			return err
		}
		renderHistoryRecord(os.Stdout, rec)
		return nil
	},
}

func init() {
	historyListCmd.Flags().Int("limit", 20, "maximum records to list")
	historyCmd.AddCommand(historyListCmd, historyShowCmd)
}

func renderHistoryList(w io.Writer, records []history.Record) {
	if len(records) == 0 {
		fmt.Fprintln(w, "No investigations recorded.")
		return
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "QUERY\tSTATUS\tCONFIDENCE\tWHEN\tQUESTION")
	for _, rec := range records {
		fmt.Fprintf(tw, "%s\t%s\t%.0f%%\t%s\t%s\n",
			rec.QueryID, colorize(statusColor(rec.Status), rec.Status),
			models.ConfidencePct(rec.Confidence),
			utils.Ago(rec.StartedAt), truncate(rec.Question, 60))
	}
	tw.Flush()
}

func renderHistoryRecord(w io.Writer, rec history.Record) {
	fmt.Fprintf(w, "%s  %s\n\n",
		colorize(colorBold, rec.QueryID),
		colorize(statusColor(rec.Status), rec.Status))

	tw := newTable(w)
	fmt.Fprintf(tw, "Question:\t%s\n", rec.Question)
	if rec.SiteID != "" {
		fmt.Fprintf(tw, "Site:\t%s\n", rec.SiteID)
	}
	fmt.Fprintf(tw, "Started:\t%s\n", utils.Ago(rec.StartedAt))
	if !rec.FinishedAt.IsZero() {
		fmt.Fprintf(tw, "Took:\t%s\n", utils.HumanDuration(rec.FinishedAt.Sub(rec.StartedAt)))
	}
	fmt.Fprintf(tw, "Phases:\t%d\n", rec.Phases)
	tw.Flush()

	if rec.Error != "" {
		fmt.Fprintf(w, "\n%s %s\n", colorize(colorRed, "error:"), rec.Error)
		return
	}
	if rec.Answer != "" {
		fmt.Fprintf(w, "\n%s\n\n%s\n", colorize(colorBold, "Answer"), rec.Answer)
		fmt.Fprintf(w, "\nconfidence %.0f%%\n", models.ConfidencePct(rec.Confidence))
	}
}
