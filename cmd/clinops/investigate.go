package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/angsh-d/clinops-intel-sub000/internal/history"
	"github.com/angsh-d/clinops-intel-sub000/internal/metrics"
	"github.com/angsh-d/clinops-intel-sub000/internal/models"
	"github.com/angsh-d/clinops-intel-sub000/internal/stream"
	"github.com/angsh-d/clinops-intel-sub000/internal/utils"
)

var investigateCmd = &cobra.Command{
	Use:   "investigate <question>...",
	Short: "Run an agent investigation and stream its progress",
	Long: `investigate submits a natural-language question to the backend agent
system and follows the investigation live until it completes or fails.
A successful run prints the synthesized answer and records it in local
history.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runInvestigate,
}

func init() {
	investigateCmd.Flags().String("site", "", "scope the investigation to one site")
}

func runInvestigate(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	question := strings.Join(args, " ")
	siteID, _ := cmd.Flags().GetString("site")

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		a.logger.Warn("metrics registration failed", "error", err)
	}

	store, err := history.Open(a.cfg.History.Path)
	if err != nil {
		printWarning("investigation history unavailable: %v", err)
		store = nil
	} else {
		defer store.Close()
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	started := time.Now()
	queryID, err := a.client.StartInvestigation(ctx, question, siteID)
	if err != nil {
		return err
	}
	printStep("investigation %s accepted", queryID)

	streamURL, err := a.client.StreamURL(queryID)
	if err != nil {
		return err
	}

	// The reader goroutine writes these before the terminal callback returns,
	// and Done() is closed strictly after that, so the reads below are safe.
	var (
		result    *models.InvestigationResult
		streamErr error
		phases    int
	)
	session, err := stream.Open(ctx, streamURL, stream.Handlers{
		OnPhase: func(u models.PhaseUpdate) {
			phases++
			if u.Message != "" {
				printStep("%s: %s", u.Phase, u.Message)
				return
			}
			printStep("%s", u.Phase)
		},
		OnComplete: func(r *models.InvestigationResult) {
			result = r
		},
		OnError: func(err error) {
			streamErr = err
		},
	}, stream.Options{
		HandshakeTimeout: a.cfg.Clients.Core.HandshakeTimeout,
		Invalidator:      a.client,
		Logger:           a.logger,
	})
	if err != nil {
		return fmt.Errorf("follow investigation %s: %w", queryID, err)
	}

	// Ctrl-C tears the stream down; the session then surfaces the interrupt
	// through OnError like any other premature close.
	go func() {
		select {
		case <-ctx.Done():
			session.Close()
		case <-session.Done():
		}
	}()

	<-session.Done()
	took := time.Since(started)

	record := history.Record{
		QueryID:    queryID,
		Question:   question,
		SiteID:     siteID,
		Phases:     phases,
		StartedAt:  started,
		FinishedAt: time.Now(),
	}

	if streamErr != nil {
		metrics.ObserveInvestigation(took, metrics.OutcomeError)
		record.Status = history.StatusError
		record.Error = streamErr.Error()
		saveRecord(a, store, record)
		return streamErr
	}

	metrics.ObserveInvestigation(took, metrics.OutcomeSuccess)
	record.Status = history.StatusCompleted
	record.Answer = result.Synthesis.Answer
	record.Confidence = result.Synthesis.Confidence
	saveRecord(a, store, record)

	renderResult(os.Stdout, result)
	printSuccess("completed in %s", utils.HumanDuration(took))
	return nil
}

func saveRecord(a *app, store *history.Store, rec history.Record) {
	if store == nil {
		return
	}
	if err := store.Save(rec); err != nil {
		a.logger.Warn("could not record investigation",
			"query_id", rec.QueryID,
			"error", err,
		)
	}
}

func renderResult(w io.Writer, res *models.InvestigationResult) {
	syn := res.Synthesis
	fmt.Fprintf(w, "\n%s\n\n%s\n", colorize(colorBold, "Answer"), syn.Answer)

	if len(syn.KeyFindings) > 0 {
		fmt.Fprintf(w, "\n%s\n", colorize(colorBold, "Key findings"))
		for _, finding := range syn.KeyFindings {
			fmt.Fprintf(w, "  - %s\n", finding)
		}
	}
	if len(syn.Recommendations) > 0 {
		fmt.Fprintf(w, "\n%s\n", colorize(colorBold, "Recommendations"))
		for _, rec := range syn.Recommendations {
			fmt.Fprintf(w, "  - %s\n", rec)
		}
	}
	fmt.Fprintf(w, "\nconfidence %.0f%%\n", syn.ConfidencePct())
}
