package main

import (
	"context"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/angsh-d/clinops-intel-sub000/internal/cache"
	"github.com/angsh-d/clinops-intel-sub000/internal/models"
	"github.com/angsh-d/clinops-intel-sub000/internal/repo"
	"github.com/angsh-d/clinops-intel-sub000/internal/stream"
)

func newMockServer(t *testing.T) (*httptest.Server, *repo.CoreClient) {
	t.Helper()
	srv := httptest.NewServer(buildHandler(log.New(io.Discard, "", 0)))
	t.Cleanup(srv.Close)
	client := repo.NewCoreClient(srv.URL, "", 5*time.Second, cache.New(time.Minute))
	return srv, client
}

func TestDashboardEndpointsServeClientModels(t *testing.T) {
	_, client := newMockServer(t)
	ctx := context.Background()

	summary, err := client.StudySummary(ctx)
	if err != nil {
		t.Fatalf("study summary: %v", err)
	}
	if summary.Protocol != "VRT-812-301" || summary.SubjectsEnrolled != 412 {
		t.Fatalf("unexpected summary: %+v", summary)
	}

	sites, err := client.SitesOverview(ctx)
	if err != nil {
		t.Fatalf("sites overview: %v", err)
	}
	if len(sites) != 6 {
		t.Fatalf("expected 6 sites, got %d", len(sites))
	}

	attention, err := client.AttentionSites(ctx)
	if err != nil {
		t.Fatalf("attention sites: %v", err)
	}
	if len(attention) == 0 || attention[0].SiteID != "S-204" {
		t.Fatalf("expected S-204 to lead attention list, got %+v", attention)
	}

	funnel, err := client.EnrollmentFunnel(ctx)
	if err != nil {
		t.Fatalf("enrollment funnel: %v", err)
	}
	if funnel.Randomized != 412 {
		t.Fatalf("unexpected randomized count: %d", funnel.Randomized)
	}

	financial, err := client.FinancialSummary(ctx)
	if err != nil {
		t.Fatalf("financial summary: %v", err)
	}
	if financial.VariancePct() <= 0 {
		t.Fatalf("expected an overrun, got %.1f%%", financial.VariancePct())
	}
}

func TestSiteScopedEndpoints(t *testing.T) {
	_, client := newMockServer(t)
	ctx := context.Background()

	detail, err := client.Site(ctx, "S-204")
	if err != nil {
		t.Fatalf("site detail: %v", err)
	}
	if detail.OpenQueries != 388 || len(detail.Notes) == 0 {
		t.Fatalf("unexpected S-204 detail: %+v", detail)
	}

	kri, err := client.KRITimeseries(ctx, "S-204")
	if err != nil {
		t.Fatalf("kri timeseries: %v", err)
	}
	breached := false
	for _, series := range kri.Series {
		if series.Name == "query_rate" && series.Breached() {
			breached = true
		}
	}
	if !breached {
		t.Fatalf("expected S-204 query_rate to breach, got %+v", kri.Series)
	}

	velocity, err := client.EnrollmentVelocity(ctx, "S-204")
	if err != nil {
		t.Fatalf("enrollment velocity: %v", err)
	}
	if last := velocity.Points[len(velocity.Points)-1]; last.Enrolled != 0 {
		t.Fatalf("expected stalled recent enrollment, got %+v", last)
	}

	if _, err := client.Site(ctx, "S-999"); err == nil {
		t.Fatal("expected error for unknown site")
	}

	vendor, err := client.Vendor(ctx, "VEND-02")
	if err != nil {
		t.Fatalf("vendor detail: %v", err)
	}
	if vendor.Name != "Helix Central Labs" || len(vendor.Issues) != 3 {
		t.Fatalf("unexpected vendor detail: %+v", vendor)
	}
}

func TestInvestigateRejectsBlankQuery(t *testing.T) {
	srv, _ := newMockServer(t)

	resp, err := http.Post(srv.URL+"/agents/investigate", "application/json", strings.NewReader(`{"query":"  "}`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestInvestigationStreamRunsToCompletion(t *testing.T) {
	prev := stepDelay
	stepDelay = time.Millisecond
	t.Cleanup(func() { stepDelay = prev })

	_, client := newMockServer(t)
	ctx := context.Background()

	queryID, err := client.StartInvestigation(ctx, "Why is enrollment at S-204 behind plan?", "S-204")
	if err != nil {
		t.Fatalf("start investigation: %v", err)
	}
	streamURL, err := client.StreamURL(queryID)
	if err != nil {
		t.Fatalf("stream url: %v", err)
	}

	var (
		phases    []string
		result    *models.InvestigationResult
		streamErr error
	)
	session, err := stream.Open(ctx, streamURL, stream.Handlers{
		OnPhase:    func(u models.PhaseUpdate) { phases = append(phases, u.Phase) },
		OnComplete: func(r *models.InvestigationResult) { result = r },
		OnError:    func(err error) { streamErr = err },
	}, stream.Options{Invalidator: client})
	if err != nil {
		t.Fatalf("open stream: %v", err)
	}
	<-session.Done()

	if streamErr != nil {
		t.Fatalf("unexpected stream error: %v", streamErr)
	}
	if result == nil {
		t.Fatal("expected a completion result")
	}
	if !strings.Contains(result.Synthesis.Answer, "coordinator") {
		t.Fatalf("unexpected answer: %s", result.Synthesis.Answer)
	}

	want := []string{"routing", "perceive", "reason", "plan", "act", "reflect", "synthesize"}
	if len(phases) != len(want) {
		t.Fatalf("expected %d phases, got %v", len(want), phases)
	}
	for i := range want {
		if phases[i] != want[i] {
			t.Fatalf("phase %d: expected %s, got %s", i, want[i], phases[i])
		}
	}
}

func TestInvestigationStreamFailurePath(t *testing.T) {
	prev := stepDelay
	stepDelay = time.Millisecond
	t.Cleanup(func() { stepDelay = prev })

	_, client := newMockServer(t)
	ctx := context.Background()

	queryID, err := client.StartInvestigation(ctx, "please fail while comparing sites", "")
	if err != nil {
		t.Fatalf("start investigation: %v", err)
	}
	streamURL, err := client.StreamURL(queryID)
	if err != nil {
		t.Fatalf("stream url: %v", err)
	}

	var (
		result    *models.InvestigationResult
		streamErr error
	)
	session, err := stream.Open(ctx, streamURL, stream.Handlers{
		OnComplete: func(r *models.InvestigationResult) { result = r },
		OnError:    func(err error) { streamErr = err },
	}, stream.Options{Invalidator: client})
	if err != nil {
		t.Fatalf("open stream: %v", err)
	}
	<-session.Done()

	if result != nil {
		t.Fatalf("expected no completion, got %+v", result)
	}
	if streamErr == nil || !strings.Contains(streamErr.Error(), "agent pipeline failed") {
		t.Fatalf("expected pipeline failure, got %v", streamErr)
	}
}

func TestUnknownQueryStreamsError(t *testing.T) {
	_, client := newMockServer(t)

	streamURL, err := client.StreamURL("q-nope")
	if err != nil {
		t.Fatalf("stream url: %v", err)
	}

	var streamErr error
	session, err := stream.Open(context.Background(), streamURL, stream.Handlers{
		OnError: func(err error) { streamErr = err },
	}, stream.Options{})
	if err != nil {
		t.Fatalf("open stream: %v", err)
	}
	<-session.Done()

	if streamErr == nil || !strings.Contains(streamErr.Error(), "unknown query id") {
		t.Fatalf("expected unknown query error, got %v", streamErr)
	}
}
