package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/angsh-d/clinops-intel-sub000/internal/cache"
	"github.com/angsh-d/clinops-intel-sub000/internal/models"
	"github.com/angsh-d/clinops-intel-sub000/internal/repo"
)

// testServer fakes clinops-core for command-level tests. Responses are keyed
// by "METHOD /path"; anything unlisted 404s.
type testServer struct {
	mu       sync.Mutex
	requests []string
	srv      *httptest.Server
}

func newTestServer(t *testing.T, responses map[string]string) *testServer {
	t.Helper()
	ts := &testServer{}
	ts.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Method + " " + r.URL.Path
		ts.mu.Lock()
		ts.requests = append(ts.requests, key)
		ts.mu.Unlock()

		body, ok := responses[key]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}))
	t.Cleanup(ts.srv.Close)
	return ts
}

func (ts *testServer) saw(key string) bool {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	for _, r := range ts.requests {
		if r == key {
			return true
		}
	}
	return false
}

func newTestClient(ts *testServer) *repo.CoreClient {
	return repo.NewCoreClient(ts.srv.URL, "", 5*time.Second, cache.New(time.Minute))
}

func withoutColor(t *testing.T) {
	t.Helper()
	prev := noColor
	noColor = true
	t.Cleanup(func() { noColor = prev })
}

func TestFetchOverviewJoinsEndpoints(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"GET /dashboard/study-summary":     `{"protocol":"VRT-812-301","phase":"III","subjects_enrolled":412,"subjects_target":600,"sites_active":42,"budget_spent_usd":38200000,"budget_total_usd":90000000}`,
		"GET /dashboard/attention-sites":   `[{"site_id":"S-204","name":"County General","severity":"critical","reasons":["enrollment stalled"]}]`,
		"GET /dashboard/data-quality":      `{"open_queries":1284,"overdue_queries":315,"missing_pages_pct":2.4,"protocol_deviations":87}`,
		"GET /dashboard/financial-summary": `{"budget_total_usd":90000000,"forecast_usd":97400000}`,
	})

	data, err := fetchOverview(context.Background(), newTestClient(ts))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if data.Summary.Protocol != "VRT-812-301" {
		t.Fatalf("unexpected protocol: %s", data.Summary.Protocol)
	}
	if len(data.Attention) != 1 || data.Attention[0].SiteID != "S-204" {
		t.Fatalf("unexpected attention sites: %+v", data.Attention)
	}
	if data.Quality.OpenQueries != 1284 {
		t.Fatalf("unexpected open queries: %d", data.Quality.OpenQueries)
	}
	if data.Financial.ForecastUSD != 97400000 {
		t.Fatalf("unexpected forecast: %v", data.Financial.ForecastUSD)
	}

	for _, key := range []string{
		"GET /dashboard/study-summary",
		"GET /dashboard/attention-sites",
		"GET /dashboard/data-quality",
		"GET /dashboard/financial-summary",
	} {
		if !ts.saw(key) {
			t.Errorf("expected request %s", key)
		}
	}
}

func TestFetchOverviewPropagatesFailure(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"GET /dashboard/study-summary":     `{"protocol":"VRT-812-301"}`,
		"GET /dashboard/attention-sites":   `[]`,
		"GET /dashboard/financial-summary": `{}`,
		// data-quality deliberately missing, so that leg 404s
	})

	if _, err := fetchOverview(context.Background(), newTestClient(ts)); err == nil {
		t.Fatal("expected error when one endpoint fails")
	}
}

func TestRenderOverview(t *testing.T) {
	withoutColor(t)

	data := &overviewData{
		Summary: &models.StudySummary{
			Protocol:         "VRT-812-301",
			Phase:            "III",
			SubjectsEnrolled: 412,
			SubjectsTarget:   600,
			SitesActive:      42,
			BudgetSpentUSD:   38_200_000,
			BudgetTotalUSD:   90_000_000,
		},
		Attention: []models.AttentionSite{
			{SiteID: "S-101", Name: "Northside Clinic", Severity: "medium", Reasons: []string{"query backlog"}},
			{SiteID: "S-204", Name: "County General", Severity: "critical", Reasons: []string{"enrollment stalled"}},
		},
		Quality:   &models.DataQuality{OpenQueries: 1284, OverdueQueries: 315, MissingPagesPct: 2.4},
		Financial: &models.FinancialSummary{BudgetTotalUSD: 90_000_000, ForecastUSD: 97_400_000},
	}

	var sb strings.Builder
	renderOverview(&sb, data)
	out := sb.String()

	for _, want := range []string{
		"VRT-812-301",
		"412/600 subjects",
		"1284 open queries (315 overdue)",
		"+8.2%",
		"Needs attention",
		"enrollment stalled",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q, got:\n%s", want, out)
		}
	}

	// Critical sites sort above medium ones.
	if strings.Index(out, "S-204") > strings.Index(out, "S-101") {
		t.Errorf("expected S-204 before S-101, got:\n%s", out)
	}
}

func TestRenderOverviewAllClear(t *testing.T) {
	withoutColor(t)

	data := &overviewData{
		Summary:   &models.StudySummary{Protocol: "VRT-812-301"},
		Quality:   &models.DataQuality{},
		Financial: &models.FinancialSummary{},
	}

	var sb strings.Builder
	renderOverview(&sb, data)
	if !strings.Contains(sb.String(), "No sites need attention.") {
		t.Fatalf("expected all-clear line, got:\n%s", sb.String())
	}
}

func TestRenderSiteDetailShowsBreaches(t *testing.T) {
	withoutColor(t)

	detail := &models.SiteDetail{
		SiteOverview: models.SiteOverview{
			SiteID: "S-101", Name: "Northside Clinic", Country: "US",
			Status: "enrolling", Enrolled: 18, Target: 24, RiskScore: 6.2,
		},
		Investigator: "Dr. Okafor",
		MonitorName:  "J. Reyes",
	}
	kri := &models.KRITimeseries{
		SiteID: "S-101",
		Series: []models.KRISeries{
			{
				Name: "query_rate", Unit: "per subject", Threshold: 3,
				Points: []models.KRIPoint{{Value: 2.1}, {Value: 4.4}},
			},
			{
				Name: "screen_fail_rate", Unit: "pct", Threshold: 40,
				Points: []models.KRIPoint{{Value: 12}},
			},
		},
	}
	velocity := &models.EnrollmentVelocity{
		SiteID: "S-101",
		Points: []models.VelocityPoint{{Month: "2026-07", Enrolled: 3, Planned: 4}},
	}

	var sb strings.Builder
	renderSiteDetail(&sb, detail, kri, velocity)
	out := sb.String()

	if !strings.Contains(out, "query_rate") || !strings.Contains(out, "breached") {
		t.Errorf("expected breached indicator row, got:\n%s", out)
	}
	if !strings.Contains(out, "screen_fail_rate") {
		t.Errorf("expected healthy indicator row, got:\n%s", out)
	}
	if !strings.Contains(out, "2026-07") {
		t.Errorf("expected velocity row, got:\n%s", out)
	}
}

func TestRenderVendorComparisonOrdersVendors(t *testing.T) {
	withoutColor(t)

	cmp := &models.VendorComparison{
		Dimensions: []string{"quality", "timeliness"},
		Scores: map[string]map[string]float64{
			"VEND-02": {"quality": 78.4, "timeliness": 88.0},
			"VEND-01": {"quality": 91.5, "timeliness": 96.2},
		},
	}

	var sb strings.Builder
	renderVendorComparison(&sb, cmp)
	out := sb.String()

	if !strings.Contains(out, "QUALITY") || !strings.Contains(out, "TIMELINESS") {
		t.Errorf("expected dimension headers, got:\n%s", out)
	}
	if strings.Index(out, "VEND-01") > strings.Index(out, "VEND-02") {
		t.Errorf("expected vendors in id order, got:\n%s", out)
	}
	if !strings.Contains(out, "91.5") {
		t.Errorf("expected VEND-01 quality score, got:\n%s", out)
	}
}

func TestFormatUSD(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{1_250_000_000, "$1.25B"},
		{97_400_000, "$97.4M"},
		{38_200_000, "$38.2M"},
		{4_500, "$4K"},
		{980, "$980"},
		{0, "$0"},
		{-2_500_000, "$-2.5M"},
	}
	for _, tc := range cases {
		if got := formatUSD(tc.in); got != tc.want {
			t.Errorf("formatUSD(%v): expected %s, got %s", tc.in, tc.want, got)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("expected short unchanged, got %s", got)
	}
	if got := truncate("a question that keeps going", 10); got != "a question..." {
		t.Errorf("unexpected truncation: %s", got)
	}
}

func TestColorizeRespectsNoColor(t *testing.T) {
	prev := noColor
	t.Cleanup(func() { noColor = prev })

	noColor = false
	if got := colorize(colorRed, "bad"); got != colorRed+"bad"+colorReset {
		t.Errorf("expected ANSI wrapping, got %q", got)
	}
	noColor = true
	if got := colorize(colorRed, "bad"); got != "bad" {
		t.Errorf("expected plain text, got %q", got)
	}
}

func TestRenderResult(t *testing.T) {
	withoutColor(t)

	res := &models.InvestigationResult{
		QueryID: "q-123",
		Synthesis: models.Synthesis{
			Answer:          "Site S-204 stalled because its coordinator left in June.",
			Confidence:      0.87,
			KeyFindings:     []string{"screening visits stopped on 2026-06-12"},
			Recommendations: []string{"arrange interim coordinator coverage"},
		},
	}

	var sb strings.Builder
	renderResult(&sb, res)
	out := sb.String()

	for _, want := range []string{
		"Answer",
		"coordinator left in June",
		"Key findings",
		"screening visits stopped",
		"Recommendations",
		"confidence 87%",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q, got:\n%s", want, out)
		}
	}
}
