package main

import (
	"time"

	"github.com/angsh-d/clinops-intel-sub000/internal/models"
)

// The mock tells one coherent story: study VRT-812-301 is enrolling behind
// plan, S-204 has stalled since its coordinator left, and the CRO forecast
// is drifting over budget.

type mockSite struct {
	id, name, country, status    string
	investigator, monitor        string
	enrolled, target             int
	openQueries, openDeviations  int
	pendingSignOffs              int
	screenFailPct, riskScore     float64
	activatedDays, lastVisitDays int
	notes                        []string
}

var mockSites = []mockSite{
	{
		id: "S-101", name: "Northside Research Center", country: "US", status: "enrolling",
		investigator: "Dr. A. Okafor", monitor: "J. Reyes",
		enrolled: 74, target: 90, openQueries: 112, openDeviations: 4, pendingSignOffs: 2,
		screenFailPct: 18.5, riskScore: 3.1, activatedDays: 410, lastVisitDays: 12,
	},
	{
		id: "S-204", name: "County General Hospital", country: "US", status: "enrolling",
		investigator: "Dr. L. Tran", monitor: "J. Reyes",
		enrolled: 41, target: 110, openQueries: 388, openDeviations: 11, pendingSignOffs: 7,
		screenFailPct: 31.2, riskScore: 8.7, activatedDays: 395, lastVisitDays: 64,
		notes: []string{"study coordinator departed 2026-06-12, replacement not yet named"},
	},
	{
		id: "S-117", name: "St. Brigid's University Hospital", country: "IE", status: "enrolling",
		investigator: "Dr. N. Whelan", monitor: "C. Murray",
		enrolled: 66, target: 80, openQueries: 97, openDeviations: 2, pendingSignOffs: 1,
		screenFailPct: 15.9, riskScore: 2.4, activatedDays: 371, lastVisitDays: 20,
	},
	{
		id: "S-312", name: "Charité Campus Mitte", country: "DE", status: "enrolling",
		investigator: "Dr. M. Hartmann", monitor: "C. Murray",
		enrolled: 88, target: 120, openQueries: 341, openDeviations: 6, pendingSignOffs: 9,
		screenFailPct: 22.8, riskScore: 5.9, activatedDays: 352, lastVisitDays: 33,
		notes: []string{"query backlog concentrated in lab CRFs after EDC migration"},
	},
	{
		id: "S-228", name: "Hospital del Mar", country: "ES", status: "enrolling",
		investigator: "Dr. P. Iglesias", monitor: "C. Murray",
		enrolled: 79, target: 100, openQueries: 154, openDeviations: 3, pendingSignOffs: 0,
		screenFailPct: 19.4, riskScore: 3.8, activatedDays: 340, lastVisitDays: 18,
	},
	{
		id: "S-405", name: "Royal Adelaide Clinical Trials Unit", country: "AU", status: "paused",
		investigator: "Dr. H. Gillespie", monitor: "K. Sato",
		enrolled: 64, target: 100, openQueries: 192, openDeviations: 8, pendingSignOffs: 3,
		screenFailPct: 24.1, riskScore: 6.4, activatedDays: 301, lastVisitDays: 41,
		notes: []string{"enrollment paused pending ethics amendment approval"},
	},
}

func daysAgo(n int) time.Time {
	return time.Now().UTC().AddDate(0, 0, -n)
}

// monthsBack labels the last n calendar months, oldest first.
func monthsBack(n int) []string {
	labels := make([]string, 0, n)
	for i := n - 1; i >= 0; i-- {
		labels = append(labels, time.Now().UTC().AddDate(0, -i, 0).Format("2006-01"))
	}
	return labels
}

// dashboardPayloads maps every fixed dashboard endpoint to its payload
// builder. Site and vendor scoped endpoints are routed separately.
func dashboardPayloads() map[string]func() any {
	return map[string]func() any{
		"/dashboard/study-summary":        studySummary,
		"/dashboard/attention-sites":      attentionSites,
		"/dashboard/sites-overview":       sitesOverview,
		"/dashboard/agent-insights":       agentInsights,
		"/dashboard/data-quality":         dataQuality,
		"/dashboard/enrollment-funnel":    enrollmentFunnel,
		"/dashboard/site-metadata":        siteMetadata,
		"/dashboard/vendor-scorecards":    vendorScorecards,
		"/dashboard/vendor-comparison":    vendorComparison,
		"/dashboard/financial-summary":    financialSummary,
		"/dashboard/financial-waterfall":  financialWaterfall,
		"/dashboard/financial-by-country": financialByCountry,
		"/dashboard/financial-by-vendor":  financialByVendor,
		"/dashboard/cost-per-patient":     costPerPatient,
		"/dashboard/agent-activity":       agentActivity,
	}
}

func studySummary() any {
	return models.StudySummary{
		Protocol:          "VRT-812-301",
		Phase:             "III",
		Indication:        "relapsing multiple sclerosis",
		SitesActive:       5,
		SitesTotal:        6,
		SubjectsEnrolled:  412,
		SubjectsTarget:    600,
		EnrollmentPercent: 68.7,
		DaysElapsed:       428,
		DaysPlanned:       730,
		BudgetSpentUSD:    38_200_000,
		BudgetTotalUSD:    90_000_000,
		UpdatedAt:         time.Now().UTC().Add(-7 * time.Minute),
	}
}

func attentionSites() any {
	return []models.AttentionSite{
		{
			SiteID: "S-204", Name: "County General Hospital", Country: "US",
			Severity: "critical", OpenKRIs: 3,
			Reasons: []string{"enrollment stalled for 9 weeks", "388 open queries", "monitoring visit overdue"},
		},
		{
			SiteID: "S-405", Name: "Royal Adelaide Clinical Trials Unit", Country: "AU",
			Severity: "high", OpenKRIs: 2,
			Reasons: []string{"paused for ethics amendment", "deviation rate above study mean"},
		},
		{
			SiteID: "S-312", Name: "Charité Campus Mitte", Country: "DE",
			Severity: "medium", OpenKRIs: 1,
			Reasons: []string{"query backlog growing since EDC migration"},
		},
	}
}

func sitesOverview() any {
	sites := make([]models.SiteOverview, 0, len(mockSites))
	for _, s := range mockSites {
		sites = append(sites, s.overview())
	}
	return sites
}

func (s mockSite) overview() models.SiteOverview {
	return models.SiteOverview{
		SiteID:        s.id,
		Name:          s.name,
		Country:       s.country,
		Status:        s.status,
		Enrolled:      s.enrolled,
		Target:        s.target,
		ScreenFailPct: s.screenFailPct,
		OpenQueries:   s.openQueries,
		RiskScore:     s.riskScore,
	}
}

func siteDetail(siteID string) (models.SiteDetail, bool) {
	for _, s := range mockSites {
		if s.id != siteID {
			continue
		}
		return models.SiteDetail{
			SiteOverview:    s.overview(),
			Investigator:    s.investigator,
			MonitorName:     s.monitor,
			ActivatedAt:     daysAgo(s.activatedDays),
			LastVisitedAt:   daysAgo(s.lastVisitDays),
			OpenDeviations:  s.openDeviations,
			PendingSignOffs: s.pendingSignOffs,
			Notes:           s.notes,
		}, true
	}
	return models.SiteDetail{}, false
}

func siteMetadata() any {
	meta := models.SiteMetadata{Sites: make(map[string]models.SiteInfo, len(mockSites))}
	for _, s := range mockSites {
		meta.Sites[s.id] = models.SiteInfo{
			Name:          s.name,
			Country:       s.country,
			Investigator:  s.investigator,
			MonitorName:   s.monitor,
			ActivatedAt:   daysAgo(s.activatedDays),
			LastVisitedAt: daysAgo(s.lastVisitDays),
		}
	}
	return meta
}

func kriTimeseries(siteID string) models.KRITimeseries {
	weekly := func(values ...float64) []models.KRIPoint {
		points := make([]models.KRIPoint, 0, len(values))
		for i, v := range values {
			points = append(points, models.KRIPoint{
				Date:  daysAgo(7 * (len(values) - i)),
				Value: v,
			})
		}
		return points
	}

	series := []models.KRISeries{
		{Name: "query_rate", Unit: "per subject", Threshold: 3.0, Points: weekly(1.4, 1.6, 1.9, 2.2, 2.6)},
		{Name: "screen_fail_rate", Unit: "pct", Threshold: 40, Points: weekly(17, 19, 18, 21, 20)},
		{Name: "deviation_rate", Unit: "per subject", Threshold: 0.5, Points: weekly(0.1, 0.1, 0.2, 0.2, 0.2)},
	}
	// The stalled site trips its query and deviation indicators.
	if siteID == "S-204" {
		series[0].Points = weekly(2.1, 2.9, 3.8, 4.4, 4.9)
		series[2].Points = weekly(0.2, 0.3, 0.5, 0.6, 0.7)
	}
	return models.KRITimeseries{SiteID: siteID, Series: series}
}

func enrollmentVelocity(siteID string) models.EnrollmentVelocity {
	months := monthsBack(6)
	actual := []int{4, 5, 4, 3, 4, 3}
	if siteID == "S-204" {
		actual = []int{4, 3, 4, 1, 0, 0}
	}

	points := make([]models.VelocityPoint, 0, len(months))
	for i, month := range months {
		points = append(points, models.VelocityPoint{Month: month, Enrolled: actual[i], Planned: 4})
	}
	return models.EnrollmentVelocity{SiteID: siteID, Points: points}
}

func agentInsights() any {
	return []models.AgentInsight{
		{
			ID: "ins-7021", AgentID: "site-ops", Severity: "critical", Category: "enrollment",
			Summary: "S-204 has enrolled zero subjects in 9 weeks against a plan of four per month",
			SiteID:  "S-204", CreatedAt: time.Now().UTC().Add(-26 * time.Hour),
		},
		{
			ID: "ins-7018", AgentID: "finance", Severity: "high", Category: "budget",
			Summary: "forecast exceeds approved budget by 8.2% driven by CRO change orders",
			CreatedAt: time.Now().UTC().Add(-2 * 24 * time.Hour),
		},
		{
			ID: "ins-7004", AgentID: "data-quality", Severity: "medium", Category: "queries",
			Summary: "lab CRF queries at S-312 doubled after the EDC migration",
			SiteID:  "S-312", CreatedAt: time.Now().UTC().Add(-4 * 24 * time.Hour),
		},
	}
}

func dataQuality() any {
	return models.DataQuality{
		OpenQueries:        1284,
		OverdueQueries:     315,
		QueryRatePerSubj:   3.1,
		MissingPagesPct:    2.4,
		SDVCompletePct:     81.6,
		ProtocolDeviations: 87,
	}
}

func enrollmentFunnel() any {
	return models.EnrollmentFunnel{
		Screened:   655,
		Consented:  540,
		Randomized: 412,
		Completed:  118,
		Withdrawn:  31,
	}
}

func vendorScorecards() any {
	return []models.VendorScorecard{
		{VendorID: "VEND-01", Name: "Meridian CRO", Service: "monitoring", QualityScore: 91.5, TimelinessPct: 96.2, BudgetVarPct: 6.8, OpenIssues: 2},
		{VendorID: "VEND-02", Name: "Helix Central Labs", Service: "central lab", QualityScore: 78.4, TimelinessPct: 88.0, BudgetVarPct: 1.2, OpenIssues: 5},
		{VendorID: "VEND-03", Name: "Cobalt Imaging", Service: "imaging core lab", QualityScore: 94.8, TimelinessPct: 99.1, BudgetVarPct: -0.4, OpenIssues: 0},
	}
}

func vendorDetail(vendorID string) (models.VendorDetail, bool) {
	cards := vendorScorecards().([]models.VendorScorecard)
	details := map[string]models.VendorDetail{
		"VEND-01": {
			ContractValueUSD: 24_500_000, InvoicedUSD: 11_800_000,
			Issues: []models.VendorIssue{
				{OpenedAt: daysAgo(18), Severity: "high", Summary: "two unapproved change orders invoiced in Q2"},
				{OpenedAt: daysAgo(64), Severity: "medium", Summary: "S-204 monitoring visit rescheduled twice", Resolved: false},
			},
		},
		"VEND-02": {
			ContractValueUSD: 8_200_000, InvoicedUSD: 4_100_000,
			Issues: []models.VendorIssue{
				{OpenedAt: daysAgo(9), Severity: "high", Summary: "sample accession backlog above 48h SLA"},
				{OpenedAt: daysAgo(30), Severity: "medium", Summary: "lab normal ranges missing for two analytes"},
				{OpenedAt: daysAgo(75), Severity: "low", Summary: "duplicate kit shipment to S-117", Resolved: true},
			},
		},
		"VEND-03": {
			ContractValueUSD: 5_600_000, InvoicedUSD: 2_300_000,
		},
	}

	detail, ok := details[vendorID]
	if !ok {
		return models.VendorDetail{}, false
	}
	for _, card := range cards {
		if card.VendorID == vendorID {
			detail.VendorScorecard = card
		}
	}
	return detail, true
}

func vendorComparison() any {
	return models.VendorComparison{
		Dimensions: []string{"quality", "timeliness", "budget", "responsiveness"},
		Scores: map[string]map[string]float64{
			"VEND-01": {"quality": 91.5, "timeliness": 96.2, "budget": 74.0, "responsiveness": 88.5},
			"VEND-02": {"quality": 78.4, "timeliness": 88.0, "budget": 92.3, "responsiveness": 71.9},
			"VEND-03": {"quality": 94.8, "timeliness": 99.1, "budget": 97.6, "responsiveness": 93.2},
		},
	}
}

func financialSummary() any {
	return models.FinancialSummary{
		BudgetTotalUSD:  90_000_000,
		SpentUSD:        38_200_000,
		CommittedUSD:    21_500_000,
		ForecastUSD:     97_400_000,
		BurnPerMonthUSD: 2_900_000,
		MonthsRemaining: 17.9,
	}
}

func financialWaterfall() any {
	return models.FinancialWaterfall{
		Steps: []models.WaterfallStep{
			{Label: "approved budget", AmountUSD: 90_000_000},
			{Label: "CRO change orders", AmountUSD: 4_600_000},
			{Label: "extended enrollment window", AmountUSD: 2_100_000},
			{Label: "additional imaging reads", AmountUSD: 700_000},
		},
	}
}

func financialByCountry() any {
	return models.FinancialByCountry{
		Countries: []models.CountrySpend{
			{Country: "US", BudgetUSD: 41_000_000, SpentUSD: 19_800_000, Sites: 2},
			{Country: "DE", BudgetUSD: 16_500_000, SpentUSD: 6_900_000, Sites: 1},
			{Country: "ES", BudgetUSD: 12_000_000, SpentUSD: 4_700_000, Sites: 1},
			{Country: "IE", BudgetUSD: 11_500_000, SpentUSD: 4_200_000, Sites: 1},
			{Country: "AU", BudgetUSD: 9_000_000, SpentUSD: 2_600_000, Sites: 1},
		},
	}
}

func financialByVendor() any {
	return models.FinancialByVendor{
		Vendors: []models.VendorSpend{
			{VendorID: "VEND-01", Name: "Meridian CRO", CommittedUSD: 24_500_000, InvoicedUSD: 11_800_000},
			{VendorID: "VEND-02", Name: "Helix Central Labs", CommittedUSD: 8_200_000, InvoicedUSD: 4_100_000},
			{VendorID: "VEND-03", Name: "Cobalt Imaging", CommittedUSD: 5_600_000, InvoicedUSD: 2_300_000},
		},
	}
}

func costPerPatient() any {
	months := monthsBack(6)
	costs := []float64{81_400, 83_100, 84_800, 87_200, 90_600, 92_700}

	trend := make([]models.CostTrendPoint, 0, len(months))
	for i, month := range months {
		trend = append(trend, models.CostTrendPoint{Month: month, CostUSD: costs[i]})
	}
	return models.CostPerPatient{
		CurrentUSD:  92_700,
		BudgetedUSD: 86_500,
		Trend:       trend,
	}
}

func agentActivity() any {
	return models.AgentActivity{
		Entries: []models.AgentActivityEntry{
			{
				QueryID: "q-8f41c02a", Question: "Why is enrollment at S-204 behind plan?",
				SiteID: "S-204", Status: "completed", Confidence: 0.87,
				StartedAt: time.Now().UTC().Add(-3 * time.Hour), DurationMS: 41_800,
			},
			{
				QueryID: "q-1d97be55", Question: "Which vendor drives the budget overrun?",
				Status: "completed", Confidence: 0.79,
				StartedAt: time.Now().UTC().Add(-28 * time.Hour), DurationMS: 36_400,
			},
			{
				QueryID: "q-c30a6f11", Question: "Compare query aging across EU sites",
				Status: "error", Confidence: 0,
				StartedAt: time.Now().UTC().Add(-52 * time.Hour), DurationMS: 12_300,
			},
		},
	}
}
