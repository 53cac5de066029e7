package models

import "time"

// StudySummary is the top-level trial card: enrollment position, site and
// subject counts, and headline burn.
type StudySummary struct {
	Protocol          string    `json:"protocol"`
	Phase             string    `json:"phase"`
	Indication        string    `json:"indication"`
	SitesActive       int       `json:"sites_active"`
	SitesTotal        int       `json:"sites_total"`
	SubjectsEnrolled  int       `json:"subjects_enrolled"`
	SubjectsTarget    int       `json:"subjects_target"`
	EnrollmentPercent float64   `json:"enrollment_percent"`
	DaysElapsed       int       `json:"days_elapsed"`
	DaysPlanned       int       `json:"days_planned"`
	BudgetSpentUSD    float64   `json:"budget_spent_usd"`
	BudgetTotalUSD    float64   `json:"budget_total_usd"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// AttentionSite flags a site needing operational follow-up.
type AttentionSite struct {
	SiteID   string   `json:"site_id"`
	Name     string   `json:"name"`
	Country  string   `json:"country"`
	Severity string   `json:"severity"`
	Reasons  []string `json:"reasons"`
	OpenKRIs int      `json:"open_kris"`
}

// SiteOverview is one row of the all-sites table.
type SiteOverview struct {
	SiteID        string  `json:"site_id"`
	Name          string  `json:"name"`
	Country       string  `json:"country"`
	Status        string  `json:"status"`
	Enrolled      int     `json:"enrolled"`
	Target        int     `json:"target"`
	ScreenFailPct float64 `json:"screen_fail_pct"`
	OpenQueries   int     `json:"open_queries"`
	RiskScore     float64 `json:"risk_score"`
}

// AgentInsight is a finding surfaced by the backend agent system outside an
// explicit investigation.
type AgentInsight struct {
	ID        string    `json:"id"`
	AgentID   string    `json:"agent_id"`
	Severity  string    `json:"severity"`
	Category  string    `json:"category"`
	Summary   string    `json:"summary"`
	SiteID    string    `json:"site_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// DataQuality aggregates cleanliness indicators across the study.
type DataQuality struct {
	OpenQueries        int     `json:"open_queries"`
	OverdueQueries     int     `json:"overdue_queries"`
	QueryRatePerSubj   float64 `json:"query_rate_per_subject"`
	MissingPagesPct    float64 `json:"missing_pages_pct"`
	SDVCompletePct     float64 `json:"sdv_complete_pct"`
	ProtocolDeviations int     `json:"protocol_deviations"`
}

// EnrollmentFunnel counts subjects by recruitment stage.
type EnrollmentFunnel struct {
	Screened   int `json:"screened"`
	Consented  int `json:"consented"`
	Randomized int `json:"randomized"`
	Completed  int `json:"completed"`
	Withdrawn  int `json:"withdrawn"`
}

// SiteMetadata carries static descriptors for every site, keyed by site id.
type SiteMetadata struct {
	Sites map[string]SiteInfo `json:"sites"`
}

// SiteInfo describes a single site's fixed attributes.
type SiteInfo struct {
	Name          string    `json:"name"`
	Country       string    `json:"country"`
	Investigator  string    `json:"investigator"`
	ActivatedAt   time.Time `json:"activated_at"`
	MonitorName   string    `json:"monitor_name"`
	LastVisitedAt time.Time `json:"last_visited_at"`
}

// KRIPoint is one sample of a key risk indicator series.
type KRIPoint struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// KRISeries is a named risk-indicator timeseries for one site.
type KRISeries struct {
	Name      string     `json:"name"`
	Unit      string     `json:"unit"`
	Threshold float64    `json:"threshold"`
	Points    []KRIPoint `json:"points"`
}

// KRITimeseries is the per-site bundle of risk-indicator series.
type KRITimeseries struct {
	SiteID string      `json:"site_id"`
	Series []KRISeries `json:"series"`
}

// VelocityPoint is one month of enrollment at a site.
type VelocityPoint struct {
	Month    string `json:"month"`
	Enrolled int    `json:"enrolled"`
	Planned  int    `json:"planned"`
}

// EnrollmentVelocity tracks actual versus planned enrollment per month.
type EnrollmentVelocity struct {
	SiteID string          `json:"site_id"`
	Points []VelocityPoint `json:"points"`
}

// SiteDetail is the full single-site view.
type SiteDetail struct {
	SiteOverview
	Investigator    string    `json:"investigator"`
	MonitorName     string    `json:"monitor_name"`
	ActivatedAt     time.Time `json:"activated_at"`
	LastVisitedAt   time.Time `json:"last_visited_at"`
	OpenDeviations  int       `json:"open_deviations"`
	PendingSignOffs int       `json:"pending_sign_offs"`
	Notes           []string  `json:"notes,omitempty"`
}

// VendorScorecard grades one vendor across delivery dimensions.
type VendorScorecard struct {
	VendorID      string  `json:"vendor_id"`
	Name          string  `json:"name"`
	Service       string  `json:"service"`
	QualityScore  float64 `json:"quality_score"`
	TimelinessPct float64 `json:"timeliness_pct"`
	BudgetVarPct  float64 `json:"budget_variance_pct"`
	OpenIssues    int     `json:"open_issues"`
}

// VendorDetail expands a scorecard with contract and issue history.
type VendorDetail struct {
	VendorScorecard
	ContractValueUSD float64       `json:"contract_value_usd"`
	InvoicedUSD      float64       `json:"invoiced_usd"`
	Issues           []VendorIssue `json:"issues,omitempty"`
}

// VendorIssue is a single open or resolved vendor finding.
type VendorIssue struct {
	OpenedAt time.Time `json:"opened_at"`
	Severity string    `json:"severity"`
	Summary  string    `json:"summary"`
	Resolved bool      `json:"resolved"`
}

// VendorComparison ranks vendors on a shared set of dimensions.
type VendorComparison struct {
	Dimensions []string                      `json:"dimensions"`
	Scores     map[string]map[string]float64 `json:"scores"`
}

// FinancialSummary is the study-level budget position.
type FinancialSummary struct {
	BudgetTotalUSD  float64 `json:"budget_total_usd"`
	SpentUSD        float64 `json:"spent_usd"`
	CommittedUSD    float64 `json:"committed_usd"`
	ForecastUSD     float64 `json:"forecast_usd"`
	BurnPerMonthUSD float64 `json:"burn_per_month_usd"`
	MonthsRemaining float64 `json:"months_remaining"`
}

// WaterfallStep is one bar of the budget waterfall.
type WaterfallStep struct {
	Label     string  `json:"label"`
	AmountUSD float64 `json:"amount_usd"`
}

// FinancialWaterfall decomposes budget movement into ordered steps.
type FinancialWaterfall struct {
	Steps []WaterfallStep `json:"steps"`
}

// CountrySpend is per-country budget versus actuals.
type CountrySpend struct {
	Country   string  `json:"country"`
	BudgetUSD float64 `json:"budget_usd"`
	SpentUSD  float64 `json:"spent_usd"`
	Sites     int     `json:"sites"`
}

// FinancialByCountry lists spend by country.
type FinancialByCountry struct {
	Countries []CountrySpend `json:"countries"`
}

// VendorSpend is per-vendor committed versus invoiced amounts.
type VendorSpend struct {
	VendorID     string  `json:"vendor_id"`
	Name         string  `json:"name"`
	CommittedUSD float64 `json:"committed_usd"`
	InvoicedUSD  float64 `json:"invoiced_usd"`
}

// FinancialByVendor lists spend by vendor.
type FinancialByVendor struct {
	Vendors []VendorSpend `json:"vendors"`
}

// CostPerPatient tracks the blended per-patient cost trend.
type CostPerPatient struct {
	CurrentUSD  float64          `json:"current_usd"`
	BudgetedUSD float64          `json:"budgeted_usd"`
	Trend       []CostTrendPoint `json:"trend"`
}

// CostTrendPoint is one month of per-patient cost.
type CostTrendPoint struct {
	Month   string  `json:"month"`
	CostUSD float64 `json:"cost_usd"`
}

// AgentActivityEntry is one row of the recent agent activity feed.
type AgentActivityEntry struct {
	QueryID    string    `json:"query_id"`
	Question   string    `json:"question"`
	SiteID     string    `json:"site_id,omitempty"`
	Status     string    `json:"status"`
	Confidence float64   `json:"confidence"`
	StartedAt  time.Time `json:"started_at"`
	DurationMS int       `json:"duration_ms"`
}

// AgentActivity is the recent-investigations feed.
type AgentActivity struct {
	Entries []AgentActivityEntry `json:"entries"`
}
