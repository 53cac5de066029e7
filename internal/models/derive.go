package models

// ConversionPct is the screened-to-randomized conversion rate as a 0-100
// percentage. Returns 0 when nothing was screened.
func (f EnrollmentFunnel) ConversionPct() float64 {
	if f.Screened <= 0 {
		return 0
	}
	return float64(f.Randomized) / float64(f.Screened) * 100
}

// EnrollmentPct is enrolled over target as a 0-100 percentage.
func (s SiteOverview) EnrollmentPct() float64 {
	if s.Target <= 0 {
		return 0
	}
	return float64(s.Enrolled) / float64(s.Target) * 100
}

// VariancePct is the forecast overrun (positive) or underrun (negative)
// against total budget, as a percentage.
func (f FinancialSummary) VariancePct() float64 {
	if f.BudgetTotalUSD == 0 {
		return 0
	}
	return (f.ForecastUSD - f.BudgetTotalUSD) / f.BudgetTotalUSD * 100
}

// Latest returns the most recent point of the series, by sample order.
func (k KRISeries) Latest() (KRIPoint, bool) {
	if len(k.Points) == 0 {
		return KRIPoint{}, false
	}
	return k.Points[len(k.Points)-1], true
}

// Breached reports whether the latest sample is at or above the threshold.
func (k KRISeries) Breached() bool {
	latest, ok := k.Latest()
	if !ok {
		return false
	}
	return k.Threshold > 0 && latest.Value >= k.Threshold
}

// SeverityRank orders severities for display, highest first. Unknown
// severities sort last.
func SeverityRank(severity string) int {
	switch severity {
	case "critical":
		return 0
	case "high":
		return 1
	case "medium":
		return 2
	case "low":
		return 3
	}
	return 4
}
