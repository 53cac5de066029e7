package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/angsh-d/clinops-intel-sub000/internal/models"
)

// Typed accessors for the dashboard endpoints. Each is a thin decode wrapper
// over Get; the cache layer underneath stays shape-opaque and keys entries
// by the endpoint path.

func (c *CoreClient) getJSON(ctx context.Context, endpoint string, out any) error {
	raw, err := c.Get(ctx, endpoint)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s response: %w", endpoint, err)
	}
	return nil
}

// StudySummary returns the top-level trial card.
func (c *CoreClient) StudySummary(ctx context.Context) (*models.StudySummary, error) {
	var out models.StudySummary
	if err := c.getJSON(ctx, "/dashboard/study-summary", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AttentionSites returns sites flagged for operational follow-up.
func (c *CoreClient) AttentionSites(ctx context.Context) ([]models.AttentionSite, error) {
	var out []models.AttentionSite
	if err := c.getJSON(ctx, "/dashboard/attention-sites", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SitesOverview returns the all-sites table.
func (c *CoreClient) SitesOverview(ctx context.Context) ([]models.SiteOverview, error) {
	var out []models.SiteOverview
	if err := c.getJSON(ctx, "/dashboard/sites-overview", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// AgentInsights returns standing findings from the agent system.
func (c *CoreClient) AgentInsights(ctx context.Context) ([]models.AgentInsight, error) {
	var out []models.AgentInsight
	if err := c.getJSON(ctx, "/dashboard/agent-insights", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// DataQuality returns study-wide data cleanliness indicators.
func (c *CoreClient) DataQuality(ctx context.Context) (*models.DataQuality, error) {
	var out models.DataQuality
	if err := c.getJSON(ctx, "/dashboard/data-quality", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// EnrollmentFunnel returns subject counts by recruitment stage.
func (c *CoreClient) EnrollmentFunnel(ctx context.Context) (*models.EnrollmentFunnel, error) {
	var out models.EnrollmentFunnel
	if err := c.getJSON(ctx, "/dashboard/enrollment-funnel", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SiteMetadata returns static site descriptors keyed by site id.
func (c *CoreClient) SiteMetadata(ctx context.Context) (*models.SiteMetadata, error) {
	var out models.SiteMetadata
	if err := c.getJSON(ctx, "/dashboard/site-metadata", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// KRITimeseries returns the risk-indicator series for one site.
func (c *CoreClient) KRITimeseries(ctx context.Context, siteID string) (*models.KRITimeseries, error) {
	endpoint, err := sitePath("/dashboard/kri-timeseries", siteID)
	if err != nil {
		return nil, err
	}
	var out models.KRITimeseries
	if err := c.getJSON(ctx, endpoint, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// EnrollmentVelocity returns actual-versus-planned enrollment for one site.
func (c *CoreClient) EnrollmentVelocity(ctx context.Context, siteID string) (*models.EnrollmentVelocity, error) {
	endpoint, err := sitePath("/dashboard/enrollment-velocity", siteID)
	if err != nil {
		return nil, err
	}
	var out models.EnrollmentVelocity
	if err := c.getJSON(ctx, endpoint, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Site returns the full single-site view.
func (c *CoreClient) Site(ctx context.Context, siteID string) (*models.SiteDetail, error) {
	endpoint, err := sitePath("/dashboard/site", siteID)
	if err != nil {
		return nil, err
	}
	var out models.SiteDetail
	if err := c.getJSON(ctx, endpoint, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// VendorScorecards returns every vendor's scorecard.
func (c *CoreClient) VendorScorecards(ctx context.Context) ([]models.VendorScorecard, error) {
	var out []models.VendorScorecard
	if err := c.getJSON(ctx, "/dashboard/vendor-scorecards", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Vendor returns one vendor's expanded detail.
func (c *CoreClient) Vendor(ctx context.Context, vendorID string) (*models.VendorDetail, error) {
	endpoint, err := resourcePath("/dashboard/vendor", "vendor id", vendorID)
	if err != nil {
		return nil, err
	}
	var out models.VendorDetail
	if err := c.getJSON(ctx, endpoint, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// VendorComparison returns the cross-vendor ranking matrix.
func (c *CoreClient) VendorComparison(ctx context.Context) (*models.VendorComparison, error) {
	var out models.VendorComparison
	if err := c.getJSON(ctx, "/dashboard/vendor-comparison", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// FinancialSummary returns the study-level budget position.
func (c *CoreClient) FinancialSummary(ctx context.Context) (*models.FinancialSummary, error) {
	var out models.FinancialSummary
	if err := c.getJSON(ctx, "/dashboard/financial-summary", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// FinancialWaterfall returns the budget waterfall decomposition.
func (c *CoreClient) FinancialWaterfall(ctx context.Context) (*models.FinancialWaterfall, error) {
	var out models.FinancialWaterfall
	if err := c.getJSON(ctx, "/dashboard/financial-waterfall", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// FinancialByCountry returns spend grouped by country.
func (c *CoreClient) FinancialByCountry(ctx context.Context) (*models.FinancialByCountry, error) {
	var out models.FinancialByCountry
	if err := c.getJSON(ctx, "/dashboard/financial-by-country", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// FinancialByVendor returns spend grouped by vendor.
func (c *CoreClient) FinancialByVendor(ctx context.Context) (*models.FinancialByVendor, error) {
	var out models.FinancialByVendor
	if err := c.getJSON(ctx, "/dashboard/financial-by-vendor", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CostPerPatient returns the blended per-patient cost trend.
func (c *CoreClient) CostPerPatient(ctx context.Context) (*models.CostPerPatient, error) {
	var out models.CostPerPatient
	if err := c.getJSON(ctx, "/dashboard/cost-per-patient", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AgentActivity returns the recent-investigations feed.
func (c *CoreClient) AgentActivity(ctx context.Context) (*models.AgentActivity, error) {
	var out models.AgentActivity
	if err := c.getJSON(ctx, "/dashboard/agent-activity", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func sitePath(prefix, siteID string) (string, error) {
	return resourcePath(prefix, "site id", siteID)
}

// resourcePath appends a path identifier, rejecting values that would escape
// the segment or break the cache key.
func resourcePath(prefix, kind, id string) (string, error) {
	if id == "" {
		return "", fmt.Errorf("empty %s", kind)
	}
	if strings.ContainsAny(id, "/?#%& \t\n") {
		return "", fmt.Errorf("invalid %s %q", kind, id)
	}
	return prefix + "/" + id, nil
}
