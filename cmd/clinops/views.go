package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/angsh-d/clinops-intel-sub000/internal/models"
	"github.com/angsh-d/clinops-intel-sub000/internal/repo"
	"github.com/angsh-d/clinops-intel-sub000/internal/utils"
)

var overviewCmd = &cobra.Command{
	Use:   "overview",
	Short: "One-screen study overview",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		data, err := fetchOverview(cmd.Context(), a.client)
		if err != nil {
			return err
		}
		renderOverview(os.Stdout, data)
		return nil
	},
}

var studyCmd = &cobra.Command{
	Use:   "study",
	Short: "Show the study summary and enrollment funnel",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		summary, err := a.client.StudySummary(ctx)
		if err != nil {
			return err
		}
		funnel, err := a.client.EnrollmentFunnel(ctx)
		if err != nil {
			return err
		}
		renderStudy(os.Stdout, summary, funnel)
		return nil
	},
}

var sitesCmd = &cobra.Command{
	Use:   "sites",
	Short: "List sites with enrollment and risk standing",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		attention, _ := cmd.Flags().GetBool("attention")
		if attention {
			sites, err := a.client.AttentionSites(ctx)
			if err != nil {
				return err
			}
			meta, err := a.client.SiteMetadata(ctx)
			if err != nil {
				return err
			}
			renderAttentionSites(os.Stdout, sites, meta)
			return nil
		}

		sites, err := a.client.SitesOverview(ctx)
		if err != nil {
			return err
		}
		renderSitesOverview(os.Stdout, sites)
		return nil
	},
}

var siteCmd = &cobra.Command{
	Use:   "site <site-id>",
	Short: "Show one site with risk indicators and enrollment velocity",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		siteID := args[0]

		detail, err := a.client.Site(ctx, siteID)
		if err != nil {
			return err
		}
		kri, err := a.client.KRITimeseries(ctx, siteID)
		if err != nil {
			return err
		}
		velocity, err := a.client.EnrollmentVelocity(ctx, siteID)
		if err != nil {
			return err
		}
		renderSiteDetail(os.Stdout, detail, kri, velocity)
		return nil
	},
}

var qualityCmd = &cobra.Command{
	Use:   "quality",
	Short: "Show study-wide data quality indicators",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		quality, err := a.client.DataQuality(cmd.Context())
		if err != nil {
			return err
		}
		renderDataQuality(os.Stdout, quality)
		return nil
	},
}

var vendorsCmd = &cobra.Command{
	Use:   "vendors",
	Short: "Show vendor scorecards",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		compare, _ := cmd.Flags().GetBool("compare")
		if compare {
			comparison, err := a.client.VendorComparison(ctx)
			if err != nil {
				return err
			}
			renderVendorComparison(os.Stdout, comparison)
			return nil
		}

		cards, err := a.client.VendorScorecards(ctx)
		if err != nil {
			return err
		}
		renderVendorScorecards(os.Stdout, cards)
		return nil
	},
}

var vendorCmd = &cobra.Command{
	Use:   "vendor <vendor-id>",
	Short: "Show one vendor's scorecard, contract and issue history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		detail, err := a.client.Vendor(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		renderVendorDetail(os.Stdout, detail)
		return nil
	},
}

var financialsCmd = &cobra.Command{
	Use:   "financials",
	Short: "Show budget position and spend breakdowns",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		waterfall, _ := cmd.Flags().GetBool("waterfall")
		byCountry, _ := cmd.Flags().GetBool("by-country")
		byVendor, _ := cmd.Flags().GetBool("by-vendor")
		perPatient, _ := cmd.Flags().GetBool("cost-per-patient")

		switch {
		case waterfall:
			steps, err := a.client.FinancialWaterfall(ctx)
			if err != nil {
				return err
			}
			renderWaterfall(os.Stdout, steps)
		case byCountry:
			countries, err := a.client.FinancialByCountry(ctx)
			if err != nil {
				return err
			}
			renderByCountry(os.Stdout, countries)
		case byVendor:
			vendors, err := a.client.FinancialByVendor(ctx)
			if err != nil {
				return err
			}
			renderByVendor(os.Stdout, vendors)
		case perPatient:
			costs, err := a.client.CostPerPatient(ctx)
			if err != nil {
				return err
			}
			renderCostPerPatient(os.Stdout, costs)
		default:
			summary, err := a.client.FinancialSummary(ctx)
			if err != nil {
				return err
			}
			renderFinancialSummary(os.Stdout, summary)
		}
		return nil
	},
}

var agentsCmd = &cobra.Command{
	Use:   "agents",
	Short: "Show agent insights and recent investigations",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		insights, err := a.client.AgentInsights(ctx)
		if err != nil {
			return err
		}
		activity, err := a.client.AgentActivity(ctx)
		if err != nil {
			return err
		}
		renderAgents(os.Stdout, insights, activity)
		return nil
	},
}

func init() {
	sitesCmd.Flags().Bool("attention", false, "only show sites needing follow-up")
	vendorsCmd.Flags().Bool("compare", false, "score vendors side by side")
	financialsCmd.Flags().Bool("waterfall", false, "budget movement as ordered steps")
	financialsCmd.Flags().Bool("by-country", false, "spend by country")
	financialsCmd.Flags().Bool("by-vendor", false, "committed versus invoiced by vendor")
	financialsCmd.Flags().Bool("cost-per-patient", false, "blended per-patient cost trend")
}

// overviewData is the joined payload behind the overview screen. The watch
// command reuses it for periodic refresh.
type overviewData struct {
	Summary   *models.StudySummary
	Attention []models.AttentionSite
	Quality   *models.DataQuality
	Financial *models.FinancialSummary
}

func fetchOverview(ctx context.Context, client *repo.CoreClient) (*overviewData, error) {
	var data overviewData
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		data.Summary, err = client.StudySummary(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		data.Attention, err = client.AttentionSites(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		data.Quality, err = client.DataQuality(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		data.Financial, err = client.FinancialSummary(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &data, nil
}

func renderOverview(w io.Writer, data *overviewData) {
	s := data.Summary
	fmt.Fprintf(w, "%s  phase %s  %d/%d subjects  %d active sites  %s of %s\n",
		colorize(colorBold, s.Protocol), s.Phase,
		s.SubjectsEnrolled, s.SubjectsTarget, s.SitesActive,
		formatUSD(s.BudgetSpentUSD), formatUSD(s.BudgetTotalUSD))

	q := data.Quality
	fmt.Fprintf(w, "quality: %d open queries (%d overdue), %.1f%% pages missing, %d deviations\n",
		q.OpenQueries, q.OverdueQueries, q.MissingPagesPct, q.ProtocolDeviations)

	f := data.Financial
	fmt.Fprintf(w, "budget: forecast %s against %s (%+.1f%%)\n",
		formatUSD(f.ForecastUSD), formatUSD(f.BudgetTotalUSD), f.VariancePct())

	if len(data.Attention) == 0 {
		fmt.Fprintf(w, "\n%s\n", colorize(colorGreen, "No sites need attention."))
		return
	}

	sort.SliceStable(data.Attention, func(i, j int) bool {
		return models.SeverityRank(data.Attention[i].Severity) < models.SeverityRank(data.Attention[j].Severity)
	})

	fmt.Fprintf(w, "\n%s\n", colorize(colorBold, "Needs attention"))
	tw := newTable(w)
	for _, site := range data.Attention {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			site.SiteID, truncate(site.Name, 28),
			truncate(strings.Join(site.Reasons, "; "), 48),
			colorize(severityColor(site.Severity), site.Severity))
	}
	tw.Flush()
}

func renderStudy(w io.Writer, s *models.StudySummary, f *models.EnrollmentFunnel) {
	fmt.Fprintf(w, "%s  phase %s  %s\n\n", colorize(colorBold, s.Protocol), s.Phase, s.Indication)

	tw := newTable(w)
	fmt.Fprintf(tw, "Enrollment:\t%d of %d subjects (%.1f%%)\n", s.SubjectsEnrolled, s.SubjectsTarget, s.EnrollmentPercent)
	fmt.Fprintf(tw, "Sites:\t%d active of %d\n", s.SitesActive, s.SitesTotal)
	fmt.Fprintf(tw, "Timeline:\tday %d of %d\n", s.DaysElapsed, s.DaysPlanned)
	fmt.Fprintf(tw, "Budget:\t%s spent of %s\n", formatUSD(s.BudgetSpentUSD), formatUSD(s.BudgetTotalUSD))
	fmt.Fprintf(tw, "Funnel:\t%d screened, %d consented, %d randomized, %d completed, %d withdrawn\n",
		f.Screened, f.Consented, f.Randomized, f.Completed, f.Withdrawn)
	fmt.Fprintf(tw, "Conversion:\t%.1f%% screened to randomized\n", f.ConversionPct())
	tw.Flush()

	if !s.UpdatedAt.IsZero() {
		fmt.Fprintf(w, "\nupdated %s\n", utils.Ago(s.UpdatedAt))
	}
}

func renderSitesOverview(w io.Writer, sites []models.SiteOverview) {
	if len(sites) == 0 {
		fmt.Fprintln(w, "No sites reported.")
		return
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "SITE\tNAME\tCOUNTRY\tENROLLED\tQUERIES\tRISK\tSTATUS")
	for _, s := range sites {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d/%d (%.0f%%)\t%d\t%.1f\t%s\n",
			s.SiteID, truncate(s.Name, 28), s.Country,
			s.Enrolled, s.Target, s.EnrollmentPct(),
			s.OpenQueries, s.RiskScore,
			colorize(statusColor(s.Status), s.Status))
	}
	tw.Flush()
}

func renderAttentionSites(w io.Writer, sites []models.AttentionSite, meta *models.SiteMetadata) {
	if len(sites) == 0 {
		fmt.Fprintln(w, "No sites need attention.")
		return
	}
	sort.SliceStable(sites, func(i, j int) bool {
		return models.SeverityRank(sites[i].Severity) < models.SeverityRank(sites[j].Severity)
	})

	tw := newTable(w)
	fmt.Fprintln(tw, "SITE\tNAME\tINVESTIGATOR\tKRIS\tREASONS\tSEVERITY")
	for _, s := range sites {
		investigator := ""
		if meta != nil {
			if info, ok := meta.Sites[s.SiteID]; ok {
				investigator = info.Investigator
			}
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n",
			s.SiteID, truncate(s.Name, 28), investigator, s.OpenKRIs,
			truncate(strings.Join(s.Reasons, "; "), 48),
			colorize(severityColor(s.Severity), s.Severity))
	}
	tw.Flush()
}

func renderSiteDetail(w io.Writer, d *models.SiteDetail, kri *models.KRITimeseries, vel *models.EnrollmentVelocity) {
	fmt.Fprintf(w, "%s  %s (%s)\n\n", colorize(colorBold, d.SiteID), d.Name, d.Country)

	tw := newTable(w)
	fmt.Fprintf(tw, "Status:\t%s\n", colorize(statusColor(d.Status), d.Status))
	fmt.Fprintf(tw, "Enrollment:\t%d of %d (%.0f%%)\n", d.Enrolled, d.Target, d.EnrollmentPct())
	fmt.Fprintf(tw, "Screen failures:\t%.1f%%\n", d.ScreenFailPct)
	fmt.Fprintf(tw, "Open queries:\t%d\n", d.OpenQueries)
	fmt.Fprintf(tw, "Open deviations:\t%d\n", d.OpenDeviations)
	fmt.Fprintf(tw, "Pending sign-offs:\t%d\n", d.PendingSignOffs)
	fmt.Fprintf(tw, "Investigator:\t%s\n", d.Investigator)
	fmt.Fprintf(tw, "Monitor:\t%s\n", d.MonitorName)
	if !d.LastVisitedAt.IsZero() {
		fmt.Fprintf(tw, "Last visit:\t%s\n", utils.Ago(d.LastVisitedAt))
	}
	fmt.Fprintf(tw, "Risk score:\t%.1f\n", d.RiskScore)
	tw.Flush()

	if kri != nil && len(kri.Series) > 0 {
		fmt.Fprintf(w, "\n%s\n", colorize(colorBold, "Risk indicators"))
		tw = newTable(w)
		fmt.Fprintln(tw, "INDICATOR\tLATEST\tTHRESHOLD\tSTANDING")
		for _, series := range kri.Series {
			latest, ok := series.Latest()
			if !ok {
				continue
			}
			standing := colorize(colorGreen, "ok")
			if series.Breached() {
				standing = colorize(colorRed, "breached")
			}
			fmt.Fprintf(tw, "%s\t%.2f %s\t%.2f\t%s\n", series.Name, latest.Value, series.Unit, series.Threshold, standing)
		}
		tw.Flush()
	}

	if vel != nil && len(vel.Points) > 0 {
		fmt.Fprintf(w, "\n%s\n", colorize(colorBold, "Enrollment velocity"))
		tw = newTable(w)
		fmt.Fprintln(tw, "MONTH\tENROLLED\tPLANNED")
		for _, p := range vel.Points {
			fmt.Fprintf(tw, "%s\t%d\t%d\n", p.Month, p.Enrolled, p.Planned)
		}
		tw.Flush()
	}

	for _, note := range d.Notes {
		fmt.Fprintf(w, "\nnote: %s\n", note)
	}
}

func renderDataQuality(w io.Writer, q *models.DataQuality) {
	fmt.Fprintf(w, "%s\n\n", colorize(colorBold, "Data quality"))
	tw := newTable(w)
	fmt.Fprintf(tw, "Open queries:\t%d (%d overdue)\n", q.OpenQueries, q.OverdueQueries)
	fmt.Fprintf(tw, "Query rate:\t%.2f per subject\n", q.QueryRatePerSubj)
	fmt.Fprintf(tw, "Missing pages:\t%.1f%%\n", q.MissingPagesPct)
	fmt.Fprintf(tw, "SDV complete:\t%.1f%%\n", q.SDVCompletePct)
	fmt.Fprintf(tw, "Protocol deviations:\t%d\n", q.ProtocolDeviations)
	tw.Flush()
}

func renderVendorScorecards(w io.Writer, cards []models.VendorScorecard) {
	if len(cards) == 0 {
		fmt.Fprintln(w, "No vendors reported.")
		return
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "VENDOR\tNAME\tSERVICE\tQUALITY\tON TIME\tBUDGET VAR\tISSUES")
	for _, c := range cards {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.1f\t%.0f%%\t%+.1f%%\t%d\n",
			c.VendorID, truncate(c.Name, 24), c.Service,
			c.QualityScore, c.TimelinessPct, c.BudgetVarPct, c.OpenIssues)
	}
	tw.Flush()
}

func renderVendorComparison(w io.Writer, cmp *models.VendorComparison) {
	if cmp == nil || len(cmp.Scores) == 0 {
		fmt.Fprintln(w, "No comparison data.")
		return
	}

	vendors := make([]string, 0, len(cmp.Scores))
	for id := range cmp.Scores {
		vendors = append(vendors, id)
	}
	sort.Strings(vendors)

	tw := newTable(w)
	fmt.Fprint(tw, "VENDOR")
	for _, dim := range cmp.Dimensions {
		fmt.Fprintf(tw, "\t%s", strings.ToUpper(dim))
	}
	fmt.Fprintln(tw)
	for _, id := range vendors {
		fmt.Fprint(tw, id)
		for _, dim := range cmp.Dimensions {
			fmt.Fprintf(tw, "\t%.1f", cmp.Scores[id][dim])
		}
		fmt.Fprintln(tw)
	}
	tw.Flush()
}

func renderVendorDetail(w io.Writer, d *models.VendorDetail) {
	fmt.Fprintf(w, "%s  %s (%s)\n\n", colorize(colorBold, d.VendorID), d.Name, d.Service)

	tw := newTable(w)
	fmt.Fprintf(tw, "Quality score:\t%.1f\n", d.QualityScore)
	fmt.Fprintf(tw, "On-time delivery:\t%.0f%%\n", d.TimelinessPct)
	fmt.Fprintf(tw, "Budget variance:\t%+.1f%%\n", d.BudgetVarPct)
	fmt.Fprintf(tw, "Contract:\t%s (%s invoiced)\n", formatUSD(d.ContractValueUSD), formatUSD(d.InvoicedUSD))
	fmt.Fprintf(tw, "Open issues:\t%d\n", d.OpenIssues)
	tw.Flush()

	if len(d.Issues) == 0 {
		return
	}
	fmt.Fprintf(w, "\n%s\n", colorize(colorBold, "Issues"))
	tw = newTable(w)
	fmt.Fprintln(tw, "OPENED\tSUMMARY\tSTATE\tSEVERITY")
	for _, issue := range d.Issues {
		state := "open"
		if issue.Resolved {
			state = "resolved"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			utils.Ago(issue.OpenedAt), truncate(issue.Summary, 48), state,
			colorize(severityColor(issue.Severity), issue.Severity))
	}
	tw.Flush()
}

func renderFinancialSummary(w io.Writer, f *models.FinancialSummary) {
	fmt.Fprintf(w, "%s\n\n", colorize(colorBold, "Financials"))
	tw := newTable(w)
	fmt.Fprintf(tw, "Budget:\t%s\n", formatUSD(f.BudgetTotalUSD))
	fmt.Fprintf(tw, "Spent:\t%s\n", formatUSD(f.SpentUSD))
	fmt.Fprintf(tw, "Committed:\t%s\n", formatUSD(f.CommittedUSD))
	fmt.Fprintf(tw, "Forecast:\t%s\n", formatUSD(f.ForecastUSD))
	fmt.Fprintf(tw, "Burn:\t%s per month\n", formatUSD(f.BurnPerMonthUSD))
	fmt.Fprintf(tw, "Runway:\t%.1f months\n", f.MonthsRemaining)
	tw.Flush()

	variance := f.VariancePct()
	color := colorGreen
	if variance > 0 {
		color = colorRed
	}
	fmt.Fprintf(w, "\nforecast variance %s\n", colorize(color, fmt.Sprintf("%+.1f%%", variance)))
}

func renderWaterfall(w io.Writer, wf *models.FinancialWaterfall) {
	if wf == nil || len(wf.Steps) == 0 {
		fmt.Fprintln(w, "No waterfall data.")
		return
	}
	tw := newTable(w)
	running := 0.0
	for _, step := range wf.Steps {
		running += step.AmountUSD
		fmt.Fprintf(tw, "%s\t%s\t%s\n", step.Label, formatUSD(step.AmountUSD), formatUSD(running))
	}
	tw.Flush()
}

func renderByCountry(w io.Writer, fc *models.FinancialByCountry) {
	if fc == nil || len(fc.Countries) == 0 {
		fmt.Fprintln(w, "No country spend data.")
		return
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "COUNTRY\tSITES\tBUDGET\tSPENT")
	for _, c := range fc.Countries {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", c.Country, c.Sites, formatUSD(c.BudgetUSD), formatUSD(c.SpentUSD))
	}
	tw.Flush()
}

func renderByVendor(w io.Writer, fv *models.FinancialByVendor) {
	if fv == nil || len(fv.Vendors) == 0 {
		fmt.Fprintln(w, "No vendor spend data.")
		return
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "VENDOR\tNAME\tCOMMITTED\tINVOICED")
	for _, v := range fv.Vendors {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", v.VendorID, truncate(v.Name, 24), formatUSD(v.CommittedUSD), formatUSD(v.InvoicedUSD))
	}
	tw.Flush()
}

func renderCostPerPatient(w io.Writer, cpp *models.CostPerPatient) {
	if cpp == nil {
		fmt.Fprintln(w, "No cost data.")
		return
	}
	fmt.Fprintf(w, "Cost per patient: %s (budgeted %s)\n", formatUSD(cpp.CurrentUSD), formatUSD(cpp.BudgetedUSD))
	if len(cpp.Trend) == 0 {
		return
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "MONTH\tCOST")
	for _, p := range cpp.Trend {
		fmt.Fprintf(tw, "%s\t%s\n", p.Month, formatUSD(p.CostUSD))
	}
	tw.Flush()
}

func renderAgents(w io.Writer, insights []models.AgentInsight, activity *models.AgentActivity) {
	if len(insights) == 0 {
		fmt.Fprintln(w, "No open insights.")
	} else {
		sort.SliceStable(insights, func(i, j int) bool {
			return models.SeverityRank(insights[i].Severity) < models.SeverityRank(insights[j].Severity)
		})
		fmt.Fprintf(w, "%s\n", colorize(colorBold, "Insights"))
		for _, in := range insights {
			site := ""
			if in.SiteID != "" {
				site = " [" + in.SiteID + "]"
			}
			fmt.Fprintf(w, "  %s %s%s: %s (%s, %s)\n",
				colorize(severityColor(in.Severity), strings.ToUpper(in.Severity)),
				in.Category, site, in.Summary, in.AgentID, utils.Ago(in.CreatedAt))
		}
	}

	if activity == nil || len(activity.Entries) == 0 {
		return
	}
	fmt.Fprintf(w, "\n%s\n", colorize(colorBold, "Recent investigations"))
	tw := newTable(w)
	fmt.Fprintln(tw, "QUERY\tSTATUS\tCONFIDENCE\tWHEN\tTOOK\tQUESTION")
	for _, e := range activity.Entries {
		fmt.Fprintf(tw, "%s\t%s\t%.0f%%\t%s\t%s\t%s\n",
			e.QueryID, colorize(statusColor(e.Status), e.Status),
			models.ConfidencePct(e.Confidence), utils.Ago(e.StartedAt),
			utils.HumanDuration(time.Duration(e.DurationMS)*time.Millisecond),
			truncate(e.Question, 48))
	}
	tw.Flush()
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
}
