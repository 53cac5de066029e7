package repo

import (
	"context"
	"net/http"
	"testing"
)

func TestStudySummaryDecodes(t *testing.T) {
	client := newTestCoreClient(func(req *http.Request) (*http.Response, error) {
		if req.URL.Path != "/dashboard/study-summary" {
			t.Fatalf("unexpected path: %s", req.URL.Path)
		}
		return jsonResponse(http.StatusOK, `{
			"protocol": "VRT-812-301",
			"phase": "III",
			"sites_active": 14,
			"sites_total": 16,
			"subjects_enrolled": 412,
			"subjects_target": 600,
			"enrollment_percent": 68.7
		}`), nil
	})

	summary, err := client.StudySummary(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.Protocol != "VRT-812-301" || summary.SubjectsEnrolled != 412 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
}

func TestAttentionSitesDecodes(t *testing.T) {
	client := newTestCoreClient(func(req *http.Request) (*http.Response, error) {
		if req.URL.Path != "/dashboard/attention-sites" {
			t.Fatalf("unexpected path: %s", req.URL.Path)
		}
		return jsonResponse(http.StatusOK, `[
			{"site_id":"S-204","name":"Hospital Clínico Madrid","severity":"critical","reasons":["enrollment stalled"]},
			{"site_id":"S-118","name":"Triangle Research","severity":"medium","reasons":["query backlog"]}
		]`), nil
	})

	sites, err := client.AttentionSites(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sites) != 2 || sites[0].SiteID != "S-204" || sites[0].Severity != "critical" {
		t.Fatalf("unexpected sites: %+v", sites)
	}
}

func TestKRITimeseriesBuildsSitePath(t *testing.T) {
	var gotPath string
	client := newTestCoreClient(func(req *http.Request) (*http.Response, error) {
		gotPath = req.URL.Path
		return jsonResponse(http.StatusOK, `{"site_id":"S-101","series":[{"name":"query rate","threshold":3,"points":[{"date":"2026-06-01T00:00:00Z","value":2.1}]}]}`), nil
	})

	series, err := client.KRITimeseries(context.Background(), "S-101")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotPath != "/dashboard/kri-timeseries/S-101" {
		t.Fatalf("unexpected path: %s", gotPath)
	}
	if len(series.Series) != 1 || series.Series[0].Name != "query rate" {
		t.Fatalf("unexpected series: %+v", series)
	}
}

func TestSiteScopedAccessorsRejectBadIDs(t *testing.T) {
	client := newTestCoreClient(func(req *http.Request) (*http.Response, error) {
		t.Fatal("no request expected")
		return nil, nil
	})

	ctx := context.Background()
	if _, err := client.Site(ctx, ""); err == nil {
		t.Fatal("expected error for empty site id")
	}
	if _, err := client.EnrollmentVelocity(ctx, "S-1/.."); err == nil {
		t.Fatal("expected error for unsafe site id")
	}
	if _, err := client.Vendor(ctx, "v 1"); err == nil {
		t.Fatal("expected error for unsafe vendor id")
	}
}

func TestVendorComparisonDecodes(t *testing.T) {
	client := newTestCoreClient(func(req *http.Request) (*http.Response, error) {
		if req.URL.Path != "/dashboard/vendor-comparison" {
			t.Fatalf("unexpected path: %s", req.URL.Path)
		}
		return jsonResponse(http.StatusOK, `{
			"dimensions": ["quality","timeliness"],
			"scores": {"VEND-01": {"quality": 91.5, "timeliness": 88}}
		}`), nil
	})

	cmp, err := client.VendorComparison(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cmp.Scores["VEND-01"]["quality"] != 91.5 {
		t.Fatalf("unexpected comparison: %+v", cmp)
	}
}

func TestAccessorDecodeFailureNamesEndpoint(t *testing.T) {
	client := newTestCoreClient(func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, `[1,2,3]`), nil
	})

	_, err := client.DataQuality(context.Background())
	if err == nil {
		t.Fatal("expected decode error for mismatched shape")
	}
}
