package handler

import (
	"net/http"
	"testing"

	"github.com/urlguard/urlguard/internal/classifier"
	"github.com/urlguard/urlguard/internal/handler/dto"
)

func seedScans(t *testing.T, ts *testServer, urls ...string) []string {
	t.Helper()
	ids := make([]string, 0, len(urls))
	for _, u := range urls {
		rec := ts.do(t, http.MethodPost, "/api/v1/analyze", `{"url":"`+u+`"}`, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("seed %q: status %d", u, rec.Code)
		}
		ids = append(ids, decodeBody[dto.AnalysisResponse](t, rec).ScanID)
	}
	return ids
}

func TestScans_List(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, serverOptions{})
	seedScans(t, ts, "https://www.google.com", "http://192.168.1.1/login.php", "http://bit.ly/xyz123")

	rec := ts.do(t, http.MethodGet, "/api/v1/scans", "", readToken)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	got := decodeBody[dto.ScanListResponse](t, rec)
	if len(got.Data) != 3 || got.Pagination.HasMore {
		t.Fatalf("got %d scans, has_more %v", len(got.Data), got.Pagination.HasMore)
	}
	if got.Data[0].URL != "http://bit.ly/xyz123" {
		t.Errorf("newest first: data[0] = %q", got.Data[0].URL)
	}

	rec = ts.do(t, http.MethodGet, "/api/v1/scans?threat_type=PHISHING", "", readToken)
	got = decodeBody[dto.ScanListResponse](t, rec)
	if len(got.Data) != 1 || got.Data[0].ThreatType != classifier.ThreatPhishing {
		t.Errorf("filtered = %+v", got.Data)
	}
	if got.Data[0].RiskLevel != classifier.RiskMedium {
		t.Errorf("risk_level = %s", got.Data[0].RiskLevel)
	}

	rec = ts.do(t, http.MethodGet, "/api/v1/scans?limit=2", "", readToken)
	got = decodeBody[dto.ScanListResponse](t, rec)
	if len(got.Data) != 2 || !got.Pagination.HasMore || got.Pagination.NextCursor == "" {
		t.Errorf("page = %d scans, pagination %+v", len(got.Data), got.Pagination)
	}
}

func TestScans_ListErrors(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, serverOptions{})
	assertError(t, ts.do(t, http.MethodGet, "/api/v1/scans", "", ""), http.StatusUnauthorized, "UNAUTHORIZED")
	assertError(t, ts.do(t, http.MethodGet, "/api/v1/scans", "", "bogus"), http.StatusUnauthorized, "UNAUTHORIZED")
	assertError(t, ts.do(t, http.MethodGet, "/api/v1/scans?threat_type=spam", "", readToken), http.StatusBadRequest, "INVALID_THREAT_TYPE")
	assertError(t, ts.do(t, http.MethodGet, "/api/v1/scans?cursor=bad", "", readToken), http.StatusBadRequest, "INVALID_CURSOR")

	disabled := newTestServer(t, serverOptions{noHistory: true})
	assertError(t, disabled.do(t, http.MethodGet, "/api/v1/scans", "", readToken), http.StatusServiceUnavailable, "FEATURE_DISABLED")
}

func TestScans_Get(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, serverOptions{})
	ids := seedScans(t, ts, "http://192.168.1.1/login.php")

	rec := ts.do(t, http.MethodGet, "/api/v1/scans/"+ids[0], "", readToken)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	got := decodeBody[dto.ScanResponse](t, rec)
	if got.ID != ids[0] || got.RiskScore != 42 || len(got.Warnings) != 2 || got.Source != "api" {
		t.Errorf("scan = %+v", got)
	}

	assertError(t, ts.do(t, http.MethodGet, "/api/v1/scans/missing", "", readToken), http.StatusNotFound, "SCAN_NOT_FOUND")
}

func TestStats(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, serverOptions{})
	seedScans(t, ts, "https://www.google.com", "http://192.168.1.1/login.php", "https://www.google.com")

	rec := ts.do(t, http.MethodGet, "/api/v1/stats", "", readToken)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	got := decodeBody[dto.StatsResponse](t, rec)
	if got.Total != 3 {
		t.Errorf("total = %d", got.Total)
	}
	want := map[string]int64{"benign": 2, "phishing": 1, "malware": 0, "defacement": 0}
	for k, v := range want {
		n, ok := got.ByType[k]
		if !ok || n != v {
			t.Errorf("by_type[%s] = %d (present %v), want %d", k, n, ok, v)
		}
	}

	disabled := newTestServer(t, serverOptions{noHistory: true})
	assertError(t, disabled.do(t, http.MethodGet, "/api/v1/stats", "", readToken), http.StatusServiceUnavailable, "FEATURE_DISABLED")
}
