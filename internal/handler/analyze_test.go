package handler

import (
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/urlguard/urlguard/internal/classifier"
	"github.com/urlguard/urlguard/internal/handler/dto"
)

func TestAnalyze(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		url       string
		threat    classifier.ThreatType
		score     int
		level     classifier.RiskLevel
		nWarnings int
	}{
		{"benign", "https://www.google.com", classifier.ThreatBenign, 0, classifier.RiskLow, 0},
		{"phishing", "http://192.168.1.1/login.php", classifier.ThreatPhishing, 42, classifier.RiskMedium, 2},
		{"shortener", "http://bit.ly/xyz123", classifier.ThreatBenign, 12, classifier.RiskLow, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ts := newTestServer(t, serverOptions{})
			rec := ts.do(t, http.MethodPost, "/api/v1/analyze", `{"url":"`+tt.url+`"}`, "")
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
			}

			got := decodeBody[dto.AnalysisResponse](t, rec)
			if got.ThreatType != tt.threat || got.RiskScore != tt.score || got.RiskLevel != tt.level {
				t.Errorf("got %s/%d/%s, want %s/%d/%s", got.ThreatType, got.RiskScore, got.RiskLevel, tt.threat, tt.score, tt.level)
			}
			if len(got.Warnings) != tt.nWarnings {
				t.Errorf("warnings = %q", got.Warnings)
			}
			if got.Description != tt.threat.Description() {
				t.Errorf("description = %q", got.Description)
			}
			if got.URL != tt.url || got.Features.URLLength != len(tt.url) {
				t.Errorf("url %q length %d", got.URL, got.Features.URLLength)
			}
			if got.ScanID == "" {
				t.Error("scanId empty with history enabled")
			}
			if got.AnalyzedAt.IsZero() {
				t.Error("analyzedAt is zero")
			}
		})
	}
}

func TestAnalyze_WireNames(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, serverOptions{noHistory: true})
	rec := ts.do(t, http.MethodPost, "/api/v1/analyze", `{"url":"https://www.google.com"}`, "")

	body := decodeBody[map[string]any](t, rec)
	for _, key := range []string{"scanId", "url", "threatType", "confidence", "riskScore", "riskLevel", "description", "features", "warnings", "cached", "analyzedAt"} {
		if _, ok := body[key]; !ok {
			t.Errorf("response missing %q", key)
		}
	}
	if body["scanId"] != "" {
		t.Errorf("scanId = %v, want empty without history", body["scanId"])
	}
	if warnings, ok := body["warnings"].([]any); !ok || len(warnings) != 0 {
		t.Errorf("warnings = %v, want []", body["warnings"])
	}
	feats, _ := body["features"].(map[string]any)
	if len(feats) != 21 {
		t.Errorf("features has %d fields, want 21", len(feats))
	}
	if _, ok := feats["useOfIp"]; !ok {
		t.Error("features missing useOfIp")
	}
}

func TestAnalyze_TrimsInput(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, serverOptions{})
	rec := ts.do(t, http.MethodPost, "/api/v1/analyze", `{"url":"  https://www.google.com \n"}`, "")

	got := decodeBody[dto.AnalysisResponse](t, rec)
	if got.URL != "https://www.google.com" || got.RiskScore != 0 {
		t.Errorf("url %q score %d", got.URL, got.RiskScore)
	}
}

func TestAnalyze_InvalidInput(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		body   string
		status int
		code   string
	}{
		{"missing field", `{}`, http.StatusBadRequest, "MISSING_URL"},
		{"blank", `{"url":"   "}`, http.StatusBadRequest, "MISSING_URL"},
		{"too long", `{"url":"` + strings.Repeat("a", 65) + `"}`, http.StatusBadRequest, "URL_TOO_LONG"},
		{"bad json", `{"url":`, http.StatusBadRequest, "INVALID_JSON"},
		{"wrong type", `{"url":42}`, http.StatusBadRequest, "INVALID_JSON"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ts := newTestServer(t, serverOptions{})
			assertError(t, ts.do(t, http.MethodPost, "/api/v1/analyze", tt.body, ""), tt.status, tt.code)
		})
	}
}

func TestAnalyzeQuery(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, serverOptions{})

	rec := ts.do(t, http.MethodGet, "/api/v1/analyze?url="+url.QueryEscape("http://example.com/a@b/secure-login?x=1&y=2"), "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	got := decodeBody[dto.AnalysisResponse](t, rec)
	if got.ThreatType != classifier.ThreatPhishing || got.RiskScore != 37 {
		t.Errorf("got %s/%d, want phishing/37", got.ThreatType, got.RiskScore)
	}

	assertError(t, ts.do(t, http.MethodGet, "/api/v1/analyze", "", ""), http.StatusBadRequest, "MISSING_URL")
}

func TestAnalyzeBatch(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, serverOptions{maxBatchSize: 5})
	urls := []string{
		"https://www.google.com",
		"http://192.168.1.1/login.php",
		"http://bit.ly/xyz123",
		"https://www.google.com",
	}
	body := `{"urls":["` + strings.Join(urls, `","`) + `"]}`

	rec := ts.do(t, http.MethodPost, "/api/v1/analyze/batch", body, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	got := decodeBody[dto.BatchAnalysisResponse](t, rec)
	if got.Count != len(urls) || len(got.Results) != len(urls) {
		t.Fatalf("count %d results %d", got.Count, len(got.Results))
	}
	for i, u := range urls {
		if got.Results[i].URL != u {
			t.Errorf("results[%d].url = %q, want %q", i, got.Results[i].URL, u)
		}
	}
	if got.Results[1].ThreatType != classifier.ThreatPhishing {
		t.Errorf("results[1] = %s", got.Results[1].ThreatType)
	}

	if snap := ts.recorder.Snapshot(); snap.BatchCount != 1 || snap.BatchURLsTotal != 4 {
		t.Errorf("batch metrics = %d/%d", snap.BatchCount, snap.BatchURLsTotal)
	}
}

func TestAnalyzeBatch_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		body  string
		code  string
		inMsg string
	}{
		{"empty", `{"urls":[]}`, "EMPTY_BATCH", ""},
		{"missing", `{}`, "EMPTY_BATCH", ""},
		{"too large", `{"urls":["a","b","c","d"]}`, "BATCH_TOO_LARGE", "limit of 3"},
		{"blank entry", `{"urls":["a"," "]}`, "MISSING_URL", "urls[1]"},
		{"long entry", `{"urls":["` + strings.Repeat("a", 65) + `"]}`, "URL_TOO_LONG", "urls[0]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ts := newTestServer(t, serverOptions{maxBatchSize: 3})
			rec := ts.do(t, http.MethodPost, "/api/v1/analyze/batch", tt.body, "")
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
			got := decodeBody[dto.ErrorResponse](t, rec)
			if got.Code != tt.code || !strings.Contains(got.Error, tt.inMsg) {
				t.Errorf("got %+v, want code %s containing %q", got, tt.code, tt.inMsg)
			}
		})
	}
}
