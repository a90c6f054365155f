package server

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/iwvelando/finance-calculators/internal/insight"
	"github.com/iwvelando/finance-calculators/pkg/calc"
	"github.com/iwvelando/finance-calculators/pkg/constants"
	"go.uber.org/zap"
)

const testWorksheet = `
output:
  format: csv
sheets:
  - name: mortgage
    calculator: loan
    fields:
      amount: "250000"
      rate: "4.5"
      years: "30"
  - name: margin
    calculator: accounting
    mode: margin
    fields:
      cost: "60"
      revenue: "100"
`

type stubGenerator struct {
	requests []calc.InsightRequest
}

func (g *stubGenerator) Generate(_ context.Context, req calc.InsightRequest) string {
	g.requests = append(g.requests, req)
	return "Pay it down early."
}

func newTestHandler(maxUploadSize int64) http.Handler {
	return NewHandler(zap.NewNop(), maxUploadSize, "test", &stubGenerator{})
}

func TestHandleCalculators(t *testing.T) {
	handler := newTestHandler(constants.DefaultMaxUploadSizeBytes)

	req := httptest.NewRequest(http.MethodGet, "/api/calculators", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp struct {
		Calculators []calculatorInfo `json:"calculators"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Calculators) != 6 {
		t.Fatalf("expected 6 calculators, got %d", len(resp.Calculators))
	}

	byName := make(map[string]calculatorInfo)
	for _, info := range resp.Calculators {
		byName[info.Name] = info
	}
	if got := byName["percentage"].Modes; len(got) != 3 {
		t.Fatalf("expected 3 percentage modes, got %v", got)
	}
	if got := byName["loan"]; len(got.Modes) != 0 || len(got.Fields) != 3 {
		t.Fatalf("unexpected loan info %+v", got)
	}
	if got := byName["planner"].Fields; len(got) != 24 {
		t.Fatalf("expected 24 planner fields, got %d", len(got))
	}
}

func TestHandleCalculate(t *testing.T) {
	handler := newTestHandler(constants.DefaultMaxUploadSizeBytes)

	payload := map[string]interface{}{
		"calculator": "investment",
		"mode":       "yearly",
		"fields": map[string]string{
			"initial":      "1000",
			"contribution": "0",
			"rate":         "10",
			"years":        "2",
		},
	}
	rr := performEditorJSON(t, handler, payload, "/api/calculate")

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp calculateResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !resp.Computable || resp.Mode != "yearly" || resp.Duration == "" {
		t.Fatalf("unexpected response %+v", resp)
	}
	fv, ok := resp.Result.Get("futureValue")
	if !ok || fv < 1209.99 || fv > 1210.01 {
		t.Fatalf("expected future value 1210, got %v (%v)", fv, ok)
	}
	if resp.Fields["initial"] != "1000" {
		t.Fatalf("expected raw field text echoed, got %v", resp.Fields)
	}
}

func TestHandleCalculatePlanner(t *testing.T) {
	handler := newTestHandler(constants.DefaultMaxUploadSizeBytes)

	payload := map[string]interface{}{
		"calculator":    "planner",
		"months":        []map[string]interface{}{{"id": 2, "income": "3000", "expenses": "1000"}},
		"propagateFrom": 2,
	}
	rr := performEditorJSON(t, handler, payload, "/api/calculate")

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp calculateResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Months) != 12 || resp.Months[11].Income != "3000" || resp.Months[0].Income != "" {
		t.Fatalf("unexpected months %+v", resp.Months)
	}
	savings, _ := resp.Result.Get("savings")
	if savings != 22000 {
		t.Fatalf("expected savings 22000, got %v", savings)
	}
}

func TestHandleCalculateNotComputable(t *testing.T) {
	handler := newTestHandler(constants.DefaultMaxUploadSizeBytes)

	payload := map[string]interface{}{
		"calculator": "loan",
		"fields":     map[string]string{"amount": "250000", "rate": "0", "years": "30"},
	}
	rr := performEditorJSON(t, handler, payload, "/api/calculate")

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp calculateResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Computable || len(resp.Result.Values) != 0 {
		t.Fatalf("expected no result, got %+v", resp.Result)
	}
}

func TestHandleCalculateErrors(t *testing.T) {
	handler := newTestHandler(constants.DefaultMaxUploadSizeBytes)

	tests := []struct {
		name    string
		payload map[string]interface{}
		want    string
	}{
		{"unknown calculator", map[string]interface{}{"calculator": "abacus"}, "unknown calculator"},
		{"unknown field", map[string]interface{}{"calculator": "vat", "fields": map[string]string{"price": "1"}}, "unknown field"},
		{"unknown mode", map[string]interface{}{"calculator": "accounting", "mode": "payroll"}, "unknown mode"},
		{"unknown month", map[string]interface{}{"calculator": "planner", "propagateFrom": 13}, "unknown month"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := performEditorJSON(t, handler, tt.payload, "/api/calculate")
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("expected status 400, got %d: %s", rr.Code, rr.Body.String())
			}
			var resp map[string]string
			if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
				t.Fatalf("failed to decode error response: %v", err)
			}
			if !strings.Contains(resp["error"], tt.want) {
				t.Fatalf("expected error containing %q, got %q", tt.want, resp["error"])
			}
		})
	}
}

func TestHandleCalculateBadJSON(t *testing.T) {
	handler := newTestHandler(constants.DefaultMaxUploadSizeBytes)

	req := httptest.NewRequest(http.MethodPost, "/api/calculate", strings.NewReader("{"))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
}

func TestHandleCalculateTooLarge(t *testing.T) {
	handler := newTestHandler(32)

	payload := map[string]interface{}{
		"calculator": "percentage",
		"fields":     map[string]string{"a": strings.Repeat("1", 64), "b": "2"},
	}
	rr := performEditorJSON(t, handler, payload, "/api/calculate")

	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected status 413, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestHandleInsight(t *testing.T) {
	gen := &stubGenerator{}
	handler := NewHandler(zap.NewNop(), constants.DefaultMaxUploadSizeBytes, "test", gen)

	payload := map[string]interface{}{
		"calculator": "loan",
		"fields":     map[string]string{"amount": "250000", "rate": "4.5", "years": "30"},
	}
	rr := performEditorJSON(t, handler, payload, "/api/insight")

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp insightResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Insight != "Pay it down early." {
		t.Fatalf("unexpected insight %q", resp.Insight)
	}
	if resp.Context != "Loan/Mortgage Calculation" || resp.Data["TotalInterest"] != "206016.78" {
		t.Fatalf("unexpected insight record %+v", resp)
	}
	if len(gen.requests) != 1 {
		t.Fatalf("expected one generator call, got %d", len(gen.requests))
	}
}

func TestHandleInsightWithoutCredentials(t *testing.T) {
	handler := NewHandler(zap.NewNop(), constants.DefaultMaxUploadSizeBytes, "test", nil)

	payload := map[string]interface{}{
		"calculator": "vat",
		"fields":     map[string]string{"amount": "100", "rate": "20"},
	}
	rr := performEditorJSON(t, handler, payload, "/api/insight")

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp insightResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Insight != insight.FallbackMissingCredentials {
		t.Fatalf("expected missing credentials fallback, got %q", resp.Insight)
	}
}

func TestHandleInsightNotComputable(t *testing.T) {
	gen := &stubGenerator{}
	handler := NewHandler(zap.NewNop(), constants.DefaultMaxUploadSizeBytes, "test", gen)

	payload := map[string]interface{}{
		"calculator": "percentage",
		"mode":       "XisY",
		"fields":     map[string]string{"a": "5", "b": "0"},
	}
	rr := performEditorJSON(t, handler, payload, "/api/insight")

	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected status 422, got %d: %s", rr.Code, rr.Body.String())
	}
	if len(gen.requests) != 0 {
		t.Fatalf("generator must not be called for incomplete inputs")
	}
}

func TestHandleWorksheetSuccess(t *testing.T) {
	handler := newTestHandler(constants.DefaultMaxUploadSizeBytes)

	rr := performUpload(t, handler, testWorksheet, "worksheet.yaml")

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp worksheetResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if len(resp.Sheets) != 2 {
		t.Fatalf("expected 2 sheets, got %d", len(resp.Sheets))
	}
	if resp.Sheets[1].Mode != "margin" {
		t.Fatalf("expected margin mode, got %q", resp.Sheets[1].Mode)
	}
	if resp.Sheets[0].Insight != "" {
		t.Fatal("insights are opt-in")
	}
	if resp.CSV == "" {
		t.Fatal("expected CSV data in response")
	}
	if resp.Duration == "" {
		t.Fatal("expected duration in response")
	}
	if resp.Config == nil {
		t.Fatal("expected config data in response")
	}
	if resp.ConfigYAML == "" {
		t.Fatal("expected config YAML in response")
	}
}

func TestHandleWorksheetEditorSuccess(t *testing.T) {
	handler := newTestHandler(constants.DefaultMaxUploadSizeBytes)

	payload := map[string]interface{}{
		"config": map[string]interface{}{
			"sheets": []interface{}{
				map[string]interface{}{
					"name":       "vat",
					"calculator": "vat",
					"mode":       "inclusive",
					"fields":     map[string]interface{}{"amount": "120", "rate": "20"},
				},
				map[string]interface{}{"name": "dup", "calculator": "vat"},
				map[string]interface{}{"name": "dup", "calculator": "vat"},
			},
		},
		"options": map[string]interface{}{"insight": "true"},
	}

	rr := performEditorJSON(t, handler, payload, "/api/editor/worksheet")

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp worksheetResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Sheets) != 3 {
		t.Fatalf("expected 3 sheets, got %d", len(resp.Sheets))
	}
	net, _ := resp.Sheets[0].Result.Get("netAmount")
	if net < 99.99 || net > 100.01 {
		t.Fatalf("expected net amount 100, got %v", net)
	}
	if resp.Sheets[0].Insight != "Pay it down early." {
		t.Fatalf("expected insight for computable sheet, got %q", resp.Sheets[0].Insight)
	}
	if resp.Sheets[1].Insight != "" {
		t.Fatalf("expected no insight for incomplete sheet, got %q", resp.Sheets[1].Insight)
	}
	if len(resp.Warnings) != 1 || !strings.Contains(resp.Warnings[0], "more than once") {
		t.Fatalf("expected duplicate sheet warning, got %v", resp.Warnings)
	}
}

func TestHandleConfigExport(t *testing.T) {
	handler := newTestHandler(constants.DefaultMaxUploadSizeBytes)

	payload := map[string]interface{}{
		"sheets": []interface{}{
			map[string]interface{}{
				"name":       "sample",
				"calculator": "loan",
			},
		},
		"insight": map[string]interface{}{
			"enabled": false,
		},
		"output": map[string]interface{}{
			"format": "pretty",
		},
		"logging": map[string]interface{}{
			"level": "info",
		},
	}

	rr := performEditorJSON(t, handler, payload, "/api/editor/export")

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	yamlStr := resp["configYaml"]
	if yamlStr == "" {
		t.Fatal("expected configYaml in response")
	}

	var orderedTop []string
	for _, line := range strings.Split(strings.TrimRight(yamlStr, "\n"), "\n") {
		if len(line) == 0 || strings.HasPrefix(line, " ") || strings.HasPrefix(line, "-") {
			continue
		}
		orderedTop = append(orderedTop, strings.TrimSpace(line))
	}

	want := []string{"logging:", "output:", "insight:", "sheets:"}
	if len(orderedTop) != len(want) {
		t.Fatalf("expected top-level keys %v, got %v", want, orderedTop)
	}
	for i, key := range want {
		if orderedTop[i] != key {
			t.Fatalf("expected key %d to be %s, got %s", i, key, orderedTop[i])
		}
	}
}

func TestHandleVersion(t *testing.T) {
	handler := NewHandler(zap.NewNop(), 0, "  v1.2.3 ", nil)

	req := httptest.NewRequest(http.MethodGet, "/api/version", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	var resp map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp["version"] != "v1.2.3" {
		t.Fatalf("expected trimmed version, got %q", resp["version"])
	}
}

func TestMethodNotAllowed(t *testing.T) {
	handler := newTestHandler(constants.DefaultMaxUploadSizeBytes)

	tests := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/worksheet"},
		{http.MethodGet, "/api/calculate"},
		{http.MethodGet, "/api/insight"},
		{http.MethodPost, "/api/calculators"},
		{http.MethodPost, "/api/version"},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(tt.method, tt.path, nil)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		if rr.Code != http.StatusMethodNotAllowed {
			t.Fatalf("%s %s: expected status 405, got %d", tt.method, tt.path, rr.Code)
		}
	}
}

func TestHandleWorksheetUploadTooLarge(t *testing.T) {
	handler := newTestHandler(64)

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", "worksheet.yaml")
	if err != nil {
		t.Fatalf("failed to create form file: %v", err)
	}
	if _, err := part.Write([]byte(strings.Repeat("a", 128))); err != nil {
		t.Fatalf("failed to write oversized payload: %v", err)
	}

	if err := writer.Close(); err != nil {
		t.Fatalf("failed to close writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/worksheet", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected status 413, got %d", rr.Code)
	}

	var resp map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	if !strings.Contains(resp["error"], "upload exceeds limit") {
		t.Fatalf("expected upload limit error message, got %q", resp["error"])
	}
}

func TestHandleWorksheetMissingFile(t *testing.T) {
	handler := newTestHandler(constants.DefaultMaxUploadSizeBytes)

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	if err := writer.Close(); err != nil {
		t.Fatalf("failed to close writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/worksheet", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}

	var resp map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	if resp["error"] != "missing worksheet file" {
		t.Fatalf("expected missing file error, got %q", resp["error"])
	}
}

func TestHandleWorksheetInvalidYAML(t *testing.T) {
	handler := newTestHandler(constants.DefaultMaxUploadSizeBytes)

	rr := performUpload(t, handler, "sheets: [", "worksheet.yaml")

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}

	var resp map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	if !strings.Contains(resp["error"], "error reading worksheet data") {
		t.Fatalf("expected parse error message, got %q", resp["error"])
	}
}

func TestHandleWorksheetBadSheet(t *testing.T) {
	handler := newTestHandler(constants.DefaultMaxUploadSizeBytes)

	worksheet := `
sheets:
  - name: broken
    calculator: percentage
    mode: ratio
`
	rr := performUpload(t, handler, worksheet, "worksheet.yaml")

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}

	var resp map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	if !strings.Contains(resp["error"], "sheet broken") {
		t.Fatalf("expected sheet error message, got %q", resp["error"])
	}
}

func performUpload(t *testing.T, handler http.Handler, content, filename string) *httptest.ResponseRecorder {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("failed to create form file: %v", err)
	}
	if _, err := part.Write([]byte(content)); err != nil {
		t.Fatalf("failed to write form data: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("failed to close writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/worksheet", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	return rr
}

func performEditorJSON(t *testing.T, handler http.Handler, payload map[string]interface{}, path string) *httptest.ResponseRecorder {
	t.Helper()

	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("failed to marshal payload: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	return rr
}
