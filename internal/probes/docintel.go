package probes

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/infraguard/preflight/internal/config"
	"github.com/infraguard/preflight/internal/probe"
)

// DocIntelProbe validates an Azure Document Intelligence (Form
// Recognizer) endpoint. No Go SDK for this service is available in the
// retrieved dependency pack, so this probe speaks the REST API directly
// with the standard library HTTP client (see DESIGN.md).
type DocIntelProbe struct {
	cfg    config.DocIntelConfig
	client *http.Client
}

func NewDocIntelProbe(cfg config.DocIntelConfig) *DocIntelProbe {
	return &DocIntelProbe{cfg: cfg, client: &http.Client{Timeout: 30 * time.Second}}
}

func (p *DocIntelProbe) ID() string          { return "docintel" }
func (p *DocIntelProbe) DisplayName() string { return "Document Intelligence" }

func (p *DocIntelProbe) IsConfigured() bool {
	return allPresent(map[string]string{
		"DOCINTEL_ENDPOINT": p.cfg.Endpoint,
		"DOCINTEL_API_KEY":  p.cfg.APIKey,
	})
}

func (p *DocIntelProbe) do(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	var reader *bytes.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(ctx, method, p.cfg.Endpoint+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", p.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
	return p.client.Do(req)
}

func (p *DocIntelProbe) Execute(ctx context.Context, rec *probe.Recorder) (probe.Status, string, string) {
	resp, err := p.do(ctx, http.MethodGet, "/documentintelligence/info?api-version=2024-11-30", nil)
	if err != nil {
		rec.Record("api_connectivity", fail("could not reach endpoint: "+err.Error(),
			"verify DOCINTEL_ENDPOINT is correct and reachable", "connect_failed"))
		return probe.StatusFailed, "connection failed", "check DOCINTEL_ENDPOINT and network access"
	}
	resp.Body.Close()
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		rec.Record("api_connectivity", fail("authentication rejected",
			"verify DOCINTEL_API_KEY is valid", "auth_failed"))
		return probe.StatusFailed, "authentication failed", "check DOCINTEL_API_KEY"
	}
	rec.Record("api_connectivity", ok("endpoint reachable", map[string]interface{}{"status_code": resp.StatusCode}))

	analyzeBody, _ := json.Marshal(map[string]string{"urlSource": "https://example.com/sample-invoice.pdf"})
	analyzeResp, err := p.do(ctx, http.MethodPost,
		"/documentintelligence/documentModels/prebuilt-read:analyze?api-version=2024-11-30", analyzeBody)
	if err != nil {
		rec.Record("analyze_sample_document", fail("analyze request failed: "+err.Error(),
			"verify the endpoint accepts the prebuilt-read model", "analyze_failed"))
		return probe.StatusFailed, "sample analysis failed", "check model availability for this resource"
	}
	analyzeResp.Body.Close()
	rec.Record("analyze_sample_document", ok("analyze request accepted", map[string]interface{}{"status_code": analyzeResp.StatusCode}))

	modelResp, err := p.do(ctx, http.MethodGet, "/documentintelligence/documentModels/prebuilt-read?api-version=2024-11-30", nil)
	if err != nil {
		rec.Record("model_info", fail("model info request failed: "+err.Error(),
			"verify the prebuilt-read model is available on this resource", "model_info_failed"))
		return probe.StatusFailed, "model info request failed", "check model availability"
	}
	modelResp.Body.Close()
	rec.Record("model_info", ok("model info retrieved", map[string]interface{}{"status_code": modelResp.StatusCode}))

	return probe.StatusPassed, "Document Intelligence reachable", ""
}
