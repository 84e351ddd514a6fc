package explain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/railops/induction/core/model"
	"github.com/railops/induction/infra/logger"
)

// Config defines the local LLM endpoint used for narrative explanations.
type Config struct {
	Enabled        bool   `json:"enabled"`
	BaseURL        string `json:"base_url"`
	Model          string `json:"model"`
	TimeoutSeconds int    `json:"timeout_seconds"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = "http://localhost:11434"
	}
	if c.Model == "" {
		c.Model = "gemma2:2b"
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 10
	}
}

// OllamaClient generates explanations via a local Ollama instance. Callers
// bound the wait through the request context and fall back to Fallback on
// any error.
type OllamaClient struct {
	cfg    Config
	client *http.Client
	log    logger.Logger
}

// NewOllamaClient creates a client with the configured timeout.
func NewOllamaClient(cfg Config) *OllamaClient {
	return &OllamaClient{
		cfg:    cfg,
		client: &http.Client{Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second},
		log:    logger.New("ollama-client"),
	}
}

type generateRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	Stream  bool           `json:"stream"`
	Options map[string]any `json:"options,omitempty"`
}

type generateResponse struct {
	Response string `json:"response"`
}

// GenerateExplanation implements Generator.
func (c *OllamaClient) GenerateExplanation(ctx context.Context, a model.RankedAsset) (Explanation, error) {
	body, err := json.Marshal(generateRequest{
		Model:  c.cfg.Model,
		Prompt: explanationPrompt(a),
		Stream: false,
		Options: map[string]any{
			"temperature": 0.3,
			"top_p":       0.9,
		},
	})
	if err != nil {
		return Explanation{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return Explanation{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return Explanation{}, fmt.Errorf("ollama request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Explanation{}, fmt.Errorf("ollama status %d", resp.StatusCode)
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Explanation{}, fmt.Errorf("ollama response: %w", err)
	}
	return parseExplanation(out.Response), nil
}

func explanationPrompt(a model.RankedAsset) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are an assistant for a metro rail maintenance optimization system.\n")
	fmt.Fprintf(&b, "Analyze the following trainset assessment and provide a clear, professional explanation.\n\n")
	fmt.Fprintf(&b, "TRAIN DETAILS:\n")
	fmt.Fprintf(&b, "- Train ID: %s\n", a.Asset.AssetNum)
	fmt.Fprintf(&b, "- Current Mileage: %.0f km\n", a.Mileage)
	fmt.Fprintf(&b, "- Days Since Last Maintenance: %d\n", a.DaysSinceMaint)
	fmt.Fprintf(&b, "- Location: %s\n\n", a.Asset.Location)
	fmt.Fprintf(&b, "ASSESSMENT:\n")
	fmt.Fprintf(&b, "- ML Risk Score: %.3f\n", a.MLRiskScore)
	fmt.Fprintf(&b, "- Rules-Based Risk Score: %.3f\n", a.RulesRiskScore)
	fmt.Fprintf(&b, "- Combined Risk Score: %.3f (%s)\n", a.CombinedRiskScore, a.RiskCategory)
	fmt.Fprintf(&b, "- Composite Ranking Score: %.3f\n\n", a.Scores.Composite)
	fmt.Fprintf(&b, "IDENTIFIED RISK FACTORS:\n")
	if len(a.RiskFactors) == 0 {
		b.WriteString("- No specific risk factors identified\n")
	}
	for _, f := range a.RiskFactors {
		fmt.Fprintf(&b, "- %s\n", f)
	}
	b.WriteString(`
Format your response as:
SUMMARY: [2-3 sentence explanation]
TECHNICAL_REASONING: [why the assessment came out this way]
BUSINESS_IMPACT: [operational impact]
RECOMMENDED_ACTION: [specific next steps]
`)
	return b.String()
}

// parseExplanation splits the model's sectioned response. Unknown lines are
// appended to the current section so multi-line answers survive.
func parseExplanation(raw string) Explanation {
	sections := map[string]*strings.Builder{
		"SUMMARY":             {},
		"TECHNICAL_REASONING": {},
		"BUSINESS_IMPACT":     {},
		"RECOMMENDED_ACTION":  {},
	}
	var current *strings.Builder
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		matched := false
		for key, sb := range sections {
			if strings.HasPrefix(line, key+":") {
				current = sb
				current.WriteString(strings.TrimSpace(strings.TrimPrefix(line, key+":")))
				matched = true
				break
			}
		}
		if !matched && current != nil {
			current.WriteString(" " + line)
		}
	}
	return Explanation{
		Summary:            sections["SUMMARY"].String(),
		TechnicalReasoning: sections["TECHNICAL_REASONING"].String(),
		BusinessImpact:     sections["BUSINESS_IMPACT"].String(),
		RecommendedAction:  sections["RECOMMENDED_ACTION"].String(),
	}
}
