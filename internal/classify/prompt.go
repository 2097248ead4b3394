// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package classify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"text/template"
)

// sentimentPromptTmpl is the fixed prompt sent to the Claude API for one
// study. It demands strict JSON so the parser can enforce the contract.
var sentimentPromptTmpl = template.Must(template.New("sentiment").Parse(`You are analyzing a scientific study about the supplement "{{.Supplement}}".

Study text (title and abstract, possibly truncated):
{{.Text}}

Classify the study's findings with respect to {{.Supplement}}'s effectiveness:
- "positive": the findings support a beneficial effect
- "negative": the findings show no effect, harm, or failure to improve outcomes
- "neutral": the findings are inconclusive, mixed, or not about effectiveness

Respond with only a JSON object, no other text:
{"sentiment": "positive|negative|neutral", "confidence": 0.0-1.0, "reasoning": "one sentence"}
`))

// claudeAPIURL is the Claude API endpoint. Package-level var for test
// substitution.
var claudeAPIURL = "https://api.anthropic.com/v1/messages"

// ClaudeBackend calls the Claude API to classify one study.
type ClaudeBackend struct {
	APIKey string
	Model  string
	Client *http.Client
}

// claudeRequest is the request body for the Claude Messages API.
type claudeRequest struct {
	Model       string          `json:"model"`
	MaxTokens   int             `json:"max_tokens"`
	Temperature float64         `json:"temperature"`
	Messages    []claudeMessage `json:"messages"`
}

// claudeMessage is a single message in the Claude API conversation.
type claudeMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// claudeResponse is the response body from the Claude Messages API.
type claudeResponse struct {
	Content []claudeContent `json:"content"`
}

// claudeContent is a content block in the Claude API response.
type claudeContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Classify sends the sentiment prompt for one study and returns the raw
// model text. Temperature is pinned low so the JSON contract holds.
func (c *ClaudeBackend) Classify(ctx context.Context, text, supplement string) (string, error) {
	prompt, err := renderPrompt(text, supplement)
	if err != nil {
		return "", fmt.Errorf("rendering prompt: %w", err)
	}

	reqBody := claudeRequest{
		Model:       c.Model,
		MaxTokens:   256,
		Temperature: 0.1,
		Messages: []claudeMessage{
			{Role: "user", Content: prompt},
		},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, claudeAPIURL, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.APIKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	client := c.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling Claude API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("Claude API returned %d: %s", resp.StatusCode, string(body))
	}

	var cResp claudeResponse
	if err := json.NewDecoder(resp.Body).Decode(&cResp); err != nil {
		return "", fmt.Errorf("decoding Claude response: %w", err)
	}

	for _, block := range cResp.Content {
		if block.Type == "text" {
			return block.Text, nil
		}
	}

	return "", fmt.Errorf("no text content in Claude API response")
}

// renderPrompt executes the sentiment prompt template.
func renderPrompt(text, supplement string) (string, error) {
	var buf bytes.Buffer
	err := sentimentPromptTmpl.Execute(&buf, struct {
		Text       string
		Supplement string
	}{Text: text, Supplement: supplement})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}
