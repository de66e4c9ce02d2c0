package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/hidetak/trello-csv/internal/config"
	"github.com/rs/zerolog"
)

type Client struct {
	key   string
	model string
	http  *http.Client
	log   zerolog.Logger
}

func NewClient(cfg config.Config, log zerolog.Logger) *Client {
	return &Client{key: cfg.OpenAIKey, model: cfg.OpenAIModel, http: &http.Client{Timeout: cfg.OpenAITimeout}, log: log}
}

// Summarize turns board KPI numbers into a short digest commentary. Only
// aggregate numbers leave the process, never card titles or comments.
func (c *Client) Summarize(ctx context.Context, kpis map[string]float64) (string, error) {
	if strings.TrimSpace(c.key) == "" { return "", errors.New("openai: missing key") }
	body := map[string]any{
		"model": c.model,
		"messages": []map[string]string{
			{"role": "system", "content": "You are a senior agile coach. Given kanban board KPIs (card counts, points, done and remaining work), produce a concise, actionable progress summary with anomalies and suggested actions."},
			{"role": "user", "content": fmt.Sprintf("%v", kpis)},
		},
		"temperature": 0.2,
	}
	b, _ := json.Marshal(body)
	req, _ := http.NewRequestWithContext(ctx, http.MethodPost, "https://api.openai.com/v1/chat/completions", bytes.NewReader(b))
	req.Header.Set("Authorization", "Bearer "+c.key)
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil { return "", err }
	defer resp.Body.Close()
	if resp.StatusCode >= 300 { return "", fmt.Errorf("openai status=%d", resp.StatusCode) }
	var out struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil { return "", err }
	if len(out.Choices) == 0 { return "", errors.New("openai: no choices") }
	return out.Choices[0].Message.Content, nil
}
