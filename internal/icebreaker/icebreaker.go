package icebreaker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"
)

var (
	ErrNoAPIKey           = errors.New("gemini api key is not set")
	ErrUnexpectedResponse = errors.New("unexpected gemini response format")
)

var numberedItemRe = regexp.MustCompile(`\d+\.\s*(.+)`)

const promptTemplate = "Based on the YouTube video title '%s', generate exactly 3 short, fun, and engaging " +
	"conversation starters or 'icebreakers' for a watch party. Format them as a numbered list, " +
	"like '1. Question one?'. Do not add any extra introduction or conclusion."

type geminiRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type geminiResponse struct {
	Candidates []struct {
		Content *content `json:"content"`
	} `json:"candidates"`
}

// GeminiGenerator asks the Gemini generateContent endpoint for discussion prompts.
type GeminiGenerator struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

func NewGeminiGenerator(apiKey string, httpClient *http.Client) *GeminiGenerator {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 20 * time.Second}
	}

	return &GeminiGenerator{
		apiKey:     apiKey,
		baseURL:    "https://generativelanguage.googleapis.com/v1beta",
		model:      "gemini-1.5-flash-latest",
		httpClient: httpClient,
	}
}

func (g *GeminiGenerator) WithBaseURL(baseURL string) *GeminiGenerator {
	g.baseURL = baseURL
	return g
}

func (g *GeminiGenerator) Generate(ctx context.Context, videoTitle string) ([]string, error) {
	if g.apiKey == "" {
		return nil, ErrNoAPIKey
	}

	body, err := json.Marshal(geminiRequest{
		Contents: []content{{Parts: []part{{Text: fmt.Sprintf(promptTemplate, videoTitle)}}}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", g.baseURL, g.model, g.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gemini request failed with status: %s", resp.Status)
	}

	var apiResp geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if len(apiResp.Candidates) == 0 || apiResp.Candidates[0].Content == nil || len(apiResp.Candidates[0].Content.Parts) == 0 {
		return nil, ErrUnexpectedResponse
	}

	list := ParseList(apiResp.Candidates[0].Content.Parts[0].Text)
	if len(list) == 0 {
		return nil, ErrUnexpectedResponse
	}

	return list, nil
}

// ParseList extracts the items of a numbered list, falling back to the non-empty lines.
func ParseList(raw string) []string {
	var items []string
	for _, match := range numberedItemRe.FindAllStringSubmatch(raw, -1) {
		if item := strings.TrimSpace(match[1]); item != "" {
			items = append(items, item)
		}
	}
	if len(items) > 0 {
		return items
	}

	for _, line := range strings.Split(raw, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			items = append(items, line)
		}
	}
	return items
}

// StaticGenerator builds prompts from the title without any remote call.
type StaticGenerator struct{}

func (StaticGenerator) Generate(_ context.Context, videoTitle string) ([]string, error) {
	if videoTitle == "" {
		return []string{DefaultPrompt}, nil
	}

	return []string{
		fmt.Sprintf("What made you want to watch %q?", videoTitle),
		"What do you think happens next?",
		DefaultPrompt,
	}, nil
}

const DefaultPrompt = "What do you think of the video so far?"
