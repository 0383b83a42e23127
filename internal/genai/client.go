// Package genai proxies generation requests to the Gemini REST API and
// reshapes the free-form model reply into the fixed JSON contract the
// extension expects.
package genai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

	// Multimodal requests need the flash model with image support; plain
	// text goes to the cheaper one.
	textModel       = "gemini-1.5-flash"
	multimodalModel = "gemini-2.0-flash"
)

// ErrNotConfigured is returned when no API key was provided.
var ErrNotConfigured = errors.New("GEMINI_API_KEY not configured")

// GenerateInput is the proxy request payload.
type GenerateInput struct {
	Text    string      `json:"text"`
	Context []string    `json:"context"`
	Media   []MediaItem `json:"media"`
	Type    string      `json:"type"`
}

// Suggestion is one follow-up variation offered next to the main reply.
type Suggestion struct {
	Label   string `json:"label"`
	Example string `json:"example"`
}

// GenerateResult is the fixed contract returned to the extension.
type GenerateResult struct {
	Reply       string       `json:"reply"`
	Suggestions []Suggestion `json:"suggestions"`
}

// Client calls the Gemini generateContent endpoint.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	fetcher    *MediaFetcher
}

// NewClient creates a Client. An empty apiKey is allowed; Generate then
// fails with ErrNotConfigured.
func NewClient(apiKey string, fetcher *MediaFetcher) *Client {
	return &Client{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		fetcher:    fetcher,
	}
}

// Gemini REST wire types, reduced to the fields this service uses.

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inline_data,omitempty"`
}

type geminiInlineData struct {
	MIMEType string `json:"mime_type"`
	Data     string `json:"data"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Generate builds the prompt, calls the model and parses its reply into the
// fixed contract.
func (c *Client) Generate(ctx context.Context, input *GenerateInput) (*GenerateResult, error) {
	if c.apiKey == "" {
		return nil, ErrNotConfigured
	}

	var (
		images       []*FetchedImage
		descriptions []string
	)
	if len(input.Media) > 0 {
		images, descriptions = c.fetcher.Fetch(ctx, input.Media)
	}

	model := textModel
	if len(images) > 0 {
		model = multimodalModel
	}

	prompt := buildPrompt(input, images, descriptions)

	// Images go first; the model handles media-before-text best.
	parts := make([]geminiPart, 0, len(images)+1)
	for _, img := range images {
		parts = append(parts, geminiPart{
			InlineData: &geminiInlineData{
				MIMEType: img.MIMEType,
				Data:     base64.StdEncoding.EncodeToString(img.Data),
			},
		})
	}
	parts = append(parts, geminiPart{Text: prompt})

	log.Info().Str("model", model).Int("parts", len(parts)).
		Int("context_items", len(input.Context)).
		Msg("Calling generation model")

	replyText, err := c.generateContent(ctx, model, &geminiRequest{
		Contents: []geminiContent{{Parts: parts}},
	})
	if err != nil {
		return nil, err
	}

	var result GenerateResult
	if err := json.Unmarshal([]byte(stripMarkdownFences(replyText)), &result); err != nil {
		return nil, fmt.Errorf("model reply is not valid JSON: %w", err)
	}
	return &result, nil
}

func (c *Client) generateContent(ctx context.Context, model string, reqBody *geminiRequest) (string, error) {
	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to encode generation request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, model, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build generation request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("generation request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read generation response: %w", err)
	}

	var parsed geminiResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("failed to decode generation response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		if parsed.Error != nil && parsed.Error.Message != "" {
			return "", fmt.Errorf("generation API error: %s", parsed.Error.Message)
		}
		return "", fmt.Errorf("generation API returned status %d", resp.StatusCode)
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return "", errors.New("generation API returned no candidates")
	}
	return parsed.Candidates[0].Content.Parts[0].Text, nil
}
