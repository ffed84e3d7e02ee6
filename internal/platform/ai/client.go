package ai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// GenerateInput is everything the model needs to produce a triage report.
type GenerateInput struct {
	Image            []byte
	ImageContentType string
	Symptoms         string
	Age              int
	Gender           string
	Region           string
	SkinTone         string
}

// Generator is the AI report contract. Implementations must not retry
// internally; a failed call maps to a failed user action.
type Generator interface {
	Generate(ctx context.Context, in GenerateInput) (*StructuredReport, error)
	Translate(ctx context.Context, report *StructuredReport, language string) (*TranslatedReport, error)
}

// Client calls an OpenAI-compatible chat completions endpoint.
type Client struct {
	baseURL string
	apiKey  string
	model   string
	http    *http.Client
}

// NewClient creates a model client. timeout bounds each call end to end.
func NewClient(endpoint, apiKey, model string, timeout time.Duration) *Client {
	return &Client{
		baseURL: endpoint,
		apiKey:  apiKey,
		model:   model,
		http:    &http.Client{Timeout: timeout},
	}
}

const generateSystemPrompt = `You are a dermatology triage assistant. Analyze the attached skin photo together with the patient's symptom description and demographics. Respond with a single JSON object with these keys: "conditions" (array of {"condition": string, "likelihood": "High"|"Medium"|"Low", "confidence": number between 0 and 1, "description": string}), "report" (narrative analysis), "home_remedies" (string), "medical_recommendation" (string), "consultation_suggested" (boolean). Output JSON only, no markdown.`

const translateSystemPrompt = `You are a medical translator. Translate every free-text field of the given dermatology report into the requested language. Respond with a single JSON object with keys: "conditions" (array of {"condition": string, "description": string}), "report", "home_remedies", "medical_recommendation". Do not include likelihood or confidence values. Output JSON only, no markdown.`

type chatMessage struct {
	Role    string      `json:"role"`
	Content interface{} `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	Temperature    float64       `json:"temperature"`
	Stream         bool          `json:"stream"`
	ResponseFormat struct {
		Type string `json:"type"`
	} `json:"response_format"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Generate runs one generation call and validates the structured output.
func (c *Client) Generate(ctx context.Context, in GenerateInput) (*StructuredReport, error) {
	if len(in.Image) == 0 {
		return nil, fmt.Errorf("image is required")
	}
	if in.Symptoms == "" {
		return nil, fmt.Errorf("symptom description is required")
	}

	contentType := in.ImageContentType
	if contentType == "" {
		contentType = "image/jpeg"
	}
	dataURI := fmt.Sprintf("data:%s;base64,%s", contentType, base64.StdEncoding.EncodeToString(in.Image))

	userText := fmt.Sprintf(
		"Symptoms: %s\nAge: %d\nGender: %s\nRegion: %s\nSkin tone: %s",
		in.Symptoms, in.Age, in.Gender, in.Region, in.SkinTone)

	messages := []chatMessage{
		{Role: "system", Content: generateSystemPrompt},
		{Role: "user", Content: []contentPart{
			{Type: "text", Text: userText},
			{Type: "image_url", ImageURL: &imageURL{URL: dataURI}},
		}},
	}

	raw, err := c.complete(ctx, messages)
	if err != nil {
		return nil, err
	}

	var report StructuredReport
	if err := json.Unmarshal(raw, &report); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}
	if err := report.Validate(); err != nil {
		return nil, err
	}
	return &report, nil
}

// Translate renders the prose fields of a report into the target language.
func (c *Client) Translate(ctx context.Context, report *StructuredReport, language string) (*TranslatedReport, error) {
	if language == "" {
		return nil, fmt.Errorf("target language is required")
	}

	source, err := json.Marshal(report)
	if err != nil {
		return nil, fmt.Errorf("marshal report: %w", err)
	}

	messages := []chatMessage{
		{Role: "system", Content: translateSystemPrompt},
		{Role: "user", Content: fmt.Sprintf("Target language: %s\nReport: %s", language, source)},
	}

	raw, err := c.complete(ctx, messages)
	if err != nil {
		return nil, err
	}

	var translated TranslatedReport
	if err := json.Unmarshal(raw, &translated); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}
	if translated.Report == "" {
		return nil, fmt.Errorf("%w: empty translated narrative", ErrMalformedOutput)
	}
	translated.Language = language
	return &translated, nil
}

// complete performs a single chat completion request and returns the message
// content with any markdown fencing stripped.
func (c *Client) complete(ctx context.Context, messages []chatMessage) ([]byte, error) {
	payload := chatRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: 0,
		Stream:      false,
	}
	payload.ResponseFormat.Type = "json_object"

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.completionsURL(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("model request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("model returned status %d: %s", resp.StatusCode, string(b))
	}

	var result chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}
	if len(result.Choices) == 0 {
		return nil, fmt.Errorf("%w: no choices", ErrMalformedOutput)
	}

	return []byte(stripFences(result.Choices[0].Message.Content)), nil
}

func (c *Client) completionsURL() string {
	base := strings.TrimRight(c.baseURL, "/")
	if !strings.HasSuffix(base, "/v1") {
		base += "/v1"
	}
	return base + "/chat/completions"
}

// stripFences removes a surrounding ```json ... ``` block that some models
// emit despite being told not to.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}
