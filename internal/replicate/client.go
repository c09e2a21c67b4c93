// Package replicate talks to the Replicate prediction API: create a
// prediction, then poll its status URL until a terminal state. The poll loop
// is synchronous from the caller's point of view; the request stays open for
// its full duration.
package replicate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

var (
	ErrServiceUnavailable = errors.New("AI service unavailable")
	ErrTimeout            = errors.New("AI processing timed out. Please try again.")
	ErrFailed             = errors.New("AI processing failed. Please try again.")
)

const (
	llamaVersion  = "5a6809ca6288247d06daf6365557e5e429063f32a21146b2a807c682652136b8"
	llamaTemplate = "<|begin_of_text|><|start_header_id|>system<|end_header_id|>\n\n{system_prompt}<|eot_id|><|start_header_id|>user<|end_header_id|>\n\n{prompt}<|eot_id|><|start_header_id|>assistant<|end_header_id|>\n\n"
	gemmaVersion  = "c0f0aebe8e578c15a7531e08a62cf01206f5870e9d0a67804b8152822db58c54"

	flashcardModelPath = "/v1/models/meta/meta-llama-3-8b-instruct/predictions"
	ocrModelPath       = "/v1/models/google-deepmind/gemma-3-27b-it/predictions"
	whisperModelPath   = "/v1/models/vaibhavs10/incredibly-fast-whisper/predictions"
	predictionsPath    = "/v1/predictions"
)

// Model selects which hosted model a Generate call targets. The payload
// field names differ per model, so the client owns that mapping.
type Model int

const (
	// ModelLlama is the pinned llama-3 build used for quiz generation and
	// answer grading.
	ModelLlama Model = iota
	// ModelGemma backs the assistant and the course tutor chat.
	ModelGemma
	// ModelLlamaInstruct is the instruct variant used for flashcards.
	ModelLlamaInstruct
)

type GenerateParams struct {
	Model        Model
	Prompt       string
	SystemPrompt string
	MaxTokens    int
}

// Runner is the inference surface the services depend on. Tests substitute
// a fake.
type Runner interface {
	Generate(ctx context.Context, p GenerateParams) (string, error)
	ExtractText(ctx context.Context, imageURL string) (string, error)
	Transcribe(ctx context.Context, audioURL string) (string, error)
}

type Client struct {
	BaseURL      string
	Token        string
	HTTPClient   *http.Client
	PollInterval time.Duration
	MaxAttempts  int
}

func NewClient(baseURL, token string, pollInterval time.Duration, maxAttempts int) *Client {
	if baseURL == "" {
		baseURL = "https://api.replicate.com"
	}
	if pollInterval <= 0 {
		pollInterval = time.Second
	}
	if maxAttempts <= 0 {
		maxAttempts = 120
	}
	return &Client{
		BaseURL:      strings.TrimRight(baseURL, "/"),
		Token:        token,
		HTTPClient:   &http.Client{Timeout: 30 * time.Second},
		PollInterval: pollInterval,
		MaxAttempts:  maxAttempts,
	}
}

// Prediction is the explicit state object of one inference job.
type Prediction struct {
	ID     string          `json:"id"`
	Status string          `json:"status"`
	Output json.RawMessage `json:"output"`
	Error  string          `json:"error"`
	URLs   struct {
		Get string `json:"get"`
	} `json:"urls"`
}

func (p *Prediction) terminal() bool {
	return p.Status == "succeeded" || p.Status == "failed"
}

func (c *Client) Generate(ctx context.Context, p GenerateParams) (string, error) {
	if p.MaxTokens <= 0 {
		p.MaxTokens = 1024
	}

	var path string
	var body map[string]any
	switch p.Model {
	case ModelGemma:
		path = predictionsPath
		body = map[string]any{
			"version": gemmaVersion,
			"input": map[string]any{
				"prompt":         p.Prompt,
				"system_prompt":  p.SystemPrompt,
				"max_new_tokens": p.MaxTokens,
				"temperature":    0.7,
				"top_p":          0.9,
			},
		}
	case ModelLlamaInstruct:
		path = flashcardModelPath
		body = map[string]any{
			"input": map[string]any{
				"prompt":        p.Prompt,
				"system_prompt": p.SystemPrompt,
				"max_tokens":    p.MaxTokens,
				"temperature":   0.7,
				"top_p":         0.9,
			},
		}
	default:
		path = predictionsPath
		body = map[string]any{
			"version": llamaVersion,
			"input": map[string]any{
				"prompt":          p.Prompt,
				"system_prompt":   p.SystemPrompt,
				"prompt_template": llamaTemplate,
				"max_tokens":      p.MaxTokens,
				"temperature":     0.7,
				"top_p":           0.9,
			},
		}
	}

	pred, err := c.create(ctx, path, body)
	if err != nil {
		return "", err
	}
	pred, err = c.wait(ctx, pred, c.PollInterval)
	if err != nil {
		return "", err
	}
	return joinOutput(pred.Output), nil
}

// ExtractText runs a vision model over the image and returns the text it
// reads. Vision jobs are slower, so the poll interval is stretched.
func (c *Client) ExtractText(ctx context.Context, imageURL string) (string, error) {
	body := map[string]any{
		"input": map[string]any{
			"image":          imageURL,
			"prompt":         "Extract ALL text from this image. Preserve the original formatting, paragraphs, and structure. Return only the extracted text, nothing else. If the text is in a language other than English, keep it in the original language.",
			"max_new_tokens": 4096,
			"temperature":    0.1,
		},
	}
	pred, err := c.create(ctx, ocrModelPath, body)
	if err != nil {
		return "", err
	}
	pred, err = c.wait(ctx, pred, c.PollInterval*3/2)
	if err != nil {
		return "", err
	}
	return joinOutput(pred.Output), nil
}

func (c *Client) Transcribe(ctx context.Context, audioURL string) (string, error) {
	body := map[string]any{
		"input": map[string]any{
			"audio":      audioURL,
			"task":       "transcribe",
			"batch_size": 64,
		},
	}
	pred, err := c.create(ctx, whisperModelPath, body)
	if err != nil {
		return "", err
	}
	pred, err = c.wait(ctx, pred, c.PollInterval*2)
	if err != nil {
		return "", err
	}
	return transcriptOutput(pred.Output), nil
}

func (c *Client) create(ctx context.Context, path string, body map[string]any) (*Prediction, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.Token)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: status %d", ErrServiceUnavailable, resp.StatusCode)
	}

	var pred Prediction
	if err := json.NewDecoder(resp.Body).Decode(&pred); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}
	return &pred, nil
}

// wait polls the prediction until a terminal state, up to MaxAttempts. The
// sleep between polls honors ctx cancellation.
func (c *Client) wait(ctx context.Context, pred *Prediction, interval time.Duration) (*Prediction, error) {
	for attempts := 0; !pred.terminal() && attempts < c.MaxAttempts; attempts++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(interval):
		}

		next, err := c.poll(ctx, pred.URLs.Get)
		if err != nil {
			// transient poll failure counts as an attempt, keep the
			// last known state
			continue
		}
		pred = next
	}

	switch pred.Status {
	case "succeeded":
		return pred, nil
	case "failed":
		return nil, ErrFailed
	default:
		return nil, ErrTimeout
	}
}

func (c *Client) poll(ctx context.Context, url string) (*Prediction, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.Token)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var pred Prediction
	if err := json.NewDecoder(resp.Body).Decode(&pred); err != nil {
		return nil, err
	}
	return &pred, nil
}

// joinOutput flattens the model output: chunked string arrays are joined,
// bare strings pass through.
func joinOutput(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var chunks []string
	if err := json.Unmarshal(raw, &chunks); err == nil {
		return strings.Join(chunks, "")
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

// transcriptOutput handles the transcription shape {text, chunks} before
// falling back to the generic forms.
func transcriptOutput(raw json.RawMessage) string {
	var obj struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil && obj.Text != "" {
		return obj.Text
	}
	return joinOutput(raw)
}
