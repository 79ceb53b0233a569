package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/RichardoC/padchat/internal/models"
)

const (
	// NoContentFallback replaces a 2xx reply that carries no message text.
	NoContentFallback = "No response content"

	maxErrorBodyChars = 200
	maxBodyBytes      = 8 << 20
)

// Request is a single prompt sent to the reasoning service.
type Request struct {
	Prompt      string
	AuthToken   string
	Mode        models.ThinkingMode
	Attachments []models.Attachment
	WebSearch   bool
}

// Result is the normalized outcome of a query. Exactly one of Response or
// Error is meaningful, selected by Success. Duration covers the whole call.
type Result struct {
	Success  bool          `json:"success"`
	Response string        `json:"response,omitempty"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"-"`
}

func (r Result) DurationSeconds() float64 {
	return r.Duration.Seconds()
}

// Querier sends one prompt and reports the outcome. Implementations make a
// single attempt and never return a Go error: failures are folded into Result.
type Querier interface {
	Query(ctx context.Context, req Request) Result
}

// Client talks to the reasoning proxy's chat completions endpoint.
type Client struct {
	endpoint   string
	model      string
	timeout    time.Duration
	httpClient *http.Client
	logger     *zap.Logger
}

func NewClient(endpoint, model string, timeout time.Duration, logger *zap.Logger) *Client {
	return &Client{
		endpoint:   endpoint,
		model:      model,
		timeout:    timeout,
		httpClient: &http.Client{},
		logger:     logger,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type wireAttachment struct {
	Type   models.AttachmentKind `json:"type"`
	Base64 string                `json:"base64"`
}

type chatRequest struct {
	Model        string              `json:"model"`
	Messages     []chatMessage       `json:"messages"`
	ThinkingMode models.ThinkingMode `json:"thinking_mode"`
	Attachments  []wireAttachment    `json:"attachments"`
	WebSearch    bool                `json:"web_search"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (c *Client) Query(ctx context.Context, req Request) Result {
	start := time.Now()
	fail := func(msg string) Result {
		res := Result{Success: false, Error: msg, Duration: time.Since(start)}
		c.logger.Warn("Query failed", zap.String("error", msg), zap.Duration("duration", res.Duration))
		return res
	}

	body, err := json.Marshal(c.buildRequest(req))
	if err != nil {
		return fail(fmt.Sprintf("encoding request: %v", err))
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fail(fmt.Sprintf("building request: %v", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+req.AuthToken)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fail(err.Error())
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fail(fmt.Sprintf("reading response: %v", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fail(fmt.Sprintf("HTTP %d: %s", resp.StatusCode, truncate(string(respBody), maxErrorBodyChars)))
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return fail(fmt.Sprintf("invalid response body: %v", err))
	}

	content := ""
	if len(parsed.Choices) > 0 {
		content = parsed.Choices[0].Message.Content
	}
	if content == "" {
		content = NoContentFallback
	}

	res := Result{Success: true, Response: content, Duration: time.Since(start)}
	c.logger.Debug("Query succeeded",
		zap.Int("responseLength", len(content)),
		zap.Duration("duration", res.Duration))
	return res
}

func (c *Client) buildRequest(req Request) chatRequest {
	mode := req.Mode
	if mode == "" {
		mode = models.ModeInstant
	}
	return chatRequest{
		Model:        c.model,
		Messages:     []chatMessage{{Role: string(models.RoleUser), Content: req.Prompt}},
		ThinkingMode: mode,
		Attachments:  wireAttachments(req.Attachments),
		WebSearch:    req.WebSearch,
	}
}

// wireAttachments keeps only attachments that carry a payload.
func wireAttachments(in []models.Attachment) []wireAttachment {
	out := make([]wireAttachment, 0, len(in))
	for _, a := range in {
		if !a.Transmittable() {
			continue
		}
		out = append(out, wireAttachment{Type: a.Kind, Base64: a.Base64})
	}
	return out
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

var _ Querier = (*Client)(nil)
