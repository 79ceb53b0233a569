package llm

import (
	"context"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"go.uber.org/zap"

	"github.com/RichardoC/padchat/internal/models"
)

// LangchainClient queries an OpenAI-compatible endpoint directly, bypassing
// the reasoning proxy. Image attachments are sent as data URLs; web search has
// no equivalent and is ignored.
type LangchainClient struct {
	llm       llms.Model
	model     string
	deepModel string
	timeout   time.Duration
	logger    *zap.Logger
}

func NewLangchainClient(baseURL, token, model, deepModel string, timeout time.Duration, logger *zap.Logger) (*LangchainClient, error) {
	llm, err := openai.New(
		openai.WithToken(token),
		openai.WithBaseURL(baseURL),
		openai.WithModel(model),
	)
	if err != nil {
		return nil, err
	}
	return newLangchainClient(llm, model, deepModel, timeout, logger), nil
}

func newLangchainClient(llm llms.Model, model, deepModel string, timeout time.Duration, logger *zap.Logger) *LangchainClient {
	if deepModel == "" {
		deepModel = model
	}
	return &LangchainClient{
		llm:       llm,
		model:     model,
		deepModel: deepModel,
		timeout:   timeout,
		logger:    logger,
	}
}

func (s *LangchainClient) Query(ctx context.Context, req Request) Result {
	start := time.Now()

	if req.WebSearch {
		s.logger.Debug("Web search is not supported by the direct backend; ignoring")
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	parts := []llms.ContentPart{llms.TextPart(req.Prompt)}
	for _, a := range req.Attachments {
		if !a.Transmittable() || a.Kind != models.AttachmentImage {
			continue
		}
		mime := a.MimeType
		if mime == "" {
			mime = "image/jpeg"
		}
		parts = append(parts, llms.ImageURLPart("data:"+mime+";base64,"+a.Base64))
	}

	model := s.model
	if req.Mode == models.ModeThinking {
		model = s.deepModel
	}

	resp, err := s.llm.GenerateContent(ctx,
		[]llms.MessageContent{{Role: llms.ChatMessageTypeHuman, Parts: parts}},
		llms.WithModel(model),
	)
	if err != nil {
		s.logger.Warn("Failed to generate completion", zap.Error(err))
		return Result{Success: false, Error: err.Error(), Duration: time.Since(start)}
	}

	content := ""
	if resp != nil && len(resp.Choices) > 0 && resp.Choices[0] != nil {
		content = resp.Choices[0].Content
	}
	if content == "" {
		content = NoContentFallback
	}
	return Result{Success: true, Response: content, Duration: time.Since(start)}
}

var _ Querier = (*LangchainClient)(nil)
