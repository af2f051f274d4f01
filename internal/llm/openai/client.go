// Package openai adapts the OpenAI chat completions API to the Extractor
// contract. Documents are sent inline as base64 data URLs alongside the
// extraction prompt.
package openai

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/billingx/billing-extractor/constants"
	"github.com/billingx/billing-extractor/internal/common"
	"github.com/billingx/billing-extractor/internal/llm"
)

const maxCompletionTokens = 2000

type Client struct {
	api         *goopenai.Client
	model       string
	temperature float32
	logger      *slog.Logger
}

func New(cfg common.LLMConfig, logger *slog.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, common.NewAppError("CONFIG_ERROR", "openai api key is required", common.ErrInvalidInput)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		api:         goopenai.NewClient(cfg.APIKey),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		logger:      logger,
	}, nil
}

func (c *Client) ExtractInvoice(ctx context.Context, data []byte, fileName string) (llm.InvoiceFields, []byte, error) {
	c.logger.Info("llm.openai.extract.start", "file", fileName, "model", c.model, "size_bytes", len(data))

	dataURL := fmt.Sprintf("data:%s;base64,%s",
		constants.MimeTypeFor(fileName), base64.StdEncoding.EncodeToString(data))

	resp, err := c.api.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: c.temperature,
		MaxTokens:   maxCompletionTokens,
		ResponseFormat: &goopenai.ChatCompletionResponseFormat{
			Type: goopenai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []goopenai.ChatCompletionMessage{
			{
				Role: goopenai.ChatMessageRoleUser,
				MultiContent: []goopenai.ChatMessagePart{
					{
						Type: goopenai.ChatMessagePartTypeText,
						Text: llm.BuildExtractionPrompt(),
					},
					{
						Type: goopenai.ChatMessagePartTypeImageURL,
						ImageURL: &goopenai.ChatMessageImageURL{
							URL: dataURL,
						},
					},
				},
			},
		},
	})
	if err != nil {
		c.logger.Error("llm.openai.extract.failed", "file", fileName, "error", err)
		return llm.InvoiceFields{}, nil, common.NewAppError(constants.CodeExtractionError, "openai api error", err)
	}
	if len(resp.Choices) == 0 {
		return llm.InvoiceFields{}, nil, common.NewAppError(constants.CodeExtractionError, "openai returned no choices", nil)
	}

	content := resp.Choices[0].Message.Content
	c.logger.Debug("llm.openai.extract.response", "file", fileName, "chars", len(content))

	fields, raw, err := llm.ParseExtraction(content, fileName, c.logger)
	if err != nil {
		return llm.InvoiceFields{}, raw, common.NewAppError(constants.CodeExtractionError, "parse openai response", err)
	}
	return fields, raw, nil
}
