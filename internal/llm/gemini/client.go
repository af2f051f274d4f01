// Package gemini adapts the Gemini generateContent REST API to the Extractor
// contract. Documents travel as inline base64 blobs and the model is forced
// into JSON output via responseMimeType.
package gemini

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/billingx/billing-extractor/constants"
	"github.com/billingx/billing-extractor/internal/common"
	"github.com/billingx/billing-extractor/internal/llm"
)

const baseURL = "https://generativelanguage.googleapis.com/v1beta/models"

type Client struct {
	httpClient *http.Client
	model      string
	apiKey     string
	logger     *slog.Logger
}

func New(cfg common.LLMConfig, logger *slog.Logger) (*Client, error) {
	if cfg.GeminiAPIKey == "" {
		return nil, common.NewAppError("CONFIG_ERROR", "gemini api key is required", common.ErrInvalidInput)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		httpClient: &http.Client{},
		model:      cfg.GeminiModel,
		apiKey:     cfg.GeminiAPIKey,
		logger:     logger,
	}, nil
}

type generateRequest struct {
	Contents         []content         `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inline_data,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type generationConfig struct {
	Temperature      float32 `json:"temperature"`
	TopP             float32 `json:"topP,omitempty"`
	TopK             int     `json:"topK,omitempty"`
	MaxOutputTokens  int     `json:"maxOutputTokens,omitempty"`
	ResponseMimeType string  `json:"responseMimeType,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

func (c *Client) ExtractInvoice(ctx context.Context, data []byte, fileName string) (llm.InvoiceFields, []byte, error) {
	c.logger.Info("llm.gemini.extract.start", "file", fileName, "model", c.model, "size_bytes", len(data))

	body := generateRequest{
		Contents: []content{{
			Role: "user",
			Parts: []part{
				{Text: llm.BuildExtractionPrompt()},
				{InlineData: &inlineData{
					MimeType: constants.MimeTypeFor(fileName),
					Data:     base64.StdEncoding.EncodeToString(data),
				}},
			},
		}},
		GenerationConfig: &generationConfig{
			Temperature:      0.1,
			TopP:             0.8,
			TopK:             40,
			MaxOutputTokens:  2048,
			ResponseMimeType: "application/json",
		},
	}

	endpoint := fmt.Sprintf("%s/%s:generateContent?key=%s", baseURL, c.model, url.QueryEscape(c.apiKey))
	respBody, _, err := llm.SendJSON(ctx, c.httpClient, endpoint, body, nil, c.logger)
	if err != nil {
		c.logger.Error("llm.gemini.extract.failed", "file", fileName, "error", err)
		return llm.InvoiceFields{}, nil, common.NewAppError(constants.CodeExtractionError, "gemini api error", err)
	}

	var parsed generateResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return llm.InvoiceFields{}, nil, common.NewAppError(constants.CodeExtractionError, "decode gemini response", err)
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return llm.InvoiceFields{}, nil, common.NewAppError(constants.CodeExtractionError, "gemini returned no candidates", nil)
	}

	text := parsed.Candidates[0].Content.Parts[0].Text
	fields, raw, err := llm.ParseExtraction(text, fileName, c.logger)
	if err != nil {
		return llm.InvoiceFields{}, raw, common.NewAppError(constants.CodeExtractionError, "parse gemini response", err)
	}
	return fields, raw, nil
}
