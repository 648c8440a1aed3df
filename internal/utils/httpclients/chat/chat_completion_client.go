package chat

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"resty.dev/v3"

	domainchat "tutor-server/services/chat-api/internal/domain/chat"
	"tutor-server/services/chat-api/internal/domain/prompt"
	"tutor-server/services/chat-api/internal/infrastructure/logger"
	"tutor-server/services/chat-api/internal/utils/platformerrors"
)

const (
	requestTimeout       = 120 * time.Second
	deltaBufferSize      = 100
	dataPrefix           = "data: "
	doneMarker           = "[DONE]"
	scannerInitialBuffer = 12 * 1024        // 12KB
	scannerMaxBuffer     = 10 * 1024 * 1024 // 10MB
)

// CompletionClient streams chat completions from an OpenAI-compatible
// upstream. It implements the relay's Streamer contract.
type CompletionClient struct {
	client  *resty.Client
	baseURL string
	apiKey  string
	model   string
	name    string
}

var _ domainchat.Streamer = (*CompletionClient)(nil)

func NewCompletionClient(client *resty.Client, name, baseURL, apiKey, model string) *CompletionClient {
	return &CompletionClient{
		client:  client,
		baseURL: normalizeBaseURL(baseURL),
		apiKey:  apiKey,
		model:   model,
		name:    name,
	}
}

// StreamCompletion opens an SSE completion stream and forwards content
// increments and the trailing usage totals as deltas. The channel is closed
// when the upstream sends [DONE], the body ends, or an error is forwarded.
func (c *CompletionClient) StreamCompletion(ctx context.Context, req domainchat.CompletionRequest) (<-chan domainchat.StreamDelta, error) {
	upstream := openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    toOpenAIMessages(req.Messages),
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		Stream:      true,
		// Forced on so the final chunk carries token totals.
		StreamOptions: &openai.StreamOptions{IncludeUsage: true},
	}

	reqCtx, cancel := context.WithTimeout(ctx, requestTimeout)
	resp, err := c.doStreamingRequest(reqCtx, upstream)
	if err != nil {
		cancel()
		return nil, err
	}

	out := make(chan domainchat.StreamDelta, deltaBufferSize)
	go func() {
		defer cancel()
		defer close(out)
		defer func() {
			if closeErr := resp.RawResponse.Body.Close(); closeErr != nil {
				lg := logger.GetLogger()
				lg.Error().Err(closeErr).Str("client", c.name).Msg("unable to close response body")
			}
		}()

		scanner := bufio.NewScanner(resp.RawResponse.Body)
		scanner.Buffer(make([]byte, 0, scannerInitialBuffer), scannerMaxBuffer)

		for scanner.Scan() {
			data, found := strings.CutPrefix(scanner.Text(), dataPrefix)
			if !found {
				continue
			}
			if data == doneMarker {
				return
			}
			for _, delta := range c.parseChunk(data) {
				select {
				case out <- delta:
				case <-reqCtx.Done():
					out <- domainchat.StreamDelta{Err: reqCtx.Err()}
					return
				}
			}
		}
		if err := scanner.Err(); err != nil {
			out <- domainchat.StreamDelta{Err: err}
		}
	}()

	return out, nil
}

func (c *CompletionClient) doStreamingRequest(ctx context.Context, request openai.ChatCompletionRequest) (*resty.Response, error) {
	req := c.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept-Encoding", "identity").
		SetBody(request).
		SetDoNotParseResponse(true)
	if strings.TrimSpace(c.apiKey) != "" {
		req.SetHeader("Authorization", fmt.Sprintf("Bearer %s", c.apiKey))
	}

	resp, err := req.Post(c.endpoint("/chat/completions"))
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, c.errorFromResponse(ctx, resp, "streaming request failed")
	}
	if resp.RawResponse == nil || resp.RawResponse.Body == nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerInfrastructure, platformerrors.ErrorTypeExternal, "streaming request failed: empty response body", nil, "1b3ab461-dbf9-4034-8abb-dfc6ea8486c5")
	}
	return resp, nil
}

// parseChunk turns one SSE data payload into zero or more deltas. Malformed
// chunks are logged and skipped rather than killing the stream.
func (c *CompletionClient) parseChunk(data string) []domainchat.StreamDelta {
	var chunk struct {
		Choices []struct {
			Delta struct {
				Content string `json:"content"`
			} `json:"delta"`
		} `json:"choices"`
		Usage *struct {
			PromptTokens     int `json:"prompt_tokens"`
			CompletionTokens int `json:"completion_tokens"`
		} `json:"usage"`
	}
	if err := json.Unmarshal([]byte(data), &chunk); err != nil {
		lg := logger.GetLogger()
		lg.Error().Err(err).Str("client", c.name).Str("data", data).Msg("failed to parse stream chunk JSON")
		return nil
	}

	var deltas []domainchat.StreamDelta
	for _, choice := range chunk.Choices {
		if choice.Delta.Content != "" {
			deltas = append(deltas, domainchat.StreamDelta{Content: choice.Delta.Content})
		}
	}
	if chunk.Usage != nil {
		deltas = append(deltas, domainchat.StreamDelta{Usage: &domainchat.Usage{
			PromptTokens:     chunk.Usage.PromptTokens,
			CompletionTokens: chunk.Usage.CompletionTokens,
		}})
	}
	return deltas
}

func (c *CompletionClient) endpoint(path string) string {
	if c.baseURL == "" {
		return path
	}
	if strings.HasPrefix(path, "/") {
		return c.baseURL + path
	}
	return c.baseURL + "/" + path
}

func (c *CompletionClient) errorFromResponse(ctx context.Context, resp *resty.Response, message string) error {
	if resp == nil || resp.RawResponse == nil || resp.RawResponse.Body == nil {
		return platformerrors.NewError(ctx, platformerrors.LayerInfrastructure, platformerrors.ErrorTypeExternal, message, nil, "3476dd55-5fc0-4653-bd10-665895ecc099")
	}
	defer resp.RawResponse.Body.Close()
	body, err := io.ReadAll(resp.RawResponse.Body)
	if err != nil {
		return platformerrors.NewError(ctx, platformerrors.LayerInfrastructure, platformerrors.ErrorTypeExternal, message, nil, "8cd2cae7-9ad9-40fe-ac00-8f9b24251064")
	}
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return platformerrors.NewError(ctx, platformerrors.LayerInfrastructure, platformerrors.ErrorTypeExternal, fmt.Sprintf("%s: status %d", message, resp.StatusCode()), nil, "b8797de4-38cb-4bd9-9ae8-b9a04e70f6ab")
	}
	return platformerrors.NewError(ctx, platformerrors.LayerInfrastructure, platformerrors.ErrorTypeExternal, fmt.Sprintf("%s: %s", message, trimmed), nil, "a1f46e0d-4017-4411-ac05-987946c3066d")
}

func toOpenAIMessages(messages []prompt.HistoryMessage) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		out = append(out, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}
	return out
}

func normalizeBaseURL(baseURL string) string {
	return strings.TrimRight(strings.TrimSpace(baseURL), "/")
}
