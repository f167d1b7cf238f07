package llm

import (
	"context"

	"github.com/sashabaranov/go-openai"

	"github.com/gemchat/gemchat-go/internal/chat"
	"github.com/gemchat/gemchat-go/internal/config"
)

// OpenAIClient reaches the model provider through an OpenAI-compatible
// streaming endpoint. Search grounding is requested on every exchange via the
// built-in web search tool; search-grounded models cite their web results as
// inline markdown links in the streamed text, which the adapter surfaces as
// grounding-source snapshots.
type OpenAIClient struct {
	client *openai.Client
	model  string
}

// NewClient creates a provider client from the LLM configuration.
func NewClient(cfg config.LLMConfig) *OpenAIClient {
	apiCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		apiCfg.BaseURL = cfg.BaseURL
	}
	return &OpenAIClient{
		client: openai.NewClientWithConfig(apiCfg),
		model:  cfg.Model,
	}
}

// StreamChat opens one streaming exchange carrying the full request contents.
func (c *OpenAIClient) StreamChat(ctx context.Context, req Request) (Stream, error) {
	inner, err := c.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:    c.model,
		Messages: projectMessages(req),
		Tools: []openai.Tool{
			{Type: openai.ToolTypeWebSearch},
		},
	})
	if err != nil {
		return nil, err
	}
	return &openaiStream{inner: inner}, nil
}

// projectMessages maps the provider-agnostic request to wire messages.
// Empty text parts are dropped, and a turn left with no content at all is
// never sent.
func projectMessages(req Request) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(req.Messages)+1)
	if req.System != "" {
		out = append(out, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}

	for _, m := range req.Messages {
		switch m.Role {
		case chat.RoleModel:
			text := m.Text()
			if text == "" {
				continue
			}
			out = append(out, openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleAssistant,
				Content: text,
			})
		case chat.RoleUser:
			parts := projectParts(m.Parts)
			if len(parts) == 0 {
				continue
			}
			msg := openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser}
			if len(parts) == 1 && parts[0].Type == openai.ChatMessagePartTypeText {
				msg.Content = parts[0].Text
			} else {
				msg.MultiContent = parts
			}
			out = append(out, msg)
		}
	}
	return out
}

func projectParts(parts []chat.Part) []openai.ChatMessagePart {
	out := make([]openai.ChatMessagePart, 0, len(parts))
	for _, p := range parts {
		if p.InlineData != nil {
			out = append(out, openai.ChatMessagePart{
				Type: openai.ChatMessagePartTypeImageURL,
				ImageURL: &openai.ChatMessageImageURL{
					URL: "data:" + p.InlineData.MimeType + ";base64," + p.InlineData.Data,
				},
			})
			continue
		}
		if p.Text != "" {
			out = append(out, openai.ChatMessagePart{
				Type: openai.ChatMessagePartTypeText,
				Text: p.Text,
			})
		}
	}
	return out
}

type openaiStream struct {
	inner     *openai.ChatCompletionStream
	citations citationTracker
}

func (s *openaiStream) Recv() (Chunk, error) {
	resp, err := s.inner.Recv()
	if err != nil {
		// io.EOF passes through untouched: the sequence ending is the only
		// end-of-stream signal.
		return Chunk{}, err
	}

	var c Chunk
	if len(resp.Choices) == 0 {
		return c, nil
	}
	c.Text = resp.Choices[0].Delta.Content
	c.Sources = s.citations.update(c.Text)
	return c, nil
}

func (s *openaiStream) Close() error {
	return s.inner.Close()
}
