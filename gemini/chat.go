package gemini

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/knowlegather/dominivoice/conversation"
	"github.com/knowlegather/dominivoice/persona"
)

// fallbackReply is shown when the model returns an empty completion.
const fallbackReply = "Oops, I froze for a moment. What were we talking about?"

// ChatResult is one grounded completion.
type ChatResult struct {
	Text          string
	GroundingURLs []conversation.GroundingURL
}

// ChatClient performs one-shot request/response completions with Google
// Search grounding, used whenever no live session is open.
type ChatClient struct {
	client *genai.Client
	model  string
	logger *zap.Logger
}

// NewChatClient creates a completion client. An empty model selects
// DefaultChatModel.
func NewChatClient(client *genai.Client, model string, logger *zap.Logger) *ChatClient {
	if model == "" {
		model = DefaultChatModel
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChatClient{client: client, model: model, logger: logger}
}

// historyRole maps a stored message role onto the API's content role type.
func historyRole(r conversation.Role) genai.Role {
	if r == conversation.RoleModel {
		return genai.RoleModel
	}
	return genai.RoleUser
}

// Complete sends the conversation history plus prompt and returns the
// model's reply with any grounding citations. Failures wrap ErrRequest and
// are not retried here.
func (c *ChatClient) Complete(
	ctx context.Context,
	p *conversation.Persona,
	prompt string,
	history []*conversation.Message,
	initialContext string,
) (*ChatResult, error) {
	contents := make([]*genai.Content, 0, len(history)+1)
	for _, m := range history {
		contents = append(contents, genai.NewContentFromText(m.Text, historyRole(m.Role)))
	}
	contents = append(contents, genai.NewContentFromText(prompt, genai.RoleUser))

	config := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: persona.ChatInstruction(p, initialContext)}},
		},
		Tools: []*genai.Tool{
			{GoogleSearch: &genai.GoogleSearch{}},
		},
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, config)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequest, err)
	}

	result := &ChatResult{Text: resp.Text()}
	if result.Text == "" {
		c.logger.Warn("empty completion", zap.String("model", c.model))
		result.Text = fallbackReply
	}

	if len(resp.Candidates) > 0 && resp.Candidates[0].GroundingMetadata != nil {
		for _, chunk := range resp.Candidates[0].GroundingMetadata.GroundingChunks {
			if chunk.Web == nil || chunk.Web.URI == "" {
				continue
			}
			title := chunk.Web.Title
			if title == "" {
				title = "Source"
			}
			result.GroundingURLs = append(result.GroundingURLs, conversation.GroundingURL{
				Title: title,
				URI:   chunk.Web.URI,
			})
		}
	}

	return result, nil
}
