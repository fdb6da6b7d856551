package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// Client is an abstraction over LLM providers
type Client interface {
	// StartConversation opens a multi-turn chat with a tool set attached.
	// The model may answer any turn with text, tool calls, or both.
	StartConversation(tier ModelTier, system string, tools []ToolSpec) (Conversation, error)
	// GetModel returns the underlying provider model for a tier (for direct access if needed)
	GetModel(tier ModelTier) string
	// Close releases any resources held by the client
	Close() error
}

// ToolSpec declares one callable tool exposed to the model.
type ToolSpec struct {
	Name        string
	Description string
	Params      []Param
}

// Param describes one tool parameter. Type is one of "string", "integer",
// "number", "boolean", "string[]" or "integer[]".
type Param struct {
	Name        string
	Type        string
	Description string
	Required    bool
	Enum        []string
}

// ToolCall is a tool invocation requested by the model.
type ToolCall struct {
	Name string
	Args map[string]any
}

// ToolResult is the structured payload returned to the model for one call.
type ToolResult struct {
	Name    string
	Payload map[string]any
}

// Turn is one model response: free text, tool calls, or both.
type Turn struct {
	Text  string
	Calls []ToolCall
}

// Conversation is a stateful multi-turn exchange with tool dispatch.
type Conversation interface {
	// Send delivers a user message and returns the model's next turn.
	Send(ctx context.Context, text string) (*Turn, error)
	// ReplyTools delivers tool results for the previous turn's calls and
	// returns the model's next turn.
	ReplyTools(ctx context.Context, results []ToolResult) (*Turn, error)
}

// NewClient creates a new LLM client based on configuration
func NewClient(ctx context.Context, config *Config, apiKey string) (Client, error) {
	if config == nil {
		config = DefaultConfig()
	}
	return NewGeminiClient(ctx, config, apiKey)
}

// GeminiClient implements Client for Google Gemini
type GeminiClient struct {
	client *genai.Client
	config *Config
}

// NewGeminiClient creates a new Gemini client
func NewGeminiClient(ctx context.Context, config *Config, apiKey string) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiClient{
		client: client,
		config: config,
	}, nil
}

// StartConversation opens a chat session with native function calling.
func (c *GeminiClient) StartConversation(tier ModelTier, system string, tools []ToolSpec) (Conversation, error) {
	modelName := c.config.GetModel(tier)
	if modelName == "" {
		return nil, fmt.Errorf("no model configured for tier %s", tier)
	}

	model := c.client.GenerativeModel(modelName)
	model.SetTemperature(0.2)
	if system != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}
	}
	if len(tools) > 0 {
		decls := make([]*genai.FunctionDeclaration, 0, len(tools))
		for _, t := range tools {
			decl, err := toolDeclaration(t)
			if err != nil {
				return nil, err
			}
			decls = append(decls, decl)
		}
		model.Tools = []*genai.Tool{{FunctionDeclarations: decls}}
	}

	return &geminiConversation{session: model.StartChat()}, nil
}

// GetModel returns the model name for a tier
func (c *GeminiClient) GetModel(tier ModelTier) string {
	return c.config.GetModel(tier)
}

// Close releases resources held by the client
func (c *GeminiClient) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

type geminiConversation struct {
	session *genai.ChatSession
}

func (g *geminiConversation) Send(ctx context.Context, text string) (*Turn, error) {
	resp, err := g.session.SendMessage(ctx, genai.Text(text))
	if err != nil {
		return nil, fmt.Errorf("failed to send message: %w", err)
	}
	return turnFromResponse(resp)
}

func (g *geminiConversation) ReplyTools(ctx context.Context, results []ToolResult) (*Turn, error) {
	parts := make([]genai.Part, 0, len(results))
	for _, r := range results {
		parts = append(parts, genai.FunctionResponse{
			Name:     r.Name,
			Response: r.Payload,
		})
	}

	resp, err := g.session.SendMessage(ctx, parts...)
	if err != nil {
		return nil, fmt.Errorf("failed to send tool results: %w", err)
	}
	return turnFromResponse(resp)
}

func turnFromResponse(resp *genai.GenerateContentResponse) (*Turn, error) {
	if len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("no candidates in response")
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil {
		return nil, fmt.Errorf("no content in response")
	}

	turn := &Turn{}
	var texts []string
	for _, part := range candidate.Content.Parts {
		switch p := part.(type) {
		case genai.Text:
			texts = append(texts, string(p))
		case genai.FunctionCall:
			turn.Calls = append(turn.Calls, ToolCall{Name: p.Name, Args: p.Args})
		}
	}
	turn.Text = strings.Join(texts, "")
	return turn, nil
}

// toolDeclaration converts a ToolSpec to the Gemini function schema.
func toolDeclaration(t ToolSpec) (*genai.FunctionDeclaration, error) {
	props := make(map[string]*genai.Schema, len(t.Params))
	var required []string
	for _, p := range t.Params {
		schema, err := paramSchema(p)
		if err != nil {
			return nil, fmt.Errorf("tool %s: %w", t.Name, err)
		}
		props[p.Name] = schema
		if p.Required {
			required = append(required, p.Name)
		}
	}

	decl := &genai.FunctionDeclaration{
		Name:        t.Name,
		Description: t.Description,
	}
	if len(props) > 0 {
		decl.Parameters = &genai.Schema{
			Type:       genai.TypeObject,
			Properties: props,
			Required:   required,
		}
	}
	return decl, nil
}

func paramSchema(p Param) (*genai.Schema, error) {
	schema := &genai.Schema{Description: p.Description}
	switch p.Type {
	case "string":
		schema.Type = genai.TypeString
		schema.Enum = p.Enum
	case "integer":
		schema.Type = genai.TypeInteger
	case "number":
		schema.Type = genai.TypeNumber
	case "boolean":
		schema.Type = genai.TypeBoolean
	case "string[]":
		schema.Type = genai.TypeArray
		schema.Items = &genai.Schema{Type: genai.TypeString, Enum: p.Enum}
	case "integer[]":
		schema.Type = genai.TypeArray
		schema.Items = &genai.Schema{Type: genai.TypeInteger}
	default:
		return nil, fmt.Errorf("unsupported parameter type %q for %s", p.Type, p.Name)
	}
	return schema, nil
}
