package model

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"codesmith/internal/logging"
	"codesmith/internal/tools"
)

// GeminiClient is the Client implementation for Google's Gemini API.
type GeminiClient struct {
	client *genai.Client
	model  string
}

// NewGeminiClient creates a Gemini-backed model client.
func NewGeminiClient(ctx context.Context, apiKey, model string) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("Gemini API key is required")
	}
	if model == "" {
		model = "gemini-2.5-flash"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("create Gemini client: %w", err)
	}
	return &GeminiClient{client: client, model: model}, nil
}

// SendTurn sends the conversation and returns the model's response.
func (c *GeminiClient) SendTurn(ctx context.Context, history []Message, decls []*tools.Tool) (*Turn, error) {
	contents := make([]*genai.Content, 0, len(history))
	for i := range history {
		contents = append(contents, toContent(&history[i]))
	}

	cfg := &genai.GenerateContentConfig{}
	if len(decls) > 0 {
		cfg.Tools = []*genai.Tool{{FunctionDeclarations: toDeclarations(decls)}}
	}

	logging.Get(logging.CategoryModel).Debug("sending turn",
		zap.String("model", c.model), zap.Int("history", len(history)))
	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, cfg)
	if err != nil {
		return nil, classifyGenAIError(err)
	}

	turn := &Turn{}
	for _, fc := range resp.FunctionCalls() {
		turn.Calls = append(turn.Calls, FunctionCall{Name: fc.Name, Args: fc.Args})
	}
	if len(turn.Calls) == 0 {
		turn.Text = resp.Text()
	}
	return turn, nil
}

func toContent(m *Message) *genai.Content {
	switch {
	case len(m.Calls) > 0:
		parts := make([]*genai.Part, 0, len(m.Calls))
		for _, call := range m.Calls {
			parts = append(parts, &genai.Part{
				FunctionCall: &genai.FunctionCall{Name: call.Name, Args: call.Args},
			})
		}
		return &genai.Content{Role: genai.RoleModel, Parts: parts}

	case len(m.Results) > 0:
		parts := make([]*genai.Part, 0, len(m.Results))
		for _, res := range m.Results {
			parts = append(parts, &genai.Part{
				FunctionResponse: &genai.FunctionResponse{Name: res.Name, Response: res.Response},
			})
		}
		return &genai.Content{Role: genai.RoleUser, Parts: parts}

	case m.Role == RoleModel:
		return genai.NewContentFromText(m.Text, genai.RoleModel)

	default:
		return genai.NewContentFromText(m.Text, genai.RoleUser)
	}
}

func toDeclarations(decls []*tools.Tool) []*genai.FunctionDeclaration {
	out := make([]*genai.FunctionDeclaration, 0, len(decls))
	for _, tool := range decls {
		fd := &genai.FunctionDeclaration{
			Name:        tool.Name,
			Description: tool.Description,
		}
		if len(tool.Schema.Properties) > 0 {
			props := make(map[string]*genai.Schema, len(tool.Schema.Properties))
			for name, p := range tool.Schema.Properties {
				props[name] = &genai.Schema{
					Type:        toSchemaType(p.Type),
					Description: p.Description,
				}
			}
			fd.Parameters = &genai.Schema{
				Type:       genai.TypeObject,
				Properties: props,
				Required:   tool.Schema.Required,
			}
		}
		out = append(out, fd)
	}
	return out
}

func toSchemaType(t string) genai.Type {
	switch t {
	case "number":
		return genai.TypeNumber
	case "integer":
		return genai.TypeInteger
	case "boolean":
		return genai.TypeBoolean
	case "array":
		return genai.TypeArray
	case "object":
		return genai.TypeObject
	default:
		return genai.TypeString
	}
}

// classifyGenAIError maps provider failures onto the closed ErrorClass
// enum using HTTP status codes, never response text.
func classifyGenAIError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &ClassifiedError{Class: ClassCanceled, Message: "request canceled", Err: err}
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		class := ClassUnknown
		switch apiErr.Code {
		case http.StatusBadRequest, http.StatusNotFound, http.StatusUnauthorized, http.StatusForbidden:
			class = ClassBadRequest
		case http.StatusTooManyRequests:
			class = ClassRateLimited
		case http.StatusInternalServerError, http.StatusBadGateway,
			http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			class = ClassUnavailable
		}
		return &ClassifiedError{Class: class, Message: apiErr.Message, Err: err}
	}

	return &ClassifiedError{Class: ClassUnknown, Message: err.Error(), Err: err}
}
