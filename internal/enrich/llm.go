package enrich

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

const systemPrompt = "You explain existing code structure. " +
	"You are not allowed to infer behavior, invent relationships, or guess intent."

const defaultTemperature = 0.2

// LLMExplainer asks a chat model to explain files and functions from static
// facts only.
type LLMExplainer struct {
	model   llms.Model
	timeout time.Duration
}

// NewLLMExplainer wraps a langchaingo model. A non-positive timeout disables
// the per-request deadline.
func NewLLMExplainer(m llms.Model, timeout time.Duration) *LLMExplainer {
	return &LLMExplainer{model: m, timeout: timeout}
}

// OpenAIOptions configures an OpenAI-compatible endpoint.
type OpenAIOptions struct {
	Model   string
	BaseURL string
	Token   string
	Timeout time.Duration
}

// NewOpenAIExplainer connects to an OpenAI-compatible chat endpoint.
func NewOpenAIExplainer(o OpenAIOptions) (*LLMExplainer, error) {
	if o.Token == "" {
		return nil, errors.New("missing API token")
	}
	opts := []openai.Option{openai.WithToken(o.Token), openai.WithModel(o.Model)}
	if o.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(o.BaseURL))
	}
	m, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("creating openai client: %w", err)
	}
	return NewLLMExplainer(m, o.Timeout), nil
}

// ExplainFile implements Explainer.
func (e *LLMExplainer) ExplainFile(ctx context.Context, f FileFacts) (string, error) {
	return e.generate(ctx, FilePrompt(f))
}

// ExplainFunction implements Explainer.
func (e *LLMExplainer) ExplainFunction(ctx context.Context, f FunctionFacts) (string, error) {
	return e.generate(ctx, FunctionPrompt(f))
}

func (e *LLMExplainer) generate(ctx context.Context, prompt string) (string, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	resp, err := e.model.GenerateContent(ctx, []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, systemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, prompt),
	}, llms.WithTemperature(defaultTemperature))
	if err != nil {
		return "", fmt.Errorf("generating explanation: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("generating explanation: empty response")
	}
	return strings.TrimSpace(resp.Choices[0].Content), nil
}

// FilePrompt builds the user prompt for a file.
func FilePrompt(f FileFacts) string {
	var b strings.Builder
	b.WriteString("You are given verified static analysis data.\n\n")
	fmt.Fprintf(&b, "File path: %s\n", f.Path)
	fmt.Fprintf(&b, "Defined functions: %s\n\n", listOrNone(f.Functions))
	b.WriteString("Explain the purpose of this file using ONLY this information.\n")
	b.WriteString("Do not infer runtime behavior.\nDo not invent relationships.\nKeep it concise.\n")
	return b.String()
}

// FunctionPrompt builds the user prompt for a function.
func FunctionPrompt(f FunctionFacts) string {
	var b strings.Builder
	b.WriteString("You are given verified static analysis data.\n\n")
	fmt.Fprintf(&b, "Function name: %s\n", f.Name)
	fmt.Fprintf(&b, "Defined in file: %s\n", f.File)
	fmt.Fprintf(&b, "Calls: %s\n\n", listOrNone(f.Calls))
	b.WriteString("Explain the role of this function using ONLY this data.\n")
	b.WriteString("Do not guess runtime behavior.\nDo not invent relationships.\nKeep it concise and factual.\n")
	return b.String()
}

func listOrNone(items []string) string {
	if len(items) == 0 {
		return "none"
	}
	return strings.Join(items, ", ")
}
