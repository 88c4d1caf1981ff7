package ai

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"

	"github.com/pwcx/contract_go_server/config"
)

const extractSystemPrompt = `You are a contract analysis assistant. Extract the key clauses from the contract text provided by the user.

Respond with JSON only, using exactly this schema:
{
  "clauses": [
    {
      "type": "payment_terms|termination|liability|confidentiality|intellectual_property|governing_law|dispute_resolution|force_majeure|warranties|indemnification|other",
      "content": "verbatim clause text",
      "confidence": 0.95,
      "page_number": 1,
      "section": "Section 4.2"
    }
  ]
}

Omit page_number or section when unknown. Do not add any text outside the JSON.`

const evaluateSystemPrompt = `You are a contract risk reviewer. Based on the contract text and the extracted clauses, decide whether the contract should be approved.

Respond with JSON only, using exactly this schema:
{
  "approved": true,
  "reasoning": "short explanation of the verdict",
  "risk_score": 0.35,
  "recommendations": ["..."],
  "critical_issues": ["..."]
}

risk_score is between 0 and 1, higher means riskier. Do not add any text outside the JSON.`

const parseDocumentPrompt = `Extract the full plain text of this contract document, preserving the original wording, clause numbering and paragraph order. Remove page headers, footers and artifacts.

Respond with JSON only, using exactly this schema:
{
  "text": "the full extracted text",
  "page_count": 3
}

Do not add any text outside the JSON.`

// OpenAI 基于 chat completions 的模型客户端，
// 兼容任何 OpenAI 风格的网关（通过 base_url 配置）。
type OpenAI struct {
	client openai.Client
	model  string
}

func NewOpenAI(cfg *config.AIConfig) *OpenAI {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	model := cfg.Model
	if model == "" {
		model = "gpt-4o"
	}

	return &OpenAI{
		client: openai.NewClient(opts...),
		model:  model,
	}
}

func (o *OpenAI) ModelName() string {
	return o.model
}

func (o *OpenAI) chat(ctx context.Context, system, user string) (string, error) {
	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: shared.ChatModel(o.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			{
				OfSystem: &openai.ChatCompletionSystemMessageParam{
					Content: openai.ChatCompletionSystemMessageParamContentUnion{
						OfString: openai.Opt(system),
					},
				},
			},
			{
				OfUser: &openai.ChatCompletionUserMessageParam{
					Content: openai.ChatCompletionUserMessageParamContentUnion{
						OfString: openai.Opt(user),
					},
				},
			},
		},
		Temperature: openai.Opt(0.0),
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	return resp.Choices[0].Message.Content, nil
}

func (o *OpenAI) ParseDocument(ctx context.Context, raw []byte, filename string) (*ParsedDocument, error) {
	fileData := "data:application/pdf;base64," + base64.StdEncoding.EncodeToString(raw)

	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: shared.ChatModel(o.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			{
				OfUser: &openai.ChatCompletionUserMessageParam{
					Content: openai.ChatCompletionUserMessageParamContentUnion{
						OfArrayOfContentParts: []openai.ChatCompletionContentPartUnionParam{
							{
								OfFile: &openai.ChatCompletionContentPartFileParam{
									File: openai.ChatCompletionContentPartFileFileParam{
										FileData: openai.Opt(fileData),
										Filename: openai.Opt(filename),
									},
								},
							},
							{
								OfText: &openai.ChatCompletionContentPartTextParam{
									Text: parseDocumentPrompt,
								},
							},
						},
					},
				},
			},
		},
		Temperature: openai.Opt(0.0),
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, ErrEmptyResponse
	}

	var doc ParsedDocument
	if err := decodeJSON(resp.Choices[0].Message.Content, &doc); err != nil {
		return nil, err
	}
	if doc.Text == "" {
		return nil, ErrEmptyResponse
	}
	return &doc, nil
}

func (o *OpenAI) ExtractClauses(ctx context.Context, text string) (*ClauseExtraction, error) {
	content, err := o.chat(ctx, extractSystemPrompt, text)
	if err != nil {
		return nil, err
	}

	var extraction ClauseExtraction
	if err := decodeJSON(content, &extraction); err != nil {
		return nil, err
	}
	return &extraction, nil
}

func (o *OpenAI) EvaluateHealth(ctx context.Context, text string, extraction *ClauseExtraction) (*Evaluation, error) {
	clauseSummary := ""
	if extraction != nil {
		for _, c := range extraction.Clauses {
			clauseSummary += fmt.Sprintf("- [%s] %s\n", c.Type, c.Content)
		}
	}

	user := fmt.Sprintf("Contract text:\n%s\n\nExtracted clauses:\n%s", text, clauseSummary)
	content, err := o.chat(ctx, evaluateSystemPrompt, user)
	if err != nil {
		return nil, err
	}

	var eval Evaluation
	if err := decodeJSON(content, &eval); err != nil {
		return nil, err
	}
	return &eval, nil
}
