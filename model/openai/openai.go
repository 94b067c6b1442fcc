//
// Copyright (C) 2025 eflycode authors.  All rights reserved.
//
// eflycode is licensed under the Apache License Version 2.0.
//
//

// Package openai provides an OpenAI-compatible model implementation.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	openai "github.com/openai/openai-go"
	openaiopt "github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/ssestream"
	"github.com/openai/openai-go/shared"

	"github.com/wangchen7722/eflycode-cli-sub001/log"
	"github.com/wangchen7722/eflycode-cli-sub001/model"
	"github.com/wangchen7722/eflycode-cli-sub001/tool"
)

const (
	functionToolType = "function"

	// defaultChannelBufferSize is the default channel buffer size.
	defaultChannelBufferSize = 256
)

// options contains configuration options for creating a Model.
type options struct {
	// API key for the OpenAI client.
	APIKey string
	// Base URL for the OpenAI client. It is optional for OpenAI-compatible APIs.
	BaseURL string
	// Buffer size for response channels (default: 256).
	ChannelBufferSize int
	// HTTPClient overrides the transport, mainly for tests.
	HTTPClient *http.Client
	// Options for the OpenAI client.
	OpenAIOptions []openaiopt.RequestOption
	// Extra fields to be added to the HTTP request body.
	ExtraFields map[string]any
}

// Option is a function that configures an OpenAI model.
type Option func(*options)

// WithAPIKey sets the API key for the OpenAI client.
func WithAPIKey(key string) Option {
	return func(opts *options) {
		opts.APIKey = key
	}
}

// WithBaseURL sets the base URL for the OpenAI client.
func WithBaseURL(url string) Option {
	return func(opts *options) {
		opts.BaseURL = url
	}
}

// WithChannelBufferSize sets the channel buffer size for streaming responses.
func WithChannelBufferSize(size int) Option {
	return func(opts *options) {
		if size <= 0 {
			size = defaultChannelBufferSize
		}
		opts.ChannelBufferSize = size
	}
}

// WithHTTPClient sets the HTTP client used by the OpenAI client.
func WithHTTPClient(client *http.Client) Option {
	return func(opts *options) {
		opts.HTTPClient = client
	}
}

// WithOpenAIOptions sets additional request options for the OpenAI client,
// e.g. its middleware option.
func WithOpenAIOptions(openaiOpts ...openaiopt.RequestOption) Option {
	return func(opts *options) {
		opts.OpenAIOptions = append(opts.OpenAIOptions, openaiOpts...)
	}
}

// WithExtraFields sets extra fields to be added to every chat completion
// request body.
func WithExtraFields(extraFields map[string]any) Option {
	return func(opts *options) {
		if opts.ExtraFields == nil {
			opts.ExtraFields = make(map[string]any)
		}
		for k, v := range extraFields {
			opts.ExtraFields[k] = v
		}
	}
}

// Model implements the model.Model interface for OpenAI-compatible APIs.
type Model struct {
	client            openai.Client
	name              string
	channelBufferSize int
	extraFields       map[string]any
}

// New creates a new OpenAI-like model.
func New(name string, opts ...Option) *Model {
	o := &options{
		ChannelBufferSize: defaultChannelBufferSize,
	}
	for _, opt := range opts {
		opt(o)
	}
	var clientOpts []openaiopt.RequestOption
	if o.APIKey != "" {
		clientOpts = append(clientOpts, openaiopt.WithAPIKey(o.APIKey))
	}
	if o.BaseURL != "" {
		clientOpts = append(clientOpts, openaiopt.WithBaseURL(o.BaseURL))
	}
	if o.HTTPClient != nil {
		clientOpts = append(clientOpts, openaiopt.WithHTTPClient(o.HTTPClient))
	}
	clientOpts = append(clientOpts, o.OpenAIOptions...)

	return &Model{
		client:            openai.NewClient(clientOpts...),
		name:              name,
		channelBufferSize: o.ChannelBufferSize,
		extraFields:       o.ExtraFields,
	}
}

// Info implements the model.Model interface.
func (m *Model) Info() model.Info {
	return model.Info{Name: m.name}
}

// Capabilities implements the model.Model interface.
func (m *Model) Capabilities() model.Capabilities {
	return model.Capabilities{
		SupportsStreaming: true,
		SupportsTools:     true,
	}
}

// Call implements the model.Model interface for non-streaming completions.
func (m *Model) Call(ctx context.Context, request *model.Request) (*model.Response, error) {
	if request == nil {
		return nil, errors.New("request cannot be nil")
	}
	chatRequest, opts := m.buildChatRequest(request)
	chatCompletion, err := m.client.Chat.Completions.New(ctx, chatRequest, opts...)
	if err != nil {
		return model.NewErrorResponse(model.ErrorTypeAPIError, err.Error()), nil
	}
	return m.convertCompletion(chatCompletion), nil
}

// Stream implements the model.Model interface for streaming completions.
func (m *Model) Stream(ctx context.Context, request *model.Request) (<-chan *model.Response, error) {
	if request == nil {
		return nil, errors.New("request cannot be nil")
	}
	chatRequest, opts := m.buildChatRequest(request)
	chatRequest.StreamOptions = openai.ChatCompletionStreamOptionsParam{
		IncludeUsage: openai.Bool(true),
	}

	responseChan := make(chan *model.Response, m.channelBufferSize)
	go func() {
		defer close(responseChan)
		m.handleStreamingResponse(ctx, chatRequest, responseChan, opts...)
	}()
	return responseChan, nil
}

// buildChatRequest converts our request format to OpenAI format.
func (m *Model) buildChatRequest(request *model.Request) (openai.ChatCompletionNewParams, []openaiopt.RequestOption) {
	name := request.Model
	if name == "" {
		name = m.name
	}
	chatRequest := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(name),
		Messages: m.convertMessages(request.Messages),
		Tools:    m.convertTools(request.Tools),
	}

	// MaxTokens is deprecated and not compatible with o-series models.
	// Use MaxCompletionTokens instead.
	if request.MaxTokens != nil {
		chatRequest.MaxCompletionTokens = openai.Int(int64(*request.MaxTokens))
	}
	if request.Temperature != nil {
		chatRequest.Temperature = openai.Float(*request.Temperature)
	}
	if request.TopP != nil {
		chatRequest.TopP = openai.Float(*request.TopP)
	}
	if len(request.Stop) > 0 {
		// Use the first stop string for simplicity.
		chatRequest.Stop = openai.ChatCompletionNewParamsStopUnion{
			OfString: openai.String(request.Stop[0]),
		}
	}
	if request.PresencePenalty != nil {
		chatRequest.PresencePenalty = openai.Float(*request.PresencePenalty)
	}
	if request.FrequencyPenalty != nil {
		chatRequest.FrequencyPenalty = openai.Float(*request.FrequencyPenalty)
	}

	var opts []openaiopt.RequestOption
	for key, value := range m.extraFields {
		opts = append(opts, openaiopt.WithJSONSet(key, value))
	}
	return chatRequest, opts
}

// convertMessages converts our Message format to OpenAI's format.
func (m *Model) convertMessages(messages []model.Message) []openai.ChatCompletionMessageParamUnion {
	result := make([]openai.ChatCompletionMessageParamUnion, len(messages))
	for i, msg := range messages {
		switch msg.Role {
		case model.RoleSystem:
			result[i] = openai.ChatCompletionMessageParamUnion{
				OfSystem: &openai.ChatCompletionSystemMessageParam{
					Content: openai.ChatCompletionSystemMessageParamContentUnion{
						OfString: openai.String(msg.Content),
					},
				},
			}
		case model.RoleAssistant:
			assistant := &openai.ChatCompletionAssistantMessageParam{
				ToolCalls: m.convertToolCalls(msg.ToolCalls),
			}
			if msg.Content != "" {
				assistant.Content = openai.ChatCompletionAssistantMessageParamContentUnion{
					OfString: openai.String(msg.Content),
				}
			}
			result[i] = openai.ChatCompletionMessageParamUnion{OfAssistant: assistant}
		case model.RoleTool:
			result[i] = openai.ChatCompletionMessageParamUnion{
				OfTool: &openai.ChatCompletionToolMessageParam{
					Content: openai.ChatCompletionToolMessageParamContentUnion{
						OfString: openai.String(msg.Content),
					},
					ToolCallID: msg.ToolID,
				},
			}
		default: // Default to user message if role is unknown.
			result[i] = openai.ChatCompletionMessageParamUnion{
				OfUser: &openai.ChatCompletionUserMessageParam{
					Content: openai.ChatCompletionUserMessageParamContentUnion{
						OfString: openai.String(msg.Content),
					},
				},
			}
		}
	}
	return result
}

func (m *Model) convertToolCalls(toolCalls []model.ToolCall) []openai.ChatCompletionMessageToolCallParam {
	var result []openai.ChatCompletionMessageToolCallParam
	for _, toolCall := range toolCalls {
		result = append(result, openai.ChatCompletionMessageToolCallParam{
			ID: toolCall.ID,
			Function: openai.ChatCompletionMessageToolCallFunctionParam{
				Name:      toolCall.Function.Name,
				Arguments: string(toolCall.Function.Arguments),
			},
		})
	}
	return result
}

func (m *Model) convertTools(tools map[string]tool.Tool) []openai.ChatCompletionToolParam {
	var result []openai.ChatCompletionToolParam
	for _, t := range tools {
		declaration := t.Declaration()
		// Convert the InputSchema to JSON to correctly map to OpenAI's expected format.
		schemaBytes, err := json.Marshal(declaration.InputSchema)
		if err != nil {
			log.Errorf("failed to marshal tool schema for %s: %v", declaration.Name, err)
			continue
		}
		var parameters shared.FunctionParameters
		if err := json.Unmarshal(schemaBytes, &parameters); err != nil {
			log.Errorf("failed to unmarshal tool schema for %s: %v", declaration.Name, err)
			continue
		}
		result = append(result, openai.ChatCompletionToolParam{
			Function: openai.FunctionDefinitionParam{
				Name:        declaration.Name,
				Description: openai.String(declaration.Description),
				Parameters:  parameters,
			},
		})
	}
	return result
}

// handleStreamingResponse handles streaming chat completion responses.
func (m *Model) handleStreamingResponse(
	ctx context.Context,
	chatRequest openai.ChatCompletionNewParams,
	responseChan chan<- *model.Response,
	opts ...openaiopt.RequestOption,
) {
	stream := m.client.Chat.Completions.NewStreaming(ctx, chatRequest, opts...)
	defer stream.Close()

	acc := openai.ChatCompletionAccumulator{}
	// Track ID -> Index mapping.
	idToIndexMap := make(map[string]int)

	for stream.Next() {
		chunk := stream.Current()
		if skipEmptyChunk(chunk) {
			continue
		}
		updateToolCallIndexMapping(chunk, idToIndexMap)

		// Always accumulate for correctness; tool call deltas are assembled
		// by the consumer from the partial chunks.
		acc.AddChunk(chunk)

		response := createPartialResponse(chunk)
		select {
		case responseChan <- response:
		case <-ctx.Done():
			return
		}
	}
	m.sendFinalResponse(ctx, stream, acc, idToIndexMap, responseChan)
}

// updateToolCallIndexMapping records the original index of each tool call ID.
func updateToolCallIndexMapping(chunk openai.ChatCompletionChunk, idToIndexMap map[string]int) {
	if len(chunk.Choices) > 0 && len(chunk.Choices[0].Delta.ToolCalls) > 0 {
		toolCall := chunk.Choices[0].Delta.ToolCalls[0]
		if toolCall.ID != "" {
			idToIndexMap[toolCall.ID] = int(toolCall.Index)
		}
	}
}

// skipEmptyChunk returns true when the chunk contains no meaningful delta.
func skipEmptyChunk(chunk openai.ChatCompletionChunk) bool {
	if len(chunk.Choices) == 0 {
		return chunk.Usage.TotalTokens == 0
	}
	delta := chunk.Choices[0].Delta
	if delta.JSON.ToolCalls.Valid() && len(delta.ToolCalls) == 0 {
		return true
	}
	return false
}

// createPartialResponse creates a partial response from a chunk. Tool-call
// deltas are forwarded so the assembler can announce calls as their names
// arrive.
func createPartialResponse(chunk openai.ChatCompletionChunk) *model.Response {
	response := &model.Response{
		ID: chunk.ID,
		// Normalize object for chunks; upstream may emit empty object for toolcall deltas.
		Object: func() string {
			if chunk.Object != "" {
				return string(chunk.Object)
			}
			return model.ObjectTypeChatCompletionChunk
		}(),
		Created:   chunk.Created,
		Model:     chunk.Model,
		Timestamp: time.Now(),
		Done:      false,
		IsPartial: true,
	}
	if len(chunk.Choices) == 0 {
		return response
	}
	choice := chunk.Choices[0]
	delta := model.Message{
		Role:    model.RoleAssistant,
		Content: choice.Delta.Content,
	}
	for _, tc := range choice.Delta.ToolCalls {
		idx := int(tc.Index)
		delta.ToolCalls = append(delta.ToolCalls, model.ToolCall{
			Index: &idx,
			ID:    tc.ID,
			Type:  functionToolType,
			Function: model.FunctionDefinitionParam{
				Name:      tc.Function.Name,
				Arguments: []byte(tc.Function.Arguments),
			},
		})
	}
	response.Choices = []model.Choice{{Delta: delta}}
	if choice.FinishReason != "" {
		finishReason := choice.FinishReason
		response.Choices[0].FinishReason = &finishReason
	}
	return response
}

// sendFinalResponse sends the final response with accumulated data.
func (m *Model) sendFinalResponse(
	ctx context.Context,
	stream *ssestream.Stream[openai.ChatCompletionChunk],
	acc openai.ChatCompletionAccumulator,
	idToIndexMap map[string]int,
	responseChan chan<- *model.Response,
) {
	if stream.Err() != nil {
		errorResponse := model.NewErrorResponse(model.ErrorTypeStreamError, stream.Err().Error())
		select {
		case responseChan <- errorResponse:
		case <-ctx.Done():
		}
		return
	}

	var accumulatedToolCalls []model.ToolCall
	if len(acc.Choices) > 0 && len(acc.Choices[0].Message.ToolCalls) > 0 {
		accumulatedToolCalls = processAccumulatedToolCalls(acc, idToIndexMap)
	}
	finalResponse := &model.Response{
		Object:  model.ObjectTypeChatCompletion,
		ID:      acc.ID,
		Created: acc.Created,
		Model:   acc.Model,
		Usage: &model.Usage{
			PromptTokens:     int(acc.Usage.PromptTokens),
			CompletionTokens: int(acc.Usage.CompletionTokens),
			TotalTokens:      int(acc.Usage.TotalTokens),
		},
		Timestamp: time.Now(),
		Done:      true,
		IsPartial: false,
		Choices:   make([]model.Choice, len(acc.Choices)),
	}
	for i, choice := range acc.Choices {
		finalResponse.Choices[i] = model.Choice{
			Index: int(choice.Index),
			Message: model.Message{
				Role:    model.RoleAssistant,
				Content: choice.Message.Content,
			},
		}
		if choice.FinishReason != "" {
			finishReason := choice.FinishReason
			finalResponse.Choices[i].FinishReason = &finishReason
		}
		// Usually only the first choice contains tool calls.
		if i == 0 {
			finalResponse.Choices[i].Message.ToolCalls = accumulatedToolCalls
		}
	}
	select {
	case responseChan <- finalResponse:
	case <-ctx.Done():
	}
}

// processAccumulatedToolCalls converts the accumulator's tool calls back to
// our format, restoring stream indices and synthesizing IDs for providers
// that omit them.
func processAccumulatedToolCalls(
	acc openai.ChatCompletionAccumulator,
	idToIndexMap map[string]int,
) []model.ToolCall {
	accumulatedToolCalls := make([]model.ToolCall, 0, len(acc.Choices[0].Message.ToolCalls))
	for i, toolCall := range acc.Choices[0].Message.ToolCalls {
		// Providers that start indices at 1 make the accumulator emit an
		// empty slot at 0, skip it.
		if toolCall.Function.Name == "" && toolCall.ID == "" {
			continue
		}
		originalIndex := i
		if toolCall.ID != "" {
			if mappedIndex, exists := idToIndexMap[toolCall.ID]; exists {
				originalIndex = mappedIndex
			}
		}
		synthesizedID := toolCall.ID
		if synthesizedID == "" {
			synthesizedID = fmt.Sprintf("auto_call_%d", originalIndex)
		}
		idx := originalIndex
		accumulatedToolCalls = append(accumulatedToolCalls, model.ToolCall{
			Index: &idx,
			ID:    synthesizedID,
			Type:  functionToolType,
			Function: model.FunctionDefinitionParam{
				Name:      toolCall.Function.Name,
				Arguments: []byte(toolCall.Function.Arguments),
			},
		})
	}
	return accumulatedToolCalls
}

// convertCompletion converts a non-streaming completion to our format.
func (m *Model) convertCompletion(chatCompletion *openai.ChatCompletion) *model.Response {
	response := &model.Response{
		ID:        chatCompletion.ID,
		Object:    string(chatCompletion.Object),
		Created:   chatCompletion.Created,
		Model:     chatCompletion.Model,
		Timestamp: time.Now(),
		Done:      true,
	}
	response.Choices = make([]model.Choice, len(chatCompletion.Choices))
	for i, choice := range chatCompletion.Choices {
		response.Choices[i] = model.Choice{
			Index: int(choice.Index),
			Message: model.Message{
				Role:    model.RoleAssistant,
				Content: choice.Message.Content,
			},
		}
		for j, toolCall := range choice.Message.ToolCalls {
			synthesizedID := toolCall.ID
			if synthesizedID == "" {
				// Synthesize an ID for providers that omit it.
				synthesizedID = fmt.Sprintf("auto_call_%d", j)
			}
			response.Choices[i].Message.ToolCalls = append(response.Choices[i].Message.ToolCalls, model.ToolCall{
				ID:   synthesizedID,
				Type: string(toolCall.Type),
				Function: model.FunctionDefinitionParam{
					Name:      toolCall.Function.Name,
					Arguments: []byte(toolCall.Function.Arguments),
				},
			})
		}
		if choice.FinishReason != "" {
			finishReason := choice.FinishReason
			response.Choices[i].FinishReason = &finishReason
		}
	}
	if chatCompletion.Usage.PromptTokens > 0 || chatCompletion.Usage.CompletionTokens > 0 {
		response.Usage = &model.Usage{
			PromptTokens:     int(chatCompletion.Usage.PromptTokens),
			CompletionTokens: int(chatCompletion.Usage.CompletionTokens),
			TotalTokens:      int(chatCompletion.Usage.TotalTokens),
		}
	}
	return response
}
