//
// Copyright (C) 2025 eflycode authors.  All rights reserved.
//
// eflycode is licensed under the Apache License Version 2.0.
//
//

package advisor

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wangchen7722/eflycode-cli-sub001/model"
)

// tracingAdvisor records the order its phases run in.
type tracingAdvisor struct {
	name  string
	trace *[]string
}

func (a *tracingAdvisor) Name() string { return a.name }

func (a *tracingAdvisor) BeforeCall(_ context.Context, req *model.Request) (*model.Request, error) {
	*a.trace = append(*a.trace, a.name+".before")
	return req, nil
}

func (a *tracingAdvisor) AfterCall(_ context.Context, _ *model.Request, rsp *model.Response) (*model.Response, error) {
	*a.trace = append(*a.trace, a.name+".after")
	return rsp, nil
}

func okResponse(content string) *model.Response {
	return &model.Response{
		Done:    true,
		Choices: []model.Choice{{Message: model.NewAssistantMessage(content)}},
	}
}

func TestChainCallOnionOrdering(t *testing.T) {
	var trace []string
	c := NewChain(
		&tracingAdvisor{name: "outer", trace: &trace},
		&tracingAdvisor{name: "inner", trace: &trace},
	)
	rsp, err := c.Call(context.Background(), &model.Request{}, func(context.Context, *model.Request) (*model.Response, error) {
		trace = append(trace, "final")
		return okResponse("done"), nil
	})
	require.NoError(t, err)
	assert.Equal(t, "done", rsp.FirstMessage().Content)
	assert.Equal(t, []string{"outer.before", "inner.before", "final", "inner.after", "outer.after"}, trace)
}

type rewritingAdvisor struct{}

func (rewritingAdvisor) Name() string { return "rewriter" }

func (rewritingAdvisor) BeforeCall(_ context.Context, req *model.Request) (*model.Request, error) {
	out := req.Clone()
	out.Messages = append(out.Messages, model.NewUserMessage("injected"))
	return out, nil
}

func (rewritingAdvisor) AfterCall(_ context.Context, _ *model.Request, rsp *model.Response) (*model.Response, error) {
	out := rsp.Clone()
	out.Choices[0].Message.Content += "!"
	return out, nil
}

func TestChainRewritesFlowThrough(t *testing.T) {
	c := NewChain(rewritingAdvisor{})
	var seen *model.Request
	rsp, err := c.Call(context.Background(), &model.Request{}, func(_ context.Context, req *model.Request) (*model.Response, error) {
		seen = req
		return okResponse("hi"), nil
	})
	require.NoError(t, err)
	require.Len(t, seen.Messages, 1)
	assert.Equal(t, "injected", seen.Messages[0].Content)
	assert.Equal(t, "hi!", rsp.FirstMessage().Content)
}

type recoveringAdvisor struct {
	name    string
	handles bool
	asked   *[]string
}

func (a *recoveringAdvisor) Name() string { return a.name }

func (a *recoveringAdvisor) OnCallError(_ context.Context, _ *model.Request, _ error) (*model.Response, bool) {
	*a.asked = append(*a.asked, a.name)
	if !a.handles {
		return nil, false
	}
	return okResponse("recovered by " + a.name), true
}

func TestChainRecoveryInnermostFirst(t *testing.T) {
	var asked []string
	c := NewChain(
		&recoveringAdvisor{name: "outer", handles: true, asked: &asked},
		&recoveringAdvisor{name: "inner", handles: true, asked: &asked},
	)
	rsp, err := c.Call(context.Background(), &model.Request{}, func(context.Context, *model.Request) (*model.Response, error) {
		return nil, errors.New("provider down")
	})
	require.NoError(t, err)
	assert.Equal(t, "recovered by inner", rsp.FirstMessage().Content)
	assert.Equal(t, []string{"inner"}, asked, "first recoverer short-circuits")
}

func TestChainRecoveryPropagatesWhenUnhandled(t *testing.T) {
	var asked []string
	c := NewChain(&recoveringAdvisor{name: "only", handles: false, asked: &asked})
	boom := errors.New("boom")
	_, err := c.Call(context.Background(), &model.Request{}, func(context.Context, *model.Request) (*model.Response, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"only"}, asked)
}

// suppressingAdvisor drops chunks whose content matches and duplicates the rest.
type suppressingAdvisor struct {
	drop string
}

func (suppressingAdvisor) Name() string { return "suppressor" }

func (suppressingAdvisor) BeforeStream(_ context.Context, req *model.Request) (*model.Request, error) {
	return req, nil
}

func (a suppressingAdvisor) OnChunk(_ context.Context, _ *model.Request, chunk *model.Response) ([]*model.Response, error) {
	if len(chunk.Choices) > 0 && chunk.Choices[0].Delta.Content == a.drop {
		return nil, nil
	}
	return []*model.Response{chunk}, nil
}

func streamChunk(content string) *model.Response {
	return &model.Response{
		IsPartial: true,
		Choices:   []model.Choice{{Delta: model.Message{Content: content}}},
	}
}

func TestChainStreamSuppression(t *testing.T) {
	c := NewChain(suppressingAdvisor{drop: "secret"})
	inner := make(chan *model.Response, 3)
	inner <- streamChunk("a")
	inner <- streamChunk("secret")
	inner <- streamChunk("b")
	close(inner)

	out, err := c.Stream(context.Background(), &model.Request{}, func(context.Context, *model.Request) (<-chan *model.Response, error) {
		return inner, nil
	})
	require.NoError(t, err)

	var contents []string
	for chunk := range out {
		contents = append(contents, chunk.Choices[0].Delta.Content)
	}
	assert.Equal(t, []string{"a", "b"}, contents)
}

// expandingAdvisor splits each chunk's content into per-rune chunks.
type expandingAdvisor struct{}

func (expandingAdvisor) Name() string { return "expander" }

func (expandingAdvisor) BeforeStream(_ context.Context, req *model.Request) (*model.Request, error) {
	return req, nil
}

func (expandingAdvisor) OnChunk(_ context.Context, _ *model.Request, chunk *model.Response) ([]*model.Response, error) {
	if len(chunk.Choices) == 0 {
		return []*model.Response{chunk}, nil
	}
	var out []*model.Response
	for _, r := range chunk.Choices[0].Delta.Content {
		out = append(out, streamChunk(string(r)))
	}
	return out, nil
}

func TestChainStreamFanOut(t *testing.T) {
	c := NewChain(expandingAdvisor{})
	inner := make(chan *model.Response, 1)
	inner <- streamChunk("abc")
	close(inner)

	out, err := c.Stream(context.Background(), &model.Request{}, func(context.Context, *model.Request) (<-chan *model.Response, error) {
		return inner, nil
	})
	require.NoError(t, err)

	var contents []string
	for chunk := range out {
		contents = append(contents, chunk.Choices[0].Delta.Content)
	}
	assert.Equal(t, []string{"a", "b", "c"}, contents)
}

func TestChainStreamErrorPropagates(t *testing.T) {
	c := NewChain()
	boom := errors.New("no stream")
	_, err := c.Stream(context.Background(), &model.Request{}, func(context.Context, *model.Request) (<-chan *model.Response, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
}
