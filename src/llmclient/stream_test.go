package llmclient

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nudgyapp/companion/src/aisdk"
)

func sseResponse(events string) *http.Response {
	return &http.Response{
		StatusCode: http.StatusOK,
		Body:       io.NopCloser(strings.NewReader(events)),
		Header:     http.Header{"Content-Type": []string{"text/event-stream"}},
	}
}

func TestStreamAssemblesText(t *testing.T) {
	events := "data: {\"id\":\"chatcmpl-1\",\"choices\":[{\"delta\":{\"content\":\"Hel\"}}]}\n\n" +
		"data: {\"id\":\"chatcmpl-1\",\"choices\":[{\"delta\":{\"content\":\"lo \"}}]}\n\n" +
		"data: {\"id\":\"chatcmpl-1\",\"choices\":[{\"delta\":{\"content\":\"there\"},\"finish_reason\":\"stop\"}]}\n\n" +
		"data: [DONE]\n\n"

	client := newTestClient(t, func(r *http.Request) (*http.Response, error) {
		return sseResponse(events), nil
	}, nil)

	var partials []string
	resp, err := client.CreateChatCompletionStream(context.Background(), &aisdk.ChatCompletionRequest{}, func(acc string) {
		partials = append(partials, acc)
	})
	require.NoError(t, err)
	assert.Equal(t, "Hello there", resp.FirstMessage().Content)
	assert.Equal(t, "stop", resp.Choices[0].FinishReason)
	assert.Equal(t, []string{"Hel", "Hello ", "Hello there"}, partials,
		"onPartial receives the accumulated text after every content delta")
	assert.Equal(t, 1, client.Latency().Count())
}

func TestStreamAssemblesToolCallFragments(t *testing.T) {
	// Arguments for two calls arrive interleaved, keyed by delta index.
	events := "data: {\"choices\":[{\"delta\":{\"tool_calls\":[{\"index\":0,\"id\":\"call_a\",\"function\":{\"name\":\"add_task\",\"arguments\":\"{\\\"title\\\":\"}}]}}]}\n\n" +
		"data: {\"choices\":[{\"delta\":{\"tool_calls\":[{\"index\":1,\"id\":\"call_b\",\"function\":{\"name\":\"add_task\",\"arguments\":\"{\\\"title\\\":\\\"buy \"}}]}}]}\n\n" +
		"data: {\"choices\":[{\"delta\":{\"tool_calls\":[{\"index\":0,\"function\":{\"arguments\":\"\\\"call mom\\\"}\"}}]}}]}\n\n" +
		"data: {\"choices\":[{\"delta\":{\"tool_calls\":[{\"index\":1,\"function\":{\"arguments\":\"milk\\\"}\"}}]},\"finish_reason\":\"tool_calls\"}]}\n\n" +
		"data: [DONE]\n\n"

	client := newTestClient(t, func(r *http.Request) (*http.Response, error) {
		return sseResponse(events), nil
	}, nil)

	resp, err := client.CreateChatCompletionStream(context.Background(), &aisdk.ChatCompletionRequest{}, nil)
	require.NoError(t, err)

	msg := resp.FirstMessage()
	require.Len(t, msg.ToolCalls, 2)
	assert.Equal(t, "call_a", msg.ToolCalls[0].ID)
	assert.Equal(t, `{"title":"call mom"}`, msg.ToolCalls[0].Function.Arguments)
	assert.Equal(t, "call_b", msg.ToolCalls[1].ID)
	assert.Equal(t, `{"title":"buy milk"}`, msg.ToolCalls[1].Function.Arguments)
	assert.Equal(t, "tool_calls", resp.Choices[0].FinishReason)
}

func TestStreamSkipsMalformedChunk(t *testing.T) {
	events := "data: {\"choices\":[{\"delta\":{\"content\":\"good \"}}]}\n\n" +
		"data: {this chunk is broken\n\n" +
		"data: {\"choices\":[{\"delta\":{\"content\":\"enough\"},\"finish_reason\":\"stop\"}]}\n\n" +
		"data: [DONE]\n\n"

	client := newTestClient(t, func(r *http.Request) (*http.Response, error) {
		return sseResponse(events), nil
	}, nil)

	resp, err := client.CreateChatCompletionStream(context.Background(), &aisdk.ChatCompletionRequest{}, nil)
	require.NoError(t, err)
	assert.Equal(t, "good enough", resp.FirstMessage().Content)
}

func TestStreamEmptyIsError(t *testing.T) {
	client := newTestClient(t, func(r *http.Request) (*http.Response, error) {
		return sseResponse("data: [DONE]\n\n"), nil
	}, nil)

	_, err := client.CreateChatCompletionStream(context.Background(), &aisdk.ChatCompletionRequest{}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestStreamRequestSetsStreamFlag(t *testing.T) {
	client := newTestClient(t, func(r *http.Request) (*http.Response, error) {
		body, _ := io.ReadAll(r.Body)
		assert.Contains(t, string(body), `"stream":true`)
		return sseResponse("data: {\"choices\":[{\"delta\":{\"content\":\"ok\"},\"finish_reason\":\"stop\"}]}\n\ndata: [DONE]\n\n"), nil
	}, func(cfg *Config) {
		cfg.TotalTimeout = 5 * time.Second
	})

	resp, err := client.CreateChatCompletionStream(context.Background(), &aisdk.ChatCompletionRequest{}, nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.FirstMessage().Content)
}
