package llmclient

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/nudgyapp/companion/src/aisdk"
)

// ChatStream reads newline-delimited "data: {json}" events from an SSE
// response body. Closing the stream (or cancelling the request context)
// aborts the read; there is no polled cancellation flag.
type ChatStream struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
	logger  *slog.Logger
	closed  bool
}

func newChatStream(body io.ReadCloser, logger *slog.Logger) *ChatStream {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 512*1024)
	return &ChatStream{body: body, scanner: scanner, logger: logger}
}

// Recv returns the next parseable chunk. A malformed chunk is skipped and
// the read continues; it only becomes fatal if nothing usable arrives by
// stream end. Returns io.EOF on the [DONE] sentinel or when the stream ends.
func (s *ChatStream) Recv() (*aisdk.StreamChunk, error) {
	if s.closed {
		return nil, ErrStreamClosed
	}
	for s.scanner.Scan() {
		line := s.scanner.Text()
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "" {
			continue
		}
		if data == "[DONE]" {
			return nil, io.EOF
		}
		var chunk aisdk.StreamChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			s.logger.Debug("skipping malformed stream chunk", "error", err)
			continue
		}
		return &chunk, nil
	}
	if err := s.scanner.Err(); err != nil {
		return nil, err
	}
	return nil, io.EOF
}

// Close closes the underlying response body.
func (s *ChatStream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.body.Close()
}

// doChatStream performs one streaming HTTP attempt and assembles the
// incremental fragments into a full response.
func (c *Client) doChatStream(ctx context.Context, body []byte, onPartial aisdk.StreamHandler) (*aisdk.ChatCompletionResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.TotalTimeout)
	defer cancel()

	httpReq, err := c.newRequest(ctx, body)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Accept", "text/event-stream")

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		c.latency.Record(time.Since(start))
		return nil, c.handleError(resp)
	}

	stream := newChatStream(resp.Body, c.logger)
	defer stream.Close()

	agg := aisdk.NewStreamAggregator()
	var streamErr error
	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			streamErr = err
			break
		}
		if delta := agg.AddChunk(chunk); delta != "" && onPartial != nil {
			onPartial(agg.Content.String())
		}
	}
	c.latency.Record(time.Since(start))

	usable := agg.Content.Len() > 0 || len(agg.ToolCalls()) > 0
	if streamErr != nil && !(usable && agg.Finished()) {
		return nil, streamErr
	}
	if !usable {
		return nil, ErrEmptyResponse
	}

	c.logger.Debug("streaming completion assembled",
		"latency_mean", c.latency.Mean(),
		"tool_calls", len(agg.ToolCalls()))
	return agg.ToResponse(), nil
}
