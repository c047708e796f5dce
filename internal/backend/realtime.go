// AngelaMos | 2026
// realtime.go

package backend

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
)

// Channel selects the changes a Stream receives. Filter uses the
// column=eq.value form, for example user_id=eq.<id>.
type Channel struct {
	Table  string
	Event  string
	Filter string
}

func (c Channel) String() string {
	s := c.Table + ":" + c.eventOrAll()
	if c.Filter != "" {
		s += ":" + c.Filter
	}
	return s
}

func (c Channel) eventOrAll() string {
	if c.Event == "" {
		return EventAll
	}
	return c.Event
}

// Stream delivers changes for one Channel until closed or the server ends
// it.
type Stream struct {
	channel Channel
	ch      chan Change
	cancel  context.CancelFunc
	done    chan struct{}

	mu  sync.Mutex
	err error
}

func (s *Stream) C() <-chan Change { return s.ch }

// Done is closed once the stream has stopped and C is drained of new
// values.
func (s *Stream) Done() <-chan struct{} { return s.done }

// Err reports why the stream ended. It is nil after Close.
func (s *Stream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Stream) Close() {
	s.cancel()
	<-s.done
}

func (s *Stream) fail(err error) {
	s.mu.Lock()
	if s.err == nil {
		s.err = err
	}
	s.mu.Unlock()
}

// Subscribe opens a change stream. It returns once the backend has
// accepted the subscription.
func (c *Conn) Subscribe(ctx context.Context, ch Channel) (*Stream, error) {
	if !c.client.Configured() {
		return nil, ErrNotConfigured
	}

	token, err := c.Auth.AccessToken(ctx)
	if err != nil {
		return nil, err
	}

	q := url.Values{"table": {ch.Table}, "event": {ch.eventOrAll()}}
	if ch.Filter != "" {
		q.Set("filter", ch.Filter)
	}

	streamCtx, cancel := context.WithCancel(ctx)

	req, err := c.client.newRequest(streamCtx, http.MethodGet, "/realtime", q, token, nil)
	if err != nil {
		cancel()
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.client.stream.Do(req)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("subscribe %s: %w", ch, err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close() //nolint:errcheck // read-only body
		defer cancel()

		apiErr := &APIError{Status: resp.StatusCode}
		var env envelope
		if decodeEnvelope(resp, &env) == nil && env.Error != nil {
			apiErr.Code, apiErr.Message = env.Error.Code, env.Error.Message
		}
		return nil, apiErr
	}

	s := &Stream{
		channel: ch,
		ch:      make(chan Change, 16),
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	go s.read(streamCtx, resp.Body)

	return s, nil
}

func (s *Stream) read(ctx context.Context, body io.ReadCloser) {
	defer close(s.done)
	defer close(s.ch)
	defer body.Close() //nolint:errcheck // read-only body

	r := bufio.NewReader(body)
	var event, data strings.Builder

	for {
		line, err := r.ReadString('\n')
		if err != nil {
			if ctx.Err() == nil {
				if errors.Is(err, io.EOF) {
					err = io.ErrUnexpectedEOF
				}
				s.fail(fmt.Errorf("stream %s: %w", s.channel, err))
			}
			return
		}

		line = strings.TrimRight(line, "\r\n")
		switch {
		case line == "":
			if !s.dispatch(ctx, event.String(), data.String()) {
				return
			}
			event.Reset()
			data.Reset()
		case strings.HasPrefix(line, ":"):
		case strings.HasPrefix(line, "event:"):
			event.WriteString(strings.TrimSpace(strings.TrimPrefix(line, "event:")))
		case strings.HasPrefix(line, "data:"):
			if data.Len() > 0 {
				data.WriteByte('\n')
			}
			data.WriteString(strings.TrimSpace(strings.TrimPrefix(line, "data:")))
		}
	}
}

// dispatch handles one complete event and reports whether reading should
// continue.
func (s *Stream) dispatch(ctx context.Context, event, data string) bool {
	switch event {
	case "change":
		var c Change
		if err := json.Unmarshal([]byte(data), &c); err != nil {
			return true
		}
		select {
		case s.ch <- c:
			return true
		case <-ctx.Done():
			return false
		}
	case "error":
		var msg struct {
			Message string `json:"message"`
		}
		_ = json.Unmarshal([]byte(data), &msg) //nolint:errcheck // message is optional
		s.fail(fmt.Errorf("stream %s: %s", s.channel, msg.Message))
		return false
	default:
		return true
	}
}
