package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/bz888/deepchat/internal/api/server/client"
	"github.com/bz888/deepchat/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockUpstreamClient struct {
	mock.Mock
}

func (m *MockUpstreamClient) Open(ctx context.Context, req *client.UpstreamRequest) (io.ReadCloser, error) {
	args := m.Called(ctx, req)
	body, _ := args.Get(0).(io.ReadCloser)
	return body, args.Error(1)
}

const helloStream = "data: {\"content\":[{\"text\":\"Hel\"}]}\n" +
	"data: {\"content\":[{\"text\":\"lo\"}]}\n" +
	"not-data: ignore-me\n" +
	"data: not-json\n"

func newRelay(t *testing.T, upstream client.UpstreamClientInterface) *httptest.Server {
	t.Helper()
	handler := NewHandler(upstream, Status{UpstreamURL: "http://upstream.test", CredentialsPresent: true})
	mux := http.NewServeMux()
	mux.HandleFunc("/api/chat", handler.ChatHandler)
	mux.HandleFunc("/status", handler.StatusHandler)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func postChat(t *testing.T, url, body string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Post(url+"/api/chat", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(raw)
}

func TestChatHandlerRelaysFragments(t *testing.T) {
	upstream := new(MockUpstreamClient)
	upstream.On("Open", mock.Anything, mock.MatchedBy(func(req *client.UpstreamRequest) bool {
		return req.Stream && !req.Verbose &&
			len(req.Messages) == 2 &&
			req.Messages[0] == client.Message{Role: client.RoleUser, Content: "hi"} &&
			req.Messages[1] == client.Message{Role: client.RoleAssistant, Content: "hello"}
	})).Return(io.NopCloser(strings.NewReader(helloStream)), nil).Once()

	relay := newRelay(t, upstream)
	resp, body := postChat(t, relay.URL,
		`{"messages":[{"role":"user","content":"hi"},{"role":"assistant","content":"hello"}]}`)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	assert.Equal(t, "Hello", body)
	assert.Equal(t, StreamComplete, resp.Trailer.Get(StreamStatusTrailer))
	upstream.AssertNumberOfCalls(t, "Open", 1)
	upstream.AssertExpectations(t)
}

func TestChatHandlerMalformedRequest(t *testing.T) {
	for name, body := range map[string]string{
		"not json":         `{"messages":`,
		"missing messages": `{"text":"hi"}`,
		"not a sequence":   `{"messages":"hi"}`,
	} {
		t.Run(name, func(t *testing.T) {
			upstream := new(MockUpstreamClient)
			relay := newRelay(t, upstream)

			resp, respBody := postChat(t, relay.URL, body)

			assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
			assert.JSONEq(t, `{"error":"Internal Server Error"}`, respBody)
			upstream.AssertNotCalled(t, "Open", mock.Anything, mock.Anything)
		})
	}
}

func TestChatHandlerUpstreamError(t *testing.T) {
	upstream := new(MockUpstreamClient)
	upstream.On("Open", mock.Anything, mock.Anything).
		Return(nil, &client.UpstreamError{StatusCode: 500, Body: "model exploded"}).Once()

	relay := newRelay(t, upstream)
	resp, body := postChat(t, relay.URL, `{"messages":[{"role":"user","content":"hi"}]}`)

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.JSONEq(t, `{"error":"Internal Server Error"}`, body)
	assert.NotContains(t, body, "model exploded")
	upstream.AssertNumberOfCalls(t, "Open", 1)
}

func TestChatHandlerMidStreamFailure(t *testing.T) {
	broken := io.NopCloser(io.MultiReader(
		strings.NewReader("data: {\"content\":[{\"text\":\"par\"}]}\n"),
		iotest.ErrReader(errors.New("connection reset by peer")),
	))
	upstream := new(MockUpstreamClient)
	upstream.On("Open", mock.Anything, mock.Anything).Return(broken, nil).Once()

	relay := newRelay(t, upstream)
	resp, body := postChat(t, relay.URL, `{"messages":[{"role":"user","content":"hi"}]}`)

	// the body still closes cleanly with whatever arrived
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "par", body)
	assert.Equal(t, StreamInterrupted, resp.Trailer.Get(StreamStatusTrailer))
}

func TestChatHandlerMethodNotAllowed(t *testing.T) {
	upstream := new(MockUpstreamClient)
	relay := newRelay(t, upstream)

	resp, err := http.Get(relay.URL + "/api/chat")
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	assert.Equal(t, http.MethodPost, resp.Header.Get("Allow"))
	upstream.AssertNotCalled(t, "Open", mock.Anything, mock.Anything)
}

func TestChatHandlerFlushesEachFragment(t *testing.T) {
	pr, pw := io.Pipe()
	upstream := new(MockUpstreamClient)
	upstream.On("Open", mock.Anything, mock.Anything).Return(pr, nil).Once()

	relay := newRelay(t, upstream)
	resp, err := http.Post(relay.URL+"/api/chat", "application/json",
		strings.NewReader(`{"messages":[{"role":"user","content":"hi"}]}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	buf := make([]byte, 64)
	for _, text := range []string{"first", "second"} {
		_, err := io.WriteString(pw, `data: {"content":[{"text":"`+text+`"}]}`+"\n")
		require.NoError(t, err)

		// each fragment is readable before the upstream finishes
		n, err := resp.Body.Read(buf)
		require.NoError(t, err)
		assert.Equal(t, text, string(buf[:n]))
	}
	require.NoError(t, pw.Close())

	rest, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Empty(t, rest)
}

func TestStatusHandler(t *testing.T) {
	relay := newRelay(t, new(MockUpstreamClient))

	resp, err := http.Get(relay.URL + "/status")
	require.NoError(t, err)
	defer resp.Body.Close()

	var status Status
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	assert.Equal(t, Status{
		ServerWorking:      true,
		UpstreamURL:        "http://upstream.test",
		CredentialsPresent: true,
	}, status)
}

// brokenWriter accepts headers but fails every body write.
type brokenWriter struct {
	*httptest.ResponseRecorder
}

func (w brokenWriter) Write([]byte) (int, error) {
	return 0, errors.New("connection reset")
}

func TestWriteInternalErrorSurvivesBrokenConnection(t *testing.T) {
	w := brokenWriter{httptest.NewRecorder()}

	assert.NotPanics(t, func() {
		writeInternalError(w, logger.NewLogger("test"))
	})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Empty(t, w.Body.String())
}
