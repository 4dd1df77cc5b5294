package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/bz888/deepchat/internal/api/server/client"
	"github.com/bz888/deepchat/internal/api/server/handlers"
	"github.com/bz888/deepchat/internal/logger"
)

// FallbackMessage replaces any error the user would otherwise see.
const FallbackMessage = "Sorry, there was an error processing your request."

var (
	ErrEmptySubmission = errors.New("empty submission")
	ErrBusy            = errors.New("a submission is already in flight")
	errInterrupted     = errors.New("relay reported an interrupted stream")
	errAlreadyInFlight = errors.New("an assistant message is already in flight")
)

const readChunkSize = 4096

type Option func(*Session)

// WithOnChange registers a callback run with a transcript snapshot after
// every change, including every received chunk.
func WithOnChange(fn func([]client.Message)) Option {
	return func(s *Session) {
		s.onChange = fn
	}
}

// WithOnBusy registers a callback run whenever the busy flag flips.
func WithOnBusy(fn func(bool)) Option {
	return func(s *Session) {
		s.onBusy = fn
	}
}

// Session is one chat client: it owns the transcript and allows a single
// submission in flight at a time.
type Session struct {
	relay      *RelayClient
	transcript *Transcript

	mu   sync.Mutex
	busy bool

	onChange func([]client.Message)
	onBusy   func(bool)

	localLogger *logger.Logger
}

func NewSession(relay *RelayClient, opts ...Option) *Session {
	s := &Session{
		relay:       relay,
		transcript:  NewTranscript(),
		localLogger: logger.NewLogger("api client"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Session) Messages() []client.Message {
	return s.transcript.Messages()
}

func (s *Session) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy
}

// Status asks the relay for its health report.
func (s *Session) Status(ctx context.Context) (*handlers.Status, error) {
	return s.relay.Status(ctx)
}

// Submit sends text as a new user turn and blocks until the streamed answer
// has been consumed. Empty text and submissions made while another is in
// flight are rejected without touching the transcript. Relay failures are
// recorded in the transcript as FallbackMessage and are not returned.
func (s *Session) Submit(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptySubmission
	}
	if !s.tryAcquire() {
		return ErrBusy
	}
	defer s.release()

	s.transcript.Append(client.Message{Role: client.RoleUser, Content: text})
	s.notifyChange()
	s.localLogger.Info("Input request: ", text)

	if err := s.stream(ctx); err != nil {
		s.localLogger.Error("Error: ", err)
		s.transcript.End()
		s.transcript.Append(client.Message{Role: client.RoleAssistant, Content: FallbackMessage})
		s.notifyChange()
	}
	return nil
}

func (s *Session) stream(ctx context.Context) error {
	resp, err := s.relay.Chat(ctx, s.transcript.Messages())
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if !s.transcript.Begin() {
		return errAlreadyInFlight
	}
	s.notifyChange()
	defer s.transcript.End()

	decoder := client.NewChunkDecoder()
	buf := make([]byte, readChunkSize)
	for {
		n, err := resp.Body.Read(buf)
		eof := errors.Is(err, io.EOF)

		text, decodeErr := decoder.Decode(buf[:n], eof)
		if decodeErr != nil {
			return fmt.Errorf("failed to decode stream: %w", decodeErr)
		}
		if text != "" {
			s.transcript.AppendInFlight(text)
			s.notifyChange()
		}

		if eof {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read stream: %w", err)
		}
	}

	if resp.Trailer.Get(handlers.StreamStatusTrailer) == handlers.StreamInterrupted {
		return errInterrupted
	}
	return nil
}

func (s *Session) tryAcquire() bool {
	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		return false
	}
	s.busy = true
	s.mu.Unlock()
	s.notifyBusy(true)
	return true
}

func (s *Session) release() {
	s.mu.Lock()
	s.busy = false
	s.mu.Unlock()
	s.notifyBusy(false)
}

func (s *Session) notifyChange() {
	if s.onChange != nil {
		s.onChange(s.transcript.Messages())
	}
}

func (s *Session) notifyBusy(busy bool) {
	if s.onBusy != nil {
		s.onBusy(busy)
	}
}
