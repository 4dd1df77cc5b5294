package logger

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rivo/tview"
	"github.com/rs/zerolog"
)

type Types int

const (
	Info Types = iota
	Error
	Warn
	Fatal
	Debug
)

type Message struct {
	Timestamp time.Time
	Tag       string
	Message   string
	LogTypes  Types
}

// manager owns the shared sinks; every tagged Logger points at it.
type manager struct {
	view    *tview.TextView
	dev     bool
	logFile *os.File
	sink    zerolog.Logger
	logChan chan Message
	done    chan struct{}

	mu     sync.RWMutex
	closed bool
}

type Logger struct {
	tag string
}

var (
	logManager *manager
	once       sync.Once
	closeOnce  sync.Once
)

// InitLogger sets up the shared sinks. Dev mode echoes entries to the debug
// console view (or stderr when view is nil); a non-empty logPath adds a JSON
// log file.
func InitLogger(dev bool, logPath string, view *tview.TextView) error {
	var initErr error
	once.Do(func() {
		m := &manager{
			view: view,
			dev:  dev,
		}
		if logPath != "" {
			timestamp := time.Now().Format("20060102_150405")
			fileName := fmt.Sprintf("deepchat_log_%s.log", timestamp)
			filePath := filepath.Join(logPath, fileName)

			file, err := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
			if err != nil {
				initErr = fmt.Errorf("failed to open log file: %w", err)
				return
			}
			m.logFile = file
			m.sink = zerolog.New(file)
			m.logChan = make(chan Message, 100)
			m.done = make(chan struct{})
			go m.processLogs()
		}
		logManager = m
	})
	return initErr
}

// NewLogger returns a tagged logger. Until InitLogger runs it discards
// everything.
func NewLogger(tag string) *Logger {
	return &Logger{tag: tag}
}

func (m *manager) processLogs() {
	defer close(m.done)
	for msg := range m.logChan {
		m.sink.WithLevel(msg.LogTypes.level()).
			Time("time", msg.Timestamp).
			Str("tag", msg.Tag).
			Msg(msg.Message)
	}
}

func (l *Logger) log(logTypes Types, v ...interface{}) {
	m := logManager
	if m == nil {
		return
	}
	message := fmt.Sprint(v...)

	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return
	}

	if m.dev {
		if m.view != nil {
			var format string
			switch logTypes {
			case Info:
				format = "[green]DEBUG (%s): %s[-]\n"
			case Error, Fatal:
				format = "[red]DEBUG (%s): %s[-]\n"
			case Warn:
				format = "[yellow]DEBUG (%s): %s[-]\n"
			case Debug:
				format = "[grey]DEBUG (%s): %s[-]\n"
			}
			fmt.Fprintf(m.view, format, l.tag, tview.Escape(message))
		} else {
			log.Printf("%s [%s] %s", logTypes.toString(), l.tag, message)
		}
	}

	if m.logChan != nil {
		m.logChan <- Message{
			Timestamp: time.Now(),
			Tag:       l.tag,
			Message:   message,
			LogTypes:  logTypes,
		}
	}
}

func (l *Logger) Info(v ...interface{}) {
	l.log(Info, v...)
}

func (l *Logger) Error(v ...interface{}) {
	l.log(Error, v...)
}

func (l *Logger) Warn(v ...interface{}) {
	l.log(Warn, v...)
}

func (l *Logger) Debug(v ...interface{}) {
	l.log(Debug, v...)
}

func (l *Logger) Fatal(v ...interface{}) {
	l.log(Fatal, v...)
	l.Close()
	os.Exit(1)
}

// Close flushes pending entries to the log file and closes it. It is shared by
// every tagged logger and safe to call more than once.
func (l *Logger) Close() {
	m := logManager
	if m == nil {
		return
	}
	closeOnce.Do(func() {
		m.mu.Lock()
		m.closed = true
		m.mu.Unlock()

		if m.logChan != nil {
			close(m.logChan)
			<-m.done
		}
		if m.logFile != nil {
			m.logFile.Close()
		}
	})
}

func (t Types) level() zerolog.Level {
	switch t {
	case Info:
		return zerolog.InfoLevel
	case Error:
		return zerolog.ErrorLevel
	case Warn:
		return zerolog.WarnLevel
	case Fatal:
		return zerolog.FatalLevel
	case Debug:
		return zerolog.DebugLevel
	default:
		return zerolog.NoLevel
	}
}

func (t Types) toString() string {
	switch t {
	case Info:
		return "INFO"
	case Error:
		return "ERROR"
	case Warn:
		return "WARN"
	case Fatal:
		return "FATAL"
	case Debug:
		return "DEBUG"
	default:
		return "UNKNOWN"
	}
}
