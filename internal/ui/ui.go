package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/bz888/deepchat/internal/api"
	"github.com/bz888/deepchat/internal/api/server/client"
	"github.com/bz888/deepchat/internal/logger"
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

const (
	commandHelp   = "/help"
	commandStatus = "/status"
	commandDebug  = "/debug"
	commandBye    = "/bye"
)

// UI renders one chat session in the terminal.
type UI struct {
	app          *tview.Application
	mainFlex     *tview.Flex
	debugConsole *tview.TextView
	textView     *tview.TextView
	textArea     *tview.TextArea
	session      *api.Session
	debugShown   bool
	localLogger  *logger.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

// New builds the widgets. The debug console exists from the start so the
// logger can write into it; dev decides whether it is visible.
func New(dev bool) *UI {
	app := tview.NewApplication()
	app.EnablePaste(true)
	app.EnableMouse(true)

	ctx, cancel := context.WithCancel(context.Background())
	u := &UI{
		app:         app,
		debugShown:  dev,
		localLogger: logger.NewLogger("views"),
		ctx:         ctx,
		cancel:      cancel,
	}
	u.debugConsole = u.initDebugConsole()
	u.textView = u.initChatViewer()
	u.textArea = initChatInput()
	return u
}

func (u *UI) initChatViewer() *tview.TextView {
	textView := tview.NewTextView().
		SetChangedFunc(func() {
			u.app.Draw()
		}).
		SetDynamicColors(true).
		SetRegions(true).
		SetWordWrap(true)

	textView.SetTitle("Conversation").SetBorder(true)
	textView.SetScrollable(true)
	textView.ScrollToEnd()
	return textView
}

func initChatInput() *tview.TextArea {
	textArea := tview.NewTextArea()
	textArea.SetPlaceholder("Type your message...")
	textArea.SetTitle("Question").SetBorder(true)
	return textArea
}

func (u *UI) initDebugConsole() *tview.TextView {
	console := tview.NewTextView().
		SetChangedFunc(func() {
			u.app.Draw()
		}).
		SetDynamicColors(true).
		SetRegions(true).
		SetWordWrap(true)

	console.SetTitle("Debugger").SetBorder(true)
	console.ScrollToEnd()
	return console
}

// DebugConsole is the view dev-mode log lines are written to.
func (u *UI) DebugConsole() *tview.TextView {
	return u.debugConsole
}

// SessionOptions wires transcript and busy notifications into the view.
// Pass them to api.NewSession and hand the session to Run.
func (u *UI) SessionOptions() []api.Option {
	return []api.Option{
		api.WithOnChange(func(messages []client.Message) {
			u.app.QueueUpdateDraw(func() {
				u.render(messages)
			})
		}),
		api.WithOnBusy(func(busy bool) {
			u.app.QueueUpdateDraw(func() {
				u.textArea.SetDisabled(busy)
				if !busy {
					u.app.SetFocus(u.textArea)
				}
			})
		}),
	}
}

// Run blocks until the user quits.
func (u *UI) Run(session *api.Session) error {
	u.session = session
	defer u.cancel()

	u.textView.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Key() {
		case tcell.KeyEnter:
			u.app.SetFocus(u.textArea)
		}
		return event
	})

	u.buildLayout()
	u.setInputCapture()

	return u.app.SetRoot(u.mainFlex, true).SetFocus(u.textArea).Run()
}

func (u *UI) buildLayout() {
	subFlex := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(u.textView, 0, 1, false).
		AddItem(u.textArea, 8, 2, true)
	u.mainFlex = tview.NewFlex().
		AddItem(subFlex, 0, 2, false)

	if u.debugShown {
		u.mainFlex.AddItem(u.debugConsole, 0, 1, false)
	}
}

func (u *UI) setInputCapture() {
	u.textArea.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Key() {
		case tcell.KeyESC:
			if u.textView.GetText(false) != "" {
				u.app.SetFocus(u.textView)
			}
		case tcell.KeyEnter:
			if event.Modifiers()&tcell.ModShift != 0 {
				return event
			}
			u.handleEnter(u.textArea.GetText())
			return nil
		}
		return event
	})
}

// handleEnter runs a slash command or submits content. The input stays
// disabled from here until the session reports it is idle again.
func (u *UI) handleEnter(content string) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" || u.textArea.GetDisabled() || u.session.Busy() {
		return
	}
	u.textArea.SetText("", true)

	switch trimmed {
	case commandHelp:
		u.listHelp()
		return
	case commandBye:
		u.quitApp()
		return
	case commandDebug:
		u.toggleDebugConsole()
		return
	case commandStatus:
		go u.showStatus()
		return
	}

	u.textArea.SetDisabled(true)
	go u.submit(content)
}

func (u *UI) submit(content string) {
	err := u.session.Submit(u.ctx, content)
	if err == nil {
		return
	}
	u.localLogger.Warn("Submission rejected: ", err)
	// nothing was sent, give the text back
	u.app.QueueUpdateDraw(func() {
		u.textArea.SetText(content, true)
		u.textArea.SetDisabled(false)
	})
}

// render redraws the whole transcript and keeps the newest message in view.
func (u *UI) render(messages []client.Message) {
	var sb strings.Builder
	for _, msg := range messages {
		if msg.Role == client.RoleUser {
			sb.WriteString("[red::]You:[-]\n")
		} else {
			sb.WriteString("[green::]DeepClaude:[-]\n")
		}
		sb.WriteString(tview.Escape(msg.Content))
		sb.WriteString("\n\n")
	}
	u.textView.SetText(sb.String())
	u.textView.ScrollToEnd()
}

func (u *UI) showStatus() {
	status, err := u.session.Status(u.ctx)
	u.app.QueueUpdateDraw(func() {
		if err != nil {
			u.localLogger.Error("Failed to fetch relay status: ", err)
			fmt.Fprintf(u.debugConsole, "[red]relay status unavailable[-]\n")
			return
		}
		fmt.Fprintf(u.debugConsole, "[green]relay working: %t, upstream: %s, credentials present: %t[-]\n",
			status.ServerWorking, tview.Escape(status.UpstreamURL), status.CredentialsPresent)
		if !u.debugShown {
			u.showDebugConsole()
		}
	})
}

func (u *UI) toggleDebugConsole() {
	if u.debugShown {
		u.mainFlex.RemoveItem(u.debugConsole)
		u.debugShown = false
		return
	}
	u.showDebugConsole()
}

func (u *UI) showDebugConsole() {
	u.mainFlex.AddItem(u.debugConsole, 0, 1, false)
	u.debugShown = true
}

func (u *UI) quitApp() {
	u.localLogger.Info("Shutting down gracefully.")
	u.cancel()
	u.app.Stop()
}

func (u *UI) listHelp() {
	fmt.Fprintf(u.debugConsole, "Here are some commands you can use:\n")
	fmt.Fprintf(u.debugConsole, "- %s: Display this help message\n", commandHelp)
	fmt.Fprintf(u.debugConsole, "- %s: Show the relay status\n", commandStatus)
	fmt.Fprintf(u.debugConsole, "- %s: Toggle the debug console\n", commandDebug)
	fmt.Fprintf(u.debugConsole, "- %s: Exit the application\n", commandBye)
	if !u.debugShown {
		u.showDebugConsole()
	}
}
