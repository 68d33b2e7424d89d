package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/sergi/go-diff/diffmatchpatch"

	"tfpilot/internal/agent"
	"tfpilot/internal/chat"
	"tfpilot/internal/config"
	"tfpilot/internal/filetree"
	"tfpilot/internal/pubsub"
	"tfpilot/internal/tools"
)

var (
	promptStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6"))
	toolStyle     = lipgloss.NewStyle().Faint(true)
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	noticeStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	approvalStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("3"))
	bannerStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("5"))
)

// repl is the interactive loop driving the conversation. It subscribes to
// the conversation's event channel for wakeups and always reads state from
// authoritative snapshots.
type repl struct {
	conv      *agent.Conversation
	store     *filetree.Store
	cfg       *config.Config
	md        *glamour.TermRenderer
	events    chan pubsub.ConversationEvent
	cancelSub func()
	sigint    chan os.Signal

	rendered    int // messages already printed at quiet points
	seenCalls   map[string]bool
	seenResults map[string]bool
}

func newREPL(conv *agent.Conversation, broker *pubsub.Broker, store *filetree.Store, cfg *config.Config) (*repl, error) {
	md, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create markdown renderer: %w", err)
	}

	r := &repl{
		conv:        conv,
		store:       store,
		cfg:         cfg,
		md:          md,
		events:      make(chan pubsub.ConversationEvent, 256),
		sigint:      make(chan os.Signal, 1),
		seenCalls:   map[string]bool{},
		seenResults: map[string]bool{},
	}

	cancel, err := broker.Subscribe(
		pubsub.ConversationEventChannel(conv.ID()),
		pubsub.HandleConversationEvent(func(_ context.Context, ev pubsub.ConversationEvent, err error) {
			if err != nil {
				return
			}
			r.events <- ev
		}),
	)
	if err != nil {
		return nil, err
	}
	r.cancelSub = cancel
	return r, nil
}

func (r *repl) run() error {
	defer r.cancelSub()
	signal.Notify(r.sigint, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(r.sigint)

	fmt.Println(bannerStyle.Render("tfpilot") + " — " + r.cfg.Provider + "/" + r.cfg.Model.Name)
	fmt.Printf("Loaded %d files from %s. Type /help for commands.\n\n", r.store.Snapshot().Len(), r.cfg.WorkDir)

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		fmt.Print(promptStyle.Render("you › "))
		if !scanner.Scan() {
			fmt.Println()
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch line {
		case "/quit", "/exit":
			return nil

		case "/help":
			r.printHelp()

		case "/files":
			for _, p := range r.store.Snapshot().Paths() {
				fmt.Println("  " + p)
			}

		case "/approve":
			r.conv.Approve()
			r.waitQuiet()

		case "/reject":
			r.conv.Reject()
			r.waitQuiet()

		case "/stop":
			r.conv.Stop()

		case "/reset":
			r.conv.Reset()
			r.rendered = 0
			r.seenCalls = map[string]bool{}
			r.seenResults = map[string]bool{}
			fmt.Println(noticeStyle.Render("Conversation reset."))

		default:
			if strings.HasPrefix(line, "/") {
				fmt.Println(noticeStyle.Render("Unknown command. Type /help."))
				continue
			}
			if err := r.conv.Send(line); err != nil {
				fmt.Println(noticeStyle.Render(err.Error()))
				continue
			}
			r.waitQuiet()
		}
	}
}

func (r *repl) printHelp() {
	fmt.Println(`Commands:
  /approve   approve the pending tool call
  /reject    reject the pending tool call
  /stop      cancel the in-flight turn
  /reset     discard the conversation
  /files     list the current file tree
  /quit      exit`)
}

// waitQuiet blocks until the conversation settles (idle, awaiting approval,
// or error), printing tool activity as it happens. Ctrl-C cancels the turn.
func (r *repl) waitQuiet() {
	for {
		snap := r.conv.Snapshot()
		r.printActivity(snap)

		if snap.Status != agent.StatusStreaming {
			r.printQuiet(snap)
			return
		}

		select {
		case <-r.events:
		case <-r.sigint:
			fmt.Println(noticeStyle.Render("\nCancelling..."))
			r.conv.Stop()
		}
	}
}

// printActivity prints tool calls and results not yet shown, keyed by call
// ID so message-list reshaping between snapshots cannot double-print.
func (r *repl) printActivity(snap agent.Snapshot) {
	for _, msg := range snap.Messages {
		for _, rec := range msg.Calls {
			if !r.seenCalls[rec.Call.ID] {
				r.seenCalls[rec.Call.ID] = true
				fmt.Println(toolStyle.Render("  → " + rec.Call.Name + formatArgs(rec.Call.Args)))
			}
		}
		for _, res := range msg.Results {
			if !r.seenResults[res.CallID] {
				r.seenResults[res.CallID] = true
				fmt.Println(toolStyle.Render("  ← " + res.Name + ": " + summarizeResult(res.Result)))
			}
		}
	}
}

// printQuiet renders messages accumulated since the last quiet point, then
// the approval prompt or error banner if one applies.
func (r *repl) printQuiet(snap agent.Snapshot) {
	for i := r.rendered; i < len(snap.Messages); i++ {
		msg := snap.Messages[i]
		if msg.Role != chat.RoleAssistant || msg.Content == "" {
			continue
		}
		out, err := r.md.Render(msg.Content)
		if err != nil {
			out = msg.Content
		}
		fmt.Print(out)
	}
	r.rendered = len(snap.Messages)

	switch snap.Status {
	case agent.StatusError:
		fmt.Println(errorStyle.Render("Turn failed: " + snap.Error))
		fmt.Println(noticeStyle.Render("Use /reset to start over."))

	case agent.StatusAwaitingApproval:
		if snap.Pending != nil {
			r.printApprovalPrompt(*snap.Pending)
		}
	}
}

func (r *repl) printApprovalPrompt(p agent.PendingApproval) {
	path := tools.GetStringDefault(p.Args, "path", "?")
	fmt.Println(approvalStyle.Render(fmt.Sprintf("Approval required: %s %s", p.Tool, path)))

	switch p.Tool {
	case "edit_file":
		fmt.Println(r.editPreview(p.Args))
	case "delete_file":
		fmt.Println(toolStyle.Render("  will delete " + path))
	}
	fmt.Println(noticeStyle.Render("  /approve to run, /reject to decline"))
}

// editPreview shows a colored diff of what the pending edit would change.
func (r *repl) editPreview(args map[string]any) string {
	path := tools.GetStringDefault(args, "path", "")
	oldContent := tools.GetStringDefault(args, "old_content", "")
	newContent := tools.GetStringDefault(args, "new_content", "")

	before := oldContent
	if before == "" {
		// Creation or append: diff against the current content, if any.
		if cur, err := r.store.Snapshot().ReadText(path); err == nil {
			before = cur
			if cur != "" {
				newContent = cur + newContent
			}
		}
	}

	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(before, newContent, false)
	dmp.DiffCleanupSemantic(diffs)
	return dmp.DiffPrettyText(diffs)
}

func formatArgs(args map[string]any) string {
	if path, ok := tools.GetString(args, "path"); ok {
		return "(" + path + ")"
	}
	if pattern, ok := tools.GetString(args, "pattern"); ok {
		return "(" + pattern + ")"
	}
	return ""
}

func summarizeResult(result map[string]any) string {
	if result == nil {
		return "done"
	}
	if errStr, ok := result["error"].(string); ok && errStr != "" {
		return "error: " + errStr
	}
	if content, ok := result["content"].(string); ok && content != "" {
		if len(content) > 80 {
			return content[:80] + "…"
		}
		return firstLine(content)
	}
	return "ok"
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i] + "…"
	}
	return s
}
