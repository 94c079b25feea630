package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/snipcap/snipcap/internal/engine"
)

// EventBridge converts engine events into TUI messages that the Bubble Tea
// runtime can dispatch to the App model. Its methods are tea.Cmd producers
// that read from the run's channels.
//
// Each command reads a single value; the App's Update handler re-arms the
// command after every received message to keep draining the channel.
type EventBridge struct{}

// NewEventBridge creates a new EventBridge. No internal state is maintained;
// the struct exists to provide a namespaced API for the bridge helpers.
func NewEventBridge() EventBridge {
	return EventBridge{}
}

// SnippetEventCmd returns a tea.Cmd that reads a single engine.Event from ch
// and converts it to a SnippetStartedMsg or SnippetFinishedMsg. The command
// sends nil when the channel is closed or ctx is done.
//
// Usage: call repeatedly inside App.Update to keep draining the channel:
//
//	case SnippetFinishedMsg:
//	    // handle...
//	    return a, bridge.SnippetEventCmd(ctx, ch)
func (b EventBridge) SnippetEventCmd(ctx context.Context, ch <-chan engine.Event) tea.Cmd {
	return func() tea.Msg {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-ch:
			if !ok {
				return nil
			}
			return convertEngineEvent(ev)
		}
	}
}

// convertEngineEvent maps an engine.Event to a TUI message. Unknown event
// types are treated as snippet starts so the drain loop stays armed.
func convertEngineEvent(ev engine.Event) tea.Msg {
	if ev.Type == engine.EventSnippetFinished {
		return SnippetFinishedMsg{
			Name:      ev.Result.Name,
			Status:    ev.Result.Status,
			Bytes:     ev.Result.Bytes,
			Duration:  ev.Result.Duration,
			Err:       ev.Result.Err,
			Timestamp: time.Now(),
		}
	}

	return SnippetStartedMsg{
		Name:      ev.Result.Name,
		Tool:      ev.Result.Tool,
		Timestamp: time.Now(),
	}
}

// RunDoneCmd returns a tea.Cmd that waits for the run outcome. It takes no
// context: the run goroutine delivers exactly one RunDoneMsg even when the
// run is cancelled, and that message carries the report the summary view
// needs. The command sends nil only if the channel is closed without a value.
func (b EventBridge) RunDoneCmd(ch <-chan RunDoneMsg) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return nil
		}
		return msg
	}
}
