// Package history implements the undo/redo log of scene edits.
package history

import (
	"errors"
	"fmt"
	"log"
	"time"
)

const DefaultCapacity = 50

var (
	ErrNothingToUndo = errors.New("nothing to undo")
	ErrNothingToRedo = errors.New("nothing to redo")
)

// Command is one reversible scene edit.
type Command interface {
	Name() string
	Timestamp() time.Time
	Execute() error
	Undo() error
}

// Merger is implemented by commands that can absorb a newer command of the same kind,
// so a continuous drag becomes a single history entry.
type Merger interface {
	Merge(next Command) bool
}

// History is a bounded linear log with a cursor pointing at the last applied command.
// It is single-writer: call it only from the interactive goroutine.
type History struct {
	commands  []Command
	cursor    int
	capacity  int
	replaying bool

	// OnChange is called after every change of the log or cursor.
	OnChange func()
}

func New(capacity int) *History {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &History{cursor: -1, capacity: capacity}
}

// Execute runs cmd and records it. While an undo or redo is in progress the command
// is run but not recorded.
func (h *History) Execute(cmd Command) error {
	if err := cmd.Execute(); err != nil {
		log.Printf("[!] Команда %s не выполнена: %v", cmd.Name(), err)
		return fmt.Errorf("%s: %w", cmd.Name(), err)
	}
	if h.replaying {
		return nil
	}
	h.record(cmd)
	return nil
}

// Push records a command whose effect has already been applied (e.g. a finished drag).
func (h *History) Push(cmd Command) {
	if h.replaying {
		return
	}
	h.record(cmd)
}

func (h *History) record(cmd Command) {
	if h.cursor < len(h.commands)-1 {
		// a fresh edit discards the redo branch
		for i := h.cursor + 1; i < len(h.commands); i++ {
			h.commands[i] = nil
		}
		h.commands = h.commands[:h.cursor+1]
	}

	if h.cursor >= 0 {
		if m, ok := h.commands[h.cursor].(Merger); ok && m.Merge(cmd) {
			h.changed()
			return
		}
	}

	h.commands = append(h.commands, cmd)
	h.cursor = len(h.commands) - 1

	if len(h.commands) > h.capacity {
		over := len(h.commands) - h.capacity
		h.commands = append(h.commands[:0], h.commands[over:]...)
		h.cursor -= over
	}
	h.changed()
}

// Undo reverts the command at the cursor. On failure the cursor stays put.
func (h *History) Undo() error {
	if h.cursor < 0 {
		return ErrNothingToUndo
	}
	cmd := h.commands[h.cursor]

	h.replaying = true
	err := cmd.Undo()
	h.replaying = false

	if err != nil {
		log.Printf("[!] Отмена %s не удалась: %v", cmd.Name(), err)
		return fmt.Errorf("undo %s: %w", cmd.Name(), err)
	}
	h.cursor--
	h.changed()
	return nil
}

// Redo re-applies the command after the cursor. On failure the cursor stays put.
func (h *History) Redo() error {
	if h.cursor >= len(h.commands)-1 {
		return ErrNothingToRedo
	}
	cmd := h.commands[h.cursor+1]

	h.replaying = true
	err := cmd.Execute()
	h.replaying = false

	if err != nil {
		log.Printf("[!] Повтор %s не удался: %v", cmd.Name(), err)
		return fmt.Errorf("redo %s: %w", cmd.Name(), err)
	}
	h.cursor++
	h.changed()
	return nil
}

func (h *History) CanUndo() bool { return h.cursor >= 0 }
func (h *History) CanRedo() bool { return h.cursor < len(h.commands)-1 }

// Replaying reports whether an undo or redo is running.
func (h *History) Replaying() bool { return h.replaying }

func (h *History) Len() int    { return len(h.commands) }
func (h *History) Cursor() int { return h.cursor }

// Names lists command names oldest first.
func (h *History) Names() []string {
	names := make([]string, len(h.commands))
	for i, c := range h.commands {
		names[i] = c.Name()
	}
	return names
}

// Clear drops every entry.
func (h *History) Clear() {
	h.commands = nil
	h.cursor = -1
	h.changed()
}

func (h *History) changed() {
	if h.OnChange != nil {
		h.OnChange()
	}
}
