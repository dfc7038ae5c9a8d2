// Package history keeps the undo and redo stacks of reversible commands.
//
// Each stack is capped. When a new command pushes the undo stack past its
// cap the oldest command is dropped and can never be undone again; this is
// a user-visible limit on history depth, not an error.
package history

import (
	"fmt"

	"go.uber.org/zap"
)

// Command is one reversible mutation.
//
// Execute is called once, when the command is first run. Undo is called
// only while the command is on top of the undo stack, and Redo only while
// it is on top of the redo stack. Execute, Undo, Redo must leave the same
// state as Execute alone.
type Command interface {
	Title() string
	Execute() error
	Undo() error
	Redo() error
}

// Releaser is implemented by commands that hold resources which must be
// freed once the command can no longer be undone or redone.
type Releaser interface {
	Release()
}

// Default stack depths.
const (
	DefaultUndoDepth = 100
	DefaultRedoDepth = 100
)

// Manager owns the undo and redo stacks. Both are most-recent-last.
type Manager struct {
	undo    []Command
	redo    []Command
	maxUndo int
	maxRedo int
	log     *zap.Logger
}

// NewManager creates a manager with the given stack depths. Non-positive
// depths fall back to the defaults.
func NewManager(maxUndo, maxRedo int, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	m := &Manager{log: log}
	m.SetLimits(maxUndo, maxRedo)
	return m
}

// SetLimits changes the stack depths, evicting the oldest entries if the
// stacks are now too deep.
func (m *Manager) SetLimits(maxUndo, maxRedo int) {
	if maxUndo <= 0 {
		maxUndo = DefaultUndoDepth
	}
	if maxRedo <= 0 {
		maxRedo = DefaultRedoDepth
	}
	m.maxUndo, m.maxRedo = maxUndo, maxRedo
	m.undo = m.trim(m.undo, m.maxUndo)
	m.redo = m.trim(m.redo, m.maxRedo)
}

// Limits returns the current stack depths.
func (m *Manager) Limits() (maxUndo, maxRedo int) {
	return m.maxUndo, m.maxRedo
}

// Run executes cmd and records it. The redo stack is cleared because redo
// history is only valid until the next original action. If Execute fails
// nothing is recorded and the redo stack is kept.
func (m *Manager) Run(cmd Command) error {
	if err := cmd.Execute(); err != nil {
		return fmt.Errorf("%s: %w", cmd.Title(), err)
	}
	m.log.Debug("run command", zap.String("title", cmd.Title()))

	for _, c := range m.redo {
		release(c)
	}
	m.redo = nil

	m.undo = append(m.undo, cmd)
	m.undo = m.trim(m.undo, m.maxUndo)
	return nil
}

// Undo reverses the most recent command. It returns false when there is
// nothing to undo. A command whose Undo fails stays on the undo stack.
func (m *Manager) Undo() (bool, error) {
	n := len(m.undo)
	if n == 0 {
		return false, nil
	}
	cmd := m.undo[n-1]
	if err := cmd.Undo(); err != nil {
		return false, fmt.Errorf("undo %s: %w", cmd.Title(), err)
	}
	m.undo[n-1] = nil
	m.undo = m.undo[:n-1]
	m.redo = append(m.redo, cmd)
	m.redo = m.trim(m.redo, m.maxRedo)
	m.log.Debug("undo command", zap.String("title", cmd.Title()))
	return true, nil
}

// Redo re-applies the most recently undone command. It returns false when
// there is nothing to redo.
func (m *Manager) Redo() (bool, error) {
	n := len(m.redo)
	if n == 0 {
		return false, nil
	}
	cmd := m.redo[n-1]
	if err := cmd.Redo(); err != nil {
		return false, fmt.Errorf("redo %s: %w", cmd.Title(), err)
	}
	m.redo[n-1] = nil
	m.redo = m.redo[:n-1]
	m.undo = append(m.undo, cmd)
	m.undo = m.trim(m.undo, m.maxUndo)
	m.log.Debug("redo command", zap.String("title", cmd.Title()))
	return true, nil
}

// CanUndo reports whether Undo would do anything.
func (m *Manager) CanUndo() bool { return len(m.undo) > 0 }

// CanRedo reports whether Redo would do anything.
func (m *Manager) CanRedo() bool { return len(m.redo) > 0 }

// UndoTitles returns the titles on the undo stack, oldest first.
func (m *Manager) UndoTitles() []string { return titles(m.undo) }

// RedoTitles returns the titles on the redo stack, oldest first.
func (m *Manager) RedoTitles() []string { return titles(m.redo) }

// Clear drops both stacks, releasing every command.
func (m *Manager) Clear() {
	for _, c := range m.undo {
		release(c)
	}
	for _, c := range m.redo {
		release(c)
	}
	m.undo, m.redo = nil, nil
}

// trim drops the oldest commands beyond max.
func (m *Manager) trim(stack []Command, max int) []Command {
	over := len(stack) - max
	if over <= 0 {
		return stack
	}
	for _, c := range stack[:over] {
		m.log.Debug("evict command", zap.String("title", c.Title()))
		release(c)
	}
	return append(stack[:0:0], stack[over:]...)
}

func release(c Command) {
	if r, ok := c.(Releaser); ok {
		r.Release()
	}
}

func titles(stack []Command) []string {
	out := make([]string, len(stack))
	for i, c := range stack {
		out[i] = c.Title()
	}
	return out
}
