package history

import (
	"errors"
	"fmt"
)

// Kind identifies the category of a reversible action, e.g. "move-task".
type Kind string

// KindGroup is the kind of a Compound created by grouping.
const KindGroup Kind = "group"

// Action is a reversible edit whose forward effect has already been applied.
type Action interface {
	// Kind returns the category of the action.
	Kind() Kind

	// Description returns a human-readable label for notifications.
	Description() string

	// Undo reverts the action's effect.
	Undo() error

	// Redo reapplies the action's effect.
	Redo() error
}

// Executable is an Action that can also apply its forward effect.
type Executable interface {
	Action

	// Do applies the forward effect for the first time.
	Do() error
}

// Func adapts a pair of functions to the Action interface.
type Func struct {
	K      Kind
	Desc   string
	UndoFn func() error
	RedoFn func() error
}

// Kind returns the action kind.
func (f *Func) Kind() Kind { return f.K }

// Description returns the action description.
func (f *Func) Description() string { return f.Desc }

// Undo calls UndoFn if set.
func (f *Func) Undo() error {
	if f.UndoFn == nil {
		return nil
	}
	return f.UndoFn()
}

// Redo calls RedoFn if set.
func (f *Func) Redo() error {
	if f.RedoFn == nil {
		return nil
	}
	return f.RedoFn()
}

// Compound groups multiple actions as one undo unit.
type Compound struct {
	Name    string   `yaml:"name"`
	Actions []Action `yaml:"actions"`
}

// NewCompound creates a new compound action.
func NewCompound(name string, actions ...Action) *Compound {
	return &Compound{
		Name:    name,
		Actions: actions,
	}
}

// Kind returns KindGroup.
func (c *Compound) Kind() Kind { return KindGroup }

// Description returns the compound's name.
func (c *Compound) Description() string {
	if c.Name != "" {
		return c.Name
	}
	if len(c.Actions) == 1 {
		return c.Actions[0].Description()
	}
	return fmt.Sprintf("%d actions", len(c.Actions))
}

// Undo reverts all actions in reverse order. If a step fails, the steps
// already reverted are reapplied so the compound stays all-or-nothing.
func (c *Compound) Undo() error {
	for i := len(c.Actions) - 1; i >= 0; i-- {
		if err := c.Actions[i].Undo(); err != nil {
			var rollbackErr error
			for j := i + 1; j < len(c.Actions); j++ {
				rollbackErr = errors.Join(rollbackErr, c.Actions[j].Redo())
			}
			return errors.Join(fmt.Errorf("undo %q step %d: %w", c.Description(), i, err), rollbackErr)
		}
	}
	return nil
}

// Redo reapplies all actions in order, rolling back on failure.
func (c *Compound) Redo() error {
	for i, a := range c.Actions {
		if err := a.Redo(); err != nil {
			var rollbackErr error
			for j := i - 1; j >= 0; j-- {
				rollbackErr = errors.Join(rollbackErr, c.Actions[j].Undo())
			}
			return errors.Join(fmt.Errorf("redo %q step %d: %w", c.Description(), i, err), rollbackErr)
		}
	}
	return nil
}

// Add appends an action to the compound.
func (c *Compound) Add(a Action) {
	c.Actions = append(c.Actions, a)
}

// IsEmpty returns true if the compound has no actions.
func (c *Compound) IsEmpty() bool {
	return len(c.Actions) == 0
}

// ActionError reports a failed Undo or Redo. The action stays on the stack
// it was taken from.
type ActionError struct {
	Op     string // "undo" or "redo"
	Action Action
	Err    error
}

func (e *ActionError) Error() string {
	return fmt.Sprintf("%s %s (%s): %v", e.Op, e.Action.Kind(), e.Action.Description(), e.Err)
}

func (e *ActionError) Unwrap() error {
	return e.Err
}
