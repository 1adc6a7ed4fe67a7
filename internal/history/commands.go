package history

import (
	"fmt"
	"time"

	"github.com/ivlev/audiocanvas/internal/geometry"
	"github.com/ivlev/audiocanvas/internal/scene"
)

const (
	// ModifyMergeWindow coalesces consecutive modifications of the same object and property.
	ModifyMergeWindow = 500 * time.Millisecond
	// TextMergeWindow coalesces typing into one entry.
	TextMergeWindow = 1000 * time.Millisecond
)

type stamp struct {
	name string
	at   time.Time
}

func (s stamp) Name() string         { return s.name }
func (s stamp) Timestamp() time.Time { return s.at }

// AddObject inserts an object. Index -1 appends on top.
type AddObject struct {
	stamp
	scene *scene.Scene
	obj   scene.Object
	index int
}

func NewAddObject(s *scene.Scene, obj scene.Object, index int, at time.Time) *AddObject {
	return &AddObject{stamp: stamp{"add " + string(obj.Kind()), at}, scene: s, obj: obj, index: index}
}

func (c *AddObject) Execute() error {
	if c.index < 0 || c.index > c.scene.Len() {
		c.index = c.scene.Add(c.obj)
		return nil
	}
	c.scene.Insert(c.index, c.obj)
	return nil
}

func (c *AddObject) Undo() error {
	if _, _, ok := c.scene.Remove(c.obj.Base().ID); !ok {
		return fmt.Errorf("object %s is not in the scene", c.obj.Base().ID)
	}
	return nil
}

// DeleteObject removes an object and restores it at its former layer on undo.
type DeleteObject struct {
	stamp
	scene *scene.Scene
	obj   scene.Object
	index int
}

func NewDeleteObject(s *scene.Scene, obj scene.Object, at time.Time) *DeleteObject {
	return &DeleteObject{stamp: stamp{"delete " + string(obj.Kind()), at}, scene: s, obj: obj, index: -1}
}

func (c *DeleteObject) Execute() error {
	_, i, ok := c.scene.Remove(c.obj.Base().ID)
	if !ok {
		return fmt.Errorf("object %s is not in the scene", c.obj.Base().ID)
	}
	c.index = i
	return nil
}

func (c *DeleteObject) Undo() error {
	c.scene.Insert(c.index, c.obj)
	return nil
}

// Change is a typed mutation carried by ModifyObject.
type Change interface {
	apply(o scene.Object, forward bool) error
	// absorb returns the change going from c's old value to next's new value.
	absorb(next Change) (Change, bool)
	label() string
}

// PositionChange moves an object's top-left corner (relative coordinates).
type PositionChange struct {
	Old, New geometry.Point
}

func (c PositionChange) apply(o scene.Object, forward bool) error {
	p := c.Old
	if forward {
		p = c.New
	}
	b := o.Base()
	b.Rect.X, b.Rect.Y = p.X, p.Y
	return nil
}

func (c PositionChange) absorb(next Change) (Change, bool) {
	n, ok := next.(PositionChange)
	if !ok {
		return nil, false
	}
	return PositionChange{Old: c.Old, New: n.New}, true
}

func (PositionChange) label() string { return "move" }

// SizeChange replaces the whole rectangle. For text the font size travels with it.
type SizeChange struct {
	Old, New         geometry.Rect
	OldFont, NewFont float64
}

func (c SizeChange) apply(o scene.Object, forward bool) error {
	r, font := c.Old, c.OldFont
	if forward {
		r, font = c.New, c.NewFont
	}
	o.Base().Rect = r
	if t, ok := o.(*scene.Text); ok && font > 0 {
		t.FontSize = font
	}
	return nil
}

func (c SizeChange) absorb(next Change) (Change, bool) {
	n, ok := next.(SizeChange)
	if !ok {
		return nil, false
	}
	return SizeChange{Old: c.Old, New: n.New, OldFont: c.OldFont, NewFont: n.NewFont}, true
}

func (SizeChange) label() string { return "resize" }

type Property string

const (
	Opacity  Property = "opacity"
	Rotation Property = "rotation"
	FontSize Property = "font-size"
)

// PropertyChange sets a scalar property.
type PropertyChange struct {
	Property Property
	Old, New float64
}

func (c PropertyChange) apply(o scene.Object, forward bool) error {
	v := c.Old
	if forward {
		v = c.New
	}
	switch c.Property {
	case Opacity:
		o.Base().Opacity = v
	case Rotation:
		o.Base().Rotation = v
	case FontSize:
		t, ok := o.(*scene.Text)
		if !ok {
			return fmt.Errorf("%s has no font size", o.Kind())
		}
		t.FontSize = v
	default:
		return fmt.Errorf("unknown property: %s", c.Property)
	}
	return nil
}

func (c PropertyChange) absorb(next Change) (Change, bool) {
	n, ok := next.(PropertyChange)
	if !ok || n.Property != c.Property {
		return nil, false
	}
	return PropertyChange{Property: c.Property, Old: c.Old, New: n.New}, true
}

func (c PropertyChange) label() string { return string(c.Property) }

// ModifyObject applies a Change to one object.
type ModifyObject struct {
	stamp
	obj    scene.Object
	change Change
}

func NewModifyObject(obj scene.Object, change Change, at time.Time) *ModifyObject {
	return &ModifyObject{stamp: stamp{change.label() + " " + string(obj.Kind()), at}, obj: obj, change: change}
}

func (c *ModifyObject) Change() Change { return c.change }

func (c *ModifyObject) Execute() error { return c.change.apply(c.obj, true) }
func (c *ModifyObject) Undo() error    { return c.change.apply(c.obj, false) }

// Merge absorbs next when it modifies the same object and property within ModifyMergeWindow.
// The first old value is kept so one undo returns to the state before the whole gesture.
func (c *ModifyObject) Merge(next Command) bool {
	n, ok := next.(*ModifyObject)
	if !ok || n.obj.Base().ID != c.obj.Base().ID {
		return false
	}
	if n.at.Sub(c.at) > ModifyMergeWindow || n.at.Before(c.at) {
		return false
	}
	merged, ok := c.change.absorb(n.change)
	if !ok {
		return false
	}
	c.change = merged
	c.at = n.at
	return true
}

// ChangeText edits a text object's content.
type ChangeText struct {
	stamp
	obj      *scene.Text
	Old, New string
}

func NewChangeText(obj *scene.Text, oldContent, newContent string, at time.Time) *ChangeText {
	return &ChangeText{stamp: stamp{"edit text", at}, obj: obj, Old: oldContent, New: newContent}
}

func (c *ChangeText) Execute() error { c.obj.Content = c.New; return nil }
func (c *ChangeText) Undo() error    { c.obj.Content = c.Old; return nil }

func (c *ChangeText) Merge(next Command) bool {
	n, ok := next.(*ChangeText)
	if !ok || n.obj != c.obj {
		return false
	}
	if n.at.Sub(c.at) > TextMergeWindow || n.at.Before(c.at) {
		return false
	}
	c.New = n.New
	c.at = n.at
	return true
}

// ReorderObject moves an object between layers.
type ReorderObject struct {
	stamp
	scene    *scene.Scene
	from, to int
}

func NewReorderObject(s *scene.Scene, from, to int, at time.Time) *ReorderObject {
	return &ReorderObject{stamp: stamp{"reorder", at}, scene: s, from: from, to: to}
}

func (c *ReorderObject) Execute() error {
	if !c.scene.MoveLayer(c.from, c.to) {
		return fmt.Errorf("layer %d -> %d out of range", c.from, c.to)
	}
	return nil
}

func (c *ReorderObject) Undo() error {
	if !c.scene.MoveLayer(c.to, c.from) {
		return fmt.Errorf("layer %d -> %d out of range", c.to, c.from)
	}
	return nil
}

// Composite groups commands into one entry. Execute runs them in order, Undo in reverse.
type Composite struct {
	stamp
	commands []Command
}

func NewComposite(name string, at time.Time, cmds ...Command) *Composite {
	return &Composite{stamp: stamp{name, at}, commands: cmds}
}

func (c *Composite) Len() int { return len(c.commands) }

func (c *Composite) Execute() error {
	for i, cmd := range c.commands {
		if err := cmd.Execute(); err != nil {
			for j := i - 1; j >= 0; j-- {
				c.commands[j].Undo()
			}
			return fmt.Errorf("%s: %w", cmd.Name(), err)
		}
	}
	return nil
}

func (c *Composite) Undo() error {
	for i := len(c.commands) - 1; i >= 0; i-- {
		if err := c.commands[i].Undo(); err != nil {
			for j := i + 1; j < len(c.commands); j++ {
				c.commands[j].Execute()
			}
			return fmt.Errorf("%s: %w", c.commands[i].Name(), err)
		}
	}
	return nil
}

// StateSnapshot swaps whole-scene snapshots. Build it after the edit has been applied.
type StateSnapshot struct {
	stamp
	scene         *scene.Scene
	before, after []scene.Object
}

func NewStateSnapshot(s *scene.Scene, name string, before []scene.Object, at time.Time) *StateSnapshot {
	return &StateSnapshot{stamp: stamp{name, at}, scene: s, before: before, after: s.Snapshot()}
}

func (c *StateSnapshot) Execute() error {
	c.scene.Restore(cloneAll(c.after))
	return nil
}

func (c *StateSnapshot) Undo() error {
	c.scene.Restore(cloneAll(c.before))
	return nil
}

func cloneAll(objs []scene.Object) []scene.Object {
	out := make([]scene.Object, len(objs))
	for i, o := range objs {
		out[i] = o.Clone()
	}
	return out
}
