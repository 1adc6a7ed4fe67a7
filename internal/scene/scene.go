package scene

// Scene owns the ordered sequence of placed objects (index 0 is drawn first).
// It is mutated only from the interactive goroutine; other goroutines receive snapshots.
type Scene struct {
	objects []Object
}

// New creates an empty scene.
func New() *Scene {
	return &Scene{}
}

// Len returns the number of objects.
func (s *Scene) Len() int { return len(s.objects) }

// At returns the object at index i.
func (s *Scene) At(i int) Object { return s.objects[i] }

// Objects returns the objects in drawing order. The slice is a copy; the objects are live.
func (s *Scene) Objects() []Object {
	out := make([]Object, len(s.objects))
	copy(out, s.objects)
	return out
}

// Add appends an object on top and returns its index.
func (s *Scene) Add(o Object) int {
	s.objects = append(s.objects, o)
	return len(s.objects) - 1
}

// Insert places o at index i (clamped to [0, Len]).
func (s *Scene) Insert(i int, o Object) {
	if i < 0 {
		i = 0
	}
	if i > len(s.objects) {
		i = len(s.objects)
	}
	s.objects = append(s.objects, nil)
	copy(s.objects[i+1:], s.objects[i:])
	s.objects[i] = o
}

// IndexOf returns the index of the object with the given id, or -1.
func (s *Scene) IndexOf(id string) int {
	for i, o := range s.objects {
		if o.Base().ID == id {
			return i
		}
	}
	return -1
}

// Find returns the object with the given id.
func (s *Scene) Find(id string) (Object, bool) {
	if i := s.IndexOf(id); i >= 0 {
		return s.objects[i], true
	}
	return nil, false
}

// Remove deletes the object with the given id and returns its former index.
func (s *Scene) Remove(id string) (Object, int, bool) {
	i := s.IndexOf(id)
	if i < 0 {
		return nil, -1, false
	}
	o := s.objects[i]
	s.objects = append(s.objects[:i], s.objects[i+1:]...)
	return o, i, true
}

// MoveLayer moves the object at index from to index to. Out-of-range indices are rejected.
func (s *Scene) MoveLayer(from, to int) bool {
	n := len(s.objects)
	if from < 0 || from >= n || to < 0 || to >= n {
		return false
	}
	if from == to {
		return true
	}
	o := s.objects[from]
	s.objects = append(s.objects[:from], s.objects[from+1:]...)
	s.objects = append(s.objects, nil)
	copy(s.objects[to+1:], s.objects[to:])
	s.objects[to] = o
	return true
}

// Clear removes every object.
func (s *Scene) Clear() {
	s.objects = nil
}

// Background returns the first background object, if any.
func (s *Scene) Background() (*Background, bool) {
	for _, o := range s.objects {
		if b, ok := o.(*Background); ok {
			return b, true
		}
	}
	return nil, false
}

// Texts returns the text objects in drawing order.
func (s *Scene) Texts() []*Text {
	var out []*Text
	for _, o := range s.objects {
		if t, ok := o.(*Text); ok {
			out = append(out, t)
		}
	}
	return out
}

// Media returns image and video objects in drawing order.
func (s *Scene) Media() []Object {
	var out []Object
	for _, o := range s.objects {
		switch o.(type) {
		case *Image, *Video:
			out = append(out, o)
		}
	}
	return out
}

// Snapshot returns deep copies of all objects. Decoded pixel sources are shared, they are never mutated.
func (s *Scene) Snapshot() []Object {
	out := make([]Object, len(s.objects))
	for i, o := range s.objects {
		out[i] = o.Clone()
	}
	return out
}

// Restore replaces the scene content with snap. Objects whose id and variant match a live
// object are written back into that object so existing references stay valid.
func (s *Scene) Restore(snap []Object) {
	live := make(map[string]Object, len(s.objects))
	for _, o := range s.objects {
		live[o.Base().ID] = o
	}
	restored := make([]Object, 0, len(snap))
	for _, src := range snap {
		if dst, ok := live[src.Base().ID]; ok && assign(dst, src) {
			restored = append(restored, dst)
			continue
		}
		restored = append(restored, src.Clone())
	}
	s.objects = restored
}
