package mapping

// View is a mutable nested key-value view over maps and lists. Reads go
// through the compiled json path of the key, writes create the intermediate
// maps and pad lists with nil.
type View struct {
	root map[string]any
}

func NewView(root map[string]any) *View {
	if root == nil {
		root = make(map[string]any)
	}
	return &View{root: root}
}

func (v *View) Map() map[string]any {
	return v.root
}

// Get returns the value at p. A nil value counts as absent.
func (v *View) Get(p Path) (any, bool) {
	if p.lookup == nil {
		return nil, false
	}
	value, err := p.lookup.Lookup(v.root)
	if err != nil || value == nil {
		return nil, false
	}
	return value, true
}

func (v *View) Exists(p Path) bool {
	_, ok := v.Get(p)
	return ok
}

func (v *View) Set(p Path, value any) {
	if p.IsZero() {
		return
	}
	cur := v.root
	last := len(p.segments) - 1
	for i, seg := range p.segments {
		if seg.index < 0 {
			if i == last {
				cur[seg.key] = value
				return
			}
			next, ok := cur[seg.key].(map[string]any)
			if !ok {
				next = make(map[string]any)
				cur[seg.key] = next
			}
			cur = next
			continue
		}
		list, _ := cur[seg.key].([]any)
		for len(list) <= seg.index {
			list = append(list, nil)
		}
		cur[seg.key] = list
		if i == last {
			list[seg.index] = value
			return
		}
		next, ok := list[seg.index].(map[string]any)
		if !ok {
			next = make(map[string]any)
			list[seg.index] = next
		}
		cur = next
	}
}

func (v *View) Remove(p Path) {
	if p.IsZero() {
		return
	}
	cur := v.root
	last := len(p.segments) - 1
	for i, seg := range p.segments {
		if seg.index < 0 {
			if i == last {
				delete(cur, seg.key)
				return
			}
			next, ok := cur[seg.key].(map[string]any)
			if !ok {
				return
			}
			cur = next
			continue
		}
		list, ok := cur[seg.key].([]any)
		if !ok || seg.index >= len(list) {
			return
		}
		if i == last {
			list[seg.index] = nil
			return
		}
		next, ok := list[seg.index].(map[string]any)
		if !ok {
			return
		}
		cur = next
	}
}

// Reload replaces the whole content of the view.
func (v *View) Reload(m map[string]any) {
	for k := range v.root {
		delete(v.root, k)
	}
	for k, val := range m {
		v.root[k] = val
	}
}
