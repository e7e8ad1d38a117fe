package capabilities

// Entry is one element of a capability request: a Descriptor, a Lazy
// descriptor, a Group of entries, or an already normalized Set.
type Entry interface {
	flatten(dst []Descriptor) []Descriptor
}

// Lazy produces a descriptor when the request is normalized. The factories
// without parameters (HRTime, FFI, All) can be used directly: Lazy(HRTime).
type Lazy func() Descriptor

// Group bundles entries so they can be passed around as one.
type Group []Entry

func (d Descriptor) flatten(dst []Descriptor) []Descriptor {
	if d.IsZero() {
		return dst
	}
	return append(dst, d)
}

func (l Lazy) flatten(dst []Descriptor) []Descriptor {
	if l == nil {
		return dst
	}
	return l().flatten(dst)
}

func (g Group) flatten(dst []Descriptor) []Descriptor {
	for _, e := range g {
		if e == nil {
			continue
		}
		dst = e.flatten(dst)
	}
	return dst
}

// Flatten resolves lazy entries and expands groups into an ordered list of
// descriptors. No merging happens.
func Flatten(entries ...Entry) []Descriptor {
	return Group(entries).flatten(nil)
}

// Set is a normalized collection holding at most one descriptor per kind,
// ordered by each kind's first appearance in the request.
type Set struct {
	items []Descriptor
}

// Normalize flattens the entries and merges descriptors of the same kind.
// If any descriptor of a kind is unrestricted the merged descriptor is
// unrestricted; otherwise parameters are concatenated in order with
// duplicates kept. An empty request yields an empty set.
func Normalize(entries ...Entry) Set {
	flat := Flatten(entries...)

	var order []Kind
	merged := make(map[Kind][]string)
	unrestricted := make(map[Kind]bool)

	for _, d := range flat {
		if _, seen := merged[d.kind]; !seen {
			order = append(order, d.kind)
			merged[d.kind] = []string{}
		}
		if unrestricted[d.kind] {
			continue
		}
		if d.Unrestricted() {
			unrestricted[d.kind] = true
			merged[d.kind] = nil
			continue
		}
		merged[d.kind] = append(merged[d.kind], d.params...)
	}

	items := make([]Descriptor, 0, len(order))
	for _, k := range order {
		items = append(items, newDescriptor(k, merged[k]))
	}
	return Set{items: items}
}

func (s Set) flatten(dst []Descriptor) []Descriptor {
	return append(dst, s.items...)
}

// Descriptors returns the set's descriptors in order.
func (s Set) Descriptors() []Descriptor {
	out := make([]Descriptor, len(s.items))
	copy(out, s.items)
	return out
}

// Entries returns the set's descriptors as request entries, suitable for
// feeding back into Normalize.
func (s Set) Entries() []Entry {
	out := make([]Entry, len(s.items))
	for i, d := range s.items {
		out[i] = d
	}
	return out
}

// Len returns the number of kinds in the set.
func (s Set) Len() int {
	return len(s.items)
}

// IsEmpty reports whether no capability was requested.
func (s Set) IsEmpty() bool {
	return len(s.items) == 0
}

// Get returns the descriptor for kind, if present.
func (s Set) Get(kind Kind) (Descriptor, bool) {
	for _, d := range s.items {
		if d.kind == kind {
			return d, true
		}
	}
	return Descriptor{}, false
}

// Contains reports whether the set holds a descriptor equal to d.
func (s Set) Contains(d Descriptor) bool {
	for _, existing := range s.items {
		if existing.Equals(d) {
			return true
		}
	}
	return false
}

// Flags renders one launch runner flag per descriptor, in set order.
func (s Set) Flags() []string {
	flags := make([]string, len(s.items))
	for i, d := range s.items {
		flags[i] = d.Flag()
	}
	return flags
}

// Broad returns the descriptors that IsBroad reports as overly permissive.
func (s Set) Broad() []Descriptor {
	var out []Descriptor
	for _, d := range s.items {
		if d.IsBroad() {
			out = append(out, d)
		}
	}
	return out
}

// Equals checks if two sets hold the same descriptors in the same order.
func (s Set) Equals(other Set) bool {
	if len(s.items) != len(other.items) {
		return false
	}
	for i := range s.items {
		if !s.items[i].Equals(other.items[i]) {
			return false
		}
	}
	return true
}
