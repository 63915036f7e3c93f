package vdom

// PatchOp is the discriminator of a patch operation.
type PatchOp uint8

const (
	OpRedraw PatchOp = iota + 1
	OpRedrawNested
	OpRemapTagger
	OpUpdateText
	OpUpdateFacts
	OpCallCustomDiff
	OpAppendChildren
	OpRemoveChildren
	OpKeyedReorder
	OpKeyedRemove
)

// String returns the string representation of the PatchOp.
func (op PatchOp) String() string {
	switch op {
	case OpRedraw:
		return "Redraw"
	case OpRedrawNested:
		return "RedrawNested"
	case OpRemapTagger:
		return "RemapTagger"
	case OpUpdateText:
		return "UpdateText"
	case OpUpdateFacts:
		return "UpdateFacts"
	case OpCallCustomDiff:
		return "CallCustomDiff"
	case OpAppendChildren:
		return "AppendChildren"
	case OpRemoveChildren:
		return "RemoveChildren"
	case OpKeyedReorder:
		return "KeyedReorder"
	case OpKeyedRemove:
		return "KeyedRemove"
	default:
		return "Unknown"
	}
}

// Patch transforms one live node from its old shape toward its new shape.
// Index is the pre-order position of the target in the old tree: the root is
// 0 and every node occupies 1 + its descendant count positions.
type Patch struct {
	Index int
	Op    Op
}

// Op is the payload of a patch. The set of implementations is closed.
type Op interface {
	Code() PatchOp
	isOp()
}

// Redraw replaces the target with a freshly rendered node.
type Redraw struct {
	Node VNode
}

// RedrawNested applies patches to the forced child of a Lazy node.
// The nested indices start at 0 at that child.
type RedrawNested struct {
	Patches []Patch
}

// RemapTagger swaps the tagger chain of a Tagged node.
type RemapTagger struct {
	Taggers []*Tagger
}

// UpdateText replaces the content of a text node.
type UpdateText struct {
	Text string
}

// UpdateFacts re-applies changed facts.
type UpdateFacts struct {
	Diff FactsDiff
}

// CallCustomDiff runs a custom node's own patch.
type CallCustomDiff struct {
	Patch CustomPatch
}

// AppendChildren renders Children and appends them after position From.
type AppendChildren struct {
	From     int
	Children []VNode
}

// RemoveChildren removes Count children starting at From.
type RemoveChildren struct {
	From  int
	Count int
}

// KeyedReorder rearranges keyed children. Patches holds diffs of matched
// pairs and KeyedRemove entries; Inserts are placed at their new positions
// after all removals; EndInserts are appended last.
type KeyedReorder struct {
	Patches    []Patch
	Inserts    []KeyedInsert
	EndInserts []KeyedInsert
}

// KeyedRemove removes a keyed child. When its entry is Moved, the live node
// is detached, patched with Patches and reused by the matching insert.
// It only appears inside KeyedReorder.Patches.
type KeyedRemove struct {
	Entry   *KeyedEntry
	Patches []Patch
}

// KeyedInsert places an entry at Position in the new child list.
// Position is -1 for end inserts.
type KeyedInsert struct {
	Position int
	Entry    *KeyedEntry
}

// EntryState tracks a key through one keyed diff.
type EntryState uint8

const (
	EntryInserted EntryState = iota
	EntryRemoved
	EntryMoved
)

// KeyedEntry correlates removals and inserts of the same key.
type KeyedEntry struct {
	Key   string
	State EntryState
	// Node is the new node for inserts and the old node for removals.
	Node VNode

	// index is the old-tree index while Removed, the new position otherwise.
	index  int
	remove *KeyedRemove
}

func (*Redraw) Code() PatchOp         { return OpRedraw }
func (*RedrawNested) Code() PatchOp   { return OpRedrawNested }
func (*RemapTagger) Code() PatchOp    { return OpRemapTagger }
func (*UpdateText) Code() PatchOp     { return OpUpdateText }
func (*UpdateFacts) Code() PatchOp    { return OpUpdateFacts }
func (*CallCustomDiff) Code() PatchOp { return OpCallCustomDiff }
func (*AppendChildren) Code() PatchOp { return OpAppendChildren }
func (*RemoveChildren) Code() PatchOp { return OpRemoveChildren }
func (*KeyedReorder) Code() PatchOp   { return OpKeyedReorder }
func (*KeyedRemove) Code() PatchOp    { return OpKeyedRemove }

func (*Redraw) isOp()         {}
func (*RedrawNested) isOp()   {}
func (*RemapTagger) isOp()    {}
func (*UpdateText) isOp()     {}
func (*UpdateFacts) isOp()    {}
func (*CallCustomDiff) isOp() {}
func (*AppendChildren) isOp() {}
func (*RemoveChildren) isOp() {}
func (*KeyedReorder) isOp()   {}
func (*KeyedRemove) isOp()    {}

// Change is a single fact update. Removed keys carry the category's
// clearing value.
type Change[T any] struct {
	Value  T
	Remove bool
}

// FactsDiff holds the changed keys of each fact category.
type FactsDiff struct {
	Styles       map[string]Change[string]
	Events       map[string]Change[Handler]
	Attributes   map[string]Change[string]
	AttributesNS map[string]Change[NSAttr]
	Properties   map[string]Change[any]
}

// IsEmpty returns true if nothing changed.
func (d FactsDiff) IsEmpty() bool {
	return len(d.Styles) == 0 && len(d.Events) == 0 && len(d.Attributes) == 0 &&
		len(d.AttributesNS) == 0 && len(d.Properties) == 0
}
