package protocol

import (
	"errors"
	"fmt"

	"github.com/vango-dev/vdiff/pkg/vdom"
)

// Codec errors.
var (
	ErrUnknownOp    = errors.New("protocol: unknown patch op")
	ErrUnknownKind  = errors.New("protocol: unknown node kind")
	ErrInvalidEntry = errors.New("protocol: invalid keyed entry")
	ErrNotEncodable = errors.New("protocol: value is not encodable")
)

// PatchesFrame is one batch of patches produced by a render cycle.
type PatchesFrame struct {
	Seq     uint64
	Patches []vdom.Patch
}

// EncodePatches encodes a batch. Keyed entries shared between removals and
// inserts are written once and referenced by id.
//
// Payload format:
//
//	[Seq: varint][Count: varint][Patch...]
//	Patch: [Index: varint][Op: byte][op-specific data]
func EncodePatches(pf *PatchesFrame, opts ...EncodeOption) ([]byte, error) {
	w := newWriter(opts)
	w.e.WriteUvarint(pf.Seq)
	if err := w.writePatches(pf.Patches); err != nil {
		return nil, err
	}
	return w.e.Bytes(), nil
}

// EncodePatchesFrame encodes a batch wrapped in a FramePatches frame.
func EncodePatchesFrame(pf *PatchesFrame, opts ...EncodeOption) (*Frame, error) {
	payload, err := EncodePatches(pf, opts...)
	if err != nil {
		return nil, err
	}
	return NewFrame(FramePatches, payload), nil
}

// DecodePatches decodes a payload written by EncodePatches.
func DecodePatches(data []byte) (*PatchesFrame, error) {
	r := newReader(data)
	seq, err := r.d.ReadUvarint()
	if err != nil {
		return nil, err
	}
	patches, err := r.readPatches()
	if err != nil {
		return nil, err
	}
	if err := r.finish(); err != nil {
		return nil, err
	}
	return &PatchesFrame{Seq: seq, Patches: patches}, nil
}

func (w *writer) writePatches(patches []vdom.Patch) error {
	w.e.WriteLen(len(patches))
	for i := range patches {
		p := &patches[i]
		w.e.WriteLen(p.Index)
		if err := w.writeOp(p.Op); err != nil {
			return fmt.Errorf("patch %d at index %d: %w", i, p.Index, err)
		}
	}
	return nil
}

func (w *writer) writeOp(op vdom.Op) error {
	if op == nil {
		return fmt.Errorf("%w: nil", ErrUnknownOp)
	}
	w.e.WriteByte(byte(op.Code()))

	switch op := op.(type) {
	case *vdom.Redraw:
		return w.writeNode(op.Node)

	case *vdom.RedrawNested:
		return w.writePatches(op.Patches)

	case *vdom.RemapTagger:
		w.e.WriteLen(len(op.Taggers))

	case *vdom.UpdateText:
		w.e.WriteString(op.Text)

	case *vdom.UpdateFacts:
		return w.writeFactsDiff(op.Diff)

	case *vdom.CallCustomDiff:
		return fmt.Errorf("%w: custom patch", ErrNotEncodable)

	case *vdom.AppendChildren:
		w.e.WriteLen(op.From)
		w.e.WriteLen(len(op.Children))
		for _, kid := range op.Children {
			if err := w.writeNode(kid); err != nil {
				return err
			}
		}

	case *vdom.RemoveChildren:
		w.e.WriteLen(op.From)
		w.e.WriteLen(op.Count)

	case *vdom.KeyedReorder:
		if err := w.writePatches(op.Patches); err != nil {
			return err
		}
		w.e.WriteLen(len(op.Inserts))
		for _, ins := range op.Inserts {
			w.e.WriteLen(ins.Position)
			if err := w.writeEntry(ins.Entry); err != nil {
				return err
			}
		}
		w.e.WriteLen(len(op.EndInserts))
		for _, ins := range op.EndInserts {
			if err := w.writeEntry(ins.Entry); err != nil {
				return err
			}
		}

	case *vdom.KeyedRemove:
		if err := w.writeEntry(op.Entry); err != nil {
			return err
		}
		return w.writePatches(op.Patches)

	default:
		return fmt.Errorf("%w: %T", ErrUnknownOp, op)
	}
	return nil
}

func (r *reader) readPatches() ([]vdom.Patch, error) {
	if err := r.patches.enter(); err != nil {
		return nil, err
	}
	defer r.patches.leave()

	count, err := r.d.ReadCollectionCount()
	if err != nil {
		return nil, err
	}
	patches := make([]vdom.Patch, count)
	for i := range patches {
		index, err := r.d.ReadLen()
		if err != nil {
			return nil, err
		}
		op, err := r.readOp()
		if err != nil {
			return nil, err
		}
		patches[i] = vdom.Patch{Index: index, Op: op}
	}
	return patches, nil
}

func (r *reader) readOp() (vdom.Op, error) {
	code, err := r.d.ReadByte()
	if err != nil {
		return nil, err
	}

	switch vdom.PatchOp(code) {
	case vdom.OpRedraw:
		v, err := r.readNode()
		if err != nil {
			return nil, err
		}
		return &vdom.Redraw{Node: v}, nil

	case vdom.OpRedrawNested:
		patches, err := r.readPatches()
		if err != nil {
			return nil, err
		}
		return &vdom.RedrawNested{Patches: patches}, nil

	case vdom.OpRemapTagger:
		n, err := r.d.ReadCollectionCount()
		if err != nil {
			return nil, err
		}
		taggers := make([]*vdom.Tagger, n)
		for i := range taggers {
			taggers[i] = identityTagger
		}
		return &vdom.RemapTagger{Taggers: taggers}, nil

	case vdom.OpUpdateText:
		s, err := r.d.ReadString()
		if err != nil {
			return nil, err
		}
		return &vdom.UpdateText{Text: s}, nil

	case vdom.OpUpdateFacts:
		diff, err := r.readFactsDiff()
		if err != nil {
			return nil, err
		}
		return &vdom.UpdateFacts{Diff: diff}, nil

	case vdom.OpAppendChildren:
		from, err := r.d.ReadLen()
		if err != nil {
			return nil, err
		}
		n, err := r.d.ReadCollectionCount()
		if err != nil {
			return nil, err
		}
		kids := make([]vdom.VNode, 0, n)
		for i := 0; i < n; i++ {
			kid, err := r.readNode()
			if err != nil {
				return nil, err
			}
			kids = append(kids, kid)
		}
		return &vdom.AppendChildren{From: from, Children: kids}, nil

	case vdom.OpRemoveChildren:
		from, err := r.d.ReadLen()
		if err != nil {
			return nil, err
		}
		count, err := r.d.ReadLen()
		if err != nil {
			return nil, err
		}
		return &vdom.RemoveChildren{From: from, Count: count}, nil

	case vdom.OpKeyedReorder:
		op := &vdom.KeyedReorder{}
		if op.Patches, err = r.readPatches(); err != nil {
			return nil, err
		}
		n, err := r.d.ReadCollectionCount()
		if err != nil {
			return nil, err
		}
		for i := 0; i < n; i++ {
			pos, err := r.d.ReadLen()
			if err != nil {
				return nil, err
			}
			entry, err := r.readEntry()
			if err != nil {
				return nil, err
			}
			op.Inserts = append(op.Inserts, vdom.KeyedInsert{Position: pos, Entry: entry})
		}
		if n, err = r.d.ReadCollectionCount(); err != nil {
			return nil, err
		}
		for i := 0; i < n; i++ {
			entry, err := r.readEntry()
			if err != nil {
				return nil, err
			}
			op.EndInserts = append(op.EndInserts, vdom.KeyedInsert{Position: -1, Entry: entry})
		}
		return op, nil

	case vdom.OpKeyedRemove:
		entry, err := r.readEntry()
		if err != nil {
			return nil, err
		}
		patches, err := r.readPatches()
		if err != nil {
			return nil, err
		}
		return &vdom.KeyedRemove{Entry: entry, Patches: patches}, nil

	default:
		return nil, fmt.Errorf("%w: 0x%02x", ErrUnknownOp, code)
	}
}

// writeEntry writes a reference to an entry already written, or a zero
// reference followed by its definition. Only inserted entries carry a node;
// the others are served by the live tree.
func (w *writer) writeEntry(entry *vdom.KeyedEntry) error {
	if id, ok := w.entries[entry]; ok {
		w.e.WriteLen(id + 1)
		return nil
	}
	w.entries[entry] = len(w.entries)
	w.e.WriteLen(0)
	w.e.WriteString(entry.Key)
	w.e.WriteByte(byte(entry.State))
	if entry.State == vdom.EntryInserted {
		return w.writeNode(entry.Node)
	}
	return nil
}

func (r *reader) readEntry() (*vdom.KeyedEntry, error) {
	ref, err := r.d.ReadLen()
	if err != nil {
		return nil, err
	}
	if ref > 0 {
		if ref > len(r.entries) {
			return nil, fmt.Errorf("%w: reference %d", ErrInvalidEntry, ref)
		}
		return r.entries[ref-1], nil
	}

	key, err := r.d.ReadString()
	if err != nil {
		return nil, err
	}
	state, err := r.d.ReadByte()
	if err != nil {
		return nil, err
	}
	entry := &vdom.KeyedEntry{Key: key, State: vdom.EntryState(state)}
	switch entry.State {
	case vdom.EntryInserted:
		if entry.Node, err = r.readNode(); err != nil {
			return nil, err
		}
	case vdom.EntryRemoved, vdom.EntryMoved:
	default:
		return nil, fmt.Errorf("%w: state %d", ErrInvalidEntry, state)
	}
	r.entries = append(r.entries, entry)
	return entry, nil
}

func (w *writer) writeFactsDiff(d vdom.FactsDiff) error {
	if len(d.Events) > 0 && !w.dropHandlers {
		return fmt.Errorf("%w: event handlers", ErrNotEncodable)
	}

	writeChanges(w, d.Styles)
	writeChanges(w, d.Attributes)

	w.e.WriteLen(len(d.AttributesNS))
	for _, k := range sortedKeys(d.AttributesNS) {
		c := d.AttributesNS[k]
		w.e.WriteString(k)
		w.e.WriteBool(c.Remove)
		w.e.WriteString(c.Value.Namespace)
		w.e.WriteString(c.Value.Value)
	}

	w.e.WriteLen(len(d.Properties))
	for _, k := range sortedKeys(d.Properties) {
		c := d.Properties[k]
		w.e.WriteString(k)
		w.e.WriteBool(c.Remove)
		if err := w.writeValue(c.Value); err != nil {
			return fmt.Errorf("property %q: %w", k, err)
		}
	}
	return nil
}

func writeChanges(w *writer, changes map[string]vdom.Change[string]) {
	w.e.WriteLen(len(changes))
	for _, k := range sortedKeys(changes) {
		c := changes[k]
		w.e.WriteString(k)
		w.e.WriteBool(c.Remove)
		w.e.WriteString(c.Value)
	}
}

func (r *reader) readFactsDiff() (vdom.FactsDiff, error) {
	var d vdom.FactsDiff
	var err error
	if d.Styles, err = r.readChanges(); err != nil {
		return d, err
	}
	if d.Attributes, err = r.readChanges(); err != nil {
		return d, err
	}

	n, err := r.d.ReadCollectionCount()
	if err != nil {
		return d, err
	}
	for i := 0; i < n; i++ {
		k, err := r.d.ReadString()
		if err != nil {
			return d, err
		}
		remove, err := r.d.ReadBool()
		if err != nil {
			return d, err
		}
		ns, err := r.d.ReadString()
		if err != nil {
			return d, err
		}
		v, err := r.d.ReadString()
		if err != nil {
			return d, err
		}
		if d.AttributesNS == nil {
			d.AttributesNS = make(map[string]vdom.Change[vdom.NSAttr])
		}
		d.AttributesNS[k] = vdom.Change[vdom.NSAttr]{Value: vdom.NSAttr{Namespace: ns, Value: v}, Remove: remove}
	}

	if n, err = r.d.ReadCollectionCount(); err != nil {
		return d, err
	}
	for i := 0; i < n; i++ {
		k, err := r.d.ReadString()
		if err != nil {
			return d, err
		}
		remove, err := r.d.ReadBool()
		if err != nil {
			return d, err
		}
		v, err := r.readValue()
		if err != nil {
			return d, err
		}
		if d.Properties == nil {
			d.Properties = make(map[string]vdom.Change[any])
		}
		d.Properties[k] = vdom.Change[any]{Value: v, Remove: remove}
	}
	return d, nil
}

func (r *reader) readChanges() (map[string]vdom.Change[string], error) {
	n, err := r.d.ReadCollectionCount()
	if err != nil || n == 0 {
		return nil, err
	}
	out := make(map[string]vdom.Change[string], n)
	for i := 0; i < n; i++ {
		k, err := r.d.ReadString()
		if err != nil {
			return nil, err
		}
		remove, err := r.d.ReadBool()
		if err != nil {
			return nil, err
		}
		v, err := r.d.ReadString()
		if err != nil {
			return nil, err
		}
		out[k] = vdom.Change[string]{Value: v, Remove: remove}
	}
	return out, nil
}
