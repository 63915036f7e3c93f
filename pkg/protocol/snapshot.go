package protocol

import "github.com/vango-dev/vdiff/pkg/vdom"

// Snapshot is the state a peer needs before it can apply patch batches:
// the sequence number of the last cycle, its tree and that tree's HTML.
type Snapshot struct {
	Seq  uint64
	HTML string
	Tree vdom.VNode
}

// EncodeSnapshot encodes a snapshot.
//
// Payload format:
//
//	[Seq: varint][HTML: string][Tree: vnode]
func EncodeSnapshot(s *Snapshot, opts ...EncodeOption) ([]byte, error) {
	w := newWriter(opts)
	w.e.WriteUvarint(s.Seq)
	w.e.WriteString(s.HTML)
	if err := w.writeNode(s.Tree); err != nil {
		return nil, err
	}
	return w.e.Bytes(), nil
}

// DecodeSnapshot decodes a snapshot written by EncodeSnapshot.
func DecodeSnapshot(data []byte) (*Snapshot, error) {
	r := newReader(data)
	seq, err := r.d.ReadUvarint()
	if err != nil {
		return nil, err
	}
	html, err := r.d.ReadString()
	if err != nil {
		return nil, err
	}
	tree, err := r.readNode()
	if err != nil {
		return nil, err
	}
	if err := r.finish(); err != nil {
		return nil, err
	}
	return &Snapshot{Seq: seq, HTML: html, Tree: tree}, nil
}
