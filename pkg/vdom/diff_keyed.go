package vdom

// duplicateKeySuffix disambiguates repeated keys within one child list.
const duplicateKeySuffix = "\x1fdup"

// keyedDiff holds the state of one keyed child comparison.
type keyedDiff struct {
	local   []Patch
	changes map[string]*KeyedEntry
	inserts []KeyedInsert
	end     []KeyedInsert
}

// diffKeyedChildren compares keyed children with a two-pointer scan and a
// one-element lookahead on each side. Unmatched keys are recorded so that a
// removal and an insertion of the same key become a move.
func diffKeyedChildren(x, y *KeyedNode, patches *[]Patch, rootIndex int) {
	kd := &keyedDiff{changes: make(map[string]*KeyedEntry)}

	xKids, yKids := x.children, y.children
	xLen, yLen := len(xKids), len(yKids)
	xIndex, yIndex := 0, 0
	index := rootIndex

scan:
	for xIndex < xLen && yIndex < yLen {
		xk, yk := xKids[xIndex], yKids[yIndex]

		if xk.Key == yk.Key {
			index++
			diff(xk.Node, yk.Node, &kd.local, index)
			index += xk.Node.descendants()
			xIndex++
			yIndex++
			continue
		}

		var xNext, yNext *KeyedChild
		if xIndex+1 < xLen {
			xNext = &xKids[xIndex+1]
		}
		if yIndex+1 < yLen {
			yNext = &yKids[yIndex+1]
		}
		oldMatch := xNext != nil && yk.Key == xNext.Key
		newMatch := yNext != nil && xk.Key == yNext.Key

		switch {
		case newMatch && oldMatch:
			// swap: x pairs with the next new entry, y with the next old one
			index++
			diff(xk.Node, yNext.Node, &kd.local, index)
			kd.insert(yk.Key, yk.Node, yIndex)
			index += xk.Node.descendants()
			index++
			kd.remove(yk.Key, xNext.Node, index)
			index += xNext.Node.descendants()
			xIndex += 2
			yIndex += 2

		case newMatch:
			// y was inserted before x
			index++
			kd.insert(yk.Key, yk.Node, yIndex)
			diff(xk.Node, yNext.Node, &kd.local, index)
			index += xk.Node.descendants()
			xIndex++
			yIndex += 2

		case oldMatch:
			// x was removed before y
			index++
			kd.remove(xk.Key, xk.Node, index)
			index += xk.Node.descendants()
			index++
			diff(xNext.Node, yk.Node, &kd.local, index)
			index += xNext.Node.descendants()
			xIndex += 2
			yIndex++

		case xNext != nil && yNext != nil && xNext.Key == yNext.Key:
			// x replaced by y
			index++
			kd.remove(xk.Key, xk.Node, index)
			kd.insert(yk.Key, yk.Node, yIndex)
			index += xk.Node.descendants()
			index++
			diff(xNext.Node, yNext.Node, &kd.local, index)
			index += xNext.Node.descendants()
			xIndex += 2
			yIndex += 2

		default:
			break scan
		}
	}

	kd.drain(xKids[xIndex:], yKids[yIndex:], index)

	if len(kd.local) > 0 || len(kd.inserts) > 0 || len(kd.end) > 0 {
		pushPatch(patches, rootIndex, &KeyedReorder{
			Patches:    kd.local,
			Inserts:    kd.inserts,
			EndInserts: kd.end,
		})
	}
}

// drain removes the remaining old entries and appends the remaining new
// ones as end inserts.
func (kd *keyedDiff) drain(xRest, yRest []KeyedChild, index int) {
	for _, xk := range xRest {
		index++
		kd.remove(xk.Key, xk.Node, index)
		index += xk.Node.descendants()
	}
	for _, yk := range yRest {
		kd.insertAt(&kd.end, yk.Key, yk.Node, -1)
	}
}

func (kd *keyedDiff) insert(key string, node VNode, position int) {
	kd.insertAt(&kd.inserts, key, node, position)
}

// insertAt records a new entry, or completes a move when the key was
// removed earlier in the scan.
func (kd *keyedDiff) insertAt(list *[]KeyedInsert, key string, node VNode, position int) {
	entry, ok := kd.changes[key]
	if !ok {
		entry = &KeyedEntry{Key: key, State: EntryInserted, Node: node, index: position}
		*list = append(*list, KeyedInsert{Position: position, Entry: entry})
		kd.changes[key] = entry
		return
	}

	if entry.State == EntryRemoved {
		*list = append(*list, KeyedInsert{Position: position, Entry: entry})
		entry.State = EntryMoved
		var sub []Patch
		diff(entry.Node, node, &sub, entry.index)
		entry.index = position
		entry.remove.Patches = sub
		return
	}

	kd.insertAt(list, key+duplicateKeySuffix, node, position)
}

// remove records a removal at index, or completes a move when the key was
// inserted earlier in the scan.
func (kd *keyedDiff) remove(key string, node VNode, index int) {
	entry, ok := kd.changes[key]
	if !ok {
		op := &KeyedRemove{}
		entry = &KeyedEntry{Key: key, State: EntryRemoved, Node: node, index: index, remove: op}
		op.Entry = entry
		pushPatch(&kd.local, index, op)
		kd.changes[key] = entry
		return
	}

	if entry.State == EntryInserted {
		entry.State = EntryMoved
		var sub []Patch
		diff(node, entry.Node, &sub, index)
		op := &KeyedRemove{Entry: entry, Patches: sub}
		entry.remove = op
		pushPatch(&kd.local, index, op)
		return
	}

	kd.remove(key+duplicateKeySuffix, node, index)
}
