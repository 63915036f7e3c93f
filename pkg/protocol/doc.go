// Package protocol implements the binary wire format for patch lists.
//
// A render cycle's patches are encoded into a PatchesFrame payload and
// wrapped in a Frame for transport or storage. The receiver must hold the
// same old tree the patches were computed against; decoded trees preserve
// Tagged and Lazy layers so they can serve as that old tree.
//
// # Wire Format
//
// Every frame has a 5-byte header:
//
//	┌─────────────┬───────────────────────────────┐
//	│ Frame Type  │ Payload Length                │
//	│ (1 byte)    │ (4 bytes, big-endian)         │
//	└─────────────┴───────────────────────────────┘
//
// # Encoding
//
//   - Varint: compact encoding for counts, indices and sequence numbers
//   - ZigZag: signed integer properties
//   - Length-prefixed: strings
//   - Sorted keys: fact maps encode deterministically
//
// Event handlers, Custom nodes and custom patches carry Go functions and are
// not encodable. DropHandlers skips handlers for receivers that only need
// the markup.
//
// # Limits
//
// Decoding enforces DefaultMaxAllocation for strings, MaxCollectionCount for
// collections and MaxVNodeDepth/MaxPatchDepth for nesting.
package protocol
