// Package block implements the on-disk block codec shared by the disk
// index (robt): leaf (Z) blocks holding entries, intermediate (M) blocks
// routing to deeper blocks, and value-log records for payloads that spill
// out of a block.
//
// Every block shares an outer shape: a num_entries header followed by an
// offset table, then the entries themselves placed contiguously after the
// table. Every block is padded to an exact, caller-specified size so file
// offsets stay block-aligned.
package block
