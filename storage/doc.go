// Package storage implements a paged, append-only sample store.
//
// Samples are addressed by index. They are written into fixed-size blocks,
// blocks are grouped into slots, and sealed slots can be moved to a cache
// directory (one file per slot) to bound memory. Spilled slots are read
// back on demand through a small LRU of recently used slots.
//
//	layout.go     - block/slot geometry and index arithmetic
//	store.go      - construction and the append path
//	read.go       - point and range reads
//	flush.go      - spilling sealed slots
//	dispose.go    - teardown
//	cachedir.go   - slot files
//	recording.go  - timestamps plus value channels of one session
package storage
