// Package mmap maps store chunk files read-only into memory.
//
// Random-access readers decode symbols straight out of a Region, so looking
// up one sequence only faults in the pages that hold it.
//
//	r, err := mmap.Map("reads/data-000000.bin")
//	if err != nil { ... }
//	defer r.Close()
//	_ = r.Advise(mmap.Random)
//
// A Region is safe for concurrent reads. Close may be called more than once.
package mmap
