// Package mmap provides read-only memory-mapped file access.
//
//	m, err := mmap.Open("index.zsp")
//	if err != nil { ... }
//	defer m.Close()
//
//	data := m.Bytes()
//
// Unix systems use mmap(2) with madvise(2) hints; Windows uses
// CreateFileMapping/MapViewOfFile and ignores hints. Close is idempotent.
// Callers must not use a slice returned by Bytes after Close.
package mmap
