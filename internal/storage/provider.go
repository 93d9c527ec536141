// Package storage provides the file-system abstraction and the YAML
// session-document gateway built on it.
package storage

import "time"

// TrashDir receives deleted session documents.
const TrashDir = ".trash"

// FileInfo describes one stored document.
type FileInfo struct {
	Name      string
	Size      int64
	UpdatedAt time.Time
}

// Provider stores flat documents directly under a root directory.
// Names are base names; anything that would leave the root is rejected.
type Provider interface {
	// List returns the documents whose names end in ext. Hidden and
	// temporary files are skipped.
	List(ext string) ([]FileInfo, error)
	Read(name string) ([]byte, error)
	// Write replaces the document atomically.
	Write(name string, content []byte) error
	// Trash moves the document into TrashDir and returns its new name there.
	Trash(name string) (string, error)
}
