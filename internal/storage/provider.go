// Package storage defines the site repository file-system abstraction.
package storage

// Provider is the interface for site repository file operations. All paths
// are relative to the repository root.
type Provider interface {
	// ListMarkdown returns the names of the .md files directly inside dir.
	ListMarkdown(dir string) ([]string, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically writes content to path, creating parent directories.
	Write(path string, content []byte) error
	// Delete removes the file at path.
	Delete(path string) error
	// Abs resolves path against the root, rejecting escapes.
	Abs(path string) (string, error)
}
