package library

import (
	"encoding/json"
	"fmt"
	"os"
)

// Storage is the narrow seam between the store and its durable copy. Load
// returns the persisted collection in order; Save rewrites it wholesale.
type Storage interface {
	Load() ([]Book, error)
	Save(books []Book) error
}

// FileStorage keeps the collection in a single JSON document. Before every
// overwrite the current document is copied to a sibling backup file, so the
// pre-mutation snapshot survives a failed or interrupted write.
type FileStorage struct {
	path string
}

// NewFileStorage creates a file-backed storage at the given path. The file
// does not need to exist yet; the first Save creates it.
func NewFileStorage(path string) FileStorage {
	return FileStorage{path: path}
}

// BackupPath returns the location of the pre-mutation snapshot.
func (f FileStorage) BackupPath() string {
	return f.path + ".bak"
}

// Load reads the whole collection. A missing file is an empty collection,
// not an error.
func (f FileStorage) Load() ([]Book, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []Book{}, nil
		}
		return nil, fmt.Errorf("failed to read file %s: %w", f.path, err)
	}

	var books []Book
	if err := json.Unmarshal(data, &books); err != nil {
		return nil, fmt.Errorf("failed to unmarshal file %s: %w", f.path, err)
	}
	if books == nil {
		books = []Book{}
	}

	return books, nil
}

// Save copies the current document to the backup location, then serializes
// and writes the new collection. The backup step runs before anything
// touches the live file.
func (f FileStorage) Save(books []Book) error {
	if err := f.backup(); err != nil {
		return err
	}

	data, err := json.MarshalIndent(books, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to marshal books: %w", err)
	}

	if err := os.WriteFile(f.path, data, 0600); err != nil {
		return fmt.Errorf("failed to write file %s: %w", f.path, err)
	}

	return nil
}

func (f FileStorage) backup() error {
	data, err := os.ReadFile(f.path)
	if err != nil {
		// Nothing to back up before the first save.
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read file %s: %w", f.path, err)
	}

	if err := os.WriteFile(f.BackupPath(), data, 0600); err != nil {
		return fmt.Errorf("failed to write backup %s: %w", f.BackupPath(), err)
	}

	return nil
}
