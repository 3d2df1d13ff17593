package library

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

const defaultMaxBooks = 10000

var (
	// ErrDuplicateISBN is returned by Add when a book with the same
	// normalized ISBN is already in the collection.
	ErrDuplicateISBN = errors.New("book with this ISBN already exists")
	// ErrNotFound is returned by ISBN-keyed operations when no book
	// carries the given ISBN.
	ErrNotFound = errors.New("book not found")
	// ErrIndexOutOfRange is returned by BookByIndex for positions outside
	// the collection.
	ErrIndexOutOfRange = errors.New("index out of range")
	// ErrCapacityExceeded is returned by Add once the collection holds the
	// configured maximum number of books.
	ErrCapacityExceeded = errors.New("library capacity exceeded")
)

// PersistenceError reports a failed durable write. The in-memory change it
// follows has already been applied and is not rolled back; the caller is
// expected to surface that the save may not have succeeded.
type PersistenceError struct {
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("saving the library failed: %v", e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// Store owns the canonical in-memory book collection and is the sole
// writer of its durable copy. Every record in the collection has passed
// ValidateBook. All access is serialized behind one RWMutex: mutations
// hold the write lock across their read-modify-write-persist sequence, so
// two concurrent adds can never interleave their file phases.
type Store struct {
	mu       sync.RWMutex
	books    []Book
	byISBN   map[string]int
	storage  Storage
	cache    *queryCache
	maxBooks int
	logger   *slog.Logger
	now      func() time.Time
}

// StoreOption configures a Store before it loads its collection.
type StoreOption func(*Store)

// WithMaxBooks caps the collection size. Adding beyond the cap fails with
// ErrCapacityExceeded; updates to existing books are never blocked by it.
func WithMaxBooks(n int) StoreOption {
	return func(s *Store) {
		if n > 0 {
			s.maxBooks = n
		}
	}
}

// WithCache puts a query cache with the given TTL in front of ISBN
// lookups, searches, statistics and recommendations. A TTL of zero keeps
// entries until the next mutation.
func WithCache(ttl time.Duration) StoreOption {
	return func(s *Store) {
		s.cache = newQueryCache(ttl)
	}
}

// WithStoreLogger sets the logger used for load-time warnings and
// persistence failures.
func WithStoreLogger(logger *slog.Logger) StoreOption {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewStore loads the collection from storage. Persisted records are
// re-validated on the way in; a record that fails validation (or collides
// with an earlier ISBN) is dropped with a warning instead of aborting the
// whole load, so a partially damaged file degrades to fewer books.
func NewStore(storage Storage, options ...StoreOption) (*Store, error) {
	s := &Store{
		storage:  storage,
		byISBN:   make(map[string]int),
		maxBooks: defaultMaxBooks,
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range options {
		opt(s)
	}

	persisted, err := storage.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load library: %w", err)
	}

	s.books = make([]Book, 0, len(persisted))
	for _, book := range persisted {
		validated, err := ValidateBook(book)
		if err != nil {
			s.logger.Warn("dropping invalid book record",
				"title", book.Title, "isbn", book.ISBN, "error", err)
			continue
		}
		if _, ok := s.byISBN[validated.ISBN]; ok {
			s.logger.Warn("dropping duplicate book record", "isbn", validated.ISBN)
			continue
		}
		s.byISBN[validated.ISBN] = len(s.books)
		s.books = append(s.books, validated)
	}

	return s, nil
}

// Count returns the current collection size. It is computed directly and
// never served from the cache.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.books)
}

// MaxBooks returns the capacity limit the store enforces on Add.
func (s *Store) MaxBooks() int {
	return s.maxBooks
}

// Add validates the book and appends it to the collection. It fails with
// ErrDuplicateISBN when the normalized ISBN is already present and with
// ErrCapacityExceeded when the collection is full. The stored copy, with
// its added date stamped, is returned.
func (s *Store) Add(book Book) (Book, error) {
	validated, err := ValidateBook(book)
	if err != nil {
		return Book{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byISBN[validated.ISBN]; ok {
		return Book{}, fmt.Errorf("isbn %s: %w", validated.ISBN, ErrDuplicateISBN)
	}
	if len(s.books) >= s.maxBooks {
		return Book{}, fmt.Errorf("cannot store more than %d books: %w", s.maxBooks, ErrCapacityExceeded)
	}

	validated.AddedDate = s.now().UTC().Format(time.RFC3339)
	s.byISBN[validated.ISBN] = len(s.books)
	s.books = append(s.books, validated)

	err = s.persistLocked()
	s.invalidateCache()

	return validated.clone(), err
}

// Remove deletes the book with the given ISBN, preserving the order of the
// remaining records. It fails with ErrNotFound when no book matches.
func (s *Store) Remove(isbn string) (Book, error) {
	normalized, err := NormalizeISBN(isbn)
	if err != nil {
		return Book{}, fmt.Errorf("isbn %q: %w", isbn, ErrNotFound)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.byISBN[normalized]
	if !ok {
		return Book{}, fmt.Errorf("isbn %s: %w", normalized, ErrNotFound)
	}

	removed := s.books[i]
	s.books = append(s.books[:i], s.books[i+1:]...)
	delete(s.byISBN, normalized)
	for j := i; j < len(s.books); j++ {
		s.byISBN[s.books[j].ISBN] = j
	}

	err = s.persistLocked()
	s.invalidateCache()

	return removed.clone(), err
}

// Update applies a partial patch to the book with the given ISBN: only
// non-nil patch fields are touched, and the patched record is re-validated
// as a whole before it replaces the original. The ISBN itself is immutable
// through this path.
func (s *Store) Update(isbn string, patch UpdateBook) (Book, error) {
	normalized, err := NormalizeISBN(isbn)
	if err != nil {
		return Book{}, fmt.Errorf("isbn %q: %w", isbn, ErrNotFound)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.byISBN[normalized]
	if !ok {
		return Book{}, fmt.Errorf("isbn %s: %w", normalized, ErrNotFound)
	}

	updated, err := ValidateBook(applyPatch(s.books[i], patch))
	if err != nil {
		return Book{}, err
	}
	s.books[i] = updated

	err = s.persistLocked()
	s.invalidateCache()

	return updated.clone(), err
}

// BookByIndex returns a copy of the record at position i in insertion
// order. It fails with ErrIndexOutOfRange outside [0, Count()).
func (s *Store) BookByIndex(i int) (Book, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if i < 0 || i >= len(s.books) {
		return Book{}, fmt.Errorf("index %d: %w", i, ErrIndexOutOfRange)
	}

	return s.books[i].clone(), nil
}

// BookByISBN returns a copy of the record with the given ISBN, served
// through the query cache when one is configured. It fails with
// ErrNotFound when no book matches.
func (s *Store) BookByISBN(isbn string) (Book, error) {
	normalized, err := NormalizeISBN(isbn)
	if err != nil {
		return Book{}, fmt.Errorf("isbn %q: %w", isbn, ErrNotFound)
	}

	cacheKey := "isbn:" + normalized
	if s.cache != nil {
		if v, ok := s.cache.get(cacheKey); ok {
			return v.(Book).clone(), nil
		}
	}

	s.mu.RLock()
	i, ok := s.byISBN[normalized]
	var book Book
	if ok {
		book = s.books[i].clone()
	}
	s.mu.RUnlock()

	if !ok {
		return Book{}, fmt.Errorf("isbn %s: %w", normalized, ErrNotFound)
	}

	if s.cache != nil {
		s.cache.set(cacheKey, book)
	}

	return book.clone(), nil
}

// All returns a copy of the whole collection in insertion order.
func (s *Store) All() []Book {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return cloneBooks(s.books)
}

func (s *Store) persistLocked() error {
	if err := s.storage.Save(s.books); err != nil {
		s.logger.Error("failed to persist library", "error", err)
		return &PersistenceError{Err: err}
	}
	return nil
}

func (s *Store) invalidateCache() {
	if s.cache != nil {
		s.cache.invalidateAll()
	}
}

func cloneBooks(books []Book) []Book {
	out := make([]Book, 0, len(books))
	for _, b := range books {
		out = append(out, b.clone())
	}
	return out
}
