package engine

import "github.com/google/uuid"

// KeyGenerator mints commit IDs and the keys of objects whose model has no
// primary key. Implementations must be safe for concurrent use.
type KeyGenerator interface {
	Generate() string
}

// UUIDv7Generator mints UUIDv7 strings. Their leading timestamp bits make
// later keys sort after earlier ones, so PK-less rows list in roughly the
// order they were created.
type UUIDv7Generator struct{}

// Generate panics only if the system random source fails.
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}
