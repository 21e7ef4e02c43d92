package ir

// StoredObject is the persisted image of one row: its identity and the
// values of every tracked property.
type StoredObject struct {
	Type   string
	Key    Value
	Values map[string]Value
}

// CommitRecord is what a committed write transaction hands to durable
// storage.
type CommitRecord struct {
	ID      string // UUIDv7, unique per commit
	Seq     int64  // logical clock, strictly increasing per store
	Objects []StoredObject
}
