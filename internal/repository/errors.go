package repository

import "errors"

// ErrNotFound is returned when a requested record is not found in the repository.
// This abstracts away the underlying storage implementation (SQL, NoSQL, etc.)
// from the service layer.
var ErrNotFound = errors.New("record not found")

// ErrCorruptState is returned when a stored state fails its ledger invariants
var ErrCorruptState = errors.New("stored lottery state is inconsistent")
