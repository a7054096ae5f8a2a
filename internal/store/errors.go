package store

import "errors"

// ErrReadOnly is returned by write operations on a Tx obtained from View.
var ErrReadOnly = errors.New("read-only transaction")
