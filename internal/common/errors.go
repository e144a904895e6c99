package common

import "errors"

// ErrNotFound is returned by repositories when a key or row does not exist.
var ErrNotFound = errors.New("not found")
