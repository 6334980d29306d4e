package wirepatch

import "errors"

// ErrEmpty is returned by Negotiate when no version has been added to
// the store yet, so there is nothing to deliver.
var ErrEmpty = errors.New("version store is empty")
