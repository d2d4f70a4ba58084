package territories

import "errors"

// ErrCodeNotFound is returned by Child for a code that has no data
var ErrCodeNotFound = errors.New("code not found")
