package queue

import "errors"

// ErrClosed is returned by Enqueue after Close has been called.
var ErrClosed = errors.New("queue: closed")
