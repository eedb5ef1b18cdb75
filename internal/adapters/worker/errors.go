package worker

import "errors"

// ErrTaskPanicked marks a task that panicked; the panic value is in the message.
var ErrTaskPanicked = errors.New("task panicked")
