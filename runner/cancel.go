//
// Copyright (C) 2025 eflycode authors.  All rights reserved.
//
// eflycode is licensed under the Apache License Version 2.0.
//
//

package runner

import (
	"context"
	"sync/atomic"
)

// CancelToken is the one-bit cancellation flag for a single agent job. It is
// safe for concurrent use; firing it also cancels the job context.
type CancelToken struct {
	fired  atomic.Bool
	cancel context.CancelFunc
}

// NewCancelToken wraps a context cancel function.
func NewCancelToken(cancel context.CancelFunc) *CancelToken {
	return &CancelToken{cancel: cancel}
}

// Cancel fires the token. Later calls are no-ops.
func (t *CancelToken) Cancel() {
	if t.fired.CompareAndSwap(false, true) && t.cancel != nil {
		t.cancel()
	}
}

// Cancelled reports whether the token has fired.
func (t *CancelToken) Cancelled() bool {
	return t.fired.Load()
}
