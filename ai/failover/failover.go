// Package failover rotates through an ordered pool of upstream credentials
// when the model call signals a transient rate-limit condition.
//
// Rotation is strictly sequential: a rate-limited credential is skipped
// forward and never retried earlier within the same pool pass. The
// process-wide active index is an atomic counter; each request reads it into
// a Cursor value and commits forward on success, so concurrent requests
// never roll the pool back to a credential that already failed.
package failover

import (
	"fmt"
	"sync/atomic"

	"github.com/pkg/errors"
)

// ExhaustedError signals that every credential in the pool has been
// rate-limited within one pass. It carries a sanitized wait hint and an
// opaque reference to the last credential tried, never the credential itself.
type ExhaustedError struct {
	// WaitHint is a human-readable retry estimate parsed from the upstream
	// error text, or a generic fallback.
	WaitHint string

	// CredentialRef is an opaque positional reference, e.g. "credential#2".
	CredentialRef string
}

func (e *ExhaustedError) Error() string {
	return "all model credentials rate limited, " + e.WaitHint
}

// Pool is a fixed, ordered set of credentials with a process-wide rotation
// cursor. The pool is loaded once at startup and never re-admits a failed
// credential within a process lifetime.
type Pool struct {
	credentials []string
	active      atomic.Int32
}

func NewPool(credentials []string) (*Pool, error) {
	if len(credentials) == 0 {
		return nil, errors.New("credential pool must not be empty")
	}
	pool := &Pool{credentials: make([]string, len(credentials))}
	copy(pool.credentials, credentials)
	return pool, nil
}

func (p *Pool) Size() int {
	return len(p.credentials)
}

// ActiveIndex returns the index of the credential currently in rotation.
func (p *Pool) ActiveIndex() int {
	return int(p.active.Load())
}

// Cursor snapshots the active index for one request.
func (p *Pool) Cursor() *Cursor {
	return &Cursor{pool: p, index: p.ActiveIndex()}
}

// commit advances the active index to at least index. Forward-only CAS: a
// concurrent request that already moved further wins.
func (p *Pool) commit(index int) {
	for {
		current := p.active.Load()
		if int32(index) <= current {
			return
		}
		if p.active.CompareAndSwap(current, int32(index)) {
			return
		}
	}
}

// Cursor is a per-request view of the rotation. It starts at the pool's
// active credential and only ever moves forward.
type Cursor struct {
	pool  *Pool
	index int
}

func (c *Cursor) Index() int {
	return c.index
}

func (c *Cursor) Credential() string {
	return c.pool.credentials[c.index]
}

// CredentialRef returns the opaque positional reference for external output.
func (c *Cursor) CredentialRef() string {
	return fmt.Sprintf("credential#%d", c.index)
}

// Next advances to the following credential. It reports false exactly when
// the pool is exhausted, i.e. index+1 >= pool size.
func (c *Cursor) Next() bool {
	if c.index+1 >= c.pool.Size() {
		return false
	}
	c.index++
	return true
}

// Commit records that the current credential served a successful call, so
// subsequent requests start from it.
func (c *Cursor) Commit() {
	c.pool.commit(c.index)
}

// Exhausted builds the terminal error for a fully rate-limited pool.
func (c *Cursor) Exhausted(waitHint string) *ExhaustedError {
	if waitHint == "" {
		waitHint = "try again later"
	}
	return &ExhaustedError{
		WaitHint:      waitHint,
		CredentialRef: c.CredentialRef(),
	}
}
