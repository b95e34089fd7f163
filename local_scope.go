package injector

import (
	"bytes"
	"context"
	"runtime"
	"strconv"
)

type localScopeKey struct{}

type localScope struct {
	_ byte
}

// WithLocalScope returns a context carrying a fresh local scope.
// ThreadLocalSingleton providers resolved with the returned context (or any
// context derived from it) share one cached value per scope, no matter
// which goroutine resolves them. Use it to get request-scoped singletons:
//
//	ctx = injector.WithLocalScope(r.Context())
//	tx, err := c.Resolve(ctx, "transaction")
func WithLocalScope(ctx context.Context) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, localScopeKey{}, &localScope{})
}

// HasLocalScope reports whether ctx carries a local scope.
func HasLocalScope(ctx context.Context) bool {
	if ctx == nil {
		return false
	}
	_, ok := ctx.Value(localScopeKey{}).(*localScope)
	return ok
}

// localKey returns the cache key for the caller: the scope in ctx, or the
// identity of the calling goroutine.
func localKey(ctx context.Context) any {
	if ctx != nil {
		if s, ok := ctx.Value(localScopeKey{}).(*localScope); ok {
			return s
		}
	}
	return goroutineID(curGoroutineID())
}

type goroutineID uint64

var goroutinePrefix = []byte("goroutine ")

// curGoroutineID parses the id from the first line of the current stack,
// "goroutine 18 [running]:".
func curGoroutineID() uint64 {
	var buf [64]byte
	b := buf[:runtime.Stack(buf[:], false)]
	b = bytes.TrimPrefix(b, goroutinePrefix)
	if i := bytes.IndexByte(b, ' '); i > 0 {
		b = b[:i]
	}
	id, err := strconv.ParseUint(string(b), 10, 64)
	if err != nil {
		return 0
	}
	return id
}
