package injector

import (
	"context"
	"fmt"
	"strings"
)

type resolvingKey struct{}

// resolving is the chain of caching providers being computed on the
// current call path.
type resolving struct {
	p    Provider
	prev *resolving
}

// enter records p on the resolution chain carried by ctx. It fails with
// ErrCircularDependency when p is already being computed on this path,
// which would otherwise recurse forever or deadlock on a held lock.
func enter(ctx context.Context, p Provider) (context.Context, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	chain, _ := ctx.Value(resolvingKey{}).(*resolving)
	for r := chain; r != nil; r = r.prev {
		if r.p == p {
			return ctx, fmt.Errorf("%w: %s", ErrCircularDependency, cyclePath(chain, p))
		}
	}
	return context.WithValue(ctx, resolvingKey{}, &resolving{p: p, prev: chain}), nil
}

func cyclePath(chain *resolving, p Provider) string {
	names := []string{FullName(p)}
	for r := chain; r != nil; r = r.prev {
		names = append(names, FullName(r.p))
		if r.p == p {
			break
		}
	}
	for i, j := 0, len(names)-1; i < j; i, j = i+1, j-1 {
		names[i], names[j] = names[j], names[i]
	}
	return strings.Join(names, " -> ")
}
