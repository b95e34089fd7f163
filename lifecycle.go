package injector

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"golang.org/x/sync/errgroup"
)

// resources returns every resource reachable from roots, in discovery order.
func resources(roots []Provider) []*Resource {
	var out []*Resource
	for _, p := range Traverse(roots, KindResource) {
		if r, ok := p.(*Resource); ok {
			out = append(out, r)
		}
	}
	return out
}

// resourceDeps returns the resources r depends on directly: those reachable
// from its arguments and overrides without passing through another resource.
func resourceDeps(r *Resource) []*Resource {
	visited := map[Provider]bool{r: true}
	var out []*Resource
	var visit func(p Provider)
	visit = func(p Provider) {
		if visited[p] {
			if p == Provider(r) {
				out = append(out, r)
			}
			return
		}
		visited[p] = true
		if dep, ok := p.(*Resource); ok {
			out = append(out, dep)
			return
		}
		for _, rel := range p.Related() {
			visit(rel)
		}
	}
	for _, rel := range r.Related() {
		visit(rel)
	}
	return out
}

// initLayers orders resources so dependencies come first. Each layer only
// depends on earlier layers; within a layer discovery order is kept.
func initLayers(all []*Resource) ([][]*Resource, error) {
	index := make(map[*Resource]int, len(all))
	for i, r := range all {
		index[r] = i
	}
	pending := make([]int, len(all))
	dependents := make([][]int, len(all))
	for i, r := range all {
		for _, d := range resourceDeps(r) {
			j, ok := index[d]
			if !ok {
				continue
			}
			pending[i]++
			dependents[j] = append(dependents[j], i)
		}
	}

	var layers [][]*Resource
	var ready []int
	for i := range all {
		if pending[i] == 0 {
			ready = append(ready, i)
		}
	}
	done := 0
	for len(ready) > 0 {
		slices.Sort(ready)
		layer := make([]*Resource, len(ready))
		var next []int
		for k, i := range ready {
			layer[k] = all[i]
			for _, j := range dependents[i] {
				if pending[j]--; pending[j] == 0 {
					next = append(next, j)
				}
			}
		}
		layers = append(layers, layer)
		done += len(ready)
		ready = next
	}
	if done < len(all) {
		var names []string
		for i, r := range all {
			if pending[i] > 0 {
				names = append(names, FullName(r))
			}
		}
		return nil, fmt.Errorf("%w among resources: %v", ErrCircularDependency, names)
	}
	return layers, nil
}

// InitResources initializes every resource reachable from the container's
// providers, dependencies first. Async resources of the same layer start
// concurrently. The first failure stops the remaining work; resources
// already initialized stay initialized.
func (c *Container) InitResources(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	layers, err := initLayers(resources(c.Providers()))
	if err != nil {
		return err
	}
	for _, layer := range layers {
		g, gctx := errgroup.WithContext(ctx)
		var syncErr error
		for _, r := range layer {
			if r.Async() {
				r := r
				g.Go(func() error { return c.initResource(gctx, r) })
				continue
			}
			if err := c.initResource(ctx, r); err != nil {
				syncErr = err
				break
			}
		}
		if err := errors.Join(syncErr, g.Wait()); err != nil {
			return err
		}
	}
	return nil
}

func (c *Container) initResource(ctx context.Context, r *Resource) error {
	if r.Initialized() {
		return nil
	}
	_, err := r.Init(ctx)
	data := ResourceEventData{Resource: FullName(r), Async: r.Async()}
	if err != nil {
		c.logger.Error("Resource initialization failed", "resource", data.Resource, "error", err)
		data.Error = err.Error()
		c.emit(ctx, EventTypeResourceFailed, data)
		return err
	}
	if !r.Initialized() {
		c.logger.Debug("Resource overridden, initialization skipped", "resource", data.Resource)
		return nil
	}
	c.logger.Debug("Resource initialized", "resource", data.Resource)
	c.emit(ctx, EventTypeResourceInitialized, data)
	return nil
}

// ShutdownResources shuts down the initialized resources reachable from the
// container's providers. The order is derived from the current wiring: a
// resource is shut down only once no other initialized resource depends on
// it, most recently initialized first. When no such resource exists the
// graph has a cycle and ShutdownResources returns a *ResourceCycleError
// without shutting anything else down. Teardown errors do not stop the
// shutdown; they are joined into the result.
func (c *Container) ShutdownResources(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	all := resources(c.Providers())
	var errs []error
	for {
		var active []*Resource
		for _, r := range all {
			if r.Initialized() {
				active = append(active, r)
			}
		}
		if len(active) == 0 {
			return errors.Join(errs...)
		}

		inUse := make(map[*Resource]bool, len(active))
		for _, r := range active {
			for _, d := range resourceDeps(r) {
				if d.Initialized() {
					inUse[d] = true
				}
			}
		}
		var batch []*Resource
		for _, r := range active {
			if !inUse[r] {
				batch = append(batch, r)
			}
		}
		if len(batch) == 0 {
			names := make([]string, len(active))
			for i, r := range active {
				names[i] = FullName(r)
			}
			cycleErr := &ResourceCycleError{Remaining: names}
			c.logger.Error("Resource shutdown order cannot be determined", "resources", names)
			return errors.Join(append(errs, cycleErr)...)
		}

		slices.SortStableFunc(batch, func(a, b *Resource) int {
			sa, sb := a.sequence(), b.sequence()
			switch {
			case sa > sb:
				return -1
			case sa < sb:
				return 1
			}
			return 0
		})
		for _, r := range batch {
			name := FullName(r)
			if err := r.Shutdown(ctx); err != nil {
				c.logger.Error("Resource shutdown failed", "resource", name, "error", err)
				errs = append(errs, err)
				c.emit(ctx, EventTypeResourceFailed, ResourceEventData{Resource: name, Async: r.Async(), Error: err.Error()})
				continue
			}
			c.logger.Debug("Resource shut down", "resource", name)
			c.emit(ctx, EventTypeResourceShutdown, ResourceEventData{Resource: name, Async: r.Async()})
		}
	}
}
