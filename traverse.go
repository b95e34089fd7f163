package injector

// Traverse walks the provider graph reachable from roots through Related,
// depth first, and returns every provider once, in visit order. Roots are
// included. When kinds are given only providers of those kinds are returned;
// the walk still passes through the others.
func Traverse(roots []Provider, kinds ...Kind) []Provider {
	visited := make(map[Provider]bool)
	var out []Provider
	var visit func(p Provider)
	visit = func(p Provider) {
		if p == nil || visited[p] {
			return
		}
		visited[p] = true
		if matchKind(p.Kind(), kinds) {
			out = append(out, p)
		}
		for _, r := range p.Related() {
			visit(r)
		}
	}
	for _, p := range roots {
		visit(p)
	}
	return out
}

func matchKind(k Kind, kinds []Kind) bool {
	if len(kinds) == 0 {
		return true
	}
	for _, want := range kinds {
		if k == want {
			return true
		}
	}
	return false
}
