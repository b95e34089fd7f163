package injector

// Kind tags the resolution semantics of a provider.
type Kind string

const (
	KindObject               Kind = "object"
	KindCallable             Kind = "callable"
	KindFactory              Kind = "factory"
	KindSingleton            Kind = "singleton"
	KindThreadSafeSingleton  Kind = "thread_safe_singleton"
	KindThreadLocalSingleton Kind = "thread_local_singleton"
	KindResource             Kind = "resource"
	KindDependency           Kind = "dependency"
	KindConfiguration        Kind = "configuration"
	KindConfigurationOption  Kind = "configuration_option"
	KindSelector             Kind = "selector"
	KindAggregate            Kind = "aggregate"
	KindSelf                 Kind = "self"
	KindContainer            Kind = "container"
	KindDelegate             Kind = "delegate"
	KindList                 Kind = "list"
	KindMap                  Kind = "map"
)

// String returns the kind name.
func (k Kind) String() string {
	return string(k)
}

// IsSingleton reports whether the kind caches its value.
func (k Kind) IsSingleton() bool {
	switch k {
	case KindSingleton, KindThreadSafeSingleton, KindThreadLocalSingleton:
		return true
	default:
		return false
	}
}
