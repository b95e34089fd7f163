package injector

import (
	"errors"
	"fmt"
	"strings"
)

// Provider errors
var (
	// Override errors
	ErrNotAProvider        = errors.New("value is not a provider")
	ErrSelfOverride        = errors.New("provider cannot be overridden with itself")
	ErrNoOverridingToReset = errors.New("provider is not overridden")

	// Resolution errors
	ErrUndefinedDependency = errors.New("dependency is not defined")
	ErrDependencyType      = errors.New("dependency value has wrong type")
	ErrMissingOption       = errors.New("undefined configuration option")
	ErrNoSuchFactory       = errors.New("selector has no such factory")
	ErrNoSelector          = errors.New("aggregate requires a factory name")
	ErrSelfUnbound         = errors.New("self provider is not bound to a container")
	ErrCircularDependency  = errors.New("circular dependency detected")

	// Construction errors
	ErrInvalidCallable  = errors.New("provider target must be a function")
	ErrInvalidArguments = errors.New("arguments do not match provider target")
	ErrNotAContainer    = errors.New("value is not a container")

	// Copy errors
	ErrNonCopyableArgument = errors.New("argument cannot be copied")

	// Resource errors
	ErrResourceShutdownCycle = errors.New("unable to determine resource shutdown order")
	ErrResourceFailed        = errors.New("resource initialization failed")

	// Container errors
	ErrProviderNotFound  = errors.New("provider not found")
	ErrDuplicateProvider = errors.New("duplicate provider")

	// Event errors
	ErrInvalidEvent = errors.New("invalid container event")
)

// NonCopyableArgumentError reports the provider argument that stopped a
// graph copy. Index is -1 when the argument is a keyword argument.
type NonCopyableArgumentError struct {
	Provider string
	Index    int
	Keyword  string
	Value    any
}

func (e *NonCopyableArgumentError) Error() string {
	if e.Keyword != "" {
		return fmt.Sprintf("%s: provider %s, keyword %q (%T)", ErrNonCopyableArgument, e.Provider, e.Keyword, e.Value)
	}
	return fmt.Sprintf("%s: provider %s, argument %d (%T)", ErrNonCopyableArgument, e.Provider, e.Index, e.Value)
}

func (e *NonCopyableArgumentError) Unwrap() error {
	return ErrNonCopyableArgument
}

// ResourceCycleError lists the initialized resources whose shutdown order
// could not be derived.
type ResourceCycleError struct {
	Remaining []string
}

func (e *ResourceCycleError) Error() string {
	return fmt.Sprintf("%s, probably circular dependency among: %s",
		ErrResourceShutdownCycle, strings.Join(e.Remaining, ", "))
}

func (e *ResourceCycleError) Unwrap() error {
	return ErrResourceShutdownCycle
}
