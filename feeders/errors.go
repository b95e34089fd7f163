package feeders

import "errors"

// Feeder errors
var (
	ErrFeederRead     = errors.New("cannot read configuration source")
	ErrFeederParse    = errors.New("cannot parse configuration source")
	ErrFeederNotATree = errors.New("configuration source is not a key/value tree")
)

// Watcher errors
var (
	ErrWatcherNoTarget = errors.New("watcher needs a configuration")
	ErrWatcherNoFeeder = errors.New("watcher needs at least one feeder")
	ErrWatcherNoPath   = errors.New("watcher needs at least one path")
	ErrWatcherRunning  = errors.New("watcher is already running")
)
