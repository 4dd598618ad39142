// Package events provides the experiment activity events emitted by the
// service layer.
//
// Services publish an ExperimentEvent after every successful write without
// knowing who consumes it. The primary components are:
// - ExperimentEvent: one write against an experiment (created, published,
//   trial added, trials ignored)
// - EventHandler: Interface for components that can handle events
// - EventEmitter: Interface for components that can emit events
// - InMemoryEventEmitter: synchronous fan-out to registered handlers
// - LogHandler: writes every event to a structured audit log
package events
