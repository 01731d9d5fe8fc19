// Package events defines the planning events emitted on the event bus.
//
// Available event types:
//   - PlanCompleted: a planning run finished
//   - AnomalyDetected: a run skipped a task or crew it could not resolve
package events
