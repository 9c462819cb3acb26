// Package queue models work items and the per-item state machine the
// workflow manager drives.
//
// An Item owns an ordered list of Steps fixed at construction, a cursor into
// that list, a ResultStore of stage-namespaced values, and a WorkingFiles
// registry of scratch paths. Transition methods (Start, BeginStep,
// ReportProgress, EndStep, FailStep, Complete, Fail) enforce the lifecycle:
// the cursor only moves forward, step progress only grows, and terminal items
// reject further changes. Accessors are safe to call from any goroutine while
// the worker mutates the item.
package queue
