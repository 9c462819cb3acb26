// Package workflow advances work items through their pipeline stages.
//
// The Manager owns a FIFO of submitted items and a single worker goroutine.
// The worker takes the oldest pending item, runs each of its stage handlers
// in order, and records progress on the item. Every lifecycle change is
// delivered synchronously, on the worker goroutine, to the registered
// listeners: OnEntryBegin, then per step OnEntryStepBegin, any number of
// non-decreasing OnEntryStepProgress calls and one OnEntryStepEnd, then
// OnEntryEnd. Items never interleave.
//
// Queue progress is (finished + active item progress) / total, where an item's
// progress is (cursor + current step progress) / steps. A failing stage fails
// its item and the worker moves on; a cancelled item has its context
// cancelled, which kills any external process the stage is running.
package workflow
