// Package stage defines the contract between the workflow manager and the
// pipeline stages, plus small helpers stages share: skip outcomes for missing
// working files, optional deadlines, and an observer that turns a pure line
// parser into progress reports.
package stage
