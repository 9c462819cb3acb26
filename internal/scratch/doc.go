// Package scratch inspects and sweeps the shared scratch directory.
//
// Every item keeps its working files flat in the scratch directory as
// <item-id>.<name>.<ext>. A run that finishes removes its own files; List and
// CleanStale deal with what a crashed or killed run left behind. Callers must
// hold the scratch lock so no live item's files are touched.
package scratch
