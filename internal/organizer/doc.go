// Package organizer finalizes remote items by moving the tagged audio into
// the library directory.
//
// The target name is "<Artist> - <Title>.<ext>", sanitized for the
// filesystem and suffixed " (2)", " (3)", ... on collision. Moves that cross
// filesystems fall back to a verified copy. After the move the item's scratch
// files are removed. Error wrapping follows the other stages so the workflow
// manager can react uniformly.
package organizer
