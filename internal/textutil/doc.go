// Package textutil provides small string helpers shared by the pipeline
// stages: file-name sanitization, tag value cleanup, title casing, and the
// MD5 checksum used to derive work item identifiers.
package textutil
