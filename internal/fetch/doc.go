// Package fetch downloads remote resources for stages, currently thumbnail
// artwork.
//
// Client is the blocking byte-stream contract stages depend on; HTTPClient is
// the net/http implementation configured from the [fetch] config section.
// FetchImage decodes JPEG, PNG and WebP payloads. Callers that cannot do
// without an image substitute Placeholder.
package fetch
