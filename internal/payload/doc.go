// Package payload recovers an upload record (relative path plus base64 content)
// from free-text issue bodies.
//
// Extraction tries an ordered list of strategies and keeps the first valid
// record: the whole body as a JSON object, the first-brace-to-last-brace span as
// a JSON object, and finally loose key/value matching. A body that yields no
// record with both fields populated is a normal "no payload" outcome, not an
// error.
package payload
