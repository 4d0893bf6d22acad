// Package publisher materializes an extracted upload inside a repository checkout
// and records it with git.
//
// Filesystem failures are fatal and returned to the caller. Git failures are
// absorbed according to a per-step policy: identity, staging and push failures
// are logged as warnings, while commit failures (typically an empty commit) are
// only logged at debug level. A workflow is therefore never failed merely because
// there was nothing new to commit or the push was rejected.
package publisher
