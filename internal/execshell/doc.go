// Package execshell provides structured helpers for invoking external tools.
//
// It wraps os/exec with zap lifecycle logging via ShellExecutor, exposes
// OSCommandRunner for default process execution, and defines the abstractions
// the publisher uses to run git in a testable manner.
package execshell
