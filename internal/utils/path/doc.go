// Package pathutils resolves the repository root and the on-disk target of a
// declared upload path, optionally refusing targets that escape the root.
package pathutils
