// Package cli builds the issue-upload command-line interface. It wires the Cobra
// command hierarchy, the configuration loader with its embedded defaults and CI
// environment bindings, and the zap logger shared by the publish and extract commands.
package cli
