package main

import (
	"context"
	"os"
	"os/exec"
	"strings"
	"testing"
	"time"
)

const (
	integrationCommandTimeout = 120 * time.Second
	integrationGitTimeout     = 30 * time.Second
)

type integrationResult struct {
	output string
	err    error
}

func moduleRootDirectory(testInstance *testing.T) string {
	testInstance.Helper()
	currentWorkingDirectory, workingDirectoryError := os.Getwd()
	requireNoError(testInstance, workingDirectoryError, "")
	return currentWorkingDirectory
}

func runIntegrationCommand(testInstance *testing.T, environment []string, arguments ...string) integrationResult {
	testInstance.Helper()
	executionContext, cancel := context.WithTimeout(context.Background(), integrationCommandTimeout)
	defer cancel()

	command := exec.CommandContext(executionContext, "go", append([]string{"run", "."}, arguments...)...)
	command.Dir = moduleRootDirectory(testInstance)
	command.Env = append(hermeticEnvironment(), environment...)

	outputBytes, runError := command.CombinedOutput()
	return integrationResult{output: string(outputBytes), err: runError}
}

func runGit(testInstance *testing.T, workingDirectory string, arguments ...string) string {
	testInstance.Helper()
	executionContext, cancel := context.WithTimeout(context.Background(), integrationGitTimeout)
	defer cancel()

	command := exec.CommandContext(executionContext, "git", arguments...)
	command.Dir = workingDirectory
	command.Env = hermeticEnvironment()

	outputBytes, runError := command.CombinedOutput()
	outputText := string(outputBytes)
	requireNoError(testInstance, runError, outputText)
	return outputText
}

func requireGit(testInstance *testing.T) {
	testInstance.Helper()
	if _, lookupError := exec.LookPath("git"); lookupError != nil {
		testInstance.Skip("git executable not available")
	}
}

// hermeticEnvironment drops issue inputs and prefixed overrides inherited from the caller.
func hermeticEnvironment() []string {
	inherited := os.Environ()
	filtered := make([]string, 0, len(inherited))
	for _, assignment := range inherited {
		if strings.HasPrefix(assignment, "ISSUE_") || strings.HasPrefix(assignment, "ISSUEUPLOAD_") {
			continue
		}
		filtered = append(filtered, assignment)
	}
	return filtered
}

func requireNoError(testInstance *testing.T, err error, output string) {
	testInstance.Helper()
	if err != nil {
		testInstance.Fatalf("command failed: %v\n%s", err, output)
	}
}
