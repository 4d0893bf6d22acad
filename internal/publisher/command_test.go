package publisher_test

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/temirov/issue_upload/internal/execshell"
	"github.com/temirov/issue_upload/internal/payload"
	"github.com/temirov/issue_upload/internal/publisher"
	pathutils "github.com/temirov/issue_upload/internal/utils/path"
)

const (
	testIssueTitleConstant              = "Upload request"
	testPublishedPathConstant           = "assets/readme.txt"
	testPublishedContentConstant        = "uploaded through an issue"
	testConfiguredCaseConstant          = "configuration_values"
	testFlagOverridesCaseConstant       = "flags_override_configuration"
	testDryRunFlagCaseConstant          = "dry_run_flag"
	testNoPayloadMessageConstant        = "no payload found in issue body"
	testPublishCompletedMessageConstant = "upload published"
)

type recordingGitExecutor struct {
	recorded []execshell.CommandDetails
}

func (executor *recordingGitExecutor) ExecuteGit(_ context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error) {
	executor.recorded = append(executor.recorded, details)
	return execshell.ExecutionResult{}, nil
}

func issueBodyFor(path string, content string) string {
	encoded := base64.StdEncoding.EncodeToString([]byte(content))
	return fmt.Sprintf("Please publish this file.\n\n```json\n{\"path\": %q, \"content\": %q}\n```\n", path, encoded)
}

func buildPublishCommand(testInstance *testing.T, builder *publisher.CommandBuilder, arguments []string) error {
	testInstance.Helper()
	command, buildError := builder.Build()
	require.NoError(testInstance, buildError)
	command.SetContext(context.Background())
	command.SetOut(&bytes.Buffer{})
	command.SetErr(&bytes.Buffer{})
	command.SetArgs(arguments)
	return command.Execute()
}

func TestPublishCommandConfiguration(testInstance *testing.T) {
	testCases := []struct {
		name                  string
		arguments             []string
		expectFileWritten     bool
		expectedGitArguments  [][]string
		expectedCommitMessage string
	}{
		{
			name:              testConfiguredCaseConstant,
			expectFileWritten: true,
			expectedGitArguments: [][]string{
				{"config", "user.name", "Configured Bot"},
				{"config", "user.email", "bot@example.com"},
				{"add", "-A"},
				{"commit", "-m", "Add assets/readme.txt from issue"},
				{"push", "origin", "uploads"},
			},
		},
		{
			name: testFlagOverridesCaseConstant,
			arguments: []string{
				"--committer-name", "Flag Bot",
				"--commit-message-prefix", "Upload: ",
				"--commit-message-suffix", "",
				"--skip-push",
			},
			expectFileWritten: true,
			expectedGitArguments: [][]string{
				{"config", "user.name", "Flag Bot"},
				{"config", "user.email", "bot@example.com"},
				{"add", "-A"},
				{"commit", "-m", "Upload: assets/readme.txt"},
			},
		},
		{
			name:                 testDryRunFlagCaseConstant,
			arguments:            []string{"--dry-run"},
			expectFileWritten:    false,
			expectedGitArguments: nil,
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			repositoryRoot := testInstance.TempDir()
			executor := &recordingGitExecutor{}

			builder := &publisher.CommandBuilder{
				GitExecutor: executor,
				ConfigurationProvider: func() publisher.CommandConfiguration {
					configuration := publisher.DefaultCommandConfiguration()
					configuration.RepositoryRoot = repositoryRoot
					configuration.CommitterName = "Configured Bot"
					configuration.CommitterEmail = "bot@example.com"
					configuration.BranchName = "uploads"
					return configuration
				},
				IssueConfigurationProvider: func() payload.IssueConfiguration {
					return payload.IssueConfiguration{Title: testIssueTitleConstant, Body: issueBodyFor(testPublishedPathConstant, testPublishedContentConstant)}
				},
			}

			require.NoError(testInstance, buildPublishCommand(testInstance, builder, testCase.arguments))

			targetPath := filepath.Join(repositoryRoot, "assets", "readme.txt")
			writtenContent, readError := os.ReadFile(targetPath)
			if testCase.expectFileWritten {
				require.NoError(testInstance, readError)
				require.Equal(testInstance, testPublishedContentConstant, string(writtenContent))
			} else {
				require.Error(testInstance, readError)
			}

			recordedArguments := make([][]string, 0, len(executor.recorded))
			for _, details := range executor.recorded {
				recordedArguments = append(recordedArguments, details.Arguments)
			}
			if testCase.expectedGitArguments == nil {
				require.Empty(testInstance, recordedArguments)
				return
			}
			require.Equal(testInstance, testCase.expectedGitArguments, recordedArguments)
		})
	}
}

func TestPublishCommandWithoutPayloadSucceeds(testInstance *testing.T) {
	observerCore, observedLogs := observer.New(zapcore.InfoLevel)
	executor := &recordingGitExecutor{}
	builder := &publisher.CommandBuilder{
		GitExecutor:    executor,
		LoggerProvider: func() *zap.Logger { return zap.New(observerCore) },
		IssueConfigurationProvider: func() payload.IssueConfiguration {
			return payload.IssueConfiguration{Title: testIssueTitleConstant, Body: "path: only-a-path.txt"}
		},
	}

	require.NoError(testInstance, buildPublishCommand(testInstance, builder, nil))
	require.Empty(testInstance, executor.recorded)
	require.Equal(testInstance, 1, observedLogs.FilterMessage(testNoPayloadMessageConstant).Len())
	require.Zero(testInstance, observedLogs.FilterMessage(testPublishCompletedMessageConstant).Len())
}

func TestPublishCommandRejectsEscapingPath(testInstance *testing.T) {
	repositoryRoot := testInstance.TempDir()
	executor := &recordingGitExecutor{}
	builder := &publisher.CommandBuilder{
		GitExecutor: executor,
		ConfigurationProvider: func() publisher.CommandConfiguration {
			configuration := publisher.DefaultCommandConfiguration()
			configuration.RepositoryRoot = repositoryRoot
			return configuration
		},
		IssueConfigurationProvider: func() payload.IssueConfiguration {
			return payload.IssueConfiguration{Body: issueBodyFor("../outside.txt", testPublishedContentConstant)}
		},
	}

	publishError := buildPublishCommand(testInstance, builder, nil)
	var containmentError pathutils.PathContainmentError
	require.ErrorAs(testInstance, publishError, &containmentError)
	require.Empty(testInstance, executor.recorded)
}

func TestPublishCommandAllowsEscapingPathWhenContainmentDisabled(testInstance *testing.T) {
	parentDirectory := testInstance.TempDir()
	repositoryRoot := filepath.Join(parentDirectory, "checkout")
	require.NoError(testInstance, os.Mkdir(repositoryRoot, 0o755))

	builder := &publisher.CommandBuilder{
		GitExecutor: &recordingGitExecutor{},
		ConfigurationProvider: func() publisher.CommandConfiguration {
			configuration := publisher.DefaultCommandConfiguration()
			configuration.RepositoryRoot = repositoryRoot
			return configuration
		},
		IssueConfigurationProvider: func() payload.IssueConfiguration {
			return payload.IssueConfiguration{Body: issueBodyFor("../outside.txt", testPublishedContentConstant)}
		},
	}

	require.NoError(testInstance, buildPublishCommand(testInstance, builder, []string{"--contain-paths=false"}))

	writtenContent, readError := os.ReadFile(filepath.Join(parentDirectory, "outside.txt"))
	require.NoError(testInstance, readError)
	require.Equal(testInstance, testPublishedContentConstant, string(writtenContent))
}

func TestDefaultConfigurationValues(testInstance *testing.T) {
	values := publisher.DefaultConfigurationValues("tools.publish")
	require.Equal(testInstance, ".", values["tools.publish.repository"])
	require.Equal(testInstance, true, values["tools.publish.contain_paths"])
	require.Equal(testInstance, "Add ", values["tools.publish.commit_message_prefix"])
	require.Len(testInstance, values, 10)
}
