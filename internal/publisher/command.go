package publisher

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/temirov/issue_upload/internal/execshell"
	"github.com/temirov/issue_upload/internal/filesystem"
	"github.com/temirov/issue_upload/internal/payload"
	"github.com/temirov/issue_upload/internal/ui"
	pathutils "github.com/temirov/issue_upload/internal/utils/path"
)

const (
	commandUseConstant                    = "publish"
	commandShortDescriptionConstant       = "Write the file embedded in an issue into a repository and push it"
	commandLongDescriptionConstant        = "publish extracts the upload record from the issue body, writes the decoded file under the repository root, then stages, commits and pushes it. An issue without a payload is not an error."
	commandExecutionErrorTemplateConstant = "publish failed: %w"
	unexpectedArgumentsMessageConstant    = "publish does not accept positional arguments"
	flagRepositoryNameConstant            = "repository"
	flagRepositoryDescriptionConstant     = "Path to the repository checkout receiving the upload"
	flagRemoteNameConstant                = "remote"
	flagRemoteDescriptionConstant         = "Remote to push to (defaults to the upstream of the current branch)"
	flagBranchNameConstant                = "branch"
	flagBranchDescriptionConstant         = "Branch to push to"
	flagCommitterNameNameConstant         = "committer-name"
	flagCommitterNameDescriptionConstant  = "Name recorded as commit author and committer"
	flagCommitterEmailNameConstant        = "committer-email"
	flagCommitterEmailDescriptionConstant = "Email recorded as commit author and committer"
	flagCommitPrefixNameConstant          = "commit-message-prefix"
	flagCommitPrefixDescriptionConstant   = "Text placed before the declared path in the commit message"
	flagCommitSuffixNameConstant          = "commit-message-suffix"
	flagCommitSuffixDescriptionConstant   = "Text placed after the declared path in the commit message"
	flagContainPathsNameConstant          = "contain-paths"
	flagContainPathsDescriptionConstant   = "Reject declared paths that resolve outside the repository root"
	flagDryRunNameConstant                = "dry-run"
	flagDryRunDescriptionConstant         = "Resolve the upload without writing files or running git"
	flagSkipPushNameConstant              = "skip-push"
	flagSkipPushDescriptionConstant       = "Commit locally without pushing"
	publishCompletedMessageConstant       = "upload published"
	logFieldCommittedConstant             = "committed"
	logFieldPushedConstant                = "pushed"
	logFieldCommitMessageConstant         = "commit_message"
	logFieldRepositoryRootConstant        = "repository_root"
	logFieldIssueTitleConstant            = "issue_title"
)

var errUnexpectedArguments = errors.New(unexpectedArgumentsMessageConstant)

// LoggerProvider supplies a zap logger instance.
type LoggerProvider func() *zap.Logger

// ConfigurationProvider returns the current publish configuration.
type ConfigurationProvider func() CommandConfiguration

// HumanReadableLoggingProvider reports whether console-style logging is active.
type HumanReadableLoggingProvider func() bool

// CommandBuilder assembles the publish command.
type CommandBuilder struct {
	LoggerProvider               LoggerProvider
	ConfigurationProvider        ConfigurationProvider
	IssueConfigurationProvider   payload.IssueConfigurationProvider
	HumanReadableLoggingProvider HumanReadableLoggingProvider
	GitExecutor                  GitExecutor
	FileSystem                   filesystem.FileSystem
}

// Build constructs the publish command.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   commandUseConstant,
		Short: commandShortDescriptionConstant,
		Long:  commandLongDescriptionConstant,
		RunE:  builder.run,
	}

	payload.RegisterIssueFlags(command.Flags())
	command.Flags().String(flagRepositoryNameConstant, "", flagRepositoryDescriptionConstant)
	command.Flags().String(flagRemoteNameConstant, "", flagRemoteDescriptionConstant)
	command.Flags().String(flagBranchNameConstant, "", flagBranchDescriptionConstant)
	command.Flags().String(flagCommitterNameNameConstant, "", flagCommitterNameDescriptionConstant)
	command.Flags().String(flagCommitterEmailNameConstant, "", flagCommitterEmailDescriptionConstant)
	command.Flags().String(flagCommitPrefixNameConstant, "", flagCommitPrefixDescriptionConstant)
	command.Flags().String(flagCommitSuffixNameConstant, "", flagCommitSuffixDescriptionConstant)
	command.Flags().Bool(flagContainPathsNameConstant, true, flagContainPathsDescriptionConstant)
	command.Flags().Bool(flagDryRunNameConstant, false, flagDryRunDescriptionConstant)
	command.Flags().Bool(flagSkipPushNameConstant, false, flagSkipPushDescriptionConstant)

	return command, nil
}

func (builder *CommandBuilder) run(command *cobra.Command, arguments []string) error {
	if len(arguments) > 0 {
		return errUnexpectedArguments
	}

	configuration, configurationError := builder.parseConfiguration(command.Flags())
	if configurationError != nil {
		return configurationError
	}

	fileSystem := builder.resolveFileSystem()
	issue, issueError := payload.ResolveIssue(command.Flags(), builder.resolveIssueConfiguration(), fileSystem.ReadFile)
	if issueError != nil {
		return issueError
	}

	logger := builder.resolveLogger()
	extraction, found := payload.Extract(issue.Body)
	payload.LogExtraction(logger, issue, extraction, found)
	if !found {
		return nil
	}

	resolver := pathutils.NewTargetPathResolver(configuration.ContainPaths)
	repositoryRoot, rootError := resolver.ResolveRepositoryRoot(configuration.RepositoryRoot)
	if rootError != nil {
		return rootError
	}

	executor, executorError := builder.resolveExecutor(logger)
	if executorError != nil {
		return executorError
	}

	service, serviceError := NewService(ServiceDependencies{
		GitExecutor:    executor,
		FileSystem:     fileSystem,
		TargetResolver: resolver,
		Logger:         logger,
	})
	if serviceError != nil {
		return serviceError
	}

	result, publishError := service.Publish(command.Context(), Options{
		RepositoryRoot:      repositoryRoot,
		Record:              extraction.Record,
		Identity:            CommitIdentity{Name: configuration.CommitterName, Email: configuration.CommitterEmail},
		CommitMessagePrefix: configuration.CommitMessagePrefix,
		CommitMessageSuffix: configuration.CommitMessageSuffix,
		RemoteName:          configuration.RemoteName,
		BranchName:          configuration.BranchName,
		DryRun:              configuration.DryRun,
		SkipPush:            configuration.SkipPush,
	})
	if publishError != nil {
		return fmt.Errorf(commandExecutionErrorTemplateConstant, publishError)
	}

	if !configuration.DryRun {
		logger.Info(publishCompletedMessageConstant,
			zap.String(logFieldIssueTitleConstant, issue.Title),
			zap.String(logFieldRepositoryRootConstant, repositoryRoot),
			zap.String(logFieldTargetPathConstant, result.TargetPath),
			zap.String(logFieldCommitMessageConstant, result.CommitMessage),
			zap.Bool(logFieldCommittedConstant, result.Committed),
			zap.Bool(logFieldPushedConstant, result.Pushed),
		)
	}

	return nil
}

// parseConfiguration overlays explicitly set flags on the configured values.
func (builder *CommandBuilder) parseConfiguration(flagSet *pflag.FlagSet) (CommandConfiguration, error) {
	configuration := DefaultCommandConfiguration()
	if builder.ConfigurationProvider != nil {
		configuration = builder.ConfigurationProvider()
	}

	stringOverrides := []struct {
		flagName string
		target   *string
	}{
		{flagName: flagRepositoryNameConstant, target: &configuration.RepositoryRoot},
		{flagName: flagRemoteNameConstant, target: &configuration.RemoteName},
		{flagName: flagBranchNameConstant, target: &configuration.BranchName},
		{flagName: flagCommitterNameNameConstant, target: &configuration.CommitterName},
		{flagName: flagCommitterEmailNameConstant, target: &configuration.CommitterEmail},
		{flagName: flagCommitPrefixNameConstant, target: &configuration.CommitMessagePrefix},
		{flagName: flagCommitSuffixNameConstant, target: &configuration.CommitMessageSuffix},
	}
	for _, override := range stringOverrides {
		if !flagSet.Changed(override.flagName) {
			continue
		}
		flagValue, flagError := flagSet.GetString(override.flagName)
		if flagError != nil {
			return CommandConfiguration{}, flagError
		}
		*override.target = flagValue
	}

	booleanOverrides := []struct {
		flagName string
		target   *bool
	}{
		{flagName: flagContainPathsNameConstant, target: &configuration.ContainPaths},
		{flagName: flagDryRunNameConstant, target: &configuration.DryRun},
		{flagName: flagSkipPushNameConstant, target: &configuration.SkipPush},
	}
	for _, override := range booleanOverrides {
		if !flagSet.Changed(override.flagName) {
			continue
		}
		flagValue, flagError := flagSet.GetBool(override.flagName)
		if flagError != nil {
			return CommandConfiguration{}, flagError
		}
		*override.target = flagValue
	}

	return configuration.sanitize(), nil
}

func (builder *CommandBuilder) resolveLogger() *zap.Logger {
	if builder.LoggerProvider == nil {
		return zap.NewNop()
	}

	logger := builder.LoggerProvider()
	if logger == nil {
		return zap.NewNop()
	}

	return logger
}

func (builder *CommandBuilder) resolveIssueConfiguration() payload.IssueConfiguration {
	if builder.IssueConfigurationProvider == nil {
		return payload.IssueConfiguration{}
	}
	return builder.IssueConfigurationProvider()
}

func (builder *CommandBuilder) resolveFileSystem() filesystem.FileSystem {
	if builder.FileSystem != nil {
		return builder.FileSystem
	}
	return filesystem.OSFileSystem{}
}

func (builder *CommandBuilder) resolveExecutor(logger *zap.Logger) (GitExecutor, error) {
	if builder.GitExecutor != nil {
		return builder.GitExecutor, nil
	}

	executorOptions := make([]execshell.ShellExecutorOption, 0, 1)
	if builder.HumanReadableLoggingProvider != nil && builder.HumanReadableLoggingProvider() {
		executorOptions = append(executorOptions, execshell.WithCommandEventObserver(ui.NewConsoleCommandEventLogger(logger)))
	}

	shellExecutor, creationError := execshell.NewShellExecutor(logger, execshell.NewOSCommandRunner(), executorOptions...)
	if creationError != nil {
		return nil, creationError
	}

	return shellExecutor, nil
}
