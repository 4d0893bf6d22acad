package execshell

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

const (
	commandGitStringConstant                   = "git"
	loggerNotConfiguredMessageConstant         = "logger not configured"
	commandRunnerNotConfiguredMessageConstant  = "command runner not configured"
	commandFailedErrorTemplateConstant         = "%s exited with code %d%s"
	commandExecutionErrorTemplateConstant      = "%s could not be executed: %v"
	logFieldCommandNameConstant                = "command"
	logFieldCommandArgumentsConstant           = "arguments"
	logFieldWorkingDirectoryConstant           = "working_directory"
	logFieldExitCodeConstant                   = "exit_code"
	logFieldStandardErrorConstant              = "stderr"
	commandLabelArgumentSeparatorConstant      = " "
	commandFailedStandardErrorTemplateConstant = ": %s"
)

// CommandName identifies an executable supported by the shell executor.
type CommandName string

// CommandGit runs the git command-line tool.
const CommandGit CommandName = CommandName(commandGitStringConstant)

// ErrLoggerNotConfigured indicates the executor was constructed without a logger.
var ErrLoggerNotConfigured = errors.New(loggerNotConfiguredMessageConstant)

// ErrCommandRunnerNotConfigured indicates the executor was constructed without a runner.
var ErrCommandRunnerNotConfigured = errors.New(commandRunnerNotConfiguredMessageConstant)

// CommandDetails describes a single tool invocation.
type CommandDetails struct {
	Arguments            []string
	WorkingDirectory     string
	EnvironmentVariables map[string]string
	StandardInput        []byte
}

// ShellCommand pairs a CommandName with its invocation details.
type ShellCommand struct {
	Name    CommandName
	Details CommandDetails
}

// ExecutionResult captures the observable results of a finished command.
type ExecutionResult struct {
	StandardOutput string
	StandardError  string
	ExitCode       int
}

// CommandRunner runs shell commands.
type CommandRunner interface {
	Run(executionContext context.Context, command ShellCommand) (ExecutionResult, error)
}

// CommandFailedError reports a command that ran to completion with a non-zero exit code.
type CommandFailedError struct {
	Command ShellCommand
	Result  ExecutionResult
}

// Error describes the failing command and its exit code.
func (failure CommandFailedError) Error() string {
	standardErrorSuffix := ""
	if trimmed := strings.TrimSpace(failure.Result.StandardError); len(trimmed) > 0 {
		standardErrorSuffix = fmt.Sprintf(commandFailedStandardErrorTemplateConstant, trimmed)
	}
	return fmt.Sprintf(commandFailedErrorTemplateConstant, describeCommand(failure.Command), failure.Result.ExitCode, standardErrorSuffix)
}

// CommandExecutionError reports a command that could not be started or awaited.
type CommandExecutionError struct {
	Command ShellCommand
	Cause   error
}

// Error describes the execution failure.
func (failure CommandExecutionError) Error() string {
	return fmt.Sprintf(commandExecutionErrorTemplateConstant, describeCommand(failure.Command), failure.Cause)
}

// Unwrap exposes the underlying cause.
func (failure CommandExecutionError) Unwrap() error {
	return failure.Cause
}

// ShellExecutorOption customizes a ShellExecutor.
type ShellExecutorOption func(*ShellExecutor)

// WithCommandEventObserver routes lifecycle events to the observer instead of structured logs.
func WithCommandEventObserver(observer CommandEventObserver) ShellExecutorOption {
	return func(executor *ShellExecutor) {
		executor.observer = observer
	}
}

// ShellExecutor runs external commands and reports their lifecycle.
type ShellExecutor struct {
	logger    *zap.Logger
	runner    CommandRunner
	observer  CommandEventObserver
	formatter CommandMessageFormatter
}

// NewShellExecutor constructs a ShellExecutor from a logger and a command runner.
func NewShellExecutor(logger *zap.Logger, runner CommandRunner, options ...ShellExecutorOption) (*ShellExecutor, error) {
	if logger == nil {
		return nil, ErrLoggerNotConfigured
	}
	if runner == nil {
		return nil, ErrCommandRunnerNotConfigured
	}

	executor := &ShellExecutor{logger: logger, runner: runner, formatter: CommandMessageFormatter{}}
	for _, option := range options {
		if option != nil {
			option(executor)
		}
	}
	return executor, nil
}

// ExecuteGit runs git with the provided details.
func (executor *ShellExecutor) ExecuteGit(executionContext context.Context, details CommandDetails) (ExecutionResult, error) {
	return executor.Execute(executionContext, ShellCommand{Name: CommandGit, Details: details})
}

// Execute runs an arbitrary command. Non-zero exit codes surface as CommandFailedError and
// are logged at debug level; runner failures surface as CommandExecutionError.
func (executor *ShellExecutor) Execute(executionContext context.Context, command ShellCommand) (ExecutionResult, error) {
	executor.reportStarted(command)

	executionResult, runError := executor.runner.Run(executionContext, command)
	if runError != nil {
		executor.reportExecutionFailure(command, runError)
		return ExecutionResult{}, CommandExecutionError{Command: command, Cause: runError}
	}

	executor.reportCompleted(command, executionResult)
	if executionResult.ExitCode != 0 {
		return ExecutionResult{}, CommandFailedError{Command: command, Result: executionResult}
	}

	return executionResult, nil
}

func (executor *ShellExecutor) reportStarted(command ShellCommand) {
	if executor.observer != nil {
		executor.observer.CommandStarted(command)
		return
	}
	executor.logger.Info(executor.formatter.BuildStartedMessage(command), executor.commandFields(command)...)
}

func (executor *ShellExecutor) reportCompleted(command ShellCommand, result ExecutionResult) {
	if executor.observer != nil {
		executor.observer.CommandCompleted(command, result)
		return
	}

	fields := append(executor.commandFields(command), zap.Int(logFieldExitCodeConstant, result.ExitCode))
	if result.ExitCode == 0 {
		executor.logger.Info(executor.formatter.BuildSuccessMessage(command), fields...)
		return
	}

	// Callers decide how loudly a failed command is reported.
	fields = append(fields, zap.String(logFieldStandardErrorConstant, strings.TrimSpace(result.StandardError)))
	executor.logger.Debug(executor.formatter.BuildFailureMessage(command, result), fields...)
}

func (executor *ShellExecutor) reportExecutionFailure(command ShellCommand, failure error) {
	if executor.observer != nil {
		executor.observer.CommandExecutionFailed(command, failure)
		return
	}
	executor.logger.Error(executor.formatter.BuildExecutionFailureMessage(command, failure), append(executor.commandFields(command), zap.Error(failure))...)
}

func (executor *ShellExecutor) commandFields(command ShellCommand) []zap.Field {
	return []zap.Field{
		zap.String(logFieldCommandNameConstant, string(command.Name)),
		zap.Strings(logFieldCommandArgumentsConstant, command.Details.Arguments),
		zap.String(logFieldWorkingDirectoryConstant, command.Details.WorkingDirectory),
	}
}

func describeCommand(command ShellCommand) string {
	if len(command.Details.Arguments) == 0 {
		return string(command.Name)
	}
	return string(command.Name) + commandLabelArgumentSeparatorConstant + strings.Join(command.Details.Arguments, commandLabelArgumentSeparatorConstant)
}
