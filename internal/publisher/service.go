package publisher

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/temirov/issue_upload/internal/execshell"
	"github.com/temirov/issue_upload/internal/filesystem"
	"github.com/temirov/issue_upload/internal/payload"
	pathutils "github.com/temirov/issue_upload/internal/utils/path"
)

const (
	repositoryRootRequiredMessageConstant    = "repository root must be provided"
	gitExecutorMissingMessageConstant        = "git executor not configured"
	recordInvalidMessageConstant             = "upload record requires both path and content"
	targetResolutionErrorTemplateConstant    = "unable to resolve target for %q: %w"
	directoryCreationErrorTemplateConstant   = "unable to create directory %s: %w"
	fileWriteErrorTemplateConstant           = "unable to write %s: %w"
	directoryPermissionsConstant             = fs.FileMode(0o755)
	filePermissionsConstant                  = fs.FileMode(0o644)
	gitConfigSubcommandConstant              = "config"
	gitUserNameSettingConstant               = "user.name"
	gitUserEmailSettingConstant              = "user.email"
	gitAddSubcommandConstant                 = "add"
	gitAddAllFlagConstant                    = "-A"
	gitCommitSubcommandConstant              = "commit"
	gitCommitMessageFlagConstant             = "-m"
	gitPushSubcommandConstant                = "push"
	defaultRemoteNameConstant                = "origin"
	gitTerminalPromptEnvironmentNameConstant = "GIT_TERMINAL_PROMPT"
	gitTerminalPromptEnvironmentDisableValue = "0"
	payloadWrittenMessageConstant            = "upload written"
	dryRunMessageConstant                    = "dry run: upload not written"
	gitStepWarningMessageConstant            = "git step failed; continuing"
	gitStepIgnoredMessageConstant            = "git step failed; ignored"
	logFieldDeclaredPathConstant             = "declared_path"
	logFieldTargetPathConstant               = "target_path"
	logFieldByteCountConstant                = "bytes"
	logFieldOverwrittenConstant              = "overwritten"
	logFieldGitStepConstant                  = "git_step"
)

// ErrRepositoryRootRequired indicates the repository root option was empty.
var ErrRepositoryRootRequired = errors.New(repositoryRootRequiredMessageConstant)

// ErrGitExecutorNotConfigured indicates the git executor dependency was missing.
var ErrGitExecutorNotConfigured = errors.New(gitExecutorMissingMessageConstant)

// ErrRecordInvalid indicates the record lacks a path or content.
var ErrRecordInvalid = errors.New(recordInvalidMessageConstant)

// GitExecutor runs git commands.
type GitExecutor interface {
	ExecuteGit(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

// TargetResolver maps a declared upload path onto the repository checkout.
type TargetResolver interface {
	ResolveTarget(repositoryRoot string, declaredPath string) (string, error)
}

// ServiceDependencies enumerates collaborators required by the service.
type ServiceDependencies struct {
	GitExecutor    GitExecutor
	FileSystem     filesystem.FileSystem
	TargetResolver TargetResolver
	Logger         *zap.Logger
}

// CommitIdentity is the author and committer recorded for upload commits.
type CommitIdentity struct {
	Name  string
	Email string
}

// Options configure a single publish operation.
type Options struct {
	RepositoryRoot      string
	Record              payload.UploadRecord
	Identity            CommitIdentity
	CommitMessagePrefix string
	CommitMessageSuffix string
	RemoteName          string
	BranchName          string
	DryRun              bool
	SkipPush            bool
}

// Result captures the outcome of a publish operation.
type Result struct {
	TargetPath    string
	BytesWritten  int
	Overwritten   bool
	CommitMessage string
	Committed     bool
	Pushed        bool
}

type failurePolicy int

const (
	failurePolicyWarn failurePolicy = iota
	failurePolicyIgnore
)

type gitStep struct {
	name      string
	arguments []string
	policy    failurePolicy
}

// Service writes uploads into a repository and commits them.
type Service struct {
	executor   GitExecutor
	fileSystem filesystem.FileSystem
	resolver   TargetResolver
	logger     *zap.Logger
}

// NewService constructs a Service. A missing filesystem defaults to the operating system,
// a missing resolver enforces containment, and a missing logger discards output.
func NewService(dependencies ServiceDependencies) (*Service, error) {
	if dependencies.GitExecutor == nil {
		return nil, ErrGitExecutorNotConfigured
	}

	service := &Service{
		executor:   dependencies.GitExecutor,
		fileSystem: dependencies.FileSystem,
		resolver:   dependencies.TargetResolver,
		logger:     dependencies.Logger,
	}
	if service.fileSystem == nil {
		service.fileSystem = filesystem.OSFileSystem{}
	}
	if service.resolver == nil {
		service.resolver = pathutils.NewTargetPathResolver(true)
	}
	if service.logger == nil {
		service.logger = zap.NewNop()
	}
	return service, nil
}

// Publish writes the decoded record content under the repository root, then stages,
// commits and pushes it. Only target resolution and filesystem failures are returned.
func (service *Service) Publish(executionContext context.Context, options Options) (Result, error) {
	repositoryRoot := strings.TrimSpace(options.RepositoryRoot)
	if len(repositoryRoot) == 0 {
		return Result{}, ErrRepositoryRootRequired
	}
	if !options.Record.Valid() {
		return Result{}, ErrRecordInvalid
	}

	targetPath, resolveError := service.resolver.ResolveTarget(repositoryRoot, options.Record.Path)
	if resolveError != nil {
		return Result{}, fmt.Errorf(targetResolutionErrorTemplateConstant, options.Record.Path, resolveError)
	}

	decodedContent := options.Record.DecodedContent()
	result := Result{
		TargetPath:    targetPath,
		BytesWritten:  len(decodedContent),
		CommitMessage: options.CommitMessagePrefix + options.Record.Path + options.CommitMessageSuffix,
	}
	if _, statError := service.fileSystem.Stat(targetPath); statError == nil {
		result.Overwritten = true
	}

	if options.DryRun {
		service.logger.Info(dryRunMessageConstant,
			zap.String(logFieldDeclaredPathConstant, options.Record.Path),
			zap.String(logFieldTargetPathConstant, targetPath),
			zap.Int(logFieldByteCountConstant, result.BytesWritten),
		)
		return result, nil
	}

	parentDirectory := filepath.Dir(targetPath)
	if mkdirError := service.fileSystem.MkdirAll(parentDirectory, directoryPermissionsConstant); mkdirError != nil {
		return Result{}, fmt.Errorf(directoryCreationErrorTemplateConstant, parentDirectory, mkdirError)
	}
	if writeError := service.fileSystem.WriteFile(targetPath, decodedContent, filePermissionsConstant); writeError != nil {
		return Result{}, fmt.Errorf(fileWriteErrorTemplateConstant, targetPath, writeError)
	}

	service.logger.Info(payloadWrittenMessageConstant,
		zap.String(logFieldDeclaredPathConstant, options.Record.Path),
		zap.String(logFieldTargetPathConstant, targetPath),
		zap.Int(logFieldByteCountConstant, result.BytesWritten),
		zap.Bool(logFieldOverwrittenConstant, result.Overwritten),
	)

	for _, step := range service.identitySteps(options.Identity) {
		service.runStep(executionContext, repositoryRoot, step)
	}
	service.runStep(executionContext, repositoryRoot, gitStep{
		name:      gitAddSubcommandConstant,
		arguments: []string{gitAddSubcommandConstant, gitAddAllFlagConstant},
		policy:    failurePolicyWarn,
	})
	result.Committed = service.runStep(executionContext, repositoryRoot, gitStep{
		name:      gitCommitSubcommandConstant,
		arguments: []string{gitCommitSubcommandConstant, gitCommitMessageFlagConstant, result.CommitMessage},
		policy:    failurePolicyIgnore,
	})
	if !options.SkipPush {
		result.Pushed = service.runStep(executionContext, repositoryRoot, gitStep{
			name:      gitPushSubcommandConstant,
			arguments: pushArguments(options.RemoteName, options.BranchName),
			policy:    failurePolicyWarn,
		})
	}

	return result, nil
}

func (service *Service) identitySteps(identity CommitIdentity) []gitStep {
	steps := make([]gitStep, 0, 2)
	settings := []struct {
		name  string
		value string
	}{
		{name: gitUserNameSettingConstant, value: strings.TrimSpace(identity.Name)},
		{name: gitUserEmailSettingConstant, value: strings.TrimSpace(identity.Email)},
	}
	for _, setting := range settings {
		if len(setting.value) == 0 {
			continue
		}
		steps = append(steps, gitStep{
			name:      gitConfigSubcommandConstant + " " + setting.name,
			arguments: []string{gitConfigSubcommandConstant, setting.name, setting.value},
			policy:    failurePolicyWarn,
		})
	}
	return steps
}

// runStep executes one git step and reports whether it succeeded. Failures never propagate.
func (service *Service) runStep(executionContext context.Context, repositoryRoot string, step gitStep) bool {
	_, executionError := service.executor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:            step.arguments,
		WorkingDirectory:     repositoryRoot,
		EnvironmentVariables: map[string]string{gitTerminalPromptEnvironmentNameConstant: gitTerminalPromptEnvironmentDisableValue},
	})
	if executionError == nil {
		return true
	}

	switch step.policy {
	case failurePolicyIgnore:
		service.logger.Debug(gitStepIgnoredMessageConstant, zap.String(logFieldGitStepConstant, step.name), zap.Error(executionError))
	default:
		service.logger.Warn(gitStepWarningMessageConstant, zap.String(logFieldGitStepConstant, step.name), zap.Error(executionError))
	}
	return false
}

func pushArguments(remoteName string, branchName string) []string {
	arguments := []string{gitPushSubcommandConstant}
	trimmedRemote := strings.TrimSpace(remoteName)
	trimmedBranch := strings.TrimSpace(branchName)
	if len(trimmedBranch) > 0 && len(trimmedRemote) == 0 {
		trimmedRemote = defaultRemoteNameConstant
	}
	if len(trimmedRemote) > 0 {
		arguments = append(arguments, trimmedRemote)
	}
	if len(trimmedBranch) > 0 {
		arguments = append(arguments, trimmedBranch)
	}
	return arguments
}
