package publisher

import "strings"

const (
	defaultCommitMessagePrefixConstant = "Add "
	defaultCommitMessageSuffixConstant = " from issue"
	defaultCommitterNameConstant       = "github-actions[bot]"
	defaultCommitterEmailConstant      = "github-actions[bot]@users.noreply.github.com"
	defaultRepositoryRootConstant      = "."
)

// CommandConfiguration captures configuration values for the publish command.
type CommandConfiguration struct {
	RepositoryRoot      string `mapstructure:"repository"`
	RemoteName          string `mapstructure:"remote"`
	BranchName          string `mapstructure:"branch"`
	CommitterName       string `mapstructure:"committer_name"`
	CommitterEmail      string `mapstructure:"committer_email"`
	CommitMessagePrefix string `mapstructure:"commit_message_prefix"`
	CommitMessageSuffix string `mapstructure:"commit_message_suffix"`
	ContainPaths        bool   `mapstructure:"contain_paths"`
	DryRun              bool   `mapstructure:"dry_run"`
	SkipPush            bool   `mapstructure:"skip_push"`
}

// DefaultCommandConfiguration provides baseline configuration values for publishing.
func DefaultCommandConfiguration() CommandConfiguration {
	return CommandConfiguration{
		RepositoryRoot:      defaultRepositoryRootConstant,
		CommitterName:       defaultCommitterNameConstant,
		CommitterEmail:      defaultCommitterEmailConstant,
		CommitMessagePrefix: defaultCommitMessagePrefixConstant,
		CommitMessageSuffix: defaultCommitMessageSuffixConstant,
		ContainPaths:        true,
	}
}

// DefaultConfigurationValues exposes the defaults as viper keys below the provided prefix.
func DefaultConfigurationValues(prefix string) map[string]any {
	defaults := DefaultCommandConfiguration()
	keyPrefix := strings.TrimSuffix(strings.TrimSpace(prefix), ".")
	if len(keyPrefix) > 0 {
		keyPrefix += "."
	}
	return map[string]any{
		keyPrefix + "repository":            defaults.RepositoryRoot,
		keyPrefix + "remote":                defaults.RemoteName,
		keyPrefix + "branch":                defaults.BranchName,
		keyPrefix + "committer_name":        defaults.CommitterName,
		keyPrefix + "committer_email":       defaults.CommitterEmail,
		keyPrefix + "commit_message_prefix": defaults.CommitMessagePrefix,
		keyPrefix + "commit_message_suffix": defaults.CommitMessageSuffix,
		keyPrefix + "contain_paths":         defaults.ContainPaths,
		keyPrefix + "dry_run":               defaults.DryRun,
		keyPrefix + "skip_push":             defaults.SkipPush,
	}
}

// sanitize trims identifiers without applying implicit defaults. Commit message
// affixes keep their whitespace because it separates them from the path.
func (configuration CommandConfiguration) sanitize() CommandConfiguration {
	sanitized := configuration
	sanitized.RepositoryRoot = strings.TrimSpace(configuration.RepositoryRoot)
	sanitized.RemoteName = strings.TrimSpace(configuration.RemoteName)
	sanitized.BranchName = strings.TrimSpace(configuration.BranchName)
	sanitized.CommitterName = strings.TrimSpace(configuration.CommitterName)
	sanitized.CommitterEmail = strings.TrimSpace(configuration.CommitterEmail)
	return sanitized
}
