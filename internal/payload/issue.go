package payload

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
)

const (
	issueBodyFlagNameConstant              = "body"
	issueBodyFlagUsageConstant             = "Issue body text. Overrides ISSUE_BODY."
	issueTitleFlagNameConstant             = "title"
	issueTitleFlagUsageConstant            = "Issue title. Overrides ISSUE_TITLE."
	issueBodyFileFlagNameConstant          = "body-file"
	issueBodyFileFlagUsageConstant         = "Read the issue body from a file. Takes precedence over --body."
	issueBodyFileReadErrorTemplateConstant = "unable to read issue body from %s: %w"
)

// IssueConfiguration holds issue text supplied through configuration or bound environment variables.
type IssueConfiguration struct {
	Body  string `mapstructure:"body"`
	Title string `mapstructure:"title"`
}

// Issue is the submission being processed.
type Issue struct {
	Title string
	Body  string
}

// IssueFileReader loads an issue body from disk.
type IssueFileReader func(path string) ([]byte, error)

// RegisterIssueFlags adds the issue input flags to a flag set.
func RegisterIssueFlags(flagSet *pflag.FlagSet) {
	flagSet.String(issueBodyFlagNameConstant, "", issueBodyFlagUsageConstant)
	flagSet.String(issueTitleFlagNameConstant, "", issueTitleFlagUsageConstant)
	flagSet.String(issueBodyFileFlagNameConstant, "", issueBodyFileFlagUsageConstant)
}

// ResolveIssue merges flag values over configured values. A body file wins over
// the body flag, which wins over the configured body.
func ResolveIssue(flagSet *pflag.FlagSet, configuration IssueConfiguration, readFile IssueFileReader) (Issue, error) {
	issue := Issue{Title: strings.TrimSpace(configuration.Title), Body: configuration.Body}
	if flagSet == nil {
		return issue, nil
	}

	if flagSet.Changed(issueTitleFlagNameConstant) {
		titleValue, titleError := flagSet.GetString(issueTitleFlagNameConstant)
		if titleError != nil {
			return Issue{}, titleError
		}
		issue.Title = strings.TrimSpace(titleValue)
	}

	if flagSet.Changed(issueBodyFlagNameConstant) {
		bodyValue, bodyError := flagSet.GetString(issueBodyFlagNameConstant)
		if bodyError != nil {
			return Issue{}, bodyError
		}
		issue.Body = bodyValue
	}

	bodyFilePath, bodyFileError := flagSet.GetString(issueBodyFileFlagNameConstant)
	if bodyFileError != nil {
		return Issue{}, bodyFileError
	}
	trimmedBodyFilePath := strings.TrimSpace(bodyFilePath)
	if len(trimmedBodyFilePath) == 0 || readFile == nil {
		return issue, nil
	}

	fileContent, readError := readFile(trimmedBodyFilePath)
	if readError != nil {
		return Issue{}, fmt.Errorf(issueBodyFileReadErrorTemplateConstant, trimmedBodyFilePath, readError)
	}
	issue.Body = string(fileContent)

	return issue, nil
}
