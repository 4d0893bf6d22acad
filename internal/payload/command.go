package payload

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/temirov/issue_upload/internal/filesystem"
)

const (
	extractCommandUseConstant              = "extract"
	extractCommandShortDescriptionConstant = "Show the upload record recovered from an issue body"
	extractCommandLongDescriptionConstant  = "extract runs the payload extractor against the issue body and prints a YAML report without touching any repository."
	extractUnexpectedArgumentsConstant     = "extract does not accept positional arguments"
	extractReportEncodingErrorConstant     = "unable to encode extraction report: %w"
	extractReportWriteErrorConstant        = "unable to write extraction report: %w"
	payloadFoundMessageConstant            = "issue payload found"
	payloadMissingMessageConstant          = "no payload found in issue body"
	logFieldStrategyConstant               = "strategy"
	logFieldDeclaredPathConstant           = "declared_path"
	logFieldIssueTitleConstant             = "issue_title"
	logFieldBodyLengthConstant             = "body_length"
)

var errExtractUnexpectedArguments = errors.New(extractUnexpectedArgumentsConstant)

// LoggerProvider supplies a zap logger instance.
type LoggerProvider func() *zap.Logger

// IssueConfigurationProvider returns the configured issue text.
type IssueConfigurationProvider func() IssueConfiguration

// ExtractionReport summarizes an extraction for display.
type ExtractionReport struct {
	Found         bool     `yaml:"found"`
	Title         string   `yaml:"title,omitempty"`
	Strategy      Strategy `yaml:"strategy,omitempty"`
	Path          string   `yaml:"path,omitempty"`
	ContentLength int      `yaml:"content_length"`
	DecodedBytes  int      `yaml:"decoded_bytes"`
}

// NewExtractionReport describes the outcome of Extract for the given issue.
func NewExtractionReport(issue Issue, extraction Extraction, found bool) ExtractionReport {
	report := ExtractionReport{Found: found, Title: issue.Title}
	if !found {
		return report
	}
	report.Strategy = extraction.Strategy
	report.Path = extraction.Record.Path
	report.ContentLength = len(extraction.Record.Content)
	report.DecodedBytes = len(extraction.Record.DecodedContent())
	return report
}

// LogExtraction records the outcome of an extraction. A missing payload is logged, not returned as an error.
func LogExtraction(logger *zap.Logger, issue Issue, extraction Extraction, found bool) {
	if logger == nil {
		return
	}
	if !found {
		logger.Info(payloadMissingMessageConstant,
			zap.String(logFieldIssueTitleConstant, issue.Title),
			zap.Int(logFieldBodyLengthConstant, len(issue.Body)),
		)
		return
	}
	logger.Info(payloadFoundMessageConstant,
		zap.String(logFieldIssueTitleConstant, issue.Title),
		zap.String(logFieldStrategyConstant, string(extraction.Strategy)),
		zap.String(logFieldDeclaredPathConstant, extraction.Record.Path),
	)
}

// ExtractCommandBuilder assembles the extract command.
type ExtractCommandBuilder struct {
	LoggerProvider             LoggerProvider
	IssueConfigurationProvider IssueConfigurationProvider
	FileReader                 IssueFileReader
}

// Build constructs the extract command.
func (builder *ExtractCommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   extractCommandUseConstant,
		Short: extractCommandShortDescriptionConstant,
		Long:  extractCommandLongDescriptionConstant,
		RunE:  builder.run,
	}

	RegisterIssueFlags(command.Flags())

	return command, nil
}

func (builder *ExtractCommandBuilder) run(command *cobra.Command, arguments []string) error {
	if len(arguments) > 0 {
		return errExtractUnexpectedArguments
	}

	issue, issueError := ResolveIssue(command.Flags(), builder.resolveIssueConfiguration(), builder.resolveFileReader())
	if issueError != nil {
		return issueError
	}

	extraction, found := Extract(issue.Body)
	LogExtraction(builder.resolveLogger(), issue, extraction, found)

	encodedReport, encodingError := yaml.Marshal(NewExtractionReport(issue, extraction, found))
	if encodingError != nil {
		return fmt.Errorf(extractReportEncodingErrorConstant, encodingError)
	}
	if _, writeError := command.OutOrStdout().Write(encodedReport); writeError != nil {
		return fmt.Errorf(extractReportWriteErrorConstant, writeError)
	}

	return nil
}

func (builder *ExtractCommandBuilder) resolveLogger() *zap.Logger {
	if builder.LoggerProvider == nil {
		return zap.NewNop()
	}

	logger := builder.LoggerProvider()
	if logger == nil {
		return zap.NewNop()
	}

	return logger
}

func (builder *ExtractCommandBuilder) resolveIssueConfiguration() IssueConfiguration {
	if builder.IssueConfigurationProvider == nil {
		return IssueConfiguration{}
	}
	return builder.IssueConfigurationProvider()
}

func (builder *ExtractCommandBuilder) resolveFileReader() IssueFileReader {
	if builder.FileReader != nil {
		return builder.FileReader
	}
	return filesystem.OSFileSystem{}.ReadFile
}
