package main

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const (
	publishIntegrationBranchConstant       = "uploads"
	publishIntegrationPathConstant         = "assets/greeting.txt"
	publishIntegrationContentConstant      = "hello from an issue\n"
	publishIntegrationCommitterConstant    = "Integration Bot"
	publishIntegrationEmailConstant        = "integration@example.com"
	publishIntegrationCommitMessage        = "Add assets/greeting.txt from issue"
	publishIntegrationIssueBodyEnvConstant = "ISSUE_BODY=%s"
	publishIntegrationRepositoryFlag       = "--repository=%s"
)

type publishFixture struct {
	remoteDirectory  string
	workingDirectory string
}

func newPublishFixture(testInstance *testing.T) publishFixture {
	testInstance.Helper()
	requireGit(testInstance)

	baseDirectory := testInstance.TempDir()
	fixture := publishFixture{
		remoteDirectory:  filepath.Join(baseDirectory, "remote.git"),
		workingDirectory: filepath.Join(baseDirectory, "checkout"),
	}

	runGit(testInstance, baseDirectory, "init", "--bare", fixture.remoteDirectory)
	runGit(testInstance, baseDirectory, "clone", fixture.remoteDirectory, fixture.workingDirectory)
	runGit(testInstance, fixture.workingDirectory, "checkout", "-b", publishIntegrationBranchConstant)
	return fixture
}

func issueBodyEnvironment(body string) []string {
	return []string{fmt.Sprintf(publishIntegrationIssueBodyEnvConstant, body)}
}

func TestPublishIntegrationPushesDecodedFile(testInstance *testing.T) {
	fixture := newPublishFixture(testInstance)

	encodedContent := base64.StdEncoding.EncodeToString([]byte(publishIntegrationContentConstant))
	wrappedContent := encodedContent[:8] + "\n" + encodedContent[8:]
	issueBody := fmt.Sprintf("I would like to add a file.\n\n{\n  \"path\": %q,\n  \"content\": %q\n}\n", publishIntegrationPathConstant, wrappedContent)

	result := runIntegrationCommand(testInstance, issueBodyEnvironment(issueBody),
		"publish",
		fmt.Sprintf(publishIntegrationRepositoryFlag, fixture.workingDirectory),
		"--branch", publishIntegrationBranchConstant,
		"--committer-name", publishIntegrationCommitterConstant,
		"--committer-email", publishIntegrationEmailConstant,
	)
	require.NoError(testInstance, result.err, result.output)

	writtenContent, readError := os.ReadFile(filepath.Join(fixture.workingDirectory, "assets", "greeting.txt"))
	require.NoError(testInstance, readError)
	require.Equal(testInstance, publishIntegrationContentConstant, string(writtenContent))

	remoteContent := runGit(testInstance, fixture.remoteDirectory, "show", publishIntegrationBranchConstant+":"+publishIntegrationPathConstant)
	require.Equal(testInstance, publishIntegrationContentConstant, remoteContent)

	commitSummary := runGit(testInstance, fixture.remoteDirectory, "log", "-1", "--format=%an|%ae|%s", publishIntegrationBranchConstant)
	require.Equal(testInstance, strings.Join([]string{publishIntegrationCommitterConstant, publishIntegrationEmailConstant, publishIntegrationCommitMessage}, "|"), strings.TrimSpace(commitSummary))
}

func TestPublishIntegrationWithoutPayloadExitsCleanly(testInstance *testing.T) {
	fixture := newPublishFixture(testInstance)

	result := runIntegrationCommand(testInstance, issueBodyEnvironment("path: lonely.txt"),
		"publish",
		fmt.Sprintf(publishIntegrationRepositoryFlag, fixture.workingDirectory),
	)
	require.NoError(testInstance, result.err, result.output)

	entries, readError := os.ReadDir(fixture.workingDirectory)
	require.NoError(testInstance, readError)
	for _, entry := range entries {
		require.Equal(testInstance, ".git", entry.Name())
	}
}

func TestPublishIntegrationRejectsEscapingPath(testInstance *testing.T) {
	fixture := newPublishFixture(testInstance)

	issueBody := fmt.Sprintf(`{"path": "../escaped.txt", "content": %q}`, base64.StdEncoding.EncodeToString([]byte("x")))
	result := runIntegrationCommand(testInstance, issueBodyEnvironment(issueBody),
		"publish",
		fmt.Sprintf(publishIntegrationRepositoryFlag, fixture.workingDirectory),
	)
	require.Error(testInstance, result.err)
	require.Contains(testInstance, result.output, "outside repository root")

	_, statError := os.Stat(filepath.Join(filepath.Dir(fixture.workingDirectory), "escaped.txt"))
	require.True(testInstance, os.IsNotExist(statError))
}
