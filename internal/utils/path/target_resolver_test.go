package pathutils_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	pathutils "github.com/temirov/issue_upload/internal/utils/path"
)

const (
	testContainedCaseNameConstant        = "nested_path_contained"
	testTraversalCaseNameConstant        = "parent_traversal_rejected"
	testRootItselfCaseNameConstant       = "root_itself_rejected"
	testAbsoluteDeclaredCaseNameConstant = "absolute_declared_path_joined_under_root"
	testSiblingPrefixCaseNameConstant    = "sibling_with_shared_prefix_rejected"
	testHomeDirectoryConstant            = "/home/uploader"
)

func TestTargetPathResolverEnforcesContainment(testInstance *testing.T) {
	repositoryRoot := testInstance.TempDir()

	testCases := []struct {
		name              string
		declaredPath      string
		expectedTarget    string
		expectContainment bool
	}{
		{
			name:           testContainedCaseNameConstant,
			declaredPath:   "uploads/x.zip",
			expectedTarget: filepath.Join(repositoryRoot, "uploads", "x.zip"),
		},
		{
			name:              testTraversalCaseNameConstant,
			declaredPath:      "../outside.txt",
			expectContainment: true,
		},
		{
			name:              testRootItselfCaseNameConstant,
			declaredPath:      ".",
			expectContainment: true,
		},
		{
			name:           testAbsoluteDeclaredCaseNameConstant,
			declaredPath:   "/etc/passwd",
			expectedTarget: filepath.Join(repositoryRoot, "etc", "passwd"),
		},
		{
			name:              testSiblingPrefixCaseNameConstant,
			declaredPath:      "../" + filepath.Base(repositoryRoot) + "-sibling/file.txt",
			expectContainment: true,
		},
	}

	resolver := pathutils.NewTargetPathResolver(true)
	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			resolvedTarget, resolveError := resolver.ResolveTarget(repositoryRoot, testCase.declaredPath)
			if testCase.expectContainment {
				var containmentError pathutils.PathContainmentError
				require.True(testInstance, errors.As(resolveError, &containmentError))
				require.Equal(testInstance, testCase.declaredPath, containmentError.DeclaredPath)
				return
			}
			require.NoError(testInstance, resolveError)
			require.Equal(testInstance, testCase.expectedTarget, resolvedTarget)
		})
	}
}

func TestTargetPathResolverFollowsSymlinks(testInstance *testing.T) {
	repositoryRoot := testInstance.TempDir()
	outsideDirectory := testInstance.TempDir()
	insideDirectory := filepath.Join(repositoryRoot, "assets")
	require.NoError(testInstance, os.MkdirAll(insideDirectory, 0o755))

	if symlinkError := os.Symlink(outsideDirectory, filepath.Join(repositoryRoot, "link")); symlinkError != nil {
		testInstance.Skipf("symlinks unavailable: %v", symlinkError)
	}
	require.NoError(testInstance, os.Symlink(insideDirectory, filepath.Join(repositoryRoot, "alias")))
	require.NoError(testInstance, os.Symlink(filepath.Join(outsideDirectory, "missing.txt"), filepath.Join(repositoryRoot, "dangling.txt")))

	testCases := []struct {
		name              string
		declaredPath      string
		expectedTarget    string
		expectContainment bool
	}{
		{
			name:              "directory_symlink_leaving_root_rejected",
			declaredPath:      "link/evil.txt",
			expectContainment: true,
		},
		{
			name:              "nested_missing_directories_below_escaping_symlink_rejected",
			declaredPath:      "link/deeper/evil.txt",
			expectContainment: true,
		},
		{
			name:              "file_symlink_leaving_root_rejected",
			declaredPath:      "dangling.txt",
			expectContainment: true,
		},
		{
			name:           "symlink_within_root_accepted",
			declaredPath:   "alias/logo.png",
			expectedTarget: filepath.Join(repositoryRoot, "alias", "logo.png"),
		},
	}

	resolver := pathutils.NewTargetPathResolver(true)
	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			resolvedTarget, resolveError := resolver.ResolveTarget(repositoryRoot, testCase.declaredPath)
			if testCase.expectContainment {
				var containmentError pathutils.PathContainmentError
				require.True(testInstance, errors.As(resolveError, &containmentError))
				return
			}
			require.NoError(testInstance, resolveError)
			require.Equal(testInstance, testCase.expectedTarget, resolvedTarget)
		})
	}

	unguardedTarget, unguardedError := pathutils.NewTargetPathResolver(false).ResolveTarget(repositoryRoot, "link/evil.txt")
	require.NoError(testInstance, unguardedError)
	require.Equal(testInstance, filepath.Join(repositoryRoot, "link", "evil.txt"), unguardedTarget)
}

func TestTargetPathResolverWithoutContainmentJoinsVerbatim(testInstance *testing.T) {
	repositoryRoot := testInstance.TempDir()
	resolver := pathutils.NewTargetPathResolver(false)

	resolvedTarget, resolveError := resolver.ResolveTarget(repositoryRoot, "../outside.txt")
	require.NoError(testInstance, resolveError)
	require.Equal(testInstance, filepath.Join(filepath.Dir(repositoryRoot), "outside.txt"), resolvedTarget)

	_, emptyError := resolver.ResolveTarget(repositoryRoot, "")
	require.ErrorIs(testInstance, emptyError, pathutils.ErrDeclaredPathRequired)
}

func TestTargetPathResolverResolvesRepositoryRoot(testInstance *testing.T) {
	resolver := pathutils.NewTargetPathResolverWithProvider(func() (string, error) {
		return testHomeDirectoryConstant, nil
	}, true)

	homeRoot, homeError := resolver.ResolveRepositoryRoot("  ~/checkout  ")
	require.NoError(testInstance, homeError)
	require.Equal(testInstance, filepath.Join(testHomeDirectoryConstant, "checkout"), homeRoot)

	currentRoot, currentError := resolver.ResolveRepositoryRoot("")
	require.NoError(testInstance, currentError)
	expectedCurrentRoot, absoluteError := filepath.Abs(".")
	require.NoError(testInstance, absoluteError)
	require.Equal(testInstance, expectedCurrentRoot, currentRoot)
}
