package pathutils

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

const (
	tildeSymbolConstant                      = "~"
	tildeForwardSlashPrefixConstant          = "~/"
	currentDirectoryConstant                 = "."
	windowsOperatingSystemConstant           = "windows"
	declaredPathRequiredMessageConstant      = "declared path must be provided"
	pathContainmentErrorTemplateConstant     = "declared path %q resolves to %s outside repository root %s"
	repositoryRootResolutionTemplateConstant = "unable to resolve repository root %q: %w"
)

// ErrDeclaredPathRequired indicates the declared upload path was empty.
var ErrDeclaredPathRequired = errors.New(declaredPathRequiredMessageConstant)

// PathContainmentError reports a declared path that resolves outside the repository root.
type PathContainmentError struct {
	DeclaredPath   string
	ResolvedPath   string
	RepositoryRoot string
}

// Error describes the escaping path.
func (containmentError PathContainmentError) Error() string {
	return fmt.Sprintf(pathContainmentErrorTemplateConstant, containmentError.DeclaredPath, containmentError.ResolvedPath, containmentError.RepositoryRoot)
}

// HomeDirectoryProvider resolves the current user's home directory path.
type HomeDirectoryProvider func() (string, error)

// TargetPathResolver maps declared upload paths onto a repository checkout.
type TargetPathResolver struct {
	homeDirectoryProvider HomeDirectoryProvider
	enforceContainment    bool
}

// NewTargetPathResolver constructs a resolver. When enforceContainment is false, declared
// paths are joined to the root without any check.
func NewTargetPathResolver(enforceContainment bool) *TargetPathResolver {
	return NewTargetPathResolverWithProvider(os.UserHomeDir, enforceContainment)
}

// NewTargetPathResolverWithProvider constructs a resolver with a custom home directory lookup.
func NewTargetPathResolverWithProvider(provider HomeDirectoryProvider, enforceContainment bool) *TargetPathResolver {
	if provider == nil {
		provider = os.UserHomeDir
	}
	return &TargetPathResolver{homeDirectoryProvider: provider, enforceContainment: enforceContainment}
}

// ResolveRepositoryRoot expands a leading tilde and returns the cleaned absolute root.
// An empty candidate resolves to the current directory.
func (resolver *TargetPathResolver) ResolveRepositoryRoot(candidateRoot string) (string, error) {
	trimmedRoot := strings.TrimSpace(candidateRoot)
	if len(trimmedRoot) == 0 {
		trimmedRoot = currentDirectoryConstant
	}

	expandedRoot := resolver.expandHome(trimmedRoot)
	absoluteRoot, absoluteError := filepath.Abs(expandedRoot)
	if absoluteError != nil {
		return "", fmt.Errorf(repositoryRootResolutionTemplateConstant, candidateRoot, absoluteError)
	}
	return filepath.Clean(absoluteRoot), nil
}

// ResolveTarget joins the declared path to the repository root. With containment enforced,
// the target must stay below the root both lexically and after symlinks in its existing
// ancestors are followed.
func (resolver *TargetPathResolver) ResolveTarget(repositoryRoot string, declaredPath string) (string, error) {
	if len(declaredPath) == 0 {
		return "", ErrDeclaredPathRequired
	}

	cleanedRoot := filepath.Clean(repositoryRoot)
	resolvedTarget := filepath.Join(cleanedRoot, declaredPath)
	if !resolver.enforceContainment {
		return resolvedTarget, nil
	}

	if !isStrictlyNestedPath(cleanedRoot, resolvedTarget) {
		return "", PathContainmentError{DeclaredPath: declaredPath, ResolvedPath: resolvedTarget, RepositoryRoot: cleanedRoot}
	}

	physicalRoot, rootError := physicalPath(cleanedRoot)
	physicalTarget, targetError := physicalPath(resolvedTarget)
	if rootError != nil || targetError != nil || !isStrictlyNestedPath(physicalRoot, physicalTarget) {
		return "", PathContainmentError{DeclaredPath: declaredPath, ResolvedPath: physicalTarget, RepositoryRoot: cleanedRoot}
	}
	return resolvedTarget, nil
}

// physicalPath follows symlinks through the deepest existing ancestor of candidate and
// re-attaches the components that do not exist yet.
func physicalPath(candidate string) (string, error) {
	existingAncestor := candidate
	var missingComponents []string
	for {
		if _, statError := os.Lstat(existingAncestor); statError == nil {
			break
		}
		parentDirectory := filepath.Dir(existingAncestor)
		if parentDirectory == existingAncestor {
			return candidate, nil
		}
		missingComponents = append([]string{filepath.Base(existingAncestor)}, missingComponents...)
		existingAncestor = parentDirectory
	}

	evaluatedAncestor, evaluationError := filepath.EvalSymlinks(existingAncestor)
	if evaluationError != nil {
		return candidate, evaluationError
	}
	return filepath.Join(append([]string{evaluatedAncestor}, missingComponents...)...), nil
}

func (resolver *TargetPathResolver) expandHome(candidatePath string) string {
	if !strings.HasPrefix(candidatePath, tildeSymbolConstant) {
		return candidatePath
	}

	homeDirectory, homeDirectoryError := resolver.homeDirectoryProvider()
	if homeDirectoryError != nil || len(homeDirectory) == 0 {
		return candidatePath
	}

	if candidatePath == tildeSymbolConstant {
		return homeDirectory
	}

	tildeWithSeparator := tildeSymbolConstant + string(os.PathSeparator)
	for _, prefix := range []string{tildeForwardSlashPrefixConstant, tildeWithSeparator} {
		if strings.HasPrefix(candidatePath, prefix) {
			return filepath.Join(homeDirectory, strings.TrimPrefix(candidatePath, prefix))
		}
	}

	return candidatePath
}

func comparisonPath(path string) string {
	comparison := filepath.Clean(path)
	if runtime.GOOS == windowsOperatingSystemConstant {
		comparison = strings.ToLower(comparison)
	}
	return comparison
}

// isStrictlyNestedPath reports whether candidate lies below parent; parent itself does not count.
func isStrictlyNestedPath(parent string, candidate string) bool {
	parentClean := comparisonPath(parent)
	candidateClean := comparisonPath(candidate)

	if len(candidateClean) <= len(parentClean) {
		return false
	}

	if !strings.HasPrefix(candidateClean, parentClean) {
		return false
	}

	if parentClean[len(parentClean)-1] == os.PathSeparator {
		return true
	}

	return candidateClean[len(parentClean)] == os.PathSeparator
}
