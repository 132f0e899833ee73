// Package naming turns arbitrary content names into short, filesystem-safe
// path segments. Generated names stay short to avoid path-length limits on
// constrained filesystems while keeping enough of the identifier suffix for
// uniqueness within a course.
package naming

import (
	"regexp"
	"strings"
)

const (
	// CourseNameLimit caps the sanitized course name inside a folder name.
	CourseNameLimit = 20
	// ResourceNameLimit caps the sanitized resource name inside folder and file names.
	ResourceNameLimit = 25

	// courseIDSuffixLen and resourceIDSuffixLen are how many trailing
	// identifier characters disambiguate folder and file names.
	courseIDSuffixLen   = 15
	resourceIDSuffixLen = 10
)

var (
	illegalChars  = regexp.MustCompile(`[<>:"/\\|?*]`)
	parenthetical = regexp.MustCompile(`\s*\([^)]*\)\s*`)
	whitespace    = regexp.MustCompile(`\s+`)
	underscores   = regexp.MustCompile(`_+`)
)

// Sanitize replaces characters illegal in filesystem paths with underscores,
// collapses parenthesized suffixes and whitespace runs into single
// underscores, trims leading/trailing underscores, and truncates to maxLen
// with a "..." marker when the name is longer. Pure and deterministic.
// Length is measured in runes, not bytes: course names are often Devanagari,
// and a byte slice would cut mid-rune and leave invalid UTF-8 in paths.
func Sanitize(name string, maxLen int) string {
	name = illegalChars.ReplaceAllString(name, "_")
	name = parenthetical.ReplaceAllString(name, "_")
	name = whitespace.ReplaceAllString(name, "_")
	name = underscores.ReplaceAllString(name, "_")
	name = strings.Trim(name, "_")
	if r := []rune(name); len(r) > maxLen {
		return string(r[:maxLen-3]) + "..."
	}
	return name
}

// IDSuffix returns the last n characters of an identifier, or the whole
// identifier when it is shorter.
func IDSuffix(id string, n int) string {
	if len(id) <= n {
		return id
	}
	return id[len(id)-n:]
}

// CourseFolderName builds the folder name for a course:
// sanitized name (20 chars) plus the last 15 characters of the identifier.
func CourseFolderName(name, id string) string {
	return Sanitize(name, CourseNameLimit) + "_" + IDSuffix(id, courseIDSuffixLen)
}

// ResourceBaseName builds the base name shared by a resource's folder and
// files: sanitized name (25 chars) plus the last 10 characters of the
// identifier.
func ResourceBaseName(name, id string) string {
	return Sanitize(name, ResourceNameLimit) + "_" + IDSuffix(id, resourceIDSuffixLen)
}
