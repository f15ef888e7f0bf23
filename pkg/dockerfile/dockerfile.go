// Package dockerfile identifies Dockerfiles by name and extracts the base
// images referenced by their FROM statements.
//
// The extractor is a best-effort line scanner, not a Dockerfile parser:
// continuation lines, heredocs and ARG expansion of the image reference
// itself are not supported.
package dockerfile

import (
	"regexp"
	"strings"
	"unicode"
)

// fromPattern matches FROM statements with an optional platform flag and an
// optional stage alias: FROM [--platform=...] <image> [AS <name>]
var fromPattern = regexp.MustCompile(`(?i)^\s*FROM\s+(?:--platform=\S+\s+)?(\S+)(?:\s+AS\s+\S+)?`)

// IsDockerfilePath reports whether the final segment of path follows the
// Dockerfile naming convention: exactly Dockerfile or dockerfile, or either
// with a dot suffix such as Dockerfile.prod. DockerfileFoo does not match.
func IsDockerfilePath(path string) bool {
	name := path
	if idx := strings.LastIndex(path, "/"); idx >= 0 {
		name = path[idx+1:]
	}

	return name == "Dockerfile" ||
		name == "dockerfile" ||
		strings.HasPrefix(name, "Dockerfile.") ||
		strings.HasPrefix(name, "dockerfile.")
}

// FilterDockerfiles returns the subset of paths matching the Dockerfile
// naming convention, deduplicated, in input order.
func FilterDockerfiles(paths []string) []string {
	seen := map[string]bool{}

	var dockerfiles []string
	for _, path := range paths {
		if IsDockerfilePath(path) && !seen[path] {
			seen[path] = true
			dockerfiles = append(dockerfiles, path)
		}
	}
	return dockerfiles
}

// ExtractBaseImages returns the set of base image references declared by
// FROM statements in the given Dockerfile content. References are kept
// exactly as written, without normalization.
//
// Tokens naming an earlier build stage (FROM builder) are filtered with a
// heuristic: a token without ':', '/' or '@' that contains no uppercase
// letter is treated as a stage alias and dropped. A token with an uppercase
// letter but no delimiter (FROM MyBaseStage) is kept even though it may
// well be a stage alias.
func ExtractBaseImages(content string) map[string]bool {
	images := map[string]bool{}

	for _, line := range strings.Split(content, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "#") {
			continue
		}

		match := fromPattern.FindStringSubmatch(line)
		if match == nil {
			continue
		}
		image := match[1]

		switch {
		case (!strings.HasPrefix(image, "$") && strings.Contains(image, ":")) ||
			strings.Contains(image, "/") ||
			strings.Contains(image, "@"):
			images[image] = true
		case !containsUpper(image) && !strings.Contains(image, ":"):
			// reference to an earlier build stage
		default:
			images[image] = true
		}
	}

	return images
}

func containsUpper(s string) bool {
	for _, r := range s {
		if unicode.IsUpper(r) {
			return true
		}
	}
	return false
}
