package manifest

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/Masterminds/semver/v3"
)

var (
	stabilityFlag = regexp.MustCompile(`@(dev|alpha|beta|rc|RC|stable)\b`)
	orSeparator   = regexp.MustCompile(`\s*\|\|?\s*`)
	andSeparator  = regexp.MustCompile(`\s*,\s*|\s+`)
	inlineAlias   = regexp.MustCompile(`\s+as\s+\S+`)
	hyphenRange   = regexp.MustCompile(`\S\s+-\s+\S`)
	detachedOp    = regexp.MustCompile(`(>=|<=|!=|>|<|=|\^|~), `)
	fourSegments  = regexp.MustCompile(`^(\d+\.\d+\.\d+)\.(\d+)(.*)$`)
	fourInRange   = regexp.MustCompile(`(\d+\.\d+\.\d+)\.\d+\b`)
)

// linkSections are the manifest keys holding package => constraint maps.
var linkSections = []string{"require", "require-dev", "conflict", "provide", "replace"}

// Lint reports problems the schema cannot express: a "version" that is not
// a semantic version and package constraints that do not parse. Branch
// names ("dev-main", "2.x-dev"), four-segment versions, platform packages
// and wildcards are accepted.
func Lint(v Value) []ValidationIssue {
	m, ok := v.(*Map)
	if !ok {
		return nil
	}

	var issues []ValidationIssue

	if raw, found := m.Get("version"); found {
		if s, isStr := raw.(string); isStr && !isBranchRef(strings.TrimSpace(s)) {
			if _, err := ParseVersion(s); err != nil {
				issues = append(issues, ValidationIssue{
					Path:    "/version",
					Message: fmt.Sprintf("%q is not a valid version: %v", s, err),
					Keyword: "lint",
				})
			}
		}
	}

	for _, section := range linkSections {
		raw, found := m.Get(section)
		if !found {
			continue
		}
		links, isMap := raw.(*Map)
		if !isMap {
			continue
		}
		for _, pkg := range links.Keys() {
			c, _ := links.Get(pkg)
			s, isStr := c.(string)
			if !isStr {
				continue
			}
			if err := CheckConstraint(s); err != nil {
				issues = append(issues, ValidationIssue{
					Path:    "/" + section + "/" + pkg,
					Message: fmt.Sprintf("invalid constraint %q: %v", s, err),
					Keyword: "lint",
				})
			}
		}
	}
	return issues
}

// ParseVersion parses a package version, tolerating a leading "v" and a
// fourth numeric segment ("1.2.3.4"). A non-zero fourth segment is kept as
// build metadata.
func ParseVersion(s string) (*semver.Version, error) {
	v := strings.TrimPrefix(strings.TrimSpace(s), "v")
	if m := fourSegments.FindStringSubmatch(v); m != nil {
		v = m[1] + m[3]
		if m[2] != "0" && !strings.Contains(m[3], "+") {
			v += "+" + m[2]
		}
	}
	return semver.NewVersion(v)
}

// CheckConstraint verifies that a version constraint parses. The host's
// dialect is mapped onto semver ranges first: stability flags and inline
// aliases are dropped, "|" becomes "||", and space or comma separate AND
// terms. Branch references ("dev-feature", "1.x-dev") are accepted as is.
func CheckConstraint(s string) error {
	c := strings.TrimSpace(s)
	if c == "" {
		return fmt.Errorf("empty constraint")
	}
	c = inlineAlias.ReplaceAllString(c, "")
	c = stabilityFlag.ReplaceAllString(c, "")
	c = fourInRange.ReplaceAllString(c, "$1")

	var ors []string
	for _, alt := range orSeparator.Split(strings.TrimSpace(c), -1) {
		alt = strings.TrimSpace(alt)
		if hyphenRange.MatchString(alt) {
			ors = append(ors, alt)
			continue
		}
		var ands []string
		for _, term := range andSeparator.Split(alt, -1) {
			if term == "" || isBranchRef(term) {
				continue
			}
			ands = append(ands, term)
		}
		if len(ands) > 0 {
			ors = append(ors, strings.Join(ands, ", "))
		}
	}
	if len(ors) == 0 {
		return nil
	}

	_, err := semver.NewConstraint(joinRangeOperators(strings.Join(ors, " || ")))
	return err
}

// joinRangeOperators re-attaches operators that were split from their
// version by a space (">= 1.0" becomes ">=1.0").
func joinRangeOperators(s string) string {
	return detachedOp.ReplaceAllString(s, "$1")
}

func isBranchRef(term string) bool {
	return strings.HasPrefix(term, "dev-") || strings.HasSuffix(term, "-dev") || term == "self.version"
}
