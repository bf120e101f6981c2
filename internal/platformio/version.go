package platformio

import (
	"regexp"
	"strings"
)

var versionPattern = regexp.MustCompile(`v?(\d+\.\d+\.\d+)`)

// ParseVersion extracts the semantic version from tool output such as
// "PlatformIO Core, version 6.1.15". It returns "" when no version is found.
func ParseVersion(output string) string {
	if m := versionPattern.FindStringSubmatch(output); len(m) >= 2 {
		return m[1]
	}
	return ""
}

// VersionLine returns the first line of output that carries a version.
func VersionLine(lines []string) string {
	for _, l := range lines {
		if ParseVersion(l) != "" {
			return strings.TrimSpace(l)
		}
	}
	return ""
}
