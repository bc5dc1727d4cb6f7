package platform

import (
	"strconv"
	"strings"
)

type versionParts struct {
	major int
	minor int
}

// splitVersion reads the major.minor prefix of a game version. Labels that are
// not dotted numbers, like the loader names CurseForge lists among its game
// versions or "1.21-snapshot", are rejected.
func splitVersion(version string) (versionParts, bool) {
	segments := strings.Split(strings.TrimSpace(version), ".")
	if len(segments) < 2 {
		return versionParts{}, false
	}

	major, err := strconv.Atoi(segments[0])
	if err != nil {
		return versionParts{}, false
	}
	minor, err := strconv.Atoi(segments[1])
	if err != nil {
		return versionParts{}, false
	}
	return versionParts{major: major, minor: minor}, true
}

func exactGameVersion(target string) func(string) bool {
	target = strings.TrimSpace(target)
	return func(candidate string) bool {
		return strings.TrimSpace(candidate) == target
	}
}

// sameMajorMinor accepts any version of the target's major.minor line, so
// 1.20.4 accepts files published for 1.20 or 1.20.2.
func sameMajorMinor(target string) func(string) bool {
	want, ok := splitVersion(target)
	return func(candidate string) bool {
		if !ok {
			return false
		}
		got, valid := splitVersion(candidate)
		return valid && got == want
	}
}
