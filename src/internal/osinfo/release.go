package osinfo

import "strings"

// ReleaseInfo maps upper-cased release file keys (NAME, VERSION_ID,
// PRETTY_NAME, DISTRIB_ID, ...) to their raw, possibly quoted, values.
type ReleaseInfo map[string]string

// ParseRelease reads KEY=value lines. Lines without '=' are ignored and a
// later occurrence of a key overwrites an earlier one, so files concatenated
// later take precedence.
func ParseRelease(text string) ReleaseInfo {
	info := make(ReleaseInfo)
	for line := range strings.SplitSeq(text, "\n") {
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		info[strings.ToUpper(strings.TrimSpace(key))] = strings.TrimSpace(value)
	}
	return info
}

// IdentityFromRelease derives the distribution name and release from parsed
// release data.
func IdentityFromRelease(platform string, info ReleaseInfo) Identity {
	distro := unquote(firstNonEmpty(info["DISTRIB_ID"], info["NAME"], unknown))

	version := unquote(info["VERSION"])
	pretty := unquote(info["PRETTY_NAME"])
	if rest, ok := strings.CutPrefix(pretty, distro+" "); ok {
		version = strings.TrimSpace(rest)
	}
	version = stripSuffix(version)

	release := stripSuffix(unquote(firstNonEmpty(version, info["DISTRIB_RELEASE"], info["VERSION_ID"], unknown)))
	if release == "" {
		release = unknown
	}
	if distro == "" {
		distro = unknown
	}

	return Identity{Platform: platform, Distro: distro, Release: release}
}

// stripSuffix drops a parenthesized codename such as "11 (bullseye)".
func stripSuffix(s string) string {
	if before, _, ok := strings.Cut(s, "("); ok {
		return strings.TrimSpace(before)
	}
	return s
}

func unquote(s string) string {
	return strings.ReplaceAll(s, `"`, "")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
