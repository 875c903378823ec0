// Package datename renders and recognizes the dated suffix appended to
// backup directory names.
package datename

import (
	"regexp"
	"time"
)

// SuffixLayout renders a timestamp as `_YYYY-MM-DD-HHhMM`. Minute
// granularity is intentional: repeated runs within the same minute collide
// on the same name instead of silently piling up near-duplicate backups.
const SuffixLayout = "_2006-01-02-15h04"

// namePattern recognizes `<base>_<YYYY>-<MM>-<DD>-<HH>h<MM>` and captures
// the base. The suffix alphabet excludes path separators, so no escaping is
// needed anywhere a composed name is used.
var namePattern = regexp.MustCompile(`^(.+)_\d{4}-\d{2}-\d{2}-\d{2}h\d{2}$`)

// Suffix renders the given time as a dated suffix.
func Suffix(now time.Time) string {
	return now.Format(SuffixLayout)
}

// Compose joins a base name and a suffix into a backup directory name.
func Compose(base, suffix string) string {
	return base + suffix
}

// MatchBase reports whether name carries a dated suffix, and if so returns
// the captured base name.
func MatchBase(name string) (string, bool) {
	m := namePattern.FindStringSubmatch(name)
	if m == nil {
		return "", false
	}
	return m[1], true
}
