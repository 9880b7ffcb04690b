package leader

import (
	"regexp"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"
)

var versionLiteral = regexp.MustCompile(`v?\d+(\.\d+){0,2}(-[0-9A-Za-z.-]+)?(\+[0-9A-Za-z.-]+)?`)

// LowerBound returns the smallest version satisfying spec, which may be an
// exact version ("8", "4.0.1") or a range (">=3", "^1.2", "8.x"). It reports
// false when spec is neither.
//
// The candidates are the versions named in the range, their next patch,
// minor and major releases, and 0.0.0: the lowest version accepted by a
// range of comparators is always one of them.
func LowerBound(spec string) (*semver.Version, bool) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, false
	}

	constraint, err := semver.NewConstraint(spec)
	if err != nil {
		return nil, false
	}

	candidates := []*semver.Version{semver.MustParse("0.0.0")}
	for _, literal := range versionLiteral.FindAllString(spec, -1) {
		v, err := semver.NewVersion(literal)
		if err != nil {
			continue
		}
		patch, minor, major := v.IncPatch(), v.IncMinor(), v.IncMajor()
		candidates = append(candidates, v, &patch, &minor, &major)
	}
	sort.Sort(semver.Collection(candidates))

	for _, v := range candidates {
		if constraint.Check(v) {
			return v, true
		}
	}
	return nil, false
}
