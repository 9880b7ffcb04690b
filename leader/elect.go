// Package leader elects the job of a build matrix that acts on behalf of
// the whole build.
//
// The leader is the job running the most recent runtime: the latest stable
// alias first, then the highest explicit version or range lower bound, then
// the latest LTS alias. Ties always go to the job declared last. When no job
// names a recognizable version, the last job of the build is elected.
package leader

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/mongodb/grip"
	"github.com/mongodb/grip/logging"
	deployonce "github.com/semantic-release/travis-deploy-once"
	"github.com/semantic-release/travis-deploy-once/model/job"
)

// Elect returns the 1-based position of the build leader among the version
// specifiers of the jobs of a build, in declaration order. Jobs without a
// specifier keep their position. The decision is logged on logger.
func Elect(specs []job.Specifier, logger grip.Journaler) int {
	if logger == nil {
		logger = logging.MakeGrip(grip.GetSender())
	}

	if len(specs) <= 1 {
		logger.Info("Elected job 1 as build leader: there is a single job.")
		return 1
	}

	if pos := lastIndex(specs, isLatestStable); pos > 0 {
		logger.Infof("Elected job %d as build leader: it runs the latest stable version '%s'.", pos, specs[pos-1])
		return pos
	}

	if pos, bound := highestLowerBound(specs); pos > 0 {
		logger.Infof("Elected job %d as build leader: it runs the highest version '%s' (lower bound %s).", pos, specs[pos-1], bound)
		return pos
	}

	if pos := lastIndex(specs, isLTS); pos > 0 {
		logger.Infof("Elected job %d as build leader: it runs the latest LTS version '%s'.", pos, specs[pos-1])
		return pos
	}

	logger.Infof("Elected job %d as build leader: no job declares a recognizable version, falling back to the last job.", len(specs))
	return len(specs)
}

// lastIndex returns the 1-based position of the last specifier matching fn,
// or 0.
func lastIndex(specs []job.Specifier, fn func(string) bool) int {
	for i := len(specs) - 1; i >= 0; i-- {
		if fn(strings.TrimSpace(string(specs[i]))) {
			return i + 1
		}
	}
	return 0
}

func isLatestStable(spec string) bool {
	return spec == deployonce.LatestStableAlias
}

func isLTS(spec string) bool {
	return spec == deployonce.LTSAlias || strings.HasPrefix(spec, deployonce.LTSAlias+"/")
}

// highestLowerBound returns the position of the last specifier with the
// highest effective lower bound, and that bound. The position is 0 when no
// specifier is a version or range.
func highestLowerBound(specs []job.Specifier) (int, *semver.Version) {
	var (
		pos     int
		highest *semver.Version
	)
	for i, spec := range specs {
		bound, ok := LowerBound(string(spec))
		if !ok {
			continue
		}
		if highest == nil || !bound.LessThan(highest) {
			pos = i + 1
			highest = bound
		}
	}
	return pos, highest
}

// String renders the election inputs for diagnostics.
func String(specs []job.Specifier) string {
	parts := make([]string, 0, len(specs))
	for _, spec := range specs {
		parts = append(parts, fmt.Sprintf("%q", string(spec)))
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
