package warpdrive

import (
	"regexp"

	"github.com/cloudcopper/warpdrive/domain/models"
)

type Matcher interface {
	Match(fileName string) bool
}

type regexpMatcher struct {
	re *regexp.Regexp
}

func (m regexpMatcher) Match(fileName string) bool {
	return m.re.MatchString(fileName)
}

// MatchRegexp matches file names by regular expression
func MatchRegexp(re *regexp.Regexp) Matcher {
	return regexpMatcher{re: re}
}

// MatchFunc adapts plain predicate to Matcher
type MatchFunc func(fileName string) bool

func (f MatchFunc) Match(fileName string) bool {
	return f(fileName)
}

// IncludeBy receives only file names already matched by some Matcher
type IncludeBy func(fileName string, host models.HostContext) bool

// Filter decides which assets are uploaded to remote.
// The file must match at least one matcher, and then IncludeBy (if any) decides.
type Filter struct {
	include   []Matcher
	includeBy IncludeBy
}

func NewFilter(include []Matcher, includeBy IncludeBy) *Filter {
	return &Filter{
		include:   include,
		includeBy: includeBy,
	}
}

func (f *Filter) Include(fileName string, host models.HostContext) bool {
	matched := false
	for _, m := range f.include {
		if m.Match(fileName) {
			matched = true
			break
		}
	}
	if !matched {
		return false
	}
	if f.includeBy == nil {
		return true
	}
	return f.includeBy(fileName, host)
}
