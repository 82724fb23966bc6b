package transform

import (
	"fmt"
	"path"
	"strings"
)

// arrow separates a rule's source from its target.
const arrow = "-->"

// exclude is the target marking matched paths as excluded.
const exclude = "!"

// rule is one compiled match/rename rule.
type rule struct {
	source  string
	target  string
	glob    bool
	exclude bool
}

// Transformer applies an ordered list of match/rename rules to paths.
// It is a pure function of its rules: no side effects, safe for
// concurrent use without synchronization.
type Transformer struct {
	rules []rule
}

// New compiles a rule expression into a Transformer.
// An empty expression yields a Transformer that passes every path
// through unchanged.
func New(expr string) (*Transformer, error) {
	var rules []rule
	for i, line := range strings.Split(expr, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		r, err := parseRule(line)
		if err != nil {
			return nil, fmt.Errorf("rule %d: %w", i+1, err)
		}
		rules = append(rules, r)
	}
	return &Transformer{rules: rules}, nil
}

// parseRule compiles a single rule line.
func parseRule(line string) (rule, error) {
	var r rule

	source, target, found := strings.Cut(line, arrow)
	if !found {
		// Bare pattern: match and keep unchanged.
		target = ""
		source = line
	}
	r.source = normalize(strings.TrimSpace(source))
	target = strings.TrimSpace(target)

	if r.source == "" {
		return rule{}, fmt.Errorf("empty source pattern in %q", line)
	}

	r.glob = strings.ContainsAny(r.source, "*?[")
	if r.glob {
		if _, err := path.Match(r.source, ""); err != nil {
			return rule{}, fmt.Errorf("invalid glob %q: %w", r.source, err)
		}
	}

	switch target {
	case "":
		// keep
	case exclude:
		r.exclude = true
	default:
		if r.glob {
			return rule{}, fmt.Errorf("glob source %q cannot rename, only exclude or keep", r.source)
		}
		r.target = normalize(target)
	}

	return r, nil
}

// normalize cleans a slash-separated path fragment.
func normalize(p string) string {
	p = path.Clean(strings.Trim(p, "/"))
	if p == "." {
		return ""
	}
	return p
}

// Apply evaluates the rules in order against path. It returns the
// destination path and true, or "" and false if the path is excluded.
// Paths matching no rule pass through unchanged.
func (t *Transformer) Apply(p string) (string, bool) {
	p = normalize(p)

	for _, r := range t.rules {
		rest, ok := r.match(p)
		if !ok {
			continue
		}
		if r.exclude {
			return "", false
		}
		if r.target == "" {
			return p, true
		}
		return path.Join(r.target, rest), true
	}
	return p, true
}

// match reports whether p matches the rule. For prefix rules it also
// returns the remainder of p below the source, used for re-rooting.
func (r rule) match(p string) (string, bool) {
	if r.glob {
		if ok, _ := path.Match(r.source, p); ok {
			return "", true
		}
		if ok, _ := path.Match(r.source, path.Base(p)); ok {
			return "", true
		}
		return "", false
	}

	if p == r.source {
		return "", true
	}
	if strings.HasPrefix(p, r.source+"/") {
		return p[len(r.source)+1:], true
	}
	return "", false
}
