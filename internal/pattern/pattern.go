// Package pattern defines the extraction rules and their matching helpers.
// Rules are data: adding a phrasing variant or a new language is a table
// change in tables.go, not a new code path.
package pattern

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/pocketmoney/chatledger/internal/model"
)

// Rule is a single extraction pattern with the confidence weight a match
// contributes. Weight zero marks rules that only capture metadata.
type Rule struct {
	Name     string
	Expr     string
	Language model.Language
	Weight   float64
}

// CompiledRule pairs a rule with its compiled expression.
type CompiledRule struct {
	re *regexp.Regexp
	Rule
}

// Match records one successful application of a rule to a message.
type Match struct {
	groups map[string]string
	Rule   Rule
}

// Group returns the named capture from the match, trimmed of surrounding
// whitespace. Missing or unmatched groups return the empty string.
func (m Match) Group(name string) string {
	return strings.TrimSpace(m.groups[name])
}

// Set is an ordered collection of compiled rules. Order matters for
// first-match-wins lookups.
type Set []CompiledRule

// Compile builds a Set from rules. Expressions are compiled
// case-insensitively so tables can stay readable.
func Compile(rules []Rule) (Set, error) {
	set := make(Set, 0, len(rules))
	for _, r := range rules {
		expr := r.Expr
		if !strings.HasPrefix(expr, "(?i)") {
			expr = "(?i)" + expr
		}
		re, err := regexp.Compile(expr)
		if err != nil {
			return nil, fmt.Errorf("compiling rule %q: %w", r.Name, err)
		}
		set = append(set, CompiledRule{re: re, Rule: r})
	}
	return set, nil
}

// MustCompile is Compile for the built-in tables, panicking on error.
func MustCompile(rules []Rule) Set {
	set, err := Compile(rules)
	if err != nil {
		panic(err)
	}
	return set
}

// First returns the first match in rule order. Rules earlier in the table
// win over later ones regardless of position in the text.
func (s Set) First(text string) (Match, bool) {
	for _, cr := range s {
		if m, ok := cr.match(cr.re.FindStringSubmatch(text)); ok {
			return m, true
		}
	}
	return Match{}, false
}

// FindAll returns every match of every rule, in rule order then text order.
// Extraction flows that accumulate line items use this.
func (s Set) FindAll(text string) []Match {
	var matches []Match
	for _, cr := range s {
		for _, sub := range cr.re.FindAllStringSubmatch(text, -1) {
			if m, ok := cr.match(sub); ok {
				matches = append(matches, m)
			}
		}
	}
	return matches
}

func (cr CompiledRule) match(sub []string) (Match, bool) {
	if sub == nil {
		return Match{}, false
	}
	groups := make(map[string]string)
	for i, name := range cr.re.SubexpNames() {
		if name == "" || i >= len(sub) {
			continue
		}
		groups[name] = sub[i]
	}
	return Match{groups: groups, Rule: cr.Rule}, true
}

// Raise returns the running-maximum confidence after a rule match. Scores
// only ever move up toward the strongest single signal and never exceed 1.
func Raise(current, weight float64) float64 {
	if weight > current {
		current = weight
	}
	if current > 1 {
		return 1
	}
	return current
}
