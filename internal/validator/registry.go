package validator

import (
	"sort"

	"formscan/internal/domain"
)

// Scope says whether a rule inspects a line item or a form header.
type Scope string

const (
	ScopeItem   Scope = "item"
	ScopeHeader Scope = "header"
)

// Rule is a single built-in check. Rules are pure: they read the target and
// return issues, never mutate it and never panic on a foreign type.
type Rule struct {
	ruleKey  string
	ruleName string
	formType domain.FormType
	scope    Scope
	check    func(target any) []domain.ValidationIssue
}

func (r *Rule) RuleKey() string           { return r.ruleKey }
func (r *Rule) RuleName() string          { return r.ruleName }
func (r *Rule) FormType() domain.FormType { return r.formType }
func (r *Rule) Scope() Scope              { return r.scope }

// Check runs the rule against target.
func (r *Rule) Check(target any) []domain.ValidationIssue {
	return r.check(target)
}

// itemRule adapts a typed item check. Both T and *T are accepted.
func itemRule[T any](ft domain.FormType, key, name string, fn func(*T) []domain.ValidationIssue) *Rule {
	return &Rule{ruleKey: key, ruleName: name, formType: ft, scope: ScopeItem, check: adapt(fn)}
}

// headerRule adapts a typed header check. Both T and *T are accepted.
func headerRule[T any](ft domain.FormType, key, name string, fn func(*T) []domain.ValidationIssue) *Rule {
	return &Rule{ruleKey: key, ruleName: name, formType: ft, scope: ScopeHeader, check: adapt(fn)}
}

func adapt[T any](fn func(*T) []domain.ValidationIssue) func(any) []domain.ValidationIssue {
	return func(target any) []domain.ValidationIssue {
		switch v := target.(type) {
		case T:
			return fn(&v)
		case *T:
			if v == nil {
				return nil
			}
			return fn(v)
		default:
			return nil
		}
	}
}

// Registry holds rules keyed by form type, in registration order.
type Registry struct {
	rules map[domain.FormType][]*Rule
	keys  map[string]bool
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		rules: make(map[domain.FormType][]*Rule),
		keys:  make(map[string]bool),
	}
}

// Register adds a rule. A rule key registered twice is ignored.
func (r *Registry) Register(rule *Rule) {
	if r.keys[rule.ruleKey] {
		return
	}
	r.keys[rule.ruleKey] = true
	r.rules[rule.formType] = append(r.rules[rule.formType], rule)
}

// Rules returns the rules for ft and scope.
func (r *Registry) Rules(ft domain.FormType, scope Scope) []*Rule {
	var out []*Rule
	for _, rule := range r.rules[ft] {
		if rule.scope == scope {
			out = append(out, rule)
		}
	}
	return out
}

// All returns all registered rules sorted by key.
func (r *Registry) All() []*Rule {
	var out []*Rule
	for _, rules := range r.rules {
		out = append(out, rules...)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ruleKey < out[j].ruleKey })
	return out
}

// DefaultRegistry returns a registry with every built-in rule.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, rule := range BuiltinRules() {
		r.Register(rule)
	}
	return r
}
