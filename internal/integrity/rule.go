package integrity

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/roach88/staffsync/internal/domain"
)

// ValidateFunc checks one document. Returned issues need only Severity,
// Field, Message and the repair fields; the scanner fills in identity.
type ValidateFunc func(ctx context.Context, doc domain.Document, env *Env) []Issue

// Rule is a named check over one entity type. Lower Priority runs first.
type Rule struct {
	Name        string
	Description string
	EntityType  domain.EntityType
	Priority    int
	Validate    ValidateFunc
}

func (r Rule) check() error {
	if r.Name == "" {
		return errors.New("rule name is required")
	}
	if !r.EntityType.Valid() {
		return fmt.Errorf("rule %s: unknown entity type %q", r.Name, r.EntityType)
	}
	if r.Validate == nil {
		return fmt.Errorf("rule %s: validate function is required", r.Name)
	}
	return nil
}

// registry holds built-in and custom rules per entity type. Built-ins are
// registered first so a stable sort keeps them ahead of custom rules with
// the same priority.
type registry struct {
	mu     sync.RWMutex
	byType map[domain.EntityType][]Rule
}

func newRegistry(builtins []Rule) *registry {
	r := &registry{byType: make(map[domain.EntityType][]Rule)}
	for _, rule := range builtins {
		r.byType[rule.EntityType] = append(r.byType[rule.EntityType], rule)
	}
	r.sortAll()
	return r
}

func (r *registry) add(rule Rule) error {
	if err := rule.check(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.byType[rule.EntityType] {
		if existing.Name == rule.Name {
			return fmt.Errorf("rule %s already registered for %s", rule.Name, rule.EntityType)
		}
	}
	r.byType[rule.EntityType] = append(r.byType[rule.EntityType], rule)
	sortRules(r.byType[rule.EntityType])
	return nil
}

func (r *registry) rules(t domain.EntityType) []Rule {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Rule(nil), r.byType[t]...)
}

func (r *registry) sortAll() {
	for _, rules := range r.byType {
		sortRules(rules)
	}
}

func sortRules(rules []Rule) {
	sort.SliceStable(rules, func(i, j int) bool { return rules[i].Priority < rules[j].Priority })
}
