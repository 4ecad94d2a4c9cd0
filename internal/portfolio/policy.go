package portfolio

import (
	"fmt"
	"strings"
)

// WritePolicy decides what a POST to a category does.
type WritePolicy int

const (
	// Append pushes the entry under a freshly generated key.
	Append WritePolicy = iota
	// Overwrite replaces the whole category value with the entry.
	Overwrite
)

func (p WritePolicy) String() string {
	switch p {
	case Overwrite:
		return "overwrite"
	default:
		return "append"
	}
}

func ParseWritePolicy(s string) (WritePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "overwrite":
		return Overwrite, nil
	case "append":
		return Append, nil
	default:
		return Append, fmt.Errorf("unknown write policy: %q", s)
	}
}

// DefaultPolicies lists the singleton categories. Every other category is a
// list of items.
func DefaultPolicies() map[string]WritePolicy {
	return map[string]WritePolicy{
		"profile":     Overwrite,
		"socials":     Overwrite,
		"description": Overwrite,
	}
}

// Policies maps category names to write policies; unknown categories Append.
type Policies struct {
	byCategory map[string]WritePolicy
}

// NewPolicies builds the policy table from the defaults plus overrides,
// as read from the [write_policies] config table.
func NewPolicies(overrides map[string]string) (*Policies, error) {
	byCategory := DefaultPolicies()
	for category, raw := range overrides {
		policy, err := ParseWritePolicy(raw)
		if err != nil {
			return nil, fmt.Errorf("category %s: %w", category, err)
		}
		byCategory[category] = policy
	}
	return &Policies{byCategory: byCategory}, nil
}

func (p *Policies) For(category string) WritePolicy {
	if policy, ok := p.byCategory[category]; ok {
		return policy
	}
	return Append
}

// Singletons returns the categories written with Overwrite.
func (p *Policies) Singletons() map[string]bool {
	singletons := map[string]bool{}
	for category, policy := range p.byCategory {
		if policy == Overwrite {
			singletons[category] = true
		}
	}
	return singletons
}
