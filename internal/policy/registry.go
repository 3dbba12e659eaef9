package policy

import (
	"fmt"
	"sort"
)

const (
	// ScreenPolicyID identifies the classifier vocabulary.
	ScreenPolicyID = "screen"

	// TypingPolicyID identifies the keyboard vocabulary.
	TypingPolicyID = "typing"
)

// Registry holds all content vocabularies.
type Registry struct {
	policies map[string]VocabularyPolicy
}

// NewRegistry creates a registry with all default policies.
func NewRegistry() *Registry {
	r := &Registry{
		policies: make(map[string]VocabularyPolicy),
	}

	r.Register(NewScreenPolicy())
	r.Register(NewTypingPolicy())

	return r
}

// NewRegistryWithPolicies creates a registry with custom policies (for testing).
func NewRegistryWithPolicies(policies ...VocabularyPolicy) *Registry {
	r := &Registry{
		policies: make(map[string]VocabularyPolicy),
	}
	for _, p := range policies {
		r.Register(p)
	}
	return r
}

// Register adds a policy to the registry, replacing any policy with the same ID.
func (r *Registry) Register(p VocabularyPolicy) {
	r.policies[p.ID()] = p
}

// Get returns a policy by ID.
func (r *Registry) Get(id string) (VocabularyPolicy, bool) {
	p, ok := r.policies[id]
	return p, ok
}

// GetAll returns all registered policies ordered by ID.
func (r *Registry) GetAll() []VocabularyPolicy {
	result := make([]VocabularyPolicy, 0, len(r.policies))
	for _, id := range r.List() {
		result = append(result, r.policies[id])
	}
	return result
}

// List returns all policy IDs in sorted order.
func (r *Registry) List() []string {
	ids := make([]string, 0, len(r.policies))
	for id := range r.policies {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Vocabulary compiles the policy with the given ID.
func (r *Registry) Vocabulary(id string) (*Vocabulary, error) {
	p, ok := r.Get(id)
	if !ok {
		return nil, fmt.Errorf("policy not found: %s", id)
	}
	return Compile(p)
}
