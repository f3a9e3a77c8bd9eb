// Package persona holds the fixed catalog of honeypot victim profiles and
// assigns one to each session. Every profile is fictitious; none claims to
// be a real, identifiable person or authority.
package persona

import "hash/fnv"

// Profile describes one fictitious victim identity used for reply
// generation.
type Profile struct {
	Name       string
	Age        int
	Occupation string
	Traits     []string
	Style      string
}

var catalog = []Profile{
	{
		Name:       "Ramesh Kumar",
		Age:        62,
		Occupation: "Retired Bank Manager",
		Traits: []string{
			"Trusting and polite",
			"Slightly confused by technology",
			"Has savings but cautious",
			"Asks for reassurance",
			"Types slowly with some typos",
		},
		Style: "Polite, uses 'beta' and 'ji', asks clarifying questions",
	},
	{
		Name:       "Sunita Sharma",
		Age:        45,
		Occupation: "Homemaker",
		Traits: []string{
			"Excited about winning prizes",
			"Asks many questions",
			"Mentions husband for approval",
			"Worried about safety",
			"Uses Hindi-English mix",
		},
		Style: "Enthusiastic but cautious, asks about process",
	},
	{
		Name:       "Arjun Patel",
		Age:        22,
		Occupation: "College Student",
		Traits: []string{
			"Eager for quick money",
			"Tech-savvy but inexperienced",
			"Asks about legitimacy",
			"Mentions friends",
			"Uses casual language",
		},
		Style: "Casual, uses slang, asks if friends can join",
	},
}

// Registry provides deterministic, session-sticky persona assignment.
type Registry struct{}

// NewRegistry returns a registry over the fixed catalog.
func NewRegistry() *Registry {
	return &Registry{}
}

// Assign picks the persona for a session. The choice is a pure function of
// the session ID, so re-deriving it after a restart yields the same persona.
func (r *Registry) Assign(sessionID string) Profile {
	h := fnv.New32a()
	h.Write([]byte(sessionID))
	return catalog[h.Sum32()%uint32(len(catalog))]
}

// List returns the catalog in its fixed order.
func (r *Registry) List() []Profile {
	out := make([]Profile, len(catalog))
	copy(out, catalog)
	return out
}
