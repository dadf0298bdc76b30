package catalog

import (
	"sync"

	"gopkg.in/yaml.v3"
)

const conceptsFile = "concepts.yaml"

// DefaultConceptDescription is shown for concepts without a curated description.
const DefaultConceptDescription = "A key idea you explored in this simulation."

var loadConcepts = sync.OnceValue(func() map[string]string {
	data, err := builtin.ReadFile("content/" + conceptsFile)
	if err != nil {
		return map[string]string{}
	}
	out := map[string]string{}
	if err := yaml.Unmarshal(data, &out); err != nil {
		return map[string]string{}
	}
	return out
})

// ConceptDescription returns the short explanation of a concept shown on the results page.
func ConceptDescription(concept string) string {
	if d, ok := loadConcepts()[concept]; ok {
		return d
	}
	return DefaultConceptDescription
}

// Concept pairs a concept name with its description.
type Concept struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Concepts describes every concept listed by names, in order.
func Concepts(names []string) []Concept {
	out := make([]Concept, 0, len(names))
	for _, n := range names {
		out = append(out, Concept{Name: n, Description: ConceptDescription(n)})
	}
	return out
}
