package traceyaml

import (
	"sync"
)

// SpanInfo is the captured state of one span and, recursively, of the
// spans started inside it. Fields are filled in the order the span
// received them.
type SpanInfo struct {
	Name string `yaml:"name"`
	// Renames holds every name passed to SetName.
	Renames []string `yaml:"renames,omitempty"`
	// Root is set for spans started with trace.WithNewRoot, which is how
	// async ranges detach from the enclosing scope.
	Root bool `yaml:"root,omitempty"`
	// Links counts the span links given at start.
	Links      int        `yaml:"links,omitempty"`
	Attributes Attributes `yaml:"attributes,omitempty"`
	Events     []Event    `yaml:"events,omitempty"`
	Errors     []string   `yaml:"errors,omitempty"`
	Status     []Status   `yaml:"status,omitempty"`

	Children []*SpanInfo `yaml:"children,omitempty"`

	mu      *sync.Mutex
	isChild bool
}

// Attributes maps attribute keys to their plain Go values. yaml.v2 sorts
// map keys, which keeps the output stable.
type Attributes map[string]interface{}

// Event is one span.AddEvent call.
type Event struct {
	Name       string     `yaml:"name"`
	Attributes Attributes `yaml:"attributes,omitempty"`
}

// Status is one span.SetStatus call.
type Status struct {
	Code        string `yaml:"code"`
	Description string `yaml:"description,omitempty"`
}
