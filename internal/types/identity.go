package types

import (
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
)

// ComponentID identifies a component by scope, name, and version.
// It is an immutable value: equality and the string form derive from
// all three fields. An empty Version means "latest / unresolved".
type ComponentID struct {
	Scope   string `json:"scope,omitempty" yaml:"scope,omitempty"`
	Name    string `json:"name" yaml:"name"`
	Version string `json:"version,omitempty" yaml:"version,omitempty"`
}

// String renders scope/name@version, omitting absent parts.
func (id ComponentID) String() string {
	var sb strings.Builder
	if id.Scope != "" {
		sb.WriteString(id.Scope)
		sb.WriteString("/")
	}
	sb.WriteString(id.Name)
	if id.Version != "" {
		sb.WriteString("@")
		sb.WriteString(id.Version)
	}
	return sb.String()
}

func (id ComponentID) Equal(other ComponentID) bool {
	return id == other
}

// SameIgnoringVersion reports whether two identities refer to the same
// component regardless of version.
func (id ComponentID) SameIgnoringVersion(other ComponentID) bool {
	return id.Scope == other.Scope && id.Name == other.Name
}

func (id ComponentID) HasVersion() bool {
	return id.Version != ""
}

// WithoutVersion returns the identity with the version cleared.
func (id ComponentID) WithoutVersion() ComponentID {
	id.Version = ""
	return id
}

// ParseComponentID is the inverse of String. Accepted forms:
// name, name@version, scope/name, scope/name@version.
func ParseComponentID(value string) (ComponentID, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return ComponentID{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("component id is required")
	}
	id := ComponentID{}
	if at := strings.LastIndex(trimmed, "@"); at >= 0 {
		id.Version = trimmed[at+1:]
		trimmed = trimmed[:at]
	}
	if slash := strings.LastIndex(trimmed, "/"); slash >= 0 {
		id.Scope = trimmed[:slash]
		trimmed = trimmed[slash+1:]
	}
	id.Name = trimmed
	if id.Name == "" {
		return ComponentID{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("component id has no name part")
	}
	return id, nil
}
