// Package platform holds the per-platform selector tables and the rules
// that identify which messaging surface a page belongs to. Selectors are
// isolated here because messaging sites change their DOM frequently; when
// extraction breaks, this file is the one to update. New platforms are
// additive data, not new code paths.
package platform

import "strings"

// SelectorPair is a primary/fallback pair of CSS selectors for one semantic
// role in the page. The primary is the semantic locator (aria roles, data
// attributes); the fallback is a structural one that tends to survive
// markup drift. Pure data, never mutated at runtime.
type SelectorPair struct {
	Primary  string `yaml:"primary"`
	Fallback string `yaml:"fallback"`
}

// Role names one semantic element lookup in the selector table.
type Role string

const (
	ChatList      Role = "chatList"
	ChatListItem  Role = "chatListItem"
	ChatName      Role = "chatName"
	ChatPreview   Role = "chatPreview"
	ChatTime      Role = "chatTime"
	ChatLink      Role = "chatLink"
	ChatHeader    Role = "chatHeader"
	MessagesPane  Role = "messagesPane"
	MessageGroup  Role = "messageGroup"
	GroupSender   Role = "groupSender"
	GroupTime     Role = "groupTime"
	MessageItem   Role = "messageItem"
	ItemSender    Role = "itemSender"
	ItemTime      Role = "itemTime"
	MessageBubble Role = "messageBubble"
	MessageText   Role = "messageText"
)

// Platform describes one supported messaging surface: identification rules
// plus its selector table. Immutable after registration.
type Platform struct {
	// ID is the short machine identifier ("linkedin").
	ID string `yaml:"id"`
	// Label is the human-readable name shown in UIs.
	Label string `yaml:"label"`
	// Hosts are substring patterns matched against the page host.
	Hosts []string `yaml:"hosts"`
	// PathPrefix marks the messaging surface within the site.
	PathPrefix string `yaml:"path_prefix"`
	// CanonicalName is the platform value written into export records.
	CanonicalName string `yaml:"canonical_name"`
	// Selectors maps each role to its primary/fallback pair.
	Selectors map[Role]SelectorPair `yaml:"selectors"`
}

// Selector returns the pair for a role. Missing roles yield an empty pair,
// which matches nothing.
func (p *Platform) Selector(role Role) SelectorPair {
	return p.Selectors[role]
}

// Matches reports whether the platform's host patterns and path prefix
// cover the given location.
func (p *Platform) Matches(host, path string) bool {
	if !strings.HasPrefix(path, p.PathPrefix) {
		return false
	}
	for _, pattern := range p.Hosts {
		if strings.Contains(host, pattern) {
			return true
		}
	}
	return false
}

// Registry is an ordered collection of platforms. Resolution order is
// registration order, deterministically.
type Registry struct {
	platforms []*Platform
}

// NewRegistry creates a registry preloaded with the built-in platforms.
func NewRegistry() *Registry {
	return &Registry{platforms: builtins()}
}

// Register appends a platform to the resolution order.
func (r *Registry) Register(p *Platform) {
	r.platforms = append(r.platforms, p)
}

// Resolve returns the first platform whose host patterns and path prefix
// match, or nil when the location belongs to no supported platform. A nil
// result means the caller should stay inert.
func (r *Registry) Resolve(host, path string) *Platform {
	for _, p := range r.platforms {
		if p.Matches(host, path) {
			return p
		}
	}
	return nil
}

// Get returns a platform by ID, or nil.
func (r *Registry) Get(id string) *Platform {
	for _, p := range r.platforms {
		if p.ID == id {
			return p
		}
	}
	return nil
}
