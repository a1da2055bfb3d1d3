package domain

import "strings"

// Route is the agent path chosen for a user message.
type Route string

// Route constants.
const (
	// RouteRAG answers from the indexed knowledge base.
	RouteRAG Route = "rag"
	// RouteWebSearch falls back to an external web search.
	RouteWebSearch Route = "web_search"
	// RouteGeneral handles greetings and chit-chat.
	RouteGeneral Route = "general"
)

// IsValid checks if the route is one of the supported values.
func (r Route) IsValid() bool {
	return r == RouteRAG || r == RouteWebSearch || r == RouteGeneral
}

// ParseRoute maps raw classifier output onto a route. The classifier is
// instructed to reply with one keyword but smaller models drift, so matching
// is by substring; anything unrecognized resolves to general.
func ParseRoute(raw string) Route {
	s := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case strings.Contains(s, "web") || strings.Contains(s, "search"):
		return RouteWebSearch
	case strings.Contains(s, "rag") || strings.Contains(s, "doc") || strings.Contains(s, "knowledge"):
		return RouteRAG
	default:
		return RouteGeneral
	}
}
