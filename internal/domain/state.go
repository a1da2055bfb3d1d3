package domain

// MessageRole identifies the author of a conversation turn.
type MessageRole string

// Message roles.
const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// Message is a single conversation turn.
type Message struct {
	Role    MessageRole `json:"role"`
	Content string      `json:"content"`
}

// AgentState is the mutable record threaded through the agent state machine
// for one user turn. Fields are populated incrementally; FinalAnswer is set
// exactly once, by the terminal step. Persisted across turns via the session
// checkpoint store keyed by SessionID.
type AgentState struct {
	Messages []Message `json:"messages"`

	Query string `json:"query,omitempty"`
	Route Route  `json:"route,omitempty"`

	ContextStr     string     `json:"context_str,omitempty"`
	RAGAnswer      string     `json:"rag_answer,omitempty"`
	Citations      []Citation `json:"citations,omitempty"`
	RelevanceScore float64    `json:"relevance_score,omitempty"`

	IsRelevant      bool `json:"is_relevant"`
	IsHallucination bool `json:"is_hallucination"`

	WebSearchResults string `json:"web_search_results,omitempty"`
	FinalAnswer      string `json:"final_answer,omitempty"`

	SessionID string `json:"session_id"`
}

// LastUserMessage returns the content of the most recent user turn, or ""
// when the history is empty.
func (s *AgentState) LastUserMessage() string {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Role == RoleUser {
			return s.Messages[i].Content
		}
	}
	return ""
}

// ResetTurn clears all turn-scoped fields, keeping only the conversation
// history and session id. Called before re-running the machine on a new
// user message.
func (s *AgentState) ResetTurn() {
	s.Query = ""
	s.Route = ""
	s.ContextStr = ""
	s.RAGAnswer = ""
	s.Citations = nil
	s.RelevanceScore = 0
	s.IsRelevant = false
	s.IsHallucination = false
	s.WebSearchResults = ""
	s.FinalAnswer = ""
}
