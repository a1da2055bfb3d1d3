package agent

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ragdex/internal/domain"
)

// Per-node truncation caps for judge prompts. Judges see a prefix of the
// context and answer, not the full text.
const (
	judgeContextLimit = 1500
	judgeAnswerLimit  = 500
	searchPromptLimit = 3000
	searchStateLimit  = 1000
)

// routerNode classifies the latest user message and records the raw query.
// A model failure fails open to the rag route: the knowledge base is the
// safest default.
func (s *Service) routerNode(ctx context.Context, state *domain.AgentState) {
	if len(state.Messages) == 0 {
		state.Route = domain.RouteGeneral
		state.Query = ""
		return
	}
	state.Query = strings.TrimSpace(state.LastUserMessage())

	raw, err := s.chat.Complete(ctx, routerPrompt, state.Query)
	if err != nil {
		s.logger.Warn("Router failed, falling back to rag", zap.Error(err))
		state.Route = domain.RouteRAG
		return
	}
	state.Route = domain.ParseRoute(raw)
	s.logger.Info("Query routed",
		zap.String("query", head(state.Query, 80)),
		zap.String("route", string(state.Route)))
}

// ragNode delegates to the grounded answerer. Below-threshold results mark
// the turn irrelevant so the graph reaches the web-search fallback.
// Structural failures (store unreachable, quota exhausted) propagate.
func (s *Service) ragNode(ctx context.Context, state *domain.AgentState) error {
	if state.Query == "" {
		state.RAGAnswer = ""
		state.ContextStr = ""
		state.Citations = []domain.Citation{}
		return nil
	}

	answer, err := s.answerer.Answer(ctx, state.Query, domain.TechniqueTopK)
	if err != nil {
		return fmt.Errorf("rag answer: %w", err)
	}

	if answer.BelowThreshold {
		s.logger.Info("Retrieval below threshold", zap.String("query", head(state.Query, 80)))
		state.RAGAnswer = domain.NotEnoughContext
		state.ContextStr = ""
		state.Citations = []domain.Citation{}
		state.IsRelevant = false
		return nil
	}

	state.RAGAnswer = answer.Text
	state.ContextStr = answer.Context
	state.Citations = answer.Citations
	state.RelevanceScore = meanScore(answer.Scores)

	s.logger.Info("Grounded answer produced",
		zap.String("query", head(state.Query, 80)),
		zap.Int("citations", len(state.Citations)))
	return nil
}

// relevanceNode asks the judge whether the context supports the answer.
// Empty context or query is never relevant. A judge failure fails open to
// relevant: availability over strictness.
func (s *Service) relevanceNode(ctx context.Context, state *domain.AgentState) {
	if state.ContextStr == "" || state.Query == "" {
		state.IsRelevant = false
		return
	}

	prompt := fmt.Sprintf(relevancePromptTemplate,
		head(state.ContextStr, judgeContextLimit),
		state.Query,
		head(state.RAGAnswer, judgeAnswerLimit))

	raw, err := s.chat.Complete(ctx, prompt, "")
	if err != nil {
		s.logger.Warn("Relevance judge failed, assuming relevant", zap.Error(err))
		state.IsRelevant = true
		return
	}
	state.IsRelevant = strings.Contains(strings.ToLower(raw), "yes")
	s.logger.Info("Relevance evaluated",
		zap.String("query", head(state.Query, 80)),
		zap.Bool("is_relevant", state.IsRelevant))
}

// hallucinationNode asks the judge whether the answer contains claims the
// context does not support. Refusals and empty context short-circuit to
// false. A judge failure fails open to not-hallucinated.
func (s *Service) hallucinationNode(ctx context.Context, state *domain.AgentState) {
	if strings.Contains(state.RAGAnswer, domain.NotEnoughContext) || state.ContextStr == "" {
		state.IsHallucination = false
		return
	}

	prompt := fmt.Sprintf(hallucinationPromptTemplate,
		head(state.ContextStr, judgeContextLimit),
		head(state.RAGAnswer, judgeAnswerLimit))

	raw, err := s.chat.Complete(ctx, prompt, "")
	if err != nil {
		s.logger.Warn("Hallucination judge failed, assuming grounded", zap.Error(err))
		state.IsHallucination = false
		return
	}
	state.IsHallucination = strings.Contains(strings.ToLower(raw), "yes")
	s.logger.Info("Hallucination checked", zap.Bool("is_hallucination", state.IsHallucination))
}

// webSearchNode searches the web and summarizes the results. Any failure
// becomes a user-visible error string as the final answer so the
// conversation continues.
func (s *Service) webSearchNode(ctx context.Context, state *domain.AgentState) {
	if state.Query == "" {
		state.WebSearchResults = ""
		state.FinalAnswer = ""
		return
	}

	results, err := s.searcher.Search(ctx, state.Query)
	if err != nil {
		s.logger.Error("Web search failed", zap.Error(err))
		state.WebSearchResults = ""
		state.FinalAnswer = fmt.Sprintf("Web search failed: %v", err)
		return
	}
	s.logger.Info("Web search done",
		zap.String("query", head(state.Query, 80)),
		zap.Int("results_len", len(results)))

	user := fmt.Sprintf("Question: %s\n\nResults: %s", state.Query, head(results, searchPromptLimit))
	answer, err := s.chat.Complete(ctx, webSummaryPrompt, user)
	if err != nil {
		s.logger.Error("Web search summarization failed", zap.Error(err))
		state.WebSearchResults = ""
		state.FinalAnswer = fmt.Sprintf("Web search failed: %v", err)
		return
	}

	state.WebSearchResults = head(results, searchStateLimit)
	state.FinalAnswer = answer
}

// generalNode handles greetings and chitchat. A model failure becomes an
// apologetic final answer, not a turn failure.
func (s *Service) generalNode(ctx context.Context, state *domain.AgentState) {
	if state.Query == "" {
		state.FinalAnswer = "How can I help you today?"
		return
	}

	answer, err := s.chat.Complete(ctx, generalPrompt, state.Query)
	if err != nil {
		s.logger.Error("General chat failed", zap.Error(err))
		state.FinalAnswer = fmt.Sprintf("Sorry, I encountered an error: %v", err)
		return
	}
	state.FinalAnswer = answer
}

// finalizeNode picks the final answer with precedence final_answer over
// rag_answer (annotated with sources) over a generic failure message, and
// appends it as an assistant turn.
func (s *Service) finalizeNode(state *domain.AgentState) {
	var answer string
	switch {
	case state.FinalAnswer != "":
		answer = state.FinalAnswer
	case state.RAGAnswer != "":
		answer = state.RAGAnswer
		if len(state.Citations) > 0 {
			answer = answer + "\n\nSources: " + formatSources(state.Citations)
		}
	default:
		answer = "I couldn't generate an answer. Please try again."
	}

	state.FinalAnswer = answer
	state.Messages = append(state.Messages, domain.Message{
		Role:    domain.RoleAssistant,
		Content: answer,
	})
	s.logger.Info("Turn finalized",
		zap.String("route", string(state.Route)),
		zap.Int("answer_len", len(answer)))
}

func formatSources(citations []domain.Citation) string {
	parts := make([]string, len(citations))
	for i, c := range citations {
		docID := c.DocID
		if docID == "" {
			docID = "?"
		}
		span := c.PageOrPara
		if span == "" {
			span = "?"
		}
		parts[i] = docID + ": " + span
	}
	return strings.Join(parts, ", ")
}

func meanScore(scores []float64) float64 {
	if len(scores) == 0 {
		return 0
	}
	var sum float64
	for _, s := range scores {
		sum += s
	}
	return sum / float64(len(scores))
}

// head returns at most n runes of s.
func head(s string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
