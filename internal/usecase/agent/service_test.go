package agent

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ragdex/internal/domain"
)

// scriptedChat answers by matching a substring of the system prompt,
// mirroring how each node uses a distinct prompt.
type scriptedChat struct {
	answers map[string]string
	errOn   string
	err     error
}

func (c *scriptedChat) Complete(_ context.Context, system, _ string) (string, error) {
	for marker, reply := range c.answers {
		if strings.Contains(system, marker) {
			if c.errOn == marker {
				return "", c.err
			}
			return reply, nil
		}
	}
	if c.errOn != "" && strings.Contains(system, c.errOn) {
		return "", c.err
	}
	return "", errors.New("unexpected prompt")
}

const (
	routerMarker        = "Classify the user query"
	relevanceMarker     = "context is relevant"
	hallucinationMarker = "NOT supported"
	summaryMarker       = "web search results"
	generalMarker       = "real estate assistant"
)

type mockAnswerer struct {
	answer domain.Answer
	err    error
	calls  int
}

func (m *mockAnswerer) Answer(_ context.Context, _ string, _ domain.Technique) (domain.Answer, error) {
	m.calls++
	return m.answer, m.err
}

type mockSearcher struct {
	results string
	err     error
	calls   int
}

func (m *mockSearcher) Search(_ context.Context, _ string) (string, error) {
	m.calls++
	return m.results, m.err
}

type memSessions struct {
	data map[string]domain.AgentState
}

func newMemSessions() *memSessions {
	return &memSessions{data: map[string]domain.AgentState{}}
}

func (m *memSessions) Get(_ context.Context, id string) (domain.AgentState, error) {
	s, ok := m.data[id]
	if !ok {
		return domain.AgentState{}, domain.ErrSessionNotFound
	}
	return s, nil
}

func (m *memSessions) Put(_ context.Context, id string, s domain.AgentState) error {
	m.data[id] = s
	return nil
}

func newAgent(chat domain.ChatModel, answerer Answerer, searcher WebSearcher, sessions SessionStore) *Service {
	return New(answerer, chat, searcher, sessions, zap.NewNop())
}

func TestRouterFailsOpenToRAG(t *testing.T) {
	chat := &scriptedChat{
		answers: map[string]string{
			relevanceMarker:     "yes",
			hallucinationMarker: "no",
		},
		errOn: routerMarker,
		err:   errors.New("classifier down"),
	}
	answerer := &mockAnswerer{answer: domain.Answer{
		Text:      "grounded answer",
		Citations: []domain.Citation{{DocID: "doc", PageOrPara: "1"}},
		Context:   "some context",
		Scores:    []float64{0.2},
	}}
	svc := newAgent(chat, answerer, &mockSearcher{}, newMemSessions())

	state, err := svc.RunTurn(context.Background(), "s1", "what are the loan limits?")
	if err != nil {
		t.Fatalf("RunTurn: %v", err)
	}
	if state.Route != domain.RouteRAG {
		t.Errorf("route = %q, want rag on classifier failure", state.Route)
	}
	if answerer.calls != 1 {
		t.Errorf("answerer called %d times, want 1", answerer.calls)
	}
}

func TestGeneralChatTurn(t *testing.T) {
	chat := &scriptedChat{answers: map[string]string{
		routerMarker:  "general",
		generalMarker: "You're welcome!",
	}}
	sessions := newMemSessions()
	svc := newAgent(chat, &mockAnswerer{}, &mockSearcher{}, sessions)

	state, err := svc.RunTurn(context.Background(), "s1", "thanks!")
	if err != nil {
		t.Fatalf("RunTurn: %v", err)
	}
	if state.FinalAnswer != "You're welcome!" {
		t.Errorf("final answer = %q", state.FinalAnswer)
	}
	if len(state.Messages) != 2 {
		t.Fatalf("got %d messages, want user + assistant", len(state.Messages))
	}
	if state.Messages[1].Role != domain.RoleAssistant || state.Messages[1].Content != "You're welcome!" {
		t.Errorf("assistant turn = %+v", state.Messages[1])
	}

	saved, err := sessions.Get(context.Background(), "s1")
	if err != nil {
		t.Fatalf("session not checkpointed: %v", err)
	}
	if len(saved.Messages) != 2 {
		t.Errorf("checkpoint has %d messages", len(saved.Messages))
	}
}

func TestRAGAnswerAnnotatedWithSources(t *testing.T) {
	chat := &scriptedChat{answers: map[string]string{
		routerMarker:        "rag",
		relevanceMarker:     "yes",
		hallucinationMarker: "no",
	}}
	answerer := &mockAnswerer{answer: domain.Answer{
		Text: "The limit is $500k.",
		Citations: []domain.Citation{
			{DocID: "limits", PageOrPara: "2"},
			{DocID: "guide", PageOrPara: "7-12"},
		},
		Context: "limit tables",
		Scores:  []float64{0.1, 0.3},
	}}
	svc := newAgent(chat, answerer, &mockSearcher{}, newMemSessions())

	state, err := svc.RunTurn(context.Background(), "s1", "what is the loan limit?")
	if err != nil {
		t.Fatalf("RunTurn: %v", err)
	}
	want := "The limit is $500k.\n\nSources: limits: 2, guide: 7-12"
	if state.FinalAnswer != want {
		t.Errorf("final answer = %q, want %q", state.FinalAnswer, want)
	}
	if state.RelevanceScore != 0.2 {
		t.Errorf("relevance score = %v, want mean 0.2", state.RelevanceScore)
	}
	if state.IsHallucination {
		t.Error("judge said no but state records hallucination")
	}
}

func TestIrrelevantContextFallsBackToWebSearch(t *testing.T) {
	chat := &scriptedChat{answers: map[string]string{
		routerMarker:    "rag",
		relevanceMarker: "no",
		summaryMarker:   "According to the web, rates rose.",
	}}
	answerer := &mockAnswerer{answer: domain.Answer{
		Text:      "stale grounded answer",
		Citations: []domain.Citation{{DocID: "doc", PageOrPara: "1"}},
		Context:   "unrelated context",
		Scores:    []float64{0.9},
	}}
	searcher := &mockSearcher{results: "rate news snippets"}
	svc := newAgent(chat, answerer, searcher, newMemSessions())

	state, err := svc.RunTurn(context.Background(), "s1", "current mortgage rates?")
	if err != nil {
		t.Fatalf("RunTurn: %v", err)
	}
	if searcher.calls != 1 {
		t.Errorf("searcher called %d times, want 1", searcher.calls)
	}
	if state.FinalAnswer != "According to the web, rates rose." {
		t.Errorf("final answer = %q, want the web summary, not the discarded grounded answer", state.FinalAnswer)
	}
	if state.WebSearchResults != "rate news snippets" {
		t.Errorf("web results = %q", state.WebSearchResults)
	}
}

func TestBelowThresholdReachesWebSearch(t *testing.T) {
	chat := &scriptedChat{answers: map[string]string{
		routerMarker:  "rag",
		summaryMarker: "Found it on the web.",
	}}
	answerer := &mockAnswerer{answer: domain.Answer{
		Text:           domain.NotEnoughContext,
		BelowThreshold: true,
	}}
	searcher := &mockSearcher{results: "web evidence"}
	svc := newAgent(chat, answerer, searcher, newMemSessions())

	state, err := svc.RunTurn(context.Background(), "s1", "something obscure")
	if err != nil {
		t.Fatalf("RunTurn: %v", err)
	}
	if state.IsRelevant {
		t.Error("empty context must not be judged relevant")
	}
	if state.FinalAnswer != "Found it on the web." {
		t.Errorf("final answer = %q", state.FinalAnswer)
	}
}

func TestHallucinationShortCircuitOnRefusal(t *testing.T) {
	chat := &scriptedChat{answers: map[string]string{
		hallucinationMarker: "yes",
	}}
	svc := newAgent(chat, &mockAnswerer{}, &mockSearcher{}, newMemSessions())

	state := domain.AgentState{RAGAnswer: domain.NotEnoughContext, ContextStr: "anything"}
	svc.hallucinationNode(context.Background(), &state)
	if state.IsHallucination {
		t.Error("refusal must never be marked as hallucination")
	}
}

func TestJudgesFailOpen(t *testing.T) {
	judgeErr := errors.New("judge timeout")

	relChat := &scriptedChat{errOn: relevanceMarker, err: judgeErr}
	svc := newAgent(relChat, &mockAnswerer{}, &mockSearcher{}, newMemSessions())
	state := domain.AgentState{Query: "q", ContextStr: "ctx", RAGAnswer: "a"}
	svc.relevanceNode(context.Background(), &state)
	if !state.IsRelevant {
		t.Error("relevance judge failure must fail open to relevant")
	}

	halChat := &scriptedChat{errOn: hallucinationMarker, err: judgeErr}
	svc = newAgent(halChat, &mockAnswerer{}, &mockSearcher{}, newMemSessions())
	state = domain.AgentState{Query: "q", ContextStr: "ctx", RAGAnswer: "a"}
	svc.hallucinationNode(context.Background(), &state)
	if state.IsHallucination {
		t.Error("hallucination judge failure must fail open to not-hallucinated")
	}
}

func TestWebSearchFailureIsUserVisible(t *testing.T) {
	chat := &scriptedChat{answers: map[string]string{routerMarker: "web_search"}}
	searcher := &mockSearcher{err: errors.New("network unreachable")}
	svc := newAgent(chat, &mockAnswerer{}, searcher, newMemSessions())

	state, err := svc.RunTurn(context.Background(), "s1", "latest news?")
	if err != nil {
		t.Fatalf("RunTurn: %v", err)
	}
	if !strings.HasPrefix(state.FinalAnswer, "Web search failed:") {
		t.Errorf("final answer = %q, want user-visible error string", state.FinalAnswer)
	}
}

func TestFinalizePrecedence(t *testing.T) {
	svc := newAgent(&scriptedChat{}, &mockAnswerer{}, &mockSearcher{}, newMemSessions())

	state := domain.AgentState{FinalAnswer: "from web", RAGAnswer: "from rag"}
	svc.finalizeNode(&state)
	if state.FinalAnswer != "from web" {
		t.Errorf("final = %q, want final_answer to win", state.FinalAnswer)
	}

	state = domain.AgentState{}
	svc.finalizeNode(&state)
	if state.FinalAnswer != "I couldn't generate an answer. Please try again." {
		t.Errorf("final = %q, want generic failure message", state.FinalAnswer)
	}
}

func TestHistoryAccumulatesAcrossTurns(t *testing.T) {
	chat := &scriptedChat{answers: map[string]string{
		routerMarker:  "general",
		generalMarker: "Hi there!",
	}}
	sessions := newMemSessions()
	svc := newAgent(chat, &mockAnswerer{}, &mockSearcher{}, sessions)
	ctx := context.Background()

	if _, err := svc.RunTurn(ctx, "s1", "hello"); err != nil {
		t.Fatal(err)
	}
	state, err := svc.RunTurn(ctx, "s1", "hello again")
	if err != nil {
		t.Fatal(err)
	}
	if len(state.Messages) != 4 {
		t.Fatalf("got %d messages after two turns, want 4", len(state.Messages))
	}
	if state.Messages[2].Content != "hello again" || state.Messages[2].Role != domain.RoleUser {
		t.Errorf("third message = %+v", state.Messages[2])
	}
}

func TestStructuralFailurePropagates(t *testing.T) {
	chat := &scriptedChat{answers: map[string]string{routerMarker: "rag"}}
	answerer := &mockAnswerer{err: domain.ErrLLMQuotaExceeded}
	sessions := newMemSessions()
	svc := newAgent(chat, answerer, &mockSearcher{}, sessions)

	_, err := svc.RunTurn(context.Background(), "s1", "question")
	if !errors.Is(err, domain.ErrLLMQuotaExceeded) {
		t.Errorf("err = %v, want quota error to propagate", err)
	}
	if _, getErr := sessions.Get(context.Background(), "s1"); !errors.Is(getErr, domain.ErrSessionNotFound) {
		t.Error("failed turn must not be checkpointed")
	}
}
