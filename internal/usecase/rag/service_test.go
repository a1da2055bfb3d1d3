package rag

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ragdex/internal/domain"
)

type mockRetriever struct {
	result domain.RetrievalResult
	err    error
}

func (m *mockRetriever) RetrieveWithScores(_ context.Context, _ string, _ domain.Technique) (domain.RetrievalResult, error) {
	return m.result, m.err
}

func (m *mockRetriever) RetrieveForEval(_ context.Context, _ string) (domain.RetrievalResult, error) {
	return m.result, m.err
}

type mockChat struct {
	reply    string
	err      error
	calls    int
	lastUser string
}

func (m *mockChat) Complete(_ context.Context, _ string, user string) (string, error) {
	m.calls++
	m.lastUser = user
	if m.err != nil {
		return "", m.err
	}
	return m.reply, nil
}

func chunk(docID string, page, idx int, text string) domain.Chunk {
	return domain.Chunk{
		Text: text,
		Meta: domain.ChunkMeta{DocID: docID, PageOrPara: page, ChunkIndex: idx},
	}
}

func TestRefusalWithoutModelCall(t *testing.T) {
	chat := &mockChat{reply: "should not be used"}
	svc := New(&mockRetriever{result: domain.RetrievalResult{BelowThreshold: true}}, chat, zap.NewNop())

	ans, err := svc.Answer(context.Background(), "q", domain.TechniqueTopK)
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if ans.Text != domain.NotEnoughContext {
		t.Errorf("text = %q, want refusal", ans.Text)
	}
	if len(ans.Citations) != 0 {
		t.Errorf("citations = %v, want empty", ans.Citations)
	}
	if !ans.BelowThreshold {
		t.Error("below threshold flag not set")
	}
	if chat.calls != 0 {
		t.Errorf("model called %d times, want 0", chat.calls)
	}
}

func TestAnswerCarriesCitationsAndContext(t *testing.T) {
	retriever := &mockRetriever{result: domain.RetrievalResult{
		Chunks: []domain.Chunk{
			chunk("guide", 3, 0, "eligibility requires 90 days of service"),
			chunk("rates", 1, 2, "the 2024 rate is 3.5 percent"),
		},
		Scores: []float64{0.12, 0.34},
	}}
	chat := &mockChat{reply: "Answer: 90 days of service."}
	svc := New(retriever, chat, zap.NewNop())

	ans, err := svc.Answer(context.Background(), "what are the requirements?", domain.TechniqueTopK)
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if ans.Text != "Answer: 90 days of service." {
		t.Errorf("text = %q", ans.Text)
	}
	if ans.BelowThreshold {
		t.Error("below threshold flag set")
	}

	want := []domain.Citation{
		{DocID: "guide", PageOrPara: "3"},
		{DocID: "rates", PageOrPara: "1"},
	}
	if len(ans.Citations) != len(want) {
		t.Fatalf("got %d citations, want %d", len(ans.Citations), len(want))
	}
	for i := range want {
		if ans.Citations[i] != want[i] {
			t.Errorf("citation[%d] = %+v, want %+v", i, ans.Citations[i], want[i])
		}
	}

	if len(ans.Scores) != 2 || ans.Scores[0] != 0.12 {
		t.Errorf("scores = %v", ans.Scores)
	}
	if !strings.Contains(ans.Context, "[1] (doc_id: guide, page/para: 3)") {
		t.Errorf("context missing first entry header:\n%s", ans.Context)
	}
	if !strings.Contains(chat.lastUser, "what are the requirements?") {
		t.Error("question not in user prompt")
	}
	if !strings.Contains(chat.lastUser, "eligibility requires 90 days of service") {
		t.Error("chunk text not in user prompt")
	}
}

func TestFormatContextRowRange(t *testing.T) {
	c := domain.Chunk{
		Text: "row1 row2",
		Meta: domain.ChunkMeta{
			DocID:    "rates",
			RowRange: &domain.RowRange{Start: 4, End: 9},
		},
	}
	got := formatContext([]domain.Chunk{c})
	if !strings.Contains(got, "page/para: 4-9") {
		t.Errorf("row range locator missing:\n%s", got)
	}
}

func TestFormatContextUnknownDocID(t *testing.T) {
	got := formatContext([]domain.Chunk{{Text: "text"}})
	if !strings.Contains(got, "doc_id: unknown") {
		t.Errorf("fallback doc id missing:\n%s", got)
	}
}

func TestRetrievalErrorPropagates(t *testing.T) {
	wantErr := errors.New("store unreachable")
	svc := New(&mockRetriever{err: wantErr}, &mockChat{}, zap.NewNop())

	_, err := svc.Answer(context.Background(), "q", domain.TechniqueTopK)
	if !errors.Is(err, wantErr) {
		t.Errorf("err = %v, want wrapped %v", err, wantErr)
	}
}

func TestModelErrorPropagates(t *testing.T) {
	retriever := &mockRetriever{result: domain.RetrievalResult{
		Chunks: []domain.Chunk{chunk("doc", 1, 0, "text")},
		Scores: []float64{0.1},
	}}
	wantErr := domain.ErrLLMQuotaExceeded
	svc := New(retriever, &mockChat{err: wantErr}, zap.NewNop())

	_, err := svc.Answer(context.Background(), "q", domain.TechniqueTopK)
	if !errors.Is(err, wantErr) {
		t.Errorf("err = %v, want wrapped %v", err, wantErr)
	}
}
