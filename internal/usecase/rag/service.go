// Package rag implements the grounded answerer: retrieval plus a strict
// answer-from-context prompt contract with citations derived from retrieval
// metadata.
package rag

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ragdex/internal/domain"
)

// Retriever is the retrieval surface the answerer needs.
type Retriever interface {
	RetrieveWithScores(ctx context.Context, query string, technique domain.Technique) (domain.RetrievalResult, error)
	RetrieveForEval(ctx context.Context, query string) (domain.RetrievalResult, error)
}

// Service produces grounded answers with citations.
type Service struct {
	retriever Retriever
	chat      domain.ChatModel
	logger    *zap.Logger
}

// New creates a grounded answerer.
func New(retriever Retriever, chat domain.ChatModel, logger *zap.Logger) *Service {
	return &Service{
		retriever: retriever,
		chat:      chat,
		logger:    logger,
	}
}

// Answer retrieves evidence for the question and generates an answer from it.
// When retrieval comes back below threshold the fixed refusal is returned
// without calling the model: grounding is enforced structurally, not by
// prompt compliance. Citations come from the metadata of the chunks actually
// retrieved, never from the model reply.
func (s *Service) Answer(ctx context.Context, question string, technique domain.Technique) (domain.Answer, error) {
	result, err := s.retriever.RetrieveWithScores(ctx, question, technique)
	if err != nil {
		return domain.Answer{}, fmt.Errorf("retrieve: %w", err)
	}
	return s.answerFrom(ctx, question, result)
}

// AnswerForEval answers with the evaluation retrieval profile: quality filter
// bypassed and a larger top-k, maximizing recall for automated scoring.
func (s *Service) AnswerForEval(ctx context.Context, question string) (domain.Answer, error) {
	result, err := s.retriever.RetrieveForEval(ctx, question)
	if err != nil {
		return domain.Answer{}, fmt.Errorf("retrieve: %w", err)
	}
	return s.answerFrom(ctx, question, result)
}

func (s *Service) answerFrom(ctx context.Context, question string, result domain.RetrievalResult) (domain.Answer, error) {
	if result.BelowThreshold || len(result.Chunks) == 0 {
		s.logger.Info("Refusing below-threshold question", zap.String("question", question))
		return domain.Answer{
			Text:           domain.NotEnoughContext,
			Citations:      []domain.Citation{},
			BelowThreshold: true,
		}, nil
	}

	contextStr := formatContext(result.Chunks)
	user := fmt.Sprintf(userPromptTemplate, contextStr, question)

	text, err := s.chat.Complete(ctx, systemPrompt, user)
	if err != nil {
		return domain.Answer{}, fmt.Errorf("generate answer: %w", err)
	}

	return domain.Answer{
		Text:           text,
		Citations:      buildCitations(result.Chunks),
		BelowThreshold: false,
		Context:        contextStr,
		Scores:         result.Scores,
	}, nil
}

// formatContext renders retrieved chunks as a numbered context block, each
// entry tagged with its doc id and page/paragraph or row-range locator.
func formatContext(chunks []domain.Chunk) string {
	parts := make([]string, len(chunks))
	for i, c := range chunks {
		docID := c.Meta.DocID
		if docID == "" {
			docID = "unknown"
		}
		parts[i] = fmt.Sprintf("[%d] (doc_id: %s, page/para: %s)\n%s", i+1, docID, c.Meta.Span(), c.Text)
	}
	return strings.Join(parts, "\n\n")
}

func buildCitations(chunks []domain.Chunk) []domain.Citation {
	citations := make([]domain.Citation, len(chunks))
	for i, c := range chunks {
		citations[i] = domain.CitationFor(c.Meta)
	}
	return citations
}
