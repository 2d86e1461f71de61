// Package evaluator runs a named test set through the query pipeline,
// question by question, and aggregates the resulting quality scores into
// an eval run record.
package evaluator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/knoguchi/rag/internal/pipeline"
	"github.com/knoguchi/rag/internal/store"
)

// Evaluator runs batch quality evaluations against a TestSet.
type Evaluator struct {
	pipeline *pipeline.Pipeline
	testSets store.TestSetRepository
	evalRuns store.EvalRunRepository
	logger   *slog.Logger
}

// New creates an Evaluator.
func New(pipe *pipeline.Pipeline, testSets store.TestSetRepository, evalRuns store.EvalRunRepository, logger *slog.Logger) *Evaluator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Evaluator{pipeline: pipe, testSets: testSets, evalRuns: evalRuns, logger: logger}
}

// Run executes every question in testSetID's test set through the query
// pipeline, persists per-question results and aggregate averages to an
// EvalRun, and returns it.
func (e *Evaluator) Run(ctx context.Context, testSetID uuid.UUID) (*store.EvalRun, error) {
	testSet, err := e.testSets.GetByID(ctx, testSetID)
	if err != nil {
		return nil, fmt.Errorf("loading test set: %w", err)
	}

	startedAt := time.Now().UTC()
	run := &store.EvalRun{
		ID:        uuid.New(),
		TestSetID: testSetID,
		Status:    "running",
		CreatedAt: startedAt,
		StartedAt: &startedAt,
	}
	if err := e.evalRuns.Create(ctx, run); err != nil {
		return nil, fmt.Errorf("creating eval run: %w", err)
	}

	results := make([]store.EvalRunQuestionResult, 0, len(testSet.Questions))
	var sumFaithfulness, sumRelevance, sumHallucination, sumPrecision, sumRecall float64
	var scored, recallScored int

	for _, q := range testSet.Questions {
		res, err := e.pipeline.Execute(ctx, testSet.Collection, q.Question, &pipeline.QueryOptions{
			GroundTruth: q.GroundTruth,
			ForceEval:   true,
		})
		if err != nil {
			results = append(results, store.EvalRunQuestionResult{
				Question: q.Question,
				Error:    err.Error(),
			})
			e.logger.Warn("eval_question_failed", slog.String("question", q.Question), slog.String("error", err.Error()))
			continue
		}

		qr := store.EvalRunQuestionResult{
			Question: q.Question,
			Answer:   res.Answer,
		}
		if res.Scores != nil {
			qr.Faithfulness = &res.Scores.Faithfulness
			qr.Relevance = &res.Scores.Relevance
			qr.HallucinationRate = &res.Scores.HallucinationRate
			qr.ContextPrecision = &res.Scores.ContextPrecision
			qr.ContextRecall = res.Scores.ContextRecall

			sumFaithfulness += res.Scores.Faithfulness
			sumRelevance += res.Scores.Relevance
			sumHallucination += res.Scores.HallucinationRate
			sumPrecision += res.Scores.ContextPrecision
			scored++

			if res.Scores.ContextRecall != nil {
				sumRecall += *res.Scores.ContextRecall
				recallScored++
			}
		}
		results = append(results, qr)
	}

	completedAt := time.Now().UTC()
	run.Status = "completed"
	run.Results = results
	run.CompletedAt = &completedAt

	if scored > 0 {
		averages := &store.EvalRunAverages{
			Faithfulness:      sumFaithfulness / float64(scored),
			Relevance:         sumRelevance / float64(scored),
			HallucinationRate: sumHallucination / float64(scored),
			ContextPrecision:  sumPrecision / float64(scored),
			SampleCount:       scored,
		}
		if recallScored > 0 {
			averages.ContextRecall = sumRecall / float64(recallScored)
		}
		run.Averages = averages
	}

	if err := e.evalRuns.Update(ctx, run); err != nil {
		return nil, fmt.Errorf("persisting eval run results: %w", err)
	}

	return run, nil
}
