// Package pipeline orchestrates the catalogue-build stages (§4.B through
// §4.G) over a single store/config pair: each stage runs to completion (or
// logs and continues past a recoverable warning) before the next begins,
// and the whole run reports back a single tri-state Report (§7).
package pipeline

import (
	"context"
	"fmt"

	"github.com/jhc00/cmesrc/internal/log"
	"github.com/jhc00/cmesrc/internal/store"
	"github.com/jhc00/cmesrc/internal/workerpool"
	"github.com/jhc00/cmesrc/pkg/config"
)

// Pipeline drives one end-to-end catalogue build against st using params.
type Pipeline struct {
	st     *store.Store
	params *config.PipelineParams
	pool   *workerpool.Pool
}

// New builds a Pipeline, sizing its worker pool from params.WorkerCount.
func New(st *store.Store, params *config.PipelineParams) *Pipeline {
	return &Pipeline{st: st, params: params, pool: workerpool.New(params.WorkerCount)}
}

// Run executes stages B, D+E, F and G in sequence, stopping at the first
// stage that returns an unrecoverable error. Ingestion (stage C) is a
// separate, file-driven entry point — see IngestRegionTimeSeries and its
// siblings — run ahead of Run against the same store.
func (p *Pipeline) Run(ctx context.Context) *Report {
	report := NewReport()
	log.Infof("pipeline: run %s starting", report.RunID)

	stages := []struct {
		name string
		run  func() error
	}{
		{"B", func() error { return runStageB(ctx, p.st, p.pool, p.params, report) }},
		{"D/E", func() error { return runStageDE(p.st, p.params, report) }},
		{"F", func() error { return runStageF(ctx, p.st, p.pool, p.params, report) }},
		{"G", func() error { return runStageG(p.st, p.params, report) }},
	}

	for _, stage := range stages {
		select {
		case <-ctx.Done():
			report.Fail(fmt.Errorf("pipeline: run %s cancelled before stage %s: %w", report.RunID, stage.name, ctx.Err()))
			return report
		default:
		}
		if err := stage.run(); err != nil {
			report.Fail(fmt.Errorf("pipeline: run %s: %w", report.RunID, err))
			return report
		}
	}

	log.Infof("pipeline: run %s finished with status %s", report.RunID, report.Status)
	return report
}
