// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/pdiddy/citereview/internal/acquire"
	"github.com/pdiddy/citereview/internal/analyze"
	"github.com/pdiddy/citereview/internal/citation"
	"github.com/pdiddy/citereview/internal/classify"
	"github.com/pdiddy/citereview/internal/container"
	"github.com/pdiddy/citereview/internal/ledger"
	"github.com/pdiddy/citereview/internal/llm"
	"github.com/pdiddy/citereview/internal/pipeline"
	"github.com/pdiddy/citereview/internal/textextract"
	"github.com/pdiddy/citereview/internal/workitem"
)

func corpus() workitem.Corpus {
	return workitem.Corpus{Root: cfg.CorpusDir}
}

func httpClient() *http.Client {
	return &http.Client{Timeout: cfg.Acquisition.Timeout}
}

func newAcquirer() *acquire.Acquirer {
	a := cfg.Acquisition
	client := httpClient()
	graph := citation.NewClient(
		citation.WithAPIKey(a.SemanticScholarAPIKey),
		citation.WithHTTPClient(client),
		citation.WithUserAgent(a.UserAgent),
		citation.WithRateLimit(a.RateLimit),
	)
	return &acquire.Acquirer{
		Graph:       graph,
		Resolver:    &acquire.OpenAccessResolver{Client: client, UserAgent: a.UserAgent, Email: a.OpenAlexEmail},
		Client:      client,
		Config:      a,
		Log:         logger,
		Metrics:     recorder,
		CallTimeout: cfg.CallTimeout,
	}
}

func newOracle() (*llm.Oracle, error) {
	if cfg.LLM.Model == "" {
		return nil, fmt.Errorf("llm.model is not set (config file or CITEREVIEW_LLM_MODEL)")
	}
	// Per-call deadlines come from CallTimeout; the client itself has none.
	backend, err := llm.NewBackend(cfg.LLM, &http.Client{})
	if err != nil {
		return nil, err
	}
	return &llm.Oracle{
		Backend:       backend,
		MaxInputChars: cfg.LLM.MaxInputChars,
		MaxRetries:    cfg.LLM.MaxRetries,
		Log:           logger,
		Metrics:       recorder,
	}, nil
}

// newExtractor reads PDFs in-process and, when an image is configured and a
// container runtime is present, falls back to pdftotext in a container.
// Extracted text is cached beside each PDF.
func newExtractor(ctx context.Context) textextract.Extractor {
	chain := textextract.Fallback{textextract.PDFExtractor{}}
	if cfg.ContainerImage != "" {
		rt, err := container.DetectRuntime(ctx)
		if err != nil {
			logger.Warn().Err(err).Msg("no container runtime, using built-in PDF reader only")
		} else if ce, err := textextract.NewContainerExtractor(ctx, rt, cfg.ContainerImage); err != nil {
			logger.Warn().Err(err).Str("image", cfg.ContainerImage).Msg("container extractor unavailable")
		} else {
			chain = append(chain, ce)
		}
	}
	return textextract.Cached{Inner: chain, Log: logger}
}

func newClassifier(oracle *llm.Oracle, ext textextract.Extractor) *classify.Classifier {
	return &classify.Classifier{
		Rules:       cfg.Rules,
		Oracle:      oracle,
		Extractor:   ext,
		Log:         logger,
		Metrics:     recorder,
		CallTimeout: cfg.CallTimeout,
	}
}

func newAnalyzer(oracle *llm.Oracle, ext textextract.Extractor) *analyze.Analyzer {
	return &analyze.Analyzer{
		Oracle:      oracle,
		Extractor:   ext,
		Log:         logger,
		Metrics:     recorder,
		CallTimeout: cfg.CallTimeout,
	}
}

// newDriver wires only the stages selected, so a run that never reaches the
// LLM does not need one configured. The returned close func releases the ledger.
func newDriver(ctx context.Context, stages pipeline.Stages) (*pipeline.Driver, func(), error) {
	d := &pipeline.Driver{
		Corpus:  corpus(),
		Metrics: recorder,
		Log:     logger,
		Workers: cfg.Workers,
	}
	if stages.Has(pipeline.StageAcquire) {
		d.Acquirer = newAcquirer()
	}
	if stages.Has(pipeline.StageClassify) || stages.Has(pipeline.StageAnalyze) {
		oracle, err := newOracle()
		if err != nil {
			return nil, nil, err
		}
		ext := newExtractor(ctx)
		d.Classifier = newClassifier(oracle, ext)
		d.Analyzer = newAnalyzer(oracle, ext)
	}

	closeFn := func() {}
	store, err := ledger.Open(cfg.CorpusDir)
	if err != nil {
		logger.Warn().Err(err).Msg("run ledger unavailable")
	} else {
		d.Ledger = store
		closeFn = func() { store.Close() }
	}
	return d, closeFn, nil
}

// reportBatch turns a driver result into the command's exit status.
func reportBatch(res pipeline.BatchResult, err error) error {
	if err != nil {
		return err
	}
	if res.HasFailures() {
		return fmt.Errorf("%d of %d item(s) failed a stage", res.Failed, res.Total())
	}
	return nil
}
