package generate

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"unicode/utf8"

	"github.com/knc-neural-calculus/loom/internal/model"
	"github.com/knc-neural-calculus/loom/internal/tree"
)

// Orchestrator runs the continuation pipeline: placeholder creation happens
// synchronously on the caller's goroutine, the backend call runs on a single
// worker draining a queue, and reconciliation re-enters the model as one
// atomic edit. The single worker serializes generation requests, so two
// requests never interleave their edits on the tree.
type Orchestrator struct {
	model   *model.Model
	backend Backend
	queue   chan request
	log     *slog.Logger

	mu      sync.Mutex
	stopped bool

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type request struct {
	set      model.PlaceholderSet
	settings tree.GenerationSettings
}

func NewOrchestrator(m *model.Model, backend Backend, log *slog.Logger, queueSize int) *Orchestrator {
	if queueSize <= 0 {
		queueSize = 16
	}
	return &Orchestrator{
		model:   m,
		backend: backend,
		queue:   make(chan request, queueSize),
		log:     log,
	}
}

// Start launches the generation worker.
func (o *Orchestrator) Start(ctx context.Context) {
	workerCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		for {
			select {
			case <-workerCtx.Done():
				return
			case req, ok := <-o.queue:
				if !ok {
					return
				}
				o.process(workerCtx, req)
			}
		}
	}()
}

// Stop gracefully shuts down the worker. Dispatches arriving after Stop are
// rejected rather than queued.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	if o.stopped {
		o.mu.Unlock()
		return
	}
	o.stopped = true
	close(o.queue)
	o.mu.Unlock()

	if o.cancel != nil {
		o.cancel()
	}
	o.wg.Wait()
}

// RequestContinuations creates placeholder children under the node (and one
// grandchild per child in adaptive mode), queues the backend dispatch, and
// returns immediately. The tree already reflects pending state when this
// returns.
func (o *Orchestrator) RequestContinuations(nodeID string, selectFirst bool) (model.PlaceholderSet, error) {
	settings := o.model.GenerationSettings()
	set, err := o.model.CreatePlaceholders(nodeID, settings, selectFirst)
	if err != nil {
		return model.PlaceholderSet{}, err
	}

	// The stopped check and the send share the mutex with Stop, so a dispatch
	// can never race the queue close.
	o.mu.Lock()
	if o.stopped {
		o.mu.Unlock()
		o.model.RollbackPlaceholders(set.Children, "ERROR: generation worker stopped")
		return model.PlaceholderSet{}, fmt.Errorf("generation worker is stopped")
	}
	select {
	case o.queue <- request{set: set, settings: settings}:
		o.mu.Unlock()
		return set, nil
	default:
		o.mu.Unlock()
		o.model.RollbackPlaceholders(set.Children, "ERROR: generation queue full")
		return model.PlaceholderSet{}, fmt.Errorf("generation queue is full (%d)", cap(o.queue))
	}
}

// process performs the backend call(s) and reconciles the result onto the
// placeholders, or rolls them back on failure. Runs on the worker goroutine,
// never on the dispatching caller's stack.
func (o *Orchestrator) process(ctx context.Context, req request) {
	n := len(req.set.Children)
	backendReq := Request{
		Prompt:      req.set.Prompt,
		Length:      req.settings.ResponseLength,
		Temperature: req.settings.Temperature,
		TopP:        req.settings.TopP,
		Model:       req.settings.Model,
	}

	var completions []Completion
	var err error
	if req.settings.Janus {
		completions, err = o.parallelComplete(ctx, backendReq, n)
	} else {
		backendReq.N = n
		completions, err = o.backend.Complete(ctx, backendReq)
	}

	if err != nil {
		o.log.Error("generation failed, rolling back placeholders",
			"children", n, "error", err)
		if rbErr := o.model.RollbackPlaceholders(req.set.Children, "ERROR: "+err.Error()); rbErr != nil {
			o.log.Error("rollback failed", "error", rbErr)
		}
		return
	}

	fills := reconcile(req, completions)
	if fillErr := o.model.FillPlaceholders(fills); fillErr != nil {
		o.log.Error("reconciliation failed", "error", fillErr)
		return
	}
	o.log.Info("generation complete", "continuations", len(completions), "adaptive", req.settings.Adaptive)
}

// parallelComplete issues one single-continuation call per placeholder with
// bounded concurrency equal to the continuation count. The first non-empty
// error is surfaced, but every call is allowed to complete.
func (o *Orchestrator) parallelComplete(ctx context.Context, req Request, n int) ([]Completion, error) {
	completions := make([]Completion, n)
	errs := make([]error, n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			single := req
			single.N = 1
			res, err := o.backend.Complete(ctx, single)
			if err != nil {
				errs[i] = err
				return
			}
			if len(res) > 0 {
				completions[i] = res[0]
			}
		}()
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return completions, nil
}

// reconcile maps completions onto placeholder fills. In adaptive mode each
// completion is divided at its lowest-confidence token: text before the split
// goes to the child, the rest to the paired grandchild.
func reconcile(req request, completions []Completion) []model.Fill {
	promptLen := len(req.set.Prompt)
	var fills []model.Fill
	for i, childID := range req.set.Children {
		if i >= len(completions) {
			break
		}
		comp := completions[i]
		if req.settings.Adaptive && i < len(req.set.Grandchildren) {
			split := adaptiveSplit(comp, promptLen)
			fills = append(fills,
				model.Fill{ID: childID, Text: comp.Text[:split]},
				model.Fill{ID: req.set.Grandchildren[i], Text: comp.Text[split:]},
			)
		} else {
			fills = append(fills, model.Fill{ID: childID, Text: comp.Text})
		}
	}
	return fills
}

// adaptiveSplit locates the offset of the lowest per-token log-probability
// within the completion text. Without a usable logprob trace the whole text
// stays on the child.
func adaptiveSplit(comp Completion, promptLen int) int {
	if len(comp.TokenLogprobs) == 0 || len(comp.TextOffsets) != len(comp.TokenLogprobs) {
		return len(comp.Text)
	}
	minIdx := 0
	for i, lp := range comp.TokenLogprobs {
		if lp < comp.TokenLogprobs[minIdx] {
			minIdx = i
		}
	}
	split := comp.TextOffsets[minIdx] - promptLen
	if split < 0 {
		split = 0
	}
	if split > len(comp.Text) {
		split = len(comp.Text)
	}
	for split > 0 && split < len(comp.Text) && !utf8.RuneStart(comp.Text[split]) {
		split--
	}
	return split
}
