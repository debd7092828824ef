package discussion

import (
	"context"
	"sync"

	"github.com/fyrsmithlabs/steelman/internal/analysis"
)

type fakeAnalyzer struct {
	mu       sync.Mutex
	requests []analysis.Request
	result   *analysis.Result
	err      error
}

func (f *fakeAnalyzer) Analyze(_ context.Context, req analysis.Request) (*analysis.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	r := *f.result
	return &r, nil
}

func (f *fakeAnalyzer) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func verdict(accurate, constructive bool) *analysis.Result {
	return &analysis.Result{
		IsAccurate:     accurate,
		IsConstructive: constructive,
		MissingPoints:  []string{},
		Suggestions:    []string{},
		Confidence:     0.8,
	}
}
