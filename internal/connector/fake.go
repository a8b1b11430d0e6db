package connector

import (
	"context"
	"sync"

	"github.com/loomhq/loom/internal/domain/source"
	"github.com/loomhq/loom/internal/domain/workitem"
)

// Fake is a scriptable Connector for tests. Fetch results are consumed in
// order; writes are recorded and answered from scripted errors first, then
// WriteResult.
type Fake struct {
	mu sync.Mutex

	src          source.Source
	FetchResults []*FetchResult
	FetchErr     error
	WriteErrs    []error
	WriteResult  *WriteResult

	FetchCalls  []string
	WriteCalls  []WriteSpec
	TokensSeen  []string
	fetchCursor int
}

// NewFake creates a Fake connector for the given source.
func NewFake(src source.Source) *Fake {
	return &Fake{src: src}
}

func (f *Fake) Source() source.Source { return f.src }

func (f *Fake) FetchSince(ctx context.Context, token, cursor string) (*FetchResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.FetchCalls = append(f.FetchCalls, cursor)
	f.TokensSeen = append(f.TokensSeen, token)
	if f.FetchErr != nil {
		return nil, f.FetchErr
	}
	if f.fetchCursor >= len(f.FetchResults) {
		return &FetchResult{NewCursor: cursor}, nil
	}
	result := f.FetchResults[f.fetchCursor]
	f.fetchCursor++
	return result, nil
}

func (f *Fake) ApplyWrite(ctx context.Context, token string, spec WriteSpec) (*WriteResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.WriteCalls = append(f.WriteCalls, spec)
	f.TokensSeen = append(f.TokensSeen, token)
	if len(f.WriteErrs) > 0 {
		err := f.WriteErrs[0]
		f.WriteErrs = f.WriteErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	if f.WriteResult != nil {
		return f.WriteResult, nil
	}
	if spec.Kind == WriteCreateItem {
		return &WriteResult{Item: &workitem.WorkItem{
			ID:         "created-1",
			Identifier: "NEW-1",
			Title:      spec.Title,
			StateName:  "Backlog",
			StateType:  workitem.StateBacklog,
		}}, nil
	}
	return &WriteResult{}, nil
}
