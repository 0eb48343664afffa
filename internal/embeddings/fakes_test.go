package embeddings

import (
	"context"
	"errors"
	"sync"
)

// recordingClient returns one vector per text ([len(text), call index]) and records every call.
type recordingClient struct {
	mu      sync.Mutex
	calls   [][]string
	failOn  int // 1-based call number that fails; 0 never
	dims    int
	badDims bool
}

var errProvider = errors.New("provider down")

func (c *recordingClient) GetEmbeddings(_ context.Context, texts []string) ([][]float32, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.calls = append(c.calls, append([]string(nil), texts...))

	if c.failOn == len(c.calls) {
		return nil, errProvider
	}

	dims := c.dims
	if dims == 0 {
		dims = 2
	}

	if c.badDims && len(c.calls) > 1 {
		dims++
	}

	out := make([][]float32, len(texts))
	for i, t := range texts {
		v := make([]float32, dims)
		v[0] = float32(len(t))
		v[1] = float32(len(c.calls))
		out[i] = v
	}

	return out, nil
}

// memoryStore is an in-memory CacheStore.
type memoryStore struct {
	data     map[string]map[string][]float32
	getErr   error
	putErr   error
	putCalls int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{data: map[string]map[string][]float32{}}
}

func (s *memoryStore) GetEmbeddings(_ context.Context, model string, hashes []string) (map[string][]float32, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}

	out := map[string][]float32{}

	for _, h := range hashes {
		if v, ok := s.data[model][h]; ok {
			out[h] = v
		}
	}

	return out, nil
}

func (s *memoryStore) PutEmbeddings(_ context.Context, model string, entries map[string][]float32) error {
	s.putCalls++

	if s.putErr != nil {
		return s.putErr
	}

	if s.data[model] == nil {
		s.data[model] = map[string][]float32{}
	}

	for h, v := range entries {
		s.data[model][h] = v
	}

	return nil
}
