package services

import (
	"context"
	"sync"

	"spot-the-difference/generator"
)

// ------------------------
// Fake Blob Store
// ------------------------

type FakeBlobStore struct {
	mu      sync.Mutex
	uploads map[string][]byte
	types   map[string]string

	UploadFn func(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

func NewFakeBlobStore() *FakeBlobStore {
	return &FakeBlobStore{uploads: map[string][]byte{}, types: map[string]string{}}
}

func (f *FakeBlobStore) Upload(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	if f.UploadFn != nil {
		return f.UploadFn(ctx, key, data, contentType)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploads[key] = data
	f.types[key] = contentType
	return "https://cdn.test/" + key, nil
}

func (f *FakeBlobStore) Keys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	keys := make([]string, 0, len(f.uploads))
	for k := range f.uploads {
		keys = append(keys, k)
	}
	return keys
}

// ------------------------
// Fake Generator
// ------------------------

type FakeGenerator struct {
	GenerateImageFn       func(ctx context.Context, prompt string) (generator.Image, error)
	ProposeDifferencesFn  func(ctx context.Context, prompt string, count int) ([]string, error)
	GenerateEditedImageFn func(ctx context.Context, original generator.Image, differences []string) (generator.Image, error)
}

func (f *FakeGenerator) GenerateImage(ctx context.Context, prompt string) (generator.Image, error) {
	if f.GenerateImageFn != nil {
		return f.GenerateImageFn(ctx, prompt)
	}
	return generator.Image{Data: []byte("original-png"), MIMEType: "image/png"}, nil
}

func (f *FakeGenerator) ProposeDifferences(ctx context.Context, prompt string, count int) ([]string, error) {
	if f.ProposeDifferencesFn != nil {
		return f.ProposeDifferencesFn(ctx, prompt, count)
	}
	out := make([]string, count)
	for i := range out {
		out[i] = "Remove object " + string(rune('A'+i))
	}
	return out, nil
}

func (f *FakeGenerator) GenerateEditedImage(ctx context.Context, original generator.Image, differences []string) (generator.Image, error) {
	if f.GenerateEditedImageFn != nil {
		return f.GenerateEditedImageFn(ctx, original, differences)
	}
	return generator.Image{Data: []byte("modified-png"), MIMEType: "image/png"}, nil
}

// ------------------------
// Fake Score Mirror
// ------------------------

type FakeScoreMirror struct {
	mu     sync.Mutex
	scores map[string]int64
	calls  int

	AddScoreFn func(ctx context.Context, userID string, points int64) error
}

func (f *FakeScoreMirror) AddScore(ctx context.Context, userID string, points int64) error {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.AddScoreFn != nil {
		return f.AddScoreFn(ctx, userID, points)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.scores == nil {
		f.scores = map[string]int64{}
	}
	f.scores[userID] += points
	return nil
}

func (f *FakeScoreMirror) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *FakeScoreMirror) Score(userID string) (int64, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.scores[userID]
	return s, ok
}
