package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/forPelevin/subalign/internal/faults"
	"github.com/forPelevin/subalign/internal/types"
)

type fakeVideoTool struct {
	mu        sync.Mutex
	extracted []string
	burned    []string
	mute      [][]types.Interval
}

func (f *fakeVideoTool) ExtractAudioMono16k(_ context.Context, inMP4, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.extracted = append(f.extracted, inMP4)
	return nil
}

func (f *fakeVideoTool) BurnSubtitles(_ context.Context, _, outMP4, _ string, mute []types.Interval) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.burned = append(f.burned, outMP4)
	f.mute = append(f.mute, mute)
	return nil
}

func (f *fakeVideoTool) ProbeDuration(context.Context, string) (time.Duration, error) {
	return 10 * time.Second, nil
}

type fakeASR struct{ tr types.Transcript }

func (f fakeASR) Transcribe(context.Context, string, string) (types.Transcript, error) {
	return f.tr, nil
}

type fakeGenerator struct {
	mu    sync.Mutex
	out   string
	err   error
	calls int
}

func (f *fakeGenerator) GenerateText(context.Context, string, string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.out, f.err
}

type memStore struct {
	mu       sync.Mutex
	projects map[string]types.Project
	seq      int
}

func newMemStore() *memStore { return &memStore{projects: map[string]types.Project{}} }

func (s *memStore) Create(_ context.Context, p types.Project) (types.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == "" {
		s.seq++
		p.ID = string(rune('a' + s.seq - 1))
	}
	s.projects[p.ID] = p
	return p, nil
}

func (s *memStore) Get(_ context.Context, id string) (types.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projects[id]
	if !ok {
		return types.Project{}, faults.Wrap(faults.ErrNotFound, "project", id, nil)
	}
	return p, nil
}

func (s *memStore) List(context.Context) ([]types.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []types.Project
	for _, p := range s.projects {
		out = append(out, p)
	}
	return out, nil
}

func (s *memStore) mutate(id string, fn func(*types.Project)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projects[id]
	if !ok {
		return faults.Wrap(faults.ErrNotFound, "project", id, nil)
	}
	fn(&p)
	s.projects[id] = p
	return nil
}

func (s *memStore) SaveWords(_ context.Context, id string, words []types.TimedWord) error {
	return s.mutate(id, func(p *types.Project) { p.Words = words })
}

func (s *memStore) SaveCandidates(_ context.Context, id string, candidates []string) error {
	return s.mutate(id, func(p *types.Project) { p.Candidates = candidates })
}

func (s *memStore) SaveSentences(_ context.Context, id string, sentences []types.SubtitleSentence, dropped []types.DroppedSentence) error {
	return s.mutate(id, func(p *types.Project) { p.Sentences, p.Dropped = sentences, dropped })
}

func (s *memStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.projects, id)
	return nil
}

func testTranscript() types.Transcript {
	return types.Transcript{Segments: []types.Segment{
		{Start: 0, End: 2, Text: "Hi, Mike. How are you doing today?", Words: []types.Word{
			{Word: "Hi,", Start: 0, End: 0.3},
			{Word: " Mike.", Start: 0.3, End: 0.8},
			{Word: " How", Start: 0.9, End: 1.1},
			{Word: " are", Start: 1.1, End: 1.2},
			{Word: " you", Start: 1.2, End: 1.4},
			{Word: " doing", Start: 1.4, End: 1.7},
			{Word: " today?", Start: 1.7, End: 2.0},
		}},
		{Start: 2.2, End: 3.5, Text: "I am fine, thanks.", Words: []types.Word{
			{Word: " I", Start: 2.2, End: 2.3},
			{Word: " am", Start: 2.3, End: 2.5},
			{Word: " fine,", Start: 2.5, End: 2.9},
			{Word: " thanks.", Start: 2.9, End: 3.5},
		}},
	}}
}
