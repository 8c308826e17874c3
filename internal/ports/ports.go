package ports

import (
	"context"
	"time"

	"github.com/forPelevin/subalign/internal/types"
)

type VideoTool interface {
	ExtractAudioMono16k(ctx context.Context, inMP4, outWav string) error
	BurnSubtitles(ctx context.Context, inMP4, outMP4, assPath string, mute []types.Interval) error
	ProbeDuration(ctx context.Context, inMP4 string) (time.Duration, error)
}

type ASR interface {
	Transcribe(ctx context.Context, wavPath, cacheDir string) (types.Transcript, error)
}

// TextGenerator is the only capability the core needs from a model
// provider: text in, text out.
type TextGenerator interface {
	GenerateText(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

type ProjectStore interface {
	Create(ctx context.Context, p types.Project) (types.Project, error)
	Get(ctx context.Context, id string) (types.Project, error)
	List(ctx context.Context) ([]types.Project, error)
	SaveWords(ctx context.Context, id string, words []types.TimedWord) error
	SaveCandidates(ctx context.Context, id string, candidates []string) error
	SaveSentences(ctx context.Context, id string, sentences []types.SubtitleSentence, dropped []types.DroppedSentence) error
	Delete(ctx context.Context, id string) error
}

// Message is one queue delivery. Exactly one of Ack or Nack must be called.
type Message struct {
	Body []byte
	Ack  func() error
	Nack func(requeue bool) error
}

type MessageSource interface {
	Consume(ctx context.Context) (<-chan Message, error)
}

type MessagePublisher interface {
	Publish(ctx context.Context, queue string, body []byte) error
}
