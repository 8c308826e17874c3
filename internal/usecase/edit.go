package usecase

import (
	"context"

	"github.com/forPelevin/subalign/internal/domain/subtitles"
	"github.com/forPelevin/subalign/internal/types"
)

// Exclude flips the excluded flag of sentence index.
func (u Usecase) Exclude(ctx context.Context, id string, index int) ([]types.SubtitleSentence, error) {
	return u.edit(ctx, id, func(s []types.SubtitleSentence) ([]types.SubtitleSentence, error) {
		return subtitles.ToggleExcluded(s, index)
	})
}

// Delete removes sentence index from the project.
func (u Usecase) Delete(ctx context.Context, id string, index int) ([]types.SubtitleSentence, error) {
	return u.edit(ctx, id, func(s []types.SubtitleSentence) ([]types.SubtitleSentence, error) {
		return subtitles.Delete(s, index)
	})
}

func (u Usecase) edit(ctx context.Context, id string, fn func([]types.SubtitleSentence) ([]types.SubtitleSentence, error)) ([]types.SubtitleSentence, error) {
	if err := u.requireStore(); err != nil {
		return nil, err
	}
	p, err := u.d.Store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	next, err := fn(p.Sentences)
	if err != nil {
		return nil, err
	}
	if err := u.d.Store.SaveSentences(ctx, id, next, p.Dropped); err != nil {
		return nil, err
	}
	return next, nil
}
