package usecase

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/forPelevin/subalign/internal/domain/recovery"
	"github.com/forPelevin/subalign/internal/faults"
	"github.com/forPelevin/subalign/internal/types"
)

// RecoveryPrompt builds the prompt a human can paste into a chat UI when
// the automatic alignment left sentences behind.
func (u Usecase) RecoveryPrompt(ctx context.Context, id string) (recovery.Prompt, error) {
	p, err := u.Project(ctx, id)
	if err != nil {
		return recovery.Prompt{}, err
	}
	return recovery.BuildPrompt(p.Words, p.Candidates)
}

// ApplyRecovery parses a model response and replaces the project's
// sentences. Nothing is stored unless the whole response is valid.
func (u Usecase) ApplyRecovery(ctx context.Context, id, raw string) ([]types.SubtitleSentence, error) {
	p, err := u.Project(ctx, id)
	if err != nil {
		return nil, err
	}
	sentences, err := recovery.ParseResult(raw, p.Words, p.Candidates)
	if err != nil {
		return nil, err
	}
	if err := u.d.Store.SaveSentences(ctx, id, sentences, nil); err != nil {
		return nil, err
	}
	u.d.Logger.Info("recovery applied", "project", id, "sentences", len(sentences))
	return sentences, nil
}

// Recover asks the configured generator for the grouping and applies it.
// The raw response is returned even when parsing fails.
func (u Usecase) Recover(ctx context.Context, id string) ([]types.SubtitleSentence, string, error) {
	p, err := u.Project(ctx, id)
	if err != nil {
		return nil, "", err
	}
	sentences, raw, err := recovery.NewRecoverer(u.d.LLM).Recover(ctx, p.Words, p.Candidates)
	if err != nil {
		return nil, raw, err
	}
	if err := u.d.Store.SaveSentences(ctx, id, sentences, nil); err != nil {
		return nil, raw, err
	}
	return sentences, raw, nil
}

// settleDelay lets an editor finish writing before the file is read.
const settleDelay = 50 * time.Millisecond

// WatchRecovery applies the response in path, then re-applies it on every
// write until one parses into a valid partition or ctx ends. onAttempt,
// when set, sees the outcome of each failed attempt.
func (u Usecase) WatchRecovery(ctx context.Context, id, path string, onAttempt func(error)) ([]types.SubtitleSentence, error) {
	path, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, faults.Wrap(faults.ErrExternalTool, "watch recovery", "", err)
	}
	defer watcher.Close()
	// Editors often replace the file, so watch the directory.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return nil, faults.Wrap(faults.ErrExternalTool, "watch recovery", filepath.Dir(path), err)
	}

	try := func() ([]types.SubtitleSentence, bool, error) {
		b, err := os.ReadFile(path)
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		if err != nil {
			return nil, false, err
		}
		out, err := u.ApplyRecovery(ctx, id, string(b))
		if err == nil {
			return out, true, nil
		}
		if !errors.Is(err, faults.ErrParse) {
			return nil, false, err
		}
		u.d.Logger.Warn("recovery response rejected", "project", id, "error", err)
		if onAttempt != nil {
			onAttempt(err)
		}
		return nil, false, nil
	}

	if out, ok, err := try(); err != nil || ok {
		return out, err
	}
	u.d.Logger.Info("watching recovery response", "project", id, "path", path)

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil, faults.Wrap(faults.ErrExternalTool, "watch recovery", "watcher closed", nil)
			}
			if event.Name != path || !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(settleDelay):
			}
			if out, ok, err := try(); err != nil || ok {
				return out, err
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil, faults.Wrap(faults.ErrExternalTool, "watch recovery", "watcher closed", nil)
			}
			u.d.Logger.Warn("file watcher error", "error", err)
		}
	}
}
