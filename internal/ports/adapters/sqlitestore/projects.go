package sqlitestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/forPelevin/subalign/internal/faults"
	"github.com/forPelevin/subalign/internal/types"
)

const projectColumns = "id, name, source_path, created_at, updated_at, words_json, candidates_json, sentences_json, dropped_json"

// Create assigns an id when p has none and stores the project with all its
// collections.
func (s *Store) Create(ctx context.Context, p types.Project) (types.Project, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if strings.TrimSpace(p.Name) == "" {
		p.Name = strings.TrimSuffix(filepath.Base(p.SourcePath), filepath.Ext(p.SourcePath))
	}
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now

	words, err := marshalList(p.Words)
	if err != nil {
		return types.Project{}, err
	}
	cands, err := marshalList(p.Candidates)
	if err != nil {
		return types.Project{}, err
	}
	sents, err := marshalList(p.Sentences)
	if err != nil {
		return types.Project{}, err
	}
	dropped, err := marshalList(p.Dropped)
	if err != nil {
		return types.Project{}, err
	}
	_, err = s.execWithRetry(ctx,
		`INSERT INTO projects (`+projectColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID,
		p.Name,
		nullableString(p.SourcePath),
		now.Format(time.RFC3339Nano),
		now.Format(time.RFC3339Nano),
		words,
		cands,
		sents,
		dropped,
	)
	if err != nil {
		return types.Project{}, fmt.Errorf("insert project: %w", err)
	}
	return p, nil
}

func (s *Store) Get(ctx context.Context, id string) (types.Project, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = ?`, id)
	p, err := scanProject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Project{}, faults.Wrap(faults.ErrNotFound, "get project", id, nil)
	}
	if err != nil {
		return types.Project{}, fmt.Errorf("get project: %w", err)
	}
	return p, nil
}

// List returns all projects, oldest first.
func (s *Store) List(ctx context.Context) ([]types.Project, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+projectColumns+` FROM projects ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var out []types.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) SaveWords(ctx context.Context, id string, words []types.TimedWord) error {
	b, err := marshalList(words)
	if err != nil {
		return err
	}
	return s.update(ctx, id, "words_json = ?", b)
}

// SaveCandidates stores the split-only result ahead of alignment.
func (s *Store) SaveCandidates(ctx context.Context, id string, candidates []string) error {
	b, err := marshalList(candidates)
	if err != nil {
		return err
	}
	return s.update(ctx, id, "candidates_json = ?", b)
}

// SaveSentences replaces the sentence field wholesale together with the
// dropped-candidate report of the pass that produced it.
func (s *Store) SaveSentences(ctx context.Context, id string, sentences []types.SubtitleSentence, dropped []types.DroppedSentence) error {
	sb, err := marshalList(sentences)
	if err != nil {
		return err
	}
	db, err := marshalList(dropped)
	if err != nil {
		return err
	}
	return s.update(ctx, id, "sentences_json = ?, dropped_json = ?", sb, db)
}

func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.execWithRetry(ctx, `DELETE FROM projects WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	return requireAffected(res, id)
}

func (s *Store) update(ctx context.Context, id, set string, args ...any) error {
	args = append(args, time.Now().UTC().Format(time.RFC3339Nano), id)
	res, err := s.execWithRetry(ctx, `UPDATE projects SET `+set+`, updated_at = ? WHERE id = ?`, args...)
	if err != nil {
		return fmt.Errorf("update project: %w", err)
	}
	return requireAffected(res, id)
}

func requireAffected(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return faults.Wrap(faults.ErrNotFound, "project", id, nil)
	}
	return nil
}

func scanProject(scanner interface{ Scan(dest ...any) error }) (types.Project, error) {
	var (
		p                        types.Project
		sourcePath               sql.NullString
		createdRaw, updatedRaw   string
		wordsRaw, candsRaw       string
		sentencesRaw, droppedRaw string
	)
	if err := scanner.Scan(&p.ID, &p.Name, &sourcePath, &createdRaw, &updatedRaw, &wordsRaw, &candsRaw, &sentencesRaw, &droppedRaw); err != nil {
		return types.Project{}, err
	}
	p.SourcePath = sourcePath.String
	p.CreatedAt = parseTime(createdRaw)
	p.UpdatedAt = parseTime(updatedRaw)
	for _, f := range []struct {
		raw string
		dst any
	}{
		{wordsRaw, &p.Words},
		{candsRaw, &p.Candidates},
		{sentencesRaw, &p.Sentences},
		{droppedRaw, &p.Dropped},
	} {
		if err := json.Unmarshal([]byte(f.raw), f.dst); err != nil {
			return types.Project{}, fmt.Errorf("decode project %s: %w", p.ID, err)
		}
	}
	return p, nil
}

// marshalList encodes nil slices as [] so stored fields are always arrays.
func marshalList[T any](v []T) (string, error) {
	if v == nil {
		v = []T{}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode list: %w", err)
	}
	return string(b), nil
}

func nullableString(v string) any {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return v
}

func parseTime(raw string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}
