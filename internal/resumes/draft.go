package resumes

import (
	"context"
	"encoding/json"
	"fmt"

	"resume-builder/internal/shared/storage/kv"
	"resume-builder/internal/shared/telemetry"
)

// DraftCache keeps at most one Draft under KeyDraft.
type DraftCache struct {
	kv kv.Store
}

// NewDraftCache wraps a namespaced key-value backend.
func NewDraftCache(backend kv.Store) *DraftCache {
	return &DraftCache{kv: backend}
}

// Load returns the stored draft, or nil when none exists or it cannot be decoded.
func (c *DraftCache) Load(ctx context.Context) (*Draft, error) {
	raw, ok, err := c.kv.Get(ctx, KeyDraft)
	if err != nil {
		return nil, fmt.Errorf("load draft: %w", err)
	}
	if !ok || raw == "" {
		return nil, nil
	}
	var d Draft
	if err := json.Unmarshal([]byte(raw), &d); err != nil {
		telemetry.Warn("resumes.malformed", map[string]any{"key": KeyDraft, "error": err.Error()})
		return nil, nil
	}
	d.Experiences = CompactExperiences(d.Experiences)
	return &d, nil
}

// Save overwrites the stored draft. Blank experiences are dropped first.
func (c *DraftCache) Save(ctx context.Context, d Draft) error {
	d.Experiences = CompactExperiences(d.Experiences)
	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("encode draft: %w", err)
	}
	if err := c.kv.Set(ctx, KeyDraft, string(data)); err != nil {
		return fmt.Errorf("save draft: %w", err)
	}
	return nil
}

// Clear removes the stored draft.
func (c *DraftCache) Clear(ctx context.Context) error {
	if err := c.kv.Remove(ctx, KeyDraft); err != nil {
		return fmt.Errorf("clear draft: %w", err)
	}
	return nil
}
