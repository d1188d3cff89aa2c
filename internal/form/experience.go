// Package form holds the editable state of one resume form: field values, experience editors, errors and photo.
package form

import (
	"errors"
	"fmt"
	"strings"

	"resume-builder/internal/resumes"
	"resume-builder/internal/validation"
)

var (
	ErrUnknownField  = errors.New("unknown field")
	ErrUnknownHandle = errors.New("unknown experience handle")
)

// Experience entry field names accepted by ExperienceList.Set.
const (
	ExpCompany = "company"
	ExpTitle   = "title"
	ExpYears   = "years"
	ExpDesc    = "desc"
)

// Editor is one experience entry with its form-local handle.
type Editor struct {
	Handle string             `json:"handle"`
	Entry  resumes.Experience `json:"entry"`
}

// ExperienceList is the ordered set of experience editors. Handles come from a counter that never resets.
// It is not safe for concurrent use.
type ExperienceList struct {
	editors []Editor
	next    int
}

func (l *ExperienceList) newHandle() string {
	h := fmt.Sprintf("exp-%d", l.next)
	l.next++
	return h
}

// Add appends a blank editor and returns its handle.
func (l *ExperienceList) Add() string {
	h := l.newHandle()
	l.editors = append(l.editors, Editor{Handle: h})
	return h
}

// Remove drops the editor with handle. Stale handles are ignored.
func (l *ExperienceList) Remove(handle string) bool {
	for i, e := range l.editors {
		if e.Handle == handle {
			l.editors = append(l.editors[:i], l.editors[i+1:]...)
			return true
		}
	}
	return false
}

// Set updates one field of an editor. Years must be a non-negative number or empty.
func (l *ExperienceList) Set(handle, field, value string) (validation.Result, error) {
	idx := -1
	for i, e := range l.editors {
		if e.Handle == handle {
			idx = i
			break
		}
	}
	if idx < 0 {
		return validation.Result{}, ErrUnknownHandle
	}

	entry := &l.editors[idx].Entry
	switch strings.TrimSpace(field) {
	case ExpCompany:
		entry.Company = value
	case ExpTitle:
		entry.Title = value
	case ExpDesc:
		entry.Desc = value
	case ExpYears:
		res := validation.Years(value)
		if !res.Valid {
			return res, nil
		}
		entry.Years = value
	default:
		return validation.Result{}, fmt.Errorf("%w: experience %q", ErrUnknownField, field)
	}
	return validation.Result{Valid: true}, nil
}

// ReadAll returns the entries in order, trimmed, with blank entries dropped.
func (l *ExperienceList) ReadAll() []resumes.Experience {
	raw := make([]resumes.Experience, len(l.editors))
	for i, e := range l.editors {
		raw[i] = e.Entry
	}
	return resumes.CompactExperiences(raw)
}

// ReplaceAll discards every editor and creates one per entry, in order.
func (l *ExperienceList) ReplaceAll(entries []resumes.Experience) {
	l.editors = make([]Editor, 0, len(entries))
	for _, entry := range entries {
		l.editors = append(l.editors, Editor{Handle: l.newHandle(), Entry: entry})
	}
}

// Editors returns a copy of the current editors.
func (l *ExperienceList) Editors() []Editor {
	out := make([]Editor, len(l.editors))
	copy(out, l.editors)
	return out
}

// Len returns the number of editors, blank ones included.
func (l *ExperienceList) Len() int {
	return len(l.editors)
}
