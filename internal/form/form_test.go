package form

import (
	"errors"
	"testing"
	"time"

	"resume-builder/internal/resumes"
	"resume-builder/internal/validation"
)

func fillValid(t *testing.T, f *Form) {
	t.Helper()
	values := map[string]string{
		"name":      "Ada Lovelace",
		"email":     "ada@example.com",
		"phone":     "1234567890",
		"education": "Bachelor",
		"school":    "Cambridge",
		"industry":  "Software",
		"position":  "Engineer",
		"company":   "Analytical Engines",
		"summary":   "Writes programs",
		"skills":    "math, programming",
		"autobio":   "Born in London",
	}
	for k, v := range values {
		if res, err := f.Set(k, v); err != nil || !res.Valid {
			t.Fatalf("Set(%s): %+v %v", k, res, err)
		}
	}
}

func TestSetUnknownField(t *testing.T) {
	f := New()
	if _, err := f.Set("photo", "x"); !errors.Is(err, ErrUnknownField) {
		t.Fatalf("expected ErrUnknownField, got %v", err)
	}
}

func TestSetTracksErrors(t *testing.T) {
	f := New()
	res, _ := f.Set("phone", "12345")
	if res.Valid || f.Errors()["phone"] != validation.MsgPhone {
		t.Fatalf("expected phone error, got %+v %v", res, f.Errors())
	}
	if f.Values().Phone != "12345" {
		t.Fatalf("invalid values are still kept in the form")
	}
	f.Set("phone", "1234567890")
	if _, bad := f.Errors()["phone"]; bad {
		t.Fatalf("expected phone error cleared")
	}
}

func TestValidateFocusesFirstInvalid(t *testing.T) {
	f := New()
	fillValid(t, f)
	f.Set("name", "")
	f.Set("phone", "12")

	check := f.Validate()
	if check.Valid || check.FocusField != "name" {
		t.Fatalf("expected focus on name, got %+v", check)
	}
	if len(check.Errors) != 2 {
		t.Fatalf("expected all invalid fields collected, got %v", check.Errors)
	}
}

func TestValidateBlocksBadLinksAndPhoto(t *testing.T) {
	f := New()
	fillValid(t, f)
	f.Set("links", "example.com, https://a.com")
	if check := f.Validate(); check.Valid || check.FocusField != "links" {
		t.Fatalf("expected links to block, got %+v", check)
	}

	f.Set("links", "https://a.com, http://b.com")
	f.SetPhoto(&validation.Photo{ContentType: "image/gif", Size: 10})
	if check := f.Validate(); check.Valid || check.FocusField != PhotoField {
		t.Fatalf("expected photo to block, got %+v", check)
	}

	f.ClearPhoto()
	if check := f.Validate(); !check.Valid {
		t.Fatalf("expected valid form, got %+v", check)
	}
}

func TestDraftRestoreAndReset(t *testing.T) {
	f := New()
	fillValid(t, f)
	h := f.Experiences().Add()
	f.Experiences().Set(h, ExpCompany, "Acme")
	f.Experiences().Add()

	d := f.Draft()
	if len(d.Experiences) != 1 {
		t.Fatalf("expected blank editor dropped from draft, got %+v", d.Experiences)
	}

	g := New()
	g.Restore(&d)
	if g.Values() != f.Values() {
		t.Fatalf("restore mismatch")
	}
	if g.Experiences().Len() != 1 {
		t.Fatalf("expected one restored editor")
	}

	g.Restore(nil)
	if g.Values().Name != "Ada Lovelace" {
		t.Fatalf("nil draft must not change the form")
	}

	g.SetPhoto(&validation.Photo{ContentType: "image/png", Size: 10})
	g.Set("phone", "1")
	g.Reset()
	if g.Values() != (resumes.Fields{}) || g.Experiences().Len() != 0 || len(g.Errors()) != 0 {
		t.Fatalf("expected blank form after reset")
	}
	if g.Photo().PreviewURL != "" {
		t.Fatalf("expected photo preview cleared")
	}
}

func TestApplyRecordAndBuild(t *testing.T) {
	rec := resumes.Record{
		ID:          "r1",
		Name:        "Grace",
		Skills:      []string{"cobol", "navy"},
		Links:       []string{"https://a.com"},
		Experiences: []resumes.Experience{{Company: "USN"}},
	}
	f := New()
	f.Set("phone", "x")
	f.ApplyRecord(rec)
	if f.Values().Skills != "cobol, navy" || f.Values().Links != "https://a.com" {
		t.Fatalf("unexpected applied values: %+v", f.Values())
	}
	if len(f.Errors()) != 0 {
		t.Fatalf("expected errors cleared on apply")
	}

	out := f.Draft().Record(resumes.StatusDraft, time.UnixMilli(42), func() string { return "r2" })
	if out.ID != "r2" || out.CreatedAt != 42 || len(out.Skills) != 2 || len(out.Experiences) != 1 {
		t.Fatalf("unexpected built record: %+v", out)
	}
}
