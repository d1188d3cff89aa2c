package form

import (
	"fmt"

	"resume-builder/internal/resumes"
	"resume-builder/internal/validation"
)

// PhotoField is the focus target reported when the photo fails its check.
const PhotoField = "photo"

// Check is the result of validating the whole form before a submission.
type Check struct {
	Valid      bool              `json:"valid"`
	FocusField string            `json:"focusField,omitempty"`
	Errors     map[string]string `json:"errors,omitempty"`
}

// Form is the in-progress resume. It is not safe for concurrent use.
type Form struct {
	fields      resumes.Fields
	experiences ExperienceList
	errors      map[string]string
	photo       *validation.Photo
	photoResult validation.PhotoResult
}

// New returns a blank form with no experience editors.
func New() *Form {
	return &Form{
		errors:      map[string]string{},
		photoResult: validation.PhotoResult{Valid: true},
	}
}

// Set stores value in field and validates it. The value is kept even when invalid.
func (f *Form) Set(name string, value string) (validation.Result, error) {
	field, ok := resumes.ParseField(name)
	if !ok {
		return validation.Result{}, fmt.Errorf("%w: %q", ErrUnknownField, name)
	}
	f.fields.Set(field, value)
	return f.validate(field), nil
}

func (f *Form) validate(field resumes.Field) validation.Result {
	res := validation.Field(field, f.fields.Get(field))
	if res.Valid {
		delete(f.errors, string(field))
	} else {
		f.errors[string(field)] = res.Message
	}
	return res
}

// Values returns the raw field values.
func (f *Form) Values() resumes.Fields {
	return f.fields
}

// Experiences exposes the experience editors.
func (f *Form) Experiences() *ExperienceList {
	return &f.experiences
}

// Errors returns a copy of the current per-field messages.
func (f *Form) Errors() map[string]string {
	out := make(map[string]string, len(f.errors))
	for k, v := range f.errors {
		out[k] = v
	}
	return out
}

// SetPhoto runs the photo check and keeps the photo only when it passes.
func (f *Form) SetPhoto(p *validation.Photo) validation.PhotoResult {
	res := validation.CheckPhoto(p)
	if res.Valid {
		f.photo = p
		delete(f.errors, PhotoField)
	} else {
		f.photo = nil
		f.errors[PhotoField] = res.Message
	}
	f.photoResult = res
	return res
}

// ClearPhoto removes the photo and its preview.
func (f *Form) ClearPhoto() {
	f.SetPhoto(nil)
}

// Photo returns the current photo state.
func (f *Form) Photo() validation.PhotoResult {
	return f.photoResult
}

// Validate checks every field in form order and then the photo. FocusField names the first failure.
func (f *Form) Validate() Check {
	check := Check{Valid: true, Errors: map[string]string{}}
	for _, field := range resumes.FormFields {
		res := f.validate(field)
		if res.Valid {
			continue
		}
		check.Errors[string(field)] = res.Message
		if check.Valid {
			check.Valid = false
			check.FocusField = string(field)
		}
	}
	if msg, bad := f.errors[PhotoField]; bad {
		check.Errors[PhotoField] = msg
		if check.Valid {
			check.Valid = false
			check.FocusField = PhotoField
		}
	}
	return check
}

// Draft snapshots the form values. The snapshot shares no state with the form.
func (f *Form) Draft() resumes.Draft {
	return resumes.Draft{Fields: f.fields, Experiences: f.experiences.ReadAll()}
}

// Restore loads a draft into the form. A nil draft leaves the form unchanged.
func (f *Form) Restore(d *resumes.Draft) {
	if d == nil {
		return
	}
	f.fields = d.Fields
	f.experiences.ReplaceAll(d.Experiences)
}

// ApplyRecord copies a stored record's values into the form and replaces the experience editors.
func (f *Form) ApplyRecord(r resumes.Record) {
	f.fields = resumes.FieldsFromRecord(r)
	f.experiences.ReplaceAll(r.Experiences)
	f.errors = map[string]string{}
}

// Reset blanks every field, removes all experience editors and clears errors and photo.
func (f *Form) Reset() {
	f.fields = resumes.Fields{}
	f.experiences.ReplaceAll(nil)
	f.errors = map[string]string{}
	f.photo = nil
	f.photoResult = validation.PhotoResult{Valid: true}
}
