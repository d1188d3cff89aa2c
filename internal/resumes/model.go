package resumes

import (
	"fmt"
	"strings"
	"time"
)

// Status marks whether a record was saved as a draft or submitted as final.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusSubmitted Status = "submitted"
)

// ParseStatus accepts "draft" or "submitted".
func ParseStatus(raw string) (Status, error) {
	switch Status(strings.ToLower(strings.TrimSpace(raw))) {
	case StatusDraft:
		return StatusDraft, nil
	case StatusSubmitted:
		return StatusSubmitted, nil
	}
	return "", fmt.Errorf("%w: status %q", ErrInvalidInput, raw)
}

// Field names one text input of the resume form.
type Field string

const (
	FieldName      Field = "name"
	FieldEmail     Field = "email"
	FieldPhone     Field = "phone"
	FieldEducation Field = "education"
	FieldSchool    Field = "school"
	FieldIndustry  Field = "industry"
	FieldPosition  Field = "position"
	FieldCompany   Field = "company"
	FieldSummary   Field = "summary"
	FieldSkills    Field = "skills"
	FieldAutobio   Field = "autobio"
	FieldLanguages Field = "languages"
	FieldCerts     Field = "certs"
	FieldLinks     Field = "links"
)

// RequiredFields are checked on every submission, in focus order.
var RequiredFields = []Field{
	FieldName, FieldEmail, FieldPhone, FieldEducation, FieldSchool, FieldIndustry,
	FieldPosition, FieldCompany, FieldSummary, FieldSkills, FieldAutobio,
}

// FormFields lists every text field: the required ones followed by languages, certs, links.
var FormFields = append(append([]Field{}, RequiredFields...), FieldLanguages, FieldCerts, FieldLinks)

// ParseField reports whether raw names a form field.
func ParseField(raw string) (Field, bool) {
	f := Field(strings.TrimSpace(raw))
	for _, known := range FormFields {
		if f == known {
			return f, true
		}
	}
	return "", false
}

// Fields holds the raw text of every form input. Skills and links are still comma-separated here.
type Fields struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Education string `json:"education"`
	School    string `json:"school"`
	Industry  string `json:"industry"`
	Position  string `json:"position"`
	Company   string `json:"company"`
	Summary   string `json:"summary"`
	Skills    string `json:"skills"`
	Languages string `json:"languages"`
	Certs     string `json:"certs"`
	Links     string `json:"links"`
	Autobio   string `json:"autobio"`
}

func (f *Fields) ptr(field Field) *string {
	switch field {
	case FieldName:
		return &f.Name
	case FieldEmail:
		return &f.Email
	case FieldPhone:
		return &f.Phone
	case FieldEducation:
		return &f.Education
	case FieldSchool:
		return &f.School
	case FieldIndustry:
		return &f.Industry
	case FieldPosition:
		return &f.Position
	case FieldCompany:
		return &f.Company
	case FieldSummary:
		return &f.Summary
	case FieldSkills:
		return &f.Skills
	case FieldLanguages:
		return &f.Languages
	case FieldCerts:
		return &f.Certs
	case FieldLinks:
		return &f.Links
	case FieldAutobio:
		return &f.Autobio
	}
	return nil
}

// Get returns the value of field, or "" for an unknown field.
func (f Fields) Get(field Field) string {
	if p := f.ptr(field); p != nil {
		return *p
	}
	return ""
}

// Set stores value under field and reports whether the field exists.
func (f *Fields) Set(field Field, value string) bool {
	p := f.ptr(field)
	if p == nil {
		return false
	}
	*p = value
	return true
}

// Experience is one work-history entry nested in a record or draft.
type Experience struct {
	Company string `json:"company"`
	Title   string `json:"title"`
	Years   string `json:"years"`
	Desc    string `json:"desc"`
}

// Trimmed returns the entry with surrounding whitespace removed from every field.
func (e Experience) Trimmed() Experience {
	return Experience{
		Company: strings.TrimSpace(e.Company),
		Title:   strings.TrimSpace(e.Title),
		Years:   strings.TrimSpace(e.Years),
		Desc:    strings.TrimSpace(e.Desc),
	}
}

// IsBlank reports whether all four fields are empty after trimming.
func (e Experience) IsBlank() bool {
	t := e.Trimmed()
	return t.Company == "" && t.Title == "" && t.Years == "" && t.Desc == ""
}

// CompactExperiences trims every entry and drops the blank ones, preserving order.
func CompactExperiences(entries []Experience) []Experience {
	out := make([]Experience, 0, len(entries))
	for _, e := range entries {
		if e.IsBlank() {
			continue
		}
		out = append(out, e.Trimmed())
	}
	return out
}

// Record is a persisted resume. Records are never edited in place.
type Record struct {
	ID          string       `json:"id"`
	Status      Status       `json:"status"`
	CreatedAt   int64        `json:"createdAt"`
	Name        string       `json:"name"`
	Email       string       `json:"email"`
	Phone       string       `json:"phone"`
	Education   string       `json:"education"`
	School      string       `json:"school"`
	Industry    string       `json:"industry"`
	Position    string       `json:"position"`
	Company     string       `json:"company"`
	Summary     string       `json:"summary"`
	Skills      []string     `json:"skills"`
	Languages   string       `json:"languages"`
	Certs       string       `json:"certs"`
	Links       []string     `json:"links"`
	Autobio     string       `json:"autobio"`
	Experiences []Experience `json:"experiences"`
}

// Draft is the in-progress form snapshot kept under the form-draft key.
type Draft struct {
	Fields
	Experiences []Experience `json:"experiences"`
}

// Record builds a stored record from the draft's values.
func (d Draft) Record(status Status, now time.Time, newID func() string) Record {
	return BuildRecord(d.Fields, d.Experiences, status, now, newID)
}

// SplitCSV splits on commas, trims each entry and drops empties.
func SplitCSV(text string) []string {
	out := []string{}
	for _, part := range strings.Split(text, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// BuildRecord creates a record from the current form values.
func BuildRecord(fields Fields, experiences []Experience, status Status, now time.Time, newID func() string) Record {
	trim := strings.TrimSpace
	return Record{
		ID:          newID(),
		Status:      status,
		CreatedAt:   now.UnixMilli(),
		Name:        trim(fields.Name),
		Email:       trim(fields.Email),
		Phone:       trim(fields.Phone),
		Education:   trim(fields.Education),
		School:      trim(fields.School),
		Industry:    trim(fields.Industry),
		Position:    trim(fields.Position),
		Company:     trim(fields.Company),
		Summary:     trim(fields.Summary),
		Skills:      SplitCSV(fields.Skills),
		Languages:   trim(fields.Languages),
		Certs:       trim(fields.Certs),
		Links:       SplitCSV(fields.Links),
		Autobio:     trim(fields.Autobio),
		Experiences: CompactExperiences(experiences),
	}
}

// FieldsFromRecord turns a stored record back into form values.
func FieldsFromRecord(r Record) Fields {
	return Fields{
		Name:      r.Name,
		Email:     r.Email,
		Phone:     r.Phone,
		Education: r.Education,
		School:    r.School,
		Industry:  r.Industry,
		Position:  r.Position,
		Company:   r.Company,
		Summary:   r.Summary,
		Skills:    strings.Join(r.Skills, ", "),
		Languages: r.Languages,
		Certs:     r.Certs,
		Links:     strings.Join(r.Links, ", "),
		Autobio:   r.Autobio,
	}
}
