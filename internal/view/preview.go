package view

import (
	"fmt"
	"strings"

	"resume-builder/internal/resumes"
)

// Placeholder stands in for an empty value.
const Placeholder = "—"

// Link is a rendered hyperlink. Href is attribute-escaped, Text is HTML-escaped.
type Link struct {
	Href string `json:"href"`
	Text string `json:"text"`
}

// PreviewExperience is one experience card.
type PreviewExperience struct {
	Title string `json:"title"`
	Meta  string `json:"meta"`
	Desc  string `json:"desc"`
}

// Preview is the escaped display model of the form as it is being edited.
type Preview struct {
	IndexLabel  string              `json:"indexLabel"`
	Name        string              `json:"name"`
	Education   string              `json:"education"`
	Email       string              `json:"email"`
	Phone       string              `json:"phone"`
	Target      string              `json:"target"`
	Summary     string              `json:"summary"`
	Languages   string              `json:"languages"`
	Skills      []string            `json:"skills"`
	Experiences []PreviewExperience `json:"experiences"`
	// NoExperience is set when Experiences is empty and the placeholder should be shown.
	NoExperience bool   `json:"noExperience"`
	Certs        string `json:"certs"`
	Links        []Link `json:"links"`
	Autobio      string `json:"autobio"`
	PhotoURL     string `json:"photoUrl,omitempty"`
}

// PreviewInput is everything the preview depends on.
type PreviewInput struct {
	Fields      resumes.Fields
	Experiences []resumes.Experience
	// StoredCount is the number of records in the store at render time.
	StoredCount int
	PhotoURL    string
}

func orPlaceholder(s string) string {
	if s = strings.TrimSpace(s); s == "" {
		return Placeholder
	}
	return EscapeHTML(s)
}

func orDefault(s, def string) string {
	if s = strings.TrimSpace(s); s == "" {
		return EscapeHTML(def)
	}
	return EscapeHTML(s)
}

// RenderPreview builds the preview. The index label is StoredCount+1, recomputed on every call.
func RenderPreview(in PreviewInput) Preview {
	f := in.Fields
	p := Preview{
		IndexLabel: fmt.Sprintf("Resume #%d (preview)", in.StoredCount+1),
		Name:       orPlaceholder(f.Name),
		Education:  fmt.Sprintf("Education: %s (School: %s)", orPlaceholder(f.Education), orPlaceholder(f.School)),
		Email:      "Email: " + orPlaceholder(f.Email),
		Phone:      "Phone: " + orPlaceholder(f.Phone),
		Target: fmt.Sprintf("Industry: %s / Position: %s / Company: %s",
			orPlaceholder(f.Industry), orPlaceholder(f.Position), orPlaceholder(f.Company)),
		Summary:   "Summary: " + orPlaceholder(f.Summary),
		Languages: "Languages: " + orPlaceholder(f.Languages),
		Skills:    escapeAll(resumes.SplitCSV(f.Skills)),
		Certs:     orPlaceholder(f.Certs),
		Links:     links(resumes.SplitCSV(f.Links)),
		Autobio:   orPlaceholder(f.Autobio),
		PhotoURL:  EscapeAttr(in.PhotoURL),
	}

	exps := resumes.CompactExperiences(in.Experiences)
	p.Experiences = make([]PreviewExperience, 0, len(exps))
	for _, e := range exps {
		p.Experiences = append(p.Experiences, PreviewExperience{
			Title: orDefault(e.Company, "(company not set)") + " · " + orDefault(e.Title, "(title not set)"),
			Meta:  "Years: " + orPlaceholder(e.Years),
			Desc:  EscapeHTML(e.Desc),
		})
	}
	p.NoExperience = len(p.Experiences) == 0
	return p
}

func escapeAll(items []string) []string {
	out := make([]string, len(items))
	for i, s := range items {
		out[i] = EscapeHTML(s)
	}
	return out
}

func links(urls []string) []Link {
	out := make([]Link, len(urls))
	for i, u := range urls {
		out[i] = Link{Href: EscapeAttr(u), Text: EscapeHTML(u)}
	}
	return out
}
