package view

import (
	"fmt"
	"strings"

	"resume-builder/internal/resumes"
)

// ListItem is one record card in the list.
type ListItem struct {
	ID          string         `json:"id"`
	Index       int            `json:"index"`
	Heading     string         `json:"heading"`
	Status      resumes.Status `json:"status"`
	StatusLabel string         `json:"statusLabel"`
	Meta        string         `json:"meta"`
	Skills      []string       `json:"skills"`
	Details     Details        `json:"details"`
}

// Details is the expandable part of a list card.
type Details struct {
	Email       string   `json:"email"`
	Phone       string   `json:"phone"`
	Education   string   `json:"education"`
	Summary     string   `json:"summary"`
	Languages   string   `json:"languages"`
	Experiences []string `json:"experiences"`
	Certs       string   `json:"certs"`
	Links       []Link   `json:"links"`
	Autobio     string   `json:"autobio"`
}

// List is the rendered record list. Empty is set when no record matches, so callers can show a no-results state.
type List struct {
	Query string     `json:"query"`
	Total int        `json:"total"`
	Empty bool       `json:"empty"`
	Items []ListItem `json:"items"`
}

// Filter keeps the records whose searchable text contains query, case-insensitively. Order is preserved.
func Filter(records []resumes.Record, query string) []resumes.Record {
	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]resumes.Record, 0, len(records))
	for _, r := range records {
		if q == "" || strings.Contains(haystack(r), q) {
			out = append(out, r)
		}
	}
	return out
}

func haystack(r resumes.Record) string {
	return strings.ToLower(strings.Join([]string{
		r.Name, r.Company, r.Position, r.Industry, r.Education, r.School,
		r.Summary, r.Languages, r.Certs, strings.Join(r.Skills, ","),
	}, " "))
}

// RenderList filters records and numbers the matches from 1 within the filtered list.
func RenderList(records []resumes.Record, query string) List {
	filtered := Filter(records, query)
	list := List{
		Query: strings.TrimSpace(query),
		Total: len(records),
		Empty: len(filtered) == 0,
		Items: make([]ListItem, 0, len(filtered)),
	}
	for i, r := range filtered {
		list.Items = append(list.Items, renderItem(i+1, r))
	}
	return list
}

func statusLabel(s resumes.Status) string {
	if s == resumes.StatusDraft {
		return "Draft"
	}
	return "Saved"
}

func renderItem(index int, r resumes.Record) ListItem {
	item := ListItem{
		ID:          EscapeAttr(r.ID),
		Index:       index,
		Heading:     fmt.Sprintf("%s (%s)", EscapeHTML(r.Name), orDefault(r.Position, "position not set")),
		Status:      r.Status,
		StatusLabel: statusLabel(r.Status),
		Meta: fmt.Sprintf("Resume #%d | %s | %s", index,
			orDefault(r.Industry, "industry not set"), orDefault(r.Company, "company not set")),
		Skills: escapeAll(r.Skills),
		Details: Details{
			Email:     EscapeHTML(r.Email),
			Phone:     EscapeHTML(r.Phone),
			Education: fmt.Sprintf("%s (%s)", EscapeHTML(r.Education), EscapeHTML(r.School)),
			Summary:   EscapeHTML(r.Summary),
			Languages: orPlaceholder(r.Languages),
			Certs:     orPlaceholder(r.Certs),
			Links:     links(r.Links),
			Autobio:   orPlaceholder(r.Autobio),
		},
	}
	item.Details.Experiences = make([]string, 0, len(r.Experiences))
	for _, e := range r.Experiences {
		item.Details.Experiences = append(item.Details.Experiences, fmt.Sprintf("%s / %s / %s years: %s",
			EscapeHTML(e.Company), EscapeHTML(e.Title), orPlaceholder(e.Years), EscapeHTML(e.Desc)))
	}
	if len(item.Details.Experiences) == 0 {
		item.Details.Experiences = append(item.Details.Experiences, "no work experience")
	}
	return item
}
