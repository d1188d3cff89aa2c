package builder

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"resume-builder/internal/resumes"
	"resume-builder/internal/search"
	"resume-builder/internal/shared/storage/kv"
	"resume-builder/internal/validation"
	"resume-builder/internal/view"
)

func testOptions() Options {
	var mu sync.Mutex
	n := 0
	return Options{
		Now: func() time.Time { return time.UnixMilli(1700000000000) },
		NewID: func() string {
			mu.Lock()
			defer mu.Unlock()
			n++
			return fmt.Sprintf("rec-%d", n)
		},
		Wait: func(ctx context.Context, d time.Duration) error { return ctx.Err() },
	}
}

func openTestWorkspace(t *testing.T, opts Options) (*Workspace, kv.Store) {
	t.Helper()
	backend, err := kv.Namespaced(kv.NewMemory(), "guest:test")
	if err != nil {
		t.Fatalf("Namespaced: %v", err)
	}
	w, err := Open(context.Background(), "guest:test", backend, opts)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(w.Close)
	return w, backend
}

var validValues = map[string]string{
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

func fill(t *testing.T, w *Workspace, overrides map[string]string) {
	t.Helper()
	ctx := context.Background()
	for k, v := range validValues {
		if _, _, err := w.SetField(ctx, k, v); err != nil {
			t.Fatalf("SetField(%s): %v", k, err)
		}
	}
	for k, v := range overrides {
		if _, _, err := w.SetField(ctx, k, v); err != nil {
			t.Fatalf("SetField(%s): %v", k, err)
		}
	}
}

func count(t *testing.T, w *Workspace) int {
	t.Helper()
	list, err := w.List(context.Background(), "")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	return len(list.Items)
}

func TestOpenAddsOneBlankExperience(t *testing.T) {
	w, _ := openTestWorkspace(t, testOptions())
	state := w.Form()
	if len(state.Experiences) != 1 || state.Experiences[0].Handle != "exp-0" {
		t.Fatalf("expected one blank editor, got %+v", state.Experiences)
	}
	if state.State != StateIdle {
		t.Fatalf("expected idle, got %s", state.State)
	}
}

func TestOpenRestoresDraft(t *testing.T) {
	ctx := context.Background()
	backend, _ := kv.Namespaced(kv.NewMemory(), "guest:x")
	drafts := resumes.NewDraftCache(backend)
	err := drafts.Save(ctx, resumes.Draft{
		Fields:      resumes.Fields{Name: "Grace"},
		Experiences: []resumes.Experience{{Company: "USN"}, {Company: "Univac"}},
	})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	w, err := Open(ctx, "guest:x", backend, testOptions())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer w.Close()
	state := w.Form()
	if state.Fields.Name != "Grace" || len(state.Experiences) != 2 {
		t.Fatalf("unexpected restored state: %+v", state)
	}
}

func TestEditSavesDraftAndPreview(t *testing.T) {
	ctx := context.Background()
	w, backend := openTestWorkspace(t, testOptions())

	res, p, err := w.SetField(ctx, "name", "<Ada>")
	if err != nil || !res.Valid {
		t.Fatalf("SetField: %+v %v", res, err)
	}
	if p.Name != "&lt;Ada&gt;" || p.IndexLabel != "Resume #1 (preview)" {
		t.Fatalf("unexpected preview: %+v", p)
	}
	d, _ := resumes.NewDraftCache(backend).Load(ctx)
	if d == nil || d.Name != "<Ada>" {
		t.Fatalf("expected draft saved, got %+v", d)
	}

	if _, _, err := w.SetField(ctx, "photo", "x"); err == nil {
		t.Fatalf("expected unknown field error")
	}
}

func TestSubmitBlockedOnEmptyName(t *testing.T) {
	ctx := context.Background()
	w, _ := openTestWorkspace(t, testOptions())
	fill(t, w, map[string]string{"name": ""})

	out, err := w.Submit(ctx, resumes.StatusSubmitted)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if out.Saved || out.FocusField != "name" {
		t.Fatalf("expected blocked submission focused on name, got %+v", out)
	}
	if out.Errors["name"] != validation.MsgRequired {
		t.Fatalf("unexpected errors: %v", out.Errors)
	}
	if got := out.Transitions; len(got) != 2 || got[1] != "validating->idle" {
		t.Fatalf("unexpected transitions: %v", got)
	}
	if n := count(t, w); n != 0 {
		t.Fatalf("store must be unchanged, got %d records", n)
	}
}

func TestSubmitBlockedOnPhone(t *testing.T) {
	ctx := context.Background()
	w, _ := openTestWorkspace(t, testOptions())
	fill(t, w, map[string]string{"phone": "12345"})

	out, _ := w.Submit(ctx, resumes.StatusDraft)
	if out.Saved || out.FocusField != "phone" || out.Errors["phone"] != validation.MsgPhone {
		t.Fatalf("expected phone block, got %+v", out)
	}

	w.SetField(ctx, "phone", "1234567890")
	out, _ = w.Submit(ctx, resumes.StatusDraft)
	if !out.Saved {
		t.Fatalf("expected save after fixing phone, got %+v", out)
	}
}

func TestSubmitFinalPrependsAndResets(t *testing.T) {
	ctx := context.Background()
	w, backend := openTestWorkspace(t, testOptions())
	fill(t, w, map[string]string{"links": "https://a.com, http://b.com"})

	first, err := w.Submit(ctx, resumes.StatusSubmitted)
	if err != nil || !first.Saved {
		t.Fatalf("first submit: %+v %v", first, err)
	}

	fill(t, w, nil)
	out, err := w.Submit(ctx, resumes.StatusSubmitted)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if !out.Saved || out.Ack != AckSubmitted || out.Record == nil {
		t.Fatalf("unexpected outcome: %+v", out)
	}

	list, _ := w.List(ctx, "")
	if len(list.Items) != 2 || list.Items[0].ID != out.Record.ID {
		t.Fatalf("expected new record at position 0, got %+v", list.Items)
	}
	rec, _ := w.Record(ctx, first.Record.ID)
	if len(rec.Links) != 2 || rec.Links[0] != "https://a.com" || rec.Links[1] != "http://b.com" {
		t.Fatalf("unexpected links: %v", rec.Links)
	}
	if rec.Status != resumes.StatusSubmitted || rec.CreatedAt != 1700000000000 {
		t.Fatalf("unexpected record header: %+v", rec)
	}

	state := w.Form()
	if state.Fields != (resumes.Fields{}) || len(state.Experiences) != 0 || len(state.Errors) != 0 {
		t.Fatalf("expected reset form, got %+v", state)
	}
	if out.Preview == nil || out.Preview.IndexLabel != "Resume #3 (preview)" {
		t.Fatalf("expected preview re-derived, got %+v", out.Preview)
	}
	if d, _ := resumes.NewDraftCache(backend).Load(ctx); d != nil {
		t.Fatalf("expected draft cleared, got %+v", d)
	}
	want := []string{"idle->validating", "validating->pending", "pending->persisting", "persisting->idle"}
	if fmt.Sprint(out.Transitions) != fmt.Sprint(want) {
		t.Fatalf("unexpected transitions: %v", out.Transitions)
	}
}

func TestSubmitDraftKeepsForm(t *testing.T) {
	ctx := context.Background()
	w, _ := openTestWorkspace(t, testOptions())
	fill(t, w, nil)

	out, err := w.Submit(ctx, resumes.StatusDraft)
	if err != nil || !out.Saved {
		t.Fatalf("Submit: %+v %v", out, err)
	}
	if out.Ack != AckDraft || out.Record.Status != resumes.StatusDraft {
		t.Fatalf("unexpected outcome: %+v", out)
	}
	if n := count(t, w); n != 1 {
		t.Fatalf("expected one record, got %d", n)
	}
	if w.Form().Fields.Name != "Ada Lovelace" {
		t.Fatalf("draft save must keep the form populated")
	}
}

func TestBlankExperiencesNeverPersisted(t *testing.T) {
	ctx := context.Background()
	w, _ := openTestWorkspace(t, testOptions())
	fill(t, w, nil)
	w.AddExperience(ctx)
	h, _, _ := w.AddExperience(ctx)
	w.AddExperience(ctx)
	if _, err := w.SetExperienceField(ctx, h, "company", "Acme"); err != nil {
		t.Fatalf("SetExperienceField: %v", err)
	}

	out, _ := w.Submit(ctx, resumes.StatusDraft)
	if len(out.Record.Experiences) != 1 || out.Record.Experiences[0].Company != "Acme" {
		t.Fatalf("unexpected experiences: %+v", out.Record.Experiences)
	}
}

func TestSecondFinalSubmitWhilePending(t *testing.T) {
	ctx := context.Background()
	opts := testOptions()
	entered := make(chan struct{})
	release := make(chan struct{})
	opts.Wait = func(ctx context.Context, d time.Duration) error {
		close(entered)
		<-release
		return nil
	}
	w, _ := openTestWorkspace(t, opts)
	fill(t, w, nil)

	type result struct {
		out Outcome
		err error
	}
	done := make(chan result, 1)
	go func() {
		out, err := w.Submit(ctx, resumes.StatusSubmitted)
		done <- result{out, err}
	}()
	<-entered

	if state := w.Form(); state.State != StatePending {
		t.Fatalf("expected pending state, got %s", state.State)
	}
	if _, err := w.Submit(ctx, resumes.StatusSubmitted); !errors.Is(err, ErrSubmitPending) {
		t.Fatalf("expected ErrSubmitPending, got %v", err)
	}
	if _, _, err := w.SetField(ctx, "summary", "edited while pending"); err != nil {
		t.Fatalf("edits must not block during the delay: %v", err)
	}
	if _, _, err := w.SetField(ctx, "name", ""); err != nil {
		t.Fatalf("SetField: %v", err)
	}

	close(release)
	res := <-done
	if res.err != nil || !res.out.Saved {
		t.Fatalf("pending submit: %+v %v", res.out, res.err)
	}
	if res.out.Record.Name != "Ada Lovelace" || res.out.Record.Summary != "Writes programs" {
		t.Fatalf("record must carry the validated values, got name=%q summary=%q",
			res.out.Record.Name, res.out.Record.Summary)
	}
	if w.Form().State != StateIdle {
		t.Fatalf("expected idle after completion")
	}
}

func TestSubmitCanceledDuringDelay(t *testing.T) {
	opts := testOptions()
	opts.Wait = sleepCtx
	opts.SubmitDelay = time.Hour
	w, _ := openTestWorkspace(t, opts)
	fill(t, w, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := w.Submit(ctx, resumes.StatusSubmitted); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if w.Form().State != StateIdle {
		t.Fatalf("expected pending released")
	}
	if n := count(t, w); n != 0 {
		t.Fatalf("expected no record, got %d", n)
	}
}

func TestApplyAndDeleteRecord(t *testing.T) {
	ctx := context.Background()
	w, _ := openTestWorkspace(t, testOptions())
	fill(t, w, nil)
	out, _ := w.Submit(ctx, resumes.StatusSubmitted)
	id := out.Record.ID

	state, err := w.ApplyRecord(ctx, id)
	if err != nil {
		t.Fatalf("ApplyRecord: %v", err)
	}
	if state.Fields.Name != "Ada Lovelace" || state.Fields.Skills != "math, programming" {
		t.Fatalf("unexpected applied form: %+v", state.Fields)
	}
	if _, err := w.ApplyRecord(ctx, "missing"); !errors.Is(err, resumes.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	events, unsubscribe := w.Subscribe()
	defer unsubscribe()

	removed, err := w.DeleteRecord(ctx, id)
	if err != nil || !removed {
		t.Fatalf("DeleteRecord: %v %v", removed, err)
	}
	removed, err = w.DeleteRecord(ctx, id)
	if err != nil || removed {
		t.Fatalf("second delete should be a no-op: %v %v", removed, err)
	}

	var sawPreview, sawList bool
	for i := 0; i < 2; i++ {
		select {
		case ev := <-events:
			switch ev.Type {
			case EventPreview:
				sawPreview = ev.Data.(view.Preview).IndexLabel == "Resume #1 (preview)"
			case EventList:
				sawList = ev.Data.(view.List).Empty
			}
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for events")
		}
	}
	if !sawPreview || !sawList {
		t.Fatalf("expected preview and empty list events, preview=%v list=%v", sawPreview, sawList)
	}
}

type manualTimer struct{ stopped bool }

func (m *manualTimer) Stop() bool { m.stopped = true; return true }

func TestSearchIsDebounced(t *testing.T) {
	ctx := context.Background()
	opts := testOptions()
	var fns []func()
	opts.AfterFunc = func(d time.Duration, f func()) search.Timer {
		fns = append(fns, f)
		return &manualTimer{}
	}
	w, _ := openTestWorkspace(t, opts)
	fill(t, w, nil)
	w.Submit(ctx, resumes.StatusDraft)

	events, unsubscribe := w.Subscribe()
	defer unsubscribe()

	w.Search("a")
	w.Search("ab")
	w.Search("abc")
	for _, f := range fns {
		f()
	}

	var lists []view.List
	timeout := time.After(200 * time.Millisecond)
collect:
	for {
		select {
		case ev := <-events:
			if ev.Type == EventList {
				lists = append(lists, ev.Data.(view.List))
			}
		case <-timeout:
			break collect
		}
	}
	if len(lists) != 1 || lists[0].Query != "abc" {
		t.Fatalf("expected exactly one render for abc, got %+v", lists)
	}
}

func TestThemeDefaultsAndToggles(t *testing.T) {
	ctx := context.Background()
	w, _ := openTestWorkspace(t, testOptions())
	if theme, _ := w.Theme(ctx); theme != resumes.ThemeLight {
		t.Fatalf("expected light, got %s", theme)
	}
	if theme, _ := w.ToggleTheme(ctx); theme != resumes.ThemeDark {
		t.Fatalf("expected dark, got %s", theme)
	}
}

func TestRegistryReusesWorkspaces(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry(kv.NewMemory(), testOptions())
	defer reg.Close()

	a1, err := reg.Get(ctx, "guest:a")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	a2, _ := reg.Get(ctx, "guest:a")
	b, _ := reg.Get(ctx, "guest:b")
	if a1 != a2 || a1 == b || reg.Len() != 2 {
		t.Fatalf("unexpected registry state")
	}
	if _, err := reg.Get(ctx, "bad/ns"); err == nil {
		t.Fatalf("expected invalid namespace error")
	}
}

func TestEditsPublishFormState(t *testing.T) {
	ctx := context.Background()
	w, _ := openTestWorkspace(t, testOptions())
	events, unsubscribe := w.Subscribe()
	defer unsubscribe()

	if _, _, err := w.SetField(ctx, "phone", "123"); err != nil {
		t.Fatalf("SetField: %v", err)
	}
	ev := <-events
	if ev.Type != EventForm {
		t.Fatalf("expected form event first, got %s", ev.Type)
	}
	state := ev.Data.(FormState)
	if state.Fields.Phone != "123" || state.Errors["phone"] == "" {
		t.Fatalf("unexpected form event: %+v", state)
	}
	if ev := <-events; ev.Type != EventPreview {
		t.Fatalf("expected preview event, got %s", ev.Type)
	}
}

func TestIdleReflectsStreamsAndPendingSearch(t *testing.T) {
	opts := testOptions()
	opts.AfterFunc = func(d time.Duration, f func()) search.Timer { return &manualTimer{} }
	w, _ := openTestWorkspace(t, opts)
	if !w.Idle() {
		t.Fatalf("fresh workspace should be idle")
	}

	_, unsubscribe := w.Subscribe()
	if w.Idle() {
		t.Fatalf("workspace with a subscriber is not idle")
	}
	unsubscribe()

	w.Search("go")
	if w.Idle() {
		t.Fatalf("workspace with a pending search is not idle")
	}
}

func TestSubmitRendersListWithPendingSearch(t *testing.T) {
	ctx := context.Background()
	opts := testOptions()
	opts.AfterFunc = func(d time.Duration, f func()) search.Timer { return &manualTimer{} }
	w, _ := openTestWorkspace(t, opts)
	fill(t, w, nil)

	w.Search("nobody")
	out, err := w.Submit(ctx, resumes.StatusDraft)
	if err != nil || !out.Saved {
		t.Fatalf("Submit: %+v %v", out, err)
	}
	if out.List.Query != "nobody" || !out.List.Empty {
		t.Fatalf("expected list rendered with the pending query, got %+v", out.List)
	}
	if !w.Idle() {
		t.Fatalf("pending search should have been flushed")
	}
}
