// Package builder ties the form, the record store and the renderers into one workspace per caller.
package builder

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"resume-builder/internal/form"
	"resume-builder/internal/resumes"
	"resume-builder/internal/search"
	"resume-builder/internal/shared/metrics"
	"resume-builder/internal/shared/storage/kv"
	"resume-builder/internal/shared/telemetry"
	"resume-builder/internal/validation"
	"resume-builder/internal/view"
)

var ErrSubmitPending = errors.New("a final submission is already in progress")

const (
	DefaultSubmitDelay = 600 * time.Millisecond

	AckSubmitted = "Resume saved!"
	AckDraft     = "Draft saved; apply it from the list to keep editing."
)

// State is the submission state of a workspace.
type State string

const (
	StateIdle       State = "idle"
	StateValidating State = "validating"
	StatePending    State = "pending"
	StatePersisting State = "persisting"
)

// Options tune a workspace. Zero values fall back to production defaults.
type Options struct {
	SubmitDelay  time.Duration
	SearchWindow time.Duration
	Now          func() time.Time
	NewID        func() string
	// Wait blocks for the simulated persistence delay.
	Wait func(ctx context.Context, d time.Duration) error
	// AfterFunc drives the search debouncer.
	AfterFunc search.AfterFunc
}

func (o Options) withDefaults() Options {
	if o.SubmitDelay < 0 {
		o.SubmitDelay = 0
	} else if o.SubmitDelay == 0 {
		o.SubmitDelay = DefaultSubmitDelay
	}
	if o.SearchWindow <= 0 {
		o.SearchWindow = search.DefaultWindow
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.NewID == nil {
		o.NewID = uuid.NewString
	}
	if o.Wait == nil {
		o.Wait = sleepCtx
	}
	return o
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// FormState is a snapshot of the editable form.
type FormState struct {
	Fields      resumes.Fields         `json:"fields"`
	Experiences []form.Editor          `json:"experiences"`
	Errors      map[string]string      `json:"errors"`
	Photo       validation.PhotoResult `json:"photo"`
	State       State                  `json:"state"`
}

// Outcome reports what one submission did.
type Outcome struct {
	Status      resumes.Status    `json:"status"`
	Saved       bool              `json:"saved"`
	Record      *resumes.Record   `json:"record,omitempty"`
	FocusField  string            `json:"focusField,omitempty"`
	Errors      map[string]string `json:"errors,omitempty"`
	Ack         string            `json:"ack,omitempty"`
	Transitions []string          `json:"transitions"`
	Form        *FormState        `json:"form,omitempty"`
	Preview     *view.Preview     `json:"preview,omitempty"`
	List        *view.List        `json:"list,omitempty"`
}

// Ack is the acknowledgment pushed after a successful submission.
type Ack struct {
	Message  string         `json:"message"`
	RecordID string         `json:"recordId"`
	Status   resumes.Status `json:"status"`
}

// Workspace is the form, records, draft and theme of one namespace.
type Workspace struct {
	namespace string
	opts      Options

	records *resumes.Store
	drafts  *resumes.DraftCache
	themes  *resumes.ThemeStore
	hub     *Hub
	search  *search.Debouncer

	mu        sync.Mutex
	form      *form.Form
	pending   bool
	lastQuery string
}

// Open restores the namespace's draft into a new workspace. backend must already be namespaced.
func Open(ctx context.Context, namespace string, backend kv.Store, opts Options) (*Workspace, error) {
	opts = opts.withDefaults()
	w := &Workspace{
		namespace: namespace,
		opts:      opts,
		records:   resumes.NewStore(backend),
		drafts:    resumes.NewDraftCache(backend),
		themes:    resumes.NewThemeStore(backend),
		hub:       NewHub(),
		form:      form.New(),
	}
	after := opts.AfterFunc
	if after == nil {
		after = func(d time.Duration, f func()) search.Timer { return time.AfterFunc(d, f) }
	}
	w.search = search.NewDebouncerWithTimer(opts.SearchWindow, w.renderSearch, after)
	w.search.OnSupersede = metrics.IncSearchSuperseded

	draft, err := w.drafts.Load(ctx)
	if err != nil {
		return nil, err
	}
	w.form.Restore(draft)
	if w.form.Experiences().Len() == 0 {
		w.form.Experiences().Add()
	}
	return w, nil
}

// Namespace returns the storage namespace this workspace serves.
func (w *Workspace) Namespace() string {
	return w.namespace
}

// Subscribe streams preview, list and ack events.
func (w *Workspace) Subscribe() (<-chan Event, func()) {
	return w.hub.Subscribe(32)
}

// Idle reports whether the workspace can be closed without losing anything: no stream is
// attached and no submission or search is waiting. A held lock counts as busy.
func (w *Workspace) Idle() bool {
	if !w.mu.TryLock() {
		return false
	}
	defer w.mu.Unlock()
	return !w.pending && w.hub.Subscribers() == 0 && !w.search.Pending()
}

// Close stops the search debouncer and disconnects subscribers.
func (w *Workspace) Close() {
	w.search.Stop()
	w.hub.Close()
}

func (w *Workspace) stateLocked() State {
	if w.pending {
		return StatePending
	}
	return StateIdle
}

func (w *Workspace) formStateLocked() FormState {
	return FormState{
		Fields:      w.form.Values(),
		Experiences: w.form.Experiences().Editors(),
		Errors:      w.form.Errors(),
		Photo:       w.form.Photo(),
		State:       w.stateLocked(),
	}
}

// Form returns the current form snapshot.
func (w *Workspace) Form() FormState {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.formStateLocked()
}

func (w *Workspace) previewLocked(ctx context.Context) (view.Preview, error) {
	count, err := w.records.Count(ctx)
	if err != nil {
		return view.Preview{}, err
	}
	return view.RenderPreview(view.PreviewInput{
		Fields:      w.form.Values(),
		Experiences: w.form.Experiences().ReadAll(),
		StoredCount: count,
		PhotoURL:    w.form.Photo().PreviewURL,
	}), nil
}

// Preview renders the preview of the current form.
func (w *Workspace) Preview(ctx context.Context) (view.Preview, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.previewLocked(ctx)
}

// editedLocked saves the draft and re-derives the preview after a form change.
func (w *Workspace) editedLocked(ctx context.Context) (view.Preview, error) {
	if err := w.drafts.Save(ctx, w.form.Draft()); err != nil {
		return view.Preview{}, err
	}
	p, err := w.previewLocked(ctx)
	if err != nil {
		return view.Preview{}, err
	}
	w.hub.Publish(Event{Type: EventForm, Data: w.formStateLocked()})
	w.hub.Publish(Event{Type: EventPreview, Data: p})
	return p, nil
}

// SetField updates and validates one form field. The value is kept even if invalid.
func (w *Workspace) SetField(ctx context.Context, field, value string) (validation.Result, view.Preview, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	res, err := w.form.Set(field, value)
	if err != nil {
		return validation.Result{}, view.Preview{}, err
	}
	p, err := w.editedLocked(ctx)
	return res, p, err
}

// AddExperience appends a blank experience editor.
func (w *Workspace) AddExperience(ctx context.Context) (string, FormState, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	handle := w.form.Experiences().Add()
	if _, err := w.editedLocked(ctx); err != nil {
		return "", FormState{}, err
	}
	return handle, w.formStateLocked(), nil
}

// RemoveExperience drops an experience editor. Unknown handles are a no-op.
func (w *Workspace) RemoveExperience(ctx context.Context, handle string) (bool, FormState, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	removed := w.form.Experiences().Remove(handle)
	if removed {
		if _, err := w.editedLocked(ctx); err != nil {
			return false, FormState{}, err
		}
	}
	return removed, w.formStateLocked(), nil
}

// SetExperienceField updates one field of an experience editor.
func (w *Workspace) SetExperienceField(ctx context.Context, handle, field, value string) (validation.Result, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	res, err := w.form.Experiences().Set(handle, field, value)
	if err != nil || !res.Valid {
		return res, err
	}
	_, err = w.editedLocked(ctx)
	return res, err
}

// SetPhoto runs the photo check. Photos are never written to storage.
func (w *Workspace) SetPhoto(ctx context.Context, p *validation.Photo) (validation.PhotoResult, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	res := w.form.SetPhoto(p)
	preview, err := w.previewLocked(ctx)
	if err != nil {
		return res, err
	}
	w.hub.Publish(Event{Type: EventForm, Data: w.formStateLocked()})
	w.hub.Publish(Event{Type: EventPreview, Data: preview})
	return res, nil
}

// ClearPhoto removes the photo preview.
func (w *Workspace) ClearPhoto(ctx context.Context) error {
	_, err := w.SetPhoto(ctx, nil)
	return err
}

// Reset blanks the form and deletes the draft.
func (w *Workspace) Reset(ctx context.Context) (FormState, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.form.Reset()
	if err := w.drafts.Clear(ctx); err != nil {
		return FormState{}, err
	}
	p, err := w.previewLocked(ctx)
	if err != nil {
		return FormState{}, err
	}
	state := w.formStateLocked()
	w.hub.Publish(Event{Type: EventForm, Data: state})
	w.hub.Publish(Event{Type: EventPreview, Data: p})
	return state, nil
}

// ApplyRecord copies a stored record into the form. The stored record is not changed.
func (w *Workspace) ApplyRecord(ctx context.Context, id string) (FormState, error) {
	rec, err := w.records.Get(ctx, id)
	if err != nil {
		return FormState{}, err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.form.ApplyRecord(rec)
	if _, err := w.editedLocked(ctx); err != nil {
		return FormState{}, err
	}
	return w.formStateLocked(), nil
}

// DeleteRecord removes a stored record. Unknown ids are a no-op.
func (w *Workspace) DeleteRecord(ctx context.Context, id string) (bool, error) {
	removed, err := w.records.Delete(ctx, id)
	if err != nil || !removed {
		return removed, err
	}
	metrics.IncRecordDeleted()
	w.search.Flush()

	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.publishRendersLocked(ctx); err != nil {
		return true, err
	}
	return true, nil
}

// Record returns one stored record.
func (w *Workspace) Record(ctx context.Context, id string) (resumes.Record, error) {
	return w.records.Get(ctx, id)
}

// List renders the stored records filtered by query, immediately.
func (w *Workspace) List(ctx context.Context, query string) (view.List, error) {
	records, err := w.records.List(ctx)
	if err != nil {
		return view.List{}, err
	}
	return view.RenderList(records, query), nil
}

// Search schedules a debounced list render. The result arrives as a list event.
func (w *Workspace) Search(query string) {
	w.search.Schedule(query)
}

func (w *Workspace) renderSearch(query string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	w.mu.Lock()
	w.lastQuery = query
	w.mu.Unlock()

	list, err := w.List(ctx, query)
	if err != nil {
		telemetry.Error("search.render_failed", map[string]any{"namespace": w.namespace, "error": err.Error()})
		return
	}
	metrics.IncListRender()
	w.hub.Publish(Event{Type: EventList, Data: list})
}

// publishRendersLocked re-derives preview and list and pushes both.
func (w *Workspace) publishRendersLocked(ctx context.Context) error {
	p, err := w.previewLocked(ctx)
	if err != nil {
		return err
	}
	list, err := w.List(ctx, w.lastQuery)
	if err != nil {
		return err
	}
	w.hub.Publish(Event{Type: EventPreview, Data: p})
	w.hub.Publish(Event{Type: EventList, Data: list})
	return nil
}

// Theme returns the stored theme.
func (w *Workspace) Theme(ctx context.Context) (resumes.Theme, error) {
	return w.themes.Get(ctx)
}

// SetTheme stores theme.
func (w *Workspace) SetTheme(ctx context.Context, theme resumes.Theme) error {
	return w.themes.Set(ctx, theme)
}

// ToggleTheme flips the stored theme.
func (w *Workspace) ToggleTheme(ctx context.Context) (resumes.Theme, error) {
	return w.themes.Toggle(ctx)
}

func transition(from, to State) string {
	return fmt.Sprintf("%s->%s", from, to)
}

// Submit validates the form and, when valid, waits the simulated delay and prepends a record
// built from the validated values. A final submission resets the form; a draft submission keeps
// it. Only one final submission may be pending at a time.
func (w *Workspace) Submit(ctx context.Context, status resumes.Status) (Outcome, error) {
	start := w.opts.Now()
	out := Outcome{Status: status, Transitions: []string{transition(StateIdle, StateValidating)}}

	w.mu.Lock()
	if status == resumes.StatusSubmitted && w.pending {
		w.mu.Unlock()
		return Outcome{}, ErrSubmitPending
	}
	check := w.form.Validate()
	if !check.Valid {
		w.mu.Unlock()
		out.FocusField = check.FocusField
		out.Errors = check.Errors
		out.Transitions = append(out.Transitions, transition(StateValidating, StateIdle))
		metrics.IncSubmissionBlocked()
		return out, nil
	}
	// The record is built from the values that passed validation, not from later edits.
	snapshot := w.form.Draft()
	if status == resumes.StatusSubmitted {
		w.pending = true
		out.Transitions = append(out.Transitions, transition(StateValidating, StatePending), transition(StatePending, StatePersisting))
	} else {
		out.Transitions = append(out.Transitions, transition(StateValidating, StatePersisting))
	}
	w.mu.Unlock()

	release := func() {
		if status == resumes.StatusSubmitted {
			w.mu.Lock()
			w.pending = false
			w.mu.Unlock()
		}
	}

	if err := w.opts.Wait(ctx, w.opts.SubmitDelay); err != nil {
		release()
		return Outcome{}, err
	}

	// A search still inside its window sets the query the refreshed list is rendered with.
	w.search.Flush()

	w.mu.Lock()
	defer w.mu.Unlock()
	// The lock is held until return, so no other final submission can start before this one ends.
	if status == resumes.StatusSubmitted {
		w.pending = false
	}

	rec := snapshot.Record(status, w.opts.Now(), w.opts.NewID)
	if err := w.records.Prepend(ctx, rec); err != nil {
		return Outcome{}, err
	}
	if status == resumes.StatusSubmitted {
		w.form.Reset()
		out.Ack = AckSubmitted
	} else {
		out.Ack = AckDraft
	}
	if err := w.drafts.Clear(ctx); err != nil {
		return Outcome{}, err
	}
	out.Transitions = append(out.Transitions, transition(StatePersisting, StateIdle))
	out.Saved = true
	out.Record = &rec

	p, err := w.previewLocked(ctx)
	if err != nil {
		return Outcome{}, err
	}
	list, err := w.List(ctx, w.lastQuery)
	if err != nil {
		return Outcome{}, err
	}
	fs := w.formStateLocked()
	out.Form = &fs
	out.Preview = &p
	out.List = &list

	w.hub.Publish(Event{Type: EventAck, Data: Ack{Message: out.Ack, RecordID: rec.ID, Status: rec.Status}})
	w.hub.Publish(Event{Type: EventForm, Data: fs})
	w.hub.Publish(Event{Type: EventPreview, Data: p})
	w.hub.Publish(Event{Type: EventList, Data: list})

	metrics.IncSubmission(string(status))
	metrics.ObserveSubmitDurationMs(float64(w.opts.Now().Sub(start).Microseconds()) / 1000.0)
	return out, nil
}
