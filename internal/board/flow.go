package board

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/UnknownOlympus/waypoint/internal/gateway"
	"github.com/UnknownOlympus/waypoint/internal/models"
)

var (
	// ErrEmptyTitle is returned by Submit when the draft has no title.
	ErrEmptyTitle = errors.New("marker title must not be empty")
	// ErrDialogClosed is returned by Submit when no dialog is open.
	ErrDialogClosed = errors.New("no marker dialog is open")
	// ErrMarkerNotFound is returned when no marker has the requested id.
	ErrMarkerNotFound = errors.New("marker not found")
)

// Mode is the purpose of an open dialog.
type Mode int

const (
	ModeClosed Mode = iota
	ModeCreate
	ModeEdit
)

// AddressResolver looks up the address of a position. It never fails: an
// unresolvable position yields a placeholder.
type AddressResolver interface {
	Address(ctx context.Context, coords models.Coordinates) string
}

// Confirmer asks the user to approve a destructive action.
type Confirmer interface {
	Confirm(ctx context.Context, marker models.Marker) bool
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, marker models.Marker) bool

// Confirm calls f(ctx, marker).
func (f ConfirmFunc) Confirm(ctx context.Context, marker models.Marker) bool {
	return f(ctx, marker)
}

// Draft is the user input of the dialog form.
type Draft struct {
	Title       string
	Description string
}

// Dialog is the state of the marker dialog.
type Dialog struct {
	Mode     Mode
	Position models.Position
	Marker   models.Marker // Edited marker, set in ModeEdit.
}

// Open reports whether the dialog is shown.
func (d Dialog) Open() bool {
	return d.Mode != ModeClosed
}

// Flow drives the marker dialog: open it for a new position or an existing
// marker, submit or cancel it, and delete markers after confirmation.
type Flow struct {
	store    *Store
	resolver AddressResolver
	now      func() time.Time

	mu     sync.Mutex
	dialog Dialog
	lastID int64
}

// FlowOption customises a Flow.
type FlowOption func(*Flow)

// WithClock sets the time source used to mint marker ids.
func WithClock(now func() time.Time) FlowOption {
	return func(f *Flow) {
		f.now = now
	}
}

// NewFlow creates a closed dialog over store.
func NewFlow(store *Store, resolver AddressResolver, opts ...FlowOption) *Flow {
	f := &Flow{
		store:    store,
		resolver: resolver,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}

	return f
}

// Dialog returns the current dialog state.
func (f *Flow) Dialog() Dialog {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.dialog
}

// OpenCreate opens the dialog for a new marker at pos. An already open
// dialog is retargeted.
func (f *Flow) OpenCreate(pos models.Position) {
	f.mu.Lock()
	f.dialog = Dialog{Mode: ModeCreate, Position: pos}
	f.mu.Unlock()
}

// OpenEdit opens the dialog for the marker with the given id.
func (f *Flow) OpenEdit(id int64) error {
	marker, ok := f.store.Find(id)
	if !ok {
		return ErrMarkerNotFound
	}

	f.mu.Lock()
	f.dialog = Dialog{Mode: ModeEdit, Position: marker.Position, Marker: marker}
	f.mu.Unlock()

	return nil
}

// Cancel closes the dialog without changes.
func (f *Flow) Cancel() {
	f.mu.Lock()
	f.dialog = Dialog{}
	f.mu.Unlock()
}

// Submit applies draft to the open dialog and closes it once the save is done.
// With an empty title the dialog stays open and ErrEmptyTitle is returned.
// When the gateway does not accept the save the dialog stays open as well and
// the returned Result carries the reason.
func (f *Flow) Submit(ctx context.Context, draft Draft) (models.Marker, gateway.Result, error) {
	dialog := f.Dialog()
	if !dialog.Open() {
		return models.Marker{}, gateway.Result{}, ErrDialogClosed
	}
	if strings.TrimSpace(draft.Title) == "" {
		return models.Marker{}, gateway.Result{}, ErrEmptyTitle
	}

	address := f.resolver.Address(ctx, dialog.Position.Coordinates())

	var (
		marker models.Marker
		result gateway.Result
		err    error
	)
	switch dialog.Mode {
	case ModeEdit:
		marker = dialog.Marker
		marker.Title = draft.Title
		marker.Description = draft.Description
		marker.Address = address
		result, err = f.store.Update(ctx, marker)
		if err != nil {
			return models.Marker{}, gateway.Result{}, err
		}
	default:
		marker = models.Marker{
			ID:          f.nextID(),
			Position:    dialog.Position,
			Title:       draft.Title,
			Description: draft.Description,
			Address:     address,
		}
		result = f.store.Add(ctx, marker)
	}

	if !result.OK() {
		return marker, result, nil
	}

	f.Cancel()

	return marker, result, nil
}

// Delete removes the marker with the given id once confirm approves it.
// A declined confirmation is not an error and returns false.
func (f *Flow) Delete(ctx context.Context, id int64, confirm Confirmer) (gateway.Result, bool, error) {
	marker, ok := f.store.Find(id)
	if !ok {
		return gateway.Result{}, false, ErrMarkerNotFound
	}
	if !confirm.Confirm(ctx, marker) {
		return gateway.Result{}, false, nil
	}

	return f.store.Delete(ctx, id), true, nil
}

// nextID returns the current Unix millisecond time, bumped past every id
// minted or loaded so far.
func (f *Flow) nextID() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()

	id := f.now().UnixMilli()
	if id <= f.lastID {
		id = f.lastID + 1
	}
	for _, m := range f.store.Markers() {
		if m.ID >= id {
			id = m.ID + 1
		}
	}
	f.lastID = id

	return id
}
