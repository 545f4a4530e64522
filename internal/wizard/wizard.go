// Package wizard implements the onboarding preference wizard: a bounded,
// linear sequence of steps that accumulates the sector, narrative and
// watchlist selections with per-step validation gates.
package wizard

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/cryptobrief/internal/models"
	"github.com/ethereum/go-ethereum/common"
)

// Step is a position in the wizard, 1-based
type Step int

const (
	StepWelcome    Step = 1
	StepSectors    Step = 2
	StepNarratives Step = 3
	StepWatchlist  Step = 4

	// TotalSteps is the number of steps; Finish is only valid on the last one
	TotalSteps = int(StepWatchlist)
)

// String returns the step name
func (s Step) String() string {
	switch s {
	case StepWelcome:
		return "welcome"
	case StepSectors:
		return "sectors"
	case StepNarratives:
		return "narratives"
	case StepWatchlist:
		return "watchlist"
	default:
		return fmt.Sprintf("step(%d)", int(s))
	}
}

// SetKind names one of the three selection sets
type SetKind string

const (
	SetSectors    SetKind = "sectors"
	SetNarratives SetKind = "narratives"
	SetWatchlist  SetKind = "watchlist"
)

// ParseSetKind parses a set name
func ParseSetKind(s string) (SetKind, error) {
	switch SetKind(strings.ToLower(strings.TrimSpace(s))) {
	case SetSectors:
		return SetSectors, nil
	case SetNarratives:
		return SetNarratives, nil
	case SetWatchlist:
		return SetWatchlist, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownSet, s)
	}
}

var (
	// ErrSaving is returned by every mutating operation while a save is in flight
	ErrSaving = errors.New("preferences are being saved")
	// ErrUnknownSet is returned for an unrecognised set name
	ErrUnknownSet = errors.New("unknown selection set")
	// ErrEmptyInput is returned when a custom entry is blank after trimming
	ErrEmptyInput = errors.New("entry cannot be empty")
	// ErrDuplicate is returned when a custom entry is already selected
	ErrDuplicate = errors.New("entry already added")
	// ErrNotFinalStep is returned when Finish is called before the watchlist step
	ErrNotFinalStep = errors.New("wizard is not on the final step")
)

// ValidationError is a step-advance violation. It is also stored on the
// wizard as the step-scoped message until the next successful transition.
type ValidationError struct {
	Step    Step
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Wizard is the draft state of one onboarding run. It is safe for
// concurrent use; the caller owns persistence.
type Wizard struct {
	mu sync.Mutex

	step       Step
	sets       map[SetKind]*models.SelectionSet
	inputs     map[SetKind]string
	stepErrors map[Step]string
	saving     bool
}

// New returns a wizard on the welcome step with empty selections
func New() *Wizard {
	w := &Wizard{}
	w.reset()
	return w
}

// NewFromPreferences returns a wizard seeded with existing selections
func NewFromPreferences(prefs *models.UserPreferences) *Wizard {
	w := New()
	if prefs == nil {
		return w
	}
	*w.sets[SetSectors] = prefs.SelectedSectors.Clone()
	*w.sets[SetNarratives] = prefs.SelectedNarratives.Clone()
	*w.sets[SetWatchlist] = prefs.WatchlistItems.Clone()
	return w
}

func (w *Wizard) reset() {
	w.step = StepWelcome
	w.sets = map[SetKind]*models.SelectionSet{
		SetSectors:    {},
		SetNarratives: {},
		SetWatchlist:  {},
	}
	w.inputs = map[SetKind]string{}
	w.stepErrors = map[Step]string{}
	w.saving = false
}

// Reset discards the draft and returns to the welcome step
func (w *Wizard) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.reset()
}

// SetSaving marks a save as in flight (or finished)
func (w *Wizard) SetSaving(saving bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.saving = saving
}

// Toggle adds item to the set if absent, otherwise removes it
func (w *Wizard) Toggle(kind SetKind, item string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	set, err := w.mutableSet(kind)
	if err != nil {
		return err
	}
	item = normalizeItem(kind, item)
	if item == "" {
		return ErrEmptyInput
	}
	set.Toggle(item)
	return nil
}

// SetInput replaces the free-text buffer of a set
func (w *Wizard) SetInput(kind SetKind, text string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, err := w.mutableSet(kind); err != nil {
		return err
	}
	w.inputs[kind] = text
	return nil
}

// SubmitInput adds the set's buffered text as a custom entry (the Enter key path)
func (w *Wizard) SubmitInput(kind SetKind) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.addCustom(kind, w.inputs[kind])
}

// AddCustom adds text as a custom entry. Blank and duplicate entries are
// rejected and leave the set unchanged; on success the buffer is cleared.
func (w *Wizard) AddCustom(kind SetKind, text string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.addCustom(kind, text)
}

func (w *Wizard) addCustom(kind SetKind, text string) error {
	set, err := w.mutableSet(kind)
	if err != nil {
		return err
	}

	item := normalizeItem(kind, text)
	if item == "" {
		return ErrEmptyInput
	}
	if set.Contains(item) {
		return fmt.Errorf("%w: %s", ErrDuplicate, item)
	}

	set.Add(item)
	w.inputs[kind] = ""
	return nil
}

// Remove deletes item from the set; removing an absent item is a no-op
func (w *Wizard) Remove(kind SetKind, item string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	set, err := w.mutableSet(kind)
	if err != nil {
		return err
	}
	item = normalizeItem(kind, item)
	if item == "" {
		return ErrEmptyInput
	}
	set.Remove(item)
	return nil
}

// Next advances one step after validating the current one. On the last
// step it is a no-op; use Finish.
func (w *Wizard) Next() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.saving {
		return ErrSaving
	}
	if int(w.step) >= TotalSteps {
		return nil
	}
	if err := w.validateStep(w.step); err != nil {
		return err
	}

	delete(w.stepErrors, w.step)
	w.step++
	return nil
}

// Back returns one step; on the first step it is a no-op
func (w *Wizard) Back() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.saving {
		return ErrSaving
	}
	if w.step <= StepWelcome {
		return nil
	}

	delete(w.stepErrors, w.step)
	w.step--
	return nil
}

// Finish validates the watchlist step and returns the accumulated
// selections as one value. It performs no persistence.
func (w *Wizard) Finish() (*models.UserPreferences, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.finish()
}

// BeginSave is Finish plus marking the save in flight, under one lock.
// Every mutation fails with ErrSaving until SetSaving(false).
func (w *Wizard) BeginSave() (*models.UserPreferences, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	prefs, err := w.finish()
	if err != nil {
		return nil, err
	}
	w.saving = true
	return prefs, nil
}

func (w *Wizard) finish() (*models.UserPreferences, error) {
	if w.saving {
		return nil, ErrSaving
	}
	if w.step != StepWatchlist {
		return nil, ErrNotFinalStep
	}
	if err := w.validateStep(StepWatchlist); err != nil {
		return nil, err
	}
	delete(w.stepErrors, StepWatchlist)

	return &models.UserPreferences{
		SelectedSectors:    w.sets[SetSectors].Clone(),
		SelectedNarratives: w.sets[SetNarratives].Clone(),
		WatchlistItems:     w.sets[SetWatchlist].Clone(),
	}, nil
}

// validateStep records and returns the step-scoped error, if any
func (w *Wizard) validateStep(step Step) error {
	kind, label, ok := stepSet(step)
	if !ok {
		return nil
	}

	var msg string
	switch {
	case len(*w.sets[kind]) == 0:
		msg = fmt.Sprintf("Please select at least one %s to continue.", label)
	case strings.TrimSpace(w.inputs[kind]) != "":
		msg = fmt.Sprintf("You have an unsaved %s entry. Add it or clear the field to continue.", label)
	default:
		return nil
	}

	w.stepErrors[step] = msg
	return &ValidationError{Step: step, Message: msg}
}

func (w *Wizard) mutableSet(kind SetKind) (*models.SelectionSet, error) {
	if w.saving {
		return nil, ErrSaving
	}
	set, ok := w.sets[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSet, kind)
	}
	return set, nil
}

// stepSet maps a step to the set it collects and its label
func stepSet(step Step) (SetKind, string, bool) {
	switch step {
	case StepSectors:
		return SetSectors, "sector", true
	case StepNarratives:
		return SetNarratives, "narrative", true
	case StepWatchlist:
		return SetWatchlist, "watchlist item", true
	default:
		return "", "", false
	}
}

// normalizeItem trims the entry; watchlist contract addresses are written
// in EIP-55 checksum form so different casings compare equal.
func normalizeItem(kind SetKind, item string) string {
	item = strings.TrimSpace(item)
	if kind == SetWatchlist && common.IsHexAddress(item) {
		return common.HexToAddress(item).Hex()
	}
	return item
}

// Snapshot is a read-only view of the wizard for rendering
type Snapshot struct {
	Step       int                 `json:"step"`
	StepName   string              `json:"stepName"`
	TotalSteps int                 `json:"totalSteps"`
	Sectors    models.SelectionSet `json:"selectedSectors"`
	Narratives models.SelectionSet `json:"selectedNarratives"`
	Watchlist  models.SelectionSet `json:"watchlistItems"`
	Inputs     map[SetKind]string  `json:"inputs"`
	Error      *string             `json:"error"`
	Saving     bool                `json:"isSaving"`
	CanGoBack  bool                `json:"canGoBack"`
	IsLastStep bool                `json:"isLastStep"`
}

// Snapshot returns a copy of the current draft
func (w *Wizard) Snapshot() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()

	inputs := make(map[SetKind]string, len(w.inputs))
	for k, v := range w.inputs {
		inputs[k] = v
	}

	var stepErr *string
	if msg, ok := w.stepErrors[w.step]; ok {
		stepErr = &msg
	}

	return Snapshot{
		Step:       int(w.step),
		StepName:   w.step.String(),
		TotalSteps: TotalSteps,
		Sectors:    w.sets[SetSectors].Clone(),
		Narratives: w.sets[SetNarratives].Clone(),
		Watchlist:  w.sets[SetWatchlist].Clone(),
		Inputs:     inputs,
		Error:      stepErr,
		Saving:     w.saving,
		CanGoBack:  w.step > StepWelcome,
		IsLastStep: int(w.step) == TotalSteps,
	}
}
