package tasks

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/feelmint/feelmint-go/feelmint/api"
	"github.com/feelmint/feelmint-go/feelmint/drafts"
	"github.com/feelmint/feelmint-go/feelmint/media"
)

// Stage is the capture UI's position within the active flow. Transitions are
// linear with backward edges: example → capture → review → label, review
// falling back to capture on retake.
type Stage string

const (
	StageExample Stage = "example"
	StageCapture Stage = "capture"
	StageReview  Stage = "review"
	StageLabel   Stage = "label"
)

var (
	ErrNoActiveFlow  = errors.New("tasks: no active flow")
	ErrTaskComplete  = errors.New("tasks: task already has its full media quota")
	ErrWrongStage    = errors.New("tasks: operation not allowed in this stage")
	ErrUnknownOption = errors.New("tasks: option not in the question's allowed set")
	ErrRatingRange   = errors.New("tasks: rating outside 0-100")
	ErrAnswerLocked  = errors.New("tasks: the emotion answer is fixed by the task")
	ErrNoQuestion    = errors.New("tasks: unknown question")
)

// Flow is one in-progress task attempt: the server's task record joined with
// the local draft overlay.
type Flow struct {
	Task  api.Task
	Draft Draft
	Stage Stage
}

// Manager owns the single active-flow slot and the saved-draft collection.
// At most one flow is active system-wide; starting a new one replaces the
// previous slot contents rather than rejecting.
type Manager struct {
	api      API
	registry *Registry
	drafts   drafts.Repository
	uploader media.Uploader

	mu            sync.Mutex
	flow          *Flow
	submitLoading atomic.Bool
}

func NewManager(apiClient API, registry *Registry, repo drafts.Repository, uploader media.Uploader) *Manager {
	return &Manager{
		api:      apiClient,
		registry: registry,
		drafts:   repo,
		uploader: uploader,
	}
}

// StartTask begins a fresh draft for the task, discarding any active flow.
// Completed tasks are hard-blocked here, not just greyed out upstream.
func (m *Manager) StartTask(task api.Task) error {
	if task.Completed() {
		return ErrTaskComplete
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.flow = &Flow{Task: task, Draft: newDraft(task), Stage: StageExample}
	return nil
}

// ResumeTask begins an active flow seeded from a saved draft, preserving the
// captured photo and partial answers.
func (m *Manager) ResumeTask(task api.Task, record *drafts.Record) error {
	if task.Completed() {
		return ErrTaskComplete
	}
	draft, err := draftFromRecord(record)
	if err != nil {
		return err
	}
	// Re-seed anything the saved draft predates (new questions, pins).
	seeded := newDraft(task)
	for id, a := range draft.Answers {
		if _, locked := seeded.Answers[id]; locked && isLockedQuestion(task, id) {
			continue
		}
		seeded.Answers[id] = a
	}
	seeded.Photo = draft.Photo
	seeded.PhotoMIME = draft.PhotoMIME

	stage := StageExample
	if seeded.HasPhoto() {
		stage = StageLabel
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.flow = &Flow{Task: task, Draft: seeded, Stage: stage}
	return nil
}

func isLockedQuestion(task api.Task, questionID string) bool {
	for _, q := range task.Questions {
		if q.ID == questionID {
			return isEmotionQuestion(q)
		}
	}
	return false
}

// ActiveFlow returns a snapshot of the active flow, or nil. Mutation happens
// only through Manager operations.
func (m *Manager) ActiveFlow() *Flow {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.flow == nil {
		return nil
	}
	snapshot := *m.flow
	snapshot.Draft.Answers = make(map[string]Answer, len(m.flow.Draft.Answers))
	for id, a := range m.flow.Draft.Answers {
		snapshot.Draft.Answers[id] = a
	}
	return &snapshot
}

// BeginCapture moves example → capture.
func (m *Manager) BeginCapture() error {
	return m.transition(StageExample, StageCapture, nil)
}

// AttachPhoto records a successfully captured frame and moves capture → review.
func (m *Manager) AttachPhoto(frame media.Frame) error {
	if len(frame.Data) == 0 {
		return fmt.Errorf("tasks: empty frame")
	}
	return m.transition(StageCapture, StageReview, func(f *Flow) {
		f.Draft.Photo = frame.Data
		f.Draft.PhotoMIME = frame.MIME
	})
}

// Retake discards the photo and moves review → capture.
func (m *Manager) Retake() error {
	return m.transition(StageReview, StageCapture, func(f *Flow) {
		f.Draft.Photo = nil
		f.Draft.PhotoMIME = ""
	})
}

// ConfirmPhoto moves review → label.
func (m *Manager) ConfirmPhoto() error {
	return m.transition(StageReview, StageLabel, nil)
}

func (m *Manager) transition(from, to Stage, apply func(*Flow)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.flow == nil {
		return ErrNoActiveFlow
	}
	if m.flow.Stage != from {
		return ErrWrongStage
	}
	if apply != nil {
		apply(m.flow)
	}
	m.flow.Stage = to
	return nil
}

// SetAnswer records an answer for the active flow's task. The emotion-type
// question rejects edits; single-choice values must come from the question's
// option set; ratings must sit in 0-100.
func (m *Manager) SetAnswer(questionID string, a Answer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.flow == nil {
		return ErrNoActiveFlow
	}

	var question *api.Question
	for i := range m.flow.Task.Questions {
		if m.flow.Task.Questions[i].ID == questionID {
			question = &m.flow.Task.Questions[i]
			break
		}
	}
	if question == nil {
		return ErrNoQuestion
	}
	if isEmotionQuestion(*question) {
		return ErrAnswerLocked
	}

	switch question.Type {
	case api.QuestionSingleChoice:
		allowed := false
		for _, opt := range question.Options {
			if opt == a.Choice {
				allowed = true
				break
			}
		}
		if !allowed {
			return ErrUnknownOption
		}
		a.Rating = nil
	case api.QuestionRating:
		if a.Rating == nil || *a.Rating < 0 || *a.Rating > 100 {
			return ErrRatingRange
		}
		a.Choice = ""
	}

	a.QuestionID = questionID
	m.flow.Draft.Answers[questionID] = a
	return nil
}

// CanSubmit reports whether submission may be offered: an active flow with a
// captured photo and every required question answered.
func (m *Manager) CanSubmit() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.flow == nil || !m.flow.Draft.HasPhoto() {
		return false
	}
	for _, q := range m.flow.Task.Questions {
		if q.Required && !answered(q, m.flow.Draft.Answers) {
			return false
		}
	}
	return true
}

// SaveDraft persists the active flow's draft into the per-task collection
// (upsert by task id), then clears the active flow. No network call.
func (m *Manager) SaveDraft(ctx context.Context) error {
	m.mu.Lock()
	if m.flow == nil {
		m.mu.Unlock()
		return ErrNoActiveFlow
	}
	record, err := m.flow.Draft.toRecord()
	m.mu.Unlock()
	if err != nil {
		return err
	}

	if err := m.drafts.Upsert(ctx, record); err != nil {
		return err
	}

	m.mu.Lock()
	m.flow = nil
	m.mu.Unlock()
	return nil
}

// CancelTask discards the active flow without persisting anything.
func (m *Manager) CancelTask() {
	m.mu.Lock()
	m.flow = nil
	m.mu.Unlock()
}

// DeleteTaskRecord removes a saved draft by task id.
func (m *Manager) DeleteTaskRecord(ctx context.Context, taskID string) error {
	return m.drafts.Delete(ctx, taskID)
}

// SavedDrafts lists the saved draft collection, newest first.
func (m *Manager) SavedDrafts(ctx context.Context) ([]*drafts.Record, error) {
	return m.drafts.List(ctx)
}
