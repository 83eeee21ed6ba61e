package tasks

import (
	"context"
	"errors"
	"log/slog"

	"github.com/feelmint/feelmint-go/feelmint/api"
	"github.com/feelmint/feelmint-go/feelmint/drafts"
	"github.com/feelmint/feelmint-go/feelmint/media"
)

var (
	ErrNoPhoto        = errors.New("tasks: no captured photo")
	ErrMissingAnswers = errors.New("tasks: required questions unanswered")
	ErrSubmitInFlight = errors.New("tasks: a submission is already in flight")
)

// SubmitLoading reports whether a submission is in flight. Callers gate the
// submit affordance on it; the pipeline never queues concurrent submissions.
func (m *Manager) SubmitLoading() bool {
	return m.submitLoading.Load()
}

// Submit runs the submission pipeline for the active flow: upload-destination
// request, media upload, server-side registration, registry refresh, saved
// draft cleanup, flow clear, success callback. The flow must have reached the
// label stage with a confirmed photo.
//
// Submission is never retried automatically. A failure before registration
// leaves the active flow, its photo and its answers untouched so the user can
// submit again. Once registration has succeeded the submission is committed:
// later step failures are logged but no longer abort cleanup, since
// resubmitting would duplicate the server record.
func (m *Manager) Submit(ctx context.Context, onSuccess func()) error {
	m.mu.Lock()
	if m.flow == nil {
		m.mu.Unlock()
		return ErrNoActiveFlow
	}
	if !m.flow.Draft.HasPhoto() {
		m.mu.Unlock()
		return ErrNoPhoto
	}
	if m.flow.Stage != StageLabel {
		m.mu.Unlock()
		return ErrWrongStage
	}
	flow := *m.flow
	// The pipeline reads its own copy of the answer set; edits made while the
	// upload is in flight apply to the next attempt, not this one.
	flow.Draft.Answers = make(map[string]Answer, len(m.flow.Draft.Answers))
	for id, a := range m.flow.Draft.Answers {
		flow.Draft.Answers[id] = a
	}
	m.mu.Unlock()

	if !m.submitLoading.CompareAndSwap(false, true) {
		return ErrSubmitInFlight
	}
	defer m.submitLoading.Store(false)

	for _, q := range flow.Task.Questions {
		if q.Required && !answered(q, flow.Draft.Answers) {
			return ErrMissingAnswers
		}
	}

	frame := media.Frame{Data: flow.Draft.Photo, MIME: flow.Draft.PhotoMIME}

	ticket, err := m.api.UploadTicket(ctx, flow.Task.TaskType)
	if err != nil {
		return err
	}

	fileURL, err := m.uploader.Upload(ctx, media.Destination{
		UploadURL: ticket.UploadURL,
		FileURL:   ticket.FileURL,
	}, frame)
	if err != nil {
		return err
	}

	err = m.api.SubmitTask(ctx, api.SubmitTaskRequest{
		TaskID:  flow.Task.ID,
		FileURL: fileURL,
		Answers: answerPayloads(flow.Task, flow.Draft.Answers),
	})
	if err != nil {
		return err
	}

	// Committed from here on.
	if err := m.registry.RefreshList(ctx); err != nil {
		slog.Warn("Registry refresh after submission failed",
			slog.String("type", "flow"),
			slog.String("task_id", flow.Task.ID),
			slog.Any("error", err))
	}
	if err := m.drafts.Delete(ctx, flow.Task.ID); err != nil && !errors.Is(err, drafts.ErrNotFound) {
		slog.Warn("Saved draft cleanup failed",
			slog.String("type", "flow"),
			slog.String("task_id", flow.Task.ID),
			slog.Any("error", err))
	}

	m.mu.Lock()
	// Only clear the slot if it still holds the submitted flow; the user may
	// have started another task while this submission was in flight.
	if m.flow != nil && m.flow.Task.ID == flow.Task.ID {
		m.flow = nil
	}
	m.mu.Unlock()

	slog.Info("Task submitted",
		slog.String("type", "flow"),
		slog.String("task_id", flow.Task.ID),
		slog.String("emotion", string(flow.Task.Emotion)))

	if onSuccess != nil {
		onSuccess()
	}
	return nil
}
