package tasks

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/feelmint/feelmint-go/feelmint/api"
	"github.com/feelmint/feelmint-go/feelmint/drafts"
)

// DefaultRating is the pre-filled midpoint for rating questions. A rating
// question therefore always counts as answered.
const DefaultRating = 50

// Answer is the response to one question. Choice is set for single-choice
// questions, Rating for rating questions.
type Answer struct {
	QuestionID string `json:"question_id"`
	Choice     string `json:"choice,omitempty"`
	Rating     *int   `json:"rating,omitempty"`
}

// Draft is the local-only overlay for one in-progress task: the captured
// photo plus a partial answer set. The server never sees a draft; it is
// joined to the server's task record by task id at the point of use.
type Draft struct {
	TaskID    string
	Photo     []byte
	PhotoMIME string
	Answers   map[string]Answer
}

func (d *Draft) HasPhoto() bool {
	return len(d.Photo) > 0
}

// newDraft seeds the draft the way the questionnaire presents it: rating
// questions start at the midpoint and the emotion-type question is pinned to
// the task's emotion label.
func newDraft(task api.Task) Draft {
	answers := make(map[string]Answer, len(task.Questions))
	for _, q := range task.Questions {
		switch {
		case q.Type == api.QuestionRating:
			rating := DefaultRating
			answers[q.ID] = Answer{QuestionID: q.ID, Rating: &rating}
		case isEmotionQuestion(q):
			answers[q.ID] = Answer{QuestionID: q.ID, Choice: string(task.Emotion)}
		}
	}
	return Draft{TaskID: task.ID, Answers: answers}
}

func isEmotionQuestion(q api.Question) bool {
	return q.Type == api.QuestionSingleChoice && q.Title == api.EmotionQuestionTitle
}

// answered reports whether a question has a present answer. Rating questions
// are always considered answered because they start pre-filled.
func answered(q api.Question, answers map[string]Answer) bool {
	if q.Type == api.QuestionRating {
		return true
	}
	a, ok := answers[q.ID]
	return ok && a.Choice != ""
}

// answerPayloads flattens the answer set for submission, in question order.
func answerPayloads(task api.Task, answers map[string]Answer) []api.AnswerPayload {
	questions := make([]api.Question, len(task.Questions))
	copy(questions, task.Questions)
	sort.SliceStable(questions, func(i, j int) bool {
		return questions[i].Sort < questions[j].Sort
	})

	out := make([]api.AnswerPayload, 0, len(questions))
	for _, q := range questions {
		a, ok := answers[q.ID]
		if !ok {
			continue
		}
		out = append(out, api.AnswerPayload{
			QuestionID: a.QuestionID,
			Choice:     a.Choice,
			Rating:     a.Rating,
		})
	}
	return out
}

// toRecord serializes the draft for the local store.
func (d *Draft) toRecord() (*drafts.Record, error) {
	answers, err := json.Marshal(d.Answers)
	if err != nil {
		return nil, fmt.Errorf("tasks: encode answers: %w", err)
	}
	return &drafts.Record{
		TaskID:    d.TaskID,
		Photo:     d.Photo,
		PhotoMIME: d.PhotoMIME,
		Answers:   answers,
	}, nil
}

func draftFromRecord(record *drafts.Record) (Draft, error) {
	draft := Draft{
		TaskID:    record.TaskID,
		Photo:     record.Photo,
		PhotoMIME: record.PhotoMIME,
		Answers:   make(map[string]Answer),
	}
	if len(record.Answers) > 0 {
		if err := json.Unmarshal(record.Answers, &draft.Answers); err != nil {
			return Draft{}, fmt.Errorf("tasks: decode answers: %w", err)
		}
	}
	return draft, nil
}
