package cmd

import (
	"testing"

	"github.com/feelmint/feelmint-go/feelmint/api"
	"github.com/feelmint/feelmint-go/feelmint/tasks"
)

func Test_ApplyAnswerFlags(t *testing.T) {
	task := api.Task{
		ID:        "task-1",
		TaskType:  api.TaskTypeEmotion,
		MediaNums: 1,
		Emotion:   api.EmotionHappy,
		Questions: []api.Question{
			{ID: "q1", Type: api.QuestionSingleChoice, Title: api.EmotionQuestionTitle, Sort: 1, Required: true, Options: []string{"HAPPY"}},
			{ID: "q2", Type: api.QuestionRating, Title: "Intensity", Sort: 2, Required: true},
			{ID: "q3", Type: api.QuestionSingleChoice, Title: "Lighting", Sort: 3, Required: true, Options: []string{"indoor", "outdoor"}},
		},
	}

	tests := []struct {
		name    string
		ratings []string
		choices []string
		wantErr bool
	}{
		{name: "rating and choice", ratings: []string{"q2=80"}, choices: []string{"q3=outdoor"}},
		{name: "choice only", choices: []string{"q3=indoor"}},
		{name: "malformed choice", choices: []string{"q3"}, wantErr: true},
		{name: "empty choice value", choices: []string{"q3="}, wantErr: true},
		{name: "option outside the set", choices: []string{"q3=underwater"}, wantErr: true},
		{name: "choice on the pinned question", choices: []string{"q1=HAPPY"}, wantErr: true},
		{name: "malformed rating", ratings: []string{"q2=loud"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := tasks.NewManager(nil, tasks.NewRegistry(nil), nil, nil)
			if err := m.StartTask(task); err != nil {
				t.Fatalf("Manager.StartTask() error = %v", err)
			}

			err := applyAnswerFlags(m, tt.ratings, tt.choices)
			if (err != nil) != tt.wantErr {
				t.Fatalf("applyAnswerFlags() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}

			answers := m.ActiveFlow().Draft.Answers
			for _, arg := range tt.choices {
				questionID, choice, perr := parseAssignment(arg, "choice")
				if perr != nil {
					t.Fatalf("parseAssignment(%q) error = %v", arg, perr)
				}
				if got := answers[questionID].Choice; got != choice {
					t.Errorf("answer %s = %q, want %q", questionID, got, choice)
				}
			}
			for _, arg := range tt.ratings {
				questionID, rating, perr := parseRating(arg)
				if perr != nil {
					t.Fatalf("parseRating(%q) error = %v", arg, perr)
				}
				got := answers[questionID].Rating
				if got == nil || *got != rating {
					t.Errorf("answer %s = %v, want %v", questionID, got, rating)
				}
			}
		})
	}
}

func Test_ResolveTask(t *testing.T) {
	list := []api.Task{
		{ID: "id-happy", Emotion: api.EmotionHappy, MediaNums: 1},
		{ID: "id-sad", Emotion: api.EmotionSad, MediaNums: 1},
		{ID: "id-done", Emotion: api.EmotionAngry, MediaNums: 1, Medias: map[string]api.MediaInfo{"m": {}}},
	}

	tests := []struct {
		name    string
		arg     string
		wantID  string
		wantErr bool
	}{
		{name: "exact id", arg: "id-sad", wantID: "id-sad"},
		{name: "emotion name", arg: "happy", wantID: "id-happy"},
		{name: "completed emotion excluded", arg: "angry", wantErr: true},
		{name: "no match", arg: "zzz", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task, err := resolveTask(list, tt.arg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("resolveTask(%q) error = %v, wantErr %v", tt.arg, err, tt.wantErr)
			}
			if !tt.wantErr && task.ID != tt.wantID {
				t.Errorf("resolveTask(%q).ID = %q, want %q", tt.arg, task.ID, tt.wantID)
			}
		})
	}
}
