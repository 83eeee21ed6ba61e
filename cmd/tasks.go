package cmd

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/sahilm/fuzzy"
	"github.com/spf13/cobra"

	"github.com/feelmint/feelmint-go/feelmint/api"
	"github.com/feelmint/feelmint-go/feelmint/media"
	"github.com/feelmint/feelmint-go/feelmint/tasks"
)

var tasksCMD = &cobra.Command{
	Use:   "tasks",
	Short: "inspect and submit daily labeling tasks",
}

var tasksListCMD = &cobra.Command{
	Use:   "list",
	Short: "show today's task list",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		app, err := bootstrappedApp(ctx)
		if err != nil {
			return err
		}
		defer app.Close()

		if err := app.Registry.LastErr(); err != nil {
			slog.Warn("Task list may be stale", slog.Any("error", err))
		}

		list := app.Registry.Tasks()
		if len(list) == 0 {
			cmd.Println("No tasks available today.")
			return nil
		}
		for _, t := range list {
			status := "open"
			if t.Completed() {
				status = "done"
			}
			cmd.Printf("%-38s %-10s %-8s reward=%.2f\n", t.ID, t.Emotion, status, t.Reward)
		}
		if claimed := app.Registry.ClaimedAt(); claimed != nil {
			cmd.Printf("list claimed at %s\n", claimed.Format("15:04:05"))
		}
		return nil
	},
}

var (
	submitPhotoPath string
	submitRatings   []string
	submitChoices   []string
)

var tasksSubmitCMD = &cobra.Command{
	Use:   "submit <emotion>",
	Short: "capture a photo and submit the task for an emotion",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		app, err := bootstrappedApp(ctx)
		if err != nil {
			return err
		}
		defer app.Close()

		task, err := resolveTask(app.Registry.Tasks(), args[0])
		if err != nil {
			return err
		}

		if record, rerr := app.Drafts.Get(ctx, task.ID); rerr == nil {
			err = app.Flow.ResumeTask(task, record)
		} else {
			err = app.Flow.StartTask(task)
		}
		if err != nil {
			return err
		}

		flow := app.Flow.ActiveFlow()
		if !flow.Draft.HasPhoto() {
			if submitPhotoPath == "" {
				return fmt.Errorf("no saved photo for task %s, pass --photo", task.ID)
			}
			if err := capturePhoto(cmd, app.Flow); err != nil {
				return err
			}
		}

		if err := applyAnswerFlags(app.Flow, submitRatings, submitChoices); err != nil {
			return err
		}

		if !app.Flow.CanSubmit() {
			return fmt.Errorf("task %s has unanswered required questions", task.ID)
		}
		if err := app.Flow.Submit(ctx, func() {
			cmd.Printf("submitted task %s (%s)\n", task.ID, task.Emotion)
		}); err != nil {
			return err
		}
		return nil
	},
}

var tasksDraftsCMD = &cobra.Command{
	Use:   "drafts",
	Short: "list locally saved drafts",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		app, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer app.Close()

		records, err := app.Flow.SavedDrafts(ctx)
		if err != nil {
			return err
		}
		if len(records) == 0 {
			cmd.Println("No saved drafts.")
			return nil
		}
		for _, r := range records {
			cmd.Printf("%-38s photo=%v updated=%s\n", r.TaskID, len(r.Photo) > 0, r.UpdatedAt.Format("2006-01-02 15:04:05"))
		}
		return nil
	},
}

var tasksDiscardCMD = &cobra.Command{
	Use:   "discard <task-id>",
	Short: "delete the saved draft for a task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		app, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer app.Close()

		if err := app.Flow.DeleteTaskRecord(ctx, args[0]); err != nil {
			return err
		}
		cmd.Printf("draft %s deleted\n", args[0])
		return nil
	},
}

// resolveTask matches the argument against open tasks, first by exact ID,
// then fuzzily by emotion name.
func resolveTask(list []api.Task, arg string) (api.Task, error) {
	for _, t := range list {
		if t.ID == arg {
			return t, nil
		}
	}

	var open []api.Task
	var emotions []string
	for _, t := range list {
		if t.Completed() {
			continue
		}
		open = append(open, t)
		emotions = append(emotions, string(t.Emotion))
	}
	if len(open) == 0 {
		return api.Task{}, fmt.Errorf("no open tasks to match %q against", arg)
	}

	matches := fuzzy.Find(strings.ToUpper(arg), emotions)
	if len(matches) == 0 {
		return api.Task{}, fmt.Errorf("no task matches emotion %q", arg)
	}
	return open[matches[0].Index], nil
}

func capturePhoto(cmd *cobra.Command, flow *tasks.Manager) error {
	ctx := cmd.Context()

	if err := flow.BeginCapture(); err != nil {
		return err
	}
	session := media.NewSession(media.FileSource{Path: submitPhotoPath})
	defer session.Close()

	stream, err := session.Acquire(ctx)
	if err != nil {
		return err
	}
	frame, err := stream.Capture(ctx)
	if err != nil {
		return err
	}
	if err := flow.AttachPhoto(frame); err != nil {
		return err
	}
	return flow.ConfirmPhoto()
}

// applyAnswerFlags routes --rating and --choice assignments through the flow's
// answer validation.
func applyAnswerFlags(flow *tasks.Manager, ratings, choices []string) error {
	for _, arg := range ratings {
		questionID, rating, err := parseRating(arg)
		if err != nil {
			return err
		}
		if err := flow.SetAnswer(questionID, tasks.Answer{QuestionID: questionID, Rating: &rating}); err != nil {
			return err
		}
	}
	for _, arg := range choices {
		questionID, choice, err := parseAssignment(arg, "choice")
		if err != nil {
			return err
		}
		if err := flow.SetAnswer(questionID, tasks.Answer{QuestionID: questionID, Choice: choice}); err != nil {
			return err
		}
	}
	return nil
}

func parseAssignment(arg, kind string) (string, string, error) {
	questionID, value, ok := strings.Cut(arg, "=")
	if !ok || questionID == "" || value == "" {
		return "", "", fmt.Errorf("invalid %s %q, expected question-id=value", kind, arg)
	}
	return questionID, value, nil
}

func parseRating(arg string) (string, int, error) {
	questionID, value, err := parseAssignment(arg, "rating")
	if err != nil {
		return "", 0, err
	}
	rating, err := strconv.Atoi(value)
	if err != nil {
		return "", 0, fmt.Errorf("invalid rating value in %q: %w", arg, err)
	}
	return questionID, rating, nil
}

func init() {
	tasksSubmitCMD.Flags().StringVar(&submitPhotoPath, "photo", "", "path to the photo to attach")
	tasksSubmitCMD.Flags().StringSliceVar(&submitRatings, "rating", nil, "rating answers as question-id=value")
	tasksSubmitCMD.Flags().StringSliceVar(&submitChoices, "choice", nil, "single-choice answers as question-id=option")

	tasksCMD.AddCommand(tasksListCMD, tasksSubmitCMD, tasksDraftsCMD, tasksDiscardCMD)
	rootCmd.AddCommand(tasksCMD)
}
