package drafts

import (
	"time"

	"github.com/uptrace/bun"
)

// Record is one saved draft, keyed by task id. Answers is the serialized
// answer set; the tasks package owns its shape. Drafts are purely local and
// never leave the device except as a submission.
type Record struct {
	bun.BaseModel `bun:"table:drafts,alias:d"`

	TaskID    string    `bun:"task_id,pk"`
	Photo     []byte    `bun:"photo"`
	PhotoMIME string    `bun:"photo_mime"`
	Answers   []byte    `bun:"answers"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}
