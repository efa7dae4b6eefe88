package domain

// Task is serialized with the lowercase column names the web client reads.
type Task struct {
	ID        int64  `db:"id" json:"id"`
	Text      string `db:"text" json:"text"`
	IsChecked bool   `db:"ischecked" json:"ischecked"`
	UserID    int64  `db:"userid" json:"userid"`
}

type UpdateKind int

const (
	UpdateChecked UpdateKind = iota + 1
	UpdateText
)

func (k UpdateKind) String() string {
	switch k {
	case UpdateChecked:
		return "check"
	case UpdateText:
		return "text"
	default:
		return "unknown"
	}
}

// TaskUpdate changes exactly one field of a task, selected by Kind.
type TaskUpdate struct {
	Kind    UpdateKind
	Checked bool
	Text    string
}

func CheckUpdate(checked bool) TaskUpdate {
	return TaskUpdate{Kind: UpdateChecked, Checked: checked}
}

func TextUpdate(text string) TaskUpdate {
	return TaskUpdate{Kind: UpdateText, Text: text}
}
