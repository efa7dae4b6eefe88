package repository

import (
	"context"
	"fmt"

	"todo_api/internal/domain"

	"github.com/jackc/pgx/v5/pgxpool"
)

// TaskRepository scopes every statement to the owning user.
type TaskRepository struct {
	db *pgxpool.Pool
}

func NewTaskRepository(db *pgxpool.Pool) *TaskRepository {
	return &TaskRepository{db: db}
}

func (r *TaskRepository) ListByUser(ctx context.Context, userID int64) ([]domain.Task, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, text, ischecked, userid FROM tasks WHERE userid = $1 ORDER BY id`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	defer rows.Close()

	res := make([]domain.Task, 0)
	for rows.Next() {
		var t domain.Task
		if err := rows.Scan(&t.ID, &t.Text, &t.IsChecked, &t.UserID); err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		res = append(res, t)
	}
	return res, rows.Err()
}

func (r *TaskRepository) Create(ctx context.Context, t *domain.Task) error {
	err := r.db.QueryRow(ctx,
		`INSERT INTO tasks (text, ischecked, userid) VALUES ($1, $2, $3) RETURNING id`,
		t.Text, t.IsChecked, t.UserID,
	).Scan(&t.ID)
	if err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	return nil
}

// Delete returns the number of rows removed; 0 when the task is missing or
// belongs to someone else.
func (r *TaskRepository) Delete(ctx context.Context, userID, id int64) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM tasks WHERE id = $1 AND userid = $2`, id, userID)
	if err != nil {
		return 0, fmt.Errorf("delete task: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *TaskRepository) Update(ctx context.Context, userID, id int64, u domain.TaskUpdate) (int64, error) {
	var (
		query string
		value any
	)
	switch u.Kind {
	case domain.UpdateChecked:
		query, value = `UPDATE tasks SET ischecked = $1 WHERE userid = $2 AND id = $3`, u.Checked
	case domain.UpdateText:
		query, value = `UPDATE tasks SET text = $1 WHERE userid = $2 AND id = $3`, u.Text
	default:
		return 0, fmt.Errorf("update task: unsupported kind %s", u.Kind)
	}

	tag, err := r.db.Exec(ctx, query, value, userID, id)
	if err != nil {
		return 0, fmt.Errorf("update task %s: %w", u.Kind, err)
	}
	return tag.RowsAffected(), nil
}
