// Command smoke walks a running API through the full account and task flow
// using the client gateway.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"todo_api/internal/client"
	"todo_api/internal/logger"
)

func main() {
	baseURL := flag.String("url", "http://localhost:3000", "API base URL")
	flag.Parse()

	logger.Init(os.Getenv("LOG_LEVEL"), false)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	c, err := client.New(*baseURL, client.Options{})
	if err != nil {
		logger.Fatal("client", "error", err)
	}

	stamp := time.Now().UnixNano()
	email := fmt.Sprintf("smoke-%d@example.com", stamp)
	password := "smoke-password"

	step := func(name string, err error) {
		if err != nil {
			logger.Fatal("smoke step failed", "step", name, "error", err)
		}
		logger.Info("ok", "step", name)
	}

	step("register", c.Register(ctx, "smoke", email, password))
	step("login", c.Login(ctx, email, password))
	if !c.CheckAuth(ctx) {
		logger.Fatal("check-auth reported false after login")
	}

	tasks, err := c.CreateTask(ctx, "smoke task")
	step("create", err)
	if len(tasks) != 1 {
		logger.Fatal("unexpected task count", "count", len(tasks))
	}
	id := tasks[0].ID

	step("check", c.UpdateTaskStatus(ctx, id, true))
	step("rename", c.UpdateTaskText(ctx, id, "smoke task (renamed)"))

	tasks, err = c.ListTasks(ctx)
	step("list", err)
	if len(tasks) != 1 || !tasks[0].IsChecked || tasks[0].Text != "smoke task (renamed)" {
		logger.Fatal("unexpected task state", "tasks", tasks)
	}

	tasks, err = c.DeleteTask(ctx, id)
	step("delete", err)
	if len(tasks) != 0 {
		logger.Fatal("task not deleted", "tasks", tasks)
	}

	step("logout", c.Logout(ctx))
	if c.CheckAuth(ctx) {
		logger.Fatal("check-auth reported true after logout")
	}
	fmt.Println("smoke test passed")
}
