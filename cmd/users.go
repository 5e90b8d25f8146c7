package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/desertthunder/praghad/internal/models"
	"github.com/desertthunder/praghad/internal/repositories"
	"github.com/desertthunder/praghad/internal/shared"
	"github.com/urfave/cli/v3"
)

// UserAdd creates an account. Without --password the password is read from the input.
func (r *Runner) UserAdd(ctx context.Context, cmd *cli.Command) error {
	username := cmd.Args().First()
	if username == "" {
		return fmt.Errorf("%w: username", shared.ErrMissingArgument)
	}

	password := cmd.String("password")
	if password == "" {
		var err error
		if password, err = r.promptPassword("Password: "); err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
	}

	user := &models.User{Username: username, Password: password}
	if err := user.Validate(); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}

	db, err := r.openDatabase(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := repositories.NewUserRepository(db).Create(ctx, user); err != nil {
		return err
	}

	r.logger.Info("user created", "id", user.ID, "username", user.Username)
	return r.writePlain("%s\n", r.styles.OK(fmt.Sprintf("✓ Added user %s (id %d)", user.Username, user.ID)))
}

type userView struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
}

// UserList prints every account. Passwords are never shown.
func (r *Runner) UserList(ctx context.Context, cmd *cli.Command) error {
	db, err := r.openDatabase(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	users, err := repositories.NewUserRepository(db).List(ctx)
	if err != nil {
		return err
	}

	views := make([]userView, 0, len(users))
	for _, u := range users {
		views = append(views, userView{ID: u.ID, Username: u.Username, CreatedAt: u.CreatedAt})
	}

	if cmd.Bool("json") {
		return r.writeJSON(views, true)
	}

	if len(views) == 0 {
		return r.writePlain("%s\n", r.styles.Help("No users yet. Add one with: praghad user add <name>"))
	}

	rows := make([][]string, 0, len(views))
	for _, v := range views {
		rows = append(rows, []string{strconv.FormatInt(v.ID, 10), v.Username, v.CreatedAt.Format(time.DateTime)})
	}

	r.writePlainHeader(fmt.Sprintf("Users (%d)", len(views)))
	return r.writeTable([]string{"ID", "Username", "Created"}, rows)
}
