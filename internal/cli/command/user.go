package command

import (
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/tradegate-go/internal/core/domain"
	"github.com/yndnr/tradegate-go/internal/core/service"
	serverconfig "github.com/yndnr/tradegate-go/internal/server/config"
	"github.com/yndnr/tradegate-go/internal/storage"
	"github.com/yndnr/tradegate-go/internal/telemetry/logger"
)

// UserRow is one account as printed by the user commands.
type UserRow struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	IsAdmin   bool      `json:"is_admin"`
	CreatedAt time.Time `json:"created_at"`
}

func userRow(u *domain.User) UserRow {
	return UserRow{
		ID:        u.ID,
		Email:     u.Email,
		IsAdmin:   u.IsAdmin,
		CreatedAt: time.UnixMilli(u.CreatedAt).UTC(),
	}
}

func storageFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Server config file (storage section)",
			EnvVars: []string{"TRADEGATE_CONFIG"},
		},
		&cli.StringFlag{
			Name:  "driver",
			Usage: "Storage driver override: badger, sqlite",
		},
		&cli.StringFlag{
			Name:  "data-dir",
			Usage: "Badger data directory override",
		},
		&cli.StringFlag{
			Name:  "sqlite-path",
			Usage: "SQLite database file override",
		},
	}
}

// UserCommand returns the user command. It opens the server's storage
// directly, so the server must not hold a Badger lock on it.
func UserCommand() *cli.Command {
	return &cli.Command{
		Name:  "user",
		Usage: "Manage accounts in the server's storage",
		Subcommands: []*cli.Command{
			{
				Name:    "list",
				Aliases: []string{"ls"},
				Usage:   "List accounts",
				Flags:   storageFlags(),
				Action:  userListAction,
			},
			{
				Name:      "promote",
				Usage:     "Grant the admin role",
				ArgsUsage: "EMAIL",
				Flags: append(storageFlags(), &cli.BoolFlag{
					Name:  "revoke",
					Usage: "Revoke the admin role instead",
				}),
				Action: userPromoteAction,
			},
		},
	}
}

// openUsers opens storage as configured by the server config file and
// flag overrides.
func openUsers(c *cli.Context) (*service.UserService, func() error, error) {
	cfg, err := serverconfig.Read(c.String("config"))
	if err != nil {
		return nil, nil, err
	}
	st := cfg.Storage
	if v := c.String("driver"); v != "" {
		st.Driver = v
	}
	if v := c.String("data-dir"); v != "" {
		st.DataDir = v
	}
	if v := c.String("sqlite-path"); v != "" {
		st.SQLitePath = v
	}
	if st.Driver == storage.DriverMemory {
		return nil, nil, fmt.Errorf("driver %q has nothing to manage offline", st.Driver)
	}

	repo, err := storage.Open(c.Context, storage.OpenConfig{
		Driver:     st.Driver,
		DataDir:    st.DataDir,
		SQLitePath: st.SQLitePath,
		Logger:     logger.Discard(),
	})
	if err != nil {
		return nil, nil, err
	}
	// Role changes need neither tokens nor password hashing.
	return service.NewUserService(repo, nil, nil, nil), repo.Close, nil
}

func userListAction(c *cli.Context) error {
	users, closeFn, err := openUsers(c)
	if err != nil {
		return err
	}
	defer closeFn()

	list, err := users.List(c.Context)
	if err != nil {
		return err
	}
	rows := make([]UserRow, 0, len(list))
	for _, u := range list {
		rows = append(rows, userRow(u))
	}
	return render(c, rows)
}

func userPromoteAction(c *cli.Context) error {
	email := c.Args().First()
	if email == "" {
		return fmt.Errorf("email is required")
	}
	users, closeFn, err := openUsers(c)
	if err != nil {
		return err
	}
	defer closeFn()

	u, err := users.SetAdmin(c.Context, email, !c.Bool("revoke"))
	if err != nil {
		return err
	}
	return render(c, userRow(u))
}
