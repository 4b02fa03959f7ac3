package command

import (
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	cliconfig "github.com/yndnr/tradegate-go/internal/cli/config"
	"github.com/yndnr/tradegate-go/internal/cli/connection"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// HealthInfo is the /health payload.
type HealthInfo struct {
	Server string `json:"server"`
	Status string `json:"status"`
	Time   string `json:"time"`
}

// BlockEntry is one blocklist entry as listed by the server.
type BlockEntry struct {
	Identity  string     `json:"identity"`
	Reason    string     `json:"reason"`
	BlockedAt time.Time  `json:"blocked_at"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	Permanent bool       `json:"permanent" table:"wide"`
}

type listResponse[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
}

// LoginCommand returns the login command.
func LoginCommand() *cli.Command {
	return &cli.Command{
		Name:      "login",
		Usage:     "Log in and save the access token to the profile",
		ArgsUsage: "[PASSWORD|-]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "email",
				Aliases:  []string{"e"},
				Usage:    "Account email",
				Required: true,
			},
			&cli.BoolFlag{
				Name:  "no-save",
				Usage: "Print the token instead of saving it",
			},
		},
		Action: loginAction,
	}
}

func loginAction(c *cli.Context) error {
	client, flags, err := newClient(c, false)
	if err != nil {
		return err
	}
	password, err := readInput(c, "password")
	if err != nil {
		return err
	}

	var tok tokenResponse
	req := loginRequest{Email: c.String("email"), Password: password}
	if err := client.Post(c.Context, "/users/login", req, &tok); err != nil {
		return fmt.Errorf("login: %w", err)
	}

	if c.Bool("no-save") {
		fmt.Fprintln(c.App.Writer, tok.AccessToken)
		return nil
	}

	cfg := cliConfig(c)
	cfg.SetProfile(flags.Profile, cliconfig.Profile{
		Server: client.BaseURL(),
		Token:  tok.AccessToken,
	})
	if err := cliconfig.Save(cfg, c.String("cli-config")); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "Logged in to %s (token expires %s)\n",
		client.BaseURL(), tok.ExpiresAt.UTC().Format(time.RFC3339))
	return nil
}

// StatusCommand returns the status command.
func StatusCommand() *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Check that the server is healthy",
		Action: func(c *cli.Context) error {
			client, _, err := newClient(c, false)
			if err != nil {
				return err
			}
			var info HealthInfo
			if err := client.Get(c.Context, "/health", &info); err != nil {
				return err
			}
			info.Server = client.BaseURL()
			return render(c, info)
		},
	}
}

// BlocklistCommand returns the blocklist command.
func BlocklistCommand() *cli.Command {
	return &cli.Command{
		Name:  "blocklist",
		Usage: "Inspect and clear blocked client identities (admin)",
		Subcommands: []*cli.Command{
			{
				Name:    "list",
				Aliases: []string{"ls"},
				Usage:   "List blocked identities",
				Action:  blocklistListAction,
			},
			{
				Name:      "remove",
				Aliases:   []string{"rm", "unblock"},
				Usage:     "Unblock an identity",
				ArgsUsage: "IDENTITY",
				Action:    blocklistRemoveAction,
			},
		},
	}
}

func blocklistListAction(c *cli.Context) error {
	client, _, err := newClient(c, true)
	if err != nil {
		return err
	}
	var resp listResponse[BlockEntry]
	if err := client.Get(c.Context, "/admin/blocklist", &resp); err != nil {
		return err
	}
	return render(c, resp.Items)
}

func blocklistRemoveAction(c *cli.Context) error {
	identity := c.Args().First()
	if identity == "" {
		return fmt.Errorf("identity is required")
	}
	client, _, err := newClient(c, true)
	if err != nil {
		return err
	}
	if err := client.Delete(c.Context, "/admin/blocklist/"+connection.PathEscape(identity)); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "Unblocked %s\n", identity)
	return nil
}
