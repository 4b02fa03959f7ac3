package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/tradegate-go/internal/core/authn"
	"github.com/yndnr/tradegate-go/internal/core/domain"
)

// claimsOnly resolves no subjects. Local token commands only sign and
// parse claims.
type claimsOnly struct{}

func (claimsOnly) GetUser(context.Context, string) (*domain.User, error) {
	return nil, domain.ErrUnknownSubject
}

func localAuthenticator(secret []byte, ttl time.Duration, cost int) (*authn.Authenticator, error) {
	return authn.New(authn.Config{
		Secret:     secret,
		TokenTTL:   ttl,
		BcryptCost: cost,
	}, claimsOnly{})
}

func secretFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "secret",
		Usage:   "JWT signing secret (at least 32 bytes)",
		EnvVars: []string{"TRADEGATE_SECURITY_JWT_SECRET"},
	}
}

func secretFrom(c *cli.Context) ([]byte, error) {
	s := c.String("secret")
	if s == "" {
		return nil, errors.New("secret is required (--secret or TRADEGATE_SECURITY_JWT_SECRET)")
	}
	return []byte(s), nil
}

// TokenInfo describes the claims of a verified token.
type TokenInfo struct {
	Subject   string    `json:"subject"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// TokenCommand returns the token command.
func TokenCommand() *cli.Command {
	return &cli.Command{
		Name:  "token",
		Usage: "Issue and verify access tokens offline",
		Subcommands: []*cli.Command{
			{
				Name:  "issue",
				Usage: "Sign a token for a user ID",
				Flags: []cli.Flag{
					secretFlag(),
					&cli.StringFlag{
						Name:     "subject",
						Usage:    "User ID placed in the sub claim",
						Required: true,
					},
					&cli.DurationFlag{
						Name:  "ttl",
						Usage: "Token lifetime",
						Value: authn.DefaultTokenTTL,
					},
				},
				Action: tokenIssueAction,
			},
			{
				Name:      "verify",
				Usage:     "Check a token's signature and expiry",
				ArgsUsage: "[TOKEN|-]",
				Flags:     []cli.Flag{secretFlag()},
				Action:    tokenVerifyAction,
			},
		},
	}
}

func tokenIssueAction(c *cli.Context) error {
	secret, err := secretFrom(c)
	if err != nil {
		return err
	}
	auth, err := localAuthenticator(secret, c.Duration("ttl"), 0)
	if err != nil {
		return err
	}

	// Print the raw token only; it is meant for piping.
	token, _, err := auth.IssueToken(c.String("subject"))
	if err != nil {
		return fmt.Errorf("issue token: %w", err)
	}
	fmt.Fprintln(c.App.Writer, token)
	return nil
}

func tokenVerifyAction(c *cli.Context) error {
	secret, err := secretFrom(c)
	if err != nil {
		return err
	}
	auth, err := localAuthenticator(secret, 0, 0)
	if err != nil {
		return err
	}
	raw, err := readInput(c, "token")
	if err != nil {
		return err
	}

	claims, err := auth.ParseToken(raw)
	if err != nil {
		return fmt.Errorf("token rejected (%s): %w", authn.Reason(err), err)
	}
	info := TokenInfo{Subject: claims.Subject}
	if claims.IssuedAt != nil {
		info.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		info.ExpiresAt = claims.ExpiresAt.Time
	}
	return render(c, info)
}
