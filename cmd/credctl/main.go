// credctl provisions brokerage credentials for the home API. Records are
// written straight to the service's database; the running server rotates
// the access token on first use.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path"
	"time"

	"github.com/google/subcommands"
	"go.uber.org/zap"

	"github.com/foyerhq/home-api/internal/config"
	"github.com/foyerhq/home-api/internal/model"
	"github.com/foyerhq/home-api/internal/repository"
)

func main() {
	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))

	commander.Register(commander.HelpCommand(), "")
	commander.Register(&setCmd{}, "")
	commander.Register(&listCmd{}, "")
	commander.Register(&deactivateCmd{}, "")

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}

// openRepository loads the service config and connects to its database.
func openRepository(configPath string) (*repository.CredentialRepository, error) {
	if configPath == "" {
		configPath = os.Getenv("CONFIG_PATH")
	}
	if configPath == "" {
		configPath = "config/config.yaml"
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	db, err := repository.Connect(cfg.Database, zap.NewNop())
	if err != nil {
		return nil, err
	}

	return repository.NewCredentialRepository(db, zap.NewNop()), nil
}

type setCmd struct {
	config       string
	owner        string
	refreshToken string
	apiServer    string
}

func (*setCmd) Name() string     { return "set" }
func (*setCmd) Synopsis() string { return "create or replace an owner's brokerage credential" }
func (*setCmd) Usage() string {
	return `credctl set -owner <name> -refresh-token <token> [-api-server <url>]

  Stores the refresh token for one household member. The expiry is set in
  the past so the server exchanges the token on its next credential read.
`
}

func (c *setCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.config, "config", "", "Path to the service config file.")
	f.StringVar(&c.owner, "owner", "", "Owner name, e.g. a household member.")
	f.StringVar(&c.refreshToken, "refresh-token", "", "Refresh token issued by the brokerage.")
	f.StringVar(&c.apiServer, "api-server", "https://api01.iq.questrade.com/", "Base API server URL.")
}

func (c *setCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.owner == "" || c.refreshToken == "" {
		fmt.Fprintln(os.Stderr, "both -owner and -refresh-token are required")
		return subcommands.ExitUsageError
	}

	repo, err := openRepository(c.config)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	cred := &model.Credential{
		Owner:        c.owner,
		RefreshToken: c.refreshToken,
		APIServer:    c.apiServer,
		// Already expired: the server rotates this grant on first use
		ExpiresAt: time.Unix(0, 0).UTC(),
		Active:    true,
	}

	if err := repo.Upsert(ctx, cred); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	fmt.Printf("credential stored for %s\n", c.owner)
	return subcommands.ExitSuccess
}

type listCmd struct {
	config string
}

func (*listCmd) Name() string     { return "list" }
func (*listCmd) Synopsis() string { return "list provisioned credentials" }
func (*listCmd) Usage() string {
	return `credctl list

  Prints every stored credential with its expiry and active flag. Tokens
  themselves are never printed.
`
}

func (c *listCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.config, "config", "", "Path to the service config file.")
}

func (c *listCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	repo, err := openRepository(c.config)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	creds, err := repo.List(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	if len(creds) == 0 {
		fmt.Println("no credentials provisioned")
		return subcommands.ExitSuccess
	}

	for _, cred := range creds {
		state := "active"
		if !cred.Active {
			state = "inactive"
		}
		fmt.Printf("%-16s %-10s expires %s  %s\n",
			cred.Owner, state, cred.ExpiresAt.Format(time.RFC3339), cred.APIServer)
	}
	return subcommands.ExitSuccess
}

type deactivateCmd struct {
	config string
	owner  string
}

func (*deactivateCmd) Name() string     { return "deactivate" }
func (*deactivateCmd) Synopsis() string { return "mark an owner's credential inactive" }
func (*deactivateCmd) Usage() string {
	return `credctl deactivate -owner <name>

  Excludes the owner from balance aggregation without deleting the record.
`
}

func (c *deactivateCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.config, "config", "", "Path to the service config file.")
	f.StringVar(&c.owner, "owner", "", "Owner name to deactivate.")
}

func (c *deactivateCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.owner == "" {
		fmt.Fprintln(os.Stderr, "-owner is required")
		return subcommands.ExitUsageError
	}

	repo, err := openRepository(c.config)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	found, err := repo.Deactivate(ctx, c.owner)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	if !found {
		fmt.Fprintf(os.Stderr, "no credential for %s\n", c.owner)
		return subcommands.ExitFailure
	}

	fmt.Printf("credential for %s deactivated\n", c.owner)
	return subcommands.ExitSuccess
}
