// Package main provides credctl, a command-line client for the credledger HTTP API.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"credledger/cmd/credctl/commands"
)

func main() {
	cmd := &cli.Command{
		Name:  "credctl",
		Usage: "Issue, list, verify and revoke ledger credentials",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "server",
				Aliases: []string{"s"},
				Value:   "http://localhost:8080",
				Usage:   "credledger server base URL",
				Sources: cli.EnvVars("CREDLEDGER_SERVER"),
			},
			&cli.StringFlag{
				Name:    "token",
				Aliases: []string{"t"},
				Usage:   "Session token (see tokengen); required for issue, revoke and history",
				Sources: cli.EnvVars("CREDLEDGER_TOKEN"),
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Value:   "text",
				Usage:   "Output format: 'text' or 'json'",
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "credentials",
				Usage:     "List the credentials held by an owner",
				ArgsUsage: "<owner>",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					owner, err := requireArg(cmd, "owner")
					if err != nil {
						return err
					}
					return commands.RunCredentials(ctx, client(cmd), owner, cmd.String("format"), os.Stdout)
				},
			},
			{
				Name:      "issued",
				Usage:     "List the live credentials an issuer has issued",
				ArgsUsage: "<issuer>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "student", Usage: "Only show credentials held by this student"},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					issuer, err := requireArg(cmd, "issuer")
					if err != nil {
						return err
					}
					return commands.RunIssued(ctx, client(cmd), issuer, cmd.String("student"), cmd.String("format"), os.Stdout)
				},
			},
			{
				Name:      "verify",
				Usage:     "Verify a credential against an expected owner and issuer",
				ArgsUsage: "<id>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "owner", Usage: "Expected owner address"},
					&cli.StringFlag{Name: "issuer", Usage: "Expected issuer address"},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					credentialID, err := requireArg(cmd, "id")
					if err != nil {
						return err
					}
					return commands.RunVerify(ctx, client(cmd), credentialID,
						cmd.String("owner"), cmd.String("issuer"), cmd.String("format"), os.Stdout)
				},
			},
			{
				Name:  "issue",
				Usage: "Upload a document and issue a credential to a student",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "student", Required: true, Usage: "Student address"},
					&cli.StringFlag{Name: "title", Required: true, Usage: "Credential title"},
					&cli.StringFlag{Name: "file", Required: true, Usage: "Path to the credential document (PDF)"},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunIssue(ctx, client(cmd), cmd.String("student"), cmd.String("title"),
						cmd.String("file"), cmd.String("format"), os.Stdout)
				},
			},
			{
				Name:      "revoke",
				Usage:     "Revoke a credential (permanent)",
				ArgsUsage: "<id>",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					credentialID, err := requireArg(cmd, "id")
					if err != nil {
						return err
					}
					return commands.RunRevoke(ctx, client(cmd), credentialID, cmd.String("format"), os.Stdout)
				},
			},
			{
				Name:      "history",
				Usage:     "Show the recorded issue and revoke events of a credential",
				ArgsUsage: "<id>",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					credentialID, err := requireArg(cmd, "id")
					if err != nil {
						return err
					}
					return commands.RunHistory(ctx, client(cmd), credentialID, cmd.String("format"), os.Stdout)
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func client(cmd *cli.Command) *commands.Client {
	return commands.NewClient(cmd.String("server"), cmd.String("token"), nil)
}

func requireArg(cmd *cli.Command, name string) (string, error) {
	v := cmd.Args().First()
	if v == "" {
		return "", fmt.Errorf("missing <%s> argument", name)
	}
	return v, nil
}
