package main

import (
	"errors"
	"flag"
	"os"
	"strings"
	"time"

	"github.com/dscatalog/catalog-admin/internal/adapters/jwtroles"
	domainauth "github.com/dscatalog/catalog-admin/internal/domain/auth"
)

const defaultTokenTTL = time.Hour

type issueTokenOptions struct {
	UserName  string
	FirstName string
	Roles     []domainauth.Role
	TTL       time.Duration
}

func runIssueToken(cmdCtx *commandContext, args []string) error {
	opts, err := parseIssueTokenFlags(args)
	if err != nil {
		return err
	}

	apiCfg := cmdCtx.Config.Auth.APIToken
	if !apiCfg.Enabled() {
		return errors.New("API_JWT_SECRET is not configured")
	}
	verifier, err := jwtroles.NewVerifier(jwtroles.Config{
		Secret: apiCfg.Secret,
		Issuer: apiCfg.Issuer,
		Leeway: apiCfg.Leeway,
	})
	if err != nil {
		return err
	}

	token, err := verifier.Issue(jwtroles.IssueInput{
		UserName:  opts.UserName,
		FirstName: opts.FirstName,
		Roles:     opts.Roles,
		TTL:       opts.TTL,
	})
	if err != nil {
		return err
	}

	cmdCtx.Logger.Info("issued bearer token", "user", opts.UserName, "roles", len(opts.Roles), "ttl", opts.TTL)
	return writeln(os.Stdout, token)
}

func parseIssueTokenFlags(args []string) (issueTokenOptions, error) {
	fs := flag.NewFlagSet("issue-token", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var (
		opts  issueTokenOptions
		roles string
	)
	fs.StringVar(&opts.UserName, "user", "", "user_name claim, usually an email (required)")
	fs.StringVar(&opts.FirstName, "first-name", "", "Optional first_name claim")
	fs.StringVar(&roles, "roles", "", "Comma-separated authorities, e.g. ROLE_ADMIN,operator")
	fs.DurationVar(&opts.TTL, "ttl", defaultTokenTTL, "Token lifetime")

	if err := fs.Parse(args); err != nil {
		return issueTokenOptions{}, err
	}

	opts.UserName = strings.TrimSpace(opts.UserName)
	if opts.UserName == "" {
		return issueTokenOptions{}, errors.New("--user is required")
	}
	if opts.TTL <= 0 {
		return issueTokenOptions{}, errors.New("--ttl must be greater than zero")
	}
	for _, r := range strings.Split(roles, ",") {
		if role := normalizeRole(r); role != "" {
			opts.Roles = append(opts.Roles, role)
		}
	}
	opts.Roles = domainauth.NewRoleSet(opts.Roles...).Slice()
	return opts, nil
}
