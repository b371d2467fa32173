package main

import (
	"context"
	"fmt"
	"strings"
	"syscall"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/unilife/core/identity"
	"github.com/trezcool/unilife/storage/localstate"
)

var errNoSecret = errors.New("session.secretKey is not configured")

func (cli *commandLine) login() error {
	if len(cli.secret) == 0 {
		return errNoSecret
	}

	fmt.Fprint(cli.out, "Enter session token:")
	input, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Fprintln(cli.out)
	if err != nil {
		return err
	}
	token := strings.TrimSpace(string(input))
	if token == "" {
		cli.printUsage()
		return errHelp
	}

	claims, err := identity.ParseToken(cli.secret, token)
	if err != nil {
		return err
	}
	if err = cli.state.Put(context.Background(), localstate.KeySessionToken, token); err != nil {
		return errors.Wrap(err, "saving session token")
	}
	fmt.Fprintf(cli.out, "logged in as %s\n", claims.Subject)
	return nil
}

func (cli *commandLine) logout() error {
	if err := cli.state.Delete(context.Background(), localstate.KeySessionToken); err != nil {
		return errors.Wrap(err, "deleting session token")
	}
	fmt.Fprintln(cli.out, "logged out")
	return nil
}

func (cli *commandLine) whoami() error {
	ctx := context.Background()
	if len(cli.secret) == 0 {
		id, err := identity.NewFallbackProvider(cli.state).OwnerID(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(cli.out, "%s (local owner)\n", id)
		return nil
	}

	token, err := cli.state.Token(ctx)
	if err != nil {
		return errors.Wrap(err, "reading session token")
	}
	if token == "" {
		fmt.Fprintln(cli.out, "not logged in")
		return nil
	}
	claims, err := identity.ParseToken(cli.secret, token)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "%s (session expires %s)\n", claims.Subject, time.Unix(claims.ExpiresAt, 0).UTC().Format(time.RFC3339))
	return nil
}
