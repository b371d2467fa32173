package main

import (
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/jmoiron/sqlx"
	"golang.org/x/term"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/trezcool/unilife/core/syncstore"
	"github.com/trezcool/unilife/storage/localstate"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	out           io.Writer
	printer       *message.Printer
	state         *localstate.Store
	secret        []byte
	defaultTarget float64

	// opened on demand: most commands need neither
	openDB    func() (*sqlx.DB, error)
	openStore func() (*syncstore.Store, func() error, error)
}

func newCommandLine(out io.Writer, state *localstate.Store) *commandLine {
	return &commandLine{
		out:     out,
		printer: message.NewPrinter(language.English),
		state:   state,
	}
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS] - run a goose command (up, down, status, version, ...)")
	fmt.Fprintln(cli.out, "  login                  - save a session token; the token is prompted next")
	fmt.Fprintln(cli.out, "  logout                 - forget the saved session token")
	fmt.Fprintln(cli.out, "  whoami                 - print the current owner")
	fmt.Fprintln(cli.out, "  stats [-term TERM]     - print academic, task and ledger statistics")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	statsCmd := flag.NewFlagSet("stats", flag.ContinueOnError)
	statsCmd.SetOutput(cli.out)
	statsTerm := statsCmd.String("term", "", "Also print the average of this semester.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	case "login":
		return cli.login()
	case "logout":
		return cli.logout()
	case "whoami":
		return cli.whoami()
	case "stats":
		if err := statsCmd.Parse(args[2:]); err != nil {
			if err == flag.ErrHelp {
				return errHelp
			}
			return err
		}
		return cli.stats(*statsTerm)
	default:
		cli.printUsage()
		return errHelp
	}
}
