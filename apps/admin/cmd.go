package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"syscall"

	"golang.org/x/term"

	"github.com/trezcool/journal/core"
	"github.com/trezcool/journal/core/crud"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	conf     *core.Config
	out      io.Writer
	createDB func(ctx context.Context, conf *core.Config) error
	db       *sql.DB
	registry *crud.Registry
	svc      *crud.Service
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  createdb - create the database and its user if they do not exist")
	fmt.Fprintln(cli.out, "  migrate up|up-by-one|up-to VERSION|down|down-to VERSION|redo|reset|status|version - run the database migrations")
	fmt.Fprintln(cli.out, "  seed - load the default dictionaries")
	fmt.Fprintln(cli.out, "  setpassword -email EMAIL - set a user's password")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	setPasswordCmd := flag.NewFlagSet("setpassword", flag.ContinueOnError)
	setPasswordCmd.SetOutput(cli.out)
	setPasswordEmail := setPasswordCmd.String("email", "", "The user's email. The password will be prompted next.")

	ctx := context.Background()
	switch args[1] {
	case "createdb":
		return cli.createDB(ctx, cli.conf)
	case "migrate":
		return cli.migrate(args[2:])
	case "seed":
		return cli.seed(ctx)
	case "setpassword":
		if err := setPasswordCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *setPasswordEmail == "" {
			setPasswordCmd.Usage()
			return errHelp
		}
		fmt.Fprint(cli.out, "Enter password:")
		pwd, err := readPasswordFunc(syscall.Stdin)
		fmt.Fprintln(cli.out)
		if err != nil {
			return err
		}
		if len(pwd) == 0 {
			setPasswordCmd.Usage()
			return errHelp
		}
		return cli.setPassword(ctx, core.CleanString(*setPasswordEmail, true /* lower */), string(pwd))
	default:
		cli.printUsage()
		return errHelp
	}
}

// scope is the scope of entity, with messages in the first configured locale.
func (cli *commandLine) scope(entity string) (crud.Scope, error) {
	d, ok := cli.registry.Get(entity)
	if !ok {
		return crud.Scope{}, fmt.Errorf("unknown entity %q", entity)
	}
	uni, err := core.NewTranslator(cli.conf.I18n.Locales...)
	if err != nil {
		return crud.Scope{}, err
	}
	return crud.Scope{Entity: d, Translator: uni.GetFallback()}, nil
}

// describe spells out the field messages of validation errors.
func describe(err error) error {
	var vErr *core.ValidationError
	if !errors.As(err, &vErr) || len(vErr.Fields) == 0 {
		return err
	}
	msgs := make([]string, 0, len(vErr.Fields))
	for _, fe := range vErr.Fields {
		msgs = append(msgs, fe.Field+": "+fe.Error)
	}
	return errors.New(strings.Join(msgs, "; "))
}
