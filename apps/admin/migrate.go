package main

import (
	"fmt"

	"github.com/trezcool/journal/storage/database"
)

var gooseRunFunc = database.RunMigrations // mockable

func (cli *commandLine) migrate(args []string) error {
	if len(args) == 0 {
		fmt.Fprintln(cli.out, "Usage: migrate up|up-by-one|up-to VERSION|down|down-to VERSION|redo|reset|status|version")
		return errHelp
	}
	return gooseRunFunc(args[0], cli.db, args[1:]...)
}
