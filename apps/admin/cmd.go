package main

import (
	"errors"
	"fmt"

	"github.com/trezcool/ruhusa/core/directory"
	"github.com/trezcool/ruhusa/storage/database"
)

var errHelp = errors.New("help provided")

type commandLine struct {
	db     *database.DB
	dirSvc *directory.Service
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  migrate COMMAND [args] - run database migrations (up, down, status, ...)")
	fmt.Println("  seed                   - load a demo directory (departments, groups, teachers, students, labs)")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	case "seed":
		return cli.seed()
	default:
		cli.printUsage()
		return errHelp
	}
}
