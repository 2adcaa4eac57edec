package main

import (
	"log"
	"os"

	"github.com/trezcool/ruhusa/core"
	"github.com/trezcool/ruhusa/core/directory"
	"github.com/trezcool/ruhusa/storage/database"
	sqlxrepos "github.com/trezcool/ruhusa/storage/database/sqlx"
)

var logger *log.Logger

func main() {
	defer os.Exit(0)

	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	conf, err := core.LoadConfig()
	errAndDie(err)

	// set up DB
	errAndDie(database.CreateIfNotExist(conf))
	db, err := database.OpenAdmin(conf)
	errAndDie(err)
	defer db.Close()

	// start CLI
	cli := commandLine{
		db:     db,
		dirSvc: directory.NewService(sqlxrepos.NewDirectoryRepository(db)),
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err)
	}
}
