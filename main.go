package main

import (
	"log"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/customeros/webmail/config"
	"github.com/customeros/webmail/internal/database"
	"github.com/customeros/webmail/internal/repository"
	"github.com/customeros/webmail/server"
)

func main() {
	app := &cli.App{
		Name:  "webmail",
		Usage: "webmail backend",
		Commands: []*cli.Command{
			{
				Name:   "migrate",
				Usage:  "Run database migrations",
				Action: migrate,
			},
			{
				Name:   "server",
				Usage:  "Start the application server",
				Action: serve,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func migrate(*cli.Context) error {
	cfg, err := config.InitConfig()
	if err != nil {
		return cli.Exit("Config initialization failed: "+err.Error(), 1)
	}

	db, err := database.InitDatabase(cfg.DatabaseConfig)
	if err != nil {
		return cli.Exit("Database initialization failed: "+err.Error(), 1)
	}

	if err := repository.Migrate(cfg.DatabaseConfig, db); err != nil {
		return cli.Exit("Database migration failed: "+err.Error(), 1)
	}
	log.Println("Database migration completed successfully")
	return nil
}

func serve(*cli.Context) error {
	cfg, err := config.InitConfig()
	if err != nil {
		return cli.Exit("Config initialization failed: "+err.Error(), 1)
	}

	db, err := database.InitDatabase(cfg.DatabaseConfig)
	if err != nil {
		return cli.Exit("Database initialization failed: "+err.Error(), 1)
	}

	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	log.Println("Webmail starting up...")

	srv, err := server.NewServer(cfg, db)
	if err != nil {
		return cli.Exit("Server setup failed: "+err.Error(), 1)
	}

	if err := srv.Run(); err != nil {
		return cli.Exit("Server startup failed: "+err.Error(), 1)
	}

	log.Println("Shutdown complete")
	return nil
}
