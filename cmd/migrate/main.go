package main

import (
	"flag"
	"log"

	_ "github.com/joho/godotenv/autoload"

	"github.com/fdg312/meal-planner/internal/config"
	"github.com/fdg312/meal-planner/internal/dbmigrate"
)

func main() {
	dir := flag.String("dir", "", "read migrations from this directory instead of the embedded set")
	list := flag.Bool("list", false, "print the embedded migrations and exit")
	flag.Parse()

	if *list {
		names, err := dbmigrate.Migrations()
		if err != nil {
			log.Fatal(err)
		}
		for _, name := range names {
			log.Println(name)
		}
		return
	}

	if flag.NArg() < 1 {
		log.Fatalf("usage: go run ./cmd/migrate [-dir path] [up|status|down]")
	}

	command := flag.Arg(0)
	switch command {
	case "up", "status", "down":
	default:
		log.Fatalf("unsupported command %q (allowed: up, status, down)", command)
	}

	cfg := config.Load()
	sel, err := dbmigrate.SelectDatabaseURL(cfg, false)
	if err != nil {
		log.Fatal(err)
	}

	if sel.Warning != "" {
		log.Printf("WARN migrate: %s", sel.Warning)
	}
	log.Printf("migrate: command=%s using=%s", command, sel.Source)

	if err := dbmigrate.Run(command, sel.URL, *dir); err != nil {
		log.Fatal(err)
	}

	log.Printf("migrate: %s completed successfully", command)
}
