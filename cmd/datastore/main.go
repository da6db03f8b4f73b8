package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"

	"github.com/tailored-agentic-units/datastore/entity"
	"github.com/tailored-agentic-units/datastore/query"
	"github.com/tailored-agentic-units/datastore/store"
)

func main() {
	var (
		configFile = flag.String("config", "", "Path to store config file, JSON or YAML")
		directory  = flag.String("dir", "", "Directory holding the store file (overrides config)")
		name       = flag.String("name", "", "Store name (overrides config)")
		codecName  = flag.String("codec", "", "Payload codec: json, yaml, or proto (overrides config)")
		where      = flag.String("where", "", "Filter expression evaluated against each document")
		engine     = flag.String("engine", "expr", "Filter expression engine: expr, cel, or js")
		insert     = flag.String("insert", "", "JSON object to add as a document before listing")
		remove     = flag.String("delete", "", "Key of a document to delete before listing")
		verbose    = flag.Bool("verbose", false, "Enable verbose logging to stderr")
	)
	flag.Parse()

	cfg := store.DefaultConfig()
	if *configFile != "" {
		loaded, err := store.LoadConfig(*configFile)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		cfg = *loaded
	}

	if *directory != "" {
		cfg.Persist.Directory = *directory
	}
	if *name != "" {
		cfg.Persist.Name = *name
	}
	if *codecName != "" {
		cfg.Persist.Codec = *codecName
	}
	if cfg.Persist.Name == "" {
		fmt.Fprintln(os.Stderr, "Usage: datastore -name <store> [-dir <directory>] [-where <expression>]")
		flag.PrintDefaults()
		os.Exit(1)
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))

	docs, err := store.New[entity.Document](&cfg, store.WithLogger(logger))
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer docs.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := apply(ctx, docs, *insert, *remove); err != nil {
		log.Fatalf("Update failed: %v", err)
	}

	match := func(entity.Document) bool { return true }
	var predicate *query.Predicate[entity.Document]
	if *where != "" {
		eng, err := query.ParseEngine(*engine)
		if err != nil {
			log.Fatalf("Invalid engine: %v", err)
		}
		predicate, err = query.Compile[entity.Document](eng, *where)
		if err != nil {
			log.Fatalf("Invalid filter: %v", err)
		}
		match = predicate.Match
	}

	results, err := docs.Get(match)
	if err != nil {
		log.Fatalf("Query failed: %v", err)
	}
	total, err := docs.Count()
	if err != nil {
		log.Fatalf("Count failed: %v", err)
	}

	encoder := json.NewEncoder(os.Stdout)
	for _, doc := range results {
		if err := encoder.Encode(doc); err != nil {
			log.Fatalf("Failed to write document: %v", err)
		}
	}

	fmt.Fprintf(os.Stderr, "\nStore: %s\nMatched: %d of %d\n", docs.Path(), len(results), total)
	if predicate != nil && predicate.Failures() > 0 {
		fmt.Fprintf(os.Stderr, "Evaluation errors: %d (last: %v)\n", predicate.Failures(), predicate.Err())
	}
}

// apply performs the requested insert and delete and saves when either ran.
func apply(ctx context.Context, docs *store.Store[entity.Document], insert, remove string) error {
	if insert == "" && remove == "" {
		return nil
	}

	if insert != "" {
		doc := entity.NewDocument()
		if err := json.Unmarshal([]byte(insert), &doc); err != nil {
			return fmt.Errorf("parse document: %w", err)
		}
		created, err := docs.Create(doc)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Created: %s\n", entity.Key(created.GetID()))
	}

	if remove != "" {
		if _, err := docs.Delete(remove); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Deleted: %s\n", remove)
	}

	_, err := docs.SaveChanges(ctx)
	return err
}
