package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/khimraj/budget-planner/internal/agent"
	"github.com/khimraj/budget-planner/internal/capability"
	"github.com/khimraj/budget-planner/internal/logger"
	"github.com/khimraj/budget-planner/internal/sandbox"
	"github.com/khimraj/budget-planner/internal/storage"
	"github.com/khimraj/budget-planner/internal/store"
)

func main() {
	var (
		csvURI = flag.String("csv", "data/transactions.csv", "Transactions CSV: local path or gs:// URI")
		model  = flag.String("model", "", "Gemini model name (defaults to "+agent.DefaultModelName+")")
	)
	flag.Parse()

	log := logger.New()

	ctx := context.Background()
	ctx = logger.WithContext(ctx, log)

	var source storage.Source
	if strings.HasPrefix(*csvURI, "gs://") {
		gcsSource, err := storage.NewGCSSource(*csvURI)
		if err != nil {
			log.Fatal().Err(err).Msg("Invalid CSV URI")
		}
		source = gcsSource
	} else {
		source = storage.NewFileSource(*csvURI)
	}

	txStore := store.New(source, logger.Component(log, "store"))
	engine := sandbox.NewEngine(logger.Component(log, "sandbox"))
	registry := capability.NewRegistry(
		capability.NewAnalyzeFinances(txStore, engine, logger.Component(log, "capability")),
	)

	reasoner, err := agent.NewGeminiReasoner(ctx, *model)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create reasoner")
	}
	loop := agent.NewLoop(reasoner, registry, logger.Component(log, "agent"))
	responder := agent.NewResponder(loop, logger.Component(log, "agent"))

	fmt.Println("Budget assistant. Ask about your finances; type 'exit' to quit.")

	var history []agent.Turn
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			break
		}

		extended, err := responder.Respond(ctx, history, line, func(c agent.Chunk) {
			fmt.Println(c.Delta)
		})
		if err != nil {
			log.Fatal().Err(err).Msg("Exchange aborted")
		}
		history = extended
	}

	if err := scanner.Err(); err != nil {
		log.Fatal().Err(err).Msg("Failed to read input")
	}
}
