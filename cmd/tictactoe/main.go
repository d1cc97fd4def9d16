package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"ctchen222/tictactoe-minimax/internal/bot"
	"ctchen222/tictactoe-minimax/internal/cli"
	"ctchen222/tictactoe-minimax/internal/game"
	"ctchen222/tictactoe-minimax/internal/logger"
)

func main() {
	mark := flag.String("mark", "X", "mark played by the human (X moves first)")
	difficulty := flag.String("difficulty", string(bot.Hard), "engine difficulty: easy, medium or hard")
	logLevel := flag.String("log-level", "warn", "log level for diagnostics on stderr")
	flag.Parse()

	logger.Init(os.Stderr, *logLevel)

	humanMark := game.PlayerMark(strings.ToUpper(*mark))
	if humanMark != game.PlayerX && humanMark != game.PlayerO {
		fmt.Fprintf(os.Stderr, "invalid -mark %q: must be X or O\n", *mark)
		os.Exit(2)
	}
	d, err := bot.ParseDifficulty(*difficulty)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid -difficulty: %v\n", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	outcome, err := cli.NewGame(os.Stdin, os.Stdout, humanMark, d).Run(ctx)
	if err != nil {
		slog.Error("Game aborted", "error", err)
		os.Exit(1)
	}
	slog.Debug("Game finished", "outcome", outcome)
}
