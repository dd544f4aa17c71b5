package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	agent "github.com/DipperMason/rpn-calculator/internal"
	"github.com/DipperMason/rpn-calculator/internal/config"
	"github.com/DipperMason/rpn-calculator/internal/store"
)

var (
	configPath  = flag.String("config", "", "YAML config file")
	historyPath = flag.String("history", "", "SQLite file to record the evaluation in")
	user        = flag.String("user", "", "user name stored with the history entry")
	strict      = flag.Bool("strict", false, "exit with status 2 when the expression does not evaluate")
)

type recorder interface {
	Record(ctx context.Context, e store.Entry) (int64, error)
}

type options struct {
	rec    recorder
	user   string
	strict bool
	log    *slog.Logger
}

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	level, _ := cfg.Level()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	opts := options{user: *user, strict: *strict, log: logger}
	var db *store.Store
	if *historyPath != "" {
		db, err = store.Open(*historyPath)
		if err != nil {
			logger.Error("history unavailable", "path", *historyPath, "error", err)
			os.Exit(1)
		}
		opts.rec = db
	}

	code := run(context.Background(), os.Stdin, os.Stdout, opts)
	if db != nil {
		db.Close()
	}
	os.Exit(code)
}

// run prompts for one expression on in and writes the outcome to out.
func run(ctx context.Context, in io.Reader, out io.Writer, opts options) int {
	if opts.log == nil {
		opts.log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	fmt.Fprintln(out, "Insira a expressão RNP:")
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		opts.log.Error("read expression", "error", err)
		fmt.Fprintln(out, "Não foi possível ler a expressão")
		return 1
	}
	expression := strings.TrimRight(line, "\r\n")

	v, evalErr := agent.Evaluate(expression)
	entry := store.Entry{Expression: expression, Result: v, User: opts.user}
	if evalErr != nil {
		kind, _ := agent.KindOf(evalErr)
		entry.ErrorKind = kind.String()
		opts.log.Debug("evaluation failed", "expression", expression, "error", evalErr)
		fmt.Fprintln(out, agent.Message(evalErr))
	} else {
		fmt.Fprintf(out, "O resultado é %s\n", agent.FormatResult(v))
	}

	if opts.rec != nil {
		if id, err := opts.rec.Record(ctx, entry); err != nil {
			opts.log.Warn("history not recorded", "error", err)
		} else {
			opts.log.Debug("history recorded", "id", id)
		}
	}

	if evalErr != nil && opts.strict {
		return 2
	}
	return 0
}
