// Command tapetree parses a JSON file into a tree via the parallel
// tape-driven builder and re-serializes it to stdout.
package main

import (
	"flag"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/tapetree/tapetree/internal/cli"
	"github.com/tapetree/tapetree/internal/errs"
	"github.com/tapetree/tapetree/internal/parse"
	"github.com/tapetree/tapetree/internal/serialize"
	"github.com/tapetree/tapetree/internal/tape"
)

func main() {
	var (
		threads       = flag.Int("threads", runtime.NumCPU(), "number of worker goroutines to build with")
		pretty        = flag.Bool("pretty", false, "indent the serialized output")
		watch         = flag.Bool("watch", false, "re-parse and re-report whenever the input file changes")
		showVersion   = flag.Bool("version", false, "print version information and exit")
		jsonVersion   = flag.Bool("json", false, "with -version, print it as JSON")
		minTapeFormat = flag.String("min-tape-version", "", "refuse to run if this build's tape format is older than this")
		verbose       = flag.Bool("v", false, "verbose timing diagnostics on stderr")
	)

	flag.Parse()

	if *showVersion {
		cli.PrintVersion("tapetree", *jsonVersion)

		return
	}

	if err := cli.CheckMinTapeFormat(*minTapeFormat); err != nil {
		cli.ExitWithError("%v", err)
	}

	args := flag.Args()
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "usage: tapetree [flags] <file.json>")
		os.Exit(2)
	}

	path := args[0]
	logger := cli.NewLogger(*verbose, false)

	if err := runOnce(path, *threads, *pretty, logger); err != nil {
		logger.Error("%v", err)
		os.Exit(exitCodeFor(err))
	}

	if !*watch {
		return
	}

	if err := watchLoop(path, *threads, *pretty, logger); err != nil {
		cli.HandleError(err, logger)
	}
}

func runOnce(path string, threads int, pretty bool, logger *cli.Logger) error {
	data, release, err := cli.ReadFileFast(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	defer release()

	t0 := time.Now()

	tapeSlots, strbuf, err := tape.Tokenize(data)
	if err != nil {
		return err
	}

	t1 := time.Now()
	logger.Info("tokenize: %s (%d slots)", t1.Sub(t0), len(tapeSlots))

	tree, root, err := parse.Parse(tapeSlots, strbuf, threads)
	if err != nil {
		return err
	}

	t2 := time.Now()
	logger.Info("parse (partition+build+merge): %s", t2.Sub(t1))

	if err := serialize.Write(os.Stdout, tree, root, serialize.Options{Pretty: pretty}); err != nil {
		return err
	}

	logger.Info("serialize: %s", time.Since(t2))

	return nil
}

func watchLoop(path string, threads int, pretty bool, logger *cli.Logger) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("starting watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(path); err != nil {
		return fmt.Errorf("watching %s: %w", path, err)
	}

	for {
		select {
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}

			logger.Info("change detected, re-parsing %s", path)

			if err := runOnce(path, threads, pretty, logger); err != nil {
				logger.Error("%v", err)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}

			logger.Error("watcher: %v", err)
		}
	}
}

// exitCodeFor maps a parse error's category to a process exit code.
func exitCodeFor(err error) int {
	pe, ok := err.(*errs.ParseError)
	if !ok {
		return 1
	}

	switch pe.Kind {
	case errs.KindTokenizerFailure:
		return 3
	case errs.KindMissingRoot:
		return 4
	case errs.KindOverClose, errs.KindUnderClose:
		return 5
	case errs.KindSyntaxStateMismatch, errs.KindInvalidBoundary:
		return 6
	default:
		return 1
	}
}
