package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/jacoelho/htmlstream"
	"github.com/jacoelho/htmlstream/dompatch"
	"github.com/jacoelho/htmlstream/internal/oracle"
)

func main() {
	os.Exit(run())
}

func run() int {
	return runWithArgs(os.Args[1:], os.Stdout, os.Stderr)
}

func runWithArgs(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("htmlpatch", flag.ContinueOnError)
	fs.SetOutput(stderr)
	showPatches := fs.Bool("patches", false, "print the patch stream")
	showTree := fs.Bool("tree", false, "print the materialized tree")
	showErrors := fs.Bool("errors", false, "print recorded parse errors")
	chunkSize := fs.Int("chunk", 0, "feed the input in chunks of this many bytes (0 = one chunk)")
	charsetLabel := fs.String("charset", "", "authoritative charset label, overrides sniffing")
	var usageErr error
	fs.Usage = func() {
		usageErr = errors.Join(
			usageErr,
			writef(stderr, "Usage: %s [options] [document.html]\n\n", os.Args[0]),
			writeln(stderr, "Parses an HTML document into a DOM patch stream."),
			writeln(stderr, "Reads standard input when no file is given."),
			writeln(stderr),
			writeln(stderr, "Options:"),
		)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return 2
	}

	remaining := fs.Args()
	if len(remaining) > 1 {
		if err := writeln(stderr, "error: at most one input file argument is allowed"); err != nil {
			return 1
		}
		fs.Usage()
		if usageErr != nil {
			return 1
		}
		return 2
	}

	input, err := readInput(remaining)
	if err != nil {
		if writeErr := writef(stderr, "error reading input: %v\n", err); writeErr != nil {
			return 1
		}
		return 1
	}

	if !*showPatches && !*showTree && !*showErrors {
		*showTree = true
	}

	session := htmlstream.NewSession(htmlstream.Charset(*charsetLabel))
	store := dompatch.NewStore()
	if err := store.Create(session.Handle()); err != nil {
		if writeErr := writef(stderr, "error: %v\n", err); writeErr != nil {
			return 1
		}
		return 1
	}

	feed := func(chunk []byte) error {
		if err := session.PushBytes(chunk); err != nil {
			return err
		}
		return session.Pump()
	}
	if err := feedChunks(feed, input, *chunkSize); err != nil {
		if writeErr := writef(stderr, "error parsing: %v\n", err); writeErr != nil {
			return 1
		}
		return 1
	}
	if err := session.Finish(); err != nil {
		if writeErr := writef(stderr, "error parsing: %v\n", err); writeErr != nil {
			return 1
		}
		return 1
	}

	batch, ok := session.TakeBatch()
	if ok {
		if *showPatches {
			for _, p := range batch.Patches {
				if err := writeln(stdout, p.String()); err != nil {
					return 1
				}
			}
		}
		if err := store.Apply(batch); err != nil {
			if writeErr := writef(stderr, "error applying patches: %v\n", err); writeErr != nil {
				return 1
			}
			return 1
		}
	}

	if *showTree {
		root, err := store.Materialize(session.Handle())
		if err != nil {
			if writeErr := writef(stderr, "error: %v\n", err); writeErr != nil {
				return 1
			}
			return 1
		}
		if root != nil {
			if err := writef(stdout, "%s", oracle.RenderTree(root)); err != nil {
				return 1
			}
		}
	}

	if *showErrors {
		for _, msg := range session.ParseErrors() {
			if err := writeln(stderr, msg); err != nil {
				return 1
			}
		}
	}
	return 0
}

func readInput(args []string) ([]byte, error) {
	if len(args) == 0 {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(args[0])
}

func feedChunks(feed func([]byte) error, input []byte, size int) error {
	if size <= 0 {
		return feed(input)
	}
	for len(input) > 0 {
		n := size
		if n > len(input) {
			n = len(input)
		}
		if err := feed(input[:n]); err != nil {
			return err
		}
		input = input[n:]
	}
	return nil
}

func writef(w io.Writer, format string, args ...any) error {
	_, err := fmt.Fprintf(w, format, args...)
	return err
}

func writeln(w io.Writer, args ...any) error {
	_, err := fmt.Fprintln(w, args...)
	return err
}
