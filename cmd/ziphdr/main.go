// Copyright 2025 Lemon4ksan. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command ziphdr inspects the central directory of a ZIP archive.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/lemon4ksan/ziphdr"
)

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("ziphdr", flag.ContinueOnError)
	fs.SetOutput(stderr)
	zipPath := fs.String("zip", "", "Path to the ZIP file (required)")
	action := fs.String("action", "list", "Action to perform: list, find, range, du, cat, verify")
	name := fs.String("name", "", "Entry name for find, range, du and cat")
	charset := fs.String("charset", "utf-8", "Charset requested for entry names and comments")
	workers := fs.Int("j", 4, "Number of entries checked in parallel by verify")
	verbose := fs.Bool("v", false, "Enable debug logging")

	if err := fs.Parse(args); err != nil {
		return 2
	}

	if *zipPath == "" {
		fmt.Fprintln(stderr, "Error: -zip flag is required")
		fs.Usage()
		return 2
	}

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	cs, err := ziphdr.LookupCharset(*charset)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	archive, err := ziphdr.Open(ctx, *zipPath, ziphdr.WithLogger(logger), ziphdr.WithCharset(cs))
	if err != nil {
		fmt.Fprintf(stderr, "Error opening ZIP file %s: %v\n", *zipPath, err)
		return 1
	}
	defer archive.Close()

	if *action != "list" && *action != "verify" && *name == "" {
		fmt.Fprintf(stderr, "Error: -name flag is required for '%s' action\n", *action)
		return 2
	}

	switch *action {
	case "list":
		err = listEntries(stdout, archive)
	case "find":
		err = findEntry(stdout, archive, *name)
	case "range":
		err = printRange(stdout, archive, *name)
	case "du":
		err = printUsage(stdout, archive, *name)
	case "cat":
		err = catEntry(ctx, stdout, archive, *name)
	case "verify":
		if err = archive.Verify(ctx, *workers); err == nil {
			fmt.Fprintf(stdout, "%d entries OK\n", len(archive.Files()))
		}
	default:
		fmt.Fprintf(stderr, "Error: Unknown action '%s'\n", *action)
		fs.Usage()
		return 2
	}

	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		if errors.Is(err, ziphdr.ErrFileNotFound) {
			return 3
		}
		return 1
	}
	return 0
}

// listEntries prints one line per record in central directory order.
func listEntries(w io.Writer, a *ziphdr.Archive) error {
	m := a.Model()
	for i, fh := range a.Files() {
		if fh == nil {
			continue
		}
		start, end, err := ziphdr.EntryRange(m, fh)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%4d %s %12d %10d-%-10d %s\n",
			i, fh.Mode(), fh.Size(), start, end, fh.Name)
	}
	if a.Comment() != "" {
		fmt.Fprintf(w, "comment: %s\n", a.Comment())
	}
	return nil
}

func findEntry(w io.Writer, a *ziphdr.Archive, name string) error {
	fh, err := a.File(name)
	if err != nil {
		return err
	}
	i, err := ziphdr.IndexOf(a.Model(), fh)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "%d %s\n", i, fh.Name)
	return nil
}

func printRange(w io.Writer, a *ziphdr.Archive, name string) error {
	start, end, err := a.Range(name)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "%d %d\n", start, end)
	return nil
}

func printUsage(w io.Writer, a *ziphdr.Archive, name string) error {
	size, err := a.DirSize(name)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "%d\n", size)
	return nil
}

func catEntry(ctx context.Context, w io.Writer, a *ziphdr.Archive, name string) error {
	rc, err := a.OpenFile(ctx, name)
	if err != nil {
		return err
	}
	if _, err := io.Copy(w, rc); err != nil {
		rc.Close()
		return err
	}
	return rc.Close()
}
