package main

import (
	"fmt"
	"io"
	"os"

	"nickandperla.net/narrate/internal/scanner"
	"nickandperla.net/narrate/pkg/narrate"
)

// dumpTokens prints one token per line as file:line:col, kind class and
// token. Tokens before a lexical error are still printed.
func dumpTokens(file string, stdout, stderr io.Writer) int {
	f, err := os.Open(file)
	if err != nil {
		fmt.Fprintf(stderr, "narrate: %v\n", err)
		return 1
	}
	defer f.Close()

	sc := scanner.New(f, file)
	toks, err := sc.All()
	for _, tok := range toks {
		fmt.Fprintf(stdout, "%s:%s\t%s\t%s\n", sc.File(), tok.Pos, tok.Kind.Class(), tok)
	}
	if err != nil {
		fmt.Fprintf(stderr, "narrate: %v\n", err)
		return 1
	}
	return 0
}

// checkFile prints every diagnostic for a file. It fails when any of them
// is an error.
func checkFile(rt *narrate.Runtime, file string, stdout, stderr io.Writer) int {
	diags, err := rt.Check(file)
	if err != nil {
		fmt.Fprintf(stderr, "narrate: %v\n", err)
		return 1
	}
	for _, d := range diags {
		fmt.Fprintln(stdout, d)
	}
	errs, warns := len(diags.Errors()), len(diags.Warnings())
	fmt.Fprintf(stdout, "%s: %d error(s), %d warning(s)\n", file, errs, warns)
	if errs > 0 {
		return 1
	}
	return 0
}
