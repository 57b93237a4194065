package main

import (
	"flag"
	"fmt"
	"os"
	"sort"

	"cogni/internal/interp"
)

// cmdCheck parses a program and reports the declarations the cognitive
// layer would hold it to, without executing anything. The goal listing is
// produced by the same extraction the fix validator uses.
func cmdCheck(args []string) int {
	fs := flag.NewFlagSet("check", flag.ExitOnError)
	fs.Parse(args)

	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: cogni check <file.cog>")
		return 2
	}
	path := fs.Arg(0)

	source, err := os.ReadFile(path)
	if err != nil {
		return fail(err)
	}
	prog, err := interp.Load(string(source))
	if err != nil {
		return fail(err)
	}

	fmt.Printf("%s %s\n", styles.value.Render("ok"), path)

	if len(prog.Goals) > 0 {
		fmt.Println(styles.label.Render("goals"))
		for _, g := range prog.Goals {
			if g.CheckSrc != "" {
				fmt.Printf("  %q  %s\n", g.Description, styles.muted.Render("check "+g.CheckSrc))
			} else {
				fmt.Printf("  %q  %s\n", g.Description, styles.muted.Render("description only"))
			}
		}
	}
	if len(prog.Invariants) > 0 {
		fmt.Println(styles.label.Render("invariants"))
		for _, inv := range prog.Invariants {
			fmt.Printf("  %s\n", inv)
		}
	}
	if len(prog.Observed) > 0 {
		names := make([]string, 0, len(prog.Observed))
		for n := range prog.Observed {
			names = append(names, n)
		}
		sort.Strings(names)
		fmt.Println(styles.label.Render("observed"))
		for _, n := range names {
			fmt.Printf("  %s\n", n)
		}
	}
	return 0
}
