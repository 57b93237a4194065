package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

const version = "0.3.0"

const usage = `cogni runs programs that can stop and think.

Usage:
  cogni run <file.cog> [flags]   execute a program
  cogni repl [flags]             interactive session
  cogni check <file.cog>         parse and report cognitive declarations
  cogni version                  print the version

Run "cogni <command> -h" for command flags.
`

func main() {
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	switch os.Args[1] {
	case "run":
		os.Exit(cmdRun(os.Args[2:]))
	case "repl":
		os.Exit(cmdREPL(os.Args[2:]))
	case "check":
		os.Exit(cmdCheck(os.Args[2:]))
	case "version":
		fmt.Println("cogni " + version)
	case "help", "-h", "--help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "cogni: unknown command %q\n\n%s", os.Args[1], usage)
		os.Exit(2)
	}
}

func fail(err error) int {
	fmt.Fprintln(os.Stderr, styles.errText.Render("cogni: "+err.Error()))
	return 1
}
