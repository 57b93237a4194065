package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"

	"github.com/peterh/liner"

	"cogni/internal/agent"
	"cogni/internal/capability"
	"cogni/internal/cognition"
	"cogni/internal/config"
	"cogni/internal/interp"
	"cogni/internal/lang"
)

const (
	historyFile = ".cogni_history"
	promptMain  = ">> "
	promptCont  = ".. "
)

const replHelp = `repl commands:
  :help         show this help
  :env          list visible bindings
  :trace        show deliberations from this session
  :quit, :exit  leave the repl
`

func cmdREPL(args []string) int {
	fs := flag.NewFlagSet("repl", flag.ExitOnError)
	cfgPath := fs.String("config", config.DefaultFile, "config file")
	provider := fs.String("provider", "", "decision provider: off, script, openai, gemini, ollama")
	model := fs.String("model", "", "provider model id")
	sandbox := fs.String("sandbox", "", "grant file builtins confined to this directory")
	verbose := fs.Bool("v", false, "debug logging")
	fs.Parse(args)

	cfg, err := loadConfig(fs, *cfgPath)
	if err != nil {
		return fail(err)
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "provider":
			cfg.Provider = *provider
		case "model":
			cfg.Model = *model
		case "sandbox":
			cfg.SandboxRoot = *sandbox
		}
	})
	logger := newLogger(*verbose)

	caps, err := capability.New(capability.Config{
		SandboxRoot: cfg.SandboxRoot,
		Databases:   cfg.Databases,
		Logger:      logger.With("component", "capability"),
	})
	if err != nil {
		return fail(err)
	}
	defer caps.Close()

	client, err := buildClient(context.Background(), cfg, logger)
	if err != nil {
		return fail(err)
	}
	if client != nil {
		defer client.Close()
	}

	prog, err := interp.Load("")
	if err != nil {
		return fail(err)
	}
	ev := interp.New(prog, interp.Options{
		Safety:   cfg.SafetyConfig(),
		Builtins: caps.Builtins(),
		Stdout:   os.Stdout,
		Logger:   logger.With("component", "interp"),
	})

	var trace *cognition.Trace
	if client != nil {
		trace = cognition.NewTrace()
		ev.SetRuntime(agent.New(ev, agent.Options{
			Client:  client,
			Trace:   trace,
			Safety:  cfg.SafetyConfig(),
			Extract: interp.ExtractGoals,
			Logger:  logger.With("component", "agent"),
		}))
	}

	mode := "cognition off"
	if client != nil {
		mode = "provider " + client.Name()
	}
	fmt.Println(styles.banner.Render("cogni "+version) + styles.muted.Render("  "+mode+"  :help for commands"))

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	histPath := historyPath()
	if f, herr := os.Open(histPath); herr == nil {
		_, _ = ln.ReadHistory(f)
		f.Close()
	}

	for {
		code, ok := readProgram(ln)
		if !ok {
			fmt.Println()
			break
		}
		trimmed := strings.TrimSpace(code)
		if trimmed == "" {
			continue
		}
		if strings.HasPrefix(trimmed, ":") {
			if quit := replCommand(ev, trace, trimmed); quit {
				break
			}
			continue
		}

		evalCtx, stopEval := signal.NotifyContext(context.Background(), os.Interrupt)
		v, verr := ev.EvalFragment(evalCtx, code)
		stopEval()
		if verr != nil {
			var pf *interp.PendingFix
			if errors.As(verr, &pf) {
				fmt.Println(styles.decision.Render("fix proposed: ") + pf.Explanation)
				fmt.Println(styles.muted.Render(pf.NewCode))
				fmt.Println(styles.muted.Render("fixes are not applied here; run the file with `cogni run`"))
			} else {
				fmt.Println(styles.errText.Render(verr.Error()))
			}
		} else {
			fmt.Println(styles.value.Render(v.String()))
		}
		ln.AppendHistory(strings.ReplaceAll(code, "\n", " "))
	}

	if f, herr := os.Create(histPath); herr == nil {
		_, _ = ln.WriteHistory(f)
		f.Close()
	}
	return 0
}

func replCommand(ev *interp.Evaluator, trace *cognition.Trace, line string) (quit bool) {
	switch strings.Fields(line)[0] {
	case ":quit", ":exit":
		return true
	case ":help":
		fmt.Print(replHelp)
	case ":env":
		vars := ev.Variables()
		names := make([]string, 0, len(vars))
		for n := range vars {
			names = append(names, n)
		}
		sort.Strings(names)
		for _, n := range names {
			fmt.Printf("%s = %s\n", styles.label.Render(n), vars[n].String())
		}
	case ":trace":
		switch {
		case trace == nil:
			fmt.Println(styles.muted.Render("cognition is off"))
		case trace.Len() == 0:
			fmt.Println(styles.muted.Render("no deliberations yet"))
		default:
			for _, ep := range trace.Episodes {
				fmt.Println(renderEpisode(ep))
			}
		}
	default:
		fmt.Println(styles.muted.Render("unknown command; :help lists commands"))
	}
	return false
}

// readProgram accumulates lines until the parser accepts the buffer as a
// complete program or reports an error that more input cannot cure.
func readProgram(ln *liner.State) (string, bool) {
	var b strings.Builder
	for {
		prompt := promptMain
		if b.Len() > 0 {
			prompt = promptCont
		}
		line, err := ln.Prompt(prompt)
		if errors.Is(err, io.EOF) {
			return "", false
		}
		if err != nil {
			// Ctrl+C drops the buffer and starts over.
			return "", true
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)

		src := b.String()
		if _, perr := lang.Parse(src); perr == nil || !lang.IsIncomplete(perr) {
			return src, true
		}
	}
}

func historyPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return historyFile
	}
	return filepath.Join(home, historyFile)
}
