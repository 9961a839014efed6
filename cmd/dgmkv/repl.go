package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/peterh/liner"

	"github.com/calvinalkan/dgmkv/pkg/dgm"
	"github.com/calvinalkan/dgmkv/pkg/entry"
)

// REPL is the interactive command loop over an *dgm.Index, grounded on
// cmd/sloty's liner-based shell.
type REPL struct {
	ix    *dgm.Index
	dec   entry.Decoder
	liner *liner.State
}

func historyFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	return filepath.Join(home, ".dgmkv_history")
}

// Run starts the REPL loop, returning a process exit code.
func (r *REPL) Run() int {
	r.liner = liner.NewLiner()
	defer r.liner.Close()

	r.liner.SetCtrlCAborts(true)
	r.liner.SetCompleter(r.completer)

	if f, err := os.Open(historyFile()); err == nil {
		r.liner.ReadHistory(f)
		f.Close()
	}

	fmt.Println("dgmkv - embeddable ordered key-value store")
	fmt.Println("Type 'help' for available commands.")
	fmt.Println()

	for {
		line, err := r.liner.Prompt("dgmkv> ")
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				fmt.Println("\nBye!")

				break
			}

			fmt.Fprintln(os.Stderr, "error reading input:", err)

			return 1
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		r.liner.AppendHistory(line)

		parts := strings.Fields(line)
		cmd := strings.ToLower(parts[0])
		args := parts[1:]

		switch cmd {
		case "exit", "quit", "q":
			fmt.Println("Bye!")
			r.saveHistory()

			return 0

		case "help", "?":
			r.printHelp()

		case "put", "set":
			r.cmdPut(args)

		case "get":
			r.cmdGet(args)

		case "del", "delete":
			r.cmdDelete(args)

		case "versions":
			r.cmdVersions(args)

		case "commit":
			r.cmdCommit()

		case "compact":
			r.cmdCompact()

		default:
			fmt.Printf("Unknown command: %s (type 'help' for commands)\n", cmd)
		}
	}

	r.saveHistory()

	return 0
}

func (r *REPL) saveHistory() {
	if path := historyFile(); path != "" {
		if f, err := os.Create(path); err == nil {
			r.liner.WriteHistory(f)
			f.Close()
		}
	}
}

func (r *REPL) completer(line string) []string {
	commands := []string{
		"put", "set", "get", "del", "delete", "versions",
		"commit", "compact", "help", "exit", "quit", "q",
	}

	var completions []string

	lower := strings.ToLower(line)

	for _, c := range commands {
		if strings.HasPrefix(c, lower) {
			completions = append(completions, c)
		}
	}

	return completions
}

func (r *REPL) printHelp() {
	fmt.Println("Commands:")
	fmt.Println("  put <key> <int64>   Upsert a key with an integer value")
	fmt.Println("  get <key>           Look up a key")
	fmt.Println("  del <key>           Tombstone a key")
	fmt.Println("  versions <key>      (not yet wired at the orchestrator level)")
	fmt.Println("  commit              Flush the memory tier to disk")
	fmt.Println("  compact             Merge eligible disk tiers")
	fmt.Println("  help                Show this help")
	fmt.Println("  exit / quit / q     Exit")
}

func (r *REPL) cmdPut(args []string) {
	if len(args) < 2 {
		fmt.Println("Usage: put <key> <int64>")

		return
	}

	v, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		fmt.Printf("Error parsing value: %v\n", err)

		return
	}

	e, err := r.ix.Upsert([]byte(args[0]), entry.I64(v))
	if err != nil {
		fmt.Printf("Error: %v\n", err)

		return
	}

	fmt.Printf("OK: put %q (seqno=%d)\n", args[0], e.Head.Seqno)
}

func (r *REPL) cmdGet(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: get <key>")

		return
	}

	e, ok, err := r.ix.Get([]byte(args[0]), r.dec)
	if err != nil {
		fmt.Printf("Error: %v\n", err)

		return
	}

	if !ok {
		fmt.Println("(not found)")

		return
	}

	if e.Head.Kind == entry.HeadDelete {
		fmt.Println("(tombstoned)")

		return
	}

	fmt.Printf("%v (seqno=%d)\n", e.Head.Value, e.Head.Seqno)
}

func (r *REPL) cmdDelete(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: del <key>")

		return
	}

	_, ok, err := r.ix.Delete([]byte(args[0]))
	if err != nil {
		fmt.Printf("Error: %v\n", err)

		return
	}

	if ok {
		fmt.Printf("OK: deleted %q\n", args[0])
	} else {
		fmt.Printf("OK: %q already tombstoned\n", args[0])
	}
}

func (r *REPL) cmdVersions(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: versions <key>")

		return
	}

	fmt.Println("(version history is exposed on a memory-tier Snapshot; not reachable through the orchestrator's merged view yet)")
}

func (r *REPL) cmdCommit() {
	if err := r.ix.Commit(); err != nil {
		fmt.Printf("Error: %v\n", err)

		return
	}

	fmt.Println("OK: committed")
}

func (r *REPL) cmdCompact() {
	if err := r.ix.Compact(); err != nil {
		if errors.Is(err, dgm.ErrNoCompactionTarget) {
			fmt.Println("Nothing to compact.")

			return
		}

		fmt.Printf("Error: %v\n", err)

		return
	}

	fmt.Println("OK: compacted")
}
