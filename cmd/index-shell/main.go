// Command index-shell is an interactive REPL over an in-process
// pkg/index.Index[[]byte].
//
// Commands:
//
//	set <key> <value>   Insert or update a key
//	get <key>            Retrieve a key
//	del <key>            Delete a key
//	stats                Show bucket count / upsize state
//	bulk <count>         Insert N random keys, report throughput
//	bench <count>        Put then get N random keys, report throughput
//	help                 Show this help
//	exit / quit / q      Exit
//
// Grounded on calvinalkan-agent-task's cmd/sloty REPL: the same
// peterh/liner setup (SetCtrlCAborts, completer, history file), the same
// command-loop shape, adapted to pkg/index's Set/Get/Delete instead of
// slotcache's Writer/Commit protocol.
package main

import (
	"crypto/rand"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/peterh/liner"

	"github.com/Voskan/mpmc-index/pkg/index"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	idx, err := index.New[[]byte](1024, 1<<20)
	if err != nil {
		return fmt.Errorf("creating index: %w", err)
	}
	defer idx.Close()

	worker := idx.Register()
	defer idx.Unregister(worker)

	shell := &shell{idx: idx, worker: worker}
	return shell.run()
}

type shell struct {
	idx    *index.Index[[]byte]
	worker *index.Worker
	liner  *liner.State
}

func historyFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".index_shell_history")
}

func (s *shell) run() error {
	s.liner = liner.NewLiner()
	defer s.liner.Close()

	s.liner.SetCtrlCAborts(true)
	s.liner.SetCompleter(s.completer)

	if f, err := os.Open(historyFile()); err == nil {
		s.liner.ReadHistory(f)
		f.Close()
	}

	fmt.Println("index-shell - mpmc-index REPL")
	fmt.Println("Type 'help' for available commands.")
	fmt.Println()

	for {
		line, err := s.liner.Prompt("index> ")
		if err != nil {
			if err == liner.ErrPromptAborted || err == io.EOF {
				fmt.Println("\nBye!")
				break
			}
			return fmt.Errorf("reading input: %w", err)
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		s.liner.AppendHistory(line)

		parts := strings.Fields(line)
		cmd := strings.ToLower(parts[0])
		args := parts[1:]

		switch cmd {
		case "exit", "quit", "q":
			fmt.Println("Bye!")
			s.saveHistory()
			return nil
		case "help", "?":
			s.printHelp()
		case "set", "put":
			s.cmdSet(args)
		case "get":
			s.cmdGet(args)
		case "del", "delete":
			s.cmdDelete(args)
		case "stats", "info":
			s.cmdStats()
		case "bulk":
			s.cmdBulk(args)
		case "bench":
			s.cmdBench(args)
		default:
			fmt.Printf("Unknown command: %s (type 'help' for commands)\n", cmd)
		}
	}

	s.saveHistory()
	return nil
}

func (s *shell) saveHistory() {
	if path := historyFile(); path != "" {
		if f, err := os.Create(path); err == nil {
			s.liner.WriteHistory(f)
			f.Close()
		}
	}
}

func (s *shell) completer(line string) []string {
	commands := []string{
		"set", "put", "get", "del", "delete",
		"stats", "info", "bulk", "bench",
		"help", "exit", "quit", "q",
	}
	var completions []string
	lower := strings.ToLower(line)
	for _, cmd := range commands {
		if strings.HasPrefix(cmd, lower) {
			completions = append(completions, cmd)
		}
	}
	return completions
}

func (s *shell) printHelp() {
	fmt.Println("Commands:")
	fmt.Println("  set <key> <value>   Insert or update a key")
	fmt.Println("  get <key>           Retrieve a key")
	fmt.Println("  del <key>           Delete a key")
	fmt.Println("  stats               Show bucket count / upsize state")
	fmt.Println("  bulk <count>        Insert N random keys")
	fmt.Println("  bench <count>       Put then get N random keys, report throughput")
	fmt.Println("  help                Show this help")
	fmt.Println("  exit / quit / q     Exit")
}

func (s *shell) cmdSet(args []string) {
	if len(args) < 2 {
		fmt.Println("Usage: set <key> <value>")
		return
	}
	created, err := s.idx.Set(s.worker, []byte(args[0]), []byte(strings.Join(args[1:], " ")))
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	if created {
		fmt.Printf("OK: inserted %q\n", args[0])
	} else {
		fmt.Printf("OK: updated %q\n", args[0])
	}
}

func (s *shell) cmdGet(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: get <key>")
		return
	}
	value, ok := s.idx.Get(s.worker, []byte(args[0]))
	if !ok {
		fmt.Println("(not found)")
		return
	}
	fmt.Printf("%s\n", value)
}

func (s *shell) cmdDelete(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: del <key>")
		return
	}
	if s.idx.Delete(s.worker, []byte(args[0])) {
		fmt.Printf("OK: deleted %q\n", args[0])
	} else {
		fmt.Printf("%q did not exist\n", args[0])
	}
}

func (s *shell) cmdStats() {
	fmt.Printf("Buckets:  %d\n", s.idx.BucketsCount())
	fmt.Printf("Upsizing: %v\n", s.idx.Upsizing())
}

func (s *shell) cmdBulk(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: bulk <count>")
		return
	}
	count, err := strconv.Atoi(args[0])
	if err != nil || count < 1 {
		fmt.Println("Error: count must be a positive integer")
		return
	}

	start := time.Now()
	for i := 0; i < count; i++ {
		key := make([]byte, 16)
		rand.Read(key)
		if _, err := s.idx.Set(s.worker, key, key); err != nil {
			fmt.Printf("Error at entry %d: %v\n", i+1, err)
			return
		}
	}
	elapsed := time.Since(start)
	rate := float64(count) / elapsed.Seconds()
	fmt.Printf("OK: inserted %d entries in %v (%.0f ops/sec)\n", count, elapsed.Round(time.Millisecond), rate)
}

func (s *shell) cmdBench(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: bench <count>")
		return
	}
	count, err := strconv.Atoi(args[0])
	if err != nil || count < 1 {
		fmt.Println("Error: count must be a positive integer")
		return
	}

	keys := make([][]byte, count)
	for i := range keys {
		keys[i] = make([]byte, 16)
		rand.Read(keys[i])
	}

	putStart := time.Now()
	for i, key := range keys {
		if _, err := s.idx.Set(s.worker, key, key); err != nil {
			fmt.Printf("Error at put %d: %v\n", i+1, err)
			return
		}
	}
	putElapsed := time.Since(putStart)

	getStart := time.Now()
	hits := 0
	for _, key := range keys {
		if _, ok := s.idx.Get(s.worker, key); ok {
			hits++
		}
	}
	getElapsed := time.Since(getStart)

	fmt.Printf("\nResults:\n")
	fmt.Printf("  Puts: %d ops in %v (%.0f ops/sec)\n",
		count, putElapsed.Round(time.Millisecond), float64(count)/putElapsed.Seconds())
	fmt.Printf("  Gets: %d ops in %v (%.0f ops/sec), %d hits\n",
		count, getElapsed.Round(time.Millisecond), float64(count)/getElapsed.Seconds(), hits)
}
