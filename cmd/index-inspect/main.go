// Command index-inspect fetches and prints diagnostic data from a running
// mpmc-index process. It expects the target service to expose:
//
//	GET /debug/mpmc-index/snapshot   — JSON payload of index statistics
//	GET /debug/pprof/{heap,goroutine} — standard net/http/pprof handlers
//
// Adapted from the teacher's cmd/arena-cache-inspect, generalized to the
// new snapshot shape and switched from hand-rolled flag parsing to
// github.com/spf13/pflag (present in the retrieval pack via
// calvinalkan-agent-task, never wired by the teacher).
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/natefinch/atomic"
	"github.com/spf13/pflag"

	"github.com/Voskan/mpmc-index/pkg/index"
)

var version = "dev"

type options struct {
	target           string
	watch            bool
	interval         time.Duration
	jsonOut          bool
	heapProfile      string
	goroutineProfile string
	showVersion      bool
	configPath       string
	dumpFile         string
}

func parseFlags(args []string) *options {
	fs := pflag.NewFlagSet("index-inspect", pflag.ExitOnError)
	opts := &options{}
	fs.StringVar(&opts.target, "target", "http://127.0.0.1:6060", "base URL of the instrumented process")
	fs.BoolVar(&opts.watch, "watch", false, "repeat the snapshot fetch on --interval")
	fs.DurationVar(&opts.interval, "interval", 2*time.Second, "poll interval used by --watch")
	fs.BoolVar(&opts.jsonOut, "json", false, "print the raw JSON snapshot instead of a table")
	fs.StringVar(&opts.heapProfile, "heap-profile", "", "download a heap profile to this path and exit")
	fs.StringVar(&opts.goroutineProfile, "goroutine-profile", "", "download a goroutine profile to this path and exit")
	fs.BoolVar(&opts.showVersion, "version", false, "print the version and exit")
	fs.StringVar(&opts.configPath, "config", "", "print htable.Tunables loaded from this JWCC file and exit")
	fs.StringVar(&opts.dumpFile, "dump-file", "", "also write each snapshot to this path via an atomic rename-into-place")
	_ = fs.Parse(args)
	return opts
}

func main() {
	opts := parseFlags(os.Args[1:])

	if opts.showVersion {
		fmt.Println(version)
		return
	}

	if opts.configPath != "" {
		tun, err := index.LoadTunables(opts.configPath)
		if err != nil {
			fatal(err)
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(tun)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		cancel()
	}()

	if opts.heapProfile != "" {
		if err := downloadProfile(ctx, opts.target, "heap", opts.heapProfile); err != nil {
			fatal(err)
		}
		return
	}
	if opts.goroutineProfile != "" {
		if err := downloadProfile(ctx, opts.target, "goroutine", opts.goroutineProfile); err != nil {
			fatal(err)
		}
		return
	}

	if opts.watch {
		ticker := time.NewTicker(opts.interval)
		defer ticker.Stop()
		for {
			if err := dumpOnce(ctx, opts); err != nil {
				fmt.Fprintln(os.Stderr, "error:", err)
			}
			select {
			case <-ticker.C:
				continue
			case <-ctx.Done():
				return
			}
		}
	}

	if err := dumpOnce(ctx, opts); err != nil {
		fatal(err)
	}
}

func dumpOnce(ctx context.Context, opts *options) error {
	snap, err := fetchSnapshot(ctx, opts.target)
	if err != nil {
		return err
	}

	if opts.dumpFile != "" {
		buf, err := json.MarshalIndent(snap, "", "  ")
		if err != nil {
			return err
		}
		// A crash or concurrent reader must never observe a truncated
		// snapshot file; atomic.WriteFile writes to a temp file in the
		// same directory and renames it into place.
		if err := atomic.WriteFile(opts.dumpFile, bytes.NewReader(buf)); err != nil {
			return fmt.Errorf("dump-file: %w", err)
		}
	}

	if opts.jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(snap)
	}
	return prettyPrint(snap)
}

func fetchSnapshot(ctx context.Context, base string) (map[string]any, error) {
	url := base + "/debug/mpmc-index/snapshot"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s", res.Status)
	}
	var data map[string]any
	if err := json.NewDecoder(res.Body).Decode(&data); err != nil {
		return nil, err
	}
	return data, nil
}

func prettyPrint(data map[string]any) error {
	fmt.Printf("Buckets:    %v\n", data["buckets"])
	fmt.Printf("Upsizing:   %v\n", data["upsizing"])
	fmt.Printf("Hits:       %v\n", data["hits_total"])
	fmt.Printf("Misses:     %v\n", data["misses_total"])
	fmt.Printf("Inserts:    %v\n", data["inserts_total"])
	fmt.Printf("Updates:    %v\n", data["updates_total"])
	fmt.Printf("Deletes:    %v\n", data["deletes_total"])
	fmt.Printf("Reclaimed:  %v\n", data["reclaimed_total"])
	return nil
}

func downloadProfile(ctx context.Context, base, name, path string) error {
	url := fmt.Sprintf("%s/debug/pprof/%s", base, name)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", res.Status)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := io.Copy(f, res.Body); err != nil {
		return err
	}
	fmt.Printf("%s profile saved to %s\n", name, path)
	return nil
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "index-inspect:", err)
	os.Exit(1)
}
