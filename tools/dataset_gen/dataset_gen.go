// Command dataset_gen generates deterministic key datasets for standalone
// benchmarking of the hash index outside `go test`. It emits one
// hex-encoded 8-byte key per line.
//
// Usage:
//
//	go run ./tools/dataset_gen --n 1000000 --dist=zipf --seed=42 --out keys.txt
//
// Flags:
//
//	--n       number of keys to generate (default 1e6)
//	--dist    distribution: "uniform" or "zipf" (default uniform)
//	--zipfs   Zipf s parameter (>1)  (default 1.2)
//	--zipfv   Zipf v parameter (>=1) (default 1.0)
//	--seed    RNG seed (default current time)
//	--out     output file (default stdout)
//
// Adapted from the teacher's bench/dataset_gen.go: same Zipf/uniform
// generator and flag surface, switched to github.com/spf13/pflag (the
// CLI-parsing library this module settled on for cmd/index-inspect) and to
// hex-encoded 8-byte keys so the output is directly usable as []byte keys.
package main

import (
	"bufio"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/spf13/pflag"
)

func main() {
	var (
		n       = pflag.Int("n", 1_000_000, "number of keys to generate")
		dist    = pflag.String("dist", "uniform", "distribution: uniform or zipf")
		zipfS   = pflag.Float64("zipfs", 1.2, "zipf s parameter (>1)")
		zipfV   = pflag.Float64("zipfv", 1.0, "zipf v parameter (>=1)")
		seedVal = pflag.Int64("seed", time.Now().UnixNano(), "PRNG seed")
		outPath = pflag.String("out", "", "output file (default stdout)")
	)
	pflag.Parse()

	rnd := rand.New(rand.NewSource(*seedVal))

	var gen func() uint64
	switch *dist {
	case "uniform":
		gen = rnd.Uint64
	case "zipf":
		if *zipfS <= 1.0 || *zipfV < 1.0 {
			fmt.Fprintln(os.Stderr, "zipfs must be >1 and zipfv >=1")
			os.Exit(1)
		}
		z := rand.NewZipf(rnd, *zipfS, *zipfV, ^uint64(0))
		gen = z.Uint64
	default:
		fmt.Fprintln(os.Stderr, "unknown dist:", *dist)
		os.Exit(1)
	}

	var out *os.File
	var err error
	if *outPath == "" {
		out = os.Stdout
	} else {
		out, err = os.Create(*outPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "cannot create file:", err)
			os.Exit(1)
		}
		defer out.Close()
	}

	w := bufio.NewWriterSize(out, 1<<20)
	defer w.Flush()

	var buf [8]byte
	for i := 0; i < *n; i++ {
		binary.BigEndian.PutUint64(buf[:], gen())
		fmt.Fprintln(w, hex.EncodeToString(buf[:]))
	}
}
