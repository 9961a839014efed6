// Command dgmkv is an interactive shell over a dgm.Index: an embeddable,
// ordered key-value storage engine with an in-memory MVCC tier and a
// compacting disk tier.
package main

import (
	"fmt"
	"os"

	flag "github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/calvinalkan/dgmkv/internal/dgmlog"
	"github.com/calvinalkan/dgmkv/pkg/dgm"
	"github.com/calvinalkan/dgmkv/pkg/entry"
	gofs "github.com/calvinalkan/dgmkv/pkg/fs"
)

var defaultDecoder entry.Decoder = entry.DecodeI64

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	flags := flag.NewFlagSet("dgmkv", flag.ContinueOnError)
	dir := flags.StringP("dir", "d", "./dgmkv-data", "data directory")
	name := flags.StringP("name", "n", "main", "index name")
	configPath := flags.StringP("config", "c", "", "JSONC config `file`")
	verbose := flags.BoolP("verbose", "v", false, "enable debug logging")

	if err := flags.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}

		fmt.Fprintln(os.Stderr, "error:", err)

		return 1
	}

	cfg, err := loadConfig(*configPath, *dir, *name)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)

		return 1
	}

	log, err := newLogger(*verbose)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error: building logger:", err)

		return 1
	}

	defer func() { _ = log.Sync() }()

	sink := dgmlog.New(log)

	fsys := gofs.NewReal()

	if err := fsys.MkdirAll(cfg.Dir, 0o755); err != nil {
		fmt.Fprintln(os.Stderr, "error: creating data dir:", err)

		return 1
	}

	ix, err := dgm.Open(fsys, cfg, sink)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error: opening index:", err)

		return 1
	}

	defer ix.Close()

	repl := &REPL{ix: ix, dec: defaultDecoder}

	return repl.Run()
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}

	return zap.NewProduction()
}
