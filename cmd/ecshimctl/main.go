// Command ecshimctl is an interactive demo shell for ecshim. It wraps an
// in-memory EventualStore (with an injected write-visibility lag) in a
// Shim and lets the operator poke at the read/write/stats surface
// directly, to see the consistency shim do its job.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ecshim/ecshim"
	"github.com/ecshim/ecshim/backend"
	"github.com/ecshim/ecshim/internal/bufpool"
	"github.com/ecshim/ecshim/internal/config"
	"github.com/ecshim/ecshim/internal/logging"
	"github.com/natefinch/atomic"
	"github.com/peterh/liner"
	"github.com/spf13/pflag"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "ecshimctl:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := pflag.NewFlagSet("ecshimctl", pflag.ContinueOnError)
	configPath := fs.String("config", "", "path to a JSONC config file")
	statsPath := fs.String("stats-file", "", "path to persist the stats snapshot on exit")
	fs.Int("block-size", ecshim.DefaultBlockSize, "block size in bytes")
	fs.Int("cache-size", ecshim.DefaultCacheSize, "maximum tracked blocks")
	fs.Duration("cache-time", ecshim.DefaultCacheTime, "fingerprint cache lifetime")
	fs.Duration("min-write-delay", ecshim.DefaultMinWriteDelay, "minimum delay between writes to the same block")
	fs.Duration("backend-lag", ecshim.DefaultMinWriteDelay/2, "simulated backend write-visibility lag")
	if err := fs.Parse(args); err != nil {
		return err
	}

	fileCfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	fileCfg, err = config.ApplyFlags(fileCfg, fs)
	if err != nil {
		return err
	}

	logger := logging.NewLogger(&logging.Config{Level: logging.LevelInfo, Output: os.Stderr})

	store := backend.NewEventualStore(fileCfg.BlockSize, uint64(fileCfg.BackendLagMillis), nil)
	cfg := fileCfg.ShimConfig()
	cfg.Logger = ecshim.LoggerFunc(logger.Log)

	shim, err := ecshim.New(store, cfg)
	if err != nil {
		return err
	}
	defer shim.Close()

	repl := &repl{shim: shim, blockSize: fileCfg.BlockSize, statsPath: *statsPath, bufs: bufpool.New(fileCfg.BlockSize)}
	return repl.run()
}

type repl struct {
	shim      *ecshim.Shim
	blockSize int
	statsPath string
	line      *liner.State
	bufs      *bufpool.Pool
}

func (r *repl) run() error {
	r.line = liner.NewLiner()
	defer r.line.Close()
	r.line.SetCtrlCAborts(true)
	r.line.SetCompleter(r.completer)

	fmt.Printf("ecshimctl: block_size=%d, type 'help' for commands\n", r.blockSize)

	for {
		input, err := r.line.Prompt("ecshim> ")
		if err != nil {
			if err == liner.ErrPromptAborted || err == io.EOF {
				fmt.Println()
				break
			}
			return err
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		r.line.AppendHistory(input)

		if err := r.dispatch(input); err != nil {
			if err == errQuit {
				break
			}
			fmt.Fprintln(os.Stderr, "error:", err)
		}
	}

	return r.persistStats()
}

var errQuit = fmt.Errorf("quit")

func zeroFill(p []byte) {
	for i := range p {
		p[i] = 0
	}
}

func (r *repl) completer(line string) []string {
	cmds := []string{"read", "write", "stats", "help", "quit"}
	var out []string
	for _, c := range cmds {
		if strings.HasPrefix(c, line) {
			out = append(out, c)
		}
	}
	return out
}

func (r *repl) dispatch(line string) error {
	fields := strings.Fields(line)
	switch strings.ToLower(fields[0]) {
	case "help":
		fmt.Println("commands: read <block>, write <block> [text], stats, quit")
		return nil
	case "quit", "exit":
		return errQuit
	case "read":
		return r.cmdRead(fields[1:])
	case "write":
		return r.cmdWrite(fields[1:])
	case "stats":
		return r.cmdStats()
	default:
		return fmt.Errorf("unknown command %q", fields[0])
	}
}

func (r *repl) cmdRead(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: read <block>")
	}
	blockNum, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		return err
	}
	dest := r.bufs.Get()
	defer r.bufs.Put(dest)
	if err := r.shim.ReadBlock(context.Background(), blockNum, dest, nil); err != nil {
		return err
	}
	fmt.Printf("%q\n", bytes.TrimRight(dest, "\x00"))
	return nil
}

func (r *repl) cmdWrite(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: write <block> [text]")
	}
	blockNum, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		return err
	}
	text := strings.Join(args[1:], " ")
	if len(text) > r.blockSize {
		return fmt.Errorf("text exceeds block size %d", r.blockSize)
	}
	src := r.bufs.Get()
	defer r.bufs.Put(src)
	zeroFill(src)
	copy(src, text)

	start := time.Now()
	if err := r.shim.WriteBlock(context.Background(), blockNum, src, nil); err != nil {
		return err
	}
	fmt.Printf("wrote block %d in %s\n", blockNum, time.Since(start))
	return nil
}

func (r *repl) cmdStats() error {
	snap := r.shim.Stats()
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func (r *repl) persistStats() error {
	if r.statsPath == "" {
		return nil
	}
	snap := r.shim.Stats()
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return err
	}
	return atomic.WriteFile(r.statsPath, bytes.NewReader(data))
}
