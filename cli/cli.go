// Package cli holds the flags and setup shared by the zml commands.
package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"runtime/pprof"
	"syscall"

	"github.com/brimdata/zml/cli/logflags"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

type Flags struct {
	logFlags    logflags.Flags
	showVersion bool
	cpuprofile  string
	memprofile  string
	cpuProfile  *os.File
}

func (f *Flags) SetFlags(fs *flag.FlagSet) {
	f.logFlags.SetFlags(fs)
	fs.BoolVar(&f.showVersion, "version", false, "print version and exit")
	fs.StringVar(&f.cpuprofile, "cpuprofile", "", "write cpu profile to given file name")
	fs.StringVar(&f.memprofile, "memprofile", "", "write memory profile to given file name")
}

type Initializer interface {
	Init() error
}

// Env is what a command needs once its flags are initialized.  Cleanup
// must be called when the command is done.
type Env struct {
	Context context.Context
	Logger  *zap.Logger
	Cleanup func()
}

// Init initializes the given flags, opens the logger and starts profiling.
// The context of the returned Env is canceled on SIGINT, SIGPIPE or
// SIGTERM.
func (f *Flags) Init(all ...Initializer) (*Env, error) {
	if f.showVersion {
		fmt.Printf("Version: %s\n", Version())
		os.Exit(0)
	}
	err := f.logFlags.Init()
	for _, flags := range all {
		err = multierr.Append(err, flags.Init())
	}
	if err != nil {
		return nil, err
	}
	logger, err := f.logFlags.Open()
	if err != nil {
		return nil, err
	}
	if f.cpuprofile != "" {
		if err := f.startCPUProfile(); err != nil {
			return nil, err
		}
	}
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGPIPE, syscall.SIGTERM)
	cleanup := func() {
		cancel()
		f.stopProfiles(logger)
		logger.Sync()
	}
	return &Env{Context: &interruptedContext{ctx}, Logger: logger, Cleanup: cleanup}, nil
}

type interruptedContext struct{ context.Context }

func (i *interruptedContext) Err() error {
	err := i.Context.Err()
	if errors.Is(err, context.Canceled) {
		return errors.New("interrupted")
	}
	return err
}

func (f *Flags) startCPUProfile() error {
	file, err := os.Create(f.cpuprofile)
	if err != nil {
		return err
	}
	if err := pprof.StartCPUProfile(file); err != nil {
		file.Close()
		return err
	}
	f.cpuProfile = file
	return nil
}

func (f *Flags) stopProfiles(logger *zap.Logger) {
	if f.cpuProfile != nil {
		pprof.StopCPUProfile()
		f.cpuProfile.Close()
	}
	if f.memprofile == "" {
		return
	}
	file, err := os.Create(f.memprofile)
	if err != nil {
		logger.Error("Memory profile", zap.Error(err))
		return
	}
	defer file.Close()
	runtime.GC()
	if err := pprof.Lookup("allocs").WriteTo(file, 0); err != nil {
		logger.Error("Memory profile", zap.Error(err))
	}
}
