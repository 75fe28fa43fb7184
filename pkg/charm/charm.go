// Package charm is a minimalist CLI framework inspired by cobra and urfave/cli.
package charm

import (
	"errors"
	"flag"
	"io"
)

var (
	NeedHelp = errors.New("help")
	ErrNoRun = errors.New("no run method")
)

type Constructor func(Command, *flag.FlagSet) (Command, error)

type Command interface {
	Run([]string) error
}

type Spec struct {
	Name  string
	Usage string
	Short string
	Long  string
	New   Constructor
	// Hidden hides this command from help.
	Hidden bool
	// HiddenFlags (comma-separated) hides these flags from help.
	HiddenFlags string
	// RedactedFlags (comma-separated) shows these flags in help without
	// their default values, e.g., for a password flag.
	RedactedFlags string
	children      []*Spec
	parent        *Spec
}

func (s *Spec) Add(child *Spec) {
	s.children = append(s.children, child)
	child.parent = s
}

// Root returns the top of the tree containing s.
func (s *Spec) Root() *Spec {
	for s.parent != nil {
		s = s.parent
	}
	return s
}

func (s *Spec) lookupSub(name string) *Spec {
	for _, child := range s.children {
		if name == child.Name {
			return child
		}
	}
	return nil
}

// ExecRoot runs the command named by args.  A -h or -help flag anywhere
// along the command path displays help for that command instead.
func (s *Spec) ExecRoot(args []string) error {
	path, rest, err := parse(s, args)
	if err == nil {
		err = path.run(rest)
	}
	if errors.Is(err, NeedHelp) && len(path) > 0 {
		displayHelp(path, false)
		return nil
	}
	return err
}

// parse creates the instances along the command path named by args,
// parsing each command's flags before looking up its sub-command.
func parse(spec *Spec, args []string) (path, []string, error) {
	var p path
	var parent Command
	for {
		inst, err := newInstance(parent, spec)
		if err != nil {
			return p, nil, err
		}
		p = append(p, inst)
		rest, err := parseFlags(inst.flags, args)
		if err != nil {
			return p, nil, err
		}
		if len(rest) == 0 {
			return p, rest, nil
		}
		child := spec.lookupSub(rest[0])
		if child == nil {
			return p, rest, nil
		}
		spec, parent, args = child, inst.command, rest[1:]
	}
}

func parseFlags(fs *flag.FlagSet, args []string) ([]string, error) {
	fs.SetOutput(io.Discard)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, NeedHelp
		}
		return nil, err
	}
	return fs.Args(), nil
}
