package charm

import (
	"flag"
	"fmt"
	"strings"
)

// instance is a command that has been created but not run.
type instance struct {
	spec    *Spec
	command Command
	flags   *flag.FlagSet
}

func newInstance(parent Command, spec *Spec) (*instance, error) {
	if spec.New == nil {
		return nil, fmt.Errorf("command '%s': New function is nil", spec.Name)
	}
	flags := flag.NewFlagSet(spec.Name, flag.ContinueOnError)
	cmd, err := spec.New(parent, flags)
	if err != nil {
		return nil, err
	}
	return &instance{spec, cmd, flags}, nil
}

// options returns the help lines for the instance's flags.
func (i *instance) options(showHidden bool) []string {
	hidden := flagSet(i.spec.HiddenFlags)
	redacted := flagSet(i.spec.RedactedFlags)
	var lines []string
	i.flags.VisitAll(func(f *flag.Flag) {
		name := "-" + f.Name
		if hidden[f.Name] {
			if !showHidden {
				return
			}
			name = "[" + name + "]"
		}
		line := name + " " + f.Usage
		if f.DefValue != "" && !redacted[f.Name] {
			line = fmt.Sprintf("%s (default %q)", line, f.DefValue)
		}
		lines = append(lines, line)
	})
	return lines
}

// flagSet returns the set of names in a comma-separated list.
func flagSet(names string) map[string]bool {
	set := make(map[string]bool)
	for _, name := range strings.Split(names, ",") {
		if name = strings.TrimSpace(name); name != "" {
			set[name] = true
		}
	}
	return set
}
