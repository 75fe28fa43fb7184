package charm

import (
	"errors"
	"fmt"
	"strings"
)

type path []*instance

func (p path) run(args []string) error {
	err := p.last().command.Run(args)
	if errors.Is(err, ErrNoRun) {
		if len(args) == 0 {
			return fmt.Errorf("%q: requires a sub-command: %s", p.pathname(), p.subCommands())
		}
		return fmt.Errorf("%q: no such sub-command %q: options are: %s", p.pathname(), args[0], p.subCommands())
	}
	return err
}

func (p path) last() *instance {
	return p[len(p)-1]
}

func (p path) pathname() string {
	names := make([]string, 0, len(p))
	for _, inst := range p {
		names = append(names, inst.spec.Name)
	}
	return strings.Join(names, " ")
}

func (p path) subCommands() string {
	var names []string
	for _, spec := range p.last().spec.children {
		if !spec.Hidden {
			names = append(names, spec.Name)
		}
	}
	return strings.Join(names, " ")
}
