package charm

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/kr/text"
	"golang.org/x/term"
)

var Help = &Spec{
	Name:  "help",
	Usage: "help [command ...]",
	Short: "display help for a command",
	Long: `
For help on the top-level command just type "help".
For help on a sub-command, type "help command" where command is the name of
the command.  For help on a command nested further, type "help cmd1 cmd2" and
so forth.`,
	HiddenFlags: "v",
	New: func(parent Command, f *flag.FlagSet) (Command, error) {
		c := &HelpCommand{}
		f.BoolVar(&c.showHidden, "v", false, "show hidden commands and flags")
		return c, nil
	},
}

type HelpCommand struct {
	showHidden bool
}

func (c *HelpCommand) Run(args []string) error {
	p, err := lookupPath(Help.Root(), args)
	if err != nil {
		return err
	}
	displayHelp(p, c.showHidden)
	return nil
}

// lookupPath creates the instances of the commands named by args without
// parsing any flags.
func lookupPath(root *Spec, args []string) (path, error) {
	inst, err := newInstance(nil, root)
	if err != nil {
		return nil, err
	}
	p := path{inst}
	for k, name := range args {
		spec := p.last().spec.lookupSub(name)
		if spec == nil {
			return nil, fmt.Errorf("no such command: %s", strings.Join(args[:k+1], " "))
		}
		inst, err := newInstance(p.last().command, spec)
		if err != nil {
			return nil, err
		}
		p = append(p, inst)
	}
	return p, nil
}

const tab = "    "

func displayHelp(p path, showHidden bool) {
	writeHelp(os.Stderr, p, showHidden, terminalWidth())
}

func writeHelp(w io.Writer, p path, showHidden bool, width int) {
	spec := p.last().spec
	section(w, "NAME", spec.Name+" - "+spec.Short)
	section(w, "USAGE", spec.Usage)
	section(w, "OPTIONS", strings.Join(options(p, showHidden), "\n"+tab))
	if cmds := commands(spec, showHidden); len(cmds) > 0 {
		section(w, "COMMANDS", strings.Join(cmds, "\n"+tab))
	}
	if long := strings.TrimSpace(spec.Long); long != "" {
		section(w, "DESCRIPTION", wrap(long, width-len(tab)-5))
	}
}

func section(w io.Writer, heading, body string) {
	fmt.Fprintf(w, "\033[1m%s\033[0m\n%s%s\n\n", heading, tab, body)
}

// wrap fills each paragraph of body to lineWidth and indents every line
// but the first.
func wrap(body string, lineWidth int) string {
	var paragraphs []string
	for _, paragraph := range strings.Split(body, "\n\n") {
		paragraph = strings.TrimSpace(paragraph)
		if len(paragraph) >= lineWidth {
			paragraph = text.Wrap(paragraph, lineWidth)
		}
		paragraphs = append(paragraphs, strings.ReplaceAll(paragraph, "\n", "\n"+tab))
	}
	return strings.Join(paragraphs, "\n\n"+tab)
}

// options lists the flags of the last command of p followed by those of
// each parent, which apply to it as well.
func options(p path, showHidden bool) []string {
	lines := p.last().options(showHidden)
	if len(lines) == 0 {
		lines = []string{"no flags for this command"}
	}
	for k := len(p) - 2; k >= 0; k-- {
		parent := p[k].options(showHidden)
		if len(parent) == 0 {
			continue
		}
		lines = append(lines, "", "["+p[:k+1].pathname()+" flags]")
		lines = append(lines, parent...)
	}
	return lines
}

func commands(spec *Spec, showHidden bool) []string {
	var lines []string
	for _, child := range spec.children {
		name := child.Name
		if child.Hidden {
			if !showHidden {
				continue
			}
			name = "[" + name + "]"
		}
		lines = append(lines, name+" - "+child.Short)
	}
	return lines
}

func terminalWidth() int {
	if w, _, err := term.GetSize(int(os.Stderr.Fd())); err == nil && w > 0 {
		return w
	}
	return 80
}
