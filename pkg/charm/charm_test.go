package charm

import (
	"bytes"
	"errors"
	"flag"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type rootCommand struct {
	verbose bool
	ran     []string
}

func (r *rootCommand) Run(args []string) error {
	if len(args) == 0 {
		return NeedHelp
	}
	return ErrNoRun
}

type leafCommand struct {
	root  *rootCommand
	count int
}

func (l *leafCommand) Run(args []string) error {
	l.root.ran = append(l.root.ran, args...)
	if l.count > 0 {
		return errors.New("count")
	}
	return nil
}

func testTree(root *rootCommand) *Spec {
	top := &Spec{
		Name:  "top",
		Usage: "top <command>",
		Short: "test command",
		Long:  "A long description.",
		New: func(_ Command, f *flag.FlagSet) (Command, error) {
			f.BoolVar(&root.verbose, "verbose", false, "be verbose")
			return root, nil
		},
	}
	top.Add(&Spec{
		Name:  "leaf",
		Usage: "leaf [args]",
		Short: "a leaf",
		New: func(parent Command, f *flag.FlagSet) (Command, error) {
			l := &leafCommand{root: parent.(*rootCommand)}
			f.IntVar(&l.count, "count", 0, "a count")
			return l, nil
		},
	})
	top.Add(&Spec{Name: "secret", Short: "hidden", Hidden: true, New: top.New})
	return top
}

func TestExec(t *testing.T) {
	root := &rootCommand{}
	top := testTree(root)
	require.NoError(t, top.ExecRoot([]string{"-verbose", "leaf", "a", "b"}))
	assert.True(t, root.verbose)
	assert.Equal(t, []string{"a", "b"}, root.ran)

	assert.EqualError(t, top.ExecRoot([]string{"leaf", "-count", "1"}), "count")
	assert.EqualError(t, top.ExecRoot([]string{"nope"}), `"top": no such sub-command "nope": options are: leaf`)
	assert.Error(t, top.ExecRoot([]string{"-bogus"}))
	assert.NoError(t, top.ExecRoot([]string{"leaf", "-h"}))
}

func TestHelp(t *testing.T) {
	top := testTree(&rootCommand{})
	p, err := lookupPath(top, []string{"leaf"})
	require.NoError(t, err)
	var b bytes.Buffer
	writeHelp(&b, p, false, 80)
	out := b.String()
	assert.Contains(t, out, "leaf - a leaf")
	assert.Contains(t, out, `-count a count (default "0")`)
	assert.Contains(t, out, "[top flags]")
	assert.NotContains(t, out, "COMMANDS")

	p, err = lookupPath(top, nil)
	require.NoError(t, err)
	b.Reset()
	writeHelp(&b, p, false, 80)
	assert.Contains(t, b.String(), "leaf - a leaf")
	assert.NotContains(t, b.String(), "secret")
	assert.Contains(t, b.String(), "A long description.")

	_, err = lookupPath(top, []string{"leaf", "x"})
	assert.EqualError(t, err, "no such command: leaf x")
}

func TestWrap(t *testing.T) {
	assert.Equal(t, "one two\n    three", wrap("one two three", 8))
	assert.Equal(t, "short\n\n    next", wrap("short\n\nnext", 80))
}
