package main

import (
	"fmt"
	"os"

	"github.com/brimdata/zml/cmd/zml/apply"
	"github.com/brimdata/zml/cmd/zml/fit"
	"github.com/brimdata/zml/cmd/zml/inspect"
	"github.com/brimdata/zml/cmd/zml/root"
	"github.com/brimdata/zml/cmd/zml/schema"
	"github.com/brimdata/zml/pkg/charm"
)

func main() {
	zml := root.Zml
	zml.Add(fit.Cmd)
	zml.Add(apply.Cmd)
	zml.Add(inspect.Cmd)
	zml.Add(schema.Cmd)
	zml.Add(charm.Help)
	if err := zml.ExecRoot(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
}
