package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/juju/errors"
	"github.com/mattn/go-isatty"
	"github.com/temoto/thermo/cmd/thermo/console"
	"github.com/temoto/thermo/cmd/thermo/run"
	"github.com/temoto/thermo/cmd/thermo/subcmd"
	"github.com/temoto/thermo/internal/state"
	"github.com/temoto/thermo/log2"
)

var BuildVersion string = "unknown" // set by ldflags -X

var log = log2.NewStderr(log2.LInfo)

var modules = []subcmd.Mod{
	run.Mod,
	run.OnceMod,
	console.Mod,
}

func main() {
	cmdline := flag.NewFlagSet(os.Args[0], flag.ExitOnError)
	flagConfig := cmdline.String("config", "thermo.hcl", "")
	cmdline.Usage = func() {
		fmt.Fprintf(cmdline.Output(), "Usage: %s [option] [command]\n\nCommands:\n", os.Args[0])
		for _, m := range modules {
			fmt.Fprintf(cmdline.Output(), "  %-8s %s\n", m.Name, m.Usage)
		}
		fmt.Fprintf(cmdline.Output(), "  %-8s %s\n\nOptions:\n", "version", "print build version")
		cmdline.PrintDefaults()
	}
	_ = cmdline.Parse(os.Args[1:])

	command := "run"
	if cmdline.NArg() > 0 {
		command = cmdline.Arg(0)
	}
	if command == "version" {
		fmt.Printf("thermo %s\n", BuildVersion)
		return
	}
	mod, err := subcmd.Parse(command, modules)
	if err != nil {
		cmdline.Usage()
		log.Fatal(err)
	}

	if subcmd.SdNotify("start") {
		// under systemd, journal adds timestamp
		log.SetFlags(log2.LServiceFlags)
	} else if isatty.IsTerminal(os.Stderr.Fd()) {
		log.SetFlags(log2.LInteractiveFlags)
	} else {
		log.SetFlags(log2.LStdFlags)
	}
	log.Infof("thermo version=%s command=%s", BuildVersion, mod.Name)

	ctx, g := state.NewContext(log)
	g.BuildVersion = BuildVersion
	config := state.MustReadConfig(log, state.NewOsFullReader("."), *flagConfig)
	if err := mod.Main(ctx, config); err != nil {
		log.Fatal(errors.ErrorStack(err))
	}
}
