package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/gookit/color"
	"github.com/timewinder-dev/watchpoint/interp"
	"github.com/timewinder-dev/watchpoint/vm"
)

var (
	file    = flag.String("file", "", "Source file")
	call    = flag.String("call", "", "Function to call after the top level has run")
	returns = flag.Bool("returns", false, "Also report frame returns")
)

func main() {
	flag.Parse()
	if *file == "" {
		log.Fatal("--file is required")
	}
	f, err := vm.CompilePath(*file)
	if err != nil {
		log.Fatalf("couldn't compile: %s", err)
	}
	trace(f)
}

func trace(prog *vm.Program) {
	m := interp.NewMachine(prog)
	m.SetHook(interp.HookFunc(func(ev interp.StepEvent) {
		if ev.Kind == interp.ReturnEvent && !*returns {
			return
		}
		fmt.Println(color.Gray.Sprint("*******"))
		fmt.Printf("%s %s in %s\n", color.Cyan.Sprint(ev.Kind), ev.Location(), ev.Function)
		fmt.Print(ev.Frames.PrettyPrint(prog))
	}))
	if err := m.Run(); err != nil {
		fmt.Fprintln(os.Stderr, "Got err:", err)
		os.Exit(1)
	}
	if *call != "" {
		fn, err := m.Eval(*call)
		if err != nil {
			log.Fatalf("couldn't find %s: %s", *call, err)
		}
		v, err := m.Call(fn)
		if err != nil {
			fmt.Fprintln(os.Stderr, "Got err:", err)
			os.Exit(1)
		}
		fmt.Printf("%s returned %s\n", *call, interp.FormatValue(v))
	}
	fmt.Println("Finished")
}
