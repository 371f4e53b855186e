// Package main provides the PipSim command line interface.
// PipSim is a cycle-accurate pipelined MIPS CPU simulator.
package main

import (
	"errors"
	"flag"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/sarchlab/pipsim/emu"
	"github.com/sarchlab/pipsim/loader"
	"github.com/sarchlab/pipsim/pipeline"
)

var (
	atp       = flag.Bool("atp", false, "Use the always-taken branch predictor")
	antp      = flag.Bool("antp", false, "Use the always-not-taken branch predictor")
	memRange  = flag.String("m", "", "Memory range BEGIN:END to dump (inclusive, raw hex addresses)")
	dumpEach  = flag.Bool("d", false, "Dump registers (and the -m range) each cycle")
	dumpPCs   = flag.Bool("p", false, "Dump pipeline PCs each cycle")
	numInstrs = flag.Uint64("n", math.MaxUint64, "Stop after N retired instructions")
)

func main() {
	flag.Parse()

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func run() error {
	if *atp == *antp {
		if *atp {
			return errors.New("multiple branch prediction types are given")
		}
		return errors.New("no branch prediction type is given")
	}

	if flag.NArg() == 0 {
		return errors.New("no file is given")
	}
	if flag.NArg() > 1 {
		return errors.New("multiple files are given")
	}

	var dumpRange *emu.Range
	if *memRange != "" {
		r, err := parseRange(*memRange)
		if err != nil {
			return err
		}
		dumpRange = &r
	}

	prog, err := loader.Load(flag.Arg(0))
	if err != nil {
		return err
	}

	builder := emu.NewEmulatorBuilder()
	builder.
		AddDatapath(pipeline.NewInstructionFetch()).
		AddDatapath(pipeline.NewInstructionDecode()).
		AddDatapath(pipeline.NewExecution()).
		AddDatapath(pipeline.NewMemoryAccess()).
		AddDatapath(pipeline.NewWriteBack()).
		AddHandler(pipeline.NewDefaultHandler())

	if *atp {
		builder.AddController(pipeline.NewATPPipelineStateController())
	} else {
		builder.AddController(pipeline.NewANTPPipelineStateController())
	}

	emulator, memory, err := builder.Build(prog.Text, prog.Data)
	if err != nil {
		return err
	}
	handler := emulator.Handler()

	var cycle uint64
	for emulator.InstructionCount() < *numInstrs && !emulator.IsTerminated(memory) {
		cycle++
		if result := emulator.Tick(memory); result != emu.TickSuccess {
			return fmt.Errorf("cycle %d: %v", cycle, result)
		}

		if *dumpPCs || *dumpEach {
			fmt.Printf("===== Cycle %d =====\n", cycle)
		}
		if *dumpPCs {
			handler.DumpPCs(memory, os.Stdout)
			fmt.Println()
		}
		if *dumpEach {
			handler.DumpRegisters(memory, os.Stdout)
			fmt.Println()
			if dumpRange != nil {
				if err := handler.DumpMemory(memory, *dumpRange, os.Stdout); err != nil {
					return err
				}
				fmt.Println()
			}
		}
	}

	fmt.Printf("===== Completion cycle: %d =====\n", cycle)
	fmt.Printf("Instructions retired: %d\n", emulator.InstructionCount())

	if *dumpPCs {
		handler.DumpPCs(memory, os.Stdout)
	}
	handler.DumpRegisters(memory, os.Stdout)
	fmt.Println()
	if dumpRange != nil {
		if err := handler.DumpMemory(memory, *dumpRange, os.Stdout); err != nil {
			return err
		}
		fmt.Println()
	}

	return nil
}

// parseRange parses the BEGIN:END form of the -m option.
func parseRange(s string) (emu.Range, error) {
	begin, end, ok := strings.Cut(s, ":")
	if !ok {
		return emu.Range{}, fmt.Errorf("invalid memory range %q", s)
	}

	beginAddr, err := emu.ParseAddress(begin)
	if err != nil {
		return emu.Range{}, err
	}
	endAddr, err := emu.ParseAddress(end)
	if err != nil {
		return emu.Range{}, err
	}

	return emu.Range{Begin: beginAddr, End: endAddr}, nil
}
