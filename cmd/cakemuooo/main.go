// Package main provides the entry point for CakemuOoO.
// CakemuOoO is a cycle-driven, out-of-order RV32I core simulator.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/ZhaoCake/CakemuOoO/branchpred"
	"github.com/ZhaoCake/CakemuOoO/diag"
	"github.com/ZhaoCake/CakemuOoO/engine"
	"github.com/ZhaoCake/CakemuOoO/loader"
	"github.com/ZhaoCake/CakemuOoO/perf"
)

// tickPeriodNS is the simulated clock period (100MHz), matching the
// reference driver's sc_clock("clock", 10, SC_NS).
const tickPeriodNS = 10

// resetTicks is how many clock periods the core spends in reset before
// the simulation clock proper begins.
const resetTicks = 1

func main() {
	programFile := flag.String("f", "program.bin", "Program binary file")
	simTimeNS := flag.Uint64("t", 1000, "Simulation time in ns")
	predictorName := flag.String("p", "two_bit", "Branch predictor type")
	generateReport := flag.Bool("r", false, "Generate detailed performance report")
	reportFile := flag.String("o", "performance_report.txt", "Performance report output file")
	csvFile := flag.String("c", "performance_data.csv", "Export performance data to CSV")
	help := flag.Bool("h", false, "Show this help message")
	flag.BoolVar(help, "help", false, "Show this help message")

	flag.Usage = printUsage
	flag.Parse()

	if *help {
		printUsage()
		return
	}

	sink := diag.NewWriterSink(os.Stderr)

	predictorType, ok := predictorTypeByName(*predictorName)
	if !ok {
		sink.Logf("Warning: Unknown predictor type '%s'. Using default (two_bit).", *predictorName)
		predictorType = branchpred.TwoBit
	}

	predictorCfg := branchpred.DefaultConfig()
	predictorCfg.Type = predictorType

	core := engine.New(engine.WithPredictor(predictorCfg), engine.WithSink(sink))

	if err := loader.Load(*programFile, core.Memory(), sink); err != nil {
		fmt.Fprintf(os.Stderr, "Error loading program: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Starting simulation...")

	analyzer := perf.New()

	for i := uint64(0); i < resetTicks; i++ {
		core.Tick()
	}

	ticks := *simTimeNS / tickPeriodNS
	for i := uint64(0); i < ticks; i++ {
		result := core.Tick()
		analyzer.Record(result)
	}

	fmt.Printf("Simulation finished at %d ns\n", resetTicks*tickPeriodNS+ticks*tickPeriodNS)

	printBranchStats(core.Predictor().Stats())

	fmt.Print(analyzer.Summary())
	fmt.Print(analyzer.Histogram())

	if *generateReport {
		if err := writeFile(*reportFile, analyzer.DetailedReport()); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing report: %v\n", err)
			os.Exit(1)
		}

		f, err := os.Create(*csvFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error writing CSV: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()

		if err := analyzer.ExportCSV(f); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing CSV: %v\n", err)
			os.Exit(1)
		}
	}
}

func writeFile(path, contents string) error {
	return os.WriteFile(path, []byte(contents), 0o644)
}

// printBranchStats prints the unconditional branch-prediction summary,
// skipped when fetch never made a branch prediction.
func printBranchStats(stats branchpred.Stats) {
	if stats.TotalPredictions == 0 {
		return
	}

	correct := stats.CorrectPredictions
	if correct > stats.TotalPredictions {
		correct = stats.TotalPredictions
	}
	mispredictions := stats.TotalPredictions - correct

	fmt.Println("Branch statistics:")
	fmt.Printf("  Total branches: %d\n", stats.TotalPredictions)
	fmt.Printf("  Mispredictions: %d\n", mispredictions)
	fmt.Printf("  Prediction accuracy: %.2f%%\n", stats.Accuracy()*100)
}

func predictorTypeByName(name string) (branchpred.Type, bool) {
	switch name {
	case "always_not_taken":
		return branchpred.AlwaysNotTaken, true
	case "always_taken":
		return branchpred.AlwaysTaken, true
	case "static_btfn":
		return branchpred.StaticBTFN, true
	case "one_bit":
		return branchpred.OneBit, true
	case "two_bit":
		return branchpred.TwoBit, true
	case "gshare":
		return branchpred.GShare, true
	case "tournament":
		return branchpred.Tournament, true
	default:
		return 0, false
	}
}

func printUsage() {
	fmt.Println("Usage: cakemuooo [options]")
	fmt.Println("Options:")
	fmt.Println("  -f <file>    Program binary file (default: program.bin)")
	fmt.Println("  -t <time>    Simulation time in ns (default: 1000)")
	fmt.Println("  -p <type>    Branch predictor type (default: two_bit)")
	fmt.Println("               Supported types: always_not_taken, always_taken, static_btfn,")
	fmt.Println("               one_bit, two_bit, gshare, tournament")
	fmt.Println("  -r           Generate detailed performance report")
	fmt.Println("  -o <file>    Performance report output file (default: performance_report.txt)")
	fmt.Println("  -c <file>    Export performance data to CSV (default: performance_data.csv)")
	fmt.Println("  -h, --help   Show this help message")
}
