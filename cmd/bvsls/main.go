package main

import (
	"bufio"
	"fmt"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"sort"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/k0kubun/pp/v3"
	"github.com/urfave/cli"

	"github.com/manhhomienbienthuy/bvsls"
)

var CurrentTime time.Time

func GetFlags() []cli.Flag {
	return []cli.Flag{
		cli.BoolFlag{
			Name:  "debug,d",
			Usage: "Debug mode",
		},
		cli.BoolTFlag{
			Name:  "verbosity,verb",
			Usage: "Verbosity mode",
		},
		cli.StringFlag{
			Name:  "input-file, in",
			Usage: "Input problem file for solving(required)",
			Value: "None",
		},
		cli.IntFlag{
			Name:  "max-moves",
			Usage: "Move budget for one search pass",
			Value: bvsls.DefaultConfig().MaxMovesPerPass,
		},
		cli.IntFlag{
			Name:  "max-restarts",
			Usage: "Restart budget",
			Value: bvsls.DefaultConfig().MaxRestarts,
		},
		cli.Int64Flag{
			Name:  "seed",
			Usage: "Random seed",
			Value: 0,
		},
		cli.IntFlag{
			Name:  "time-limit",
			Usage: "Limit on wall-clock time allowed in seconds",
			Value: -1,
		},
	}
}

func ValidateFlags(c *cli.Context) (err error) {
	if c.String("input-file") == "None" {
		return fmt.Errorf("input-file is required.")
	}
	return nil
}

func printProblemStatistics(g *bvsls.Graph) {
	fmt.Printf("c ============================[ Problem Statistics ]============================\n")
	fmt.Printf("c |  Number of terms:      %12d                                        |\n", g.NumTerms())
	fmt.Printf("c |  Number of assertions: %12d                                        |\n", len(g.Assertions()))
	fmt.Printf("c ===============================================================================\n")
}

func printStatistics(s *bvsls.Statistics) {
	elapsedTimeSeconds := time.Now().Sub(CurrentTime).Seconds()
	fmt.Printf("c ===============================================================================\n")
	fmt.Printf("c restarts: %12d\n", s.RestartCount)
	fmt.Printf("c moves: %12d (%.02f / sec)\n", s.MoveCount, float64(s.MoveCount)/elapsedTimeSeconds)
	fmt.Printf("c down repairs: %12d\n", s.DownRepairCount)
	fmt.Printf("c up repairs: %12d\n", s.UpRepairCount)
	fmt.Printf("c escalations: %12d\n", s.EscalationCount)
	fmt.Printf("c wall time: %12f\n", elapsedTimeSeconds)
}

//setTimeOut flips the cancellation flag after the limit; the engine observes
//it at the next move boundary
func setTimeOut(cancelled *atomic.Bool, limitTimeSeconds int) {
	if limitTimeSeconds <= 0 {
		return
	}
	go func() {
		<-time.After(time.Duration(limitTimeSeconds) * time.Second)
		fmt.Println("c TIMEOUT")
		cancelled.Store(true)
	}()
}

func setInterupt(cancelled *atomic.Bool) {
	c := make(chan os.Signal, 2)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		fmt.Println("c INTERUPT")
		cancelled.Store(true)
	}()
}

func printModel(g *bvsls.Graph, model map[bvsls.TermID]bvsls.Value) {
	type binding struct {
		name  string
		value bvsls.Value
	}
	bindings := make([]binding, 0, len(model))
	for id, v := range model {
		bindings = append(bindings, binding{name: g.Term(id).Name, value: v})
	}
	sort.Slice(bindings, func(i, j int) bool {
		return bindings[i].name < bindings[j].name
	})
	for _, b := range bindings {
		fmt.Printf("v %s = %s\n", b.name, b.value.String())
	}
}

func init() {
	CurrentTime = time.Now()
}

func main() {
	app := cli.NewApp()
	app.Name = "bvsls"
	app.Usage = "A stochastic local-search solver for Boolean/bit-vector constraints written in Go"
	app.Flags = GetFlags()

	app.Action = func(c *cli.Context) error {
		var err error
		err = ValidateFlags(c)
		if err != nil {
			fmt.Println(err)
			cli.ShowAppHelpAndExit(c, 2)
		}

		inputFile := c.String("input-file")
		fp, err := os.Open(inputFile)
		if err != nil {
			return err
		}
		defer fp.Close()
		in := bufio.NewScanner(fp)

		graph := bvsls.NewGraph()
		err = bvsls.ParseProblem(in, graph)
		if err != nil {
			return err
		}
		if c.BoolT("verbosity") {
			printProblemStatistics(graph)
		}

		var cancelled atomic.Bool
		setTimeOut(&cancelled, c.Int("time-limit"))
		setInterupt(&cancelled)

		config := bvsls.Config{
			MaxMovesPerPass: c.Int("max-moves"),
			MaxRestarts:     c.Int("max-restarts"),
			RandomSeed:      c.Int64("seed"),
		}
		engine := bvsls.NewEngine(graph, config, cancelled.Load)
		if c.BoolT("verbosity") {
			engine.TraceWriter = os.Stdout
		}
		engine.Init()

		rng := rand.New(rand.NewSource(config.RandomSeed))
		engine.InitValuation(func(bvsls.TermID, int) bool {
			return rng.Intn(2) == 0
		})

		result := engine.Run()

		if c.BoolT("verbosity") {
			printStatistics(engine.Statistics)
		}
		if c.Bool("debug") {
			pp.Println(engine.Statistics)
			engine.WriteState(os.Stdout)
		}
		if result == bvsls.ResultSuccess {
			fmt.Println("\ns SATISFIABLE")
			printModel(graph, engine.Model())
		} else {
			fmt.Println("\ns UNKNOWN")
		}
		return nil
	}

	err := app.Run(os.Args)
	if err != nil {
		log.Fatal(err)
	}
}
