// Command gen is an interactive generator over a saved model file. Each input
// line becomes the generation seed; an empty line generates from a sentence
// start. Seeds longer than the model order are truncated with a note.
package main

import (
	"bufio"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/subculture-collective/chatterchain/config"
	"github.com/subculture-collective/chatterchain/markov"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", slog.Any("err", err))
		os.Exit(1)
	}
	path := cfg.ModelPath
	if len(os.Args) > 1 {
		path = os.Args[1]
	}

	fmt.Printf("Loading model from %s...\n", path)
	f, err := os.Open(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open model: %v\n", err)
		os.Exit(1)
	}
	model, err := markov.LoadAny(f)
	_ = f.Close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load model: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("order=%d metadata=%s\n", model.Order(), model.Metadata())

	rng := rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	sc := bufio.NewScanner(os.Stdin)
	fmt.Print(">> ")
	for sc.Scan() {
		seed := strings.Fields(sc.Text())
		if max := model.Order(); len(seed) > max {
			fmt.Printf("(seed truncated to first %d tokens)\n", max)
			seed = seed[:max]
		}
		out, err := model.Generate(seed, rng)
		if err != nil {
			fmt.Fprintf(os.Stderr, "generate: %v\n", err)
		} else {
			fmt.Println(strings.Join(out, " "))
		}
		fmt.Print(">> ")
	}
}
