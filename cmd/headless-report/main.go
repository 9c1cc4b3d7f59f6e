package main

import (
	"errors"
	"flag"
	"fmt"
	"math/rand"
	"os"

	log "github.com/sirupsen/logrus"

	"github.com/Nigel-Baldwen/Ascension/internal/grid"
	"github.com/Nigel-Baldwen/Ascension/internal/pathfind"
	"github.com/Nigel-Baldwen/Ascension/internal/resolve"
	"github.com/Nigel-Baldwen/Ascension/internal/world"
)

type runStats struct {
	runIndex int
	seed     int64

	requests   int
	accepted   int
	notFound   int
	invalid    int
	moves      int
	conflicts  int
	replanned  int
	discarded  int
	deferred   int
	maxPasses  int
	units      int
	finalRound int
}

func main() {
	var runs, rounds, size, players, units int
	var seedBase, seedStep int64
	var mapName, policy string

	flag.IntVar(&runs, "runs", 5, "number of headless matches")
	flag.IntVar(&rounds, "rounds", 20, "rounds per match")
	flag.Int64Var(&seedBase, "seed-base", 42, "base RNG seed for run 1")
	flag.Int64Var(&seedStep, "seed-step", 1, "seed increment between runs")
	flag.IntVar(&size, "size", 50, "map size")
	flag.IntVar(&players, "players", 4, "number of players")
	flag.IntVar(&units, "units", 6, "starting units per player")
	flag.StringVar(&mapName, "map", world.MapGenerated, "map preset")
	flag.StringVar(&policy, "reattempt", string(resolve.Hold), "conflict loser policy (hold|replan)")
	flag.Parse()

	log.SetLevel(log.WarnLevel)

	if runs <= 0 || rounds <= 0 {
		fmt.Println("error: -runs and -rounds must be > 0")
		os.Exit(2)
	}
	p, err := resolve.ParsePolicy(policy)
	if err != nil {
		fmt.Println("error:", err)
		os.Exit(2)
	}

	fmt.Printf("=== Headless Match Report ===\n")
	fmt.Printf("map=%s size=%d players=%d units=%d runs=%d rounds=%d reattempt=%s seed_base=%d seed_step=%d\n\n",
		mapName, size, players, units, runs, rounds, p, seedBase, seedStep)

	all := make([]runStats, 0, runs)
	for i := 0; i < runs; i++ {
		seed := seedBase + int64(i)*seedStep
		opts := world.Options{Size: size, Players: players, Seed: seed, Policy: p, StartingUnits: units}
		stats, err := runMatch(i+1, opts, mapName, rounds)
		if err != nil {
			fmt.Printf("run %d (seed %d) failed: %v\n", i+1, seed, err)
			os.Exit(1)
		}
		all = append(all, stats)
		printRun(stats)
	}
	printAggregate(all)
}

// runMatch plays rounds where every unit wanders toward a random cell within its speed.
func runMatch(index int, opts world.Options, mapName string, rounds int) (runStats, error) {
	rs := runStats{runIndex: index, seed: opts.Seed}
	w := world.New(opts)
	if err := w.InitMap(mapName); err != nil {
		return rs, err
	}
	rng := rand.New(rand.NewSource(opts.Seed))
	before := totalUnits(w)

	for round := 0; round < rounds; round++ {
		for range w.Players() {
			player := w.ActivePlayer()
			units, err := w.Units(player)
			if err != nil {
				return rs, err
			}
			size := w.Size()
			for _, u := range units {
				speed := u.MovementSpeed()
				loc := u.Location()
				dest := grid.Cell{
					Row: clamp(loc.Row+rng.Intn(2*speed+1)-speed, size),
					Col: clamp(loc.Col+rng.Intn(2*speed+1)-speed, size),
				}
				rs.requests++
				switch err := w.RequestMove(player, u.ID, dest); {
				case err == nil:
					rs.accepted++
				case errors.Is(err, pathfind.ErrNotFound):
					rs.notFound++
				case errors.Is(err, world.ErrInvalidTarget):
					rs.invalid++
				default:
					return rs, err
				}
			}
			n, err := w.EndRound(player)
			if err != nil {
				return rs, err
			}
			if n.Report != nil {
				rs.add(*n.Report)
			}
		}
	}

	rs.units = totalUnits(w)
	if rs.units != before {
		return rs, fmt.Errorf("unit count drifted from %d to %d", before, rs.units)
	}
	rs.finalRound = w.Round()
	return rs, nil
}

func (rs *runStats) add(rep resolve.Report) {
	rs.moves += len(rep.Moves)
	rs.conflicts += len(rep.Conflicts)
	rs.replanned += len(rep.Replanned)
	rs.discarded += len(rep.Discarded)
	rs.deferred += len(rep.Deferred)
	rs.maxPasses = max(rs.maxPasses, rep.Passes)
}

func totalUnits(w *world.World) int {
	n := 0
	for _, c := range w.Stats().Units {
		n += c
	}
	return n
}

func clamp(v, size int) int {
	return min(max(v, 0), size-1)
}

func acceptRate(rs runStats) float64 {
	if rs.requests == 0 {
		return 0
	}
	return float64(rs.accepted) / float64(rs.requests)
}

func printRun(rs runStats) {
	fmt.Printf("run %d seed=%d round=%d units=%d\n", rs.runIndex, rs.seed, rs.finalRound, rs.units)
	fmt.Printf("  requests=%d accepted=%d (%.1f%%) not_found=%d invalid=%d\n",
		rs.requests, rs.accepted, 100*acceptRate(rs), rs.notFound, rs.invalid)
	fmt.Printf("  moves=%d conflicts=%d replanned=%d discarded=%d deferred=%d max_passes=%d\n\n",
		rs.moves, rs.conflicts, rs.replanned, rs.discarded, rs.deferred, rs.maxPasses)
}

func printAggregate(all []runStats) {
	var total runStats
	for _, rs := range all {
		total.requests += rs.requests
		total.accepted += rs.accepted
		total.moves += rs.moves
		total.conflicts += rs.conflicts
		total.deferred += rs.deferred
		total.maxPasses = max(total.maxPasses, rs.maxPasses)
	}
	fmt.Printf("=== Aggregate ===\n")
	fmt.Printf("accept_rate=%.1f%% moves=%d conflicts=%d deferred=%d max_passes=%d\n",
		100*acceptRate(total), total.moves, total.conflicts, total.deferred, total.maxPasses)
}
