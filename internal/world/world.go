package world

import (
	"errors"
	"fmt"
	"math/rand"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/Nigel-Baldwen/Ascension/internal/activity"
	"github.com/Nigel-Baldwen/Ascension/internal/config"
	"github.com/Nigel-Baldwen/Ascension/internal/grid"
	"github.com/Nigel-Baldwen/Ascension/internal/pathfind"
	"github.com/Nigel-Baldwen/Ascension/internal/resolve"
	"github.com/Nigel-Baldwen/Ascension/internal/unit"
	"github.com/Nigel-Baldwen/Ascension/internal/vision"
)

var (
	ErrInvalidTarget = errors.New("invalid move target")
	ErrNotYourTurn   = errors.New("not this player's turn")
	ErrUnknownPlayer = errors.New("unknown player")
	ErrUnknownUnit   = errors.New("unknown unit")
)

type Options struct {
	Size          int
	Players       int
	Seed          int64 // 0 picks a time based seed
	Policy        resolve.Policy
	StartingUnits int
	Logger        *log.Entry
}

func OptionsFrom(cfg config.Config) Options {
	return Options{
		Size:          cfg.GridSize,
		Players:       cfg.Players,
		Seed:          cfg.Seed,
		Policy:        cfg.Policy(),
		StartingUnits: cfg.StartingUnits,
	}
}

// World is one match: the master terrain, every player's copy and view, all units and their
// queued plans. Mu guards all of it.
type World struct {
	Mu sync.RWMutex

	id       uuid.UUID
	opts     Options
	seed     int64
	rng      *rand.Rand
	mapName  string
	terrain  *grid.Map
	copies   map[unit.PlayerID]*grid.Map
	regs     unit.Registries
	ledger   *activity.Ledger
	views    vision.Grids
	finders  map[unit.PlayerID]*pathfind.Finder
	resolver *resolve.Resolver
	active   unit.PlayerID
	round    int
	last     *resolve.Report
	log      *log.Entry
}

// Notification tells controllers whose turn it is. Report is set when the turn change closed
// a round.
type Notification struct {
	Message         string          `json:"message"`
	NewActivePlayer unit.PlayerID   `json:"newActivePlayer"`
	Round           int             `json:"round"`
	Report          *resolve.Report `json:"report,omitempty"`
}

// Stats is the lightweight match summary pushed to every client.
type Stats struct {
	Match        uuid.UUID             `json:"match"`
	Map          string                `json:"map"`
	Size         int                   `json:"size"`
	Round        int                   `json:"round"`
	ActivePlayer unit.PlayerID         `json:"activePlayer"`
	Units        map[unit.PlayerID]int `json:"units"`
	Pending      int                   `json:"pending"`
}

func New(opts Options) *World {
	if opts.Players < 1 {
		opts.Players = 1
	}
	if grid.CheckSize(opts.Size) != nil {
		opts.Size = config.Default().GridSize
	}
	if opts.Policy == "" {
		opts.Policy = resolve.Hold
	}
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}
	w := &World{opts: opts, seed: seed, rng: rand.New(rand.NewSource(seed)), log: logger}
	m, _ := grid.NewMap(opts.Size)
	w.load("empty", m)
	return w
}

// load swaps in a new master terrain and resets every per-match structure. Caller holds Mu.
func (w *World) load(name string, m *grid.Map) {
	w.mapName = name
	w.terrain = m
	w.copies = make(map[unit.PlayerID]*grid.Map)
	w.finders = make(map[unit.PlayerID]*pathfind.Finder)
	w.views = make(vision.Grids)
	for _, p := range w.players() {
		w.copies[p] = m.Copy()
		w.finders[p] = pathfind.New(w.copies[p])
		w.views[p] = vision.NewGrid(p, w.copies[p])
	}
	w.reset()
}

// reset clears units and plans but keeps the terrain. Caller holds Mu.
func (w *World) reset() {
	w.id = uuid.New()
	w.regs = make(unit.Registries)
	for _, p := range w.players() {
		w.regs[p] = unit.NewRegistry(p, w.terrain.Size())
	}
	w.ledger = activity.NewLedger()
	w.resolver = resolve.New(rand.New(rand.NewSource(w.seed)), w.opts.Policy, w.log.WithField("match", w.id))
	w.active = 1
	w.round = 1
	w.last = nil
	w.refreshVision()
}

func (w *World) players() []unit.PlayerID {
	ids := make([]unit.PlayerID, w.opts.Players)
	for i := range ids {
		ids[i] = unit.PlayerID(i + 1)
	}
	return ids
}

func (w *World) Reset() {
	w.Mu.Lock()
	defer w.Mu.Unlock()
	w.reset()
	w.log.WithField("match", w.id).Info("match reset")
}

func (w *World) ID() uuid.UUID {
	w.Mu.RLock()
	defer w.Mu.RUnlock()
	return w.id
}

func (w *World) ActivePlayer() unit.PlayerID {
	w.Mu.RLock()
	defer w.Mu.RUnlock()
	return w.active
}

func (w *World) Round() int {
	w.Mu.RLock()
	defer w.Mu.RUnlock()
	return w.round
}

func (w *World) Size() int {
	w.Mu.RLock()
	defer w.Mu.RUnlock()
	return w.terrain.Size()
}

func (w *World) Players() []unit.PlayerID {
	w.Mu.RLock()
	defer w.Mu.RUnlock()
	return w.players()
}

func (w *World) LastReport() *resolve.Report {
	w.Mu.RLock()
	defer w.Mu.RUnlock()
	return w.last
}

func (w *World) Stats() Stats {
	w.Mu.RLock()
	defer w.Mu.RUnlock()
	s := Stats{
		Match:        w.id,
		Map:          w.mapName,
		Size:         w.terrain.Size(),
		Round:        w.round,
		ActivePlayer: w.active,
		Units:        make(map[unit.PlayerID]int),
		Pending:      w.ledger.Total(),
	}
	for p, r := range w.regs {
		s.Units[p] = r.Len()
	}
	return s
}

// Units lists a player's units in board order.
func (w *World) Units(player unit.PlayerID) ([]*unit.Unit, error) {
	w.Mu.RLock()
	defer w.Mu.RUnlock()
	reg, ok := w.regs[player]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownPlayer, player)
	}
	var units []*unit.Unit
	reg.Each(func(_ grid.Cell, us []*unit.Unit) {
		units = append(units, us...)
	})
	return units, nil
}

// SpawnUnit places a new ground unit for player on an empty passable cell.
func (w *World) SpawnUnit(player unit.PlayerID, t unit.Type, c grid.Cell) (*unit.Unit, error) {
	w.Mu.Lock()
	defer w.Mu.Unlock()
	u, err := w.spawn(player, t, c)
	if err != nil {
		return nil, err
	}
	w.refreshVision()
	return u, nil
}

func (w *World) spawn(player unit.PlayerID, t unit.Type, c grid.Cell) (*unit.Unit, error) {
	reg, ok := w.regs[player]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownPlayer, player)
	}
	tr, err := w.terrain.At(c)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidTarget, err)
	}
	u := unit.New(t, player)
	if !tr.PassableBy(u.Locomotion) {
		return nil, fmt.Errorf("%w: %s is not passable", ErrInvalidTarget, c)
	}
	if w.occupied(c) {
		return nil, fmt.Errorf("%w: %s is occupied", ErrInvalidTarget, c)
	}
	if err := reg.Insert(u, c); err != nil {
		return nil, err
	}
	return u, nil
}

func (w *World) occupied(c grid.Cell) bool {
	for _, r := range w.regs {
		if r.Occupied(c) {
			return true
		}
	}
	return false
}

// RequestMove plans a move for one of the active player's units. The path starts where the
// unit's current plan ends, is searched against the player's own terrain copy and is appended
// to the plan.
func (w *World) RequestMove(player unit.PlayerID, id uuid.UUID, dest grid.Cell) error {
	w.Mu.Lock()
	defer w.Mu.Unlock()

	u, err := w.ownUnit(player, id)
	if err != nil {
		return err
	}
	tr, err := w.copies[player].At(dest)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidTarget, err)
	}
	if !tr.PassableBy(u.Locomotion) {
		return fmt.Errorf("%w: %s is not passable for %s units", ErrInvalidTarget, dest, u.Locomotion)
	}

	list := w.ledger.List(id)
	origin := u.Location()
	if last, ok := list.Last(); ok {
		origin = last.To()
	}
	path, err := w.finders[player].FindPath(origin, dest, u.MovementSpeed(), u.Locomotion)
	if err != nil {
		return fmt.Errorf("planning %s to %s: %w", u, dest, err)
	}

	view := w.views[player]
	view.Unoverlay(u.Type, list)
	err = activity.GenerateMoveActivities(u, path, list)
	view.Overlay(u.Type, list)
	if err != nil {
		return err
	}
	w.log.WithFields(log.Fields{"match": w.id, "player": player}).Debugf("%s planned %d steps to %s", u, len(path), dest)
	return nil
}

// CancelOrders drops every pending activity of the unit.
func (w *World) CancelOrders(player unit.PlayerID, id uuid.UUID) error {
	w.Mu.Lock()
	defer w.Mu.Unlock()

	u, err := w.ownUnit(player, id)
	if err != nil {
		return err
	}
	list, ok := w.ledger.Pending(id)
	if !ok {
		return nil
	}
	w.views[player].Unoverlay(u.Type, list)
	w.ledger.Remove(id)
	return nil
}

func (w *World) ownUnit(player unit.PlayerID, id uuid.UUID) (*unit.Unit, error) {
	reg, ok := w.regs[player]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownPlayer, player)
	}
	if player != w.active {
		return nil, fmt.Errorf("%w: %s is active", ErrNotYourTurn, w.active)
	}
	u, ok := reg.Find(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s for %s", ErrUnknownUnit, id, player)
	}
	return u, nil
}

// EndRound ends player's turn. Once the last player ends, every queued activity resolves.
func (w *World) EndRound(player unit.PlayerID) (Notification, error) {
	w.Mu.Lock()
	defer w.Mu.Unlock()
	if _, ok := w.regs[player]; !ok {
		return Notification{}, fmt.Errorf("%w: %d", ErrUnknownPlayer, player)
	}
	if player != w.active {
		return Notification{}, fmt.Errorf("%w: %s is active", ErrNotYourTurn, w.active)
	}
	return w.rotate()
}

// ForceEndTurn ends whichever turn is active. The round timer calls it.
func (w *World) ForceEndTurn() (Notification, error) {
	w.Mu.Lock()
	defer w.Mu.Unlock()
	return w.rotate()
}

func (w *World) rotate() (n Notification, err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("PANIC in rotate: %v\nStack trace:\n%s", r, debug.Stack())
			err = fmt.Errorf("round %d aborted: %v", w.round, r)
		}
	}()

	var report *resolve.Report
	if int(w.active) < w.opts.Players {
		w.active++
	} else {
		rep, err := w.resolver.Resolve(resolve.State{
			Registries: w.regs,
			Ledger:     w.ledger,
			Overlays:   w.views,
			Finders:    w.pathfinders(),
		})
		if err != nil {
			return Notification{}, fmt.Errorf("resolving round %d: %w", w.round, err)
		}
		w.refreshVision()
		w.last = &rep
		report = &rep
		w.round++
		w.active = 1
	}
	w.log.WithFields(log.Fields{"match": w.id, "round": w.round}).Infof("Switching to Player: %s", w.active)
	return Notification{
		Message:         fmt.Sprintf("Switching to Player: %s", w.active),
		NewActivePlayer: w.active,
		Round:           w.round,
		Report:          report,
	}, nil
}

func (w *World) pathfinders() map[unit.PlayerID]resolve.Pathfinder {
	out := make(map[unit.PlayerID]resolve.Pathfinder, len(w.finders))
	for p, f := range w.finders {
		out[p] = f
	}
	return out
}

// refreshVision rebuilds every view and darkens each player's terrain copy outside sight.
// Caller holds Mu.
func (w *World) refreshVision() {
	vision.Recompute(w.views, w.regs, w.ledger)
	size := w.terrain.Size()
	for p, view := range w.views {
		copyMap := w.copies[p]
		for r := 0; r < size; r++ {
			for c := 0; c < size; c++ {
				cell := grid.Cell{Row: r, Col: c}
				s, _ := view.At(cell)
				_ = copyMap.SetDarkened(cell, !s.InVisionRange)
			}
		}
	}
}

// Visibility returns the player's current view row by row.
func (w *World) Visibility(player unit.PlayerID) ([][]vision.State, error) {
	w.Mu.RLock()
	defer w.Mu.RUnlock()
	view, ok := w.views[player]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownPlayer, player)
	}
	return view.Snapshot(), nil
}

// Terrain returns a copy of the player's terrain, darkened outside sight.
func (w *World) Terrain(player unit.PlayerID) (*grid.Map, error) {
	w.Mu.RLock()
	defer w.Mu.RUnlock()
	m, ok := w.copies[player]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownPlayer, player)
	}
	return m.Copy(), nil
}

// Descriptor describes a cell for the UI: the stat dump of the first unit there, scanning
// players in order, or the terrain name when the cell is empty. Foreign units outside the
// player's vision range are not reported.
func (w *World) Descriptor(player unit.PlayerID, c grid.Cell) (string, error) {
	w.Mu.RLock()
	defer w.Mu.RUnlock()
	m, ok := w.copies[player]
	if !ok {
		return "", fmt.Errorf("%w: %d", ErrUnknownPlayer, player)
	}
	tr, err := m.At(c)
	if err != nil {
		return "", err
	}
	st, err := w.views[player].At(c)
	if err != nil {
		return "", err
	}
	for _, p := range w.regs.Players() {
		if p != player && !st.InVisionRange {
			continue
		}
		if u, ok := w.regs[p].First(c); ok {
			return u.Descriptor(m.Size()), nil
		}
	}
	return tr.Descriptor(), nil
}
