package world

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/Nigel-Baldwen/Ascension/internal/unit"
	"github.com/Nigel-Baldwen/Ascension/internal/vision"
)

// timerSteps is how many ticks a round timer takes; clients render it as progress.
const timerSteps = 10

type registration struct {
	conn   *websocket.Conn
	player unit.PlayerID
}

type Broadcaster struct {
	world        *World
	clients      map[*websocket.Conn]unit.PlayerID
	register     chan registration
	unregister   chan *websocket.Conn
	roundTicker  *time.Ticker // Dynamic for speed changes
	updateChan   chan struct{}
	done         chan struct{}
	mu           sync.RWMutex
	currentSpeed float64
	paused       bool
	roundLength  time.Duration // at 1x
	progress     int
	WriteMu      map[*websocket.Conn]*sync.Mutex // Per-conn write locks
}

type visibilityMessage struct {
	Type   string           `json:"type"`
	Player unit.PlayerID    `json:"player"`
	Round  int              `json:"round"`
	Cells  [][]vision.State `json:"cells"`
}

type rotationMessage struct {
	Type string `json:"type"`
	Notification
}

type statsMessage struct {
	Type     string  `json:"type"`
	Speed    float64 `json:"speed"`
	Paused   bool    `json:"paused"`
	Progress int     `json:"progress"`
	Stats
}

func NewBroadcaster(w *World, roundLength time.Duration) *Broadcaster {
	b := &Broadcaster{
		world:        w,
		clients:      make(map[*websocket.Conn]unit.PlayerID),
		register:     make(chan registration),
		unregister:   make(chan *websocket.Conn),
		updateChan:   make(chan struct{}, 1),
		done:         make(chan struct{}),
		currentSpeed: 1.0,
		roundLength:  roundLength,
		WriteMu:      make(map[*websocket.Conn]*sync.Mutex),
	}
	b.resetRoundTicker()
	return b
}

// tickInterval returns the timer step for the current speed along with that speed.
func (b *Broadcaster) tickInterval() (time.Duration, float64) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	interval := time.Duration(float64(b.roundLength) / timerSteps / b.currentSpeed)
	if interval < 10*time.Millisecond {
		interval = 10 * time.Millisecond
	} else if interval > time.Minute {
		interval = time.Minute
	}
	return interval, b.currentSpeed
}

func (b *Broadcaster) resetRoundTicker() {
	if b.roundTicker != nil {
		b.roundTicker.Stop()
	}
	interval, speed := b.tickInterval()
	b.roundTicker = time.NewTicker(interval)
	log.Printf("Round ticker reset to %v (speed: %.2fx)", interval, speed)
}

func (b *Broadcaster) Run() {
	broadcastTicker := time.NewTicker(time.Second)
	defer func() {
		broadcastTicker.Stop()
		if b.roundTicker != nil {
			b.roundTicker.Stop()
		}
	}()

	for {
		select {
		case reg := <-b.register:
			b.mu.Lock()
			b.clients[reg.conn] = reg.player
			b.WriteMu[reg.conn] = &sync.Mutex{}
			b.mu.Unlock()

			b.sendVisibilityTo(reg.conn, reg.player)
			b.sendStatsTo(reg.conn)

		case conn := <-b.unregister:
			b.mu.Lock()
			if _, ok := b.clients[conn]; ok {
				delete(b.clients, conn)
				delete(b.WriteMu, conn)
				conn.Close()
			}
			b.mu.Unlock()

		case <-broadcastTicker.C:
			b.BroadcastVisibility()

		case <-b.roundTicker.C:
			b.advance()

		case <-b.updateChan:
			b.resetRoundTicker()

		case <-b.done:
			return
		}
	}
}

// Stop ends Run.
func (b *Broadcaster) Stop() {
	close(b.done)
}

// advance moves the round timer one step; the last step force-ends the active turn.
func (b *Broadcaster) advance() {
	b.mu.Lock()
	if b.paused {
		b.mu.Unlock()
		return
	}
	b.progress++
	expired := b.progress >= timerSteps
	if expired {
		b.progress = 0
	}
	b.mu.Unlock()

	if !expired {
		b.BroadcastStats()
		return
	}
	n, err := b.world.ForceEndTurn()
	if err != nil {
		log.Errorf("round timer could not end the turn: %v", err)
		return
	}
	b.Rotated(n)
}

// Rotated pushes a turn change and the views it produced, and restarts the round timer.
func (b *Broadcaster) Rotated(n Notification) {
	b.mu.Lock()
	b.progress = 0
	b.mu.Unlock()
	b.broadcast(rotationMessage{Type: "rotation", Notification: n})
	b.BroadcastVisibility()
	b.BroadcastStats()
}

func (b *Broadcaster) Register(conn *websocket.Conn, player unit.PlayerID) {
	select {
	case b.register <- registration{conn: conn, player: player}:
	case <-b.done:
		conn.Close()
	}
}

func (b *Broadcaster) Unregister(conn *websocket.Conn) {
	select {
	case b.unregister <- conn:
	case <-b.done:
		conn.Close()
	}
}

// Set speed and reset ticker
func (b *Broadcaster) SetSpeed(speed float64) {
	b.mu.Lock()
	b.currentSpeed = speed
	b.mu.Unlock()

	select {
	case b.updateChan <- struct{}{}:

	default:
		// Already pending, skip
	}

	b.BroadcastStats()
}

func (b *Broadcaster) TogglePause() {
	b.mu.Lock()
	b.paused = !b.paused
	b.mu.Unlock()
	b.BroadcastStats()
}

func (b *Broadcaster) stats() statsMessage {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return statsMessage{
		Type:     "stats",
		Speed:    b.currentSpeed,
		Paused:   b.paused,
		Progress: b.progress,
		Stats:    b.world.Stats(),
	}
}

func (b *Broadcaster) sendStatsTo(conn *websocket.Conn) {
	if err := b.Send(conn, b.stats()); err != nil {
		log.Println("Stats send error:", err)
	}
}

func (b *Broadcaster) BroadcastStats() {
	b.broadcast(b.stats())
}

func (b *Broadcaster) sendVisibilityTo(conn *websocket.Conn, player unit.PlayerID) {
	cells, err := b.world.Visibility(player)
	if err != nil {
		log.Println("Visibility error:", err)
		return
	}
	msg := visibilityMessage{Type: "visibility", Player: player, Round: b.world.Round(), Cells: cells}
	if err := b.Send(conn, msg); err != nil {
		log.Println("Visibility send error:", err)
	}
}

// BroadcastVisibility sends each client the view of the player it joined as.
func (b *Broadcaster) BroadcastVisibility() {
	b.mu.RLock()
	targets := make(map[*websocket.Conn]unit.PlayerID, len(b.clients))
	for conn, p := range b.clients {
		targets[conn] = p
	}
	b.mu.RUnlock()

	for conn, p := range targets {
		b.sendVisibilityTo(conn, p)
	}
}

// Send writes one JSON message under the connection's write lock.
func (b *Broadcaster) Send(conn *websocket.Conn, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	b.mu.RLock()
	mu, ok := b.WriteMu[conn]
	b.mu.RUnlock()
	if !ok {
		return nil
	}
	mu.Lock()
	defer mu.Unlock()
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		// Defer cleanup to unregister channel
		go b.Unregister(conn)
		return err
	}
	return nil
}

func (b *Broadcaster) broadcast(v any) {
	b.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(b.clients))
	for conn := range b.clients {
		conns = append(conns, conn)
	}
	b.mu.RUnlock()

	for _, conn := range conns {
		if err := b.Send(conn, v); err != nil {
			log.Println("Broadcast error:", err)
		}
	}
}

// Progress reports how many timer steps of the current turn have elapsed.
func (b *Broadcaster) Progress() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.progress
}
