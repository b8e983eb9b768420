package game

import (
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/m16khb/liar-game-sub001/internal"
	"github.com/m16khb/liar-game-sub001/internal/utils"
)

// =============================================================================
// ROOM REGISTRY
// =============================================================================

// EventSink receives room lifecycle events for write-behind persistence. The
// registry never blocks on it; implementations must return immediately.
type EventSink interface {
	RoomCreated(code, title string, at time.Time)
	RoundResult(code string, outcome internal.RoundOutcome, startedAt, endedAt time.Time)
	RoomClosed(code, reason string, at time.Time)
}

// Config carries the game parameters shared by every room of a registry.
type Config struct {
	MinPlayers int
	MaxPlayers int

	DiscussionDuration time.Duration
	TurnDuration       time.Duration
	RediscussDuration  time.Duration
	VotingDuration     time.Duration
	GuessDuration      time.Duration
	ResultDisplay      time.Duration

	ReconnectGrace time.Duration
	EmptyRoomGrace time.Duration

	QueueSize      int
	EnqueueTimeout time.Duration

	TiePolicy internal.TiePolicy

	// RandSeed seeds the process-wide role assignment source; 0 means
	// time-based.
	RandSeed int64

	// RevokeTicket, when set, is called with the session ticket of every
	// player who permanently departs, so stale tickets cannot resume a seat.
	// Invoked on its own goroutine; it may block on the session backend.
	RevokeTicket func(ticketID string)

	// Topics supplies the (category, keyword) pair for a round. Replaceable
	// so an external topic service can be plugged in.
	Topics func() (category, keyword string)
}

func (c Config) withDefaults() Config {
	if c.MinPlayers <= 0 {
		c.MinPlayers = internal.DefaultMinPlayers
	}
	if c.MaxPlayers <= 0 {
		c.MaxPlayers = internal.DefaultMaxPlayers
	}
	if c.DiscussionDuration <= 0 {
		c.DiscussionDuration = 120 * time.Second
	}
	if c.TurnDuration <= 0 {
		c.TurnDuration = 30 * time.Second
	}
	if c.RediscussDuration <= 0 {
		c.RediscussDuration = 30 * time.Second
	}
	if c.VotingDuration <= 0 {
		c.VotingDuration = 45 * time.Second
	}
	if c.GuessDuration <= 0 {
		c.GuessDuration = 30 * time.Second
	}
	if c.ResultDisplay <= 0 {
		c.ResultDisplay = 10 * time.Second
	}
	if c.ReconnectGrace <= 0 {
		c.ReconnectGrace = 30 * time.Second
	}
	if c.EmptyRoomGrace <= 0 {
		c.EmptyRoomGrace = 30 * time.Second
	}
	if c.QueueSize <= 0 {
		c.QueueSize = 64
	}
	if c.EnqueueTimeout <= 0 {
		c.EnqueueTimeout = 2 * time.Second
	}
	if c.TiePolicy == "" {
		c.TiePolicy = internal.TieRediscuss
	}
	if c.Topics == nil {
		c.Topics = utils.RandomTopic
	}
	return c
}

// Registry is the process-wide directory mapping room code -> room actor.
// Only the map itself is behind the mutex; room state never is, so rooms do
// not contend with each other.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]*Actor

	cfg  Config
	log  *zap.Logger
	sink EventSink

	rngMu sync.Mutex
	rng   *rand.Rand
}

func NewRegistry(cfg Config, logger *zap.Logger, sink EventSink) *Registry {
	cfg = cfg.withDefaults()
	seed := cfg.RandSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Registry{
		rooms: make(map[string]*Actor),
		cfg:   cfg,
		log:   logger,
		sink:  sink,
		rng:   rand.New(rand.NewSource(seed)),
	}
}

// GetOrCreate returns the actor for the code, creating and starting one if
// absent. Concurrent callers always receive the same handle. Malformed codes
// must be rejected before calling this.
func (g *Registry) GetOrCreate(code string) *Actor {
	g.mu.RLock()
	actor, ok := g.rooms[code]
	g.mu.RUnlock()
	if ok {
		return actor
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if actor, ok = g.rooms[code]; ok {
		return actor
	}
	actor = newActor(code, g)
	g.rooms[code] = actor
	go actor.run()

	g.log.Info("room created", zap.String("room", code))
	if g.sink != nil {
		g.sink.RoomCreated(code, "", time.Now())
	}
	return actor
}

// Get returns the actor for the code without creating one.
func (g *Registry) Get(code string) (*Actor, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	actor, ok := g.rooms[code]
	return actor, ok
}

// Remove drops the mapping for a self-terminating actor. Idempotent, and a
// no-op if the code has since been re-bound to a newer actor.
func (g *Registry) Remove(code string, actor *Actor) {
	g.mu.Lock()
	if current, ok := g.rooms[code]; ok && current == actor {
		delete(g.rooms, code)
	}
	g.mu.Unlock()
}

// JoinableRooms lists public rooms in waiting state with free capacity. Served
// from each actor's last published projection; display-only consistency.
func (g *Registry) JoinableRooms() []internal.RoomInfo {
	g.mu.RLock()
	actors := make([]*Actor, 0, len(g.rooms))
	for _, a := range g.rooms {
		actors = append(actors, a)
	}
	g.mu.RUnlock()

	infos := make([]internal.RoomInfo, 0, len(actors))
	for _, a := range actors {
		info := a.Info()
		if info.Visibility != internal.VisibilityPublic {
			continue
		}
		if info.Status != internal.StatusWaiting {
			continue
		}
		if info.MemberCount == 0 || info.MemberCount >= info.MaxPlayers {
			continue
		}
		infos = append(infos, info)
	}
	return infos
}

// Close terminates every actor; used on server shutdown.
func (g *Registry) Close() {
	g.mu.Lock()
	actors := make([]*Actor, 0, len(g.rooms))
	for _, a := range g.rooms {
		actors = append(actors, a)
	}
	g.rooms = make(map[string]*Actor)
	g.mu.Unlock()

	for _, a := range actors {
		a.Terminate("server_shutdown")
	}
}

func (g *Registry) intn(n int) int {
	g.rngMu.Lock()
	defer g.rngMu.Unlock()
	return g.rng.Intn(n)
}
