package app

import (
	"log/slog"
	"math/rand"
	"sync"
	"time"
)

// BotConfig controls how long simulated players take to act
type BotConfig struct {
	AnswerDelayMin time.Duration
	AnswerDelayMax time.Duration
	PickDelayMin   time.Duration
	PickDelayMax   time.Duration
}

// botTask is one pending action of one simulated player
type botTask struct {
	playerName string
	timer      *time.Timer
}

// Coordinator schedules simulated player actions as cancelable tasks grouped by room.
// A task never mutates a room directly; it calls back into the session, which re-checks
// the round before acting.
type Coordinator struct {
	cfg    BotConfig
	logger *slog.Logger

	mu    sync.Mutex
	tasks map[string]map[*botTask]struct{} // roomCode -> pending tasks
}

// NewCoordinator creates a coordinator
func NewCoordinator(cfg BotConfig, logger *slog.Logger) *Coordinator {
	return &Coordinator{
		cfg:    cfg,
		logger: logger,
		tasks:  make(map[string]map[*botTask]struct{}),
	}
}

// ScheduleAnswers queues one answer per simulated player for the given round phase
func (c *Coordinator) ScheduleAnswers(s *GameSession, roundNumber, phase int, names []string) {
	for _, name := range names {
		delay := randomDelay(c.cfg.AnswerDelayMin, c.cfg.AnswerDelayMax)
		c.schedule(s.RoomCode(), name, delay, func() {
			s.botAnswer(name, roundNumber, phase)
		})
	}
}

// SchedulePicks queues one pick per simulated player for the given selecting phase
func (c *Coordinator) SchedulePicks(s *GameSession, roundNumber, phase int, names []string) {
	for _, name := range names {
		delay := randomDelay(c.cfg.PickDelayMin, c.cfg.PickDelayMax)
		c.schedule(s.RoomCode(), name, delay, func() {
			s.botPick(name, roundNumber, phase)
		})
	}
}

// CancelRoom drops every pending task of the room
func (c *Coordinator) CancelRoom(roomCode string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	tasks, ok := c.tasks[roomCode]
	if !ok {
		return
	}
	for task := range tasks {
		task.timer.Stop()
	}
	delete(c.tasks, roomCode)

	c.logger.Debug("bot tasks cancelled", "roomCode", roomCode, "count", len(tasks))
}

// Pending returns the number of tasks still waiting for the room
func (c *Coordinator) Pending(roomCode string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.tasks[roomCode])
}

func (c *Coordinator) schedule(roomCode, playerName string, delay time.Duration, fire func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	task := &botTask{playerName: playerName}
	task.timer = time.AfterFunc(delay, func() {
		// A task removed by CancelRoom may still fire if Stop lost the race
		if c.take(roomCode, task) {
			fire()
		}
	})

	if c.tasks[roomCode] == nil {
		c.tasks[roomCode] = make(map[*botTask]struct{})
	}
	c.tasks[roomCode][task] = struct{}{}
}

// take removes the task and reports whether it was still pending
func (c *Coordinator) take(roomCode string, task *botTask) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	tasks, ok := c.tasks[roomCode]
	if !ok {
		return false
	}
	if _, pending := tasks[task]; !pending {
		return false
	}
	delete(tasks, task)
	if len(tasks) == 0 {
		delete(c.tasks, roomCode)
	}
	return true
}

func randomDelay(lo, hi time.Duration) time.Duration {
	if hi <= lo {
		return lo
	}
	return lo + time.Duration(rand.Int63n(int64(hi-lo)+1))
}
