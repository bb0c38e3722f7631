package app

import (
	"crypto/rand"
	"errors"
	"math/big"
	mrand "math/rand"
	"sync"
)

const (
	// RoomCodeLength is the length of every room code
	RoomCodeLength = 4

	// RoomCodeChars are the letters used when the word list is exhausted
	RoomCodeChars = "abcdefghijklmnopqrstuvwxyz"

	maxRandomCodeAttempts = 100
)

// ErrNoRoomCode is returned when no unused code could be found
var ErrNoRoomCode = errors.New("failed to generate unique room code")

// CodeGenerator hands out unique room codes
type CodeGenerator interface {
	Generate() (string, error)
	Release(code string)
}

// WordCodeGenerator prefers unused words from RoomCodeWords and falls back to random letters
type WordCodeGenerator struct {
	mu    sync.Mutex
	words []string
	used  map[string]bool
}

// NewWordCodeGenerator creates a generator over the given words.
// Words that are not exactly RoomCodeLength letters are ignored.
func NewWordCodeGenerator(words []string) *WordCodeGenerator {
	valid := make([]string, 0, len(words))
	for _, w := range words {
		if len(w) == RoomCodeLength {
			valid = append(valid, w)
		}
	}
	return &WordCodeGenerator{
		words: valid,
		used:  make(map[string]bool),
	}
}

// Generate returns a code that is not currently in use
func (g *WordCodeGenerator) Generate() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	free := make([]string, 0, len(g.words))
	for _, w := range g.words {
		if !g.used[w] {
			free = append(free, w)
		}
	}
	if len(free) > 0 {
		code := free[mrand.Intn(len(free))]
		g.used[code] = true
		return code, nil
	}

	for attempts := 0; attempts < maxRandomCodeAttempts; attempts++ {
		code := randomCode()
		if !g.used[code] {
			g.used[code] = true
			return code, nil
		}
	}

	return "", ErrNoRoomCode
}

// Release makes a code available again
func (g *WordCodeGenerator) Release(code string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.used, code)
}

// InUse reports whether code is currently handed out
func (g *WordCodeGenerator) InUse(code string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.used[code]
}

func randomCode() string {
	code := make([]byte, RoomCodeLength)
	for i := range code {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(RoomCodeChars))))
		if err != nil {
			code[i] = RoomCodeChars[mrand.Intn(len(RoomCodeChars))]
			continue
		}
		code[i] = RoomCodeChars[n.Int64()]
	}
	return string(code)
}
