package app

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"duoquiz/internal/domain"
)

func newTestRegistry(t *testing.T, cfg RegistryConfig, codes CodeGenerator, store Store) *Registry {
	t.Helper()
	if cfg.CleanupInterval == 0 {
		cfg.CleanupInterval = time.Hour
	}
	r := NewRegistry(cfg, codes, store, testLogger())
	t.Cleanup(r.Close)
	return r
}

func TestRegistryCreateAndLookup(t *testing.T) {
	codes := &fixedCodes{codes: []string{"wolf", "bear"}}
	r := newTestRegistry(t, RegistryConfig{}, codes, nil)

	first, err := r.CreateRoom(context.Background())
	require.NoError(t, err)
	second, err := r.CreateRoom(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "wolf", first.RoomCode())
	assert.Equal(t, "bear", second.RoomCode())

	_, err = r.CreateRoom(context.Background())
	assert.ErrorIs(t, err, ErrNoRoomCode)

	assert.True(t, r.HasRoom("wolf"))
	assert.Equal(t, []string{"bear", "wolf"}, r.GetRoomCodes())
	assert.Equal(t, 2, r.SessionCount())

	games := r.GetAllGames()
	require.Len(t, games, 2)
	assert.Equal(t, "bear", games[0].Code)

	_, err = r.GetSession("nope")
	assert.ErrorIs(t, err, domain.ErrRoomNotFound)
	_, err = r.GetGameState("nope")
	assert.Equal(t, domain.KindNotFound, domain.KindOf(err))

	_, err = first.JoinAsHost("h", "Host")
	require.NoError(t, err)
	_, err = first.Join("p", "Player")
	require.NoError(t, err)
	assert.Equal(t, 2, r.TotalPlayerCount())

	assert.True(t, r.DeleteRoom("wolf", "test"))
	assert.False(t, r.DeleteRoom("wolf", "test"))
	assert.True(t, codes.wasReleased("wolf"))
	assert.False(t, r.HasRoom("wolf"))
}

func TestRegistryCreateRoomPersistenceFailure(t *testing.T) {
	store := new(mockStore)
	store.On("CreateGame", mock.Anything, "wolf").Return(errors.New("db down"))
	store.On("GetRoundCount", mock.Anything, "wolf").Return(0, errors.New("db down"))

	r := newTestRegistry(t, RegistryConfig{}, &fixedCodes{codes: []string{"wolf"}}, store)

	session, err := r.CreateRoom(context.Background())
	assert.ErrorIs(t, err, ErrPersistence)
	require.NotNil(t, session)
	assert.True(t, r.HasRoom("wolf"), "the room stays playable")

	_, err = r.RoundCount(context.Background(), "wolf")
	assert.ErrorIs(t, err, ErrPersistence)
	store.AssertExpectations(t)
}

func TestRegistryRoundCount(t *testing.T) {
	store := new(mockStore)
	store.On("CreateGame", mock.Anything, "wolf").Return(nil)
	store.On("GetRoundCount", mock.Anything, "wolf").Return(3, nil)

	r := newTestRegistry(t, RegistryConfig{}, &fixedCodes{codes: []string{"wolf"}}, store)
	_, err := r.CreateRoom(context.Background())
	require.NoError(t, err)

	count, err := r.RoundCount(context.Background(), "wolf")
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

type pingStore struct {
	NopStore
	err error
}

func (p pingStore) Health(context.Context) error {
	return p.err
}

func TestRegistryStoreHealth(t *testing.T) {
	codes := &fixedCodes{}

	assert.NoError(t, newTestRegistry(t, RegistryConfig{}, codes, nil).StoreHealth(context.Background()))
	assert.NoError(t, newTestRegistry(t, RegistryConfig{}, codes, pingStore{}).StoreHealth(context.Background()))

	err := newTestRegistry(t, RegistryConfig{}, codes, pingStore{err: errors.New("db down")}).StoreHealth(context.Background())
	assert.ErrorIs(t, err, ErrPersistence)
}

func TestHostGracePeriodExpiry(t *testing.T) {
	codes := &fixedCodes{codes: []string{"wolf", "bear"}}
	r := newTestRegistry(t, RegistryConfig{Session: SessionConfig{HostGracePeriod: 20 * time.Millisecond}}, codes, nil)

	t.Run("room is deleted when the host stays away", func(t *testing.T) {
		session, err := r.CreateRoom(context.Background())
		require.NoError(t, err)
		player := newFakeClient("p")
		session.RegisterClient(player)

		_, err = session.JoinAsHost("h", "Host")
		require.NoError(t, err)
		_, err = session.Join("p", "Player")
		require.NoError(t, err)

		session.Disconnect("h")
		assert.Eventually(t, func() bool { return !r.HasRoom("wolf") }, time.Second, 5*time.Millisecond)
		assert.True(t, codes.wasReleased("wolf"))
		assert.True(t, player.received(domain.EventRoomClosed))
		assert.True(t, player.isClosed())
	})

	t.Run("a returning host keeps the room", func(t *testing.T) {
		session, err := r.CreateRoom(context.Background())
		require.NoError(t, err)

		_, err = session.JoinAsHost("h", "Host")
		require.NoError(t, err)
		session.Disconnect("h")
		_, err = session.JoinAsHost("h2", "Host")
		require.NoError(t, err)

		time.Sleep(60 * time.Millisecond)
		assert.True(t, r.HasRoom("bear"))
	})
}

func TestCleanupStaleRooms(t *testing.T) {
	r := newTestRegistry(t, RegistryConfig{StaleRoomTimeout: time.Hour}, &fixedCodes{codes: []string{"wolf", "bear"}}, nil)

	_, err := r.CreateRoom(context.Background())
	require.NoError(t, err)
	busy, err := r.CreateRoom(context.Background())
	require.NoError(t, err)
	_, err = busy.JoinAsHost("h", "Host")
	require.NoError(t, err)

	assert.Zero(t, r.cleanupStaleRooms(time.Now()))
	assert.Equal(t, 1, r.cleanupStaleRooms(time.Now().Add(2*time.Hour)))
	assert.False(t, r.HasRoom("wolf"))
	assert.True(t, r.HasRoom("bear"))
}

func TestWordCodeGenerator(t *testing.T) {
	g := NewWordCodeGenerator([]string{"bear", "cat", "frog", "giraffe"})

	first, err := g.Generate()
	require.NoError(t, err)
	second, err := g.Generate()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"bear", "frog"}, []string{first, second})

	fallback, err := g.Generate()
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^[a-z]{4}$`), fallback)
	assert.NotContains(t, []string{"bear", "frog"}, fallback)
	assert.True(t, g.InUse(fallback))

	g.Release("bear")
	assert.False(t, g.InUse("bear"))
	again, err := g.Generate()
	require.NoError(t, err)
	assert.Equal(t, "bear", again)
}

func TestRoomCodeWords(t *testing.T) {
	seen := make(map[string]bool)
	for _, w := range RoomCodeWords {
		assert.Regexp(t, `^[a-z]{4}$`, w)
		assert.False(t, seen[w], "duplicate word %q", w)
		seen[w] = true
	}
}

func TestGetRandomOption(t *testing.T) {
	assert.Equal(t, "only", GetRandomOption([]string{"only"}))
	assert.Contains(t, BotAnswers, GetRandomOption(nil))
}
