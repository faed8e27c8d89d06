package console

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justinabrahms/hotseatchess/internal/chess"
	"github.com/justinabrahms/hotseatchess/internal/session"
	"github.com/justinabrahms/hotseatchess/internal/store"
)

func init() {
	color.NoColor = true
}

func newTestREPL(t *testing.T) (*REPL, *bytes.Buffer, store.Store) {
	t.Helper()
	st := store.NewMemoryStore()
	logger := zerolog.New(zerolog.NewTestWriter(t))
	mgr := session.NewManager(session.WithStore(st), session.WithLogger(logger))
	t.Cleanup(mgr.Close)
	var out bytes.Buffer
	r := NewREPL(mgr, &out, logger)
	require.NoError(t, r.Start(context.Background()))
	return r, &out, st
}

func TestRenderInitialBoard(t *testing.T) {
	var out bytes.Buffer
	Render(&out, chess.NewMatch().Snapshot(), nil, DefaultTheme)
	lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	require.Len(t, lines, 9)
	assert.Equal(t, "8 ♜ ♞ ♝ ♛ ♚ ♝ ♞ ♜ ", lines[0])
	assert.Equal(t, "1 ♖ ♘ ♗ ♕ ♔ ♗ ♘ ♖ ", lines[7])
	assert.Equal(t, "  a b c d e f g h", lines[8])
}

func TestStatusLine(t *testing.T) {
	m := chess.NewMatch()
	assert.Equal(t, "white 1:00:00  black 1:00:00  white to move", Status(m.Snapshot()))

	for _, mv := range [][2]string{{"f2", "f3"}, {"e7", "e5"}, {"g2", "g4"}, {"d8", "h4"}} {
		from, _ := chess.ParseSquare(mv[0])
		to, _ := chess.ParseSquare(mv[1])
		_, err := m.TryMove(from, to)
		require.NoError(t, err)
	}
	assert.Contains(t, Status(m.Snapshot()), "black wins by checkmate")
}

func TestExecMovesAndHints(t *testing.T) {
	r, out, _ := newTestREPL(t)
	ctx := context.Background()

	_, err := r.Exec(ctx, "hint g1")
	require.NoError(t, err)

	_, err = r.Exec(ctx, "e2e4")
	require.NoError(t, err)
	out.Reset()
	_, err = r.Exec(ctx, "board")
	require.NoError(t, err)
	assert.Contains(t, out.String(), "black to move")

	_, err = r.Exec(ctx, "e2e4")
	assert.ErrorIs(t, err, chess.ErrIllegalMove)

	_, err = r.Exec(ctx, "z9z9")
	assert.Error(t, err)

	_, err = r.Exec(ctx, "dance")
	assert.Error(t, err)

	quit, err := r.Exec(ctx, "quit")
	require.NoError(t, err)
	assert.True(t, quit)
}

func TestExecPromotionInline(t *testing.T) {
	r, out, _ := newTestREPL(t)
	ctx := context.Background()

	state := "v1|____k___P_______" + strings.Repeat("_", 40) + "____K___|w|0|----|3600|3600|play||||"
	_, err := r.Exec(ctx, "restore "+state)
	require.NoError(t, err)

	_, err = r.Exec(ctx, "a7a8k")
	assert.ErrorIs(t, err, chess.ErrInvalidPromotion)
	out.Reset()
	_, err = r.Exec(ctx, "state")
	require.NoError(t, err)
	assert.Equal(t, state+"\n", out.String())

	_, err = r.Exec(ctx, "a7a8n")
	require.NoError(t, err)
	out.Reset()
	_, err = r.Exec(ctx, "state")
	require.NoError(t, err)
	assert.Contains(t, out.String(), "N___k___")
}

func TestExecSaveLoad(t *testing.T) {
	r, out, st := newTestREPL(t)
	ctx := context.Background()
	first := r.MatchID()

	_, err := r.Exec(ctx, "d2d4")
	require.NoError(t, err)
	_, err = r.Exec(ctx, "save my game")
	require.NoError(t, err)
	assert.Contains(t, out.String(), `saved as "my game"`)

	_, err = r.Exec(ctx, "reset")
	require.NoError(t, err)
	_, err = r.Exec(ctx, "load my game")
	require.NoError(t, err)
	assert.NotEqual(t, first, r.MatchID())

	out.Reset()
	_, err = r.Exec(ctx, "saves")
	require.NoError(t, err)
	assert.Contains(t, out.String(), "my game")

	_, err = r.Exec(ctx, "delete my game")
	require.NoError(t, err)
	_, err = r.Exec(ctx, "delete-all")
	require.NoError(t, err)
	recs, err := st.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestStartResumesAutosave(t *testing.T) {
	st := store.NewMemoryStore()
	ctx := context.Background()
	m := chess.NewMatch()
	from, _ := chess.ParseSquare("c2")
	to, _ := chess.ParseSquare("c4")
	_, err := m.TryMove(from, to)
	require.NoError(t, err)
	require.NoError(t, st.Save(ctx, store.Record{Name: store.AutosaveName, State: m.Serialize()}))

	mgr := session.NewManager(session.WithStore(st))
	t.Cleanup(mgr.Close)
	var out bytes.Buffer
	r := NewREPL(mgr, &out, zerolog.Nop())
	require.NoError(t, r.Run(ctx, strings.NewReader("board\nquit\n")))
	assert.Contains(t, out.String(), "resumed the autosaved match")
	assert.Contains(t, out.String(), "black to move")
}

func TestRunStopsAtEOF(t *testing.T) {
	r, out, _ := newTestREPL(t)
	require.NoError(t, r.Run(context.Background(), strings.NewReader("e2e4\ne7e5\n")))
	assert.Contains(t, out.String(), "white to move")
}
