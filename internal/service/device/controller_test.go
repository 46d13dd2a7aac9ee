package device

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/zhouzirui/vibecheck/backend/internal/model/message"
	"github.com/zhouzirui/vibecheck/backend/internal/navigation"
	"github.com/zhouzirui/vibecheck/backend/internal/service/ai"
	"github.com/zhouzirui/vibecheck/backend/internal/service/messages"
	"github.com/zhouzirui/vibecheck/backend/internal/storage"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m, goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"))
}

type fakeGenerator struct {
	err error
}

func (f fakeGenerator) Name() string { return "fake" }

func (f fakeGenerator) Generate(_ context.Context, task ai.Task, _ string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	if task == ai.TaskReplies {
		return `["r1","r2","r3"]`, nil
	}
	return `{"emoji":"👋","mood":"Friendly","insight":"Just saying hi."}`, nil
}

type harness struct {
	mgr  *Manager
	repo *messages.Repository
}

func newHarness(t *testing.T, gen ai.Generator) *harness {
	t.Helper()
	logger := zaptest.NewLogger(t)
	store := storage.New(storage.NewMemoryKV(), logger)
	repo := messages.NewRepository(store, logger)
	mgr := NewManager(Deps{
		Store:         store,
		Messages:      repo,
		Tracker:       messages.NewTracker(store),
		Annotator:     ai.NewAnnotator(gen, logger),
		BaseURL:       "https://vibe.example/",
		SendDelay:     5 * time.Millisecond,
		FlashDuration: 20 * time.Millisecond,
		Logger:        logger,
	})
	t.Cleanup(mgr.Close)
	return &harness{mgr: mgr, repo: repo}
}

func (h *harness) device(t *testing.T) *Controller {
	t.Helper()
	c, err := h.mgr.Get(NewDeviceID())
	require.NoError(t, err)
	return c
}

func send(t *testing.T, c *Controller, tag, content string) State {
	t.Helper()
	ctx := context.Background()
	c.Navigate(ctx, navigation.SenderFragment(tag))
	c.Compose(content)
	state, ok := c.Send(ctx)
	require.True(t, ok)
	return state
}

func TestAliceScenario(t *testing.T) {
	h := newHarness(t, fakeGenerator{})
	ctx := context.Background()
	alice := h.device(t)
	visitor := h.device(t)

	state, ok := alice.Register(ctx, "Alice")
	require.True(t, ok)
	assert.Equal(t, navigation.Inbox, state.Screen)
	assert.Equal(t, "alice", state.User.Username)
	assert.Empty(t, state.Inbox)

	_, action := alice.Share("copy")
	assert.Equal(t, "https://vibe.example/#/u/alice", action.URL)

	state = visitor.Navigate(ctx, "#/u/alice")
	assert.Equal(t, navigation.SenderView, state.Screen)
	assert.Equal(t, "alice", state.Recipient)
	assert.Empty(t, state.Sent)

	state = send(t, visitor, "alice", "hi")
	assert.True(t, state.JustSent)
	assert.False(t, state.Sending)
	assert.Empty(t, state.Draft)
	require.Len(t, state.Sent, 1)
	msgID := state.Sent[0].ID

	state = alice.Navigate(ctx, "#/inbox")
	require.Len(t, state.Inbox, 1)
	assert.Equal(t, "hi", state.Inbox[0].Content)
	assert.False(t, state.Inbox[0].Read)
	assert.True(t, state.HasUnread)
	require.Len(t, state.Visible, 1)

	state, ok = alice.Open(ctx, msgID)
	require.True(t, ok)
	require.NotNil(t, state.Active)
	assert.True(t, state.Active.Read)
	assert.True(t, state.Inbox[0].Read)
	assert.False(t, state.HasUnread)
	assert.False(t, state.LoadingAI)
	assert.Equal(t, TabAnalysis, state.DetailTab)
	require.NotNil(t, state.AIAnalysis)
	assert.Equal(t, "Friendly", state.AIAnalysis.Mood)
	assert.Equal(t, []string{"r1", "r2", "r3"}, state.AIReplies)
	assert.True(t, h.repo.All(ctx)[0].Read)

	alice.ComposeReply("hello")
	state, ok = alice.Reply(ctx)
	require.True(t, ok)
	require.Len(t, state.Active.Replies, 1)
	assert.Equal(t, message.RoleOwner, state.Active.Replies[0].Role)
	assert.Empty(t, state.ChatDraft)

	state = visitor.Navigate(ctx, "#/u/alice")
	require.Len(t, state.Sent, 1)
	require.Len(t, state.Sent[0].Replies, 1)
	assert.Equal(t, "hello", state.Sent[0].Replies[0].Content)

	state, ok = visitor.OpenChat(ctx, msgID)
	require.True(t, ok)
	assert.Equal(t, TabChat, state.DetailTab)

	visitor.ComposeReply("who, me?")
	state, ok = visitor.Reply(ctx)
	require.True(t, ok)
	require.Len(t, state.Sent[0].Replies, 2)
	assert.Equal(t, message.RoleAnonymous, state.Sent[0].Replies[1].Role)
	assert.Equal(t, message.RoleAnonymous, state.Active.Replies[1].Role)
}

func TestSentViewIsDeviceLocal(t *testing.T) {
	h := newHarness(t, fakeGenerator{})
	ctx := context.Background()
	a := h.device(t)
	b := h.device(t)

	send(t, a, "alice", "from a")
	send(t, b, "Alice", "from b")

	stateA := a.Navigate(ctx, "#/u/alice")
	require.Len(t, stateA.Sent, 1)
	assert.Equal(t, "from a", stateA.Sent[0].Content)

	stateB := b.Navigate(ctx, "#/u/ALICE")
	require.Len(t, stateB.Sent, 1)
	assert.Equal(t, "from b", stateB.Sent[0].Content)
	assert.Equal(t, "alice", stateB.Sent[0].RecipientID)
}

func TestOpenChatDoesNotMarkRead(t *testing.T) {
	h := newHarness(t, fakeGenerator{})
	ctx := context.Background()
	v := h.device(t)
	state := send(t, v, "bob", "psst")

	_, ok := v.OpenChat(ctx, state.Sent[0].ID)
	require.True(t, ok)
	assert.False(t, h.repo.All(ctx)[0].Read)
}

func TestRegisterRejectsEmptySlug(t *testing.T) {
	h := newHarness(t, fakeGenerator{})
	c := h.device(t)

	state, ok := c.Register(context.Background(), " ?!* ")
	assert.False(t, ok)
	assert.Nil(t, state.User)
	assert.Equal(t, navigation.Landing, state.Screen)
}

func TestInboxWithoutUserRedirects(t *testing.T) {
	h := newHarness(t, fakeGenerator{})
	state := h.device(t).Navigate(context.Background(), "#/inbox")
	assert.Equal(t, navigation.Landing, state.Screen)
	assert.Equal(t, navigation.FragmentLanding, state.Fragment)
}

func TestUserSurvivesControllerRestart(t *testing.T) {
	h := newHarness(t, fakeGenerator{})
	id := NewDeviceID()
	c, err := h.mgr.Get(id)
	require.NoError(t, err)
	_, ok := c.Register(context.Background(), "carol")
	require.True(t, ok)

	fresh := NewController(id, h.mgr.deps)
	defer fresh.Close()
	require.NotNil(t, fresh.Snapshot().User)
	assert.Equal(t, "carol", fresh.Snapshot().User.Username)
}

func TestSendValidation(t *testing.T) {
	h := newHarness(t, fakeGenerator{})
	ctx := context.Background()
	c := h.device(t)

	c.Compose("hello")
	_, ok := c.Send(ctx)
	assert.False(t, ok, "no recipient resolved")

	c.Navigate(ctx, "#/u/bob")
	c.Compose("   ")
	_, ok = c.Send(ctx)
	assert.False(t, ok, "blank content")
	assert.Empty(t, h.repo.All(ctx))
}

func TestJustSentClearsAfterFlash(t *testing.T) {
	h := newHarness(t, fakeGenerator{})
	c := h.device(t)
	state := send(t, c, "bob", "hey")
	require.True(t, state.JustSent)

	require.Eventually(t, func() bool { return !c.Snapshot().JustSent }, time.Second, 5*time.Millisecond)
}

func TestDeleteRemovesEverywhere(t *testing.T) {
	h := newHarness(t, fakeGenerator{})
	ctx := context.Background()
	owner := h.device(t)
	v := h.device(t)
	_, ok := owner.Register(ctx, "dana")
	require.True(t, ok)
	id := send(t, v, "dana", "secret").Sent[0].ID

	owner.Navigate(ctx, "#/inbox")
	_, ok = owner.Open(ctx, id)
	require.True(t, ok)

	state, removed := owner.Delete(ctx, id)
	assert.True(t, removed)
	assert.Empty(t, state.Inbox)
	assert.Nil(t, state.Active)
	assert.Empty(t, h.repo.All(ctx))

	_, removed = owner.Delete(ctx, id)
	assert.False(t, removed)

	assert.Empty(t, v.Navigate(ctx, "#/u/dana").Sent)
}

func TestDeleteRequiresOwnInbox(t *testing.T) {
	h := newHarness(t, fakeGenerator{})
	ctx := context.Background()
	owner := h.device(t)
	visitor := h.device(t)
	stranger := h.device(t)
	_, ok := owner.Register(ctx, "erin")
	require.True(t, ok)
	id := send(t, visitor, "erin", "secret").Sent[0].ID

	_, removed := stranger.Delete(ctx, id)
	assert.False(t, removed, "landing device")

	_, removed = visitor.Delete(ctx, id)
	assert.False(t, removed, "sender view")

	_, ok = stranger.Register(ctx, "frank")
	require.True(t, ok)
	_, removed = stranger.Delete(ctx, id)
	assert.False(t, removed, "someone else's inbox")

	require.Len(t, h.repo.All(ctx), 1)

	owner.Navigate(ctx, "#/inbox")
	_, removed = owner.Delete(ctx, id)
	assert.True(t, removed)
	assert.Empty(t, h.repo.All(ctx))
}

func TestConcurrentSendStoresOnce(t *testing.T) {
	h := newHarness(t, fakeGenerator{})
	ctx := context.Background()
	c := h.device(t)
	c.Navigate(ctx, "#/u/gina")
	c.Compose("only once")

	var wg sync.WaitGroup
	results := make([]bool, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = c.Send(ctx)
		}(i)
	}
	wg.Wait()

	applied := 0
	for _, ok := range results {
		if ok {
			applied++
		}
	}
	assert.Equal(t, 1, applied)
	assert.Len(t, h.repo.All(ctx), 1)
	assert.False(t, c.Snapshot().Sending)
}

func TestManagerEvictsIdleControllers(t *testing.T) {
	h := newHarness(t, fakeGenerator{})
	now := time.Now()
	h.mgr.now = func() time.Time { return now }

	idleID := NewDeviceID()
	watchedID := NewDeviceID()
	idle, err := h.mgr.Get(idleID)
	require.NoError(t, err)
	watched, err := h.mgr.Get(watchedID)
	require.NoError(t, err)
	_, cancel := watched.Subscribe()
	defer cancel()
	require.Equal(t, 2, h.mgr.Len())

	now = now.Add(DefaultIdleTTL + time.Minute)
	_, err = h.mgr.Get(NewDeviceID())
	require.NoError(t, err)

	assert.Equal(t, 2, h.mgr.Len(), "idle controller evicted, subscribed one kept")
	again, err := h.mgr.Get(idleID)
	require.NoError(t, err)
	assert.NotSame(t, idle, again)
	kept, err := h.mgr.Get(watchedID)
	require.NoError(t, err)
	assert.Same(t, watched, kept)
}

func TestSearchFiltersInbox(t *testing.T) {
	h := newHarness(t, fakeGenerator{})
	ctx := context.Background()
	owner := h.device(t)
	v := h.device(t)
	_, ok := owner.Register(ctx, "erin")
	require.True(t, ok)
	send(t, v, "erin", "Do you like cats?")
	send(t, v, "erin", "dogs are better")

	owner.Navigate(ctx, "#/inbox")
	state := owner.Search("CATS")
	require.Len(t, state.Visible, 1)
	assert.Equal(t, "Do you like cats?", state.Visible[0].Content)
	assert.Len(t, state.Inbox, 2)
}

func TestOpenFallsBackWhenAIFails(t *testing.T) {
	h := newHarness(t, fakeGenerator{err: errors.New("network down")})
	ctx := context.Background()
	owner := h.device(t)
	v := h.device(t)
	_, ok := owner.Register(ctx, "finn")
	require.True(t, ok)
	id := send(t, v, "finn", "yo").Sent[0].ID

	owner.Navigate(ctx, "#/inbox")
	state, ok := owner.Open(ctx, id)
	require.True(t, ok)
	require.NotNil(t, state.AIAnalysis)
	assert.Equal(t, ai.FallbackVibe(), *state.AIAnalysis)
	assert.Equal(t, ai.FallbackReplies(), state.AIReplies)
	assert.False(t, state.LoadingAI)
}

func TestReplyRequiresActiveMessage(t *testing.T) {
	h := newHarness(t, fakeGenerator{})
	c := h.device(t)
	c.ComposeReply("hello?")
	_, ok := c.Reply(context.Background())
	assert.False(t, ok)
}

func TestShareClosesModalExceptNative(t *testing.T) {
	h := newHarness(t, fakeGenerator{})
	c := h.device(t)
	_, ok := c.Register(context.Background(), "gus")
	require.True(t, ok)

	c.ToggleShare(true)
	state, _ := c.Share("native")
	assert.True(t, state.ShareModal)

	state, action := c.Share("whatsapp")
	assert.False(t, state.ShareModal)
	assert.Contains(t, action.Target, "wa.me")
	require.NotNil(t, state.LastShare)
	assert.Equal(t, "whatsapp", state.LastShare.Platform)
}

func TestLogoutClearsUser(t *testing.T) {
	h := newHarness(t, fakeGenerator{})
	ctx := context.Background()
	c := h.device(t)
	_, ok := c.Register(ctx, "hana")
	require.True(t, ok)

	state := c.Logout(ctx)
	assert.Nil(t, state.User)
	assert.Equal(t, navigation.Landing, state.Screen)
	assert.Equal(t, navigation.Landing, c.Navigate(ctx, "#/inbox").Screen)
}

func TestSelectTab(t *testing.T) {
	h := newHarness(t, fakeGenerator{})
	c := h.device(t)
	state, ok := c.SelectTab(TabChat)
	assert.True(t, ok)
	assert.Equal(t, TabChat, state.DetailTab)
	_, ok = c.SelectTab("SETTINGS")
	assert.False(t, ok)
}

func TestSubscribeReceivesUpdates(t *testing.T) {
	h := newHarness(t, fakeGenerator{})
	c := h.device(t)

	ch, cancel := c.Subscribe()
	first := <-ch
	assert.Equal(t, navigation.Landing, first.Screen)

	c.Search("abc")
	select {
	case s := <-ch:
		assert.Equal(t, "abc", s.SearchQuery)
	case <-time.After(time.Second):
		t.Fatal("no snapshot delivered")
	}

	cancel()
	cancel()
	_, open := <-ch
	assert.False(t, open)
}

func TestManagerValidatesDeviceID(t *testing.T) {
	h := newHarness(t, fakeGenerator{})
	_, err := h.mgr.Get("")
	assert.ErrorIs(t, err, ErrDeviceRequired)
	_, err = h.mgr.Get("../../etc")
	assert.ErrorIs(t, err, ErrInvalidDevice)

	id := uuid.NewString()
	a, err := h.mgr.Get(id)
	require.NoError(t, err)
	b, err := h.mgr.Get(id)
	require.NoError(t, err)
	assert.Same(t, a, b)
}
