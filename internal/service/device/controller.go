package device

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/zhouzirui/vibecheck/backend/internal/metrics"
	"github.com/zhouzirui/vibecheck/backend/internal/model/message"
	"github.com/zhouzirui/vibecheck/backend/internal/model/user"
	"github.com/zhouzirui/vibecheck/backend/internal/navigation"
	"github.com/zhouzirui/vibecheck/backend/internal/service/ai"
	"github.com/zhouzirui/vibecheck/backend/internal/service/messages"
	"github.com/zhouzirui/vibecheck/backend/internal/service/projection"
	"github.com/zhouzirui/vibecheck/backend/internal/share"
	"github.com/zhouzirui/vibecheck/backend/internal/storage"
)

// Deps are the collaborators shared by every device controller.
type Deps struct {
	Store     *storage.Store
	Messages  *messages.Repository
	Tracker   *messages.Tracker
	Annotator *ai.Annotator
	// BaseURL prefixes share links.
	BaseURL string
	// SendDelay holds the "sending" state before a send is confirmed.
	SendDelay time.Duration
	// FlashDuration is how long JustSent stays set after a send.
	FlashDuration time.Duration
	// IdleTTL evicts controllers nobody has used for this long.
	IdleTTL time.Duration
	Logger  *zap.Logger
}

// Controller owns one device's view state. Every mutation goes through
// update, which also fans the new snapshot out to subscribers.
type Controller struct {
	id    string
	deps  Deps
	scope *storage.Store
	log   *zap.Logger

	mu      sync.Mutex
	state   State
	subs    map[int]chan State
	nextSub int
	flash   *time.Timer
	closed  bool
	// lastUsed is stamped by Manager.Get and drives idle eviction.
	lastUsed time.Time
}

// NewController restores the device's user, if any, and starts on the
// landing screen.
func NewController(deviceID string, deps Deps) *Controller {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Controller{
		id:    deviceID,
		deps:  deps,
		scope: deps.Store.DeviceScope(deviceID),
		log:   logger.Named("device").With(zap.String("device", deviceID)),
		subs:  make(map[int]chan State),
	}
	c.state = State{
		DeviceID:  deviceID,
		Screen:    navigation.Landing,
		Fragment:  navigation.FragmentLanding,
		DetailTab: TabAnalysis,
		User:      c.loadUser(),
	}
	c.state.derive()
	return c
}

// ID returns the device id.
func (c *Controller) ID() string { return c.id }

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.clone()
}

// Subscribe streams state snapshots, starting with the current one. Slow
// readers only see the latest snapshot. Call cancel to stop.
func (c *Controller) Subscribe() (<-chan State, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch := make(chan State, 1)
	ch <- c.state.clone()
	if c.closed {
		close(ch)
		return ch, func() {}
	}
	id := c.nextSub
	c.nextSub++
	c.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			if _, ok := c.subs[id]; ok {
				delete(c.subs, id)
				close(ch)
			}
		})
	}
}

func (c *Controller) touch(now time.Time) {
	c.mu.Lock()
	c.lastUsed = now
	c.mu.Unlock()
}

// idle reports whether nothing has used the controller since cutoff and no
// feed is subscribed to it.
func (c *Controller) idle(cutoff time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.subs) == 0 && c.lastUsed.Before(cutoff)
}

// Close stops pending timers and ends all subscriptions.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	if c.flash != nil {
		c.flash.Stop()
	}
	for id, ch := range c.subs {
		close(ch)
		delete(c.subs, id)
	}
}

func (c *Controller) update(fn func(*State)) State {
	snap, _ := c.mutate(func(s *State) bool {
		fn(s)
		return true
	})
	return snap
}

// mutate is update with a guard: when fn reports false nothing is
// published. The check and the change happen under one lock.
func (c *Controller) mutate(fn func(*State) bool) (State, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !fn(&c.state) {
		return c.state.clone(), false
	}
	c.state.derive()
	snap := c.state.clone()
	c.publishLocked(snap)
	return snap, true
}

func (c *Controller) publishLocked(snap State) {
	for _, ch := range c.subs {
		select {
		case <-ch:
		default:
		}
		ch <- snap.clone()
	}
}

func (c *Controller) loadUser() *user.User {
	u, ok := storage.Load[user.User](c.scope, storage.KeyUser)
	if !ok || u.Username == "" {
		return nil
	}
	return &u
}

func (c *Controller) syncInbox(ctx context.Context, u *user.User) []message.Message {
	if u == nil {
		return []message.Message{}
	}
	return projection.Inbox(c.deps.Messages.All(ctx), u.Username)
}

func (c *Controller) syncSent(ctx context.Context, tag string) []message.Message {
	return projection.Sent(c.deps.Messages.All(ctx), c.deps.Tracker.IDs(c.id), tag)
}

// Navigate resolves fragment and reloads the projection the screen needs.
func (c *Controller) Navigate(ctx context.Context, fragment string) State {
	u := c.loadUser()
	route := navigation.Resolve(fragment, u != nil)
	if route.Redirect != "" {
		fragment = route.Redirect
	}
	if strings.TrimSpace(fragment) == "" {
		fragment = navigation.FragmentLanding
	}

	var inbox, sent []message.Message
	switch route.Screen {
	case navigation.SenderView:
		sent = c.syncSent(ctx, route.Recipient)
	case navigation.Inbox:
		inbox = c.syncInbox(ctx, u)
	}

	return c.update(func(s *State) {
		s.Screen = route.Screen
		s.Fragment = fragment
		s.User = u
		switch route.Screen {
		case navigation.SenderView:
			s.Recipient = route.Recipient
			s.Sent = sent
		case navigation.Inbox:
			s.Inbox = inbox
		}
	})
}

// Register claims username for this device and moves to the inbox. Input
// that normalizes to nothing is ignored.
func (c *Controller) Register(ctx context.Context, name string) (State, bool) {
	u, ok := user.New(name)
	if !ok {
		return c.Snapshot(), false
	}
	if err := c.scope.Save(storage.KeyUser, u); err != nil {
		c.log.Error("failed to persist user", zap.Error(err))
		return c.Snapshot(), false
	}
	metrics.Actions.WithLabelValues("register").Inc()
	c.log.Info("user registered", zap.String("username", u.Username))
	return c.Navigate(ctx, navigation.FragmentInbox), true
}

// Logout forgets the device's user and returns to the landing screen.
func (c *Controller) Logout(ctx context.Context) State {
	if err := c.scope.Remove(storage.KeyUser); err != nil {
		c.log.Error("failed to clear user", zap.Error(err))
	}
	c.update(func(s *State) {
		s.Inbox = nil
		s.Active = nil
		s.AIAnalysis = nil
		s.AIReplies = nil
		s.ShareModal = false
	})
	return c.Navigate(ctx, navigation.FragmentLanding)
}

// Compose sets the outgoing message buffer.
func (c *Controller) Compose(text string) State {
	return c.update(func(s *State) { s.Draft = text })
}

// ComposeReply sets the chat reply buffer.
func (c *Controller) ComposeReply(text string) State {
	return c.update(func(s *State) { s.ChatDraft = text })
}

// Search sets the inbox filter.
func (c *Controller) Search(query string) State {
	return c.update(func(s *State) { s.SearchQuery = query })
}

// SelectTab switches the detail pane. Unknown tabs are ignored.
func (c *Controller) SelectTab(tab DetailTab) (State, bool) {
	if tab != TabAnalysis && tab != TabChat {
		return c.Snapshot(), false
	}
	return c.update(func(s *State) { s.DetailTab = tab }), true
}

// CloseDetail dismisses the active message.
func (c *Controller) CloseDetail() State {
	return c.update(func(s *State) { s.Active = nil })
}

// ToggleShare shows or hides the share sheet.
func (c *Controller) ToggleShare(open bool) State {
	return c.update(func(s *State) { s.ShareModal = open })
}

// Send posts the draft to the current recipient, records it as sent from
// this device, holds the sending state for SendDelay and then flashes
// JustSent for FlashDuration.
func (c *Controller) Send(ctx context.Context) (State, bool) {
	var content, recipient string
	snap, ok := c.mutate(func(s *State) bool {
		content = strings.TrimSpace(s.Draft)
		recipient = s.Recipient
		if content == "" || recipient == "" || s.Sending {
			return false
		}
		s.Sending = true
		return true
	})
	if !ok {
		return snap, false
	}

	msg, err := c.deps.Messages.Create(ctx, recipient, content)
	if err != nil {
		c.log.Error("failed to send message", zap.Error(err))
		return c.update(func(s *State) { s.Sending = false }), false
	}
	if err := c.deps.Tracker.Record(c.id, msg.ID); err != nil {
		c.log.Error("failed to track sent message", zap.String("id", msg.ID), zap.Error(err))
	}
	metrics.Actions.WithLabelValues("send").Inc()

	if c.deps.SendDelay > 0 {
		timer := time.NewTimer(c.deps.SendDelay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
		}
	}

	sent := c.syncSent(ctx, recipient)
	state := c.update(func(s *State) {
		s.Sending = false
		s.Draft = ""
		s.JustSent = true
		if s.Recipient == recipient {
			s.Sent = sent
		}
	})
	c.scheduleFlashClear()
	return state, true
}

func (c *Controller) scheduleFlashClear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	if c.flash != nil {
		c.flash.Stop()
	}
	c.flash = time.AfterFunc(c.deps.FlashDuration, func() {
		c.update(func(s *State) { s.JustSent = false })
	})
}

// Open shows a message from the inbox: marks it read, then waits for the
// vibe analysis and reply suggestions.
func (c *Controller) Open(ctx context.Context, id string) (State, bool) {
	return c.open(ctx, id, true, TabAnalysis)
}

// OpenChat shows one of this device's sent messages on the chat tab. The
// sender looking at it does not mark it read for the recipient.
func (c *Controller) OpenChat(ctx context.Context, id string) (State, bool) {
	return c.open(ctx, id, false, TabChat)
}

func (c *Controller) open(ctx context.Context, id string, markRead bool, tab DetailTab) (State, bool) {
	snap := c.Snapshot()
	pool := snap.Inbox
	if snap.Screen == navigation.SenderView {
		pool = snap.Sent
	}
	msg, ok := projection.Find(pool, id)
	if !ok {
		return snap, false
	}

	if markRead && !msg.Read {
		msg.Read = true
		if _, err := c.deps.Messages.MarkRead(ctx, id); err != nil {
			c.log.Warn("failed to persist read flag", zap.String("id", id), zap.Error(err))
		}
	}

	c.update(func(s *State) {
		s.Inbox = projection.Replace(s.Inbox, msg)
		s.Sent = projection.Replace(s.Sent, msg)
		active := msg.Clone()
		s.Active = &active
		s.DetailTab = tab
		s.LoadingAI = true
		s.AIAnalysis = nil
		s.AIReplies = nil
	})

	vibe, replies := c.deps.Annotator.Annotate(ctx, msg.Content)

	return c.update(func(s *State) {
		s.AIAnalysis = &vibe
		s.AIReplies = replies
		s.LoadingAI = false
	}), true
}

// Reply appends the chat draft to the active message. The role follows the
// screen: the inbox answers as owner, the sender view as anonymous.
func (c *Controller) Reply(ctx context.Context) (State, bool) {
	snap := c.Snapshot()
	content := strings.TrimSpace(snap.ChatDraft)
	if content == "" || snap.Active == nil {
		return snap, false
	}

	role := message.RoleOwner
	if snap.Screen == navigation.SenderView {
		role = message.RoleAnonymous
	}

	updated, err := c.deps.Messages.AppendReply(ctx, snap.Active.ID, role, content)
	if err != nil {
		if errors.Is(err, messages.ErrMessageNotFound) {
			c.log.Info("reply target gone", zap.String("id", snap.Active.ID))
		} else {
			c.log.Error("failed to append reply", zap.Error(err))
		}
		return snap, false
	}
	metrics.Actions.WithLabelValues("reply").Inc()

	var sent []message.Message
	senderContext := snap.Screen == navigation.SenderView
	if senderContext {
		sent = c.syncSent(ctx, snap.Recipient)
	}

	return c.update(func(s *State) {
		s.ChatDraft = ""
		s.Inbox = projection.Replace(s.Inbox, updated)
		if s.Active != nil && s.Active.ID == updated.ID {
			active := updated.Clone()
			s.Active = &active
		}
		if senderContext {
			s.Sent = sent
		}
	}), true
}

// Delete shreds a message everywhere and closes the detail view. Only the
// recipient can shred, so the id must be in this device's inbox; deleting
// an id that is already gone reports false.
func (c *Controller) Delete(ctx context.Context, id string) (State, bool) {
	snap := c.Snapshot()
	if snap.Screen != navigation.Inbox {
		return snap, false
	}
	if _, ok := projection.Find(snap.Inbox, id); !ok {
		return snap, false
	}

	removed, err := c.deps.Messages.Delete(ctx, id)
	if err != nil {
		c.log.Error("failed to delete message", zap.String("id", id), zap.Error(err))
		return c.Snapshot(), false
	}
	if removed {
		metrics.Actions.WithLabelValues("delete").Inc()
	}
	return c.update(func(s *State) {
		s.Inbox = projection.Remove(s.Inbox, id)
		s.Sent = projection.Remove(s.Sent, id)
		s.Active = nil
	}), removed
}

// Share builds the share action for the device's link. Every platform
// except the native sheet closes the share modal.
func (c *Controller) Share(platform string) (State, share.Action) {
	snap := c.Snapshot()
	username := ""
	if snap.User != nil {
		username = snap.User.Username
	}
	action := share.Build(platform, c.deps.BaseURL, username)
	metrics.Actions.WithLabelValues("share").Inc()

	state := c.update(func(s *State) {
		a := action
		s.LastShare = &a
		if action.Kind != share.KindNativeSheet {
			s.ShareModal = false
		}
	})
	return state, action
}
