package chatstate

import (
	"context"
	"errors"
	"time"

	"github.com/adamavenir/gchat/internal/types"
	"github.com/rs/zerolog"
)

// ErrProvisionalTarget is returned when replying to an unconfirmed message.
var ErrProvisionalTarget = errors.New("cannot reply to a message that is still sending")

// MessageGateway is the slice of the chat service a conversation needs.
type MessageGateway interface {
	ListMessages(ctx context.Context, group types.ID) ([]types.Message, error)
	CreateMessage(ctx context.Context, msg types.NewMessage) (types.Message, error)
}

// PendingSend describes a provisional message handed to the gateway.
type PendingSend struct {
	TempID  types.ID
	Request types.NewMessage
}

// Conversation is the local state of one open group: its timeline, the
// reply draft and whether the user is composing.
type Conversation struct {
	Group    types.ID
	Timeline *Timeline

	gateway   MessageGateway
	sender    types.Sender
	replyTo   *types.Message
	composing bool
	audio     bool
	logger    zerolog.Logger
	now       func() time.Time
}

// ConversationOptions configures NewConversation.
type ConversationOptions struct {
	Group   types.ID
	Gateway MessageGateway
	Sender  types.Sender
	Audio   bool
	Logger  zerolog.Logger
	IDs     *TempIDs
	// Now overrides the clock (tests).
	Now func() time.Time
}

// NewConversation returns an empty conversation for a group.
func NewConversation(opts ConversationOptions) *Conversation {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Conversation{
		Group:    opts.Group,
		Timeline: NewTimeline(opts.IDs),
		gateway:  opts.Gateway,
		sender:   opts.Sender,
		audio:    opts.Audio,
		logger:   opts.Logger.With().Str("component", "conversation").Int64("group", int64(opts.Group)).Logger(),
		now:      now,
	}
}

// SetAudio enables or disables the new-message sound signal.
func (c *Conversation) SetAudio(enabled bool) {
	c.audio = enabled
}

// Audio reports whether the sound signal is enabled.
func (c *Conversation) Audio() bool {
	return c.audio
}

// SetComposing records whether the user is typing; polling is suspended
// while it is set.
func (c *Conversation) SetComposing(composing bool) {
	c.composing = composing
}

// Composing reports whether the user is typing.
func (c *Conversation) Composing() bool {
	return c.composing
}

// SetReplyTo makes msg the reply target of the next send.
func (c *Conversation) SetReplyTo(msg types.Message) error {
	if msg.ID.IsProvisional() {
		return ErrProvisionalTarget
	}
	target := msg
	target.RepliedBy = nil
	target.ReplyTo = nil
	c.replyTo = &target
	return nil
}

// ClearReplyTo drops the reply target.
func (c *Conversation) ClearReplyTo() {
	c.replyTo = nil
}

// ReplyTo returns the current reply target, if any.
func (c *Conversation) ReplyTo() *types.Message {
	return c.replyTo
}

// BeginSend inserts a provisional message and clears the reply draft. The
// caller submits Request and then calls Finish. It returns false and does
// nothing when content is blank.
func (c *Conversation) BeginSend(content string) (PendingSend, bool) {
	msg, ok := c.Timeline.BeginSend(content, c.sender, c.replyTo, c.now())
	if !ok {
		return PendingSend{}, false
	}
	req := types.NewMessage{Content: content, Group: c.Group}
	if c.replyTo != nil {
		id := c.replyTo.ID
		req.ReplyTo = &id
	}
	c.replyTo = nil
	return PendingSend{TempID: msg.ID, Request: req}, true
}

// Finish applies the gateway's answer to a pending send: the provisional
// message is replaced on success and rolled back on failure. The gateway
// error is returned unchanged.
func (c *Conversation) Finish(p PendingSend, msg types.Message, err error) error {
	if err != nil {
		c.Timeline.RollbackSend(p.TempID)
		c.logger.Warn().Err(err).Int64("temp_id", int64(p.TempID)).Msg("send failed, provisional message rolled back")
		return err
	}
	if !c.Timeline.ConfirmSend(p.TempID, msg) {
		c.logger.Debug().Int64("temp_id", int64(p.TempID)).Msg("send confirmed for unknown provisional message")
	}
	return nil
}

// Send posts content synchronously through the gateway.
func (c *Conversation) Send(ctx context.Context, content string) (types.Message, error) {
	pending, ok := c.BeginSend(content)
	if !ok {
		return types.Message{}, nil
	}
	msg, err := c.gateway.CreateMessage(ctx, pending.Request)
	if err := c.Finish(pending, msg, err); err != nil {
		return types.Message{}, err
	}
	return msg, nil
}

// Refresh fetches the group's messages and merges them. It reports whether
// a notification sound should play.
func (c *Conversation) Refresh(ctx context.Context) (bool, error) {
	batch, err := c.gateway.ListMessages(ctx, c.Group)
	if err != nil {
		return false, err
	}
	return c.Apply(batch), nil
}

// Apply merges an already fetched batch.
func (c *Conversation) Apply(batch []types.Message) bool {
	return c.Timeline.ApplyFetch(batch, c.audio)
}
