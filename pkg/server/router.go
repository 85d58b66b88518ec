package server

import (
	"log/slog"

	"github.com/marcwhitt/confab/pkg/model"
	"github.com/marcwhitt/confab/pkg/protocol"
)

// MessageRouter composes the two registries to deliver broadcast,
// whisper, and group messages. It holds no state of its own.
//
// Delivery is best-effort: a failed send to one recipient is logged at
// Warn and never fails the operation or the sender's session. The
// router only ever holds one registry lock at a time, and only inside
// the registries' own snapshot operations.
type MessageRouter struct {
	clients *ClientRegistry
	groups  *GroupRegistry
	metrics *Metrics
}

// NewMessageRouter creates a router over the given registries.
func NewMessageRouter(clients *ClientRegistry, groups *GroupRegistry, metrics *Metrics) *MessageRouter {
	return &MessageRouter{clients: clients, groups: groups, metrics: metrics}
}

// Broadcast sends a public message to every session except the sender.
// The sender's username is resolved once and reused for all recipients.
func (rt *MessageRouter) Broadcast(sender model.SessionID, text string) {
	from, ok := rt.clients.Get(sender)
	if !ok {
		return
	}
	msg := protocol.Broadcast(from.Username, text)
	for _, entry := range rt.clients.Snapshot() {
		if entry.ID == sender {
			continue
		}
		rt.deliver(entry, msg)
	}
	rt.metrics.Messages.WithLabelValues("broadcast").Inc()
}

// Announce sends pre-formatted text (join/leave notices) to every
// session except the originator.
func (rt *MessageRouter) Announce(origin model.SessionID, text string) {
	for _, entry := range rt.clients.Snapshot() {
		if entry.ID == origin {
			continue
		}
		rt.deliver(entry, text)
	}
}

// Whisper sends a private message. An offline or unknown target yields
// exactly one error reply to the sender and no deliveries.
func (rt *MessageRouter) Whisper(sender model.SessionID, targetUsername, text string) {
	from, ok := rt.clients.Get(sender)
	if !ok {
		return
	}

	targetID, ok := rt.clients.Find(targetUsername)
	if !ok {
		rt.reply(from, protocol.WhisperMiss(targetUsername))
		return
	}
	target, ok := rt.clients.Get(targetID)
	if !ok {
		// Target disconnected between Find and Get.
		rt.reply(from, protocol.WhisperMiss(targetUsername))
		return
	}

	rt.deliver(target, protocol.Whisper(from.Username, text))
	rt.reply(from, protocol.WhisperReceipt(targetUsername, text))
	rt.metrics.Messages.WithLabelValues("whisper").Inc()
}

// GroupMessage delivers to every other current member of a group and
// echoes a "You:" copy to the sender. Non-existent groups and
// non-members get a single error reply; the membership check and the
// member snapshot are atomic in the group registry.
func (rt *MessageRouter) GroupMessage(sender model.SessionID, groupName, text string) {
	from, ok := rt.clients.Get(sender)
	if !ok {
		return
	}

	members, err := rt.groups.MembersFor(groupName, sender)
	switch err {
	case nil:
	case ErrNoSuchGroup:
		rt.reply(from, protocol.GroupMissing(groupName))
		return
	case ErrNotMember:
		rt.reply(from, protocol.NotGroupMember(groupName))
		return
	default:
		return
	}

	msg := protocol.GroupMessage(groupName, from.Username, text)
	for _, id := range members {
		if id == sender {
			continue
		}
		if entry, ok := rt.clients.Get(id); ok {
			rt.deliver(entry, msg)
		}
	}
	rt.reply(from, protocol.GroupEcho(groupName, text))
	rt.metrics.Messages.WithLabelValues("group").Inc()
}

// deliver writes one message to a recipient, downgrading transport
// failures to a warning.
func (rt *MessageRouter) deliver(to ClientEntry, msg string) {
	if err := to.Peer.WriteLine(msg); err != nil {
		rt.metrics.SendErrors.Inc()
		slog.Warn("send failed", "session", to.ID, "user", to.Username, "err", err)
	}
}

// reply writes an inline reply to the issuing session.
func (rt *MessageRouter) reply(to ClientEntry, msg string) {
	rt.deliver(to, msg)
}
