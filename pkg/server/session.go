package server

import (
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/marcwhitt/confab/pkg/model"
	"github.com/marcwhitt/confab/pkg/protocol"
)

// State is a SessionWorker lifecycle state.
type State int

const (
	StateConnecting State = iota
	StateAwaitingUsername
	StateAwaitingPassword
	StateActive
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateAwaitingUsername:
		return "awaiting_username"
	case StateAwaitingPassword:
		return "awaiting_password"
	case StateActive:
		return "active"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// SessionWorker drives one connection: the authentication handshake,
// the command loop, and the disconnect cleanup. One worker goroutine
// owns each connection; the worker is the only reader of its peer,
// while writes arrive from any session's goroutine via the router.
type SessionWorker struct {
	id     model.SessionID
	peer   Peer
	server *Server

	state    State
	username string

	// cleanup runs the Closing sequence exactly once, however many
	// paths trigger disconnect.
	cleanup sync.Once
}

func newSessionWorker(id model.SessionID, peer Peer, srv *Server) *SessionWorker {
	return &SessionWorker{
		id:     id,
		peer:   peer,
		server: srv,
		state:  StateConnecting,
	}
}

// State returns the worker's current lifecycle state. Only meaningful
// from the worker's own goroutine or after Run returns.
func (w *SessionWorker) State() State {
	return w.state
}

// Run executes the session until disconnect. Cleanup is guaranteed on
// every exit path.
func (w *SessionWorker) Run() {
	defer w.shutdown()

	if !w.authenticate() {
		return
	}
	w.commandLoop()
}

// authenticate walks Connecting -> AwaitingUsername -> AwaitingPassword
// -> Active. It returns false when the session ends before reaching
// Active; the failure has already been reported to the client.
func (w *SessionWorker) authenticate() bool {
	w.state = StateAwaitingUsername
	w.send(protocol.PromptUsername)

	username, ok := w.readNonEmptyLine()
	if !ok {
		w.state = StateClosed
		return false
	}

	w.state = StateAwaitingPassword
	w.send(protocol.PromptPassword)

	line, err := w.peer.ReadLine()
	if err != nil {
		w.state = StateClosed
		return false
	}
	password := strings.TrimSpace(line)

	if !w.server.creds.Verify(username, password) {
		w.server.metrics.AuthFailed.Inc()
		slog.Info("login failed", "user", username, "remote", w.peer.RemoteAddr())
		w.send(protocol.LoginFailed)
		w.state = StateClosed
		return false
	}

	if err := w.server.clients.Register(w.id, username, w.peer); err != nil {
		w.server.metrics.AuthFailed.Inc()
		slog.Info("login rejected, user already active", "user", username, "remote", w.peer.RemoteAddr())
		w.send(protocol.AlreadyActive)
		w.state = StateClosed
		return false
	}

	w.username = username
	w.state = StateActive
	w.server.metrics.AuthSuccess.Inc()
	w.server.metrics.ActiveSessions.Inc()
	slog.Info("client authenticated", "user", username, "session", w.id, "remote", w.peer.RemoteAddr())

	w.send(protocol.Welcome(username))
	w.send(protocol.HelpText)
	w.server.router.Announce(w.id, protocol.JoinedChat(username))
	return true
}

// readNonEmptyLine reads lines until one is non-empty after trimming.
// ok is false on read failure or end of stream.
func (w *SessionWorker) readNonEmptyLine() (string, bool) {
	for {
		line, err := w.peer.ReadLine()
		if err != nil {
			return "", false
		}
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			return trimmed, true
		}
	}
}

// commandLoop is the Active self-loop: one parsed command per protocol
// turn until /exit or a transport failure.
func (w *SessionWorker) commandLoop() {
	for {
		line, err := w.peer.ReadLine()
		if err != nil {
			slog.Debug("read ended", "user", w.username, "session", w.id, "err", err)
			return
		}

		cmd, err := protocol.ParseCommand(line)
		if err != nil {
			var usage *protocol.UsageError
			switch {
			case errors.Is(err, protocol.ErrEmpty):
				// Blank lines are ignored without a reply.
			case errors.As(err, &usage):
				w.send(usage.Reply())
			default:
				w.send(protocol.UnknownCommand)
			}
			continue
		}

		if cmd.Kind == protocol.KindExit {
			return
		}
		w.dispatch(cmd)
	}
}

// dispatch executes one Active-state command and replies inline.
func (w *SessionWorker) dispatch(cmd protocol.Command) {
	switch cmd.Kind {
	case protocol.KindHelp:
		w.send(protocol.HelpText)

	case protocol.KindBroadcast:
		w.server.router.Broadcast(w.id, cmd.Text)

	case protocol.KindWhisper:
		w.server.router.Whisper(w.id, cmd.Arg, cmd.Text)

	case protocol.KindCreateGroup:
		if err := model.ValidateGroupName(cmd.Arg); err != nil {
			w.send(protocol.InvalidGroupName(err))
			return
		}
		switch err := w.server.groups.Create(cmd.Arg, w.id); err {
		case nil:
			w.server.metrics.GroupsCreated.Inc()
			slog.Info("group created", "group", cmd.Arg, "by", w.username)
			w.send(protocol.GroupCreated(cmd.Arg))
		case ErrGroupExists:
			w.send(protocol.GroupExists(cmd.Arg))
		}

	case protocol.KindJoinGroup:
		switch err := w.server.groups.Join(cmd.Arg, w.id); err {
		case nil:
			w.send(protocol.GroupJoined(cmd.Arg))
		case ErrNoSuchGroup:
			w.send(protocol.GroupNotFound(cmd.Arg))
		}

	case protocol.KindLeaveGroup:
		switch err := w.server.groups.Leave(cmd.Arg, w.id); err {
		case nil:
			w.send(protocol.GroupLeft(cmd.Arg))
		case ErrNoSuchGroup:
			w.send(protocol.GroupMissing(cmd.Arg))
		case ErrNotMember:
			w.send(protocol.NotPartOf(cmd.Arg))
		}

	case protocol.KindGroupMessage:
		w.server.router.GroupMessage(w.id, cmd.Arg, cmd.Text)

	case protocol.KindListGroups:
		w.send(protocol.GroupList(w.server.groups.ListAll()))

	case protocol.KindListMembers:
		w.listMembers(cmd.Arg)
	}
}

// listMembers resolves a group's member ids to usernames. The group
// lock and the client lock are taken one after the other, never
// together.
func (w *SessionWorker) listMembers(group string) {
	ids, ok := w.server.groups.Members(group)
	if !ok {
		w.send(protocol.GroupMissing(group))
		return
	}
	usernames := make([]string, 0, len(ids))
	for _, id := range ids {
		if entry, ok := w.server.clients.Get(id); ok {
			usernames = append(usernames, entry.Username)
		}
	}
	w.send(protocol.MemberList(group, usernames))
}

// shutdown runs the Closing sequence exactly once: unregister, revoke
// all group memberships, announce the departure, release the transport.
// The client lock is fully released before the group lock is taken;
// the two are never held together.
func (w *SessionWorker) shutdown() {
	w.cleanup.Do(func() {
		w.state = StateClosing

		username, wasRegistered := w.server.clients.Unregister(w.id)
		w.server.groups.RemoveEverywhere(w.id)

		if wasRegistered {
			w.server.metrics.ActiveSessions.Dec()
			w.server.metrics.Disconnects.Inc()
			slog.Info("client disconnected", "user", username, "session", w.id)
			w.server.router.Announce(w.id, protocol.LeftChat(username))
		}

		_ = w.peer.Close()
		w.state = StateClosed
	})
}

// send writes one reply to this session's own peer. Failures here are
// surfaced on the next read, so they are only logged.
func (w *SessionWorker) send(text string) {
	if err := w.peer.WriteLine(text); err != nil {
		slog.Debug("reply write failed", "session", w.id, "err", err)
	}
}
