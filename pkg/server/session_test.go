package server

import (
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/marcwhitt/confab/pkg/credentials"
	"github.com/marcwhitt/confab/pkg/model"
	"github.com/marcwhitt/confab/pkg/protocol"
)

func newTestServer(users map[string]string) *Server {
	return New(DefaultConfig(), Dependencies{Creds: credentials.NewStatic(users)})
}

// runSessionWith drives one worker to completion over a scripted peer.
func runSessionWith(srv *Server, id model.SessionID, peer *fakePeer) *SessionWorker {
	w := newSessionWorker(id, peer, srv)
	w.Run()
	return w
}

func TestSessionAuthSuccessAndExit(t *testing.T) {
	srv := newTestServer(map[string]string{"alice": "secret"})
	peer := newFakePeer("alice", "secret", "/exit")

	w := runSessionWith(srv, 1, peer)

	if w.State() != StateClosed {
		t.Errorf("state = %v, want closed", w.State())
	}
	lines := peer.lines()
	want := []string{
		protocol.PromptUsername,
		protocol.PromptPassword,
		protocol.Welcome("alice"),
		protocol.HelpText,
	}
	if len(lines) != len(want) {
		t.Fatalf("sent %d lines %v, want %d", len(lines), lines, len(want))
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line[%d] = %q, want %q", i, lines[i], want[i])
		}
	}
	if srv.Clients().Count() != 0 {
		t.Errorf("session still registered after exit")
	}
	if got := testutil.ToFloat64(srv.Metrics().AuthSuccess); got != 1 {
		t.Errorf("auth_success_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(srv.Metrics().ActiveSessions); got != 0 {
		t.Errorf("active_sessions = %v, want 0", got)
	}
	if got := testutil.ToFloat64(srv.Metrics().Disconnects); got != 1 {
		t.Errorf("disconnects_total = %v, want 1", got)
	}
}

func TestSessionLoginFailed(t *testing.T) {
	srv := newTestServer(map[string]string{"alice": "secret"})
	peer := newFakePeer("alice", "wrong")

	w := runSessionWith(srv, 1, peer)

	if !peer.received(protocol.LoginFailed) {
		t.Errorf("lines = %v, want %q", peer.lines(), protocol.LoginFailed)
	}
	if w.State() != StateClosed {
		t.Errorf("state = %v, want closed", w.State())
	}
	if srv.Clients().Count() != 0 {
		t.Errorf("failed login left a registration behind")
	}
	if got := testutil.ToFloat64(srv.Metrics().AuthFailed); got != 1 {
		t.Errorf("auth_failed_total = %v, want 1", got)
	}
}

func TestSessionAlreadyActive(t *testing.T) {
	srv := newTestServer(map[string]string{"alice": "secret"})
	first := newFakePeer()
	if err := srv.Clients().Register(1, "alice", first); err != nil {
		t.Fatalf("Register: %v", err)
	}

	peer := newFakePeer("alice", "secret")
	runSessionWith(srv, 2, peer)

	if !peer.received(protocol.AlreadyActive) {
		t.Errorf("lines = %v, want %q", peer.lines(), protocol.AlreadyActive)
	}
	// The existing session is untouched.
	if id, ok := srv.Clients().Find("alice"); !ok || id != 1 {
		t.Errorf("Find(alice) = (%d, %v), want (1, true)", id, ok)
	}
}

// Blank username lines re-prompt nothing and are simply skipped; the
// first non-empty line is the username.
func TestSessionBlankUsernameSkipped(t *testing.T) {
	srv := newTestServer(map[string]string{"alice": "secret"})
	peer := newFakePeer("", "   ", "alice", "secret", "/exit")

	w := runSessionWith(srv, 1, peer)

	if !peer.received(protocol.Welcome("alice")) {
		t.Errorf("lines = %v, missing welcome", peer.lines())
	}
	if w.State() != StateClosed {
		t.Errorf("state = %v, want closed", w.State())
	}
}

func TestSessionEOFBeforeAuth(t *testing.T) {
	srv := newTestServer(map[string]string{"alice": "secret"})
	peer := newFakePeer()
	peer.Close() // reads see EOF immediately

	w := runSessionWith(srv, 1, peer)

	if w.State() != StateClosed {
		t.Errorf("state = %v, want closed", w.State())
	}
	if srv.Clients().Count() != 0 {
		t.Errorf("unauthenticated EOF left a registration")
	}
	if got := testutil.ToFloat64(srv.Metrics().Disconnects); got != 0 {
		t.Errorf("disconnects_total = %v, want 0 for pre-auth drop", got)
	}
}

func TestSessionCommandReplies(t *testing.T) {
	srv := newTestServer(map[string]string{"alice": "secret"})
	peer := newFakePeer(
		"alice", "secret",
		"/frobnicate",
		"",
		"/msg bob",
		"/create_group dev team",
		"/create_group devs",
		"/list_groups",
		"/list_members devs",
		"/leave_group devs",
		"/exit",
	)

	runSessionWith(srv, 1, peer)

	lines := peer.lines()
	want := []string{
		protocol.PromptUsername,
		protocol.PromptPassword,
		protocol.Welcome("alice"),
		protocol.HelpText,
		protocol.UnknownCommand,
		// the blank line draws no reply
		"Error: Invalid format. Usage: /msg <user> <message>",
		"Error: Invalid group name: " + model.ErrGroupNameInvalidChars.Error() + ".",
		"Group 'devs' was successfully created.",
		"Existing groups:\n  - devs (1 members)",
		"Members of [devs]:\n  - alice",
		"You left the group 'devs'.",
	}
	if len(lines) != len(want) {
		t.Fatalf("sent %d lines, want %d:\n%s", len(lines), len(want), strings.Join(lines, "\n"))
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line[%d] = %q, want %q", i, lines[i], want[i])
		}
	}
}

func TestSessionJoinAndLeaveAnnouncements(t *testing.T) {
	srv := newTestServer(map[string]string{"alice": "secret", "bob": "hunter2"})

	// bob is already online.
	bobPeer := newFakePeer()
	if err := srv.Clients().Register(1, "bob", bobPeer); err != nil {
		t.Fatalf("Register: %v", err)
	}

	alicePeer := newFakePeer("alice", "secret", "/exit")
	runSessionWith(srv, 2, alicePeer)

	if !bobPeer.received(protocol.JoinedChat("alice")) {
		t.Errorf("bob lines = %v, missing join notice", bobPeer.lines())
	}
	if !bobPeer.received(protocol.LeftChat("alice")) {
		t.Errorf("bob lines = %v, missing leave notice", bobPeer.lines())
	}
	if alicePeer.received(protocol.JoinedChat("alice")) {
		t.Errorf("alice received her own join notice")
	}
}

// shutdown must be idempotent: an extra call after Run changes nothing.
func TestSessionCleanupRunsOnce(t *testing.T) {
	srv := newTestServer(map[string]string{"alice": "secret"})
	peer := newFakePeer("alice", "secret", "/exit")

	w := runSessionWith(srv, 1, peer)
	w.shutdown()
	w.shutdown()

	if got := testutil.ToFloat64(srv.Metrics().Disconnects); got != 1 {
		t.Errorf("disconnects_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(srv.Metrics().ActiveSessions); got != 0 {
		t.Errorf("active_sessions = %v, want 0", got)
	}
}

func TestSessionDisconnectRemovesGroupMemberships(t *testing.T) {
	srv := newTestServer(map[string]string{"alice": "secret"})
	peer := newFakePeer("alice", "secret", "/create_group devs", "/exit")

	runSessionWith(srv, 1, peer)

	if srv.Groups().IsMember("devs", 1) {
		t.Errorf("membership survived disconnect")
	}
	infos := srv.Groups().ListAll()
	if len(infos) != 1 || infos[0].MemberCount != 0 {
		t.Errorf("ListAll = %v, want devs with 0 members", infos)
	}
}

// Two simultaneous logins under one username: exactly one session goes
// Active, the other is turned away.
func TestSessionConcurrentDuplicateLogin(t *testing.T) {
	srv := newTestServer(map[string]string{"dup": "pw"})
	peers := []*fakePeer{
		newFakePeer("dup", "pw", "/exit"),
		newFakePeer("dup", "pw", "/exit"),
	}

	var wg sync.WaitGroup
	for i, p := range peers {
		wg.Add(1)
		go func(id model.SessionID, p *fakePeer) {
			defer wg.Done()
			runSessionWith(srv, id, p)
		}(model.SessionID(i+1), p)
	}
	wg.Wait()

	welcomes, rejections := 0, 0
	for _, p := range peers {
		if p.received(protocol.Welcome("dup")) {
			welcomes++
		}
		if p.received(protocol.AlreadyActive) {
			rejections++
		}
	}
	if welcomes != 1 || rejections != 1 {
		t.Errorf("welcomes = %d, rejections = %d, want 1 and 1", welcomes, rejections)
	}
	if srv.Clients().Count() != 0 {
		t.Errorf("registrations left after both sessions ended")
	}
}
