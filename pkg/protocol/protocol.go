// Package protocol defines the line-oriented chat protocol: the
// authentication prompts, the post-auth command grammar, and the exact
// reply texts clients see.
//
// Every client line is one command; every server reply is one logical
// message. Multi-line replies (help, listings) are a single message
// with embedded newlines.
package protocol

import (
	"errors"
	"fmt"
	"strings"

	"github.com/marcwhitt/confab/pkg/model"
)

// Fixed protocol texts. The prompts and error strings are part of the
// wire contract and must not change.
const (
	PromptUsername = "Please enter your username: "
	PromptPassword = "Enter your password: "

	LoginFailed   = "Login failed. Disconnecting."
	AlreadyActive = "Error: This user is already active."

	UnknownCommand = "Error: Unrecognized command. Type /help for assistance."
	NoGroups       = "No groups currently exist."
)

// HelpText lists the available commands. Sent after a successful login
// and in response to /help.
const HelpText = "Commands available:\n" +
	"  /broadcast <message>    - Send a public message\n" +
	"  /msg <user> <message>   - Send a private message\n" +
	"  /create_group <name>    - Create a new group\n" +
	"  /join_group <name>      - Join an existing group\n" +
	"  /leave_group <name>     - Leave a group\n" +
	"  /group_msg <group> <m>  - Group message\n" +
	"  /list_groups            - List all existing groups\n" +
	"  /list_members <group>   - List members of a group\n" +
	"  /help                   - Show this help\n" +
	"  /exit                   - Disconnect"

// Kind identifies a parsed command.
type Kind int

const (
	KindBroadcast Kind = iota
	KindWhisper
	KindCreateGroup
	KindJoinGroup
	KindLeaveGroup
	KindGroupMessage
	KindListGroups
	KindListMembers
	KindHelp
	KindExit
)

// Command is one parsed client command. Arg holds the target user or
// group name where the grammar has one; Text holds the message body.
type Command struct {
	Kind Kind
	Arg  string
	Text string
}

// ErrEmpty is returned for blank input lines, which are ignored without
// a reply.
var ErrEmpty = errors.New("protocol: empty line")

// ErrUnknown is returned for unrecognized commands; the session replies
// with UnknownCommand.
var ErrUnknown = errors.New("protocol: unrecognized command")

// UsageError carries the inline usage reply for a malformed argument
// list.
type UsageError struct {
	Usage string
}

func (e *UsageError) Error() string {
	return "protocol: " + e.Usage
}

// Reply returns the user-visible error text.
func (e *UsageError) Reply() string {
	return "Error: Invalid format. Usage: " + e.Usage
}

// ParseCommand parses one input line into a Command. The line is
// trimmed first; commands are prefix-matched and case-sensitive.
func ParseCommand(line string) (Command, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return Command{}, ErrEmpty
	}

	switch {
	case line == "/exit":
		return Command{Kind: KindExit}, nil
	case line == "/help":
		return Command{Kind: KindHelp}, nil
	case line == "/list_groups":
		return Command{Kind: KindListGroups}, nil

	case strings.HasPrefix(line, "/broadcast "):
		text := strings.TrimSpace(strings.TrimPrefix(line, "/broadcast "))
		return Command{Kind: KindBroadcast, Text: text}, nil

	case strings.HasPrefix(line, "/msg "):
		arg, text, ok := splitTarget(strings.TrimPrefix(line, "/msg "))
		if !ok {
			return Command{}, &UsageError{Usage: "/msg <user> <message>"}
		}
		return Command{Kind: KindWhisper, Arg: arg, Text: text}, nil

	case strings.HasPrefix(line, "/create_group "):
		name := strings.TrimSpace(strings.TrimPrefix(line, "/create_group "))
		if name == "" {
			return Command{}, &UsageError{Usage: "/create_group <name>"}
		}
		return Command{Kind: KindCreateGroup, Arg: name}, nil

	case strings.HasPrefix(line, "/join_group "):
		name := strings.TrimSpace(strings.TrimPrefix(line, "/join_group "))
		if name == "" {
			return Command{}, &UsageError{Usage: "/join_group <name>"}
		}
		return Command{Kind: KindJoinGroup, Arg: name}, nil

	case strings.HasPrefix(line, "/leave_group "):
		name := strings.TrimSpace(strings.TrimPrefix(line, "/leave_group "))
		if name == "" {
			return Command{}, &UsageError{Usage: "/leave_group <name>"}
		}
		return Command{Kind: KindLeaveGroup, Arg: name}, nil

	case strings.HasPrefix(line, "/group_msg "):
		arg, text, ok := splitTarget(strings.TrimPrefix(line, "/group_msg "))
		if !ok {
			return Command{}, &UsageError{Usage: "/group_msg <group> <message>"}
		}
		return Command{Kind: KindGroupMessage, Arg: arg, Text: text}, nil

	case strings.HasPrefix(line, "/list_members "):
		name := strings.TrimSpace(strings.TrimPrefix(line, "/list_members "))
		if name == "" {
			return Command{}, &UsageError{Usage: "/list_members <group>"}
		}
		return Command{Kind: KindListMembers, Arg: name}, nil
	}

	return Command{}, ErrUnknown
}

// splitTarget separates "<target> <rest>" on the first space, trimming
// both parts. ok is false when either part is missing.
func splitTarget(s string) (target, rest string, ok bool) {
	s = strings.TrimSpace(s)
	sep := strings.IndexByte(s, ' ')
	if sep < 0 {
		return "", "", false
	}
	target = strings.TrimSpace(s[:sep])
	rest = strings.TrimSpace(s[sep+1:])
	if target == "" || rest == "" {
		return "", "", false
	}
	return target, rest, true
}

// ---- Reply formatting ----

// Welcome greets a freshly authenticated user.
func Welcome(username string) string {
	return "Hello " + username + ", welcome to the server!"
}

// JoinedChat announces a new arrival to everyone else.
func JoinedChat(username string) string {
	return username + " joined the chat."
}

// LeftChat announces a departure to everyone else.
func LeftChat(username string) string {
	return username + " left the chat."
}

// Broadcast formats a public message.
func Broadcast(sender, text string) string {
	return "[Broadcast] " + sender + ": " + text
}

// Whisper formats a private message for its recipient.
func Whisper(sender, text string) string {
	return "[Whisper] " + sender + ": " + text
}

// WhisperReceipt confirms a delivered whisper to its sender.
func WhisperReceipt(target, text string) string {
	return "[Sent -> " + target + "]: " + text
}

// WhisperMiss reports an offline or unknown whisper target.
func WhisperMiss(target string) string {
	return "Error: Could not find user '" + target + "' online."
}

// GroupMessage formats a group message for members other than the
// sender.
func GroupMessage(group, sender, text string) string {
	return "[Group: " + group + "] " + sender + ": " + text
}

// GroupEcho is the sender's own copy of a group message.
func GroupEcho(group, text string) string {
	return "[Group: " + group + "] You: " + text
}

// GroupMissing reports a group that does not exist.
func GroupMissing(name string) string {
	return "Error: Group '" + name + "' does not exist."
}

// GroupNotFound is the join-specific variant of a missing group.
func GroupNotFound(name string) string {
	return "Error: No group named '" + name + "' found."
}

// NotGroupMember reports a group_msg attempt by a non-member.
func NotGroupMember(name string) string {
	return "Error: You are not a member of '" + name + "'."
}

// NotPartOf reports a leave attempt by a non-member.
func NotPartOf(name string) string {
	return "Error: You were not part of '" + name + "'."
}

// GroupExists reports a create collision.
func GroupExists(name string) string {
	return "Error: Group '" + name + "' already exists."
}

// GroupCreated confirms group creation to the founder.
func GroupCreated(name string) string {
	return "Group '" + name + "' was successfully created."
}

// GroupJoined confirms a join.
func GroupJoined(name string) string {
	return "You joined the group '" + name + "'."
}

// GroupLeft confirms a leave.
func GroupLeft(name string) string {
	return "You left the group '" + name + "'."
}

// InvalidGroupName reports a rejected group name.
func InvalidGroupName(reason error) string {
	return "Error: Invalid group name: " + reason.Error() + "."
}

// GroupList formats the /list_groups reply.
func GroupList(groups []model.GroupInfo) string {
	if len(groups) == 0 {
		return NoGroups
	}
	var b strings.Builder
	b.WriteString("Existing groups:")
	for _, g := range groups {
		fmt.Fprintf(&b, "\n  - %s (%d members)", g.Name, g.MemberCount)
	}
	return b.String()
}

// MemberList formats the /list_members reply.
func MemberList(group string, usernames []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Members of [%s]:", group)
	for _, name := range usernames {
		b.WriteString("\n  - " + name)
	}
	return b.String()
}
