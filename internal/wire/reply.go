// Package wire renders Reply values into protocol-compliant lines, the
// mirror image of internal/proto's parser.
package wire

import (
	"fmt"

	"github.com/sparques/iris-server/internal/proto"
)

// ServerName is the fixed name this server identifies itself as in
// server-originated lines.
const ServerName = "iris-server"

// ReplyKind tags which variant a Reply holds.
type ReplyKind int

// Reply variants.
const (
	KindPong ReplyKind = iota
	KindWelcome
	KindPrivMsg
	KindJoin
	KindPart
	KindQuit
	KindPlugin
	KindError
)

// Reply is a tagged variant over the lines the server may send back to a
// client, mirroring proto.Command.
type Reply struct {
	Kind ReplyKind

	Origin string // KindPong

	Nick proto.Nick // KindWelcome
	Text string     // KindWelcome, KindPrivMsg, KindPlugin

	Target proto.Target // KindPrivMsg, KindPlugin
	Sender proto.Nick   // KindPrivMsg, KindJoin, KindPart, KindQuit

	Channel proto.Channel // KindJoin, KindPart

	QuitMessage    string // KindQuit
	HasQuitMessage bool

	Code proto.ErrorCode // KindError
}

// Pong builds a Pong reply.
func Pong(origin string) Reply { return Reply{Kind: KindPong, Origin: origin} }

// Welcome builds a Welcome reply.
func Welcome(nick proto.Nick, text string) Reply {
	return Reply{Kind: KindWelcome, Nick: nick, Text: text}
}

// PrivMsg builds a PrivMsg reply.
func PrivMsg(target proto.Target, text string, sender proto.Nick) Reply {
	return Reply{Kind: KindPrivMsg, Target: target, Text: text, Sender: sender}
}

// Join builds a Join reply.
func Join(channel proto.Channel, sender proto.Nick) Reply {
	return Reply{Kind: KindJoin, Channel: channel, Sender: sender}
}

// Part builds a Part reply.
func Part(channel proto.Channel, sender proto.Nick) Reply {
	return Reply{Kind: KindPart, Channel: channel, Sender: sender}
}

// Quit builds a Quit reply. If hasMessage is false (no quit message was
// given at all), the rendered line falls back to the sender's nick; an
// explicit empty message is rendered verbatim (per the formatter table).
func Quit(message string, hasMessage bool, sender proto.Nick) Reply {
	return Reply{Kind: KindQuit, QuitMessage: message, HasQuitMessage: hasMessage, Sender: sender}
}

// Plugin builds a Plugin reply.
func Plugin(target proto.Target, text string) Reply {
	return Reply{Kind: KindPlugin, Target: target, Text: text}
}

// Error builds an Error reply.
func Error(code proto.ErrorCode) Reply {
	return Reply{Kind: KindError, Code: code}
}

// Format renders r as a \r\n-terminated wire line.
func Format(r Reply) string {
	switch r.Kind {
	case KindPong:
		return fmt.Sprintf("PONG :%s\r\n", r.Origin)

	case KindWelcome:
		return fmt.Sprintf(":%s 001 %s :%s\r\n", ServerName, r.Nick, r.Text)

	case KindPrivMsg:
		return fmt.Sprintf(":%s PRIVMSG %s :%s\r\n", r.Sender, r.Target, r.Text)

	case KindJoin:
		return fmt.Sprintf(":%s JOIN %s\r\n", r.Sender, r.Channel)

	case KindPart:
		return fmt.Sprintf(":%s PART %s\r\n", r.Sender, r.Channel)

	case KindQuit:
		msg := r.QuitMessage
		if !r.HasQuitMessage {
			msg = string(r.Sender)
		}
		return fmt.Sprintf(":%s QUIT :%s\r\n", r.Sender, msg)

	case KindPlugin:
		return fmt.Sprintf("PLUGIN %s : %s\r\n", r.Target, r.Text)

	case KindError:
		return fmt.Sprintf(":%s %d :%s\r\n", ServerName, r.Code, proto.ErrorCodeText(r.Code))

	default:
		return ""
	}
}
