package proto

import "strings"

// tokenize splits a raw protocol line into its ordered tokens, per the
// wire format: strip at most one trailing "\r\n", locate the first ':', and
// split everything before it on single spaces (dropping a final empty
// token, which happens when there's a trailing space right before the
// colon); the portion after the colon is appended verbatim as the last
// token, with its single leading space trimmed. If there is no ':',
// the whole line is split on single spaces.
//
// Grounded on sparques-hamirc/irc/server.go's parse(), generalized to
// match this wire format exactly (that version special-cases the token
// at the ':' itself rather than everything after it).
func tokenize(line string) []string {
	line = strings.TrimSuffix(line, "\r\n")
	line = strings.TrimSuffix(line, "\n")

	colon := strings.Index(line, ":")
	if colon == -1 {
		return splitSpaces(line)
	}

	head := line[:colon]
	tail := line[colon+1:]
	tail = strings.TrimPrefix(tail, " ")

	tokens := splitSpaces(strings.TrimSuffix(head, " "))
	if len(tokens) == 1 && tokens[0] == "" {
		tokens = tokens[:0]
	}
	return append(tokens, tail)
}

func splitSpaces(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, " ")
}

// Parse turns a raw wire line into a Command, or a *ParseError carrying
// the numeric code to report back to the client. Parse is pure and
// stateless.
func Parse(line string) (Command, error) {
	tokens := tokenize(line)
	if len(tokens) == 0 {
		return Command{}, &ParseError{Code: ErrUnknownCommand}
	}

	switch tokens[0] {
	case "PING":
		if len(tokens) < 2 {
			return Command{}, &ParseError{Code: ErrNoOrigin}
		}
		return Command{Kind: KindPing, Origin: tokens[len(tokens)-1]}, nil

	case "NICK":
		if len(tokens) < 2 || tokens[1] == "" {
			return Command{}, &ParseError{Code: ErrNoNicknameGiven}
		}
		n, err := ParseNick(tokens[1])
		if err != nil {
			return Command{}, &ParseError{Code: ErrErroneousNick}
		}
		return Command{Kind: KindNick, Nick: n}, nil

	case "USER":
		if len(tokens) < 5 {
			return Command{}, &ParseError{Code: ErrNeedMoreParams}
		}
		return Command{Kind: KindUser, RealName: tokens[4]}, nil

	case "JOIN":
		if len(tokens) < 2 || tokens[1] == "" {
			return Command{}, &ParseError{Code: ErrNeedMoreParams}
		}
		c, err := ParseChannel(tokens[1])
		if err != nil {
			return Command{}, &ParseError{Code: ErrNoSuchChan}
		}
		return Command{Kind: KindJoin, Channel: c}, nil

	case "PART":
		if len(tokens) < 2 || tokens[1] == "" {
			return Command{}, &ParseError{Code: ErrNeedMoreParams}
		}
		c, err := ParseChannel(tokens[1])
		if err != nil {
			return Command{}, &ParseError{Code: ErrNoSuchChan}
		}
		return Command{Kind: KindPart, Channel: c}, nil

	case "PRIVMSG":
		if len(tokens) < 2 || tokens[1] == "" {
			return Command{}, &ParseError{Code: ErrNoRecipient}
		}
		if len(tokens) < 3 {
			return Command{}, &ParseError{Code: ErrNoTextToSend}
		}
		return Command{
			Kind:   KindPrivMsg,
			Target: ParseTarget(tokens[1]),
			Text:   tokens[len(tokens)-1],
		}, nil

	case "QUIT":
		if len(tokens) < 2 {
			return Command{Kind: KindQuit}, nil
		}
		return Command{
			Kind:           KindQuit,
			QuitMessage:    tokens[len(tokens)-1],
			HasQuitMessage: true,
		}, nil

	case "PLUGIN":
		if len(tokens) < 2 || tokens[1] == "" {
			return Command{}, &ParseError{Code: ErrNoSuchPluginCmd}
		}
		p, err := ParsePluginName(tokens[1])
		if err != nil {
			return Command{}, &ParseError{Code: ErrNoSuchPluginCmd}
		}
		var args []string
		if len(tokens) > 2 {
			args = tokens[2:]
		}
		return Command{Kind: KindPlugin, PluginName: p, PluginArgs: args}, nil

	default:
		return Command{}, &ParseError{Code: ErrUnknownCommand}
	}
}
