package resp

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ValentinKolb/kvproxy/lib/commands"
)

// parseError is answered with -<msg> and never reaches the backend
type parseError string

func (e parseError) Error() string { return string(e) }

const (
	errNotInteger = parseError("ERR value is not an integer or out of range")
	errSyntax     = parseError("ERR syntax error")
	errExpireTime = parseError("ERR invalid expire time in 'set' command")
)

func errArity(name string) error {
	return parseError(fmt.Sprintf("ERR wrong number of arguments for '%s' command", name))
}

func errUnknown(name string) error {
	return parseError(fmt.Sprintf("ERR unknown command '%s'", name))
}

// arity is the number of arguments including the command name. A negative value
// means at least -arity arguments.
var arity = map[string]int{
	"get":    2,
	"set":    -3,
	"hlen":   2,
	"lindex": 3,
	"lrange": 4,
	"lpush":  -3,
	"rpush":  -3,
	"sadd":   -3,
	"srem":   -3,
	"sdiff":  -2,
	"sinter": -2,
	"sunion": -2,
}

// parse converts an argument vector into a typed request. The request aliases args.
func parse(args [][]byte) (commands.Request, error) {
	name := strings.ToLower(string(args[0]))

	n, ok := arity[name]
	if !ok {
		return nil, errUnknown(string(args[0]))
	}
	if (n > 0 && len(args) != n) || (n < 0 && len(args) < -n) {
		return nil, errArity(name)
	}

	switch name {
	case "get":
		return &commands.GetRequest{Key: args[1]}, nil
	case "set":
		return parseSet(args)
	case "hlen":
		return &commands.HashLengthRequest{Key: args[1]}, nil
	case "lindex":
		index, err := parseInt(args[2])
		if err != nil {
			return nil, err
		}
		return &commands.ListIndexRequest{Key: args[1], Index: index}, nil
	case "lrange":
		start, err := parseInt(args[2])
		if err != nil {
			return nil, err
		}
		stop, err := parseInt(args[3])
		if err != nil {
			return nil, err
		}
		return &commands.ListRangeRequest{Key: args[1], Start: start, Stop: stop}, nil
	case "lpush", "rpush":
		return &commands.ListPushRequest{Key: args[1], Elements: args[2:], Back: name == "rpush"}, nil
	case "sadd":
		return &commands.SetAddRequest{Key: args[1], Members: args[2:]}, nil
	case "srem":
		return &commands.SetRemoveRequest{Key: args[1], Members: args[2:]}, nil
	case "sdiff":
		return &commands.SetDiffRequest{SetKeys: args[1:]}, nil
	case "sinter":
		return &commands.SetIntersectRequest{SetKeys: args[1:]}, nil
	default: // sunion
		return &commands.SetUnionRequest{SetKeys: args[1:]}, nil
	}
}

// parseSet accepts SET key value [EX seconds]
func parseSet(args [][]byte) (commands.Request, error) {
	req := &commands.SetRequest{Key: args[1], Value: args[2]}
	switch len(args) {
	case 3:
		return req, nil
	case 5:
		if !strings.EqualFold(string(args[3]), "ex") {
			return nil, errSyntax
		}
		seconds, err := parseInt(args[4])
		if err != nil {
			return nil, err
		}
		if seconds <= 0 {
			return nil, errExpireTime
		}
		req.TTLSeconds = seconds
		return req, nil
	default:
		return nil, errSyntax
	}
}

func parseInt(b []byte) (int64, error) {
	i, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		return 0, errNotInteger
	}
	return i, nil
}
