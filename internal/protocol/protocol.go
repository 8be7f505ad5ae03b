package protocol

type CmdType int

const (
	CmdPing CmdType = iota
	CmdNow
	CmdNowNs
	CmdStatus
	CmdGet
	CmdSet
	CmdDel
	CmdDBSize
	CmdKeys
	CmdLoadDB
	CmdSaveDB
)

// Command describes one entry of the command table. Arity is the number of
// params the command consumes; surplus params are ignored.
type Command struct {
	Type  CmdType
	Name  string
	Arity int
}

var commands = []Command{
	{Type: CmdPing, Name: "ping", Arity: 0},
	{Type: CmdNow, Name: "now", Arity: 0},
	{Type: CmdNowNs, Name: "now_ns", Arity: 0},
	{Type: CmdStatus, Name: "status", Arity: 0},
	{Type: CmdGet, Name: "get", Arity: 1},
	{Type: CmdSet, Name: "set", Arity: 2},
	{Type: CmdDel, Name: "del", Arity: 1},
	{Type: CmdDBSize, Name: "dbsize", Arity: 0},
	{Type: CmdKeys, Name: "keys", Arity: 0},
	{Type: CmdLoadDB, Name: "loaddb", Arity: 1},
	{Type: CmdSaveDB, Name: "savedb", Arity: 1},
}

var byName = func() map[string]Command {
	m := make(map[string]Command, len(commands))
	for _, c := range commands {
		m[c.Name] = c
	}
	return m
}()

// Lookup matches name case-sensitively against the command table.
func Lookup(name string) (Command, bool) {
	c, ok := byName[name]
	return c, ok
}

// Commands returns the command table in declaration order.
func Commands() []Command {
	out := make([]Command, len(commands))
	copy(out, commands)
	return out
}

func (t CmdType) String() string {
	if int(t) >= 0 && int(t) < len(commands) {
		return commands[t].Name
	}
	return "unknown"
}

type Request struct {
	Command string
	Params  []string
}

// Key returns the first param or "" when there is none.
func (r Request) Key() string {
	if len(r.Params) == 0 {
		return ""
	}
	return r.Params[0]
}

// Value returns the second param or "" when there is none.
func (r Request) Value() string {
	if len(r.Params) < 2 {
		return ""
	}
	return r.Params[1]
}

type Status struct {
	Code        int
	Description string
}

var (
	StatusOK         = Status{Code: 200, Description: "ok"}
	StatusBadRequest = Status{Code: 400, Description: "bad-request"}
	StatusNotFound   = Status{Code: 404, Description: "not-found"}
)

func statusFromCode(code int) (Status, bool) {
	switch code {
	case StatusOK.Code:
		return StatusOK, true
	case StatusBadRequest.Code:
		return StatusBadRequest, true
	case StatusNotFound.Code:
		return StatusNotFound, true
	default:
		return Status{}, false
	}
}

type Response struct {
	Status Status
	Body   string
}

func OK(body string) Response {
	return Response{Status: StatusOK, Body: body}
}

func BadRequest(body string) Response {
	return Response{Status: StatusBadRequest, Body: body}
}

func NotFound(body string) Response {
	return Response{Status: StatusNotFound, Body: body}
}
