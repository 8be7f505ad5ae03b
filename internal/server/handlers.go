package server

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/loganszeto/udpkv/internal/protocol"
	"github.com/loganszeto/udpkv/internal/stats"
	"github.com/loganszeto/udpkv/internal/store"
	"github.com/loganszeto/udpkv/internal/util"
)

const (
	pong      = "PONG"
	okBody    = "ok"
	keysDelim = " "
)

// Dispatcher maps decoded requests onto the command table. It owns the
// store for the life of the process.
type Dispatcher struct {
	mu      sync.Mutex
	st      store.Store
	stats   *stats.Stats
	clock   util.Clock
	version string
	log     *zap.Logger
}

type DispatcherOptions struct {
	Clock   util.Clock
	Version string
	Logger  *zap.Logger
}

func NewDispatcher(st store.Store, stats *stats.Stats, opts DispatcherOptions) *Dispatcher {
	if opts.Clock == nil {
		opts.Clock = util.RealClock{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Dispatcher{
		st:      st,
		stats:   stats,
		clock:   opts.Clock,
		version: opts.Version,
		log:     opts.Logger,
	}
}

// Handle always produces exactly one response. Calls are serialised.
func (d *Dispatcher) Handle(req protocol.Request) protocol.Response {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stats.RecordAccess()
	d.log.Debug("handle request", zap.String("cmd", req.Command), zap.Strings("params", req.Params))

	cmd, ok := protocol.Lookup(req.Command)
	if !ok {
		d.log.Warn("unknown command", zap.String("cmd", req.Command))
		return d.badRequest(req.Command)
	}
	if len(req.Params) < cmd.Arity || (cmd.Arity > 0 && req.Key() == "") {
		return d.badRequest(req.Command)
	}

	switch cmd.Type {
	case protocol.CmdPing:
		return protocol.OK(pong)
	case protocol.CmdNow:
		return protocol.OK(strconv.FormatInt(d.clock.Now().Unix(), 10))
	case protocol.CmdNowNs:
		return protocol.OK(strconv.FormatInt(d.clock.Now().UnixNano(), 10))
	case protocol.CmdStatus:
		return protocol.OK(d.status())
	case protocol.CmdGet:
		val, ok := d.st.Get(req.Key())
		if !ok {
			return protocol.NotFound(req.Key())
		}
		return protocol.OK(string(val))
	case protocol.CmdSet:
		prev, ok := d.st.Set(req.Key(), []byte(req.Value()))
		return protocol.OK(previous(prev, ok))
	case protocol.CmdDel:
		prev, ok := d.st.Remove(req.Key())
		return protocol.OK(previous(prev, ok))
	case protocol.CmdDBSize:
		return protocol.OK(strconv.Itoa(d.st.Size()))
	case protocol.CmdKeys:
		return protocol.OK(strings.Join(d.st.Keys(), keysDelim))
	case protocol.CmdLoadDB:
		n, err := d.st.LoadDB(req.Key())
		if err != nil {
			d.log.Warn("loaddb failed", zap.String("file", req.Key()), zap.Error(err))
			return d.badRequest(req.Key())
		}
		d.log.Info("loaddb", zap.String("file", req.Key()), zap.Int("records", n))
		return protocol.OK(strconv.Itoa(n))
	case protocol.CmdSaveDB:
		n, err := d.st.SaveDB(req.Key())
		if err != nil {
			d.log.Warn("savedb failed", zap.String("file", req.Key()), zap.Error(err))
			return d.badRequest(req.Key())
		}
		d.log.Info("savedb", zap.String("file", req.Key()), zap.Int("records", n))
		return protocol.OK(strconv.Itoa(n))
	default:
		return d.badRequest(req.Command)
	}
}

func (d *Dispatcher) badRequest(body string) protocol.Response {
	d.stats.RecordError()
	return protocol.BadRequest(body)
}

func (d *Dispatcher) status() string {
	snap := d.stats.Snapshot()
	uptime := int64(d.clock.Now().Sub(snap.Started).Seconds())
	return fmt.Sprintf("version=%s started=%d uptime=%d access=%d errors=%d dbsize=%d",
		d.version, snap.Started.Unix(), uptime, snap.Access, snap.Errors, d.st.Size())
}

func previous(prev []byte, ok bool) string {
	if !ok {
		return okBody
	}
	return string(prev)
}
