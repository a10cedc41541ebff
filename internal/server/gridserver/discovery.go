package gridserver

import (
	"fmt"
	"io"
	"log"
	"log/slog"
	"net"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/memberlist"

	gridv1 "github.com/yndnr/gridsession-go/api/grid/v1"
)

// Discovery tracks grid members using the gossip protocol.
type Discovery struct {
	memberList *memberlist.Memberlist
	logger     *slog.Logger

	mu       sync.Mutex
	shutdown bool
	onChange []func([]gridv1.Member)

	changed chan struct{}
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// DiscoveryConfig configures the discovery mechanism.
type DiscoveryConfig struct {
	// NodeID is the unique node identifier.
	NodeID string

	// BindAddr and BindPort are the gossip endpoint. Port 0 picks a free port.
	BindAddr string
	BindPort int

	// RPCAddr is the map service address (host:port) published to peers as
	// node metadata.
	RPCAddr string

	// Seeds are gossip addresses of existing members to join.
	Seeds []string

	// Logger for logging.
	Logger *slog.Logger
}

// NewDiscovery creates the memberlist and joins the seeds.
func NewDiscovery(cfg DiscoveryConfig) (*Discovery, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.RPCAddr == "" {
		return nil, fmt.Errorf("discovery: rpc address is required")
	}

	d := &Discovery{
		logger:  cfg.Logger.With("component", "discovery"),
		changed: make(chan struct{}, 1),
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}

	mlConfig := memberlist.DefaultLANConfig()
	mlConfig.Name = cfg.NodeID
	mlConfig.BindAddr = cfg.BindAddr
	mlConfig.BindPort = cfg.BindPort
	mlConfig.AdvertisePort = cfg.BindPort
	mlConfig.Delegate = &metadataDelegate{rpcAddr: []byte(cfg.RPCAddr)}
	mlConfig.Events = &eventDelegate{discovery: d}
	mlConfig.Logger = newMemberlistLogger(d.logger)

	ml, err := memberlist.Create(mlConfig)
	if err != nil {
		return nil, fmt.Errorf("create memberlist: %w", err)
	}
	d.memberList = ml
	go d.notifyLoop()

	if len(cfg.Seeds) > 0 {
		n, err := ml.Join(cfg.Seeds)
		if err != nil {
			close(d.stopCh)
			<-d.doneCh
			ml.Shutdown()
			return nil, fmt.Errorf("join seed nodes: %w", err)
		}
		d.logger.Info("joined grid",
			"node_id", cfg.NodeID,
			"seeds", cfg.Seeds,
			"joined_count", n)
	} else {
		d.logger.Info("started discovery (bootstrap mode)", "node_id", cfg.NodeID)
	}
	return d, nil
}

// Members returns the live members sorted by ID.
func (d *Discovery) Members() []gridv1.Member {
	nodes := d.memberList.Members()
	out := make([]gridv1.Member, 0, len(nodes))
	for _, n := range nodes {
		if len(n.Meta) == 0 {
			continue
		}
		out = append(out, gridv1.Member{ID: n.Name, Addr: string(n.Meta)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// GossipAddr returns the local gossip address, including an auto-picked port.
func (d *Discovery) GossipAddr() string {
	n := d.memberList.LocalNode()
	return net.JoinHostPort(n.Addr.String(), strconv.Itoa(int(n.Port)))
}

// OnChange registers a callback invoked with the member list after every
// join, leave or update.
func (d *Discovery) OnChange(fn func([]gridv1.Member)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onChange = append(d.onChange, fn)
}

// notify schedules the callbacks. Event delegates run under the memberlist
// node lock, so Members cannot be read from here.
func (d *Discovery) notify() {
	select {
	case d.changed <- struct{}{}:
	default:
	}
}

func (d *Discovery) notifyLoop() {
	defer close(d.doneCh)
	for {
		select {
		case <-d.stopCh:
			return
		case <-d.changed:
		}

		d.mu.Lock()
		cbs := append(([]func([]gridv1.Member))(nil), d.onChange...)
		d.mu.Unlock()
		if len(cbs) == 0 {
			continue
		}
		members := d.Members()
		for _, cb := range cbs {
			cb(members)
		}
	}
}

// Leave broadcasts a leave and stops discovery.
func (d *Discovery) Leave() error {
	d.mu.Lock()
	if d.shutdown {
		d.mu.Unlock()
		return nil
	}
	d.shutdown = true
	d.mu.Unlock()

	close(d.stopCh)
	<-d.doneCh

	if err := d.memberList.Leave(time.Second); err != nil {
		d.logger.Error("failed to leave grid", "error", err)
	}
	if err := d.memberList.Shutdown(); err != nil {
		return fmt.Errorf("shutdown memberlist: %w", err)
	}
	d.logger.Info("discovery shutdown complete")
	return nil
}

// eventDelegate implements memberlist.EventDelegate.
type eventDelegate struct {
	discovery *Discovery
}

func (e *eventDelegate) NotifyJoin(node *memberlist.Node) {
	e.discovery.logger.Info("node joined", "node_id", node.Name, "rpc_addr", string(node.Meta))
	e.discovery.notify()
}

func (e *eventDelegate) NotifyLeave(node *memberlist.Node) {
	e.discovery.logger.Info("node left", "node_id", node.Name)
	e.discovery.notify()
}

func (e *eventDelegate) NotifyUpdate(node *memberlist.Node) {
	e.discovery.logger.Debug("node updated", "node_id", node.Name)
	e.discovery.notify()
}

// metadataDelegate publishes the RPC address as node metadata.
type metadataDelegate struct {
	rpcAddr []byte
}

func (m *metadataDelegate) NodeMeta(limit int) []byte {
	if len(m.rpcAddr) > limit {
		return m.rpcAddr[:limit]
	}
	return m.rpcAddr
}

func (m *metadataDelegate) NotifyMsg([]byte) {}

func (m *metadataDelegate) GetBroadcasts(overhead, limit int) [][]byte { return nil }

func (m *metadataDelegate) LocalState(join bool) []byte { return nil }

func (m *metadataDelegate) MergeRemoteState(buf []byte, join bool) {}

// slogSink forwards hclog entries to slog.
type slogSink struct {
	logger *slog.Logger
}

func (s *slogSink) Accept(name string, level hclog.Level, msg string, args ...interface{}) {
	switch level {
	case hclog.Trace, hclog.Debug:
		s.logger.Debug(msg, args...)
	case hclog.Warn:
		s.logger.Warn(msg, args...)
	case hclog.Error:
		s.logger.Error(msg, args...)
	default:
		s.logger.Info(msg, args...)
	}
}

// newMemberlistLogger returns a standard logger whose "[LEVEL]" prefixed
// lines are routed to logger at the matching level.
func newMemberlistLogger(logger *slog.Logger) *log.Logger {
	intercept := hclog.NewInterceptLogger(&hclog.LoggerOptions{
		Name:   "memberlist",
		Level:  hclog.Debug,
		Output: io.Discard,
	})
	intercept.RegisterSink(&slogSink{logger: logger})
	return intercept.StandardLogger(&hclog.StandardLoggerOptions{InferLevels: true})
}
