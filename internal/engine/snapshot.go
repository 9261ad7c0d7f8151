package engine

import (
	"encoding/hex"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
	"lukechampine.com/blake3"

	"github.com/gyaneshwarpardhi/cmdgraph/internal/argument"
	"github.com/gyaneshwarpardhi/cmdgraph/internal/command"
	"github.com/gyaneshwarpardhi/cmdgraph/internal/config"
	"github.com/gyaneshwarpardhi/cmdgraph/internal/graph"
	"github.com/gyaneshwarpardhi/cmdgraph/internal/metrics"
	"github.com/gyaneshwarpardhi/cmdgraph/internal/protocol"
	"github.com/gyaneshwarpardhi/cmdgraph/internal/requirement"
)

// Snapshot is one compiled command graph, ready to send. Its exported fields
// never change after Compile; per-viewer views are memoized alongside.
type Snapshot struct {
	ID          string                    `json:"id"`
	Fingerprint string                    `json:"fingerprint"`
	BuiltAt     time.Time                 `json:"built_at"`
	NodeCount   int                       `json:"node_count"`
	Redirects   int                       `json:"redirects"`
	Gated       int                       `json:"gated_nodes"`
	Unreachable []int32                   `json:"unreachable,omitempty"`
	PacketID    int32                     `json:"packet_id"`
	Threshold   int                       `json:"compression_threshold"`
	Message     *protocol.DeclareCommands `json:"message"`
	Payload     []byte                    `json:"-"`
	Packet      []byte                    `json:"-"`

	reqs   command.Requirements
	gated  []int32
	views  sync.Map // visibility mask -> *View
	flight singleflight.Group
}

// View is the graph as one viewer receives it.
type View struct {
	Fingerprint string                    `json:"fingerprint"`
	NodeCount   int                       `json:"node_count"`
	Hidden      int                       `json:"hidden"`
	Message     *protocol.DeclareCommands `json:"message"`
	Payload     []byte                    `json:"-"`
	Packet      []byte                    `json:"-"`
}

// ViewFor returns the part of the graph v may see. Viewers that are denied the
// same set of gated nodes share one View.
func (s *Snapshot) ViewFor(v *requirement.Viewer) (*View, error) {
	mask := s.mask(v)
	if !strings.Contains(mask, "1") {
		metrics.Views.WithLabelValues("full").Inc()
		return &View{Fingerprint: s.Fingerprint, NodeCount: s.NodeCount, Message: s.Message, Payload: s.Payload, Packet: s.Packet}, nil
	}
	if cached, ok := s.views.Load(mask); ok {
		metrics.Views.WithLabelValues("cached").Inc()
		return cached.(*View), nil
	}
	res, err, _ := s.flight.Do(mask, func() (any, error) {
		view, err := s.buildView(mask)
		if err != nil {
			return nil, err
		}
		s.views.Store(mask, view)
		metrics.Views.WithLabelValues("built").Inc()
		return view, nil
	})
	if err != nil {
		return nil, err
	}
	return res.(*View), nil
}

// mask has one byte per gated node, '1' where v is denied.
func (s *Snapshot) mask(v *requirement.Viewer) string {
	var sb strings.Builder
	sb.Grow(len(s.gated))
	for _, id := range s.gated {
		if requirement.Allows(s.reqs[id], v) {
			sb.WriteByte('0')
		} else {
			sb.WriteByte('1')
		}
	}
	return sb.String()
}

func (s *Snapshot) buildView(mask string) (*View, error) {
	hidden := make(map[int32]bool, len(s.gated))
	for i, id := range s.gated {
		if mask[i] == '1' {
			hidden[id] = true
		}
	}
	// Builder ids are dense, so they double as wire indices.
	msg, err := protocol.Prune(s.Message, func(i int32) bool { return hidden[i] })
	if err != nil {
		return nil, err
	}
	payload, packet, fingerprint, err := seal(msg, s.PacketID, s.Threshold)
	if err != nil {
		return nil, err
	}
	return &View{
		Fingerprint: fingerprint,
		NodeCount:   len(msg.Nodes),
		Hidden:      len(s.Message.Nodes) - len(msg.Nodes),
		Message:     msg,
		Payload:     payload,
		Packet:      packet,
	}, nil
}

// seal encodes, frames and fingerprints msg.
func seal(msg *protocol.DeclareCommands, packetID int32, threshold int) (payload, packet []byte, fingerprint string, err error) {
	if payload, err = msg.Encode(); err != nil {
		return nil, nil, "", fmt.Errorf("encode: %w", err)
	}
	if packet, err = protocol.Frame(packetID, payload, threshold); err != nil {
		return nil, nil, "", fmt.Errorf("frame: %w", err)
	}
	// The fingerprint covers framing settings as well as the payload.
	sum := blake3.Sum256(packet)
	return payload, packet, hex.EncodeToString(sum[:]), nil
}

// Compile builds, verifies, encodes and frames set. It does not touch any
// engine state and is safe to call from tools.
func Compile(set *config.CommandSet, reg *argument.Registry) (*Snapshot, error) {
	b := graph.NewBuilder()
	reqs, err := command.Register(b, set, reg)
	if err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}
	msg, err := b.CreateProtocolMessage()
	if err != nil {
		return nil, fmt.Errorf("finalize: %w", err)
	}
	rep := protocol.Verify(msg)
	if err := rep.Err(); err != nil {
		return nil, fmt.Errorf("verify: %w", err)
	}
	packetID := config.DefaultPacketID
	if set.Protocol != nil && set.Protocol.PacketID != 0 {
		packetID = set.Protocol.PacketID
	}
	threshold := set.Protocol.Threshold()
	payload, packet, fingerprint, err := seal(msg, packetID, threshold)
	if err != nil {
		return nil, err
	}

	redirects := 0
	for i := range msg.Nodes {
		if msg.Nodes[i].HasRedirect() {
			redirects++
		}
	}
	gated := make([]int32, 0, len(reqs))
	for id := range reqs {
		gated = append(gated, id)
	}
	slices.Sort(gated)

	return &Snapshot{
		ID:          uuid.New().String(),
		Fingerprint: fingerprint,
		BuiltAt:     time.Now(),
		NodeCount:   len(msg.Nodes),
		Redirects:   redirects,
		Gated:       len(gated),
		Unreachable: rep.Unreachable,
		PacketID:    packetID,
		Threshold:   threshold,
		Message:     msg,
		Payload:     payload,
		Packet:      packet,
		reqs:        reqs,
		gated:       gated,
	}, nil
}
