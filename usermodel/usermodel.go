// usermodel.go - shared per-user state and the user model capability
// interface implemented by every concrete model.
// Copyright (C) 2017  David Anthony Stainton
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

// Package usermodel holds the state every concrete user model shares
// (guards, peer channels, contacts) and the Model interface the driver
// iterates over, independent of whether the model is synchronous or
// histogram-driven.
package usermodel

import (
	"math/rand/v2"

	"github.com/frochet/routesim/constants"
	"github.com/frochet/routesim/mixnode"
	"github.com/frochet/routesim/queue"
	"github.com/frochet/routesim/topology"
	"github.com/frochet/routesim/userrequest"
)

// Kind distinguishes models that only ever send from models that both
// send and receive, which the driver needs to know in order to decide
// whether a second, receive-side pass is owed to this user.
type Kind int

const (
	// ClientOnly models only ever emit (timestamp, guard) tuples; they
	// never populate a receiver inbox.
	ClientOnly Kind = iota
	// BothPeers models dispatch UserRequests to peers and drain their
	// own inbox in a second pass.
	BothPeers
)

// Emission is one produced tuple: the packet timestamp, the guard
// active for it (nil if guards are disabled or none are online), the
// emitting user's own mailbox in the topology active at the timestamp
// (nil for ClientOnly models), and
// the request id the packet belongs to (nil outside of BothPeers
// models).
type Emission struct {
	Timestamp uint64
	Guard     *mixnode.Mixnode
	Mailbox   *topology.Mailbox
	RequestID *userrequest.ID
}

// Model is the capability interface the driver iterates: every
// concrete user model (simple, email, ...) implements it.
type Model interface {
	SetLimit(limit uint64)
	Limit() uint64
	CurrentTime() uint64
	WithTimestampSampler(h TimestampSampler)
	WithSizeSampler(h TimestampSampler)
	SetContacts(contacts []uint32)
	WithReceiver(r *queue.Queue)
	AddSender(peerID uint32, s *queue.Queue)
	DropSenders()
	ModelKind() Kind
	Update(timestamp uint64)
	GuardFor(topoIdx int) (*mixnode.Mixnode, bool)
	MailboxFor(topoIdx int) (topology.Mailbox, bool)
	// Next produces the next emission. It returns ok=false once the
	// model has no more timestamps to yield below its limit.
	Next() (Emission, bool)
	// NextRequest drains one received request from this user's inbox,
	// for the driver's receive-side pass. ClientOnly models never
	// populate an inbox and always return ok=false.
	NextRequest() (userrequest.Request, bool)
}

// TimestampSampler is the subset of *histogram.Histogram a user model
// needs: drawing one value proportional to its empirical frequency.
// The interface lets usermodel avoid importing the histogram package
// directly and keeps the two packages decoupled.
type TimestampSampler interface {
	Sample(rng *rand.Rand) uint64
	// Period returns the histogram's covered span in seconds, used by
	// the email model to advance its clock on every batch refill.
	Period() uint64
	// SamplingCount returns the number of draws expected per Period,
	// i.e. how many requests one batch refill should produce.
	SamplingCount() uint32
}

// Info is the per-user, per-run state shared by every concrete model:
// guard bookkeeping, peer channels and the chosen contacts list.
type Info struct {
	UserID  uint32
	Configs []*topology.TopologyConfig
	Epoch   uint64

	useGuards     bool
	guards        []mixnode.Mixnode
	selectedGuard *mixnode.Mixnode
	currIdx       int

	senders  map[uint32]*queue.Queue
	receiver *queue.Queue

	contactsList []uint32
}

// New builds per-user state for userid against configs (sorted
// ascending by epoch index), using epochSeconds to resolve a
// timestamp to a topology index. When useGuards is true, it samples
// constants.GuardsSampleSize guard candidates from configs[0]'s
// GuardsLayer and selects the first as the initial preferred guard.
func New(userid uint32, configs []*topology.TopologyConfig, epochSeconds uint64, useGuards bool, rng *rand.Rand) (*Info, error) {
	info := &Info{
		UserID:    userid,
		Configs:   configs,
		Epoch:     epochSeconds,
		useGuards: useGuards,
		senders:   make(map[uint32]*queue.Queue),
	}

	if useGuards && len(configs) > 0 {
		guards, err := configs[0].SampleGuards(constants.GuardsLayer, constants.GuardsSampleSize, rng)
		if err != nil {
			return nil, err
		}
		info.guards = guards
		if len(info.guards) > 0 {
			info.selectedGuard = &info.guards[0]
		}
	}

	return info, nil
}

// SetContacts installs the userids this user will send requests to.
func (info *Info) SetContacts(contacts []uint32) {
	info.contactsList = contacts
}

// Contacts returns the chosen contacts list.
func (info *Info) Contacts() []uint32 {
	return info.contactsList
}

// AddSender installs the outbound queue towards peerID.
func (info *Info) AddSender(peerID uint32, s *queue.Queue) {
	info.senders[peerID] = s
}

// Sender returns the outbound queue towards peerID, if one was
// installed.
func (info *Info) Sender(peerID uint32) (*queue.Queue, bool) {
	s, ok := info.senders[peerID]
	return s, ok
}

// DropSenders releases this user's references to its outbound queues
// once its send pass is done. It does not close them: a queue is
// shared by every user that has its owner as a contact, so closing it
// is the driver's job, done exactly once per queue after every user's
// send pass has completed.
func (info *Info) DropSenders() {
	for id := range info.senders {
		delete(info.senders, id)
	}
}

// WithReceiver installs this user's inbound queue.
func (info *Info) WithReceiver(r *queue.Queue) {
	info.receiver = r
}

// NextRequest pulls the next received request off this user's inbox,
// reporting false once the queue is closed and drained.
func (info *Info) NextRequest() (userrequest.Request, bool) {
	if info.receiver == nil {
		return userrequest.Request{}, false
	}
	return info.receiver.Recv()
}

// SelectedGuard returns the currently preferred guard, or nil if
// guards are disabled or none has been selected yet.
func (info *Info) SelectedGuard() *mixnode.Mixnode {
	return info.selectedGuard
}

// Update advances the guard state to the topology active at
// messageTiming. It is idempotent for any timing that resolves to the
// same topology index as the last call: guard selection changes at
// most once per topology index.
func (info *Info) Update(messageTiming uint64, rng *rand.Rand) {
	if !info.useGuards || info.Epoch == 0 {
		return
	}
	idx := int(messageTiming / info.Epoch)
	if idx <= info.currIdx {
		return
	}
	info.currIdx = idx
	if idx < 0 || idx >= len(info.Configs) {
		return
	}
	topo := info.Configs[idx]

	for i := range info.guards {
		if !topo.IsOffline(info.guards[i].MixID) {
			info.selectedGuard = &info.guards[i]
			return
		}
	}

	// Every known guard is offline this epoch: extend the list.
	extra, err := topo.SampleGuards(constants.GuardsLayer, constants.GuardsSampleSizeExtend, rng)
	if err != nil || len(extra) == 0 {
		return
	}
	oldLen := len(info.guards)
	info.guards = append(info.guards, extra...)
	info.selectedGuard = &info.guards[oldLen]
}

// GuardFor returns the first known guard that is online at topoIdx,
// without mutating guard state -- extension only happens from Update.
func (info *Info) GuardFor(topoIdx int) (*mixnode.Mixnode, bool) {
	if !info.useGuards || topoIdx < 0 || topoIdx >= len(info.Configs) {
		return nil, false
	}
	topo := info.Configs[topoIdx]
	for i := range info.guards {
		if !topo.IsOffline(info.guards[i].MixID) {
			return &info.guards[i], true
		}
	}
	return nil, false
}

// MailboxFor returns the mailbox assigned to this user in the
// topology active at topoIdx.
func (info *Info) MailboxFor(topoIdx int) (topology.Mailbox, bool) {
	if topoIdx < 0 || topoIdx >= len(info.Configs) {
		return topology.Mailbox{}, false
	}
	return info.Configs[topoIdx].GetMailbox(info.UserID)
}
