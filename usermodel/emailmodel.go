// emailmodel.go - asynchronous histogram-driven user model.
// Copyright (C) 2018  David Stainton.
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

package usermodel

import (
	"fmt"
	"math/rand/v2"
	"sort"

	"github.com/frochet/routesim/mixnode"
	"github.com/frochet/routesim/queue"
	"github.com/frochet/routesim/topology"
	"github.com/frochet/routesim/userrequest"
)

// EmailModel maintains a batch of future requests drawn from a
// timestamp histogram, dispatches one clone of each to its peer's
// inbox as the batch is built, and iterates the resulting packet
// stream in non-decreasing timestamp order. It both sends and
// receives, so it is a BothPeers model.
type EmailModel struct {
	totalUsers uint32
	epoch      uint64

	currentTime uint64
	limit       uint64

	timestampSampler TimestampSampler
	sizeSampler      TimestampSampler

	batch      []userrequest.Request
	currentReq *userrequest.Request

	info *Info
	rng  *rand.Rand
}

// NewEmail builds an asynchronous model over info for a population of
// totalUsers, with topology epochs of epochSeconds.
func NewEmail(info *Info, totalUsers uint32, epochSeconds uint64, rng *rand.Rand) *EmailModel {
	return &EmailModel{
		totalUsers: totalUsers,
		epoch:      epochSeconds,
		info:       info,
		rng:        rng,
	}
}

func (m *EmailModel) SetLimit(limit uint64) { m.limit = limit }
func (m *EmailModel) Limit() uint64         { return m.limit }
func (m *EmailModel) CurrentTime() uint64   { return m.currentTime }

func (m *EmailModel) WithTimestampSampler(h TimestampSampler) { m.timestampSampler = h }
func (m *EmailModel) WithSizeSampler(h TimestampSampler)      { m.sizeSampler = h }

func (m *EmailModel) SetContacts(contacts []uint32)  { m.info.SetContacts(contacts) }
func (m *EmailModel) WithReceiver(r *queue.Queue)     { m.info.WithReceiver(r) }
func (m *EmailModel) AddSender(id uint32, s *queue.Queue) {
	m.info.AddSender(id, s)
}
func (m *EmailModel) DropSenders() { m.info.DropSenders() }

func (m *EmailModel) ModelKind() Kind { return BothPeers }

func (m *EmailModel) Update(timestamp uint64) {
	m.info.Update(timestamp, m.rng)
}

func (m *EmailModel) GuardFor(topoIdx int) (*mixnode.Mixnode, bool) {
	return m.info.GuardFor(topoIdx)
}

func (m *EmailModel) MailboxFor(topoIdx int) (topology.Mailbox, bool) {
	return m.info.MailboxFor(topoIdx)
}

// NextRequest exposes the per-user inbox drain used by the driver's
// receive-side pass.
func (m *EmailModel) NextRequest() (userrequest.Request, bool) {
	return m.info.NextRequest()
}

// initList draws NbrSampling future requests, dispatches each to its
// chosen contact's inbox, and sorts the batch descending by
// requestTime so that repeated pop-from-end yields increasing times.
func (m *EmailModel) initList() {
	contacts := m.info.Contacts()
	if len(contacts) == 0 || m.timestampSampler == nil || m.sizeSampler == nil {
		m.currentTime = m.limit
		return
	}

	n := int(m.timestampSampler.SamplingCount())
	if n <= 0 {
		n = 1
	}

	for i := 0; i < n; i++ {
		contact := contacts[m.rng.IntN(len(contacts))]
		reqTime := m.timestampSampler.Sample(m.rng) + m.currentTime
		if reqTime >= m.limit {
			continue
		}
		topoIdx := uint16(reqTime / m.epoch)
		size := int64(m.sizeSampler.Sample(m.rng))

		peers := userrequest.Peers{Sender: m.info.UserID, Receiver: contact}
		req := userrequest.New(reqTime, size, topoIdx, peers)

		m.batch = append(m.batch, req)

		sender, ok := m.info.Sender(contact)
		if !ok {
			panic(fmt.Sprintf("usermodel: no outbound queue registered for contact %d", contact))
		}
		sender.Send(req)
	}

	sort.Slice(m.batch, func(i, j int) bool {
		return m.batch[i].Time > m.batch[j].Time
	})

	m.currentTime += m.timestampSampler.Period() + 1
}

// popNext pops the request with the smallest remaining requestTime
// (the last element, since the batch is sorted descending).
func (m *EmailModel) popNext() (userrequest.Request, bool) {
	if len(m.batch) == 0 {
		return userrequest.Request{}, false
	}
	last := len(m.batch) - 1
	req := m.batch[last]
	m.batch = m.batch[:last]
	return req, true
}

// Next consumes packets from the current request's stream, refilling
// the batch from the histogram once it is exhausted, until the limit
// is reached.
func (m *EmailModel) Next() (Emission, bool) {
	for {
		if m.currentReq == nil {
			if len(m.batch) == 0 {
				if m.currentTime >= m.limit {
					return Emission{}, false
				}
				m.initList()
				if len(m.batch) == 0 {
					return Emission{}, false
				}
			}
			req, ok := m.popNext()
			if !ok {
				return Emission{}, false
			}
			m.currentReq = &req
		}

		ts, ok := m.currentReq.Next()
		if !ok {
			m.currentReq = nil
			continue
		}
		if ts >= m.limit {
			m.currentReq = nil
			continue
		}

		m.Update(ts)
		topoIdx := int(ts / m.epoch)
		guard, _ := m.GuardFor(topoIdx)
		var mbx *topology.Mailbox
		if box, ok := m.MailboxFor(topoIdx); ok {
			mbx = &box
		}
		id := m.currentReq.ID
		return Emission{
			Timestamp: ts,
			Guard:     guard,
			Mailbox:   mbx,
			RequestID: &id,
		}, true
	}
}
