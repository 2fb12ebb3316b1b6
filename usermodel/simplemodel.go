// simplemodel.go - synchronous uniform inter-arrival user model.
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

package usermodel

import (
	"math/rand/v2"

	"github.com/frochet/routesim/constants"
	"github.com/frochet/routesim/mixnode"
	"github.com/frochet/routesim/queue"
	"github.com/frochet/routesim/topology"
	"github.com/frochet/routesim/userrequest"
)

// SimpleModel samples a uniform [INTERVAL_MIN, INTERVAL_MAX) second
// gap between messages; it never sends a request payload to another
// user, so it is a ClientOnly model.
type SimpleModel struct {
	currentTime uint64
	limit       uint64
	rng         *rand.Rand
	info        *Info
}

// NewSimple builds a synchronous model over info, drawing inter-arrival
// gaps with rng.
func NewSimple(info *Info, rng *rand.Rand) *SimpleModel {
	return &SimpleModel{info: info, rng: rng}
}

func (m *SimpleModel) SetLimit(limit uint64) { m.limit = limit }
func (m *SimpleModel) Limit() uint64         { return m.limit }
func (m *SimpleModel) CurrentTime() uint64   { return m.currentTime }

func (m *SimpleModel) WithTimestampSampler(TimestampSampler) {}
func (m *SimpleModel) WithSizeSampler(TimestampSampler)      {}

func (m *SimpleModel) SetContacts(contacts []uint32)     { m.info.SetContacts(contacts) }
func (m *SimpleModel) WithReceiver(r *queue.Queue)        { m.info.WithReceiver(r) }
func (m *SimpleModel) AddSender(id uint32, s *queue.Queue) { m.info.AddSender(id, s) }
func (m *SimpleModel) DropSenders()                       {}

func (m *SimpleModel) ModelKind() Kind { return ClientOnly }

// NextRequest never produces anything: a ClientOnly model has no inbox.
func (m *SimpleModel) NextRequest() (userrequest.Request, bool) {
	return userrequest.Request{}, false
}

func (m *SimpleModel) Update(timestamp uint64) {
	m.info.Update(timestamp, m.rng)
}

func (m *SimpleModel) GuardFor(topoIdx int) (*mixnode.Mixnode, bool) {
	return m.info.GuardFor(topoIdx)
}

func (m *SimpleModel) MailboxFor(topoIdx int) (topology.Mailbox, bool) {
	return m.info.MailboxFor(topoIdx)
}

// Next draws the next inter-arrival gap. If the resulting time is
// still under the limit, it advances guard state and yields a
// ClientOnly emission carrying no request id and no mailbox.
func (m *SimpleModel) Next() (Emission, bool) {
	gap := constants.IntervalMin + m.rng.IntN(constants.IntervalMax-constants.IntervalMin)
	m.currentTime += uint64(gap)
	if m.currentTime >= m.limit {
		return Emission{}, false
	}
	m.Update(m.currentTime)
	return Emission{
		Timestamp: m.currentTime,
		Guard:     m.info.SelectedGuard(),
	}, true
}
