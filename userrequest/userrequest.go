// userrequest.go - the cross-user request unit and its packet stream.
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

// Package userrequest models one user-to-user request: a stable id, a
// first-packet timestamp, and a lazy stream of fixed-size packets that
// both the sender and the receiver iterate independently.
package userrequest

import (
	"encoding/binary"

	"github.com/dchest/siphash"

	"github.com/frochet/routesim/constants"
)

// requestKeyK0 and requestKeyK1 are the fixed 128-bit SipHash key used
// to derive request ids. The key need not be secret: request ids only
// have to be stable within one run, not unforgeable, since the
// simulator has no adversary model over its own bookkeeping.
const (
	requestKeyK0 uint64 = 0x646f6e2774706c6e // "don'tpln"
	requestKeyK1 uint64 = 0x6b6e6f77776861e9 // "knowwha.."
)

// ID is a 128-bit SipHash request identifier, split into two 64-bit
// halves for easy storage and comparison.
type ID struct {
	Hi uint64
	Lo uint64
}

// Peers identifies the two endpoints of one request.
type Peers struct {
	Sender   uint32
	Receiver uint32
}

// NewID derives a request id from the triple (requestTime,
// requestSizeOriginal, peers). Two requests built from equal triples
// hash equal.
func NewID(requestTime uint64, requestSizeOriginal int64, peers Peers) ID {
	var buf [28]byte
	binary.LittleEndian.PutUint64(buf[0:8], requestTime)
	binary.LittleEndian.PutUint64(buf[8:16], uint64(requestSizeOriginal))
	binary.LittleEndian.PutUint32(buf[16:20], peers.Sender)
	binary.LittleEndian.PutUint32(buf[20:24], peers.Receiver)
	// buf[24:28] left zero, keeping the digest input at a fixed width.

	hi, lo := siphash.Hash128(requestKeyK0, requestKeyK1, buf[:])
	return ID{Hi: hi, Lo: lo}
}

// Request is the unit of cross-user communication: a stable id, its
// first-packet timestamp, the bytes still to be packetized, and the
// topology index under which it was created. It is cloned verbatim
// into the receiver's inbox; sender and receiver each iterate their
// own copy's packet stream independently via Next.
type Request struct {
	ID        ID
	Peers     Peers
	Time      uint64
	TopoIdx   uint16
	remaining int64
}

// New builds a Request of requestSize bytes sent at requestTime under
// topoIdx, between peers.
func New(requestTime uint64, requestSize int64, topoIdx uint16, peers Peers) Request {
	return Request{
		ID:        NewID(requestTime, requestSize, peers),
		Peers:     peers,
		Time:      requestTime,
		TopoIdx:   topoIdx,
		remaining: requestSize,
	}
}

// Next yields the next packet's timestamp in this request's burst, and
// reports whether a packet was produced. The iterator subtracts
// PayloadSize from the remaining size and yields while remaining is
// still non-negative, so requestSize bytes expand into
// floor(requestSize/PayloadSize)+1 packets; a zero-byte request
// therefore yields exactly one packet before exhausting.
func (r *Request) Next() (uint64, bool) {
	if r.remaining < 0 {
		return 0, false
	}
	t := r.Time
	r.remaining -= constants.PayloadSize
	return t, true
}

// Exhausted reports whether every packet of this request has already
// been yielded by Next.
func (r *Request) Exhausted() bool {
	return r.remaining < 0
}
