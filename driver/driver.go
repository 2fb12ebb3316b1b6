// driver.go - epoch routing, the parallel per-user simulation loop,
// and output emission.
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

// Package driver wires per-user models together, runs the two-pass
// parallel simulation (send, then receive), and emits one output
// record per observed packet.
package driver

import (
	"context"
	"fmt"
	"math/rand/v2"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/frochet/routesim/constants"
	"github.com/frochet/routesim/histogram"
	"github.com/frochet/routesim/metrics"
	"github.com/frochet/routesim/mixnode"
	"github.com/frochet/routesim/output"
	"github.com/frochet/routesim/queue"
	"github.com/frochet/routesim/topology"
	"github.com/frochet/routesim/userrequest"
	"github.com/frochet/routesim/usermodel"
)

// ModelKind selects which concrete user model every simulated user
// runs under for one invocation of Run.
type ModelKind string

const (
	// Simple selects the synchronous uniform inter-arrival model.
	Simple ModelKind = "simple"
	// Email selects the histogram-driven asynchronous model.
	Email ModelKind = "email"
)

// Config is everything one simulation run needs.
type Config struct {
	Users     uint32
	Configs   []*topology.TopologyConfig // sorted ascending by Epoch
	Days      int
	Epoch     uint64 // seconds per topology epoch
	Contacts  int
	UseGuards bool
	Model     ModelKind

	TimestampHist *histogram.Histogram // required for Email
	SizeHist      *histogram.Histogram // required for Email

	Sink    *output.Sink
	Metrics *metrics.Collector // optional
}

// Runable owns the wired-up per-user state for one run and executes
// it in two parallel passes.
type Runable struct {
	cfg    Config
	models []usermodel.Model
	infos  []*usermodel.Info
	rngs   []*rand.Rand
	queues []*queue.Queue // one inbox per user; owned and closed by the driver, never by a sender
}

// limitSeconds converts Days into the timestamp ceiling every user
// model is iterated up to.
func (c Config) limitSeconds() uint64 {
	return uint64(c.Days) * constants.SecondsPerDay
}

// Init wires totalUsers models (chosen by cfg.Model), samples each
// user's contacts from a shared die, and installs the per-user
// channel mesh: one receiver per user, one sender clone into every
// contact (plus a self-loop).
func Init(cfg Config) (*Runable, error) {
	if cfg.Contacts > int(cfg.Users) {
		return nil, fmt.Errorf("driver: contacts (%d) must be <= users (%d)", cfg.Contacts, cfg.Users)
	}
	if uint64(len(cfg.Configs))*cfg.Epoch <= cfg.limitSeconds() {
		return nil, fmt.Errorf("driver: topology coverage (%d epochs * %ds) does not cover the requested %d days",
			len(cfg.Configs), cfg.Epoch, cfg.Days)
	}

	r := &Runable{cfg: cfg}
	seedRNG := rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))

	r.infos = make([]*usermodel.Info, cfg.Users)
	r.models = make([]usermodel.Model, cfg.Users)
	r.rngs = make([]*rand.Rand, cfg.Users)

	for uid := uint32(0); uid < cfg.Users; uid++ {
		rng := rand.New(rand.NewPCG(seedRNG.Uint64(), seedRNG.Uint64()))
		r.rngs[uid] = rng
		info, err := usermodel.New(uid, cfg.Configs, cfg.Epoch, cfg.UseGuards, rng)
		if err != nil {
			return nil, fmt.Errorf("driver: building user %d: %w", uid, err)
		}
		r.infos[uid] = info

		var model usermodel.Model
		switch cfg.Model {
		case Simple:
			model = usermodel.NewSimple(info, rng)
		case Email:
			if cfg.TimestampHist == nil || cfg.SizeHist == nil {
				return nil, fmt.Errorf("driver: email model requires both timestamp and size histograms")
			}
			em := usermodel.NewEmail(info, cfg.Users, cfg.Epoch, rng)
			em.WithTimestampSampler(cfg.TimestampHist)
			em.WithSizeSampler(cfg.SizeHist)
			model = em
		default:
			return nil, fmt.Errorf("driver: unknown user model %q", cfg.Model)
		}
		model.SetLimit(cfg.limitSeconds())
		r.models[uid] = model
	}

	r.wireContacts(seedRNG)
	r.wireChannels()

	return r, nil
}

// wireContacts draws cfg.Contacts distinct peers (excluding self) for
// every user from one shared die, so the contact graph is built
// deterministically with respect to a single RNG stream before any
// goroutine is launched.
func (r *Runable) wireContacts(die *rand.Rand) {
	n := int(r.cfg.Users)
	for uid := uint32(0); uid < r.cfg.Users; uid++ {
		if r.cfg.Contacts == 0 || n <= 1 {
			continue
		}
		seen := map[uint32]bool{uid: true}
		contacts := make([]uint32, 0, r.cfg.Contacts)
		for len(contacts) < r.cfg.Contacts {
			peer := uint32(die.IntN(n))
			if seen[peer] {
				continue
			}
			seen[peer] = true
			contacts = append(contacts, peer)
		}
		r.models[uid].SetContacts(contacts)
	}
}

// wireChannels installs one unbounded inbox per user and clones the
// reference into every contact's outbound map, plus a self-loop. Each
// inbox is a single *queue.Queue shared by every sender that has its
// owner as a contact; the driver -- and only the driver -- closes it,
// exactly once, after pass 1 completes (see Run).
func (r *Runable) wireChannels() {
	r.queues = make([]*queue.Queue, r.cfg.Users)
	for uid := range r.queues {
		r.queues[uid] = queue.New()
		r.models[uid].WithReceiver(r.queues[uid])
	}
	for uid := uint32(0); uid < r.cfg.Users; uid++ {
		r.models[uid].AddSender(uid, r.queues[uid])
		for _, contact := range r.infos[uid].Contacts() {
			r.models[uid].AddSender(contact, r.queues[contact])
		}
	}
}

// Run executes pass 1 (send) to completion for every user, then pass
// 2 (receive) for every BothPeers user, emitting one output.Record per
// observed packet. Both passes are parallel across users, bounded to
// GOMAXPROCS concurrent tasks.
func (r *Runable) Run(ctx context.Context) error {
	start := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))

	for uid := uint32(0); uid < r.cfg.Users; uid++ {
		uid := uid
		g.Go(func() error {
			return r.runSendPass(gctx, uid)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	// Every user's send pass has completed, so no further sends can
	// reach any inbox: close each exactly once here, rather than
	// leaving it to senders that each hold their own reference to a
	// queue shared with many other users.
	for _, q := range r.queues {
		q.Close()
	}

	g2, gctx2 := errgroup.WithContext(ctx)
	g2.SetLimit(runtime.GOMAXPROCS(0))
	for uid := uint32(0); uid < r.cfg.Users; uid++ {
		uid := uid
		if r.models[uid].ModelKind() != usermodel.BothPeers {
			continue
		}
		g2.Go(func() error {
			return r.runReceivePass(gctx2, uid)
		})
	}
	if err := g2.Wait(); err != nil {
		return err
	}

	if r.cfg.Metrics != nil {
		r.cfg.Metrics.RunDuration.Set(time.Since(start).Seconds())
	}
	return r.cfg.Sink.Flush()
}

func (r *Runable) runSendPass(ctx context.Context, uid uint32) error {
	model := r.models[uid]
	defer func() {
		if model.ModelKind() == usermodel.BothPeers {
			model.DropSenders()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		em, ok := model.Next()
		if !ok {
			break
		}
		if err := r.emit(uid, em); err != nil {
			return err
		}
	}

	if r.cfg.Metrics != nil {
		r.cfg.Metrics.UsersCompleted.WithLabelValues("send").Inc()
	}
	return nil
}

func (r *Runable) runReceivePass(ctx context.Context, uid uint32) error {
	model := r.models[uid]
	limit := r.cfg.limitSeconds()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		req, ok := model.NextRequest()
		if !ok {
			break
		}
		topoIdx := int(req.TopoIdx)
		guard, _ := model.GuardFor(topoIdx)
		mbx, hasMbx := model.MailboxFor(topoIdx)

		for {
			ts, ok := req.Next()
			if !ok {
				break
			}
			if ts >= limit {
				continue
			}
			if err := r.emitReceived(uid, req, ts, topoIdx, guard, mbx, hasMbx); err != nil {
				return err
			}
		}
	}

	if r.cfg.Metrics != nil {
		r.cfg.Metrics.UsersCompleted.WithLabelValues("receive").Inc()
	}
	return nil
}

// emit resolves one send-side emission to a full path and writes the
// corresponding output record.
func (r *Runable) emit(uid uint32, em usermodel.Emission) error {
	topoIdx := int(em.Timestamp / r.cfg.Epoch)
	if topoIdx < 0 || topoIdx >= len(r.cfg.Configs) {
		return fmt.Errorf("driver: timestamp %d resolves to out-of-range topology index %d", em.Timestamp, topoIdx)
	}
	topo := r.cfg.Configs[topoIdx]

	path, err := topo.SamplePath(r.rngs[uid], em.Guard)
	if err != nil {
		return err
	}

	rec := output.Record{
		Timestamp: em.Timestamp,
		UserID:    uid,
	}
	for i, hop := range path {
		rec.Path[i] = hop.MixID
	}
	if em.Mailbox != nil {
		rec.MailboxID = em.Mailbox.MixID
		rec.HasMailbox = true
	}
	if em.RequestID != nil {
		rec.RequestID = fmt.Sprintf("%016x%016x", em.RequestID.Hi, em.RequestID.Lo)
	}
	rec.IsMalicious = topology.IsPathMalicious(path[:], em.Mailbox)

	if err := r.cfg.Sink.Emit(rec); err != nil {
		return err
	}
	if r.cfg.Metrics != nil {
		r.cfg.Metrics.RecordsEmitted.Inc()
	}
	return nil
}

// emitReceived resolves one receive-side packet (already known to
// belong to req, addressed via guard/mbx resolved at req's topology
// index) to a full path and writes the corresponding output record.
func (r *Runable) emitReceived(uid uint32, req userrequest.Request, ts uint64, topoIdx int, guard *mixnode.Mixnode, mbx topology.Mailbox, hasMbx bool) error {
	if topoIdx < 0 || topoIdx >= len(r.cfg.Configs) {
		return fmt.Errorf("driver: request topology index %d out of range", topoIdx)
	}
	topo := r.cfg.Configs[topoIdx]

	path, err := topo.SamplePath(r.rngs[uid], guard)
	if err != nil {
		return err
	}

	rec := output.Record{
		Timestamp: ts,
		UserID:    uid,
		RequestID: fmt.Sprintf("%016x%016x", req.ID.Hi, req.ID.Lo),
	}
	for i, hop := range path {
		rec.Path[i] = hop.MixID
	}
	var mbxPtr *topology.Mailbox
	if hasMbx {
		rec.MailboxID = mbx.MixID
		rec.HasMailbox = true
		mbxPtr = &mbx
	}
	rec.IsMalicious = topology.IsPathMalicious(path[:], mbxPtr)

	if err := r.cfg.Sink.Emit(rec); err != nil {
		return err
	}
	if r.cfg.Metrics != nil {
		r.cfg.Metrics.RecordsEmitted.Inc()
	}
	return nil
}
