package world

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"horizon.run/internal/engine/asset"
	"horizon.run/internal/engine/instance"
	"horizon.run/internal/engine/scene"
	"horizon.run/internal/engine/spawn"
	"horizon.run/internal/engine/tuning"
)

// Options are the collaborator hookups for an Engine. Host is required;
// everything else may be nil.
type Options struct {
	Host   scene.Host
	Env    scene.EnvironmentSink
	Events EventSink
	Logger *log.Logger

	// OnEntityRemoved is told about every placed entity when its segment
	// retires, so the gameplay collaborator can drop colliders etc.
	OnEntityRemoved func(EntityRef)
}

// Engine is the per-frame core: registry poll, spawn pass, retire pass,
// ambient reconcile, LOD update, in that order, every tick. All state is
// touched only from the goroutine calling Step (or the Run loop).
type Engine struct {
	cfg tuning.Tuning

	reg       *asset.Registry
	instances *instance.Manager
	pool      *Pool
	streamer  *Streamer
	biomes    *BiomeSelector
	ambient   *Ambient // nil without an environment sink
	sched     *spawn.Scheduler

	events EventSink
	logger *log.Logger
	onGone func(EntityRef)

	tick   uint64
	viewer mgl32.Vec3
	stats  Stats

	inbox chan mgl32.Vec3
	stop  chan struct{}
}

func New(cfg tuning.Tuning, reg *asset.Registry, opts Options) (*Engine, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("tuning: %w", err)
	}
	if opts.Host == nil {
		return nil, fmt.Errorf("engine: nil scene host")
	}

	lod := instance.Config{
		Distances:  cfg.LODDistances,
		Ratios:     cfg.LODRatios,
		Cull:       cfg.CullDistance,
		Hysteresis: cfg.HysteresisMargin(),
	}
	mgr, err := instance.NewManager(opts.Host, reg, lod, cfg.MaxWorldSize, opts.Logger)
	if err != nil {
		return nil, err
	}

	diff := spawn.NewDifficulty(cfg.DifficultyGrowthRate, cfg.DifficultyMax)
	sched, err := spawn.NewScheduler(spawn.Config{
		Seed:                   cfg.Seed,
		Lanes:                  cfg.Lanes,
		BaseObstacleChance:     cfg.BaseObstacleChance,
		MaxObstaclesPerSegment: cfg.MaxObstaclesPerSegment,
		MinSpacing:             cfg.ObstacleMinSpacing,
		CollectibleChance:      cfg.CollectibleChance,
		SceneryPerSegment:      cfg.SceneryCount(),
	}, diff)
	if err != nil {
		return nil, err
	}

	pool, err := NewPool(cfg.PoolCapacity, cfg.SegmentWidth)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		cfg:       cfg,
		reg:       reg,
		instances: mgr,
		pool:      pool,
		streamer:  NewStreamer(pool, cfg.TilesAhead, cfg.TilesBehind, cfg.SegmentLength, cfg.SafeSegments),
		biomes:    NewBiomeSelector(cfg.HazardChance, cfg.MaxHazardStreak, cfg.Seed^0x51ab3),
		sched:     sched,
		events:    opts.Events,
		logger:    opts.Logger,
		onGone:    opts.OnEntityRemoved,
		inbox:     make(chan mgl32.Vec3, 64),
		stop:      make(chan struct{}),
	}
	if opts.Env != nil {
		e.ambient = NewAmbient(opts.Env)
	}
	reg.SetFailFunc(func(name string, err error) {
		e.stats.TemplateFailures++
		e.emit(Event{"t": e.tick, "type": "TEMPLATE_FAILED", "name": name, "err": err.Error()})
	})

	// Prime the window at the origin so the first tilesAhead segments exist
	// before the viewer ever moves.
	e.spawnPass(0)
	return e, nil
}

// Step advances the engine one frame for the given viewer position.
func (e *Engine) Step(viewer mgl32.Vec3) {
	e.tick++
	e.viewer = viewer
	if viewer.Z() > e.stats.Distance {
		e.stats.Distance = viewer.Z()
	}

	e.reg.Poll()
	e.sched.Difficulty().Advance(1.0 / float64(e.cfg.TickRateHz))

	// Spawn strictly before retire; a segment spawned this tick is fully
	// populated before the LOD update below can see it.
	e.spawnPass(viewer.Z())
	e.retirePass(viewer.Z())

	if e.ambient != nil {
		biome := BiomeNormal
		if seg := e.streamer.SegmentAt(viewer.Z()); seg != nil {
			biome = seg.Biome
		}
		if e.ambient.Update(biome) {
			e.stats.BiomeTransitions++
			e.emit(Event{"t": e.tick, "type": "BIOME_SHIFT", "biome": biome.String()})
		}
	}

	e.instances.UpdateLOD(viewer)
	e.stats.Ticks = e.tick
}

func (e *Engine) spawnPass(viewerZ float32) {
	spawned, grows := e.streamer.SpawnPass(viewerZ, func(seg *Segment, populate bool) {
		seg.Biome = e.biomes.Choose()
		if populate {
			e.populate(seg)
		}
	})
	e.stats.SegmentsSpawned += int64(spawned)
	if grows > 0 {
		e.stats.PoolGrows += int64(grows)
		e.emit(Event{"t": e.tick, "type": "POOL_GROW", "size": e.pool.Size()})
	}
}

func (e *Engine) retirePass(viewerZ float32) {
	retired := e.streamer.RetirePass(viewerZ, e.retire)
	e.stats.SegmentsRetired += int64(retired)
}

func (e *Engine) populate(seg *Segment) {
	hazard := seg.Biome == BiomeHazard
	for i, p := range e.sched.Plan(seg.Index, seg.Length, hazard) {
		name := e.templateFor(p.Kind, hazard, seg.Index, i)
		if name == "" {
			continue
		}
		pos := mgl32.Vec3{e.laneX(p.Lane), 0, seg.Position - seg.Length + p.Offset}
		id, _ := e.instances.Create(name, seg.Owner(), pos, 0)
		seg.addEntity(EntityRef{Kind: p.Kind, Instance: id, Lane: p.Lane, Offset: p.Offset})
		switch p.Kind {
		case spawn.KindObstacle, spawn.KindHazard:
			e.stats.ObstaclesPlaced++
		case spawn.KindCollectible:
			e.stats.CollectiblesPlaced++
		case spawn.KindScenery:
			e.stats.SceneryPlaced++
		}
	}
}

// retire releases everything a segment holds, then returns it to the pool.
// The release path is safe against instances whose templates are still
// pending: the registry's late completion no-ops against released ids.
func (e *Engine) retire(seg *Segment) {
	if e.onGone != nil {
		for _, ref := range seg.entities {
			e.onGone(ref)
		}
	}
	e.instances.ReleaseOwned(seg.Owner())
	e.pool.Release(seg)
}

// templateFor picks a concrete template name for a placement. Deterministic
// in (segment index, placement ordinal) so replays match.
func (e *Engine) templateFor(k spawn.Kind, hazard bool, segIndex int64, ordinal int) string {
	pick := func(list []string) string {
		if len(list) == 0 {
			return ""
		}
		return list[int(uint64(segIndex)*31+uint64(ordinal))%len(list)]
	}
	switch k {
	case spawn.KindObstacle:
		return pick(e.cfg.ObstacleTemplates)
	case spawn.KindHazard:
		if hazard {
			return pick(e.cfg.HazardTemplates)
		}
		return pick(e.cfg.ObstacleTemplates)
	case spawn.KindCollectible:
		return e.cfg.CollectibleTemplate
	case spawn.KindScenery:
		return pick(e.cfg.SceneryTemplates)
	default:
		return ""
	}
}

// laneX maps a lane column to a world-space X. Lanes are centered on the
// travel axis; out-of-range lanes land on the scenery strips.
func (e *Engine) laneX(lane int) float32 {
	laneWidth := e.cfg.SegmentWidth / float32(e.cfg.Lanes)
	return (float32(lane) - float32(e.cfg.Lanes-1)/2) * laneWidth
}

func (e *Engine) emit(ev Event) {
	if e.events == nil {
		return
	}
	if err := e.events.WriteEvent(ev); err != nil && e.logger != nil {
		e.logger.Printf("event sink: %v", err)
	}
}

// Run hosts the engine on its own fixed-rate loop: viewer positions arrive
// on the inbox and the latest one wins each tick. For hosts with their own
// render loop, call Step directly instead.
func (e *Engine) Run(ctx context.Context) error {
	interval := time.Second / time.Duration(e.cfg.TickRateHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	viewer := e.viewer
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-e.stop:
			return nil
		case v := <-e.inbox:
			viewer = v
		case <-ticker.C:
			viewer = drainLatest(e.inbox, viewer)
			e.Step(viewer)
		}
	}
}

// drainLatest empties the inbox and keeps the most recent position; stale
// ones are worthless once a tick fires.
func drainLatest(ch <-chan mgl32.Vec3, cur mgl32.Vec3) mgl32.Vec3 {
	for {
		select {
		case v := <-ch:
			cur = v
		default:
			return cur
		}
	}
}

func (e *Engine) Stop() { close(e.stop) }

// ViewerInbox is where the position source writes each tick.
func (e *Engine) ViewerInbox() chan<- mgl32.Vec3 { return e.inbox }

func (e *Engine) Stats() Stats                  { return e.stats }
func (e *Engine) Instances() *instance.Manager  { return e.instances }
func (e *Engine) ActiveSegments() []*Segment    { return e.streamer.Active() }
func (e *Engine) PoolSize() int                 { return e.pool.Size() }
func (e *Engine) Difficulty() float64           { return e.sched.Difficulty().Level() }
