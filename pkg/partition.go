package dfsblockcache

// partition.go implements PackExtPartitionedTable: a router that fans a
// logical cache out across several independent ClockBlockCacheTable
// instances, one per partition id, so that (for example) .pack blocks never
// evict .idx blocks regardless of access pattern. Routing is keyed on the
// stream's ExtTag via Config.PartitionMap; partitions not named in the map
// share a default catch-all sub-table.
//
// © 2025 dfsblockcache authors. MIT License.

import (
	"fmt"
	"sort"
)

const defaultPartitionID = -1

// PackExtPartitionedTable routes reads and writes to one of several
// sub-tables based on the stream's extension tag.
type PackExtPartitionedTable struct {
	name string
	cfg  *Config

	order   []int                  // stable partition-id iteration order
	tables  map[int]*ClockBlockCacheTable
	routing map[ExtTag]int
}

// NewPackExtPartitionedTable builds one sub-table per distinct partition id
// named in cfg.PartitionMap (plus a default catch-all), sizing each
// sub-table's BlockLimit as its relative share of cfg.BlockLimit per
// cfg.PartitionWeights (equal split when weights are omitted).
func NewPackExtPartitionedTable(name string, opts ...Option) (*PackExtPartitionedTable, error) {
	cfg, err := applyOptions(opts)
	if err != nil {
		return nil, err
	}

	ids := partitionIDs(cfg.PartitionMap)
	weights := normalizeWeights(ids, cfg.PartitionWeights)

	p := &PackExtPartitionedTable{
		name:    name,
		cfg:     cfg,
		order:   ids,
		tables:  make(map[int]*ClockBlockCacheTable, len(ids)),
		routing: cfg.PartitionMap,
	}
	for _, id := range ids {
		share := weights[id]
		sub, err := NewClockBlockCacheTable(
			fmt.Sprintf("%s.p%d", name, id),
			WithBlockLimit(int64(float64(cfg.BlockLimit)*share)),
			WithBlockSize(cfg.BlockSize),
			WithConcurrencyLevel(cfg.ConcurrencyLevel),
			WithStreamRatio(cfg.StreamRatio),
			WithMetrics(cfg.registry),
			WithLogger(cfg.logger),
		)
		if err != nil {
			return nil, fmt.Errorf("%w: partition %d: %v", ErrBudgetConfig, id, err)
		}
		p.tables[id] = sub
	}
	return p, nil
}

// partitionIDs collects the distinct partition ids named in m, always
// including the default catch-all id, in ascending order for determinism.
func partitionIDs(m map[ExtTag]int) []int {
	seen := map[int]bool{defaultPartitionID: true}
	for _, id := range m {
		seen[id] = true
	}
	ids := make([]int, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// normalizeWeights returns each partition id's fractional share of the
// overall budget, defaulting to an equal split among ids absent from
// weights, then renormalizing the whole set to sum to 1.
func normalizeWeights(ids []int, weights map[int]float64) map[int]float64 {
	out := make(map[int]float64, len(ids))
	var explicitSum float64
	var unweightedCount int
	for _, id := range ids {
		if w, ok := weights[id]; ok && w > 0 {
			out[id] = w
			explicitSum += w
		} else {
			unweightedCount++
		}
	}
	remaining := 1.0 - explicitSum
	if remaining < 0 {
		remaining = 0
	}
	if unweightedCount > 0 {
		share := remaining / float64(unweightedCount)
		for _, id := range ids {
			if _, ok := out[id]; !ok {
				out[id] = share
			}
		}
	}
	var total float64
	for _, w := range out {
		total += w
	}
	if total <= 0 {
		equal := 1.0 / float64(len(ids))
		for _, id := range ids {
			out[id] = equal
		}
		return out
	}
	for id, w := range out {
		out[id] = w / total
	}
	return out
}

func (p *PackExtPartitionedTable) partitionFor(ext ExtTag) *ClockBlockCacheTable {
	id, ok := p.routing[ext]
	if !ok {
		id = defaultPartitionID
	}
	t, ok := p.tables[id]
	if !ok {
		return p.tables[defaultPartitionID]
	}
	return t
}

// Get routes to key's partition and looks up (key, pos) there.
func (p *PackExtPartitionedTable) Get(key StreamKey, pos int64) (*Block, bool) {
	return p.partitionFor(key.Ext).Get(key, pos)
}

// GetOrLoad routes to file.Key's partition and performs the usual
// single-flight load there.
func (p *PackExtPartitionedTable) GetOrLoad(file *BlockBasedFile, pos int64, supplier ChannelSupplier) (*Block, error) {
	return p.partitionFor(file.Key.Ext).GetOrLoad(file, pos, supplier)
}

// Put routes to block.Key's partition.
func (p *PackExtPartitionedTable) Put(block *Block) {
	p.partitionFor(block.Key.Ext).Put(block)
}

// HasBlockZero routes to key's partition.
func (p *PackExtPartitionedTable) HasBlockZero(key StreamKey) bool {
	return p.partitionFor(key.Ext).HasBlockZero(key)
}

// Contains routes to key's partition.
func (p *PackExtPartitionedTable) Contains(key StreamKey, pos int64) bool {
	return p.partitionFor(key.Ext).Contains(key, pos)
}

// Stats aggregates every partition's snapshot into one, via AggregateSnapshots
// so that a differently-sized sub-table never misaligns the summed vectors.
func (p *PackExtPartitionedTable) Stats() Snapshot {
	snaps := make([]Snapshot, 0, len(p.order))
	for _, id := range p.order {
		snaps = append(snaps, p.tables[id].Stats())
	}
	return AggregateSnapshots(p.name, snaps...)
}

// PartitionStats returns the individual snapshot for one partition id,
// useful for per-partition dashboards; ok is false for an unknown id.
func (p *PackExtPartitionedTable) PartitionStats(id int) (Snapshot, bool) {
	t, ok := p.tables[id]
	if !ok {
		return Snapshot{}, false
	}
	return t.Stats(), true
}
