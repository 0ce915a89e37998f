// Package shuffle supplies the key-contiguity collaborators the reduce
// engine depends on: a stable key partitioner, a per-partition sorter,
// and the intermediate wire codec used between the extract and fold
// phases.
package shuffle

import (
	"hash/fnv"
	"sort"

	"github.com/ridelab/ridefold/reduce"
)

// PartitionForKey routes a group key to one of n partitions. Equal
// keys always land on the same partition, which is half of the
// contiguity contract; Sort supplies the other half.
func PartitionForKey(key string, n int) int {
	if n <= 0 {
		panic("partition count must be > 0")
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32()&0x7fffffff) % n
}

// Partition splits pairs into n buckets by key.
func Partition(pairs []reduce.Pair, n int) [][]reduce.Pair {
	buckets := make([][]reduce.Pair, n)
	for _, p := range pairs {
		i := PartitionForKey(p.Key, n)
		buckets[i] = append(buckets[i], p)
	}
	return buckets
}

// Sort orders pairs by key in place, keeping the arrival order of
// pairs that share a key. After Sort every key forms one contiguous
// run, which is exactly what the reduce engine requires.
func Sort(pairs []reduce.Pair) {
	sort.SliceStable(pairs, func(i, j int) bool {
		return pairs[i].Key < pairs[j].Key
	})
}
