package shuffle

import (
	"testing"

	"github.com/ridelab/ridefold/reduce"
	"github.com/ridelab/ridefold/tasks"
)

func TestPartitionForKeyStable(t *testing.T) {
	n := 8
	key := "2024-01-01"
	first := PartitionForKey(key, n)
	for i := 0; i < 100; i++ {
		got := PartitionForKey(key, n)
		if got != first {
			t.Fatalf("expected stable partition for key %q: %d != %d", key, got, first)
		}
	}
}

func TestPartitionForKeyRange(t *testing.T) {
	n := 7
	keys := []string{"00", "23", "37.77,-122.42", "2024-01-01", "d42", "c7", "k1", "k2"}
	for _, key := range keys {
		got := PartitionForKey(key, n)
		if got < 0 || got >= n {
			t.Fatalf("partition out of range for key %q: %d", key, got)
		}
	}
}

func TestPartitionKeepsEqualKeysTogether(t *testing.T) {
	pairs := []reduce.Pair{
		{Key: "a", Value: tasks.Partial{Count: 1}},
		{Key: "b", Value: tasks.Partial{Count: 1}},
		{Key: "a", Value: tasks.Partial{Count: 1}},
		{Key: "c", Value: tasks.Partial{Count: 1}},
		{Key: "b", Value: tasks.Partial{Count: 1}},
	}
	buckets := Partition(pairs, 3)

	seen := map[string]int{}
	total := 0
	for i, bucket := range buckets {
		for _, p := range bucket {
			if prev, ok := seen[p.Key]; ok && prev != i {
				t.Fatalf("key %q split across partitions %d and %d", p.Key, prev, i)
			}
			seen[p.Key] = i
			total++
		}
	}
	if total != len(pairs) {
		t.Fatalf("partitioning lost pairs: %d != %d", total, len(pairs))
	}
}

func TestSortMakesKeysContiguous(t *testing.T) {
	pairs := []reduce.Pair{
		{Key: "b"}, {Key: "a"}, {Key: "b"}, {Key: "a"}, {Key: "c"},
	}
	Sort(pairs)

	closed := map[string]bool{}
	var cur string
	for i, p := range pairs {
		if i == 0 || p.Key != cur {
			if closed[p.Key] {
				t.Fatalf("key %q appears in two non-adjacent runs after Sort", p.Key)
			}
			if i > 0 {
				closed[cur] = true
			}
			cur = p.Key
		}
	}
}
