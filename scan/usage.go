package scan

import (
	"container/list"
	"unsafe"
)

// DynamicUsage is implemented by values that can estimate the heap memory
// they hold beyond their own size.
type DynamicUsage interface {
	// DynamicUsage returns the approximate number of heap bytes owned by
	// the value.
	DynamicUsage() int
}

const (
	// ptrSize is the size of a pointer on the target platform.
	ptrSize = int(unsafe.Sizeof(uintptr(0)))

	// ifaceSize is the size of an interface value.
	ifaceSize = 2 * ptrSize

	// chanHeaderSize approximates the runtime's channel header (hchan) on
	// 64-bit platforms. A buffered channel allocates the header and its
	// whole ring buffer when it is made.
	chanHeaderSize = 96

	// queuedTaskOverhead is the cost of scheduling a task on the worker
	// pool: the task is boxed in an interface and, while the queue's
	// buffer is full, held in an element of its overflow list.
	queuedTaskOverhead = ifaceSize + int(unsafe.Sizeof(list.Element{}))

	// mapBucketSlots and the load factor below model Go's map layout:
	// entries live in buckets of eight slots plus one tophash byte per
	// slot, and the map doubles once the average load exceeds 6.5.
	mapBucketSlots        = 8
	mapMaxLoadNumerator   = 13
	mapMaxLoadDenominator = 2
)

// sliceUsage returns the size of the backing array of s.
func sliceUsage[T any](s []T) int {
	var zero T
	return cap(s) * int(unsafe.Sizeof(zero))
}

// elementsUsage sums the dynamic usage of the elements of s that report it.
func elementsUsage[T any](s []T) int {
	var total int
	for i := range s {
		if du, ok := any(s[i]).(DynamicUsage); ok {
			total += du.DynamicUsage()
		}
	}

	return total
}

// mapUsageBounds returns the range of heap bytes a map of n entries with the
// given per-entry size may occupy: from buckets filled to the maximum load
// factor up to twice that, right after the map has grown.
func mapUsageBounds(n, entrySize int) (int, int) {
	if n == 0 {
		return 0, 0
	}

	slot := entrySize + 1
	slots := (n*mapMaxLoadDenominator*mapBucketSlots +
		mapMaxLoadNumerator - 1) / mapMaxLoadNumerator
	buckets := (slots + mapBucketSlots - 1) / mapBucketSlots

	lower := buckets * (mapBucketSlots*slot + ptrSize)
	return lower, 2 * lower
}
