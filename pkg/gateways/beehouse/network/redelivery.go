package network

import (
	"fmt"
	"sync"

	bloomFilter "github.com/bits-and-blooms/bloom/v3"
)

const (
	FilterCapacity          = 100000
	DuplicationProbability  = 0.01
	ResetFilterUsagePercent = 0.75
)

// RedeliveryFilter drops QoS 1 messages the broker sends again with the DUP
// flag after they were already handled.
type RedeliveryFilter struct {
	mu                           sync.Mutex
	filter                       *bloomFilter.BloomFilter
	filterCapacity               uint
	maximumPercentageFilterUsage float32
}

func NewRedeliveryFilter(capacity uint, probability float64, maximumUsage float32) *RedeliveryFilter {
	return &RedeliveryFilter{
		filter:                       bloomFilter.NewWithEstimates(capacity, probability),
		filterCapacity:               capacity,
		maximumPercentageFilterUsage: maximumUsage,
	}
}

// Duplicate records the message and reports whether it is a redelivery of one
// already seen.
func (f *RedeliveryFilter) Duplicate(topic string, messageID uint16, payload []byte, redelivered bool) bool {
	key := []byte(fmt.Sprintf("%s_%d_%s", topic, messageID, payload))

	f.mu.Lock()
	defer f.mu.Unlock()
	if redelivered && f.filter.Test(key) {
		return true
	}
	f.resetDuplicationFilter()
	f.filter.Add(key)
	return false
}

func (f *RedeliveryFilter) resetDuplicationFilter() {
	approximatedFilterSize := f.filter.ApproximatedSize()
	currentPercentageFilterUsage := float32(approximatedFilterSize) / float32(f.filterCapacity)
	if currentPercentageFilterUsage >= f.maximumPercentageFilterUsage {
		f.filter.ClearAll()
	}
}
