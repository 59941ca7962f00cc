package sqlfailover

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRunConcurrent_SerialWhenConcurrencyOne(t *testing.T) {
	var order []int
	items := []*Target{{Name: "a"}, {Name: "b"}, {Name: "c"}}
	runConcurrent(items, 1, nil, func(t *Target) {
		order = append(order, len(order))
	})
	assert.Equal(t, []int{0, 1, 2}, order)
}

func TestRunConcurrent_VisitsEveryItemExactlyOnce(t *testing.T) {
	items := make([]*Target, 50)
	for i := range items {
		items[i] = &Target{Name: "t"}
	}

	var count int32
	runConcurrent(items, 8, nil, func(t *Target) {
		atomic.AddInt32(&count, 1)
	})

	assert.Equal(t, int32(50), count)
}
