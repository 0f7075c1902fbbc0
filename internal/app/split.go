package service

import (
	"fmt"
	"math"
	"math/rand"
	"slices"

	"github.com/okian/lapprice/internal/domain/model"
)

// SplitTable shuffles t with seed and holds out ceil(ratio*n) rows for test.
// Both halves keep the original row order.
func SplitTable(t *model.RawTable, ratio float64, seed int64) (train, test *model.RawTable, err error) {
	n := t.Len()
	if ratio <= 0 || ratio >= 1 {
		return nil, nil, fmt.Errorf("test ratio %v outside (0, 1)", ratio)
	}
	nTest := int(math.Ceil(ratio * float64(n)))
	if n < 2 || nTest >= n {
		return nil, nil, fmt.Errorf("%w: %d rows", ErrEmptyDataset, n)
	}

	perm := rand.New(rand.NewSource(seed)).Perm(n)
	testIdx := slices.Clone(perm[:nTest])
	trainIdx := slices.Clone(perm[nTest:])
	slices.Sort(testIdx)
	slices.Sort(trainIdx)
	return t.Subset(trainIdx), t.Subset(testIdx), nil
}
