package topictree

import (
	"fmt"
	"math/big"
)

// Validation is the result of checking a sample budget against a tree shape.
type Validation struct {
	Valid              bool `json:"valid"`
	Capacity           int  `json:"total_tree_paths"`
	Requested          int  `json:"total_requested_paths"`
	SuggestedNumSteps  int  `json:"suggested_num_steps,omitempty"`
	SuggestedBatchSize int  `json:"suggested_batch_size,omitempty"`
}

// Capacity returns degree^depth, the number of leaf paths of a full tree.
// Results that do not fit an int saturate at the largest int.
func Capacity(degree, depth int) int {
	if depth <= 0 {
		return 1
	}
	p := new(big.Int).Exp(big.NewInt(int64(degree)), big.NewInt(int64(depth)), nil)
	if !p.IsInt64() || p.Int64() > int64(maxInt) {
		return maxInt
	}
	return int(p.Int64())
}

const maxInt = int(^uint(0) >> 1)

// Check compares numSteps*batchSize against the capacity of a
// degree/depth tree. Suggestions are only filled in when the request does
// not fit.
func Check(numSteps, batchSize, degree, depth int) Validation {
	return check(numSteps, batchSize, Capacity(degree, depth))
}

// Check compares numSteps*batchSize against the paths t actually holds.
func (t *Tree) Check(numSteps, batchSize int) Validation {
	return check(numSteps, batchSize, t.Len())
}

func check(numSteps, batchSize, capacity int) Validation {
	v := Validation{
		Capacity:  capacity,
		Requested: numSteps * batchSize,
	}
	v.Valid = v.Requested <= v.Capacity
	if v.Valid {
		return v
	}
	if batchSize > 0 {
		v.SuggestedNumSteps = v.Capacity / batchSize
	}
	if numSteps > 0 {
		v.SuggestedBatchSize = v.Capacity / numSteps
	}
	return v
}

// Advice returns human readable recommendations for an invalid check.
func (v Validation) Advice() []string {
	if v.Valid {
		return nil
	}
	return []string{
		fmt.Sprintf("Reduce num_steps to: %d", v.SuggestedNumSteps),
		fmt.Sprintf("Reduce batch_size to: %d", v.SuggestedBatchSize),
		"Increase tree_depth or tree_degree to provide more paths.",
	}
}
