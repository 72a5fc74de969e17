package operation

import "fmt"

// Kind identifies what a step does.
type Kind int

const (
	KindMap Kind = iota + 1
	KindFlatMap
	KindFilter
	KindForeach
	KindAccumulate
	KindAccumulateBy
	KindLocalAccumulateBy
	KindRepartition
	KindCollect
	KindOnRegistered
	KindOnUnregistered
	KindValueInitializer
)

var kindNames = map[Kind]string{
	KindMap:               "map",
	KindFlatMap:           "flatmap",
	KindFilter:            "filter",
	KindForeach:           "foreach",
	KindAccumulate:        "accumulate",
	KindAccumulateBy:      "accumulateby",
	KindLocalAccumulateBy: "localaccumulateby",
	KindRepartition:       "repartition",
	KindCollect:           "collect",
	KindOnRegistered:      "onregistered",
	KindOnUnregistered:    "onunregistered",
	KindValueInitializer:  "valueinitializer",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Keyed reports whether the step partitions records by an extracted key.
func (k Kind) Keyed() bool {
	return k == KindAccumulateBy || k == KindLocalAccumulateBy || k == KindRepartition
}

// Folds reports whether the step keeps accumulator state.
func (k Kind) Folds() bool {
	return k == KindAccumulate || k == KindAccumulateBy || k == KindLocalAccumulateBy
}

// Hook reports whether the kind is a registration lifecycle hook.
func (k Kind) Hook() bool {
	return k == KindOnRegistered || k == KindOnUnregistered
}
