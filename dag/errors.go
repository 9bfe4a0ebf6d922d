package dag

import "errors"

// GraphError sentinels, per spec.md §7.
var (
	ErrNonExistentReference = errors.New("dag: referenced parent does not exist")
	ErrDuplicateGenesis     = errors.New("dag: genesis already appended")
)
