package ports

import (
	"orgmap/domain/core/valueobjects"
	"orgmap/domain/filter"
)

// Renderer is the drawing collaborator. The editor pushes the latest filter
// partition to it and asks it to frame the visible nodes.
type Renderer interface {
	ApplyPartition(p filter.Partition)
	Fit(ids []valueobjects.NodeID)
}
