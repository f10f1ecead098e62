package domain

// EdgeStatus is what happened to one declared dependency edge during traversal.
type EdgeStatus string

const (
	// EdgeResolved means the dependency was fetched and added as a new node.
	EdgeResolved EdgeStatus = "resolved"
	// EdgeReused means the coordinate was seen earlier and the edge points at that node.
	EdgeReused EdgeStatus = "reused"
	// EdgeSkipped means fetching failed or returned no manifest; the edge is missing.
	EdgeSkipped EdgeStatus = "skipped"
	// EdgeDropped means the declaration has no fetchable source.
	EdgeDropped EdgeStatus = "dropped"
)

// EdgeOutcome records the result of following one dependency declaration.
type EdgeOutcome struct {
	From       string
	Alias      string
	Coordinate GitCoordinate
	Status     EdgeStatus
	// Overridden is set when a root override redirected the declaration.
	Overridden bool
	// Reason explains skipped and dropped edges.
	Reason error
}

// Missing reports whether the edge is absent from the graph.
func (o EdgeOutcome) Missing() bool {
	return o.Status == EdgeSkipped || o.Status == EdgeDropped
}
