package cascaderun

const (
	WorkflowName   = "cascade_drain"
	ActivityDrain  = "cascade_drain_tick"
	SignalDrainNow = "cascade_drain_now"
)

// DrainInput parameterizes the periodic queue drain. An empty ProjectID
// drains every project's backlog.
type DrainInput struct {
	ProjectID       string `json:"project_id,omitempty"`
	AutoOnly        bool   `json:"auto_only"`
	MaxChanges      int    `json:"max_changes,omitempty"`
	IntervalSeconds int    `json:"interval_seconds,omitempty"`
}

// DrainResult reports one drain tick.
type DrainResult struct {
	ChangesProcessed    int      `json:"changes_processed"`
	EntitiesMarkedStale int      `json:"entities_marked_stale"`
	Errors              []string `json:"errors,omitempty"`
}
