package protocol

// StuckEvent is one engine intervention as written to the event log, the
// index and the observer stream.
type StuckEvent struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	RunID           string `json:"run_id"`
	Tick            uint64 `json:"tick"`
	AgentID         string `json:"agent_id"`
	AgentType       string `json:"agent_type,omitempty"`

	Kind          string `json:"kind"`
	Level         int    `json:"level"`
	GlobalTimeout int    `json:"global_timeout"`

	Destination *[3]int     `json:"destination,omitempty"`
	Pos         *[3]float64 `json:"pos,omitempty"`
	Cell        *[3]int     `json:"cell,omitempty"`
	Amount      float64     `json:"amount,omitempty"`
}

// RunInfo is sent to observers on connect and recorded when a run starts
// and again when it stops. StoppedTick is only set on the closing record.
type RunInfo struct {
	Type            string   `json:"type"`
	ProtocolVersion string   `json:"protocol_version"`
	RunID           string   `json:"run_id"`
	Scenario        string   `json:"scenario"`
	Seed            int64    `json:"seed"`
	Ticks           uint64   `json:"ticks"`
	StoppedTick     uint64   `json:"stopped_tick,omitempty"`
	Agents          []string `json:"agents"`
	WorldDigest     string   `json:"world_digest,omitempty"`
}

// SubscribeMsg is the first frame an observer sends. An empty Agents list
// subscribes to every agent.
type SubscribeMsg struct {
	Type            string   `json:"type"`
	ProtocolVersion string   `json:"protocol_version"`
	Agents          []string `json:"agents,omitempty"`
}
