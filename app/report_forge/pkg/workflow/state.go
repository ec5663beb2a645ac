package workflow

// State 控制器状态
type State string

const (
	StatePending      State = "pending"
	StatePlanning     State = "planning"
	StateDrafting     State = "drafting"
	StateCompiling    State = "compiling"
	StateBenchmarking State = "benchmarking"
	StateRedrafting   State = "redrafting"
	StateFinalizing   State = "finalizing"
	StateDone         State = "done"
	StateFailed       State = "failed"
)

// Terminal Done 与 Failed 为终态
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}

// 合法的状态迁移
var transitions = map[State][]State{
	StatePending:      {StatePlanning, StateFailed},
	StatePlanning:     {StateDrafting, StateFailed},
	StateDrafting:     {StateCompiling, StateFinalizing, StateFailed},
	StateCompiling:    {StateBenchmarking, StateFinalizing, StateFailed},
	StateBenchmarking: {StateFinalizing, StateRedrafting, StateFailed},
	StateRedrafting:   {StateDrafting, StateFinalizing, StateFailed},
	StateFinalizing:   {StateDone, StateFailed},
}

// CanTransition 判断迁移是否合法
func (s State) CanTransition(next State) bool {
	for _, n := range transitions[s] {
		if n == next {
			return true
		}
	}
	return false
}

// Progress 进度通知
type Progress struct {
	ReportID string `json:"report_id"`
	State    State  `json:"state"`
	Percent  int    `json:"percent"`
	Message  string `json:"message"`
}

// stage 起始进度
var statePercent = map[State]int{
	StatePlanning:     5,
	StateDrafting:     15,
	StateCompiling:    70,
	StateBenchmarking: 80,
	StateRedrafting:   85,
	StateFinalizing:   95,
	StateDone:         100,
}
