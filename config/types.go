package config

// ElseCondition marks a branch rule that always matches.
const ElseCondition = "else"

// DefaultMaxIterations applies when neither the graph nor the engine sets a cap.
const DefaultMaxIterations = 50

type NodeConfig struct {
	Fn       string `json:"fn,omitempty"`
	Terminal bool   `json:"terminal,omitempty"`
}

// HasTool reports whether the node is bound to a tool. Tool-less nodes are
// pass-through steps.
func (n NodeConfig) HasTool() bool {
	return n.Fn != ""
}

type BranchRule struct {
	Cond string `json:"cond"`
	Next string `json:"next"`
}

func (b BranchRule) IsElse() bool {
	return b.Cond == ElseCondition
}

type EdgeKind int

const (
	EdgeDefault EdgeKind = iota
	EdgeBranch
)

var edgeKindNames = map[EdgeKind]string{
	EdgeDefault: "edge",
	EdgeBranch:  "branch",
}

func (e EdgeKind) String() string {
	if name, ok := edgeKindNames[e]; ok {
		return name
	}
	return "unknown"
}

// Transition is one outgoing reference from a node, either its default edge
// or one of its branch rules.
type Transition struct {
	From string
	To   string
	Kind EdgeKind
	Cond string
}
