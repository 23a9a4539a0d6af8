package config

type GraphBuilder struct {
	config *GraphConfig
}

type NodeBuilder struct {
	graph *GraphBuilder
	name  string
	node  NodeConfig
}

func NewGraph(start string) *GraphBuilder {
	return &GraphBuilder{
		config: NewGraphConfig(start),
	}
}

func (b *GraphBuilder) Node(name string) *NodeBuilder {
	return &NodeBuilder{graph: b, name: name}
}

func (b *GraphBuilder) Edge(from, to string) *GraphBuilder {
	b.config.AddEdge(from, to)
	return b
}

func (b *GraphBuilder) Branch(from, cond, next string) *GraphBuilder {
	b.config.AddBranch(from, cond, next)
	return b
}

func (b *GraphBuilder) Else(from, next string) *GraphBuilder {
	b.config.AddBranch(from, ElseCondition, next)
	return b
}

func (b *GraphBuilder) MaxIterations(max int) *GraphBuilder {
	b.config.MaxIterations = max
	return b
}

func (b *GraphBuilder) Build() *GraphConfig {
	return b.config
}

func (n *NodeBuilder) Tool(name string) *NodeBuilder {
	n.node.Fn = name
	return n
}

func (n *NodeBuilder) Terminal() *NodeBuilder {
	n.node.Terminal = true
	return n
}

func (n *NodeBuilder) Done() *GraphBuilder {
	n.graph.config.AddNode(n.name, n.node)
	return n.graph
}
