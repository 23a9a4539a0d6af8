package config

func NewNodeConfig(fn string) NodeConfig {
	return NodeConfig{Fn: fn}
}

func NewTerminalNode(fn string) NodeConfig {
	return NodeConfig{Fn: fn, Terminal: true}
}
