package trace

// NodeKind 节点类型
type NodeKind string

const (
	// KindRequirement 需求节点
	KindRequirement NodeKind = "requirement"
	// KindScenario 场景节点
	KindScenario NodeKind = "scenario"
	// KindTheme 主题节点
	KindTheme NodeKind = "theme"
)

// Node 可追溯性图中的节点
type Node struct {
	ID    string   `json:"id"`
	Kind  NodeKind `json:"kind"`
	Label string   `json:"label"`
}

// Link 有向边，权重为覆盖的验收标准数量（至少为1）
type Link struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Weight int    `json:"weight"`
}

// Graph 需求 -> 场景 -> 主题 的可追溯性图
type Graph struct {
	Nodes []Node `json:"nodes"`
	Links []Link `json:"links"`

	seen map[string]bool
}

// newGraph 创建空图
func newGraph() *Graph {
	return &Graph{
		Nodes: make([]Node, 0),
		Links: make([]Link, 0),
		seen:  make(map[string]bool),
	}
}

// addNode 添加节点，已存在的节点保持不变
func (g *Graph) addNode(id string, kind NodeKind, label string) {
	if g.seen[id] {
		return
	}
	g.seen[id] = true
	g.Nodes = append(g.Nodes, Node{ID: id, Kind: kind, Label: label})
}

// addLink 追加边，允许重复
func (g *Graph) addLink(source, target string, weight int) {
	if weight < 1 {
		weight = 1
	}
	g.Links = append(g.Links, Link{Source: source, Target: target, Weight: weight})
}

// NodesOfKind 返回指定类型的节点
func (g Graph) NodesOfKind(kind NodeKind) []Node {
	var nodes []Node
	for _, n := range g.Nodes {
		if n.Kind == kind {
			nodes = append(nodes, n)
		}
	}
	return nodes
}

// Inbound 返回指向指定节点的边
func (g Graph) Inbound(id string) []Link {
	var links []Link
	for _, l := range g.Links {
		if l.Target == id {
			links = append(links, l)
		}
	}
	return links
}
