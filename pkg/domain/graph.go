package domain

// TemplateStatus is the publication state of a template.
type TemplateStatus string

const (
	TemplateDraft     TemplateStatus = "draft"
	TemplatePublished TemplateStatus = "published"
)

// FlowGraph is a validated, typed chatbot template.
// Build instances through the graph package so the lookup index stays consistent.
type FlowGraph struct {
	TemplateID string
	Name       string
	Status     TemplateStatus
	Nodes      []Node
	Edges      []Edge

	nodeIndex map[string]int
}

// NewFlowGraph assembles a graph and indexes its nodes. It does not validate.
func NewFlowGraph(templateID, name string, status TemplateStatus, nodes []Node, edges []Edge) *FlowGraph {
	g := &FlowGraph{
		TemplateID: templateID,
		Name:       name,
		Status:     status,
		Nodes:      nodes,
		Edges:      edges,
	}
	g.reindex()
	return g
}

func (g *FlowGraph) reindex() {
	g.nodeIndex = make(map[string]int, len(g.Nodes))
	for i, n := range g.Nodes {
		if _, dup := g.nodeIndex[n.ID]; !dup {
			g.nodeIndex[n.ID] = i
		}
	}
}

// Node returns the node with the given id.
func (g *FlowGraph) Node(id string) (*Node, bool) {
	if g.nodeIndex == nil {
		g.reindex()
	}
	i, ok := g.nodeIndex[id]
	if !ok {
		return nil, false
	}
	return &g.Nodes[i], true
}

// Start returns the start node, if any.
func (g *FlowGraph) Start() (*Node, bool) {
	for i := range g.Nodes {
		if g.Nodes[i].Type == NodeTypeStart {
			return &g.Nodes[i], true
		}
	}
	return nil, false
}

// Next returns the target of the first edge leaving nodeID through handle.
func (g *FlowGraph) Next(nodeID, handle string) (string, bool) {
	if handle == "" {
		handle = HandleDefault
	}
	for _, e := range g.Edges {
		if e.SourceNodeID == nodeID && e.Handle() == handle {
			return e.TargetNodeID, true
		}
	}
	return "", false
}

// HasHandle reports whether nodeID has an outgoing edge through handle.
func (g *FlowGraph) HasHandle(nodeID, handle string) bool {
	_, ok := g.Next(nodeID, handle)
	return ok
}

// Incoming returns the edges that target nodeID.
func (g *FlowGraph) Incoming(nodeID string) []Edge {
	var in []Edge
	for _, e := range g.Edges {
		if e.TargetNodeID == nodeID {
			in = append(in, e)
		}
	}
	return in
}

// Published reports whether the template may be started or routed to.
func (g *FlowGraph) Published() bool {
	return g.Status == TemplatePublished
}
