package engine

// InterruptController is the stateless halt policy. Execution stops
// before any registered node; the node name goes into the checkpoint so
// the next turn resumes exactly there.
type InterruptController struct {
	before map[string]struct{}
}

func NewInterruptController(nodes []string) *InterruptController {
	before := make(map[string]struct{}, len(nodes))
	for _, n := range nodes {
		before[n] = struct{}{}
	}
	return &InterruptController{before: before}
}

func (c *InterruptController) ShouldInterrupt(node string) bool {
	_, ok := c.before[node]
	return ok
}
