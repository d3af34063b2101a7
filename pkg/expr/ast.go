package expr

// node is the interface implemented by every AST node. The node set is
// closed: the checker walks it exhaustively and rejects anything it does
// not recognize, so adding a node type requires touching the checker too.
type node interface {
	offset() int
}

type literalNode struct {
	pos   int
	value any // int64, float64, string, bool or nil
}

type nameNode struct {
	pos  int
	name string
}

type listNode struct {
	pos   int
	items []node
}

type tupleNode struct {
	pos   int
	items []node
}

type setNode struct {
	pos   int
	items []node
}

type dictNode struct {
	pos    int
	keys   []node
	values []node
}

type unaryNode struct {
	pos     int
	op      string // "-", "+", "~", "not"
	operand node
}

type binaryNode struct {
	pos         int
	op          string // "+", "-", "*", "/", "//", "%", "**", "|", "^", "&", "<<", ">>"
	left, right node
}

// boolNode models an or/and chain. Evaluation short-circuits and yields
// the deciding operand itself, not a coerced bool.
type boolNode struct {
	pos    int
	op     string // "or" or "and"
	values []node
}

// compareNode models a chained comparison a < b <= c: one leftmost operand
// followed by pairs of operator and operand.
type compareNode struct {
	pos      int
	left     node
	ops      []string // "==", "!=", "<", "<=", ">", ">=", "in", "not in"
	operands []node
}

// condNode is the conditional expression `body if test else orelse`.
type condNode struct {
	pos    int
	test   node
	body   node
	orelse node
}

type attrNode struct {
	pos   int
	value node
	attr  string
}

type indexNode struct {
	pos   int
	value node
	index node
}

type callNode struct {
	pos  int
	fn   node // always a nameNode after Check
	args []node
}

func (n *literalNode) offset() int { return n.pos }
func (n *nameNode) offset() int    { return n.pos }
func (n *listNode) offset() int    { return n.pos }
func (n *tupleNode) offset() int   { return n.pos }
func (n *setNode) offset() int     { return n.pos }
func (n *dictNode) offset() int    { return n.pos }
func (n *unaryNode) offset() int   { return n.pos }
func (n *binaryNode) offset() int  { return n.pos }
func (n *boolNode) offset() int    { return n.pos }
func (n *compareNode) offset() int { return n.pos }
func (n *condNode) offset() int    { return n.pos }
func (n *attrNode) offset() int    { return n.pos }
func (n *indexNode) offset() int   { return n.pos }
func (n *callNode) offset() int    { return n.pos }
