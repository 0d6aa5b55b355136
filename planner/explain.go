package planner

import (
	"fmt"
	"strings"
)

// Explain renders a plan tree as an indented, explain-style listing. Each
// line names the operator, the estimated row count, and the estimated
// cost; index paths also name the index and the matched key prefix
// length.
func Explain(node *PlanNode) string {
	var sb strings.Builder
	explainNode(&sb, node, 0)
	return sb.String()
}

func explainNode(sb *strings.Builder, node *PlanNode, depth int) {
	indent := strings.Repeat("  ", depth)

	if node.IsLeaf() {
		path := node.Scan
		switch path.Type {
		case FullScanPath:
			fmt.Fprintf(sb, "%s%s on %s", indent, path.Type, path.Table)
		default:
			fmt.Fprintf(sb, "%s%s using %s on %s (prefix=%d)",
				indent, path.Type, path.Index.Name, path.Table, path.PrefixLen)
		}
		fmt.Fprintf(sb, "  (rows=%.0f cost=%.2f..%.2f)\n",
			node.Cost.Rows, node.Cost.StartupCost, node.Cost.TotalCost)
		if len(path.Residual) > 0 {
			keys := make([]string, len(path.Residual))
			for i, r := range path.Residual {
				keys[i] = r.Key()
			}
			fmt.Fprintf(sb, "%s  Filter: %s\n", indent, strings.Join(keys, " and "))
		}
		return
	}

	fmt.Fprintf(sb, "%s%s", indent, node.Strategy)
	if len(node.Conds) > 0 {
		conds := make([]string, len(node.Conds))
		for i, c := range node.Conds {
			conds[i] = fmt.Sprintf("%s.%s = %s.%s",
				c.LeftTable, c.LeftColumn, c.RightTable, c.RightColumn)
		}
		fmt.Fprintf(sb, " on %s", strings.Join(conds, " and "))
	}
	fmt.Fprintf(sb, "  (rows=%.0f cost=%.2f..%.2f)\n",
		node.Cost.Rows, node.Cost.StartupCost, node.Cost.TotalCost)

	explainNode(sb, node.Left, depth+1)
	explainNode(sb, node.Right, depth+1)
}
