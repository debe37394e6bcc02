// Package docnum generates the human-readable document numbers used on
// patient records, invoices, and payments. Snowflake ids are time-ordered,
// so numbers sort in issue order.
package docnum

import (
	"fmt"

	"github.com/bwmarrin/snowflake"
)

// Generator issues prefixed document numbers from a snowflake node.
type Generator struct {
	node *snowflake.Node
}

// NewGenerator creates a Generator for the given node id (0–1023).
func NewGenerator(nodeID int64) (*Generator, error) {
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return nil, fmt.Errorf("create snowflake node: %w", err)
	}
	return &Generator{node: node}, nil
}

// Next returns the next number with the given prefix, e.g. "INV-1849301...".
func (g *Generator) Next(prefix string) string {
	return prefix + "-" + g.node.Generate().String()
}

// Patient returns the next patient code.
func (g *Generator) Patient() string { return g.Next("PAT") }

// Invoice returns the next invoice number.
func (g *Generator) Invoice() string { return g.Next("INV") }

// Payment returns the next payment number.
func (g *Generator) Payment() string { return g.Next("PAY") }
