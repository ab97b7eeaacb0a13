package uid

import "github.com/bwmarrin/snowflake"

// Snowflake implements NumberID with time-ordered 63-bit identifiers, which
// keeps index pages append-mostly and makes "latest record" an ORDER BY id.
type Snowflake struct {
	node *snowflake.Node
}

// NewSnowflake builds a generator for the given node number (0..1023).
func NewSnowflake(node int64) (*Snowflake, error) {
	n, err := snowflake.NewNode(node)
	if err != nil {
		return nil, err
	}

	return &Snowflake{node: n}, nil
}

// Generate implements NumberID.
func (s *Snowflake) Generate() int64 {
	return s.node.Generate().Int64()
}
