package idgen

import (
	"fmt"
	"sync"

	"github.com/bwmarrin/snowflake"
)

var (
	mu   sync.RWMutex
	node *snowflake.Node
)

func init() {
	node, _ = snowflake.NewNode(1)
}

// SetNode selects the snowflake node id; each running instance needs its own.
func SetNode(id int64) error {
	n, err := snowflake.NewNode(id)
	if err != nil {
		return fmt.Errorf("snowflake node %d: %w", id, err)
	}
	mu.Lock()
	node = n
	mu.Unlock()
	return nil
}

// InvoiceNumber returns a unique, roughly time-ordered invoice number.
func InvoiceNumber() string {
	mu.RLock()
	defer mu.RUnlock()
	return "INV-" + node.Generate().String()
}
