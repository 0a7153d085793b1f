package cache

import "fmt"

type Prefix string

const (
	OrderLookups Prefix = "order_lookups"
)

func (p Prefix) Key(id string) string {
	return fmt.Sprintf("%s:%s", p, id)
}
