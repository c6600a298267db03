package orders

const (
	TopicOrderPlaced    = "order.placed"
	TopicOrderCancelled = "order.cancelled"
)

// Partition key = order_id so every event of one order stays in order.
func PartitionKey(orderID string) []byte { return []byte(orderID) }
