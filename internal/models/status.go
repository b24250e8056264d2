package models

// SubOrderStatus is the fulfilment state of one vendor's sub-order.
type SubOrderStatus string

const (
	SubOrderPlaced     SubOrderStatus = "placed"
	SubOrderProcessing SubOrderStatus = "processing"
	SubOrderShipping   SubOrderStatus = "shipping"
	SubOrderDelivered  SubOrderStatus = "delivered"
	SubOrderCancelled  SubOrderStatus = "cancelled"
)

var subOrderTransitions = map[SubOrderStatus][]SubOrderStatus{
	SubOrderPlaced:     {SubOrderProcessing, SubOrderCancelled},
	SubOrderProcessing: {SubOrderShipping, SubOrderCancelled},
	SubOrderShipping:   {SubOrderDelivered},
	SubOrderDelivered:  nil,
	SubOrderCancelled:  nil,
}

// SubOrderStatuses lists every status in lifecycle order.
func SubOrderStatuses() []SubOrderStatus {
	return []SubOrderStatus{SubOrderPlaced, SubOrderProcessing, SubOrderShipping, SubOrderDelivered, SubOrderCancelled}
}

func (s SubOrderStatus) IsValid() bool {
	_, ok := subOrderTransitions[s]
	return ok
}

func (s SubOrderStatus) String() string {
	return string(s)
}

// AllowedNext returns the statuses reachable in one step.
func (s SubOrderStatus) AllowedNext() []SubOrderStatus {
	next := subOrderTransitions[s]
	out := make([]SubOrderStatus, len(next))
	copy(out, next)
	return out
}

func (s SubOrderStatus) CanTransitionTo(target SubOrderStatus) bool {
	for _, next := range subOrderTransitions[s] {
		if next == target {
			return true
		}
	}
	return false
}

func (s SubOrderStatus) IsTerminal() bool {
	return s.IsValid() && len(subOrderTransitions[s]) == 0
}
