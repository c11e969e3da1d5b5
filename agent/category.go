package agent

import "fmt"

// AgentType 定义 Agent 类别（封闭枚举）
type AgentType string

const (
	TypeSearch    AgentType = "search"    // 搜索
	TypeBooking   AgentType = "booking"   // 预订
	TypeOrder     AgentType = "order"     // 订单
	TypeComplaint AgentType = "complaint" // 投诉
	TypeFAQ       AgentType = "faq"       // 常见问题
	TypeReview    AgentType = "review"    // 评价
	TypePricing   AgentType = "pricing"   // 比价
)

var allAgentTypes = []AgentType{
	TypeSearch,
	TypeBooking,
	TypeOrder,
	TypeComplaint,
	TypeFAQ,
	TypeReview,
	TypePricing,
}

// AllAgentTypes returns every category in declaration order.
func AllAgentTypes() []AgentType {
	out := make([]AgentType, len(allAgentTypes))
	copy(out, allAgentTypes)
	return out
}

// Valid reports whether t is one of the known categories.
func (t AgentType) Valid() bool {
	for _, v := range allAgentTypes {
		if v == t {
			return true
		}
	}
	return false
}

func (t AgentType) String() string { return string(t) }

// ParseAgentType converts s into a known category.
func ParseAgentType(s string) (AgentType, error) {
	t := AgentType(s)
	if !t.Valid() {
		return "", fmt.Errorf("%w: unknown agent type %q", ErrConfigInvalid, s)
	}
	return t, nil
}
