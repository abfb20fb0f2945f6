// ABOUTME: Subscription plans and their limits as shown on the plan page
// ABOUTME: Limits of zero mean unlimited

package backend

// Plan keys.
const (
	PlanFree       = "free"
	PlanPro        = "pro"
	PlanEnterprise = "enterprise"
)

// Plan describes one subscription tier.
type Plan struct {
	Key          string
	Name         string
	AgentLimit   int
	MessageLimit int // per month
}

// Plans lists the tiers in upgrade order.
var Plans = []Plan{
	{Key: PlanFree, Name: "Free", AgentLimit: 1, MessageLimit: 500},
	{Key: PlanPro, Name: "Pro", AgentLimit: 5, MessageLimit: 10000},
	{Key: PlanEnterprise, Name: "Enterprise"},
}

// LookupPlan returns the plan for key, defaulting to Free.
func LookupPlan(key string) Plan {
	for _, p := range Plans {
		if p.Key == key {
			return p
		}
	}
	return Plans[0]
}

// Unlimited reports whether the plan has no agent or message cap.
func (p Plan) Unlimited() bool {
	return p.AgentLimit == 0 && p.MessageLimit == 0
}

// CanUpgrade reports whether a higher tier exists.
func (p Plan) CanUpgrade() bool {
	return p.Key != PlanEnterprise
}

// AgentsRemaining returns how many more agents fit, or -1 when unlimited.
func (p Plan) AgentsRemaining(current int) int {
	if p.AgentLimit == 0 {
		return -1
	}
	if current >= p.AgentLimit {
		return 0
	}
	return p.AgentLimit - current
}
