package types

// Identidades dos agentes conhecidos pelo pipeline
const (
	AgentMaster   = "master_agent"
	AgentDesigner = "instructional_designer"
	AgentAnalyst  = "text_analyst"
	AgentPraiser  = "praiser"
	AgentGuide    = "guide"
	AgentReporter = "reporter"
)

// Tabelas estáticas por agente. Chaves desconhecidas caem no default.
var tokenMultipliers = map[string]float64{
	AgentAnalyst:  1.5,
	AgentReporter: 1.3,
	AgentMaster:   1.2,
	AgentDesigner: 1.1,
	AgentPraiser:  0.8,
	AgentGuide:    0.9,
}

var agentPriorities = map[string]TaskPriority{
	AgentMaster:   PriorityUrgent,
	AgentDesigner: PriorityHigh,
	AgentReporter: PriorityHigh,
	AgentAnalyst:  PriorityNormal,
	AgentPraiser:  PriorityLow,
	AgentGuide:    PriorityLow,
}

// Agentes pesados passam pelo scheduler em vez de executar inline
var heavyAgents = map[string]bool{
	AgentAnalyst:  true,
	AgentReporter: true,
	AgentMaster:   true,
}

func TokenMultiplier(agentName string) float64 {
	if m, ok := tokenMultipliers[agentName]; ok {
		return m
	}
	return 1.0
}

func AgentPriority(agentName string) TaskPriority {
	if p, ok := agentPriorities[agentName]; ok {
		return p
	}
	return PriorityNormal
}

func IsHeavyAgent(agentName string) bool {
	return heavyAgents[agentName]
}
