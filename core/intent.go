package core

// AgentType enumerates the conversational domains a registered agent can serve.
type AgentType string

const (
	// AgentTypeInterviewPrep handles mock interviews and interview coaching.
	AgentTypeInterviewPrep AgentType = "interview_preparation"
	// AgentTypeCareerGuidance handles career path and skill development advice.
	AgentTypeCareerGuidance AgentType = "career_guidance"
	// AgentTypeApplicationAssistant handles application writing, optimization and tracking.
	AgentTypeApplicationAssistant AgentType = "application_assistant"
	// AgentTypeEmployerAssistant handles employer-side workflows such as screening.
	AgentTypeEmployerAssistant AgentType = "employer_assistant"
	// AgentTypeNetworking handles connection recommendations and outreach help.
	AgentTypeNetworking AgentType = "networking_assistant"
	// AgentTypeGeneral is the catch-all conversational agent.
	AgentTypeGeneral AgentType = "general_assistant"
)

// Intent is the enumerated classification of a user's free-text request.
type Intent string

const (
	IntentCareerGuidance            Intent = "career_guidance"
	IntentSkillAnalysis             Intent = "skill_analysis"
	IntentMarketIntelligence        Intent = "market_intelligence"
	IntentMockInterview             Intent = "mock_interview"
	IntentInterviewPreparation      Intent = "interview_preparation"
	IntentApplicationOptimization   Intent = "application_optimization"
	IntentApplicationTracking       Intent = "application_tracking"
	IntentApplicationAssistance     Intent = "application_assistance"
	IntentCandidateScreening        Intent = "candidate_screening"
	IntentJobPostingOptimization    Intent = "job_posting_optimization"
	IntentEmployerAssistance        Intent = "employer_assistance"
	IntentConnectionRecommendations Intent = "connection_recommendations"
	IntentNetworkingAssistance      Intent = "networking_assistance"
	IntentGeneralAssistance         Intent = "general_assistance"
)

// Capabilities declares the intents an agent specializes in (Primary) and the
// broader set it can also serve (Supported). Any intent outside both sets may
// still be handled as a general fallback at a reduced routing score.
type Capabilities struct {
	Primary   []Intent `json:"primary"`
	Supported []Intent `json:"supported"`
}

// HasPrimary reports whether the intent is in the primary capability set.
func (c Capabilities) HasPrimary(intent Intent) bool { return containsIntent(c.Primary, intent) }

// HasSupported reports whether the intent is in the supported capability set.
func (c Capabilities) HasSupported(intent Intent) bool { return containsIntent(c.Supported, intent) }

func containsIntent(set []Intent, intent Intent) bool {
	for _, i := range set {
		if i == intent {
			return true
		}
	}
	return false
}
