package router

import (
	"strings"

	"github.com/freelancing-solutions/agenthub/core"
)

// rule maps keyword phrases to an intent. Rules are evaluated in declaration
// order; the first rule with any matching phrase wins, so more specific
// phrases must precede the general ones they contain ("mock interview"
// before "interview").
type rule struct {
	intent   core.Intent
	keywords []string
}

var classificationRules = []rule{
	{core.IntentMockInterview, []string{"mock interview", "practice interview", "interview simulation", "simulate an interview"}},
	{core.IntentInterviewPreparation, []string{"interview"}},
	{core.IntentCandidateScreening, []string{"screen candidate", "screening", "shortlist"}},
	{core.IntentJobPostingOptimization, []string{"job posting", "job ad", "job description"}},
	{core.IntentEmployerAssistance, []string{"hiring", "recruit"}},
	{core.IntentApplicationOptimization, []string{"resume", "cv", "cover letter", "optimize my application"}},
	{core.IntentApplicationTracking, []string{"application status", "track my application", "applications i submitted"}},
	{core.IntentApplicationAssistance, []string{"apply", "application"}},
	{core.IntentSkillAnalysis, []string{"skill gap", "skills", "what should i learn"}},
	{core.IntentMarketIntelligence, []string{"salary", "market", "in demand", "trends"}},
	{core.IntentConnectionRecommendations, []string{"who should i connect", "connection recommendation", "people to connect"}},
	{core.IntentNetworkingAssistance, []string{"network", "linkedin", "outreach"}},
	{core.IntentCareerGuidance, []string{"career", "promotion", "grow professionally", "career path"}},
}

// ClassifyIntent maps a free-text message to an intent using ordered keyword
// rules. Falls back to general assistance when no rule matches. Pure function.
func ClassifyIntent(text string) core.Intent {
	lowered := strings.ToLower(text)
	for _, r := range classificationRules {
		for _, kw := range r.keywords {
			if strings.Contains(lowered, kw) {
				return r.intent
			}
		}
	}
	return core.IntentGeneralAssistance
}
