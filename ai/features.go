package ai

// Tier selects which configured model serves a feature.
type Tier int

const (
	Flash Tier = iota
	Pro
)

// Feature is one generative text feature offered on the site.
type Feature struct {
	ID          string
	Title       string
	Description string
	Tier        Tier
	Prompt      string
}

var features = []Feature{
	{
		ID:          "content_suggestions",
		Title:       "AI-Powered Insights",
		Description: "Discover personalized insights about human-centered software development",
		Tier:        Flash,
		Prompt: `Based on the Lockard LLC website content about human-centered software, mindful technology, and collaborative tooling, provide 3 thoughtful insights about:
1. Emerging trends in human-centered software development
2. Best practices for mindful technology implementation
3. Strategies for building resilient development teams

Keep responses concise and actionable, focusing on practical insights that align with thoughtful software development.`,
	},
	{
		ID:          "message_assistant",
		Title:       "AI Message Assistant",
		Description: "Get help crafting your message to Lockard LLC",
		Tier:        Flash,
		Prompt: `Help someone write a professional, thoughtful email to Lockard LLC about potential collaboration. The email should:
1. Be concise but warm
2. Show understanding of their human-centered approach
3. Clearly state the collaboration interest
4. Maintain a professional yet personal tone
5. Be specific about what they're working on

Provide a template that someone can customize.`,
	},
	{
		ID:          "research_insights",
		Title:       "AI Research Insights",
		Description: "Explore AI-generated insights about software development research",
		Tier:        Pro,
		Prompt: `Based on Lockard LLC's focus on research and insights about how teams adopt new workflows, measure success, and maintain healthy cadence, provide:
1. Current trends in software development research
2. Emerging methodologies for measuring team success
3. Best practices for maintaining healthy development cadence
4. Future directions in human-centered software research

Keep insights practical and relevant to software teams.`,
	},
}

// Features returns the available features.
func Features() []Feature {
	return append([]Feature(nil), features...)
}

// Lookup returns the feature with id.
func Lookup(id string) (Feature, bool) {
	for _, f := range features {
		if f.ID == id {
			return f, true
		}
	}
	return Feature{}, false
}
