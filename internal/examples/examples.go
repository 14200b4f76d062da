// Package examples holds canned scenarios served by GET /api/examples and
// used as the default input for the CLI demo. They are deliberately varied
// across industries to show off context-factor extraction.
package examples

import "github.com/nyashahama/scenario-outcome-analyzer/internal/analysis"

// Example pairs a display title with a ready-to-analyze scenario.
type Example struct {
	Title    string            `json:"title"`
	Scenario analysis.Scenario `json:"scenario"`
}

// List returns the built-in example scenarios. The returned slice is freshly
// allocated on each call so callers may modify it.
func List() []Example {
	return []Example{
		{
			Title: "Business Launch",
			Scenario: analysis.Scenario{
				Situation: "I'm considering launching a new AI-powered mobile app for small businesses in India. The app would help with inventory management and customer analytics. I have a team of 3 developers and $50,000 in funding.",
				Context: map[string]string{
					"industry":       "Technology",
					"timeline":       "Medium-term",
					"budget":         "Medium",
					"risk_tolerance": "Moderate",
				},
			},
		},
		{
			Title: "Career Change",
			Scenario: analysis.Scenario{
				Situation: "I'm a software engineer with 5 years experience considering switching to data science. I have basic Python knowledge but no formal ML training. The job market seems competitive.",
				Context: map[string]string{
					"industry":       "Technology",
					"timeline":       "Long-term",
					"risk_tolerance": "Conservative",
				},
			},
		},
		{
			Title: "Investment Decision",
			Scenario: analysis.Scenario{
				Situation: "I have $100,000 to invest and am considering between real estate, stock market, or starting a franchise business. I'm 35 years old with moderate risk tolerance.",
				Context: map[string]string{
					"industry":       "Finance",
					"timeline":       "Long-term",
					"budget":         "High",
					"risk_tolerance": "Moderate",
				},
			},
		},
		{
			Title: "Market Expansion",
			Scenario: analysis.Scenario{
				Situation: "Our profitable e-commerce company is considering expanding from our home market into two neighbouring countries. We have strong local brand recognition but no international logistics experience.",
				Context: map[string]string{
					"industry":       "Retail",
					"timeline":       "Medium-term",
					"budget":         "High",
					"risk_tolerance": "Moderate",
				},
			},
		},
		{
			Title: "Office vs Remote",
			Scenario: analysis.Scenario{
				Situation: "Our 40-person software company must decide whether to renew our downtown office lease or move fully remote. Half the team prefers the office, the other half has relocated away from the city.",
				Context: map[string]string{
					"industry":       "Technology",
					"timeline":       "Short-term",
					"budget":         "Medium",
					"risk_tolerance": "Conservative",
				},
			},
		},
	}
}

// Default returns the scenario used when the CLI is invoked without
// arguments.
func Default() analysis.Scenario {
	return List()[0].Scenario
}
