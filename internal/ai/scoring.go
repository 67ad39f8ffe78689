package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/forgo/shepherd/api/internal/model"
)

// ScoreLead asks the model how likely a visitor is to get connected, 0..100
func ScoreLead(ctx context.Context, gen Generator, lead *model.Lead) (*model.LeadScore, error) {
	var b strings.Builder
	b.WriteString("You help a church outreach team prioritise follow-up with first-time visitors.\n")
	b.WriteString("Score from 0 to 100 how ready this visitor is for a personal follow-up, ")
	b.WriteString("based on how they found the church, what they are interested in and what they wrote.\n")
	b.WriteString("Respond with JSON: {\"score\": <integer>, \"reason\": \"one or two sentences\"}.\n\n")
	fmt.Fprintf(&b, "Source: %s\n", lead.Source)
	if len(lead.Interests) > 0 {
		fmt.Fprintf(&b, "Interests: %s\n", strings.Join(lead.Interests, ", "))
	}
	if lead.Message != nil && *lead.Message != "" {
		fmt.Fprintf(&b, "Message: %s\n", *lead.Message)
	}
	fmt.Fprintf(&b, "Has email: %t\nHas phone: %t\n", lead.Email != nil, lead.Phone != nil)

	var score model.LeadScore
	if err := gen.GenerateJSON(ctx, b.String(), &score); err != nil {
		return nil, err
	}
	score.Reason = strings.TrimSpace(score.Reason)
	if score.Reason == "" {
		return nil, fmt.Errorf("%w: missing reason", ErrMalformed)
	}
	score.Clamp()
	return &score, nil
}
