package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/forgo/shepherd/api/internal/model"
)

// Candidate is a member who opted in as a prayer partner
type Candidate struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Ministries []string `json:"ministries,omitempty"`
	Bio        string   `json:"bio,omitempty"`
}

// Match is one suggested partner for a request
type Match struct {
	CandidateID string `json:"candidate_id"`
	Reason      string `json:"reason"`
}

type matchAnswer struct {
	Matches []Match `json:"matches"`
}

// MatchPrayerPartners asks the model for up to MaxPrayerPartners partners.
// Matches that do not name a real candidate are dropped, as are duplicates.
func MatchPrayerPartners(ctx context.Context, gen Generator, req *model.PrayerRequest, candidates []Candidate) ([]Match, error) {
	if len(candidates) == 0 {
		return nil, nil
	}
	if len(candidates) > model.MaxPartnerCandidates {
		candidates = candidates[:model.MaxPartnerCandidates]
	}

	list, err := json.Marshal(candidates)
	if err != nil {
		return nil, err
	}

	var b strings.Builder
	b.WriteString("You help a church prayer ministry pair prayer requests with members who have offered to pray.\n")
	fmt.Fprintf(&b, "Pick at most %d members from the candidates whose background fits the request.\n", model.MaxPrayerPartners)
	b.WriteString("Respond with JSON: {\"matches\":[{\"candidate_id\":\"...\",\"reason\":\"one sentence\"}]}.\n")
	b.WriteString("Use only candidate ids from the list. Never invent ids.\n\n")
	fmt.Fprintf(&b, "Request title: %s\n", req.Title)
	if req.Body != nil && *req.Body != "" {
		fmt.Fprintf(&b, "Request details: %s\n", *req.Body)
	}
	fmt.Fprintf(&b, "\nCandidates: %s\n", list)

	var answer matchAnswer
	if err := gen.GenerateJSON(ctx, b.String(), &answer); err != nil {
		return nil, err
	}

	known := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		known[c.ID] = true
	}

	matches := make([]Match, 0, model.MaxPrayerPartners)
	seen := make(map[string]bool)
	for _, m := range answer.Matches {
		if !known[m.CandidateID] || seen[m.CandidateID] {
			continue
		}
		seen[m.CandidateID] = true
		m.Reason = strings.TrimSpace(m.Reason)
		matches = append(matches, m)
		if len(matches) == model.MaxPrayerPartners {
			break
		}
	}

	if len(answer.Matches) > 0 && len(matches) == 0 {
		return nil, fmt.Errorf("%w: no match referenced a known candidate", ErrMalformed)
	}
	return matches, nil
}
