package service

import "github.com/clinvector/ehrqa/internal/domain"

// DefaultRoutingThreshold is the similarity score below which retrieval is
// considered too weak to ground an answer.
const DefaultRoutingThreshold float32 = 0.4

// Route decides whether a question is answered from the corpus or from the
// external knowledge API. Rules, in order: API-only mode always routes to
// the API; empty or uniformly weak scores route to the API; otherwise the
// dataset answer wins. Dataset-only mode is enforced by the caller never
// taking the API branch.
func Route(scores []float32, mode domain.Mode, threshold float32) domain.Decision {
	if mode == domain.ModeAPIOnly {
		return domain.UseAPI
	}
	if len(scores) == 0 {
		return domain.UseAPI
	}
	max := scores[0]
	for _, s := range scores[1:] {
		if s > max {
			max = s
		}
	}
	if max < threshold {
		return domain.UseAPI
	}
	return domain.UseDataset
}
