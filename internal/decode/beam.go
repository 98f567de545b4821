package decode

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"
)

// beam is one partial hypothesis during beam search
type beam struct {
	tokens []int   // generated continuation, prompt excluded
	score  float64 // cumulative log probability
	done   bool    // ended with EOS
}

// expansion is a one-token extension of a beam considered at a step
type expansion struct {
	from    int // index of the source beam
	tokenID int
	logProb float64 // log prob of this token alone
	score   float64 // cumulative score of the extended hypothesis
	done    bool
}

// beamTrace runs width-BeamWidth beam search. Each recorded step shows the
// winning hypothesis's new token as chosen, with the competing expansions as
// candidates; candidate probabilities are normalized over the expansion set
// so the pane still reads as a distribution.
func (t *Tracer) beamTrace(ctx context.Context, prompt string, promptTokens []int, params Params, start time.Time) (*Trace, error) {
	width := params.BeamWidth
	if width < 1 {
		width = 1
	}
	eos := t.engine.EOSTokenID()

	beams := []beam{{}}
	var steps []Step

	for i := 0; i < params.MaxSteps; i++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		stepStart := time.Now()

		var expansions []expansion
		for b, bm := range beams {
			if bm.done {
				// Finished hypotheses compete on their standing score
				expansions = append(expansions, expansion{
					from:    b,
					tokenID: eos,
					score:   bm.score,
					done:    true,
				})
				continue
			}

			seq := append(append([]int{}, promptTokens...), bm.tokens...)
			logits, err := t.engine.Logits(ctx, seq)
			if err != nil {
				return nil, fmt.Errorf("logits at step %d (beam %d): %w", i, b, err)
			}

			probs := softmax(logits)
			for _, cand := range topCandidates(probs, width) {
				lp := float64(cand.LogProb)
				expansions = append(expansions, expansion{
					from:    b,
					tokenID: cand.TokenID,
					logProb: lp,
					score:   bm.score + lp,
					done:    cand.TokenID == eos,
				})
			}
		}

		sort.Slice(expansions, func(a, b int) bool {
			return expansions[a].score > expansions[b].score
		})
		if len(expansions) > width {
			expansions = expansions[:width]
		}

		next := make([]beam, 0, len(expansions))
		for _, ex := range expansions {
			src := beams[ex.from]
			if src.done {
				next = append(next, src)
				continue
			}
			extended := append(append([]int{}, src.tokens...), ex.tokenID)
			next = append(next, beam{tokens: extended, score: ex.score, done: ex.done})
		}
		beams = next

		best := beams[0]
		currentText, err := t.engine.Decode(best.tokens)
		if err != nil {
			return nil, fmt.Errorf("decoding at step %d: %w", i, err)
		}

		candidates := expansionCandidates(expansions, params.Candidates)
		for c := range candidates {
			candidates[c].Token = t.engine.TokenText(candidates[c].TokenID)
		}

		step := Step{
			Index:       i,
			Candidates:  candidates,
			Chosen:      chosenOf(candidates),
			CurrentText: currentText,
			Elapsed:     time.Since(stepStart),
		}
		steps = append(steps, step)

		if t.OnStep != nil {
			t.OnStep(step)
		}

		if allDone(beams) || best.done {
			break
		}
	}

	trace := &Trace{
		Prompt:   prompt,
		Model:    t.engine.ModelName(),
		Strategy: BeamSearch,
		Params:   params,
		Steps:    steps,
		Metrics:  computeMetrics(start, len(promptTokens), len(steps)),
	}
	return trace, nil
}

// expansionCandidates converts the kept expansions into candidates whose
// probabilities are a softmax over the expansion scores. The first expansion
// (the surviving best hypothesis) is the chosen one.
func expansionCandidates(expansions []expansion, n int) []Candidate {
	if len(expansions) == 0 {
		return nil
	}

	maxScore := expansions[0].score
	sum := float64(0)
	for _, ex := range expansions {
		sum += math.Exp(ex.score - maxScore)
	}

	if n > len(expansions) {
		n = len(expansions)
	}

	candidates := make([]Candidate, 0, n)
	for i, ex := range expansions[:n] {
		prob := float32(math.Exp(ex.score-maxScore) / sum)
		candidates = append(candidates, Candidate{
			TokenID: ex.tokenID,
			Prob:    prob,
			LogProb: float32(math.Log(float64(prob))),
			Chosen:  i == 0,
		})
	}
	return candidates
}

func allDone(beams []beam) bool {
	for _, b := range beams {
		if !b.done {
			return false
		}
	}
	return true
}
