package decision

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/pattern-lab/formation-trading/internal/types"
	"github.com/pattern-lab/formation-trading/pkg/errors"
)

// DefaultGeminiModel is the model queried when none is configured.
const DefaultGeminiModel = "gemini-2.5-flash"

// Gemini asks a Gemini model to weigh the validated formation against
// the fundamentals and sentiment snapshots and reply with a decision.
type Gemini struct {
	client *genai.Client
	model  string
}

var _ Source = (*Gemini)(nil)

// NewGemini creates a Gemini-backed source. An empty model selects
// DefaultGeminiModel.
func NewGemini(ctx context.Context, model string) (*Gemini, error) {
	client, err := genai.NewClient(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDecisionFailed, "failed to create gemini client", err)
	}

	if model == "" {
		model = DefaultGeminiModel
	}

	return &Gemini{client: client, model: model}, nil
}

// Name implements Source.
func (s *Gemini) Name() string {
	return "gemini"
}

// Decide sends the request context to the model and parses its JSON
// reply.
func (s *Gemini) Decide(ctx context.Context, req Request) (types.Decision, error) {
	resp, err := s.client.Models.GenerateContent(ctx, s.model, genai.Text(buildPrompt(req)), nil)
	if err != nil {
		return types.Decision{}, errors.Wrapf(errors.ErrCodeDecisionFailed, err,
			"gemini request failed for %s", req.Instrument)
	}

	return parseDecision(resp.Text())
}

// buildPrompt renders the request as an analyst briefing. Only data
// dated up to the as-of day is ever included.
func buildPrompt(req Request) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are evaluating %s as of %s.\n", req.Instrument, req.AsOf.Format("2006-01-02"))

	if req.Formation.IsSome() && req.Validation.IsSome() {
		formation := req.Formation.Unwrap()
		validation := req.Validation.Unwrap()

		fmt.Fprintf(&b, "A %s formation was detected with entry %.2f, conservative target %.2f, aggressive target %.2f.\n",
			formation.Kind, formation.EntryPrice, formation.ConservativeTarget, formation.AggressiveTarget)
		fmt.Fprintf(&b, "Across %d prior occurrences the conservative target hit %.0f%% of the time and the aggressive target %.0f%%. Approved tier: %s.\n",
			validation.OccurrenceCount, validation.ConservativeHitRate*100,
			validation.AggressiveHitRate*100, validation.ApprovedTarget)
	} else {
		b.WriteString("No validated chart formation is present.\n")
	}

	if req.Fundamentals.IsSome() {
		fmt.Fprintf(&b, "Fundamentals snapshot:\n%s\n", req.Fundamentals.Unwrap())
	}

	if req.Sentiment.IsSome() {
		fmt.Fprintf(&b, "Sentiment snapshot:\n%s\n", req.Sentiment.Unwrap())
	}

	b.WriteString(`Reply with a single JSON object and nothing else: ` +
		`{"action":"buy"|"sell"|"hold","confidence":0.0-1.0,"stop_loss":number,"target":number,"rationale":"one sentence"}`)

	return b.String()
}

// parseDecision extracts the JSON object from the model's reply,
// tolerating markdown code fences around it.
func parseDecision(text string) (types.Decision, error) {
	trimmed := strings.TrimSpace(text)
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(trimmed, "```")
	trimmed = strings.TrimSpace(trimmed)

	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")

	if start < 0 || end <= start {
		return types.Decision{}, errors.Newf(errors.ErrCodeDecisionParse, "no JSON object in reply: %q", text)
	}

	var decision types.Decision
	if err := json.Unmarshal([]byte(trimmed[start:end+1]), &decision); err != nil {
		return types.Decision{}, errors.Wrap(errors.ErrCodeDecisionParse, "malformed decision JSON", err)
	}

	switch decision.Action {
	case types.ActionBuy, types.ActionSell, types.ActionHold:
	default:
		return types.Decision{}, errors.Newf(errors.ErrCodeDecisionParse, "unknown action %q", decision.Action)
	}

	return decision, nil
}
