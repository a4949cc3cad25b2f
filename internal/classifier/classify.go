package classifier

import (
	"context"
	"fmt"
	"time"

	"github.com/lukemcguire/siteranker/internal/rank"
)

// maxRemediationRounds bounds the parse-failure / shape-failure /
// out-of-vocabulary retry loop: one initial attempt plus up to three
// remediation attempts in total, in any mix of failure modes (spec.md §4.4).
const maxRemediationRounds = 4

// Link is one extracted link submitted for classification.
type Link struct {
	URL  string
	Text string
}

// Classifier batches links through Transport, applying the adaptive rate
// limit, exponential backoff on rate-limit errors, and the remediation
// retry protocol for malformed, misshapen, or out-of-vocabulary replies.
type Classifier struct {
	transport Transport
	limiter   *adaptiveLimiter
	backoff   backoffPolicy
	vocab     rank.Vocabulary
}

// New builds a Classifier against the fixed keyword Vocabulary.
func New(transport Transport) *Classifier {
	return &Classifier{
		transport: transport,
		limiter:   newAdaptiveLimiter(2.0, 3*time.Second),
		backoff:   defaultBackoffPolicy(),
		vocab:     Vocabulary,
	}
}

// Classify submits a batch of links and returns the validated
// classification for each link the model assigned at least one keyword to.
// Keywords are in-vocabulary unless the rounds run out while only
// out-of-vocabulary keywords remain; the last shape-valid reply is then
// returned with those keywords intact. Links the model omits simply have
// no entry in the result.
func (c *Classifier) Classify(ctx context.Context, links []Link) ([]Classified, error) {
	inputs := make([]linkInput, len(links))
	for i, l := range links {
		inputs[i] = linkInput{URL: l.URL, Text: l.Text}
	}

	prompt, err := buildPrompt(inputs)
	if err != nil {
		return nil, fmt.Errorf("classify: %w", err)
	}

	conversation := []Message{{Role: RoleUser, Text: prompt}}

	// lastValidResults holds the most recent shape-valid parse, kept so that
	// if only the out-of-vocabulary round runs out, surviving OOV keywords
	// can still be returned for rank.Score to down-weight (spec.md §4.5)
	// rather than discarded as a hard failure.
	var lastValidResults []Classified
	haveValidShape := false

	for round := 0; round < maxRemediationRounds; round++ {
		raw, err := c.send(ctx, conversation)
		if err != nil {
			return nil, fmt.Errorf("classify: %w", err)
		}

		results, discarded, parseErr := parseResponse(raw)
		if parseErr != nil {
			conversation = remediate(conversation, raw, retryMalformedJSONPrompt)
			continue
		}
		if discarded > 0 {
			conversation = remediate(conversation, raw, retryInvalidShapePrompt)
			continue
		}

		lastValidResults = results
		haveValidShape = true

		if invalid := outOfVocabulary(results, c.vocab); len(invalid) > 0 {
			conversation = remediate(conversation, raw, buildOutOfVocabularyPrompt(invalid))
			continue
		}

		return results, nil
	}

	if haveValidShape {
		return lastValidResults, nil
	}

	return nil, fmt.Errorf("classify: exhausted remediation rounds without a valid response")
}

// send performs one rate-limited, backoff-wrapped round trip and feeds the
// observed latency back into the adaptive limiter.
func (c *Classifier) send(ctx context.Context, conversation []Message) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}

	start := time.Now()
	text, err := sendWithBackoff(ctx, c.backoff, func(ctx context.Context) (string, error) {
		return c.transport.Send(ctx, systemPrompt, conversation)
	})
	c.limiter.ObserveRTT(time.Since(start))
	return text, err
}

// remediate appends the prior bad response as an assistant turn followed
// by a correction instruction, the stateless stand-in for a provider-native
// "previous response id" continuation (spec.md §9).
func remediate(conversation []Message, badResponse, instruction string) []Message {
	return append(conversation,
		Message{Role: RoleAssistant, Text: badResponse},
		Message{Role: RoleUser, Text: instruction},
	)
}
