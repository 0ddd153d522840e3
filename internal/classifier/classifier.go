package classifier

import (
	"errors"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"github.com/medbot/backend/internal/session"
	"github.com/medbot/backend/pkg/logger"
)

// ErrInsufficientContext reports a follow-up phrasing with no qualifying
// medical turn in recent history; the pipeline must refuse before retrieval
// rather than answer confidently with nothing to ground on.
var ErrInsufficientContext = errors.New("follow-up question without prior medical context")

type Type string

const (
	TypeNewQuestion Type = "new_question"
	TypeFollowUp    Type = "follow_up"
)

// contextWindow is how far back a follow-up may reach for grounding.
const contextWindow = 3

type Decision struct {
	Accepted bool
	Type     Type
	// CombinedContext carries the most recent in-domain user question when
	// the query is a follow-up, so generation is grounded in the original
	// topic rather than the follow-up fragment alone.
	CombinedContext string
	// MatchedRule records which rule decided, for logs and tests.
	MatchedRule string
}

type Classifier struct {
	rules Rules
}

func New(rules Rules) *Classifier {
	return &Classifier{rules: rules}
}

// Classify gates a query. Precedence: deny-list, then active conversation
// context, then domain keyword/pattern/affix scan, then rejection.
// Deterministic for a fixed query and history.
func (c *Classifier) Classify(query string, history []session.Turn) Decision {
	lower := strings.ToLower(query)

	for _, pattern := range c.rules.DenyPatterns {
		if strings.Contains(lower, pattern) {
			logger.Info("Query rejected by deny-list", zap.String("pattern", pattern))
			return Decision{Accepted: false, MatchedRule: "deny:" + pattern}
		}
	}

	if domainTurn, ok := c.lastDomainUserTurn(history); ok {
		if phrase, isFollowUp := c.matchFollowUp(lower); isFollowUp {
			return Decision{
				Accepted:        true,
				Type:            TypeFollowUp,
				CombinedContext: domainTurn,
				MatchedRule:     "follow_up:" + phrase,
			}
		}
		// An active medical conversation outweighs ambiguous phrasing.
		return Decision{Accepted: true, Type: TypeNewQuestion, MatchedRule: "context"}
	}

	for _, keyword := range c.rules.Keywords {
		if strings.Contains(lower, keyword) {
			return Decision{Accepted: true, Type: TypeNewQuestion, MatchedRule: "keyword:" + keyword}
		}
	}

	for _, pattern := range c.rules.QuestionPatterns {
		if strings.Contains(lower, pattern) {
			return Decision{Accepted: true, Type: TypeNewQuestion, MatchedRule: "pattern:" + pattern}
		}
	}

	if affix, ok := c.matchAffix(lower); ok {
		return Decision{Accepted: true, Type: TypeNewQuestion, MatchedRule: "affix:" + affix}
	}

	logger.Info("No medical indicators found in query")
	return Decision{Accepted: false, MatchedRule: "no_match"}
}

// ValidateFollowUp fails fast when a query leans on conversation context
// that is not there. It runs before classification proper.
func (c *Classifier) ValidateFollowUp(query string, history []session.Turn) error {
	lower := strings.ToLower(query)

	if _, isFollowUp := c.matchFollowUp(lower); !isFollowUp {
		return nil
	}

	if len(history) == 0 {
		return ErrInsufficientContext
	}
	if _, ok := c.lastDomainUserTurn(history); !ok {
		return ErrInsufficientContext
	}
	return nil
}

// lastDomainUserTurn scans the most recent turns for medical context and
// returns the latest in-domain user question.
func (c *Classifier) lastDomainUserTurn(history []session.Turn) (string, bool) {
	start := len(history) - contextWindow
	if start < 0 {
		start = 0
	}

	found := false
	lastUserQuestion := ""

	for i := len(history) - 1; i >= start; i-- {
		turn := history[i]
		if !c.isDomainContent(strings.ToLower(turn.Content)) {
			continue
		}
		found = true
		if turn.Role == session.RoleUser && lastUserQuestion == "" {
			lastUserQuestion = turn.Content
		}
	}

	return lastUserQuestion, found
}

func (c *Classifier) isDomainContent(lower string) bool {
	for _, term := range c.rules.ContextTerms {
		if strings.Contains(lower, term) {
			return true
		}
	}
	for _, pattern := range c.rules.QuestionPatterns {
		if strings.Contains(lower, pattern) {
			return true
		}
	}
	return false
}

func (c *Classifier) matchFollowUp(lower string) (string, bool) {
	for _, phrase := range c.rules.FollowUpPhrasings {
		if strings.Contains(lower, phrase) {
			return phrase, true
		}
	}
	return "", false
}

// matchAffix matches prefixes at word starts and suffixes at word ends, not
// anywhere in the string; "problems" must not match the prefix "pro".
func (c *Classifier) matchAffix(lower string) (string, bool) {
	words := strings.FieldsFunc(lower, func(r rune) bool {
		return !unicode.IsLetter(r)
	})

	for _, word := range words {
		for _, prefix := range c.rules.Prefixes {
			if strings.HasPrefix(word, prefix) {
				return prefix, true
			}
		}
		for _, suffix := range c.rules.Suffixes {
			if strings.HasSuffix(word, suffix) && len(word) > len(suffix) {
				return suffix, true
			}
		}
	}
	return "", false
}
