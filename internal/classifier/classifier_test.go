package classifier

import (
	"errors"
	"testing"
	"time"

	"github.com/medbot/backend/internal/session"
)

func turn(role, content string) session.Turn {
	return session.Turn{Role: role, Content: content, Timestamp: time.Now()}
}

func TestClassifyDenyListAlwaysWins(t *testing.T) {
	c := New(DefaultRules())

	// Medical context in history must not rescue a denied query.
	history := []session.Turn{
		turn(session.RoleUser, "What are the symptoms of diabetes?"),
		turn(session.RoleAssistant, "Diabetes symptoms include increased thirst."),
	}

	d := c.Classify("What is the weather in the hospital district?", history)
	if d.Accepted {
		t.Fatal("deny-listed query was accepted despite medical context")
	}
}

func TestClassifyKeywords(t *testing.T) {
	c := New(DefaultRules())

	cases := []struct {
		query    string
		accepted bool
	}{
		{"What are the symptoms of hypertension?", true},
		{"Tell me about diabetes management", true},
		{"How does chemotherapy treatment work?", true},
		{"I have a headache and fever", true},
		{"What is the best pizza topping?", false},
		{"Recommend a good movie", false},
	}

	for _, tc := range cases {
		d := c.Classify(tc.query, nil)
		if d.Accepted != tc.accepted {
			t.Errorf("Classify(%q): accepted=%v, want %v (rule %s)",
				tc.query, d.Accepted, tc.accepted, d.MatchedRule)
		}
		if d.Accepted && d.Type != TypeNewQuestion {
			t.Errorf("Classify(%q): type=%s, want new_question", tc.query, d.Type)
		}
	}
}

func TestClassifyQuestionPatterns(t *testing.T) {
	c := New(DefaultRules())

	d := c.Classify("What are the causes of persistent fatigue?", nil)
	if !d.Accepted {
		t.Error("question-pattern query was rejected")
	}
}

func TestClassifyAffixWordBoundaries(t *testing.T) {
	c := New(DefaultRules())

	// "arthritis" ends in -itis; accepted even without a keyword hit.
	d := c.Classify("Is bronchiolitis contagious?", nil)
	if !d.Accepted {
		t.Error("suffix-matching query was rejected")
	}

	// "antibiotics" contains "bio" only mid-word; prefixes anchor at word
	// starts, so it must not match.
	d = c.Classify("my antibiotics arrived yesterday", nil)
	if d.Accepted {
		t.Errorf("substring affix leaked through word boundary: rule %s", d.MatchedRule)
	}

	// A word equal to a suffix alone does not count.
	d = c.Classify("tell me about oma", nil)
	if d.Accepted {
		t.Errorf("bare suffix word was accepted: rule %s", d.MatchedRule)
	}
}

func TestClassifyFollowUpWithContext(t *testing.T) {
	c := New(DefaultRules())

	history := []session.Turn{
		turn(session.RoleUser, "What are the symptoms of diabetes?"),
		turn(session.RoleAssistant, "Common diabetes symptoms include thirst and fatigue."),
	}

	d := c.Classify("Can you explain in detail?", history)
	if !d.Accepted {
		t.Fatal("follow-up with medical context was rejected")
	}
	if d.Type != TypeFollowUp {
		t.Errorf("type=%s, want follow_up", d.Type)
	}
	if d.CombinedContext != "What are the symptoms of diabetes?" {
		t.Errorf("combined context = %q, want the original question", d.CombinedContext)
	}
}

func TestClassifyAmbiguousQueryRidesActiveContext(t *testing.T) {
	c := New(DefaultRules())

	history := []session.Turn{
		turn(session.RoleUser, "Tell me about hypertension treatment"),
		turn(session.RoleAssistant, "Hypertension treatment usually combines lifestyle changes and medication."),
	}

	// No medical keyword, no follow-up phrasing: the active medical
	// conversation accepts it as a new question.
	d := c.Classify("And what about for older adults?", history)
	if !d.Accepted {
		t.Fatal("ambiguous query in active medical conversation was rejected")
	}
	if d.Type != TypeNewQuestion {
		t.Errorf("type=%s, want new_question", d.Type)
	}
}

func TestClassifyContextWindowLimit(t *testing.T) {
	c := New(DefaultRules())

	// The medical turn sits beyond the 3-turn window, so the ambiguous query
	// has no context to stand on.
	history := []session.Turn{
		turn(session.RoleUser, "What are the symptoms of asthma?"),
		turn(session.RoleAssistant, "Wheezing and shortness of breath."),
		turn(session.RoleUser, "Thanks, that helps a lot"),
		turn(session.RoleAssistant, "You're welcome!"),
		turn(session.RoleUser, "What a nice day today"),
	}

	d := c.Classify("And what about the other thing?", history)
	if d.Accepted {
		t.Errorf("query accepted on stale context: rule %s", d.MatchedRule)
	}
}

func TestValidateFollowUp(t *testing.T) {
	c := New(DefaultRules())

	medicalHistory := []session.Turn{
		turn(session.RoleUser, "What causes a stroke?"),
		turn(session.RoleAssistant, "A stroke happens when blood flow to the brain is interrupted."),
	}
	smallTalk := []session.Turn{
		turn(session.RoleUser, "Nice talking to you"),
		turn(session.RoleAssistant, "Likewise!"),
	}

	cases := []struct {
		name    string
		query   string
		history []session.Turn
		wantErr bool
	}{
		{"follow-up with no history", "Tell me more about that", nil, true},
		{"follow-up with small talk only", "Tell me more about that", smallTalk, true},
		{"follow-up with medical context", "Tell me more about that", medicalHistory, false},
		{"standalone question, no history", "What are the symptoms of flu?", nil, false},
	}

	for _, tc := range cases {
		err := c.ValidateFollowUp(tc.query, tc.history)
		if tc.wantErr && !errors.Is(err, ErrInsufficientContext) {
			t.Errorf("%s: got err=%v, want ErrInsufficientContext", tc.name, err)
		}
		if !tc.wantErr && err != nil {
			t.Errorf("%s: unexpected error %v", tc.name, err)
		}
	}
}

func TestClassifyDeterministic(t *testing.T) {
	c := New(DefaultRules())
	history := []session.Turn{
		turn(session.RoleUser, "What is pneumonia?"),
		turn(session.RoleAssistant, "Pneumonia is a lung infection."),
	}

	first := c.Classify("explain further please", history)
	for i := 0; i < 5; i++ {
		d := c.Classify("explain further please", history)
		if d != first {
			t.Fatal("classification is not deterministic for fixed inputs")
		}
	}
}
