package rules

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openintake/triage/internal/types"
)

var testNow = time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

func testEngine(t *testing.T) *Engine {
	t.Helper()
	e := NewDefaultEngine(nil, nil)
	e.now = func() time.Time { return testNow }
	return e
}

func emailUnit(content, sender string) *types.InformationUnit {
	meta := map[string]any{}
	if sender != "" {
		meta["sender_email"] = sender
	}
	return &types.InformationUnit{
		ID:          "unit-1",
		TenantID:    "tenant-1",
		Channel:     types.ChannelEmail,
		Content:     content,
		ContentHash: "hash",
		ReceivedAt:  testNow.Add(-time.Hour),
		Metadata:    meta,
	}
}

func daysFromNow(d float64) *time.Time {
	t := testNow.Add(time.Duration(d * 24 * float64(time.Hour)))
	return &t
}

func TestClassifyNeutralBaseline(t *testing.T) {
	e := testEngine(t)
	result := e.Classify(emailUnit("bonjour, merci pour votre retour", "client@orange.fr"), &Enrichment{RepetitionCount: 1})

	assert.Equal(t, 1, result.Score)
	assert.Equal(t, types.PriorityMedium, result.FinalPriority)
	assert.Empty(t, result.Applications)
	assert.False(t, result.RequiresHumanValidation)
}

func TestClassifyScoreAlwaysInBounds(t *testing.T) {
	e := testEngine(t)
	units := []*types.InformationUnit{
		emailUnit("OQTF recours audience mise en demeure sous 15 jours", "prefecture@interieur.gouv.fr"),
		emailUnit("newsletter du mois", "promo@newsletter.fr"),
		emailUnit("hello", ""),
	}
	enrichments := []*Enrichment{
		{DueDate: daysFromNow(1), RepetitionCount: 5},
		{RepetitionCount: 0},
		nil,
	}
	for _, u := range units {
		for _, enr := range enrichments {
			result := e.Classify(u, enr)
			require.GreaterOrEqual(t, result.Score, 0)
			require.LessOrEqual(t, result.Score, 3)
			require.NoError(t, result.Validate())
		}
	}
}

// Content matching two distinct deadline patterns with a due date two
// days out must clamp at CRITICAL with at least two applied rules.
func TestClassifyStackedDeadlines(t *testing.T) {
	e := testEngine(t)
	unit := emailUnit("Notification d'une OQTF; un recours contentieux est possible.", "client@orange.fr")
	result := e.Classify(unit, &Enrichment{
		DueDate:         daysFromNow(2),
		DeadlineMatches: DefaultTables().ScanDeadlines(unit.Content),
		RepetitionCount: 1,
	})

	assert.Equal(t, 3, result.Score)
	assert.Equal(t, types.PriorityCritical, result.FinalPriority)
	assert.GreaterOrEqual(t, len(result.Applications), 2)
	assert.True(t, result.RequiresHumanValidation)
}

// An institutional sender alone lifts the base score to CRITICAL:
// 1 (base) + 2 (actor) = 3.
func TestClassifyInstitutionalSender(t *testing.T) {
	e := testEngine(t)
	unit := emailUnit("transmission de votre dossier", "service-etrangers@prefecture.gouv.fr")
	result := e.Classify(unit, &Enrichment{RepetitionCount: 1})

	assert.Equal(t, 3, result.Score)
	assert.Equal(t, types.PriorityCritical, result.FinalPriority)
	assert.True(t, result.RequiresHumanValidation)
	require.Len(t, result.Applications, 1)
	assert.Equal(t, "actor_type", result.Applications[0].RuleID)
	assert.Equal(t, 2, result.Applications[0].Boost)
}

func TestClassifyNegativeBoostClampsAtZero(t *testing.T) {
	e := testEngine(t)
	unit := emailUnit("offre du mois", "promo@newsletter.example.com")
	result := e.Classify(unit, &Enrichment{RepetitionCount: 1})

	assert.Equal(t, 0, result.Score)
	assert.Equal(t, types.PriorityLow, result.FinalPriority)
}

func TestApplicationsPreserveRegistrationOrder(t *testing.T) {
	e := testEngine(t)
	unit := emailUnit("OQTF notifiée, audience au tribunal", "avocat@cabinet-durand.fr")
	result := e.Classify(unit, &Enrichment{
		DueDate:         daysFromNow(1),
		RepetitionCount: 3,
	})

	require.Len(t, result.Applications, 4)
	assert.Equal(t, "deadline_critical", result.Applications[0].RuleID)
	assert.Equal(t, "actor_type", result.Applications[1].RuleID)
	assert.Equal(t, "semantic_deadline", result.Applications[2].RuleID)
	assert.Equal(t, "repetition_alert", result.Applications[3].RuleID)
}

func TestDeadlineCriticalRule(t *testing.T) {
	rule := deadlineCriticalRule{}
	unit := emailUnit("content", "")

	tests := []struct {
		name    string
		due     *time.Time
		matches bool
	}{
		{"no due date", nil, false},
		{"due in the past", daysFromNow(-1), false},
		{"due right now", daysFromNow(0), false},
		{"due in 1 hour", daysFromNow(1.0 / 24.0), true},
		{"due in 2 days", daysFromNow(2), true},
		{"due in exactly 3 days", daysFromNow(3), true},
		{"due in 4 days", daysFromNow(4), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := rule.Evaluate(unit, &Enrichment{DueDate: tt.due}, testNow)
			if tt.matches {
				require.NotNil(t, app)
				assert.Equal(t, 2, app.Boost)
				assert.Equal(t, 1.0, app.Confidence)
			} else {
				assert.Nil(t, app)
			}
		})
	}
}

func TestActorTypeRule(t *testing.T) {
	rule := actorTypeRule{tables: DefaultTables()}

	tests := []struct {
		name   string
		sender string
		boost  int // 0 means no application
	}{
		{"institution", "greffe@tribunal-administratif.fr", 2},
		{"gouv domain", "contact@rhone.gouv.fr", 2},
		{"legal counsel", "mx@avocat-lyon.fr", 1},
		{"third party", "info@newsletter.shop", -1},
		{"client default abstains", "martin@orange.fr", 0},
		{"no sender abstains", "", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := rule.Evaluate(emailUnit("content", tt.sender), &Enrichment{}, testNow)
			if tt.boost == 0 {
				assert.Nil(t, app)
				return
			}
			require.NotNil(t, app)
			assert.Equal(t, tt.boost, app.Boost)
			assert.Equal(t, 0.9, app.Confidence)
		})
	}
}

func TestSemanticDeadlineRule(t *testing.T) {
	rule := semanticDeadlineRule{tables: DefaultTables()}

	tests := []struct {
		name    string
		content string
		boost   int
	}{
		{"no pattern", "merci pour votre message", 0},
		{"single pattern", "une OQTF a été notifiée", 1},
		{"two patterns", "OQTF notifiée, un recours est ouvert", 2},
		{"three patterns still +2", "OQTF, recours, convocation à l'audience", 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := rule.Evaluate(emailUnit(tt.content, ""), &Enrichment{}, testNow)
			if tt.boost == 0 {
				assert.Nil(t, app)
				return
			}
			require.NotNil(t, app)
			assert.Equal(t, tt.boost, app.Boost)
			assert.Equal(t, 0.95, app.Confidence)
			assert.NotEmpty(t, app.LegalBasis)
		})
	}
}

func TestRepetitionAlertRule(t *testing.T) {
	rule := repetitionAlertRule{}
	unit := emailUnit("content", "a@b.fr")

	assert.Nil(t, rule.Evaluate(unit, nil, testNow))
	assert.Nil(t, rule.Evaluate(unit, &Enrichment{RepetitionCount: 0}, testNow))
	assert.Nil(t, rule.Evaluate(unit, &Enrichment{RepetitionCount: 1}, testNow))

	app := rule.Evaluate(unit, &Enrichment{RepetitionCount: 2}, testNow)
	require.NotNil(t, app)
	assert.Equal(t, 1, app.Boost)
	assert.Equal(t, 1.0, app.Confidence)
}
