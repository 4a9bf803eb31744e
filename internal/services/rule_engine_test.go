package services

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	apperrors "statement-classifier/internal/errors"
	"statement-classifier/internal/models"
	"statement-classifier/internal/repositories"
	"statement-classifier/internal/repositories/repository_mocks"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

func newTx(description string) *models.Transaction {
	d := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	return models.NewTransaction(d, d, description, decimal.NewFromInt(-10), models.BankUnknown)
}

type RuleEngineTestSuite struct {
	suite.Suite
	store  *repositories.MemoryRuleStore
	engine *RuleEngine
}

func TestRuleEngineSuite(t *testing.T) {
	suite.Run(t, new(RuleEngineTestSuite))
}

func (s *RuleEngineTestSuite) SetupTest() {
	s.store = repositories.NewMemoryRuleStore()
	s.engine = NewRuleEngine(s.store)
}

func (s *RuleEngineTestSuite) mustAdd(keywords []string, priority int, tags models.TagMap) *models.CategoryRule {
	rule, err := s.engine.AddRule(keywords, priority, tags)
	s.Require().NoError(err)
	return rule
}

// Mutations

func (s *RuleEngineTestSuite) TestAddRule_AssignsIDAndPersists() {
	rule := s.mustAdd([]string{" netflix ", ""}, 10, models.TagMap{models.FieldCategory: "Entertainment"})

	_, err := uuid.Parse(rule.ID)
	s.NoError(err)
	s.True(rule.Enabled)
	s.Equal(models.StringList{"netflix"}, rule.Keywords)
	s.Equal(1, s.store.Saves())

	stored, err := s.store.Load()
	s.Require().NoError(err)
	s.Require().Len(stored, 1)
	s.Equal(rule.ID, stored[0].ID)
}

func (s *RuleEngineTestSuite) TestAddRule_KeepsDescendingPriorityStable() {
	low := s.mustAdd([]string{"a"}, 1, models.TagMap{models.FieldCategory: "Low"})
	high := s.mustAdd([]string{"b"}, 10, models.TagMap{models.FieldCategory: "High"})
	tieFirst := s.mustAdd([]string{"c"}, 5, models.TagMap{models.FieldCategory: "Tie1"})
	tieSecond := s.mustAdd([]string{"d"}, 5, models.TagMap{models.FieldCategory: "Tie2"})

	rules := s.engine.Rules()
	s.Require().Len(rules, 4)
	s.Equal([]string{high.ID, tieFirst.ID, tieSecond.ID, low.ID},
		[]string{rules[0].ID, rules[1].ID, rules[2].ID, rules[3].ID})

	stored, _ := s.store.Load()
	s.Equal(rules[0].ID, stored[0].ID)
	s.Equal(rules[3].ID, stored[3].ID)
}

func (s *RuleEngineTestSuite) TestAddRule_Validation() {
	testCases := []struct {
		name     string
		keywords []string
		priority int
		tags     models.TagMap
		code     apperrors.ErrorCode
	}{
		{"no keywords", nil, 1, models.TagMap{models.FieldCategory: "X"}, apperrors.RuleInvalid},
		{"blank keywords", []string{" ", ""}, 1, models.TagMap{models.FieldCategory: "X"}, apperrors.RuleInvalid},
		{"no tags", []string{"a"}, 1, models.TagMap{}, apperrors.RuleInvalid},
		{"unknown field", []string{"a"}, 1, models.TagMap{"colour": "red"}, apperrors.RuleUnknownField},
		{"bad necessity", []string{"a"}, 1, models.TagMap{models.FieldNecessity: "Luxury"}, apperrors.RuleInvalid},
		{"bad recurrence", []string{"a"}, 1, models.TagMap{models.FieldRecurrence: "Hourly"}, apperrors.RuleInvalid},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			rule, err := s.engine.AddRule(tc.keywords, tc.priority, tc.tags)
			s.Nil(rule)
			s.True(apperrors.HasCode(err, tc.code), "got %v", err)
		})
	}
	s.Empty(s.engine.Rules())
	s.Equal(0, s.store.Saves())
}

func (s *RuleEngineTestSuite) TestUpdateRule_AppliesOnlySuppliedFields() {
	rule := s.mustAdd([]string{"uber"}, 1, models.TagMap{models.FieldCategory: models.CategoryAutoTransport})
	other := s.mustAdd([]string{"lyft"}, 5, models.TagMap{models.FieldCategory: models.CategoryAutoTransport})

	priority := 9
	updated, err := s.engine.UpdateRule(rule.ID, models.RuleUpdate{Priority: &priority})
	s.Require().NoError(err)
	s.Equal(9, updated.Priority)
	s.Equal(models.StringList{"uber"}, updated.Keywords)
	s.Equal(models.TagMap{models.FieldCategory: models.CategoryAutoTransport}, updated.Tags)
	s.True(updated.Enabled)

	rules := s.engine.Rules()
	s.Equal(rule.ID, rules[0].ID)
	s.Equal(other.ID, rules[1].ID)

	disabled := false
	updated, err = s.engine.UpdateRule(rule.ID, models.RuleUpdate{
		Enabled:  &disabled,
		Keywords: []string{"uber", "eats"},
		Tags:     models.TagMap{models.FieldCategory: models.CategoryFoodDining},
	})
	s.Require().NoError(err)
	s.False(updated.Enabled)
	s.Equal(models.StringList{"uber", "eats"}, updated.Keywords)
	s.Equal(models.CategoryFoodDining, updated.Tags[models.FieldCategory])
}

func (s *RuleEngineTestSuite) TestAddRule_AcceptsAnyIntegerPriority() {
	high := s.mustAdd([]string{"rent"}, 5000, models.TagMap{models.FieldCategory: models.CategoryHome})
	low := s.mustAdd([]string{"fee"}, -1_000_000, models.TagMap{models.FieldCategory: models.CategoryFees})

	rules := s.engine.Rules()
	s.Require().Len(rules, 2)
	s.Equal(high.ID, rules[0].ID)
	s.Equal(low.ID, rules[1].ID)
	s.Equal(-1_000_000, rules[1].Priority)
}

func (s *RuleEngineTestSuite) TestUpdateRule_DisablesStoredRuleWithLargePriority() {
	store := repositories.NewMemoryRuleStore(models.CategoryRule{
		ID:       "r1",
		Keywords: models.StringList{"rent"},
		Priority: 1500,
		Enabled:  true,
		Tags:     models.TagMap{models.FieldCategory: models.CategoryHome},
	})
	engine := NewRuleEngine(store)

	disabled := false
	rule, err := engine.UpdateRule("r1", models.RuleUpdate{Enabled: &disabled})
	s.Require().NoError(err)
	s.False(rule.Enabled)
	s.Equal(1500, rule.Priority)
	s.Equal(models.StringList{"rent"}, rule.Keywords)
}

func (s *RuleEngineTestSuite) TestUpdateRule_PriorityOnlySkipsTagChecks() {
	// rules loaded from a store are not re-validated until their keywords or tags change
	store := repositories.NewMemoryRuleStore(models.CategoryRule{
		ID:       "legacy",
		Keywords: models.StringList{"gym"},
		Enabled:  true,
		Tags:     models.TagMap{models.FieldNecessity: "Luxury"},
	})
	engine := NewRuleEngine(store)

	priority := 7
	rule, err := engine.UpdateRule("legacy", models.RuleUpdate{Priority: &priority})
	s.Require().NoError(err)
	s.Equal(7, rule.Priority)

	_, err = engine.UpdateRule("legacy", models.RuleUpdate{Keywords: []string{"fitness"}})
	s.True(apperrors.HasCode(err, apperrors.RuleInvalid), "got %v", err)
}

func (s *RuleEngineTestSuite) TestUpdateRule_InvalidKeepsOriginal() {
	rule := s.mustAdd([]string{"uber"}, 1, models.TagMap{models.FieldCategory: models.CategoryAutoTransport})

	_, err := s.engine.UpdateRule(rule.ID, models.RuleUpdate{Tags: models.TagMap{models.FieldNecessity: "bogus"}})
	s.True(apperrors.HasCode(err, apperrors.RuleInvalid))

	got, err := s.engine.GetRule(rule.ID)
	s.Require().NoError(err)
	s.Equal(rule.Tags, got.Tags)
}

func (s *RuleEngineTestSuite) TestNotFound() {
	_, err := s.engine.UpdateRule("missing", models.RuleUpdate{})
	s.True(apperrors.HasCode(err, apperrors.RuleNotFound))

	s.True(apperrors.HasCode(s.engine.DeleteRule("missing"), apperrors.RuleNotFound))

	_, err = s.engine.GetRule("missing")
	s.True(apperrors.HasCode(err, apperrors.RuleNotFound))
	s.Equal(apperrors.KindRule, apperrors.KindOf(err))
}

func (s *RuleEngineTestSuite) TestDeleteRule() {
	a := s.mustAdd([]string{"a"}, 1, models.TagMap{models.FieldCategory: "A"})
	b := s.mustAdd([]string{"b"}, 1, models.TagMap{models.FieldCategory: "B"})

	s.Require().NoError(s.engine.DeleteRule(a.ID))

	rules := s.engine.Rules()
	s.Require().Len(rules, 1)
	s.Equal(b.ID, rules[0].ID)

	stored, _ := s.store.Load()
	s.Len(stored, 1)
}

func (s *RuleEngineTestSuite) TestGetRuleAndRules_ReturnCopies() {
	rule := s.mustAdd([]string{"a"}, 1, models.TagMap{models.FieldCategory: "A"})

	got, err := s.engine.GetRule(rule.ID)
	s.Require().NoError(err)
	got.Tags[models.FieldCategory] = "mutated"
	got.Keywords[0] = "mutated"

	rules := s.engine.Rules()
	rules[0].Tags[models.FieldCategory] = "mutated"

	again, _ := s.engine.GetRule(rule.ID)
	s.Equal("A", again.Tags[models.FieldCategory])
	s.Equal("a", again.Keywords[0])
}

// Matching

func (s *RuleEngineTestSuite) TestMatch_AllKeywordsRequired() {
	rule := models.CategoryRule{Keywords: models.StringList{"uber", "trip"}, Enabled: true}

	s.True(s.engine.Match("UBER   TRIP 12345", rule))
	s.True(s.engine.Match("trip paid via Uber", rule))
	s.False(s.engine.Match("UBER EATS", rule))
	s.False(s.engine.Match("", rule))
}

func (s *RuleEngineTestSuite) TestMatch_DisabledOrEmpty() {
	s.False(s.engine.Match("NETFLIX", models.CategoryRule{Keywords: models.StringList{"netflix"}, Enabled: false}))

	// no keywords means no condition to fail
	s.True(s.engine.Match("NETFLIX", models.CategoryRule{Enabled: true}))
	s.True(s.engine.Match("", models.CategoryRule{Keywords: models.StringList{" "}, Enabled: true}))
	s.False(s.engine.Match("NETFLIX", models.CategoryRule{Enabled: false}))
}

func (s *RuleEngineTestSuite) TestApplySingleRule_EmptyKeywordsMatchEverything() {
	rule := models.CategoryRule{ID: "all", Enabled: true, Tags: models.TagMap{models.FieldNote: "reviewed"}}
	txs := []*models.Transaction{newTx("A"), newTx("B")}

	s.Equal(2, s.engine.ApplySingleRule(rule, txs))
	s.Equal("reviewed", txs[0].Note)
	s.Equal("reviewed", txs[1].Note)
}

func (s *RuleEngineTestSuite) TestMatch_UnicodeCaseFolding() {
	rule := models.CategoryRule{Keywords: models.StringList{"STRASSE"}, Enabled: true}
	s.True(s.engine.Match("Café an der Straße", rule))

	rule = models.CategoryRule{Keywords: models.StringList{"café"}, Enabled: true}
	s.True(s.engine.Match("CAFÉ NERO", rule))
}

// Application

func (s *RuleEngineTestSuite) TestApplyToTransaction_AssignsAllTags() {
	s.mustAdd([]string{"netflix"}, 10, models.TagMap{
		models.FieldCategory:   models.CategoryEntertainment,
		models.FieldNecessity:  "wants",
		models.FieldRecurrence: "Subscription",
		models.FieldNote:       "streaming",
	})

	tx := newTx("NETFLIX.COM 866-579-7172")
	s.True(s.engine.ApplyToTransaction(tx))
	s.Equal(models.CategoryEntertainment, tx.Category)
	s.Equal(models.NecessityWants, tx.Necessity)
	s.Equal(models.RecurrenceSubscription, tx.Recurrence)
	s.Equal("streaming", tx.Note)
}

func (s *RuleEngineTestSuite) TestApplyToTransaction_NoMatchLeavesDefaults() {
	s.mustAdd([]string{"netflix"}, 10, models.TagMap{models.FieldCategory: models.CategoryEntertainment})

	tx := newTx("GROCERY OUTLET")
	s.False(s.engine.ApplyToTransaction(tx))
	s.Equal(models.CategoryOther, tx.Category)
	s.Equal(models.NecessityUnknown, tx.Necessity)
	s.Equal(models.RecurrenceOneTime, tx.Recurrence)

	s.False(s.engine.ApplyToTransaction(nil))
}

func (s *RuleEngineTestSuite) TestApplyToTransaction_LastMatchInPriorityOrderWins() {
	s.mustAdd([]string{"airport"}, 10, models.TagMap{models.FieldCategory: models.CategoryFoodDining})
	s.mustAdd([]string{"airport"}, 5, models.TagMap{models.FieldCategory: models.CategoryTravel})

	tx := newTx("AIRPORT CAFE")
	s.True(s.engine.ApplyToTransaction(tx))
	s.Equal(models.CategoryTravel, tx.Category)

	category, ok := s.engine.FindMatchingCategory("AIRPORT CAFE")
	s.True(ok)
	s.Equal(models.CategoryTravel, category)
}

func (s *RuleEngineTestSuite) TestApplyToTransaction_FieldsMergeAcrossRules() {
	s.mustAdd([]string{"spotify"}, 10, models.TagMap{models.FieldCategory: models.CategoryEntertainment})
	s.mustAdd([]string{"spotify"}, 1, models.TagMap{models.FieldRecurrence: "Subscription"})

	tx := newTx("SPOTIFY USA")
	s.True(s.engine.ApplyToTransaction(tx))
	s.Equal(models.CategoryEntertainment, tx.Category)
	s.Equal(models.RecurrenceSubscription, tx.Recurrence)
}

func (s *RuleEngineTestSuite) TestApplyToTransaction_Idempotent() {
	s.mustAdd([]string{"shell"}, 10, models.TagMap{
		models.FieldCategory:  models.CategoryGasFuel,
		models.FieldNecessity: "Needs",
	})

	tx := newTx("SHELL OIL 1234")
	s.engine.ApplyToTransaction(tx)
	first := *tx
	s.engine.ApplyToTransaction(tx)
	s.Equal(first, *tx)
}

func (s *RuleEngineTestSuite) TestApplyToTransaction_DisabledRuleIgnored() {
	rule := s.mustAdd([]string{"shell"}, 10, models.TagMap{models.FieldCategory: models.CategoryGasFuel})
	disabled := false
	_, err := s.engine.UpdateRule(rule.ID, models.RuleUpdate{Enabled: &disabled})
	s.Require().NoError(err)

	tx := newTx("SHELL OIL")
	s.False(s.engine.ApplyToTransaction(tx))
	s.Equal(models.CategoryOther, tx.Category)
}

func (s *RuleEngineTestSuite) TestApplyToTransaction_SkipsUnknownStoredFields() {
	store := repositories.NewMemoryRuleStore(models.CategoryRule{
		ID:       "legacy",
		Keywords: models.StringList{"costco"},
		Priority: 1,
		Enabled:  true,
		Tags:     models.TagMap{"colour": "red", models.FieldCategory: models.CategoryGroceries},
	})
	engine := NewRuleEngine(store)

	tx := newTx("COSTCO WHSE")
	s.True(engine.ApplyToTransaction(tx))
	s.Equal(models.CategoryGroceries, tx.Category)
}

func (s *RuleEngineTestSuite) TestApplyToAll_CountsChanged() {
	s.mustAdd([]string{"netflix"}, 10, models.TagMap{models.FieldCategory: models.CategoryEntertainment})

	txs := []*models.Transaction{newTx("NETFLIX"), newTx("HULU"), newTx("netflix.com")}
	s.Equal(2, s.engine.ApplyToAll(txs))
	s.Equal(models.CategoryOther, txs[1].Category)
	s.Equal(0, s.engine.ApplyToAll(nil))
}

func (s *RuleEngineTestSuite) TestApplyToAll_ParallelMatchesSequential() {
	engine := NewRuleEngine(repositories.NewMemoryRuleStore(), WithClassifyWorkers(4), WithParallelThreshold(10))
	_, err := engine.AddRule([]string{"coffee"}, 1, models.TagMap{models.FieldCategory: models.CategoryFoodDining})
	s.Require().NoError(err)

	faker := gofakeit.New(7)
	txs := make([]*models.Transaction, 1001)
	expected := 0
	for i := range txs {
		desc := faker.Numerify("STORE ####")
		if i%3 == 0 {
			desc = "COFFEE " + faker.Company()
			expected++
		}
		txs[i] = newTx(desc)
	}

	s.Equal(expected, engine.ApplyToAll(txs))
	for i, tx := range txs {
		if i%3 == 0 {
			s.Equal(models.CategoryFoodDining, tx.Category, "tx %d", i)
		}
	}
}

func (s *RuleEngineTestSuite) TestApplySingleRule_IgnoresRuleSet() {
	s.mustAdd([]string{"amazon"}, 10, models.TagMap{models.FieldCategory: models.CategoryShopping})

	preview := models.CategoryRule{
		ID:       "preview",
		Keywords: models.StringList{"prime"},
		Enabled:  true,
		Tags:     models.TagMap{models.FieldRecurrence: "Subscription"},
	}
	txs := []*models.Transaction{newTx("AMAZON PRIME"), newTx("AMAZON MKTP")}

	s.Equal(1, s.engine.ApplySingleRule(preview, txs))
	s.Equal(models.RecurrenceSubscription, txs[0].Recurrence)
	s.Equal(models.CategoryOther, txs[0].Category)
	s.Equal(models.CategoryOther, txs[1].Category)
}

func (s *RuleEngineTestSuite) TestFindMatchingCategory_NoCategoryTag() {
	s.mustAdd([]string{"gym"}, 1, models.TagMap{models.FieldNecessity: "Wants"})

	_, ok := s.engine.FindMatchingCategory("LA FITNESS GYM")
	s.False(ok)
}

// Seeding

func (s *RuleEngineTestSuite) TestSeedIfEmpty() {
	seeds := []models.CategoryRule{
		{Keywords: models.StringList{"payroll"}, Priority: 5, Enabled: true, Tags: models.TagMap{models.FieldCategory: models.CategoryIncome}},
		{Keywords: models.StringList{"netflix"}, Priority: 10, Enabled: true, Tags: models.TagMap{models.FieldRecurrence: "Subscription"}},
		{Keywords: nil, Priority: 1, Enabled: true, Tags: models.TagMap{models.FieldCategory: "Broken"}},
	}

	n, err := s.engine.SeedIfEmpty(seeds)
	s.Require().NoError(err)
	s.Equal(2, n)

	rules := s.engine.Rules()
	s.Require().Len(rules, 2)
	s.Equal(models.StringList{"netflix"}, rules[0].Keywords)
	s.NotEmpty(rules[0].ID)
	s.Equal(1, s.store.Saves())

	n, err = s.engine.SeedIfEmpty(seeds)
	s.NoError(err)
	s.Equal(0, n)
	s.Equal(1, s.store.Saves())
}

// Concurrency

func (s *RuleEngineTestSuite) TestConcurrentMutationAndApply() {
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			_, err := s.engine.AddRule([]string{fmt.Sprintf("kw%d", i)}, i, models.TagMap{models.FieldCategory: "C"})
			s.NoError(err)
		}(i)
		go func(i int) {
			defer wg.Done()
			s.engine.ApplyToAll([]*models.Transaction{newTx(fmt.Sprintf("KW%d", i))})
		}(i)
	}
	wg.Wait()

	rules := s.engine.Rules()
	s.Len(rules, 8)
	for i := 1; i < len(rules); i++ {
		s.GreaterOrEqual(rules[i-1].Priority, rules[i].Priority)
	}
}

// Store failures

type RuleEngineStoreTestSuite struct {
	suite.Suite
	ctrl  *gomock.Controller
	store *repository_mocks.MockRuleStoreInterface
}

func TestRuleEngineStoreSuite(t *testing.T) {
	suite.Run(t, new(RuleEngineStoreTestSuite))
}

func (s *RuleEngineStoreTestSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.store = repository_mocks.NewMockRuleStoreInterface(s.ctrl)
}

func (s *RuleEngineStoreTestSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *RuleEngineStoreTestSuite) TestLoadFailure_StartsEmpty() {
	s.store.EXPECT().Load().Return(nil, apperrors.New(apperrors.RuleStoreLoadFailed))
	s.store.EXPECT().Save(gomock.Any()).Return(nil)

	engine := NewRuleEngine(s.store)
	s.Empty(engine.Rules())

	_, err := engine.AddRule([]string{"a"}, 1, models.TagMap{models.FieldCategory: "A"})
	s.NoError(err)
	s.Len(engine.Rules(), 1)
}

func (s *RuleEngineStoreTestSuite) TestLoad_AssignsMissingIDsAndSorts() {
	s.store.EXPECT().Load().Return([]models.CategoryRule{
		{Keywords: models.StringList{"low"}, Priority: 1, Enabled: true, Tags: models.TagMap{models.FieldCategory: "L"}},
		{ID: "high", Keywords: models.StringList{"high"}, Priority: 9, Enabled: true, Tags: models.TagMap{models.FieldCategory: "H"}},
	}, nil)

	engine := NewRuleEngine(s.store)
	rules := engine.Rules()
	s.Require().Len(rules, 2)
	s.Equal("high", rules[0].ID)
	s.NotEmpty(rules[1].ID)
}

func (s *RuleEngineStoreTestSuite) TestSaveFailure_KeepsMutation() {
	s.store.EXPECT().Load().Return(nil, nil)
	s.store.EXPECT().Save(gomock.Any()).Return(errors.New("disk full"))

	engine := NewRuleEngine(s.store)
	rule, err := engine.AddRule([]string{"netflix"}, 1, models.TagMap{models.FieldCategory: "Entertainment"})

	s.Require().NotNil(rule)
	s.True(apperrors.HasCode(err, apperrors.RuleStoreSaveFailed))
	s.Equal(apperrors.KindRuleStore, apperrors.KindOf(err))
	s.ErrorContains(err, "disk full")

	rules := engine.Rules()
	s.Require().Len(rules, 1)
	s.Equal(rule.ID, rules[0].ID)
}

func (s *RuleEngineStoreTestSuite) TestSaveFailure_KeepsStoreCode() {
	s.store.EXPECT().Load().Return(nil, nil)
	storeErr := apperrors.Wrap(apperrors.RuleStoreSaveFailed, errors.New("rename failed"))
	s.store.EXPECT().Save(gomock.Any()).Return(storeErr)

	engine := NewRuleEngine(s.store)
	_, err := engine.AddRule([]string{"a"}, 1, models.TagMap{models.FieldCategory: "A"})
	s.Same(storeErr, err)
}

func (s *RuleEngineStoreTestSuite) TestSavePersistsEngineOrder() {
	s.store.EXPECT().Load().Return(nil, nil)
	var saved []models.CategoryRule
	s.store.EXPECT().Save(gomock.Any()).DoAndReturn(func(rules []models.CategoryRule) error {
		saved = rules
		return nil
	}).Times(2)

	engine := NewRuleEngine(s.store)
	_, err := engine.AddRule([]string{"a"}, 1, models.TagMap{models.FieldCategory: "A"})
	s.Require().NoError(err)
	_, err = engine.AddRule([]string{"b"}, 2, models.TagMap{models.FieldCategory: "B"})
	s.Require().NoError(err)

	s.Require().Len(saved, 2)
	s.Equal(models.StringList{"b"}, saved[0].Keywords)
	s.Equal(models.StringList{"a"}, saved[1].Keywords)
}
