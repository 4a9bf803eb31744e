package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	apperrors "statement-classifier/internal/errors"
	"statement-classifier/internal/models"
	"statement-classifier/internal/repositories"
	"statement-classifier/internal/validation"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
)

// Modes reported with rules.applied metrics and log entries
const (
	ApplyModeAll    = "all"
	ApplyModeSingle = "single"
)

// Rule mutation operations
const (
	opAdd    = "add"
	opUpdate = "update"
	opDelete = "delete"
	opSeed   = "seed"
	opLoad   = "load"
	opSave   = "save"
)

const (
	defaultClassifyWorkers   = 4
	defaultParallelThreshold = 2000
)

var _ RuleEngineInterface = (*RuleEngine)(nil)

// compiledRule pairs a rule with its case-folded keywords
type compiledRule struct {
	rule   models.CategoryRule
	folded []string
}

// RuleEngine owns the ordered rule set and assigns classification tags.
//
// The rule slice is copy-on-write: mutations build a new slice under the
// write lock and persist it before releasing the lock, apply calls read a
// snapshot under the read lock.
type RuleEngine struct {
	mu    sync.RWMutex
	rules []compiledRule

	store             repositories.RuleStoreInterface
	logger            IngestLoggerInterface
	metrics           MetricsRecorderInterface
	validator         *validation.Validator
	workers           int
	parallelThreshold int
}

type RuleEngineOption func(*RuleEngine)

func WithEngineLogger(logger IngestLoggerInterface) RuleEngineOption {
	return func(e *RuleEngine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

func WithEngineMetrics(metrics MetricsRecorderInterface) RuleEngineOption {
	return func(e *RuleEngine) {
		if metrics != nil {
			e.metrics = metrics
		}
	}
}

func WithEngineValidator(v *validation.Validator) RuleEngineOption {
	return func(e *RuleEngine) {
		if v != nil {
			e.validator = v
		}
	}
}

// WithClassifyWorkers bounds the goroutines used by ApplyToAll
func WithClassifyWorkers(n int) RuleEngineOption {
	return func(e *RuleEngine) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithParallelThreshold sets the batch size from which ApplyToAll fans out
func WithParallelThreshold(n int) RuleEngineOption {
	return func(e *RuleEngine) {
		if n > 0 {
			e.parallelThreshold = n
		}
	}
}

// NewRuleEngine loads the rule set from store once. A load failure is logged
// and the engine starts with no rules.
func NewRuleEngine(store repositories.RuleStoreInterface, opts ...RuleEngineOption) *RuleEngine {
	e := &RuleEngine{
		store:             store,
		logger:            NewDiscardIngestLogger(),
		metrics:           NoopMetrics{},
		validator:         validation.GetValidator(),
		workers:           defaultClassifyWorkers,
		parallelThreshold: defaultParallelThreshold,
	}
	for _, opt := range opts {
		opt(e)
	}

	rules, err := store.Load()
	if err != nil {
		e.recordStoreFailure(opLoad, err)
		rules = nil
	}

	for i := range rules {
		if rules[i].ID == "" {
			rules[i].ID = uuid.NewString()
		}
	}
	e.rules = compileRules(rules)
	e.metrics.RecordGauge(MetricRuleCount, float64(len(e.rules)), nil)
	return e
}

// AddRule creates a rule with a fresh id and inserts it by priority
func (e *RuleEngine) AddRule(keywords []string, priority int, tags models.TagMap) (*models.CategoryRule, error) {
	if err := e.validate(keywords, priority, tags); err != nil {
		return nil, err
	}

	rule := models.CategoryRule{
		ID:       uuid.NewString(),
		Keywords: models.NormalizedKeywords(keywords),
		Priority: priority,
		Enabled:  true,
		Tags:     copyTags(tags),
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	next := make([]compiledRule, 0, len(e.rules)+1)
	next = append(next, e.rules...)
	next = append(next, compile(rule))
	sortByPriority(next)

	out := rule.Copy()
	return &out, e.commit(opAdd, rule.ID, next)
}

// UpdateRule applies the non-nil fields of update to the rule with id
func (e *RuleEngine) UpdateRule(id string, update models.RuleUpdate) (*models.CategoryRule, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	idx := e.indexOf(id)
	if idx < 0 {
		return nil, ruleNotFound(id)
	}

	rule := e.rules[idx].rule.Copy()
	if update.Keywords != nil {
		rule.Keywords = models.NormalizedKeywords(update.Keywords)
	}
	if update.Priority != nil {
		rule.Priority = *update.Priority
	}
	if update.Enabled != nil {
		rule.Enabled = *update.Enabled
	}
	if update.Tags != nil {
		rule.Tags = copyTags(update.Tags)
	}
	// priority and enabled carry no constraints, so only new keywords or tags are checked
	if update.Keywords != nil || update.Tags != nil {
		if err := e.validate(rule.Keywords, rule.Priority, rule.Tags); err != nil {
			return nil, err
		}
	}

	next := make([]compiledRule, len(e.rules))
	copy(next, e.rules)
	next[idx] = compile(rule)
	sortByPriority(next)

	out := rule.Copy()
	return &out, e.commit(opUpdate, id, next)
}

func (e *RuleEngine) DeleteRule(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	idx := e.indexOf(id)
	if idx < 0 {
		return ruleNotFound(id)
	}

	next := make([]compiledRule, 0, len(e.rules)-1)
	next = append(next, e.rules[:idx]...)
	next = append(next, e.rules[idx+1:]...)
	return e.commit(opDelete, id, next)
}

func (e *RuleEngine) GetRule(id string) (*models.CategoryRule, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	idx := e.indexOf(id)
	if idx < 0 {
		return nil, ruleNotFound(id)
	}
	out := e.rules[idx].rule.Copy()
	return &out, nil
}

// Rules returns copies of all rules in evaluation order
func (e *RuleEngine) Rules() []models.CategoryRule {
	snapshot := e.snapshot()
	out := make([]models.CategoryRule, len(snapshot))
	for i, cr := range snapshot {
		out[i] = cr.rule.Copy()
	}
	return out
}

// SeedIfEmpty installs seeds when the engine holds no rules. Invalid seeds
// are skipped. It returns the number of rules installed.
func (e *RuleEngine) SeedIfEmpty(seeds []models.CategoryRule) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.rules) > 0 || len(seeds) == 0 {
		return 0, nil
	}

	next := make([]compiledRule, 0, len(seeds))
	for _, seed := range seeds {
		rule := seed.Copy()
		rule.Keywords = models.NormalizedKeywords(rule.Keywords)
		if err := e.validate(rule.Keywords, rule.Priority, rule.Tags); err != nil {
			e.logger.LogRuleTagSkipped(context.Background(), seed.ID, "", err)
			continue
		}
		if rule.ID == "" {
			rule.ID = uuid.NewString()
		}
		next = append(next, compile(rule))
	}
	if len(next) == 0 {
		return 0, nil
	}
	sortByPriority(next)

	return len(next), e.commit(opSeed, "", next)
}

// Match reports whether rule is enabled and every keyword occurs in description, ignoring case
func (e *RuleEngine) Match(description string, rule models.CategoryRule) bool {
	caser := cases.Fold()
	return matches(compileWith(caser, rule), caser.String(description))
}

// ApplyToTransaction runs every matching rule in evaluation order; for each
// field the last matching rule wins. It reports whether any tag was assigned.
func (e *RuleEngine) ApplyToTransaction(tx *models.Transaction) bool {
	return e.apply(tx, e.snapshot(), cases.Fold())
}

// ApplyToAll applies the rule set to txs and returns how many were changed
func (e *RuleEngine) ApplyToAll(txs []*models.Transaction) int {
	start := time.Now()
	snapshot := e.snapshot()

	var changed int
	if len(txs) >= e.parallelThreshold && e.workers > 1 {
		changed = e.applyParallel(txs, snapshot)
	} else {
		caser := cases.Fold()
		for _, tx := range txs {
			if e.apply(tx, snapshot, caser) {
				changed++
			}
		}
	}

	e.metrics.RecordProcessingTime(MetricClassifyTime, time.Since(start))
	e.metrics.RecordGauge(MetricRulesApplied, float64(changed), map[string]string{"mode": ApplyModeAll})
	e.logger.LogRulesApplied(context.Background(), ApplyModeAll, changed, len(txs))
	return changed
}

// ApplySingleRule applies only rule, ignoring the rest of the set
func (e *RuleEngine) ApplySingleRule(rule models.CategoryRule, txs []*models.Transaction) int {
	caser := cases.Fold()
	single := []compiledRule{compileWith(caser, rule)}

	changed := 0
	for _, tx := range txs {
		if e.apply(tx, single, caser) {
			changed++
		}
	}

	e.metrics.RecordGauge(MetricRulesApplied, float64(changed), map[string]string{"mode": ApplyModeSingle})
	e.logger.LogRulesApplied(context.Background(), ApplyModeSingle, changed, len(txs))
	return changed
}

// FindMatchingCategory returns the category the rule set would assign to description
func (e *RuleEngine) FindMatchingCategory(description string) (string, bool) {
	caser := cases.Fold()
	folded := caser.String(description)

	category, found := "", false
	for _, cr := range e.snapshot() {
		if !matches(cr, folded) {
			continue
		}
		if value := cr.rule.Tags[models.FieldCategory]; value != "" {
			category, found = value, true
		}
	}
	return category, found
}

func (e *RuleEngine) apply(tx *models.Transaction, rules []compiledRule, caser cases.Caser) bool {
	if tx == nil {
		return false
	}
	folded := caser.String(tx.Description)

	changed := false
	for _, cr := range rules {
		if !matches(cr, folded) {
			continue
		}
		for _, field := range cr.rule.Tags.SortedFields() {
			assigned, err := tx.SetClassification(field, cr.rule.Tags[field])
			if err != nil {
				e.logger.LogRuleTagSkipped(context.Background(), cr.rule.ID, field, err)
				continue
			}
			changed = changed || assigned
		}
	}
	return changed
}

// applyParallel splits txs into chunks handled by at most e.workers goroutines.
// Each transaction belongs to exactly one chunk.
func (e *RuleEngine) applyParallel(txs []*models.Transaction, rules []compiledRule) int {
	chunkSize := (len(txs) + e.workers - 1) / e.workers

	var (
		wg      sync.WaitGroup
		changed atomic.Int64
		sem     = make(chan struct{}, e.workers)
	)
	for start := 0; start < len(txs); start += chunkSize {
		end := start + chunkSize
		if end > len(txs) {
			end = len(txs)
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(chunk []*models.Transaction) {
			defer wg.Done()
			defer func() { <-sem }()

			caser := cases.Fold()
			for _, tx := range chunk {
				if e.apply(tx, rules, caser) {
					changed.Add(1)
				}
			}
		}(txs[start:end])
	}
	wg.Wait()
	return int(changed.Load())
}

// commit installs next and persists it. Must be called with the write lock held.
// A save failure keeps next as the rules of record and returns RULESTORE_002.
func (e *RuleEngine) commit(op, ruleID string, next []compiledRule) error {
	e.rules = next
	e.metrics.IncrementCounter(MetricRuleMutation, map[string]string{"op": op})
	e.metrics.RecordGauge(MetricRuleCount, float64(len(next)), nil)
	e.logger.LogRuleMutation(context.Background(), op, ruleID)

	rules := make([]models.CategoryRule, len(next))
	for i, cr := range next {
		rules[i] = cr.rule.Copy()
	}
	if err := e.store.Save(rules); err != nil {
		e.recordStoreFailure(opSave, err)
		if apperrors.HasCode(err, apperrors.RuleStoreSaveFailed) {
			return err
		}
		return apperrors.Wrap(apperrors.RuleStoreSaveFailed, err)
	}
	return nil
}

func (e *RuleEngine) recordStoreFailure(op string, err error) {
	e.metrics.IncrementCounter(MetricRuleStoreFailure, map[string]string{"op": op})
	e.logger.LogRuleStoreFailure(context.Background(), op, err)
}

func (e *RuleEngine) validate(keywords []string, priority int, tags models.TagMap) error {
	for field := range tags {
		if !models.IsClassificationField(field) {
			return apperrors.New(apperrors.RuleUnknownField,
				apperrors.WithDetails(fmt.Sprintf("%q is not one of %s", field, strings.Join(models.ClassificationFields(), ", "))))
		}
	}

	fieldErrors := e.validator.ValidateRuleInput(validation.RuleInput{
		Keywords: keywords,
		Priority: priority,
		Tags:     tags,
	})
	if len(fieldErrors) > 0 {
		return apperrors.New(apperrors.RuleInvalid, apperrors.WithDetails(validation.Details(fieldErrors)...))
	}
	return nil
}

func (e *RuleEngine) snapshot() []compiledRule {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.rules
}

// indexOf must be called with the lock held
func (e *RuleEngine) indexOf(id string) int {
	for i, cr := range e.rules {
		if cr.rule.ID == id {
			return i
		}
	}
	return -1
}

func matches(cr compiledRule, foldedDescription string) bool {
	if !cr.rule.Enabled {
		return false
	}
	for _, kw := range cr.folded {
		if !strings.Contains(foldedDescription, kw) {
			return false
		}
	}
	return true
}

func compile(rule models.CategoryRule) compiledRule {
	return compileWith(cases.Fold(), rule)
}

func compileWith(caser cases.Caser, rule models.CategoryRule) compiledRule {
	keywords := models.NormalizedKeywords(rule.Keywords)
	folded := make([]string, len(keywords))
	for i, kw := range keywords {
		folded[i] = caser.String(kw)
	}
	return compiledRule{rule: rule, folded: folded}
}

func compileRules(rules []models.CategoryRule) []compiledRule {
	caser := cases.Fold()
	out := make([]compiledRule, len(rules))
	for i, r := range rules {
		out[i] = compileWith(caser, r)
	}
	sortByPriority(out)
	return out
}

// sortByPriority orders by descending priority, keeping insertion order on ties
func sortByPriority(rules []compiledRule) {
	sort.SliceStable(rules, func(i, j int) bool {
		return rules[i].rule.Priority > rules[j].rule.Priority
	})
}

func copyTags(tags models.TagMap) models.TagMap {
	out := make(models.TagMap, len(tags))
	for k, v := range tags {
		out[k] = v
	}
	return out
}

func ruleNotFound(id string) error {
	return apperrors.New(apperrors.RuleNotFound, apperrors.WithDetails("id="+id))
}
