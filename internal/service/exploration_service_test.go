package service_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"game-exploration-be/internal/dto"
	"game-exploration-be/internal/model"
	"game-exploration-be/internal/pkg/logger"
	previewrepo "game-exploration-be/internal/repository/memory"
	"game-exploration-be/internal/repository/specification"
	"game-exploration-be/internal/repository/unitofwork"
	"game-exploration-be/internal/service"
	"game-exploration-be/pkg/database"
	"game-exploration-be/pkg/events"
	"game-exploration-be/pkg/exploration"
	"game-exploration-be/pkg/exploration/debuglog"
	"game-exploration-be/pkg/exploration/preview"
	"game-exploration-be/pkg/exploration/schema"
	"game-exploration-be/pkg/exploration/stage"
	"game-exploration-be/pkg/exploration/state"
	"game-exploration-be/pkg/llm"
	"game-exploration-be/pkg/llm/llmtest"
	"game-exploration-be/pkg/templates"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	stageDecomposeFresh      = "decompose_fresh"
	stageDecomposeContextual = "decompose_contextual"
	stageBranches            = "branches"
	stageMapper              = "mapper"
	stageFeel                = "feel"
	stageCustomize           = "customize"
	stageFix                 = "fix"
	stageIterate             = "iterate"
	stageSynthesis           = "synthesis"
)

// stageMarkers identify a stage by a phrase of its system prompt.
var stageMarkers = []struct{ marker, stage string }{
	{"requirement decomposer for HTML5 web games", stageDecomposeFresh},
	{"HTML5 game that already exists", stageDecomposeContextual},
	{"game design director", stageBranches},
	{"option mapper", stageMapper},
	{"game feel architect", stageFeel},
	{"code customizer", stageCustomize},
	{"game debugger", stageFix},
	{"code modifier", stageIterate},
	{"structured memory writer", stageSynthesis},
}

const (
	freshDecomposition = `{"summary":"one-tap runner","dimensions":{
		"platform":{"candidates":["mobile","web"],"confidence":"high"},
		"tone":{"candidates":["cute","dark","neon"],"confidence":"med"},
		"goals":{"candidates":["distance","score"],"confidence":"low"}},
		"hard_constraints":["controls: tap"],"open_questions":[]}`

	contextualDecomposition = `{"summary":"add power-ups and a boss","locked":{"description":"existing game","items":["presentation: 2d side view"]},
		"dimensions":{
		"controls":{"candidates":["tap","swipe"],"confidence":"high"},
		"power_ups":{"candidates":["shield","magnet","dash"],"confidence":"med"},
		"boss":{"candidates":["giant","swarm","maze"],"confidence":"low"}},
		"hard_constraints":[],"open_questions":[]}`

	freshBranches = `{"branches":[
		{"branch_id":"b1","name":"Cute Dash","picked":{"platform":"mobile","tone":"cute","goals":"distance"}},
		{"branch_id":"b2","name":"Dark Score","picked":{"platform":"web","tone":"dark","goals":"score"}},
		{"branch_id":"b3","name":"Neon Climb","picked":{"platform":"mobile","tone":"neon","goals":"score"}}]}`

	contextualBranches = `{"branches":[
		{"branch_id":"b1","name":"Giant Shield","picked":{"boss":"giant","power_ups":"shield"}},
		{"branch_id":"b2","name":"Swarm Magnet","picked":{"boss":"swarm","power_ups":"magnet"}},
		{"branch_id":"b3","name":"Maze Dash","picked":{"boss":"maze","power_ups":"dash"}}]}`

	tooFewBranches = `{"branches":[
		{"branch_id":"b1","name":"Only","picked":{"platform":"mobile","tone":"cute","goals":"distance"}},
		{"branch_id":"b2","name":"Two","picked":{"platform":"web","tone":"dark","goals":"score"}}]}`

	options = `{"options":[
		{"option_id":"opt_1","branch_id":"b1","title":"Tap Runner","core_loop":"run and jump","controls":"tap","mechanics":["jump"],"template_id":"runner_endless","complexity":"low","mobile_fit":"good","is_recommended":true},
		{"option_id":"opt_2","branch_id":"b2","title":"Night Platformer","core_loop":"climb","controls":"keyboard","mechanics":["double jump"],"template_id":"platformer_basic","complexity":"medium","mobile_fit":"fair"},
		{"option_id":"opt_3","branch_id":"b3","title":"Neon Tapper","core_loop":"tap for points","controls":"tap","mechanics":["combo"],"template_id":"clicker_idle","complexity":"low","mobile_fit":"good"}],
		"recommended_option_id":"opt_1"}`

	feelSpec   = `{"jump_model":{"gravity":1800},"tuning":{"default_preset":"arcade"}}`
	customized = `{"index.html":"<!DOCTYPE html><html><head></head><body>game</body></html>"}`
	fixedGame  = `{"index.html":"<!DOCTYPE html><html><head></head><body>fixed</body></html>"}`
	synthesis  = `{"title":"Tap Runner","summary":"The user liked one-tap jumping.",
		"user_preferences":{"platform":"mobile","input":"tap"},
		"final_choice":{"option_id":"opt_1","why":"fun"},
		"validated_hypotheses":["tap is enough"],"rejected_hypotheses":[],
		"key_decisions":[],"pitfalls_and_guards":["keep runs short"]}`
)

// script answers every stage with a valid default unless a reply was queued for it.
type script struct {
	mu         sync.Mutex
	calls      map[string]int
	queued     map[string][]llmtest.Reply
	iterations int
}

func newScript() *script {
	return &script{calls: map[string]int{}, queued: map[string][]llmtest.Reply{}}
}

func (s *script) queue(stage string, replies ...llmtest.Reply) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queued[stage] = append(s.queued[stage], replies...)
}

func (s *script) count(stage string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[stage]
}

func (s *script) respond(history []llm.Message, opts *llm.Options) (*llm.Completion, error) {
	system := history[0].Content
	name := "unknown"
	for _, m := range stageMarkers {
		if strings.Contains(system, m.marker) {
			name = m.stage
			break
		}
	}

	s.mu.Lock()
	s.calls[name]++
	if q := s.queued[name]; len(q) > 0 {
		s.queued[name] = q[1:]
		s.mu.Unlock()
		if q[0].Err != nil {
			return nil, q[0].Err
		}
		c := q[0].Completion
		return &c, nil
	}
	if name == stageIterate {
		s.iterations++
	}
	iteration := s.iterations
	s.mu.Unlock()

	var content string
	switch name {
	case stageDecomposeFresh:
		content = freshDecomposition
	case stageDecomposeContextual:
		content = contextualDecomposition
	case stageBranches:
		content = freshBranches
		if strings.Contains(system, "Locked decisions") {
			content = contextualBranches
		}
	case stageMapper:
		content = options
	case stageFeel:
		content = feelSpec
	case stageCustomize:
		content = customized
	case stageFix:
		content = fixedGame
	case stageIterate:
		content = `{"index.html":"<!DOCTYPE html><html><head></head><body>game v` + string(rune('0'+iteration)) + `</body></html>"}`
	case stageSynthesis:
		content = synthesis
	default:
		return nil, errors.New("unexpected stage prompt")
	}
	return &llm.Completion{Content: content}, nil
}

type recordedEvents struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recordedEvents) Publish(ctx context.Context, event events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

// states lists the target state of every state event in publish order.
func (r *recordedEvents) states() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, e := range r.events {
		if e.EventType() == events.ExplorationStateChanged {
			out = append(out, e.Payload()["state"].(string))
		}
	}
	return out
}

func (r *recordedEvents) count(eventType string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.EventType() == eventType {
			n++
		}
	}
	return n
}

type harness struct {
	svc      service.IExplorationService
	memory   service.IMemoryService
	factory  unitofwork.RepositoryFactory
	provider *llmtest.Provider
	script   *script
	debug    *debuglog.Buffer
	events   *recordedEvents
	project  uuid.UUID
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db, err := database.NewGormDB(database.GormConfig{Driver: database.DriverSQLite, DSN: "file::memory:", Quiet: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(model.All()...))

	catalog, err := templates.Default()
	require.NoError(t, err)

	log := logger.NewNopLogger()
	sc := newScript()
	provider := llmtest.New()
	provider.Responder = sc.respond
	debug := debuglog.New(100)
	runner := stage.NewRunner(provider, debug, log, stage.Config{Model: "test-model"})

	factory := unitofwork.NewRepositoryFactory(db)
	memorySvc := service.NewMemoryService(factory, log)
	recorder := &recordedEvents{}
	svc := service.NewExplorationService(factory, runner, catalog,
		preview.NewCache(previewrepo.NewPreviewRepository()), memorySvc, recorder, log)

	return &harness{
		svc:      svc,
		memory:   memorySvc,
		factory:  factory,
		provider: provider,
		script:   sc,
		debug:    debug,
		events:   recorder,
		project:  uuid.New(),
	}
}

func (h *harness) explore(t *testing.T, input string) *dto.ExploreResponse {
	t.Helper()
	res, err := h.svc.Explore(context.Background(), h.project, &dto.ExploreRequest{UserInput: input})
	require.NoError(t, err)
	return res
}

func (h *harness) selectOption(t *testing.T, sessionId uint, optionId string) *dto.SelectOptionResponse {
	t.Helper()
	res, err := h.svc.SelectOption(context.Background(), h.project, &dto.SelectOptionRequest{SessionId: sessionId, OptionId: optionId})
	require.NoError(t, err)
	return res
}

func currentVersionId(t *testing.T, h *harness) uint {
	t.Helper()
	v, err := h.factory.NewUnitOfWork(context.Background()).ProjectVersionRepository().FindCurrent(context.Background(), h.project)
	require.NoError(t, err)
	if v == nil {
		return 0
	}
	return v.Id
}

func TestExplore_FreshProject(t *testing.T) {
	h := newHarness(t)

	res := h.explore(t, "a mobile game where you tap to jump over obstacles")

	assert.Equal(t, string(schema.ModeFresh), res.Mode)
	assert.Equal(t, string(state.ExploreOptions), res.State)
	assert.Nil(t, res.Decomposition.Locked)
	assert.Contains(t, res.Decomposition.Dimensions["platform"].Candidates, "mobile")
	assert.Contains(t, res.Decomposition.HardConstraints, "controls: tap")
	assert.Nil(t, res.MemoryInfluence)

	require.Len(t, res.Options, 3)
	recommended := 0
	for _, o := range res.Options {
		if o.IsRecommended {
			recommended++
		}
	}
	assert.Equal(t, 1, recommended)
	assert.Equal(t, "runner", res.Options[0].GameType)
	assert.Equal(t, "mobile", res.Options[0].Picked["platform"])

	active, err := h.svc.GetActiveSession(context.Background(), h.project)
	require.NoError(t, err)
	assert.Equal(t, res.SessionId, active.SessionId)
	assert.Len(t, active.Options, 3)

	var labels []string
	for _, e := range h.debug.List() {
		labels = append(labels, e.Label)
	}
	assert.Equal(t, []string{"A:decompose(fresh)", "B:branches", "C:mapper"}, labels)
	assert.Equal(t, []string{string(state.ExploreOptions)}, h.events.states())
}

func TestExplore_DecompositionCanSearchMemory(t *testing.T) {
	h := newHarness(t)
	h.script.queue(stageDecomposeFresh,
		llmtest.ToolCall("call_1", "search_memory", `{"query":"tap","filter_type":"all"}`),
		llmtest.Text(freshDecomposition),
	)

	h.explore(t, "tap to jump")

	var toolResults []string
	for _, req := range h.provider.Requests() {
		for _, m := range req.History {
			if m.Role == llm.RoleTool {
				toolResults = append(toolResults, m.ToolCallID)
			}
		}
	}
	require.NotEmpty(t, toolResults)
	assert.Equal(t, "call_1", toolResults[0])
	assert.Equal(t, 2, h.script.count(stageDecomposeFresh))
}

func TestExplore_BranchViolationIsRepromptedOnce(t *testing.T) {
	h := newHarness(t)
	h.script.queue(stageBranches, llmtest.Text(tooFewBranches))

	res := h.explore(t, "tap to jump")
	assert.Len(t, res.Branches, 3)
	assert.Equal(t, 2, h.script.count(stageBranches))

	var reprompted bool
	for _, req := range h.provider.Requests() {
		if strings.Contains(req.History[1].Content, "Your previous answer was rejected") {
			reprompted = true
			assert.Contains(t, req.History[1].Content, "expected 3-6 branches, got 2")
		}
	}
	assert.True(t, reprompted)
}

func TestExplore_PersistentBranchViolationFails(t *testing.T) {
	h := newHarness(t)
	h.script.queue(stageBranches, llmtest.Text(tooFewBranches), llmtest.Text(tooFewBranches))

	_, err := h.svc.Explore(context.Background(), h.project, &dto.ExploreRequest{UserInput: "tap to jump"})
	require.Error(t, err)
	assert.ErrorIs(t, err, exploration.ErrConstraintViolation)
	assert.False(t, exploration.IsRetryable(err))

	_, err = h.svc.GetActiveSession(context.Background(), h.project)
	assert.ErrorIs(t, err, exploration.ErrNotFound)
}

func TestExplore_ProviderFailureIsRetryable(t *testing.T) {
	h := newHarness(t)
	h.script.queue(stageMapper, llmtest.Fail(errors.New("503 from upstream")))

	_, err := h.svc.Explore(context.Background(), h.project, &dto.ExploreRequest{UserInput: "tap to jump"})
	require.Error(t, err)
	assert.ErrorIs(t, err, exploration.ErrProvider)
	assert.True(t, exploration.IsRetryable(err))
}

func TestSelectOption_PersistsVersionAndDecisionNote(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	res := h.explore(t, "tap to jump")

	sel := h.selectOption(t, res.SessionId, "opt_2")
	assert.Equal(t, string(state.Committed), sel.State)
	assert.Equal(t, sel.VersionId, currentVersionId(t, h))

	notes, err := h.memory.ListNotes(ctx, h.project)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	note := notes[0]
	assert.Equal(t, string(schema.KindDesignDecision), note.Kind)
	assert.Equal(t, schema.DesignDecisionConfidence, note.Confidence)
	assert.Equal(t, "Design Decision: Night Platformer", note.Content.Title)
	assert.Equal(t, `User requested: "tap to jump". Decomposed into 3 dimensions. Selected "Night Platformer" from 3 options.`, note.Content.Summary)
	assert.Equal(t, "User selected manually", note.Content.FinalChoice.Why)
	require.NotNil(t, note.SourceVersionId)
	assert.Equal(t, sel.VersionId, *note.SourceVersionId)
	assert.Contains(t, note.Tags, "type:design_decision")
	assert.Contains(t, note.Tags, "chosen:opt_2")
	require.NotNil(t, note.Content.DecisionDetail)
	assert.Len(t, note.Content.OptionsConsidered, 3)
	assert.Equal(t, "opt_2", note.Content.SelectedOption.OptionID)

	st, err := h.svc.GetState(ctx, h.project, res.SessionId)
	require.NoError(t, err)
	require.NotNil(t, st.SelectedOptionId)
	assert.Equal(t, "opt_2", *st.SelectedOptionId)

	_, err = h.svc.SelectOption(ctx, h.project, &dto.SelectOptionRequest{SessionId: res.SessionId, OptionId: "opt_1"})
	assert.ErrorIs(t, err, exploration.ErrPrecondition)

	assert.Equal(t, 1, h.events.count(events.ExplorationMemoryWritten))
}

func TestSelectOption_VersionIdIncreasesByOne(t *testing.T) {
	h := newHarness(t)
	first := h.selectOption(t, h.explore(t, "tap to jump").SessionId, "opt_1")

	next := h.explore(t, "add power-ups and a boss fight")
	second := h.selectOption(t, next.SessionId, "opt_3")

	assert.Equal(t, first.VersionId+1, second.VersionId)
}

func TestSelectOption_UnknownOption(t *testing.T) {
	h := newHarness(t)
	res := h.explore(t, "tap to jump")

	_, err := h.svc.SelectOption(context.Background(), h.project, &dto.SelectOptionRequest{SessionId: res.SessionId, OptionId: "opt_9"})
	assert.ErrorIs(t, err, exploration.ErrNotFound)
	assert.Equal(t, 0, h.script.count(stageFeel))
}

func TestExplore_ContextualCarriesLockedDecisions(t *testing.T) {
	h := newHarness(t)
	h.selectOption(t, h.explore(t, "tap to jump").SessionId, "opt_1")

	res := h.explore(t, "add power-ups and a boss fight")

	assert.Equal(t, string(schema.ModeContextual), res.Mode)
	require.NotNil(t, res.Decomposition.Locked)
	locked := res.Decomposition.LockedValues()
	assert.Equal(t, "tap", locked["controls"])
	assert.Equal(t, "run and jump", locked["core_loop"])
	assert.Equal(t, "2d side view", locked["presentation"])
	assert.Equal(t, "mobile", locked["platform"])
	for name := range res.Decomposition.Dimensions {
		_, isLocked := locked[name]
		assert.False(t, isLocked, "dimension %q duplicates a locked key", name)
	}
	assert.ElementsMatch(t, []string{"boss", "power_ups"}, res.Decomposition.DimensionNames())

	for _, b := range res.Branches {
		assert.Equal(t, "tap", b.Picked["controls"])
	}

	var decided string
	for _, req := range h.provider.Requests() {
		if strings.Contains(req.History[0].Content, "HTML5 game that already exists") {
			decided = req.History[0].Content
		}
	}
	assert.Contains(t, decided, "Game: Tap Runner")
	assert.Contains(t, decided, "--- index.html ---")
}

func TestExplore_MemoryInfluenceAfterFinish(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	res := h.explore(t, "tap to jump")
	h.selectOption(t, res.SessionId, "opt_1")
	_, err := h.svc.FinishExploration(ctx, h.project, &dto.FinishExplorationRequest{SessionId: res.SessionId})
	require.NoError(t, err)

	next := h.explore(t, "add power-ups")
	require.NotNil(t, next.MemoryInfluence)
	assert.Equal(t, "mobile", next.MemoryInfluence.RelevantPreferences.Platform)
	assert.Contains(t, next.MemoryInfluence.Warnings, "keep runs short")
}

func TestIterate_TwoCallsBumpVersions(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	res := h.explore(t, "tap to jump")
	sel := h.selectOption(t, res.SessionId, "opt_1")

	_, err := h.svc.Iterate(ctx, h.project, &dto.IterateRequest{SessionId: res.SessionId, UserInput: "make it faster"})
	require.NoError(t, err)
	second, err := h.svc.Iterate(ctx, h.project, &dto.IterateRequest{SessionId: res.SessionId, UserInput: "add coins"})
	require.NoError(t, err)

	assert.Equal(t, sel.VersionId+2, second.VersionId)
	assert.Equal(t, 2, second.IterationCount)
	assert.Equal(t, []string{"make it faster", "add coins"}, second.HypothesisLedger.OpenQuestions)
	assert.Equal(t, string(state.Iterating), second.State)

	v, err := h.factory.NewUnitOfWork(ctx).ProjectVersionRepository().FindOne(ctx, specification.ByID{ID: second.VersionId})
	require.NoError(t, err)
	assert.Contains(t, v.FileMap()["index.html"], "game v2")

	// committed -> iterating is one transition; iterating -> iterating is none.
	assert.Equal(t, []string{"explore_options", "committed", "iterating"}, h.events.states())
}

func TestIterate_ConcurrentCallsAreSerialized(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	res := h.explore(t, "tap to jump")
	sel := h.selectOption(t, res.SessionId, "opt_1")

	const calls = 6
	inputs := []string{"faster", "coins", "boss", "music", "night mode", "combo"}
	errs := make(chan error, calls)
	var wg sync.WaitGroup
	for i := 0; i < calls; i++ {
		wg.Add(1)
		go func(input string) {
			defer wg.Done()
			_, err := h.svc.Iterate(ctx, h.project, &dto.IterateRequest{SessionId: res.SessionId, UserInput: input})
			errs <- err
		}(inputs[i])
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	active, err := h.svc.GetActiveSession(ctx, h.project)
	require.NoError(t, err)
	assert.Equal(t, calls, active.IterationCount)
	assert.ElementsMatch(t, inputs, active.HypothesisLedger.OpenQuestions)
	assert.Equal(t, sel.VersionId+calls, currentVersionId(t, h))
	assert.Equal(t, calls, h.script.count(stageIterate))
}

func TestIterate_RequiresCommittedSession(t *testing.T) {
	h := newHarness(t)
	res := h.explore(t, "tap to jump")

	_, err := h.svc.Iterate(context.Background(), h.project, &dto.IterateRequest{SessionId: res.SessionId, UserInput: "faster"})
	assert.ErrorIs(t, err, exploration.ErrPrecondition)
	assert.Equal(t, 0, h.script.count(stageIterate))
}

func TestSelectThenFinish_WritesFinishNote(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	res := h.explore(t, "tap to jump")
	sel := h.selectOption(t, res.SessionId, "opt_1")

	fin, err := h.svc.FinishExploration(ctx, h.project, &dto.FinishExplorationRequest{SessionId: res.SessionId})
	require.NoError(t, err)

	assert.Equal(t, string(state.Stable), fin.State)
	assert.Equal(t, string(schema.KindExplorationFinish), fin.MemoryNote.Kind)
	assert.Equal(t, schema.FinishConfidence, fin.MemoryNote.Confidence)
	require.NotNil(t, fin.MemoryNote.Content.Refs)
	require.NotNil(t, fin.MemoryNote.Content.Refs.StableVersionID)
	assert.Equal(t, sel.VersionId, *fin.MemoryNote.Content.Refs.StableVersionID)
	assert.Contains(t, fin.MemoryNote.Tags, "platform:mobile")
	assert.Contains(t, fin.MemoryNote.Tags, "type:exploration_finish")

	pref, err := h.factory.NewUnitOfWork(ctx).UserPreferenceRepository().FindOne(ctx, specification.ByProjectID{ProjectID: h.project})
	require.NoError(t, err)
	require.NotNil(t, pref)
	assert.Equal(t, "tap", pref.Preference.Input)

	st, err := h.svc.GetState(ctx, h.project, res.SessionId)
	require.NoError(t, err)
	assert.Equal(t, 0, st.IterationCount)
	assert.Equal(t, []string{"tap is enough"}, st.HypothesisLedger.Validated)

	assert.Equal(t, []string{"explore_options", "committed", "memory_writing", "stable"}, h.events.states())

	_, err = h.svc.GetActiveSession(ctx, h.project)
	assert.ErrorIs(t, err, exploration.ErrNotFound)

	_, err = h.svc.FinishExploration(ctx, h.project, &dto.FinishExplorationRequest{SessionId: res.SessionId})
	assert.ErrorIs(t, err, exploration.ErrPrecondition)
}

func TestFinish_SynthesisFailureRestoresState(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	res := h.explore(t, "tap to jump")
	h.selectOption(t, res.SessionId, "opt_1")
	_, err := h.svc.Iterate(ctx, h.project, &dto.IterateRequest{SessionId: res.SessionId, UserInput: "faster"})
	require.NoError(t, err)

	h.script.queue(stageSynthesis, llmtest.Text("not json at all"))
	_, err = h.svc.FinishExploration(ctx, h.project, &dto.FinishExplorationRequest{SessionId: res.SessionId})
	require.Error(t, err)
	assert.ErrorIs(t, err, exploration.ErrMalformedOutput)

	st, err := h.svc.GetState(ctx, h.project, res.SessionId)
	require.NoError(t, err)
	assert.Equal(t, string(state.Iterating), st.State)

	notes, err := h.memory.ListNotes(ctx, h.project)
	require.NoError(t, err)
	assert.Len(t, notes, 1, "only the design decision survives")

	states := h.events.states()
	assert.Equal(t, []string{"memory_writing", "iterating"}, states[len(states)-2:])
}

func TestPreviewOption_IsIdempotent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	res := h.explore(t, "tap to jump")
	req := &dto.PreviewOptionRequest{SessionId: res.SessionId, OptionId: "opt_3"}

	first, err := h.svc.PreviewOption(ctx, h.project, req)
	require.NoError(t, err)
	second, err := h.svc.PreviewOption(ctx, h.project, req)
	require.NoError(t, err)

	assert.True(t, first.PreviewReady)
	assert.False(t, first.Cached)
	assert.True(t, second.Cached)
	assert.Equal(t, first.ExpiresAt, second.ExpiresAt)
	assert.Equal(t, 1, h.script.count(stageCustomize))
	assert.Equal(t, 1, h.script.count(stageFeel))

	st, err := h.svc.GetState(ctx, h.project, res.SessionId)
	require.NoError(t, err)
	assert.Equal(t, string(state.ExploreOptions), st.State)
	assert.Zero(t, currentVersionId(t, h))

	html, err := h.svc.PreviewHTML(ctx, h.project, res.SessionId, "opt_3")
	require.NoError(t, err)
	assert.Contains(t, html, "<head><script>")
	assert.Contains(t, html, "<body>game</body>")

	_, err = h.svc.PreviewHTML(ctx, h.project, res.SessionId, "opt_1")
	assert.ErrorIs(t, err, exploration.ErrNotFound)
}

func TestSelectOption_DoesNotReusePreview(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	res := h.explore(t, "tap to jump")
	_, err := h.svc.PreviewOption(ctx, h.project, &dto.PreviewOptionRequest{SessionId: res.SessionId, OptionId: "opt_1"})
	require.NoError(t, err)

	h.selectOption(t, res.SessionId, "opt_1")
	assert.Equal(t, 2, h.script.count(stageCustomize))
}

func TestFixPreview_ThirdAttemptFails(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	res := h.explore(t, "tap to jump")
	fix := &dto.FixPreviewRequest{
		SessionId: res.SessionId,
		OptionId:  "opt_1",
		Errors:    []preview.RuntimeError{{Message: "player is undefined", Line: 12}},
	}

	_, err := h.svc.FixPreview(ctx, h.project, fix)
	assert.ErrorIs(t, err, exploration.ErrPrecondition)

	_, err = h.svc.PreviewOption(ctx, h.project, &dto.PreviewOptionRequest{SessionId: res.SessionId, OptionId: "opt_1"})
	require.NoError(t, err)

	for attempt := 1; attempt <= 2; attempt++ {
		out, err := h.svc.FixPreview(ctx, h.project, fix)
		require.NoError(t, err)
		assert.True(t, out.Fixed)
		assert.Equal(t, attempt, out.FixAttempts)
	}
	_, err = h.svc.FixPreview(ctx, h.project, fix)
	assert.ErrorIs(t, err, exploration.ErrFixLimitExceeded)
	assert.Equal(t, 2, h.script.count(stageFix))

	html, err := h.svc.PreviewHTML(ctx, h.project, res.SessionId, "opt_1")
	require.NoError(t, err)
	assert.Contains(t, html, "<body>fixed</body>")

	var fixPrompt string
	for _, req := range h.provider.Requests() {
		if strings.Contains(req.History[0].Content, "game debugger") {
			fixPrompt = req.History[0].Content
		}
	}
	assert.Contains(t, fixPrompt, "- Line 12: player is undefined")
}

func TestSetPreviewing(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	res := h.explore(t, "tap to jump")
	on, off := true, false

	out, err := h.svc.SetPreviewing(ctx, h.project, &dto.PreviewingRequest{SessionId: res.SessionId, Active: &on})
	require.NoError(t, err)
	assert.Equal(t, string(state.Previewing), out.State)

	out, err = h.svc.SetPreviewing(ctx, h.project, &dto.PreviewingRequest{SessionId: res.SessionId, Active: &on})
	require.NoError(t, err)
	assert.Equal(t, string(state.Previewing), out.State)

	out, err = h.svc.SetPreviewing(ctx, h.project, &dto.PreviewingRequest{SessionId: res.SessionId, Active: &off})
	require.NoError(t, err)
	assert.Equal(t, string(state.ExploreOptions), out.State)

	_, err = h.svc.SetPreviewing(ctx, h.project, &dto.PreviewingRequest{SessionId: res.SessionId, Active: &on})
	require.NoError(t, err)
	sel := h.selectOption(t, res.SessionId, "opt_1")
	assert.Equal(t, string(state.Committed), sel.State)

	_, err = h.svc.SetPreviewing(ctx, h.project, &dto.PreviewingRequest{SessionId: res.SessionId, Active: &on})
	assert.ErrorIs(t, err, exploration.ErrPrecondition)
}

func TestSessionsAreScopedToProject(t *testing.T) {
	h := newHarness(t)
	res := h.explore(t, "tap to jump")

	_, err := h.svc.GetState(context.Background(), uuid.New(), res.SessionId)
	assert.ErrorIs(t, err, exploration.ErrNotFound)
	_, err = h.svc.GetState(context.Background(), h.project, res.SessionId+100)
	assert.ErrorIs(t, err, exploration.ErrNotFound)
}

func TestTemplates(t *testing.T) {
	h := newHarness(t)

	assert.NotEmpty(t, h.svc.ListTemplates())
	html, err := h.svc.TemplateHTML("runner_endless")
	require.NoError(t, err)
	assert.Contains(t, strings.ToLower(html), "<html")

	_, err = h.svc.TemplateHTML("missing")
	assert.ErrorIs(t, err, exploration.ErrNotFound)
}
