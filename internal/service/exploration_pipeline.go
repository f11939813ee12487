package service

import (
	"context"
	"fmt"

	"game-exploration-be/internal/entity"
	"game-exploration-be/pkg/exploration"
	"game-exploration-be/pkg/exploration/memory"
	"game-exploration-be/pkg/exploration/preview"
	"game-exploration-be/pkg/exploration/prompts"
	"game-exploration-be/pkg/exploration/schema"
	"game-exploration-be/pkg/exploration/stage"
	"game-exploration-be/pkg/llm"
	"game-exploration-be/pkg/templates"

	"github.com/google/uuid"
)

const (
	planTokens = 4000
	codeTokens = 12000
	fixTokens  = 8000
)

// constraintAttempts is how often a stage may answer before its violations fail the request.
const constraintAttempts = 2

// Stage A.
func (s *explorationService) decompose(ctx context.Context, projectId uuid.UUID, userInput string, mode schema.Mode, prior *priorContext, fields map[string]interface{}) (*schema.Decomposition, error) {
	req := stage.Request{
		Label:     "A:decompose(fresh)",
		System:    prompts.DecomposeFresh(),
		User:      userInput,
		MaxTokens: planTokens,
		Tools:     []llm.Tool{memory.SearchTool()},
		Handler:   s.memory.ToolHandler(projectId),
		Fields:    fields,
	}
	var carried map[string]string
	if mode == schema.ModeContextual {
		req.Label = "A:decompose(contextual)"
		req.System = prompts.DecomposeContextual(prior.files, prior.decided)
		carried = prior.carried
	}
	return stage.Run(ctx, s.runner, req, func(d *schema.Decomposition) error {
		return d.Normalize(mode, carried)
	})
}

// Stage B. A reply that breaks the branch contract is re-prompted once with its violations.
func (s *explorationService) synthesizeBranches(ctx context.Context, projectId uuid.UUID, d *schema.Decomposition, memoryContext string, fields map[string]interface{}) (*schema.BranchSet, error) {
	dims := d.DimensionNames()
	locked := d.LockedValues()
	system := prompts.Branches(d, memoryContext, schema.RequiredDistance(len(dims)))

	user := prompts.BranchesUser()
	var violations []string
	for attempt := 0; attempt < constraintAttempts; attempt++ {
		set, err := stage.Run[schema.BranchSet](ctx, s.runner, stage.Request{
			Label:     "B:branches",
			System:    system,
			User:      user,
			MaxTokens: planTokens,
			Tools:     []llm.Tool{memory.SearchTool()},
			Handler:   s.memory.ToolHandler(projectId),
			Fields:    fields,
		}, nil)
		if err != nil {
			return nil, err
		}
		violations = schema.CheckBranches(set, dims, locked)
		if len(violations) == 0 {
			return set, nil
		}
		s.logger.Warn(explorationModule, "Branch set rejected", map[string]interface{}{
			"attempt":    attempt + 1,
			"violations": violations,
		})
		user = prompts.Reprompt(prompts.BranchesUser(), violations)
	}
	return nil, schema.ConstraintError("branches", violations)
}

// Stage C.
func (s *explorationService) mapOptions(ctx context.Context, d *schema.Decomposition, branches *schema.BranchSet, fields map[string]interface{}) (*schema.OptionSet, error) {
	system := prompts.Map(d, branches, s.catalog.List())

	user := prompts.MapUser()
	var violations []string
	for attempt := 0; attempt < constraintAttempts; attempt++ {
		set, err := stage.Run[schema.OptionSet](ctx, s.runner, stage.Request{
			Label:     "C:mapper",
			System:    system,
			User:      user,
			MaxTokens: planTokens,
			Fields:    fields,
		}, nil)
		if err != nil {
			return nil, err
		}
		violations = schema.CheckOptions(set, branches.Branches, s.catalog.Exists)
		if len(violations) == 0 {
			return set, nil
		}
		s.logger.Warn(explorationModule, "Option set rejected", map[string]interface{}{
			"attempt":    attempt + 1,
			"violations": violations,
		})
		user = prompts.Reprompt(prompts.MapUser(), violations)
	}
	return nil, schema.ConstraintError("options", violations)
}

// generatePrototype runs Stage D then Stage E for one option.
func (s *explorationService) generatePrototype(ctx context.Context, session *entity.ExplorationSession, option *entity.ExplorationOption) (*schema.FeelSpec, schema.FileMap, error) {
	tmpl, ok := s.catalog.Get(option.TemplateId)
	if !ok {
		return nil, nil, fmt.Errorf("%w: template %q", exploration.ErrNotFound, option.TemplateId)
	}
	fields := map[string]interface{}{
		"project_id": session.ProjectId.String(),
		"session_id": session.Id,
		"option_id":  option.OptionId,
	}

	profile, err := s.memory.FeelProfile(ctx)
	if err != nil {
		return nil, nil, err
	}
	spec := option.Spec()
	feel, err := stage.Run(ctx, s.runner, stage.Request{
		Label:     "D:feel_spec",
		System:    prompts.FeelSpec(templates.GameType(option.TemplateId), s.catalog.FeelDefaults(option.TemplateId), profile),
		User:      prompts.OptionUser(spec, session.UserInput),
		MaxTokens: planTokens,
		Fields:    fields,
	}, func(f *schema.FeelSpec) error {
		return f.Check()
	})
	if err != nil {
		return nil, nil, err
	}

	base := schema.FileMap(tmpl.FileMap())
	generated, err := stage.RunFiles(ctx, s.runner, stage.Request{
		Label:     "E:customize",
		System:    prompts.Customize(feel, base),
		User:      prompts.OptionUser(spec, session.UserInput),
		MaxTokens: codeTokens,
		Fields:    fields,
	}, func(files schema.FileMap) error {
		return files.RequireEntry()
	})
	if err != nil {
		return nil, nil, err
	}
	return feel, mergeFiles(base, generated), nil
}

// repairPreview returns fixed entry-file HTML for a cached preview.
func (s *explorationService) repairPreview(ctx context.Context, current *preview.Entry, errs []preview.RuntimeError) (string, error) {
	files, err := stage.RunFiles(ctx, s.runner, stage.Request{
		Label:     "fix_preview",
		System:    prompts.Fix(preview.Limit(errs), current.HTML),
		User:      prompts.FixUser(),
		MaxTokens: fixTokens,
		Fields: map[string]interface{}{
			"session_id":   current.SessionID,
			"option_id":    current.OptionID,
			"fix_attempts": current.FixAttempts,
		},
	}, func(files schema.FileMap) error {
		return files.RequireEntry()
	})
	if err != nil {
		return "", err
	}
	return files[schema.EntryFile], nil
}

// modifyCode applies a change request and returns only the files the provider rewrote.
func (s *explorationService) modifyCode(ctx context.Context, session *entity.ExplorationSession, current schema.FileMap, userInput string) (schema.FileMap, error) {
	return stage.RunFiles(ctx, s.runner, stage.Request{
		Label:     "iterate",
		System:    prompts.Iterate(current, session.FeelSpec),
		User:      userInput,
		MaxTokens: codeTokens,
		Fields: map[string]interface{}{
			"project_id": session.ProjectId.String(),
			"session_id": session.Id,
		},
	}, func(files schema.FileMap) error {
		if len(files) == 0 {
			return fmt.Errorf("%w: no files returned", exploration.ErrMalformedOutput)
		}
		return nil
	})
}

func (s *explorationService) synthesize(ctx context.Context, session *entity.ExplorationSession, selected *entity.ExplorationOption) (*schema.Synthesis, error) {
	var option interface{}
	if selected != nil {
		option = map[string]string{
			"option_id":   selected.OptionId,
			"title":       selected.Title,
			"core_loop":   selected.CoreLoop,
			"template_id": selected.TemplateId,
		}
	}
	return stage.Run[schema.Synthesis](ctx, s.runner, stage.Request{
		Label: "finish_exploration",
		System: prompts.Synthesis(prompts.SynthesisInput{
			UserInput:      session.UserInput,
			SelectedOption: option,
			IterationCount: session.IterationCount,
			Ledger:         session.HypothesisLedger,
			Decomposition:  session.Decomposition,
		}),
		User:      prompts.SynthesisUser(),
		MaxTokens: planTokens,
		Fields: map[string]interface{}{
			"project_id": session.ProjectId.String(),
			"session_id": session.Id,
		},
	}, nil)
}

// mergeFiles overlays changed over base without touching either map.
func mergeFiles(base, changed schema.FileMap) schema.FileMap {
	out := make(schema.FileMap, len(base)+len(changed))
	for p, c := range base {
		out[p] = c
	}
	for p, c := range changed {
		out[p] = c
	}
	return out
}
