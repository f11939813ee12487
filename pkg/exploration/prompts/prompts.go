// Package prompts builds the system and user payloads for every pipeline stage.
package prompts

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"game-exploration-be/pkg/exploration/memory"
	"game-exploration-be/pkg/exploration/preview"
	"game-exploration-be/pkg/exploration/schema"
	"game-exploration-be/pkg/templates"
)

// FileBudget caps each file embedded in a decomposition or iterate prompt.
const FileBudget = 3000

const jsonOnly = "Return valid JSON only, no markdown."

const decomposeFresh = `You are an implementation-oriented requirement decomposer for HTML5 web games.

Split the user's request into design dimensions. Use these reference dimensions as a guide:
%s

Only emit a dimension when at least 2 plausible candidate values exist (2 to 4 candidates).
When the request already decides a dimension, put "name: value" into hard_constraints instead.
Never ask the user a question; record what is unclear in open_questions.
You may call search_memory to look up earlier decisions for this project.

Output:
{"summary": "...", "dimensions": {"<name>": {"candidates": ["..."], "confidence": "high|med|low", "signals": ["..."]}},
 "hard_constraints": ["..."], "open_questions": [{"dimension": "...", "question": "...", "why_it_matters": "..."}]}
` + jsonOnly

const decomposeContextual = `You are an implementation-oriented requirement decomposer for an HTML5 game that already exists.

Current game files (truncated):
%s

Decisions already made:
%s

List every already-decided attribute (controls, presentation, core_loop and anything else visible in the code)
in locked.items as "key: value". Locked attributes must not appear as dimensions.
Emit only NEW dimensions the change request opens up, each with 2 to 4 candidates.
You may call search_memory to look up earlier decisions for this project.

Output:
{"summary": "...", "locked": {"description": "...", "items": ["controls: ..."]},
 "dimensions": {"<name>": {"candidates": ["..."], "confidence": "high|med|low", "signals": ["..."]}},
 "hard_constraints": ["..."], "open_questions": [{"dimension": "...", "question": "..."}]}
` + jsonOnly

const branches = `You are a game design director for web game prototyping.

Combine the dimensions into 3 to 6 divergent branches. Every branch picks exactly one candidate for every dimension.
Any two branches must differ in at least %d dimension picks.
%s
Memory context (read-only bias, never a hard constraint):
%s

Dimensions:
%s

You may call search_memory for strategies that worked or failed before.

Output:
{"branches": [{"branch_id": "b1", "name": "...", "player_fantasy": "...", "gameplay_hook": "...",
  "core_mechanics": ["..."], "picked": {"<dimension>": "<candidate>"}, "why_this_branch": ["..."],
  "risks": ["..."], "what_to_validate": ["..."]}]}
` + jsonOnly

const mapper = `You are an option mapper for web game prototyping.

Map every branch to exactly one option card built on the closest-fit template from the catalog.
Mark exactly one option as recommended.

Design context:
%s

Template catalog:
%s

Branches:
%s

Output:
{"options": [{"option_id": "opt_1", "branch_id": "b1", "title": "...", "core_loop": "...", "controls": "...",
  "mechanics": ["..."], "template_id": "<catalog id>", "complexity": "low|medium|high", "mobile_fit": "good|fair|poor",
  "assumptions_to_validate": ["..."], "is_recommended": false}], "recommended_option_id": "opt_1"}
` + jsonOnly

const feelSpec = `You are a game feel architect for HTML5 prototypes.

Produce a numeric micro-spec for how the game should feel. Start from the game-type defaults and deviate
only when the design or the user profile demands it; explain deviations in the notes fields.
Bias toward the profile's style_tendency (tight, floaty or arcade) and respect its dislikes.
Omit sections that do not apply to this game.

Game-type defaults (%s):
%s

User feel profile (cross-project):
%s

Output a JSON object with any of: movement_model, jump_model, input, camera, bounds, visual_feedback, tuning.
` + jsonOnly

const customize = `You are an HTML5 game code customizer.

Rewrite the template into the game described by the option. Keep the template's structure, keep it fully
playable with zero external assets, and put every gameplay number from the feel spec into one TUNING object.

Feel micro-spec (use these exact values):
%s

Template files:
%s

Output a JSON object mapping file path to complete content: {"index.html": "<!DOCTYPE html>..."}
` + jsonOnly

const fix = `You are an HTML5 game debugger. The game below threw runtime errors in the browser.

Runtime errors:
%s

Current code:
%s

Fix every error with minimal changes and keep all features.
Output: {"index.html": "<!DOCTYPE html>..."}
` + jsonOnly

const iterate = `You are an HTML5 game code modifier.

Feel micro-spec (TUNING must match it):
%s

Current files:
%s

Apply the user's request with minimal changes. Keep the core loop and the TUNING object.
Return a JSON object mapping each changed file path to its complete new content.
` + jsonOnly

const synthesis = `You are a structured memory writer for game exploration sessions.

Session data:
- User input: %q
- Selected option: %s
- Iteration count: %d
- Hypothesis ledger: %s
- Decomposition: %s

Output:
{"title": "...", "summary": "2-3 sentences", "user_preferences": {"platform": "mobile|desktop|both",
 "input": "tap|keyboard|swipe|click", "pace": "fast|medium|slow|idle", "session_length": "short|medium|long",
 "difficulty": "easy|medium|hard", "visual_density": "minimal|moderate|rich"},
 "final_choice": {"option_id": "...", "why": "..."}, "validated_hypotheses": ["..."], "rejected_hypotheses": ["..."],
 "key_decisions": [{"decision": "...", "reason": "...", "evidence": "..."}], "pitfalls_and_guards": ["..."]}
` + jsonOnly

const noFeelSpec = "No feel spec available. Infer it from the TUNING object in the current code."

// DecomposeFresh is the Stage A system prompt for a project without code.
func DecomposeFresh() string {
	return fmt.Sprintf(decomposeFresh, strings.Join(schema.ReferenceDimensions, ", "))
}

// DecomposeContextual is the Stage A system prompt for a project with a current version.
func DecomposeContextual(files schema.FileMap, decided string) string {
	if decided == "" {
		decided = "No prior decisions recorded."
	}
	return fmt.Sprintf(decomposeContextual, renderFiles(files.Truncated(FileBudget)), decided)
}

// Branches is the Stage B system prompt.
func Branches(d *schema.Decomposition, memoryContext string, required int) string {
	locked := ""
	if d.Locked != nil && len(d.Locked.Items) > 0 {
		locked = "Locked decisions (copy these picks verbatim into every branch):\n" + indent(d.Locked) + "\n"
	}
	return fmt.Sprintf(branches, required, locked, memoryContext, indent(d.Dimensions))
}

// BranchesUser is the Stage B user payload.
func BranchesUser() string {
	return "Synthesize branches"
}

// Map is the Stage C system prompt. The full catalog metadata is embedded.
func Map(d *schema.Decomposition, set *schema.BranchSet, catalog []templates.Metadata) string {
	var ctx []string
	if d.Summary != "" {
		ctx = append(ctx, "Summary: "+d.Summary)
	}
	if len(d.HardConstraints) > 0 {
		ctx = append(ctx, "Hard constraints: "+compact(d.HardConstraints))
	}
	if d.Locked != nil {
		ctx = append(ctx, "Locked decisions: "+compact(d.Locked))
	}
	design := "No additional context."
	if len(ctx) > 0 {
		design = strings.Join(ctx, "\n")
	}
	return fmt.Sprintf(mapper, design, indent(catalog), indent(set.Branches))
}

func MapUser() string {
	return "Map branches to options"
}

// FeelSpec is the Stage D system prompt.
func FeelSpec(gameType string, defaults map[string]interface{}, profile memory.FeelProfile) string {
	return fmt.Sprintf(feelSpec, gameType, indent(defaults), indent(profile))
}

// OptionUser describes an option and the user's request. Stages D and E share it.
func OptionUser(o schema.Option, userInput string) string {
	return fmt.Sprintf("Game design spec:\n- Title: %s\n- Core loop: %s\n- Controls: %s\n- Mechanics: %s\n- Complexity: %s\n- Mobile fit: %s\n\nUser's original request: %q",
		o.Title, o.CoreLoop, o.Controls, compact(o.Mechanics), o.Complexity, o.MobileFit, userInput)
}

// Customize is the Stage E system prompt.
func Customize(feel *schema.FeelSpec, templateFiles schema.FileMap) string {
	return fmt.Sprintf(customize, feel.JSON(), renderFiles(templateFiles))
}

// Fix is the repair system prompt for a cached preview.
func Fix(errs []preview.RuntimeError, code string) string {
	return fmt.Sprintf(fix, preview.FormatErrors(errs), code)
}

func FixUser() string {
	return "Fix the runtime errors"
}

// Iterate is the code modification system prompt. The user payload is the raw request.
func Iterate(files schema.FileMap, feel *schema.FeelSpec) string {
	spec := noFeelSpec
	if !feel.Empty() {
		spec = feel.JSON()
	}
	return fmt.Sprintf(iterate, spec, indent(files.Truncated(FileBudget)))
}

// SynthesisInput is the session context sent to the finish-time memory writer.
type SynthesisInput struct {
	UserInput      string
	SelectedOption interface{}
	IterationCount int
	Ledger         interface{}
	Decomposition  *schema.Decomposition
}

func Synthesis(in SynthesisInput) string {
	return fmt.Sprintf(synthesis, in.UserInput, compact(in.SelectedOption), in.IterationCount,
		compact(in.Ledger), compact(in.Decomposition))
}

func SynthesisUser() string {
	return "Generate structured memory"
}

// Reprompt appends the violations of a rejected reply to the original user payload.
func Reprompt(user string, violations []string) string {
	var b strings.Builder
	b.WriteString(user)
	b.WriteString("\n\nYour previous answer was rejected:\n")
	for _, v := range violations {
		b.WriteString("- ")
		b.WriteString(v)
		b.WriteString("\n")
	}
	b.WriteString("Answer again and fix every listed problem.")
	return b.String()
}

func renderFiles(files map[string]string) string {
	paths := make([]string, 0, len(files))
	for p := range files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	var b strings.Builder
	for _, p := range paths {
		fmt.Fprintf(&b, "--- %s ---\n%s\n\n", p, files[p])
	}
	return strings.TrimRight(b.String(), "\n")
}

func indent(v interface{}) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(b)
}

func compact(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	return string(b)
}
