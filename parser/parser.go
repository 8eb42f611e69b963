package parser

import (
	"regexp"
	"strings"

	"github.com/dugongyete-ui/agent-manus/core"
	"github.com/dugongyete-ui/agent-manus/logging"
)

// toolMentionRe catches responses that name a tool in prose instead of
// emitting structured output ("saya akan menggunakan shell_tool untuk...").
var toolMentionRe = regexp.MustCompile(`(?i)(?:menggunakan|gunakan|use|call|jalankan|run)\s+(shell_tool|file_tool|browser_tool|search_tool|generate_tool|slides_tool|webdev_tool|schedule_tool|message_tool|skill_manager)`)

// refusalRes matches phrasings where the model declines to act even though
// the user asked for an action. A refusal with a detectable intent in the
// user input forces the tool anyway.
var refusalRes = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:saya|aku)\s+(?:tidak\s+)?(?:bisa|dapat|mampu)\s+(?:tidak\s+)?(?:langsung\s+)?(?:membuka|menjalankan|mengeksekusi|mengakses)`),
	regexp.MustCompile(`(?i)(?:tidak\s+)?(?:memiliki|punya)\s+(?:akses|kemampuan)`),
	regexp.MustCompile(`(?i)(?:sebagai\s+)?(?:AI|model\s+bahasa|asisten\s+virtual)`),
	regexp.MustCompile(`(?i)(?:saya\s+)?(?:hanya\s+)?(?:bisa\s+)?(?:menjelaskan|mendeskripsikan|memberikan\s+gambaran)`),
	regexp.MustCompile(`(?i)(?:i\s+)?(?:can'?t|cannot|unable\s+to)\s+(?:directly|actually)?\s*(?:open|run|execute|access|browse)`),
}

// Options configures a Parser.
type Options struct {
	// Logger receives fallback decisions at debug/info level.
	Logger logging.Logger
}

// Parser turns raw model output into a structured core.Action. Parse never
// fails: unrecognizable output degrades to a respond action carrying the
// raw text.
type Parser struct {
	opts Options
}

// New creates a Parser.
func New(optFns ...func(o *Options)) *Parser {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Parser{opts: opts}
}

// Parse extracts an action from raw model output. The userHint is the
// user's original input, consulted only when the model output itself yields
// nothing structured. The first candidate block that decodes to an object
// with a recognizable action key wins; parseable blocks without one are
// skipped.
func (p *Parser) Parse(raw, userHint string) core.Action {
	raw = strings.TrimSpace(raw)

	for _, candidate := range extractCandidates(raw) {
		obj, ok := decodeObject(candidate)
		if !ok {
			continue
		}
		if action, ok := FromObject(obj, raw); ok {
			return action
		}
	}

	if m := toolMentionRe.FindStringSubmatch(raw); m != nil {
		tool := strings.ToLower(m[1])
		p.opts.Logger.Debug("tool mention found in prose", "tool", tool)
		return core.UseToolAction{Tool: tool, Params: map[string]any{}}
	}

	if userHint != "" {
		if action, ok := DetectIntent(userHint); ok {
			if isRefusal(raw) {
				p.opts.Logger.Info("model refused to act, forcing tool from user intent")
			} else {
				p.opts.Logger.Debug("no structured output, using detected intent")
			}
			return action
		}
	}

	return core.RespondAction{Message: raw}
}

// FromObject maps a decoded JSON object onto an Action. Explicit "action"
// discriminators are honored first, then bare key shapes the model commonly
// emits. Objects without a recognizable key are rejected so the caller can
// try the next candidate block. The raw text is used as the respond message
// when the object requests a response without carrying one.
func FromObject(obj map[string]any, raw string) (core.Action, bool) {
	if action, ok := obj["action"].(string); ok {
		switch action {
		case "use_tool":
			tool, _ := obj["tool"].(string)
			return core.UseToolAction{Tool: tool, Params: paramsOf(obj["params"])}, true
		case "multi_step":
			return core.MultiStepAction{Steps: toolCallsOf(obj["steps"])}, true
		case "respond":
			msg := raw
			if v, ok := obj["message"].(string); ok {
				msg = v
			}
			return core.RespondAction{Message: msg}, true
		case "think":
			thought, _ := obj["thought"].(string)
			return core.ThinkAction{Thought: thought}, true
		case "plan":
			goal, _ := obj["goal"].(string)
			steps, _ := stringsOf(obj["steps"])
			return core.PlanAction{Goal: goal, Steps: steps}, true
		}
	}

	if _, hasTool := obj["tool"]; hasTool {
		if _, hasParams := obj["params"]; hasParams {
			tool, _ := obj["tool"].(string)
			return core.UseToolAction{Tool: tool, Params: paramsOf(obj["params"])}, true
		}
	}
	if goal, ok := obj["goal"].(string); ok {
		if steps, ok := stringsOf(obj["steps"]); ok && len(steps) > 0 {
			return core.PlanAction{Goal: goal, Steps: steps}, true
		}
	}
	if steps, ok := obj["steps"].([]any); ok {
		return core.MultiStepAction{Steps: toolCallsOf(steps)}, true
	}
	if msg, ok := obj["message"].(string); ok {
		return core.RespondAction{Message: msg}, true
	}
	if thought, ok := obj["thought"].(string); ok {
		return core.ThinkAction{Thought: thought}, true
	}

	return nil, false
}

func paramsOf(v any) map[string]any {
	if m, ok := v.(map[string]any); ok {
		return m
	}
	return map[string]any{}
}

func toolCallsOf(v any) []core.ToolCall {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	steps := make([]core.ToolCall, 0, len(items))
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		tool, _ := m["tool"].(string)
		steps = append(steps, core.ToolCall{Tool: tool, Params: paramsOf(m["params"])})
	}
	return steps
}

// stringsOf accepts only a homogeneous list of strings, which separates a
// plan's step descriptions from a multi-step list of tool call objects.
func stringsOf(v any) ([]string, bool) {
	items, ok := v.([]any)
	if !ok {
		return nil, false
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, false
		}
		out = append(out, s)
	}
	return out, true
}

func isRefusal(raw string) bool {
	for _, re := range refusalRes {
		if re.MatchString(raw) {
			return true
		}
	}
	return false
}
