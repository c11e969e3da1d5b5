package handoff

import (
	"context"
	"strings"

	"github.com/BaSui01/agentdesk/agent"
	"github.com/BaSui01/agentdesk/types"
)

const (
	triggerPrefix = "transfer_to_"

	// EscalateTrigger routes to a human operator.
	EscalateTrigger = "escalate_to_human"
)

// extractedFields are copied from trigger arguments into ExtractedData.
var extractedFields = []string{
	"search_query",
	"booking_type",
	"collected_data",
	"order_id",
	"action",
	"issue_type",
	"severity",
	"topic",
	"question",
	"summary",
}

// TriggerName returns the delegation trigger targeting category t.
func TriggerName(t agent.AgentType) string {
	return triggerPrefix + string(t)
}

// TriggerTarget maps a trigger name to its target. ok is false for names
// that are not delegation triggers.
func TriggerTarget(name string) (target string, ok bool) {
	if name == EscalateTrigger {
		return HumanTarget, true
	}
	category, found := strings.CutPrefix(name, triggerPrefix)
	if !found || !agent.AgentType(category).Valid() {
		return "", false
	}
	return category, true
}

// IsTrigger reports whether name is a delegation trigger.
func IsTrigger(name string) bool {
	_, ok := TriggerTarget(name)
	return ok
}

// TriggerDefinitions returns the function definitions of every trigger.
func TriggerDefinitions() []types.FunctionDefinition {
	defs := make([]types.FunctionDefinition, 0, len(agent.AllAgentTypes())+1)
	for _, t := range agent.AllAgentTypes() {
		defs = append(defs, transferDefinition(t))
	}
	return append(defs, escalateDefinition())
}

// TriggerDefinitionsFor returns the triggers available to an agent of
// category own: every trigger except the one targeting own.
func TriggerDefinitionsFor(own agent.AgentType) []types.FunctionDefinition {
	all := TriggerDefinitions()
	out := make([]types.FunctionDefinition, 0, len(all))
	for _, d := range all {
		if d.Name == TriggerName(own) {
			continue
		}
		out = append(out, d)
	}
	return out
}

func baseTriggerSchema() *types.JSONSchema {
	return types.NewObjectSchema().
		AddProperty("reason", types.NewStringSchema().WithDescription("Why the conversation is being transferred")).
		AddProperty("summary", types.NewStringSchema().WithDescription("Short summary of the conversation so far")).
		AddProperty("priority", priorityEnum()).
		AddRequired("reason")
}

func priorityEnum() *types.JSONSchema {
	values := make([]any, 0, len(Priorities()))
	for _, p := range Priorities() {
		values = append(values, string(p))
	}
	return types.NewEnumSchema(values...).WithDescription("Urgency of the request")
}

func transferDefinition(t agent.AgentType) types.FunctionDefinition {
	schema := baseTriggerSchema()
	desc := "Transfer the conversation to the " + string(t) + " specialist"

	switch t {
	case agent.TypeSearch:
		schema.AddProperty("search_query", types.NewStringSchema().WithDescription("What the user is looking for"))
		desc += " when the user wants to find or discover something."
	case agent.TypeBooking:
		schema.AddProperty("booking_type", types.NewStringSchema().WithDescription("Kind of reservation"))
		schema.AddProperty("collected_data", types.NewObjectSchema().WithDescription("Details already collected"))
		desc += " when the user wants to make or change a reservation."
	case agent.TypeOrder:
		schema.AddProperty("order_id", types.NewStringSchema().WithDescription("Order identifier, if known"))
		schema.AddProperty("action", types.NewEnumSchema("track", "modify", "cancel", "return").WithDescription("Requested order action"))
		desc += " for order tracking, changes, cancellations and returns."
	case agent.TypeComplaint:
		schema.AddProperty("issue_type", types.NewStringSchema().WithDescription("Category of the problem"))
		schema.AddProperty("severity", priorityEnum().WithDescription("How severe the problem is"))
		desc += " when the user is dissatisfied or reports a problem."
	case agent.TypeFAQ:
		schema.AddProperty("topic", types.NewStringSchema().WithDescription("Topic of the question"))
		schema.AddProperty("question", types.NewStringSchema().WithDescription("The user's question"))
		desc += " for general questions about policies and services."
	case agent.TypeReview:
		schema.AddProperty("topic", types.NewStringSchema().WithDescription("What the user wants to review"))
		desc += " when the user wants to leave or read reviews."
	case agent.TypePricing:
		schema.AddProperty("search_query", types.NewStringSchema().WithDescription("Items to compare"))
		desc += " when the user wants to compare prices."
	}

	return types.FunctionDefinition{Name: TriggerName(t), Description: desc, Parameters: schema}
}

func escalateDefinition() types.FunctionDefinition {
	schema := baseTriggerSchema().AddRequired("priority")
	schema.AddProperty("issue_type", types.NewStringSchema().WithDescription("Category of the problem"))
	return types.FunctionDefinition{
		Name:        EscalateTrigger,
		Description: "Escalate the conversation to a human operator when automated help is not enough or the user asks for a person.",
		Parameters:  schema,
	}
}

// RequestFromTrigger builds a delegation request from trigger arguments.
func RequestFromTrigger(source, trigger string, args map[string]any, c *agent.Context) (Request, error) {
	target, ok := TriggerTarget(trigger)
	if !ok {
		return Request{}, types.NewError(types.ErrUnknownTrigger, "unknown handoff trigger "+trigger)
	}

	extracted := make(map[string]any)
	for _, field := range extractedFields {
		if v, present := args[field]; present && v != nil {
			extracted[field] = v
		}
	}

	req := Request{
		Source: source,
		Target: target,
		Reason: stringArg(args, "reason"),
		Context: RequestContext{
			ExtractedData: extracted,
			Summary:       stringArg(args, "summary"),
			Priority:      triggerPriority(args),
		},
		Options: Options{TransitionMessage: true, AllowBounceBack: true},
	}
	if c != nil {
		req.Context.OriginalMessage = c.Message
	}
	return req, nil
}

// triggerPriority takes the explicit priority, then the severity, then medium.
func triggerPriority(args map[string]any) Priority {
	if p := stringArg(args, "priority"); p != "" {
		return ParsePriority(p)
	}
	if s := stringArg(args, "severity"); s != "" {
		return ParsePriority(s)
	}
	return PriorityMedium
}

func stringArg(args map[string]any, key string) string {
	s, _ := args[key].(string)
	return strings.TrimSpace(s)
}

// HandleTrigger runs the delegation named by trigger. The error is non-nil
// only when trigger is not a delegation trigger.
func (p *Protocol) HandleTrigger(ctx context.Context, source, trigger string, args map[string]any, c *agent.Context) (*Result, error) {
	req, err := RequestFromTrigger(source, trigger, args, c)
	if err != nil {
		return nil, err
	}
	return p.Handoff(ctx, req, c), nil
}

// TriggerExecutor is an agent.FunctionExecutor that routes delegation
// triggers into the protocol and every other name to next.
type TriggerExecutor struct {
	protocol *Protocol
	next     agent.FunctionExecutor
}

// NewTriggerExecutor wraps next. next may be nil.
func NewTriggerExecutor(protocol *Protocol, next agent.FunctionExecutor) *TriggerExecutor {
	return &TriggerExecutor{protocol: protocol, next: next}
}

// Execute implements agent.FunctionExecutor. The source agent is the one
// running the current turn.
func (e *TriggerExecutor) Execute(ctx context.Context, name string, args map[string]any, c *agent.Context) (any, error) {
	if !IsTrigger(name) {
		if e.next == nil {
			return nil, types.NewError(types.ErrFunctionNotFound, "function "+name+" not found").WithCause(agent.ErrFunctionNotFound)
		}
		return e.next.Execute(ctx, name, args, c)
	}

	source, _ := types.AgentID(ctx)
	res, err := e.protocol.HandleTrigger(ctx, source, name, args, c)
	if err != nil {
		return nil, err
	}
	return triggerOutput(res), nil
}

// triggerOutput is what the source agent's backend sees after a delegation.
func triggerOutput(res *Result) map[string]any {
	out := map[string]any{
		"handoff_id": res.HandoffID,
		"success":    res.Success,
		"target":     res.Target,
	}
	if res.Error != "" {
		out["error"] = res.Error
	}
	if res.TransitionMessage != "" {
		out["transition_message"] = res.TransitionMessage
	}
	if res.Response != "" {
		out["response"] = res.Response
	}
	if res.Result != nil {
		out["response"] = res.Result.Content
		out["functions_called"] = res.Result.FunctionsCalled
	}
	return out
}
