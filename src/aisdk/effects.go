package aisdk

// SideEffectKind is the closed set of state changes a tool handler can
// report. New kinds require a new constant; free-form kinds are not allowed.
type SideEffectKind string

const (
	EffectItemCreated     SideEffectKind = "item_created"
	EffectItemCompleted   SideEffectKind = "item_completed"
	EffectItemDeferred    SideEffectKind = "item_deferred"
	EffectFactLearned     SideEffectKind = "fact_learned"
	EffectActionTriggered SideEffectKind = "action_triggered"
	EffectDraftGenerated  SideEffectKind = "draft_generated"
)

// SideEffect is a typed observation of a state change performed by a tool
// handler. The core reports these upward; it never mutates UI state.
type SideEffect struct {
	Kind   SideEffectKind `json:"kind"`
	ItemID string         `json:"item_id,omitempty"`
	Title  string         `json:"title,omitempty"`
	Detail string         `json:"detail,omitempty"`
}

// CountByKind tallies effects of one kind in a slice.
func CountByKind(effects []SideEffect, kind SideEffectKind) int {
	n := 0
	for _, e := range effects {
		if e.Kind == kind {
			n++
		}
	}
	return n
}
