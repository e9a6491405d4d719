package main

import (
	"context"
	"fmt"

	"github.com/enactiq/enact/process"
	"github.com/enactiq/enact/usertask"
	"github.com/google/uuid"
)

// orderApproval is a single-step process definition: an order is held until
// a human approves or rejects it.
type orderApproval struct{}

func (orderApproval) ID() string {
	return "order-approval"
}

func (orderApproval) Version() string {
	return "1.0.0"
}

func (orderApproval) New(variables map[string]any) (process.Runtime, error) {
	return &approvalRuntime{vars: variables}, nil
}

func (orderApproval) Restore(variables, snapshot map[string]any) (process.Runtime, error) {
	rt := &approvalRuntime{vars: variables}

	switch p := snapshot["position"].(type) {
	case int:
		rt.position = p
	case float64:
		rt.position = int(p)
	}

	if id, ok := snapshot["work_item_id"].(string); ok {
		rt.produce(id)
	}

	return rt, nil
}

// approvalRuntime executes a single occurrence of the order-approval
// process.
type approvalRuntime struct {
	vars     map[string]any
	position int
	aborted  bool
	pending  *process.WorkItem
}

func (rt *approvalRuntime) Start(context.Context) error {
	rt.produce(uuid.NewString())
	return nil
}

func (rt *approvalRuntime) Abort(context.Context) error {
	rt.pending = nil
	rt.aborted = true
	return nil
}

func (rt *approvalRuntime) Status() process.Status {
	switch {
	case rt.aborted:
		return process.Aborted
	case rt.position > 0:
		return process.Completed
	default:
		return process.Active
	}
}

func (rt *approvalRuntime) Variables() map[string]any {
	return rt.vars
}

func (rt *approvalRuntime) WorkItems() []*process.WorkItem {
	if rt.pending == nil {
		return nil
	}

	return []*process.WorkItem{rt.pending}
}

func (rt *approvalRuntime) CompleteWorkItem(
	_ context.Context,
	id string,
	data map[string]any,
) error {
	if rt.pending == nil || rt.pending.ID != id {
		return fmt.Errorf("no pending work item with the ID %s", id)
	}

	if rt.vars == nil {
		rt.vars = map[string]any{}
	}
	for k, v := range data {
		rt.vars[k] = v
	}

	rt.pending = nil
	rt.position = 1

	return nil
}

func (rt *approvalRuntime) AbortWorkItem(_ context.Context, id string) error {
	if rt.pending == nil || rt.pending.ID != id {
		return fmt.Errorf("no pending work item with the ID %s", id)
	}

	// The approval is the only step; abandoning it abandons the order.
	rt.pending = nil
	rt.aborted = true

	return nil
}

func (rt *approvalRuntime) Signal(_ context.Context, name string, payload any) error {
	if rt.vars == nil {
		rt.vars = map[string]any{}
	}

	rt.vars[name] = payload

	return nil
}

func (rt *approvalRuntime) Snapshot() map[string]any {
	snap := map[string]any{
		"position": rt.position,
	}

	if rt.pending != nil {
		snap["work_item_id"] = rt.pending.ID
	}

	return snap
}

// produce creates the pending approval work item.
func (rt *approvalRuntime) produce(id string) {
	approver, _ := rt.vars["approver"].(string)

	rt.pending = &process.WorkItem{
		ID:     id,
		Name:   "Human Task",
		NodeID: "approve-order",
		Parameters: map[string]any{
			usertask.ParamTaskName: "Approve Order",
			usertask.ParamActors:   approver,
			"OrderID":              rt.vars["order_id"],
			"Amount":               rt.vars["amount"],
		},
	}
}
