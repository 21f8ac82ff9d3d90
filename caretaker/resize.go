package caretaker

import (
	"fmt"

	"github.com/vixns/arangodb-mesos-framework/model"
)

// resizeRoleSlots grows or shrinks plan/current's slot lists for role
// to desiredCount, without ever reordering existing slots (invariant
// 2). Growing appends NEW slots. Shrinking marks the surplus tail
// slots KILLED in place (they are physically removed only once their
// tasks are confirmed gone -- that removal happens in the Manager,
// not here) and returns their server ids for bootstrap cleanup
// (invariant/property P7).
func resizeRoleSlots(plan *model.Plan, current *model.Current, role model.Role, desiredCount int) []string {
	planSlots := plan.Slots[role]
	curSlots := current.Slots[role]

	var cleaned []string

	if len(planSlots) < desiredCount {
		for i := len(planSlots); i < desiredCount; i++ {
			planSlots = append(planSlots, &model.TaskPlan{
				SlotID:        nextSlotID(role, i),
				PersistenceID: fmt.Sprintf("%s-vol-%d", role, i),
				Phase:         model.New,
			})
			curSlots = append(curSlots, &model.TaskCurrent{})
		}
	} else if len(planSlots) > desiredCount {
		for i := desiredCount; i < len(planSlots); i++ {
			if planSlots[i].Phase != model.Killed {
				planSlots[i].Phase = model.Killed
				if i < len(curSlots) && curSlots[i].ServerID != "" {
					cleaned = append(cleaned, curSlots[i].ServerID)
				}
			}
		}
	}

	plan.Slots[role] = planSlots
	current.Slots[role] = curSlots
	return cleaned
}

// RemoveKilledTail physically removes KILLED slots from the tail of
// plan/current's slot lists for role, once the Manager has confirmed
// their tasks are gone. It never removes from the middle, preserving
// invariant 2. Called by scheduler.Manager's updatePlan step once
// every KILLED slot's task for role is confirmed dead.
func RemoveKilledTail(plan *model.Plan, current *model.Current, role model.Role) {
	planSlots := plan.Slots[role]
	curSlots := current.Slots[role]

	n := len(planSlots)
	for n > 0 && planSlots[n-1].Phase == model.Killed {
		n--
	}
	plan.Slots[role] = planSlots[:n]
	if n <= len(curSlots) {
		current.Slots[role] = curSlots[:n]
	}
}
