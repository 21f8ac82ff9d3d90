package model

import (
	"fmt"
	"strconv"
	"strings"
)

// FormatTaskID renders the opaque task-id format from spec.md section
// 6: "arangodb:<role>:<counter>".
func FormatTaskID(role Role, counter int64) string {
	return fmt.Sprintf("arangodb:%s:%d", role, counter)
}

// ParseTaskID recovers the role and counter encoded into a task id by
// FormatTaskID. Grounded on the teacher's config.Parse, which performs
// the same kind of task-id -> struct recovery for status updates.
func ParseTaskID(taskID string) (role Role, counter int64, err error) {
	parts := strings.Split(taskID, ":")
	if len(parts) != 3 || parts[0] != "arangodb" {
		return 0, 0, fmt.Errorf("malformed task id %q", taskID)
	}
	role, ok := ParseRole(parts[1])
	if !ok {
		return 0, 0, fmt.Errorf("unknown role in task id %q", taskID)
	}
	counter, err = strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("malformed counter in task id %q: %w", taskID, err)
	}
	return role, counter, nil
}
