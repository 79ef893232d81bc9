package recurrence

// NextAssignee picks the round-robin assignee after priorCount earlier
// materializations. It reports false when the rotation is empty.
func NextAssignee(rotation []string, priorCount int) (string, bool) {
	if len(rotation) == 0 {
		return "", false
	}
	idx := priorCount % len(rotation)
	if idx < 0 {
		idx += len(rotation)
	}
	return rotation[idx], true
}
