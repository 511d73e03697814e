package tasks

func FilterTasks(all []Task, filter Filter) []Task {
	result := make([]Task, 0, len(all))
	for _, task := range all {
		switch filter {
		case FilterCompleted:
			if !task.Completed {
				continue
			}
		case FilterIncomplete:
			if task.Completed {
				continue
			}
		}
		result = append(result, task)
	}
	return result
}

// SortTasks returns a copy of tasks, reversed when requested. Input order is
// otherwise preserved.
func SortTasks(tasks []Task, reversed bool) []Task {
	result := make([]Task, len(tasks))
	if !reversed {
		copy(result, tasks)
		return result
	}
	for i, task := range tasks {
		result[len(tasks)-1-i] = task
	}
	return result
}

func CountTasks(all []Task) Counts {
	counts := Counts{All: len(all)}
	for _, task := range all {
		if task.Completed {
			counts.Completed++
		} else {
			counts.Incomplete++
		}
	}
	return counts
}

func DeriveView(all []Task, filter Filter, reversed bool) []Task {
	return SortTasks(FilterTasks(all, filter), reversed)
}
