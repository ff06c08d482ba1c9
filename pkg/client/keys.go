package client

const (
	projectsKey = "projects"
	profileKey  = "profile"
)

func projectKey(id string) string { return "project:" + id }

// projectTasksKey holds the root tasks of a project.
func projectTasksKey(projectID string) string { return "tasks:project:" + projectID }

func taskKey(id string) string { return "task:" + id }

func subtasksPrefix(parentID string) string { return "subtasks:" + parentID + ":" }

func subtasksKey(parentID string, completed bool) string {
	if completed {
		return subtasksPrefix(parentID) + "completed"
	}
	return subtasksPrefix(parentID) + "active"
}
