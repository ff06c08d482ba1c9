package client

import (
	"context"
	"net/http"
	"net/url"

	qc "github.com/tusktask/tusktask/pkg/querycache"
)

// knownTask returns the cached task, stale or not, without a request.
func (c *Client) knownTask(id string) *Task {
	if v, ok := c.cache.Get(taskKey(id)); ok {
		if t, ok := v.(*Task); ok && t != nil {
			return t
		}
	}
	return nil
}

func (c *Client) UpdateTask(ctx context.Context, id string, patch TaskPatch) (*Task, error) {
	known := c.knownTask(id)

	var invalidate []string
	if known != nil && known.ParentTaskID != nil {
		invalidate = append(invalidate, subtasksPrefix(*known.ParentTaskID))
	}
	task, err := qc.Mutate(ctx, c.cache, qc.Mutation[*Task]{
		OnMutate: func(cache *qc.Cache) []qc.Snapshot {
			tracked := []qc.SnapshotResult{
				qc.Track(qc.UpdateItem(cache, taskKey(id), patch.apply)),
			}
			if known != nil {
				tracked = append(tracked, qc.Track(qc.UpdateInList(cache, projectTasksKey(known.ProjectID), id, patch.apply)))
				if known.ParentTaskID != nil {
					parent := *known.ParentTaskID
					tracked = append(tracked,
						qc.Track(qc.UpdateInList(cache, subtasksKey(parent, false), id, patch.apply)),
						qc.Track(qc.UpdateInList(cache, subtasksKey(parent, true), id, patch.apply)),
					)
				}
			}
			return qc.Collect(tracked...)
		},
		Request: func(ctx context.Context) (*Task, error) {
			var out Task
			err := c.do(ctx, http.MethodPatch, "/api/tasks", url.Values{"id": {id}}, patch, &out)
			return &out, err
		},
		Invalidate: invalidate,
	})
	if err != nil {
		return nil, err
	}
	c.cache.Set(taskKey(id), task)
	return task, nil
}

func (c *Client) DeleteTask(ctx context.Context, id string) error {
	known := c.knownTask(id)

	_, err := qc.Mutate(ctx, c.cache, qc.Mutation[struct{}]{
		OnMutate: func(cache *qc.Cache) []qc.Snapshot {
			if known == nil {
				return nil
			}
			tracked := []qc.SnapshotResult{
				qc.Track(qc.RemoveFromList[Task](cache, projectTasksKey(known.ProjectID), id)),
			}
			if known.ParentTaskID != nil {
				parent := *known.ParentTaskID
				tracked = append(tracked,
					qc.Track(qc.RemoveFromList[Task](cache, subtasksKey(parent, false), id)),
					qc.Track(qc.RemoveFromList[Task](cache, subtasksKey(parent, true), id)),
				)
			}
			return qc.Collect(tracked...)
		},
		Request: func(ctx context.Context) (struct{}, error) {
			return struct{}{}, c.do(ctx, http.MethodDelete, "/api/tasks", url.Values{"id": {id}}, nil, nil)
		},
		Invalidate: []string{taskKey(id), subtasksPrefix(id)},
	})
	if err != nil {
		return err
	}
	c.cache.Delete(taskKey(id))
	return nil
}

// ToggleSubtask flips a subtask between completed and pending and moves
// it between its parent's active and completed subtask lists.
func (c *Client) ToggleSubtask(ctx context.Context, id string) (*Task, error) {
	current := c.knownTask(id)
	if current == nil {
		var err error
		if current, err = c.Task(ctx, id); err != nil {
			return nil, err
		}
	}
	if current.ParentTaskID == nil {
		return nil, ErrNotSubtask
	}
	parent := *current.ParentTaskID

	status := StatusCompleted
	if current.Completed() {
		status = StatusPending
	}
	patch := TaskPatch{TaskStatus: &status}

	next := *current
	patch.apply(&next)
	from := subtasksKey(parent, current.Completed())
	to := subtasksKey(parent, next.Completed())

	task, err := qc.Mutate(ctx, c.cache, qc.Mutation[*Task]{
		OnMutate: func(cache *qc.Cache) []qc.Snapshot {
			return qc.Collect(
				qc.Track(qc.RemoveFromList[Task](cache, from, id)),
				qc.Track(qc.PrependToList(cache, to, &next)),
				qc.Track(qc.UpdateItem(cache, taskKey(id), patch.apply)),
			)
		},
		Request: func(ctx context.Context) (*Task, error) {
			var out Task
			err := c.do(ctx, http.MethodPatch, "/api/tasks", url.Values{"id": {id}}, patch, &out)
			return &out, err
		},
		Invalidate: []string{subtasksPrefix(parent)},
	})
	if err != nil {
		return nil, err
	}
	c.cache.Set(taskKey(id), task)
	return task, nil
}

func (c *Client) UpdateProject(ctx context.Context, id string, patch ProjectPatch) (*Project, error) {
	project, err := qc.Mutate(ctx, c.cache, qc.Mutation[*Project]{
		OnMutate: func(cache *qc.Cache) []qc.Snapshot {
			return qc.Collect(
				qc.Track(qc.UpdateInList(cache, projectsKey, id, patch.apply)),
				qc.Track(qc.UpdateItem(cache, projectKey(id), patch.apply)),
			)
		},
		Request: func(ctx context.Context) (*Project, error) {
			var out Project
			err := c.do(ctx, http.MethodPatch, "/api/projects", url.Values{"id": {id}}, patch, &out)
			return &out, err
		},
	})
	if err != nil {
		return nil, err
	}
	c.cache.Set(projectKey(id), project)
	return project, nil
}

// DeleteProject removes a project; its tasks go with it on the server.
func (c *Client) DeleteProject(ctx context.Context, id string) error {
	_, err := qc.Mutate(ctx, c.cache, qc.Mutation[struct{}]{
		OnMutate: func(cache *qc.Cache) []qc.Snapshot {
			return qc.Collect(qc.Track(qc.RemoveFromList[Project](cache, projectsKey, id)))
		},
		Request: func(ctx context.Context) (struct{}, error) {
			return struct{}{}, c.do(ctx, http.MethodDelete, "/api/projects", url.Values{"id": {id}}, nil, nil)
		},
		Invalidate: []string{projectKey(id), projectTasksKey(id), "task:", "subtasks:"},
	})
	if err != nil {
		return err
	}
	c.cache.Delete(projectKey(id))
	return nil
}

func (c *Client) UpdateProfile(ctx context.Context, patch ProfilePatch) (*Profile, error) {
	profile, err := qc.Mutate(ctx, c.cache, qc.Mutation[*Profile]{
		OnMutate: func(cache *qc.Cache) []qc.Snapshot {
			return qc.Collect(qc.Track(qc.UpdateItem(cache, profileKey, patch.apply)))
		},
		Request: func(ctx context.Context) (*Profile, error) {
			var out Profile
			err := c.do(ctx, http.MethodPatch, "/api/users/profile", nil, patch, &out)
			return &out, err
		},
	})
	if err != nil {
		return nil, err
	}
	c.cache.Set(profileKey, profile)
	return profile, nil
}
