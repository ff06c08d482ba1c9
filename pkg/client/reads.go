package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

func (c *Client) Projects(ctx context.Context) ([]*Project, error) {
	return cachedRead(ctx, c, projectsKey, func(ctx context.Context) ([]*Project, error) {
		var out []*Project
		err := c.do(ctx, http.MethodGet, "/api/projects", nil, nil, &out)
		return out, err
	})
}

func (c *Client) Project(ctx context.Context, id string) (*Project, error) {
	return cachedRead(ctx, c, projectKey(id), func(ctx context.Context) (*Project, error) {
		var out []*Project
		if err := c.do(ctx, http.MethodGet, "/api/projects", url.Values{"id": {id}}, nil, &out); err != nil {
			return nil, err
		}
		if len(out) == 0 {
			return nil, notFound("project")
		}
		return out[0], nil
	})
}

// ProjectTasks lists the root tasks of a project.
func (c *Client) ProjectTasks(ctx context.Context, projectID string) ([]*Task, error) {
	return cachedRead(ctx, c, projectTasksKey(projectID), func(ctx context.Context) ([]*Task, error) {
		return c.listTasks(ctx, url.Values{"project_id": {projectID}, "parent_task_id": {"none"}})
	})
}

func (c *Client) Task(ctx context.Context, id string) (*Task, error) {
	return cachedRead(ctx, c, taskKey(id), func(ctx context.Context) (*Task, error) {
		tasks, err := c.listTasks(ctx, url.Values{"id": {id}})
		if err != nil {
			return nil, err
		}
		if len(tasks) == 0 {
			return nil, notFound("task")
		}
		return tasks[0], nil
	})
}

// Subtasks lists the direct subtasks of parentID that are, or are not,
// completed.
func (c *Client) Subtasks(ctx context.Context, parentID string, completed bool) ([]*Task, error) {
	return cachedRead(ctx, c, subtasksKey(parentID, completed), func(ctx context.Context) ([]*Task, error) {
		return c.listTasks(ctx, url.Values{
			"parent_task_id": {parentID},
			"completed":      {strconv.FormatBool(completed)},
		})
	})
}

func (c *Client) Profile(ctx context.Context) (*Profile, error) {
	return cachedRead(ctx, c, profileKey, func(ctx context.Context) (*Profile, error) {
		var out Profile
		if err := c.do(ctx, http.MethodGet, "/api/users/profile", nil, nil, &out); err != nil {
			return nil, err
		}
		return &out, nil
	})
}

func (c *Client) listTasks(ctx context.Context, query url.Values) ([]*Task, error) {
	var out listResult[*Task]
	if err := c.do(ctx, http.MethodGet, "/api/tasks", query, nil, &out); err != nil {
		return nil, err
	}
	if out.Items == nil {
		out.Items = []*Task{}
	}
	return out.Items, nil
}
