package infusion

// Task is a controller-side macro with fire-and-forget invocation and
// no persisted state beyond identity.
type Task struct {
	entityBase
}

// NewTask constructs and registers a task, indexing it by its final
// display name for lookup.
func (c *Client) NewTask(vid int, name string) (*Task, error) {
	t := &Task{entityBase: entityBase{client: c, vid: vid}}
	if err := c.register(t, name, CommandTask); err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.tasks[t.name] = t
	c.mu.Unlock()
	return t, nil
}

// Invoke fires the task.
func (t *Task) Invoke() error {
	return t.client.send("TASK", t.vid, "RELEASE")
}

// HandleUpdate acknowledges task status events; there is no state to
// carry.
func (t *Task) HandleUpdate(_ CommandType, _ int, _ []string) Entity {
	return t
}
