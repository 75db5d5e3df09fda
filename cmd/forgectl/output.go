package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/phrazzld/scry-forge/internal/domain"
)

// writeOutput encodes v as indented JSON or as block-style YAML. YAML goes
// through the JSON form so tasks keep their type discriminator and fields
// keep their declaration order.
func writeOutput(w io.Writer, format string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	if format == "json" {
		_, err = fmt.Fprintln(w, string(data))
		return err
	}

	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return fmt.Errorf("convert output to yaml: %w", err)
	}
	blockStyle(&node)

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&node); err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}
	return enc.Close()
}

// blockStyle drops the flow style the JSON source gave every node.
func blockStyle(n *yaml.Node) {
	n.Style &^= yaml.FlowStyle
	if n.Kind == yaml.ScalarNode && n.Tag == "!!str" {
		n.Style &^= yaml.DoubleQuotedStyle
	}
	for _, c := range n.Content {
		blockStyle(c)
	}
}

// readTasks loads a JSON or YAML task file. The document is either a list of
// tasks or an object with a "tasks" list; every task carries a "type".
func readTasks(path string) ([]domain.Task, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read task file: %w", err)
	}

	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse task file: %w", err)
	}
	if m, ok := doc.(map[string]any); ok {
		doc = m["tasks"]
	}
	items, ok := doc.([]any)
	if !ok {
		return nil, fmt.Errorf("task file %s holds no task list", path)
	}

	tasks := make([]domain.Task, 0, len(items))
	for i, item := range items {
		raw, err := json.Marshal(item)
		if err != nil {
			return nil, fmt.Errorf("task %d: %w", i, err)
		}
		t, err := domain.UnmarshalTask(raw)
		if err != nil {
			return nil, fmt.Errorf("task %d: %w", i, err)
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}

// parseTypes splits a comma-separated task type list.
func parseTypes(s string) ([]domain.TaskType, error) {
	var out []domain.TaskType
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		t := domain.TaskType(part)
		if !t.Valid() {
			return nil, fmt.Errorf("%w: %q", domain.ErrUnknownTaskType, part)
		}
		out = append(out, t)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("at least one task type is required")
	}
	return out, nil
}
