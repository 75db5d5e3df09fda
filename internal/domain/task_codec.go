package domain

import (
	"encoding/json"
	"fmt"
)

// taskEnvelope carries only the discriminator of an encoded task.
type taskEnvelope struct {
	Type TaskType `json:"type"`
}

// MarshalTask encodes a task as a JSON object with a "type" discriminator
// next to the variant fields.
func MarshalTask(t Task) ([]byte, error) {
	switch v := t.(type) {
	case SingleChoice:
		return json.Marshal(struct {
			Type TaskType `json:"type"`
			SingleChoice
		}{v.Type(), v})
	case MultipleChoice:
		return json.Marshal(struct {
			Type TaskType `json:"type"`
			MultipleChoice
		}{v.Type(), v})
	case OpenQuestion:
		return json.Marshal(struct {
			Type TaskType `json:"type"`
			OpenQuestion
		}{v.Type(), v})
	case Matching:
		return json.Marshal(struct {
			Type TaskType `json:"type"`
			Matching
		}{v.Type(), v})
	case FillBlank:
		return json.Marshal(struct {
			Type TaskType `json:"type"`
			FillBlank
		}{v.Type(), v})
	default:
		panic(fmt.Sprintf("domain: unhandled task variant %T", t))
	}
}

// UnmarshalTask decodes one task from its JSON envelope form.
func UnmarshalTask(data []byte) (Task, error) {
	var env taskEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: task envelope: %v", ErrInvalidFormat, err)
	}

	switch env.Type {
	case TypeSingleChoice:
		return decodeVariant[SingleChoice](data)
	case TypeMultipleChoice:
		return decodeVariant[MultipleChoice](data)
	case TypeOpenQuestion:
		return decodeVariant[OpenQuestion](data)
	case TypeMatching:
		return decodeVariant[Matching](data)
	case TypeFillBlank:
		return decodeVariant[FillBlank](data)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownTaskType, env.Type)
	}
}

func decodeVariant[T Task](data []byte) (Task, error) {
	var dst T
	if err := json.Unmarshal(data, &dst); err != nil {
		return nil, fmt.Errorf("%w: %s task: %v", ErrInvalidFormat, dst.Type(), err)
	}
	return dst, nil
}

// TaskList is a slice of tasks that round-trips through JSON using the
// envelope form of each element.
type TaskList []Task

// MarshalJSON implements json.Marshaler.
func (l TaskList) MarshalJSON() ([]byte, error) {
	raw := make([]json.RawMessage, 0, len(l))
	for _, t := range l {
		b, err := MarshalTask(t)
		if err != nil {
			return nil, err
		}
		raw = append(raw, b)
	}
	return json.Marshal(raw)
}

// UnmarshalJSON implements json.Unmarshaler.
func (l *TaskList) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: task list: %v", ErrInvalidFormat, err)
	}
	tasks := make(TaskList, 0, len(raw))
	for i, r := range raw {
		t, err := UnmarshalTask(r)
		if err != nil {
			return fmt.Errorf("task %d: %w", i, err)
		}
		tasks = append(tasks, t)
	}
	*l = tasks
	return nil
}
