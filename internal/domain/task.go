package domain

import "fmt"

// TaskType names one of the supported exercise task categories.
type TaskType string

// Supported task types.
const (
	TypeSingleChoice   TaskType = "single_choice"
	TypeMultipleChoice TaskType = "multiple_choice"
	TypeOpenQuestion   TaskType = "open_question"
	TypeMatching       TaskType = "matching"
	TypeFillBlank      TaskType = "fill_blank"
)

// Form groups task types into the two super-categories a request counts separately.
type Form string

// Task forms.
const (
	FormClosed Form = "closed"
	FormOpen   Form = "open"
)

// AllTaskTypes lists every supported type, closed form first.
var AllTaskTypes = []TaskType{
	TypeSingleChoice,
	TypeMultipleChoice,
	TypeOpenQuestion,
	TypeMatching,
	TypeFillBlank,
}

// Valid reports whether t is a known task type.
func (t TaskType) Valid() bool {
	switch t {
	case TypeSingleChoice, TypeMultipleChoice, TypeOpenQuestion, TypeMatching, TypeFillBlank:
		return true
	}
	return false
}

// Form returns the super-category of the task type.
// Unknown types report FormOpen; callers validate types before planning.
func (t TaskType) Form() Form {
	switch t {
	case TypeSingleChoice, TypeMultipleChoice:
		return FormClosed
	default:
		return FormOpen
	}
}

// Task is a generated exercise. The set of implementations is closed:
// SingleChoice, MultipleChoice, OpenQuestion, Matching and FillBlank.
// Only the fields of the concrete variant exist.
type Task interface {
	Type() TaskType
	isTask()
}

// SingleChoice is a question with exactly one correct option.
type SingleChoice struct {
	Question     string   `json:"question" yaml:"question"`
	Options      []string `json:"options" yaml:"options"`
	CorrectIndex int      `json:"correct_index" yaml:"correct_index"`
	Explanation  string   `json:"explanation,omitempty" yaml:"explanation,omitempty"`
}

// MultipleChoice is a question with one or more correct options.
type MultipleChoice struct {
	Question       string   `json:"question" yaml:"question"`
	Options        []string `json:"options" yaml:"options"`
	CorrectIndices []int    `json:"correct_indices" yaml:"correct_indices"`
	Explanation    string   `json:"explanation,omitempty" yaml:"explanation,omitempty"`
}

// OpenQuestion is answered in free text and graded against a sample answer.
type OpenQuestion struct {
	Question     string   `json:"question" yaml:"question"`
	SampleAnswer string   `json:"sample_answer" yaml:"sample_answer"`
	Rubric       []string `json:"rubric,omitempty" yaml:"rubric,omitempty"`
}

// Pair links a left-column index to a right-column index in a Matching task.
type Pair struct {
	Left  int `json:"left" yaml:"left"`
	Right int `json:"right" yaml:"right"`
}

// Matching asks the learner to pair items from two equally long columns.
type Matching struct {
	Instruction string   `json:"instruction" yaml:"instruction"`
	Left        []string `json:"left" yaml:"left"`
	Right       []string `json:"right" yaml:"right"`
	Pairs       []Pair   `json:"pairs" yaml:"pairs"`
}

// Blank defines the expected answer for the [[Position]] marker in a FillBlank text.
type Blank struct {
	Position     int      `json:"position" yaml:"position"`
	Answer       string   `json:"answer" yaml:"answer"`
	Alternatives []string `json:"alternatives,omitempty" yaml:"alternatives,omitempty"`
}

// FillBlank is a text with numbered [[n]] markers to be filled in.
type FillBlank struct {
	Instruction string  `json:"instruction,omitempty" yaml:"instruction,omitempty"`
	Text        string  `json:"text" yaml:"text"`
	Blanks      []Blank `json:"blanks" yaml:"blanks"`
}

func (SingleChoice) Type() TaskType   { return TypeSingleChoice }
func (MultipleChoice) Type() TaskType { return TypeMultipleChoice }
func (OpenQuestion) Type() TaskType   { return TypeOpenQuestion }
func (Matching) Type() TaskType       { return TypeMatching }
func (FillBlank) Type() TaskType      { return TypeFillBlank }

func (SingleChoice) isTask()   {}
func (MultipleChoice) isTask() {}
func (OpenQuestion) isTask()   {}
func (Matching) isTask()       {}
func (FillBlank) isTask()      {}

// QuestionText returns the prompt text a learner reads first. It is used for
// batch-wide duplicate detection and in prompts sent back to the provider.
func QuestionText(t Task) string {
	switch v := t.(type) {
	case SingleChoice:
		return v.Question
	case MultipleChoice:
		return v.Question
	case OpenQuestion:
		return v.Question
	case Matching:
		return v.Instruction
	case FillBlank:
		return v.Text
	default:
		panic(fmt.Sprintf("domain: unhandled task variant %T", t))
	}
}

// FormOf returns the super-category of a task.
func FormOf(t Task) Form {
	return t.Type().Form()
}

// SplitByForm partitions tasks into closed and open form, preserving order.
func SplitByForm(tasks []Task) (closed, open []Task) {
	for _, t := range tasks {
		if FormOf(t) == FormClosed {
			closed = append(closed, t)
		} else {
			open = append(open, t)
		}
	}
	return closed, open
}

// Distribution is the planned number of tasks of one type.
type Distribution struct {
	Type  TaskType `json:"type" yaml:"type"`
	Count int      `json:"count" yaml:"count"`
}

// TotalCount sums the counts of a distribution list.
func TotalCount(dist []Distribution) int {
	total := 0
	for _, d := range dist {
		total += d.Count
	}
	return total
}
