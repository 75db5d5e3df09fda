// Package validation implements the deterministic, rule-based checks run over
// a generated batch. It makes no external calls. Any error-severity issue
// means the referenced task must be dropped; warnings are informational.
package validation

import (
	"fmt"
	"math"
	"regexp"
	"slices"
	"strconv"
	"unicode/utf8"

	"github.com/phrazzld/scry-forge/internal/domain"
)

// DefaultMinDuplicateLength is the shortest normalised question text that
// takes part in batch-wide duplicate detection.
const DefaultMinDuplicateLength = 10

var (
	blankMarker = regexp.MustCompile(`\[\[(\d+)\]\]`)
	numberToken = regexp.MustCompile(`\d+(?:\.\d+)?`)
)

// Context carries the request attributes some rules depend on.
type Context struct {
	Subject    domain.Subject
	Difficulty domain.Difficulty
	Topic      string
}

// ContextFor builds a validation context from a request.
func ContextFor(req *domain.Request) Context {
	return Context{Subject: req.Subject, Difficulty: req.Difficulty, Topic: req.Topic}
}

// Result is the outcome of validating a batch. Valid is true iff Errors is empty.
type Result struct {
	Valid    bool                     `json:"valid"`
	Errors   []domain.ValidationIssue `json:"errors"`
	Warnings []domain.ValidationIssue `json:"warnings"`
}

// Validator runs structural checks over tasks.
type Validator struct {
	minDuplicateLength int
}

// New returns a validator with default settings.
func New() *Validator {
	return &Validator{minDuplicateLength: DefaultMinDuplicateLength}
}

// Validate checks every task and the batch as a whole. Issue indices refer to
// positions in tasks.
func (v *Validator) Validate(tasks []domain.Task, vctx Context) Result {
	c := &collector{}
	seen := make(map[string]int)

	for i, task := range tasks {
		c.index = i
		v.checkTask(c, task, vctx)

		q := Normalize(domain.QuestionText(task))
		if utf8.RuneCountInString(q) < v.minDuplicateLength {
			continue
		}
		if first, dup := seen[q]; dup {
			c.errorf(domain.CodeDuplicateQuestions, "question",
				"question duplicates task %d", first)
			continue
		}
		seen[q] = i
	}

	return c.result()
}

// ValidateOne checks a single task in isolation. Batch-wide rules do not apply.
func (v *Validator) ValidateOne(task domain.Task, vctx Context) Result {
	c := &collector{}
	v.checkTask(c, task, vctx)
	return c.result()
}

// Filter removes every task referenced by an error in r. It returns the kept
// tasks in their original order and the sorted indices that were dropped.
func Filter(tasks []domain.Task, r Result) (kept []domain.Task, dropped []int) {
	bad := make(map[int]bool, len(r.Errors))
	for _, issue := range r.Errors {
		bad[issue.TaskIndex] = true
	}
	kept = make([]domain.Task, 0, len(tasks))
	for i, t := range tasks {
		if bad[i] {
			dropped = append(dropped, i)
			continue
		}
		kept = append(kept, t)
	}
	return kept, dropped
}

func (v *Validator) checkTask(c *collector, task domain.Task, vctx Context) {
	switch t := task.(type) {
	case domain.SingleChoice:
		checkText(c, "question", t.Question)
		checkOptions(c, t.Options)
		if t.CorrectIndex < 0 || t.CorrectIndex >= len(t.Options) {
			c.errorf(domain.CodeInvalidIndex, "correct_index",
				"correct index %d outside %d options", t.CorrectIndex, len(t.Options))
		}
	case domain.MultipleChoice:
		checkText(c, "question", t.Question)
		checkOptions(c, t.Options)
		checkCorrectIndices(c, t.CorrectIndices, len(t.Options))
	case domain.OpenQuestion:
		checkText(c, "question", t.Question)
		checkText(c, "sample_answer", t.SampleAnswer)
	case domain.Matching:
		checkMatching(c, t)
	case domain.FillBlank:
		checkFillBlank(c, t)
	default:
		panic(fmt.Sprintf("validation: unhandled task variant %T", task))
	}

	if vctx.Subject.Numeric() {
		checkNumbers(c, task, vctx.Difficulty)
	}
}

func checkText(c *collector, field, value string) bool {
	if Normalize(value) == "" {
		c.errorf(domain.CodeEmptyField, field, "%s is empty", field)
		return false
	}
	return true
}

// checkItems flags empty and duplicate entries of one option-like column.
func checkItems(c *collector, field string, items []string) {
	seen := make(map[string]int, len(items))
	for i, item := range items {
		name := fmt.Sprintf("%s[%d]", field, i)
		if !checkText(c, name, item) {
			continue
		}
		key := Normalize(item)
		if first, dup := seen[key]; dup {
			c.errorf(domain.CodeDuplicateOptions, name,
				"%s repeats %s[%d]", name, field, first)
			continue
		}
		seen[key] = i
	}
}

func checkOptions(c *collector, options []string) {
	if len(options) < 2 {
		c.errorf(domain.CodeTooFewOptions, "options",
			"need at least 2 options, got %d", len(options))
	}
	checkItems(c, "options", options)
}

func checkCorrectIndices(c *collector, indices []int, n int) {
	if len(indices) == 0 {
		c.errorf(domain.CodeNoCorrectAnswer, "correct_indices", "no correct answer given")
		return
	}
	seen := make(map[int]bool, len(indices))
	for i, idx := range indices {
		field := fmt.Sprintf("correct_indices[%d]", i)
		if idx < 0 || idx >= n {
			c.errorf(domain.CodeInvalidIndex, field,
				"correct index %d outside %d options", idx, n)
		}
		if seen[idx] {
			c.errorf(domain.CodeDuplicateAnswerIndex, field,
				"correct index %d listed more than once", idx)
		}
		seen[idx] = true
	}
}

func checkMatching(c *collector, t domain.Matching) {
	checkText(c, "instruction", t.Instruction)
	if len(t.Left) == 0 {
		c.errorf(domain.CodeEmptyField, "left", "left column is empty")
	}
	if len(t.Right) == 0 {
		c.errorf(domain.CodeEmptyField, "right", "right column is empty")
	}
	checkItems(c, "left", t.Left)
	checkItems(c, "right", t.Right)

	if len(t.Left) != len(t.Right) {
		c.errorf(domain.CodeMatchingLengthMismatch, "right",
			"left has %d items, right has %d", len(t.Left), len(t.Right))
	}

	usedLeft := make(map[int]bool, len(t.Pairs))
	usedRight := make(map[int]bool, len(t.Pairs))
	for i, p := range t.Pairs {
		field := fmt.Sprintf("pairs[%d]", i)
		if p.Left < 0 || p.Left >= len(t.Left) || p.Right < 0 || p.Right >= len(t.Right) {
			c.errorf(domain.CodeInvalidPair, field,
				"pair (%d, %d) outside columns of %d and %d", p.Left, p.Right, len(t.Left), len(t.Right))
			continue
		}
		if usedLeft[p.Left] {
			c.errorf(domain.CodeDuplicatePair, field, "left item %d paired more than once", p.Left)
		}
		if usedRight[p.Right] {
			c.errorf(domain.CodeDuplicatePair, field, "right item %d paired more than once", p.Right)
		}
		usedLeft[p.Left] = true
		usedRight[p.Right] = true
	}

	for i := range t.Left {
		if !usedLeft[i] {
			c.errorf(domain.CodeMissingPair, "pairs", "left item %d has no pair", i)
		}
	}
}

func checkFillBlank(c *collector, t domain.FillBlank) {
	if !checkText(c, "text", t.Text) {
		return
	}

	var markers []int
	for _, m := range blankMarker.FindAllStringSubmatch(t.Text, -1) {
		pos, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		if !slices.Contains(markers, pos) {
			markers = append(markers, pos)
		}
	}
	if len(markers) == 0 {
		c.errorf(domain.CodeEmptyField, "text", "text has no [[n]] blank markers")
	}

	var defined []int
	for i, b := range t.Blanks {
		checkText(c, fmt.Sprintf("blanks[%d].answer", i), b.Answer)
		if !slices.Contains(defined, b.Position) {
			defined = append(defined, b.Position)
		}
	}

	if len(markers) != len(defined) {
		c.errorf(domain.CodeBlankCountMismatch, "blanks",
			"text has %d blank markers, %d blanks defined", len(markers), len(defined))
	}
	for _, pos := range markers {
		if !slices.Contains(defined, pos) {
			c.errorf(domain.CodeMissingBlankDefinition, "blanks",
				"marker [[%d]] has no blank definition", pos)
		}
	}
	for _, pos := range defined {
		if !slices.Contains(markers, pos) {
			c.errorf(domain.CodeOrphanBlankDefinition, "blanks",
				"blank %d has no [[%d]] marker in the text", pos, pos)
		}
	}
}

// checkNumbers warns once per task when any number in its text exceeds the
// difficulty's ceiling.
func checkNumbers(c *collector, task domain.Task, d domain.Difficulty) {
	ceiling := d.NumberCeiling()
	for _, text := range textFields(task) {
		text = blankMarker.ReplaceAllString(text, " ")
		for _, tok := range numberToken.FindAllString(text, -1) {
			n, err := strconv.ParseFloat(tok, 64)
			if err != nil || math.Abs(n) <= ceiling {
				continue
			}
			c.warnf(domain.CodeNumberExceedsLevel, "",
				"number %s exceeds the %s ceiling of %g", tok, d, ceiling)
			return
		}
	}
}

func textFields(task domain.Task) []string {
	switch t := task.(type) {
	case domain.SingleChoice:
		return append([]string{t.Question}, t.Options...)
	case domain.MultipleChoice:
		return append([]string{t.Question}, t.Options...)
	case domain.OpenQuestion:
		return []string{t.Question, t.SampleAnswer}
	case domain.Matching:
		out := []string{t.Instruction}
		out = append(out, t.Left...)
		return append(out, t.Right...)
	case domain.FillBlank:
		out := []string{t.Text}
		for _, b := range t.Blanks {
			out = append(out, b.Answer)
		}
		return out
	default:
		panic(fmt.Sprintf("validation: unhandled task variant %T", task))
	}
}

type collector struct {
	index    int
	errors   []domain.ValidationIssue
	warnings []domain.ValidationIssue
}

func (c *collector) errorf(code domain.IssueCode, field, format string, args ...any) {
	c.errors = append(c.errors, c.issue(domain.SeverityError, code, field, format, args...))
}

func (c *collector) warnf(code domain.IssueCode, field, format string, args ...any) {
	c.warnings = append(c.warnings, c.issue(domain.SeverityWarning, code, field, format, args...))
}

func (c *collector) issue(sev domain.Severity, code domain.IssueCode, field, format string, args ...any) domain.ValidationIssue {
	return domain.ValidationIssue{
		TaskIndex: c.index,
		Field:     field,
		Code:      code,
		Message:   fmt.Sprintf(format, args...),
		Severity:  sev,
	}
}

func (c *collector) result() Result {
	return Result{
		Valid:    len(c.errors) == 0,
		Errors:   c.errors,
		Warnings: c.warnings,
	}
}
