package domain

// Severity grades a structural validation issue.
type Severity string

// Issue severities. Only errors cause a task to be dropped.
const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// IssueCode identifies a structural rule violation.
type IssueCode string

// Structural issue codes.
const (
	CodeEmptyField             IssueCode = "EMPTY_FIELD"
	CodeInvalidIndex           IssueCode = "INVALID_INDEX"
	CodeDuplicateOptions       IssueCode = "DUPLICATE_OPTIONS"
	CodeDuplicateQuestions     IssueCode = "DUPLICATE_QUESTIONS"
	CodeTooFewOptions          IssueCode = "TOO_FEW_OPTIONS"
	CodeDuplicateAnswerIndex   IssueCode = "DUPLICATE_ANSWER_INDEX"
	CodeNoCorrectAnswer        IssueCode = "NO_CORRECT_ANSWER"
	CodeBlankCountMismatch     IssueCode = "BLANK_COUNT_MISMATCH"
	CodeMissingBlankDefinition IssueCode = "MISSING_BLANK_DEFINITION"
	CodeOrphanBlankDefinition  IssueCode = "ORPHAN_BLANK_DEFINITION"
	CodeMatchingLengthMismatch IssueCode = "MATCHING_LENGTH_MISMATCH"
	CodeInvalidPair            IssueCode = "INVALID_PAIR"
	CodeDuplicatePair          IssueCode = "DUPLICATE_PAIR"
	CodeMissingPair            IssueCode = "MISSING_PAIR"
	CodeNumberExceedsLevel     IssueCode = "NUMBER_EXCEEDS_LEVEL"
)

// ValidationIssue is one finding of the deterministic validator.
type ValidationIssue struct {
	TaskIndex int       `json:"task_index"`
	Field     string    `json:"field"`
	Code      IssueCode `json:"code"`
	Message   string    `json:"message"`
	Severity  Severity  `json:"severity"`
}

// AgentIssue is one finding of a semantic validation agent.
type AgentIssue struct {
	TaskIndex  int    `json:"task_index"`
	Agent      string `json:"agent"`
	Code       string `json:"code"`
	Message    string `json:"message"`
	Suggestion string `json:"suggestion,omitempty"`
}

// FixResult records the outcome of one auto-fix attempt. Replacement is set
// only when Success is true.
type FixResult struct {
	TaskIndex   int    `json:"task_index"`
	Success     bool   `json:"success"`
	Replacement Task   `json:"-"`
	Reason      string `json:"reason,omitempty"`
}
