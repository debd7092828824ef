package analysis

// Result is the provider's verdict on a statement or restatement.
type Result struct {
	IsAccurate     bool     `json:"isAccurate"`
	IsConstructive bool     `json:"isConstructive"`
	MissingPoints  []string `json:"missingPoints"`
	Suggestions    []string `json:"suggestions"`
	Confidence     float64  `json:"confidence"`
}

// Summary is the closing analysis of a whole discussion.
type Summary struct {
	Summary      string   `json:"summary"`
	CommonGround []string `json:"commonGround"`
	Fallacies    []string `json:"fallacies"`
	Confidence   float64  `json:"confidence"`
}

// Request names a prompt template and its parameters.
type Request struct {
	TemplateID string
	Params     map[string]string
}

// Template IDs shipped with the package.
const (
	TemplateStatementAnalysis = "statementAnalysis"
	TemplateSteelManning      = "steelManning"
	TemplateDiscussionSummary = "discussionSummary"
)
