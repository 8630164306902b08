package llm

// QuestionSetSchema describes the question generation response sent to
// providers. Short answer questions carry an empty options list; the field
// stays required so strict structured output modes accept the schema.
var QuestionSetSchema = &Schema{
	Name:        "question_set",
	Description: "A set of diagnostic quiz questions",
	Definition:  questionSetDefinition("type", "question", "options", "correct_answer"),
}

// questionSetResponseSchema checks generated questions. Models without
// strict structured output omit options on short answer questions, so the
// field is optional here and ValidateQuestions enforces it for MCQ.
var questionSetResponseSchema = &Schema{
	Name:       "question_set_response",
	Definition: questionSetDefinition("type", "question", "correct_answer"),
}

func questionSetDefinition(required ...any) map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"questions": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"type": map[string]any{
							"type": "string",
							"enum": []any{"mcq", "short_answer"},
						},
						"question": map[string]any{"type": "string"},
						"options": map[string]any{
							"type":  "array",
							"items": map[string]any{"type": "string"},
						},
						"correct_answer": map[string]any{"type": "string"},
					},
					"required":             required,
					"additionalProperties": false,
				},
			},
		},
		"required":             []any{"questions"},
		"additionalProperties": false,
	}
}

// EvaluationSchema describes the answer evaluation response. Score ranges
// are checked by model.Evaluation.Validate since not every provider accepts
// numeric bounds in structured output.
var EvaluationSchema = &Schema{
	Name:        "evaluation",
	Description: "A graded assessment of quiz answers",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"overall_score": map[string]any{"type": "number"},
			"question_wise_breakdown": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"question_index": map[string]any{"type": "integer"},
						"score":          map[string]any{"type": "number"},
						"feedback":       map[string]any{"type": "string"},
					},
					"required":             []any{"question_index", "score", "feedback"},
					"additionalProperties": false,
				},
			},
			"strengths":             stringList,
			"weaknesses":            stringList,
			"study_recommendations": stringList,
		},
		"required": []any{
			"overall_score", "question_wise_breakdown",
			"strengths", "weaknesses", "study_recommendations",
		},
		"additionalProperties": false,
	},
}

var stringList = map[string]any{
	"type":  "array",
	"items": map[string]any{"type": "string"},
}
