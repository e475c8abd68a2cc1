package cli

import "quiz-miniapp/internal/domain"

// sampleQuizzes seeds the in-memory store when no database is configured.
func sampleQuizzes() []domain.Quiz {
	return []domain.Quiz{
		{
			ID:          1,
			Title:       "JavaScript Basics",
			Description: "Test your knowledge of JavaScript fundamentals",
			Questions: domain.Questions{
				domain.MultipleChoice{
					ID:            1,
					Question:      "What is JavaScript?",
					Options:       []string{"A programming language", "A markup language", "A styling language", "A database"},
					CorrectAnswer: 0,
				},
				domain.MultipleChoice{
					ID:             2,
					Question:       "Which of these are JavaScript frameworks?",
					Options:        []string{"React", "Vue", "Angular", "Django"},
					MultiSelect:    true,
					CorrectAnswers: []int{0, 1, 2},
				},
				domain.FillBlank{
					ID:             3,
					Question:       "Complete the sentence",
					Text:           "React is a [BLANK] library for building [BLANK] interfaces",
					Options:        []string{"JavaScript", "Python", "user", "library"},
					CorrectAnswers: []string{"JavaScript", "user"},
				},
			},
			IsRepassable: true,
		},
		{
			ID:          2,
			Title:       "Go Concurrency",
			Description: "Goroutines, channels and friends",
			Questions: domain.Questions{
				domain.MultipleChoice{
					ID:            1,
					Question:      "Which keyword starts a goroutine?",
					Options:       []string{"go", "async", "spawn", "thread"},
					CorrectAnswer: 0,
				},
				domain.FillBlank{
					ID:             2,
					Question:       "Complete the proverb",
					Text:           "Do not communicate by sharing [BLANK]; share memory by [BLANK].",
					Options:        []string{"memory", "communicating", "channels", "locking"},
					CorrectAnswers: []string{"memory", "communicating"},
				},
			},
			IsRepassable: false,
		},
	}
}
