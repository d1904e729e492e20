package query

import "campus-desk-be/internal/entity"

var handbookSuggestions = []string{
	"What is the attendance policy?",
	"How is CGPA calculated?",
	"What are the examination rules?",
	"What is the late submission policy?",
	"How do I apply for academic leave?",
	"What are the graduation requirements?",
	"What is the grading system?",
	"What are the disciplinary rules?",
}

var syllabusSuggestions = []string{
	"What units does this course cover?",
	"What are the learning outcomes of this course?",
	"How is this course assessed?",
	"What are the prerequisites for this course?",
	"Which topics carry the most marks?",
	"What reference books are listed in the syllabus?",
}

// SuggestedQuestions returns starter questions for the document kind.
func SuggestedQuestions(kind entity.DocumentKind) []string {
	src := handbookSuggestions
	if kind == entity.DocumentKindSyllabus {
		src = syllabusSuggestions
	}
	out := make([]string, len(src))
	copy(out, src)
	return out
}
