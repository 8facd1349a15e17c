package source

// CourseTree is the full nested read of one course that the content
// pipeline consumes: the course row, its section markers, its lessons in
// ordinal order (each with topics and attached quizzes), and the quizzes
// attached directly to the course.
type CourseTree struct {
	Course        *Course
	Markers       []SectionMarker
	Lessons       []*LessonTree
	CourseQuizzes []*QuizTree
}

type LessonTree struct {
	Lesson  *Lesson
	Topics  []*Topic
	Quizzes []*QuizTree
}

type QuizTree struct {
	Quiz      *Quiz
	Questions []*QuestionTree
}

type QuestionTree struct {
	Question *Question
	Answers  []*AnswerRow
}
