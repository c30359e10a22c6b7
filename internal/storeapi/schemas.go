package storeapi

import "github.com/xeipuuv/gojsonschema"

const lessonJSON = `{
  "type": "object",
  "required": ["id", "lessonType"],
  "properties": {
    "id": {"type": "string", "minLength": 1},
    "moduleId": {"type": "string"},
    "title": {"type": "string"},
    "lessonOrder": {"type": "integer"},
    "lessonType": {"enum": ["video", "audio", "text"]},
    "mediaUrl": {"type": ["string", "null"]},
    "durationMinutes": {"type": "integer", "minimum": 0},
    "quizId": {"type": ["string", "null"]}
  }
}`

const moduleJSON = `{
  "type": "object",
  "required": ["id", "lessons"],
  "properties": {
    "id": {"type": "string", "minLength": 1},
    "courseId": {"type": "string"},
    "title": {"type": "string"},
    "moduleOrder": {"type": "integer"},
    "isLocked": {"type": "boolean"},
    "completedLessons": {"type": "integer", "minimum": 0},
    "totalLessons": {"type": "integer", "minimum": 0},
    "lessons": {"type": "array", "items": ` + lessonJSON + `}
  }
}`

const recordJSON = `{
  "type": "object",
  "required": ["lessonId", "courseId", "completionPercentage", "status", "lastAccessedAt"],
  "properties": {
    "learnerId": {"type": "string"},
    "lessonId": {"type": "string", "minLength": 1},
    "courseId": {"type": "string", "minLength": 1},
    "enrollmentId": {"type": "string"},
    "completionPercentage": {"type": "integer", "minimum": 0, "maximum": 100},
    "status": {"enum": ["not_started", "in_progress", "completed"]},
    "isCompleted": {"type": "boolean"},
    "lastAccessedAt": {"type": "string", "format": "date-time"},
    "notes": {"type": ["string", "null"]},
    "version": {"type": "integer", "minimum": 0}
  }
}`

const lastLessonJSON = `{
  "oneOf": [
    {"type": "null"},
    {
      "type": "object",
      "required": ["lessonId"],
      "properties": {
        "lessonId": {"type": "string", "minLength": 1},
        "completionPercentage": {"type": "integer", "minimum": 0, "maximum": 100}
      }
    }
  ]
}`

const enrollmentJSON = `{
  "type": "object",
  "required": ["id", "status"],
  "properties": {
    "id": {"type": "string", "minLength": 1},
    "status": {"type": "string"}
  }
}`

const quizJSON = `{
  "type": "object",
  "required": ["id", "courseId", "answers", "correctAnswerIndex", "points"],
  "properties": {
    "id": {"type": "string", "minLength": 1},
    "courseId": {"type": "string", "minLength": 1},
    "moduleId": {"type": "string"},
    "lessonId": {"type": "string"},
    "question": {"type": "string"},
    "answers": {"type": "string"},
    "correctAnswerIndex": {"type": "integer"},
    "points": {"type": "integer"}
  }
}`

const attemptJSON = `{
  "type": "object",
  "required": ["quizId", "attemptNumber", "score", "maxScore", "isPassed"],
  "properties": {
    "id": {"type": "string"},
    "quizId": {"type": "string", "minLength": 1},
    "lessonId": {"type": "string"},
    "courseId": {"type": "string"},
    "moduleId": {"type": "string"},
    "attemptNumber": {"type": "integer", "minimum": 1},
    "score": {"type": "integer", "minimum": 0},
    "maxScore": {"type": "integer", "minimum": 0},
    "percentage": {"type": "number", "minimum": 0, "maximum": 100},
    "isPassed": {"type": "boolean"},
    "submittedAt": {"type": "string", "format": "date-time"},
    "answers": {"type": "string"},
    "correctAnswers": {"type": "string"}
  }
}`

const reviewJSON = `{
  "type": "object",
  "required": ["id", "courseId", "rating"],
  "properties": {
    "id": {"type": "string", "minLength": 1},
    "learnerId": {"type": "string"},
    "courseId": {"type": "string", "minLength": 1},
    "rating": {"type": "number", "minimum": 0, "maximum": 5, "multipleOf": 0.5},
    "comment": {"type": "string"},
    "wouldRecommend": {"type": "boolean"},
    "difficulty": {"type": "string"},
    "isAnonymous": {"type": "boolean"},
    "language": {"type": "string"},
    "status": {"type": "string"},
    "createdAt": {"type": "string", "format": "date-time"},
    "updatedAt": {"type": "string", "format": "date-time"}
  }
}`

func arrayOf(item string) string {
	return `{"type": "array", "items": ` + item + `}`
}

var (
	modulesSchema    = mustSchema(arrayOf(moduleJSON))
	recordsSchema    = mustSchema(arrayOf(recordJSON))
	recordSchema     = mustSchema(recordJSON)
	lastLessonSchema = mustSchema(lastLessonJSON)
	enrollmentSchema = mustSchema(enrollmentJSON)
	quizSchema       = mustSchema(quizJSON)
	attemptsSchema   = mustSchema(arrayOf(attemptJSON))
	reviewsSchema    = mustSchema(arrayOf(reviewJSON))
	reviewSchema     = mustSchema(reviewJSON)
)

func mustSchema(s string) *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(s))
	if err != nil {
		panic("storeapi: invalid schema: " + err.Error())
	}
	return schema
}
