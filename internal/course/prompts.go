package course

import (
	"fmt"

	"github.com/pavelanni/skillforge/internal/model"
)

const courseSystemPrompt = `You are an expert programming instructor creating interactive
learning courses.

Your task is to create structured, hands-on courses that teach technical
concepts through practical exercises.

Guidelines:
- Focus on interactive, command-line based learning
- Each lesson should build on previous lessons
- Exercises should be practical and testable
- Include clear learning objectives for each lesson
- Provide hints for learners who get stuck
- Keep exercises achievable but challenging
- Use realistic examples and scenarios

Output Format: Return a valid JSON object matching the provided schema.`

func buildCoursePrompt(topic string, difficulty model.Difficulty, numLessons int) string {
	return fmt.Sprintf(`Create an interactive learning course on the topic: %q

Requirements:
- Difficulty level: %s
- Number of lessons: %d
- Each lesson should have 2-4 exercises
- Each exercise should include:
  - Clear instruction
  - Expected output (if applicable)
  - 2-3 helpful hints

Focus on hands-on, command-line based learning where students can practice
actual commands and write real code.

Generate a complete course following the JSON schema provided.`, topic, difficulty, numLessons)
}

// courseSchema is the JSON schema handed to the LLM's JSON mode. It
// mirrors the wire shape of model.Course.
const courseSchema = `{
  "type": "object",
  "required": ["topic", "description", "difficulty", "lessons"],
  "properties": {
    "id": {"type": "string"},
    "topic": {"type": "string"},
    "description": {"type": "string"},
    "difficulty": {"type": "string", "enum": ["beginner", "intermediate", "advanced"]},
    "lessons": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["title", "objectives", "exercises"],
        "properties": {
          "id": {"type": "string"},
          "title": {"type": "string"},
          "objectives": {"type": "array", "items": {"type": "string"}},
          "exercises": {
            "type": "array",
            "minItems": 1,
            "items": {
              "type": "object",
              "required": ["instruction"],
              "properties": {
                "id": {"type": "string"},
                "instruction": {"type": "string"},
                "expected_output": {"type": "string"},
                "hints": {"type": "array", "items": {"type": "string"}}
              }
            }
          }
        }
      }
    }
  }
}`
