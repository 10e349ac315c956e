package agent

import (
	"fmt"
	"strings"
)

const (
	defaultGuidance = "Standard presentation format"

	// SystemInstruction is sent as the system message to providers that support one.
	SystemInstruction = "You are a presentation expert who converts text into structured slide content."

	// Advisory bounds written into the prompt. They are not enforced on the reply.
	minSlides = 5
	maxSlides = 12
	minPoints = 2
	maxPoints = 6
)

// BuildSlidePrompt embeds the source text and optional guidance into the
// instructions that ask for a JSON array of {title, points} objects.
func BuildSlidePrompt(text, guidance string) string {
	if strings.TrimSpace(guidance) == "" {
		guidance = defaultGuidance
	}

	var sb strings.Builder
	sb.WriteString("Convert the following text into a structured PowerPoint presentation.\n\n")
	sb.WriteString("Text to convert:\n")
	sb.WriteString(text)
	sb.WriteString("\n\nAdditional guidance: ")
	sb.WriteString(guidance)
	sb.WriteString("\n\nRequirements:\n")
	fmt.Fprintf(&sb, "1. Analyze the content and determine the optimal number of slides (typically %d-%d slides)\n", minSlides, maxSlides)
	sb.WriteString("2. Create a logical flow with clear sections\n")
	sb.WriteString("3. Extract key points and organize them hierarchically\n")
	sb.WriteString("4. Ensure each slide has a clear, descriptive title\n")
	fmt.Fprintf(&sb, "5. Include %d-%d bullet points per slide maximum\n", minPoints, maxPoints)
	sb.WriteString("6. Make content concise and presentation-friendly\n\n")
	sb.WriteString(`Return the response as a JSON array with this exact format:
[
  {
    "title": "Introduction",
    "points": ["Key point 1", "Key point 2", "Key point 3"]
  },
  {
    "title": "Main Topic",
    "points": ["Supporting detail 1", "Supporting detail 2"]
  }
]

Important: Return ONLY the JSON array, no additional text or formatting.
`)
	return sb.String()
}
