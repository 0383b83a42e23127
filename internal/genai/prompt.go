package genai

import (
	"fmt"
	"strings"
)

// buildPrompt renders the instruction text sent to the model. With post
// context present it asks for a LinkedIn comment grounded in the post (and
// its images); otherwise it asks for an improved standalone message. Both
// variants pin the model to the fixed reply/suggestions JSON contract.
func buildPrompt(input *GenerateInput, images []*FetchedImage, imageDescriptions []string) string {
	if len(input.Context) == 0 {
		return buildMessagePrompt(input.Text)
	}

	postContent := input.Context[0]
	existingComments := input.Context[1:]
	if len(existingComments) > 3 {
		existingComments = existingComments[:3]
	}

	var b strings.Builder
	b.WriteString("You are writing a thoughtful, engaging comment on a LinkedIn post.\n\n")
	b.WriteString("POST TEXT CONTENT:\n")
	b.WriteString(postContent)
	b.WriteString("\n\n")

	if len(images) > 0 || len(imageDescriptions) > 0 {
		b.WriteString("POST IMAGES:\n")
		for i, img := range images {
			fmt.Fprintf(&b, "- [Image %d] %s\n", i+1, img.Description)
		}
		for _, desc := range imageDescriptions {
			fmt.Fprintf(&b, "- %s\n", desc)
		}
		b.WriteString("\n")
	}

	if len(existingComments) > 0 {
		b.WriteString("EXISTING COMMENTS:\n")
		for _, comment := range existingComments {
			fmt.Fprintf(&b, "- %s\n", comment)
		}
		b.WriteString("\n")
	}

	if input.Text != "" {
		b.WriteString("USER'S DRAFT (optional): ")
		b.WriteString(input.Text)
		b.WriteString("\n\n")
	}

	b.WriteString(`TASK:
Write ONE natural, professional LinkedIn comment (2-3 sentences, max 40 words).
- Be genuine and specific to THIS post
- Show you understood the text content
- If there are IMAGES: reference specific visual elements (colors, charts, infographics, people, etc.)
- Add value (insight, question, or encouragement)
- Use casual professional tone
- NO dashes, bullets, or "Great post!" generic phrases

Also provide 4 different variations as follow-up suggestions:
- First 2 suggestions: DYNAMIC labels based on post theme (e.g., "Add question", "More supportive", "Technical angle", "Personal touch", "Add emoji", "More formal", "Congratulate", "Share experience", etc.)
- Last 2 suggestions: STATIC labels "Shorter" and "Longer"

Return ONLY this JSON format:
{"reply": "your specific comment here", "suggestions": [{"label": "<dynamic label based on post>", "example": "variation 1"}, {"label": "<dynamic label based on post>", "example": "variation 2"}, {"label": "Shorter", "example": "shorter version (15-20 words)"}, {"label": "Longer", "example": "longer version (50-60 words)"}]}`)

	return b.String()
}

func buildMessagePrompt(text string) string {
	if text == "" {
		text = "(empty - write something engaging)"
	}
	return fmt.Sprintf(`You are improving a social media message.

USER'S TEXT: %s

TASK:
Write a short, natural, engaging message (max 40 words).
Also provide 4 variation suggestions:
- First 2: DYNAMIC labels (e.g., "Add emoji", "More casual", "Add question", "Enthusiastic", etc.)
- Last 2: STATIC labels "Shorter" and "Longer"

Return ONLY this JSON:
{"reply": "improved message", "suggestions": [{"label": "<dynamic>", "example": "variation 1"}, {"label": "<dynamic>", "example": "variation 2"}, {"label": "Shorter", "example": "shorter version"}, {"label": "Longer", "example": "longer version"}]}`, text)
}

// stripMarkdownFences removes a surrounding ```json ... ``` block, which the
// model emits despite being told not to.
func stripMarkdownFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	parts := strings.SplitN(s, "```", 3)
	if len(parts) < 2 {
		return s
	}
	body := parts[1]
	body = strings.TrimPrefix(body, "json")
	return strings.TrimSpace(body)
}
