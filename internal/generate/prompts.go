// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package generate

import (
	"fmt"
	"strings"
)

const writerSystem = "You are a professional content writer producing well-researched, " +
	"accessible long-form articles for a technical audience."

const editorSystem = "You are an editor who writes concise, accurate copy for publishing " +
	"and promoting articles."

const classifierSystem = "You classify writing tasks by complexity. Respond with exactly " +
	"one word: HIGH, MEDIUM, or LOW."

func draftPrompt(topic, research string, minWords, maxWords int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Write a complete article about: %s\n\n", topic)
	fmt.Fprintf(&b, "Requirements:\n")
	fmt.Fprintf(&b, "- Length between %d and %d words.\n", minWords, maxWords)
	b.WriteString("- Markdown format: an untitled introduction, at least three '## ' sections, and a '## Conclusion' section.\n")
	b.WriteString("- Plain, direct language suitable for a general technical reader.\n")
	b.WriteString("- No placeholder text; every section fully written.\n")
	if research != "" {
		fmt.Fprintf(&b, "\nGround the article in this research summary:\n\n%s\n", research)
	}
	return b.String()
}

func revisionPrompt(topic, previous string, issues []string, minWords, maxWords int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Rewrite the article about %q to fix these problems:\n", topic)
	for _, issue := range issues {
		fmt.Fprintf(&b, "- %s\n", issue)
	}
	fmt.Fprintf(&b, "\nKeep the length between %d and %d words and keep the Markdown shape: ", minWords, maxWords)
	b.WriteString("introduction, at least three '## ' sections, '## Conclusion'.\n")
	b.WriteString("\nPrevious draft:\n\n")
	b.WriteString(previous)
	return b.String()
}

func titlePrompt(content string) string {
	return "Write one headline for the article below. Under 70 characters, " +
		"no quotes, no Markdown, title case. Respond with the headline only.\n\n" +
		content
}

func metaDescriptionPrompt(title, content string) string {
	return fmt.Sprintf("Write a meta description for the article titled %q. "+
		"Under 155 characters, one or two sentences, no quotes. "+
		"Respond with the description only.\n\n%s", title, content)
}

func socialPostPrompt(title, url string) string {
	return fmt.Sprintf("Write a short professional social media post announcing a new "+
		"article titled %q. Two or three sentences, end with the link %s, "+
		"then two relevant hashtags. Respond with the post only.", title, url)
}

func classifierPrompt(task string) string {
	return "Classify this task's complexity as HIGH (long-form writing, analysis, research), " +
		"MEDIUM (short creative or editorial text), or LOW (mechanical transformation):\n\n" + task
}
