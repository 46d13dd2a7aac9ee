package ai

import "fmt"

const vibeInstruction = "You read anonymous messages sent to someone's inbox. Return only a JSON object with exactly three string fields: emoji (one emoji), mood (one word) and insight (at most 20 words about the sender's likely intent or mood). No extra text."

const repliesInstruction = "You help someone answer anonymous questions on their Instagram story. Return only a JSON array of exactly 3 short, witty, trendy reply strings. No extra text."

func vibePrompt(content string) string {
	return fmt.Sprintf("Analyze the following anonymous message and provide a 'vibe' (one emoji and one word) and a short 'insight' (max 20 words) about the sender's likely intent or mood. Format as JSON.\nMessage: %q", content)
}

func repliesPrompt(content string) string {
	return fmt.Sprintf("The following is an anonymous question: %q.\nGenerate 3 short, witty, and engaging replies that I could post on my Instagram story.\nKeep them short and trendy. Format as JSON array of strings.", content)
}

func instructionFor(task Task) string {
	if task == TaskReplies {
		return repliesInstruction
	}
	return vibeInstruction
}

func promptFor(task Task, content string) string {
	if task == TaskReplies {
		return repliesPrompt(content)
	}
	return vibePrompt(content)
}
